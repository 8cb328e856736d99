package engine

import (
	"context"
	"fmt"
	"io"

	apperrors "paper-trader/internal/errors"
	"paper-trader/internal/importer"
	"paper-trader/internal/models"
)

// ImportResult summarizes a CSV trade import. Skipped rows are counted
// and up to three of their error messages are kept as examples.
type ImportResult struct {
	Imported int
	Skipped  int
	Errors   int
	Examples []string
}

func (r *ImportResult) skip(line int, msg string) {
	r.Errors++
	r.Skipped++
	if len(r.Examples) < 3 {
		r.Examples = append(r.Examples, fmt.Sprintf("line %d: %s", line, msg))
	}
}

// ImportTrades replays a CSV trade history into the ledger. Buys fold
// into holdings at their weighted average cost and sells reduce them;
// cash never moves, since imported fills settled elsewhere. A sell
// exceeding the position at its point in the replay is skipped, like
// any other bad row. It fails outright only on an unusable file or
// when every row was skipped.
func (e *Engine) ImportTrades(ctx context.Context, r io.Reader) (ImportResult, error) {
	lines, err := importer.Parse(r)
	if err != nil {
		return ImportResult{}, err
	}

	var res ImportResult
	e.mu.Lock()
	for _, ln := range lines {
		if ln.Err != nil {
			res.skip(ln.Number, ln.Err.Error())
			continue
		}
		row := ln.Row
		if row.Side == models.SideBuy {
			if _, err := e.ledger.RecordBuy(row.Symbol, row.Quantity, row.Price, row.Timestamp); err != nil {
				res.skip(ln.Number, err.Error())
				continue
			}
		} else {
			held := e.ledger.HeldQuantity(row.Symbol)
			if _, err := e.ledger.RecordSell(row.Symbol, row.Quantity, row.Price, row.Timestamp); err != nil {
				res.skip(ln.Number, fmt.Sprintf("insufficient holdings for %s (have %s, need %s)",
					row.Symbol, held, row.Quantity))
				continue
			}
		}
		res.Imported++
	}
	snap, version := e.snapshotLocked()
	e.mu.Unlock()

	if res.Imported == 0 && res.Errors > 0 {
		return res, apperrors.NewValidationError("file", "", "no rows could be imported")
	}

	e.logger.Info().
		Int("imported", res.Imported).
		Int("skipped", res.Skipped).
		Msg("Trade history imported")

	if res.Imported == 0 {
		return res, nil
	}
	return res, e.persist(ctx, snap, version)
}

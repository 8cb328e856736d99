// Package importer parses CSV trade history files for replay into the
// ledger.
package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	apperrors "paper-trader/internal/errors"
	"paper-trader/internal/models"
)

// Required columns. Headers are matched case-insensitively and may
// appear in any order; a currency column is accepted and ignored.
var requiredColumns = []string{"date", "asset", "asset_type", "side", "quantity", "price"}

// Row is one validated trade from an import file.
type Row struct {
	Symbol    string
	AssetType string
	Side      models.Side
	Quantity  decimal.Decimal
	Price     decimal.Decimal
	Timestamp time.Time
}

// Line pairs a data row with its parse outcome. Number is 1-based with
// the header on line 1, so the first data row is line 2.
type Line struct {
	Number int
	Row    Row
	Err    error
}

// Parse reads a CSV trade file. It fails outright on a missing or
// unreadable header; individual bad rows are reported per Line so the
// caller can import the rest.
func Parse(r io.Reader) ([]Line, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, apperrors.NewValidationError("file", "", "file is empty")
	}
	if err != nil {
		return nil, apperrors.NewValidationError("file", "", fmt.Sprintf("unreadable header: %v", err))
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		if key != "" {
			columns[key] = i
		}
	}
	for _, name := range requiredColumns {
		if _, ok := columns[name]; !ok {
			return nil, apperrors.NewValidationError("file", "", fmt.Sprintf("missing required column: %s", name))
		}
	}

	var lines []Line
	for number := 2; ; number++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			lines = append(lines, Line{Number: number, Err: err})
			continue
		}
		row, err := parseRow(record, columns)
		lines = append(lines, Line{Number: number, Row: row, Err: err})
	}
	return lines, nil
}

func parseRow(record []string, columns map[string]int) (Row, error) {
	field := func(name string) string {
		i, ok := columns[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	asset := strings.ToUpper(field("asset"))
	if asset == "" {
		return Row{}, fmt.Errorf("asset is empty")
	}

	side := models.Side(strings.ToUpper(field("side")))
	if side != models.SideBuy && side != models.SideSell {
		return Row{}, fmt.Errorf("side must be BUY or SELL")
	}

	quantity, err := decimal.NewFromString(field("quantity"))
	if err != nil {
		return Row{}, fmt.Errorf("invalid quantity")
	}
	if !quantity.IsPositive() {
		return Row{}, fmt.Errorf("quantity must be positive")
	}

	price, err := decimal.NewFromString(field("price"))
	if err != nil {
		return Row{}, fmt.Errorf("invalid price")
	}
	if !price.IsPositive() {
		return Row{}, fmt.Errorf("price must be positive")
	}

	assetType := strings.ToUpper(field("asset_type"))
	if assetType != "STOCK" && assetType != "CRYPTO" {
		return Row{}, fmt.Errorf("asset_type must be STOCK or CRYPTO")
	}

	return Row{
		Symbol:    asset,
		AssetType: assetType,
		Side:      side,
		Quantity:  quantity,
		Price:     price,
		Timestamp: parseDate(field("date")),
	}, nil
}

// parseDate accepts RFC 3339 or a bare date; anything else falls back
// to the current time rather than failing the row.
func parseDate(value string) time.Time {
	if value == "" {
		return time.Now()
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t
	}
	return time.Now()
}

package engine

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	apperrors "paper-trader/internal/errors"
	"paper-trader/internal/models"
)

const importHeader = "date,asset,asset_type,side,quantity,price\n"

func TestImportTrades(t *testing.T) {
	ctx := context.Background()

	t.Run("rebuilds holdings without moving cash", func(t *testing.T) {
		e, _ := newTestEngine(t, "10000", nil)

		csv := importHeader +
			"2024-01-02,AAPL,STOCK,BUY,10,100\n" +
			"2024-02-02,AAPL,STOCK,BUY,10,200\n" +
			"2024-03-02,AAPL,STOCK,SELL,5,250\n"
		res, err := e.ImportTrades(ctx, strings.NewReader(csv))
		if err != nil {
			t.Fatalf("ImportTrades() error = %v", err)
		}
		if res.Imported != 3 || res.Skipped != 0 {
			t.Errorf("result = %+v, want 3 imported 0 skipped", res)
		}

		if !e.CashBalance().Equal(d("10000")) {
			t.Errorf("cash = %s, want 10000 untouched", e.CashBalance())
		}
		holdings := e.Holdings()
		if len(holdings) != 1 {
			t.Fatalf("holdings = %d, want 1", len(holdings))
		}
		if !holdings[0].Quantity.Equal(d("15")) {
			t.Errorf("quantity = %s, want 15", holdings[0].Quantity)
		}
		// 10@100 + 10@200 averages to 150; sells leave it unchanged.
		if !holdings[0].AverageCost.Equal(d("150")) {
			t.Errorf("average cost = %s, want 150", holdings[0].AverageCost)
		}
		if len(e.TradeHistory()) != 3 {
			t.Errorf("trades = %d, want 3", len(e.TradeHistory()))
		}
	})

	t.Run("oversell row is skipped with an example", func(t *testing.T) {
		e, _ := newTestEngine(t, "10000", nil)

		csv := importHeader +
			"2024-01-02,AAPL,STOCK,BUY,5,100\n" +
			"2024-01-03,AAPL,STOCK,SELL,8,110\n" +
			"2024-01-04,AAPL,STOCK,SELL,5,120\n"
		res, err := e.ImportTrades(ctx, strings.NewReader(csv))
		if err != nil {
			t.Fatalf("ImportTrades() error = %v", err)
		}
		if res.Imported != 2 || res.Skipped != 1 || res.Errors != 1 {
			t.Errorf("result = %+v, want 2 imported 1 skipped", res)
		}
		if len(res.Examples) != 1 || !strings.Contains(res.Examples[0], "insufficient holdings for AAPL") {
			t.Errorf("examples = %v, want an insufficient-holdings message", res.Examples)
		}
		if got := e.Holdings(); len(got) != 0 {
			t.Errorf("holdings = %+v, want none after the final sell", got)
		}
	})

	t.Run("bad rows do not abort the rest", func(t *testing.T) {
		e, _ := newTestEngine(t, "10000", nil)

		csv := importHeader +
			"2024-01-02,AAPL,STOCK,HOLD,1,100\n" +
			"2024-01-03,MSFT,STOCK,BUY,2,300\n"
		res, err := e.ImportTrades(ctx, strings.NewReader(csv))
		if err != nil {
			t.Fatalf("ImportTrades() error = %v", err)
		}
		if res.Imported != 1 || res.Skipped != 1 {
			t.Errorf("result = %+v, want 1 imported 1 skipped", res)
		}
		if !strings.Contains(res.Examples[0], "line 2") {
			t.Errorf("example %q does not name the failing line", res.Examples[0])
		}
	})

	t.Run("all rows failing is an error", func(t *testing.T) {
		e, _ := newTestEngine(t, "10000", nil)

		csv := importHeader + "2024-01-02,AAPL,STOCK,SELL,5,100\n"
		res, err := e.ImportTrades(ctx, strings.NewReader(csv))
		if !apperrors.Is(err, apperrors.ErrInvalidOrder) {
			t.Fatalf("ImportTrades() error = %v, want validation error", err)
		}
		if res.Imported != 0 || res.Errors != 1 {
			t.Errorf("result = %+v, want 0 imported 1 error", res)
		}
	})

	t.Run("missing column fails without touching state", func(t *testing.T) {
		e, _ := newTestEngine(t, "10000", nil)

		_, err := e.ImportTrades(ctx, strings.NewReader("asset,side,quantity,price\nAAPL,BUY,1,100\n"))
		if !apperrors.Is(err, apperrors.ErrInvalidOrder) {
			t.Fatalf("ImportTrades() error = %v, want validation error", err)
		}
		if len(e.TradeHistory()) != 0 {
			t.Errorf("trades recorded from a rejected file")
		}
	})

	t.Run("import persists the replayed state", func(t *testing.T) {
		st := &recordingStore{}
		e := newStoredEngine(t, st, map[string]decimal.Decimal{"AAPL": d("100")})

		csv := importHeader + "2024-01-02,AAPL,STOCK,BUY,3,90\n"
		if _, err := e.ImportTrades(ctx, strings.NewReader(csv)); err != nil {
			t.Fatalf("ImportTrades() error = %v", err)
		}

		saved := st.snapshots()
		if len(saved) != 1 {
			t.Fatalf("saves = %d, want 1", len(saved))
		}
		if len(saved[0].Trades) != 1 || len(saved[0].Holdings) != 1 {
			t.Errorf("saved snapshot missing imported state: %+v", saved[0])
		}
	})

	t.Run("imported sell keeps quantities intact for later orders", func(t *testing.T) {
		e, _ := newTestEngine(t, "10000", map[string]decimal.Decimal{"AAPL": d("100")})

		csv := importHeader + "2024-01-02,AAPL,STOCK,BUY,10,80\n"
		if _, err := e.ImportTrades(ctx, strings.NewReader(csv)); err != nil {
			t.Fatal(err)
		}

		// Imported positions back protective sells like any other.
		if _, err := e.PlaceOrder(ctx, models.OrderTypeStopLoss, "AAPL", d("10"), d("70")); err != nil {
			t.Errorf("stop loss on imported position rejected: %v", err)
		}
	})
}

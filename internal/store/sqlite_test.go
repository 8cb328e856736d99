package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"paper-trader/internal/models"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testSnapshot() *Snapshot {
	now := time.Unix(1700000000, 0)
	return &Snapshot{
		Account: models.Account{
			ID:          models.DefaultAccountID,
			CashBalance: d("98765.43"),
			UpdatedAt:   now,
		},
		Holdings: []models.Holding{
			{Symbol: "AAPL", Quantity: d("10.5"), AverageCost: d("150.25"), AccountID: 1},
			{Symbol: "MSFT", Quantity: d("3"), AverageCost: d("310.10"), AccountID: 1},
		},
		Trades: []models.Trade{
			{Symbol: "AAPL", Quantity: d("10.5"), PricePer: d("150.25"), Side: models.SideBuy,
				OrderType: models.OrderTypeMarket, Timestamp: now, AccountID: 1},
			{Symbol: "MSFT", Quantity: d("3"), PricePer: d("310.10"), Side: models.SideBuy,
				OrderType: models.OrderTypeLimitBuy, Timestamp: now.Add(time.Minute), AccountID: 1},
		},
		OpenOrders: []models.OpenOrder{
			{ID: "ORD_1_1", Type: models.OrderTypeStopLoss, Symbol: "AAPL",
				Quantity: d("10.5"), TriggerPrice: d("140"), PlacedAt: now, AccountID: 1},
			{ID: "ORD_1_2", Type: models.OrderTypeTakeProfit, Symbol: "AAPL",
				Quantity: d("10.5"), TriggerPrice: d("170"), PlacedAt: now, AccountID: 1},
		},
		Watchlist: []string{"GOOG", "TSLA"},
	}
}

func TestLoadEmptyReturnsNil(t *testing.T) {
	s := newTestStore(t)

	snap, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if snap != nil {
		t.Errorf("Load() on empty store = %+v, want nil", snap)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	want := testSnapshot()

	if err := s.Save(ctx, want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got == nil {
		t.Fatalf("Load() = nil after Save")
	}

	if !got.Account.CashBalance.Equal(want.Account.CashBalance) {
		t.Errorf("cash = %s, want %s", got.Account.CashBalance, want.Account.CashBalance)
	}
	if got.Account.UpdatedAt.Unix() != want.Account.UpdatedAt.Unix() {
		t.Errorf("updated_at = %v, want %v", got.Account.UpdatedAt, want.Account.UpdatedAt)
	}

	if len(got.Holdings) != len(want.Holdings) {
		t.Fatalf("holdings = %d, want %d", len(got.Holdings), len(want.Holdings))
	}
	for i, h := range got.Holdings {
		if h.Symbol != want.Holdings[i].Symbol ||
			!h.Quantity.Equal(want.Holdings[i].Quantity) ||
			!h.AverageCost.Equal(want.Holdings[i].AverageCost) {
			t.Errorf("holding %d = %+v, want %+v", i, h, want.Holdings[i])
		}
	}

	if len(got.Trades) != len(want.Trades) {
		t.Fatalf("trades = %d, want %d", len(got.Trades), len(want.Trades))
	}
	for i, tr := range got.Trades {
		if tr.Symbol != want.Trades[i].Symbol ||
			!tr.PricePer.Equal(want.Trades[i].PricePer) ||
			tr.Side != want.Trades[i].Side ||
			tr.OrderType != want.Trades[i].OrderType {
			t.Errorf("trade %d = %+v, want %+v", i, tr, want.Trades[i])
		}
	}

	if len(got.OpenOrders) != 2 {
		t.Fatalf("open orders = %d, want 2", len(got.OpenOrders))
	}
	// Placement order survives the round trip.
	if got.OpenOrders[0].ID != "ORD_1_1" || got.OpenOrders[1].ID != "ORD_1_2" {
		t.Errorf("open order sequence = [%s %s], want [ORD_1_1 ORD_1_2]",
			got.OpenOrders[0].ID, got.OpenOrders[1].ID)
	}
	if !got.OpenOrders[0].TriggerPrice.Equal(d("140")) {
		t.Errorf("trigger = %s, want 140", got.OpenOrders[0].TriggerPrice)
	}

	if len(got.Watchlist) != 2 || got.Watchlist[0] != "GOOG" || got.Watchlist[1] != "TSLA" {
		t.Errorf("watchlist = %v, want [GOOG TSLA]", got.Watchlist)
	}
}

func TestSaveReplacesPreviousSnapshot(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.Save(ctx, testSnapshot()); err != nil {
		t.Fatal(err)
	}

	second := &Snapshot{
		Account: models.Account{ID: models.DefaultAccountID, CashBalance: d("500"), UpdatedAt: time.Now()},
		Holdings: []models.Holding{
			{Symbol: "TSLA", Quantity: d("1"), AverageCost: d("200"), AccountID: 1},
		},
	}
	if err := s.Save(ctx, second); err != nil {
		t.Fatal(err)
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Account.CashBalance.Equal(d("500")) {
		t.Errorf("cash = %s, want 500", got.Account.CashBalance)
	}
	if len(got.Holdings) != 1 || got.Holdings[0].Symbol != "TSLA" {
		t.Errorf("holdings = %+v, want only TSLA", got.Holdings)
	}
	if len(got.Trades) != 0 || len(got.OpenOrders) != 0 || len(got.Watchlist) != 0 {
		t.Errorf("stale rows survived the save: %+v", got)
	}
}

func TestReopenLoadsPersistedState(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "persist.db")

	s1, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := s1.Save(ctx, testSnapshot()); err != nil {
		t.Fatal(err)
	}
	if err := s1.Close(); err != nil {
		t.Fatal(err)
	}

	s2, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()

	got, err := s2.Load(ctx)
	if err != nil {
		t.Fatalf("Load() after reopen error = %v", err)
	}
	if got == nil {
		t.Fatalf("Load() after reopen = nil")
	}
	if !got.Account.CashBalance.Equal(d("98765.43")) {
		t.Errorf("cash = %s, want 98765.43", got.Account.CashBalance)
	}
	if len(got.OpenOrders) != 2 {
		t.Errorf("open orders = %d, want 2", len(got.OpenOrders))
	}
}

func TestSaveRepeatedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	snap := testSnapshot()

	for i := 0; i < 3; i++ {
		if err := s.Save(ctx, snap); err != nil {
			t.Fatalf("Save() #%d error = %v", i+1, err)
		}
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Trades) != 2 {
		t.Errorf("trades = %d after repeated saves, want 2", len(got.Trades))
	}
	if len(got.Holdings) != 2 {
		t.Errorf("holdings = %d after repeated saves, want 2", len(got.Holdings))
	}
}

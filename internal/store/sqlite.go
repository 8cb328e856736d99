// Package store provides data persistence implementations.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"paper-trader/internal/models"
)

// SQLiteStore implements Store using SQLite. Decimal values are stored
// as TEXT so no precision is lost on the round trip.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-based store. Use ":memory:" for
// an ephemeral database in tests.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS account (
		id INTEGER PRIMARY KEY,
		cash_balance TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS holdings (
		symbol TEXT NOT NULL,
		quantity TEXT NOT NULL,
		average_cost TEXT NOT NULL,
		account_id INTEGER NOT NULL,
		PRIMARY KEY (symbol, account_id)
	);

	CREATE TABLE IF NOT EXISTS trades (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		quantity TEXT NOT NULL,
		price_per TEXT NOT NULL,
		side TEXT NOT NULL,
		order_type TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		account_id INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS open_orders (
		id TEXT PRIMARY KEY,
		order_type TEXT NOT NULL,
		symbol TEXT NOT NULL,
		quantity TEXT NOT NULL,
		trigger_price TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		seq INTEGER NOT NULL,
		account_id INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS watchlist (
		symbol TEXT PRIMARY KEY
	);

	CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades(symbol);
	CREATE INDEX IF NOT EXISTS idx_trades_timestamp ON trades(timestamp);
	CREATE INDEX IF NOT EXISTS idx_open_orders_symbol ON open_orders(symbol);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Load reads the full persisted snapshot. Returns nil when no account
// row exists yet.
func (s *SQLiteStore) Load(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{}

	var cash string
	var updatedAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, cash_balance, updated_at FROM account ORDER BY id LIMIT 1`,
	).Scan(&snap.Account.ID, &cash, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	if snap.Account.CashBalance, err = decimal.NewFromString(cash); err != nil {
		return nil, fmt.Errorf("corrupt cash balance %q: %w", cash, err)
	}
	snap.Account.UpdatedAt = time.Unix(updatedAt, 0)

	if snap.Holdings, err = s.loadHoldings(ctx, snap.Account.ID); err != nil {
		return nil, err
	}
	if snap.Trades, err = s.loadTrades(ctx, snap.Account.ID); err != nil {
		return nil, err
	}
	if snap.OpenOrders, err = s.loadOpenOrders(ctx, snap.Account.ID); err != nil {
		return nil, err
	}
	if snap.Watchlist, err = s.loadWatchlist(ctx); err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *SQLiteStore) loadHoldings(ctx context.Context, accountID int64) ([]models.Holding, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT symbol, quantity, average_cost, account_id FROM holdings WHERE account_id = ? ORDER BY symbol`,
		accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()

	var holdings []models.Holding
	for rows.Next() {
		var h models.Holding
		var qty, avg string
		if err := rows.Scan(&h.Symbol, &qty, &avg, &h.AccountID); err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		if h.Quantity, err = decimal.NewFromString(qty); err != nil {
			return nil, fmt.Errorf("corrupt holding quantity %q: %w", qty, err)
		}
		if h.AverageCost, err = decimal.NewFromString(avg); err != nil {
			return nil, fmt.Errorf("corrupt average cost %q: %w", avg, err)
		}
		holdings = append(holdings, h)
	}
	return holdings, rows.Err()
}

func (s *SQLiteStore) loadTrades(ctx context.Context, accountID int64) ([]models.Trade, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT symbol, quantity, price_per, side, order_type, timestamp, account_id
		 FROM trades WHERE account_id = ? ORDER BY id`,
		accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var trades []models.Trade
	for rows.Next() {
		var t models.Trade
		var qty, price, side, orderType string
		var ts int64
		if err := rows.Scan(&t.Symbol, &qty, &price, &side, &orderType, &ts, &t.AccountID); err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		if t.Quantity, err = decimal.NewFromString(qty); err != nil {
			return nil, fmt.Errorf("corrupt trade quantity %q: %w", qty, err)
		}
		if t.PricePer, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("corrupt trade price %q: %w", price, err)
		}
		t.Side = models.Side(side)
		t.OrderType = models.OrderType(orderType)
		t.Timestamp = time.Unix(ts, 0)
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

func (s *SQLiteStore) loadOpenOrders(ctx context.Context, accountID int64) ([]models.OpenOrder, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, order_type, symbol, quantity, trigger_price, timestamp, account_id
		 FROM open_orders WHERE account_id = ? ORDER BY seq`,
		accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query open orders: %w", err)
	}
	defer rows.Close()

	var orders []models.OpenOrder
	for rows.Next() {
		var o models.OpenOrder
		var orderType, qty, trigger string
		var ts int64
		if err := rows.Scan(&o.ID, &orderType, &o.Symbol, &qty, &trigger, &ts, &o.AccountID); err != nil {
			return nil, fmt.Errorf("failed to scan open order: %w", err)
		}
		o.Type = models.OrderType(orderType)
		if o.Quantity, err = decimal.NewFromString(qty); err != nil {
			return nil, fmt.Errorf("corrupt order quantity %q: %w", qty, err)
		}
		if o.TriggerPrice, err = decimal.NewFromString(trigger); err != nil {
			return nil, fmt.Errorf("corrupt trigger price %q: %w", trigger, err)
		}
		o.PlacedAt = time.Unix(ts, 0)
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (s *SQLiteStore) loadWatchlist(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT symbol FROM watchlist ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("failed to query watchlist: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, fmt.Errorf("failed to scan watchlist symbol: %w", err)
		}
		symbols = append(symbols, sym)
	}
	return symbols, rows.Err()
}

// Save writes the whole snapshot in a single transaction. The previous
// state is kept intact if any statement fails.
func (s *SQLiteStore) Save(ctx context.Context, snap *Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO account (id, cash_balance, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET cash_balance = excluded.cash_balance, updated_at = excluded.updated_at`,
		snap.Account.ID, snap.Account.CashBalance.String(), snap.Account.UpdatedAt.Unix()); err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}

	for table, clause := range map[string]string{
		"holdings":    "account_id = ?",
		"trades":      "account_id = ?",
		"open_orders": "account_id = ?",
	} {
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf("DELETE FROM %s WHERE %s", table, clause), snap.Account.ID); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM watchlist`); err != nil {
		return fmt.Errorf("failed to clear watchlist: %w", err)
	}

	for _, h := range snap.Holdings {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO holdings (symbol, quantity, average_cost, account_id) VALUES (?, ?, ?, ?)`,
			h.Symbol, h.Quantity.String(), h.AverageCost.String(), snap.Account.ID); err != nil {
			return fmt.Errorf("failed to save holding %s: %w", h.Symbol, err)
		}
	}

	for _, t := range snap.Trades {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO trades (symbol, quantity, price_per, side, order_type, timestamp, account_id)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			t.Symbol, t.Quantity.String(), t.PricePer.String(), string(t.Side),
			string(t.OrderType), t.Timestamp.Unix(), snap.Account.ID); err != nil {
			return fmt.Errorf("failed to save trade: %w", err)
		}
	}

	for seq, o := range snap.OpenOrders {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO open_orders (id, order_type, symbol, quantity, trigger_price, timestamp, seq, account_id)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			o.ID, string(o.Type), o.Symbol, o.Quantity.String(), o.TriggerPrice.String(),
			o.PlacedAt.Unix(), seq, snap.Account.ID); err != nil {
			return fmt.Errorf("failed to save open order %s: %w", o.ID, err)
		}
	}

	for _, sym := range snap.Watchlist {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO watchlist (symbol) VALUES (?)`, sym); err != nil {
			return fmt.Errorf("failed to save watchlist symbol %s: %w", sym, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

var _ Store = (*SQLiteStore)(nil)

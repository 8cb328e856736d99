// Package engine implements order execution over the shared ledger and
// order book state.
package engine

import (
	"context"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	apperrors "paper-trader/internal/errors"
	"paper-trader/internal/ledger"
	"paper-trader/internal/logging"
	"paper-trader/internal/models"
	"paper-trader/internal/orderbook"
	"paper-trader/internal/quote"
	"paper-trader/internal/store"
	"paper-trader/pkg/utils"
)

// Engine is the single mutual-exclusion boundary around the ledger and
// the order book. Both the command handlers and the monitor loop enter
// through it; one mutator is active at a time, and no quote fetch ever
// happens while the lock is held.
type Engine struct {
	mu        sync.Mutex
	ledger    *ledger.Ledger
	book      *orderbook.Book
	watchlist map[string]struct{}

	quotes    quote.Source
	store     store.Store
	logger    zerolog.Logger
	saveRetry utils.RetryConfig

	// saveMu serializes Save calls; snapVersion and savedVersion
	// order them. A snapshot is stamped under e.mu, and persist drops
	// any snapshot older than one already written, so a slow save can
	// never overwrite a newer snapshot with stale state.
	saveMu       sync.Mutex
	snapVersion  uint64
	savedVersion uint64
}

// Config holds the engine's collaborators.
type Config struct {
	Quotes         quote.Source
	Store          store.Store
	Logger         zerolog.Logger
	InitialBalance decimal.Decimal
}

// New creates an engine, restoring persisted state when present and
// seeding a fresh account with the configured initial balance otherwise.
func New(ctx context.Context, cfg Config) (*Engine, error) {
	e := &Engine{
		quotes:    cfg.Quotes,
		store:     cfg.Store,
		logger:    cfg.Logger,
		saveRetry: utils.DefaultRetryConfig(),
		watchlist: make(map[string]struct{}),
	}

	var snap *store.Snapshot
	if cfg.Store != nil {
		loaded, err := cfg.Store.Load(ctx)
		if err != nil {
			return nil, apperrors.NewPersistenceError("load", err)
		}
		snap = loaded
	}

	if snap != nil {
		e.ledger = ledger.Restore(snap.Account, snap.Holdings, snap.Trades)
		e.book = orderbook.Restore(snap.OpenOrders)
		for _, sym := range snap.Watchlist {
			e.watchlist[sym] = struct{}{}
		}
		e.logger.Info().
			Str("cash", snap.Account.CashBalance.String()).
			Int("holdings", len(snap.Holdings)).
			Int("open_orders", len(snap.OpenOrders)).
			Msg("Restored persisted state")
	} else {
		e.ledger = ledger.New(cfg.InitialBalance)
		e.book = orderbook.New()
		e.logger.Info().
			Str("cash", cfg.InitialBalance.String()).
			Msg("Seeded fresh account")
	}

	return e, nil
}

// ExecuteMarket executes a market order at the current quoted price.
// The quote is fetched before entering the critical section; the
// ledger mutation and order-book state form one atomic unit. A
// persistence failure after the fill surfaces as ErrPersistence while
// the returned trade stands.
func (e *Engine) ExecuteMarket(ctx context.Context, symbol string, side models.Side, quantity decimal.Decimal) (models.Trade, error) {
	if !quantity.IsPositive() {
		return models.Trade{}, apperrors.NewValidationError("quantity", quantity.String(), "must be positive")
	}
	if side != models.SideBuy && side != models.SideSell {
		return models.Trade{}, apperrors.NewValidationError("side", string(side), "must be BUY or SELL")
	}

	price, err := e.quotes.GetPrice(ctx, symbol)
	if err != nil {
		return models.Trade{}, err
	}

	e.mu.Lock()
	var trade models.Trade
	if side == models.SideBuy {
		trade, err = e.ledger.ApplyBuy(symbol, quantity, price, models.OrderTypeMarket)
	} else {
		trade, err = e.ledger.ApplySell(symbol, quantity, price, models.OrderTypeMarket)
	}
	if err != nil {
		e.mu.Unlock()
		return models.Trade{}, err
	}
	snap, version := e.snapshotLocked()
	e.mu.Unlock()

	logging.LogTrade(e.logger, symbol, string(side), quantity, price)

	return trade, e.persist(ctx, snap, version)
}

// PlaceOrder validates and stores a resting order, returning its id.
// Protective sell orders (limit sell, stop loss, take profit) require a
// sufficient holding at placement time, mirroring the oversell guard.
func (e *Engine) PlaceOrder(ctx context.Context, orderType models.OrderType, symbol string, quantity, triggerPrice decimal.Decimal) (string, error) {
	e.mu.Lock()
	if orderType.IsSell() && quantity.GreaterThan(e.ledger.HeldQuantity(symbol)) {
		e.mu.Unlock()
		return "", apperrors.NewOrderError("", symbol, "place", apperrors.ErrInsufficientPosition)
	}
	id, err := e.book.Place(models.OpenOrder{
		Type:         orderType,
		Symbol:       symbol,
		Quantity:     quantity,
		TriggerPrice: triggerPrice,
	})
	if err != nil {
		e.mu.Unlock()
		return "", err
	}
	snap, version := e.snapshotLocked()
	e.mu.Unlock()

	logging.LogOrder(e.logger, id, symbol, string(orderType), "placed")

	return id, e.persist(ctx, snap, version)
}

// CancelOrder removes a resting order. Fails with ErrOrderNotFound.
func (e *Engine) CancelOrder(ctx context.Context, orderID string) (models.OpenOrder, error) {
	e.mu.Lock()
	order, err := e.book.Cancel(orderID)
	if err != nil {
		e.mu.Unlock()
		return models.OpenOrder{}, err
	}
	snap, version := e.snapshotLocked()
	e.mu.Unlock()

	logging.LogOrder(e.logger, orderID, order.Symbol, string(order.Type), "cancelled")

	return order, e.persist(ctx, snap, version)
}

// Evaluate checks every resting order on a symbol against the current
// price, in placement order, filling those whose trigger predicate
// holds. Fills execute at the current price, not the trigger price.
// An order that can no longer fill because an earlier fill consumed the
// position is left resting for the next tick. The lock is taken per
// order fill, never across the whole pass.
func (e *Engine) Evaluate(ctx context.Context, symbol string, price decimal.Decimal) ([]models.Trade, error) {
	if !price.IsPositive() {
		return nil, apperrors.NewValidationError("price", price.String(), "must be positive")
	}

	e.mu.Lock()
	resting := e.book.OrdersForSymbol(symbol)
	e.mu.Unlock()

	var fills []models.Trade
	for _, candidate := range resting {
		if !candidate.Type.ShouldTrigger(price, candidate.TriggerPrice) {
			continue
		}

		e.mu.Lock()
		order, ok := e.book.Get(candidate.ID)
		if !ok {
			// Cancelled or filled since the snapshot.
			e.mu.Unlock()
			continue
		}

		var trade models.Trade
		var err error
		if order.Type.Side() == models.SideBuy {
			trade, err = e.ledger.ApplyBuy(order.Symbol, order.Quantity, price, order.Type)
		} else {
			trade, err = e.ledger.ApplySell(order.Symbol, order.Quantity, price, order.Type)
		}
		if err != nil {
			e.mu.Unlock()
			// Insufficient position or funds: leave the order resting
			// and retry on the next tick.
			e.logger.Warn().
				Str("order_id", order.ID).
				Str("symbol", order.Symbol).
				Str("type", string(order.Type)).
				Err(err).
				Msg("Triggered order could not fill; left resting")
			continue
		}
		e.book.Remove(order.ID)
		snap, version := e.snapshotLocked()
		e.mu.Unlock()

		fills = append(fills, trade)
		e.logger.Info().
			Str("event", "fill").
			Str("order_id", order.ID).
			Str("symbol", order.Symbol).
			Str("type", string(order.Type)).
			Str("quantity", order.Quantity.String()).
			Str("price", price.String()).
			Msg("Resting order filled")

		if err := e.persist(ctx, snap, version); err != nil {
			return fills, err
		}
	}

	return fills, nil
}

// Deposit adds cash to the account.
func (e *Engine) Deposit(ctx context.Context, amount decimal.Decimal) error {
	e.mu.Lock()
	if err := e.ledger.Deposit(amount); err != nil {
		e.mu.Unlock()
		return err
	}
	snap, version := e.snapshotLocked()
	e.mu.Unlock()
	return e.persist(ctx, snap, version)
}

// Withdraw removes cash from the account.
func (e *Engine) Withdraw(ctx context.Context, amount decimal.Decimal) error {
	e.mu.Lock()
	if err := e.ledger.Withdraw(amount); err != nil {
		e.mu.Unlock()
		return err
	}
	snap, version := e.snapshotLocked()
	e.mu.Unlock()
	return e.persist(ctx, snap, version)
}

// CashBalance returns the current cash balance.
func (e *Engine) CashBalance() decimal.Decimal {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.CashBalance()
}

// Holdings returns the current holdings sorted by symbol.
func (e *Engine) Holdings() []models.Holding {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.Holdings()
}

// TradeHistory returns the trade log in execution order.
func (e *Engine) TradeHistory() []models.Trade {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.Trades()
}

// OpenOrders returns the resting orders in placement order.
func (e *Engine) OpenOrders() []models.OpenOrder {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.book.Orders()
}

// RestingSymbols returns the distinct symbols with resting orders.
func (e *Engine) RestingSymbols() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.book.Symbols()
}

// SellExposure returns the total protective sell quantity resting on a
// symbol.
func (e *Engine) SellExposure(symbol string) decimal.Decimal {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.book.SellExposure(symbol)
}

// UnrealizedPnLAt computes unrealized P&L against a caller-supplied
// price mapping. A pure query: repeated calls never change state.
func (e *Engine) UnrealizedPnLAt(prices map[string]decimal.Decimal) ([]ledger.PnL, decimal.Decimal) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.UnrealizedPnL(prices)
}

// UnrealizedPnL fetches fresh quotes for every held symbol and computes
// unrealized P&L. Quotes are fetched outside the critical section;
// symbols whose quote fails are reported through the returned error
// list but do not abort the others.
func (e *Engine) UnrealizedPnL(ctx context.Context) ([]ledger.PnL, decimal.Decimal, error) {
	e.mu.Lock()
	holdings := e.ledger.Holdings()
	e.mu.Unlock()

	prices := make(map[string]decimal.Decimal, len(holdings))
	var firstErr error
	for _, h := range holdings {
		price, err := e.quotes.GetPrice(ctx, h.Symbol)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			e.logger.Warn().Str("symbol", h.Symbol).Err(err).Msg("Quote unavailable for P&L")
			continue
		}
		prices[h.Symbol] = price
	}

	report, total := e.UnrealizedPnLAt(prices)
	return report, total, firstErr
}

// Watch adds a symbol to the watchlist.
func (e *Engine) Watch(ctx context.Context, symbol string) error {
	e.mu.Lock()
	e.watchlist[symbol] = struct{}{}
	snap, version := e.snapshotLocked()
	e.mu.Unlock()
	return e.persist(ctx, snap, version)
}

// Unwatch removes a symbol from the watchlist.
func (e *Engine) Unwatch(ctx context.Context, symbol string) error {
	e.mu.Lock()
	delete(e.watchlist, symbol)
	snap, version := e.snapshotLocked()
	e.mu.Unlock()
	return e.persist(ctx, snap, version)
}

// Watchlist returns the watched symbols sorted.
func (e *Engine) Watchlist() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	symbols := make([]string, 0, len(e.watchlist))
	for s := range e.watchlist {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	return symbols
}

// Reset discards all state and seeds a fresh account.
func (e *Engine) Reset(ctx context.Context, initialBalance decimal.Decimal) error {
	e.mu.Lock()
	e.ledger = ledger.New(initialBalance)
	e.book = orderbook.New()
	e.watchlist = make(map[string]struct{})
	snap, version := e.snapshotLocked()
	e.mu.Unlock()

	e.logger.Info().Str("cash", initialBalance.String()).Msg("Account reset")
	return e.persist(ctx, snap, version)
}

// Checkpoint persists the current state. Used on shutdown after the
// monitor has stopped.
func (e *Engine) Checkpoint(ctx context.Context) error {
	e.mu.Lock()
	snap, version := e.snapshotLocked()
	e.mu.Unlock()
	return e.persist(ctx, snap, version)
}

// snapshotLocked builds a consistent snapshot stamped with a
// monotonic version. Callers must hold e.mu.
func (e *Engine) snapshotLocked() (*store.Snapshot, uint64) {
	symbols := make([]string, 0, len(e.watchlist))
	for s := range e.watchlist {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	e.snapVersion++
	return &store.Snapshot{
		Account:    e.ledger.Account(),
		Holdings:   e.ledger.Holdings(),
		Trades:     e.ledger.Trades(),
		OpenOrders: e.book.Orders(),
		Watchlist:  symbols,
	}, e.snapVersion
}

// persist writes a snapshot with retry. Saves are serialized under
// saveMu, and a snapshot whose version a later save has already
// superseded is skipped: without the check, a save slowed by retries
// could land after a newer one and silently roll the stored state
// back. The in-memory mutation has already happened and is never
// rolled back; on exhausted retries the durability warning surfaces
// as ErrPersistence and the next successful save covers the loss,
// since snapshots are complete.
func (e *Engine) persist(ctx context.Context, snap *store.Snapshot, version uint64) error {
	if e.store == nil {
		return nil
	}

	e.saveMu.Lock()
	defer e.saveMu.Unlock()
	if version <= e.savedVersion {
		return nil
	}

	err := utils.Retry(ctx, e.saveRetry, func() error {
		return e.store.Save(ctx, snap)
	})
	if err != nil {
		e.logger.Error().Err(err).Msg("State save failed; in-memory state retained")
		return apperrors.NewPersistenceError("save", err)
	}
	e.savedVersion = version
	return nil
}

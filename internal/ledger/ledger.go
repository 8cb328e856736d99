// Package ledger implements the cash, holdings and trade accounting for
// the simulated account.
package ledger

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	apperrors "paper-trader/internal/errors"
	"paper-trader/internal/models"
)

// Ledger holds the account cash balance, the open holdings and the
// append-only trade log. It is not safe for concurrent use on its own;
// the engine serializes access to it.
type Ledger struct {
	account  models.Account
	holdings map[string]models.Holding
	trades   []models.Trade
}

// New creates a ledger with the given starting cash balance.
func New(initialCash decimal.Decimal) *Ledger {
	return &Ledger{
		account: models.Account{
			ID:          models.DefaultAccountID,
			CashBalance: initialCash,
			UpdatedAt:   time.Now(),
		},
		holdings: make(map[string]models.Holding),
	}
}

// Restore rebuilds a ledger from persisted state.
func Restore(account models.Account, holdings []models.Holding, trades []models.Trade) *Ledger {
	l := &Ledger{
		account:  account,
		holdings: make(map[string]models.Holding, len(holdings)),
		trades:   append([]models.Trade(nil), trades...),
	}
	for _, h := range holdings {
		if h.Quantity.IsPositive() {
			l.holdings[h.Symbol] = h
		}
	}
	return l
}

// WeightedAverageCost returns the new average cost after buying addQty
// shares at addPrice on top of an existing position.
func WeightedAverageCost(heldQty, heldAvg, addQty, addPrice decimal.Decimal) decimal.Decimal {
	totalQty := heldQty.Add(addQty)
	if totalQty.IsZero() {
		return decimal.Zero
	}
	totalCost := heldQty.Mul(heldAvg).Add(addQty.Mul(addPrice))
	return totalCost.Div(totalQty)
}

func validateFill(symbol string, quantity, price decimal.Decimal) error {
	if symbol == "" {
		return apperrors.NewValidationError("symbol", symbol, "must not be empty")
	}
	if !quantity.IsPositive() {
		return apperrors.NewValidationError("quantity", quantity.String(), "must be positive")
	}
	if !price.IsPositive() {
		return apperrors.NewValidationError("price", price.String(), "must be positive")
	}
	return nil
}

// ApplyBuy debits cash, folds the lot into the holding at its weighted
// average cost and appends a BUY trade. Fails with ErrInsufficientFunds
// when the purchase exceeds the cash balance; on any failure no state
// changes.
func (l *Ledger) ApplyBuy(symbol string, quantity, price decimal.Decimal, orderType models.OrderType) (models.Trade, error) {
	if err := validateFill(symbol, quantity, price); err != nil {
		return models.Trade{}, err
	}

	cost := price.Mul(quantity)
	if cost.GreaterThan(l.account.CashBalance) {
		return models.Trade{}, apperrors.ErrInsufficientFunds
	}

	holding, ok := l.holdings[symbol]
	if !ok {
		holding = models.Holding{Symbol: symbol, AccountID: l.account.ID}
	}
	holding.AverageCost = WeightedAverageCost(holding.Quantity, holding.AverageCost, quantity, price)
	holding.Quantity = holding.Quantity.Add(quantity)

	trade := models.Trade{
		Symbol:    symbol,
		Quantity:  quantity,
		PricePer:  price,
		Side:      models.SideBuy,
		OrderType: orderType,
		Timestamp: time.Now(),
		AccountID: l.account.ID,
	}

	l.account.CashBalance = l.account.CashBalance.Sub(cost)
	l.account.UpdatedAt = trade.Timestamp
	l.holdings[symbol] = holding
	l.trades = append(l.trades, trade)

	return trade, nil
}

// ApplySell credits cash, reduces the holding and appends a SELL trade.
// The average cost is left unchanged; realized P&L stays derivable from
// the trade log. A sell exceeding the held quantity fails with
// ErrInsufficientPosition and changes nothing. The holding is removed
// when its quantity reaches exactly zero.
func (l *Ledger) ApplySell(symbol string, quantity, price decimal.Decimal, orderType models.OrderType) (models.Trade, error) {
	if err := validateFill(symbol, quantity, price); err != nil {
		return models.Trade{}, err
	}

	holding, ok := l.holdings[symbol]
	if !ok || quantity.GreaterThan(holding.Quantity) {
		return models.Trade{}, apperrors.ErrInsufficientPosition
	}

	trade := models.Trade{
		Symbol:    symbol,
		Quantity:  quantity,
		PricePer:  price,
		Side:      models.SideSell,
		OrderType: orderType,
		Timestamp: time.Now(),
		AccountID: l.account.ID,
	}

	l.account.CashBalance = l.account.CashBalance.Add(price.Mul(quantity))
	l.account.UpdatedAt = trade.Timestamp

	holding.Quantity = holding.Quantity.Sub(quantity)
	if holding.Quantity.IsZero() {
		delete(l.holdings, symbol)
	} else {
		l.holdings[symbol] = holding
	}
	l.trades = append(l.trades, trade)

	return trade, nil
}

// RecordBuy folds an externally executed buy into the holding at its
// weighted average cost and appends the trade, without moving cash.
// Used when replaying imported trade history: the cash those fills
// moved lived in another account, so only positions and the log are
// rebuilt.
func (l *Ledger) RecordBuy(symbol string, quantity, price decimal.Decimal, timestamp time.Time) (models.Trade, error) {
	if err := validateFill(symbol, quantity, price); err != nil {
		return models.Trade{}, err
	}

	holding, ok := l.holdings[symbol]
	if !ok {
		holding = models.Holding{Symbol: symbol, AccountID: l.account.ID}
	}
	holding.AverageCost = WeightedAverageCost(holding.Quantity, holding.AverageCost, quantity, price)
	holding.Quantity = holding.Quantity.Add(quantity)

	trade := models.Trade{
		Symbol:    symbol,
		Quantity:  quantity,
		PricePer:  price,
		Side:      models.SideBuy,
		OrderType: models.OrderTypeMarket,
		Timestamp: timestamp,
		AccountID: l.account.ID,
	}

	l.account.UpdatedAt = time.Now()
	l.holdings[symbol] = holding
	l.trades = append(l.trades, trade)

	return trade, nil
}

// RecordSell reduces the holding and appends the trade, without moving
// cash. Fails with ErrInsufficientPosition when the quantity exceeds
// the holding; the holding is removed at exactly zero.
func (l *Ledger) RecordSell(symbol string, quantity, price decimal.Decimal, timestamp time.Time) (models.Trade, error) {
	if err := validateFill(symbol, quantity, price); err != nil {
		return models.Trade{}, err
	}

	holding, ok := l.holdings[symbol]
	if !ok || quantity.GreaterThan(holding.Quantity) {
		return models.Trade{}, apperrors.ErrInsufficientPosition
	}

	trade := models.Trade{
		Symbol:    symbol,
		Quantity:  quantity,
		PricePer:  price,
		Side:      models.SideSell,
		OrderType: models.OrderTypeMarket,
		Timestamp: timestamp,
		AccountID: l.account.ID,
	}

	l.account.UpdatedAt = time.Now()
	holding.Quantity = holding.Quantity.Sub(quantity)
	if holding.Quantity.IsZero() {
		delete(l.holdings, symbol)
	} else {
		l.holdings[symbol] = holding
	}
	l.trades = append(l.trades, trade)

	return trade, nil
}

// Deposit adds cash to the account.
func (l *Ledger) Deposit(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return apperrors.NewValidationError("amount", amount.String(), "must be positive")
	}
	l.account.CashBalance = l.account.CashBalance.Add(amount)
	l.account.UpdatedAt = time.Now()
	return nil
}

// Withdraw removes cash from the account. Fails with
// ErrInsufficientFunds when the amount exceeds the balance.
func (l *Ledger) Withdraw(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return apperrors.NewValidationError("amount", amount.String(), "must be positive")
	}
	if amount.GreaterThan(l.account.CashBalance) {
		return apperrors.ErrInsufficientFunds
	}
	l.account.CashBalance = l.account.CashBalance.Sub(amount)
	l.account.UpdatedAt = time.Now()
	return nil
}

// CashBalance returns the current cash balance.
func (l *Ledger) CashBalance() decimal.Decimal {
	return l.account.CashBalance
}

// Account returns a copy of the account record.
func (l *Ledger) Account() models.Account {
	return l.account
}

// Holding returns the holding for a symbol, if any.
func (l *Ledger) Holding(symbol string) (models.Holding, bool) {
	h, ok := l.holdings[symbol]
	return h, ok
}

// HeldQuantity returns the held quantity for a symbol, zero when flat.
func (l *Ledger) HeldQuantity(symbol string) decimal.Decimal {
	return l.holdings[symbol].Quantity
}

// Holdings returns all holdings sorted by symbol.
func (l *Ledger) Holdings() []models.Holding {
	holdings := make([]models.Holding, 0, len(l.holdings))
	for _, h := range l.holdings {
		holdings = append(holdings, h)
	}
	sort.Slice(holdings, func(i, j int) bool {
		return holdings[i].Symbol < holdings[j].Symbol
	})
	return holdings
}

// Trades returns a copy of the trade log in execution order.
func (l *Ledger) Trades() []models.Trade {
	return append([]models.Trade(nil), l.trades...)
}

// PnL is the unrealized profit and loss of one holding at a price.
type PnL struct {
	Symbol       string
	Quantity     decimal.Decimal
	AverageCost  decimal.Decimal
	CurrentPrice decimal.Decimal
	MarketValue  decimal.Decimal
	Unrealized   decimal.Decimal
}

// UnrealizedPnL computes per-symbol and aggregate unrealized P&L for
// the given price mapping. It is a pure query and mutates nothing;
// holdings without a price in the mapping are skipped.
func (l *Ledger) UnrealizedPnL(prices map[string]decimal.Decimal) ([]PnL, decimal.Decimal) {
	report := make([]PnL, 0, len(l.holdings))
	total := decimal.Zero
	for _, h := range l.Holdings() {
		price, ok := prices[h.Symbol]
		if !ok {
			continue
		}
		unrealized := h.UnrealizedPnL(price)
		report = append(report, PnL{
			Symbol:       h.Symbol,
			Quantity:     h.Quantity,
			AverageCost:  h.AverageCost,
			CurrentPrice: price,
			MarketValue:  h.MarketValue(price),
			Unrealized:   unrealized,
		})
		total = total.Add(unrealized)
	}
	return report, total
}

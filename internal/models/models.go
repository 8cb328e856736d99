// Package models provides domain models for the paper trading engine.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultAccountID identifies the single simulated account.
const DefaultAccountID = 1

// Side represents the side of a fill.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// OrderType represents the type of a resting order.
type OrderType string

const (
	OrderTypeLimitBuy   OrderType = "LIMIT_BUY"
	OrderTypeLimitSell  OrderType = "LIMIT_SELL"
	OrderTypeStopLoss   OrderType = "STOP_LOSS"
	OrderTypeTakeProfit OrderType = "TAKE_PROFIT"
	// OrderTypeMarket tags trades that came from an immediate market order
	// rather than a triggered resting order.
	OrderTypeMarket OrderType = "MARKET"
)

// Side returns the side a resting order fills on.
func (t OrderType) Side() Side {
	if t == OrderTypeLimitBuy {
		return SideBuy
	}
	return SideSell
}

// IsSell reports whether the order reduces a position when it fills.
func (t OrderType) IsSell() bool {
	return t.Side() == SideSell
}

// ShouldTrigger reports whether a resting order of this type fires at
// the given market price.
//
//	LIMIT_BUY    fires when price <= trigger
//	LIMIT_SELL   fires when price >= trigger
//	STOP_LOSS    fires when price <= trigger
//	TAKE_PROFIT  fires when price >= trigger
func (t OrderType) ShouldTrigger(current, trigger decimal.Decimal) bool {
	switch t {
	case OrderTypeLimitBuy, OrderTypeStopLoss:
		return current.LessThanOrEqual(trigger)
	case OrderTypeLimitSell, OrderTypeTakeProfit:
		return current.GreaterThanOrEqual(trigger)
	default:
		return false
	}
}

// Account holds the simulated cash balance.
type Account struct {
	ID          int64
	CashBalance decimal.Decimal
	UpdatedAt   time.Time
}

// Holding represents an open position in a single symbol.
// Quantity is always positive; a holding at zero quantity is removed.
type Holding struct {
	Symbol      string
	Quantity    decimal.Decimal
	AverageCost decimal.Decimal
	AccountID   int64
}

// MarketValue returns the holding's value at the given price.
func (h Holding) MarketValue(price decimal.Decimal) decimal.Decimal {
	return price.Mul(h.Quantity)
}

// UnrealizedPnL returns (price - average cost) * quantity.
func (h Holding) UnrealizedPnL(price decimal.Decimal) decimal.Decimal {
	return price.Sub(h.AverageCost).Mul(h.Quantity)
}

// Trade is an immutable record of a single fill. Trades are append-only;
// the trade log is the source of truth for P&L reconstruction.
type Trade struct {
	Symbol    string
	Quantity  decimal.Decimal
	PricePer  decimal.Decimal
	Side      Side
	OrderType OrderType
	Timestamp time.Time
	AccountID int64
}

// CashFlow returns the signed cash movement of the trade: negative for
// buys, positive for sells.
func (t Trade) CashFlow() decimal.Decimal {
	value := t.PricePer.Mul(t.Quantity)
	if t.Side == SideBuy {
		return value.Neg()
	}
	return value
}

// OpenOrder is a resting order waiting for its trigger condition.
type OpenOrder struct {
	ID           string
	Type         OrderType
	Symbol       string
	Quantity     decimal.Decimal
	TriggerPrice decimal.Decimal
	PlacedAt     time.Time
	AccountID    int64
}

// Quote represents a price observation from a quote source.
type Quote struct {
	Symbol    string
	Price     decimal.Decimal
	Timestamp time.Time
}

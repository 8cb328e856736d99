// Package orderbook stores resting orders and their matching predicates.
package orderbook

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	apperrors "paper-trader/internal/errors"
	"paper-trader/internal/models"
)

// Book holds resting limit, stop-loss and take-profit orders. It only
// stores and matches; execution belongs to the engine, which also
// serializes access.
type Book struct {
	orders  map[string]models.OpenOrder
	seq     []string // order ids in placement order
	counter int
}

// New creates an empty order book.
func New() *Book {
	return &Book{orders: make(map[string]models.OpenOrder)}
}

// Restore rebuilds a book from persisted orders, preserving the given
// placement order. The id counter resumes from the highest persisted
// suffix so new ids never collide with resting ones, even after
// cancellations left gaps.
func Restore(orders []models.OpenOrder) *Book {
	b := New()
	for _, o := range orders {
		b.orders[o.ID] = o
		b.seq = append(b.seq, o.ID)
		if n := idSuffix(o.ID); n > b.counter {
			b.counter = n
		}
	}
	return b
}

// idSuffix extracts the numeric counter from an "ORD_<ts>_<n>" id.
// Unparseable ids count as zero.
func idSuffix(id string) int {
	i := strings.LastIndex(id, "_")
	if i < 0 {
		return 0
	}
	n, err := strconv.Atoi(id[i+1:])
	if err != nil {
		return 0
	}
	return n
}

// Place validates and stores a resting order, assigning it a unique id.
func (b *Book) Place(order models.OpenOrder) (string, error) {
	if order.Symbol == "" {
		return "", apperrors.NewValidationError("symbol", order.Symbol, "must not be empty")
	}
	switch order.Type {
	case models.OrderTypeLimitBuy, models.OrderTypeLimitSell,
		models.OrderTypeStopLoss, models.OrderTypeTakeProfit:
	default:
		return "", apperrors.NewValidationError("type", string(order.Type), "unknown order type")
	}
	if !order.Quantity.IsPositive() {
		return "", apperrors.NewValidationError("quantity", order.Quantity.String(), "must be positive")
	}
	if !order.TriggerPrice.IsPositive() {
		return "", apperrors.NewValidationError("trigger_price", order.TriggerPrice.String(), "must be positive")
	}

	b.counter++
	order.ID = fmt.Sprintf("ORD_%d_%d", time.Now().Unix(), b.counter)
	if order.PlacedAt.IsZero() {
		order.PlacedAt = time.Now()
	}
	if order.AccountID == 0 {
		order.AccountID = models.DefaultAccountID
	}

	b.orders[order.ID] = order
	b.seq = append(b.seq, order.ID)
	return order.ID, nil
}

// Cancel removes an order, returning it. Fails with ErrOrderNotFound.
func (b *Book) Cancel(orderID string) (models.OpenOrder, error) {
	order, ok := b.orders[orderID]
	if !ok {
		return models.OpenOrder{}, apperrors.NewOrderError(orderID, "", "cancel", apperrors.ErrOrderNotFound)
	}
	b.remove(orderID)
	return order, nil
}

// Remove deletes a filled order. It is a no-op for unknown ids.
func (b *Book) Remove(orderID string) {
	if _, ok := b.orders[orderID]; ok {
		b.remove(orderID)
	}
}

func (b *Book) remove(orderID string) {
	delete(b.orders, orderID)
	for i, id := range b.seq {
		if id == orderID {
			b.seq = append(b.seq[:i], b.seq[i+1:]...)
			break
		}
	}
}

// Get returns an order by id.
func (b *Book) Get(orderID string) (models.OpenOrder, bool) {
	o, ok := b.orders[orderID]
	return o, ok
}

// OrdersForSymbol returns the resting orders on a symbol, oldest first.
// The engine relies on this ordering for deterministic fills when
// several orders trigger on the same tick.
func (b *Book) OrdersForSymbol(symbol string) []models.OpenOrder {
	var orders []models.OpenOrder
	for _, id := range b.seq {
		if o := b.orders[id]; o.Symbol == symbol {
			orders = append(orders, o)
		}
	}
	return orders
}

// Orders returns all resting orders in placement order.
func (b *Book) Orders() []models.OpenOrder {
	orders := make([]models.OpenOrder, 0, len(b.seq))
	for _, id := range b.seq {
		orders = append(orders, b.orders[id])
	}
	return orders
}

// Symbols returns the distinct symbols with at least one resting order.
func (b *Book) Symbols() []string {
	seen := make(map[string]struct{})
	for _, o := range b.orders {
		seen[o.Symbol] = struct{}{}
	}
	symbols := make([]string, 0, len(seen))
	for s := range seen {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	return symbols
}

// Len returns the number of resting orders.
func (b *Book) Len() int {
	return len(b.orders)
}

// SellExposure returns the total quantity of protective sell orders
// resting on a symbol. Used for display; placement only checks the
// held quantity, so overlapping protective sells are allowed.
func (b *Book) SellExposure(symbol string) decimal.Decimal {
	total := decimal.Zero
	for _, o := range b.orders {
		if o.Symbol == symbol && o.Type.IsSell() {
			total = total.Add(o.Quantity)
		}
	}
	return total
}

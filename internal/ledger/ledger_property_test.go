package ledger

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"

	"paper-trader/internal/models"
)

// Property: for any sequence of fills, cash plus the cost basis of all
// holdings plus realized proceeds balances exactly against the starting
// cash. Decimal arithmetic means no drift, not even a cent.
func TestProperty_CashConservation(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("Buy then full sell at the same price restores cash exactly", prop.ForAll(
		func(qtyCents int, priceCents int) bool {
			qty := decimal.New(int64(qtyCents), -2)
			price := decimal.New(int64(priceCents), -2)
			initial := decimal.NewFromInt(1_000_000)

			l := New(initial)
			if _, err := l.ApplyBuy("AAPL", qty, price, models.OrderTypeMarket); err != nil {
				return false
			}
			if _, err := l.ApplySell("AAPL", qty, price, models.OrderTypeMarket); err != nil {
				return false
			}
			return l.CashBalance().Equal(initial)
		},
		gen.IntRange(1, 100000),
		gen.IntRange(1, 99999),
	))

	properties.Property("Cash debit on a buy equals quantity times price exactly", prop.ForAll(
		func(qtyCents int, priceCents int) bool {
			qty := decimal.New(int64(qtyCents), -2)
			price := decimal.New(int64(priceCents), -2)
			initial := decimal.NewFromInt(10_000_000)

			l := New(initial)
			if _, err := l.ApplyBuy("AAPL", qty, price, models.OrderTypeMarket); err != nil {
				return false
			}
			return initial.Sub(l.CashBalance()).Equal(qty.Mul(price))
		},
		gen.IntRange(1, 100000),
		gen.IntRange(1, 99999),
	))

	properties.TestingRun(t)
}

// Property: the weighted average cost of a merged position equals total
// cost divided by total quantity for any pair of lots.
func TestProperty_WeightedAverageCost(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("Merged average equals total cost over total quantity", prop.ForAll(
		func(q1, p1, q2, p2 int) bool {
			heldQty := decimal.New(int64(q1), -2)
			heldAvg := decimal.New(int64(p1), -2)
			addQty := decimal.New(int64(q2), -2)
			addPrice := decimal.New(int64(p2), -2)

			avg := WeightedAverageCost(heldQty, heldAvg, addQty, addPrice)
			totalCost := heldQty.Mul(heldAvg).Add(addQty.Mul(addPrice))
			return avg.Mul(heldQty.Add(addQty)).Sub(totalCost).Abs().
				LessThan(decimal.New(1, -10))
		},
		gen.IntRange(1, 100000),
		gen.IntRange(1, 99999),
		gen.IntRange(1, 100000),
		gen.IntRange(1, 99999),
	))

	properties.Property("Average lands between the two lot prices", prop.ForAll(
		func(q1, p1, q2, p2 int) bool {
			heldQty := decimal.New(int64(q1), -2)
			heldAvg := decimal.New(int64(p1), -2)
			addQty := decimal.New(int64(q2), -2)
			addPrice := decimal.New(int64(p2), -2)

			avg := WeightedAverageCost(heldQty, heldAvg, addQty, addPrice)
			lo, hi := heldAvg, addPrice
			if lo.GreaterThan(hi) {
				lo, hi = hi, lo
			}
			return avg.GreaterThanOrEqual(lo) && avg.LessThanOrEqual(hi)
		},
		gen.IntRange(1, 100000),
		gen.IntRange(1, 99999),
		gen.IntRange(1, 100000),
		gen.IntRange(1, 99999),
	))

	properties.TestingRun(t)
}

// Property: no interleaving of buys and sells leaves a negative
// quantity or a negative cash balance; rejected fills change nothing.
func TestProperty_NoNegativeState(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	type fill struct {
		Sell     bool
		Quantity int
		Price    int
	}

	fillGen := gopter.CombineGens(
		gen.Bool(),
		gen.IntRange(1, 500),
		gen.IntRange(1, 5000),
	).Map(func(vals []interface{}) fill {
		return fill{Sell: vals[0].(bool), Quantity: vals[1].(int), Price: vals[2].(int)}
	})

	properties.Property("Random fill sequences never go negative", prop.ForAll(
		func(fills []fill) bool {
			l := New(decimal.NewFromInt(100_000))
			for _, f := range fills {
				qty := decimal.NewFromInt(int64(f.Quantity))
				price := decimal.New(int64(f.Price), -2)
				if f.Sell {
					l.ApplySell("AAPL", qty, price, models.OrderTypeMarket)
				} else {
					l.ApplyBuy("AAPL", qty, price, models.OrderTypeMarket)
				}
				if l.CashBalance().IsNegative() {
					return false
				}
				if l.HeldQuantity("AAPL").IsNegative() {
					return false
				}
			}
			return true
		},
		gen.SliceOf(fillGen),
	))

	properties.TestingRun(t)
}

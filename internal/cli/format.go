// Package cli provides the command-line interface for the paper trader.
package cli

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// FormatMoney formats a decimal amount as currency with thousand
// separators, e.g. $12,345.67.
func FormatMoney(amount decimal.Decimal) string {
	negative := amount.IsNegative()
	if negative {
		amount = amount.Neg()
	}

	str := amount.StringFixed(2)
	parts := strings.Split(str, ".")
	result := "$" + groupThousands(parts[0]) + "." + parts[1]
	if negative {
		result = "-" + result
	}
	return result
}

func groupThousands(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}
	var b strings.Builder
	first := n % 3
	if first > 0 {
		b.WriteString(s[:first])
	}
	for i := first; i < n; i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// FormatPnL formats P&L with an explicit sign.
func FormatPnL(pnl decimal.Decimal) string {
	formatted := FormatMoney(pnl)
	if pnl.IsPositive() {
		return "+" + formatted
	}
	return formatted
}

// FormatQuantity trims trailing zeros from a decimal quantity.
func FormatQuantity(qty decimal.Decimal) string {
	return qty.String()
}

// FormatTime formats a timestamp for table display.
func FormatTime(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04:05")
}

// ParseDecimalArg parses a positive decimal from a CLI argument.
func ParseDecimalArg(arg string) (decimal.Decimal, bool) {
	value, err := decimal.NewFromString(arg)
	if err != nil {
		return decimal.Zero, false
	}
	return value, true
}

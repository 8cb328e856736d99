package importer

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	apperrors "paper-trader/internal/errors"
	"paper-trader/internal/models"
)

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	v, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func parseAll(t *testing.T, csv string) []Line {
	t.Helper()
	lines, err := Parse(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return lines
}

func TestParseHeaderFlexibility(t *testing.T) {
	// Columns out of order, mixed case, with an extra currency column.
	csv := "PRICE,Side,quantity,Asset_Type,asset,date,currency\n" +
		"150.5,buy,10,stock,aapl,2024-03-01,USD\n"

	lines := parseAll(t, csv)
	if len(lines) != 1 {
		t.Fatalf("lines = %d, want 1", len(lines))
	}
	ln := lines[0]
	if ln.Err != nil {
		t.Fatalf("row error = %v", ln.Err)
	}
	if ln.Number != 2 {
		t.Errorf("line number = %d, want 2", ln.Number)
	}
	row := ln.Row
	if row.Symbol != "AAPL" {
		t.Errorf("symbol = %s, want AAPL (uppercased)", row.Symbol)
	}
	if row.Side != models.SideBuy {
		t.Errorf("side = %s, want BUY", row.Side)
	}
	if row.AssetType != "STOCK" {
		t.Errorf("asset type = %s, want STOCK", row.AssetType)
	}
	if !row.Quantity.Equal(mustDecimal(t, "10")) || !row.Price.Equal(mustDecimal(t, "150.5")) {
		t.Errorf("quantity/price = %s/%s, want 10/150.5", row.Quantity, row.Price)
	}
	want := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	if !row.Timestamp.Equal(want) {
		t.Errorf("timestamp = %v, want %v", row.Timestamp, want)
	}
}

func TestParseMissingColumn(t *testing.T) {
	_, err := Parse(strings.NewReader("date,asset,side,quantity,price\n"))
	if !apperrors.Is(err, apperrors.ErrInvalidOrder) {
		t.Fatalf("Parse() error = %v, want validation error", err)
	}
	if !strings.Contains(err.Error(), "asset_type") {
		t.Errorf("error %q does not name the missing column", err)
	}
}

func TestParseEmptyFile(t *testing.T) {
	if _, err := Parse(strings.NewReader("")); !apperrors.Is(err, apperrors.ErrInvalidOrder) {
		t.Errorf("Parse(empty) error = %v, want validation error", err)
	}
}

func TestParseRowValidation(t *testing.T) {
	header := "date,asset,asset_type,side,quantity,price\n"
	tests := []struct {
		name string
		row  string
		want string
	}{
		{"empty asset", "2024-01-01,,STOCK,BUY,1,100", "asset is empty"},
		{"bad side", "2024-01-01,AAPL,STOCK,HOLD,1,100", "side must be BUY or SELL"},
		{"unparseable quantity", "2024-01-01,AAPL,STOCK,BUY,ten,100", "invalid quantity"},
		{"zero quantity", "2024-01-01,AAPL,STOCK,BUY,0,100", "quantity must be positive"},
		{"negative price", "2024-01-01,AAPL,STOCK,BUY,1,-5", "price must be positive"},
		{"unknown asset type", "2024-01-01,AAPL,BOND,BUY,1,100", "asset_type must be STOCK or CRYPTO"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines := parseAll(t, header+tt.row+"\n")
			if len(lines) != 1 {
				t.Fatalf("lines = %d, want 1", len(lines))
			}
			if lines[0].Err == nil || !strings.Contains(lines[0].Err.Error(), tt.want) {
				t.Errorf("row error = %v, want %q", lines[0].Err, tt.want)
			}
		})
	}
}

func TestParseQuotedFields(t *testing.T) {
	csv := "date,asset,asset_type,side,quantity,price\n" +
		"\"2024-01-01\",\"BRK.B\",STOCK,\"BUY\",\"2\",\"450.10\"\n"

	lines := parseAll(t, csv)
	if len(lines) != 1 || lines[0].Err != nil {
		t.Fatalf("quoted row failed: %+v", lines)
	}
	if lines[0].Row.Symbol != "BRK.B" {
		t.Errorf("symbol = %s, want BRK.B", lines[0].Row.Symbol)
	}
}

func TestParseDateFallsBackToNow(t *testing.T) {
	before := time.Now()
	lines := parseAll(t, "date,asset,asset_type,side,quantity,price\n"+
		"not-a-date,AAPL,STOCK,BUY,1,100\n")
	if len(lines) != 1 || lines[0].Err != nil {
		t.Fatalf("row failed: %+v", lines)
	}
	ts := lines[0].Row.Timestamp
	if ts.Before(before) || ts.After(time.Now()) {
		t.Errorf("unparseable date did not fall back to the current time: %v", ts)
	}
}

func TestParseRFC3339Date(t *testing.T) {
	lines := parseAll(t, "date,asset,asset_type,side,quantity,price\n"+
		"2024-06-15T09:30:00Z,AAPL,STOCK,SELL,1,100\n")
	if len(lines) != 1 || lines[0].Err != nil {
		t.Fatalf("row failed: %+v", lines)
	}
	want := time.Date(2024, 6, 15, 9, 30, 0, 0, time.UTC)
	if !lines[0].Row.Timestamp.Equal(want) {
		t.Errorf("timestamp = %v, want %v", lines[0].Row.Timestamp, want)
	}
}

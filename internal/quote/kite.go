// Package quote provides price sources for the trading engine.
package quote

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	kiteconnect "github.com/zerodha/gokiteconnect/v4"

	apperrors "paper-trader/internal/errors"
)

// KiteSource fetches quotes from the Zerodha Kite Connect API. It is an
// optional provider for users who already hold Kite credentials.
type KiteSource struct {
	client   *kiteconnect.Client
	exchange string
}

// KiteConfig holds configuration for the Kite source.
type KiteConfig struct {
	APIKey      string
	AccessToken string
	Exchange    string // defaults to NSE
}

// NewKiteSource creates a Kite Connect quote source.
func NewKiteSource(cfg KiteConfig) (*KiteSource, error) {
	if cfg.APIKey == "" || cfg.AccessToken == "" {
		return nil, apperrors.Wrap(apperrors.ErrConfigInvalid, "kite source requires api_key and access_token")
	}
	exchange := cfg.Exchange
	if exchange == "" {
		exchange = "NSE"
	}

	client := kiteconnect.New(cfg.APIKey)
	client.SetAccessToken(cfg.AccessToken)

	return &KiteSource{client: client, exchange: exchange}, nil
}

// GetPrice fetches the last traded price for a symbol.
func (k *KiteSource) GetPrice(_ context.Context, symbol string) (decimal.Decimal, error) {
	instrument := fmt.Sprintf("%s:%s", k.exchange, strings.ToUpper(symbol))

	quotes, err := k.client.GetLTP(instrument)
	if err != nil {
		return decimal.Zero, apperrors.NewQuoteError("kite", symbol, err)
	}

	q, ok := quotes[instrument]
	if !ok {
		return decimal.Zero, apperrors.NewQuoteError("kite", symbol, apperrors.ErrSymbolNotFound)
	}
	if q.LastPrice <= 0 {
		return decimal.Zero, apperrors.NewQuoteError("kite", symbol,
			fmt.Errorf("no last price for %s", instrument))
	}
	return decimal.NewFromFloat(q.LastPrice), nil
}

var _ Source = (*KiteSource)(nil)

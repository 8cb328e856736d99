// Package quote provides price sources for the trading engine.
package quote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	apperrors "paper-trader/internal/errors"
)

const yahooChartURL = "https://query1.finance.yahoo.com/v8/finance/chart/"

// YahooSource fetches quotes from the Yahoo Finance chart endpoint.
// It needs no credentials, which makes it the default provider.
type YahooSource struct {
	client  *http.Client
	baseURL string
}

// YahooConfig holds configuration for the Yahoo source.
type YahooConfig struct {
	Timeout time.Duration
	BaseURL string // overridable for tests
}

// NewYahooSource creates a Yahoo Finance quote source.
func NewYahooSource(cfg YahooConfig) *YahooSource {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = yahooChartURL
	}
	return &YahooSource{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

type yahooChartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string  `json:"symbol"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
			} `json:"meta"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// GetPrice fetches the regular market price for a symbol.
func (y *YahooSource) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, y.baseURL+url.PathEscape(symbol), nil)
	if err != nil {
		return decimal.Zero, apperrors.NewQuoteError("yahoo", symbol, err)
	}
	req.Header.Set("User-Agent", "paper-trader/0.1")

	resp, err := y.client.Do(req)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) && urlErr.Timeout() {
			return decimal.Zero, apperrors.NewQuoteError("yahoo", symbol, apperrors.ErrTimeout)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return decimal.Zero, apperrors.NewQuoteError("yahoo", symbol, apperrors.ErrTimeout)
		}
		return decimal.Zero, apperrors.NewQuoteError("yahoo", symbol, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return decimal.Zero, apperrors.NewQuoteError("yahoo", symbol, apperrors.ErrSymbolNotFound)
	case http.StatusTooManyRequests:
		return decimal.Zero, apperrors.NewQuoteError("yahoo", symbol, apperrors.ErrRateLimited)
	default:
		return decimal.Zero, apperrors.NewQuoteError("yahoo", symbol,
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var chart yahooChartResponse
	if err := json.NewDecoder(resp.Body).Decode(&chart); err != nil {
		return decimal.Zero, apperrors.NewQuoteError("yahoo", symbol, err)
	}
	if chart.Chart.Error != nil {
		if chart.Chart.Error.Code == "Not Found" {
			return decimal.Zero, apperrors.NewQuoteError("yahoo", symbol, apperrors.ErrSymbolNotFound)
		}
		return decimal.Zero, apperrors.NewQuoteError("yahoo", symbol,
			fmt.Errorf("%s: %s", chart.Chart.Error.Code, chart.Chart.Error.Description))
	}
	if len(chart.Chart.Result) == 0 {
		return decimal.Zero, apperrors.NewQuoteError("yahoo", symbol, apperrors.ErrSymbolNotFound)
	}

	price := chart.Chart.Result[0].Meta.RegularMarketPrice
	if price <= 0 {
		return decimal.Zero, apperrors.NewQuoteError("yahoo", symbol,
			fmt.Errorf("no market price in response"))
	}
	return decimal.NewFromFloat(price), nil
}

var _ Source = (*YahooSource)(nil)

func errNotFound(symbol, source string) error {
	return apperrors.NewQuoteError(source, symbol, apperrors.ErrSymbolNotFound)
}

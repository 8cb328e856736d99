package quote

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apperrors "paper-trader/internal/errors"
)

func newYahooTestServer(t *testing.T, handler http.HandlerFunc) *YahooSource {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewYahooSource(YahooConfig{
		Timeout: 2 * time.Second,
		BaseURL: srv.URL + "/",
	})
}

func chartBody(symbol string, price float64) string {
	return fmt.Sprintf(`{"chart":{"result":[{"meta":{"symbol":%q,"regularMarketPrice":%g}}],"error":null}}`,
		symbol, price)
}

func TestYahooGetPrice(t *testing.T) {
	src := newYahooTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/AAPL" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, chartBody("AAPL", 187.45))
	})

	price, err := src.GetPrice(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("GetPrice() error = %v", err)
	}
	if price.String() != "187.45" {
		t.Errorf("price = %s, want 187.45", price)
	}
}

func TestYahooErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    error
	}{
		{
			name: "http 404 maps to symbol not found",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			},
			want: apperrors.ErrSymbolNotFound,
		},
		{
			name: "http 429 maps to rate limited",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
			},
			want: apperrors.ErrRateLimited,
		},
		{
			name: "chart error payload maps to symbol not found",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`)
			},
			want: apperrors.ErrSymbolNotFound,
		},
		{
			name: "empty result maps to symbol not found",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"chart":{"result":[],"error":null}}`)
			},
			want: apperrors.ErrSymbolNotFound,
		},
		{
			name: "zero price is an error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, chartBody("DEAD", 0))
			},
			want: apperrors.ErrQuoteUnavailable,
		},
		{
			name: "server error is an error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			want: apperrors.ErrQuoteUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := newYahooTestServer(t, tt.handler)
			_, err := src.GetPrice(context.Background(), "X")
			if !apperrors.Is(err, tt.want) {
				t.Errorf("GetPrice() error = %v, want %v", err, tt.want)
			}
			// Every quote failure matches the umbrella sentinel.
			if !apperrors.Is(err, apperrors.ErrQuoteUnavailable) {
				t.Errorf("GetPrice() error %v does not match ErrQuoteUnavailable", err)
			}
		})
	}
}

func TestYahooTimeout(t *testing.T) {
	src := newYahooTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		fmt.Fprint(w, chartBody("SLOW", 10))
	})
	src.client.Timeout = 50 * time.Millisecond

	_, err := src.GetPrice(context.Background(), "SLOW")
	if !apperrors.Is(err, apperrors.ErrTimeout) {
		t.Errorf("GetPrice() error = %v, want ErrTimeout", err)
	}
}

func TestCache(t *testing.T) {
	var calls int
	src := newYahooTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		fmt.Fprint(w, chartBody("AAPL", 100))
	})
	cache := NewCache(src, time.Minute)

	for i := 0; i < 3; i++ {
		if _, err := cache.GetPrice(context.Background(), "AAPL"); err != nil {
			t.Fatalf("GetPrice() error = %v", err)
		}
	}
	if calls != 1 {
		t.Errorf("upstream calls = %d, want 1", calls)
	}

	cache.Invalidate("AAPL")
	if _, err := cache.GetPrice(context.Background(), "AAPL"); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Errorf("upstream calls after invalidate = %d, want 2", calls)
	}
}

func TestCacheNeverCachesErrors(t *testing.T) {
	var calls int
	src := newYahooTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
	})
	cache := NewCache(src, time.Minute)

	for i := 0; i < 2; i++ {
		if _, err := cache.GetPrice(context.Background(), "NOPE"); err == nil {
			t.Fatalf("GetPrice() expected error")
		}
	}
	if calls != 2 {
		t.Errorf("upstream calls = %d, want 2 (errors must not be cached)", calls)
	}
}

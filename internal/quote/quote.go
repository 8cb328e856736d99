// Package quote provides price sources for the trading engine.
package quote

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Source defines the interface for fetching current prices.
type Source interface {
	// GetPrice returns the current price for a symbol. Failures map to
	// the quote error taxonomy (symbol not found, timeout, rate limited)
	// and always match errors.ErrQuoteUnavailable.
	GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// Cache wraps a Source with a small TTL price cache so repeated lookups
// within one tick do not hit the upstream provider twice.
type Cache struct {
	source Source
	ttl    time.Duration

	mu      sync.RWMutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	price   decimal.Decimal
	fetched time.Time
}

// NewCache creates a caching wrapper around a source.
func NewCache(source Source, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 2 * time.Second
	}
	return &Cache{
		source:  source,
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

// GetPrice returns a cached price when fresh, otherwise fetches and
// caches. Fetch errors are never cached.
func (c *Cache) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	c.mu.RLock()
	entry, ok := c.entries[symbol]
	c.mu.RUnlock()
	if ok && time.Since(entry.fetched) < c.ttl {
		return entry.price, nil
	}

	price, err := c.source.GetPrice(ctx, symbol)
	if err != nil {
		return decimal.Zero, err
	}

	c.mu.Lock()
	c.entries[symbol] = cacheEntry{price: price, fetched: time.Now()}
	c.mu.Unlock()
	return price, nil
}

// Invalidate drops the cached entry for a symbol.
func (c *Cache) Invalidate(symbol string) {
	c.mu.Lock()
	delete(c.entries, symbol)
	c.mu.Unlock()
}

var _ Source = (*Cache)(nil)

// Static is a fixed price table, used in tests and offline mode.
type Static struct {
	mu     sync.RWMutex
	prices map[string]decimal.Decimal
}

// NewStatic creates a static source with the given prices.
func NewStatic(prices map[string]decimal.Decimal) *Static {
	copied := make(map[string]decimal.Decimal, len(prices))
	for k, v := range prices {
		copied[k] = v
	}
	return &Static{prices: copied}
}

// GetPrice returns the configured price for a symbol.
func (s *Static) GetPrice(_ context.Context, symbol string) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	price, ok := s.prices[symbol]
	if !ok {
		return decimal.Zero, errNotFound(symbol, "static")
	}
	return price, nil
}

// SetPrice updates the price for a symbol.
func (s *Static) SetPrice(symbol string, price decimal.Decimal) {
	s.mu.Lock()
	s.prices[symbol] = price
	s.mu.Unlock()
}

var _ Source = (*Static)(nil)

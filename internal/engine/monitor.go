package engine

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"paper-trader/internal/logging"
	"paper-trader/internal/quote"
	"paper-trader/pkg/utils"
)

// Monitor is the background loop that watches live prices against
// resting orders. On each tick it collects the symbols with resting
// orders, fetches a fresh quote per symbol with no lock held, and asks
// the engine to evaluate each. It holds no trading state of its own.
type Monitor struct {
	engine   *Engine
	quotes   quote.Source
	interval time.Duration
	logger   zerolog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// MonitorConfig holds configuration for the monitor loop.
type MonitorConfig struct {
	Engine   *Engine
	Quotes   quote.Source
	Interval time.Duration
	Logger   zerolog.Logger
}

// NewMonitor creates a monitor. It does not start ticking until Start.
func NewMonitor(cfg MonitorConfig) *Monitor {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Monitor{
		engine:   cfg.Engine,
		quotes:   cfg.Quotes,
		interval: interval,
		logger:   cfg.Logger,
	}
}

// Start begins the tick loop. It is a no-op when already running.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	m.running = true
	m.cancel = cancel
	m.done = make(chan struct{})

	go m.loop(loopCtx)
	m.logger.Info().Dur("interval", m.interval).Msg("Order monitor started")
}

// Stop requests a cooperative stop and waits for the loop to finish.
// The stop takes effect between ticks; an in-flight evaluation always
// completes its mutation first.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel, done := m.cancel, m.done
	m.mu.Unlock()

	cancel()
	<-done

	m.mu.Lock()
	m.running = false
	m.mu.Unlock()
	m.logger.Info().Msg("Order monitor stopped")
}

// IsRunning reports whether the loop is active.
func (m *Monitor) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Monitor) loop(ctx context.Context) {
	defer close(m.done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.tick(ctx)
		}
	}
}

// tick runs one evaluation cycle. Quotes for different symbols are
// fetched concurrently; the resulting mutations apply one at a time
// through the engine's critical section. A failed quote skips only its
// own symbol for this tick.
func (m *Monitor) tick(ctx context.Context) {
	symbols := m.engine.RestingSymbols()
	if len(symbols) == 0 {
		return
	}

	type quoted struct {
		symbol string
		price  decimal.Decimal
		err    error
	}

	results := make([]quoted, len(symbols))
	var wg sync.WaitGroup
	for i, symbol := range symbols {
		wg.Add(1)
		go func(i int, symbol string) {
			defer wg.Done()
			price, err := utils.RetryWithResult(ctx, utils.RetryConfig{
				MaxAttempts:   2,
				InitialDelay:  200 * time.Millisecond,
				MaxDelay:      time.Second,
				BackoffFactor: 2.0,
			}, func() (decimal.Decimal, error) {
				return m.quotes.GetPrice(ctx, symbol)
			})
			results[i] = quoted{symbol: symbol, price: price, err: err}
		}(i, symbol)
	}
	wg.Wait()

	for _, r := range results {
		logger := logging.WithSymbol(m.logger, r.symbol)
		if r.err != nil {
			logger.Warn().Err(r.err).Msg("Quote unavailable; retrying next tick")
			continue
		}
		fills, err := m.engine.Evaluate(ctx, r.symbol, r.price)
		if err != nil {
			logger.Error().Err(err).Msg("Evaluation error")
		}
		for _, fill := range fills {
			logger.Info().
				Str("side", string(fill.Side)).
				Str("type", string(fill.OrderType)).
				Str("quantity", fill.Quantity.String()).
				Str("price", fill.PricePer.String()).
				Msg("Monitor filled resting order")
		}
	}
}

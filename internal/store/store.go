// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"

	"paper-trader/internal/models"
)

// Snapshot is the full persisted state of the simulated account: the
// account row, open holdings, the append-only trade log and the resting
// orders, plus the watchlist.
type Snapshot struct {
	Account    models.Account
	Holdings   []models.Holding
	Trades     []models.Trade
	OpenOrders []models.OpenOrder
	Watchlist  []string
}

// Store defines the interface for durable state persistence. Load is
// called once at startup; Save after every state-mutating operation.
type Store interface {
	// Load returns the persisted snapshot, or nil when no account has
	// been saved yet.
	Load(ctx context.Context) (*Snapshot, error)

	// Save durably writes the snapshot. It must be atomic: either the
	// whole snapshot is stored or the previous state is kept.
	Save(ctx context.Context, snap *Snapshot) error

	// Close releases the underlying resources.
	Close() error
}

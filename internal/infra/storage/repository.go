// Package storage defines the persistence ports the synchronization
// engine depends on. Concrete adapters live in the postgres and memory
// subpackages.
package storage

import (
	"context"

	"github.com/ryancwalsh/near-explorer/internal/core/domain"
)

// Watermarks summarizes the stored-height range the coordinator needs
// to compute new-tip, old-history, and gap ranges.
type Watermarks struct {
	Min   uint64
	Max   uint64
	Count int
}

// BlockStore persists blocks together with their embedded chunk and
// transactions, and answers the range queries the coordinator's three
// passes are built on.
type BlockStore interface {
	// SaveBatch idempotently upserts a group of blocks (and each
	// block's chunk and transactions) in a single transaction.
	SaveBatch(ctx context.Context, batch []*domain.BlockInfo) error

	// Watermarks reports the min/max stored height and row count. A
	// fully empty store reports Count == 0.
	Watermarks(ctx context.Context) (Watermarks, error)

	// CountInRange counts stored block rows with height in [lo, hi].
	CountInRange(ctx context.Context, lo, hi uint64) (int, error)
}

// NodeStore upserts validator telemetry reports.
type NodeStore interface {
	Upsert(ctx context.Context, node *domain.Node) error
}

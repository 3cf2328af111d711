package bus

import (
	"context"
	"fmt"
	"time"

	"github.com/ryancwalsh/near-explorer/internal/core/domain"
	"github.com/ryancwalsh/near-explorer/internal/infra/storage"
)

// StoreSession implements the node-telemetry procedure against a real
// storage.NodeStore, so the HTTP telemetry endpoint's reports actually
// reach the database. The select procedure remains a read-only
// passthrough that a border-of-scope bus library is expected to
// implement directly against the read-only role; StoreSession refuses
// it rather than execute arbitrary SQL itself.
type StoreSession struct {
	nodes storage.NodeStore
}

// NewStoreSession creates a StoreSession backed by nodes.
func NewStoreSession(nodes storage.NodeStore) *StoreSession {
	return &StoreSession{nodes: nodes}
}

// NodeTelemetry upserts a Node row from report.
func (s *StoreSession) NodeTelemetry(ctx context.Context, report TelemetryReport) error {
	return s.nodes.Upsert(ctx, &domain.Node{
		NodeID:     report.NodeID,
		AccountID:  report.AccountID,
		IPAddress:  report.IPAddress,
		LastHeight: report.LatestBlockHeight,
		LastSeenMs: uint64(time.Now().UnixMilli()),
	})
}

// Select is not implemented: the read-only SQL passthrough is bus-side
// infrastructure, out of the indexer's scope.
func (s *StoreSession) Select(ctx context.Context, q SelectQuery) ([]map[string]any, error) {
	return nil, fmt.Errorf("select passthrough is not implemented by the indexer")
}

// Close is a no-op; StoreSession owns no connection of its own.
func (s *StoreSession) Close() error {
	return nil
}

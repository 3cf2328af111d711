package postgres

import (
	"context"
	"fmt"

	"github.com/ryancwalsh/near-explorer/internal/core/domain"
)

// NodeRepo upserts validator telemetry reports. It implements
// storage.NodeStore.
type NodeRepo struct {
	db *DB
}

// NewNodeRepo creates a NodeRepo bound to db.
func NewNodeRepo(db *DB) *NodeRepo {
	return &NodeRepo{db: db}
}

const upsertNodeSQL = `
INSERT INTO nodes (node_id, moniker, account_id, ip_address, last_seen_ms, last_height)
VALUES (:node_id, :moniker, :account_id, :ip_address, :last_seen_ms, :last_height)
ON CONFLICT (node_id) DO UPDATE SET
	moniker = EXCLUDED.moniker,
	account_id = EXCLUDED.account_id,
	ip_address = EXCLUDED.ip_address,
	last_seen_ms = EXCLUDED.last_seen_ms,
	last_height = EXCLUDED.last_height
`

type nodeRow struct {
	NodeID     string `db:"node_id"`
	Moniker    string `db:"moniker"`
	AccountID  string `db:"account_id"`
	IPAddress  string `db:"ip_address"`
	LastSeenMs uint64 `db:"last_seen_ms"`
	LastHeight uint64 `db:"last_height"`
}

// Upsert writes node's latest telemetry snapshot, keyed by NodeID.
func (r *NodeRepo) Upsert(ctx context.Context, node *domain.Node) error {
	row := nodeRow{
		NodeID:     node.NodeID,
		Moniker:    node.Moniker,
		AccountID:  node.AccountID,
		IPAddress:  node.IPAddress,
		LastSeenMs: node.LastSeenMs,
		LastHeight: node.LastHeight,
	}
	if _, err := r.db.NamedExecContext(ctx, upsertNodeSQL, row); err != nil {
		return fmt.Errorf("upsert node %s: %w", node.NodeID, err)
	}
	return nil
}

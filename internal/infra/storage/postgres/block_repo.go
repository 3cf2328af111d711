package postgres

import (
	"context"
	"fmt"

	"github.com/ryancwalsh/near-explorer/internal/core/domain"
	"github.com/ryancwalsh/near-explorer/internal/infra/storage"
)

// BlockRepo persists blocks, chunks, and transactions against PostgreSQL.
// It implements storage.BlockStore.
type BlockRepo struct {
	db *DB
}

// NewBlockRepo creates a BlockRepo bound to db.
func NewBlockRepo(db *DB) *BlockRepo {
	return &BlockRepo{db: db}
}

const upsertBlockSQL = `
INSERT INTO blocks (hash, height, prev_hash, timestamp_ms, weight, author_id, list_of_approvals)
VALUES (:hash, :height, :prev_hash, :timestamp_ms, :weight, :author_id, :list_of_approvals)
ON CONFLICT (hash) DO UPDATE SET
	height = EXCLUDED.height,
	prev_hash = EXCLUDED.prev_hash,
	timestamp_ms = EXCLUDED.timestamp_ms,
	weight = EXCLUDED.weight,
	author_id = EXCLUDED.author_id,
	list_of_approvals = EXCLUDED.list_of_approvals
`

const upsertChunkSQL = `
INSERT INTO chunks (hash, block_hash, shard_id, author_id)
VALUES (:hash, :block_hash, :shard_id, :author_id)
ON CONFLICT (hash) DO UPDATE SET
	block_hash = EXCLUDED.block_hash,
	shard_id = EXCLUDED.shard_id,
	author_id = EXCLUDED.author_id
`

const upsertTransactionSQL = `
INSERT INTO transactions (hash, originator, destination, kind, args, chunk_hash, status, logs)
VALUES (:hash, :originator, :destination, :kind, :args, :chunk_hash, :status, :logs)
ON CONFLICT (hash) DO UPDATE SET
	originator = EXCLUDED.originator,
	destination = EXCLUDED.destination,
	kind = EXCLUDED.kind,
	args = EXCLUDED.args,
	chunk_hash = EXCLUDED.chunk_hash,
	status = EXCLUDED.status,
	logs = EXCLUDED.logs
`

// blockRow, chunkRow, and txRow mirror the domain types with db tags for
// sqlx's named-exec binding.
type blockRow struct {
	Hash            string `db:"hash"`
	Height          uint64 `db:"height"`
	PrevHash        string `db:"prev_hash"`
	TimestampMs     uint64 `db:"timestamp_ms"`
	Weight          uint64 `db:"weight"`
	AuthorID        string `db:"author_id"`
	ListOfApprovals string `db:"list_of_approvals"`
}

type chunkRow struct {
	Hash      string `db:"hash"`
	BlockHash string `db:"block_hash"`
	ShardID   string `db:"shard_id"`
	AuthorID  string `db:"author_id"`
}

type txRow struct {
	Hash        string `db:"hash"`
	Originator  string `db:"originator"`
	Destination string `db:"destination"`
	Kind        string `db:"kind"`
	Args        []byte `db:"args"`
	ChunkHash   string `db:"chunk_hash"`
	Status      string `db:"status"`
	Logs        string `db:"logs"`
}

// SaveBatch idempotently upserts every block in batch, together with its
// single embedded chunk and that chunk's transactions, inside one
// transaction. A failure rolls the whole batch back; no partial rows
// become visible.
func (r *BlockRepo) SaveBatch(ctx context.Context, batch []*domain.BlockInfo) error {
	if len(batch) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, b := range batch {
		block := blockRow{
			Hash:            b.Hash,
			Height:          b.Height,
			PrevHash:        b.PrevHash,
			TimestampMs:     domain.TimestampMsFromNanos(b.TimestampNanos),
			Weight:          b.Weight,
			AuthorID:        b.AuthorID,
			ListOfApprovals: "",
		}
		if _, err := tx.NamedExecContext(ctx, upsertBlockSQL, block); err != nil {
			return fmt.Errorf("upsert block %s: %w", b.Hash, err)
		}

		chunk := chunkRow{
			Hash:      b.Hash,
			BlockHash: b.Hash,
			ShardID:   b.ShardID,
			AuthorID:  b.AuthorID,
		}
		if _, err := tx.NamedExecContext(ctx, upsertChunkSQL, chunk); err != nil {
			return fmt.Errorf("upsert chunk %s: %w", b.Hash, err)
		}

		for _, t := range b.Transactions {
			row := txRow{
				Hash:        t.Hash,
				Originator:  t.Originator,
				Destination: domain.UnknownDestination,
				Kind:        t.Kind,
				Args:        t.Args,
				ChunkHash:   b.Hash,
				Status:      domain.StatusCompleted,
				Logs:        "",
			}
			if _, err := tx.NamedExecContext(ctx, upsertTransactionSQL, row); err != nil {
				return fmt.Errorf("upsert transaction %s: %w", t.Hash, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

type watermarksRow struct {
	Min   *uint64 `db:"min"`
	Max   *uint64 `db:"max"`
	Count int     `db:"count"`
}

// Watermarks reports the min/max stored height and row count.
func (r *BlockRepo) Watermarks(ctx context.Context) (storage.Watermarks, error) {
	var row watermarksRow
	err := r.db.GetContext(ctx, &row, `SELECT min(height) AS min, max(height) AS max, count(*) AS count FROM blocks`)
	if err != nil {
		return storage.Watermarks{}, fmt.Errorf("query watermarks: %w", err)
	}
	if row.Count == 0 || row.Min == nil || row.Max == nil {
		return storage.Watermarks{Count: 0}, nil
	}
	return storage.Watermarks{Min: *row.Min, Max: *row.Max, Count: row.Count}, nil
}

// CountInRange counts stored block rows with height in [lo, hi].
func (r *BlockRepo) CountInRange(ctx context.Context, lo, hi uint64) (int, error) {
	if hi < lo {
		return 0, nil
	}
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT count(*) FROM blocks WHERE height BETWEEN $1 AND $2`, lo, hi)
	if err != nil {
		return 0, fmt.Errorf("count range [%d,%d]: %w", lo, hi, err)
	}
	return count, nil
}

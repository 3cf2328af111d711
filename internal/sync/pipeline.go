// Package sync implements the bounded, pipelined fetch-and-persist loop:
// a fixed-size pool of fetch workers pulls heights from a descending
// range, wraps every outcome as a Result so a single RPC failure can
// never abort the range, and hands completed heights to the batch sink
// in groups once enough have accumulated.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ryancwalsh/near-explorer/internal/core/domain"
	"github.com/ryancwalsh/near-explorer/internal/infra/rpc"
	"github.com/ryancwalsh/near-explorer/internal/infra/storage"
	"github.com/ryancwalsh/near-explorer/internal/sync/metrics"
)

// Fetcher is the subset of the RPC client the pipeline needs.
type Fetcher interface {
	Block(ctx context.Context, height uint64) (*domain.BlockInfo, error)
}

// Config bounds the pipeline's concurrency and batching granularity.
type Config struct {
	FetchQueue int // max concurrently outstanding RPC requests
	SaveQueue  int // max concurrently outstanding persist transactions
	BulkDB     int // heights per persisted batch
}

// DefaultConfig returns the values named in the configuration reference.
func DefaultConfig() Config {
	return Config{FetchQueue: 1000, SaveQueue: 10, BulkDB: 10}
}

// Pipeline is the bounded producer/consumer described above. A Pipeline
// owns one Sink and is safe to invoke Run on repeatedly and
// concurrently for disjoint height ranges.
type Pipeline struct {
	cfg  Config
	rpc  Fetcher
	sink *Sink
	log  *slog.Logger
}

// New creates a Pipeline bound to rpc and store.
func New(cfg Config, rpc Fetcher, store storage.BlockStore, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{
		cfg:  cfg,
		rpc:  rpc,
		sink: NewSink(store, cfg.SaveQueue, log),
		log:  log,
	}
}

type job struct {
	idx    uint64
	height uint64
}

// Run fetches every height in [low, high] descending and persists
// completed heights in batches of cfg.BulkDB. It returns once every
// height has been fetched (successfully or not) and every batch,
// including the final residual one, has been persisted or dropped by
// the sink.
//
// A high < low range is a no-op, matching the watermark formulas that
// can produce empty ranges (e.g. old-history sync against an empty
// store).
func (p *Pipeline) Run(ctx context.Context, low, high uint64) error {
	if high < low {
		return nil
	}
	total := high - low + 1

	workers := p.cfg.FetchQueue
	if workers <= 0 {
		workers = 1
	}
	if uint64(workers) > total {
		workers = int(total)
	}

	jobs := make(chan job)
	results := make([]chan domain.FetchResult, total)
	for i := range results {
		results[i] = make(chan domain.FetchResult, 1)
	}

	var workerWG sync.WaitGroup
	for w := 0; w < workers; w++ {
		workerWG.Add(1)
		go func() {
			defer workerWG.Done()
			for j := range jobs {
				metrics.FetchQueueInFlight.Inc()
				block, err := func() (b *domain.BlockInfo, err error) {
					defer func() {
						if r := recover(); r != nil {
							err = fmt.Errorf("panic fetching block %d: %v", j.height, r)
						}
					}()
					return p.rpc.Block(ctx, j.height)
				}()
				metrics.FetchQueueInFlight.Dec()
				results[j.idx] <- domain.FetchResult{Height: j.height, Block: block, Err: err}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := uint64(0); i < total; i++ {
			jobs <- job{idx: i, height: high - i}
		}
	}()

	batch := make([]*domain.BlockInfo, 0, p.cfg.BulkDB)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		toSend := make([]*domain.BlockInfo, len(batch))
		copy(toSend, batch)
		p.sink.Submit(ctx, toSend)
		batch = batch[:0]
	}

	for i := uint64(0); i < total; i++ {
		res := <-results[i]
		if !res.Ok() {
			// Transport-layer failures are logged at info, everything
			// else at warn.
			level := slog.LevelWarn
			var transient *rpc.TransientRpcError
			if errors.As(res.Err, &transient) {
				level = slog.LevelInfo
			}
			p.log.Log(ctx, level, "block fetch failed, will be retried by gap sync", "height", res.Height, "error", res.Err)
			metrics.BlocksFetchFailed.Inc()
			continue
		}
		batch = append(batch, res.Block)
		if len(batch) >= p.cfg.BulkDB {
			flush()
		}
	}
	flush()

	workerWG.Wait()
	p.sink.Wait()
	return nil
}

package sync

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	redisclient "github.com/ryancwalsh/near-explorer/internal/infra/redis"
	"github.com/ryancwalsh/near-explorer/internal/infra/storage"
	"github.com/ryancwalsh/near-explorer/internal/sync/metrics"
)

// lockTTL bounds how long a pass may hold its advisory lock before
// another replica is allowed to assume it died mid-pass.
const lockTTL = 5 * time.Minute

// RPC is the subset of the chain RPC client the coordinator needs: the
// pipeline's Fetcher plus the tip lookup new-tip sync is built on.
type RPC interface {
	Fetcher
	Status(ctx context.Context) (uint64, error)
}

// PassState is a point in a pass's Idle -> Running -> (Success | Failed)
// state machine. A pass is Idle only before its first run; after a run
// it stays Success or Failed until the next run sets it to Running.
type PassState string

const (
	PassIdle    PassState = "idle"
	PassRunning PassState = "running"
	PassSuccess PassState = "success"
	PassFailed  PassState = "failed"
)

// PassNewTip, PassOldHistory, and PassGap name the three coordinator
// passes, used both for logging and for the health surface.
const (
	PassNewTip     = "new-tip"
	PassOldHistory = "old-history"
	PassGap        = "gap"
)

// Coordinator runs the three named sync passes over a shared Pipeline.
// Their height ranges never overlap by construction: new-tip works
// strictly above the stored max, old-history strictly below the stored
// min, gap strictly between the two.
type Coordinator struct {
	pipeline *Pipeline
	rpc      RPC
	store    storage.BlockStore
	cfg      Config
	log      *slog.Logger
	locks    *redisclient.Client // optional; nil means single-replica, no locking

	mu     sync.Mutex
	states map[string]PassState
}

// NewCoordinator creates a Coordinator sharing pipeline and store across
// all three passes. locks may be nil, in which case every pass runs
// unconditionally (the single-replica deployment case).
func NewCoordinator(cfg Config, rpc RPC, store storage.BlockStore, locks *redisclient.Client, log *slog.Logger) *Coordinator {
	if log == nil {
		log = slog.Default()
	}
	return &Coordinator{
		pipeline: New(cfg, rpc, store, log),
		rpc:      rpc,
		store:    store,
		cfg:      cfg,
		log:      log,
		locks:    locks,
		states:   map[string]PassState{PassNewTip: PassIdle, PassOldHistory: PassIdle, PassGap: PassIdle},
	}
}

// State reports the last known state of the named pass.
func (c *Coordinator) State(pass string) PassState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.states[pass]
}

func (c *Coordinator) setState(pass string, s PassState) {
	c.mu.Lock()
	c.states[pass] = s
	c.mu.Unlock()
}

// runGuarded runs fn under the pass state machine, timing it, recovering
// from any panic so one misbehaving pass never takes down the scheduler
// or the process, and reporting the duration metric.
func (c *Coordinator) runGuarded(ctx context.Context, pass string, fn func(context.Context) error) {
	acquired, err := c.locks.TryLock(ctx, pass, lockTTL)
	if err != nil {
		c.log.Warn("advisory lock check failed, running pass unlocked", "pass", pass, "error", err)
	} else if !acquired {
		c.log.Debug("pass already running on another replica, skipping", "pass", pass)
		return
	} else {
		defer c.locks.Unlock(ctx, pass)
	}

	c.setState(pass, PassRunning)
	start := time.Now()
	outcome := "success"

	passErr := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic in %s pass: %v", pass, r)
			}
		}()
		return fn(ctx)
	}()

	if passErr != nil {
		outcome = "failed"
		c.setState(pass, PassFailed)
		c.log.Warn("sync pass failed", "pass", pass, "error", passErr)
	} else {
		c.setState(pass, PassSuccess)
	}
	metrics.PassDuration.WithLabelValues(pass, outcome).Observe(time.Since(start).Seconds())
}

// NewTipSync runs the forward catch-up pass: fetch every height from one
// past the stored max up to the chain's current tip.
func (c *Coordinator) NewTipSync(ctx context.Context) {
	c.runGuarded(ctx, PassNewTip, c.newTipSync)
}

func (c *Coordinator) newTipSync(ctx context.Context) error {
	wm, err := c.store.Watermarks(ctx)
	if err != nil {
		return fmt.Errorf("read watermarks: %w", err)
	}
	last := wm.Max

	tip, err := c.rpc.Status(ctx)
	if err != nil {
		// Abandon this pass; the next scheduled fire retries status().
		c.log.Warn("status rpc failed, abandoning new-tip pass", "error", err)
		return nil
	}
	metrics.ChainTip.Set(float64(tip))
	c.reportWatermarks(wm)

	return c.pipeline.Run(ctx, last+1, tip)
}

// OldHistorySync runs the backward backfill pass: fetch every height
// from genesis up to one before the stored min. A no-op once the store
// reaches height 1.
func (c *Coordinator) OldHistorySync(ctx context.Context) {
	c.runGuarded(ctx, PassOldHistory, c.oldHistorySync)
}

func (c *Coordinator) oldHistorySync(ctx context.Context) error {
	wm, err := c.store.Watermarks(ctx)
	if err != nil {
		return fmt.Errorf("read watermarks: %w", err)
	}
	c.reportWatermarks(wm)

	if wm.Count == 0 || wm.Min <= 1 {
		return nil
	}
	return c.pipeline.Run(ctx, 1, wm.Min-1)
}

// GapSync runs the recursive-bisection pass over the stored range,
// filling any height that's missing without re-scanning densely
// covered regions height by height.
func (c *Coordinator) GapSync(ctx context.Context) {
	c.runGuarded(ctx, PassGap, c.gapSync)
}

func (c *Coordinator) gapSync(ctx context.Context) error {
	wm, err := c.store.Watermarks(ctx)
	if err != nil {
		return fmt.Errorf("read watermarks: %w", err)
	}
	c.reportWatermarks(wm)

	if wm.Count < 2 {
		return nil
	}
	lo, hi := wm.Min+1, wm.Max-1
	if hi < lo {
		return nil
	}
	return c.bisect(ctx, lo, hi)
}

// bisect implements the divide-and-conquer gap probe from the component
// design: count the range, skip it if fully covered, fetch it directly
// if empty and small enough to respect FETCH_QUEUE, otherwise split at
// the midpoint and recurse on both halves.
func (c *Coordinator) bisect(ctx context.Context, lo, hi uint64) error {
	count, err := c.store.CountInRange(ctx, lo, hi)
	if err != nil {
		return fmt.Errorf("count range [%d,%d]: %w", lo, hi, err)
	}
	size := hi - lo + 1
	if uint64(count) == size {
		return nil
	}
	if hi-lo <= uint64(c.cfg.FetchQueue) && count == 0 {
		return c.pipeline.Run(ctx, lo, hi)
	}

	mid := lo + (hi-lo)/2
	if err := c.bisect(ctx, lo, mid); err != nil {
		return err
	}
	return c.bisect(ctx, mid+1, hi)
}

// FullSyncAtStartup runs new-tip, then gap, then old-history once, each
// guarded so that one pass failing never skips the others.
func (c *Coordinator) FullSyncAtStartup(ctx context.Context) {
	c.NewTipSync(ctx)
	c.GapSync(ctx)
	c.OldHistorySync(ctx)
}

func (c *Coordinator) reportWatermarks(wm storage.Watermarks) {
	metrics.StoredMinHeight.Set(float64(wm.Min))
	metrics.StoredMaxHeight.Set(float64(wm.Max))
}

package sync

import (
	"testing"

	"github.com/ryancwalsh/near-explorer/internal/core/domain"
	"github.com/ryancwalsh/near-explorer/internal/infra/storage/memory"
)

func newTestCoordinator(t *testing.T, tip uint64, cfg Config) (*Coordinator, *fakeRPC, *memory.BlockStore) {
	t.Helper()
	store := memory.NewBlockStore()
	rpc := newFakeRPC(tip)
	return NewCoordinator(cfg, rpc, store, nil, nil), rpc, store
}

// TestFullSync_EmptyStore covers seed scenario 1: an empty store with
// tip 5 ends up with every height 1..5 stored after the startup sync.
func TestFullSync_EmptyStore(t *testing.T) {
	c, _, store := newTestCoordinator(t, 5, DefaultConfig())
	c.FullSyncAtStartup(t.Context())

	for h := uint64(1); h <= 5; h++ {
		if !store.Has(h) {
			t.Errorf("expected height %d to be stored", h)
		}
	}
}

// TestFullSync_PartialStore covers seed scenario 2: a store holding
// only height 3 with tip 5 converges to the full 1..5 range once new-tip
// and old-history have both run.
func TestFullSync_PartialStore(t *testing.T) {
	store := memory.NewBlockStore()
	rpc := newFakeRPC(5)
	seed(t, store, 3)
	c := NewCoordinator(DefaultConfig(), rpc, store, nil, nil)
	c.FullSyncAtStartup(t.Context())

	for h := uint64(1); h <= 5; h++ {
		if !store.Has(h) {
			t.Errorf("expected height %d to be stored", h)
		}
	}
}

// TestGapSync_Bisection covers seed scenario 3: store = {1,3,5}, tip 5,
// FETCH_QUEUE = 2. Gap sync must fill in 2 and 4 via bisection without
// ever needing more than FETCH_QUEUE concurrent RPCs.
func TestGapSync_Bisection(t *testing.T) {
	store := memory.NewBlockStore()
	rpc := newFakeRPC(5)
	seed(t, store, 1, 3, 5)

	c := NewCoordinator(Config{FetchQueue: 2, SaveQueue: 2, BulkDB: 2}, rpc, store, nil, nil)
	c.GapSync(t.Context())

	for h := uint64(1); h <= 5; h++ {
		if !store.Has(h) {
			t.Errorf("expected height %d to be stored after gap sync", h)
		}
	}
	if rpc.peak > 2 {
		t.Errorf("peak in-flight RPCs %d exceeds FETCH_QUEUE 2", rpc.peak)
	}
}

// TestGapSync_CoveredRangeIsNoop covers the fully-covered branch of the
// bisection: no RPCs should be issued when the range already holds
// count == size rows.
func TestGapSync_CoveredRangeIsNoop(t *testing.T) {
	store := memory.NewBlockStore()
	rpc := newFakeRPC(5)
	seed(t, store, 1, 2, 3, 4, 5)

	c := NewCoordinator(DefaultConfig(), rpc, store, nil, nil)
	c.GapSync(t.Context())

	if rpc.peak != 0 {
		t.Errorf("expected no RPCs for a fully covered range, observed peak %d", rpc.peak)
	}
}

// TestNewTipSync_MissingBlockRetriedByGapSync covers seed scenario 4:
// a MissingBlockError on one height leaves it absent after new-tip sync
// but a later gap sync (once the node has the block) fills it.
func TestNewTipSync_MissingBlockRetriedByGapSync(t *testing.T) {
	store := memory.NewBlockStore()
	rpc := newFakeRPC(5)
	rpc.missing[2] = true

	c := NewCoordinator(DefaultConfig(), rpc, store, nil, nil)
	c.NewTipSync(t.Context())

	for _, h := range []uint64{1, 3, 4, 5} {
		if !store.Has(h) {
			t.Errorf("expected height %d to be stored", h)
		}
	}
	if store.Has(2) {
		t.Errorf("expected height 2 to remain absent after the first pass")
	}

	rpc.mu.Lock()
	delete(rpc.missing, 2)
	rpc.mu.Unlock()

	c.GapSync(t.Context())
	if !store.Has(2) {
		t.Errorf("expected gap sync to fill height 2 once available")
	}
}

// TestOldHistorySync_EmptyStoreIsNoop exercises the [1, -1] no-op case
// from seed scenario 1.
func TestOldHistorySync_EmptyStoreIsNoop(t *testing.T) {
	store := memory.NewBlockStore()
	rpc := newFakeRPC(5)
	c := NewCoordinator(DefaultConfig(), rpc, store, nil, nil)

	c.OldHistorySync(t.Context())
	if len(store.Heights()) != 0 {
		t.Errorf("expected no rows stored")
	}
}

// TestPassStates_ReflectOutcome checks that a new-tip pass that completes
// without error leaves the pass in the Success state.
func TestPassStates_ReflectOutcome(t *testing.T) {
	store := memory.NewBlockStore()
	rpc := newFakeRPC(5)
	c := NewCoordinator(DefaultConfig(), rpc, store, nil, nil)

	c.NewTipSync(t.Context())
	if got := c.State(PassNewTip); got != PassSuccess {
		t.Errorf("expected PassSuccess, got %v", got)
	}
}

func seed(t *testing.T, store *memory.BlockStore, heights ...uint64) {
	t.Helper()
	rpc := newFakeRPC(0)
	batch := make([]*domain.BlockInfo, 0, len(heights))
	for _, h := range heights {
		b, err := rpc.Block(t.Context(), h)
		if err != nil {
			t.Fatalf("seed height %d: %v", h, err)
		}
		batch = append(batch, b)
	}
	if err := store.SaveBatch(t.Context(), batch); err != nil {
		t.Fatalf("seed SaveBatch: %v", err)
	}
}

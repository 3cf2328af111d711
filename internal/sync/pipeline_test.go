package sync

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ryancwalsh/near-explorer/internal/core/domain"
	"github.com/ryancwalsh/near-explorer/internal/infra/rpc"
	"github.com/ryancwalsh/near-explorer/internal/infra/storage"
	"github.com/ryancwalsh/near-explorer/internal/infra/storage/memory"
)

// fakeRPC serves a fixed set of heights and can be told to fail or omit
// specific ones, while tracking peak concurrent in-flight calls.
type fakeRPC struct {
	mu        sync.Mutex
	missing   map[uint64]bool
	transient map[uint64]bool
	tip       uint64

	inFlight int32
	peak     int32
}

func newFakeRPC(tip uint64) *fakeRPC {
	return &fakeRPC{missing: map[uint64]bool{}, transient: map[uint64]bool{}, tip: tip}
}

func (f *fakeRPC) Status(ctx context.Context) (uint64, error) {
	return f.tip, nil
}

func (f *fakeRPC) Block(ctx context.Context, height uint64) (*domain.BlockInfo, error) {
	n := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		p := atomic.LoadInt32(&f.peak)
		if n <= p || atomic.CompareAndSwapInt32(&f.peak, p, n) {
			break
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.missing[height] {
		return nil, &rpc.MissingBlockError{Height: height}
	}
	if f.transient[height] {
		return nil, &rpc.TransientRpcError{Op: "block", Err: fmt.Errorf("boom")}
	}
	return &domain.BlockInfo{
		Hash:           fmt.Sprintf("h%d", height),
		Height:         height,
		PrevHash:       fmt.Sprintf("h%d", height-1),
		TimestampNanos: height * 1_000_000_000,
		Weight:         height,
		AuthorID:       domain.UnknownAuthor,
		ShardID:        "0",
	}, nil
}

func TestPipeline_FetchesEntireRange(t *testing.T) {
	store := memory.NewBlockStore()
	rpc := newFakeRPC(5)
	p := New(Config{FetchQueue: 2, SaveQueue: 2, BulkDB: 2}, rpc, store, nil)

	if err := p.Run(t.Context(), 1, 5); err != nil {
		t.Fatalf("Run: %v", err)
	}
	for h := uint64(1); h <= 5; h++ {
		if !store.Has(h) {
			t.Errorf("expected height %d to be stored", h)
		}
	}
}

func TestPipeline_DropsFailedHeightsWithoutAbortingBatch(t *testing.T) {
	store := memory.NewBlockStore()
	rpc := newFakeRPC(5)
	rpc.missing[2] = true
	p := New(Config{FetchQueue: 3, SaveQueue: 2, BulkDB: 5}, rpc, store, nil)

	if err := p.Run(t.Context(), 1, 5); err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, h := range []uint64{1, 3, 4, 5} {
		if !store.Has(h) {
			t.Errorf("expected height %d to be stored", h)
		}
	}
	if store.Has(2) {
		t.Errorf("expected height 2 to be absent")
	}
}

func TestPipeline_EmptyRangeIsNoop(t *testing.T) {
	store := memory.NewBlockStore()
	rpc := newFakeRPC(5)
	p := New(DefaultConfig(), rpc, store, nil)

	if err := p.Run(t.Context(), 5, 1); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(store.Heights()) != 0 {
		t.Errorf("expected no rows stored for an empty range")
	}
}

// TestPipeline_BoundedConcurrency covers P2: peak concurrent RPC calls
// never exceeds FETCH_QUEUE.
func TestPipeline_BoundedConcurrency(t *testing.T) {
	store := memory.NewBlockStore()
	rpc := newFakeRPC(200)
	const fetchQueue = 10
	p := New(Config{FetchQueue: fetchQueue, SaveQueue: 2, BulkDB: 5}, rpc, store, nil)

	if err := p.Run(t.Context(), 1, 200); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rpc.peak > fetchQueue {
		t.Errorf("peak in-flight RPCs %d exceeds FETCH_QUEUE %d", rpc.peak, fetchQueue)
	}
	if len(store.Heights()) != 200 {
		t.Errorf("expected 200 rows, got %d", len(store.Heights()))
	}
}

// TestPipeline_PersistFailureDropsBatch covers seed scenario 5: a batch
// whose persist call fails leaves its heights absent without affecting
// other batches.
func TestPipeline_PersistFailureDropsBatch(t *testing.T) {
	store := memory.NewBlockStore()
	rpc := newFakeRPC(5)
	wrapped := &flakyStore{inner: store, failHeights: map[uint64]bool{4: true, 5: true}}
	p := New(Config{FetchQueue: 2, SaveQueue: 2, BulkDB: 2}, rpc, wrapped, nil)

	if err := p.Run(t.Context(), 1, 5); err != nil {
		t.Fatalf("Run: %v", err)
	}

	for _, h := range []uint64{1, 2, 3} {
		if !store.Has(h) {
			t.Errorf("expected height %d to be stored", h)
		}
	}
	for _, h := range []uint64{4, 5} {
		if store.Has(h) {
			t.Errorf("height %d should not be persisted by the failing batch", h)
		}
	}
}

// flakyStore fails SaveBatch for any batch containing a height in
// failHeights, otherwise delegates to inner.
type flakyStore struct {
	inner       *memory.BlockStore
	failHeights map[uint64]bool
}

func (f *flakyStore) SaveBatch(ctx context.Context, batch []*domain.BlockInfo) error {
	for _, b := range batch {
		if f.failHeights[b.Height] {
			return fmt.Errorf("simulated transactional failure")
		}
	}
	return f.inner.SaveBatch(ctx, batch)
}

func (f *flakyStore) Watermarks(ctx context.Context) (storage.Watermarks, error) {
	return f.inner.Watermarks(ctx)
}

func (f *flakyStore) CountInRange(ctx context.Context, lo, hi uint64) (int, error) {
	return f.inner.CountInRange(ctx, lo, hi)
}

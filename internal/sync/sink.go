package sync

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ryancwalsh/near-explorer/internal/core/domain"
	"github.com/ryancwalsh/near-explorer/internal/infra/storage"
	"github.com/ryancwalsh/near-explorer/internal/sync/metrics"
)

// Sink is the bounded batch consumer: it caps the number of concurrently
// in-flight persist transactions at SaveQueue and never lets a
// persistence error reach the pipeline or coordinator.
type Sink struct {
	store     storage.BlockStore
	saveQueue chan struct{}
	wg        sync.WaitGroup
	log       *slog.Logger
}

// NewSink creates a Sink bound to store, bounded at saveQueueSize
// concurrent transactions.
func NewSink(store storage.BlockStore, saveQueueSize int, log *slog.Logger) *Sink {
	if saveQueueSize <= 0 {
		saveQueueSize = 1
	}
	if log == nil {
		log = slog.Default()
	}
	return &Sink{
		store:     store,
		saveQueue: make(chan struct{}, saveQueueSize),
		log:       log,
	}
}

// Submit hands batch to the sink. It blocks until a save-queue slot is
// free — the backpressure point that bounds total in-flight batches —
// then persists asynchronously. Submit itself never returns an error;
// the outcome is logged and reflected in metrics only.
func (s *Sink) Submit(ctx context.Context, batch []*domain.BlockInfo) {
	s.saveQueue <- struct{}{}
	metrics.SaveQueueInFlight.Inc()
	s.wg.Add(1)
	go func() {
		defer func() {
			<-s.saveQueue
			metrics.SaveQueueInFlight.Dec()
			s.wg.Done()
		}()
		s.persist(ctx, batch)
	}()
}

// Wait blocks until every previously submitted batch has been persisted
// (or dropped after a failure).
func (s *Sink) Wait() {
	s.wg.Wait()
}

func (s *Sink) persist(ctx context.Context, batch []*domain.BlockInfo) {
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic persisting batch: %v", r)
			}
		}()
		return s.store.SaveBatch(ctx, batch)
	}()
	if err != nil {
		s.log.Warn("batch persist failed, heights remain gaps for the next gap sync",
			"size", len(batch), "error", err)
		metrics.BatchPersistFailed.Inc()
		return
	}
	metrics.BlocksPersisted.Add(float64(len(batch)))
}

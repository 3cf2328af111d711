package sync

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// SchedulerConfig holds the two passes' independent periods.
type SchedulerConfig struct {
	PNew time.Duration // new-tip timer period
	PGap time.Duration // gap timer period
}

// DefaultSchedulerConfig returns the values named in the configuration
// reference.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{PNew: time.Second, PGap: 60 * time.Second}
}

// Scheduler drives the coordinator with two independent, self-
// rescheduling timers. Each timer awaits its pass to completion before
// sleeping for the next period; it is never a fixed-rate ticker, so a
// slow pass cannot stack up overruns. Old-history is not re-triggered
// here: it runs once at startup via FullSyncAtStartup and naturally
// becomes a no-op once the store reaches height 1.
type Scheduler struct {
	coordinator *Coordinator
	cfg         SchedulerConfig
	log         *slog.Logger
}

// NewScheduler creates a Scheduler driving coordinator.
func NewScheduler(coordinator *Coordinator, cfg SchedulerConfig, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{coordinator: coordinator, cfg: cfg, log: log}
}

// Run performs the startup full sync, then blocks running the two
// periodic timers until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.log.Info("running full sync at startup")
	s.coordinator.FullSyncAtStartup(ctx)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.loop(ctx, "new-tip-timer", s.cfg.PNew, 10*s.cfg.PNew, s.coordinator.NewTipSync)
	}()
	go func() {
		defer wg.Done()
		s.loop(ctx, "gap-timer", s.cfg.PGap, s.cfg.PGap, s.coordinator.GapSync)
	}()
	wg.Wait()
}

// loop waits initialDelay, then repeatedly runs fire to completion and
// sleeps period before firing again, until ctx is cancelled.
func (s *Scheduler) loop(ctx context.Context, name string, period, initialDelay time.Duration, fire func(context.Context)) {
	timer := time.NewTimer(initialDelay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		fire(ctx)

		select {
		case <-ctx.Done():
			return
		default:
			timer.Reset(period)
		}
	}
}

// Package control wires the indexer's components into one running
// process: configuration, the chain RPC client, PostgreSQL storage, the
// optional Redis advisory lock, the message bus session, the
// synchronization engine, and the HTTP health/telemetry servers.
package control

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ryancwalsh/near-explorer/internal/core/config"
	"github.com/ryancwalsh/near-explorer/internal/health"
	"github.com/ryancwalsh/near-explorer/internal/infra/bus"
	redisclient "github.com/ryancwalsh/near-explorer/internal/infra/redis"
	"github.com/ryancwalsh/near-explorer/internal/infra/rpc"
	"github.com/ryancwalsh/near-explorer/internal/infra/storage/postgres"
	"github.com/ryancwalsh/near-explorer/internal/sync"
	"github.com/ryancwalsh/near-explorer/internal/telemetry"
)

// Watcher owns the full indexer's lifecycle: it starts the
// synchronization scheduler and the health server, and stops them
// cleanly on shutdown. The telemetry handler is built here but served
// by the caller (see TelemetryHandler).
type Watcher struct {
	cfg *config.AppConfig
	log *slog.Logger

	db          *postgres.DB
	redisClient *redisclient.Client
	busSession  bus.Session

	scheduler    *sync.Scheduler
	healthServer *health.Server

	telemetryHandler *telemetry.Handler
}

// New builds a Watcher from cfg. It opens the database, runs pending
// migrations, optionally connects to Redis, and wires the sync
// coordinator and scheduler, but does not start anything yet.
func New(ctx context.Context, cfg *config.AppConfig, migrationsDir string, log *slog.Logger) (*Watcher, error) {
	if log == nil {
		log = slog.Default()
	}

	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if migrationsDir != "" {
		if err := db.Migrate(migrationsDir); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	var redisClient *redisclient.Client
	if cfg.Redis.URL != "" {
		redisClient, err = redisclient.NewClient(cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
	}

	blockRepo := postgres.NewBlockRepo(db)
	nodeRepo := postgres.NewNodeRepo(db)

	var busSession bus.Session
	if cfg.Bus.URL != "" {
		busSession = bus.NewStoreSession(nodeRepo)
	} else {
		busSession = bus.NewLoggingSession(log)
	}

	rpcClient := rpc.New(cfg.RPC.URL, cfg.RPC.Timeout)

	pipelineCfg := sync.Config{
		FetchQueue: cfg.Sync.FetchQueueSize,
		SaveQueue:  cfg.Sync.SaveQueueSize,
		BulkDB:     cfg.Sync.BulkDBUpdateSize,
	}
	coordinator := sync.NewCoordinator(pipelineCfg, rpcClient, blockRepo, redisClient, log)

	schedulerCfg := sync.SchedulerConfig{
		PNew: cfg.Scheduler.NewTipInterval,
		PGap: cfg.Scheduler.GapInterval,
	}
	scheduler := sync.NewScheduler(coordinator, schedulerCfg, log)

	return &Watcher{
		cfg:              cfg,
		log:              log,
		db:               db,
		redisClient:      redisClient,
		busSession:       busSession,
		scheduler:        scheduler,
		healthServer:     health.NewServer(coordinator, cfg.Server.Port),
		telemetryHandler: telemetry.NewHandler(busSession, log),
	}, nil
}

// Start runs the synchronization scheduler and the health server. It
// returns once both are launched; the scheduler runs in the background
// until ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	go w.scheduler.Run(ctx)

	go func() {
		if err := w.healthServer.Start(); err != nil {
			w.log.Error("health server stopped", "error", err)
		}
	}()

	w.log.Info("watcher started", "port", w.cfg.Server.Port)
	return nil
}

// Stop shuts the HTTP server down and releases the database and Redis
// connections. The scheduler's goroutines exit on their own once ctx
// (passed to Start) is cancelled by the caller.
func (w *Watcher) Stop(ctx context.Context) error {
	if err := w.healthServer.Stop(ctx); err != nil {
		w.log.Warn("health server shutdown error", "error", err)
	}
	if w.redisClient != nil {
		if err := w.redisClient.Close(); err != nil {
			w.log.Warn("redis close error", "error", err)
		}
	}
	if err := w.busSession.Close(); err != nil {
		w.log.Warn("bus session close error", "error", err)
	}
	return w.db.Close()
}

// TelemetryHandler exposes the HTTP handler validators post node
// telemetry to, for main to mount on its own mux.
func (w *Watcher) TelemetryHandler() *telemetry.Handler {
	return w.telemetryHandler
}

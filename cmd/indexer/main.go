package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/vietddude/stylelog"

	"github.com/ryancwalsh/near-explorer/internal/control"
	"github.com/ryancwalsh/near-explorer/internal/core/config"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	migrationsDir := flag.String("migrations", "migrations", "Path to the goose migrations directory")
	telemetryPort := flag.Int("telemetry-port", 8081, "Port for the node-telemetry HTTP endpoint")
	isDebug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		stylelog.InitDefault()
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	slogLevel := slog.LevelInfo
	if *isDebug || cfg.Logging.Level == "debug" {
		slogLevel = slog.LevelDebug
	}

	stylelog.InitDefault(
		&tint.Options{
			Level:      slogLevel,
			TimeFormat: time.RFC3339,
		})
	slog.Info("logger initialized", "level", slogLevel.String())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watcher, err := control.New(ctx, cfg, *migrationsDir, slog.Default())
	if err != nil {
		slog.Error("failed to initialize watcher", "error", err)
		os.Exit(1)
	}

	if err := watcher.Start(ctx); err != nil {
		slog.Error("failed to start watcher", "error", err)
		os.Exit(1)
	}

	telemetryServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", *telemetryPort),
		Handler: watcher.TelemetryHandler(),
	}
	go func() {
		if err := telemetryServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("telemetry server stopped", "error", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	slog.Info("received signal, shutting down...", "signal", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	cancel() // stop the scheduler's pass loops

	if err := telemetryServer.Shutdown(shutdownCtx); err != nil {
		slog.Warn("telemetry server shutdown error", "error", err)
	}
	if err := watcher.Stop(shutdownCtx); err != nil {
		slog.Error("error during shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("watcher stopped gracefully")
}

package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/felixgeelhaar/cadence/internal/app"
	recurrenceCommands "github.com/felixgeelhaar/cadence/internal/recurrence/application/commands"
	"github.com/felixgeelhaar/cadence/pkg/config"
	"github.com/felixgeelhaar/cadence/pkg/observability"
)

func main() {
	logger := observability.LoggerFromEnv()

	logger.Info("starting cadence worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	container, err := app.NewContainer(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize container", "error", err)
		os.Exit(1)
	}
	defer container.Close()

	if cfg.OutboxProcessorEnabled {
		if err := container.OutboxProcessor.Start(ctx); err != nil {
			logger.Error("failed to start outbox processor", "error", err)
			os.Exit(1)
		}
	}

	// Periodic outbox cleanup
	cleanupTicker := time.NewTicker(cfg.OutboxCleanupInterval)
	defer cleanupTicker.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-cleanupTicker.C:
				deleted, err := container.OutboxRepo.DeleteOld(ctx, cfg.OutboxRetentionDays)
				if err != nil {
					logger.Error("outbox cleanup failed", "error", err)
					continue
				}
				if deleted > 0 {
					logger.Info("outbox cleanup completed", "deleted", deleted, "retention_days", cfg.OutboxRetentionDays)
				}
			}
		}
	}()

	startHealthServer(ctx, cfg, container, logger)

	// The engine tick. One lock-guarded pass per interval: materialize due
	// tickets, then replenish habit windows.
	tick := time.NewTicker(cfg.EngineTickInterval)
	defer tick.Stop()

	logger.Info("engine loop started", "tick_interval", cfg.EngineTickInterval)

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down worker")
			container.OutboxProcessor.Stop()
			logger.Info("worker stopped")
			return
		case <-tick.C:
			runEnginePass(ctx, cfg, container, logger)
		}
	}
}

// runEnginePass executes one scheduling pass under the distributed run lock
// so worker replicas never process the same batch concurrently.
func runEnginePass(ctx context.Context, cfg *config.Config, container *app.Container, logger *slog.Logger) {
	passCtx := observability.WithCorrelationID(ctx, "")

	acquired, err := container.RunLock.Acquire(passCtx, cfg.RunLockLease)
	if err != nil {
		logger.Error("failed to acquire run lock", "error", err)
		return
	}
	if !acquired {
		logger.Debug("run lock held elsewhere, skipping pass")
		return
	}
	defer func() {
		if err := container.RunLock.Release(passCtx); err != nil {
			logger.Warn("failed to release run lock", "error", err)
		}
	}()

	now := time.Now()

	pending, err := container.ProcessPendingHandler.Handle(passCtx, recurrenceCommands.ProcessPendingCommand{Now: now})
	if err != nil {
		logger.Error("pending recurrence pass failed", "error", err)
	} else if pending.Materialized > 0 || pending.Skipped > 0 {
		logger.Info("pending recurrence pass complete",
			"materialized", pending.Materialized,
			"skipped", pending.Skipped,
		)
	}

	if cfg.AutoReplenish {
		replenished, err := container.Replenishment.ProcessReplenishments(passCtx, now)
		if err != nil {
			logger.Error("replenishment pass failed", "error", err)
		} else if replenished.Replenished > 0 {
			logger.Info("replenishment pass complete",
				"replenished", replenished.Replenished,
				"scanned", replenished.Scanned,
			)
		}
	}
}

func startHealthServer(ctx context.Context, cfg *config.Config, container *app.Container, logger *slog.Logger) {
	if cfg.WorkerHealthAddr == "" {
		return
	}

	registry := observability.NewHealthRegistry()
	registry.Register("database", observability.DatabaseHealthChecker(container.DBConn.Ping))
	if container.RedisClient != nil {
		registry.Register("redis", observability.RedisHealthChecker(func(ctx context.Context) error {
			return container.RedisClient.Ping(ctx).Err()
		}))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		stats := container.OutboxProcessor.GetStats()
		response := map[string]any{
			"status":            "ok",
			"running":           stats.IsRunning,
			"published":         stats.PublishedCount,
			"failed":            stats.FailedCount,
			"dead":              stats.DeadCount,
			"lag_seconds":       stats.LagSeconds,
			"last_processed_at": stats.LastProcessedAt,
			"last_error_at":     stats.LastErrorAt,
			"last_error":        stats.LastError,
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response)
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		checkCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		health := registry.Check(checkCtx)
		if health.Status == observability.HealthStatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(health)
	})

	healthSrv := &http.Server{
		Addr:              cfg.WorkerHealthAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("health server starting", "addr", cfg.WorkerHealthAddr)
		if err := healthSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("health server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := healthSrv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("health server shutdown error", "error", err)
		}
	}()
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/cadence/adapter/cli"
	"github.com/felixgeelhaar/cadence/internal/app"
	"github.com/felixgeelhaar/cadence/pkg/config"
	"github.com/felixgeelhaar/cadence/pkg/observability"
	"github.com/google/uuid"
)

func main() {
	logger := observability.LoggerFromEnv()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		cancel()
	}()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cli.SetLogger(logger)

	container, err := app.NewContainer(ctx, cfg, logger)
	if err != nil {
		if cfg.IsDevelopment() {
			// Allow help and usage output without a database.
			logger.Warn("running without application container", "error", err)
		} else {
			logger.Error("failed to initialize container", "error", err)
			os.Exit(1)
		}
	} else {
		defer container.Close()

		if cfg.OutboxProcessorEnabled {
			if err := container.OutboxProcessor.Start(ctx); err != nil {
				logger.Error("failed to start outbox processor", "error", err)
				os.Exit(1)
			}
		}

		userID, err := uuid.Parse(cfg.UserID)
		if err != nil {
			logger.Error("invalid CADENCE_USER_ID", "error", err)
			os.Exit(1)
		}

		cli.SetApp(&cli.App{
			CurrentUserID:          userID,
			SchedulePendingHandler: container.SchedulePendingHandler,
			ProcessPendingHandler:  container.ProcessPendingHandler,
			CancelPendingHandler:   container.CancelPendingHandler,
			LogHabitHandler:        container.LogHabitHandler,
			Replenishment:          container.Replenishment,
			HabitInsightsHandler:   container.HabitInsightsHandler,
		})
	}

	if err := cli.RootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// Package app wires the application dependency graph.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	habitCommands "github.com/felixgeelhaar/cadence/internal/habits/application/commands"
	habitServices "github.com/felixgeelhaar/cadence/internal/habits/application/services"
	habitsDomain "github.com/felixgeelhaar/cadence/internal/habits/domain"
	habitPersistence "github.com/felixgeelhaar/cadence/internal/habits/infrastructure/persistence"
	insightQueries "github.com/felixgeelhaar/cadence/internal/insights/application/queries"
	recurrenceCommands "github.com/felixgeelhaar/cadence/internal/recurrence/application/commands"
	recurrenceDomain "github.com/felixgeelhaar/cadence/internal/recurrence/domain"
	recurrencePersistence "github.com/felixgeelhaar/cadence/internal/recurrence/infrastructure/persistence"
	sharedApplication "github.com/felixgeelhaar/cadence/internal/shared/application"
	"github.com/felixgeelhaar/cadence/internal/shared/infrastructure/database"
	_ "github.com/felixgeelhaar/cadence/internal/shared/infrastructure/database/postgres" // Register PostgreSQL driver
	_ "github.com/felixgeelhaar/cadence/internal/shared/infrastructure/database/sqlite"   // Register SQLite driver
	"github.com/felixgeelhaar/cadence/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/cadence/internal/shared/infrastructure/migrations"
	"github.com/felixgeelhaar/cadence/internal/shared/infrastructure/outbox"
	"github.com/felixgeelhaar/cadence/internal/shared/infrastructure/runlock"
	"github.com/felixgeelhaar/cadence/pkg/config"
	"github.com/redis/go-redis/v9"
)

// Container holds all application dependencies.
type Container struct {
	Config *config.Config
	Logger *slog.Logger

	DBConn      database.Connection
	RedisClient *redis.Client

	TaskRepo    recurrenceDomain.TaskRepository
	PendingRepo recurrenceDomain.PendingRecurrenceRepository
	HabitRepo   habitsDomain.Repository
	OutboxRepo  outbox.Repository

	EventPublisher  eventbus.Publisher
	OutboxProcessor *outbox.Processor
	UnitOfWork      sharedApplication.UnitOfWork
	RunLock         runlock.Lock

	SchedulePendingHandler *recurrenceCommands.SchedulePendingHandler
	ProcessPendingHandler  *recurrenceCommands.ProcessPendingHandler
	CancelPendingHandler   *recurrenceCommands.CancelPendingHandler
	LogHabitHandler        *habitCommands.LogHabitHandler
	Replenishment          *habitServices.ReplenishmentService
	HabitInsightsHandler   *insightQueries.HabitInsightsHandler
}

// NewContainer builds the dependency graph: connects the database, runs
// migrations, and wires repositories, the outbox, and all handlers.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dbCfg := database.Config{
		URL:        cfg.DatabaseURL,
		SQLitePath: cfg.SQLitePath,
	}
	if dbCfg.URL == "" && dbCfg.SQLitePath == "" {
		dbCfg.SQLitePath = database.DefaultSQLitePath()
	}

	conn, err := database.NewConnection(ctx, dbCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := migrations.Run(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	logger.Info("database ready", "driver", conn.Driver())

	publisher, err := newPublisher(cfg, logger)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	var redisClient *redis.Client
	var lock runlock.Lock = runlock.NewNoopLock()
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		redisClient = redis.NewClient(opts)
		lock = runlock.NewRedisLock(redisClient, "cadence:engine:run")
	}

	cutoff, err := habitServices.ParseCutoff(cfg.ReplenishCutoff)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	defaultLoc, err := time.LoadLocation(cfg.DefaultTimeZone)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("invalid default time zone %q: %w", cfg.DefaultTimeZone, err)
	}

	taskRepo := recurrencePersistence.NewSQLTaskRepository(conn)
	pendingRepo := recurrencePersistence.NewSQLPendingRepository(conn)
	habitRepo := habitPersistence.NewSQLHabitRepository(conn)
	outboxRepo := outbox.NewSQLRepository(conn)
	uow := database.NewUnitOfWork(conn)

	processorCfg := outbox.DefaultProcessorConfig()
	processorCfg.PollInterval = cfg.OutboxPollInterval
	processorCfg.BatchSize = cfg.OutboxBatchSize
	processorCfg.MaxRetries = cfg.OutboxMaxRetries

	return &Container{
		Config: cfg,
		Logger: logger,

		DBConn:      conn,
		RedisClient: redisClient,

		TaskRepo:    taskRepo,
		PendingRepo: pendingRepo,
		HabitRepo:   habitRepo,
		OutboxRepo:  outboxRepo,

		EventPublisher:  publisher,
		OutboxProcessor: outbox.NewProcessor(outboxRepo, publisher, processorCfg, logger),
		UnitOfWork:      uow,
		RunLock:         lock,

		SchedulePendingHandler: recurrenceCommands.NewSchedulePendingHandler(taskRepo, pendingRepo, outboxRepo, uow, logger),
		ProcessPendingHandler:  recurrenceCommands.NewProcessPendingHandler(taskRepo, pendingRepo, outboxRepo, uow, logger),
		CancelPendingHandler:   recurrenceCommands.NewCancelPendingHandler(pendingRepo, uow, logger),
		LogHabitHandler:        habitCommands.NewLogHabitHandler(habitRepo, outboxRepo, uow),
		Replenishment:          habitServices.NewReplenishmentService(habitRepo, outboxRepo, uow, cutoff, defaultLoc, logger),
		HabitInsightsHandler:   insightQueries.NewHabitInsightsHandler(habitRepo, defaultLoc),
	}, nil
}

func newPublisher(cfg *config.Config, logger *slog.Logger) (eventbus.Publisher, error) {
	if cfg.RabbitMQURL == "" {
		return eventbus.NewNoopPublisher(logger), nil
	}

	rabbit, err := eventbus.NewRabbitMQPublisher(cfg.RabbitMQURL, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	return eventbus.NewBreakerPublisher(rabbit, logger), nil
}

// Close releases all held resources.
func (c *Container) Close() {
	if c.OutboxProcessor != nil {
		c.OutboxProcessor.Stop()
	}
	if c.EventPublisher != nil {
		if err := c.EventPublisher.Close(); err != nil {
			c.Logger.Warn("failed to close event publisher", "error", err)
		}
	}
	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			c.Logger.Warn("failed to close redis client", "error", err)
		}
	}
	if c.DBConn != nil {
		if err := c.DBConn.Close(); err != nil {
			c.Logger.Warn("failed to close database", "error", err)
		}
	}
}

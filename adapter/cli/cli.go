// Package cli exposes the scheduling engine through cobra commands.
package cli

import (
	"log/slog"

	habitCommands "github.com/felixgeelhaar/cadence/internal/habits/application/commands"
	habitServices "github.com/felixgeelhaar/cadence/internal/habits/application/services"
	insightQueries "github.com/felixgeelhaar/cadence/internal/insights/application/queries"
	recurrenceCommands "github.com/felixgeelhaar/cadence/internal/recurrence/application/commands"
	"github.com/google/uuid"
)

// App holds the handlers the CLI dispatches to.
type App struct {
	CurrentUserID uuid.UUID

	SchedulePendingHandler *recurrenceCommands.SchedulePendingHandler
	ProcessPendingHandler  *recurrenceCommands.ProcessPendingHandler
	CancelPendingHandler   *recurrenceCommands.CancelPendingHandler
	LogHabitHandler        *habitCommands.LogHabitHandler
	Replenishment          *habitServices.ReplenishmentService
	HabitInsightsHandler   *insightQueries.HabitInsightsHandler
}

var (
	app    *App
	logger *slog.Logger
)

// SetApp installs the application handlers for command use.
func SetApp(a *App) { app = a }

// GetApp returns the installed application, nil when running without one.
func GetApp() *App { return app }

// SetLogger installs the CLI logger.
func SetLogger(l *slog.Logger) { logger = l }

// Logger returns the CLI logger.
func Logger() *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

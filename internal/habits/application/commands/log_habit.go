package commands

import (
	"context"
	"errors"
	"time"

	"github.com/felixgeelhaar/cadence/internal/habits/domain"
	sharedApplication "github.com/felixgeelhaar/cadence/internal/shared/application"
	"github.com/felixgeelhaar/cadence/internal/shared/infrastructure/outbox"
	"github.com/google/uuid"
)

var (
	ErrHabitNotFound = errors.New("habit not found")
	ErrNotOwner      = errors.New("user does not own this habit")
)

// LogHabitCommand resolves a habit's current window by completion or skip.
type LogHabitCommand struct {
	HabitID uuid.UUID
	UserID  uuid.UUID
	Status  domain.LogStatus
	Note    string
	Mood    string
	Date    time.Time
}

// LogHabitResult contains the result of logging.
type LogHabitResult struct {
	EntryID       uuid.UUID
	CurrentStreak int
	LongestStreak int
}

// LogHabitHandler handles the LogHabitCommand.
type LogHabitHandler struct {
	habitRepo  domain.Repository
	outboxRepo outbox.Repository
	uow        sharedApplication.UnitOfWork
}

// NewLogHabitHandler creates a new LogHabitHandler.
func NewLogHabitHandler(habitRepo domain.Repository, outboxRepo outbox.Repository, uow sharedApplication.UnitOfWork) *LogHabitHandler {
	return &LogHabitHandler{
		habitRepo:  habitRepo,
		outboxRepo: outboxRepo,
		uow:        uow,
	}
}

// Handle executes the LogHabitCommand.
func (h *LogHabitHandler) Handle(ctx context.Context, cmd LogHabitCommand) (*LogHabitResult, error) {
	var result *LogHabitResult

	err := sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		habit, err := h.habitRepo.FindByID(txCtx, cmd.HabitID)
		if err != nil {
			return err
		}
		if habit == nil {
			return ErrHabitNotFound
		}
		if habit.UserID() != cmd.UserID {
			return ErrNotOwner
		}

		date := cmd.Date
		if date.IsZero() {
			date = time.Now()
		}

		var entry *domain.LogEntry
		if cmd.Status == domain.LogStatusSkipped {
			entry, err = habit.LogSkip(date, cmd.Note)
		} else {
			entry, err = habit.LogCompletion(date, cmd.Note, cmd.Mood)
		}
		if err != nil {
			return err
		}

		if err := h.habitRepo.Save(txCtx, habit); err != nil {
			return err
		}

		events := habit.DomainEvents()
		sharedApplication.ApplyEventMetadata(events, sharedApplication.NewEventMetadata(cmd.UserID))
		msgs, err := outbox.FromDomainEvents(events)
		if err != nil {
			return err
		}
		if err := h.outboxRepo.SaveBatch(txCtx, msgs); err != nil {
			return err
		}

		result = &LogHabitResult{
			EntryID:       entry.ID(),
			CurrentStreak: habit.CurrentStreak(),
			LongestStreak: habit.LongestStreak(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

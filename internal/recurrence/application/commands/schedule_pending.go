package commands

import (
	"context"
	"errors"
	"log/slog"

	"github.com/felixgeelhaar/cadence/internal/recurrence/domain"
	sharedApplication "github.com/felixgeelhaar/cadence/internal/shared/application"
	"github.com/felixgeelhaar/cadence/internal/shared/infrastructure/outbox"
	"github.com/google/uuid"
)

var (
	ErrTaskNotFound = errors.New("task not found")

	// ErrNoRecurrenceRule means the task is not part of a recurring series.
	ErrNoRecurrenceRule = errors.New("task has no recurrence rule")

	// ErrOccurrenceLimitReached means the series hit its max occurrence count.
	ErrOccurrenceLimitReached = errors.New("recurrence occurrence limit reached")

	// ErrNoNextOccurrence means the evaluator produced no further occurrence.
	ErrNoNextOccurrence = errors.New("no next occurrence for recurrence rule")

	// ErrEndDatePassed means the next occurrence falls on or after the series
	// end date.
	ErrEndDatePassed = errors.New("recurrence end date passed")

	// ErrTaskNotCompleted means the task is still open and the rule does not
	// recreate incomplete occurrences.
	ErrTaskNotCompleted = errors.New("task is not completed")
)

// SchedulePendingCommand requests a scheduling ticket for the next occurrence
// of a task's series.
type SchedulePendingCommand struct {
	TaskID uuid.UUID
	UserID uuid.UUID
}

// SchedulePendingResult describes the created ticket.
type SchedulePendingResult struct {
	PendingID       uuid.UUID
	ScheduledDate   string
	OccurrenceIndex int
}

// SchedulePendingHandler evaluates the recurrence rule against series policy
// and stages a durable PendingRecurrence ticket.
type SchedulePendingHandler struct {
	taskRepo    domain.TaskRepository
	pendingRepo domain.PendingRecurrenceRepository
	outboxRepo  outbox.Repository
	uow         sharedApplication.UnitOfWork
	logger      *slog.Logger
}

// NewSchedulePendingHandler creates a new SchedulePendingHandler.
func NewSchedulePendingHandler(
	taskRepo domain.TaskRepository,
	pendingRepo domain.PendingRecurrenceRepository,
	outboxRepo outbox.Repository,
	uow sharedApplication.UnitOfWork,
	logger *slog.Logger,
) *SchedulePendingHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SchedulePendingHandler{
		taskRepo:    taskRepo,
		pendingRepo: pendingRepo,
		outboxRepo:  outboxRepo,
		uow:         uow,
		logger:      logger,
	}
}

// Handle executes the SchedulePendingCommand.
func (h *SchedulePendingHandler) Handle(ctx context.Context, cmd SchedulePendingCommand) (*SchedulePendingResult, error) {
	var result *SchedulePendingResult

	err := sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		task, err := h.taskRepo.FindByID(txCtx, cmd.TaskID)
		if err != nil {
			return err
		}
		if task == nil {
			return ErrTaskNotFound
		}

		rule := task.Rule()
		if rule == nil {
			return ErrNoRecurrenceRule
		}

		if !task.IsCompleted() && !rule.RecreateIfIncomplete() {
			return ErrTaskNotCompleted
		}

		if max := rule.MaxOccurrences(); max > 0 && task.OccurrenceIndex() >= max {
			return ErrOccurrenceLimitReached
		}

		// Scheduling is idempotent per source task: a ticket that already
		// exists is returned as-is instead of being duplicated.
		if existing, err := h.pendingRepo.FindBySourceTask(txCtx, task.ID()); err != nil {
			return err
		} else if existing != nil {
			result = &SchedulePendingResult{
				PendingID:       existing.ID(),
				ScheduledDate:   existing.ScheduledDate().Format(scheduledDateFormat),
				OccurrenceIndex: existing.OccurrenceIndex(),
			}
			return nil
		}

		next, ok := rule.NextOccurrence(task.RecurrenceAnchor())
		if !ok {
			return ErrNoNextOccurrence
		}

		// The end date is exclusive: no occurrence is produced at or after it.
		if end := rule.EndDate(); end != nil && !next.Before(*end) {
			return ErrEndDatePassed
		}

		ticket := domain.NewPendingRecurrence(task, next)
		if err := h.pendingRepo.Save(txCtx, ticket); err != nil {
			return err
		}

		events := ticket.DomainEvents()
		sharedApplication.ApplyEventMetadata(events, sharedApplication.NewEventMetadata(cmd.UserID))
		msgs, err := outbox.FromDomainEvents(events)
		if err != nil {
			return err
		}
		if err := h.outboxRepo.SaveBatch(txCtx, msgs); err != nil {
			return err
		}

		h.logger.Info("pending recurrence scheduled",
			"task_id", task.ID(),
			"pending_id", ticket.ID(),
			"scheduled_date", ticket.ScheduledDate(),
			"occurrence_index", ticket.OccurrenceIndex(),
		)

		result = &SchedulePendingResult{
			PendingID:       ticket.ID(),
			ScheduledDate:   ticket.ScheduledDate().Format(scheduledDateFormat),
			OccurrenceIndex: ticket.OccurrenceIndex(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

const scheduledDateFormat = "2006-01-02 15:04 MST"

package commands

import (
	"context"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/cadence/internal/recurrence/domain"
	sharedApplication "github.com/felixgeelhaar/cadence/internal/shared/application"
	"github.com/felixgeelhaar/cadence/internal/shared/infrastructure/outbox"
)

// ProcessPendingCommand materializes every ticket due at Now.
type ProcessPendingCommand struct {
	Now time.Time
}

// ProcessPendingResult summarizes one processing pass.
type ProcessPendingResult struct {
	Materialized int
	Skipped      int
}

// ProcessPendingHandler turns due tickets into tasks. The whole pass runs in
// one transaction so a crash leaves either both the new task and the consumed
// ticket, or neither.
type ProcessPendingHandler struct {
	taskRepo    domain.TaskRepository
	pendingRepo domain.PendingRecurrenceRepository
	outboxRepo  outbox.Repository
	uow         sharedApplication.UnitOfWork
	logger      *slog.Logger
}

// NewProcessPendingHandler creates a new ProcessPendingHandler.
func NewProcessPendingHandler(
	taskRepo domain.TaskRepository,
	pendingRepo domain.PendingRecurrenceRepository,
	outboxRepo outbox.Repository,
	uow sharedApplication.UnitOfWork,
	logger *slog.Logger,
) *ProcessPendingHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProcessPendingHandler{
		taskRepo:    taskRepo,
		pendingRepo: pendingRepo,
		outboxRepo:  outboxRepo,
		uow:         uow,
		logger:      logger,
	}
}

// Handle executes the ProcessPendingCommand.
func (h *ProcessPendingHandler) Handle(ctx context.Context, cmd ProcessPendingCommand) (*ProcessPendingResult, error) {
	now := cmd.Now
	if now.IsZero() {
		now = time.Now()
	}

	result := &ProcessPendingResult{}

	err := sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		due, err := h.pendingRepo.FindDue(txCtx, now)
		if err != nil {
			return err
		}

		for _, ticket := range due {
			// The materialized task reuses the ticket id, so a ticket that
			// already produced a task (crash after insert, or a reprocessed
			// batch) is detected here and only needs consuming.
			existing, err := h.taskRepo.FindByID(txCtx, ticket.ID())
			if err != nil {
				return err
			}
			if existing != nil {
				if err := h.pendingRepo.Delete(txCtx, ticket.ID()); err != nil {
					return err
				}
				result.Skipped++
				continue
			}

			task := domain.MaterializeTask(ticket)
			if err := h.taskRepo.Save(txCtx, task); err != nil {
				return err
			}
			if err := h.pendingRepo.Delete(txCtx, ticket.ID()); err != nil {
				return err
			}

			events := task.DomainEvents()
			sharedApplication.ApplyEventMetadata(events, sharedApplication.NewEventMetadata(ticket.UserID()))
			msgs, err := outbox.FromDomainEvents(events)
			if err != nil {
				return err
			}
			if err := h.outboxRepo.SaveBatch(txCtx, msgs); err != nil {
				return err
			}

			h.logger.Info("pending recurrence materialized",
				"pending_id", ticket.ID(),
				"source_task_id", ticket.SourceTaskID(),
				"due_date", task.DueDate(),
				"occurrence_index", task.OccurrenceIndex(),
			)
			result.Materialized++
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

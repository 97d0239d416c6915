package commands

import (
	"context"
	"log/slog"

	"github.com/felixgeelhaar/cadence/internal/recurrence/domain"
	sharedApplication "github.com/felixgeelhaar/cadence/internal/shared/application"
	"github.com/google/uuid"
)

// CancelPendingCommand removes the scheduling ticket of a source task, ending
// the deferred series without touching existing task occurrences.
type CancelPendingCommand struct {
	SourceTaskID uuid.UUID

	// All removes every ticket regardless of SourceTaskID.
	All bool
}

// CancelPendingHandler handles the CancelPendingCommand.
type CancelPendingHandler struct {
	pendingRepo domain.PendingRecurrenceRepository
	uow         sharedApplication.UnitOfWork
	logger      *slog.Logger
}

// NewCancelPendingHandler creates a new CancelPendingHandler.
func NewCancelPendingHandler(
	pendingRepo domain.PendingRecurrenceRepository,
	uow sharedApplication.UnitOfWork,
	logger *slog.Logger,
) *CancelPendingHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CancelPendingHandler{
		pendingRepo: pendingRepo,
		uow:         uow,
		logger:      logger,
	}
}

// Handle executes the CancelPendingCommand.
func (h *CancelPendingHandler) Handle(ctx context.Context, cmd CancelPendingCommand) error {
	return sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		if cmd.All {
			if err := h.pendingRepo.DeleteAll(txCtx); err != nil {
				return err
			}
			h.logger.Info("all pending recurrences cancelled")
			return nil
		}

		if err := h.pendingRepo.DeleteBySourceTask(txCtx, cmd.SourceTaskID); err != nil {
			return err
		}
		h.logger.Info("pending recurrence cancelled", "source_task_id", cmd.SourceTaskID)
		return nil
	})
}

package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TaskRepository defines the interface for task persistence.
type TaskRepository interface {
	// Save persists a task (create or update).
	Save(ctx context.Context, task *Task) error

	// FindByID finds a task by its ID. Returns nil, nil when absent.
	FindByID(ctx context.Context, id uuid.UUID) (*Task, error)

	// FindByUserID finds all tasks for a user.
	FindByUserID(ctx context.Context, userID uuid.UUID) ([]*Task, error)

	// Delete removes a task.
	Delete(ctx context.Context, id uuid.UUID) error
}

// PendingRecurrenceRepository defines the interface for ticket persistence.
type PendingRecurrenceRepository interface {
	// Save persists a ticket.
	Save(ctx context.Context, ticket *PendingRecurrence) error

	// FindByID finds a ticket by its ID. Returns nil, nil when absent.
	FindByID(ctx context.Context, id uuid.UUID) (*PendingRecurrence, error)

	// FindBySourceTask finds the ticket for a source task, nil when absent.
	FindBySourceTask(ctx context.Context, sourceTaskID uuid.UUID) (*PendingRecurrence, error)

	// FindDue returns all tickets with scheduledDate <= now, ascending by
	// scheduledDate.
	FindDue(ctx context.Context, now time.Time) ([]*PendingRecurrence, error)

	// Delete removes a ticket once it has been consumed.
	Delete(ctx context.Context, id uuid.UUID) error

	// DeleteBySourceTask removes the ticket of a cancelled series.
	DeleteBySourceTask(ctx context.Context, sourceTaskID uuid.UUID) error

	// DeleteAll removes every ticket.
	DeleteAll(ctx context.Context) error
}

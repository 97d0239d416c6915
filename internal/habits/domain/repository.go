package domain

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for habit persistence.
type Repository interface {
	// Save persists a habit with its log and checklist (create or update).
	Save(ctx context.Context, habit *Habit) error

	// FindByID finds a habit by its ID. Returns nil, nil when absent.
	FindByID(ctx context.Context, id uuid.UUID) (*Habit, error)

	// FindByUserID finds all habits for a user.
	FindByUserID(ctx context.Context, userID uuid.UUID) ([]*Habit, error)

	// FindActive returns every non-archived habit, the replenishment scan set.
	FindActive(ctx context.Context) ([]*Habit, error)

	// Delete removes a habit and its log.
	Delete(ctx context.Context, id uuid.UUID) error
}

package domain

import (
	"time"

	sharedDomain "github.com/felixgeelhaar/cadence/internal/shared/domain"
	"github.com/google/uuid"
)

const (
	taskAggregateType   = "Task"
	ticketAggregateType = "PendingRecurrence"
)

// PendingRecurrenceCreated is emitted when a scheduling ticket is inserted.
type PendingRecurrenceCreated struct {
	sharedDomain.BaseEvent
	TicketID        uuid.UUID `json:"ticket_id"`
	SourceTaskID    uuid.UUID `json:"source_task_id"`
	UserID          uuid.UUID `json:"user_id"`
	ScheduledDate   time.Time `json:"scheduled_date"`
	OccurrenceIndex int       `json:"occurrence_index"`
}

// NewPendingRecurrenceCreated creates a PendingRecurrenceCreated event.
func NewPendingRecurrenceCreated(p *PendingRecurrence) *PendingRecurrenceCreated {
	return &PendingRecurrenceCreated{
		BaseEvent:       sharedDomain.NewBaseEvent(p.ID(), ticketAggregateType, "recurrence.pending.created"),
		TicketID:        p.ID(),
		SourceTaskID:    p.SourceTaskID(),
		UserID:          p.UserID(),
		ScheduledDate:   p.ScheduledDate(),
		OccurrenceIndex: p.OccurrenceIndex(),
	}
}

// TaskChanged is emitted when a task is created, completed or materialized,
// so a notification layer can (re)schedule reminders.
type TaskChanged struct {
	sharedDomain.BaseEvent
	TaskID          uuid.UUID `json:"task_id"`
	UserID          uuid.UUID `json:"user_id"`
	Title           string    `json:"title"`
	DueDate         time.Time `json:"due_date"`
	OccurrenceIndex int       `json:"occurrence_index"`
	Completed       bool      `json:"completed"`
}

// NewTaskChanged creates a TaskChanged event.
func NewTaskChanged(t *Task) *TaskChanged {
	return &TaskChanged{
		BaseEvent:       sharedDomain.NewBaseEvent(t.ID(), taskAggregateType, "recurrence.task.changed"),
		TaskID:          t.ID(),
		UserID:          t.UserID(),
		Title:           t.Title(),
		DueDate:         t.DueDate(),
		OccurrenceIndex: t.OccurrenceIndex(),
		Completed:       t.IsCompleted(),
	}
}

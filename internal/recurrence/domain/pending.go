package domain

import (
	"time"

	sharedDomain "github.com/felixgeelhaar/cadence/internal/shared/domain"
	"github.com/google/uuid"
)

// PendingRecurrence is a durable scheduling ticket: an occurrence that is due
// at scheduledDate but not yet materialized into a task. It snapshots every
// field needed to build the new task later, so the source task can change or
// disappear without corrupting the series.
type PendingRecurrence struct {
	sharedDomain.BaseAggregateRoot
	sourceTaskID    uuid.UUID
	userID          uuid.UUID
	scheduledDate   time.Time
	title           string
	description     string
	priority        Priority
	rule            *RecurrenceRule
	tagIDs          []uuid.UUID
	occurrenceIndex int
}

// NewPendingRecurrence snapshots a completed task into a ticket for the
// occurrence due at scheduledDate. The occurrence index is the source's
// index advanced by one.
func NewPendingRecurrence(task *Task, scheduledDate time.Time) *PendingRecurrence {
	ticket := &PendingRecurrence{
		BaseAggregateRoot: sharedDomain.NewBaseAggregateRoot(),
		sourceTaskID:      task.ID(),
		userID:            task.UserID(),
		scheduledDate:     scheduledDate,
		title:             task.Title(),
		description:       task.Description(),
		priority:          task.Priority(),
		rule:              task.Rule(),
		tagIDs:            task.TagIDs(),
		occurrenceIndex:   task.OccurrenceIndex() + 1,
	}

	ticket.AddDomainEvent(NewPendingRecurrenceCreated(ticket))

	return ticket
}

// Getters
func (p *PendingRecurrence) SourceTaskID() uuid.UUID  { return p.sourceTaskID }
func (p *PendingRecurrence) UserID() uuid.UUID        { return p.userID }
func (p *PendingRecurrence) ScheduledDate() time.Time { return p.scheduledDate }
func (p *PendingRecurrence) Title() string            { return p.title }
func (p *PendingRecurrence) Description() string      { return p.description }
func (p *PendingRecurrence) Priority() Priority       { return p.priority }
func (p *PendingRecurrence) Rule() *RecurrenceRule    { return p.rule }
func (p *PendingRecurrence) OccurrenceIndex() int     { return p.occurrenceIndex }

// TagIDs returns a copy of the snapshotted tag references.
func (p *PendingRecurrence) TagIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(p.tagIDs))
	copy(ids, p.tagIDs)
	return ids
}

// IsDue reports whether the ticket's scheduled instant has arrived.
func (p *PendingRecurrence) IsDue(now time.Time) bool {
	return !p.scheduledDate.After(now)
}

// RehydratePendingRecurrence recreates a ticket from persisted state without
// generating events.
func RehydratePendingRecurrence(
	id uuid.UUID,
	sourceTaskID uuid.UUID,
	userID uuid.UUID,
	scheduledDate time.Time,
	title string,
	description string,
	priority Priority,
	rule *RecurrenceRule,
	tagIDs []uuid.UUID,
	occurrenceIndex int,
	createdAt time.Time,
	updatedAt time.Time,
) *PendingRecurrence {
	baseEntity := sharedDomain.RehydrateBaseEntity(id, createdAt, updatedAt)

	return &PendingRecurrence{
		BaseAggregateRoot: sharedDomain.RehydrateBaseAggregateRoot(baseEntity, 0),
		sourceTaskID:      sourceTaskID,
		userID:            userID,
		scheduledDate:     scheduledDate,
		title:             title,
		description:       description,
		priority:          priority,
		rule:              rule,
		tagIDs:            tagIDs,
		occurrenceIndex:   occurrenceIndex,
	}
}

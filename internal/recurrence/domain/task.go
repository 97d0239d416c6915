package domain

import (
	"errors"
	"strings"
	"time"

	sharedDomain "github.com/felixgeelhaar/cadence/internal/shared/domain"
	"github.com/google/uuid"
)

var (
	ErrTaskEmptyTitle       = errors.New("task title cannot be empty")
	ErrTaskAlreadyCompleted = errors.New("task is already completed")
	ErrTaskInvalidPriority  = errors.New("invalid task priority")
)

// Priority represents task importance.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// IsValid checks if the priority is valid.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	default:
		return false
	}
}

// Task is one episodic occurrence of a (possibly recurring) series. Each
// occurrence is a distinct, separately completable record; the next one is
// materialized later from a PendingRecurrence ticket, not at completion time.
type Task struct {
	sharedDomain.BaseAggregateRoot
	userID          uuid.UUID
	title           string
	description     string
	priority        Priority
	dueDate         time.Time
	completedAt     *time.Time
	rule            *RecurrenceRule
	tagIDs          []uuid.UUID
	occurrenceIndex int
}

// NewTask creates a new task due at the given instant.
func NewTask(userID uuid.UUID, title string, dueDate time.Time) (*Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrTaskEmptyTitle
	}

	return &Task{
		BaseAggregateRoot: sharedDomain.NewBaseAggregateRoot(),
		userID:            userID,
		title:             title,
		priority:          PriorityMedium,
		dueDate:           dueDate,
		tagIDs:            make([]uuid.UUID, 0),
		occurrenceIndex:   1,
	}, nil
}

// MaterializeTask builds the next occurrence of a series from a consumed
// ticket. The new task's identity is the ticket's id, so reprocessing the
// same ticket is detectable as "task already exists" and cannot duplicate.
func MaterializeTask(ticket *PendingRecurrence) *Task {
	task := &Task{
		BaseAggregateRoot: sharedDomain.NewBaseAggregateRootWithID(ticket.ID()),
		userID:            ticket.UserID(),
		title:             ticket.Title(),
		description:       ticket.Description(),
		priority:          ticket.Priority(),
		dueDate:           ticket.ScheduledDate(),
		rule:              ticket.Rule(),
		tagIDs:            ticket.TagIDs(),
		occurrenceIndex:   ticket.OccurrenceIndex(),
	}

	task.AddDomainEvent(NewTaskChanged(task))

	return task
}

// Getters
func (t *Task) UserID() uuid.UUID     { return t.userID }
func (t *Task) Title() string         { return t.title }
func (t *Task) Description() string   { return t.description }
func (t *Task) Priority() Priority    { return t.priority }
func (t *Task) DueDate() time.Time    { return t.dueDate }
func (t *Task) Rule() *RecurrenceRule { return t.rule }
func (t *Task) OccurrenceIndex() int  { return t.occurrenceIndex }

// TagIDs returns a copy of the task's tag references.
func (t *Task) TagIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(t.tagIDs))
	copy(ids, t.tagIDs)
	return ids
}

// CompletedAt returns the completion timestamp, nil while open.
func (t *Task) CompletedAt() *time.Time {
	if t.completedAt == nil {
		return nil
	}
	at := *t.completedAt
	return &at
}

// IsCompleted reports whether the task has been completed.
func (t *Task) IsCompleted() bool {
	return t.completedAt != nil
}

// SetDescription updates the description.
func (t *Task) SetDescription(desc string) {
	t.description = strings.TrimSpace(desc)
	t.Touch()
}

// SetPriority updates the priority.
func (t *Task) SetPriority(p Priority) error {
	if !p.IsValid() {
		return ErrTaskInvalidPriority
	}
	t.priority = p
	t.Touch()
	return nil
}

// SetRecurrenceRule attaches or replaces the recurrence rule.
func (t *Task) SetRecurrenceRule(rule *RecurrenceRule) {
	t.rule = rule
	t.Touch()
}

// ClearRecurrenceRule detaches the recurrence rule from the series.
func (t *Task) ClearRecurrenceRule() {
	t.rule = nil
	t.Touch()
}

// SetTags replaces the task's tag references.
func (t *Task) SetTags(tagIDs []uuid.UUID) {
	ids := make([]uuid.UUID, len(tagIDs))
	copy(ids, tagIDs)
	t.tagIDs = ids
	t.Touch()
}

// Complete marks the task completed at the given instant.
func (t *Task) Complete(at time.Time) error {
	if t.completedAt != nil {
		return ErrTaskAlreadyCompleted
	}
	completed := at
	t.completedAt = &completed
	t.Touch()
	t.AddDomainEvent(NewTaskChanged(t))
	return nil
}

// RecurrenceAnchor returns the instant the next occurrence is computed from,
// according to the rule's repeat mode. A Monday task completed the following
// Friday still reschedules relative to Monday under from_original_date.
func (t *Task) RecurrenceAnchor() time.Time {
	if t.rule != nil && t.rule.RepeatMode() == RepeatFromCompletionDate && t.completedAt != nil {
		return *t.completedAt
	}
	return t.dueDate
}

// RehydrateTask recreates a task from persisted state without generating events.
func RehydrateTask(
	id uuid.UUID,
	userID uuid.UUID,
	title string,
	description string,
	priority Priority,
	dueDate time.Time,
	completedAt *time.Time,
	rule *RecurrenceRule,
	tagIDs []uuid.UUID,
	occurrenceIndex int,
	createdAt time.Time,
	updatedAt time.Time,
) *Task {
	baseEntity := sharedDomain.RehydrateBaseEntity(id, createdAt, updatedAt)

	return &Task{
		BaseAggregateRoot: sharedDomain.RehydrateBaseAggregateRoot(baseEntity, 0),
		userID:            userID,
		title:             title,
		description:       description,
		priority:          priority,
		dueDate:           dueDate,
		completedAt:       completedAt,
		rule:              rule,
		tagIDs:            tagIDs,
		occurrenceIndex:   occurrenceIndex,
	}
}

package domain

import (
	"errors"
	"strings"
	"time"

	recurrence "github.com/felixgeelhaar/cadence/internal/recurrence/domain"
	sharedDomain "github.com/felixgeelhaar/cadence/internal/shared/domain"
	"github.com/google/uuid"
)

var (
	ErrHabitEmptyName     = errors.New("habit name cannot be empty")
	ErrHabitArchived      = errors.New("habit is archived")
	ErrHabitAlreadyLogged = errors.New("habit already logged for this date")
	ErrChecklistItemEmpty = errors.New("checklist item title cannot be empty")
)

// LogStatus records how a habit window was resolved.
type LogStatus string

const (
	LogStatusCompleted LogStatus = "completed"
	LogStatusSkipped   LogStatus = "skipped"
)

// Habit is a persistent recurring activity. Unlike a task series, a habit is
// one record forever: recurrence only resets its current due window.
type Habit struct {
	sharedDomain.BaseAggregateRoot
	userID              uuid.UUID
	name                string
	description         string
	rule                *recurrence.RecurrenceRule
	defaultLoc          *time.Location
	currentInstanceDate *time.Time
	notificationFired   bool
	snoozedUntil        *time.Time
	lastCompletedDate   *time.Time
	currentStreak       int
	longestStreak       int
	archived            bool
	log                 []*LogEntry
	checklist           []*ChecklistItem
}

// NewHabit creates a new habit. A nil rule means the habit is due every day.
func NewHabit(userID uuid.UUID, name string, rule *recurrence.RecurrenceRule) (*Habit, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrHabitEmptyName
	}

	return &Habit{
		BaseAggregateRoot: sharedDomain.NewBaseAggregateRoot(),
		userID:            userID,
		name:              name,
		rule:              rule,
		log:               make([]*LogEntry, 0),
		checklist:         make([]*ChecklistItem, 0),
	}, nil
}

// Getters
func (h *Habit) UserID() uuid.UUID                   { return h.userID }
func (h *Habit) Name() string                        { return h.name }
func (h *Habit) Description() string                 { return h.description }
func (h *Habit) Rule() *recurrence.RecurrenceRule    { return h.rule }
func (h *Habit) NotificationFired() bool             { return h.notificationFired }
func (h *Habit) CurrentStreak() int                  { return h.currentStreak }
func (h *Habit) LongestStreak() int                  { return h.longestStreak }
func (h *Habit) IsArchived() bool                    { return h.archived }
func (h *Habit) Log() []*LogEntry                    { return h.log }
func (h *Habit) Checklist() []*ChecklistItem         { return h.checklist }

// CurrentInstanceDate returns the date the current due window started, nil
// before the first replenishment.
func (h *Habit) CurrentInstanceDate() *time.Time {
	return copyTime(h.currentInstanceDate)
}

// SnoozedUntil returns the snooze deadline, nil when not snoozed.
func (h *Habit) SnoozedUntil() *time.Time {
	return copyTime(h.snoozedUntil)
}

// LastCompletedDate returns the most recent completion date.
func (h *Habit) LastCompletedDate() *time.Time {
	return copyTime(h.lastCompletedDate)
}

// Location returns the zone habit calendar decisions are made in: the rule's
// zone when a rule is set, otherwise the configured default zone, falling
// back to the system zone.
func (h *Habit) Location() *time.Location {
	if h.rule != nil {
		return h.rule.Location()
	}
	if h.defaultLoc != nil {
		return h.defaultLoc
	}
	return time.Local
}

// SetDefaultLocation sets the zone used for calendar decisions when no rule
// is attached. The rule's zone always wins when a rule is present.
func (h *Habit) SetDefaultLocation(loc *time.Location) {
	h.defaultLoc = loc
}

// SetDescription updates the description.
func (h *Habit) SetDescription(desc string) {
	h.description = strings.TrimSpace(desc)
	h.Touch()
}

// SetRule attaches or replaces the recurrence rule.
func (h *Habit) SetRule(rule *recurrence.RecurrenceRule) {
	h.rule = rule
	h.Touch()
}

// ClearRule removes the rule; the habit becomes due every day.
func (h *Habit) ClearRule() {
	h.rule = nil
	h.Touch()
}

// Archive excludes the habit from replenishment and scheduling.
func (h *Habit) Archive() {
	if !h.archived {
		h.archived = true
		h.Touch()
	}
}

// Unarchive restores an archived habit.
func (h *Habit) Unarchive() {
	if h.archived {
		h.archived = false
		h.Touch()
	}
}

// IsScheduledOn reports whether the given day is a due day for this habit.
// No rule means daily.
func (h *Habit) IsScheduledOn(date time.Time) bool {
	if h.archived {
		return false
	}
	if h.rule == nil {
		return true
	}
	return h.rule.ScheduledOn(date)
}

// ReplenishedOn reports whether the current window already started on the
// given day.
func (h *Habit) ReplenishedOn(date time.Time) bool {
	if h.currentInstanceDate == nil {
		return false
	}
	return sameDay(h.currentInstanceDate.In(h.Location()), date.In(h.Location()))
}

// PriorWindowResolved reports whether the previous due window was completed
// or explicitly skipped. A completion or skip logged on a later day than the
// window opened still resolves it. The very first window (no instance date
// yet) counts as resolved.
func (h *Habit) PriorWindowResolved() bool {
	if h.currentInstanceDate == nil {
		return true
	}

	loc := h.Location()
	instance := h.currentInstanceDate.In(loc)

	if last := h.lastCompletedDate; last != nil && !dayBefore(last.In(loc), instance) {
		return true
	}
	for _, e := range h.log {
		if e.status == LogStatusSkipped && !dayBefore(e.loggedOn.In(loc), instance) {
			return true
		}
	}
	return false
}

// Replenish opens a new due window on the given day: sets the instance date,
// clears notification and snooze state, and resets checklist completion.
func (h *Habit) Replenish(today time.Time) {
	day := today.In(h.Location())
	instance := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, h.Location())

	h.currentInstanceDate = &instance
	h.notificationFired = false
	h.snoozedUntil = nil
	for _, item := range h.checklist {
		item.done = false
	}
	h.Touch()

	h.AddDomainEvent(NewHabitReplenished(h))
}

// MarkNotificationFired records that the window's reminder went out.
func (h *Habit) MarkNotificationFired() {
	h.notificationFired = true
	h.Touch()
}

// Snooze defers the window's reminder until the given instant.
func (h *Habit) Snooze(until time.Time) {
	u := until
	h.snoozedUntil = &u
	h.Touch()
}

// LogCompletion appends a completion entry for the given day.
func (h *Habit) LogCompletion(date time.Time, note, mood string) (*LogEntry, error) {
	return h.logEntry(date, LogStatusCompleted, note, mood)
}

// LogSkip appends an explicit skip entry for the given day. A skipped window
// still counts as resolved for replenishment gating.
func (h *Habit) LogSkip(date time.Time, reason string) (*LogEntry, error) {
	return h.logEntry(date, LogStatusSkipped, reason, "")
}

func (h *Habit) logEntry(date time.Time, status LogStatus, note, mood string) (*LogEntry, error) {
	if h.archived {
		return nil, ErrHabitArchived
	}
	if h.entryOn(date) != nil {
		return nil, ErrHabitAlreadyLogged
	}

	entry := &LogEntry{
		id:       uuid.New(),
		habitID:  h.ID(),
		loggedOn: date,
		status:   status,
		note:     note,
		mood:     mood,
	}
	h.log = append(h.log, entry)

	if status == LogStatusCompleted {
		completed := date
		h.lastCompletedDate = &completed
		h.updateStreak(date)
	}
	h.Touch()

	h.AddDomainEvent(NewHabitLogged(h, entry))

	return entry, nil
}

// CompletedOn reports whether a completion entry exists for the given day.
func (h *Habit) CompletedOn(date time.Time) bool {
	entry := h.entryOn(date)
	return entry != nil && entry.status == LogStatusCompleted
}

// SkippedOn reports whether an explicit skip entry exists for the given day.
func (h *Habit) SkippedOn(date time.Time) bool {
	entry := h.entryOn(date)
	return entry != nil && entry.status == LogStatusSkipped
}

func (h *Habit) entryOn(date time.Time) *LogEntry {
	loc := h.Location()
	for _, e := range h.log {
		if sameDay(e.loggedOn.In(loc), date.In(loc)) {
			return e
		}
	}
	return nil
}

// SetStreaks overrides the streak counters with externally derived values.
func (h *Habit) SetStreaks(current, longest int) {
	h.currentStreak = current
	if longest > h.longestStreak {
		h.longestStreak = longest
	}
	h.Touch()
}

// updateStreak walks backwards from the latest completion over scheduled days
// only; gaps on non-scheduled days do not break the chain.
func (h *Habit) updateStreak(latest time.Time) {
	streak := 0
	day := latest.In(h.Location())

	for streak < 3650 {
		if !h.CompletedOn(day) {
			break
		}
		streak++
		day = day.AddDate(0, 0, -1)

		skipped := 0
		for !h.IsScheduledOn(day) && skipped < 366 {
			day = day.AddDate(0, 0, -1)
			skipped++
		}
	}

	h.currentStreak = streak
	if streak > h.longestStreak {
		h.longestStreak = streak
	}
}

// AddChecklistItem appends a sub-item to the habit's window checklist.
func (h *Habit) AddChecklistItem(title string) (*ChecklistItem, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrChecklistItemEmpty
	}

	item := &ChecklistItem{
		id:       uuid.New(),
		habitID:  h.ID(),
		title:    title,
		position: len(h.checklist),
	}
	h.checklist = append(h.checklist, item)
	h.Touch()
	return item, nil
}

// CompleteChecklistItem marks a sub-item done within the current window.
func (h *Habit) CompleteChecklistItem(itemID uuid.UUID) bool {
	for _, item := range h.checklist {
		if item.id == itemID {
			item.done = true
			h.Touch()
			return true
		}
	}
	return false
}

func sameDay(t1, t2 time.Time) bool {
	y1, m1, d1 := t1.Date()
	y2, m2, d2 := t2.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// dayBefore reports whether t1's calendar day precedes t2's. Both must
// already be in the comparison zone.
func dayBefore(t1, t2 time.Time) bool {
	y1, m1, d1 := t1.Date()
	y2, m2, d2 := t2.Date()
	if y1 != y2 {
		return y1 < y2
	}
	if m1 != m2 {
		return m1 < m2
	}
	return d1 < d2
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// LogEntry is one append-only completion or skip record.
type LogEntry struct {
	id       uuid.UUID
	habitID  uuid.UUID
	loggedOn time.Time
	status   LogStatus
	note     string
	mood     string
}

// Getters
func (e *LogEntry) ID() uuid.UUID       { return e.id }
func (e *LogEntry) HabitID() uuid.UUID  { return e.habitID }
func (e *LogEntry) LoggedOn() time.Time { return e.loggedOn }
func (e *LogEntry) Status() LogStatus   { return e.status }
func (e *LogEntry) Note() string        { return e.note }
func (e *LogEntry) Mood() string        { return e.mood }

// RehydrateLogEntry recreates a log entry from persisted state.
func RehydrateLogEntry(id, habitID uuid.UUID, loggedOn time.Time, status LogStatus, note, mood string) *LogEntry {
	return &LogEntry{
		id:       id,
		habitID:  habitID,
		loggedOn: loggedOn,
		status:   status,
		note:     note,
		mood:     mood,
	}
}

// ChecklistItem is a sub-item whose completion resets every window.
type ChecklistItem struct {
	id       uuid.UUID
	habitID  uuid.UUID
	title    string
	position int
	done     bool
}

// Getters
func (c *ChecklistItem) ID() uuid.UUID      { return c.id }
func (c *ChecklistItem) HabitID() uuid.UUID { return c.habitID }
func (c *ChecklistItem) Title() string      { return c.title }
func (c *ChecklistItem) Position() int      { return c.position }
func (c *ChecklistItem) IsDone() bool       { return c.done }

// RehydrateChecklistItem recreates a checklist item from persisted state.
func RehydrateChecklistItem(id, habitID uuid.UUID, title string, position int, done bool) *ChecklistItem {
	return &ChecklistItem{
		id:       id,
		habitID:  habitID,
		title:    title,
		position: position,
		done:     done,
	}
}

// RehydrateHabit recreates a habit from persisted state without generating events.
func RehydrateHabit(
	id uuid.UUID,
	userID uuid.UUID,
	name string,
	description string,
	rule *recurrence.RecurrenceRule,
	currentInstanceDate *time.Time,
	notificationFired bool,
	snoozedUntil *time.Time,
	lastCompletedDate *time.Time,
	currentStreak int,
	longestStreak int,
	archived bool,
	createdAt time.Time,
	updatedAt time.Time,
	log []*LogEntry,
	checklist []*ChecklistItem,
) *Habit {
	baseEntity := sharedDomain.RehydrateBaseEntity(id, createdAt, updatedAt)

	return &Habit{
		BaseAggregateRoot:   sharedDomain.RehydrateBaseAggregateRoot(baseEntity, 0),
		userID:              userID,
		name:                name,
		description:         description,
		rule:                rule,
		currentInstanceDate: currentInstanceDate,
		notificationFired:   notificationFired,
		snoozedUntil:        snoozedUntil,
		lastCompletedDate:   lastCompletedDate,
		currentStreak:       currentStreak,
		longestStreak:       longestStreak,
		archived:            archived,
		log:                 log,
		checklist:           checklist,
	}
}

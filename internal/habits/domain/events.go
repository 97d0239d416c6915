package domain

import (
	"time"

	sharedDomain "github.com/felixgeelhaar/cadence/internal/shared/domain"
	"github.com/google/uuid"
)

const habitAggregateType = "Habit"

// HabitReplenished is emitted when a new due window opens.
type HabitReplenished struct {
	sharedDomain.BaseEvent
	HabitID      uuid.UUID `json:"habit_id"`
	UserID       uuid.UUID `json:"user_id"`
	Name         string    `json:"name"`
	InstanceDate time.Time `json:"instance_date"`
}

// NewHabitReplenished creates a HabitReplenished event.
func NewHabitReplenished(h *Habit) *HabitReplenished {
	instance := time.Time{}
	if d := h.CurrentInstanceDate(); d != nil {
		instance = *d
	}
	return &HabitReplenished{
		BaseEvent:    sharedDomain.NewBaseEvent(h.ID(), habitAggregateType, "habits.habit.replenished"),
		HabitID:      h.ID(),
		UserID:       h.UserID(),
		Name:         h.Name(),
		InstanceDate: instance,
	}
}

// HabitLogged is emitted when a window is resolved by completion or skip.
type HabitLogged struct {
	sharedDomain.BaseEvent
	HabitID       uuid.UUID `json:"habit_id"`
	UserID        uuid.UUID `json:"user_id"`
	EntryID       uuid.UUID `json:"entry_id"`
	LoggedOn      time.Time `json:"logged_on"`
	Status        LogStatus `json:"status"`
	CurrentStreak int       `json:"current_streak"`
}

// NewHabitLogged creates a HabitLogged event.
func NewHabitLogged(h *Habit, entry *LogEntry) *HabitLogged {
	return &HabitLogged{
		BaseEvent:     sharedDomain.NewBaseEvent(h.ID(), habitAggregateType, "habits.habit.logged"),
		HabitID:       h.ID(),
		UserID:        h.UserID(),
		EntryID:       entry.ID(),
		LoggedOn:      entry.LoggedOn(),
		Status:        entry.Status(),
		CurrentStreak: h.CurrentStreak(),
	}
}

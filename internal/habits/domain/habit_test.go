package domain

import (
	"testing"
	"time"

	recurrence "github.com/felixgeelhaar/cadence/internal/recurrence/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func weekdayHabit(t *testing.T, days ...time.Weekday) *Habit {
	t.Helper()
	rule, err := recurrence.NewRecurrenceRule(recurrence.RuleParams{
		Frequency:  recurrence.FrequencyWeekly,
		DaysOfWeek: days,
		TimeZone:   "UTC",
	})
	require.NoError(t, err)
	habit, err := NewHabit(uuid.New(), "Morning run", rule)
	require.NoError(t, err)
	return habit
}

func dailyHabit(t *testing.T) *Habit {
	t.Helper()
	rule, err := recurrence.NewRecurrenceRule(recurrence.RuleParams{
		Frequency: recurrence.FrequencyDaily,
		TimeZone:  "UTC",
	})
	require.NoError(t, err)
	habit, err := NewHabit(uuid.New(), "Meditate", rule)
	require.NoError(t, err)
	return habit
}

func TestNewHabit(t *testing.T) {
	t.Run("creates habit", func(t *testing.T) {
		userID := uuid.New()
		habit, err := NewHabit(userID, "  Meditate  ", nil)

		require.NoError(t, err)
		assert.Equal(t, userID, habit.UserID())
		assert.Equal(t, "Meditate", habit.Name())
		assert.Nil(t, habit.Rule())
		assert.Nil(t, habit.CurrentInstanceDate())
		assert.Equal(t, 0, habit.CurrentStreak())
		assert.False(t, habit.IsArchived())
	})

	t.Run("rejects empty name", func(t *testing.T) {
		_, err := NewHabit(uuid.New(), "   ", nil)

		assert.ErrorIs(t, err, ErrHabitEmptyName)
	})
}

func TestHabitIsScheduledOn(t *testing.T) {
	monday := time.Date(2025, 1, 6, 12, 0, 0, 0, time.UTC)
	tuesday := monday.AddDate(0, 0, 1)

	t.Run("follows the rule's weekday set", func(t *testing.T) {
		habit := weekdayHabit(t, time.Monday, time.Wednesday, time.Friday)

		assert.True(t, habit.IsScheduledOn(monday))
		assert.False(t, habit.IsScheduledOn(tuesday))
	})

	t.Run("no rule means every day", func(t *testing.T) {
		habit, err := NewHabit(uuid.New(), "Meditate", nil)
		require.NoError(t, err)

		assert.True(t, habit.IsScheduledOn(tuesday))
	})

	t.Run("archived habits are never scheduled", func(t *testing.T) {
		habit := dailyHabit(t)
		habit.Archive()

		assert.False(t, habit.IsScheduledOn(monday))
	})
}

func TestHabitReplenish(t *testing.T) {
	today := time.Date(2025, 1, 6, 10, 30, 0, 0, time.UTC)

	t.Run("opens a window at midnight of the given day", func(t *testing.T) {
		habit := dailyHabit(t)

		habit.Replenish(today)

		require.NotNil(t, habit.CurrentInstanceDate())
		assert.True(t, habit.CurrentInstanceDate().Equal(time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)))
		assert.True(t, habit.ReplenishedOn(today))
		assert.False(t, habit.ReplenishedOn(today.AddDate(0, 0, 1)))
		assert.Len(t, habit.DomainEvents(), 1)
	})

	t.Run("clears notification, snooze and checklist state", func(t *testing.T) {
		habit := dailyHabit(t)
		item, err := habit.AddChecklistItem("Lay out shoes")
		require.NoError(t, err)
		require.True(t, habit.CompleteChecklistItem(item.ID()))
		habit.MarkNotificationFired()
		habit.Snooze(today.Add(time.Hour))

		habit.Replenish(today)

		assert.False(t, habit.NotificationFired())
		assert.Nil(t, habit.SnoozedUntil())
		assert.False(t, habit.Checklist()[0].IsDone())
	})
}

func TestHabitPriorWindowResolved(t *testing.T) {
	today := time.Date(2025, 1, 6, 10, 0, 0, 0, time.UTC)

	t.Run("first window counts as resolved", func(t *testing.T) {
		habit := dailyHabit(t)

		assert.True(t, habit.PriorWindowResolved())
	})

	t.Run("unlogged window is unresolved", func(t *testing.T) {
		habit := dailyHabit(t)
		habit.Replenish(today)

		assert.False(t, habit.PriorWindowResolved())
	})

	t.Run("completion resolves the window", func(t *testing.T) {
		habit := dailyHabit(t)
		habit.Replenish(today)

		_, err := habit.LogCompletion(today, "", "")
		require.NoError(t, err)

		assert.True(t, habit.PriorWindowResolved())
	})

	t.Run("explicit skip resolves the window too", func(t *testing.T) {
		habit := dailyHabit(t)
		habit.Replenish(today)

		_, err := habit.LogSkip(today, "travel day")
		require.NoError(t, err)

		assert.True(t, habit.PriorWindowResolved())
		assert.True(t, habit.SkippedOn(today))
		assert.Equal(t, 0, habit.CurrentStreak())
	})

	t.Run("a completion on a later day still resolves the window", func(t *testing.T) {
		// M/W/F window opened Monday, completed Tuesday evening. The window
		// must not stay blocked forever.
		habit := weekdayHabit(t, time.Monday, time.Wednesday, time.Friday)
		monday := time.Date(2025, 1, 6, 10, 0, 0, 0, time.UTC)
		habit.Replenish(monday)

		_, err := habit.LogCompletion(monday.AddDate(0, 0, 1), "", "")
		require.NoError(t, err)

		assert.True(t, habit.PriorWindowResolved())
	})

	t.Run("a skip on a later day resolves the window", func(t *testing.T) {
		habit := weekdayHabit(t, time.Monday, time.Wednesday, time.Friday)
		monday := time.Date(2025, 1, 6, 10, 0, 0, 0, time.UTC)
		habit.Replenish(monday)

		_, err := habit.LogSkip(monday.AddDate(0, 0, 2), "travel")
		require.NoError(t, err)

		assert.True(t, habit.PriorWindowResolved())
	})

	t.Run("a completion before the window opened does not resolve it", func(t *testing.T) {
		habit := dailyHabit(t)
		_, err := habit.LogCompletion(today.AddDate(0, 0, -1), "", "")
		require.NoError(t, err)

		habit.Replenish(today)

		assert.False(t, habit.PriorWindowResolved())
	})
}

func TestHabitLocation(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	t.Run("rule zone wins over the default", func(t *testing.T) {
		habit := dailyHabit(t)
		habit.SetDefaultLocation(berlin)

		assert.Equal(t, time.UTC, habit.Location())
	})

	t.Run("rule-less habit uses the default zone", func(t *testing.T) {
		habit, err := NewHabit(uuid.New(), "Meditate", nil)
		require.NoError(t, err)
		habit.SetDefaultLocation(berlin)

		assert.Equal(t, berlin, habit.Location())
	})
}

func TestHabitLog(t *testing.T) {
	today := time.Date(2025, 1, 6, 19, 0, 0, 0, time.UTC)

	t.Run("completion records entry and last completed date", func(t *testing.T) {
		habit := dailyHabit(t)

		entry, err := habit.LogCompletion(today, "felt great", "happy")

		require.NoError(t, err)
		assert.Equal(t, habit.ID(), entry.HabitID())
		assert.Equal(t, LogStatusCompleted, entry.Status())
		assert.Equal(t, "felt great", entry.Note())
		assert.Equal(t, "happy", entry.Mood())
		assert.True(t, habit.CompletedOn(today))
		require.NotNil(t, habit.LastCompletedDate())
		assert.True(t, habit.LastCompletedDate().Equal(today))
	})

	t.Run("rejects a second entry for the same day", func(t *testing.T) {
		habit := dailyHabit(t)
		_, err := habit.LogCompletion(today, "", "")
		require.NoError(t, err)

		_, err = habit.LogCompletion(today.Add(2*time.Hour), "", "")
		assert.ErrorIs(t, err, ErrHabitAlreadyLogged)

		_, err = habit.LogSkip(today, "")
		assert.ErrorIs(t, err, ErrHabitAlreadyLogged)
	})

	t.Run("rejects logging on an archived habit", func(t *testing.T) {
		habit := dailyHabit(t)
		habit.Archive()

		_, err := habit.LogCompletion(today, "", "")
		assert.ErrorIs(t, err, ErrHabitArchived)
	})
}

func TestHabitStreak(t *testing.T) {
	t.Run("daily completions extend the streak", func(t *testing.T) {
		habit := dailyHabit(t)
		start := time.Date(2025, 1, 6, 8, 0, 0, 0, time.UTC)

		for i := 0; i < 3; i++ {
			_, err := habit.LogCompletion(start.AddDate(0, 0, i), "", "")
			require.NoError(t, err)
		}

		assert.Equal(t, 3, habit.CurrentStreak())
		assert.Equal(t, 3, habit.LongestStreak())
	})

	t.Run("non-scheduled gaps do not break the chain", func(t *testing.T) {
		habit := weekdayHabit(t, time.Monday, time.Wednesday, time.Friday)
		monday := time.Date(2025, 1, 6, 8, 0, 0, 0, time.UTC)
		wednesday := monday.AddDate(0, 0, 2)

		_, err := habit.LogCompletion(monday, "", "")
		require.NoError(t, err)
		_, err = habit.LogCompletion(wednesday, "", "")
		require.NoError(t, err)

		assert.Equal(t, 2, habit.CurrentStreak())
	})

	t.Run("a missed scheduled day resets the current streak", func(t *testing.T) {
		habit := weekdayHabit(t, time.Monday, time.Wednesday, time.Friday)
		monday := time.Date(2025, 1, 6, 8, 0, 0, 0, time.UTC)
		friday := monday.AddDate(0, 0, 4)

		_, err := habit.LogCompletion(monday, "", "")
		require.NoError(t, err)
		// Wednesday missed.
		_, err = habit.LogCompletion(friday, "", "")
		require.NoError(t, err)

		assert.Equal(t, 1, habit.CurrentStreak())
		assert.Equal(t, 1, habit.LongestStreak())
	})

	t.Run("longest streak survives a reset", func(t *testing.T) {
		habit := dailyHabit(t)
		start := time.Date(2025, 1, 6, 8, 0, 0, 0, time.UTC)

		for i := 0; i < 3; i++ {
			_, err := habit.LogCompletion(start.AddDate(0, 0, i), "", "")
			require.NoError(t, err)
		}
		// Day 3 missed.
		_, err := habit.LogCompletion(start.AddDate(0, 0, 4), "", "")
		require.NoError(t, err)

		assert.Equal(t, 1, habit.CurrentStreak())
		assert.Equal(t, 3, habit.LongestStreak())
	})

	t.Run("SetStreaks never lowers the longest streak", func(t *testing.T) {
		habit := dailyHabit(t)
		habit.SetStreaks(4, 10)
		habit.SetStreaks(2, 5)

		assert.Equal(t, 2, habit.CurrentStreak())
		assert.Equal(t, 10, habit.LongestStreak())
	})
}

func TestHabitChecklist(t *testing.T) {
	habit := dailyHabit(t)

	_, err := habit.AddChecklistItem("   ")
	assert.ErrorIs(t, err, ErrChecklistItemEmpty)

	first, err := habit.AddChecklistItem("Lay out shoes")
	require.NoError(t, err)
	second, err := habit.AddChecklistItem("Fill bottle")
	require.NoError(t, err)

	assert.Equal(t, 0, first.Position())
	assert.Equal(t, 1, second.Position())

	assert.True(t, habit.CompleteChecklistItem(first.ID()))
	assert.False(t, habit.CompleteChecklistItem(uuid.New()))
	assert.True(t, habit.Checklist()[0].IsDone())
	assert.False(t, habit.Checklist()[1].IsDone())
}

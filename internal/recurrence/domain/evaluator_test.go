package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustRule(t *testing.T, p RuleParams) *RecurrenceRule {
	t.Helper()
	rule, err := NewRecurrenceRule(p)
	require.NoError(t, err)
	return rule
}

func TestNextOccurrence(t *testing.T) {
	t.Run("daily advances by interval days", func(t *testing.T) {
		rule := mustRule(t, RuleParams{Frequency: FrequencyDaily, Interval: 3, TimeZone: "UTC"})
		anchor := time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)

		next, ok := rule.NextOccurrence(anchor)

		require.True(t, ok)
		assert.True(t, next.Equal(time.Date(2025, 1, 9, 9, 0, 0, 0, time.UTC)))
	})

	t.Run("custom behaves as daily with arbitrary interval", func(t *testing.T) {
		rule := mustRule(t, RuleParams{Frequency: FrequencyCustom, Interval: 10, TimeZone: "UTC"})
		anchor := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

		next, ok := rule.NextOccurrence(anchor)

		require.True(t, ok)
		assert.True(t, next.Equal(time.Date(2025, 1, 11, 0, 0, 0, 0, time.UTC)))
	})

	t.Run("weekly from a scheduled day recurs on the same day next cycle", func(t *testing.T) {
		rule := mustRule(t, RuleParams{
			Frequency:  FrequencyWeekly,
			DaysOfWeek: []time.Weekday{time.Monday, time.Wednesday, time.Friday},
			TimeZone:   "UTC",
		})
		// Monday. An M/W/F item due Monday recurs the following Monday,
		// not Wednesday of the same week.
		anchor := time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)

		next, ok := rule.NextOccurrence(anchor)

		require.True(t, ok)
		assert.Equal(t, time.Monday, next.Weekday())
		assert.True(t, next.Equal(time.Date(2025, 1, 13, 9, 0, 0, 0, time.UTC)))
	})

	t.Run("weekly scans forward to the next weekday in the set", func(t *testing.T) {
		rule := mustRule(t, RuleParams{
			Frequency:  FrequencyWeekly,
			DaysOfWeek: []time.Weekday{time.Monday},
			TimeZone:   "UTC",
		})
		// Wednesday anchor: one week lands on Wednesday, scan reaches Monday.
		anchor := time.Date(2025, 1, 8, 12, 0, 0, 0, time.UTC)

		next, ok := rule.NextOccurrence(anchor)

		require.True(t, ok)
		assert.True(t, next.Equal(time.Date(2025, 1, 20, 12, 0, 0, 0, time.UTC)))
	})

	t.Run("weekly honors the interval in weeks", func(t *testing.T) {
		rule := mustRule(t, RuleParams{
			Frequency:  FrequencyWeekly,
			Interval:   2,
			DaysOfWeek: []time.Weekday{time.Monday},
			TimeZone:   "UTC",
		})
		anchor := time.Date(2025, 1, 6, 8, 0, 0, 0, time.UTC)

		next, ok := rule.NextOccurrence(anchor)

		require.True(t, ok)
		assert.True(t, next.Equal(time.Date(2025, 1, 20, 8, 0, 0, 0, time.UTC)))
	})

	t.Run("monthly clamps day of month to 28", func(t *testing.T) {
		rule := mustRule(t, RuleParams{Frequency: FrequencyMonthly, DayOfMonth: 31, TimeZone: "UTC"})
		anchor := time.Date(2025, 1, 31, 10, 30, 0, 0, time.UTC)

		next, ok := rule.NextOccurrence(anchor)

		require.True(t, ok)
		assert.True(t, next.Equal(time.Date(2025, 2, 28, 10, 30, 0, 0, time.UTC)))
	})

	t.Run("monthly without explicit day uses the anchor day", func(t *testing.T) {
		rule := mustRule(t, RuleParams{Frequency: FrequencyMonthly, TimeZone: "UTC"})
		anchor := time.Date(2025, 1, 15, 18, 0, 0, 0, time.UTC)

		next, ok := rule.NextOccurrence(anchor)

		require.True(t, ok)
		assert.True(t, next.Equal(time.Date(2025, 2, 15, 18, 0, 0, 0, time.UTC)))
	})

	t.Run("monthly clamps an anchor day past 28", func(t *testing.T) {
		rule := mustRule(t, RuleParams{Frequency: FrequencyMonthly, TimeZone: "UTC"})
		anchor := time.Date(2025, 1, 30, 7, 0, 0, 0, time.UTC)

		next, ok := rule.NextOccurrence(anchor)

		require.True(t, ok)
		assert.True(t, next.Equal(time.Date(2025, 2, 28, 7, 0, 0, 0, time.UTC)))
	})

	t.Run("yearly shifts Feb 29 to Feb 28 in non-leap years", func(t *testing.T) {
		rule := mustRule(t, RuleParams{Frequency: FrequencyYearly, TimeZone: "UTC"})
		anchor := time.Date(2024, 2, 29, 9, 0, 0, 0, time.UTC)

		next, ok := rule.NextOccurrence(anchor)

		require.True(t, ok)
		assert.True(t, next.Equal(time.Date(2025, 2, 28, 9, 0, 0, 0, time.UTC)))
	})

	t.Run("yearly keeps Feb 29 when the target year is leap", func(t *testing.T) {
		rule := mustRule(t, RuleParams{Frequency: FrequencyYearly, Interval: 4, TimeZone: "UTC"})
		anchor := time.Date(2024, 2, 29, 9, 0, 0, 0, time.UTC)

		next, ok := rule.NextOccurrence(anchor)

		require.True(t, ok)
		assert.True(t, next.Equal(time.Date(2028, 2, 29, 9, 0, 0, 0, time.UTC)))
	})

	t.Run("snaps to the preferred time in the rule's zone", func(t *testing.T) {
		loc, err := time.LoadLocation("America/New_York")
		require.NoError(t, err)

		rule := mustRule(t, RuleParams{
			Frequency:     FrequencyDaily,
			PreferredTime: &ClockTime{Hour: 9, Minute: 0},
			TimeZone:      "America/New_York",
		})
		anchor := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

		next, ok := rule.NextOccurrence(anchor)

		require.True(t, ok)
		assert.True(t, next.Equal(time.Date(2025, 3, 11, 9, 0, 0, 0, loc)))
	})

	t.Run("nil rule produces no occurrence", func(t *testing.T) {
		var rule *RecurrenceRule

		_, ok := rule.NextOccurrence(time.Now())

		assert.False(t, ok)
	})

	t.Run("the anchor's wall zone does not change the result", func(t *testing.T) {
		tokyo, err := time.LoadLocation("Asia/Tokyo")
		require.NoError(t, err)

		rule := mustRule(t, RuleParams{Frequency: FrequencyDaily, TimeZone: "UTC"})
		anchor := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

		fromUTC, ok1 := rule.NextOccurrence(anchor)
		fromTokyo, ok2 := rule.NextOccurrence(anchor.In(tokyo))

		require.True(t, ok1)
		require.True(t, ok2)
		assert.True(t, fromUTC.Equal(fromTokyo))
	})

	t.Run("is deterministic for the same anchor", func(t *testing.T) {
		rule := mustRule(t, RuleParams{
			Frequency:  FrequencyWeekly,
			DaysOfWeek: []time.Weekday{time.Tuesday, time.Thursday},
			TimeZone:   "UTC",
		})
		anchor := time.Date(2025, 4, 1, 6, 0, 0, 0, time.UTC)

		first, ok1 := rule.NextOccurrence(anchor)
		second, ok2 := rule.NextOccurrence(anchor)

		require.True(t, ok1)
		require.True(t, ok2)
		assert.True(t, first.Equal(second))
	})
}

func TestOccurrences(t *testing.T) {
	t.Run("returns successive occurrences", func(t *testing.T) {
		rule := mustRule(t, RuleParams{Frequency: FrequencyDaily, Interval: 2, TimeZone: "UTC"})
		from := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)

		occurrences := rule.Occurrences(from, 3)

		require.Len(t, occurrences, 3)
		assert.True(t, occurrences[0].Equal(time.Date(2025, 1, 3, 8, 0, 0, 0, time.UTC)))
		assert.True(t, occurrences[1].Equal(time.Date(2025, 1, 5, 8, 0, 0, 0, time.UTC)))
		assert.True(t, occurrences[2].Equal(time.Date(2025, 1, 7, 8, 0, 0, 0, time.UTC)))
	})

	t.Run("non-positive limit returns nothing", func(t *testing.T) {
		rule := mustRule(t, RuleParams{Frequency: FrequencyDaily, TimeZone: "UTC"})

		assert.Nil(t, rule.Occurrences(time.Now(), 0))
	})
}

func TestScheduledOn(t *testing.T) {
	t.Run("daily schedules every day", func(t *testing.T) {
		rule := mustRule(t, RuleParams{Frequency: FrequencyDaily, Interval: 3, TimeZone: "UTC"})

		assert.True(t, rule.ScheduledOn(time.Date(2025, 1, 7, 0, 0, 0, 0, time.UTC)))
	})

	t.Run("weekly schedules only days in the set", func(t *testing.T) {
		rule := mustRule(t, RuleParams{
			Frequency:  FrequencyWeekly,
			DaysOfWeek: []time.Weekday{time.Monday, time.Wednesday, time.Friday},
			TimeZone:   "UTC",
		})

		assert.True(t, rule.ScheduledOn(time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC)))  // Wednesday
		assert.False(t, rule.ScheduledOn(time.Date(2025, 1, 7, 0, 0, 0, 0, time.UTC))) // Tuesday
	})

	t.Run("monthly matches the clamped day of month", func(t *testing.T) {
		rule := mustRule(t, RuleParams{Frequency: FrequencyMonthly, DayOfMonth: 31, TimeZone: "UTC"})

		assert.True(t, rule.ScheduledOn(time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC)))
		assert.False(t, rule.ScheduledOn(time.Date(2025, 2, 27, 0, 0, 0, 0, time.UTC)))
	})

	t.Run("nil rule schedules every day", func(t *testing.T) {
		var rule *RecurrenceRule

		assert.True(t, rule.ScheduledOn(time.Now()))
	})
}

func TestExpectedWeeklyCount(t *testing.T) {
	tests := []struct {
		name     string
		params   RuleParams
		expected float64
	}{
		{
			name:     "daily",
			params:   RuleParams{Frequency: FrequencyDaily},
			expected: 7.0,
		},
		{
			name:     "every other day",
			params:   RuleParams{Frequency: FrequencyDaily, Interval: 2},
			expected: 3.5,
		},
		{
			name: "weekly three days",
			params: RuleParams{
				Frequency:  FrequencyWeekly,
				DaysOfWeek: []time.Weekday{time.Monday, time.Wednesday, time.Friday},
			},
			expected: 3.0,
		},
		{
			name:     "monthly",
			params:   RuleParams{Frequency: FrequencyMonthly},
			expected: 12.0 / 52.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := mustRule(t, tt.params)
			assert.InDelta(t, tt.expected, rule.ExpectedWeeklyCount(), 0.0001)
		})
	}
}

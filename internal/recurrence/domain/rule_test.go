package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRecurrenceRule(t *testing.T) {
	t.Run("creates daily rule with defaults", func(t *testing.T) {
		rule, err := NewRecurrenceRule(RuleParams{Frequency: FrequencyDaily})

		require.NoError(t, err)
		assert.Equal(t, FrequencyDaily, rule.Frequency())
		assert.Equal(t, 1, rule.Interval())
		assert.Equal(t, RepeatFromOriginalDate, rule.RepeatMode())
		assert.False(t, rule.RecreateIfIncomplete())
		assert.Nil(t, rule.EndDate())
		assert.Nil(t, rule.PreferredTime())
	})

	t.Run("rejects invalid frequency", func(t *testing.T) {
		_, err := NewRecurrenceRule(RuleParams{Frequency: "hourly"})

		assert.ErrorIs(t, err, ErrInvalidFrequency)
	})

	t.Run("rejects negative interval", func(t *testing.T) {
		_, err := NewRecurrenceRule(RuleParams{Frequency: FrequencyDaily, Interval: -1})

		assert.ErrorIs(t, err, ErrInvalidInterval)
	})

	t.Run("rejects weekly rule without weekdays", func(t *testing.T) {
		_, err := NewRecurrenceRule(RuleParams{Frequency: FrequencyWeekly})

		assert.ErrorIs(t, err, ErrWeeklyNeedsDays)
	})

	t.Run("rejects day of month above 31", func(t *testing.T) {
		_, err := NewRecurrenceRule(RuleParams{Frequency: FrequencyMonthly, DayOfMonth: 32})

		assert.ErrorIs(t, err, ErrInvalidDayOfMonth)
	})

	t.Run("rejects invalid repeat mode", func(t *testing.T) {
		_, err := NewRecurrenceRule(RuleParams{Frequency: FrequencyDaily, RepeatMode: "from_whenever"})

		assert.ErrorIs(t, err, ErrInvalidRepeatMode)
	})

	t.Run("rejects invalid preferred time", func(t *testing.T) {
		_, err := NewRecurrenceRule(RuleParams{
			Frequency:     FrequencyDaily,
			PreferredTime: &ClockTime{Hour: 24, Minute: 0},
		})

		assert.ErrorIs(t, err, ErrInvalidClockTime)
	})

	t.Run("deduplicates weekdays", func(t *testing.T) {
		rule, err := NewRecurrenceRule(RuleParams{
			Frequency:  FrequencyWeekly,
			DaysOfWeek: []time.Weekday{time.Monday, time.Friday, time.Monday},
		})

		require.NoError(t, err)
		assert.Equal(t, []time.Weekday{time.Monday, time.Friday}, rule.DaysOfWeek())
	})

	t.Run("resolves named time zone", func(t *testing.T) {
		rule, err := NewRecurrenceRule(RuleParams{
			Frequency: FrequencyDaily,
			TimeZone:  "America/New_York",
		})

		require.NoError(t, err)
		assert.Equal(t, "America/New_York", rule.TimeZone())
		assert.Equal(t, "America/New_York", rule.Location().String())
	})

	t.Run("getters return defensive copies", func(t *testing.T) {
		end := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)
		rule, err := NewRecurrenceRule(RuleParams{
			Frequency:     FrequencyWeekly,
			DaysOfWeek:    []time.Weekday{time.Monday},
			EndDate:       &end,
			PreferredTime: &ClockTime{Hour: 9, Minute: 30},
		})
		require.NoError(t, err)

		*rule.EndDate() = time.Time{}
		rule.PreferredTime().Hour = 0
		rule.DaysOfWeek()[0] = time.Sunday

		assert.True(t, rule.EndDate().Equal(end))
		assert.Equal(t, 9, rule.PreferredTime().Hour)
		assert.Equal(t, []time.Weekday{time.Monday}, rule.DaysOfWeek())
	})
}

func TestRecurrenceRuleJSON(t *testing.T) {
	t.Run("round trips through JSON", func(t *testing.T) {
		end := time.Date(2026, 6, 30, 23, 59, 0, 0, time.UTC)
		rule, err := NewRecurrenceRule(RuleParams{
			Frequency:            FrequencyWeekly,
			Interval:             2,
			DaysOfWeek:           []time.Weekday{time.Monday, time.Friday},
			RepeatMode:           RepeatFromCompletionDate,
			RecreateIfIncomplete: true,
			MaxOccurrences:       10,
			EndDate:              &end,
			PreferredTime:        &ClockTime{Hour: 7, Minute: 15},
			TimeZone:             "Europe/Berlin",
		})
		require.NoError(t, err)

		data, err := json.Marshal(rule)
		require.NoError(t, err)

		var decoded RecurrenceRule
		require.NoError(t, json.Unmarshal(data, &decoded))

		assert.Equal(t, FrequencyWeekly, decoded.Frequency())
		assert.Equal(t, 2, decoded.Interval())
		assert.Equal(t, []time.Weekday{time.Monday, time.Friday}, decoded.DaysOfWeek())
		assert.Equal(t, RepeatFromCompletionDate, decoded.RepeatMode())
		assert.True(t, decoded.RecreateIfIncomplete())
		assert.Equal(t, 10, decoded.MaxOccurrences())
		require.NotNil(t, decoded.EndDate())
		assert.True(t, decoded.EndDate().Equal(end))
		require.NotNil(t, decoded.PreferredTime())
		assert.Equal(t, ClockTime{Hour: 7, Minute: 15}, *decoded.PreferredTime())
		assert.Equal(t, "Europe/Berlin", decoded.TimeZone())
	})

	t.Run("encodes weekdays as 1=Sunday through 7=Saturday", func(t *testing.T) {
		rule, err := NewRecurrenceRule(RuleParams{
			Frequency:  FrequencyWeekly,
			DaysOfWeek: []time.Weekday{time.Sunday, time.Monday, time.Saturday},
		})
		require.NoError(t, err)

		data, err := json.Marshal(rule)
		require.NoError(t, err)

		var wire struct {
			DaysOfWeek []int `json:"days_of_week"`
		}
		require.NoError(t, json.Unmarshal(data, &wire))
		assert.Equal(t, []int{1, 2, 7}, wire.DaysOfWeek)
	})

	t.Run("rejects weekday numbers outside 1..7", func(t *testing.T) {
		var rule RecurrenceRule
		err := json.Unmarshal([]byte(`{"frequency":"weekly","days_of_week":[0,3]}`), &rule)

		assert.ErrorIs(t, err, ErrWeeklyNeedsDays)
	})

	t.Run("revalidates on unmarshal", func(t *testing.T) {
		var rule RecurrenceRule
		err := json.Unmarshal([]byte(`{"frequency":"weekly"}`), &rule)

		assert.ErrorIs(t, err, ErrWeeklyNeedsDays)
	})
}

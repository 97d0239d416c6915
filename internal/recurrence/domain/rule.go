package domain

import (
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrInvalidFrequency  = errors.New("invalid recurrence frequency")
	ErrInvalidInterval   = errors.New("recurrence interval must be at least 1")
	ErrWeeklyNeedsDays   = errors.New("weekly recurrence requires at least one weekday")
	ErrInvalidDayOfMonth = errors.New("day of month must be between 1 and 31")
	ErrInvalidRepeatMode = errors.New("invalid repeat mode")
	ErrInvalidClockTime  = errors.New("preferred time must be a valid hour and minute")
)

// Frequency represents how often a series recurs.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
	// FrequencyCustom behaves as daily with an arbitrary interval.
	FrequencyCustom Frequency = "custom"
)

// IsValid checks if the frequency is valid.
func (f Frequency) IsValid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyYearly, FrequencyCustom:
		return true
	default:
		return false
	}
}

// RepeatMode selects the anchor for the next occurrence.
type RepeatMode string

const (
	// RepeatFromOriginalDate anchors on the scheduled due date, no matter how
	// late the item was actually completed.
	RepeatFromOriginalDate RepeatMode = "from_original_date"
	// RepeatFromCompletionDate anchors on the actual completion timestamp.
	RepeatFromCompletionDate RepeatMode = "from_completion_date"
)

// IsValid checks if the repeat mode is valid.
func (m RepeatMode) IsValid() bool {
	return m == RepeatFromOriginalDate || m == RepeatFromCompletionDate
}

// ClockTime is an hour/minute of day applied to computed occurrences so
// recurring items keep a stable time-of-day.
type ClockTime struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

// IsValid checks the clock time is within a single day.
func (c ClockTime) IsValid() bool {
	return c.Hour >= 0 && c.Hour <= 23 && c.Minute >= 0 && c.Minute <= 59
}

// maxMonthDay is the largest day-of-month guaranteed to exist in every month.
const maxMonthDay = 28

// RecurrenceRule describes when a series recurs. It is immutable once
// attached to a series; all calendar math happens in the rule's own time
// zone, never the evaluating machine's zone.
type RecurrenceRule struct {
	frequency            Frequency
	interval             int
	daysOfWeek           []time.Weekday
	dayOfMonth           int
	repeatMode           RepeatMode
	recreateIfIncomplete bool
	maxOccurrences       int
	endDate              *time.Time
	preferredTime        *ClockTime
	timeZone             string
	location             *time.Location
}

// RuleParams carries the inputs for NewRecurrenceRule.
type RuleParams struct {
	Frequency            Frequency
	Interval             int
	DaysOfWeek           []time.Weekday
	DayOfMonth           int
	RepeatMode           RepeatMode
	RecreateIfIncomplete bool
	MaxOccurrences       int
	EndDate              *time.Time
	PreferredTime        *ClockTime
	TimeZone             string
}

// NewRecurrenceRule validates the parameters and builds an immutable rule.
func NewRecurrenceRule(p RuleParams) (*RecurrenceRule, error) {
	if !p.Frequency.IsValid() {
		return nil, ErrInvalidFrequency
	}

	interval := p.Interval
	if interval == 0 {
		interval = 1
	}
	if interval < 1 {
		return nil, ErrInvalidInterval
	}

	if p.Frequency == FrequencyWeekly && len(p.DaysOfWeek) == 0 {
		return nil, ErrWeeklyNeedsDays
	}

	if p.DayOfMonth < 0 || p.DayOfMonth > 31 {
		return nil, ErrInvalidDayOfMonth
	}

	mode := p.RepeatMode
	if mode == "" {
		mode = RepeatFromOriginalDate
	}
	if !mode.IsValid() {
		return nil, ErrInvalidRepeatMode
	}

	if p.PreferredTime != nil && !p.PreferredTime.IsValid() {
		return nil, ErrInvalidClockTime
	}

	rule := &RecurrenceRule{
		frequency:            p.Frequency,
		interval:             interval,
		daysOfWeek:           dedupWeekdays(p.DaysOfWeek),
		dayOfMonth:           p.DayOfMonth,
		repeatMode:           mode,
		recreateIfIncomplete: p.RecreateIfIncomplete,
		maxOccurrences:       p.MaxOccurrences,
		timeZone:             p.TimeZone,
		location:             resolveLocation(p.TimeZone),
	}
	if p.EndDate != nil {
		end := *p.EndDate
		rule.endDate = &end
	}
	if p.PreferredTime != nil {
		pt := *p.PreferredTime
		rule.preferredTime = &pt
	}

	return rule, nil
}

// Getters
func (r *RecurrenceRule) Frequency() Frequency        { return r.frequency }
func (r *RecurrenceRule) Interval() int               { return r.interval }
func (r *RecurrenceRule) DayOfMonth() int             { return r.dayOfMonth }
func (r *RecurrenceRule) RepeatMode() RepeatMode      { return r.repeatMode }
func (r *RecurrenceRule) RecreateIfIncomplete() bool  { return r.recreateIfIncomplete }
func (r *RecurrenceRule) MaxOccurrences() int         { return r.maxOccurrences }
func (r *RecurrenceRule) TimeZone() string            { return r.timeZone }
func (r *RecurrenceRule) Location() *time.Location    { return r.location }

// DaysOfWeek returns a copy of the weekday set.
func (r *RecurrenceRule) DaysOfWeek() []time.Weekday {
	days := make([]time.Weekday, len(r.daysOfWeek))
	copy(days, r.daysOfWeek)
	return days
}

// EndDate returns the optional hard stop for the series.
func (r *RecurrenceRule) EndDate() *time.Time {
	if r.endDate == nil {
		return nil
	}
	end := *r.endDate
	return &end
}

// PreferredTime returns the optional stable time-of-day.
func (r *RecurrenceRule) PreferredTime() *ClockTime {
	if r.preferredTime == nil {
		return nil
	}
	pt := *r.preferredTime
	return &pt
}

func (r *RecurrenceRule) containsWeekday(day time.Weekday) bool {
	for _, d := range r.daysOfWeek {
		if d == day {
			return true
		}
	}
	return false
}

func dedupWeekdays(days []time.Weekday) []time.Weekday {
	seen := make(map[time.Weekday]bool, len(days))
	out := make([]time.Weekday, 0, len(days))
	for _, d := range days {
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	return out
}

// resolveLocation loads the rule's zone, falling back to the system zone only
// when the stored identifier is unrecognized.
func resolveLocation(timeZone string) *time.Location {
	if timeZone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(timeZone)
	if err != nil {
		return time.Local
	}
	return loc
}

// ruleJSON is the persisted/wire form of a rule. Weekdays use the calendar
// numbering 1=Sunday..7=Saturday.
type ruleJSON struct {
	Frequency            Frequency  `json:"frequency"`
	Interval             int        `json:"interval"`
	DaysOfWeek           []int      `json:"days_of_week,omitempty"`
	DayOfMonth           int        `json:"day_of_month,omitempty"`
	RepeatMode           RepeatMode `json:"repeat_mode"`
	RecreateIfIncomplete bool       `json:"recreate_if_incomplete"`
	MaxOccurrences       int        `json:"max_occurrences,omitempty"`
	EndDate              *time.Time `json:"end_date,omitempty"`
	PreferredTime        *ClockTime `json:"preferred_time,omitempty"`
	TimeZone             string     `json:"time_zone,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (r *RecurrenceRule) MarshalJSON() ([]byte, error) {
	out := ruleJSON{
		Frequency:            r.frequency,
		Interval:             r.interval,
		DayOfMonth:           r.dayOfMonth,
		RepeatMode:           r.repeatMode,
		RecreateIfIncomplete: r.recreateIfIncomplete,
		MaxOccurrences:       r.maxOccurrences,
		EndDate:              r.EndDate(),
		PreferredTime:        r.PreferredTime(),
		TimeZone:             r.timeZone,
	}
	for _, d := range r.daysOfWeek {
		out.DaysOfWeek = append(out.DaysOfWeek, int(d)+1)
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler and re-validates the rule.
func (r *RecurrenceRule) UnmarshalJSON(data []byte) error {
	var in ruleJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	days := make([]time.Weekday, 0, len(in.DaysOfWeek))
	for _, n := range in.DaysOfWeek {
		if n < 1 || n > 7 {
			return ErrWeeklyNeedsDays
		}
		days = append(days, time.Weekday(n-1))
	}

	rule, err := NewRecurrenceRule(RuleParams{
		Frequency:            in.Frequency,
		Interval:             in.Interval,
		DaysOfWeek:           days,
		DayOfMonth:           in.DayOfMonth,
		RepeatMode:           in.RepeatMode,
		RecreateIfIncomplete: in.RecreateIfIncomplete,
		MaxOccurrences:       in.MaxOccurrences,
		EndDate:              in.EndDate,
		PreferredTime:        in.PreferredTime,
		TimeZone:             in.TimeZone,
	})
	if err != nil {
		return err
	}

	*r = *rule
	return nil
}

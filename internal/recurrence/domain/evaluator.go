package domain

import "time"

// NextOccurrence computes the next calendar occurrence strictly derived from
// the given anchor instant. It is pure and deterministic: the same rule and
// anchor always produce the same occurrence, computed in the rule's own zone.
//
// Series policy (endDate, maxOccurrences) is deliberately not evaluated here;
// the scheduler decides whether the occurrence is allowed.
func (r *RecurrenceRule) NextOccurrence(after time.Time) (time.Time, bool) {
	if r == nil || !r.frequency.IsValid() {
		return time.Time{}, false
	}

	anchor := after.In(r.location)

	var next time.Time
	switch r.frequency {
	case FrequencyDaily, FrequencyCustom:
		next = anchor.AddDate(0, 0, r.interval)
	case FrequencyWeekly:
		next = r.nextWeekly(anchor)
	case FrequencyMonthly:
		next = r.nextMonthly(anchor)
	case FrequencyYearly:
		next = r.nextYearly(anchor)
	}

	return r.snapTime(next), true
}

// Occurrences returns up to limit successive occurrences starting after from.
func (r *RecurrenceRule) Occurrences(from time.Time, limit int) []time.Time {
	if limit <= 0 {
		return nil
	}

	out := make([]time.Time, 0, limit)
	cursor := from
	for i := 0; i < limit; i++ {
		next, ok := r.NextOccurrence(cursor)
		if !ok {
			break
		}
		out = append(out, next)
		cursor = next
	}
	return out
}

// nextWeekly advances the anchor by interval weeks, then forward to the next
// date on/after that whose weekday is in the rule's set. An item due Monday
// on an M/W/F rule recurs the following Monday, not the following Wednesday.
func (r *RecurrenceRule) nextWeekly(anchor time.Time) time.Time {
	candidate := anchor.AddDate(0, 0, 7*r.interval)
	for i := 0; i < 7; i++ {
		if r.containsWeekday(candidate.Weekday()) {
			return candidate
		}
		candidate = candidate.AddDate(0, 0, 1)
	}
	return candidate
}

// nextMonthly advances interval months to the same day-of-month, clamped to
// 28 so the occurrence exists in every month.
func (r *RecurrenceRule) nextMonthly(anchor time.Time) time.Time {
	day := r.dayOfMonth
	if day == 0 {
		day = anchor.Day()
	}
	if day > maxMonthDay {
		day = maxMonthDay
	}

	return time.Date(anchor.Year(), anchor.Month()+time.Month(r.interval), day,
		anchor.Hour(), anchor.Minute(), anchor.Second(), 0, r.location)
}

// nextYearly advances interval years to the same month/day. Feb-29 anchors
// shift to Feb-28 in non-leap target years.
func (r *RecurrenceRule) nextYearly(anchor time.Time) time.Time {
	year := anchor.Year() + r.interval
	day := anchor.Day()
	if anchor.Month() == time.February && day == 29 && !isLeapYear(year) {
		day = 28
	}

	return time.Date(year, anchor.Month(), day,
		anchor.Hour(), anchor.Minute(), anchor.Second(), 0, r.location)
}

// snapTime applies the preferred time-of-day, if any, in the rule's zone.
func (r *RecurrenceRule) snapTime(t time.Time) time.Time {
	if r.preferredTime == nil {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(),
		r.preferredTime.Hour, r.preferredTime.Minute, 0, 0, r.location)
}

// ScheduledOn reports whether the given calendar day is a day this rule
// schedules, evaluated in the rule's zone. Daily and custom rules schedule
// every day (interval pacing is enforced by occurrence math, not day gating).
func (r *RecurrenceRule) ScheduledOn(date time.Time) bool {
	if r == nil {
		return true
	}

	local := date.In(r.location)
	switch r.frequency {
	case FrequencyDaily, FrequencyCustom:
		return true
	case FrequencyWeekly:
		return r.containsWeekday(local.Weekday())
	case FrequencyMonthly:
		if r.dayOfMonth == 0 {
			return true
		}
		day := r.dayOfMonth
		if day > maxMonthDay {
			day = maxMonthDay
		}
		return local.Day() == day
	case FrequencyYearly:
		// Without an anchor month/day the rule cannot narrow to a single
		// calendar day; treat every day as schedulable.
		return true
	default:
		return false
	}
}

// ExpectedWeeklyCount returns how many completions per week this rule expects.
// It feeds the momentum analytics bucket.
func (r *RecurrenceRule) ExpectedWeeklyCount() float64 {
	interval := float64(r.interval)
	switch r.frequency {
	case FrequencyWeekly:
		return float64(len(r.daysOfWeek)) / interval
	case FrequencyMonthly:
		return 12.0 / 52.0 / interval
	case FrequencyYearly:
		return 1.0 / 52.0 / interval
	default:
		return 7.0 / interval
	}
}

func isLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// Package domain contains pure derivations over habit completion history:
// streaks, consistency, momentum, and milestone progress. Nothing here
// mutates state.
package domain

import "time"

// DaySchedule answers whether a calendar day is a scheduled day. Habits with
// no rule schedule every day.
type DaySchedule interface {
	IsScheduledOn(date time.Time) bool
}

// EveryDay is the schedule of a rule-less habit.
type EveryDay struct{}

func (EveryDay) IsScheduledOn(time.Time) bool { return true }

// CurrentStreak counts consecutive scheduled days with a completion, walking
// backward from today. A gap on a non-scheduled day does not break the chain:
// an M/W/F habit completed Monday and Wednesday has a streak of 2 on
// Wednesday. An unresolved today does not break the streak either; the walk
// starts at the most recent scheduled day that has a completion.
func CurrentStreak(completions []time.Time, schedule DaySchedule, today time.Time, loc *time.Location) int {
	if schedule == nil {
		schedule = EveryDay{}
	}
	if loc == nil {
		loc = time.Local
	}

	done := completionDays(completions, loc)
	day := dateOnly(today.In(loc))

	// Today-grace: an open window today is not yet a miss.
	if !done[day] {
		day = previousScheduledDay(schedule, day)
	}

	streak := 0
	for streak < 3650 {
		if !done[day] {
			break
		}
		streak++
		day = previousScheduledDay(schedule, day)
	}

	return streak
}

// LongestStreak scans the full history for the longest run of completed
// scheduled days.
func LongestStreak(completions []time.Time, schedule DaySchedule, today time.Time, loc *time.Location) int {
	if schedule == nil {
		schedule = EveryDay{}
	}
	if loc == nil {
		loc = time.Local
	}

	done := completionDays(completions, loc)
	if len(done) == 0 {
		return 0
	}

	earliest := dateOnly(today.In(loc))
	for day := range done {
		if day.Before(earliest) {
			earliest = day
		}
	}

	end := dateOnly(today.In(loc))
	longest, run := 0, 0
	for day := earliest; !day.After(end); day = day.AddDate(0, 0, 1) {
		if !schedule.IsScheduledOn(day) {
			continue
		}
		if done[day] {
			run++
			if run > longest {
				longest = run
			}
		} else if !day.Equal(end) {
			// An unresolved today is a grace, not a break.
			run = 0
		}
	}

	return longest
}

func previousScheduledDay(schedule DaySchedule, day time.Time) time.Time {
	day = day.AddDate(0, 0, -1)
	for i := 0; i < 366; i++ {
		if schedule.IsScheduledOn(day) {
			return day
		}
		day = day.AddDate(0, 0, -1)
	}
	return day
}

func completionDays(completions []time.Time, loc *time.Location) map[time.Time]bool {
	days := make(map[time.Time]bool, len(completions))
	for _, c := range completions {
		days[dateOnly(c.In(loc))] = true
	}
	return days
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

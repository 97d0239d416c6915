package domain

import "time"

// Momentum is a categorical read on recent pace versus the rule's expectation.
type Momentum string

const (
	MomentumAccelerating Momentum = "accelerating"
	MomentumStrong       Momentum = "strong"
	MomentumSteady       Momentum = "steady"
	MomentumSlowing      Momentum = "slowing"
	MomentumStagnant     Momentum = "stagnant"
)

// ComputeMomentum buckets the ratio of last-7-day completions to the expected
// weekly count.
func ComputeMomentum(completions []time.Time, expectedWeekly float64, now time.Time) Momentum {
	recent := CompletionsSince(completions, now.AddDate(0, 0, -7), now)

	if expectedWeekly <= 0 {
		if recent > 0 {
			return MomentumStrong
		}
		return MomentumStagnant
	}

	ratio := float64(recent) / expectedWeekly
	switch {
	case ratio >= 1.2:
		return MomentumAccelerating
	case ratio >= 1.0:
		return MomentumStrong
	case ratio >= 0.7:
		return MomentumSteady
	case ratio >= 0.4:
		return MomentumSlowing
	default:
		return MomentumStagnant
	}
}

// CompletionsSince counts completions in the half-open window (from, to].
func CompletionsSince(completions []time.Time, from, to time.Time) int {
	count := 0
	for _, c := range completions {
		if c.After(from) && !c.After(to) {
			count++
		}
	}
	return count
}

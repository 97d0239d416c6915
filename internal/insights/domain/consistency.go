package domain

import (
	"math"
	"sort"
	"time"
)

// ConsistencyScore measures how evenly spaced completions are: 1 minus the
// normalized standard deviation of inter-completion gaps, clamped to [0, 1].
// Perfectly regular completions score 1. Fewer than two completions report 0.
func ConsistencyScore(completions []time.Time, loc *time.Location) float64 {
	if loc == nil {
		loc = time.Local
	}

	days := uniqueSortedDays(completions, loc)
	if len(days) < 2 {
		return 0
	}

	gaps := make([]float64, 0, len(days)-1)
	for i := 1; i < len(days); i++ {
		gaps = append(gaps, days[i].Sub(days[i-1]).Hours()/24)
	}

	mean := 0.0
	for _, g := range gaps {
		mean += g
	}
	mean /= float64(len(gaps))
	if mean == 0 {
		return 1
	}

	variance := 0.0
	for _, g := range gaps {
		d := g - mean
		variance += d * d
	}
	variance /= float64(len(gaps))

	normalized := math.Sqrt(variance) / mean
	score := 1 - normalized
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

func uniqueSortedDays(completions []time.Time, loc *time.Location) []time.Time {
	seen := make(map[time.Time]bool, len(completions))
	days := make([]time.Time, 0, len(completions))
	for _, c := range completions {
		day := dateOnly(c.In(loc))
		if !seen[day] {
			seen[day] = true
			days = append(days, day)
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}

package domain

// milestoneLadder is the fixed set of streak thresholds worth celebrating.
var milestoneLadder = []int{7, 14, 21, 30, 50, 75, 100, 150, 200, 365}

// NextMilestone returns the next streak threshold and the fractional progress
// toward it. Past the top of the ladder it reports the final threshold with
// progress 1.
func NextMilestone(streak int) (target int, progress float64) {
	if streak < 0 {
		streak = 0
	}

	for _, m := range milestoneLadder {
		if streak < m {
			return m, float64(streak) / float64(m)
		}
	}

	top := milestoneLadder[len(milestoneLadder)-1]
	return top, 1
}

// Milestones returns a copy of the full milestone ladder.
func Milestones() []int {
	out := make([]int, len(milestoneLadder))
	copy(out, milestoneLadder)
	return out
}

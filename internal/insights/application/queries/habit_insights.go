package queries

import (
	"context"
	"errors"
	"time"

	habitsDomain "github.com/felixgeelhaar/cadence/internal/habits/domain"
	"github.com/felixgeelhaar/cadence/internal/insights/domain"
	"github.com/google/uuid"
)

var ErrHabitNotFound = errors.New("habit not found")

// HabitInsightsQuery requests the derived analytics for one habit.
type HabitInsightsQuery struct {
	HabitID uuid.UUID
	Now     time.Time
}

// HabitInsights is the read model: streaks, consistency, momentum, and
// milestone progress derived from the completion log.
type HabitInsights struct {
	HabitID           uuid.UUID
	Name              string
	CurrentStreak     int
	LongestStreak     int
	ConsistencyScore  float64
	Momentum          domain.Momentum
	CompletionsWeek   int
	TotalCompletions  int
	NextMilestone     int
	MilestoneProgress float64
}

// HabitInsightsHandler handles the HabitInsightsQuery.
type HabitInsightsHandler struct {
	habitRepo  habitsDomain.Repository
	defaultLoc *time.Location
}

// NewHabitInsightsHandler creates a new HabitInsightsHandler. defaultLoc is
// the zone applied to habits without a rule; nil falls back to the system
// zone.
func NewHabitInsightsHandler(habitRepo habitsDomain.Repository, defaultLoc *time.Location) *HabitInsightsHandler {
	return &HabitInsightsHandler{habitRepo: habitRepo, defaultLoc: defaultLoc}
}

// Handle executes the HabitInsightsQuery.
func (h *HabitInsightsHandler) Handle(ctx context.Context, query HabitInsightsQuery) (*HabitInsights, error) {
	habit, err := h.habitRepo.FindByID(ctx, query.HabitID)
	if err != nil {
		return nil, err
	}
	if habit == nil {
		return nil, ErrHabitNotFound
	}
	habit.SetDefaultLocation(h.defaultLoc)

	now := query.Now
	if now.IsZero() {
		now = time.Now()
	}

	completions := completionTimes(habit)
	loc := habit.Location()

	expectedWeekly := 7.0
	if rule := habit.Rule(); rule != nil {
		expectedWeekly = rule.ExpectedWeeklyCount()
	}

	current := domain.CurrentStreak(completions, habit, now, loc)
	longest := domain.LongestStreak(completions, habit, now, loc)
	if longest < habit.LongestStreak() {
		longest = habit.LongestStreak()
	}
	target, progress := domain.NextMilestone(current)

	return &HabitInsights{
		HabitID:           habit.ID(),
		Name:              habit.Name(),
		CurrentStreak:     current,
		LongestStreak:     longest,
		ConsistencyScore:  domain.ConsistencyScore(completions, loc),
		Momentum:          domain.ComputeMomentum(completions, expectedWeekly, now),
		CompletionsWeek:   domain.CompletionsSince(completions, now.AddDate(0, 0, -7), now),
		TotalCompletions:  len(completions),
		NextMilestone:     target,
		MilestoneProgress: progress,
	}, nil
}

func completionTimes(habit *habitsDomain.Habit) []time.Time {
	entries := habit.Log()
	out := make([]time.Time, 0, len(entries))
	for _, e := range entries {
		if e.Status() == habitsDomain.LogStatusCompleted {
			out = append(out, e.LoggedOn())
		}
	}
	return out
}

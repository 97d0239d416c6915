package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/felixgeelhaar/cadence/internal/habits/domain"
	sharedApplication "github.com/felixgeelhaar/cadence/internal/shared/application"
	"github.com/felixgeelhaar/cadence/internal/shared/infrastructure/outbox"
	"github.com/google/uuid"
)

var ErrHabitNotFound = errors.New("habit not found")

// Cutoff is the "start of day" boundary for replenishment, an hour and minute
// evaluated in each habit's own zone. Before the cutoff the previous day's
// window is still open.
type Cutoff struct {
	Hour   int
	Minute int
}

// ParseCutoff parses a "HH:MM" cutoff string.
func ParseCutoff(s string) (Cutoff, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return Cutoff{}, fmt.Errorf("invalid cutoff %q: want HH:MM", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return Cutoff{}, fmt.Errorf("invalid cutoff hour in %q", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return Cutoff{}, fmt.Errorf("invalid cutoff minute in %q", s)
	}
	return Cutoff{Hour: hour, Minute: minute}, nil
}

// instant returns the cutoff instant on the given day in the given zone.
func (c Cutoff) instant(day time.Time, loc *time.Location) time.Time {
	local := day.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), c.Hour, c.Minute, 0, 0, loc)
}

// ReplenishmentResult summarizes one replenishment pass.
type ReplenishmentResult struct {
	Scanned     int
	Replenished int
}

// ReplenishmentService opens new habit due windows. It is a batch scan with a
// per-record decision, run from the worker tick; cost is linear in habit count.
type ReplenishmentService struct {
	habitRepo  domain.Repository
	outboxRepo outbox.Repository
	uow        sharedApplication.UnitOfWork
	cutoff     Cutoff
	defaultLoc *time.Location
	logger     *slog.Logger
}

// NewReplenishmentService creates a new ReplenishmentService. defaultLoc is
// the zone applied to habits without a rule; nil falls back to the system
// zone.
func NewReplenishmentService(
	habitRepo domain.Repository,
	outboxRepo outbox.Repository,
	uow sharedApplication.UnitOfWork,
	cutoff Cutoff,
	defaultLoc *time.Location,
	logger *slog.Logger,
) *ReplenishmentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReplenishmentService{
		habitRepo:  habitRepo,
		outboxRepo: outboxRepo,
		uow:        uow,
		cutoff:     cutoff,
		defaultLoc: defaultLoc,
		logger:     logger,
	}
}

// ProcessReplenishments scans every active habit and opens a new window for
// each one that is eligible at now. A habit replenishes at most once per
// calendar day, and only when:
//  1. now is at or past today's cutoff in the habit's zone,
//  2. the habit has not already replenished today,
//  3. the prior window was completed or skipped (or this is the first window),
//  4. today is a day the habit's rule schedules (no rule means daily).
func (s *ReplenishmentService) ProcessReplenishments(ctx context.Context, now time.Time) (*ReplenishmentResult, error) {
	if now.IsZero() {
		now = time.Now()
	}

	result := &ReplenishmentResult{}

	err := sharedApplication.WithUnitOfWork(ctx, s.uow, func(txCtx context.Context) error {
		habits, err := s.habitRepo.FindActive(txCtx)
		if err != nil {
			return err
		}
		result.Scanned = len(habits)

		for _, habit := range habits {
			habit.SetDefaultLocation(s.defaultLoc)
			if !s.eligible(habit, now) {
				continue
			}

			if err := s.replenish(txCtx, habit, now); err != nil {
				return err
			}
			result.Replenished++
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// ReplenishNow opens a new window for one habit immediately, bypassing every
// gating condition. Administrative and testing path.
func (s *ReplenishmentService) ReplenishNow(ctx context.Context, habitID uuid.UUID) error {
	return sharedApplication.WithUnitOfWork(ctx, s.uow, func(txCtx context.Context) error {
		habit, err := s.habitRepo.FindByID(txCtx, habitID)
		if err != nil {
			return err
		}
		if habit == nil {
			return ErrHabitNotFound
		}
		habit.SetDefaultLocation(s.defaultLoc)

		return s.replenish(txCtx, habit, time.Now())
	})
}

func (s *ReplenishmentService) eligible(habit *domain.Habit, now time.Time) bool {
	loc := habit.Location()
	local := now.In(loc)

	if local.Before(s.cutoff.instant(local, loc)) {
		return false
	}
	if habit.ReplenishedOn(local) {
		return false
	}
	if !habit.PriorWindowResolved() {
		return false
	}
	return habit.IsScheduledOn(local)
}

func (s *ReplenishmentService) replenish(ctx context.Context, habit *domain.Habit, now time.Time) error {
	habit.Replenish(now)

	if err := s.habitRepo.Save(ctx, habit); err != nil {
		return err
	}

	events := habit.DomainEvents()
	sharedApplication.ApplyEventMetadata(events, sharedApplication.NewEventMetadata(habit.UserID()))
	msgs, err := outbox.FromDomainEvents(events)
	if err != nil {
		return err
	}
	if err := s.outboxRepo.SaveBatch(ctx, msgs); err != nil {
		return err
	}

	s.logger.Info("habit replenished",
		"habit_id", habit.ID(),
		"name", habit.Name(),
		"instance_date", habit.CurrentInstanceDate(),
	)
	return nil
}

// Package persistence implements the habit repository on the shared database
// abstraction.
package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/felixgeelhaar/cadence/internal/habits/domain"
	recurrence "github.com/felixgeelhaar/cadence/internal/recurrence/domain"
	"github.com/felixgeelhaar/cadence/internal/shared/infrastructure/database"
	"github.com/google/uuid"
)

// SQLHabitRepository implements domain.Repository.
type SQLHabitRepository struct {
	conn database.Connection
}

// NewSQLHabitRepository creates a new habit repository.
func NewSQLHabitRepository(conn database.Connection) *SQLHabitRepository {
	return &SQLHabitRepository{conn: conn}
}

func (r *SQLHabitRepository) exec(ctx context.Context) database.Executor {
	return database.ExecutorFromContext(ctx, r.conn)
}

func (r *SQLHabitRepository) rebind(query string) string {
	return database.Rebind(r.conn.Driver(), query)
}

const upsertHabitQuery = `
	INSERT INTO habits (id, user_id, name, description, recurrence_rule,
	                    current_instance_date, notification_fired, snoozed_until,
	                    last_completed_date, current_streak, longest_streak, archived,
	                    created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE SET
		name = excluded.name,
		description = excluded.description,
		recurrence_rule = excluded.recurrence_rule,
		current_instance_date = excluded.current_instance_date,
		notification_fired = excluded.notification_fired,
		snoozed_until = excluded.snoozed_until,
		last_completed_date = excluded.last_completed_date,
		current_streak = excluded.current_streak,
		longest_streak = excluded.longest_streak,
		archived = excluded.archived,
		updated_at = excluded.updated_at`

// Save persists a habit with its log and checklist.
func (r *SQLHabitRepository) Save(ctx context.Context, habit *domain.Habit) error {
	rule, err := marshalRule(habit.Rule())
	if err != nil {
		return fmt.Errorf("failed to marshal recurrence rule: %w", err)
	}

	ex := r.exec(ctx)
	_, err = ex.Exec(ctx, r.rebind(upsertHabitQuery),
		habit.ID().String(),
		habit.UserID().String(),
		habit.Name(),
		habit.Description(),
		rule,
		formatOptionalTime(habit.CurrentInstanceDate()),
		boolToInt(habit.NotificationFired()),
		formatOptionalTime(habit.SnoozedUntil()),
		formatOptionalTime(habit.LastCompletedDate()),
		habit.CurrentStreak(),
		habit.LongestStreak(),
		boolToInt(habit.IsArchived()),
		formatTime(habit.CreatedAt()),
		formatTime(habit.UpdatedAt()),
	)
	if err != nil {
		return err
	}

	// Log entries are append-only and immutable; existing rows stay untouched.
	for _, entry := range habit.Log() {
		_, err := ex.Exec(ctx, r.rebind(`
			INSERT INTO habit_log_entries (id, habit_id, logged_on, status, note, mood)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT DO NOTHING`),
			entry.ID().String(),
			entry.HabitID().String(),
			formatTime(entry.LoggedOn()),
			string(entry.Status()),
			entry.Note(),
			entry.Mood(),
		)
		if err != nil {
			return err
		}
	}

	// The checklist is small and fully owned by the aggregate; rewrite it.
	if _, err := ex.Exec(ctx,
		r.rebind(`DELETE FROM habit_checklist_items WHERE habit_id = ?`),
		habit.ID().String()); err != nil {
		return err
	}
	for _, item := range habit.Checklist() {
		_, err := ex.Exec(ctx, r.rebind(`
			INSERT INTO habit_checklist_items (id, habit_id, title, position, done)
			VALUES (?, ?, ?, ?, ?)`),
			item.ID().String(),
			item.HabitID().String(),
			item.Title(),
			item.Position(),
			boolToInt(item.IsDone()),
		)
		if err != nil {
			return err
		}
	}

	return nil
}

const selectHabitColumns = `
	SELECT id, user_id, name, description, recurrence_rule, current_instance_date,
	       notification_fired, snoozed_until, last_completed_date, current_streak,
	       longest_streak, archived, created_at, updated_at
	FROM habits`

// FindByID finds a habit by its ID. Returns nil, nil when absent.
func (r *SQLHabitRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Habit, error) {
	row := r.exec(ctx).QueryRow(ctx, r.rebind(selectHabitColumns+` WHERE id = ?`), id.String())

	habit, err := r.scanAndLoad(ctx, row)
	if database.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return habit, nil
}

// FindByUserID finds all habits for a user.
func (r *SQLHabitRepository) FindByUserID(ctx context.Context, userID uuid.UUID) ([]*domain.Habit, error) {
	return r.findMany(ctx, selectHabitColumns+` WHERE user_id = ? ORDER BY created_at ASC`, userID.String())
}

// FindActive returns every non-archived habit.
func (r *SQLHabitRepository) FindActive(ctx context.Context) ([]*domain.Habit, error) {
	return r.findMany(ctx, selectHabitColumns+` WHERE archived = 0 ORDER BY created_at ASC`)
}

// Delete removes a habit; log and checklist rows cascade.
func (r *SQLHabitRepository) Delete(ctx context.Context, id uuid.UUID) error {
	ex := r.exec(ctx)
	if _, err := ex.Exec(ctx, r.rebind(`DELETE FROM habit_log_entries WHERE habit_id = ?`), id.String()); err != nil {
		return err
	}
	if _, err := ex.Exec(ctx, r.rebind(`DELETE FROM habit_checklist_items WHERE habit_id = ?`), id.String()); err != nil {
		return err
	}
	_, err := ex.Exec(ctx, r.rebind(`DELETE FROM habits WHERE id = ?`), id.String())
	return err
}

func (r *SQLHabitRepository) findMany(ctx context.Context, query string, args ...any) ([]*domain.Habit, error) {
	rows, err := r.exec(ctx).Query(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, err
	}

	habitRows := make([]*rawHabit, 0)
	for rows.Next() {
		raw, err := scanHabitRow(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		habitRows = append(habitRows, raw)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	habits := make([]*domain.Habit, 0, len(habitRows))
	for _, hr := range habitRows {
		log, checklist, err := r.loadChildren(ctx, hr.id)
		if err != nil {
			return nil, err
		}
		habits = append(habits, domain.RehydrateHabit(
			hr.id, hr.userID, hr.name, hr.description, hr.rule,
			hr.currentInstanceDate, hr.notificationFired, hr.snoozedUntil,
			hr.lastCompletedDate, hr.currentStreak, hr.longestStreak, hr.archived,
			hr.createdAt, hr.updatedAt, log, checklist,
		))
	}
	return habits, nil
}

func (r *SQLHabitRepository) scanAndLoad(ctx context.Context, row database.Row) (*domain.Habit, error) {
	raw, err := scanHabitRow(row)
	if err != nil {
		return nil, err
	}

	log, checklist, err := r.loadChildren(ctx, raw.id)
	if err != nil {
		return nil, err
	}

	return domain.RehydrateHabit(
		raw.id, raw.userID, raw.name, raw.description, raw.rule,
		raw.currentInstanceDate, raw.notificationFired, raw.snoozedUntil,
		raw.lastCompletedDate, raw.currentStreak, raw.longestStreak, raw.archived,
		raw.createdAt, raw.updatedAt, log, checklist,
	), nil
}

type rawHabit struct {
	id                  uuid.UUID
	userID              uuid.UUID
	name                string
	description         string
	rule                *recurrence.RecurrenceRule
	currentInstanceDate *time.Time
	notificationFired   bool
	snoozedUntil        *time.Time
	lastCompletedDate   *time.Time
	currentStreak       int
	longestStreak       int
	archived            bool
	createdAt           time.Time
	updatedAt           time.Time
}

func scanHabitRow(row database.Row) (*rawHabit, error) {
	var (
		idStr             string
		userIDStr         string
		name              string
		description       string
		ruleJSON          *string
		instanceDate      *string
		notificationFired int
		snoozedUntil      *string
		lastCompleted     *string
		currentStreak     int
		longestStreak     int
		archived          int
		createdAt         string
		updatedAt         string
	)

	err := row.Scan(&idStr, &userIDStr, &name, &description, &ruleJSON, &instanceDate,
		&notificationFired, &snoozedUntil, &lastCompleted, &currentStreak,
		&longestStreak, &archived, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid habit id %q: %w", idStr, err)
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return nil, fmt.Errorf("invalid user id %q: %w", userIDStr, err)
	}

	rule, err := unmarshalRule(ruleJSON)
	if err != nil {
		return nil, err
	}

	return &rawHabit{
		id:                  id,
		userID:              userID,
		name:                name,
		description:         description,
		rule:                rule,
		currentInstanceDate: parseOptionalTime(instanceDate),
		notificationFired:   notificationFired != 0,
		snoozedUntil:        parseOptionalTime(snoozedUntil),
		lastCompletedDate:   parseOptionalTime(lastCompleted),
		currentStreak:       currentStreak,
		longestStreak:       longestStreak,
		archived:            archived != 0,
		createdAt:           parseTime(createdAt),
		updatedAt:           parseTime(updatedAt),
	}, nil
}

func (r *SQLHabitRepository) loadChildren(ctx context.Context, habitID uuid.UUID) ([]*domain.LogEntry, []*domain.ChecklistItem, error) {
	ex := r.exec(ctx)

	logRows, err := ex.Query(ctx, r.rebind(`
		SELECT id, habit_id, logged_on, status, note, mood
		FROM habit_log_entries WHERE habit_id = ? ORDER BY logged_on ASC`),
		habitID.String())
	if err != nil {
		return nil, nil, err
	}
	defer logRows.Close()

	log := make([]*domain.LogEntry, 0)
	for logRows.Next() {
		var idStr, habitStr, loggedOn, status, note, mood string
		if err := logRows.Scan(&idStr, &habitStr, &loggedOn, &status, &note, &mood); err != nil {
			return nil, nil, err
		}
		entryID, err := uuid.Parse(idStr)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid log entry id %q: %w", idStr, err)
		}
		log = append(log, domain.RehydrateLogEntry(entryID, habitID,
			parseTime(loggedOn), domain.LogStatus(status), note, mood))
	}
	if err := logRows.Err(); err != nil {
		return nil, nil, err
	}

	itemRows, err := ex.Query(ctx, r.rebind(`
		SELECT id, habit_id, title, position, done
		FROM habit_checklist_items WHERE habit_id = ? ORDER BY position ASC`),
		habitID.String())
	if err != nil {
		return nil, nil, err
	}
	defer itemRows.Close()

	checklist := make([]*domain.ChecklistItem, 0)
	for itemRows.Next() {
		var idStr, habitStr, title string
		var position, done int
		if err := itemRows.Scan(&idStr, &habitStr, &title, &position, &done); err != nil {
			return nil, nil, err
		}
		itemID, err := uuid.Parse(idStr)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid checklist item id %q: %w", idStr, err)
		}
		checklist = append(checklist, domain.RehydrateChecklistItem(itemID, habitID, title, position, done != 0))
	}
	if err := itemRows.Err(); err != nil {
		return nil, nil, err
	}

	return log, checklist, nil
}

func marshalRule(rule *recurrence.RecurrenceRule) (any, error) {
	if rule == nil {
		return nil, nil
	}
	data, err := json.Marshal(rule)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func unmarshalRule(raw *string) (*recurrence.RecurrenceRule, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	var rule recurrence.RecurrenceRule
	if err := json.Unmarshal([]byte(*raw), &rule); err != nil {
		return nil, fmt.Errorf("failed to unmarshal recurrence rule: %w", err)
	}
	return &rule, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatOptionalTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseOptionalTime(value *string) *time.Time {
	if value == nil {
		return nil
	}
	t := parseTime(*value)
	return &t
}

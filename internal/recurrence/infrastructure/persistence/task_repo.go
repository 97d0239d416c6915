// Package persistence implements the recurrence repositories on the shared
// database abstraction. Queries use `?` placeholders and are rebound per
// driver, timestamps are stored as RFC 3339 text, rules and tag ids as JSON.
package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/felixgeelhaar/cadence/internal/recurrence/domain"
	"github.com/felixgeelhaar/cadence/internal/shared/infrastructure/database"
	"github.com/google/uuid"
)

// SQLTaskRepository implements domain.TaskRepository.
type SQLTaskRepository struct {
	conn database.Connection
}

// NewSQLTaskRepository creates a new task repository.
func NewSQLTaskRepository(conn database.Connection) *SQLTaskRepository {
	return &SQLTaskRepository{conn: conn}
}

func (r *SQLTaskRepository) exec(ctx context.Context) database.Executor {
	return database.ExecutorFromContext(ctx, r.conn)
}

func (r *SQLTaskRepository) rebind(query string) string {
	return database.Rebind(r.conn.Driver(), query)
}

const upsertTaskQuery = `
	INSERT INTO tasks (id, user_id, title, description, priority, due_date, completed_at,
	                   recurrence_rule, tag_ids, occurrence_index, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE SET
		title = excluded.title,
		description = excluded.description,
		priority = excluded.priority,
		due_date = excluded.due_date,
		completed_at = excluded.completed_at,
		recurrence_rule = excluded.recurrence_rule,
		tag_ids = excluded.tag_ids,
		occurrence_index = excluded.occurrence_index,
		updated_at = excluded.updated_at`

// Save persists a task (create or update).
func (r *SQLTaskRepository) Save(ctx context.Context, task *domain.Task) error {
	rule, err := marshalRule(task.Rule())
	if err != nil {
		return fmt.Errorf("failed to marshal recurrence rule: %w", err)
	}
	tags, err := marshalTagIDs(task.TagIDs())
	if err != nil {
		return fmt.Errorf("failed to marshal tag ids: %w", err)
	}

	_, err = r.exec(ctx).Exec(ctx, r.rebind(upsertTaskQuery),
		task.ID().String(),
		task.UserID().String(),
		task.Title(),
		task.Description(),
		string(task.Priority()),
		formatTime(task.DueDate()),
		formatOptionalTime(task.CompletedAt()),
		rule,
		tags,
		task.OccurrenceIndex(),
		formatTime(task.CreatedAt()),
		formatTime(task.UpdatedAt()),
	)
	return err
}

const selectTaskColumns = `
	SELECT id, user_id, title, description, priority, due_date, completed_at,
	       recurrence_rule, tag_ids, occurrence_index, created_at, updated_at
	FROM tasks`

// FindByID finds a task by its ID. Returns nil, nil when absent.
func (r *SQLTaskRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	row := r.exec(ctx).QueryRow(ctx, r.rebind(selectTaskColumns+` WHERE id = ?`), id.String())

	task, err := scanTask(row)
	if database.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return task, nil
}

// FindByUserID finds all tasks for a user.
func (r *SQLTaskRepository) FindByUserID(ctx context.Context, userID uuid.UUID) ([]*domain.Task, error) {
	rows, err := r.exec(ctx).Query(ctx,
		r.rebind(selectTaskColumns+` WHERE user_id = ? ORDER BY due_date ASC`), userID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]*domain.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// Delete removes a task.
func (r *SQLTaskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.exec(ctx).Exec(ctx, r.rebind(`DELETE FROM tasks WHERE id = ?`), id.String())
	return err
}

func scanTask(row database.Row) (*domain.Task, error) {
	var (
		idStr       string
		userIDStr   string
		title       string
		description string
		priority    string
		dueDate     string
		completedAt *string
		ruleJSON    *string
		tagsJSON    string
		occurrence  int
		createdAt   string
		updatedAt   string
	)

	err := row.Scan(&idStr, &userIDStr, &title, &description, &priority, &dueDate,
		&completedAt, &ruleJSON, &tagsJSON, &occurrence, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid task id %q: %w", idStr, err)
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return nil, fmt.Errorf("invalid user id %q: %w", userIDStr, err)
	}

	rule, err := unmarshalRule(ruleJSON)
	if err != nil {
		return nil, err
	}
	tagIDs, err := unmarshalTagIDs(tagsJSON)
	if err != nil {
		return nil, err
	}

	return domain.RehydrateTask(
		id,
		userID,
		title,
		description,
		domain.Priority(priority),
		parseTime(dueDate),
		parseOptionalTime(completedAt),
		rule,
		tagIDs,
		occurrence,
		parseTime(createdAt),
		parseTime(updatedAt),
	), nil
}

func marshalRule(rule *domain.RecurrenceRule) (any, error) {
	if rule == nil {
		return nil, nil
	}
	data, err := json.Marshal(rule)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func unmarshalRule(raw *string) (*domain.RecurrenceRule, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	var rule domain.RecurrenceRule
	if err := json.Unmarshal([]byte(*raw), &rule); err != nil {
		return nil, fmt.Errorf("failed to unmarshal recurrence rule: %w", err)
	}
	return &rule, nil
}

func marshalTagIDs(ids []uuid.UUID) (string, error) {
	data, err := json.Marshal(ids)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func unmarshalTagIDs(raw string) ([]uuid.UUID, error) {
	if raw == "" {
		return []uuid.UUID{}, nil
	}
	var ids []uuid.UUID
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tag ids: %w", err)
	}
	return ids, nil
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

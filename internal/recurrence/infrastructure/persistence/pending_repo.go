package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/felixgeelhaar/cadence/internal/recurrence/domain"
	"github.com/felixgeelhaar/cadence/internal/shared/infrastructure/database"
	"github.com/google/uuid"
)

// SQLPendingRepository implements domain.PendingRecurrenceRepository.
type SQLPendingRepository struct {
	conn database.Connection
}

// NewSQLPendingRepository creates a new pending recurrence repository.
func NewSQLPendingRepository(conn database.Connection) *SQLPendingRepository {
	return &SQLPendingRepository{conn: conn}
}

func (r *SQLPendingRepository) exec(ctx context.Context) database.Executor {
	return database.ExecutorFromContext(ctx, r.conn)
}

func (r *SQLPendingRepository) rebind(query string) string {
	return database.Rebind(r.conn.Driver(), query)
}

const upsertPendingQuery = `
	INSERT INTO pending_recurrences (id, source_task_id, user_id, scheduled_date, title,
	                                 description, priority, recurrence_rule, tag_ids,
	                                 occurrence_index, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE SET
		scheduled_date = excluded.scheduled_date,
		title = excluded.title,
		description = excluded.description,
		priority = excluded.priority,
		recurrence_rule = excluded.recurrence_rule,
		tag_ids = excluded.tag_ids,
		occurrence_index = excluded.occurrence_index,
		updated_at = excluded.updated_at`

// Save persists a ticket.
func (r *SQLPendingRepository) Save(ctx context.Context, ticket *domain.PendingRecurrence) error {
	rule, err := marshalRule(ticket.Rule())
	if err != nil {
		return fmt.Errorf("failed to marshal recurrence rule: %w", err)
	}
	tags, err := marshalTagIDs(ticket.TagIDs())
	if err != nil {
		return fmt.Errorf("failed to marshal tag ids: %w", err)
	}

	_, err = r.exec(ctx).Exec(ctx, r.rebind(upsertPendingQuery),
		ticket.ID().String(),
		ticket.SourceTaskID().String(),
		ticket.UserID().String(),
		formatTime(ticket.ScheduledDate()),
		ticket.Title(),
		ticket.Description(),
		string(ticket.Priority()),
		rule,
		tags,
		ticket.OccurrenceIndex(),
		formatTime(ticket.CreatedAt()),
		formatTime(ticket.UpdatedAt()),
	)
	return err
}

const selectPendingColumns = `
	SELECT id, source_task_id, user_id, scheduled_date, title, description, priority,
	       recurrence_rule, tag_ids, occurrence_index, created_at, updated_at
	FROM pending_recurrences`

// FindByID finds a ticket by its ID. Returns nil, nil when absent.
func (r *SQLPendingRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.PendingRecurrence, error) {
	row := r.exec(ctx).QueryRow(ctx, r.rebind(selectPendingColumns+` WHERE id = ?`), id.String())

	ticket, err := scanPending(row)
	if database.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

// FindBySourceTask finds the ticket for a source task, nil when absent.
func (r *SQLPendingRepository) FindBySourceTask(ctx context.Context, sourceTaskID uuid.UUID) (*domain.PendingRecurrence, error) {
	row := r.exec(ctx).QueryRow(ctx,
		r.rebind(selectPendingColumns+` WHERE source_task_id = ?`), sourceTaskID.String())

	ticket, err := scanPending(row)
	if database.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

// FindDue returns all tickets with scheduled_date <= now in ascending order.
// RFC 3339 UTC text compares correctly as a string.
func (r *SQLPendingRepository) FindDue(ctx context.Context, now time.Time) ([]*domain.PendingRecurrence, error) {
	rows, err := r.exec(ctx).Query(ctx,
		r.rebind(selectPendingColumns+` WHERE scheduled_date <= ? ORDER BY scheduled_date ASC`),
		formatTime(now))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tickets := make([]*domain.PendingRecurrence, 0)
	for rows.Next() {
		ticket, err := scanPending(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, ticket)
	}
	return tickets, rows.Err()
}

// Delete removes a ticket once it has been consumed.
func (r *SQLPendingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.exec(ctx).Exec(ctx,
		r.rebind(`DELETE FROM pending_recurrences WHERE id = ?`), id.String())
	return err
}

// DeleteBySourceTask removes the ticket of a cancelled series.
func (r *SQLPendingRepository) DeleteBySourceTask(ctx context.Context, sourceTaskID uuid.UUID) error {
	_, err := r.exec(ctx).Exec(ctx,
		r.rebind(`DELETE FROM pending_recurrences WHERE source_task_id = ?`), sourceTaskID.String())
	return err
}

// DeleteAll removes every ticket.
func (r *SQLPendingRepository) DeleteAll(ctx context.Context) error {
	_, err := r.exec(ctx).Exec(ctx, `DELETE FROM pending_recurrences`)
	return err
}

func scanPending(row database.Row) (*domain.PendingRecurrence, error) {
	var (
		idStr         string
		sourceStr     string
		userIDStr     string
		scheduledDate string
		title         string
		description   string
		priority      string
		ruleJSON      *string
		tagsJSON      string
		occurrence    int
		createdAt     string
		updatedAt     string
	)

	err := row.Scan(&idStr, &sourceStr, &userIDStr, &scheduledDate, &title, &description,
		&priority, &ruleJSON, &tagsJSON, &occurrence, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid ticket id %q: %w", idStr, err)
	}
	sourceTaskID, err := uuid.Parse(sourceStr)
	if err != nil {
		return nil, fmt.Errorf("invalid source task id %q: %w", sourceStr, err)
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

	return domain.RehydratePendingRecurrence(
		id,
		sourceTaskID,
		userID,
		parseTime(scheduledDate),
		title,
		description,
		domain.Priority(priority),
		rule,
		tagIDs,
		occurrence,
		parseTime(createdAt),
		parseTime(updatedAt),
	), nil
}

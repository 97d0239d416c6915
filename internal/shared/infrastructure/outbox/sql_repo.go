package outbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/felixgeelhaar/cadence/internal/shared/infrastructure/database"
	"github.com/google/uuid"
)

// SQLRepository implements Repository on the shared database abstraction.
// Queries are written once with `?` placeholders and rebound per driver, so
// the same repository serves SQLite and PostgreSQL.
type SQLRepository struct {
	conn database.Connection
}

// NewSQLRepository creates a new outbox repository.
func NewSQLRepository(conn database.Connection) *SQLRepository {
	return &SQLRepository{conn: conn}
}

func (r *SQLRepository) exec(ctx context.Context) database.Executor {
	return database.ExecutorFromContext(ctx, r.conn)
}

func (r *SQLRepository) rebind(query string) string {
	return database.Rebind(r.conn.Driver(), query)
}

const insertMessageQuery = `
	INSERT INTO outbox (event_id, aggregate_type, aggregate_id, event_type, routing_key, payload, metadata, created_at, retry_count)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0)
	RETURNING id`

// Save stores a new outbox message.
func (r *SQLRepository) Save(ctx context.Context, msg *Message) error {
	row := r.exec(ctx).QueryRow(ctx, r.rebind(insertMessageQuery),
		msg.EventID.String(),
		msg.AggregateType,
		msg.AggregateID.String(),
		msg.EventType,
		msg.RoutingKey,
		string(msg.Payload),
		nullableJSON(msg.Metadata),
		msg.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	return row.Scan(&msg.ID)
}

// SaveBatch stores multiple outbox messages. Callers run this inside a unit
// of work alongside the aggregate save, so staging is atomic with the write
// that produced the events.
func (r *SQLRepository) SaveBatch(ctx context.Context, msgs []*Message) error {
	for _, msg := range msgs {
		if err := r.Save(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

const selectMessageColumns = `
	SELECT id, event_id, aggregate_type, aggregate_id, event_type, routing_key, payload, metadata,
	       created_at, published_at, next_retry_at, retry_count, last_error, dead_lettered_at, dead_letter_reason
	FROM outbox`

// GetUnpublished retrieves unpublished messages ordered by creation time.
func (r *SQLRepository) GetUnpublished(ctx context.Context, limit int) ([]*Message, error) {
	query := selectMessageColumns + `
	WHERE published_at IS NULL
	  AND dead_lettered_at IS NULL
	  AND (next_retry_at IS NULL OR next_retry_at <= ?)
	ORDER BY created_at ASC
	LIMIT ?`

	rows, err := r.exec(ctx).Query(ctx, r.rebind(query),
		time.Now().UTC().Format(time.RFC3339Nano), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMessages(rows)
}

// MarkPublished marks a message as successfully published.
func (r *SQLRepository) MarkPublished(ctx context.Context, id int64) error {
	_, err := r.exec(ctx).Exec(ctx,
		r.rebind(`UPDATE outbox SET published_at = ? WHERE id = ?`),
		time.Now().UTC().Format(time.RFC3339Nano), id)
	return err
}

// MarkFailed records a publish failure with error message.
func (r *SQLRepository) MarkFailed(ctx context.Context, id int64, errMsg string, nextRetryAt time.Time) error {
	_, err := r.exec(ctx).Exec(ctx,
		r.rebind(`UPDATE outbox SET retry_count = retry_count + 1, last_error = ?, next_retry_at = ? WHERE id = ?`),
		errMsg, nextRetryAt.UTC().Format(time.RFC3339Nano), id)
	return err
}

// MarkDead marks a message as dead-lettered.
func (r *SQLRepository) MarkDead(ctx context.Context, id int64, reason string) error {
	_, err := r.exec(ctx).Exec(ctx,
		r.rebind(`UPDATE outbox SET dead_lettered_at = ?, dead_letter_reason = ? WHERE id = ?`),
		time.Now().UTC().Format(time.RFC3339Nano), reason, id)
	return err
}

// GetFailed retrieves failed messages eligible for retry.
func (r *SQLRepository) GetFailed(ctx context.Context, maxRetries, limit int) ([]*Message, error) {
	query := selectMessageColumns + `
	WHERE published_at IS NULL
	  AND dead_lettered_at IS NULL
	  AND retry_count > 0
	  AND retry_count < ?
	ORDER BY created_at ASC
	LIMIT ?`

	rows, err := r.exec(ctx).Query(ctx, r.rebind(query), maxRetries, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMessages(rows)
}

// DeleteOld removes successfully published messages older than the retention period.
func (r *SQLRepository) DeleteOld(ctx context.Context, olderThanDays int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -olderThanDays)
	result, err := r.exec(ctx).Exec(ctx,
		r.rebind(`DELETE FROM outbox WHERE published_at IS NOT NULL AND published_at < ?`),
		cutoff.Format(time.RFC3339Nano))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func scanMessages(rows database.Rows) ([]*Message, error) {
	messages := make([]*Message, 0)
	for rows.Next() {
		var (
			msg              Message
			eventID          string
			aggregateID      string
			payload          string
			metadata         *string
			createdAt        string
			publishedAt      *string
			nextRetryAt      *string
			deadLetteredAt   *string
		)

		err := rows.Scan(&msg.ID, &eventID, &msg.AggregateType, &aggregateID, &msg.EventType,
			&msg.RoutingKey, &payload, &metadata, &createdAt, &publishedAt, &nextRetryAt,
			&msg.RetryCount, &msg.LastError, &deadLetteredAt, &msg.DeadLetterReason)
		if err != nil {
			return nil, err
		}

		msg.EventID, _ = uuid.Parse(eventID)
		msg.AggregateID, _ = uuid.Parse(aggregateID)
		msg.Payload = json.RawMessage(payload)
		if metadata != nil {
			msg.Metadata = json.RawMessage(*metadata)
		}
		msg.CreatedAt = parseTimestamp(createdAt)
		msg.PublishedAt = parseOptionalTimestamp(publishedAt)
		msg.NextRetryAt = parseOptionalTimestamp(nextRetryAt)
		msg.DeadLetteredAt = parseOptionalTimestamp(deadLetteredAt)

		messages = append(messages, &msg)
	}

	return messages, rows.Err()
}

func parseTimestamp(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseOptionalTimestamp(value *string) *time.Time {
	if value == nil {
		return nil
	}
	t := parseTimestamp(*value)
	return &t
}

func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

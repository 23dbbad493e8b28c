package store

import (
	"context"
	"database/sql"

	"github.com/escomrepo/users-service/app/models"
)

type OutboxStore struct {
	db       *sql.DB
	retryCap int
}

func (s *OutboxStore) Append(ctx context.Context, eventType, payload string, userID int64) error {
	query := `
	INSERT INTO outbox_events (event_type, payload, user_id, processed, retry_count)
	VALUES ($1, $2, $3, false, 0)`
	_, err := s.db.ExecContext(ctx, query, eventType, payload, userID)
	return err
}

// FetchPending returns unprocessed events that still have retry budget,
// oldest first. Events at or past the retry cap stay in storage for audit but
// are never returned again.
func (s *OutboxStore) FetchPending(ctx context.Context, limit int) ([]models.OutboxEvent, error) {
	query := `
	SELECT id, event_type, payload, user_id, created_at, processed, retry_count
	FROM outbox_events
	WHERE processed = false AND retry_count < $1
	ORDER BY created_at
	LIMIT $2`

	rows, err := s.db.QueryContext(ctx, query, s.retryCap, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.OutboxEvent
	for rows.Next() {
		var e models.OutboxEvent
		err := rows.Scan(
			&e.ID,
			&e.EventType,
			&e.Payload,
			&e.UserID,
			&e.CreatedAt,
			&e.Processed,
			&e.RetryCount,
		)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (s *OutboxStore) MarkProcessed(ctx context.Context, eventID int64) error {
	query := `UPDATE outbox_events SET processed = true WHERE id = $1`
	_, err := s.db.ExecContext(ctx, query, eventID)
	return err
}

// IncrementRetry bumps the retry counter and returns the new count so the
// caller can tell when an event just crossed the cap.
func (s *OutboxStore) IncrementRetry(ctx context.Context, eventID int64) (int, error) {
	query := `UPDATE outbox_events SET retry_count = retry_count + 1 WHERE id = $1 RETURNING retry_count`
	var count int
	if err := s.db.QueryRowContext(ctx, query, eventID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/escomrepo/users-service/app/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

/*
OutboxStore Test Cases:

1. TestOutboxStore_Append_Success
   - Event inserted with processed=false and retry_count=0

2. TestOutboxStore_FetchPending_Success
   - Only events below the retry cap are requested
   - Oldest first, bounded by limit

3. TestOutboxStore_FetchPending_Empty

4. TestOutboxStore_MarkProcessed_Success

5. TestOutboxStore_IncrementRetry_ReturnsNewCount
*/

func setupOutboxStore(t *testing.T, retryCap int) (*sql.DB, sqlmock.Sqlmock, *OutboxStore) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err, "Failed to create mock database")
	return db, mock, &OutboxStore{db: db, retryCap: retryCap}
}

func TestOutboxStore_Append_Success(t *testing.T) {
	db, mock, store := setupOutboxStore(t, 5)
	defer db.Close()

	payload := `{"v":1,"usuarioId":7}`

	mock.ExpectExec(`INSERT INTO outbox_events \(event_type, payload, user_id, processed, retry_count\)`).
		WithArgs(models.EventCreateAuthor, payload, int64(7)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := store.Append(context.Background(), models.EventCreateAuthor, payload, 7)

	require.NoError(t, err, "Append should not return error")
	assert.NoError(t, mock.ExpectationsWereMet(), "All expectations should be met")
}

func TestOutboxStore_FetchPending_Success(t *testing.T) {
	db, mock, store := setupOutboxStore(t, 5)
	defer db.Close()

	createdAt := time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "event_type", "payload", "user_id", "created_at", "processed", "retry_count"}).
		AddRow(int64(1), models.EventCreateAuthor, `{"v":1}`, int64(7), createdAt, false, 0).
		AddRow(int64(2), models.EventDeleteLink, `{"v":1}`, int64(8), createdAt.Add(time.Second), false, 2)

	mock.ExpectQuery(`WHERE processed = false AND retry_count < \$1\s+ORDER BY created_at\s+LIMIT \$2`).
		WithArgs(5, 10).
		WillReturnRows(rows)

	events, err := store.FetchPending(context.Background(), 10)

	require.NoError(t, err, "FetchPending should not return error")
	require.Len(t, events, 2, "Should return two events")
	assert.Equal(t, models.EventCreateAuthor, events[0].EventType)
	assert.Equal(t, 2, events[1].RetryCount)
	assert.NoError(t, mock.ExpectationsWereMet(), "All expectations should be met")
}

func TestOutboxStore_FetchPending_Empty(t *testing.T) {
	db, mock, store := setupOutboxStore(t, 5)
	defer db.Close()

	mock.ExpectQuery(`WHERE processed = false AND retry_count < \$1`).
		WithArgs(5, 10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "event_type", "payload", "user_id", "created_at", "processed", "retry_count"}))

	events, err := store.FetchPending(context.Background(), 10)

	require.NoError(t, err, "FetchPending should not return error")
	assert.Empty(t, events, "No events should be returned")
	assert.NoError(t, mock.ExpectationsWereMet(), "All expectations should be met")
}

func TestOutboxStore_MarkProcessed_Success(t *testing.T) {
	db, mock, store := setupOutboxStore(t, 5)
	defer db.Close()

	mock.ExpectExec(`UPDATE outbox_events SET processed = true WHERE id = \$1`).
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.MarkProcessed(context.Background(), 1)

	require.NoError(t, err, "MarkProcessed should not return error")
	assert.NoError(t, mock.ExpectationsWereMet(), "All expectations should be met")
}

func TestOutboxStore_IncrementRetry_ReturnsNewCount(t *testing.T) {
	db, mock, store := setupOutboxStore(t, 5)
	defer db.Close()

	mock.ExpectQuery(`UPDATE outbox_events SET retry_count = retry_count \+ 1 WHERE id = \$1 RETURNING retry_count`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"retry_count"}).AddRow(5))

	count, err := store.IncrementRetry(context.Background(), 1)

	require.NoError(t, err, "IncrementRetry should not return error")
	assert.Equal(t, 5, count, "New retry count should be returned")
	assert.NoError(t, mock.ExpectationsWereMet(), "All expectations should be met")
}

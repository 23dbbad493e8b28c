package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/escomrepo/users-service/app/models"
)

type Storage struct {
	Users interface {
		GetAll(ctx context.Context) ([]models.User, error)
		GetByID(ctx context.Context, id int64) (*models.User, error)
		GetByEmail(ctx context.Context, email string) (*models.User, error)
		Create(ctx context.Context, user *models.User) error
		Update(ctx context.Context, user *models.User) error
		UpdateRole(ctx context.Context, id int64, role string) error
		SetEmailVerified(ctx context.Context, id int64, verified bool) error
		Delete(ctx context.Context, id int64) error
	}
	Codes interface {
		Issue(ctx context.Context, userID int64, code string, expiresAt time.Time) error
		Replace(ctx context.Context, userID int64, code string, expiresAt time.Time) error
		Lookup(ctx context.Context, code string) (*models.VerificationCode, error)
		Invalidate(ctx context.Context, code string) error
		InvalidateAllFor(ctx context.Context, userID int64) error
	}
	Outbox interface {
		Append(ctx context.Context, eventType, payload string, userID int64) error
		FetchPending(ctx context.Context, limit int) ([]models.OutboxEvent, error)
		MarkProcessed(ctx context.Context, eventID int64) error
		IncrementRetry(ctx context.Context, eventID int64) (int, error)
	}
}

// NewStorage wires the SQL-backed stores. retryCap bounds how often the
// dispatcher sees a failing outbox event before it is abandoned.
func NewStorage(db *sql.DB, retryCap int) Storage {
	return Storage{
		Users:  &UsersStore{db: db},
		Codes:  &CodesStore{db: db},
		Outbox: &OutboxStore{db: db, retryCap: retryCap},
	}
}

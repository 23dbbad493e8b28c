package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/escomrepo/users-service/app/models"
)

type CodesStore struct {
	db *sql.DB
}

func (s *CodesStore) Issue(ctx context.Context, userID int64, code string, expiresAt time.Time) error {
	query := `INSERT INTO verification_codes (user_id, code, expires_at) VALUES ($1, $2, $3)`
	_, err := s.db.ExecContext(ctx, query, userID, code, expiresAt)
	return err
}

// Replace atomically removes any live code for the user and issues a new one.
// Running both statements in one transaction closes the window where a
// racing request could observe zero or two live codes.
func (s *CodesStore) Replace(ctx context.Context, userID int64, code string, expiresAt time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM verification_codes WHERE user_id = $1`, userID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO verification_codes (user_id, code, expires_at) VALUES ($1, $2, $3)`,
		userID, code, expiresAt); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *CodesStore) Lookup(ctx context.Context, code string) (*models.VerificationCode, error) {
	query := `SELECT id, user_id, code, expires_at FROM verification_codes WHERE code = $1`
	var vc models.VerificationCode
	err := s.db.QueryRowContext(ctx, query, code).Scan(
		&vc.ID,
		&vc.UserID,
		&vc.Code,
		&vc.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	return &vc, nil
}

// Invalidate deletes a code by value. Deleting a nonexistent code is not an
// error.
func (s *CodesStore) Invalidate(ctx context.Context, code string) error {
	query := `DELETE FROM verification_codes WHERE code = $1`
	_, err := s.db.ExecContext(ctx, query, code)
	return err
}

func (s *CodesStore) InvalidateAllFor(ctx context.Context, userID int64) error {
	query := `DELETE FROM verification_codes WHERE user_id = $1`
	_, err := s.db.ExecContext(ctx, query, userID)
	return err
}

package store

import (
	"context"
	"database/sql"

	"github.com/escomrepo/users-service/app/models"
)

type UsersStore struct {
	db *sql.DB
}

func (s *UsersStore) GetAll(ctx context.Context) ([]models.User, error) {
	query := `SELECT id, name, last_name_p, last_name_m, email, boleta, role,
	is_email_verified, created_at, updated_at FROM users ORDER BY id`
	var users []models.User
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var user models.User
		err := rows.Scan(
			&user.ID,
			&user.Name,
			&user.LastNameP,
			&user.LastNameM,
			&user.Email,
			&user.Boleta,
			&user.Role,
			&user.IsEmailVerified,
			&user.CreatedAt,
			&user.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (s *UsersStore) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT id, name, last_name_p, last_name_m, email, boleta, role,
	is_email_verified, created_at, updated_at FROM users WHERE id = $1`
	var user models.User
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Name,
		&user.LastNameP,
		&user.LastNameM,
		&user.Email,
		&user.Boleta,
		&user.Role,
		&user.IsEmailVerified,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *UsersStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT id, name, last_name_p, last_name_m, email, boleta, role,
	is_email_verified, created_at, updated_at FROM users WHERE LOWER(email) = LOWER($1)`
	var user models.User
	err := s.db.QueryRowContext(ctx, query, email).Scan(
		&user.ID,
		&user.Name,
		&user.LastNameP,
		&user.LastNameM,
		&user.Email,
		&user.Boleta,
		&user.Role,
		&user.IsEmailVerified,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *UsersStore) Create(ctx context.Context, user *models.User) error {
	query := `
	INSERT INTO users (name, last_name_p, last_name_m, email, boleta, role, is_email_verified)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	RETURNING id, created_at, updated_at
	`

	err := s.db.QueryRowContext(ctx, query,
		user.Name,
		user.LastNameP,
		user.LastNameM,
		user.Email,
		user.Boleta,
		user.Role,
		user.IsEmailVerified,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		return err
	}

	return nil
}

func (s *UsersStore) Update(ctx context.Context, user *models.User) error {
	query := `UPDATE users SET name = $1, last_name_p = $2, last_name_m = $3,
	email = $4, boleta = $5, role = $6, is_email_verified = $7, updated_at = now()
	WHERE id = $8`
	_, err := s.db.ExecContext(ctx, query,
		user.Name,
		user.LastNameP,
		user.LastNameM,
		user.Email,
		user.Boleta,
		user.Role,
		user.IsEmailVerified,
		user.ID,
	)
	if err != nil {
		return err
	}
	return nil
}

func (s *UsersStore) UpdateRole(ctx context.Context, id int64, role string) error {
	query := `UPDATE users SET role = $1, updated_at = now() WHERE id = $2`
	_, err := s.db.ExecContext(ctx, query, role, id)
	if err != nil {
		return err
	}
	return nil
}

func (s *UsersStore) SetEmailVerified(ctx context.Context, id int64, verified bool) error {
	query := `UPDATE users SET is_email_verified = $1, updated_at = now() WHERE id = $2`
	_, err := s.db.ExecContext(ctx, query, verified, id)
	if err != nil {
		return err
	}
	return nil
}

func (s *UsersStore) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM users WHERE id = $1`
	_, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return nil
}

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"aurioncal/internal/models"
)

const userColumns = `id, email, password_encrypted, calendar_token, last_update, created_at`

func (s *Store) CreateUser(ctx context.Context, u models.User) error {
	_, err := s.db.Pool.Exec(ctx,
		`INSERT INTO users (id, email, password_encrypted, calendar_token, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		u.ID, u.Email, u.PasswordEncrypted, u.CalendarToken, u.CreatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	row := s.db.Pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	row := s.db.Pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordEncrypted, &u.CalendarToken, &u.LastUpdate, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

// UpdatePassword stores a freshly encrypted external-source password,
// used when drift against the source is detected.
func (s *Store) UpdatePassword(ctx context.Context, id uuid.UUID, encrypted string) error {
	tag, err := s.db.Pool.Exec(ctx,
		`UPDATE users SET password_encrypted = $2 WHERE id = $1`, id, encrypted)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ResetCalendarToken rotates the feed-access token and returns the new one.
func (s *Store) ResetCalendarToken(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	token := uuid.New()
	tag, err := s.db.Pool.Exec(ctx,
		`UPDATE users SET calendar_token = $2 WHERE id = $1`, id, token)
	if err != nil {
		return uuid.Nil, fmt.Errorf("reset calendar token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return uuid.Nil, ErrNotFound
	}
	return token, nil
}

// DeleteUser removes the user; events and refresh status go with it via
// ON DELETE CASCADE.
func (s *Store) DeleteUser(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListStaleUserIDs returns users whose planning has not been refreshed
// since the cutoff (or ever), oldest first, for the background worker.
func (s *Store) ListStaleUserIDs(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error) {
	rows, err := s.db.Pool.Query(ctx,
		`SELECT id FROM users
		 WHERE last_update IS NULL OR last_update < $1
		 ORDER BY last_update ASC NULLS FIRST
		 LIMIT $2`,
		cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("list stale users: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan stale user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

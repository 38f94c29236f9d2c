package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/zikrcircle/zikrcircle/internal/storage"
	"github.com/zikrcircle/zikrcircle/internal/user"
)

// PutUser persists a user record.
func (s *Store) PutUser(ctx context.Context, u user.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(u.ID) == "" {
		return fmt.Errorf("user id is required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO users (id, email, name, created_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET email = excluded.email, name = excluded.name
`, u.ID, u.Email, u.Name, formatTime(u.CreatedAt))
	if err != nil {
		return fmt.Errorf("put user: %w", err)
	}
	return nil
}

// GetUser returns a user by ID.
func (s *Store) GetUser(ctx context.Context, id string) (user.User, error) {
	return s.getUser(ctx, "SELECT id, email, name, created_at FROM users WHERE id = ?", id)
}

// GetUserByEmail returns a user by normalized email address.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return s.getUser(ctx, "SELECT id, email, name, created_at FROM users WHERE email = ?", email)
}

func (s *Store) getUser(ctx context.Context, query, arg string) (user.User, error) {
	if err := ctx.Err(); err != nil {
		return user.User{}, err
	}

	var u user.User
	var createdAt string
	err := s.sqlDB.QueryRowContext(ctx, query, arg).Scan(&u.ID, &u.Email, &u.Name, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return user.User{}, storage.ErrNotFound
	}
	if err != nil {
		return user.User{}, fmt.Errorf("get user: %w", err)
	}

	u.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return user.User{}, fmt.Errorf("parse user created_at: %w", err)
	}
	return u, nil
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zikrcircle/zikrcircle/internal/circle"
	"github.com/zikrcircle/zikrcircle/internal/session"
	"github.com/zikrcircle/zikrcircle/internal/storage"
)

// PutCircle persists a circle record.
func (s *Store) PutCircle(ctx context.Context, c circle.Circle) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("circle id is required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO circles (id, owner_id, name, recitation_text, target_count, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    name = excluded.name,
    recitation_text = excluded.recitation_text,
    target_count = excluded.target_count,
    updated_at = excluded.updated_at
`, c.ID, c.OwnerID, c.Name, c.RecitationText, c.TargetCount,
		formatTime(c.CreatedAt), formatTime(c.UpdatedAt))
	if err != nil {
		return fmt.Errorf("put circle: %w", err)
	}
	return nil
}

// GetCircle returns a circle by ID.
func (s *Store) GetCircle(ctx context.Context, id string) (circle.Circle, error) {
	if err := ctx.Err(); err != nil {
		return circle.Circle{}, err
	}

	var c circle.Circle
	var createdAt, updatedAt string
	err := s.sqlDB.QueryRowContext(ctx, `
SELECT id, owner_id, name, recitation_text, target_count, created_at, updated_at
FROM circles WHERE id = ?
`, id).Scan(&c.ID, &c.OwnerID, &c.Name, &c.RecitationText, &c.TargetCount, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return circle.Circle{}, storage.ErrNotFound
	}
	if err != nil {
		return circle.Circle{}, fmt.Errorf("get circle: %w", err)
	}

	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return circle.Circle{}, fmt.Errorf("parse circle created_at: %w", err)
	}
	if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return circle.Circle{}, fmt.Errorf("parse circle updated_at: %w", err)
	}
	return c, nil
}

// AddMember records circle membership. Joining twice is a no-op.
func (s *Store) AddMember(ctx context.Context, circleID, userID string, joinedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(circleID) == "" || strings.TrimSpace(userID) == "" {
		return fmt.Errorf("circle id and user id are required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT OR IGNORE INTO circle_members (circle_id, user_id, joined_at)
VALUES (?, ?, ?)
`, circleID, userID, formatTime(joinedAt))
	if err != nil {
		return fmt.Errorf("add member: %w", err)
	}
	return nil
}

// IsMember reports whether the user belongs to the circle.
func (s *Store) IsMember(ctx context.Context, circleID, userID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	var count int
	err := s.sqlDB.QueryRowContext(ctx, `
SELECT COUNT(1) FROM circle_members WHERE circle_id = ? AND user_id = ?
`, circleID, userID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}
	return count > 0, nil
}

// ListCircleOverviews returns the user's circles, newest first, each joined
// with its most recently started session when one exists.
func (s *Store) ListCircleOverviews(ctx context.Context, userID string) ([]storage.CircleOverview, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT c.id, c.owner_id, c.name, c.recitation_text, c.target_count, c.created_at, c.updated_at,
       COALESCE(s.id, ''), COALESCE(s.status, ''), COALESCE(s.completed_count, 0), COALESCE(s.target_count, 0)
FROM circles c
JOIN circle_members m ON m.circle_id = c.id AND m.user_id = ?
LEFT JOIN sessions s ON s.id = (
    SELECT id FROM sessions
    WHERE circle_id = c.id
    ORDER BY started_at DESC, id DESC
    LIMIT 1
)
ORDER BY c.created_at DESC, c.id DESC
`, userID)
	if err != nil {
		return nil, fmt.Errorf("list circles: %w", err)
	}
	defer rows.Close()

	var overviews []storage.CircleOverview
	for rows.Next() {
		var o storage.CircleOverview
		var createdAt, updatedAt, sessionStatus string
		if err := rows.Scan(
			&o.Circle.ID, &o.Circle.OwnerID, &o.Circle.Name, &o.Circle.RecitationText,
			&o.Circle.TargetCount, &createdAt, &updatedAt,
			&o.SessionID, &sessionStatus, &o.CompletedCount, &o.CurrentTarget,
		); err != nil {
			return nil, fmt.Errorf("scan circle overview: %w", err)
		}
		if o.Circle.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("parse circle created_at: %w", err)
		}
		if o.Circle.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, fmt.Errorf("parse circle updated_at: %w", err)
		}
		o.SessionStatus = session.StatusFromLabel(sessionStatus)
		overviews = append(overviews, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate circle overviews: %w", err)
	}
	return overviews, nil
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zikrcircle/zikrcircle/internal/session"
	"github.com/zikrcircle/zikrcircle/internal/storage"
)

// StartSession persists a new open session, closing any previously open
// session for the same circle in the same transaction. This enforces the
// one-open-session-per-circle policy with supersede semantics.
func (s *Store) StartSession(ctx context.Context, sess session.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(sess.ID) == "" {
		return fmt.Errorf("session id is required")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin start session: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	closedAt := formatTime(sess.StartedAt)
	if _, err := tx.ExecContext(ctx, `
UPDATE sessions
SET status = ?, closed_at = ?, updated_at = ?
WHERE circle_id = ? AND status = ?
`, session.StatusLabel(session.StatusClosed), closedAt, closedAt,
		sess.CircleID, session.StatusLabel(session.StatusOpen)); err != nil {
		return fmt.Errorf("close superseded session: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO sessions (id, circle_id, target_count, completed_count, status, started_at, updated_at, closed_at)
VALUES (?, ?, ?, ?, ?, ?, ?, NULL)
`, sess.ID, sess.CircleID, sess.TargetCount, sess.CompletedCount,
		session.StatusLabel(sess.Status), formatTime(sess.StartedAt), formatTime(sess.UpdatedAt)); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit start session: %w", err)
	}
	return nil
}

// GetSession returns a session by ID.
func (s *Store) GetSession(ctx context.Context, id string) (session.Session, error) {
	if err := ctx.Err(); err != nil {
		return session.Session{}, err
	}
	return scanSession(s.sqlDB.QueryRowContext(ctx, `
SELECT id, circle_id, target_count, completed_count, status, started_at, updated_at, closed_at
FROM sessions WHERE id = ?
`, id))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (session.Session, error) {
	var sess session.Session
	var status, startedAt, updatedAt string
	var closedAt sql.NullString
	err := row.Scan(&sess.ID, &sess.CircleID, &sess.TargetCount, &sess.CompletedCount,
		&status, &startedAt, &updatedAt, &closedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return session.Session{}, storage.ErrNotFound
	}
	if err != nil {
		return session.Session{}, fmt.Errorf("get session: %w", err)
	}

	sess.Status = session.StatusFromLabel(status)
	if sess.StartedAt, err = parseTime(startedAt); err != nil {
		return session.Session{}, fmt.Errorf("parse session started_at: %w", err)
	}
	if sess.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return session.Session{}, fmt.Errorf("parse session updated_at: %w", err)
	}
	if closedAt.Valid {
		t, err := parseTime(closedAt.String)
		if err != nil {
			return session.Session{}, fmt.Errorf("parse session closed_at: %w", err)
		}
		sess.ClosedAt = &t
	}
	return sess, nil
}

// CloseSession transitions a session to closed. Idempotent: closing an
// already closed or completed session is a no-op.
func (s *Store) CloseSession(ctx context.Context, id string, closedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	res, err := s.sqlDB.ExecContext(ctx, `
UPDATE sessions
SET status = ?, closed_at = ?, updated_at = ?
WHERE id = ? AND status = ?
`, session.StatusLabel(session.StatusClosed), formatTime(closedAt), formatTime(closedAt),
		id, session.StatusLabel(session.StatusOpen))
	if err != nil {
		return fmt.Errorf("close session: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("close session rows: %w", err)
	}
	if affected == 0 {
		// Either already closed/completed (fine) or missing.
		var count int
		if err := s.sqlDB.QueryRowContext(ctx, "SELECT COUNT(1) FROM sessions WHERE id = ?", id).Scan(&count); err != nil {
			return fmt.Errorf("check session: %w", err)
		}
		if count == 0 {
			return storage.ErrNotFound
		}
	}
	return nil
}

// ApplyIncrement appends the increment and merges it into the session total
// atomically. The increment that reaches the target flips the session to
// completed in the same transaction, so the flip happens exactly once.
func (s *Store) ApplyIncrement(ctx context.Context, inc session.Increment) (storage.IncrementResult, error) {
	if err := ctx.Err(); err != nil {
		return storage.IncrementResult{}, err
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return storage.IncrementResult{}, fmt.Errorf("begin increment: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var target, completed int64
	var status string
	err = tx.QueryRowContext(ctx, `
SELECT target_count, completed_count, status FROM sessions WHERE id = ?
`, inc.SessionID).Scan(&target, &completed, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.IncrementResult{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.IncrementResult{}, fmt.Errorf("read session: %w", err)
	}
	if session.StatusFromLabel(status) != session.StatusOpen {
		return storage.IncrementResult{}, storage.ErrSessionClosed
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO increments (id, session_id, user_id, delta, created_at)
VALUES (?, ?, ?, ?, ?)
`, inc.ID, inc.SessionID, inc.UserID, inc.Delta, formatTime(inc.CreatedAt)); err != nil {
		return storage.IncrementResult{}, fmt.Errorf("insert increment: %w", err)
	}

	newTotal := completed + inc.Delta
	goalReached := newTotal >= target
	newStatus := session.StatusOpen
	if goalReached {
		newStatus = session.StatusCompleted
	}

	if _, err := tx.ExecContext(ctx, `
UPDATE sessions SET completed_count = ?, status = ?, updated_at = ? WHERE id = ?
`, newTotal, session.StatusLabel(newStatus), formatTime(inc.CreatedAt), inc.SessionID); err != nil {
		return storage.IncrementResult{}, fmt.Errorf("update session total: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return storage.IncrementResult{}, fmt.Errorf("commit increment: %w", err)
	}
	return storage.IncrementResult{CompletedCount: newTotal, GoalReached: goalReached}, nil
}

// AppendReflection stores a reflection note for a session.
func (s *Store) AppendReflection(ctx context.Context, r session.Reflection) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO reflections (id, session_id, user_id, text, visibility, created_at)
VALUES (?, ?, ?, ?, ?, ?)
`, r.ID, r.SessionID, r.UserID, r.Text, string(r.Visibility), formatTime(r.CreatedAt))
	if err != nil {
		return fmt.Errorf("append reflection: %w", err)
	}
	return nil
}

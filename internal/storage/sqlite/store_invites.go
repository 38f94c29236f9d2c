package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zikrcircle/zikrcircle/internal/invite"
	"github.com/zikrcircle/zikrcircle/internal/storage"
)

// PutInvite persists an invite token record.
func (s *Store) PutInvite(ctx context.Context, inv invite.Invite) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(inv.Token) == "" {
		return fmt.Errorf("invite token is required")
	}

	var consumedAt sql.NullString
	if inv.ConsumedAt != nil {
		consumedAt = sql.NullString{String: formatTime(*inv.ConsumedAt), Valid: true}
	}
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO invites (token, circle_id, issuer_id, status, created_at, consumed_by, consumed_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
`, inv.Token, inv.CircleID, inv.IssuerID, invite.StatusLabel(inv.Status),
		formatTime(inv.CreatedAt), nullIfEmpty(inv.ConsumedBy), consumedAt)
	if err != nil {
		return fmt.Errorf("put invite: %w", err)
	}
	return nil
}

func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// GetInvite returns an invite by token.
func (s *Store) GetInvite(ctx context.Context, token string) (invite.Invite, error) {
	if err := ctx.Err(); err != nil {
		return invite.Invite{}, err
	}

	var inv invite.Invite
	var status, createdAt string
	var consumedBy, consumedAt sql.NullString
	err := s.sqlDB.QueryRowContext(ctx, `
SELECT token, circle_id, issuer_id, status, created_at, consumed_by, consumed_at
FROM invites WHERE token = ?
`, token).Scan(&inv.Token, &inv.CircleID, &inv.IssuerID, &status, &createdAt, &consumedBy, &consumedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return invite.Invite{}, storage.ErrNotFound
	}
	if err != nil {
		return invite.Invite{}, fmt.Errorf("get invite: %w", err)
	}

	inv.Status = invite.StatusFromLabel(status)
	if inv.CreatedAt, err = parseTime(createdAt); err != nil {
		return invite.Invite{}, fmt.Errorf("parse invite created_at: %w", err)
	}
	if consumedBy.Valid {
		inv.ConsumedBy = consumedBy.String
	}
	if consumedAt.Valid {
		t, err := parseTime(consumedAt.String)
		if err != nil {
			return invite.Invite{}, fmt.Errorf("parse invite consumed_at: %w", err)
		}
		inv.ConsumedAt = &t
	}
	return inv, nil
}

// ConsumeInvite atomically redeems a pending token and returns its circle ID.
func (s *Store) ConsumeInvite(ctx context.Context, token, userID string, now time.Time) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin consume invite: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var circleID, status, createdAt string
	err = tx.QueryRowContext(ctx, `
SELECT circle_id, status, created_at FROM invites WHERE token = ?
`, token).Scan(&circleID, &status, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("read invite: %w", err)
	}

	if invite.StatusFromLabel(status) != invite.StatusPending {
		return "", storage.ErrInviteConsumed
	}
	issuedAt, err := parseTime(createdAt)
	if err != nil {
		return "", fmt.Errorf("parse invite created_at: %w", err)
	}
	if (invite.Invite{CreatedAt: issuedAt}).Expired(now.UTC(), 0) {
		return "", storage.ErrInviteExpired
	}

	if _, err := tx.ExecContext(ctx, `
UPDATE invites SET status = ?, consumed_by = ?, consumed_at = ? WHERE token = ?
`, invite.StatusLabel(invite.StatusConsumed), userID, formatTime(now), token); err != nil {
		return "", fmt.Errorf("consume invite: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit consume invite: %w", err)
	}
	return circleID, nil
}

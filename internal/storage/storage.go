// Package storage defines the persistence interfaces the services consume.
//
// The session store is the counter aggregator boundary: it durably merges
// per-user increments into a session total and reports it on demand.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/zikrcircle/zikrcircle/internal/circle"
	"github.com/zikrcircle/zikrcircle/internal/invite"
	"github.com/zikrcircle/zikrcircle/internal/session"
	"github.com/zikrcircle/zikrcircle/internal/user"
)

var (
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrSessionClosed indicates an increment hit a session that is no
	// longer open.
	ErrSessionClosed = errors.New("session is closed")
	// ErrInviteConsumed indicates a token was already redeemed.
	ErrInviteConsumed = errors.New("invite token already consumed")
	// ErrInviteExpired indicates a token past its redemption window.
	ErrInviteExpired = errors.New("invite token expired")
)

// UserStore persists user identity records.
type UserStore interface {
	PutUser(ctx context.Context, u user.User) error
	GetUser(ctx context.Context, id string) (user.User, error)
	GetUserByEmail(ctx context.Context, email string) (user.User, error)
}

// CircleOverview is a circle row joined with its most recent session, as
// presented in the circle list.
type CircleOverview struct {
	Circle         circle.Circle
	SessionID      string
	SessionStatus  session.Status
	CompletedCount int64
	CurrentTarget  int64
}

// CircleStore persists circles and their memberships.
type CircleStore interface {
	PutCircle(ctx context.Context, c circle.Circle) error
	GetCircle(ctx context.Context, id string) (circle.Circle, error)
	// AddMember is idempotent; joining a circle twice is a no-op.
	AddMember(ctx context.Context, circleID, userID string, joinedAt time.Time) error
	IsMember(ctx context.Context, circleID, userID string) (bool, error)
	// ListCircleOverviews returns the caller's circles, newest first, each
	// joined with its most recent session when one exists.
	ListCircleOverviews(ctx context.Context, userID string) ([]CircleOverview, error)
}

// IncrementResult reports the aggregate after a merge.
type IncrementResult struct {
	CompletedCount int64
	GoalReached    bool
}

// SessionStore persists sessions and merges increments into their totals.
type SessionStore interface {
	// StartSession persists a new open session, closing any previously
	// open session for the same circle in the same transaction.
	StartSession(ctx context.Context, s session.Session) error
	GetSession(ctx context.Context, id string) (session.Session, error)
	// CloseSession is idempotent; closing a missing session returns
	// ErrNotFound, closing a closed one is a no-op.
	CloseSession(ctx context.Context, id string, closedAt time.Time) error
	// ApplyIncrement appends the increment and returns the new aggregate
	// atomically. The write that reaches the target flips the session to
	// completed in the same transaction. Returns ErrSessionClosed when the
	// session is not open.
	ApplyIncrement(ctx context.Context, inc session.Increment) (IncrementResult, error)
	AppendReflection(ctx context.Context, r session.Reflection) error
}

// InviteStore persists invite tokens.
type InviteStore interface {
	PutInvite(ctx context.Context, inv invite.Invite) error
	GetInvite(ctx context.Context, token string) (invite.Invite, error)
	// ConsumeInvite atomically redeems a pending token and returns its
	// circle ID. Returns ErrNotFound for unknown tokens, ErrInviteConsumed
	// for redeemed ones, and ErrInviteExpired for tokens past their TTL.
	ConsumeInvite(ctx context.Context, token, userID string, now time.Time) (string, error)
}

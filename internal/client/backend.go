// Package client provides the client-side core of the counting app: the
// live session state, the optimistic increment reconciler, the polling loop,
// and the pending-join store.
//
// The package talks to the backend only through the Backend interface, so
// tests drive the state machine with an in-memory fake while production uses
// the HTTP implementation.
package client

import (
	"context"

	"github.com/zikrcircle/zikrcircle/internal/session"
)

// User is the profile returned by signup and me.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// CircleSummary is one row of the circle list with live session progress.
type CircleSummary struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	RecitationText string `json:"recitation_text"`
	TargetCount    int64  `json:"target_count"`
	SessionID      string `json:"session_id"`
	SessionStatus  string `json:"session_status"`
	CompletedCount int64  `json:"completed_count"`
	CurrentTarget  int64  `json:"current_target"`
	ProgressPct    int64  `json:"progress_pct"`
}

// SessionSnapshot is a read-only view of a session and its circle, as
// returned by one get_session poll.
type SessionSnapshot struct {
	ID             string
	CircleID       string
	TargetCount    int64
	CompletedCount int64
	Status         session.Status
	CircleName     string
	RecitationText string
}

// IncrementResult is the server acknowledgement of one increment: the new
// authoritative aggregate and whether this increment crossed the goal.
type IncrementResult struct {
	CompletedCount int64 `json:"completed_count"`
	GoalReached    bool  `json:"goal_reached"`
}

// Backend is the remote action surface the client core depends on.
type Backend interface {
	Signup(ctx context.Context, email, name string) (token string, user User, err error)
	Me(ctx context.Context) (User, error)
	CreateCircle(ctx context.Context, name, recitationText string, targetCount int64) (CircleSummary, error)
	ListCircles(ctx context.Context) ([]CircleSummary, error)
	CreateInvite(ctx context.Context, circleID string) (inviteToken string, err error)
	AcceptInvite(ctx context.Context, inviteToken string) error
	StartSession(ctx context.Context, circleID string, targetCount int64) (sessionID string, err error)
	GetSession(ctx context.Context, sessionID string) (SessionSnapshot, error)
	Increment(ctx context.Context, sessionID string, delta int64) (IncrementResult, error)
	CloseSession(ctx context.Context, sessionID string) error
	Reflect(ctx context.Context, sessionID, text, visibility string) error
}

// Package session provides the counting session domain: lifecycle state,
// the completion rule, and the append-only increment and reflection records.
package session

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/zikrcircle/zikrcircle/internal/errors"
	"github.com/zikrcircle/zikrcircle/internal/id"
)

// Status describes the lifecycle state of a session.
type Status int

const (
	// StatusUnspecified represents an invalid session status value.
	StatusUnspecified Status = iota
	// StatusOpen indicates the session is accepting increments.
	StatusOpen
	// StatusCompleted indicates the target count has been reached.
	StatusCompleted
	// StatusClosed indicates the session was closed explicitly or superseded.
	StatusClosed
)

var (
	// ErrEmptyCircleID indicates a missing circle ID.
	ErrEmptyCircleID = apperrors.New(apperrors.CodeSessionEmptyCircleID, "circle id is required")
	// ErrInvalidTarget indicates a non-positive target count.
	ErrInvalidTarget = apperrors.New(apperrors.CodeSessionInvalidTarget, "target count must be positive")
)

// Session represents one round of counting against a target for a circle.
//
// TargetCount is fixed at session start. CompletedCount is the server-side
// aggregate of all accepted increments and is monotonically non-decreasing
// while the session is open.
type Session struct {
	ID             string
	CircleID       string
	TargetCount    int64
	CompletedCount int64
	Status         Status
	StartedAt      time.Time
	UpdatedAt      time.Time
	ClosedAt       *time.Time // nil while the session is open
}

// StartSessionInput describes the metadata needed to start a session.
type StartSessionInput struct {
	CircleID    string
	TargetCount int64
}

// StartSession creates a new open session with a generated ID and timestamps.
func StartSession(input StartSessionInput, now func() time.Time, idGenerator func() (string, error)) (Session, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	normalized, err := NormalizeStartSessionInput(input)
	if err != nil {
		return Session{}, err
	}

	sessionID, err := idGenerator()
	if err != nil {
		return Session{}, fmt.Errorf("generate session id: %w", err)
	}

	startedAt := now().UTC()
	return Session{
		ID:             sessionID,
		CircleID:       normalized.CircleID,
		TargetCount:    normalized.TargetCount,
		CompletedCount: 0,
		Status:         StatusOpen,
		StartedAt:      startedAt,
		UpdatedAt:      startedAt,
	}, nil
}

// NormalizeStartSessionInput trims and validates session input metadata.
func NormalizeStartSessionInput(input StartSessionInput) (StartSessionInput, error) {
	input.CircleID = strings.TrimSpace(input.CircleID)
	if input.CircleID == "" {
		return StartSessionInput{}, ErrEmptyCircleID
	}
	if input.TargetCount <= 0 {
		return StartSessionInput{}, ErrInvalidTarget
	}
	return input, nil
}

// IsComplete reports whether the session should be treated as finished.
//
// Both signals are checked because they can race: the server may flip the
// status before a poll observes it, or a client may observe the count cross
// the threshold before the status flips.
func IsComplete(s Session) bool {
	if s.Status == StatusCompleted {
		return true
	}
	return s.TargetCount > 0 && s.CompletedCount >= s.TargetCount
}

// StatusLabel returns the string label for a session status.
func StatusLabel(status Status) string {
	switch status {
	case StatusOpen:
		return "OPEN"
	case StatusCompleted:
		return "COMPLETED"
	case StatusClosed:
		return "CLOSED"
	default:
		return "UNSPECIFIED"
	}
}

// StatusFromLabel converts a status label to a Status value.
func StatusFromLabel(label string) Status {
	switch strings.ToUpper(strings.TrimSpace(label)) {
	case "OPEN":
		return StatusOpen
	case "COMPLETED":
		return StatusCompleted
	case "CLOSED":
		return StatusClosed
	default:
		return StatusUnspecified
	}
}

package session

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/zikrcircle/zikrcircle/internal/errors"
	"github.com/zikrcircle/zikrcircle/internal/id"
)

// MaxDelta bounds a single contribution. Larger deltas are rejected before
// any network or storage call.
const MaxDelta = 1000

// ErrInvalidDelta indicates a delta outside [1, MaxDelta].
var ErrInvalidDelta = apperrors.New(apperrors.CodeInvalidDelta, "delta must be between 1 and 1000")

// Increment is an atomic, append-only contribution to a session's total.
// Increments are never mutated or deleted; the aggregate sum is commutative,
// so acknowledgement order does not affect the final count.
type Increment struct {
	ID        string
	SessionID string
	UserID    string
	Delta     int64
	CreatedAt time.Time
}

// NewIncrement validates and builds an increment record.
func NewIncrement(sessionID, userID string, delta int64, now func() time.Time, idGenerator func() (string, error)) (Increment, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return Increment{}, apperrors.New(apperrors.CodeNotFound, "session id is required")
	}
	if delta < 1 || delta > MaxDelta {
		return Increment{}, ErrInvalidDelta
	}

	incrementID, err := idGenerator()
	if err != nil {
		return Increment{}, fmt.Errorf("generate increment id: %w", err)
	}

	return Increment{
		ID:        incrementID,
		SessionID: sessionID,
		UserID:    strings.TrimSpace(userID),
		Delta:     delta,
		CreatedAt: now().UTC(),
	}, nil
}

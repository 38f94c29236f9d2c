package client

import (
	"sync"

	apperrors "github.com/zikrcircle/zikrcircle/internal/errors"
	"github.com/zikrcircle/zikrcircle/internal/session"
)

// IncrementState tracks one optimistic increment through its resolution.
type IncrementState int

const (
	// IncrementNone means no increment has been attempted yet.
	IncrementNone IncrementState = iota
	// IncrementPending means the optimistic apply happened and the server
	// has not answered.
	IncrementPending
	// IncrementCommitted means the server merged the increment; committed
	// increments are never rolled back.
	IncrementCommitted
	// IncrementRolledBack means a transient failure undid the optimistic
	// apply exactly.
	IncrementRolledBack
	// IncrementSuperseded means the session closed underneath the increment;
	// the optimistic count is kept as a local echo.
	IncrementSuperseded
)

var (
	// ErrNoActiveSession indicates an increment without a live session.
	ErrNoActiveSession = apperrors.New(apperrors.CodeNoActiveSession, "no active session")
	// ErrIncrementInFlight indicates an increment while another is unresolved.
	ErrIncrementInFlight = apperrors.New(apperrors.CodeIncrementInFlight, "an increment is already in flight")
	// ErrSessionComplete indicates an increment against a finished session.
	ErrSessionComplete = apperrors.New(apperrors.CodeSessionClosed, "session is complete")
)

// SessionContext is the client's view of the live session. All mutation goes
// through its methods under the lock; the controller owns exactly one per
// live session, so there is no package-level state.
type SessionContext struct {
	mu sync.Mutex

	sessionID      string
	circleName     string
	recitationText string
	targetCount    int64

	youCount    int64 // caller's own optimistic tally
	circleCount int64 // last server aggregate
	status      session.Status

	inFlight      bool
	lastIncrement IncrementState
	completed     bool // completion already fired for this session
}

// NewSessionContext creates the local state for a freshly started or joined
// session.
func NewSessionContext(sessionID string, targetCount int64) *SessionContext {
	return &SessionContext{
		sessionID:   sessionID,
		targetCount: targetCount,
		status:      session.StatusOpen,
	}
}

// Snapshot is a consistent copy of the context for rendering.
type Snapshot struct {
	SessionID      string
	CircleName     string
	RecitationText string
	TargetCount    int64
	YouCount       int64
	CircleCount    int64
	Status         session.Status
	LastIncrement  IncrementState
	Completed      bool
}

// Snapshot returns a copy of the current state.
func (c *SessionContext) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		SessionID:      c.sessionID,
		CircleName:     c.circleName,
		RecitationText: c.recitationText,
		TargetCount:    c.targetCount,
		YouCount:       c.youCount,
		CircleCount:    c.circleCount,
		Status:         c.status,
		LastIncrement:  c.lastIncrement,
		Completed:      c.completed,
	}
}

// SessionID returns the session this context tracks.
func (c *SessionContext) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// beginIncrement applies delta optimistically and marks the increment
// pending. It fails without mutating anything when the session is gone,
// finished, or already has an increment in flight.
func (c *SessionContext) beginIncrement(delta int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sessionID == "" {
		return ErrNoActiveSession
	}
	if c.completed {
		return ErrSessionComplete
	}
	if c.inFlight {
		return ErrIncrementInFlight
	}
	c.youCount += delta
	c.inFlight = true
	c.lastIncrement = IncrementPending
	return nil
}

// commitIncrement adopts the server aggregate after a successful merge.
func (c *SessionContext) commitIncrement(completedCount int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.circleCount = completedCount
	c.inFlight = false
	c.lastIncrement = IncrementCommitted
}

// rollbackIncrement undoes exactly the optimistic delta after a transient
// failure.
func (c *SessionContext) rollbackIncrement(delta int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.youCount -= delta
	c.inFlight = false
	c.lastIncrement = IncrementRolledBack
}

// supersedeIncrement resolves a pending increment whose session closed
// underneath it. The optimistic count stays.
func (c *SessionContext) supersedeIncrement() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight = false
	c.lastIncrement = IncrementSuperseded
}

// markCompleted records the completion transition. It returns true only for
// the first call, so the completion callback fires at most once per session
// no matter how many signals observe it.
func (c *SessionContext) markCompleted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.completed {
		return false
	}
	c.completed = true
	c.status = session.StatusCompleted
	return true
}

// observe folds one poll snapshot into the context. It reports whether the
// snapshot belongs to this context's session and whether the shared
// completion rule now holds.
func (c *SessionContext) observe(snap SessionSnapshot) (matches, complete bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if snap.ID != c.sessionID {
		return false, false
	}
	c.circleCount = snap.CompletedCount
	c.targetCount = snap.TargetCount
	c.status = snap.Status
	if snap.CircleName != "" {
		c.circleName = snap.CircleName
	}
	if snap.RecitationText != "" {
		c.recitationText = snap.RecitationText
	}
	return true, session.IsComplete(session.Session{
		Status:         snap.Status,
		TargetCount:    snap.TargetCount,
		CompletedCount: snap.CompletedCount,
	})
}

// close marks the session locally finished without firing completion.
func (c *SessionContext) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status == session.StatusOpen {
		c.status = session.StatusClosed
	}
	c.completed = true
}

package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	apperrors "github.com/zikrcircle/zikrcircle/internal/errors"
	"github.com/zikrcircle/zikrcircle/internal/session"
)

// Controller drives the client flows end to end: authentication with
// pending-join redemption, the circle list, and the live session with its
// reconciler and polling loop. It owns the single SessionContext for the
// session currently on screen.
type Controller struct {
	backend      Backend
	joins        *JoinStore
	pollInterval time.Duration

	// onComplete is invoked at most once per session, from whichever signal
	// observes completion first.
	onComplete func(Snapshot)

	mu     sync.Mutex
	state  *SessionContext
	rec    *Reconciler
	poller Poller
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithPollInterval overrides the live-session poll cadence.
func WithPollInterval(d time.Duration) ControllerOption {
	return func(c *Controller) { c.pollInterval = d }
}

// WithOnComplete registers the completion callback. It receives the final
// local snapshot of the finished session.
func WithOnComplete(fn func(Snapshot)) ControllerOption {
	return func(c *Controller) { c.onComplete = fn }
}

// NewController creates a controller. joins may be nil when deep-link joins
// are not used.
func NewController(backend Backend, joins *JoinStore, opts ...ControllerOption) *Controller {
	c := &Controller{
		backend:      backend,
		joins:        joins,
		pollInterval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CaptureJoinLink records the invite token of a ?join= deep link so it
// survives until the user has an account.
func (c *Controller) CaptureJoinLink(rawURL string) error {
	if c.joins == nil {
		return nil
	}
	token := JoinTokenFromURL(rawURL)
	if token == "" {
		return nil
	}
	return c.joins.Save(token)
}

// Signup registers or signs the user back in, then redeems any pending join
// token. A failed redemption never fails the signup.
func (c *Controller) Signup(ctx context.Context, email, name string) (User, error) {
	token, u, err := c.backend.Signup(ctx, email, name)
	if err != nil {
		return User{}, err
	}
	if setter, ok := c.backend.(interface{ SetToken(string) }); ok {
		setter.SetToken(token)
	}
	// The account exists either way; a failed redemption keeps the token
	// stored unless the server rejected it outright.
	_ = c.RedeemPendingJoin(ctx)
	return u, nil
}

// RedeemPendingJoin redeems a stored invite token, if any. The token is
// cleared once the server gives a verdict: joined, or rejected as invalid or
// expired. It stays stored across UNAUTHENTICATED and transient failures so
// a later attempt can retry it.
func (c *Controller) RedeemPendingJoin(ctx context.Context) error {
	if c.joins == nil {
		return nil
	}
	token, err := c.joins.Load()
	if err != nil || token == "" {
		return err
	}

	err = c.backend.AcceptInvite(ctx, token)
	switch {
	case err == nil:
		return c.joins.Clear()
	case apperrors.IsCode(err, apperrors.CodeInviteInvalidToken),
		apperrors.IsCode(err, apperrors.CodeInviteTokenExpired):
		// Verdict reached; keeping the token would retry a dead invite
		// forever.
		if clearErr := c.joins.Clear(); clearErr != nil {
			return clearErr
		}
		return err
	default:
		return err
	}
}

// Circles fetches the circle list. The list is always fetched fresh; the
// controller never caches it.
func (c *Controller) Circles(ctx context.Context) ([]CircleSummary, error) {
	return c.backend.ListCircles(ctx)
}

// StartLive starts a new session for the circle and begins polling it. Local
// state is reset and any previous session's poll loop is replaced before the
// new one starts.
func (c *Controller) StartLive(ctx context.Context, circleID string, targetCount int64) (*SessionContext, error) {
	sessionID, err := c.backend.StartSession(ctx, circleID, targetCount)
	if err != nil {
		return nil, err
	}
	return c.attach(sessionID, targetCount), nil
}

// JoinLive attaches to an already-open session, fetching its current state
// before polling begins.
func (c *Controller) JoinLive(ctx context.Context, sessionID string) (*SessionContext, error) {
	snap, err := c.backend.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	state := c.attach(sessionID, snap.TargetCount)
	state.observe(snap)
	return state, nil
}

// attach swaps in fresh local state for sessionID and restarts the poll loop
// against it.
func (c *Controller) attach(sessionID string, targetCount int64) *SessionContext {
	c.mu.Lock()
	state := NewSessionContext(sessionID, targetCount)
	c.state = state
	c.rec = NewReconciler(c.backend, state, func() { c.fireComplete(state) })
	c.mu.Unlock()

	c.poller.Start(c.pollInterval, func(ctx context.Context) bool {
		return c.pollTick(ctx, state)
	})
	return state
}

// pollTick fetches the session once and folds it into state. It reports
// whether the loop should keep running.
func (c *Controller) pollTick(ctx context.Context, state *SessionContext) bool {
	snap, err := c.backend.GetSession(ctx, state.SessionID())
	if err != nil {
		// Transient blips keep the loop alive; a definitive answer that the
		// session is gone or the token is bad stops it.
		return apperrors.IsRetryable(err)
	}

	matches, complete := state.observe(snap)
	if !matches {
		return false
	}
	if complete {
		c.fireComplete(state)
		return false
	}
	return snap.Status == session.StatusOpen
}

// fireComplete runs the completion transition at most once per session.
func (c *Controller) fireComplete(state *SessionContext) {
	if !state.markCompleted() {
		return
	}
	c.poller.Stop()
	if c.onComplete != nil {
		c.onComplete(state.Snapshot())
	}
}

// AddDelta contributes to the live session via the reconciler.
func (c *Controller) AddDelta(ctx context.Context, delta int64) (AddOutcome, error) {
	c.mu.Lock()
	rec := c.rec
	c.mu.Unlock()
	if rec == nil {
		return AddOutcome{}, ErrNoActiveSession
	}
	return rec.AddDelta(ctx, delta)
}

// CloseSession ends the live session early: the poll loop stops and the
// session is closed on the server. Completion does not fire for a manual
// close.
func (c *Controller) CloseSession(ctx context.Context) error {
	c.mu.Lock()
	state := c.state
	c.mu.Unlock()
	if state == nil {
		return ErrNoActiveSession
	}

	c.poller.Stop()
	state.close()
	if err := c.backend.CloseSession(ctx, state.SessionID()); err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	return nil
}

// Reflect appends a reflection note to the live session.
func (c *Controller) Reflect(ctx context.Context, text, visibility string) error {
	c.mu.Lock()
	state := c.state
	c.mu.Unlock()
	if state == nil {
		return ErrNoActiveSession
	}
	return c.backend.Reflect(ctx, state.SessionID(), text, visibility)
}

// StopPolling halts the live poll loop without touching the server, e.g.
// when the session screen goes to the background.
func (c *Controller) StopPolling() {
	c.poller.Stop()
}

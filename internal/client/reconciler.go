package client

import (
	"context"

	apperrors "github.com/zikrcircle/zikrcircle/internal/errors"
	"github.com/zikrcircle/zikrcircle/internal/session"
)

// AddOutcome reports how one AddDelta call resolved.
type AddOutcome struct {
	State IncrementState
	// CompletedCount is the authoritative aggregate, meaningful only when
	// State is IncrementCommitted.
	CompletedCount int64
	GoalReached    bool
}

// Reconciler merges the caller's taps into the shared session total: apply
// optimistically, send, then reconcile the local state with the server's
// answer.
type Reconciler struct {
	backend Backend
	state   *SessionContext

	// onComplete is invoked when a committed or superseded increment reveals
	// the session finished; the context guarantees at most one invocation.
	onComplete func()
}

// NewReconciler wires a reconciler to a session's local state. onComplete
// may be nil.
func NewReconciler(backend Backend, state *SessionContext, onComplete func()) *Reconciler {
	return &Reconciler{backend: backend, state: state, onComplete: onComplete}
}

// AddDelta contributes delta repetitions to the session.
//
// Validation happens before any mutation or network call; an invalid delta
// leaves the local count untouched and sends nothing. While an earlier call
// is unresolved, AddDelta fails with INCREMENT_IN_FLIGHT.
//
// Resolution:
//   - success: the server aggregate is adopted and the increment commits;
//     a committed increment is never rolled back.
//   - SESSION_CLOSED: the session finished under the caller; the optimistic
//     count stays, the increment is superseded, completion fires (once) and
//     the closure error is returned so the caller can show the final state.
//   - any other failure: the optimistic delta is rolled back exactly and the
//     error is returned; TRANSIENT errors are safe to retry manually.
func (r *Reconciler) AddDelta(ctx context.Context, delta int64) (AddOutcome, error) {
	if delta < 1 || delta > session.MaxDelta {
		return AddOutcome{State: IncrementNone}, session.ErrInvalidDelta
	}

	if err := r.state.beginIncrement(delta); err != nil {
		return AddOutcome{State: IncrementNone}, err
	}

	res, err := r.backend.Increment(ctx, r.state.SessionID(), delta)
	if err != nil {
		if apperrors.IsCode(err, apperrors.CodeSessionClosed) {
			r.state.supersedeIncrement()
			r.fireCompletion()
			return AddOutcome{State: IncrementSuperseded}, err
		}
		r.state.rollbackIncrement(delta)
		return AddOutcome{State: IncrementRolledBack}, err
	}

	r.state.commitIncrement(res.CompletedCount)
	if res.GoalReached {
		r.fireCompletion()
	}
	return AddOutcome{
		State:          IncrementCommitted,
		CompletedCount: res.CompletedCount,
		GoalReached:    res.GoalReached,
	}, nil
}

func (r *Reconciler) fireCompletion() {
	if r.state.markCompleted() && r.onComplete != nil {
		r.onComplete()
	}
}

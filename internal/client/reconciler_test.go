package client

import (
	"context"
	"errors"
	"testing"

	apperrors "github.com/zikrcircle/zikrcircle/internal/errors"
	"github.com/zikrcircle/zikrcircle/internal/session"
)

func TestAddDeltaRejectsInvalidDeltaBeforeSending(t *testing.T) {
	backend := &fakeBackend{}
	state := NewSessionContext("s1", 100)
	rec := NewReconciler(backend, state, nil)

	for _, delta := range []int64{0, -3, session.MaxDelta + 1} {
		outcome, err := rec.AddDelta(context.Background(), delta)
		if !errors.Is(err, session.ErrInvalidDelta) {
			t.Fatalf("delta %d: expected ErrInvalidDelta, got %v", delta, err)
		}
		if outcome.State != IncrementNone {
			t.Fatalf("delta %d: expected no increment, got state %v", delta, outcome.State)
		}
	}

	if backend.incrementCallCount() != 0 {
		t.Fatal("invalid deltas must not reach the backend")
	}
	if snap := state.Snapshot(); snap.YouCount != 0 {
		t.Fatalf("invalid deltas must not mutate the local count, got %d", snap.YouCount)
	}
}

func TestAddDeltaCommitsAndAdoptsAggregate(t *testing.T) {
	backend := &fakeBackend{incrementResult: IncrementResult{CompletedCount: 42}}
	state := NewSessionContext("s1", 100)
	rec := NewReconciler(backend, state, nil)

	outcome, err := rec.AddDelta(context.Background(), 3)
	if err != nil {
		t.Fatalf("AddDelta: %v", err)
	}
	if outcome.State != IncrementCommitted || outcome.CompletedCount != 42 {
		t.Fatalf("unexpected outcome %+v", outcome)
	}

	snap := state.Snapshot()
	if snap.YouCount != 3 {
		t.Fatalf("expected you count 3, got %d", snap.YouCount)
	}
	if snap.CircleCount != 42 {
		t.Fatalf("expected circle count 42, got %d", snap.CircleCount)
	}
	if snap.LastIncrement != IncrementCommitted {
		t.Fatalf("expected committed, got %v", snap.LastIncrement)
	}
}

func TestAddDeltaRollsBackExactlyOnTransientFailure(t *testing.T) {
	backend := &fakeBackend{incrementResult: IncrementResult{CompletedCount: 10}}
	state := NewSessionContext("s1", 100)
	rec := NewReconciler(backend, state, nil)

	// A committed increment first, so rollback has something to preserve.
	if _, err := rec.AddDelta(context.Background(), 7); err != nil {
		t.Fatalf("seed increment: %v", err)
	}

	backend.incrementErr = apperrors.New(apperrors.CodeTransient, "network down")
	outcome, err := rec.AddDelta(context.Background(), 5)
	if !apperrors.IsRetryable(err) {
		t.Fatalf("expected a retryable error, got %v", err)
	}
	if outcome.State != IncrementRolledBack {
		t.Fatalf("expected rollback, got %v", outcome.State)
	}

	snap := state.Snapshot()
	if snap.YouCount != 7 {
		t.Fatalf("rollback must remove exactly the failed delta: got %d, want 7", snap.YouCount)
	}
	if snap.Completed {
		t.Fatal("a transient failure must not complete the session")
	}

	// No auto-retry happened.
	if backend.incrementCallCount() != 1 {
		t.Fatalf("expected 1 delivered increment, got %d", backend.incrementCallCount())
	}
}

func TestAddDeltaSupersededOnSessionClosed(t *testing.T) {
	var completions int
	backend := &fakeBackend{
		incrementErr: apperrors.New(apperrors.CodeSessionClosed, "session is closed"),
	}
	state := NewSessionContext("s1", 100)
	rec := NewReconciler(backend, state, func() { completions++ })

	outcome, err := rec.AddDelta(context.Background(), 4)
	if !apperrors.IsCode(err, apperrors.CodeSessionClosed) {
		t.Fatalf("expected session closed error, got %v", err)
	}
	if outcome.State != IncrementSuperseded {
		t.Fatalf("expected superseded, got %v", outcome.State)
	}

	snap := state.Snapshot()
	if snap.YouCount != 4 {
		t.Fatalf("superseded increment keeps the optimistic count: got %d, want 4", snap.YouCount)
	}
	if completions != 1 {
		t.Fatalf("expected completion to fire once, got %d", completions)
	}

	// The session is finished locally; further taps are rejected without a
	// network call.
	if _, err := rec.AddDelta(context.Background(), 1); !apperrors.IsCode(err, apperrors.CodeSessionClosed) {
		t.Fatalf("expected rejection after completion, got %v", err)
	}
	if backend.incrementCallCount() != 0 {
		t.Fatal("rejected taps must not reach the backend")
	}
	if completions != 1 {
		t.Fatalf("completion must not fire twice, got %d", completions)
	}
}

func TestAddDeltaRejectsWhileInFlight(t *testing.T) {
	backend := &fakeBackend{}
	state := NewSessionContext("s1", 100)
	rec := NewReconciler(backend, state, nil)

	// Simulate an unresolved increment.
	if err := state.beginIncrement(2); err != nil {
		t.Fatalf("begin: %v", err)
	}

	_, err := rec.AddDelta(context.Background(), 1)
	if !apperrors.IsCode(err, apperrors.CodeIncrementInFlight) {
		t.Fatalf("expected in-flight rejection, got %v", err)
	}
	if backend.incrementCallCount() != 0 {
		t.Fatal("busy rejection must not reach the backend")
	}
	if snap := state.Snapshot(); snap.YouCount != 2 {
		t.Fatalf("busy rejection must not mutate the count, got %d", snap.YouCount)
	}
}

func TestAddDeltaWithoutSession(t *testing.T) {
	rec := NewReconciler(&fakeBackend{}, NewSessionContext("", 0), nil)
	_, err := rec.AddDelta(context.Background(), 1)
	if !apperrors.IsCode(err, apperrors.CodeNoActiveSession) {
		t.Fatalf("expected no active session, got %v", err)
	}
}

// Target 100, circle already at 97, the caller taps 5: the server answers
// 102 with goal_reached, completion fires exactly once, and further taps are
// disabled.
func TestAddDeltaGoalReachedScenario(t *testing.T) {
	var completions int
	backend := &fakeBackend{
		incrementResult: IncrementResult{CompletedCount: 102, GoalReached: true},
	}
	state := NewSessionContext("s1", 100)
	state.observe(SessionSnapshot{ID: "s1", TargetCount: 100, CompletedCount: 97, Status: session.StatusOpen})
	rec := NewReconciler(backend, state, func() { completions++ })

	outcome, err := rec.AddDelta(context.Background(), 5)
	if err != nil {
		t.Fatalf("AddDelta: %v", err)
	}
	if !outcome.GoalReached || outcome.CompletedCount != 102 {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if completions != 1 {
		t.Fatalf("expected exactly one completion, got %d", completions)
	}

	snap := state.Snapshot()
	if snap.CircleCount != 102 || snap.YouCount != 5 {
		t.Fatalf("unexpected counts: circle %d you %d", snap.CircleCount, snap.YouCount)
	}
	if !snap.Completed {
		t.Fatal("expected completed session")
	}

	// Tap disabled: nothing sent, completion not refired.
	if _, err := rec.AddDelta(context.Background(), 1); !apperrors.IsCode(err, apperrors.CodeSessionClosed) {
		t.Fatalf("expected rejection, got %v", err)
	}
	if backend.incrementCallCount() != 1 {
		t.Fatalf("expected 1 delivered increment, got %d", backend.incrementCallCount())
	}
	if completions != 1 {
		t.Fatalf("expected exactly one completion, got %d", completions)
	}
}

// A completion observed by poll before the increment response arrives must
// not fire the callback a second time.
func TestCompletionAtMostOnceAcrossSignals(t *testing.T) {
	var completions int
	state := NewSessionContext("s1", 100)
	rec := NewReconciler(&fakeBackend{
		incrementResult: IncrementResult{CompletedCount: 100, GoalReached: true},
	}, state, func() { completions++ })

	// Poll signal lands first.
	if !state.markCompleted() {
		t.Fatal("first completion signal should win")
	}

	if _, err := rec.AddDelta(context.Background(), 1); err == nil {
		t.Fatal("expected rejection after completion")
	}
	if completions != 0 {
		t.Fatalf("callback belongs to whichever signal marked first, got %d extra", completions)
	}
}

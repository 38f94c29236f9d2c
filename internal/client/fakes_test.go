package client

import (
	"context"
	"sync"
)

// fakeBackend is a scriptable in-memory Backend for driving the client core.
type fakeBackend struct {
	mu sync.Mutex

	token string

	signupToken string
	signupUser  User
	signupErr   error

	circles    []CircleSummary
	listCalls  int
	listErr    error

	acceptedTokens []string
	acceptErr      error

	startSessionID string
	startErr       error

	// snapshots are returned by GetSession in order; the last one repeats.
	snapshots  []SessionSnapshot
	getErr     error
	getCalls   int

	incrementDeltas []int64
	incrementResult IncrementResult
	incrementErr    error

	closedSessions []string
	closeErr       error

	reflections []string
	reflectErr  error
}

func (f *fakeBackend) SetToken(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = token
}

func (f *fakeBackend) Signup(ctx context.Context, email, name string) (string, User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.signupErr != nil {
		return "", User{}, f.signupErr
	}
	return f.signupToken, f.signupUser, nil
}

func (f *fakeBackend) Me(ctx context.Context) (User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.signupUser, nil
}

func (f *fakeBackend) CreateCircle(ctx context.Context, name, recitationText string, targetCount int64) (CircleSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := CircleSummary{ID: "circle-new", Name: name, RecitationText: recitationText, TargetCount: targetCount}
	f.circles = append(f.circles, c)
	return c, nil
}

func (f *fakeBackend) ListCircles(ctx context.Context) ([]CircleSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]CircleSummary(nil), f.circles...), nil
}

func (f *fakeBackend) CreateInvite(ctx context.Context, circleID string) (string, error) {
	return "invite-token", nil
}

func (f *fakeBackend) AcceptInvite(ctx context.Context, inviteToken string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.acceptErr != nil {
		return f.acceptErr
	}
	f.acceptedTokens = append(f.acceptedTokens, inviteToken)
	return nil
}

func (f *fakeBackend) StartSession(ctx context.Context, circleID string, targetCount int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return "", f.startErr
	}
	return f.startSessionID, nil
}

func (f *fakeBackend) GetSession(ctx context.Context, sessionID string) (SessionSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	if f.getErr != nil {
		return SessionSnapshot{}, f.getErr
	}
	if len(f.snapshots) == 0 {
		return SessionSnapshot{ID: sessionID}, nil
	}
	snap := f.snapshots[0]
	if len(f.snapshots) > 1 {
		f.snapshots = f.snapshots[1:]
	}
	return snap, nil
}

func (f *fakeBackend) Increment(ctx context.Context, sessionID string, delta int64) (IncrementResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.incrementErr != nil {
		return IncrementResult{}, f.incrementErr
	}
	f.incrementDeltas = append(f.incrementDeltas, delta)
	return f.incrementResult, nil
}

func (f *fakeBackend) CloseSession(ctx context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closeErr != nil {
		return f.closeErr
	}
	f.closedSessions = append(f.closedSessions, sessionID)
	return nil
}

func (f *fakeBackend) Reflect(ctx context.Context, sessionID, text, visibility string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reflectErr != nil {
		return f.reflectErr
	}
	f.reflections = append(f.reflections, text)
	return nil
}

func (f *fakeBackend) incrementCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.incrementDeltas)
}

func (f *fakeBackend) getSessionCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.getCalls
}

var _ Backend = (*fakeBackend)(nil)

package api

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/zikrcircle/zikrcircle/internal/circle"
	"github.com/zikrcircle/zikrcircle/internal/invite"
	"github.com/zikrcircle/zikrcircle/internal/session"
	"github.com/zikrcircle/zikrcircle/internal/storage"
	"github.com/zikrcircle/zikrcircle/internal/user"
)

// fakeStore is an in-memory implementation of all storage interfaces,
// mirroring the transactional behavior of the sqlite store.
type fakeStore struct {
	mu          sync.Mutex
	users       map[string]user.User
	circles     map[string]circle.Circle
	members     map[string]map[string]bool // circle id → user id set
	sessions    map[string]session.Session
	increments  []session.Increment
	invites     map[string]invite.Invite
	reflections []session.Reflection

	failAll error // when set, every call returns this error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    make(map[string]user.User),
		circles:  make(map[string]circle.Circle),
		members:  make(map[string]map[string]bool),
		sessions: make(map[string]session.Session),
		invites:  make(map[string]invite.Invite),
	}
}

func (f *fakeStore) PutUser(ctx context.Context, u user.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return f.failAll
	}
	f.users[u.ID] = u
	return nil
}

func (f *fakeStore) GetUser(ctx context.Context, id string) (user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return user.User{}, f.failAll
	}
	u, ok := f.users[id]
	if !ok {
		return user.User{}, storage.ErrNotFound
	}
	return u, nil
}

func (f *fakeStore) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return user.User{}, f.failAll
	}
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return user.User{}, storage.ErrNotFound
}

func (f *fakeStore) PutCircle(ctx context.Context, c circle.Circle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return f.failAll
	}
	f.circles[c.ID] = c
	return nil
}

func (f *fakeStore) GetCircle(ctx context.Context, id string) (circle.Circle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return circle.Circle{}, f.failAll
	}
	c, ok := f.circles[id]
	if !ok {
		return circle.Circle{}, storage.ErrNotFound
	}
	return c, nil
}

func (f *fakeStore) AddMember(ctx context.Context, circleID, userID string, joinedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return f.failAll
	}
	if f.members[circleID] == nil {
		f.members[circleID] = make(map[string]bool)
	}
	f.members[circleID][userID] = true
	return nil
}

func (f *fakeStore) IsMember(ctx context.Context, circleID, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return false, f.failAll
	}
	return f.members[circleID][userID], nil
}

func (f *fakeStore) ListCircleOverviews(ctx context.Context, userID string) ([]storage.CircleOverview, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return nil, f.failAll
	}
	var overviews []storage.CircleOverview
	for circleID, members := range f.members {
		if !members[userID] {
			continue
		}
		c, ok := f.circles[circleID]
		if !ok {
			continue
		}
		o := storage.CircleOverview{Circle: c}
		var latest session.Session
		for _, s := range f.sessions {
			if s.CircleID == circleID && (latest.ID == "" || s.StartedAt.After(latest.StartedAt)) {
				latest = s
			}
		}
		if latest.ID != "" {
			o.SessionID = latest.ID
			o.SessionStatus = latest.Status
			o.CompletedCount = latest.CompletedCount
			o.CurrentTarget = latest.TargetCount
		}
		overviews = append(overviews, o)
	}
	return overviews, nil
}

func (f *fakeStore) StartSession(ctx context.Context, s session.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return f.failAll
	}
	for id, existing := range f.sessions {
		if existing.CircleID == s.CircleID && existing.Status == session.StatusOpen {
			closedAt := s.StartedAt
			existing.Status = session.StatusClosed
			existing.ClosedAt = &closedAt
			f.sessions[id] = existing
		}
	}
	f.sessions[s.ID] = s
	return nil
}

func (f *fakeStore) GetSession(ctx context.Context, id string) (session.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return session.Session{}, f.failAll
	}
	s, ok := f.sessions[id]
	if !ok {
		return session.Session{}, storage.ErrNotFound
	}
	return s, nil
}

func (f *fakeStore) CloseSession(ctx context.Context, id string, closedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return f.failAll
	}
	s, ok := f.sessions[id]
	if !ok {
		return storage.ErrNotFound
	}
	if s.Status == session.StatusOpen {
		s.Status = session.StatusClosed
		s.ClosedAt = &closedAt
		f.sessions[id] = s
	}
	return nil
}

func (f *fakeStore) ApplyIncrement(ctx context.Context, inc session.Increment) (storage.IncrementResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return storage.IncrementResult{}, f.failAll
	}
	s, ok := f.sessions[inc.SessionID]
	if !ok {
		return storage.IncrementResult{}, storage.ErrNotFound
	}
	if s.Status != session.StatusOpen {
		return storage.IncrementResult{}, storage.ErrSessionClosed
	}
	f.increments = append(f.increments, inc)
	s.CompletedCount += inc.Delta
	goal := s.CompletedCount >= s.TargetCount
	if goal {
		s.Status = session.StatusCompleted
	}
	f.sessions[inc.SessionID] = s
	return storage.IncrementResult{CompletedCount: s.CompletedCount, GoalReached: goal}, nil
}

func (f *fakeStore) AppendReflection(ctx context.Context, r session.Reflection) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return f.failAll
	}
	f.reflections = append(f.reflections, r)
	return nil
}

func (f *fakeStore) PutInvite(ctx context.Context, inv invite.Invite) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return f.failAll
	}
	f.invites[inv.Token] = inv
	return nil
}

func (f *fakeStore) GetInvite(ctx context.Context, token string) (invite.Invite, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return invite.Invite{}, f.failAll
	}
	inv, ok := f.invites[token]
	if !ok {
		return invite.Invite{}, storage.ErrNotFound
	}
	return inv, nil
}

func (f *fakeStore) ConsumeInvite(ctx context.Context, token, userID string, now time.Time) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return "", f.failAll
	}
	inv, ok := f.invites[token]
	if !ok {
		return "", storage.ErrNotFound
	}
	if inv.Status != invite.StatusPending {
		return "", storage.ErrInviteConsumed
	}
	if inv.Expired(now, 0) {
		return "", storage.ErrInviteExpired
	}
	inv.Status = invite.StatusConsumed
	inv.ConsumedBy = userID
	inv.ConsumedAt = &now
	f.invites[token] = inv
	return inv.CircleID, nil
}

var (
	_ storage.UserStore    = (*fakeStore)(nil)
	_ storage.CircleStore  = (*fakeStore)(nil)
	_ storage.SessionStore = (*fakeStore)(nil)
	_ storage.InviteStore  = (*fakeStore)(nil)
)

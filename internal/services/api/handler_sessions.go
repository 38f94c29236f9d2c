package api

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/zikrcircle/zikrcircle/internal/errors"
	"github.com/zikrcircle/zikrcircle/internal/session"
	"github.com/zikrcircle/zikrcircle/internal/storage"
)

// startSession opens a new counting round for a circle. Any previously open
// session for the circle is closed in the same store transaction.
func (h *handler) startSession(ctx context.Context, req *actionRequest) (map[string]any, error) {
	userID, err := h.requireUser(req)
	if err != nil {
		return nil, err
	}

	member, err := h.deps.Circles.IsMember(ctx, req.CircleID, userID)
	if err != nil {
		return nil, fmt.Errorf("check membership: %w", err)
	}
	if !member {
		return nil, apperrors.New(apperrors.CodeUnauthorized, "caller is not a circle member")
	}

	if _, err := h.deps.Circles.GetCircle(ctx, req.CircleID); err != nil {
		return nil, mapStorageError(err, "circle")
	}

	sess, err := session.StartSession(session.StartSessionInput{
		CircleID:    req.CircleID,
		TargetCount: req.TargetCount,
	}, h.deps.Clock, h.deps.IDGenerator)
	if err != nil {
		return nil, err
	}

	if err := h.deps.Sessions.StartSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}
	return map[string]any{"session_id": sess.ID}, nil
}

// getSession returns a read-only snapshot of a session and its circle.
// Non-members get not_found rather than a permission error, so the response
// does not reveal the session's existence.
func (h *handler) getSession(ctx context.Context, req *actionRequest) (map[string]any, error) {
	userID, err := h.requireUser(req)
	if err != nil {
		return nil, err
	}

	sess, c, err := h.loadMemberSession(ctx, req.SessionID, userID)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"session": sessionPayload(sess),
		"circle": map[string]any{
			"name":            c.name,
			"recitation_text": c.recitation,
		},
	}, nil
}

// increment merges a contribution into the session total.
func (h *handler) increment(ctx context.Context, req *actionRequest) (map[string]any, error) {
	userID, err := h.requireUser(req)
	if err != nil {
		return nil, err
	}

	inc, err := session.NewIncrement(req.SessionID, userID, req.Delta, h.deps.Clock, h.deps.IDGenerator)
	if err != nil {
		return nil, err
	}

	if _, _, err := h.loadMemberSession(ctx, req.SessionID, userID); err != nil {
		return nil, err
	}

	res, err := h.deps.Sessions.ApplyIncrement(ctx, inc)
	if err != nil {
		return nil, mapStorageError(err, "session")
	}
	return map[string]any{
		"completed_count": res.CompletedCount,
		"goal_reached":    res.GoalReached,
	}, nil
}

// closeSession transitions a session to closed; idempotent.
func (h *handler) closeSession(ctx context.Context, req *actionRequest) (map[string]any, error) {
	userID, err := h.requireUser(req)
	if err != nil {
		return nil, err
	}

	if _, _, err := h.loadMemberSession(ctx, req.SessionID, userID); err != nil {
		return nil, err
	}

	if err := h.deps.Sessions.CloseSession(ctx, req.SessionID, h.deps.Clock().UTC()); err != nil {
		return nil, mapStorageError(err, "session")
	}
	return map[string]any{}, nil
}

// reflect appends a reflection note to a session.
func (h *handler) reflect(ctx context.Context, req *actionRequest) (map[string]any, error) {
	userID, err := h.requireUser(req)
	if err != nil {
		return nil, err
	}

	r, err := session.NewReflection(req.SessionID, userID, req.Text,
		session.Visibility(req.Visibility), h.deps.Clock, h.deps.IDGenerator)
	if err != nil {
		return nil, err
	}

	if _, _, err := h.loadMemberSession(ctx, req.SessionID, userID); err != nil {
		return nil, err
	}

	if err := h.deps.Sessions.AppendReflection(ctx, r); err != nil {
		return nil, fmt.Errorf("append reflection: %w", err)
	}
	return map[string]any{}, nil
}

type circleInfo struct {
	name       string
	recitation string
}

// loadMemberSession fetches a session and verifies the caller belongs to its
// circle, collapsing missing records and non-membership into not_found.
func (h *handler) loadMemberSession(ctx context.Context, sessionID, userID string) (session.Session, circleInfo, error) {
	sess, err := h.deps.Sessions.GetSession(ctx, sessionID)
	if err != nil {
		return session.Session{}, circleInfo{}, mapStorageError(err, "session")
	}

	member, err := h.deps.Circles.IsMember(ctx, sess.CircleID, userID)
	if err != nil {
		return session.Session{}, circleInfo{}, fmt.Errorf("check membership: %w", err)
	}
	if !member {
		return session.Session{}, circleInfo{}, apperrors.New(apperrors.CodeNotFound, "session not found")
	}

	c, err := h.deps.Circles.GetCircle(ctx, sess.CircleID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return session.Session{}, circleInfo{}, apperrors.Wrap(apperrors.CodeNotFound, "circle not found", err)
		}
		return session.Session{}, circleInfo{}, fmt.Errorf("get circle: %w", err)
	}
	return sess, circleInfo{name: c.Name, recitation: c.RecitationText}, nil
}

func sessionPayload(sess session.Session) map[string]any {
	return map[string]any{
		"id":              sess.ID,
		"circle_id":       sess.CircleID,
		"target_count":    sess.TargetCount,
		"completed_count": sess.CompletedCount,
		"status":          statusWire(sess.Status),
	}
}

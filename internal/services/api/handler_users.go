package api

import (
	"context"
	"errors"
	"fmt"

	"github.com/zikrcircle/zikrcircle/internal/storage"
	"github.com/zikrcircle/zikrcircle/internal/user"
)

// signup registers a new user, or signs an existing one back in by email,
// and issues a bearer token either way.
func (h *handler) signup(ctx context.Context, req *actionRequest) (map[string]any, error) {
	normalized, err := user.NormalizeCreateUserInput(user.CreateUserInput{
		Email: req.Email,
		Name:  req.Name,
	})
	if err != nil {
		return nil, err
	}

	u, err := h.deps.Users.GetUserByEmail(ctx, normalized.Email)
	switch {
	case err == nil:
		// Existing account: signup doubles as sign-in.
	case errors.Is(err, storage.ErrNotFound):
		u, err = user.CreateUser(normalized, h.deps.Clock, h.deps.IDGenerator)
		if err != nil {
			return nil, err
		}
		if err := h.deps.Users.PutUser(ctx, u); err != nil {
			return nil, fmt.Errorf("persist user: %w", err)
		}
	default:
		return nil, fmt.Errorf("look up user: %w", err)
	}

	token, err := h.deps.Tokens.Issue(u.ID)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	return map[string]any{
		"token": token,
		"user":  userPayload(u),
	}, nil
}

// me returns the authenticated user's profile.
func (h *handler) me(ctx context.Context, req *actionRequest) (map[string]any, error) {
	userID, err := h.requireUser(req)
	if err != nil {
		return nil, err
	}

	u, err := h.deps.Users.GetUser(ctx, userID)
	if err != nil {
		return nil, mapStorageError(err, "user")
	}
	return map[string]any{"user": userPayload(u)}, nil
}

func userPayload(u user.User) map[string]any {
	return map[string]any{
		"id":    u.ID,
		"email": u.Email,
		"name":  u.Name,
	}
}

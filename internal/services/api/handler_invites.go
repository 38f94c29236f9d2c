package api

import (
	"context"
	"fmt"

	apperrors "github.com/zikrcircle/zikrcircle/internal/errors"
	"github.com/zikrcircle/zikrcircle/internal/invite"
)

// createInvite issues a single-use join token for a circle. Only members may
// invite.
func (h *handler) createInvite(ctx context.Context, req *actionRequest) (map[string]any, error) {
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

	inv, err := invite.CreateInvite(invite.CreateInviteInput{
		CircleID: req.CircleID,
		IssuerID: userID,
	}, h.deps.Clock, h.deps.IDGenerator)
	if err != nil {
		return nil, err
	}

	if err := h.deps.Invites.PutInvite(ctx, inv); err != nil {
		return nil, fmt.Errorf("persist invite: %w", err)
	}
	return map[string]any{"invite_token": inv.Token}, nil
}

// acceptInvite redeems a token and joins the caller to its circle. Tokens are
// single-use; joining a circle twice is a harmless no-op join.
func (h *handler) acceptInvite(ctx context.Context, req *actionRequest) (map[string]any, error) {
	userID, err := h.requireUser(req)
	if err != nil {
		return nil, err
	}

	now := h.deps.Clock().UTC()
	circleID, err := h.deps.Invites.ConsumeInvite(ctx, req.InviteToken, userID, now)
	if err != nil {
		mapped := mapStorageError(err, "invite token")
		// An unknown token is indistinguishable from a consumed one on the
		// wire; both surface as invalid_token.
		if apperrors.IsCode(mapped, apperrors.CodeNotFound) {
			return nil, apperrors.Wrap(apperrors.CodeInviteInvalidToken, "invite token is unknown", err)
		}
		return nil, mapped
	}

	if err := h.deps.Circles.AddMember(ctx, circleID, userID, now); err != nil {
		return nil, fmt.Errorf("join circle: %w", err)
	}
	return map[string]any{"joined": true}, nil
}

package api

import (
	"context"
	"fmt"
	"strings"

	"github.com/zikrcircle/zikrcircle/internal/circle"
	"github.com/zikrcircle/zikrcircle/internal/session"
)

// createCircle creates a circle owned by the caller, who becomes its first
// member.
func (h *handler) createCircle(ctx context.Context, req *actionRequest) (map[string]any, error) {
	userID, err := h.requireUser(req)
	if err != nil {
		return nil, err
	}

	c, err := circle.CreateCircle(circle.CreateCircleInput{
		OwnerID:        userID,
		Name:           req.Name,
		RecitationText: req.RecitationText,
		TargetCount:    req.TargetCount,
	}, h.deps.Clock, h.deps.IDGenerator)
	if err != nil {
		return nil, err
	}

	if err := h.deps.Circles.PutCircle(ctx, c); err != nil {
		return nil, fmt.Errorf("persist circle: %w", err)
	}
	if err := h.deps.Circles.AddMember(ctx, c.ID, userID, c.CreatedAt); err != nil {
		return nil, fmt.Errorf("add owner membership: %w", err)
	}

	return map[string]any{
		"circle": map[string]any{
			"id":              c.ID,
			"name":            c.Name,
			"recitation_text": c.RecitationText,
			"target_count":    c.TargetCount,
		},
	}, nil
}

// listCircles returns the caller's circles with live progress, newest first.
// Always computed fresh; the client never caches this list.
func (h *handler) listCircles(ctx context.Context, req *actionRequest) (map[string]any, error) {
	userID, err := h.requireUser(req)
	if err != nil {
		return nil, err
	}

	overviews, err := h.deps.Circles.ListCircleOverviews(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list circles: %w", err)
	}

	circles := make([]map[string]any, 0, len(overviews))
	for _, o := range overviews {
		circles = append(circles, map[string]any{
			"id":              o.Circle.ID,
			"name":            o.Circle.Name,
			"recitation_text": o.Circle.RecitationText,
			"target_count":    o.Circle.TargetCount,
			"session_id":      o.SessionID,
			"session_status":  statusWire(o.SessionStatus),
			"completed_count": o.CompletedCount,
			"current_target":  o.CurrentTarget,
			"progress_pct":    progressPct(o.CompletedCount, o.CurrentTarget),
		})
	}
	return map[string]any{"circles": circles}, nil
}

// statusWire renders a session status for the envelope; no session renders
// as the empty string.
func statusWire(status session.Status) string {
	if status == session.StatusUnspecified {
		return ""
	}
	return strings.ToLower(session.StatusLabel(status))
}

// progressPct reports completion as a whole percentage, capped at 100.
func progressPct(completed, target int64) int64 {
	if target <= 0 {
		return 0
	}
	pct := completed * 100 / target
	if pct > 100 {
		pct = 100
	}
	return pct
}

// Package invite provides single-use join tokens for circles.
package invite

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/zikrcircle/zikrcircle/internal/errors"
	"github.com/zikrcircle/zikrcircle/internal/id"
)

// DefaultTTL bounds how long an issued token stays redeemable. The original
// system had no expiry at all; a bounded lifetime is a deliberate policy
// choice, enforced at redemption.
const DefaultTTL = 14 * 24 * time.Hour

var (
	// ErrEmptyCircleID indicates a missing circle ID.
	ErrEmptyCircleID = apperrors.New(apperrors.CodeInviteEmptyCircleID, "circle id is required")
	// ErrInvalidToken indicates an unknown or already-consumed token.
	ErrInvalidToken = apperrors.New(apperrors.CodeInviteInvalidToken, "invite token is invalid")
	// ErrTokenExpired indicates a token past its redemption window.
	ErrTokenExpired = apperrors.New(apperrors.CodeInviteTokenExpired, "invite token has expired")
)

// Status represents the lifecycle status of an invite token.
type Status int

const (
	// StatusUnspecified represents an invalid invite status.
	StatusUnspecified Status = iota
	// StatusPending indicates a token is available to redeem.
	StatusPending
	// StatusConsumed indicates a token has been redeemed.
	StatusConsumed
)

// Invite represents a single-use join token for a circle.
type Invite struct {
	Token     string
	CircleID  string
	IssuerID  string
	Status    Status
	CreatedAt time.Time
	// ConsumedBy and ConsumedAt record redemption; zero values while pending.
	ConsumedBy string
	ConsumedAt *time.Time
}

// CreateInviteInput describes the metadata needed to issue an invite.
type CreateInviteInput struct {
	CircleID string
	IssuerID string
}

// CreateInvite issues a new pending invite token.
func CreateInvite(input CreateInviteInput, now func() time.Time, idGenerator func() (string, error)) (Invite, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	normalized, err := NormalizeCreateInviteInput(input)
	if err != nil {
		return Invite{}, err
	}

	token, err := idGenerator()
	if err != nil {
		return Invite{}, fmt.Errorf("generate invite token: %w", err)
	}

	return Invite{
		Token:     token,
		CircleID:  normalized.CircleID,
		IssuerID:  normalized.IssuerID,
		Status:    StatusPending,
		CreatedAt: now().UTC(),
	}, nil
}

// NormalizeCreateInviteInput trims and validates invite input metadata.
func NormalizeCreateInviteInput(input CreateInviteInput) (CreateInviteInput, error) {
	input.CircleID = strings.TrimSpace(input.CircleID)
	if input.CircleID == "" {
		return CreateInviteInput{}, ErrEmptyCircleID
	}
	input.IssuerID = strings.TrimSpace(input.IssuerID)
	return input, nil
}

// Expired reports whether the token is past its redemption window.
func (i Invite) Expired(now time.Time, ttl time.Duration) bool {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return now.After(i.CreatedAt.Add(ttl))
}

// StatusLabel returns the string label for an invite status.
func StatusLabel(status Status) string {
	switch status {
	case StatusPending:
		return "PENDING"
	case StatusConsumed:
		return "CONSUMED"
	default:
		return "UNSPECIFIED"
	}
}

// StatusFromLabel converts a status label to a Status value.
func StatusFromLabel(label string) Status {
	switch strings.ToUpper(strings.TrimSpace(label)) {
	case "PENDING":
		return StatusPending
	case "CONSUMED":
		return StatusConsumed
	default:
		return StatusUnspecified
	}
}

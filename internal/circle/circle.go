// Package circle provides the counting circle domain type.
//
// A circle is a named group of users sharing a recurring counting goal. The
// recitation text and default target seed every session started for the
// circle; the circle's identity is immutable once created.
package circle

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/zikrcircle/zikrcircle/internal/errors"
	"github.com/zikrcircle/zikrcircle/internal/id"
)

const (
	// DefaultRecitation is used when a circle is created without one.
	DefaultRecitation = "SubhanAllah"
	// DefaultTargetCount is used when a circle is created without a target.
	DefaultTargetCount = 100
)

var (
	// ErrEmptyName indicates a missing circle name.
	ErrEmptyName = apperrors.New(apperrors.CodeCircleNameEmpty, "circle name is required")
	// ErrEmptyOwnerID indicates a missing owner ID.
	ErrEmptyOwnerID = apperrors.New(apperrors.CodeCircleEmptyOwnerID, "owner id is required")
	// ErrInvalidTarget indicates a non-positive default target count.
	ErrInvalidTarget = apperrors.New(apperrors.CodeCircleInvalidTarget, "target count must be positive")
)

// Circle represents a named group with a shared counting goal.
type Circle struct {
	ID             string
	OwnerID        string
	Name           string
	RecitationText string
	TargetCount    int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// CreateCircleInput describes the metadata needed to create a circle.
type CreateCircleInput struct {
	OwnerID        string
	Name           string
	RecitationText string
	// TargetCount of zero selects DefaultTargetCount.
	TargetCount int64
}

// CreateCircle creates a new circle with a generated ID and timestamps.
func CreateCircle(input CreateCircleInput, now func() time.Time, idGenerator func() (string, error)) (Circle, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	normalized, err := NormalizeCreateCircleInput(input)
	if err != nil {
		return Circle{}, err
	}

	circleID, err := idGenerator()
	if err != nil {
		return Circle{}, fmt.Errorf("generate circle id: %w", err)
	}

	createdAt := now().UTC()
	return Circle{
		ID:             circleID,
		OwnerID:        normalized.OwnerID,
		Name:           normalized.Name,
		RecitationText: normalized.RecitationText,
		TargetCount:    normalized.TargetCount,
		CreatedAt:      createdAt,
		UpdatedAt:      createdAt,
	}, nil
}

// NormalizeCreateCircleInput trims and validates circle input metadata,
// filling in the recitation and target defaults.
func NormalizeCreateCircleInput(input CreateCircleInput) (CreateCircleInput, error) {
	input.OwnerID = strings.TrimSpace(input.OwnerID)
	if input.OwnerID == "" {
		return CreateCircleInput{}, ErrEmptyOwnerID
	}
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return CreateCircleInput{}, ErrEmptyName
	}
	input.RecitationText = strings.TrimSpace(input.RecitationText)
	if input.RecitationText == "" {
		input.RecitationText = DefaultRecitation
	}
	if input.TargetCount == 0 {
		input.TargetCount = DefaultTargetCount
	}
	if input.TargetCount < 0 {
		return CreateCircleInput{}, ErrInvalidTarget
	}
	return input, nil
}

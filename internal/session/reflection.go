package session

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/zikrcircle/zikrcircle/internal/errors"
	"github.com/zikrcircle/zikrcircle/internal/id"
)

// Visibility controls who can read a reflection.
type Visibility string

const (
	// VisibilityPrivate restricts a reflection to its author.
	VisibilityPrivate Visibility = "private"
	// VisibilityCircle shares a reflection with the whole circle.
	VisibilityCircle Visibility = "circle"
)

var (
	// ErrEmptyReflectionText indicates a missing reflection body.
	ErrEmptyReflectionText = apperrors.New(apperrors.CodeReflectionEmptyText, "reflection text is required")
	// ErrInvalidVisibility indicates an unknown visibility value.
	ErrInvalidVisibility = apperrors.New(apperrors.CodeReflectionInvalidVisibility, "visibility must be private or circle")
)

// Reflection is a note a member attaches to a session after counting.
type Reflection struct {
	ID         string
	SessionID  string
	UserID     string
	Text       string
	Visibility Visibility
	CreatedAt  time.Time
}

// NewReflection validates and builds a reflection record. An empty
// visibility defaults to private.
func NewReflection(sessionID, userID, text string, visibility Visibility, now func() time.Time, idGenerator func() (string, error)) (Reflection, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return Reflection{}, ErrEmptyReflectionText
	}
	switch visibility {
	case "":
		visibility = VisibilityPrivate
	case VisibilityPrivate, VisibilityCircle:
	default:
		return Reflection{}, ErrInvalidVisibility
	}

	reflectionID, err := idGenerator()
	if err != nil {
		return Reflection{}, fmt.Errorf("generate reflection id: %w", err)
	}

	return Reflection{
		ID:         reflectionID,
		SessionID:  strings.TrimSpace(sessionID),
		UserID:     strings.TrimSpace(userID),
		Text:       text,
		Visibility: visibility,
		CreatedAt:  now().UTC(),
	}, nil
}

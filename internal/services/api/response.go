package api

import (
	"encoding/json"
	"errors"
	"net/http"

	apperrors "github.com/zikrcircle/zikrcircle/internal/errors"
	"github.com/zikrcircle/zikrcircle/internal/storage"
)

func writeOK(w http.ResponseWriter, payload map[string]any) {
	body := map[string]any{"ok": true}
	for k, v := range payload {
		body[k] = v
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	code := apperrors.GetCode(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code.HTTPStatus())
	_ = json.NewEncoder(w).Encode(map[string]any{
		"ok":      false,
		"error":   code.WireString(),
		"message": err.Error(),
	})
}

// mapStorageError converts store sentinel errors into domain errors; other
// errors pass through unchanged.
func mapStorageError(err error, context string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrNotFound):
		return apperrors.Wrap(apperrors.CodeNotFound, context+" not found", err)
	case errors.Is(err, storage.ErrSessionClosed):
		return apperrors.Wrap(apperrors.CodeSessionClosed, "session is closed", err)
	case errors.Is(err, storage.ErrInviteConsumed):
		return apperrors.Wrap(apperrors.CodeInviteInvalidToken, "invite token already consumed", err)
	case errors.Is(err, storage.ErrInviteExpired):
		return apperrors.Wrap(apperrors.CodeInviteTokenExpired, "invite token expired", err)
	default:
		return err
	}
}

package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zikrcircle/zikrcircle/internal/auth"
	apperrors "github.com/zikrcircle/zikrcircle/internal/errors"
	"github.com/zikrcircle/zikrcircle/internal/id"
	"github.com/zikrcircle/zikrcircle/internal/storage"
)

const tracerName = "github.com/zikrcircle/zikrcircle/internal/services/api"

// Dependencies groups everything the action handlers need.
type Dependencies struct {
	Users    storage.UserStore
	Circles  storage.CircleStore
	Sessions storage.SessionStore
	Invites  storage.InviteStore
	Tokens   *auth.Manager

	// Clock and IDGenerator are injectable for tests; nil selects defaults.
	Clock       func() time.Time
	IDGenerator func() (string, error)
}

type handler struct {
	deps   Dependencies
	tracer trace.Tracer
}

// actionRequest is the union of every action's request fields. GET carries
// them as query parameters, POST as a JSON body.
type actionRequest struct {
	Action         string `json:"action"`
	Token          string `json:"token"`
	Email          string `json:"email"`
	Name           string `json:"name"`
	RecitationText string `json:"recitation_text"`
	TargetCount    int64  `json:"target_count"`
	CircleID       string `json:"circle_id"`
	SessionID      string `json:"session_id"`
	InviteToken    string `json:"invite_token"`
	Delta          int64  `json:"delta"`
	Text           string `json:"text"`
	Visibility     string `json:"visibility"`
}

// NewHandler creates the HTTP handler for the action API.
func NewHandler(deps Dependencies) http.Handler {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.IDGenerator == nil {
		deps.IDGenerator = id.NewID
	}
	h := &handler{
		deps:   deps,
		tracer: otel.Tracer(tracerName),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api", h.serveAction)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func (h *handler) serveAction(w http.ResponseWriter, r *http.Request) {
	req, err := parseRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if req.Action == "" {
		writeError(w, apperrors.New(apperrors.CodeUnknown, "action is required"))
		return
	}

	ctx, span := h.tracer.Start(r.Context(), "api."+req.Action,
		trace.WithAttributes(attribute.String("zikr.action", req.Action)))
	defer span.End()

	payload, err := h.dispatch(ctx, req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		if apperrors.GetCode(err) == apperrors.CodeUnknown {
			log.Printf("action %s: %v", req.Action, err)
		}
		writeError(w, err)
		return
	}
	writeOK(w, payload)
}

func (h *handler) dispatch(ctx context.Context, req *actionRequest) (map[string]any, error) {
	switch req.Action {
	case "signup":
		return h.signup(ctx, req)
	case "me":
		return h.me(ctx, req)
	case "create_circle":
		return h.createCircle(ctx, req)
	case "list_circles":
		return h.listCircles(ctx, req)
	case "create_invite":
		return h.createInvite(ctx, req)
	case "accept_invite":
		return h.acceptInvite(ctx, req)
	case "start_session":
		return h.startSession(ctx, req)
	case "get_session":
		return h.getSession(ctx, req)
	case "increment":
		return h.increment(ctx, req)
	case "close_session":
		return h.closeSession(ctx, req)
	case "reflect":
		return h.reflect(ctx, req)
	default:
		return nil, apperrors.New(apperrors.CodeUnknown, "unknown action "+req.Action)
	}
}

// requireUser resolves the bearer token to a user ID.
func (h *handler) requireUser(req *actionRequest) (string, error) {
	return h.deps.Tokens.Verify(req.Token)
}

func parseRequest(r *http.Request) (*actionRequest, error) {
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		req := &actionRequest{
			Action:      strings.TrimSpace(q.Get("action")),
			Token:       q.Get("token"),
			CircleID:    q.Get("circle_id"),
			SessionID:   q.Get("session_id"),
			InviteToken: q.Get("invite_token"),
		}
		for key, dst := range map[string]*int64{
			"target_count": &req.TargetCount,
			"delta":        &req.Delta,
		} {
			raw := strings.TrimSpace(q.Get(key))
			if raw == "" {
				continue
			}
			n, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return nil, apperrors.New(apperrors.CodeUnknown, "invalid "+key)
			}
			*dst = n
		}
		return req, nil
	case http.MethodPost:
		var req actionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeUnknown, "decode request body", err)
		}
		req.Action = strings.TrimSpace(req.Action)
		return &req, nil
	default:
		return nil, apperrors.New(apperrors.CodeUnknown, "method not allowed")
	}
}

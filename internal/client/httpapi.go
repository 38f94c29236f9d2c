package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	apperrors "github.com/zikrcircle/zikrcircle/internal/errors"
	"github.com/zikrcircle/zikrcircle/internal/session"
)

const defaultRequestTimeout = 10 * time.Second

// HTTPBackend implements Backend against the JSON action endpoint. Every
// request is a POST to <baseURL>/api with {"action": ..., "token": ...} plus
// the action's parameters; every response is the ok envelope.
type HTTPBackend struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.Mutex
	token string
}

// NewHTTPBackend creates a backend client for the given base URL, e.g.
// "https://zikr.example.com".
func NewHTTPBackend(baseURL string) *HTTPBackend {
	return &HTTPBackend{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
	}
}

// SetToken installs the bearer token attached to subsequent requests.
// An empty token makes requests unauthenticated.
func (b *HTTPBackend) SetToken(token string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.token = token
}

// Token returns the currently installed bearer token.
func (b *HTTPBackend) Token() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.token
}

// envelope is the part of every response common to all actions.
type envelope struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// do sends one action request and decodes the payload into out (which may be
// nil). Network and decoding failures surface as TRANSIENT; envelope errors
// carry the code mapped from the wire error string.
func (b *HTTPBackend) do(ctx context.Context, action string, params map[string]any, out any) error {
	body := map[string]any{"action": action}
	if token := b.Token(); token != "" {
		body["token"] = token
	}
	for k, v := range params {
		body[k] = v
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", action, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/api", bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("build %s request: %w", action, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeTransient, action+" request failed", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return apperrors.Wrap(apperrors.CodeTransient, "read "+action+" response", err)
	}

	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		// A gateway 5xx without the envelope is indistinguishable from a
		// dropped connection; retryable either way.
		return apperrors.Wrap(apperrors.CodeTransient, fmt.Sprintf("%s returned status %d", action, resp.StatusCode), err)
	}
	if !env.OK {
		code := apperrors.CodeFromWireString(env.Error)
		msg := env.Message
		if msg == "" {
			msg = action + " failed"
		}
		return apperrors.New(code, msg)
	}

	if out != nil {
		if err := json.Unmarshal(payload, out); err != nil {
			return fmt.Errorf("decode %s payload: %w", action, err)
		}
	}
	return nil
}

func (b *HTTPBackend) Signup(ctx context.Context, email, name string) (string, User, error) {
	var out struct {
		Token string `json:"token"`
		User  User   `json:"user"`
	}
	err := b.do(ctx, "signup", map[string]any{"email": email, "name": name}, &out)
	if err != nil {
		return "", User{}, err
	}
	return out.Token, out.User, nil
}

func (b *HTTPBackend) Me(ctx context.Context) (User, error) {
	var out struct {
		User User `json:"user"`
	}
	if err := b.do(ctx, "me", nil, &out); err != nil {
		return User{}, err
	}
	return out.User, nil
}

func (b *HTTPBackend) CreateCircle(ctx context.Context, name, recitationText string, targetCount int64) (CircleSummary, error) {
	var out struct {
		Circle CircleSummary `json:"circle"`
	}
	err := b.do(ctx, "create_circle", map[string]any{
		"name":            name,
		"recitation_text": recitationText,
		"target_count":    targetCount,
	}, &out)
	if err != nil {
		return CircleSummary{}, err
	}
	return out.Circle, nil
}

func (b *HTTPBackend) ListCircles(ctx context.Context) ([]CircleSummary, error) {
	var out struct {
		Circles []CircleSummary `json:"circles"`
	}
	if err := b.do(ctx, "list_circles", nil, &out); err != nil {
		return nil, err
	}
	return out.Circles, nil
}

func (b *HTTPBackend) CreateInvite(ctx context.Context, circleID string) (string, error) {
	var out struct {
		InviteToken string `json:"invite_token"`
	}
	if err := b.do(ctx, "create_invite", map[string]any{"circle_id": circleID}, &out); err != nil {
		return "", err
	}
	return out.InviteToken, nil
}

func (b *HTTPBackend) AcceptInvite(ctx context.Context, inviteToken string) error {
	return b.do(ctx, "accept_invite", map[string]any{"invite_token": inviteToken}, nil)
}

func (b *HTTPBackend) StartSession(ctx context.Context, circleID string, targetCount int64) (string, error) {
	var out struct {
		SessionID string `json:"session_id"`
	}
	err := b.do(ctx, "start_session", map[string]any{
		"circle_id":    circleID,
		"target_count": targetCount,
	}, &out)
	if err != nil {
		return "", err
	}
	return out.SessionID, nil
}

func (b *HTTPBackend) GetSession(ctx context.Context, sessionID string) (SessionSnapshot, error) {
	var out struct {
		Session struct {
			ID             string `json:"id"`
			CircleID       string `json:"circle_id"`
			TargetCount    int64  `json:"target_count"`
			CompletedCount int64  `json:"completed_count"`
			Status         string `json:"status"`
		} `json:"session"`
		Circle struct {
			Name           string `json:"name"`
			RecitationText string `json:"recitation_text"`
		} `json:"circle"`
	}
	if err := b.do(ctx, "get_session", map[string]any{"session_id": sessionID}, &out); err != nil {
		return SessionSnapshot{}, err
	}
	return SessionSnapshot{
		ID:             out.Session.ID,
		CircleID:       out.Session.CircleID,
		TargetCount:    out.Session.TargetCount,
		CompletedCount: out.Session.CompletedCount,
		Status:         session.StatusFromLabel(out.Session.Status),
		CircleName:     out.Circle.Name,
		RecitationText: out.Circle.RecitationText,
	}, nil
}

func (b *HTTPBackend) Increment(ctx context.Context, sessionID string, delta int64) (IncrementResult, error) {
	var out IncrementResult
	err := b.do(ctx, "increment", map[string]any{
		"session_id": sessionID,
		"delta":      delta,
	}, &out)
	if err != nil {
		return IncrementResult{}, err
	}
	return out, nil
}

func (b *HTTPBackend) CloseSession(ctx context.Context, sessionID string) error {
	return b.do(ctx, "close_session", map[string]any{"session_id": sessionID}, nil)
}

func (b *HTTPBackend) Reflect(ctx context.Context, sessionID, text, visibility string) error {
	return b.do(ctx, "reflect", map[string]any{
		"session_id": sessionID,
		"text":       text,
		"visibility": visibility,
	}, nil)
}

var _ Backend = (*HTTPBackend)(nil)

package client

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// JoinStore keeps an invite token captured before the user authenticated,
// surviving restarts in a small state file. The token is redeemed and
// cleared right after signup.
type JoinStore struct {
	path string
}

// NewJoinStore creates a store backed by the given file path.
func NewJoinStore(path string) *JoinStore {
	return &JoinStore{path: path}
}

// Save retains a pending invite token. An empty token is a no-op.
func (s *JoinStore) Save(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create join store dir: %w", err)
		}
	}
	if err := os.WriteFile(s.path, []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("save pending join: %w", err)
	}
	return nil
}

// Load returns the pending token, or "" when none is stored.
func (s *JoinStore) Load() (string, error) {
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load pending join: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}

// Clear removes the pending token; clearing an empty store is fine.
func (s *JoinStore) Clear() error {
	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clear pending join: %w", err)
	}
	return nil
}

// JoinTokenFromURL extracts the invite token from a deep link carrying a
// ?join=TOKEN query parameter. It returns "" when the URL has none.
func JoinTokenFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(u.Query().Get("join"))
}

package auth

import (
	"context"
	"os"
	"sync/atomic"

	"github.com/nerrad567/hirograph/config"
)

// FixedHandler serves a single caller-supplied token. It never talks to the
// auth API: the token is immutable, so Refresh and Revoke always fail with
// ErrFixedToken.
type FixedHandler struct {
	token *Token
}

// NewFixedHandler creates a handler around a fixed access token.
func NewFixedHandler(accessToken string) *FixedHandler {
	return &FixedHandler{token: &Token{Access: accessToken}}
}

// Token returns the configured token. Fails with ErrNoToken when the
// handler was constructed with an empty value.
func (h *FixedHandler) Token(_ context.Context) (string, error) {
	if h.token.Access == "" {
		return "", ErrNoToken
	}
	return h.token.Access, nil
}

// Current returns the configured token value.
func (h *FixedHandler) Current() *Token {
	if h.token.Access == "" {
		return nil
	}
	return h.token
}

// EnsureToken verifies a token was configured.
func (h *FixedHandler) EnsureToken(_ context.Context) error {
	if h.token.Access == "" {
		return ErrNoToken
	}
	return nil
}

// Refresh always fails: fixed tokens are immutable.
func (h *FixedHandler) Refresh(_ context.Context, _ bool) error {
	return ErrFixedToken
}

// Revoke always fails: fixed tokens are immutable.
func (h *FixedHandler) Revoke(_ context.Context) error {
	return ErrFixedToken
}

// Close is a no-op; the fixed token stays valid for other holders.
func (h *FixedHandler) Close() error {
	return nil
}

// EnvHandler reads its token from an environment variable. Refresh re-reads
// the variable, so an operator rotating the value in the environment is
// picked up without restarting.
type EnvHandler struct {
	name    string
	current atomic.Pointer[Token]
}

// NewEnvHandler creates a handler reading the named environment variable.
// An empty name falls back to the platform default HIRO_TOKEN.
func NewEnvHandler(name string) *EnvHandler {
	if name == "" {
		name = config.DefaultTokenEnvVar
	}
	return &EnvHandler{name: name}
}

// Token returns the current token, reading the environment on first use.
func (h *EnvHandler) Token(ctx context.Context) (string, error) {
	if tok := h.current.Load(); tok != nil {
		return tok.Access, nil
	}
	if err := h.EnsureToken(ctx); err != nil {
		return "", err
	}
	// A racing Revoke or Close may have cleared the slot again.
	tok := h.current.Load()
	if tok == nil {
		return "", ErrNoToken
	}
	return tok.Access, nil
}

// Current returns the last token read from the environment, or nil.
func (h *EnvHandler) Current() *Token {
	return h.current.Load()
}

// EnsureToken reads the environment variable. Fails with ErrNoToken when it
// is unset or empty.
func (h *EnvHandler) EnsureToken(_ context.Context) error {
	v := os.Getenv(h.name)
	if v == "" {
		return ErrNoToken
	}
	h.current.Store(&Token{Access: v})
	return nil
}

// Refresh re-reads the environment variable. A cheap local read, no network.
func (h *EnvHandler) Refresh(ctx context.Context, _ bool) error {
	return h.EnsureToken(ctx)
}

// Revoke clears the held token locally. The environment variable itself is
// not touched.
func (h *EnvHandler) Revoke(_ context.Context) error {
	h.current.Store(nil)
	return nil
}

// Close clears the held token.
func (h *EnvHandler) Close() error {
	h.current.Store(nil)
	return nil
}

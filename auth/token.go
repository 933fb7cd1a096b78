package auth

import (
	"context"
	"time"
)

// Token is one issued access/refresh token pair with identity metadata.
//
// Tokens are immutable once published: handlers replace the whole value,
// never individual fields, so concurrent readers never observe a partially
// updated token.
type Token struct {
	// Access is the bearer token injected into authenticated requests.
	Access string

	// Refresh is the refresh token for the refresh grant; empty when the
	// issuer did not return one.
	Refresh string

	// ExpiresAt is the access token expiry. Zero means unknown or never.
	ExpiresAt time.Time

	// Issuing identity metadata, carried when the token endpoint returns it.
	Subject      string
	Application  string
	Organization string
}

// Expired reports whether the token is expired within the given leeway.
// Tokens with unknown expiry never report expired.
func (t *Token) Expired(leeway time.Duration) bool {
	if t == nil || t.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().Add(leeway).After(t.ExpiresAt)
}

// Handler owns the current token for one platform profile and coordinates
// its lifecycle. A Handler is shared by reference among all REST and
// WebSocket components that authenticate against the same instance; the
// longest-lived holder calls Close.
//
// Implementations guarantee:
//   - Token is lock-free on the hot path (atomically-published value)
//   - Refresh is at-most-one-concurrent per handler; callers arriving while
//     a refresh is in flight wait for that exchange's outcome
type Handler interface {
	// Token returns the current access token, self-acquiring one first when
	// the handler is able to. Fails with ErrNoToken otherwise.
	Token(ctx context.Context) (string, error)

	// Current returns the full current token value, or nil when none has
	// been obtained yet. Never blocks on I/O.
	Current() *Token

	// EnsureToken acquires an initial token if none is held.
	EnsureToken(ctx context.Context) error

	// Refresh replaces the current token. When force is false, calls inside
	// the configured minimum refresh interval are collapsed into no-ops.
	Refresh(ctx context.Context, force bool) error

	// Revoke invalidates the refresh token server-side (best-effort) and
	// clears the current token locally regardless of the server response.
	Revoke(ctx context.Context) error

	// Close clears the handler's token. It does not tear down collaborators
	// the handler does not own.
	Close() error
}

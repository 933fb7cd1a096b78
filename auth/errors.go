package auth

import (
	"errors"
	"fmt"
)

// Domain-specific errors for token lifecycle operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrNoToken is returned when no token has been obtained and the
	// handler cannot self-acquire one.
	ErrNoToken = errors.New("auth: no token available")

	// ErrFixedToken is returned when refresh or revoke is attempted on a
	// fixed-token handler. Fixed tokens are immutable.
	ErrFixedToken = errors.New("auth: fixed token cannot be refreshed")

	// ErrMalformedToken is returned when a token payload cannot be decoded
	// into claims.
	ErrMalformedToken = errors.New("auth: malformed token payload")

	// ErrCacheMiss is returned by the token cache when no entry exists for
	// a profile.
	ErrCacheMiss = errors.New("auth: no cached token for profile")
)

// Error carries a rejected token-endpoint exchange: the upstream HTTP status
// and response body are preserved for diagnostics.
//
// Any *Error from the refresh exchange triggers the fallback-to-login chain;
// transport and timeout errors do not.
type Error struct {
	Op     string // "login", "refresh" or "revoke"
	Status int
	Body   []byte
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("auth: %s rejected with status %d: %s", e.Op, e.Status, e.Body)
}

// IsAuthError reports whether err is an authentication-class rejection from
// the token endpoint, as opposed to a transport or timeout failure.
func IsAuthError(err error) bool {
	var ae *Error
	return errors.As(err, &ae)
}

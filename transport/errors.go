package transport

import (
	"errors"
	"fmt"
)

// Domain-specific errors for HTTP transport operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrTimeout is returned when the caller's deadline is exceeded.
	// Timeouts are never retried: they signal the caller's own deadline,
	// not a transient server fault.
	ErrTimeout = errors.New("transport: request deadline exceeded")

	// ErrConnectionFailed is returned for connection-level failures
	// (DNS, refused, reset).
	ErrConnectionFailed = errors.New("transport: connection failed")
)

// HTTPError carries a non-2xx response status and body for diagnostics.
type HTTPError struct {
	Status int
	Body   []byte
	Method string
	URL    string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("transport: %s %s returned %d: %s", e.Method, e.URL, e.Status, truncate(e.Body))
}

// truncate limits error bodies embedded in messages to a readable size.
func truncate(body []byte) string {
	const max = 256
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}

// StatusOf returns the HTTP status carried by err, or 0 if err does not
// wrap an *HTTPError.
func StatusOf(err error) int {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.Status
	}
	return 0
}

package api

import "errors"

// Domain-specific errors for the REST layer.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrUnknownAPI is returned when a requested API name is absent from
	// the version map after a successful fetch.
	ErrUnknownAPI = errors.New("api: unknown api name in version map")

	// ErrUnauthorized is returned when a request still gets 401 after the
	// one refresh-and-retry cycle. Terminal; not retried further.
	ErrUnauthorized = errors.New("api: request unauthorized after token refresh")
)

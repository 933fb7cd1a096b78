// Package transport provides the HTTP transport layer for the hirograph client.
//
// This package manages:
//   - Request execution with per-call timeouts and cancellation
//   - Optional accept-all TLS for development instances
//   - Bounded retry with capped backoff for retryable statuses
//   - Typed errors preserving status codes and response bodies
//
// # Error Semantics
//
// Deadline exceedance is always surfaced as ErrTimeout and is never retried:
// a timeout signals the caller's own deadline, not a transient server fault.
// Connection-level failures wrap ErrConnectionFailed. Non-2xx responses are
// returned as ordinary responses here; the api package converts them into
// typed errors once authentication concerns have been applied.
//
// # Usage
//
//	client := transport.New(profile)
//	resp, err := client.Do(ctx, &transport.Request{
//	    Method: http.MethodGet,
//	    URL:    profile.RootURL + "/api/version",
//	})
package transport

// Package auth manages access tokens for the hirograph client.
//
// This package manages:
//   - Token acquisition through the password grant
//   - Exclusive refresh coordination among concurrent callers
//   - Fallback-to-login when the refresh grant is rejected
//   - Fixed and environment-sourced token handlers
//   - Unverified claims decoding for issued tokens
//   - An optional SQLite cache so separate processes reuse sessions
//
// # Handler Sharing
//
// One Handler is built per platform profile and shared by reference across
// every REST executor and WebSocket session authenticating against that
// instance. Sharing is the point: it collapses duplicate logins and lets a
// single refresh serve all consumers. The longest-lived holder calls Close;
// dependents must not tear down a handler they do not own.
//
// # Refresh Coordination
//
// The current token is an atomically published value, so reads never take
// a lock. Refresh goes through a single-slot in-flight latch: the first
// caller performs the exchange, concurrent callers wait for that exchange
// and share its outcome, and a configurable minimum refresh interval
// collapses the burst of triggers produced by simultaneous 401 responses
// into one network round trip.
//
// # Usage
//
//	handler := auth.NewPasswordHandler(tc, endpoint, profile)
//	if err := handler.EnsureToken(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	token, _ := handler.Token(ctx)
//
// # Security
//
// DecodeToken does not verify signatures. It exists to read claims out of
// tokens this client was issued, never to validate tokens from elsewhere.
package auth

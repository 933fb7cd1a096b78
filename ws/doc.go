// Package ws implements the platform's WebSocket protocols: session
// lifecycle, the bidirectional action protocol, and event notifications.
//
// This package provides:
//   - Session: one logical connection with keepalive and token push
//   - ActionClient: remotely-submitted action tracking with ack/result flow
//   - EventClient: scope subscription and filtered event delivery
//
// # Session Lifecycle
//
// A session moves DISCONNECTED → CONNECTING → OPEN → CLOSING and back.
// Start performs the handshake and never retries itself; reconnection
// policy belongs to the caller. When the platform closes a connection with
// its authorization-failure close code, the listener receives
// ErrUnauthorizedSocket and nothing else happens — no silent redial loop
// masking an expired identity.
//
// # Dispatch Model
//
// Each session runs one receive goroutine. Every frame, error, and close
// signal is delivered from that goroutine in arrival order; no two
// callbacks for the same session ever run concurrently. Listeners that
// want parallelism fan out themselves.
//
// # Token Coordination
//
// Sessions share the auth.Handler used by the REST side. The keepalive
// loop polls it before each ping and proactively pushes a token frame when
// a refresh has replaced the access token, keeping long-lived connections
// authorized without a reconnect.
//
// # Action Protocol
//
// Remotely-submitted actions are acknowledged before the application's
// submit callback runs, tracked in an in-flight table, and completed
// exactly once via SendActionResult or NegativeAcknowledge. On session
// loss the table is dropped wholesale: the remote resubmits outstanding
// actions after reconnect, so replaying stale submissions from this side
// would double-deliver.
package ws

package ws

import "errors"

// Sentinel errors for WebSocket operations.
var (
	// ErrUnauthorizedSocket indicates the remote closed the connection with
	// the authorization-failure close code. Surfaced to the listener; the
	// session never reconnects on its own.
	ErrUnauthorizedSocket = errors.New("ws: connection closed unauthorized")

	// ErrUnknownAction indicates a result was sent for an action id that is
	// not tracked (already completed, dropped on session loss, or never
	// submitted).
	ErrUnknownAction = errors.New("ws: unknown action id")

	// ErrNotOpen indicates a send was attempted while the session is not in
	// the open state.
	ErrNotOpen = errors.New("ws: session not open")

	// ErrAlreadyStarted indicates Start was called on a session that is
	// already connecting or open.
	ErrAlreadyStarted = errors.New("ws: session already started")

	// ErrUnknownMessage indicates an inbound frame carried a type tag
	// outside the protocol's message set.
	ErrUnknownMessage = errors.New("ws: unknown message type")
)

// CloseUnauthorized is the application close code the platform uses when it
// rejects or expires a connection's credentials.
const CloseUnauthorized = 4401

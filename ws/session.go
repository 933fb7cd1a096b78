package ws

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/hirograph/auth"
	"github.com/nerrad567/hirograph/config"
)

// State is the session's connection state.
type State int32

// Session states. ERROR is a transient notification path, not a resting
// state: a failed session lands back in StateDisconnected.
const (
	StateDisconnected State = iota
	StateConnecting
	StateOpen
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	default:
		return "unknown"
	}
}

// Logger interface for optional logging support.
type Logger interface {
	Warn(msg string, args ...any)
	Debug(msg string, args ...any)
}

// Listener receives a session's inbound traffic and lifecycle signals.
//
// All methods are invoked from the session's single receive goroutine, in
// arrival order, never concurrently. A listener that wants parallel
// processing fans out itself; the session will not.
//
// Frames arrive raw: the action and event protocols carry different
// envelope shapes over the same session machinery, so decoding belongs to
// the protocol client sitting on top.
type Listener interface {
	// OnFrame delivers one inbound text frame.
	OnFrame(data []byte)

	// OnError reports a session-level failure: abnormal closure, or
	// ErrUnauthorizedSocket on an auth-failure close.
	OnError(err error)

	// OnClose signals the session has left the open state. Fires exactly
	// once per successful Start, after the receive loop has drained.
	OnClose()
}

// SessionConfig parameterizes one session.
type SessionConfig struct {
	// URL is the ws/wss endpoint, typically from VersionResolver.ResolveWebSocket.
	URL string

	// Subprotocol is the protocol name offered during the handshake.
	Subprotocol string

	// Tokens is the shared token handler; the session reads it at connect
	// time and polls it from the keepalive loop for proactive pushes.
	Tokens auth.Handler

	// Profile supplies keepalive timing and TLS settings.
	Profile config.Profile

	Listener Listener
	Logger   Logger
}

// Session owns one logical WebSocket connection.
//
// Lifecycle: Start dials and hands the connection to a single receive
// goroutine plus a keepalive goroutine. Stop closes it down. A session does
// not reconnect on its own under any circumstances; the caller owns retry
// policy and calls Start again on a fresh or same session.
//
// Thread Safety:
//   - Start/Stop/Send may be called from any goroutine
//   - Listener callbacks run on the receive goroutine only
type Session struct {
	cfg    SessionConfig
	state  atomic.Int32
	logger Logger

	mu   sync.Mutex // guards conn swap and Stop
	conn *websocket.Conn
	done chan struct{}

	writeMu sync.Mutex // gorilla allows one concurrent writer

	// lastPushed is the access token most recently sent to the remote,
	// either via the handshake or a token push frame.
	lastPushed atomic.Pointer[string]
}

// NewSession creates a session in the disconnected state.
func NewSession(cfg SessionConfig) *Session {
	return &Session{cfg: cfg, logger: cfg.Logger}
}

// State returns the current connection state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Start dials the endpoint and begins receiving.
//
// Blocks until the handshake completes or fails. On failure the session
// returns to the disconnected state and the error is returned; Start never
// retries itself. Calling Start while connecting or open fails with
// ErrAlreadyStarted.
func (s *Session) Start(ctx context.Context) error {
	if !s.state.CompareAndSwap(int32(StateDisconnected), int32(StateConnecting)) {
		return ErrAlreadyStarted
	}

	token, err := s.cfg.Tokens.Token(ctx)
	if err != nil {
		s.state.Store(int32(StateDisconnected))
		return fmt.Errorf("acquiring token for handshake: %w", err)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 15 * time.Second,
		Subprotocols:     []string{s.cfg.Subprotocol},
	}
	if s.cfg.Profile.TLS.AcceptAll {
		dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // dev-only, mirrors profile flag
	}

	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+token)

	conn, resp, err := dialer.DialContext(ctx, s.cfg.URL, headers)
	if err != nil {
		s.state.Store(int32(StateDisconnected))
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return fmt.Errorf("%w: handshake rejected", ErrUnauthorizedSocket)
		}
		return fmt.Errorf("dialing %s: %w", s.cfg.URL, err)
	}

	s.mu.Lock()
	s.conn = conn
	s.done = make(chan struct{})
	s.mu.Unlock()

	s.lastPushed.Store(&token)
	s.applyReadDeadline(conn)
	conn.SetPongHandler(func(string) error {
		s.applyReadDeadline(conn)
		return nil
	})

	s.state.Store(int32(StateOpen))
	if s.logger != nil {
		s.logger.Debug("session open", "url", s.cfg.URL, "subprotocol", s.cfg.Subprotocol)
	}

	go s.receiveLoop(conn, s.done)
	go s.keepaliveLoop(conn, s.done)
	return nil
}

// Stop closes the session. Idempotent; a no-op when not open, including
// after a remote-initiated close (the receive loop has already torn the
// connection down by then).
//
// Blocks until the receive loop has stopped dispatching frames. Safe to
// call from within OnClose: the loop signals completion before that
// callback fires, so there is nothing left to wait for.
func (s *Session) Stop() {
	if !s.state.CompareAndSwap(int32(StateOpen), int32(StateClosing)) {
		return
	}

	s.mu.Lock()
	conn := s.conn
	done := s.done
	s.mu.Unlock()

	if conn != nil {
		s.writeMu.Lock()
		//nolint:errcheck // best-effort close handshake, connection dies either way
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		s.writeMu.Unlock()
		conn.Close() //nolint:errcheck // teardown
	}
	if done != nil {
		<-done
	}
}

// Send encodes and writes one protocol frame.
func (s *Session) Send(msg Message) error {
	if s.State() != StateOpen {
		return ErrNotOpen
	}
	data, err := msg.encode()
	if err != nil {
		return fmt.Errorf("encoding frame: %w", err)
	}
	return s.sendRaw(data)
}

// sendRaw writes one pre-encoded text frame.
func (s *Session) sendRaw(data []byte) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return ErrNotOpen
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("writing frame: %w", err)
	}
	return nil
}

// receiveLoop is the session's single dispatch goroutine. Every listener
// callback for this session happens here, in arrival order.
//
// Teardown order matters: the connection is closed and the session is
// disconnected before OnClose fires, so a listener reacting to OnClose
// (calling Stop, or Start for its own reconnect) sees settled state and a
// released socket. This covers remote-initiated closes too — Stop is a
// no-op once the state has left open, so this deferred Close is the only
// one on that path.
func (s *Session) receiveLoop(conn *websocket.Conn, done chan struct{}) {
	defer s.cfg.Listener.OnClose()
	defer close(done)
	defer s.state.Store(int32(StateDisconnected))
	defer conn.Close() //nolint:errcheck // teardown, may already be closed by Stop

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.dispatchReadError(err)
			return
		}
		s.applyReadDeadline(conn)
		s.cfg.Listener.OnFrame(data)
	}
}

// dispatchReadError classifies the read failure that ended the loop.
// Deliberate Stop produces no listener error; an auth-failure close code
// maps to ErrUnauthorizedSocket. Reconnecting is the listener's call.
func (s *Session) dispatchReadError(err error) {
	if s.State() == StateClosing {
		return
	}
	if websocket.IsCloseError(err, CloseUnauthorized) {
		s.cfg.Listener.OnError(ErrUnauthorizedSocket)
		return
	}
	s.cfg.Listener.OnError(fmt.Errorf("receive: %w", err))
}

// keepaliveLoop pings the remote on the configured interval. Before each
// ping it polls the token handler and pushes the access token when it has
// changed since the last push, keeping long-lived sessions authorized
// across refreshes.
func (s *Session) keepaliveLoop(conn *websocket.Conn, done chan struct{}) {
	interval := s.cfg.Profile.PingInterval()
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			s.pushTokenIfChanged()

			s.writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil,
				time.Now().Add(s.cfg.Profile.PongTimeout()))
			s.writeMu.Unlock()
			if err != nil {
				if s.logger != nil && s.State() == StateOpen {
					s.logger.Warn("keepalive ping failed", "error", err)
				}
				return
			}
		}
	}
}

// pushTokenIfChanged sends a token frame when the handler's current access
// token differs from the one last pushed to this connection.
func (s *Session) pushTokenIfChanged() {
	current := s.cfg.Tokens.Current()
	if current == nil || current.Access == "" {
		return
	}
	last := s.lastPushed.Load()
	if last != nil && *last == current.Access {
		return
	}

	data, err := tokenMessage(current.Access).encode()
	if err != nil {
		return
	}
	if err := s.sendRaw(data); err != nil {
		if s.logger != nil {
			s.logger.Warn("token push failed", "error", err)
		}
		return
	}
	access := current.Access
	s.lastPushed.Store(&access)
	if s.logger != nil {
		s.logger.Debug("pushed refreshed token to session")
	}
}

// applyReadDeadline extends the read deadline past the next expected pong.
func (s *Session) applyReadDeadline(conn *websocket.Conn) {
	interval := s.cfg.Profile.PingInterval()
	timeout := s.cfg.Profile.PongTimeout()
	if interval <= 0 || timeout <= 0 {
		return
	}
	//nolint:errcheck // deadline set on a live conn cannot fail usefully
	conn.SetReadDeadline(time.Now().Add(interval + timeout))
}

package ws

import (
	"fmt"
	"sync"
	"time"
)

// ActionListener receives the action protocol's application-facing traffic.
//
// Callbacks run on the session's receive goroutine, strictly in arrival
// order. Long-running submit handling should be offloaded by the listener;
// the protocol only requires that delivery order is preserved, which it is.
type ActionListener interface {
	// OnSubmit delivers one remotely-submitted action. The acknowledgement
	// for the action has already been sent when this is called.
	OnSubmit(id string, payload map[string]any)

	// OnNack passes through a negativeAcknowledged frame for an id the
	// application is tracking itself.
	OnNack(id string, code int, message string)

	// OnProtocolError passes through an error frame verbatim.
	OnProtocolError(id string, code int, message string)

	// OnConfigChanged signals the remote's configuration changed. No
	// session state is touched.
	OnConfigChanged()

	// OnError reports session-level failures (see Listener.OnError).
	OnError(err error)

	// OnClose signals session loss. All in-flight actions have been
	// dropped when this fires; the remote resubmits after reconnect.
	OnClose()
}

// ackState tracks how far one in-flight action has progressed.
type ackState int

const (
	ackSent ackState = iota
	nackSent
)

// inflightAction is the tracking record for one remotely-submitted action.
type inflightAction struct {
	payload     map[string]any
	submittedAt time.Time
	state       ackState
}

// ActionClient implements the bidirectional action protocol on top of a
// Session.
//
// Inbound submitActions are tracked in an in-flight table keyed by action
// id and acknowledged before the application sees them. The application
// completes each action exactly once via SendActionResult or
// NegativeAcknowledge; a second completion fails with ErrUnknownAction.
// Session loss drops the whole table.
type ActionClient struct {
	session  *Session
	listener ActionListener
	logger   Logger

	mu       sync.Mutex
	inflight map[string]*inflightAction
}

// NewActionClient builds the action protocol client. The returned client is
// the session's listener; wire it via SessionConfig.Listener before Start.
func NewActionClient(listener ActionListener, logger Logger) *ActionClient {
	return &ActionClient{
		listener: listener,
		logger:   logger,
		inflight: make(map[string]*inflightAction),
	}
}

// Bind attaches the client to its session. Separate from construction
// because the session's config needs the client as its listener.
func (c *ActionClient) Bind(session *Session) {
	c.session = session
}

// InflightCount returns the number of tracked actions.
func (c *ActionClient) InflightCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.inflight)
}

// SendActionResult completes a tracked action with a result.
//
// Exactly-once: the entry is removed before the frame is written, so a
// concurrent or repeated call for the same id fails with ErrUnknownAction
// rather than sending twice.
func (c *ActionClient) SendActionResult(id string, result map[string]any) error {
	if err := c.take(id); err != nil {
		return err
	}
	return c.session.Send(Message{
		Type:   TypeSendActionResult,
		ID:     id,
		Result: result,
	})
}

// NegativeAcknowledge completes a tracked action with a rejection.
func (c *ActionClient) NegativeAcknowledge(id string, code int, message string) error {
	if err := c.take(id); err != nil {
		return err
	}
	return c.session.Send(Message{
		Type: TypeNegativeAcknowledged,
		ID:   id,
		Code: code,
		Text: message,
	})
}

// take removes the in-flight entry for id, failing when it is not tracked.
func (c *ActionClient) take(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.inflight[id]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownAction, id)
	}
	delete(c.inflight, id)
	return nil
}

// OnFrame decodes and routes one frame by its type tag. Runs on the
// receive goroutine; dispatch order equals wire order.
func (c *ActionClient) OnFrame(data []byte) {
	msg, err := decodeMessage(data)
	if err != nil {
		c.listener.OnError(err)
		return
	}

	switch msg.Type {
	case TypeSubmitAction:
		c.handleSubmit(msg)
	case TypeNegativeAcknowledged:
		c.listener.OnNack(msg.ID, msg.Code, msg.Text)
	case TypeError:
		c.listener.OnProtocolError(msg.ID, msg.Code, msg.Text)
	case TypeConfigChanged:
		c.listener.OnConfigChanged()
	default:
		if c.logger != nil {
			c.logger.Debug("ignoring frame", "type", msg.Type, "id", msg.ID)
		}
	}
}

// handleSubmit tracks and acknowledges one submitted action, then hands it
// to the application. The ack goes out before the callback: the remote
// learns the submission was received even if the application's processing
// is slow or fails.
//
// A resubmission of an id already in flight is acknowledged again but not
// re-dispatched; the remote retries acks it missed, and the application
// must not see the same submission twice.
func (c *ActionClient) handleSubmit(msg Message) {
	c.mu.Lock()
	_, dup := c.inflight[msg.ID]
	if !dup {
		c.inflight[msg.ID] = &inflightAction{
			payload:     msg.Payload,
			submittedAt: time.Now(),
			state:       ackSent,
		}
	}
	c.mu.Unlock()

	if err := c.session.Send(acknowledgedMessage(msg.ID)); err != nil {
		if c.logger != nil {
			c.logger.Warn("acknowledge failed", "id", msg.ID, "error", err)
		}
		// The connection is going down; the entry will be dropped with it.
		return
	}
	if dup {
		return
	}
	c.listener.OnSubmit(msg.ID, msg.Payload)
}

// OnError forwards session failures to the application listener.
func (c *ActionClient) OnError(err error) {
	c.listener.OnError(err)
}

// OnClose drops every in-flight entry, then notifies the application.
// Dropped actions are not replayed on a later Start; the protocol makes
// resubmission the remote side's job.
func (c *ActionClient) OnClose() {
	c.mu.Lock()
	n := len(c.inflight)
	c.inflight = make(map[string]*inflightAction)
	c.mu.Unlock()

	if n > 0 && c.logger != nil {
		c.logger.Debug("dropped in-flight actions on session loss", "count", n)
	}
	c.listener.OnClose()
}

package ws

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// EventFilter selects which graph events a subscription delivers.
type EventFilter struct {
	// ID identifies the filter for later Unregister. Left empty, Register
	// generates one.
	ID string

	// Type is the filter language; the platform currently speaks "jfilter".
	Type string

	// Content is the filter expression.
	Content string
}

// EventCallback receives decoded event envelopes, on the session's receive
// goroutine, in arrival order.
type EventCallback func(ev Event)

// ErrorCallback receives session-level failures.
type ErrorCallback func(err error)

// EventClient implements the event notification protocol on top of a
// Session. It re-applies its scope and filters after every Start, so one
// client survives caller-driven reconnects.
type EventClient struct {
	session  *Session
	onEvent  EventCallback
	onError  ErrorCallback
	logger   Logger

	mu      sync.Mutex
	scopes  []string
	filters map[string]EventFilter
}

// NewEventClient builds the event protocol client. Wire it as the session's
// listener via SessionConfig.Listener, then Bind the session.
func NewEventClient(onEvent EventCallback, onError ErrorCallback, logger Logger) *EventClient {
	return &EventClient{
		onEvent: onEvent,
		onError: onError,
		logger:  logger,
		filters: make(map[string]EventFilter),
	}
}

// Bind attaches the client to its session.
func (c *EventClient) Bind(session *Session) {
	c.session = session
}

// Subscribe opens the given scope (an ogit scope id). The subscription is
// remembered and re-sent after reconnect via Resume.
func (c *EventClient) Subscribe(scope string) error {
	frame, err := subscribeFrame(scope)
	if err != nil {
		return err
	}
	if err := c.session.sendRaw(frame); err != nil {
		return err
	}

	c.mu.Lock()
	c.scopes = append(c.scopes, scope)
	c.mu.Unlock()
	return nil
}

// Register installs an event filter and returns its id, generating one when
// the caller left it empty.
func (c *EventClient) Register(filter EventFilter) (string, error) {
	if filter.ID == "" {
		filter.ID = uuid.NewString()
	}
	if filter.Type == "" {
		filter.Type = "jfilter"
	}

	frame, err := registerFrame(filter.ID, filter.Type, filter.Content)
	if err != nil {
		return "", err
	}
	if err := c.session.sendRaw(frame); err != nil {
		return "", err
	}

	c.mu.Lock()
	c.filters[filter.ID] = filter
	c.mu.Unlock()
	return filter.ID, nil
}

// Unregister removes a filter by id.
func (c *EventClient) Unregister(filterID string) error {
	frame, err := unregisterFrame(filterID)
	if err != nil {
		return err
	}
	if err := c.session.sendRaw(frame); err != nil {
		return err
	}

	c.mu.Lock()
	delete(c.filters, filterID)
	c.mu.Unlock()
	return nil
}

// Clear removes all filters server-side and forgets them locally.
func (c *EventClient) Clear() error {
	frame, err := clearFrame()
	if err != nil {
		return err
	}
	if err := c.session.sendRaw(frame); err != nil {
		return err
	}

	c.mu.Lock()
	c.filters = make(map[string]EventFilter)
	c.mu.Unlock()
	return nil
}

// Resume re-sends the remembered scopes and filters. Call after a fresh
// Start on the bound session; a new connection starts with no server-side
// subscription state.
func (c *EventClient) Resume() error {
	c.mu.Lock()
	scopes := append([]string(nil), c.scopes...)
	filters := make([]EventFilter, 0, len(c.filters))
	for _, f := range c.filters {
		filters = append(filters, f)
	}
	c.mu.Unlock()

	for _, scope := range scopes {
		frame, err := subscribeFrame(scope)
		if err != nil {
			return err
		}
		if err := c.session.sendRaw(frame); err != nil {
			return fmt.Errorf("resuming scope %q: %w", scope, err)
		}
	}
	for _, f := range filters {
		frame, err := registerFrame(f.ID, f.Type, f.Content)
		if err != nil {
			return err
		}
		if err := c.session.sendRaw(frame); err != nil {
			return fmt.Errorf("resuming filter %q: %w", f.ID, err)
		}
	}
	return nil
}

// OnFrame decodes one inbound event envelope and delivers it. Runs on the
// receive goroutine; delivery order equals wire order.
func (c *EventClient) OnFrame(data []byte) {
	ev, err := decodeEvent(data)
	if err != nil {
		c.onError(err)
		return
	}
	c.onEvent(ev)
}

// OnError forwards session failures.
func (c *EventClient) OnError(err error) {
	c.onError(err)
}

// OnClose is a no-op beyond logging; remembered scopes and filters are kept
// for Resume.
func (c *EventClient) OnClose() {
	if c.logger != nil {
		c.logger.Debug("event session closed")
	}
}

package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// recordingActionListener captures action-protocol callbacks in order.
type recordingActionListener struct {
	mu       sync.Mutex
	submits  []string
	nacks    []Message
	protoErr []Message
	configs  int

	submitCh chan string
	errCh    chan error
	closeCh  chan struct{}

	// onSubmit, when set, runs inside OnSubmit before recording.
	onSubmit func(id string, payload map[string]any)
}

func newRecordingActionListener() *recordingActionListener {
	return &recordingActionListener{
		submitCh: make(chan string, 16),
		errCh:    make(chan error, 16),
		closeCh:  make(chan struct{}, 4),
	}
}

func (l *recordingActionListener) OnSubmit(id string, payload map[string]any) {
	if l.onSubmit != nil {
		l.onSubmit(id, payload)
	}
	l.mu.Lock()
	l.submits = append(l.submits, id)
	l.mu.Unlock()
	l.submitCh <- id
}

func (l *recordingActionListener) OnNack(id string, code int, message string) {
	l.mu.Lock()
	l.nacks = append(l.nacks, Message{ID: id, Code: code, Text: message})
	l.mu.Unlock()
}

func (l *recordingActionListener) OnProtocolError(id string, code int, message string) {
	l.mu.Lock()
	l.protoErr = append(l.protoErr, Message{ID: id, Code: code, Text: message})
	l.mu.Unlock()
}

func (l *recordingActionListener) OnConfigChanged() {
	l.mu.Lock()
	l.configs++
	l.mu.Unlock()
}

func (l *recordingActionListener) OnError(err error) { l.errCh <- err }
func (l *recordingActionListener) OnClose()          { l.closeCh <- struct{}{} }

func (l *recordingActionListener) submitCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.submits)
}

// actionServer drives one action-protocol connection from the remote side.
type actionServer struct {
	conn    *websocket.Conn
	inbound chan Message
}

// newActionTestClient wires a full session + action client against a test
// server and returns both ends.
func newActionTestClient(t *testing.T, listener *recordingActionListener) (*ActionClient, *Session, *actionServer) {
	t.Helper()

	remote := &actionServer{inbound: make(chan Message, 32)}
	connCh := make(chan *websocket.Conn, 1)
	srv := newWSTestServer(t, func(conn *websocket.Conn) {
		connCh <- conn
		defer conn.Close() //nolint:errcheck // test server teardown
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			msg, err := decodeMessage(data)
			if err != nil {
				t.Errorf("server received undecodable frame: %v", err)
				continue
			}
			remote.inbound <- msg
		}
	})

	client := NewActionClient(listener, nil)
	sess := newTestSession(srv, newStaticTokens("tok-1"), client)
	client.Bind(sess)

	if err := sess.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(sess.Stop)

	select {
	case remote.conn = <-connCh:
	case <-time.After(2 * time.Second):
		t.Fatal("server never saw the connection")
	}
	return client, sess, remote
}

func (s *actionServer) submit(t *testing.T, id string, payload map[string]any) {
	t.Helper()
	frame := map[string]any{"type": TypeSubmitAction, "id": id}
	for k, v := range payload {
		frame[k] = v
	}
	data, err := json.Marshal(frame)
	if err != nil {
		t.Fatalf("marshal submit: %v", err)
	}
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("write submit: %v", err)
	}
}

func (s *actionServer) expect(t *testing.T, msgType string) Message {
	t.Helper()
	select {
	case msg := <-s.inbound:
		if msg.Type != msgType {
			t.Fatalf("server received %q, want %q", msg.Type, msgType)
		}
		return msg
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for %q", msgType)
		return Message{}
	}
}

func TestActionClient_AckPrecedesSubmitCallback(t *testing.T) {
	listener := newRecordingActionListener()
	ackSeen := make(chan struct{})
	ackBeforeCallback := make(chan bool, 1)
	listener.onSubmit = func(string, map[string]any) {
		// The ack must already be on the wire when the callback runs.
		select {
		case <-ackSeen:
			ackBeforeCallback <- true
		case <-time.After(2 * time.Second):
			ackBeforeCallback <- false
		}
	}

	_, _, remote := newActionTestClient(t, listener)

	remote.submit(t, "act-1", map[string]any{"command": "restart", "node": "web-3"})

	ack := remote.expect(t, TypeAcknowledged)
	if ack.ID != "act-1" {
		t.Errorf("ack id = %q, want act-1", ack.ID)
	}
	close(ackSeen)

	select {
	case ok := <-ackBeforeCallback:
		if !ok {
			t.Fatal("submit callback ran before the acknowledgement was sent")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for submit callback")
	}
}

func TestActionClient_SendActionResultExactlyOnce(t *testing.T) {
	listener := newRecordingActionListener()
	client, _, remote := newActionTestClient(t, listener)

	remote.submit(t, "act-1", map[string]any{"command": "restart"})
	remote.expect(t, TypeAcknowledged)
	<-listener.submitCh

	if err := client.SendActionResult("act-1", map[string]any{"status": "done"}); err != nil {
		t.Fatalf("SendActionResult() error = %v", err)
	}
	result := remote.expect(t, TypeSendActionResult)
	if result.ID != "act-1" {
		t.Errorf("result id = %q", result.ID)
	}
	if result.Result["status"] != "done" {
		t.Errorf("result payload = %v", result.Result)
	}

	err := client.SendActionResult("act-1", map[string]any{"status": "done"})
	if !errors.Is(err, ErrUnknownAction) {
		t.Errorf("second SendActionResult() error = %v, want ErrUnknownAction", err)
	}
	if n := client.InflightCount(); n != 0 {
		t.Errorf("InflightCount() = %d, want 0", n)
	}
}

func TestActionClient_NegativeAcknowledgeCompletes(t *testing.T) {
	listener := newRecordingActionListener()
	client, _, remote := newActionTestClient(t, listener)

	remote.submit(t, "act-1", nil)
	remote.expect(t, TypeAcknowledged)
	<-listener.submitCh

	if err := client.NegativeAcknowledge("act-1", 422, "node unknown"); err != nil {
		t.Fatalf("NegativeAcknowledge() error = %v", err)
	}
	nack := remote.expect(t, TypeNegativeAcknowledged)
	if nack.ID != "act-1" || nack.Code != 422 || nack.Text != "node unknown" {
		t.Errorf("nack = %+v", nack)
	}

	if err := client.SendActionResult("act-1", nil); !errors.Is(err, ErrUnknownAction) {
		t.Errorf("result after nack error = %v, want ErrUnknownAction", err)
	}
}

func TestActionClient_DuplicateSubmitDispatchedOnce(t *testing.T) {
	listener := newRecordingActionListener()
	_, _, remote := newActionTestClient(t, listener)

	remote.submit(t, "act-1", nil)
	remote.expect(t, TypeAcknowledged)
	<-listener.submitCh

	// Remote retries the same id: it gets its ack, the application does
	// not see a second submission.
	remote.submit(t, "act-1", nil)
	remote.expect(t, TypeAcknowledged)

	select {
	case id := <-listener.submitCh:
		t.Errorf("duplicate submission %q dispatched to listener", id)
	case <-time.After(300 * time.Millisecond):
	}
	if n := listener.submitCount(); n != 1 {
		t.Errorf("submit callbacks = %d, want 1", n)
	}
}

func TestActionClient_InflightDroppedOnSessionLoss(t *testing.T) {
	listener := newRecordingActionListener()
	client, sess, remote := newActionTestClient(t, listener)

	remote.submit(t, "act-1", nil)
	remote.expect(t, TypeAcknowledged)
	<-listener.submitCh

	if n := client.InflightCount(); n != 1 {
		t.Fatalf("InflightCount() = %d, want 1", n)
	}

	sess.Stop()
	select {
	case <-listener.closeCh:
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for OnClose")
	}

	if n := client.InflightCount(); n != 0 {
		t.Errorf("InflightCount() after session loss = %d, want 0", n)
	}
	err := client.SendActionResult("act-1", map[string]any{"status": "done"})
	if !errors.Is(err, ErrUnknownAction) {
		t.Errorf("late SendActionResult() error = %v, want ErrUnknownAction", err)
	}
}

func TestActionClient_PassThroughFrames(t *testing.T) {
	listener := newRecordingActionListener()
	_, _, remote := newActionTestClient(t, listener)

	frames := []string{
		`{"type":"negativeAcknowledged","id":"mine-1","code":409,"message":"conflict"}`,
		`{"type":"error","id":"mine-2","code":500,"message":"backend down"}`,
		`{"type":"configChanged"}`,
	}
	for _, frame := range frames {
		if err := remote.conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
			t.Fatalf("write frame: %v", err)
		}
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		listener.mu.Lock()
		done := len(listener.nacks) == 1 && len(listener.protoErr) == 1 && listener.configs == 1
		listener.mu.Unlock()
		if done {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	listener.mu.Lock()
	defer listener.mu.Unlock()
	if len(listener.nacks) != 1 || listener.nacks[0].ID != "mine-1" || listener.nacks[0].Code != 409 {
		t.Errorf("nacks = %+v", listener.nacks)
	}
	if len(listener.protoErr) != 1 || listener.protoErr[0].Text != "backend down" {
		t.Errorf("protocol errors = %+v", listener.protoErr)
	}
	if listener.configs != 1 {
		t.Errorf("configChanged count = %d, want 1", listener.configs)
	}
}

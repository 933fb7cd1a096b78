package ws

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestDecodeMessage_SubmitActionPreservesPayload(t *testing.T) {
	frame := []byte(`{
		"type": "submitAction",
		"id": "act-1",
		"handler": "ExecuteCommand",
		"capability": "shell",
		"parameters": {"command": "uptime"}
	}`)

	msg, err := decodeMessage(frame)
	if err != nil {
		t.Fatalf("decodeMessage() error = %v", err)
	}
	if msg.Type != TypeSubmitAction || msg.ID != "act-1" {
		t.Errorf("msg = %+v", msg)
	}
	if msg.Payload["handler"] != "ExecuteCommand" {
		t.Errorf("Payload[handler] = %v", msg.Payload["handler"])
	}
	params, ok := msg.Payload["parameters"].(map[string]any)
	if !ok || params["command"] != "uptime" {
		t.Errorf("Payload[parameters] = %v", msg.Payload["parameters"])
	}
	if _, ok := msg.Payload["type"]; ok {
		t.Error("type tag leaked into Payload")
	}
}

func TestDecodeMessage_UnknownType(t *testing.T) {
	for _, frame := range []string{
		`{"type":"shutdown","id":"x"}`,
		`{"id":"x"}`,
	} {
		_, err := decodeMessage([]byte(frame))
		if !errors.Is(err, ErrUnknownMessage) {
			t.Errorf("decodeMessage(%s) error = %v, want ErrUnknownMessage", frame, err)
		}
	}
}

func TestDecodeMessage_MalformedJSON(t *testing.T) {
	if _, err := decodeMessage([]byte(`{"type":`)); err == nil {
		t.Error("decodeMessage() expected error for truncated JSON")
	}
}

func TestTokenMessage_WireShape(t *testing.T) {
	data, err := tokenMessage("abc123").encode()
	if err != nil {
		t.Fatalf("encode() error = %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("re-decode error = %v", err)
	}
	if raw["type"] != "token" {
		t.Errorf("type = %v", raw["type"])
	}
	args, ok := raw["args"].(map[string]any)
	if !ok || args["_TOKEN"] != "abc123" {
		t.Errorf("args = %v", raw["args"])
	}

	// And the push round-trips through the inbound decoder.
	msg, err := decodeMessage(data)
	if err != nil {
		t.Fatalf("decodeMessage() error = %v", err)
	}
	if msg.Args[tokenArgKey] != "abc123" {
		t.Errorf("round-tripped token = %v", msg.Args[tokenArgKey])
	}
}

func TestMessage_EncodeRoundTrip(t *testing.T) {
	in := Message{
		Type:    TypeSendActionResult,
		ID:      "act-1",
		Result:  map[string]any{"status": "done", "exit": float64(0)},
		Payload: map[string]any{"elapsed": float64(42)},
	}

	data, err := in.encode()
	if err != nil {
		t.Fatalf("encode() error = %v", err)
	}
	out, err := decodeMessage(data)
	if err != nil {
		t.Fatalf("decodeMessage() error = %v", err)
	}
	if out.Type != in.Type || out.ID != in.ID {
		t.Errorf("out = %+v", out)
	}
	if out.Result["status"] != "done" {
		t.Errorf("Result = %v", out.Result)
	}
	if out.Payload["elapsed"] != float64(42) {
		t.Errorf("Payload = %v", out.Payload)
	}
}

func TestMessage_EncodeNackKeepsZeroCode(t *testing.T) {
	tests := []struct {
		name string
		typ  string
	}{
		{"nack", TypeNegativeAcknowledged},
		{"error", TypeError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Message{Type: tt.typ, ID: "act-1"}.encode()
			if err != nil {
				t.Fatalf("encode() error = %v", err)
			}

			var raw map[string]any
			if err := json.Unmarshal(data, &raw); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			code, ok := raw["code"]
			if !ok {
				t.Fatal("encoded frame missing code key")
			}
			if code != float64(0) {
				t.Errorf("code = %v, want 0", code)
			}
			if _, ok := raw["message"]; !ok {
				t.Error("encoded frame missing message key")
			}
		})
	}
}

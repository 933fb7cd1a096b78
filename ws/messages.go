package ws

import (
	"encoding/json"
	"fmt"
	"time"
)

// Message type tags. The protocol's message set is closed: every frame
// carries exactly one of these in its "type" field.
const (
	TypeSubmitAction         = "submitAction"
	TypeAcknowledged         = "acknowledged"
	TypeNegativeAcknowledged = "negativeAcknowledged"
	TypeSendActionResult     = "sendActionResult"
	TypeError                = "error"
	TypeConfigChanged        = "configChanged"
	TypeToken                = "token"
)

// Message is the decoded form of one protocol frame. One struct covers the
// whole closed message set; the Type tag says which fields are meaningful.
//
// Payload carries every top-level key beyond the typed ones, so a
// submitAction's free-form parameters survive decode and re-encode.
type Message struct {
	Type string
	ID   string

	// Code and Text are set on negativeAcknowledged and error frames.
	Code int
	Text string

	// Result is set on sendActionResult frames.
	Result map[string]any

	// Args is set on token pushes and event-protocol control frames.
	Args map[string]any

	// Payload holds the remaining top-level keys of the frame.
	Payload map[string]any
}

// Top-level keys lifted into typed Message fields.
const (
	keyType    = "type"
	keyID      = "id"
	keyCode    = "code"
	keyMessage = "message"
	keyResult  = "result"
	keyArgs    = "args"
)

// tokenArgKey is the args key carrying the access token in a token push.
const tokenArgKey = "_TOKEN"

// decodeMessage parses one inbound frame by its type discriminant.
func decodeMessage(data []byte) (Message, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Message{}, fmt.Errorf("decoding frame: %w", err)
	}

	typ, _ := raw[keyType].(string)
	switch typ {
	case TypeSubmitAction, TypeAcknowledged, TypeNegativeAcknowledged,
		TypeSendActionResult, TypeError, TypeConfigChanged, TypeToken:
	default:
		return Message{}, fmt.Errorf("%w: %q", ErrUnknownMessage, typ)
	}

	msg := Message{Type: typ, Payload: make(map[string]any)}
	for key, value := range raw {
		switch key {
		case keyType:
		case keyID:
			msg.ID, _ = value.(string)
		case keyCode:
			if f, ok := value.(float64); ok {
				msg.Code = int(f)
			}
		case keyMessage:
			msg.Text, _ = value.(string)
		case keyResult:
			msg.Result, _ = value.(map[string]any)
		case keyArgs:
			msg.Args, _ = value.(map[string]any)
		default:
			msg.Payload[key] = value
		}
	}
	return msg, nil
}

// encode re-emits the message as one flat JSON frame.
func (m Message) encode() ([]byte, error) {
	raw := make(map[string]any, len(m.Payload)+6)
	for key, value := range m.Payload {
		raw[key] = value
	}
	raw[keyType] = m.Type
	if m.ID != "" {
		raw[keyID] = m.ID
	}
	// Nack and error frames always carry code and message: zero is a valid
	// code and must not vanish from the wire.
	if m.Type == TypeNegativeAcknowledged || m.Type == TypeError {
		raw[keyCode] = m.Code
		raw[keyMessage] = m.Text
	} else {
		if m.Code != 0 {
			raw[keyCode] = m.Code
		}
		if m.Text != "" {
			raw[keyMessage] = m.Text
		}
	}
	if m.Result != nil {
		raw[keyResult] = m.Result
	}
	if m.Args != nil {
		raw[keyArgs] = m.Args
	}
	return json.Marshal(raw)
}

// acknowledgedMessage builds the ack frame for a submitted action id.
func acknowledgedMessage(id string) Message {
	return Message{Type: TypeAcknowledged, ID: id}
}

// tokenMessage builds the proactive token push frame.
func tokenMessage(access string) Message {
	return Message{Type: TypeToken, Args: map[string]any{tokenArgKey: access}}
}

// Event is one inbound event-protocol notification.
type Event struct {
	ID        string
	Timestamp time.Time
	Type      string
	Body      map[string]any
	Metadata  map[string]any

	// Extra holds top-level keys beyond the envelope fields.
	Extra map[string]any
}

// decodeEvent parses one inbound event envelope. The timestamp is epoch
// milliseconds on the wire.
func decodeEvent(data []byte) (Event, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Event{}, fmt.Errorf("decoding event: %w", err)
	}

	ev := Event{Extra: make(map[string]any)}
	for key, value := range raw {
		switch key {
		case "id":
			ev.ID, _ = value.(string)
		case "timestamp":
			if f, ok := value.(float64); ok {
				ev.Timestamp = time.UnixMilli(int64(f))
			}
		case "type":
			ev.Type, _ = value.(string)
		case "body":
			ev.Body, _ = value.(map[string]any)
		case "metadata":
			ev.Metadata, _ = value.(map[string]any)
		default:
			ev.Extra[key] = value
		}
	}
	return ev, nil
}

// Event-protocol control frames are built ad hoc; they share the "type"
// discriminant but are outbound-only and never round-trip.

func subscribeFrame(scope string) ([]byte, error) {
	return json.Marshal(map[string]any{keyType: "subscribe", keyID: scope})
}

func registerFrame(filterID, filterType, filterContent string) ([]byte, error) {
	return json.Marshal(map[string]any{
		keyType: "register",
		keyArgs: map[string]string{
			"filter-id":      filterID,
			"filter-type":    filterType,
			"filter-content": filterContent,
		},
	})
}

func unregisterFrame(filterID string) ([]byte, error) {
	return json.Marshal(map[string]any{
		keyType: "unregister",
		keyArgs: map[string]string{"filter-id": filterID},
	})
}

func clearFrame() ([]byte, error) {
	return json.Marshal(map[string]any{
		keyType: "clear",
		keyArgs: map[string]string{},
	})
}

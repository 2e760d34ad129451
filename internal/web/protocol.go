package web

import (
	"encoding/json"
	"time"

	"github.com/sweeney/gesture-sensor/internal/action"
	"github.com/sweeney/gesture-sensor/internal/gesture"
)

// MessageType tags each websocket message.
type MessageType string

const (
	MsgSnapshot MessageType = "snapshot"
	MsgGesture  MessageType = "gesture"
	MsgReason   MessageType = "reason"
)

// Message is the envelope for every websocket frame.
type Message struct {
	Type    MessageType `json:"type"`
	Payload interface{} `json:"payload"`
}

// GesturePayload is pushed once per fired gesture.
type GesturePayload struct {
	Timestamp  string `json:"timestamp"`
	Event      string `json:"event"`
	Action     string `json:"action"`
	DurationMs int64  `json:"duration_ms"`
}

// ReasonPayload is pushed when the suppression reason changes.
type ReasonPayload struct {
	Reason string `json:"reason"`
}

func gestureMessage(e gesture.Event) Message {
	name, _ := action.For(e.Gesture)
	return Message{
		Type: MsgGesture,
		Payload: GesturePayload{
			Timestamp:  e.Timestamp.UTC().Format(time.RFC3339Nano),
			Event:      string(e.Gesture),
			Action:     string(name),
			DurationMs: e.Duration.Milliseconds(),
		},
	}
}

func snapshotMessage(status []byte) Message {
	return Message{Type: MsgSnapshot, Payload: json.RawMessage(status)}
}

// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/gesture-sensor/internal/action"
	"github.com/sweeney/gesture-sensor/internal/gesture"
)

// Topic is the MQTT topic for gesture events.
const Topic = "gesture/sensor/events"

// TopicCommand is the MQTT topic a networked player listens on for actions.
const TopicCommand = "gesture/sensor/command"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "gesture/sensor/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a gesture event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event gesture.Event) error

	// PublishCommand sends an action command to the broker.
	PublishCommand(cmd Command) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// Command is an action request for a media player.
type Command struct {
	Timestamp time.Time
	Action    action.Name
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string         // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT", "RECONNECTED"
	Reason     string         // e.g., "SIGTERM", "SIGINT" (shutdown only)
	Heartbeat  *HeartbeatInfo // Heartbeat only
	RawPayload []byte         // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool           // Whether the message should be retained by the broker
}

// HeartbeatInfo summarises activity since startup.
type HeartbeatInfo struct {
	UptimeSeconds int64           `json:"uptime_seconds"`
	Samples       uint64          `json:"samples"`
	GestureCounts HeartbeatCounts `json:"gesture_counts"`
}

// HeartbeatCounts holds per-direction gesture counts.
type HeartbeatCounts struct {
	Left  int `json:"left"`
	Right int `json:"right"`
	Up    int `json:"up"`
	Down  int `json:"down"`
}

// NewHeartbeatInfo converts engine heartbeat data.
func NewHeartbeatInfo(hb gesture.HeartbeatData) *HeartbeatInfo {
	return &HeartbeatInfo{
		UptimeSeconds: int64(hb.Uptime.Truncate(time.Second).Seconds()),
		Samples:       hb.Samples,
		GestureCounts: HeartbeatCounts{
			Left:  hb.Counts.Left,
			Right: hb.Counts.Right,
			Up:    hb.Counts.Up,
			Down:  hb.Counts.Down,
		},
	}
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Gesture GesturePayload `json:"gesture"`
}

// GesturePayload contains the gesture event details.
type GesturePayload struct {
	Timestamp  string `json:"timestamp"`
	Event      string `json:"event"`
	Action     string `json:"action"`
	DurationMs int64  `json:"duration_ms"`
}

// FormatPayload creates the JSON payload for a gesture event.
func FormatPayload(event gesture.Event) ([]byte, error) {
	name, _ := action.For(event.Gesture)
	payload := Payload{
		Gesture: GesturePayload{
			Timestamp:  event.Timestamp.UTC().Format(time.RFC3339Nano),
			Event:      string(event.Gesture),
			Action:     string(name),
			DurationMs: event.Duration.Milliseconds(),
		},
	}
	return json.Marshal(payload)
}

// CommandPayload is the MQTT message payload for an action command.
type CommandPayload struct {
	Command CommandInner `json:"command"`
}

// CommandInner contains the command details.
type CommandInner struct {
	Timestamp string `json:"timestamp"`
	Action    string `json:"action"`
}

// FormatCommandPayload creates the JSON payload for a command.
func FormatCommandPayload(cmd Command) ([]byte, error) {
	return json.Marshal(CommandPayload{
		Command: CommandInner{
			Timestamp: cmd.Timestamp.UTC().Format(time.RFC3339Nano),
			Action:    string(cmd.Action),
		},
	})
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string         `json:"timestamp"`
	Event     string         `json:"event"`
	Reason    string         `json:"reason,omitempty"`
	Heartbeat *HeartbeatInfo `json:"heartbeat,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
			Heartbeat: event.Heartbeat,
		},
	}
	return json.Marshal(payload)
}

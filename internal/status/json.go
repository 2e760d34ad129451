package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	LastGesture   string       `json:"last_gesture"`
	LastGestureAt string       `json:"last_gesture_at,omitempty"`
	Suppression   string       `json:"suppression"`
	VerticalAxis  string       `json:"vertical_axis"`
	MaxAxis       string       `json:"max_axis"`
	Samples       uint64       `json:"samples"`
	Dropped       uint64       `json:"dropped"`
	Sessions      int          `json:"sessions"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	Source        SourceStatus `json:"source"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"gesture_counts"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// SourceStatus reports the sample source state.
type SourceStatus struct {
	Kind      string `json:"kind"`
	Connected bool   `json:"connected"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of gesture counts.
type CountsJSON struct {
	Left  int `json:"left"`
	Right int `json:"right"`
	Up    int `json:"up"`
	Down  int `json:"down"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	SampleMs      int64   `json:"sample_ms"`
	HeartbeatMs   int64   `json:"heartbeat_ms"`
	ThresholdHigh float64 `json:"th_hi"`
	ThresholdLow  float64 `json:"th_lo"`
	Broker        string  `json:"broker"`
	HTTPPort      string  `json:"http_port"`
}

func buildInner(snap Snapshot) StatusInner {
	last := string(snap.LastGesture)
	if last == "" {
		last = "NONE"
	}
	var lastAt string
	if !snap.LastGestureAt.IsZero() {
		lastAt = snap.LastGestureAt.UTC().Format(time.RFC3339Nano)
	}
	reason := string(snap.LastReason)
	if reason == "" {
		reason = "none"
	}

	return StatusInner{
		LastGesture:   last,
		LastGestureAt: lastAt,
		Suppression:   reason,
		VerticalAxis:  axisName(string(snap.VerticalAxis)),
		MaxAxis:       axisName(string(snap.MaxAxis)),
		Samples:       snap.Samples,
		Dropped:       snap.Dropped,
		Sessions:      snap.Sessions,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		Source:        SourceStatus{Kind: snap.Config.Source, Connected: snap.SourceConnected},
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Left:  snap.Counts.Left,
			Right: snap.Counts.Right,
			Up:    snap.Counts.Up,
			Down:  snap.Counts.Down,
		},
		Config: ConfigJSON{
			SampleMs:      snap.Config.SampleMs,
			HeartbeatMs:   snap.Config.HeartbeatMs,
			ThresholdHigh: snap.Config.ThresholdHigh,
			ThresholdLow:  snap.Config.ThresholdLow,
			Broker:        snap.Config.Broker,
			HTTPPort:      snap.Config.HTTPPort,
		},
	}
}

func axisName(a string) string {
	if a == "" {
		return "-"
	}
	return a
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}

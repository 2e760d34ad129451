// Package status provides a thread-safe status tracker for the gesture-sensor daemon.
// It is read by HTTP handlers and the websocket feed.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/gesture-sensor/internal/gesture"
)

// NetworkInfo contains network state. This is a local copy to avoid
// importing internal/mqtt from status.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	Source        string // "mqtt" or "serial"
	SampleMs      int64
	HeartbeatMs   int64
	ThresholdHigh float64
	ThresholdLow  float64
	Broker        string
	HTTPPort      string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Counts          gesture.GestureCounts
	LastGesture     gesture.Gesture
	LastGestureAt   time.Time
	LastReason      gesture.Reason
	VerticalAxis    gesture.Axis
	MaxAxis         gesture.Axis
	Samples         uint64
	Dropped         uint64
	Sessions        int
	SourceConnected bool
	StartTime       time.Time
	Now             time.Time
	MQTTConnected   bool
	Network         *NetworkInfo
	Config          Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime:  startTime,
			Config:     cfg,
			LastReason: gesture.ReasonNone,
		},
	}
}

// Update copies the engine view into the tracker and reports whether the
// suppression reason changed since the previous update.
// Called from runLoop after every sample.
func (t *Tracker) Update(es gesture.EngineSnapshot) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	changed := es.LastReason != t.snap.LastReason
	t.snap.Counts = es.Counts
	t.snap.LastGesture = es.LastGesture
	t.snap.LastGestureAt = es.LastGestureAt
	t.snap.LastReason = es.LastReason
	t.snap.VerticalAxis = es.Gravity.VerticalAxis
	t.snap.MaxAxis = es.Gravity.LastMaxAxis
	t.snap.Samples = es.Samples
	return changed
}

// NewSession counts a source reconnection.
func (t *Tracker) NewSession() {
	t.mu.Lock()
	t.snap.Sessions++
	t.mu.Unlock()
}

// SetDropped sets the number of frames the source discarded.
func (t *Tracker) SetDropped(n uint64) {
	t.mu.Lock()
	t.snap.Dropped = n
	t.mu.Unlock()
}

// SetSourceConnected sets the sample source connection status.
func (t *Tracker) SetSourceConnected(connected bool) {
	t.mu.Lock()
	t.snap.SourceConnected = connected
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}

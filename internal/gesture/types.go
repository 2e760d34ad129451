// Package gesture turns a stream of 3-axis accelerometer samples into
// discrete directional gestures.
// This package has NO external dependencies (no MQTT, GPIO, OS, or time.Sleep).
// Time is always injectable via time.Time parameters; deltas use the
// monotonic reading carried by time.Now().
package gesture

import "time"

// Sample is a single accelerometer reading in units of g.
type Sample struct {
	AX float64
	AY float64
	AZ float64
}

// Vec3 is a per-axis triple (filter outputs, gravity estimate).
type Vec3 struct {
	X float64
	Y float64
	Z float64
}

// Axis names a sensor axis.
type Axis string

const (
	AxisNone Axis = "-"
	AxisX    Axis = "x"
	AxisY    Axis = "y"
	AxisZ    Axis = "z"
)

// Direction is the sign of a detected pulse.
type Direction string

const (
	DirNone Direction = ""
	DirPos  Direction = "POS"
	DirNeg  Direction = "NEG"
)

// Gesture is a classified directional gesture.
type Gesture string

const (
	GestureNone  Gesture = ""
	GestureLeft  Gesture = "LEFT"
	GestureRight Gesture = "RIGHT"
	GestureUp    Gesture = "UP"
	GestureDown  Gesture = "DOWN"
)

// Event is a gesture fire to be routed to an action.
type Event struct {
	Timestamp time.Time
	Gesture   Gesture
	// Duration is how long the pulse took from trigger to release.
	Duration time.Duration
}

// Reason explains why the vertical detector was not fed a live signal
// on the most recent sample.
type Reason string

const (
	ReasonNone         Reason = "none"
	ReasonFreeze       Reason = "freeze"
	ReasonAxisCooldown Reason = "axis-cooldown"
	ReasonMutualBlock  Reason = "mutual-block"
	ReasonUDToLRBlock  Reason = "ud-to-lr-block"
	ReasonDominance    Reason = "dominance"
	ReasonAmplitude    Reason = "amplitude"
)

// GestureCounts tracks the number of each gesture since startup.
type GestureCounts struct {
	Left  int
	Right int
	Up    int
	Down  int
}

// Total returns the sum of all gesture counts.
func (c GestureCounts) Total() int {
	return c.Left + c.Right + c.Up + c.Down
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Samples   uint64
	Counts    GestureCounts
}

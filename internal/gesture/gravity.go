package gesture

import (
	"math"
	"time"
)

// GravityAxisState records which axis is treated as vertical.
type GravityAxisState struct {
	// VerticalAxis is the up/down reference axis.
	VerticalAxis Axis
	// LastMaxAxis is the axis that last dominated the gravity estimate with
	// enough confidence; AxisNone until the first confident reading.
	LastMaxAxis Axis
	// LastChange is when VerticalAxis last changed; zero if never.
	LastChange time.Time
}

// GravityEstimator tracks the gravity-aligned axis from low-pass output.
type GravityEstimator struct {
	confidence float64
	state      GravityAxisState
}

// NewGravityEstimator starts with z as the vertical axis.
func NewGravityEstimator(confidence float64) GravityEstimator {
	return GravityEstimator{
		confidence: confidence,
		state: GravityAxisState{
			VerticalAxis: AxisZ,
			LastMaxAxis:  AxisNone,
		},
	}
}

// Update folds in one gravity estimate and reports whether the vertical axis
// changed. Readings below the confidence threshold leave the state alone.
//
// The mapping is tied to the sensor mounting: a z-dominant gravity makes y
// the vertical axis, a y-dominant one makes z vertical, and x-dominant
// gravity keeps whatever axis was current.
func (e *GravityEstimator) Update(g Vec3, now time.Time) bool {
	maxAxis, maxMag := AxisX, math.Abs(g.X)
	if a := math.Abs(g.Y); a > maxMag {
		maxAxis, maxMag = AxisY, a
	}
	if a := math.Abs(g.Z); a > maxMag {
		maxAxis, maxMag = AxisZ, a
	}
	if maxMag < e.confidence {
		return false
	}

	prev := e.state.VerticalAxis
	switch maxAxis {
	case AxisZ:
		e.state.VerticalAxis = AxisY
	case AxisY:
		e.state.VerticalAxis = AxisZ
	}
	e.state.LastMaxAxis = maxAxis

	if e.state.VerticalAxis != prev {
		e.state.LastChange = now
		return true
	}
	return false
}

// State returns a copy of the current axis state.
func (e *GravityEstimator) State() GravityAxisState {
	return e.state
}

// VerticalExtractor projects acceleration onto the estimated gravity
// direction and removes the DC component.
type VerticalExtractor struct {
	floor float64
	hp    HighPass
}

// NewVerticalExtractor builds the extractor with its own high-pass channel.
func NewVerticalExtractor(cfg Config) VerticalExtractor {
	return VerticalExtractor{
		floor: cfg.GravityFloor,
		hp:    NewHighPass(cfg.HighPassCutoff, cfg.SampleDT),
	}
}

// Extract returns the high-passed vertical component of a. It returns 0
// without touching the filter when the gravity estimate is too weak.
func (v *VerticalExtractor) Extract(g Vec3, a Sample) float64 {
	gmag := math.Sqrt(g.X*g.X + g.Y*g.Y + g.Z*g.Z)
	if gmag <= v.floor {
		return 0
	}
	avert := (a.AX*g.X + a.AY*g.Y + a.AZ*g.Z) / gmag
	return v.hp.Step(avert)
}

// Reset clears the vertical channel.
func (v *VerticalExtractor) Reset() {
	v.hp.Reset()
}

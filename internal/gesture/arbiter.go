package gesture

import (
	"math"
	"time"
)

// ArbitrationState is shared by both detectors of one engine.
type ArbitrationState struct {
	LastLateralFire  time.Time
	LastVerticalFire time.Time
	FreezeUntil      time.Time
}

// Arbiter decides which detector receives a live signal on each sample.
type Arbiter struct {
	cfg   Config
	state ArbitrationState
}

// NewArbiter returns an arbiter with no fire history.
func NewArbiter(cfg Config) Arbiter {
	return Arbiter{cfg: cfg}
}

// Frozen reports whether all gesture evaluation is suspended.
func (a *Arbiter) Frozen(now time.Time) bool {
	return now.Before(a.state.FreezeUntil)
}

// LateralBlocked reports whether the left/right detector is blocked because
// an up/down gesture fired moments ago.
func (a *Arbiter) LateralBlocked(now time.Time) bool {
	return now.Sub(a.state.LastVerticalFire) < a.cfg.VerticalToLateralBlock
}

// VerticalInput returns what the up/down detector sees along with the
// reason it was gated. Axis cooldown and mutual block are hard blocks (see
// HardBlock); dominance and amplitude gates feed 0 and may release a pulse.
// It must be called after the left/right detector has stepped on the same
// sample so a lateral fire blocks immediately.
func (a *Arbiter) VerticalInput(fx, fvert float64, now, lastAxisChange time.Time) (float64, Reason) {
	axisOK := now.Sub(lastAxisChange) > a.cfg.AxisCooldown
	mutualOK := now.Sub(a.state.LastLateralFire) > a.cfg.MutualBlock
	dominanceOK := math.Abs(fvert) > a.cfg.VerticalDominance*math.Abs(fx)
	amplitudeOK := math.Abs(fvert) > a.cfg.verticalAmplitudeFloor()

	if axisOK && mutualOK && dominanceOK && amplitudeOK {
		return fvert, ReasonNone
	}

	switch {
	case !axisOK:
		return 0, ReasonAxisCooldown
	case !mutualOK:
		return 0, ReasonMutualBlock
	case a.LateralBlocked(now):
		return 0, ReasonUDToLRBlock
	case !dominanceOK:
		return 0, ReasonDominance
	default:
		return 0, ReasonAmplitude
	}
}

// RecordLateral notes a left/right fire.
func (a *Arbiter) RecordLateral(now time.Time) {
	a.state.LastLateralFire = now
}

// RecordVertical notes an up/down fire and starts the freeze window.
func (a *Arbiter) RecordVertical(now time.Time) {
	a.state.LastVerticalFire = now
	a.state.FreezeUntil = now.Add(a.cfg.PostVerticalFreeze)
}

// State returns a copy of the arbitration state.
func (a *Arbiter) State() ArbitrationState {
	return a.state
}

// Reset forgets all fire history.
func (a *Arbiter) Reset() {
	a.state = ArbitrationState{}
}

// HardBlock reports whether r must abandon a pulse in progress rather than
// feed it a zero.
func HardBlock(r Reason) bool {
	switch r {
	case ReasonFreeze, ReasonAxisCooldown, ReasonMutualBlock:
		return true
	}
	return false
}

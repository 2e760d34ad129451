package gesture

import "time"

// Phase is the state of a pulse detector.
type Phase string

const (
	PhaseIdle     Phase = "IDLE"
	PhaseTracking Phase = "TRACKING"
)

// PulseParams configures one pulse detector.
type PulseParams struct {
	High        float64
	Low         float64
	Refractory  time.Duration
	MinDuration time.Duration
	MaxDuration time.Duration
}

// DetectorState is the mutable state of one pulse detector.
// CrossedZero is only ever set while Phase is PhaseTracking.
type DetectorState struct {
	Phase       Phase
	TrackStart  time.Time
	FirstSign   int
	CrossedZero bool
	LastFired   Direction
	LastFiredAt time.Time
}

// Pulse is a fired pulse.
type Pulse struct {
	Dir      Direction
	Duration time.Duration
}

// PulseDetector turns a filtered signal into POS/NEG pulses. A pulse rises
// above High, swings through zero, and falls below Low within
// (MinDuration, MaxDuration).
type PulseDetector struct {
	params PulseParams
	state  DetectorState
}

// NewPulseDetector returns an idle detector.
func NewPulseDetector(p PulseParams) PulseDetector {
	return PulseDetector{
		params: p,
		state:  DetectorState{Phase: PhaseIdle},
	}
}

// Step feeds one sample of the signal. It returns the pulse and true when
// the detector fires on this sample.
func (d *PulseDetector) Step(x float64, now time.Time) (Pulse, bool) {
	mag := x
	if mag < 0 {
		mag = -mag
	}
	sg := sign(x)
	st := &d.state

	switch st.Phase {
	case PhaseIdle:
		if mag > d.params.High && now.Sub(st.LastFiredAt) > d.params.Refractory {
			st.Phase = PhaseTracking
			st.TrackStart = now
			st.FirstSign = sg
			if st.FirstSign == 0 {
				st.FirstSign = 1
			}
			st.CrossedZero = false
		}
		return Pulse{}, false

	case PhaseTracking:
		if sg != 0 && sg != st.FirstSign {
			st.CrossedZero = true
		}

		elapsed := now.Sub(st.TrackStart)
		var fired Pulse
		ok := false

		if mag < d.params.Low && elapsed > d.params.MinDuration {
			if elapsed < d.params.MaxDuration && st.CrossedZero {
				dir := DirNeg
				if st.FirstSign > 0 {
					dir = DirPos
				}
				if dir != st.LastFired || now.Sub(st.LastFiredAt) > d.params.Refractory {
					st.LastFired = dir
					st.LastFiredAt = now
					fired, ok = Pulse{Dir: dir, Duration: elapsed}, true
				}
			}
			d.idle()
		}

		if elapsed > d.params.MaxDuration {
			d.idle()
		}
		return fired, ok
	}
	return Pulse{}, false
}

// Suppress feeds a blocked sample. It behaves like Step(0) except that a
// pulse that would complete is abandoned instead of fired.
func (d *PulseDetector) Suppress(now time.Time) {
	if d.state.Phase != PhaseTracking {
		return
	}
	if now.Sub(d.state.TrackStart) > d.params.MinDuration {
		d.idle()
	}
}

func (d *PulseDetector) idle() {
	d.state.Phase = PhaseIdle
	d.state.CrossedZero = false
}

// State returns a copy of the detector state.
func (d *PulseDetector) State() DetectorState {
	return d.state
}

// Reset returns the detector to idle and forgets its fire history.
func (d *PulseDetector) Reset() {
	d.state = DetectorState{Phase: PhaseIdle}
}

func sign(x float64) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}

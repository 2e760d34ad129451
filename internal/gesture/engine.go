package gesture

import "time"

// EngineSnapshot is a point-in-time view of engine state for diagnostics.
type EngineSnapshot struct {
	Samples       uint64
	Gravity       GravityAxisState
	Arbitration   ArbitrationState
	Lateral       DetectorState
	Vertical      DetectorState
	LastReason    Reason
	LastGesture   Gesture
	LastGestureAt time.Time
	Counts        GestureCounts
	// Motion and FVert are the most recent filter outputs.
	Motion Vec3
	FVert  float64
}

// Engine runs the full pipeline for one sensor session: filter bank,
// gravity axis estimator, vertical extractor, arbitration and the two
// pulse detectors. It is not safe for concurrent use; each session owns
// its own Engine.
type Engine struct {
	cfg Config

	bank     FilterBank
	gravity  GravityEstimator
	vertical VerticalExtractor
	lateral  PulseDetector
	upDown   PulseDetector
	arbiter  Arbiter

	samples       uint64
	lastMotion    Vec3
	lastFVert     float64
	lastReason    Reason
	lastGesture   Gesture
	lastGestureAt time.Time

	startTime     time.Time
	counts        GestureCounts
	lastHeartbeat time.Time
}

// NewEngine creates an engine with the given tuning. The startTime is used
// for calculating uptime in heartbeat events.
func NewEngine(cfg Config, startTime time.Time) *Engine {
	e := &Engine{
		cfg:           cfg,
		startTime:     startTime,
		lastHeartbeat: startTime,
	}
	e.Reset()
	return e
}

// Reset discards all signal state, as at the start of a new session.
// Gesture counts and heartbeat bookkeeping survive.
func (e *Engine) Reset() {
	e.bank = NewFilterBank(e.cfg)
	e.gravity = NewGravityEstimator(e.cfg.GravityConfidence)
	e.vertical = NewVerticalExtractor(e.cfg)
	e.lateral = NewPulseDetector(e.cfg.LateralParams())
	e.upDown = NewPulseDetector(e.cfg.VerticalParams())
	e.arbiter = NewArbiter(e.cfg)
	e.samples = 0
	e.lastMotion = Vec3{}
	e.lastFVert = 0
	e.lastReason = ReasonNone
}

// Process takes a new sample observed at now and returns any gestures that
// fired. At most one left/right and one up/down gesture can fire per sample.
func (e *Engine) Process(s Sample, now time.Time) []Event {
	e.samples++

	g, motion := e.bank.Step(s)
	e.gravity.Update(g, now)
	fvert := e.vertical.Extract(g, s)
	e.lastMotion = motion
	e.lastFVert = fvert

	if e.arbiter.Frozen(now) {
		e.lateral.Suppress(now)
		e.upDown.Suppress(now)
		e.lastReason = ReasonFreeze
		return nil
	}

	var events []Event

	if e.arbiter.LateralBlocked(now) {
		e.lateral.Suppress(now)
	} else if p, ok := e.lateral.Step(motion.X, now); ok {
		e.arbiter.RecordLateral(now)
		events = append(events, e.fire(lateralGesture(p.Dir), p, now))
	}

	in, reason := e.arbiter.VerticalInput(motion.X, fvert, now, e.gravity.State().LastChange)
	e.lastReason = reason
	if HardBlock(reason) {
		e.upDown.Suppress(now)
	} else if p, ok := e.upDown.Step(in, now); ok {
		e.arbiter.RecordVertical(now)
		events = append(events, e.fire(verticalGesture(p.Dir), p, now))
	}

	return events
}

func (e *Engine) fire(g Gesture, p Pulse, now time.Time) Event {
	switch g {
	case GestureLeft:
		e.counts.Left++
	case GestureRight:
		e.counts.Right++
	case GestureUp:
		e.counts.Up++
	case GestureDown:
		e.counts.Down++
	}
	e.lastGesture = g
	e.lastGestureAt = now
	return Event{Timestamp: now, Gesture: g, Duration: p.Duration}
}

func lateralGesture(d Direction) Gesture {
	if d == DirPos {
		return GestureRight
	}
	return GestureLeft
}

func verticalGesture(d Direction) Gesture {
	if d == DirPos {
		return GestureUp
	}
	return GestureDown
}

// Config returns the engine tuning.
func (e *Engine) Config() Config {
	return e.cfg
}

// LastReason returns why the up/down detector was suppressed on the most
// recent sample, or ReasonNone.
func (e *Engine) LastReason() Reason {
	return e.lastReason
}

// Counts returns the gesture counts since the engine was created.
func (e *Engine) Counts() GestureCounts {
	return e.counts
}

// Snapshot returns a copy of the engine state.
func (e *Engine) Snapshot() EngineSnapshot {
	return EngineSnapshot{
		Samples:       e.samples,
		Gravity:       e.gravity.State(),
		Arbitration:   e.arbiter.State(),
		Lateral:       e.lateral.State(),
		Vertical:      e.upDown.State(),
		LastReason:    e.lastReason,
		LastGesture:   e.lastGesture,
		LastGestureAt: e.lastGestureAt,
		Counts:        e.counts,
		Motion:        e.lastMotion,
		FVert:         e.lastFVert,
	}
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if the interval has not elapsed or
// if interval is <= 0 (disabled).
func (e *Engine) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}
	if now.Sub(e.lastHeartbeat) < interval {
		return nil
	}

	e.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(e.startTime),
		Samples:   e.samples,
		Counts:    e.counts,
	}
}

package internal

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/gesture-sensor/internal/action"
	"github.com/sweeney/gesture-sensor/internal/gesture"
	"github.com/sweeney/gesture-sensor/internal/gpio"
	"github.com/sweeney/gesture-sensor/internal/mqtt"
	"github.com/sweeney/gesture-sensor/internal/source"
	"github.com/sweeney/gesture-sensor/internal/status"
)

var startTime = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

const samplePeriod = 20 * time.Millisecond

// swipe is a lateral stroke along x: rest, a short push, a longer
// return, then rest again.
func swipe(a float64) []gesture.Sample {
	out := make([]gesture.Sample, 75)
	for i := 10; i < 15; i++ {
		out[i].AX = a
	}
	for i := 15; i < 25; i++ {
		out[i].AX = -a
	}
	return out
}

type pipeline struct {
	engine     *gesture.Engine
	publisher  *mqtt.FakePublisher
	dispatcher *action.Dispatcher
	indicator  *gpio.FakeIndicator
	tracker    *status.Tracker

	mu      sync.Mutex
	invoked []string
}

func newPipeline() *pipeline {
	p := &pipeline{
		engine:    gesture.NewEngine(gesture.DefaultConfig(), startTime),
		publisher: mqtt.NewFakePublisher(),
		indicator: gpio.NewFakeIndicator(),
		tracker:   status.NewTracker(startTime, status.Config{Source: "fake"}),
	}
	record := func(name string) func() error {
		return func() error {
			p.mu.Lock()
			defer p.mu.Unlock()
			p.invoked = append(p.invoked, name)
			return nil
		}
	}
	local := action.Funcs{
		Next:     record("next"),
		Previous: record("previous"),
		Toggle:   record("toggle"),
		Selector: record("selector"),
	}
	commander := mqtt.NewCommander(p.publisher, func() time.Time { return startTime })
	p.dispatcher = action.NewDispatcher(action.Multi{local, commander}, 0)
	return p
}

// run mirrors the daemon loop: read, reset on ErrReset, process, fan out.
func (p *pipeline) run(t *testing.T, r source.Reader) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.dispatcher.Run(ctx)

	dispatched := uint64(0)
	for {
		reading, err := r.Read(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if errors.Is(err, source.ErrReset) {
			p.engine.Reset()
			p.tracker.NewSession()
			continue
		}
		if err != nil {
			t.Fatalf("read: %v", err)
		}

		for _, ev := range p.engine.Process(reading.Sample, reading.At) {
			if err := p.publisher.Publish(ev); err != nil {
				t.Fatalf("publish: %v", err)
			}
			if p.dispatcher.Dispatch(ev.Gesture) {
				dispatched++
			}
			p.indicator.Flash(ev.Gesture)
		}
		p.tracker.Update(p.engine.Snapshot())
	}

	deadline := time.Now().Add(2 * time.Second)
	for p.dispatcher.Completed() < dispatched {
		if time.Now().After(deadline) {
			t.Fatalf("dispatcher completed %d of %d actions", p.dispatcher.Completed(), dispatched)
		}
		time.Sleep(time.Millisecond)
	}
}

func (p *pipeline) invokedList() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.invoked...)
}

// TestIntegrationFullFlow drives two sessions from the source to every output.
func TestIntegrationFullFlow(t *testing.T) {
	samples := append(swipe(0.7), gesture.Sample{})
	samples = append(samples, swipe(-0.7)...)
	reader := source.NewFakeReader(startTime, samplePeriod, samples)
	reader.Errors = map[int]error{75: source.ErrReset}

	p := newPipeline()
	p.run(t, reader)

	if len(p.publisher.Events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(p.publisher.Events))
	}
	if p.publisher.Events[0].Gesture != gesture.GestureRight {
		t.Errorf("event 0: expected RIGHT, got %s", p.publisher.Events[0].Gesture)
	}
	if p.publisher.Events[1].Gesture != gesture.GestureLeft {
		t.Errorf("event 1: expected LEFT, got %s", p.publisher.Events[1].Gesture)
	}
	if !p.publisher.Events[0].Timestamp.Equal(startTime.Add(21 * samplePeriod)) {
		t.Errorf("event 0: unexpected timestamp %v", p.publisher.Events[0].Timestamp)
	}

	cmds := p.publisher.CommandList()
	if len(cmds) != 2 || cmds[0].Action != action.NameSkipNext || cmds[1].Action != action.NameSkipPrevious {
		t.Errorf("unexpected commands: %+v", cmds)
	}
	invoked := p.invokedList()
	if len(invoked) != 2 || invoked[0] != "next" || invoked[1] != "previous" {
		t.Errorf("unexpected local actions: %v", invoked)
	}

	flashes := p.indicator.FlashList()
	if len(flashes) != 2 || flashes[0] != gesture.GestureRight || flashes[1] != gesture.GestureLeft {
		t.Errorf("unexpected flashes: %v", flashes)
	}

	snap := p.tracker.Snapshot()
	if snap.Sessions != 1 {
		t.Errorf("expected 1 session reset, got %d", snap.Sessions)
	}
	if snap.Counts.Left != 1 || snap.Counts.Right != 1 {
		t.Errorf("unexpected counts: %+v", snap.Counts)
	}
	if snap.LastGesture != gesture.GestureLeft {
		t.Errorf("expected last gesture LEFT, got %s", snap.LastGesture)
	}

	for i, payload := range p.publisher.Payloads {
		var parsed mqtt.Payload
		if err := json.Unmarshal(payload, &parsed); err != nil {
			t.Errorf("payload %d: invalid JSON: %v", i, err)
		}
		if parsed.Gesture.Timestamp == "" || parsed.Gesture.Action == "" {
			t.Errorf("payload %d: missing fields: %s", i, payload)
		}
	}
}

// TestIntegrationNoEventsWhenStill verifies a resting sensor stays quiet.
func TestIntegrationNoEventsWhenStill(t *testing.T) {
	samples := make([]gesture.Sample, 200)

	p := newPipeline()
	p.run(t, source.NewFakeReader(startTime, samplePeriod, samples))

	if len(p.publisher.Events) != 0 {
		t.Errorf("expected no events, got %d", len(p.publisher.Events))
	}
	if len(p.invokedList()) != 0 {
		t.Errorf("expected no actions, got %v", p.invokedList())
	}
}

// TestIntegrationPublishFailureDoesNotBlockActions verifies local actions
// still run when the broker rejects publishes.
func TestIntegrationPublishFailureDoesNotBlockActions(t *testing.T) {
	engine := gesture.NewEngine(gesture.DefaultConfig(), startTime)
	publisher := mqtt.NewFakePublisher()
	publisher.PublishError = errors.New("broker unavailable")

	var routed []gesture.Gesture
	local := action.Funcs{Next: func() error {
		routed = append(routed, gesture.GestureRight)
		return nil
	}}

	for i, s := range swipe(0.7) {
		now := startTime.Add(time.Duration(i) * samplePeriod)
		for _, ev := range engine.Process(s, now) {
			if err := publisher.Publish(ev); err == nil {
				t.Error("expected publish error")
			}
			if err := action.Route(local, ev.Gesture); err != nil {
				t.Errorf("route: %v", err)
			}
		}
	}

	if len(routed) != 1 {
		t.Errorf("expected 1 routed action, got %d", len(routed))
	}
	if len(publisher.Events) != 0 {
		t.Errorf("expected no recorded events, got %d", len(publisher.Events))
	}
}

// TestIntegrationPayloadFormat verifies the exact JSON structure.
func TestIntegrationPayloadFormat(t *testing.T) {
	event := gesture.Event{
		Timestamp: time.Date(2026, 2, 2, 22, 18, 12, 0, time.UTC),
		Gesture:   gesture.GestureUp,
		Duration:  180 * time.Millisecond,
	}

	publisher := mqtt.NewFakePublisher()
	publisher.Publish(event)

	expected := `{"gesture":{"timestamp":"2026-02-02T22:18:12Z","event":"UP","action":"toggle_play_pause","duration_ms":180}}`

	if string(publisher.Payloads[0]) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", string(publisher.Payloads[0]), expected)
	}
}

// TestIntegrationShutdownAfterGestures verifies shutdown comes after gesture events.
func TestIntegrationShutdownAfterGestures(t *testing.T) {
	p := newPipeline()
	p.run(t, source.NewFakeReader(startTime, samplePeriod, swipe(0.7)))

	p.publisher.PublishSystem(mqtt.SystemEvent{
		Timestamp: startTime.Add(2 * time.Second),
		Event:     "SHUTDOWN",
		Reason:    "SIGTERM",
	})

	if len(p.publisher.Events) != 1 {
		t.Fatalf("expected 1 gesture event, got %d", len(p.publisher.Events))
	}
	if len(p.publisher.SystemEvents) != 1 {
		t.Fatalf("expected 1 system event, got %d", len(p.publisher.SystemEvents))
	}
	if !p.publisher.SystemEvents[0].Timestamp.After(p.publisher.Events[0].Timestamp) {
		t.Error("shutdown should be timestamped after the gesture")
	}

	expected := `{"system":{"timestamp":"2026-01-01T12:00:02Z","event":"SHUTDOWN","reason":"SIGTERM"}}`
	if string(p.publisher.SystemPayloads[0]) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", p.publisher.SystemPayloads[0], expected)
	}
}

package mqtt

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/gesture-sensor/internal/action"
	"github.com/sweeney/gesture-sensor/internal/gesture"
)

func TestFormatPayload(t *testing.T) {
	event := gesture.Event{
		Timestamp: time.Date(2026, 2, 2, 22, 18, 12, 0, time.UTC),
		Gesture:   gesture.GestureRight,
		Duration:  220 * time.Millisecond,
	}

	payload, err := FormatPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"gesture":{"timestamp":"2026-02-02T22:18:12Z","event":"RIGHT","action":"skip_next","duration_ms":220}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", string(payload), expected)
	}
}

func TestFormatPayloadAllGestures(t *testing.T) {
	tests := []struct {
		g          gesture.Gesture
		wantAction string
	}{
		{gesture.GestureLeft, "skip_previous"},
		{gesture.GestureRight, "skip_next"},
		{gesture.GestureUp, "toggle_play_pause"},
		{gesture.GestureDown, "open_selector"},
	}

	for _, tt := range tests {
		t.Run(string(tt.g), func(t *testing.T) {
			payload, err := FormatPayload(gesture.Event{Timestamp: time.Now(), Gesture: tt.g})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			var parsed Payload
			if err := json.Unmarshal(payload, &parsed); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			if parsed.Gesture.Event != string(tt.g) {
				t.Errorf("event: got %s, want %s", parsed.Gesture.Event, tt.g)
			}
			if parsed.Gesture.Action != tt.wantAction {
				t.Errorf("action: got %s, want %s", parsed.Gesture.Action, tt.wantAction)
			}
		})
	}
}

func TestFormatPayloadTimezoneConversion(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	event := gesture.Event{
		Timestamp: time.Date(2026, 2, 2, 12, 0, 0, 500_000_000, loc),
		Gesture:   gesture.GestureUp,
	}

	payload, err := FormatPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed Payload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Gesture.Timestamp != "2026-02-02T10:00:00.5Z" {
		t.Errorf("timestamp should be UTC with sub-second precision, got %s", parsed.Gesture.Timestamp)
	}
}

func TestFormatCommandPayload(t *testing.T) {
	cmd := Command{
		Timestamp: time.Date(2026, 2, 2, 22, 18, 12, 0, time.UTC),
		Action:    action.NameTogglePlayPause,
	}

	payload, err := FormatCommandPayload(cmd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"command":{"timestamp":"2026-02-02T22:18:12Z","action":"toggle_play_pause"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", string(payload), expected)
	}
}

func TestTopics(t *testing.T) {
	if Topic != "gesture/sensor/events" {
		t.Errorf("unexpected topic: %s", Topic)
	}
	if TopicCommand != "gesture/sensor/command" {
		t.Errorf("unexpected command topic: %s", TopicCommand)
	}
	if TopicSystem != "gesture/sensor/system" {
		t.Errorf("unexpected system topic: %s", TopicSystem)
	}
}

func TestFormatSystemPayloadShutdown(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 2, 3, 19, 10, 0, 0, time.UTC),
		Event:     "SHUTDOWN",
		Reason:    "SIGTERM",
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"system":{"timestamp":"2026-02-03T19:10:00Z","event":"SHUTDOWN","reason":"SIGTERM"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", string(payload), expected)
	}
}

func TestFormatSystemPayloadRawPassthrough(t *testing.T) {
	raw := []byte(`{"status":{"event":"STARTUP"}}`)
	event := SystemEvent{
		Timestamp:  time.Now(),
		Event:      "STARTUP",
		RawPayload: raw,
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(payload) != string(raw) {
		t.Errorf("expected raw payload, got %s", payload)
	}
}

func TestFormatSystemPayloadHeartbeatExactJSON(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 2, 4, 12, 15, 0, 0, time.UTC),
		Event:     "HEARTBEAT",
		Heartbeat: NewHeartbeatInfo(gesture.HeartbeatData{
			Uptime:  900*time.Second + 400*time.Millisecond,
			Samples: 45000,
			Counts:  gesture.GestureCounts{Left: 1, Right: 2, Up: 3, Down: 4},
		}),
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"system":{"timestamp":"2026-02-04T12:15:00Z","event":"HEARTBEAT","heartbeat":{"uptime_seconds":900,"samples":45000,"gesture_counts":{"left":1,"right":2,"up":3,"down":4}}}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", string(payload), expected)
	}
}

func TestFormatSystemPayloadReconnected(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 2, 10, 14, 30, 0, 0, time.UTC),
		Event:     "RECONNECTED",
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	system := parsed["system"].(map[string]interface{})
	if _, exists := system["reason"]; exists {
		t.Error("RECONNECTED should not have reason field")
	}
	if _, exists := system["heartbeat"]; exists {
		t.Error("RECONNECTED should not have heartbeat field")
	}
}

func TestFakePublisher(t *testing.T) {
	f := NewFakePublisher()

	err := f.Publish(gesture.Event{Timestamp: time.Now(), Gesture: gesture.GestureLeft})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(f.Events))
	}
	if f.Events[0].Gesture != gesture.GestureLeft {
		t.Errorf("unexpected gesture: %s", f.Events[0].Gesture)
	}
	if len(f.Payloads) != 1 {
		t.Fatalf("expected 1 payload, got %d", len(f.Payloads))
	}
}

func TestFakePublisherError(t *testing.T) {
	f := NewFakePublisher()
	f.PublishError = errors.New("test error")

	if err := f.Publish(gesture.Event{Gesture: gesture.GestureUp}); err == nil {
		t.Error("expected error")
	}
	if err := f.PublishCommand(Command{Action: action.NameSkipNext}); err == nil {
		t.Error("expected command error")
	}
	if len(f.Events) != 0 || len(f.Commands) != 0 {
		t.Error("nothing should be recorded on error")
	}
}

func TestFakePublisherReset(t *testing.T) {
	f := NewFakePublisher()
	f.Publish(gesture.Event{Gesture: gesture.GestureUp})
	f.PublishCommand(Command{Action: action.NameSkipNext})
	f.PublishSystem(SystemEvent{Event: "STARTUP"})
	f.Close()
	f.Connected = true

	f.Reset()

	if len(f.Events) != 0 || len(f.Commands) != 0 || len(f.SystemEvents) != 0 {
		t.Error("expected recordings to be cleared")
	}
	if f.Closed || f.Connected {
		t.Error("expected flags to be cleared")
	}
}

func TestFakePublisherRecordsRetainedFlag(t *testing.T) {
	f := NewFakePublisher()

	f.PublishSystem(SystemEvent{Timestamp: time.Now(), Event: "STARTUP", Retained: true})
	f.PublishSystem(SystemEvent{Timestamp: time.Now(), Event: "HEARTBEAT"})

	if names := f.SystemEventNames(); len(names) != 2 || names[0] != "STARTUP" || names[1] != "HEARTBEAT" {
		t.Fatalf("unexpected system events: %v", names)
	}
	if !f.SystemEvents[0].Retained {
		t.Error("first event should have Retained=true")
	}
	if f.SystemEvents[1].Retained {
		t.Error("second event should have Retained=false")
	}
}

func TestCommander(t *testing.T) {
	f := NewFakePublisher()
	now := time.Date(2026, 2, 2, 22, 18, 12, 0, time.UTC)
	c := NewCommander(f, func() time.Time { return now })

	for _, g := range []gesture.Gesture{gesture.GestureRight, gesture.GestureLeft, gesture.GestureUp, gesture.GestureDown} {
		if err := action.Route(c, g); err != nil {
			t.Fatalf("route %s: %v", g, err)
		}
	}

	want := []action.Name{action.NameSkipNext, action.NameSkipPrevious, action.NameTogglePlayPause, action.NameOpenSelector}
	got := f.CommandList()
	if len(got) != len(want) {
		t.Fatalf("expected %d commands, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].Action != want[i] {
			t.Errorf("command %d: got %s, want %s", i, got[i].Action, want[i])
		}
		if !got[i].Timestamp.Equal(now) {
			t.Errorf("command %d: unexpected timestamp %v", i, got[i].Timestamp)
		}
	}
}

// recordingClient stands in for a paho client and records publishes.
type recordingClient struct {
	paho.Client
	mu        sync.Mutex
	published []bufferedMsg
}

func (c *recordingClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.published = append(c.published, bufferedMsg{
		topic:    topic,
		payload:  payload.([]byte),
		qos:      qos,
		retained: retained,
	})
	return &doneToken{}
}

func (c *recordingClient) Disconnect(uint) {}

func (c *recordingClient) topics() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.published))
	for i, m := range c.published {
		out[i] = m.topic
	}
	return out
}

type doneToken struct{ err error }

func (t *doneToken) Wait() bool                     { return true }
func (t *doneToken) WaitTimeout(time.Duration) bool { return true }
func (t *doneToken) Error() error                   { return t.err }
func (t *doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

func newTestRealPublisher() (*RealPublisher, *recordingClient) {
	c := &recordingClient{}
	p := newRealPublisher(8)
	p.client = c
	p.now = func() time.Time { return time.Date(2026, 2, 10, 14, 30, 0, 0, time.UTC) }
	return p, c
}

func TestRealPublisherBuffersUntilConnected(t *testing.T) {
	p, c := newTestRealPublisher()

	p.PublishSystem(SystemEvent{Timestamp: time.Now(), Event: "STARTUP", Retained: true})
	p.Publish(gesture.Event{Timestamp: time.Now(), Gesture: gesture.GestureRight})
	p.PublishCommand(Command{Timestamp: time.Now(), Action: action.NameSkipNext})

	if got := len(c.topics()); got != 0 {
		t.Fatalf("expected nothing sent while disconnected, got %d", got)
	}
	if p.Buffered() != 3 {
		t.Fatalf("expected 3 buffered, got %d", p.Buffered())
	}
	if p.IsConnected() {
		t.Error("expected IsConnected=false before connect")
	}

	p.onConnect(c)

	want := []string{TopicSystem, Topic, TopicCommand}
	got := c.topics()
	if len(got) != len(want) {
		t.Fatalf("expected %d replayed, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("message %d: got %s, want %s", i, got[i], want[i])
		}
	}
	if !c.published[0].retained || c.published[0].qos != 1 {
		t.Error("startup should keep its retained flag and QoS 1")
	}
	if c.published[2].qos != 1 {
		t.Error("commands should use QoS 1")
	}
	if p.Buffered() != 0 {
		t.Errorf("expected empty buffer, got %d", p.Buffered())
	}
	if !p.IsConnected() {
		t.Error("expected IsConnected=true after connect")
	}
}

func TestRealPublisherSendsDirectlyWhenConnected(t *testing.T) {
	p, c := newTestRealPublisher()
	p.onConnect(c)

	p.Publish(gesture.Event{Timestamp: time.Now(), Gesture: gesture.GestureDown})

	if got := c.topics(); len(got) != 1 || got[0] != Topic {
		t.Errorf("expected one direct publish, got %v", got)
	}
}

func TestRealPublisherReconnect(t *testing.T) {
	p, c := newTestRealPublisher()
	p.onConnect(c)

	p.onConnectionLost(c, errors.New("network down"))
	if p.IsConnected() {
		t.Fatal("expected disconnected after connection lost")
	}
	p.Publish(gesture.Event{Timestamp: time.Now(), Gesture: gesture.GestureUp})
	if len(c.topics()) != 0 {
		t.Fatal("expected publish to be buffered")
	}

	p.onConnect(c)

	got := c.topics()
	if len(got) != 2 || got[0] != Topic || got[1] != TopicSystem {
		t.Fatalf("expected buffered event then RECONNECTED, got %v", got)
	}
	var parsed SystemPayload
	if err := json.Unmarshal(c.published[1].payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.System.Event != "RECONNECTED" {
		t.Errorf("expected RECONNECTED, got %s", parsed.System.Event)
	}
	if parsed.System.Timestamp != "2026-02-10T14:30:00Z" {
		t.Errorf("unexpected timestamp: %s", parsed.System.Timestamp)
	}
}

func TestRealPublisherBufferOverflowKeepsNewest(t *testing.T) {
	p, c := newTestRealPublisher()

	for i := 0; i < 10; i++ {
		p.Publish(gesture.Event{Timestamp: time.Now(), Gesture: gesture.GestureLeft, Duration: time.Duration(i) * time.Millisecond})
	}
	p.onConnect(c)

	if len(c.published) != 8 {
		t.Fatalf("expected 8 replayed, got %d", len(c.published))
	}
	var first Payload
	if err := json.Unmarshal(c.published[0].payload, &first); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if first.Gesture.DurationMs != 2 {
		t.Errorf("expected oldest surviving message to be #2, got #%d", first.Gesture.DurationMs)
	}
	if p.Dropped() != 2 {
		t.Errorf("expected 2 dropped, got %d", p.Dropped())
	}
}

func TestRealPublisherDiscardsStaleCommands(t *testing.T) {
	p, c := newTestRealPublisher()
	now := time.Date(2026, 2, 10, 14, 30, 0, 0, time.UTC)
	p.now = func() time.Time { return now }

	p.PublishCommand(Command{Timestamp: now, Action: action.NameSkipNext})
	p.Publish(gesture.Event{Timestamp: now, Gesture: gesture.GestureRight})
	now = now.Add(CommandTTL + time.Second)
	p.onConnect(c)

	if got := c.topics(); len(got) != 1 || got[0] != Topic {
		t.Errorf("expected only the gesture event to be replayed, got %v", got)
	}
	if p.Dropped() != 1 {
		t.Errorf("expected 1 dropped, got %d", p.Dropped())
	}
}

func TestWillPayloadFormat(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 2, 10, 8, 30, 0, 0, time.UTC),
		Event:     "SHUTDOWN",
		Reason:    "MQTT_DISCONNECT",
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"system":{"timestamp":"2026-02-10T08:30:00Z","event":"SHUTDOWN","reason":"MQTT_DISCONNECT"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", string(payload), expected)
	}
}

package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/gesture-sensor/internal/gesture"
)

// DefaultBufferSize is how many messages are held while disconnected.
const DefaultBufferSize = 256

// RealPublisher publishes to an actual MQTT broker.
// Publish calls never block: while the broker is unreachable messages go to
// a ring buffer that is replayed in order on reconnect.
type RealPublisher struct {
	client paho.Client

	mu        sync.Mutex
	buf       *ringBuffer
	connected bool
	connects  int

	now func() time.Time
}

// NewRealPublisher creates a publisher for the given broker. It connects in
// the background and keeps retrying; it never fails.
func NewRealPublisher(broker, clientID string) *RealPublisher {
	p := newRealPublisher(DefaultBufferSize)

	will, _ := FormatSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     "SHUTDOWN",
		Reason:    "MQTT_DISCONNECT",
	})

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetBinaryWill(TopicSystem, will, 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(p.onConnectionLost)

	p.client = paho.NewClient(opts)
	p.client.Connect()
	return p
}

func newRealPublisher(bufSize int) *RealPublisher {
	return &RealPublisher{
		buf: newRingBuffer(bufSize),
		now: time.Now,
	}
}

// onConnect replays buffered messages, then marks the publisher live.
// Holding mu while draining keeps concurrent publishes behind the replay.
func (p *RealPublisher) onConnect(c paho.Client) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.connects++
	pending := p.buf.drain(p.now())
	if len(pending) > 0 {
		log.Printf("mqtt: connected, replaying %d buffered messages", len(pending))
	} else {
		log.Printf("mqtt: connected")
	}
	for _, m := range pending {
		p.send(c, m)
	}
	if p.connects > 1 {
		payload, _ := FormatSystemPayload(SystemEvent{Timestamp: p.now(), Event: "RECONNECTED"})
		p.send(c, bufferedMsg{topic: TopicSystem, payload: payload, qos: 1})
	}
	p.connected = true
}

func (p *RealPublisher) onConnectionLost(_ paho.Client, err error) {
	p.mu.Lock()
	p.connected = false
	p.mu.Unlock()
	log.Printf("mqtt: connection lost: %v", err)
}

func (p *RealPublisher) send(c paho.Client, m bufferedMsg) {
	token := c.Publish(m.topic, m.qos, m.retained, m.payload)
	go func() {
		if !token.WaitTimeout(5 * time.Second) {
			log.Printf("mqtt: publish to %s timed out", m.topic)
			return
		}
		if err := token.Error(); err != nil {
			log.Printf("mqtt: publish to %s: %v", m.topic, err)
		}
	}()
}

func (p *RealPublisher) publish(m bufferedMsg) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.connected {
		m.queued = p.now()
		p.buf.push(m)
		return
	}
	p.send(p.client, m)
}

// Publish sends a gesture event to the MQTT broker.
func (p *RealPublisher) Publish(event gesture.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	// QoS 0 (at-most-once), not retained
	p.publish(bufferedMsg{topic: Topic, payload: payload})
	return nil
}

// PublishCommand sends an action command to the MQTT broker.
func (p *RealPublisher) PublishCommand(cmd Command) error {
	payload, err := FormatCommandPayload(cmd)
	if err != nil {
		return fmt.Errorf("format command payload: %w", err)
	}
	// QoS 1: a dropped skip is noticeable to the user
	p.publish(bufferedMsg{topic: TopicCommand, payload: payload, qos: 1, ttl: CommandTTL})
	return nil
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	p.publish(bufferedMsg{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained})
	return nil
}

// IsConnected reports whether the broker connection is live.
func (p *RealPublisher) IsConnected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

// Buffered returns the number of messages waiting for a connection.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buf.len()
}

// Dropped returns how many messages were lost while disconnected.
func (p *RealPublisher) Dropped() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buf.dropped()
}

// Close flushes in-flight messages and disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}

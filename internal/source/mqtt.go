package source

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// DefaultTopic carries one binary frame per message.
const DefaultTopic = "gesture/sensor/samples"

// MQTTConfig configures the sample subscriber.
type MQTTConfig struct {
	Broker   string
	ClientID string
	Topic    string
	// Queue is how many frames may wait for the engine before new ones are
	// dropped.
	Queue int
}

// MQTTReader receives samples relayed over MQTT, one frame per message,
// the same framing a BLE notification uses.
type MQTTReader struct {
	client paho.Client
	topic  string
	queue  chan frame
	done   chan struct{}
	once   sync.Once

	subscribed atomic.Bool
	dropped    atomic.Uint64

	now func() time.Time
}

// frame is a queued reading, or a session boundary when reset is set.
type frame struct {
	Reading
	reset bool
}

// NewMQTTReader connects to the broker and subscribes to the sample topic.
// The subscription is renewed on every reconnect.
func NewMQTTReader(cfg MQTTConfig) (*MQTTReader, error) {
	r := newMQTTReader(cfg)

	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(r.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("source: mqtt connection lost: %v", err)
		})

	r.client = paho.NewClient(opts)
	token := r.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	return r, nil
}

func newMQTTReader(cfg MQTTConfig) *MQTTReader {
	topic := cfg.Topic
	if topic == "" {
		topic = DefaultTopic
	}
	size := cfg.Queue
	if size <= 0 {
		size = 256
	}
	return &MQTTReader{
		topic: topic,
		queue: make(chan frame, size),
		done:  make(chan struct{}),
		now:   time.Now,
	}
}

func (r *MQTTReader) onConnect(c paho.Client) {
	if r.subscribed.Load() {
		r.startSession()
	}
	token := c.Subscribe(r.topic, 0, func(_ paho.Client, msg paho.Message) {
		r.handle(msg.Payload())
	})
	if !token.WaitTimeout(5 * time.Second) {
		log.Printf("source: subscribe %s timed out", r.topic)
		return
	}
	if err := token.Error(); err != nil {
		log.Printf("source: subscribe %s: %v", r.topic, err)
		return
	}
	if r.subscribed.Swap(true) {
		log.Printf("source: resubscribed to %s, starting new session", r.topic)
		return
	}
	log.Printf("source: subscribed to %s", r.topic)
}

// startSession discards frames left from the previous connection and
// queues a session boundary ahead of anything the new subscription delivers.
func (r *MQTTReader) startSession() {
drain:
	for {
		select {
		case <-r.queue:
			r.dropped.Add(1)
		default:
			break drain
		}
	}
	select {
	case r.queue <- frame{reset: true}:
	case <-r.done:
	}
}

// handle decodes one message and queues it without blocking the paho
// callback goroutine.
func (r *MQTTReader) handle(payload []byte) {
	s, err := DecodeFrame(payload)
	if err != nil {
		r.dropped.Add(1)
		return
	}
	select {
	case r.queue <- frame{Reading: Reading{Sample: s, At: r.now()}}:
	default:
		r.dropped.Add(1)
	}
}

// Read returns the next queued sample.
func (r *MQTTReader) Read(ctx context.Context) (Reading, error) {
	select {
	case <-ctx.Done():
		return Reading{}, ctx.Err()
	case <-r.done:
		return Reading{}, io.EOF
	case f := <-r.queue:
		if f.reset {
			return Reading{}, ErrReset
		}
		return f.Reading, nil
	}
}

// Dropped returns the number of malformed or overflowed frames.
func (r *MQTTReader) Dropped() uint64 {
	return r.dropped.Load()
}

// IsConnected reports whether the broker connection is up.
func (r *MQTTReader) IsConnected() bool {
	return r.client != nil && r.client.IsConnectionOpen()
}

// Close unsubscribes and disconnects.
func (r *MQTTReader) Close() error {
	r.once.Do(func() {
		close(r.done)
		if r.client != nil {
			r.client.Disconnect(1000)
		}
	})
	return nil
}

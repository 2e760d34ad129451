package mqtt

import (
	"log"
	"time"
)

// CommandTTL is how long a buffered command stays worth sending. A skip
// that reaches the player long after the gesture is worse than none.
const CommandTTL = 5 * time.Second

// bufferedMsg is a serialized message waiting for the broker.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool

	queued time.Time
	ttl    time.Duration // zero keeps the message until it is sent or evicted
}

func (m bufferedMsg) expired(now time.Time) bool {
	return m.ttl > 0 && now.Sub(m.queued) > m.ttl
}

// ringBuffer holds messages while disconnected, evicting the oldest when
// full. Not safe for concurrent use; the caller must synchronize.
type ringBuffer struct {
	msgs    []bufferedMsg
	head    int // oldest message
	count   int
	full    bool // eviction already logged since the last drain
	evicted uint64
	expired uint64
}

func newRingBuffer(capacity int) *ringBuffer {
	return &ringBuffer{msgs: make([]bufferedMsg, capacity)}
}

func (r *ringBuffer) push(m bufferedMsg) {
	size := len(r.msgs)
	if r.count < size {
		r.msgs[(r.head+r.count)%size] = m
		r.count++
		return
	}
	if !r.full {
		log.Printf("mqtt: buffer full (%d messages), dropping oldest", size)
		r.full = true
	}
	r.msgs[r.head] = m
	r.head = (r.head + 1) % size
	r.evicted++
}

// drain empties the buffer and returns the messages still live at now,
// oldest first.
func (r *ringBuffer) drain(now time.Time) []bufferedMsg {
	if r.count == 0 {
		return nil
	}
	out := make([]bufferedMsg, 0, r.count)
	for i := 0; i < r.count; i++ {
		m := r.msgs[(r.head+i)%len(r.msgs)]
		if m.expired(now) {
			r.expired++
			continue
		}
		out = append(out, m)
	}
	if n := r.count - len(out); n > 0 {
		log.Printf("mqtt: discarded %d stale commands", n)
	}
	r.head, r.count, r.full = 0, 0, false
	return out
}

func (r *ringBuffer) len() int {
	return r.count
}

// dropped counts messages lost to eviction or expiry.
func (r *ringBuffer) dropped() uint64 {
	return r.evicted + r.expired
}

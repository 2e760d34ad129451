package action

import (
	"context"
	"log"
	"sync/atomic"

	"github.com/sweeney/gesture-sensor/internal/gesture"
)

// DefaultQueueSize is enough for several seconds of back-to-back gestures.
const DefaultQueueSize = 16

// Dispatcher runs actions on its own goroutine so a slow or failing action
// never holds up sample processing.
type Dispatcher struct {
	actions Actions
	queue   chan gesture.Gesture
	dropped atomic.Uint64
	done    atomic.Uint64
}

// NewDispatcher creates a dispatcher with a bounded queue.
func NewDispatcher(a Actions, size int) *Dispatcher {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Dispatcher{
		actions: a,
		queue:   make(chan gesture.Gesture, size),
	}
}

// Dispatch enqueues g without blocking. It returns false if the queue is
// full and the gesture was dropped.
func (d *Dispatcher) Dispatch(g gesture.Gesture) bool {
	select {
	case d.queue <- g:
		return true
	default:
		d.dropped.Add(1)
		return false
	}
}

// Run executes queued actions until ctx is cancelled. Action errors are
// logged and otherwise ignored.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case g := <-d.queue:
			if err := Route(d.actions, g); err != nil {
				log.Printf("action: %s failed: %v", g, err)
			}
			d.done.Add(1)
		}
	}
}

// Dropped returns how many gestures were discarded on a full queue.
func (d *Dispatcher) Dropped() uint64 {
	return d.dropped.Load()
}

// Completed returns how many actions have run, successfully or not.
func (d *Dispatcher) Completed() uint64 {
	return d.done.Load()
}

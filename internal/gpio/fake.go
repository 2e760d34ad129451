package gpio

import (
	"sync"

	"github.com/sweeney/gesture-sensor/internal/gesture"
)

// FakeIndicator records flashes for test assertions.
type FakeIndicator struct {
	mu sync.Mutex

	// Flashes contains every gesture passed to Flash, in order.
	Flashes []gesture.Gesture

	// FlashError, if set, will be returned by Flash().
	FlashError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeIndicator creates a FakeIndicator.
func NewFakeIndicator() *FakeIndicator {
	return &FakeIndicator{}
}

// Flash records g.
func (f *FakeIndicator) Flash(g gesture.Gesture) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FlashError != nil {
		return f.FlashError
	}
	f.Flashes = append(f.Flashes, g)
	return nil
}

// FlashList returns a copy of the recorded flashes.
func (f *FakeIndicator) FlashList() []gesture.Gesture {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]gesture.Gesture(nil), f.Flashes...)
}

// Close marks the indicator as closed.
func (f *FakeIndicator) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// Reset clears recorded flashes.
func (f *FakeIndicator) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Flashes = nil
	f.Closed = false
}

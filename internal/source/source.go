// Package source delivers accelerometer samples to the engine.
// Transports decode their own framing; malformed input is dropped here and
// never reaches the engine.
package source

import (
	"context"
	"errors"
	"time"

	"github.com/sweeney/gesture-sensor/internal/gesture"
)

// ErrReset is returned by Read when the transport reconnected. The caller
// should treat the next reading as the start of a new session.
var ErrReset = errors.New("source: session reset")

// Reading is one sample with the time it was received.
type Reading struct {
	Sample gesture.Sample
	At     time.Time
}

// Reader delivers samples.
type Reader interface {
	// Read blocks until the next sample, ctx is done, or the source fails.
	// It returns io.EOF once the source is exhausted or closed.
	Read(ctx context.Context) (Reading, error)

	// Close releases the transport.
	Close() error
}

// DropCounter reports frames discarded by a transport.
type DropCounter interface {
	Dropped() uint64
}

// ConnectionStatus reports whether a transport is currently connected.
type ConnectionStatus interface {
	IsConnected() bool
}

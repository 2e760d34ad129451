//go:build !linux

package gpio

import (
	"errors"
	"time"

	"github.com/sweeney/gesture-sensor/internal/gesture"
)

// RealIndicator is not available on non-Linux platforms.
type RealIndicator struct{}

// NewRealIndicator returns an error on non-Linux platforms.
func NewRealIndicator(pin int, base time.Duration) (*RealIndicator, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// Flash is not implemented on non-Linux platforms.
func (r *RealIndicator) Flash(g gesture.Gesture) error {
	return errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (r *RealIndicator) Close() error {
	return nil
}

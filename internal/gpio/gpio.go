// Package gpio drives the gesture indicator LED.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import (
	"time"

	"github.com/sweeney/gesture-sensor/internal/gesture"
)

// Indicator gives visible feedback for a fired gesture.
type Indicator interface {
	// Flash lights the indicator briefly. It must not block.
	Flash(g gesture.Gesture) error

	// Close turns the indicator off and releases GPIO resources.
	Close() error
}

// PinLED is the default indicator pin (BCM numbering).
const PinLED = 17

// DefaultFlash is the on-time for a left/right gesture.
const DefaultFlash = 80 * time.Millisecond

// FlashDuration returns how long the indicator stays lit for g.
// Up/down gestures get a longer flash so the two axes can be told apart.
func FlashDuration(g gesture.Gesture, base time.Duration) time.Duration {
	switch g {
	case gesture.GestureUp, gesture.GestureDown:
		return 3 * base
	default:
		return base
	}
}

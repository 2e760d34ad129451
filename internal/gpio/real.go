//go:build linux

package gpio

import (
	"fmt"
	"sync"
	"time"

	"github.com/warthog618/go-gpiocdev"

	"github.com/sweeney/gesture-sensor/internal/gesture"
)

// RealIndicator drives an LED on a GPIO output line.
type RealIndicator struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
	base time.Duration

	mu    sync.Mutex
	timer *time.Timer
}

// NewRealIndicator requests pin as an output, initially off.
func NewRealIndicator(pin int, base time.Duration) (*RealIndicator, error) {
	chip, err := gpiocdev.NewChip("gpiochip0")
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	line, err := chip.RequestLine(pin, gpiocdev.AsOutput(0))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request LED pin %d: %w", pin, err)
	}

	if base <= 0 {
		base = DefaultFlash
	}
	return &RealIndicator{chip: chip, line: line, base: base}, nil
}

// Flash turns the LED on and schedules it off. A flash during a flash
// extends it.
func (r *RealIndicator) Flash(g gesture.Gesture) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.line.SetValue(1); err != nil {
		return fmt.Errorf("set LED: %w", err)
	}
	d := FlashDuration(g, r.base)
	if r.timer != nil {
		r.timer.Reset(d)
		return nil
	}
	r.timer = time.AfterFunc(d, r.off)
	return nil
}

func (r *RealIndicator) off() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.line != nil {
		r.line.SetValue(0)
	}
}

// Close turns the LED off and returns the pin to its boot default
// (input with pull-down).
func (r *RealIndicator) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.timer != nil {
		r.timer.Stop()
	}

	var errs []error
	if r.line != nil {
		if err := r.line.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("clear LED: %w", err))
		}
		if err := r.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure LED pin: %w", err))
		}
		if err := r.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close LED pin: %w", err))
		}
		r.line = nil
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
		r.chip = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

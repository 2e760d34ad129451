// Package action maps gestures onto media-control actions.
package action

import (
	"fmt"

	"github.com/sweeney/gesture-sensor/internal/gesture"
)

// Actions is the output side of the engine.
type Actions interface {
	SkipNext() error
	SkipPrevious() error
	TogglePlayPause() error
	OpenSelector() error
}

// Name is the wire name of an action.
type Name string

const (
	NameSkipNext        Name = "skip_next"
	NameSkipPrevious    Name = "skip_previous"
	NameTogglePlayPause Name = "toggle_play_pause"
	NameOpenSelector    Name = "open_selector"
)

// For returns the action a gesture maps to.
func For(g gesture.Gesture) (Name, bool) {
	switch g {
	case gesture.GestureRight:
		return NameSkipNext, true
	case gesture.GestureLeft:
		return NameSkipPrevious, true
	case gesture.GestureUp:
		return NameTogglePlayPause, true
	case gesture.GestureDown:
		return NameOpenSelector, true
	}
	return "", false
}

// Route invokes the action mapped to g.
func Route(a Actions, g gesture.Gesture) error {
	name, ok := For(g)
	if !ok {
		return fmt.Errorf("no action for gesture %q", g)
	}
	switch name {
	case NameSkipNext:
		return a.SkipNext()
	case NameSkipPrevious:
		return a.SkipPrevious()
	case NameTogglePlayPause:
		return a.TogglePlayPause()
	default:
		return a.OpenSelector()
	}
}

// Funcs adapts plain functions to Actions. Nil fields are no-ops.
type Funcs struct {
	Next     func() error
	Previous func() error
	Toggle   func() error
	Selector func() error
}

func (f Funcs) SkipNext() error        { return call(f.Next) }
func (f Funcs) SkipPrevious() error    { return call(f.Previous) }
func (f Funcs) TogglePlayPause() error { return call(f.Toggle) }
func (f Funcs) OpenSelector() error    { return call(f.Selector) }

func call(fn func() error) error {
	if fn == nil {
		return nil
	}
	return fn()
}

// Multi fans each action out to several targets. All targets are called;
// the first error is returned.
type Multi []Actions

func (m Multi) SkipNext() error        { return m.each(Actions.SkipNext) }
func (m Multi) SkipPrevious() error    { return m.each(Actions.SkipPrevious) }
func (m Multi) TogglePlayPause() error { return m.each(Actions.TogglePlayPause) }
func (m Multi) OpenSelector() error    { return m.each(Actions.OpenSelector) }

func (m Multi) each(fn func(Actions) error) error {
	var first error
	for _, a := range m {
		if err := fn(a); err != nil && first == nil {
			first = err
		}
	}
	return first
}

package mqtt

import (
	"time"

	"github.com/sweeney/gesture-sensor/internal/action"
)

// Commander implements action.Actions by publishing each action as a
// command for a networked media player.
type Commander struct {
	pub Publisher
	now func() time.Time
}

// NewCommander creates a Commander. now stamps each command.
func NewCommander(pub Publisher, now func() time.Time) *Commander {
	return &Commander{pub: pub, now: now}
}

func (c *Commander) send(name action.Name) error {
	return c.pub.PublishCommand(Command{Timestamp: c.now(), Action: name})
}

func (c *Commander) SkipNext() error        { return c.send(action.NameSkipNext) }
func (c *Commander) SkipPrevious() error    { return c.send(action.NameSkipPrevious) }
func (c *Commander) TogglePlayPause() error { return c.send(action.NameTogglePlayPause) }
func (c *Commander) OpenSelector() error    { return c.send(action.NameOpenSelector) }

var _ action.Actions = (*Commander)(nil)

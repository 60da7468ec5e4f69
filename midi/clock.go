package midi

import (
	"fmt"
	"sync"

	"stepseq/debug"

	gomidi "gitlab.com/gomidi/midi/v2"
)

// Transport is what an external MIDI clock drives
type Transport interface {
	Tick()
	Start()
	Stop()
	Rewind()
}

// ClockInput follows an external MIDI clock: 24 pulses per quarter note
// plus Start, Continue and Stop.
type ClockInput struct {
	target Transport

	mu       sync.Mutex
	stopFunc func()
}

// NewClockInput creates a clock follower for target
func NewClockInput(target Transport) *ClockInput {
	return &ClockInput{target: target}
}

// HandleMessage routes one incoming message. Anything that is not a
// realtime transport message is ignored.
func (c *ClockInput) HandleMessage(msg gomidi.Message) {
	switch {
	case msg.Is(gomidi.TimingClockMsg):
		c.target.Tick()
	case msg.Is(gomidi.StartMsg):
		c.target.Rewind()
		c.target.Start()
	case msg.Is(gomidi.ContinueMsg):
		c.target.Start()
	case msg.Is(gomidi.StopMsg):
		c.target.Stop()
	}
}

// Listen opens the named input port and starts following it
func (c *ClockInput) Listen(portName string) error {
	in, err := gomidi.FindInPort(portName)
	if err != nil {
		return fmt.Errorf("find input port %q: %w", portName, err)
	}

	// Timing clock is filtered out by the driver unless asked for.
	stop, err := gomidi.ListenTo(in, func(msg gomidi.Message, timestampms int32) {
		c.HandleMessage(msg)
	}, gomidi.UseTimeCode())
	if err != nil {
		return fmt.Errorf("listen on %q: %w", portName, err)
	}

	c.mu.Lock()
	c.stopFunc = stop
	c.mu.Unlock()

	debug.Log("clock", "following MIDI clock on %s", portName)
	return nil
}

// Close stops listening
func (c *ClockInput) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopFunc != nil {
		c.stopFunc()
		c.stopFunc = nil
	}
}

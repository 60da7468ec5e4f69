package midi

import (
	"errors"
	"sync"

	"stepseq/debug"
	"stepseq/sequencer"

	gomidi "gitlab.com/gomidi/midi/v2"
)

// Sender writes one message to an output port
type Sender func(gomidi.Message) error

// ErrNoPort is returned by SwitchSender while no port is open
var ErrNoPort = errors.New("midi output port not open")

// Port is an open output. Close releases it.
type Port interface {
	Send(gomidi.Message) error
	Close() error
}

// SwitchSender forwards to whichever output is currently open, so a port can
// be reopened after a hot-plug without re-subscribing outputs. It owns the
// ports handed to it and closes each one when it is replaced.
type SwitchSender struct {
	mu     sync.RWMutex
	port   Port
	closed bool
}

// Set replaces the current output and closes the previous one. nil means
// disconnected. After Close, ports passed to Set are closed immediately.
func (s *SwitchSender) Set(p Port) {
	var stale Port
	s.mu.Lock()
	switch {
	case s.closed:
		stale = p
	case s.port != p:
		stale, s.port = s.port, p
	}
	s.mu.Unlock()

	if stale != nil {
		if err := stale.Close(); err != nil {
			debug.Log("midi", "close output: %v", err)
		}
	}
}

// Close closes the current output. Sends fail with ErrNoPort afterwards.
func (s *SwitchSender) Close() error {
	s.mu.Lock()
	p := s.port
	s.port = nil
	s.closed = true
	s.mu.Unlock()

	if p == nil {
		return nil
	}
	return p.Close()
}

func (s *SwitchSender) Send(msg gomidi.Message) error {
	s.mu.RLock()
	p := s.port
	s.mu.RUnlock()
	if p == nil {
		return ErrNoPort
	}
	return p.Send(msg)
}

// GateOutput renders sequencer edges as MIDI: the gate and trigger become
// held notes, step and mode changes become controller messages.
type GateOutput struct {
	send Sender
	cfg  OutputConfig

	mu      sync.Mutex
	lastErr error
	errs    int
}

// OutputConfig maps sequencer outputs to MIDI. A zero CC number disables
// that controller message.
type OutputConfig struct {
	Channel     uint8 // 0-15
	GateNote    uint8
	TriggerNote uint8
	Velocity    uint8
	StepCC      uint8
	ModeCC      uint8
	Transport   bool // forward start/stop as realtime messages
}

// DefaultOutputConfig sends gate on C3 and trigger on C#3 on channel 1
func DefaultOutputConfig() OutputConfig {
	return OutputConfig{
		Channel:     0,
		GateNote:    48,
		TriggerNote: 49,
		Velocity:    100,
		StepCC:      20,
		ModeCC:      21,
	}
}

// NewGateOutput creates an observer that sends through send
func NewGateOutput(send Sender, cfg OutputConfig) *GateOutput {
	cfg.Channel &= 0x0F
	cfg.GateNote &= 0x7F
	cfg.TriggerNote &= 0x7F
	cfg.Velocity &= 0x7F
	cfg.StepCC &= 0x7F
	cfg.ModeCC &= 0x7F
	if cfg.Velocity == 0 {
		cfg.Velocity = 100
	}
	return &GateOutput{send: send, cfg: cfg}
}

var _ sequencer.Observer = (*GateOutput)(nil)

func (g *GateOutput) RunningChanged(running bool) {
	if !g.cfg.Transport {
		return
	}
	if running {
		g.write(gomidi.Continue())
	} else {
		g.write(gomidi.Stop())
	}
}

func (g *GateOutput) GateChanged(on bool) {
	g.note(g.cfg.GateNote, on)
}

func (g *GateOutput) TriggerChanged(on bool) {
	g.note(g.cfg.TriggerNote, on)
}

func (g *GateOutput) StepChanged(step int) {
	if g.cfg.StepCC == 0 {
		return
	}
	g.write(gomidi.ControlChange(g.cfg.Channel, g.cfg.StepCC, uint8(step)&0x7F))
}

func (g *GateOutput) ModeChanged(mode sequencer.Mode) {
	if g.cfg.ModeCC == 0 {
		return
	}
	g.write(gomidi.ControlChange(g.cfg.Channel, g.cfg.ModeCC, uint8(mode)&0x7F))
}

func (g *GateOutput) note(key uint8, on bool) {
	if on {
		g.write(gomidi.NoteOn(g.cfg.Channel, key, g.cfg.Velocity))
	} else {
		g.write(gomidi.NoteOff(g.cfg.Channel, key))
	}
}

func (g *GateOutput) write(msg gomidi.Message) {
	if g.send == nil {
		return
	}
	if err := g.send(msg); err != nil {
		g.mu.Lock()
		g.lastErr = err
		g.errs++
		g.mu.Unlock()
		debug.LogEvery(100, "midi", "send %s: %v", msg, err)
	}
}

// Errors returns how many sends have failed and the most recent error
func (g *GateOutput) Errors() (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.errs, g.lastErr
}

package midi

import (
	"errors"
	"testing"

	"stepseq/sequencer"

	gomidi "gitlab.com/gomidi/midi/v2"
)

type sentLog struct {
	msgs []gomidi.Message
	err  error
}

func (s *sentLog) send(msg gomidi.Message) error {
	s.msgs = append(s.msgs, msg)
	return s.err
}

func TestGateOutputNotes(t *testing.T) {
	log := &sentLog{}
	cfg := DefaultOutputConfig()
	cfg.Channel = 2
	out := NewGateOutput(log.send, cfg)

	out.GateChanged(true)
	out.TriggerChanged(true)
	out.TriggerChanged(false)
	out.GateChanged(false)

	if len(log.msgs) != 4 {
		t.Fatalf("sent %d messages, want 4", len(log.msgs))
	}

	var ch, key, vel uint8
	if !log.msgs[0].GetNoteOn(&ch, &key, &vel) || ch != 2 || key != cfg.GateNote || vel != cfg.Velocity {
		t.Errorf("gate on = %v", log.msgs[0])
	}
	if !log.msgs[1].GetNoteOn(&ch, &key, &vel) || key != cfg.TriggerNote {
		t.Errorf("trigger on = %v", log.msgs[1])
	}
	if !log.msgs[2].GetNoteOff(&ch, &key, &vel) || key != cfg.TriggerNote {
		t.Errorf("trigger off = %v", log.msgs[2])
	}
	if !log.msgs[3].GetNoteOff(&ch, &key, &vel) || key != cfg.GateNote {
		t.Errorf("gate off = %v", log.msgs[3])
	}
}

func TestGateOutputControllers(t *testing.T) {
	log := &sentLog{}
	cfg := DefaultOutputConfig()
	out := NewGateOutput(log.send, cfg)

	out.StepChanged(5)
	out.ModeChanged(sequencer.ModeRandom)

	var ch, cc, val uint8
	if len(log.msgs) != 2 {
		t.Fatalf("sent %d messages, want 2", len(log.msgs))
	}
	if !log.msgs[0].GetControlChange(&ch, &cc, &val) || cc != cfg.StepCC || val != 5 {
		t.Errorf("step cc = %v", log.msgs[0])
	}
	if !log.msgs[1].GetControlChange(&ch, &cc, &val) || cc != cfg.ModeCC || val != uint8(sequencer.ModeRandom) {
		t.Errorf("mode cc = %v", log.msgs[1])
	}
}

func TestGateOutputDisabledControllers(t *testing.T) {
	log := &sentLog{}
	out := NewGateOutput(log.send, OutputConfig{GateNote: 36})

	out.StepChanged(1)
	out.ModeChanged(sequencer.ModeReverse)
	out.RunningChanged(true)

	if len(log.msgs) != 0 {
		t.Fatalf("sent %v with controllers and transport disabled", log.msgs)
	}
}

func TestGateOutputTransport(t *testing.T) {
	log := &sentLog{}
	cfg := DefaultOutputConfig()
	cfg.Transport = true
	out := NewGateOutput(log.send, cfg)

	out.RunningChanged(true)
	out.RunningChanged(false)

	if len(log.msgs) != 2 {
		t.Fatalf("sent %d messages, want 2", len(log.msgs))
	}
	if !log.msgs[0].Is(gomidi.ContinueMsg) || !log.msgs[1].Is(gomidi.StopMsg) {
		t.Fatalf("transport messages = %v", log.msgs)
	}
}

func TestGateOutputRecordsErrors(t *testing.T) {
	boom := errors.New("port gone")
	log := &sentLog{err: boom}
	out := NewGateOutput(log.send, DefaultOutputConfig())

	out.GateChanged(true)
	out.GateChanged(false)

	n, err := out.Errors()
	if n != 2 || !errors.Is(err, boom) {
		t.Fatalf("Errors() = %d, %v", n, err)
	}
}

func TestGateOutputFollowsEngine(t *testing.T) {
	log := &sentLog{}
	e := sequencer.NewEngine()
	e.Subscribe(NewGateOutput(log.send, OutputConfig{GateNote: 60, TriggerNote: 61}))

	e.Start()
	for i := 0; i < 2*e.TicksPerSubstep(); i++ {
		e.Tick()
	}
	e.Stop()

	var notesOn, notesOff int
	var ch, key, vel uint8
	for _, m := range log.msgs {
		switch {
		case m.GetNoteOn(&ch, &key, &vel):
			notesOn++
		case m.GetNoteOff(&ch, &key, &vel):
			notesOff++
		}
	}
	if notesOn != 2 || notesOff != 2 {
		t.Fatalf("note on/off = %d/%d, want 2/2", notesOn, notesOff)
	}
}

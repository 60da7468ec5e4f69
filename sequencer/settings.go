package sequencer

// Settings is the persisted part of an Engine
type Settings struct {
	TimeDivider  int                `json:"timeDivider" yaml:"timeDivider"`
	SequenceMode Mode               `json:"sequenceMode" yaml:"sequenceMode"`
	GateModes    [NumSteps]GateMode `json:"gateModes" yaml:"gateModes"`
	StepRepeat   [NumSteps]int      `json:"stepRepeat" yaml:"stepRepeat"`
}

// DefaultSettings matches a freshly constructed Engine
func DefaultSettings() Settings {
	steps := NewSteps()
	return Settings{
		TimeDivider:  DefaultTimeDivider,
		SequenceMode: ModeForward,
		GateModes:    steps.gateModes,
		StepRepeat:   steps.repeats,
	}
}

// Clamp returns a copy with every field forced into range. Settings read
// from storage go through here before use.
func (s Settings) Clamp() Settings {
	s.TimeDivider = clampDivider(s.TimeDivider)
	s.SequenceMode = ClampMode(s.SequenceMode)
	for i := 0; i < NumSteps; i++ {
		s.GateModes[i] = clampGateMode(s.GateModes[i])
		s.StepRepeat[i] = clampRepeat(s.StepRepeat[i])
	}
	return s
}

// CollectSettings snapshots the persisted configuration
func (e *Engine) CollectSettings() Settings {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Settings{
		TimeDivider:  e.timeDivider,
		SequenceMode: e.selector.Mode(),
		GateModes:    e.steps.gateModes,
		StepRepeat:   e.steps.repeats,
	}
}

// LoadSettings applies a snapshot of unknown provenance. Every field is
// re-clamped; the working sequence is rebuilt for the loaded mode and
// observers are told about the mode.
func (e *Engine) LoadSettings(s Settings) {
	s = s.Clamp()
	var b batch

	e.mu.Lock()
	e.setTimeDivider(s.TimeDivider)
	e.steps.gateModes = s.GateModes
	e.steps.repeats = s.StepRepeat
	e.resequence(&b, s.SequenceMode)
	b.add(Event{Kind: EventMode, Mode: s.SequenceMode})
	e.unlockAndEmit(&b)
}

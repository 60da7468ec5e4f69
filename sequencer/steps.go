package sequencer

// GateMode shapes the gate output of a single step
type GateMode int

const (
	GateHalfStep   GateMode = iota // gate for the first half of the first repetition
	GateFullStep                   // gate for the whole first repetition
	GateRepeatHalf                 // gate for the first half of every repetition
	GateRepeatFull                 // gate held for as long as the step is current
	GateSilent                     // no gate

	MaxGateMode = GateSilent
)

var gateModeNames = []string{"Half", "Full", "Rep Half", "Rep Full", "Silent"}

func (g GateMode) String() string {
	return gateModeNames[clampGateMode(g)]
}

// Repeat count bounds. A step with zero repeats is skipped during playback.
const (
	MinStepRepeat     = 0
	MaxStepRepeat     = 8
	DefaultStepRepeat = 1
)

// Steps holds per-step gate modes and repeat counts, independent of the
// playback order. It is not safe for concurrent use; Engine guards it.
type Steps struct {
	gateModes [NumSteps]GateMode
	repeats   [NumSteps]int
}

// NewSteps returns a store with every step on half-step gate, played once
func NewSteps() Steps {
	var s Steps
	for i := 0; i < NumSteps; i++ {
		s.gateModes[i] = GateHalfStep
		s.repeats[i] = DefaultStepRepeat
	}
	return s
}

// GateMode returns the gate mode of a step
func (s *Steps) GateMode(step int) GateMode {
	return s.gateModes[ClampStep(step)]
}

// Repeat returns the repeat count of a step
func (s *Steps) Repeat(step int) int {
	return s.repeats[ClampStep(step)]
}

// SetGateMode stores a clamped gate mode and returns what was stored
func (s *Steps) SetGateMode(step int, mode GateMode) GateMode {
	mode = clampGateMode(mode)
	s.gateModes[ClampStep(step)] = mode
	return mode
}

// CycleGateMode advances to the next gate mode, wrapping after Silent
func (s *Steps) CycleGateMode(step int) GateMode {
	step = ClampStep(step)
	mode := s.gateModes[step] + 1
	if mode > MaxGateMode {
		mode = GateHalfStep
	}
	s.gateModes[step] = mode
	return mode
}

// SetRepeat stores a clamped repeat count and returns what was stored
func (s *Steps) SetRepeat(step, repeats int) int {
	repeats = clampRepeat(repeats)
	s.repeats[ClampStep(step)] = repeats
	return repeats
}

// CycleRepeat increments the repeat count, wrapping back to MinStepRepeat
func (s *Steps) CycleRepeat(step int) int {
	step = ClampStep(step)
	repeats := s.repeats[step] + 1
	if repeats > MaxStepRepeat {
		repeats = MinStepRepeat
	}
	s.repeats[step] = repeats
	return repeats
}

// ClampStep constrains a step index to [0, NumSteps-1]
func ClampStep(step int) int {
	return constrain(step, 0, NumSteps-1)
}

func clampGateMode(g GateMode) GateMode {
	return GateMode(constrain(int(g), int(GateHalfStep), int(MaxGateMode)))
}

func clampRepeat(n int) int {
	return constrain(n, MinStepRepeat, MaxStepRepeat)
}

func constrain(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

package sequencer

// Hardware layout
const (
	NumSteps          = 8  // step positions on the front panel
	MaxSequenceLength = 16 // longest pattern, excluding the terminator
)

// Pattern sentinels. Neither is ever a valid step index.
const (
	Terminator = 0xFF
	RandomStep = 0xFE // placeholder resolved by the Selector
)

// Mode selects one of the built-in playback orderings
type Mode int

const (
	ModeForward Mode = iota
	ModeReverse
	ModeForwardReverse
	ModeEvenOdd
	ModeEvenOddReverse
	ModeEvenOddPingPong
	ModeEvenForwardOddBackward
	ModeRandom

	MinMode = ModeForward
	MaxMode = ModeRandom
)

var modeNames = []string{
	"Forward", "Reverse", "Fwd-Rev", "Even-Odd",
	"Odd-Even Rev", "Even-Odd P-P", "Even Fwd Odd Bwd", "Random",
}

func (m Mode) String() string {
	return modeNames[ClampMode(m)]
}

// ClampMode constrains m to the defined modes
func ClampMode(m Mode) Mode {
	if m < MinMode {
		return MinMode
	}
	if m > MaxMode {
		return MaxMode
	}
	return m
}

// Pattern is a terminator-delimited list of step indices
type Pattern [MaxSequenceLength + 1]uint8

// Len returns the number of entries before the terminator
func (p *Pattern) Len() int {
	for i, s := range p {
		if s == Terminator {
			return i
		}
	}
	return len(p)
}

const (
	eos = Terminator
	rnd = RandomStep
)

var patterns = [...]Pattern{
	ModeForward:                {0, 1, 2, 3, 4, 5, 6, 7, eos},
	ModeReverse:                {7, 6, 5, 4, 3, 2, 1, 0, eos},
	ModeForwardReverse:         {0, 1, 2, 3, 4, 5, 6, 7, 7, 6, 5, 4, 3, 2, 1, 0, eos},
	ModeEvenOdd:                {0, 2, 4, 6, 1, 3, 5, 7, eos},
	ModeEvenOddReverse:         {7, 5, 3, 1, 6, 4, 2, 0, eos},
	ModeEvenOddPingPong:        {0, 2, 4, 6, 1, 3, 5, 7, 6, 4, 2, 0, 7, 5, 3, 1, eos},
	ModeEvenForwardOddBackward: {0, 2, 4, 6, 7, 5, 3, 1, eos},
	ModeRandom:                 {rnd, rnd, rnd, rnd, rnd, rnd, rnd, rnd, rnd, rnd, rnd, rnd, rnd, rnd, rnd, rnd, eos},
}

func init() {
	// Unused tail slots of a composite literal are zero, which is a valid step.
	// Pad them with terminators so every pattern scans cleanly.
	for i := range patterns {
		done := false
		for j := range patterns[i] {
			if done {
				patterns[i][j] = Terminator
			} else if patterns[i][j] == Terminator {
				done = true
			}
		}
	}
}

// PatternFor returns the read-only pattern for a mode
func PatternFor(m Mode) Pattern {
	return patterns[ClampMode(m)]
}

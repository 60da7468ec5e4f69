package sequencer

import (
	"math/rand"
	"time"
)

// Selector resolves a Mode into the working sequence and walks it.
// Not safe for concurrent use; Engine guards it.
type Selector struct {
	working [MaxSequenceLength + 1]uint8
	index   int
	mode    Mode

	rng  *rand.Rand   // created on first random build unless injected
	seed func() int64 // time-varying seed source
}

// NewSelector returns a selector on the forward pattern
func NewSelector() *Selector {
	s := &Selector{
		seed: func() int64 { return time.Now().UnixNano() },
	}
	s.Build(ModeForward)
	return s
}

// Build copies the pattern for mode into the working sequence, resolving
// random placeholders, and rewinds playback to the first entry.
func (s *Selector) Build(mode Mode) {
	mode = ClampMode(mode)
	src := PatternFor(mode)

	if mode == ModeRandom && s.rng == nil {
		s.rng = rand.New(rand.NewSource(s.seed()))
	}

	prev := -1
	done := false
	for i := range s.working {
		if done {
			s.working[i] = Terminator
			continue
		}

		v := src[i]
		if v == RandomStep {
			v = uint8(s.randomStep(prev))
		}
		s.working[i] = v

		if v == Terminator {
			done = true
		} else {
			prev = int(v)
		}
	}
	s.working[MaxSequenceLength] = Terminator

	s.mode = mode
	s.index = 0
}

// randomStep draws uniformly from [0, NumSteps) excluding prev
func (s *Selector) randomStep(prev int) int {
	if prev < 0 || prev >= NumSteps {
		return s.rng.Intn(NumSteps)
	}
	n := s.rng.Intn(NumSteps - 1)
	if n >= prev {
		n++
	}
	return n
}

// Advance moves to the next entry, looping at the terminator, and returns
// the new current step.
func (s *Selector) Advance() int {
	s.index++
	if s.index >= len(s.working) || s.working[s.index] == Terminator {
		s.index = 0
	}
	return int(s.working[s.index])
}

// Jump moves the playback index to the first occurrence of step.
// It reports false and leaves the index alone if step is not in the sequence.
func (s *Selector) Jump(step int) bool {
	for i, v := range s.working {
		if v == Terminator {
			break
		}
		if int(v) == step {
			s.index = i
			return true
		}
	}
	return false
}

// Current returns the step at the playback index
func (s *Selector) Current() int {
	return int(s.working[s.index])
}

// Index returns the playback position within the working sequence
func (s *Selector) Index() int {
	return s.index
}

// Mode returns the mode the working sequence was built from
func (s *Selector) Mode() Mode {
	return s.mode
}

// Len returns the number of playable entries
func (s *Selector) Len() int {
	for i, v := range s.working {
		if v == Terminator {
			return i
		}
	}
	return len(s.working)
}

// Sequence returns a copy of the playable entries
func (s *Selector) Sequence() []int {
	out := make([]int, 0, MaxSequenceLength)
	for _, v := range s.working {
		if v == Terminator {
			break
		}
		out = append(out, int(v))
	}
	return out
}

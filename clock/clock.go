package clock

import (
	"context"
	"runtime"
	"sync"
	"time"

	"stepseq/debug"
)

// Sink receives clock pulses
type Sink interface {
	Tick()
}

// Tempo bounds
const (
	MinBPM     = 20
	MaxBPM     = 300
	DefaultBPM = 120
)

// Interval returns the time between pulses at bpm and ppq
func Interval(bpm, ppq int) time.Duration {
	if ppq < 1 {
		ppq = 1
	}
	bpm = clampBPM(bpm)
	return time.Minute / time.Duration(bpm*ppq)
}

// Internal is a free-running clock that emits ppq pulses per quarter note
type Internal struct {
	ppq int

	mu      sync.Mutex
	bpm     int
	retempo chan struct{} // wakes Run after a tempo change
}

// NewInternal creates a clock at bpm with ppq pulses per quarter note
func NewInternal(bpm, ppq int) *Internal {
	if ppq < 1 {
		ppq = 1
	}
	return &Internal{
		ppq:     ppq,
		bpm:     clampBPM(bpm),
		retempo: make(chan struct{}, 1),
	}
}

// BPM returns the current tempo
func (c *Internal) BPM() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bpm
}

// SetBPM changes the tempo, clamped to [MinBPM, MaxBPM], and returns it
func (c *Internal) SetBPM(bpm int) int {
	bpm = clampBPM(bpm)

	c.mu.Lock()
	c.bpm = bpm
	c.mu.Unlock()

	select {
	case c.retempo <- struct{}{}:
	default:
	}
	return bpm
}

// PPQ returns the pulse resolution
func (c *Internal) PPQ() int {
	return c.ppq
}

// Run emits pulses to sink until ctx is cancelled. It is the only caller of
// sink.Tick while it runs.
func (c *Internal) Run(ctx context.Context, sink Sink) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	interval := Interval(c.BPM(), c.ppq)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	debug.Log("clock", "internal clock bpm=%d ppq=%d interval=%s", c.BPM(), c.ppq, interval)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.retempo:
			interval = Interval(c.BPM(), c.ppq)
			ticker.Reset(interval)
			debug.Log("clock", "tempo bpm=%d interval=%s", c.BPM(), interval)
		case <-ticker.C:
			sink.Tick()
		}
	}
}

func clampBPM(bpm int) int {
	if bpm < MinBPM {
		return MinBPM
	}
	if bpm > MaxBPM {
		return MaxBPM
	}
	return bpm
}

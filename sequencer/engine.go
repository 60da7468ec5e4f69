package sequencer

import (
	"math/rand"
	"sync"
	"sync/atomic"

	"stepseq/debug"
)

// Clock defaults
const (
	DefaultPPQ         = 24 // MIDI clock resolution
	MinTimeDivider     = 1
	MaxTimeDivider     = 16
	DefaultTimeDivider = 4
)

// Engine is one step sequencer: it turns a stream of clock ticks into step
// positions and gate/trigger edges.
//
// Tick is meant to be called from a single goroutine (the clock). All other
// methods may be called concurrently with it; they take the same lock so a
// tick never observes a half-written configuration.
//
// Observers see events in the order the state changed. A call that changes
// state while another goroutine is notifying queues its events behind the
// ones in flight and returns without waiting for them to be delivered.
type Engine struct {
	mu sync.Mutex

	steps    Steps
	selector *Selector

	ppq             int
	timeDivider     int
	ticksPerSubstep int

	// Playback
	running     bool
	currentStep int
	repetition  int // sub-step repeats started on the current step
	firstHalf   bool
	gate        bool
	trigger     bool
	ticks       int // accumulator toward the next sub-step

	name string

	// Guarded by mu. Batches wait here until the goroutine that found the
	// queue idle delivers them.
	outbox     []batch
	delivering bool

	subMu     sync.Mutex
	subs      atomic.Pointer[[]subscriber]
	nextSubID int
}

type subscriber struct {
	id int
	o  Observer
}

// Option configures an Engine
type Option func(*Engine)

// WithPPQ sets the clock resolution in ticks per quarter note
func WithPPQ(ppq int) Option {
	return func(e *Engine) {
		if ppq >= 2 {
			e.ppq = ppq
		}
	}
}

// WithRand injects the random source used for random mode
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) {
		e.selector.rng = r
	}
}

// WithName labels the engine in debug logs
func WithName(name string) Option {
	return func(e *Engine) {
		e.name = name
	}
}

// NewEngine creates a stopped engine on the forward pattern with default
// step settings.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		steps:       NewSteps(),
		selector:    NewSelector(),
		ppq:         DefaultPPQ,
		timeDivider: DefaultTimeDivider,
		firstHalf:   true,
		name:        "seq",
	}
	for _, opt := range opts {
		opt(e)
	}
	e.ticksPerSubstep = TicksPerSubstep(e.ppq, e.timeDivider)
	e.currentStep = e.selector.Current()
	return e
}

// TicksPerSubstep maps a time divider to the number of clock ticks in one
// half step: (ppq/2) / (divider/4), truncated, never less than one.
func TicksPerSubstep(ppq, divider int) int {
	n := int(float64(ppq/2) / (float64(divider) / 4))
	if n < 1 {
		return 1
	}
	return n
}

// Subscribe registers an observer. The returned func removes it.
func (e *Engine) Subscribe(o Observer) (unsubscribe func()) {
	e.subMu.Lock()
	defer e.subMu.Unlock()

	e.nextSubID++
	id := e.nextSubID

	var cur []subscriber
	if p := e.subs.Load(); p != nil {
		cur = *p
	}
	next := make([]subscriber, len(cur), len(cur)+1)
	copy(next, cur)
	next = append(next, subscriber{id: id, o: o})
	e.subs.Store(&next)

	return func() { e.unsubscribe(id) }
}

func (e *Engine) unsubscribe(id int) {
	e.subMu.Lock()
	defer e.subMu.Unlock()

	p := e.subs.Load()
	if p == nil {
		return
	}
	next := make([]subscriber, 0, len(*p))
	for _, s := range *p {
		if s.id != id {
			next = append(next, s)
		}
	}
	e.subs.Store(&next)
}

// unlockAndEmit queues b and releases e.mu. If nobody is delivering, the
// caller drains the queue itself, releasing the lock around each batch so
// observers can call back into the engine.
func (e *Engine) unlockAndEmit(b *batch) {
	if b.n > 0 {
		e.outbox = append(e.outbox, *b)
	}
	if e.delivering || len(e.outbox) == 0 {
		e.mu.Unlock()
		return
	}

	e.delivering = true
	for i := 0; i < len(e.outbox); i++ {
		next := e.outbox[i]
		e.mu.Unlock()
		e.deliver(&next)
		e.mu.Lock()
	}
	e.outbox = e.outbox[:0]
	e.delivering = false
	e.mu.Unlock()
}

func (e *Engine) deliver(b *batch) {
	p := e.subs.Load()
	if p == nil {
		return
	}
	for i := 0; i < b.n; i++ {
		for _, s := range *p {
			b.events[i].deliver(s.o)
		}
	}
}

// Tick consumes one clock pulse. It is a no-op while stopped.
func (e *Engine) Tick() {
	var b batch

	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.ticks++
	if e.ticks >= e.ticksPerSubstep {
		e.ticks = 0
		e.advanceSubStep(&b)
	}
	e.unlockAndEmit(&b)
}

// Start begins playback from the current position
func (e *Engine) Start() {
	var b batch

	e.mu.Lock()
	if !e.running {
		e.start(&b)
	}
	e.unlockAndEmit(&b)
}

// Stop halts playback and drops gate and trigger
func (e *Engine) Stop() {
	var b batch

	e.mu.Lock()
	if e.running {
		e.stop(&b)
	}
	e.unlockAndEmit(&b)
}

// Toggle starts a stopped engine or stops a running one
func (e *Engine) Toggle() {
	var b batch

	e.mu.Lock()
	if e.running {
		e.stop(&b)
	} else {
		e.start(&b)
	}
	e.unlockAndEmit(&b)
}

func (e *Engine) start(b *batch) {
	e.running = true
	b.add(Event{Kind: EventRunning, On: true})
	if debug.Enabled() {
		debug.Log(e.name, "start step=%d", e.currentStep)
	}
}

func (e *Engine) stop(b *batch) {
	e.running = false
	b.add(Event{Kind: EventRunning, On: false})
	e.setGate(b, false)
	e.setTrigger(b, false)
	debug.Log(e.name, "stop")
}

// Running reports whether ticks are being consumed
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Rewind moves playback to the first entry of the working sequence, as on a
// MIDI Start. The next tick begins that entry.
func (e *Engine) Rewind() {
	var b batch

	e.mu.Lock()
	e.selector.index = 0
	e.repetition = 0
	e.firstHalf = false
	e.ticks = e.ticksPerSubstep - 1
	e.selectStep(&b, e.selector.Current())
	e.unlockAndEmit(&b)
}

// SetMode selects a playback ordering. Re-selecting the active mode only
// notifies observers, except for random mode which is regenerated.
func (e *Engine) SetMode(mode Mode) Mode {
	var b batch

	e.mu.Lock()
	mode = e.setMode(&b, mode)
	e.unlockAndEmit(&b)
	return mode
}

// CycleMode selects the next (or previous) mode, wrapping around
func (e *Engine) CycleMode(forward bool) Mode {
	var b batch

	e.mu.Lock()
	mode := e.selector.Mode()
	if forward {
		mode++
		if mode > MaxMode {
			mode = MinMode
		}
	} else {
		mode--
		if mode < MinMode {
			mode = MaxMode
		}
	}
	mode = e.setMode(&b, mode)
	e.unlockAndEmit(&b)
	return mode
}

// setMode must be called with e.mu held
func (e *Engine) setMode(b *batch, mode Mode) Mode {
	mode = ClampMode(mode)
	if mode == e.selector.Mode() {
		b.add(Event{Kind: EventMode, Mode: mode})
		if mode == ModeRandom {
			e.resequence(b, mode)
		}
	} else {
		e.resequence(b, mode)
		b.add(Event{Kind: EventMode, Mode: mode})
	}
	if debug.Enabled() {
		debug.Log(e.name, "mode=%s sequence=%v", mode, e.selector.Sequence())
	}
	return mode
}

// resequence rebuilds the working sequence and restarts from its first entry
func (e *Engine) resequence(b *batch, mode Mode) {
	e.selector.Build(mode)
	e.repetition = 0
	e.selectStep(b, e.selector.Current())
}

// Mode returns the active playback ordering
func (e *Engine) Mode() Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selector.Mode()
}

// Sequence returns a copy of the working sequence
func (e *Engine) Sequence() []int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selector.Sequence()
}

// Step returns the current step
func (e *Engine) Step() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.currentStep
}

// Jump moves playback to the first occurrence of step in the working
// sequence. The step starts fresh on the next sub-step boundary. It reports
// false if the step is not part of the sequence.
func (e *Engine) Jump(step int) bool {
	var b batch

	e.mu.Lock()
	ok := e.selector.Jump(ClampStep(step))
	if ok {
		e.repetition = 0
		e.selectStep(&b, e.selector.Current())
	}
	e.unlockAndEmit(&b)
	return ok
}

// SetTimeDivider sets the clock division. The value is clamped to
// [MinTimeDivider, MaxTimeDivider] and rounded down to a power of two. The
// tick accumulator is kept, so a sub-step in progress is not restarted.
func (e *Engine) SetTimeDivider(divider int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.setTimeDivider(divider)
}

// CycleTimeDivider doubles or halves the divider within its range
func (e *Engine) CycleTimeDivider(higher bool) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	d := e.timeDivider
	if higher {
		d <<= 1
	} else {
		d >>= 1
	}
	return e.setTimeDivider(d)
}

func (e *Engine) setTimeDivider(divider int) int {
	divider = clampDivider(divider)
	e.timeDivider = divider
	e.ticksPerSubstep = TicksPerSubstep(e.ppq, divider)
	return divider
}

// TimeDivider returns the current clock division
func (e *Engine) TimeDivider() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.timeDivider
}

// TicksPerSubstep returns the current sub-step threshold
func (e *Engine) TicksPerSubstep() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ticksPerSubstep
}

// PPQ returns the clock resolution the engine was built for
func (e *Engine) PPQ() int {
	return e.ppq
}

func clampDivider(d int) int {
	d = constrain(d, MinTimeDivider, MaxTimeDivider)
	p := 1
	for p<<1 <= d {
		p <<= 1
	}
	return p
}

// Per-step configuration

func (e *Engine) SetGateMode(step int, mode GateMode) GateMode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.steps.SetGateMode(step, mode)
}

func (e *Engine) CycleGateMode(step int) GateMode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.steps.CycleGateMode(step)
}

func (e *Engine) GateMode(step int) GateMode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.steps.GateMode(step)
}

func (e *Engine) SetRepeat(step, repeats int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.steps.SetRepeat(step, repeats)
}

func (e *Engine) CycleRepeat(step int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.steps.CycleRepeat(step)
}

func (e *Engine) Repeat(step int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.steps.Repeat(step)
}

// Snapshot is a consistent read of the playback state
type Snapshot struct {
	Running     bool
	Step        int
	Index       int
	Repetition  int
	FirstHalf   bool
	Gate        bool
	Trigger     bool
	Mode        Mode
	TimeDivider int
	Sequence    []int
	GateModes   [NumSteps]GateMode
	Repeats     [NumSteps]int
}

// State returns a snapshot for display collaborators
func (e *Engine) State() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Snapshot{
		Running:     e.running,
		Step:        e.currentStep,
		Index:       e.selector.Index(),
		Repetition:  e.repetition,
		FirstHalf:   e.firstHalf,
		Gate:        e.gate,
		Trigger:     e.trigger,
		Mode:        e.selector.Mode(),
		TimeDivider: e.timeDivider,
		Sequence:    e.selector.Sequence(),
		GateModes:   e.steps.gateModes,
		Repeats:     e.steps.repeats,
	}
}

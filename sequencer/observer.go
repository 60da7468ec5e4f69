package sequencer

// Observer receives edge notifications from an Engine, in the order the state
// changed. Callbacks run without the engine lock, on whichever goroutine is
// delivering (usually the tick source), so they may call back into the
// engine. Keep them short: a slow callback holds up every later event.
type Observer interface {
	RunningChanged(running bool)
	GateChanged(on bool)
	TriggerChanged(on bool)
	StepChanged(step int)
	ModeChanged(mode Mode)
}

// ObserverFuncs adapts optional funcs to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	OnRunning func(running bool)
	OnGate    func(on bool)
	OnTrigger func(on bool)
	OnStep    func(step int)
	OnMode    func(mode Mode)
}

func (f ObserverFuncs) RunningChanged(running bool) {
	if f.OnRunning != nil {
		f.OnRunning(running)
	}
}

func (f ObserverFuncs) GateChanged(on bool) {
	if f.OnGate != nil {
		f.OnGate(on)
	}
}

func (f ObserverFuncs) TriggerChanged(on bool) {
	if f.OnTrigger != nil {
		f.OnTrigger(on)
	}
}

func (f ObserverFuncs) StepChanged(step int) {
	if f.OnStep != nil {
		f.OnStep(step)
	}
}

func (f ObserverFuncs) ModeChanged(mode Mode) {
	if f.OnMode != nil {
		f.OnMode(mode)
	}
}

// EventKind identifies a notification
type EventKind uint8

const (
	EventRunning EventKind = iota
	EventGate
	EventTrigger
	EventStep
	EventMode
)

var eventKindNames = []string{"running", "gate", "trigger", "step", "mode"}

func (k EventKind) String() string {
	if int(k) < len(eventKindNames) {
		return eventKindNames[k]
	}
	return "unknown"
}

// Event is a single notification as a value
type Event struct {
	Kind  EventKind
	On    bool // running, gate, trigger
	Step  int  // step
	Mode  Mode // mode
	Track int  // set by Manager when fanning out multiple engines
}

// deliver calls the matching Observer method
func (e Event) deliver(o Observer) {
	switch e.Kind {
	case EventRunning:
		o.RunningChanged(e.On)
	case EventGate:
		o.GateChanged(e.On)
	case EventTrigger:
		o.TriggerChanged(e.On)
	case EventStep:
		o.StepChanged(e.Step)
	case EventMode:
		o.ModeChanged(e.Mode)
	}
}

// ChanObserver forwards events to a buffered channel. Sends never block;
// events are dropped when the channel is full.
type ChanObserver struct {
	C     chan Event
	Track int
}

// NewChanObserver creates a ChanObserver with the given buffer size
func NewChanObserver(size int) *ChanObserver {
	return &ChanObserver{C: make(chan Event, size)}
}

func (c *ChanObserver) send(e Event) {
	e.Track = c.Track
	select {
	case c.C <- e:
	default:
	}
}

func (c *ChanObserver) RunningChanged(running bool) { c.send(Event{Kind: EventRunning, On: running}) }
func (c *ChanObserver) GateChanged(on bool)         { c.send(Event{Kind: EventGate, On: on}) }
func (c *ChanObserver) TriggerChanged(on bool)      { c.send(Event{Kind: EventTrigger, On: on}) }
func (c *ChanObserver) StepChanged(step int)        { c.send(Event{Kind: EventStep, Step: step}) }
func (c *ChanObserver) ModeChanged(mode Mode)       { c.send(Event{Kind: EventMode, Mode: mode}) }

// maxBatch bounds the notifications one engine call can produce. A tick
// yields at most a step, a gate edge and two trigger edges.
const maxBatch = 8

// batch collects notifications while the engine lock is held. It lives on
// the caller's stack so tick processing does not allocate.
type batch struct {
	n      int
	events [maxBatch]Event
}

func (b *batch) add(e Event) {
	if b.n < len(b.events) {
		b.events[b.n] = e
		b.n++
	}
}

package midi

import (
	"context"
	"time"

	"stepseq/debug"
)

// PortEvent is emitted when a watched port appears or disappears
type PortEvent struct {
	Type PortEventType
	Name string
}

type PortEventType int

const (
	PortConnected PortEventType = iota
	PortDisconnected
)

func (t PortEventType) String() string {
	if t == PortConnected {
		return "connected"
	}
	return "disconnected"
}

// PortWatcher polls the driver for hot-plugged ports. The first scan only
// records what is present; later scans report changes.
type PortWatcher struct {
	names    []string
	list     func(time.Duration) (Ports, error)
	events   chan PortEvent
	pollRate time.Duration
	timeout  time.Duration

	present map[string]bool
	scanned bool
}

// NewPortWatcher watches the named input or output ports
func NewPortWatcher(names ...string) *PortWatcher {
	return &PortWatcher{
		names:    names,
		list:     ListPorts,
		events:   make(chan PortEvent, 16),
		pollRate: time.Second,
		timeout:  3 * time.Second,
		present:  make(map[string]bool),
	}
}

// Events returns port connect/disconnect events
func (w *PortWatcher) Events() <-chan PortEvent {
	return w.events
}

// Run polls until ctx is cancelled (blocking - run in goroutine)
func (w *PortWatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.pollRate)
	defer ticker.Stop()

	w.scan()

	for {
		select {
		case <-ctx.Done():
			close(w.events)
			return
		case <-ticker.C:
			w.scan()
		}
	}
}

func (w *PortWatcher) scan() {
	ports, err := w.list(w.timeout)
	if err != nil {
		// CoreMIDI is hung - skip this scan
		debug.LogEvery(10, "midi", "port scan: %v", err)
		return
	}

	seen := make(map[string]bool, len(ports.In)+len(ports.Out))
	for _, name := range ports.In {
		seen[name] = true
	}
	for _, name := range ports.Out {
		seen[name] = true
	}

	first := !w.scanned
	w.scanned = true

	for _, name := range w.names {
		now := seen[name]
		was := w.present[name]
		w.present[name] = now
		if first || now == was {
			continue
		}

		ev := PortEvent{Type: PortDisconnected, Name: name}
		if now {
			ev.Type = PortConnected
		}
		debug.Log("midi", "port %s %s", name, ev.Type)

		select {
		case w.events <- ev:
		default:
			debug.Log("midi", "port event dropped: %s %s", name, ev.Type)
		}
	}
}

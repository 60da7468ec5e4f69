package sequencer

import (
	"fmt"
	"sync"

	"stepseq/debug"
)

// Manager drives one or more engines from a shared clock. Each engine is a
// track; all tracks advance on the same ticks but keep their own pattern,
// step settings and outputs.
type Manager struct {
	tracks []*Engine
	unsubs []func()

	events chan Event

	mu      sync.RWMutex
	focused int // which track gets UI input
}

// Event buffer shared by all tracks. A full tick on eight tracks fits
// several times over.
const eventBuffer = 256

// NewManager creates n tracks (at least one) with the given engine options
func NewManager(n int, opts ...Option) *Manager {
	if n < 1 {
		n = 1
	}
	m := &Manager{
		events: make(chan Event, eventBuffer),
	}
	for i := 0; i < n; i++ {
		trackOpts := append([]Option{WithName(fmt.Sprintf("track%d", i+1))}, opts...)
		e := NewEngine(trackOpts...)
		m.tracks = append(m.tracks, e)
		m.unsubs = append(m.unsubs, e.Subscribe(&ChanObserver{C: m.events, Track: i}))
	}
	return m
}

// Events returns every track's notifications, tagged with the track index
func (m *Manager) Events() <-chan Event {
	return m.events
}

// Len returns the number of tracks
func (m *Manager) Len() int {
	return len(m.tracks)
}

// Track returns the engine at idx, or nil
func (m *Manager) Track(idx int) *Engine {
	if idx >= 0 && idx < len(m.tracks) {
		return m.tracks[idx]
	}
	return nil
}

// Focused returns the index of the focused track
func (m *Manager) Focused() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.focused
}

// FocusedTrack returns the focused engine
func (m *Manager) FocusedTrack() *Engine {
	return m.tracks[m.Focused()]
}

// SetFocused focuses a track by index, ignoring out of range values
func (m *Manager) SetFocused(idx int) {
	if idx < 0 || idx >= len(m.tracks) {
		return
	}
	m.mu.Lock()
	m.focused = idx
	m.mu.Unlock()
	debug.Log("focus", "track %d", idx+1)
}

// Tick forwards one clock pulse to every track
func (m *Manager) Tick() {
	for _, e := range m.tracks {
		e.Tick()
	}
}

// Start starts every track
func (m *Manager) Start() {
	for _, e := range m.tracks {
		e.Start()
	}
}

// Stop stops every track
func (m *Manager) Stop() {
	for _, e := range m.tracks {
		e.Stop()
	}
}

// Rewind moves every track back to the top of its sequence
func (m *Manager) Rewind() {
	for _, e := range m.tracks {
		e.Rewind()
	}
}

// Running reports whether any track is running
func (m *Manager) Running() bool {
	for _, e := range m.tracks {
		if e.Running() {
			return true
		}
	}
	return false
}

// Toggle stops everything if anything runs, otherwise starts everything
func (m *Manager) Toggle() {
	if m.Running() {
		m.Stop()
	} else {
		m.Start()
	}
}

// Subscribe attaches an observer to one track
func (m *Manager) Subscribe(track int, o Observer) func() {
	e := m.Track(track)
	if e == nil {
		return func() {}
	}
	return e.Subscribe(o)
}

// Close detaches the manager's event channel from every track
func (m *Manager) Close() {
	for _, unsub := range m.unsubs {
		unsub()
	}
	m.unsubs = nil
}

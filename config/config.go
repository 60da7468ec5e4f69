package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ClockSource selects where ticks come from
type ClockSource string

const (
	ClockInternal ClockSource = "internal"
	ClockMIDI     ClockSource = "midi"
)

// MIDI clock resolution, fixed by the MIDI standard
const MIDIClockPPQ = 24

// ClockConfig defines the tick source
type ClockConfig struct {
	Source ClockSource `json:"source"`
	BPM    int         `json:"bpm,omitempty"` // internal clock only
	PPQ    int         `json:"ppq,omitempty"`
}

// MIDIConfig defines ports and the gate/trigger mapping
type MIDIConfig struct {
	InPort      string `json:"inPort,omitempty"`  // clock input
	OutPort     string `json:"outPort,omitempty"` // gate/trigger output
	Channel     int    `json:"channel"`           // 1-16
	GateNote    int    `json:"gateNote"`
	TriggerNote int    `json:"triggerNote"`
	StepCC      int    `json:"stepCC,omitempty"`
	ModeCC      int    `json:"modeCC,omitempty"`
	Transport   bool   `json:"transport,omitempty"`
}

// UIConfig stores UI preferences
type UIConfig struct {
	LastFocusedTrack int    `json:"lastFocusedTrack,omitempty"`
	Palette          string `json:"palette,omitempty"` // optional .gpl file
}

// Config is the main configuration structure
type Config struct {
	Clock    ClockConfig `json:"clock"`
	MIDI     MIDIConfig  `json:"midi"`
	Tracks   int         `json:"tracks"`
	PresetDB string      `json:"presetDB,omitempty"`
	LastSlot int         `json:"lastSlot"`
	UI       UIConfig    `json:"ui,omitempty"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Clock: ClockConfig{
			Source: ClockInternal,
			BPM:    120,
			PPQ:    MIDIClockPPQ,
		},
		MIDI: MIDIConfig{
			Channel:     1,
			GateNote:    48,
			TriggerNote: 49,
			StepCC:      20,
			ModeCC:      21,
		},
		Tracks: 1,
	}
}

// Normalize fills missing values and clamps the rest
func (c *Config) Normalize() {
	def := DefaultConfig()

	switch c.Clock.Source {
	case ClockInternal, ClockMIDI:
	default:
		c.Clock.Source = ClockInternal
	}
	if c.Clock.BPM == 0 {
		c.Clock.BPM = def.Clock.BPM
	}
	if c.Clock.PPQ < 2 {
		c.Clock.PPQ = def.Clock.PPQ
	}
	if c.Clock.Source == ClockMIDI {
		c.Clock.PPQ = MIDIClockPPQ
	}

	c.MIDI.Channel = clamp(c.MIDI.Channel, 1, 16)
	c.MIDI.GateNote = clamp(c.MIDI.GateNote, 0, 127)
	c.MIDI.TriggerNote = clamp(c.MIDI.TriggerNote, 0, 127)
	c.MIDI.StepCC = clamp(c.MIDI.StepCC, 0, 127)
	c.MIDI.ModeCC = clamp(c.MIDI.ModeCC, 0, 127)

	c.Tracks = clamp(c.Tracks, 1, 8)
	c.UI.LastFocusedTrack = clamp(c.UI.LastFocusedTrack, 0, c.Tracks-1)
	if c.LastSlot < 0 {
		c.LastSlot = 0
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "stepseq"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// PresetPath returns the preset database path, defaulting next to the config
func (c *Config) PresetPath() (string, error) {
	if c.PresetDB != "" {
		return c.PresetDB, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "presets.db"), nil
}

// Load reads the config from disk, or returns defaults if not found
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads the config at path, or returns defaults if it does not exist
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.Normalize()

	return cfg, nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the config to path, creating its directory
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}

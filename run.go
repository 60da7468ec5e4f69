package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"stepseq/clock"
	"stepseq/config"
	"stepseq/debug"
	"stepseq/midi"
	"stepseq/preset"
	"stepseq/sequencer"
	"stepseq/theme"
	"stepseq/tui"
)

func runCmd(opts *rootOptions) *cobra.Command {
	var (
		source  string
		bpm     int
		inPort  string
		outPort string
		tracks  int
		slot    int
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the sequencer front panel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := opts.loadConfig()
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("clock") {
				cfg.Clock.Source = config.ClockSource(source)
			}
			if flags.Changed("bpm") {
				cfg.Clock.BPM = bpm
			}
			if flags.Changed("in") {
				cfg.MIDI.InPort = inPort
			}
			if flags.Changed("out") {
				cfg.MIDI.OutPort = outPort
			}
			if flags.Changed("tracks") {
				cfg.Tracks = tracks
			}
			if flags.Changed("slot") {
				s, err := parseSlot(strconv.Itoa(slot))
				if err != nil {
					return err
				}
				cfg.LastSlot = s
			}
			cfg.Normalize()
			if cfg.LastSlot >= preset.NumSlots {
				cfg.LastSlot = 0
			}

			if cfg.Clock.Source == config.ClockMIDI && cfg.MIDI.InPort == "" {
				return errors.New("midi clock needs an input port (--in)")
			}

			return runSequencer(cmd.Context(), cfg, path)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&source, "clock", "", "Clock source: internal or midi")
	flags.IntVar(&bpm, "bpm", 0, "Internal clock tempo")
	flags.StringVar(&inPort, "in", "", "MIDI input port for external clock")
	flags.StringVar(&outPort, "out", "", "MIDI output port for gate and trigger notes")
	flags.IntVar(&tracks, "tracks", 0, "Number of tracks (1-8)")
	flags.IntVar(&slot, "slot", 0, "Preset slot to load and autosave (1-16)")
	return cmd
}

func runSequencer(ctx context.Context, cfg *config.Config, configPath string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	theme.ConfigureColor()
	palette, err := theme.LoadOrDefault(cfg.UI.Palette)
	if err != nil {
		debug.Log("theme", "palette: %v, using %s", err, palette.Name)
	}

	mgr := sequencer.NewManager(cfg.Tracks, sequencer.WithPPQ(cfg.Clock.PPQ))
	defer mgr.Close()
	mgr.SetFocused(cfg.UI.LastFocusedTrack)

	presetPath, err := cfg.PresetPath()
	if err != nil {
		return fmt.Errorf("resolve preset path: %w", err)
	}
	store, err := preset.Open(presetPath)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := restorePreset(ctx, store, cfg.LastSlot, mgr.FocusedTrack()); err != nil {
		return err
	}

	usesMIDI := cfg.MIDI.OutPort != "" || cfg.Clock.Source == config.ClockMIDI
	if usesMIDI {
		defer midi.CloseDriver()
	}

	var outputs []*midi.GateOutput
	if cfg.MIDI.OutPort != "" {
		port, err := midi.OpenOutput(cfg.MIDI.OutPort)
		if err != nil {
			return err
		}
		sw := &midi.SwitchSender{}
		sw.Set(port)
		defer sw.Close()
		for i := 0; i < mgr.Len(); i++ {
			out := midi.NewGateOutput(sw.Send, outputConfig(cfg.MIDI, i))
			outputs = append(outputs, out)
			defer mgr.Subscribe(i, out)()
		}

		watcher := midi.NewPortWatcher(cfg.MIDI.OutPort)
		go watcher.Run(ctx)
		go reopenOnReconnect(watcher.Events(), sw, midi.OpenOutput)
	}

	var tempo tui.Tempo
	clockErr := make(chan error, 1)
	switch cfg.Clock.Source {
	case config.ClockMIDI:
		in := midi.NewClockInput(mgr)
		if err := in.Listen(cfg.MIDI.InPort); err != nil {
			return err
		}
		go func() {
			<-ctx.Done()
			in.Close()
			clockErr <- nil
		}()
	default:
		clk := clock.NewInternal(cfg.Clock.BPM, cfg.Clock.PPQ)
		tempo = clk
		go func() {
			clockErr <- clk.Run(ctx, mgr)
		}()
	}

	model := tui.NewModel(mgr, tui.Options{
		Theme:   theme.New(palette),
		Tempo:   tempo,
		Presets: store,
		Slot:    cfg.LastSlot,
	})
	_, runErr := tea.NewProgram(model, tea.WithAltScreen()).Run()

	mgr.Stop()
	cancel()
	if err := <-clockErr; err != nil && !errors.Is(err, context.Canceled) {
		debug.Log("clock", "stopped: %v", err)
	}

	for i, out := range outputs {
		if n, err := out.Errors(); n > 0 {
			debug.Log("midi", "track %d: %d send errors, last: %v", i+1, n, err)
		}
	}

	if err := store.Save(context.Background(), cfg.LastSlot, "autosave", mgr.FocusedTrack().CollectSettings()); err != nil {
		return errors.Join(runErr, err)
	}
	if tempo != nil {
		cfg.Clock.BPM = tempo.BPM()
	}
	cfg.UI.LastFocusedTrack = mgr.Focused()
	if err := cfg.SaveTo(configPath); err != nil {
		return errors.Join(runErr, fmt.Errorf("save config: %w", err))
	}

	return runErr
}

// reopenOnReconnect keeps sw pointed at the output port across hot-plugs.
// sw closes the stale port on every change.
func reopenOnReconnect(events <-chan midi.PortEvent, sw *midi.SwitchSender, open func(string) (midi.Port, error)) {
	for ev := range events {
		if ev.Type == midi.PortDisconnected {
			sw.Set(nil)
			continue
		}
		port, err := open(ev.Name)
		if err != nil {
			debug.Log("midi", "reopen %s: %v", ev.Name, err)
			continue
		}
		sw.Set(port)
	}
}

// restorePreset loads slot into track. An empty slot leaves the defaults.
func restorePreset(ctx context.Context, store *preset.Store, slot int, track *sequencer.Engine) error {
	p, err := store.Load(ctx, slot)
	if errors.Is(err, preset.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	track.LoadSettings(p.Settings)
	debug.Log("preset", "loaded slot %d (%s)", slot+1, p.Name)
	return nil
}

// outputConfig maps track i to its own gate/trigger note pair
func outputConfig(mc config.MIDIConfig, track int) midi.OutputConfig {
	cfg := midi.DefaultOutputConfig()
	cfg.Channel = uint8(mc.Channel - 1)
	cfg.GateNote = uint8(mc.GateNote + 2*track)
	cfg.TriggerNote = uint8(mc.TriggerNote + 2*track)
	cfg.StepCC = uint8(mc.StepCC)
	cfg.ModeCC = uint8(mc.ModeCC)
	cfg.Transport = mc.Transport && track == 0
	if track > 0 {
		// only the first track reports over CC so they do not overwrite each other
		cfg.StepCC, cfg.ModeCC = 0, 0
	}
	return cfg
}

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"stepseq/config"
	"stepseq/midi"
	"stepseq/preset"
	"stepseq/sequencer"

	gomidi "gitlab.com/gomidi/midi/v2"
)

// setupStore writes a config pointing at a fresh preset database and
// returns the config path and the open store.
func setupStore(t *testing.T) (string, *preset.Store) {
	t.Helper()
	dir := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.PresetDB = filepath.Join(dir, "presets.db")
	cfgPath := filepath.Join(dir, "config.json")
	if err := cfg.SaveTo(cfgPath); err != nil {
		t.Fatalf("SaveTo() error = %v", err)
	}

	store, err := preset.Open(cfg.PresetDB)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return cfgPath, store
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestParseSlot(t *testing.T) {
	tests := []struct {
		arg     string
		want    int
		wantErr bool
	}{
		{"1", 0, false},
		{"16", 15, false},
		{"0", 0, true},
		{"17", 0, true},
		{"x", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			got, err := parseSlot(tt.arg)
			if tt.wantErr {
				if !errors.Is(err, preset.ErrInvalidSlot) {
					t.Fatalf("parseSlot() error = %v, want ErrInvalidSlot", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Fatalf("parseSlot() = %d, %v; want %d", got, err, tt.want)
			}
		})
	}
}

func TestPresetsExportJSON(t *testing.T) {
	cfgPath, store := setupStore(t)

	want := sequencer.DefaultSettings()
	want.SequenceMode = sequencer.ModeEvenOddPingPong
	want.StepRepeat[4] = 0
	if err := store.Save(context.Background(), 1, "groove", want); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "--config", cfgPath, "presets", "export", "2", "--format", "json")
	if err != nil {
		t.Fatalf("export error = %v", err)
	}

	var got preset.Preset
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if got.Name != "groove" || got.Settings != want {
		t.Fatalf("exported %+v", got)
	}
}

func TestPresetsExportYAML(t *testing.T) {
	cfgPath, store := setupStore(t)
	if err := store.Save(context.Background(), 0, "first", sequencer.DefaultSettings()); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "--config", cfgPath, "presets", "export", "1")
	if err != nil {
		t.Fatalf("export error = %v", err)
	}
	for _, want := range []string{"slot: 0", "name: first", "timeDivider: 4"} {
		if !strings.Contains(out, want) {
			t.Errorf("yaml missing %q:\n%s", want, out)
		}
	}
}

func TestPresetsListAndDelete(t *testing.T) {
	cfgPath, store := setupStore(t)

	out, err := execute(t, "--config", cfgPath, "presets", "list")
	if err != nil || !strings.Contains(out, "No presets") {
		t.Fatalf("empty list = %q, %v", out, err)
	}

	if err := store.Save(context.Background(), 2, "keep", sequencer.DefaultSettings()); err != nil {
		t.Fatal(err)
	}
	out, err = execute(t, "--config", cfgPath, "presets", "list")
	if err != nil {
		t.Fatalf("list error = %v", err)
	}
	if !strings.Contains(out, "keep") || !strings.Contains(out, "Forward") {
		t.Fatalf("list output:\n%s", out)
	}

	if _, err := execute(t, "--config", cfgPath, "presets", "delete", "3"); err != nil {
		t.Fatalf("delete error = %v", err)
	}
	if _, err := execute(t, "--config", cfgPath, "presets", "show", "3"); !errors.Is(err, preset.ErrNotFound) {
		t.Fatalf("show after delete error = %v, want ErrNotFound", err)
	}
}

func TestPresetsExportUnknownFormat(t *testing.T) {
	cfgPath, store := setupStore(t)
	if err := store.Save(context.Background(), 0, "", sequencer.DefaultSettings()); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, "--config", cfgPath, "presets", "export", "1", "--format", "toml"); err == nil {
		t.Fatal("export with unknown format succeeded")
	}
}

func TestOutputConfigPerTrack(t *testing.T) {
	mc := config.DefaultConfig().MIDI
	mc.Channel = 10
	mc.Transport = true

	first := outputConfig(mc, 0)
	if first.Channel != 9 || first.GateNote != 48 || first.TriggerNote != 49 || !first.Transport {
		t.Errorf("track 1 = %+v", first)
	}

	third := outputConfig(mc, 2)
	if third.GateNote != 52 || third.TriggerNote != 53 {
		t.Errorf("track 3 notes = %d/%d, want 52/53", third.GateNote, third.TriggerNote)
	}
	if third.StepCC != 0 || third.ModeCC != 0 || third.Transport {
		t.Errorf("track 3 = %+v, want no CC or transport", third)
	}
}

func TestPresetsImportRoundTrip(t *testing.T) {
	cfgPath, store := setupStore(t)

	want := sequencer.DefaultSettings()
	want.SequenceMode = sequencer.ModeEvenForwardOddBackward
	want.GateModes[3] = sequencer.GateRepeatHalf
	if err := store.Save(context.Background(), 0, "orig", want); err != nil {
		t.Fatal(err)
	}

	for _, format := range []string{"yaml", "json"} {
		t.Run(format, func(t *testing.T) {
			out, err := execute(t, "--config", cfgPath, "presets", "export", "1", "--format", format)
			if err != nil {
				t.Fatalf("export error = %v", err)
			}
			file := filepath.Join(t.TempDir(), "preset."+format)
			if err := os.WriteFile(file, []byte(out), 0o644); err != nil {
				t.Fatal(err)
			}

			if _, err := execute(t, "--config", cfgPath, "presets", "import", "9", file, "--name", "copy"); err != nil {
				t.Fatalf("import error = %v", err)
			}
			got, err := store.Load(context.Background(), 8)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if got.Name != "copy" || got.Settings != want {
				t.Fatalf("imported %+v", got)
			}
		})
	}
}

type reopenedPort struct {
	closed int
}

func (p *reopenedPort) Send(gomidi.Message) error { return nil }
func (p *reopenedPort) Close() error              { p.closed++; return nil }

func TestReopenOnReconnectClosesStalePorts(t *testing.T) {
	var opened []*reopenedPort
	open := func(name string) (midi.Port, error) {
		if name == "broken" {
			return nil, errors.New("no such port")
		}
		p := &reopenedPort{}
		opened = append(opened, p)
		return p, nil
	}

	events := make(chan midi.PortEvent, 8)
	events <- midi.PortEvent{Type: midi.PortConnected, Name: "out"}
	events <- midi.PortEvent{Type: midi.PortConnected, Name: "out"}
	events <- midi.PortEvent{Type: midi.PortDisconnected, Name: "out"}
	events <- midi.PortEvent{Type: midi.PortConnected, Name: "broken"}
	close(events)

	sw := &midi.SwitchSender{}
	reopenOnReconnect(events, sw, open)

	if len(opened) != 2 {
		t.Fatalf("opened %d ports, want 2", len(opened))
	}
	for i, p := range opened {
		if p.closed != 1 {
			t.Errorf("port %d closed %d times, want 1", i, p.closed)
		}
	}
	if err := sw.Send(gomidi.Start()); !errors.Is(err, midi.ErrNoPort) {
		t.Errorf("Send() after disconnect error = %v, want ErrNoPort", err)
	}
}

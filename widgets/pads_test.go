package widgets

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

func init() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

func TestRenderStepRow(t *testing.T) {
	cells := []StepCell{
		{Glyph: 'a', Repeat: 1, Playing: true},
		{Glyph: 'b', Repeat: 0, Selected: true},
	}
	out := RenderStepRow(cells, [3]uint8{}, [3]uint8{}, [3]uint8{}, '>', '^')

	lines := strings.Split(out, "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), out)
	}
	if lines[0] != " >     " {
		t.Errorf("playhead line = %q", lines[0])
	}
	if lines[1] != "a1  b0 " {
		t.Errorf("pad line = %q", lines[1])
	}
	if lines[2] != "     ^ " {
		t.Errorf("cursor line = %q", lines[2])
	}
}

func TestRenderLED(t *testing.T) {
	if got := RenderLED("gate", true, [3]uint8{}, [3]uint8{}, '*', 'o'); got != "gate *" {
		t.Errorf("RenderLED(on) = %q", got)
	}
	if got := RenderLED("gate", false, [3]uint8{}, [3]uint8{}, '*', 'o'); got != "gate o" {
		t.Errorf("RenderLED(off) = %q", got)
	}
}

func TestRenderKeyHelp(t *testing.T) {
	out := RenderKeyHelp([]KeySection{{
		Title: "Transport",
		Keys:  []KeyBinding{{Key: "space", Desc: "start/stop"}},
	}})
	want := "Transport\n  space        start/stop"
	if out != want {
		t.Fatalf("RenderKeyHelp() = %q, want %q", out, want)
	}
}

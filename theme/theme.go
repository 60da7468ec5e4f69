package theme

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"stepseq/sequencer"
)

type Theme struct {
	Palette *Palette
	Symbols Symbols
}

type Symbols struct {
	// LEDs
	LEDOn  rune // ● lit
	LEDOff rune // ○ dark

	// Step pads, one glyph per gate mode
	Gates [sequencer.MaxGateMode + 1]rune

	Skipped  rune // - repeat count zero
	Playhead rune // ▶ current step
	Cursor   rune // ^ edit cursor
}

func New(palette *Palette) *Theme {
	return &Theme{
		Palette: palette,
		Symbols: Symbols{
			LEDOn:  '●',
			LEDOff: '○',

			Gates: [sequencer.MaxGateMode + 1]rune{
				sequencer.GateHalfStep:   '▄',
				sequencer.GateFullStep:   '█',
				sequencer.GateRepeatHalf: '▚',
				sequencer.GateRepeatFull: '▓',
				sequencer.GateSilent:     '·',
			},

			Skipped:  '-',
			Playhead: '▶',
			Cursor:   '^',
		},
	}
}

// GateGlyph returns the pad glyph for a gate mode
func (t *Theme) GateGlyph(mode sequencer.GateMode) rune {
	if mode < 0 || mode > sequencer.MaxGateMode {
		return t.Symbols.Gates[sequencer.GateSilent]
	}
	return t.Symbols.Gates[mode]
}

// ConfigureColor picks the lipgloss color profile for stdout. Colors are
// dropped when NO_COLOR is set or stdout is not a terminal.
func ConfigureColor() {
	lipgloss.SetColorProfile(termenv.NewOutput(os.Stdout).EnvColorProfile())
}

// Color roles mapped to palette positions (0-1)
const (
	RoleMuted   = 0.2 // purple
	RoleFG      = 0.4 // magenta (readable)
	RoleAccent  = 0.5 // pink
	RoleActive  = 0.7 // orange
	RoleSuccess = 1.0 // yellow
)

func (t *Theme) FG() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleFG))
}

func (t *Theme) Accent() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleAccent))
}

func (t *Theme) Muted() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleMuted))
}

// RGB returns raw RGB for any normalized value
func (t *Theme) RGB(norm float64) RGB {
	return t.Palette.Lookup(norm)
}

func rgbToLipgloss(c RGB) lipgloss.Color {
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2]))
}

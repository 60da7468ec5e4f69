package widgets

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// RenderPad renders a single colored glyph
func RenderPad(color [3]uint8, glyph rune) string {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color(rgbToHex(color)))
	return style.Render(string(glyph))
}

// RenderPadRow renders pads separated by a space
func RenderPadRow(pads []string) string {
	return strings.Join(pads, " ")
}

// RenderLED renders "label ●" or "label ○"
func RenderLED(label string, on bool, onColor, offColor [3]uint8, onGlyph, offGlyph rune) string {
	if on {
		return label + " " + RenderPad(onColor, onGlyph)
	}
	return label + " " + RenderPad(offColor, offGlyph)
}

// StepCell is what a step pad shows
type StepCell struct {
	Glyph    rune
	Repeat   int
	Playing  bool
	Selected bool
}

// RenderStepRow renders the step pads in three lines: playhead marker, pad
// with repeat count, cursor marker
func RenderStepRow(cells []StepCell, padColor, playColor, dimColor [3]uint8, playhead, cursor rune) string {
	var top, mid, bottom []string
	for _, c := range cells {
		marker := " "
		if c.Playing {
			marker = RenderPad(playColor, playhead)
		}
		top = append(top, fmt.Sprintf(" %s ", marker))

		color := padColor
		if c.Playing {
			color = playColor
		} else if c.Repeat == 0 {
			color = dimColor
		}
		mid = append(mid, RenderPad(color, c.Glyph)+fmt.Sprintf("%-2d", c.Repeat))

		sel := " "
		if c.Selected {
			sel = string(cursor)
		}
		bottom = append(bottom, fmt.Sprintf(" %s ", sel))
	}
	return strings.Join([]string{
		RenderPadRow(top),
		RenderPadRow(mid),
		RenderPadRow(bottom),
	}, "\n")
}

// RenderKeyHelp formats key bindings in a friendly way
func RenderKeyHelp(sections []KeySection) string {
	var lines []string
	for _, sec := range sections {
		if sec.Title != "" {
			lines = append(lines, sec.Title)
		}
		for _, k := range sec.Keys {
			lines = append(lines, fmt.Sprintf("  %-12s %s", k.Key, k.Desc))
		}
	}
	return strings.Join(lines, "\n")
}

// KeySection groups related key bindings
type KeySection struct {
	Title string
	Keys  []KeyBinding
}

// KeyBinding is a single key and its description
type KeyBinding struct {
	Key  string
	Desc string
}

func rgbToHex(c [3]uint8) string {
	return fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2])
}

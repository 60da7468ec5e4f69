package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"stepseq/debug"
	"stepseq/sequencer"
	"stepseq/theme"
	"stepseq/widgets"
)

// Tempo is the internal clock as seen by the front panel. Nil when the
// sequencer follows external MIDI clock.
type Tempo interface {
	BPM() int
	SetBPM(bpm int) int
}

// PresetSaver stores the focused track's settings
type PresetSaver interface {
	Save(ctx context.Context, slot int, name string, s sequencer.Settings) error
}

type Options struct {
	Theme   *theme.Theme
	Tempo   Tempo
	Presets PresetSaver
	Slot    int
}

type Model struct {
	Manager *sequencer.Manager
	Theme   *theme.Theme

	tempo    Tempo
	presets  PresetSaver
	slot     int
	cursor   int
	showHelp bool
	status   string
	quitting bool
}

// EventMsg carries one engine notification into the update loop
type EventMsg sequencer.Event

type savedMsg struct {
	slot int
	err  error
}

func NewModel(manager *sequencer.Manager, opts Options) Model {
	th := opts.Theme
	if th == nil {
		th = theme.New(theme.Plasma())
	}
	return Model{
		Manager: manager,
		Theme:   th,
		tempo:   opts.Tempo,
		presets: opts.Presets,
		slot:    opts.Slot,
	}
}

func ListenForEvents(manager *sequencer.Manager) tea.Cmd {
	return func() tea.Msg {
		return EventMsg(<-manager.Events())
	}
}

func (m Model) Init() tea.Cmd {
	return ListenForEvents(m.Manager)
}

// Cursor returns the step under the edit cursor
func (m Model) Cursor() int {
	return m.cursor
}

// Status returns the last status line
func (m Model) Status() string {
	return m.status
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg.String())

	case EventMsg:
		if msg.Kind == sequencer.EventMode && msg.Track == m.Manager.Focused() {
			m.status = "mode " + msg.Mode.String()
		}
		return m, ListenForEvents(m.Manager)

	case savedMsg:
		if msg.err != nil {
			m.status = "save failed: " + msg.err.Error()
		} else {
			m.status = fmt.Sprintf("saved preset %d", msg.slot+1)
		}
	}

	return m, nil
}

func (m Model) handleKey(key string) (tea.Model, tea.Cmd) {
	track := m.Manager.FocusedTrack()

	switch key {
	case "q", "ctrl+c":
		m.quitting = true
		m.Manager.Stop()
		return m, tea.Quit

	case " ":
		m.Manager.Toggle()

	case "m":
		track.CycleMode(true)

	case "M":
		track.CycleMode(false)

	case "h", "left":
		if m.cursor > 0 {
			m.cursor--
		}

	case "l", "right":
		if m.cursor < sequencer.NumSteps-1 {
			m.cursor++
		}

	case "g":
		mode := track.CycleGateMode(m.cursor)
		m.status = fmt.Sprintf("step %d gate %s", m.cursor+1, mode)

	case "r":
		n := track.CycleRepeat(m.cursor)
		m.status = fmt.Sprintf("step %d repeat %d", m.cursor+1, n)

	case "+", "=":
		m.status = fmt.Sprintf("divider %d", track.CycleTimeDivider(true))

	case "-", "_":
		m.status = fmt.Sprintf("divider %d", track.CycleTimeDivider(false))

	case "]":
		if m.tempo != nil {
			m.status = fmt.Sprintf("%d bpm", m.tempo.SetBPM(m.tempo.BPM()+5))
		}

	case "[":
		if m.tempo != nil {
			m.status = fmt.Sprintf("%d bpm", m.tempo.SetBPM(m.tempo.BPM()-5))
		}

	case "j":
		if !track.Jump(m.cursor) {
			m.status = fmt.Sprintf("step %d not in %s", m.cursor+1, track.Mode())
		}

	case "s":
		if m.presets == nil {
			m.status = "no preset store"
			return m, nil
		}
		return m, m.savePreset(track.CollectSettings())

	case "?":
		m.showHelp = !m.showHelp

	case "1", "2", "3", "4", "5", "6", "7", "8":
		m.Manager.SetFocused(int(key[0] - '1'))

	default:
		debug.Log("keys", "unbound key %q", key)
	}

	return m, nil
}

func (m Model) savePreset(s sequencer.Settings) tea.Cmd {
	slot, presets := m.slot, m.presets
	return func() tea.Msg {
		err := presets.Save(context.Background(), slot, "", s)
		return savedMsg{slot: slot, err: err}
	}
}

var keyHelp = []widgets.KeySection{
	{Title: "Transport", Keys: []widgets.KeyBinding{
		{Key: "space", Desc: "start/stop"},
		{Key: "[ ]", Desc: "tempo (internal clock)"},
		{Key: "+ -", Desc: "time divider"},
	}},
	{Title: "Pattern", Keys: []widgets.KeyBinding{
		{Key: "m M", Desc: "next/previous mode"},
		{Key: "h l", Desc: "move cursor"},
		{Key: "g", Desc: "cycle gate mode"},
		{Key: "r", Desc: "cycle repeat"},
		{Key: "j", Desc: "jump to cursor step"},
	}},
	{Title: "General", Keys: []widgets.KeyBinding{
		{Key: "1-8", Desc: "focus track"},
		{Key: "s", Desc: "save preset"},
		{Key: "?", Desc: "help"},
		{Key: "q", Desc: "quit"},
	}},
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	th := m.Theme
	st := m.Manager.FocusedTrack().State()

	headerStyle := lipgloss.NewStyle().Foreground(th.Accent())
	dimStyle := lipgloss.NewStyle().Foreground(th.Muted())
	statusStyle := lipgloss.NewStyle().Foreground(th.FG())

	playState := "STOP"
	if st.Running {
		playState = "PLAY"
	}
	tempo := "ext"
	if m.tempo != nil {
		tempo = fmt.Sprintf("%3dbpm", m.tempo.BPM())
	}
	header := headerStyle.Render(fmt.Sprintf("stepseq  %s  %s  track %d/%d  %s  1/%d",
		playState, tempo, m.Manager.Focused()+1, m.Manager.Len(), st.Mode, st.TimeDivider))

	on, off := th.RGB(theme.RoleSuccess), th.RGB(theme.RoleMuted)
	leds := strings.Join([]string{
		widgets.RenderLED("run", st.Running, on, off, th.Symbols.LEDOn, th.Symbols.LEDOff),
		widgets.RenderLED("gate", st.Gate, on, off, th.Symbols.LEDOn, th.Symbols.LEDOff),
		widgets.RenderLED("trig", st.Trigger, on, off, th.Symbols.LEDOn, th.Symbols.LEDOff),
	}, "   ")

	cells := make([]widgets.StepCell, sequencer.NumSteps)
	for i := range cells {
		cells[i] = widgets.StepCell{
			Glyph:    th.GateGlyph(st.GateModes[i]),
			Repeat:   st.Repeats[i],
			Playing:  st.Running && i == st.Step,
			Selected: i == m.cursor,
		}
	}
	steps := widgets.RenderStepRow(cells,
		th.RGB(theme.RoleFG), th.RGB(theme.RoleActive), th.RGB(theme.RoleMuted),
		th.Symbols.Playhead, th.Symbols.Cursor)

	seq := make([]string, len(st.Sequence))
	for i, s := range st.Sequence {
		seq[i] = fmt.Sprint(s + 1)
	}
	order := dimStyle.Render("order " + strings.Join(seq, " "))

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(header)
	out.WriteString("\n\n")
	out.WriteString(leds)
	out.WriteString("\n\n")
	out.WriteString(steps)
	out.WriteString("\n")
	out.WriteString(order)
	out.WriteString("\n\n")

	if m.showHelp {
		out.WriteString(widgets.RenderKeyHelp(keyHelp))
	} else {
		out.WriteString(dimStyle.Render("space:run  m/M:mode  h/l:cursor  g:gate  r:repeat  +/-:div  j:jump  s:save  ?:help  q:quit"))
	}

	if m.status != "" {
		out.WriteString("\n")
		out.WriteString(statusStyle.Render(m.status))
	}

	return out.String()
}

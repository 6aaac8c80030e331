package ui

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Kyle6012/hypr-xdisplay/internal/display"
	"github.com/Kyle6012/hypr-xdisplay/internal/ipc"
	"github.com/Kyle6012/hypr-xdisplay/internal/supervisor"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	pollInterval   = 2 * time.Second
	clockInterval  = time.Second
	scaleStep      = 0.25
	minScale       = 0.5
	maxScale       = 3.0
	brightnessStep = 0.1
)

// Supervisor is the daemon API the panel drives. *ipc.Client satisfies it.
type Supervisor interface {
	StatusAll() (*ipc.Response, error)
	StartCast(key supervisor.Key, port uint16, extra string) (supervisor.Status, error)
	StopCast(key supervisor.Key) (supervisor.Status, error)
	StartRecording(opts supervisor.RecorderOptions) (string, error)
	StopRecording() (supervisor.RecorderStatus, error)
	PauseRecording() (supervisor.RecorderStatus, error)
	ResumeRecording() (supervisor.RecorderStatus, error)
}

// Display is the layout engine the panel drives. *display.Engine satisfies it.
type Display interface {
	Monitors(ctx context.Context) ([]display.Monitor, error)
	ApplyLayout(ctx context.Context, monitors []display.Monitor) error
	SetBrightness(ctx context.Context, m *display.Monitor, value float64) error
	SetRotation(ctx context.Context, m *display.Monitor, orientation display.Orientation) error
}

// PanelOptions wires the panel to its backends
type PanelOptions struct {
	Supervisor  Supervisor
	Display     Display
	Preferences []display.Preference

	// SavePreference persists a monitor arrangement, nil disables saving
	SavePreference func(display.Preference) error

	// Events delivers compositor events, nil disables hotplug refresh
	Events <-chan display.Event

	// Now replaces the clock used for the recording timer
	Now func() time.Time
}

type section int

const (
	sectionMonitors section = iota
	sectionCasting
)

type (
	monitorsMsg struct {
		monitors []display.Monitor
		err      error
	}
	statusMsg struct {
		resp *ipc.Response
		err  error
	}
	actionMsg struct {
		text            string
		err             error
		refreshMonitors bool
	}
	brightnessMsg struct {
		name  string
		value float64
		err   error
	}
	pollMsg    time.Time
	clockMsg   time.Time
	displayMsg display.Event
)

// Panel is the control panel model
type Panel struct {
	sup      Supervisor
	disp     Display
	prefs    []display.Preference
	savePref func(display.Preference) error
	events   <-chan display.Event
	now      func() time.Time

	monitors   []display.Monitor
	monitorErr error
	selected   int

	casts     []supervisor.KeyStatus
	castSel   int
	recorder  supervisor.RecorderStatus
	mirrors   []supervisor.Status
	statusAt  time.Time
	daemonErr error

	focus   section
	busy    int
	spinner spinner.Model
	message string
	failed  bool
	clock   bool

	width, height int
}

// NewPanel creates the control panel
func NewPanel(o PanelOptions) *Panel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	now := o.Now
	if now == nil {
		now = time.Now
	}

	casts := make([]supervisor.KeyStatus, 0, 8)
	for _, k := range supervisor.Keys() {
		casts = append(casts, supervisor.KeyStatus{Key: k})
	}

	return &Panel{
		sup:      o.Supervisor,
		disp:     o.Display,
		prefs:    o.Preferences,
		savePref: o.SavePreference,
		events:   o.Events,
		now:      now,
		casts:    casts,
		spinner:  s,
		width:    80,
		height:   24,
	}
}

// Init loads monitors and session status and starts the poll loop
func (m *Panel) Init() tea.Cmd {
	m.busy++
	cmds := []tea.Cmd{
		m.spinner.Tick,
		m.fetchMonitors(),
		m.fetchStatus(),
		schedulePoll(),
	}
	if m.events != nil {
		cmds = append(cmds, waitForEvent(m.events))
	}
	return tea.Batch(cmds...)
}

// Update handles messages for the panel
func (m *Panel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m, m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case monitorsMsg:
		m.done()
		m.monitorErr = msg.err
		if msg.err == nil {
			m.setMonitors(msg.monitors)
		}

	case statusMsg:
		m.setStatus(msg.resp, msg.err)
		return m, m.startClock()

	case actionMsg:
		m.done()
		m.setMessage(msg.text, msg.err)
		cmds := []tea.Cmd{m.fetchStatus()}
		if msg.refreshMonitors {
			m.busy++
			cmds = append(cmds, m.fetchMonitors())
		}
		return m, tea.Batch(cmds...)

	case brightnessMsg:
		m.done()
		if msg.err != nil {
			m.setMessage("", msg.err)
			break
		}
		if mon, ok := display.FindMonitor(m.monitors, msg.name); ok {
			v := msg.value
			mon.Brightness = &v
		}
		m.setMessage(fmt.Sprintf("Brightness of %s set to %d%%.", msg.name, int(math.Round(msg.value*100))), nil)

	case pollMsg:
		return m, tea.Batch(m.fetchStatus(), schedulePoll())

	case clockMsg:
		if m.recorder.Running && !m.recorder.Paused {
			return m, tickClock()
		}
		m.clock = false

	case displayMsg:
		cmds := []tea.Cmd{waitForEvent(m.events)}
		if msg.Kind == display.EventMonitorAdded || msg.Kind == display.EventMonitorRemoved {
			m.busy++
			cmds = append(cmds, m.fetchMonitors())
		}
		return m, tea.Batch(cmds...)
	}
	return m, nil
}

func (m *Panel) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "q", "ctrl+c":
		return tea.Quit
	case "tab":
		if m.focus == sectionMonitors {
			m.focus = sectionCasting
		} else {
			m.focus = sectionMonitors
		}
		return nil
	case "up", "k":
		m.move(-1)
		return nil
	case "down", "j":
		m.move(1)
		return nil
	case "r":
		m.busy++
		return tea.Batch(m.fetchMonitors(), m.fetchStatus())
	case "R":
		return m.toggleRecording()
	case "p":
		return m.togglePause()
	}

	if m.focus == sectionCasting {
		switch msg.String() {
		case "enter", " ":
			return m.toggleCast()
		}
		return nil
	}

	mon := m.selectedMonitor()
	if mon == nil {
		return nil
	}
	switch msg.String() {
	case "m":
		if mon.EffectiveMode() == display.ModeCopy {
			mon.Mode = display.ModeExtended
		} else {
			mon.Mode = display.ModeCopy
		}
	case "+", "=":
		m.adjustScale(mon, scaleStep)
	case "-":
		m.adjustScale(mon, -scaleStep)
	case "o":
		return m.rotate(mon)
	case "]":
		return m.adjustBrightness(mon, brightnessStep)
	case "[":
		return m.adjustBrightness(mon, -brightnessStep)
	case "a":
		return m.applyLayout()
	case "s":
		return m.savePreferences()
	}
	return nil
}

func (m *Panel) move(delta int) {
	if m.focus == sectionCasting {
		m.castSel = clamp(m.castSel+delta, 0, len(m.casts)-1)
		return
	}
	m.selected = clamp(m.selected+delta, 0, len(m.monitors)-1)
}

func (m *Panel) selectedMonitor() *display.Monitor {
	if m.selected < 0 || m.selected >= len(m.monitors) {
		return nil
	}
	return &m.monitors[m.selected]
}

func (m *Panel) adjustScale(mon *display.Monitor, delta float64) {
	v := math.Round((mon.EffectiveScale()+delta)/scaleStep) * scaleStep
	v = math.Max(minScale, math.Min(maxScale, v))
	mon.Scaling = &v
}

func (m *Panel) adjustBrightness(mon *display.Monitor, delta float64) tea.Cmd {
	if !mon.IsPhysical() {
		m.setMessage("", fmt.Errorf("%s has no brightness control", mon.Name))
		return nil
	}
	current := 1.0
	if mon.Brightness != nil {
		current = *mon.Brightness
	}
	value := math.Max(0, math.Min(1, math.Round((current+delta)*10)/10))

	target := *mon
	m.busy++
	return func() tea.Msg {
		err := m.disp.SetBrightness(context.Background(), &target, value)
		return brightnessMsg{name: target.Name, value: value, err: err}
	}
}

func (m *Panel) rotate(mon *display.Monitor) tea.Cmd {
	next := display.Portrait
	if mon.EffectiveOrientation() == display.Portrait {
		next = display.Landscape
	}
	mon.Orientation = next

	target := *mon
	m.busy++
	return func() tea.Msg {
		if err := m.disp.SetRotation(context.Background(), &target, next); err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{text: fmt.Sprintf("%s rotated to %s.", target.Name, next), refreshMonitors: true}
	}
}

func (m *Panel) applyLayout() tea.Cmd {
	monitors := append([]display.Monitor(nil), m.monitors...)
	m.busy++
	return func() tea.Msg {
		if err := m.disp.ApplyLayout(context.Background(), monitors); err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{text: fmt.Sprintf("Layout applied to %d monitor(s).", len(monitors)), refreshMonitors: true}
	}
}

func (m *Panel) savePreferences() tea.Cmd {
	if m.savePref == nil {
		m.setMessage("", errors.New("saving preferences is not available here"))
		return nil
	}
	prefs := make([]display.Preference, 0, len(m.monitors))
	for i := range m.monitors {
		prefs = append(prefs, display.PreferenceOf(&m.monitors[i]))
	}
	m.prefs = prefs

	save := m.savePref
	m.busy++
	return func() tea.Msg {
		for _, p := range prefs {
			if err := save(p); err != nil {
				return actionMsg{err: fmt.Errorf("failed to save preferences: %w", err)}
			}
		}
		return actionMsg{text: "Monitor preferences saved."}
	}
}

func (m *Panel) toggleCast() tea.Cmd {
	if m.castSel < 0 || m.castSel >= len(m.casts) {
		return nil
	}
	ks := m.casts[m.castSel]
	m.busy++
	return func() tea.Msg {
		var st supervisor.Status
		var err error
		if ks.Status.Running {
			st, err = m.sup.StopCast(ks.Key)
		} else {
			st, err = m.sup.StartCast(ks.Key, 0, "")
		}
		if err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{text: st.Message}
	}
}

func (m *Panel) toggleRecording() tea.Cmd {
	running := m.recorder.Running
	m.busy++
	return func() tea.Msg {
		if running {
			rs, err := m.sup.StopRecording()
			if err != nil {
				return actionMsg{err: err}
			}
			return actionMsg{text: rs.Message}
		}
		out, err := m.sup.StartRecording(supervisor.RecorderOptions{})
		if err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{text: "Recording to " + out}
	}
}

func (m *Panel) togglePause() tea.Cmd {
	paused := m.recorder.Paused
	m.busy++
	return func() tea.Msg {
		if paused {
			if _, err := m.sup.ResumeRecording(); err != nil {
				return actionMsg{err: err}
			}
			return actionMsg{text: "Recording resumed."}
		}
		if _, err := m.sup.PauseRecording(); err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{text: "Recording paused."}
	}
}

func (m *Panel) fetchMonitors() tea.Cmd {
	return func() tea.Msg {
		monitors, err := m.disp.Monitors(context.Background())
		return monitorsMsg{monitors: monitors, err: err}
	}
}

func (m *Panel) fetchStatus() tea.Cmd {
	return func() tea.Msg {
		resp, err := m.sup.StatusAll()
		return statusMsg{resp: resp, err: err}
	}
}

func schedulePoll() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg { return pollMsg(t) })
}

func tickClock() tea.Cmd {
	return tea.Tick(clockInterval, func(t time.Time) tea.Msg { return clockMsg(t) })
}

func waitForEvent(events <-chan display.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return displayMsg(ev)
	}
}

// setMonitors replaces the monitor list, keeping unsaved edits for outputs
// that are still connected and applying saved preferences to new ones
func (m *Panel) setMonitors(fresh []display.Monitor) {
	firstLoad := len(m.monitors) == 0
	display.ApplyPreferences(fresh, m.prefs)
	for i := range fresh {
		old, ok := display.FindMonitor(m.monitors, fresh[i].Name)
		if !ok {
			continue
		}
		fresh[i].Mode = old.Mode
		fresh[i].Orientation = old.Orientation
		fresh[i].Scaling = old.Scaling
		if fresh[i].Brightness == nil {
			fresh[i].Brightness = old.Brightness
		}
	}
	m.monitors = fresh
	m.selected = clamp(m.selected, 0, len(fresh)-1)

	// start on the output the user is looking at
	if focused := display.FocusedMonitor(fresh); firstLoad && focused != nil {
		for i := range fresh {
			if &fresh[i] == focused {
				m.selected = i
			}
		}
	}
}

func (m *Panel) setStatus(resp *ipc.Response, err error) {
	m.daemonErr = err
	if err != nil || resp == nil {
		return
	}
	if len(resp.Casts) > 0 {
		m.casts = resp.Casts
		m.castSel = clamp(m.castSel, 0, len(m.casts)-1)
	}
	if resp.Recorder != nil {
		m.recorder = *resp.Recorder
	}
	m.mirrors = resp.Mirrors
	m.statusAt = m.now()
}

func (m *Panel) startClock() tea.Cmd {
	if m.clock || !m.recorder.Running || m.recorder.Paused {
		return nil
	}
	m.clock = true
	return tickClock()
}

func (m *Panel) done() {
	if m.busy > 0 {
		m.busy--
	}
}

func (m *Panel) setMessage(text string, err error) {
	if err != nil {
		m.message, m.failed = err.Error(), true
		return
	}
	m.message, m.failed = text, false
}

// elapsed extrapolates the recording time between polls
func (m *Panel) elapsed() time.Duration {
	d := m.recorder.Elapsed
	if m.recorder.Running && !m.recorder.Paused && !m.statusAt.IsZero() {
		d += m.now().Sub(m.statusAt)
	}
	return d
}

// View renders the panel
func (m *Panel) View() string {
	title := TitleStyle.Render("hypr-xdisplay")
	if m.busy > 0 {
		title += " " + m.spinner.View()
	}

	monitorsBox := BoxStyle
	castingBox := BoxStyle
	if m.focus == sectionMonitors {
		monitorsBox = FocusedBoxStyle
	} else {
		castingBox = FocusedBoxStyle
	}

	parts := []string{
		title,
		"",
		monitorsBox.Render(m.viewMonitors()),
		castingBox.Render(m.viewCasting()),
		BoxStyle.Render(m.viewRecorder()),
	}
	if m.message != "" {
		if m.failed {
			parts = append(parts, ErrorStyle.Render(IconError+" "+m.message))
		} else {
			parts = append(parts, SuccessStyle.Render(IconSuccess+" "+m.message))
		}
	}
	parts = append(parts, m.viewHelp())

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m *Panel) viewMonitors() string {
	var b strings.Builder
	b.WriteString(SubheaderStyle.Render("Monitors") + "\n")

	if m.monitorErr != nil {
		b.WriteString(ErrorStyle.Render(m.monitorErr.Error()))
		return b.String()
	}
	if len(m.monitors) == 0 {
		b.WriteString(SubtleStyle.Render("No monitors detected"))
		return b.String()
	}

	placements := display.Plan(m.monitors)
	for i := range m.monitors {
		mon := &m.monitors[i]
		p := placements[i]

		cursor := "  "
		name := mon.Name
		if i == m.selected {
			cursor = ControlKeyStyle.Render("> ")
			name = SelectedStyle.Render(name)
		}

		line := fmt.Sprintf("%s%-10s %-8s %-9s scale %-4s", cursor, name,
			mon.EffectiveMode(), mon.EffectiveOrientation(), formatScale(p.Scale))
		if mon.Brightness != nil {
			line += fmt.Sprintf(" bright %3d%%", int(math.Round(*mon.Brightness*100)))
		}

		preview := fmt.Sprintf("%dx%d@%s at %d,%d", p.Width, p.Height, formatScale(p.RefreshRate), p.X, p.Y)
		if p.MirrorOf != "" {
			preview += " " + IconMirror + " " + p.MirrorOf
		}
		b.WriteString(line + "  " + SubtleStyle.Render(preview))
		if desc := strings.TrimSpace(mon.Description); desc != "" && i == m.selected {
			b.WriteString("\n    " + MutedStyle.Render(desc))
		}
		b.WriteString("\n")
	}

	w, h := display.DesktopSize(placements)
	b.WriteString(MutedStyle.Render(fmt.Sprintf("  desktop %dx%d", w, h)))
	return b.String()
}

func (m *Panel) viewCasting() string {
	var b strings.Builder
	b.WriteString(SubheaderStyle.Render("Casting") + "\n")
	if m.daemonErr != nil {
		b.WriteString(WarningStyle.Render(IconWarning+" "+m.daemonErr.Error()) + "\n")
		b.WriteString(SubtleStyle.Render("Start it with: hypr-xdisplay daemon"))
		return b.String()
	}

	for i, ks := range m.casts {
		cursor := "  "
		if i == m.castSel && m.focus == sectionCasting {
			cursor = ControlKeyStyle.Render("> ")
		}
		b.WriteString(cursor + FormatSession(ks.Key.String(), ks.Status))
		if i < len(m.casts)-1 {
			b.WriteString("\n")
		}
	}

	for _, st := range m.mirrors {
		if st.Running {
			b.WriteString("\n  " + FormatSession("Mirror "+st.Target, st))
		}
	}
	return b.String()
}

func (m *Panel) viewRecorder() string {
	var state string
	switch {
	case m.recorder.Paused:
		state = PausedIndicator + " " + WarningStyle.Render("Paused")
	case m.recorder.Running:
		state = RunningIndicator + " " + SuccessStyle.Render("Recording")
	default:
		state = StoppedIndicator + " " + SubtleStyle.Render("Idle")
	}

	line := SubheaderStyle.Render("Recorder") + "  " + state
	if m.recorder.Running {
		line += "  " + BoldStyle.Render(FormatDuration(m.elapsed()))
		if m.recorder.Output != "" {
			line += "\n" + SubtleStyle.Render(m.recorder.Output)
		}
	} else if m.recorder.Error != "" {
		line += "\n" + ErrorStyle.Render(m.recorder.Error)
	}
	return line
}

func (m *Panel) viewHelp() string {
	controls := []string{FormatControl("tab", "section"), FormatControl("↑/↓", "select")}
	if m.focus == sectionMonitors {
		controls = append(controls,
			FormatControl("m", "mode"),
			FormatControl("o", "rotate"),
			FormatControl("+/-", "scale"),
			FormatControl("[/]", "brightness"),
			FormatControl("a", "apply"),
			FormatControl("s", "save"),
		)
	} else {
		controls = append(controls, FormatControl("enter", "start/stop"))
	}
	controls = append(controls,
		FormatControl("R", "record"),
		FormatControl("p", "pause"),
		FormatControl("r", "refresh"),
		FormatControl("q", "quit"),
	)
	return MutedStyle.Render(strings.Join(controls, "  "))
}

func formatScale(v float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	return max(lo, min(v, hi))
}

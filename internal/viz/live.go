package viz

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/fidsim/internal/probe"
	"github.com/san-kum/fidsim/internal/units"
)

const (
	canvasWidth  = 30
	canvasHeight = 15
	graphPoints  = 200
	maxPerFrame  = 512
	frameRate    = time.Second / 30
)

type TickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(frameRate, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// Model steps a BlochRun and renders it. The run is committed to its probe
// once it reaches the end of the pulse.
type Model struct {
	run      *probe.BlochRun
	title    string
	perFrame int
	canvas   *Canvas
	theme    Theme
	styles   styles

	running   bool
	committed bool
	showHelp  bool
	err       error
}

func NewModel(run *probe.BlochRun, title string) Model {
	theme := Themes[0]
	return Model{
		run:      run,
		title:    title,
		perFrame: 8,
		canvas:   NewCanvas(canvasWidth, canvasHeight),
		theme:    theme,
		styles:   newStyles(theme),
		running:  true,
	}
}

// Err is the integration or commit error, if any.
func (m Model) Err() error { return m.err }

// Committed reports whether the final state was written to the probe.
func (m Model) Committed() bool { return m.committed }

func (m Model) Init() tea.Cmd {
	return tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "+", "=":
			m.perFrame = min(m.perFrame*2, maxPerFrame)
		case "-", "_":
			m.perFrame = max(m.perFrame/2, 1)
		case "t":
			m.theme = NextTheme(m.theme)
			m.styles = newStyles(m.theme)
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		if m.running {
			m.advance()
		}
		if m.finished() {
			return m, nil
		}
		return m, tick()
	}
	return m, nil
}

func (m *Model) advance() {
	for range m.perFrame {
		if m.finished() {
			return
		}
		if _, err := m.run.Step(); err != nil {
			m.err = err
			return
		}
		if m.run.Done() {
			if err := m.run.Commit(); err != nil {
				m.err = err
				return
			}
			m.committed = true
		}
	}
}

func (m Model) finished() bool {
	return m.err != nil || m.committed
}

func (m Model) status() string {
	switch {
	case m.err != nil:
		return lipgloss.NewStyle().Bold(true).Foreground(m.theme.Error).Render("FAILED")
	case m.committed:
		return m.styles.status.Render("DONE")
	case !m.running:
		return lipgloss.NewStyle().Bold(true).Foreground(m.theme.Warning).Render("PAUSED")
	}
	return m.styles.status.Render("RUNNING")
}

// drawTransverse plots the centre cell's (Mx, Mz) path. The static field
// points along y, so this is the plane the RF pulse tips M into.
func (m *Model) drawTransverse() {
	m.canvas.Clear()
	m.canvas.UnitCircle()
	m.canvas.Segment(-1, 0, 1, 0)
	m.canvas.Segment(0, -1, 0, 1)

	hist := m.run.History()
	for _, s := range hist {
		m.canvas.Point(s.CenterMx, s.CenterMz)
	}
	last := hist[len(hist)-1]
	m.canvas.Segment(0, 0, last.CenterMx, last.CenterMz)
}

func tail(hist []probe.Snapshot, n int) (mx, my, mz []float64) {
	if len(hist) > n {
		hist = hist[len(hist)-n:]
	}
	mx = make([]float64, len(hist))
	my = make([]float64, len(hist))
	mz = make([]float64, len(hist))
	for i, s := range hist {
		mx[i], my[i], mz[i] = s.MeanMx, s.MeanMy, s.MeanMz
	}
	return mx, my, mz
}

func (m Model) View() string {
	m.drawTransverse()
	last := m.run.Last()
	st := m.styles

	var s strings.Builder
	s.WriteString(st.header.Render(strings.ToUpper(m.title)) + "\n")
	s.WriteString(m.status() + "\n\n")
	s.WriteString(st.progressBar(m.run.Progress(), 30) + fmt.Sprintf(" %5.1f%%\n\n", 100*m.run.Progress()))

	row := func(label, value string) {
		s.WriteString(st.label.Render(label) + st.value.Render(value) + "\n")
	}
	row("Time", fmt.Sprintf("%.3f ns / %.3f ns", last.T/units.NS, m.run.Duration()/units.NS))
	row("Steps", fmt.Sprintf("%d (x%d/frame)", m.run.Steps(), m.perFrame))
	row("Mean M", fmt.Sprintf("(%+.4f, %+.4f, %+.4f)", last.MeanMx, last.MeanMy, last.MeanMz))
	row("Center M", fmt.Sprintf("(%+.4f, %+.4f, %+.4f)", last.CenterMx, last.CenterMy, last.CenterMz))
	if m.err != nil {
		row("Error", m.err.Error())
	}

	if mx, my, mz := tail(m.run.History(), graphPoints); len(mx) > 1 {
		chart := asciigraph.PlotMany([][]float64{mx, my, mz},
			asciigraph.Height(8),
			asciigraph.Width(50),
			asciigraph.LowerBound(-1),
			asciigraph.UpperBound(1),
			asciigraph.SeriesColors(asciigraph.Red, asciigraph.Green, asciigraph.Blue),
			asciigraph.Caption("mean Mx (red) My (green) Mz (blue)"))
		s.WriteString(st.graph.Render(chart) + "\n")
	}
	s.WriteString(st.help.Render("SP:Pause +/-:Speed T:Theme ?:Help Q:Quit"))

	canvasView := st.panel.Render("center (Mx, Mz)\n" + m.canvas.String())
	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, "  ", s.String())
	if m.showHelp {
		help := st.panel.Render(strings.Join([]string{
			"Space  pause or resume",
			"+ / -  double or halve steps per frame",
			"T      cycle themes",
			"?      toggle this help",
			"Q      quit",
		}, "\n"))
		return help + "\n\n" + mainView
	}
	return mainView
}

// Live runs the view until the user quits and returns the final model's
// error.
func Live(run *probe.BlochRun, title string) (Model, error) {
	final, err := tea.NewProgram(NewModel(run, title), tea.WithAltScreen()).Run()
	if err != nil {
		return Model{}, err
	}
	m := final.(Model)
	return m, m.err
}

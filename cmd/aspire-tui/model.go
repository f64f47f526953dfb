package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dd0wney/aspire-acoustics/pkg/scene"
	"github.com/dd0wney/aspire-acoustics/pkg/simulation"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF00FF")).
			MarginLeft(2).
			MarginTop(1)

	boxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FFFF")).
			Padding(1, 2).
			MarginLeft(2)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			MarginTop(1).
			MarginLeft(2)

	statusStyles = map[simulation.BandStatus]lipgloss.Style{
		simulation.BandBelow:   lipgloss.NewStyle().Foreground(lipgloss.Color("#00AFFF")),
		simulation.BandOptimal: lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00")),
		simulation.BandAbove:   lipgloss.NewStyle().Foreground(lipgloss.Color("#FFAF00")),
	}
)

type keyMap struct {
	Run  key.Binding
	Type key.Binding
	Quit key.Binding
}

var keys = keyMap{
	Run: key.NewBinding(
		key.WithKeys("r", "enter"),
		key.WithHelp("r", "run again"),
	),
	Type: key.NewBinding(
		key.WithKeys("t", "tab"),
		key.WithHelp("t", "next simulation type"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

func (k keyMap) ShortHelp() []key.Binding { return []key.Binding{k.Run, k.Type, k.Quit} }

func (k keyMap) FullHelp() [][]key.Binding { return [][]key.Binding{k.ShortHelp()} }

// runner is the part of *simulation.Runner the viewer uses.
type runner interface {
	Run(ctx context.Context, in simulation.Input) (simulation.Outcome, error)
}

type resultMsg struct {
	outcome simulation.Outcome
	err     error
	took    time.Duration
}

type model struct {
	scene   scene.Scene
	runner  runner
	simType simulation.Type
	bands   []int

	running bool
	outcome *simulation.Outcome
	err     error
	took    time.Duration

	spinner spinner.Model
	table   table.Model
	help    help.Model
	keys    keyMap
	width   int
}

func newModel(sc scene.Scene, r runner, t simulation.Type, bands []int) model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	tbl := table.New(
		table.WithColumns([]table.Column{
			{Title: "Band", Width: 8},
			{Title: "RT60", Width: 8},
			{Title: "Status", Width: 9},
			{Title: "", Width: barWidth},
		}),
		table.WithHeight(8),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#00FFFF")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.Foreground(lipgloss.NoColor{}).Bold(false)
	tbl.SetStyles(s)

	return model{
		scene:   sc,
		runner:  r,
		simType: t,
		bands:   bands,
		spinner: sp,
		table:   tbl,
		help:    help.New(),
		keys:    keys,
		running: true,
	}
}

// Init starts the first run; newModel already marks it as running.
func (m model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.simulate())
}

// simulate starts a run; the result comes back as a resultMsg.
func (m *model) simulate() tea.Cmd {
	m.running = true
	in := simulationInput(m.scene, m.simType, m.bands)
	r := m.runner
	return func() tea.Msg {
		start := time.Now()
		out, err := r.Run(context.Background(), in)
		return resultMsg{outcome: out, err: err, took: time.Since(start)}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Run):
			if !m.running {
				return m, tea.Batch(m.spinner.Tick, m.simulate())
			}
		case key.Matches(msg, m.keys.Type):
			if !m.running {
				m.simType = nextType(m.simType)
				return m, tea.Batch(m.spinner.Tick, m.simulate())
			}
		}

	case resultMsg:
		m.running = false
		m.took = msg.took
		m.err = msg.err
		if msg.err != nil {
			m.outcome = nil
			return m, nil
		}
		out := msg.outcome
		m.outcome = &out
		m.table.SetRows(bandRows(out.Report))

	case spinner.TickMsg:
		if !m.running {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Aspire RT60 · %s", sceneTitle(m.scene))))
	b.WriteString("\n")

	dims := m.scene.GeometryData.DimensionsOrDefault()
	b.WriteString(mutedStyle.Render(fmt.Sprintf("  %.1f × %.1f × %.1f m  ·  %d speakers  ·  %s",
		dims.Width, dims.Depth, dims.Height, len(m.scene.SoundSourceData.Speakers), m.simType)))
	b.WriteString("\n\n")

	switch {
	case m.running:
		b.WriteString(boxStyle.Render(m.spinner.View() + " simulating…"))
	case m.err != nil:
		b.WriteString(boxStyle.Render(errorStyle.Render("Simulation failed") + "\n\n" + failureText(m.err)))
	case m.outcome != nil:
		rep := m.outcome.Report
		summary := fmt.Sprintf("Average RT60 %.2f s  ·  %s  ·  %s",
			rep.AverageRT60, rep.Category.Label, m.took.Round(time.Millisecond))
		b.WriteString(boxStyle.Render(summary + "\n\n" + m.table.View() + "\n\n" + mutedStyle.Render(rep.Category.Guidance)))
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render(m.help.View(m.keys)))
	return b.String()
}

func sceneTitle(sc scene.Scene) string {
	if sc.Name != "" {
		return sc.Name
	}
	if sc.ID != "" {
		return sc.ID
	}
	return "untitled scene"
}

// failureText lists every validation problem, or the engine's message.
func failureText(err error) string {
	var re *simulation.RequestError
	if asRequestError(err, &re) {
		lines := make([]string, len(re.Errors))
		for i, e := range re.Errors {
			lines[i] = "• " + e
		}
		return strings.Join(lines, "\n")
	}
	return err.Error()
}

func nextType(t simulation.Type) simulation.Type {
	types := simulation.AvailableTypes()
	for i, info := range types {
		if info.ID == t {
			return types[(i+1)%len(types)].ID
		}
	}
	return simulation.DefaultType
}

func decodeJSON(b []byte, v any) error { return json.Unmarshal(b, v) }

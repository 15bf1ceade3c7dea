package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/subcommands"
	"golang.org/x/term"

	"github.com/wippyai/ridgen"
	"github.com/wippyai/ridgen/genstate"
	"github.com/wippyai/ridgen/graph"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	kindStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	codeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// maxRows bounds the artifact list and each code excerpt.
const maxRows = 20

type exploreCmd struct {
	crateFlags
}

func (*exploreCmd) Name() string { return "explore" }

func (*exploreCmd) Synopsis() string {
	return "Browse generated artifacts interactively."
}

func (*exploreCmd) Usage() string {
	return "ridgen explore [-dir <crate>]\n"
}

func (cmd *exploreCmd) SetFlags(f *flag.FlagSet) {
	cmd.register(f)
}

func (cmd *exploreCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintln(os.Stderr, "Error: explore needs a terminal; use graph or describe instead")
		return subcommands.ExitUsageError
	}
	load := func() tea.Msg {
		cfg, out, err := cmd.generate(ctx)
		if err != nil {
			return loadedMsg{err: err}
		}
		return loadedMsg{name: cfg.Name, out: out}
	}
	p := tea.NewProgram(newExploreModel(load), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type exploreState int

const (
	stateBrowse exploreState = iota
	stateDetail
)

type loadedMsg struct {
	err  error
	name string
	out  *ridgen.Output
}

type exploreModel struct {
	load     tea.Cmd
	err      error
	name     string
	out      *ridgen.Output
	all      []genstate.Artifact
	visible  []genstate.Artifact
	filter   textinput.Model
	selected int
	state    exploreState
}

func newExploreModel(load tea.Cmd) *exploreModel {
	ti := textinput.New()
	ti.Prompt = "filter: "
	ti.Placeholder = "kind, name or user"
	ti.Width = 40
	ti.Focus()
	return &exploreModel{load: load, filter: ti}
}

func (m *exploreModel) Init() tea.Cmd {
	return m.load
}

func (m *exploreModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.name = msg.name
		m.out = msg.out
		m.all = append([]genstate.Artifact(nil), msg.out.Artifacts...)
		sort.SliceStable(m.all, func(i, j int) bool { return graph.Label(m.all[i]) < graph.Label(m.all[j]) })
		m.refilter()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "up":
			if m.state == stateBrowse && m.selected > 0 {
				m.selected--
			}
			return m, nil
		case "down":
			if m.state == stateBrowse && m.selected < len(m.visible)-1 {
				m.selected++
			}
			return m, nil
		case "enter":
			switch m.state {
			case stateBrowse:
				if len(m.visible) > 0 {
					m.state = stateDetail
				}
			case stateDetail:
				m.state = stateBrowse
			}
			return m, nil
		case "esc":
			switch m.state {
			case stateDetail:
				m.state = stateBrowse
			case stateBrowse:
				if m.err != nil || m.filter.Value() == "" {
					return m, tea.Quit
				}
				m.filter.SetValue("")
				m.refilter()
			}
			return m, nil
		}
		if m.state == stateDetail {
			if msg.String() == "q" {
				m.state = stateBrowse
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	before := m.filter.Value()
	m.filter, cmd = m.filter.Update(msg)
	if m.filter.Value() != before {
		m.refilter()
	}
	return m, cmd
}

func (m *exploreModel) refilter() {
	q := strings.ToLower(strings.TrimSpace(m.filter.Value()))
	m.visible = m.visible[:0]
	for _, a := range m.all {
		if q == "" || matches(a, q) {
			m.visible = append(m.visible, a)
		}
	}
	if m.selected >= len(m.visible) {
		m.selected = max(len(m.visible)-1, 0)
	}
}

func matches(a genstate.Artifact, q string) bool {
	if strings.Contains(strings.ToLower(graph.Label(a)), q) {
		return true
	}
	for _, u := range a.Users {
		if strings.Contains(strings.ToLower(u), q) {
			return true
		}
	}
	return false
}

// excerpt returns the lines of code mentioning key, at most maxRows.
func excerpt(code, key string) []string {
	var out []string
	for _, line := range strings.Split(code, "\n") {
		if strings.Contains(line, key) {
			out = append(out, strings.TrimSpace(line))
			if len(out) == maxRows {
				break
			}
		}
	}
	return out
}

func (m *exploreModel) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress esc to quit.", m.err))
	}
	if m.out == nil {
		return "Generating..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("ridgen"))
	b.WriteString(" ")
	b.WriteString(m.name)
	fmt.Fprintf(&b, " (%d artifacts, %d skipped)\n\n", len(m.all), len(m.out.Diagnostics))

	switch m.state {
	case stateBrowse:
		b.WriteString(m.filter.View())
		b.WriteString("\n\n")
		start := 0
		if m.selected >= maxRows {
			start = m.selected - maxRows + 1
		}
		for i := start; i < len(m.visible) && i < start+maxRows; i++ {
			line := m.formatArtifact(m.visible[i])
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + line))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		if len(m.visible) == 0 {
			b.WriteString(helpStyle.Render("  no match"))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter details • esc clear/quit"))

	case stateDetail:
		a := m.visible[m.selected]
		fmt.Fprintf(&b, "%s %s\n\n", kindStyle.Render(a.Kind.String()), a.Key)
		b.WriteString("used by:\n")
		for _, u := range a.Users {
			b.WriteString("  " + userStyle.Render(u) + "\n")
		}
		for _, side := range []struct{ name, code string }{
			{"rust", m.out.Rust},
			{"dart", m.out.Dart},
		} {
			lines := excerpt(side.code, a.Key)
			if len(lines) == 0 {
				continue
			}
			fmt.Fprintf(&b, "\n%s:\n", side.name)
			for _, l := range lines {
				b.WriteString("  " + codeStyle.Render(l) + "\n")
			}
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("enter/esc back • ctrl+c quit"))
	}
	return b.String()
}

func (m *exploreModel) formatArtifact(a genstate.Artifact) string {
	return kindStyle.Render(a.Kind.String()) + " " + a.Key + " " +
		helpStyle.Render(fmt.Sprintf("(%d users)", len(a.Users)))
}

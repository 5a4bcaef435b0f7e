// Package ui renders terminal progress for long-running commands.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"proofview/internal/summary"
)

type progressModel struct {
	title      string
	events     <-chan summary.Event
	spinner    spinner.Model
	prog       progress.Model
	items      []proofItem
	index      map[string]int
	stageLabel string
	width      int
	done       bool
}

type proofItem struct {
	name   string
	status summary.Status
}

type eventMsg summary.Event
type doneMsg struct{}

// NewProgressModel returns a Bubble Tea model that renders the progress of
// a project aggregate over proofs. The model quits when events is closed.
func NewProgressModel(title string, proofs []string, events <-chan summary.Event) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 76

	items := make([]proofItem, 0, len(proofs))
	index := make(map[string]int, len(proofs))
	for i, name := range proofs {
		items = append(items, proofItem{name: name, status: summary.StatusQueued})
		index[name] = i
	}
	return &progressModel{
		title:   title,
		events:  events,
		spinner: sp,
		prog:    prog,
		items:   items,
		index:   index,
		width:   80,
	}
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForEvent())
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		cmd := m.applyEvent(summary.Event(msg))
		return m, tea.Batch(cmd, m.listenForEvent())
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.prog.Width = msg.Width - 4
		}
		return m, nil
	case progress.FrameMsg:
		progressModel, cmd := m.prog.Update(msg)
		m.prog = progressModel.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *progressModel) View() string {
	if len(m.items) == 0 {
		return ""
	}
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	header := m.title
	if m.stageLabel != "" {
		header = fmt.Sprintf("%s (%s)", header, m.stageLabel)
	}
	if m.done {
		header = fmt.Sprintf("done: %s", header)
	} else {
		header = fmt.Sprintf("%s %s", m.spinner.View(), header)
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n\n")

	statusWidth := 12
	nameWidth := max(m.width-statusWidth-4, 20)
	for _, item := range m.items {
		label := statusLabel(item.status)
		statusStyled := styleStatus(item.status).Render(fmt.Sprintf("%12s", label))
		fmt.Fprintf(&b, "  %s %s\n", statusStyled, truncate(item.name, nameWidth))
	}

	b.WriteString("\n")
	if m.done {
		b.WriteString(m.prog.ViewAs(1.0))
	} else {
		b.WriteString(m.prog.View())
	}
	b.WriteString("\n")
	return b.String()
}

func (m *progressModel) listenForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *progressModel) applyEvent(ev summary.Event) tea.Cmd {
	if ev.Proof == "" {
		m.stageLabel = stageLabel(ev.Stage, ev.Status)
		return nil
	}
	idx, ok := m.index[ev.Proof]
	if !ok {
		return nil
	}
	m.items[idx].status = ev.Status
	return m.prog.SetPercent(m.fraction())
}

// fraction is the share of proofs that are finished.
func (m *progressModel) fraction() float64 {
	if len(m.items) == 0 {
		return 0
	}
	finished := 0.0
	for _, item := range m.items {
		switch item.status {
		case summary.StatusDone, summary.StatusSkipped:
			finished++
		case summary.StatusWorking:
			finished += 0.5
		}
	}
	return finished / float64(len(m.items))
}

func statusLabel(status summary.Status) string {
	if status == summary.StatusWorking {
		return "reading"
	}
	return string(status)
}

func stageLabel(stage summary.Stage, status summary.Status) string {
	if stage == summary.StageReduce && status == summary.StatusWorking {
		return "totalling"
	}
	return ""
}

func styleStatus(status summary.Status) lipgloss.Style {
	switch status {
	case summary.StatusDone:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	case summary.StatusSkipped:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	case summary.StatusWorking:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	}
}

func truncate(value string, width int) string {
	if width <= 0 {
		return value
	}
	if runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width-3, "...")
}

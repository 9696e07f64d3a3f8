// Package ui renders live progress of a directory scan in the terminal.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"gasguard/internal/scanner"
)

// maxVisible caps the file list; the rest is summarized in one line.
const maxVisible = 12

type progressModel struct {
	title      string
	events     <-chan scanner.Event
	spinner    spinner.Model
	prog       progress.Model
	items      []fileItem
	index      map[string]int
	finished   int
	violations int
	failed     int
	width      int
	done       bool
}

type fileItem struct {
	path       string
	status     scanner.Status
	violations int
	cached     bool
}

type eventMsg scanner.Event
type doneMsg struct{}

// NewProgressModel returns a Bubble Tea model that renders scan progress
// for files, fed by events until the channel closes.
func NewProgressModel(title string, files []string, events <-chan scanner.Event) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 76

	items := make([]fileItem, 0, len(files))
	index := make(map[string]int, len(files))
	for i, file := range files {
		items = append(items, fileItem{path: file, status: scanner.StatusQueued})
		index[file] = i
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
		cmd := m.applyEvent(scanner.Event(msg))
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
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
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
	header := fmt.Sprintf("%s (%d/%d files, %d violations", m.title, m.finished, len(m.items), m.violations)
	if m.failed > 0 {
		header += fmt.Sprintf(", %d failed", m.failed)
	}
	header += ")"
	if m.done {
		header = "done: " + header
	} else {
		header = m.spinner.View() + " " + header
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n\n")

	statusWidth := 12
	nameWidth := max(m.width-statusWidth-4, 20)
	for _, item := range m.visible() {
		label := statusLabel(item)
		statusStyled := styleStatus(item.status).Render(fmt.Sprintf("%12s", label))
		b.WriteString(fmt.Sprintf("  %s %s\n", statusStyled, truncate(item.path, nameWidth)))
	}
	if hidden := len(m.items) - len(m.visible()); hidden > 0 {
		b.WriteString(fmt.Sprintf("  %12s %d more\n", "", hidden))
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

// visible keeps in-flight and failed files on screen ahead of finished ones.
func (m *progressModel) visible() []fileItem {
	if len(m.items) <= maxVisible {
		return m.items
	}
	out := make([]fileItem, 0, maxVisible)
	for _, want := range []scanner.Status{scanner.StatusWorking, scanner.StatusError, scanner.StatusQueued, scanner.StatusDone} {
		for _, item := range m.items {
			if len(out) == maxVisible {
				return out
			}
			if item.status == want {
				out = append(out, item)
			}
		}
	}
	return out
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

func (m *progressModel) applyEvent(ev scanner.Event) tea.Cmd {
	if ev.File == "" {
		return nil
	}
	idx, ok := m.index[ev.File]
	if !ok {
		return nil
	}
	item := &m.items[idx]
	wasFinished := isFinished(item.status)
	item.status = ev.Status
	if ev.Status == scanner.StatusDone {
		item.violations = ev.Violations
		item.cached = ev.Cached
	}
	if !wasFinished && isFinished(ev.Status) {
		m.finished++
		m.violations += ev.Violations
		if ev.Status == scanner.StatusError {
			m.failed++
		}
	}
	return m.prog.SetPercent(float64(m.finished) / float64(len(m.items)))
}

func isFinished(s scanner.Status) bool {
	return s == scanner.StatusDone || s == scanner.StatusError
}

func statusLabel(item fileItem) string {
	switch item.status {
	case scanner.StatusWorking:
		return "scanning"
	case scanner.StatusDone:
		switch {
		case item.cached:
			return "cached"
		case item.violations > 0:
			return fmt.Sprintf("%d found", item.violations)
		default:
			return "clean"
		}
	case scanner.StatusError:
		return "error"
	default:
		return "queued"
	}
}

func styleStatus(status scanner.Status) lipgloss.Style {
	switch status {
	case scanner.StatusDone:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	case scanner.StatusError:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	case scanner.StatusWorking:
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
	// the tail counts toward width
	return runewidth.Truncate(value, width, "...")
}

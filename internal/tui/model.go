package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"camextract/internal/extract"
	"camextract/internal/paths"
)

// Model is the progress view of an extraction run. It only reads from the
// update channel and quits when the channel is closed.
type Model struct {
	updates     <-chan extract.ProgressUpdate
	interrupt   func()
	started     time.Time
	width       int
	total       int
	files       int
	published   int
	errors      int
	current     string
	interrupted bool
	quitting    bool
}

type doneMsg struct{}

type updateMsg extract.ProgressUpdate

// NewModel reads updates until the channel closes. interrupt is called once
// when the user presses ctrl+c; it may be nil.
func NewModel(updates <-chan extract.ProgressUpdate, interrupt func()) Model {
	return Model{updates: updates, interrupt: interrupt, started: time.Now()}
}

func (m Model) Init() tea.Cmd {
	return listenForUpdates(m.updates)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case updateMsg:
		m.total += msg.TotalDelta
		m.files += msg.FilesDelta
		m.published += msg.PublishedDelta
		m.errors += msg.ErrorDelta
		if msg.Current != "" {
			m.current = msg.Current
		}
		return m, listenForUpdates(m.updates)
	case doneMsg:
		m.quitting = true
		return m, tea.Quit
	case tea.KeyMsg:
		// Raw mode turns ctrl+c into a key. The view keeps draining updates
		// until the driver stops at the next file boundary.
		if msg.String() == "ctrl+c" && !m.interrupted {
			m.interrupted = true
			if m.interrupt != nil {
				m.interrupt()
			}
		}
		return m, nil
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	default:
		return m, nil
	}
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	barWidth := 40
	if m.width > 0 {
		barWidth = int(math.Min(60, float64(m.width-10)))
		if barWidth < 20 {
			barWidth = 20
		}
	}

	ratio := 0.0
	if m.total > 0 {
		ratio = float64(m.files) / float64(m.total)
		if ratio > 1 {
			ratio = 1
		}
	}

	elapsed := time.Since(m.started).Round(time.Millisecond)
	errStyle := dimStyle
	if m.errors > 0 {
		errStyle = warnStyle
	}

	lines := []string{
		titleStyle.Render("camextract"),
		labelStyle.Render(fmt.Sprintf("Files: %d/%d", m.files, m.total)) + errStyle.Render(fmt.Sprintf("  errors:%d", m.errors)),
		labelStyle.Render(fmt.Sprintf("Outputs published: %d", m.published)),
		dimStyle.Render(fmt.Sprintf("Last: %s", paths.Base(m.current))),
		dimStyle.Render(fmt.Sprintf("Elapsed: %s", elapsed)),
		barStyle.Render(renderBar(barWidth, ratio)),
	}
	if m.interrupted {
		lines = append(lines, warnStyle.Render("Stopping after the current file..."))
	}

	return strings.Join(lines, "\n")
}

func listenForUpdates(updates <-chan extract.ProgressUpdate) tea.Cmd {
	return func() tea.Msg {
		update, ok := <-updates
		if !ok {
			return doneMsg{}
		}
		return updateMsg(update)
	}
}

func renderBar(width int, ratio float64) string {
	filled := int(math.Round(ratio * float64(width)))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + strings.Repeat("=", filled) + strings.Repeat(" ", width-filled) + "]"
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
	labelStyle = lipgloss.NewStyle().Foreground(ColorInk)
	barStyle   = lipgloss.NewStyle().Foreground(ColorAccentAlt)
	dimStyle   = lipgloss.NewStyle().Foreground(ColorDim)
	warnStyle  = lipgloss.NewStyle().Foreground(ColorWarn)
)

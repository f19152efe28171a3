package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// LoadModel represents the loading phase: the catalog is being read from
// the store or fetched from the daemon.
type LoadModel struct {
	spinner   spinner.Model
	startTime time.Time
	source    string
	width     int
	height    int
	err       error
}

// NewLoadModel creates a new loading model. Source names where the
// records come from ("store" or a daemon URL) for the status line.
func NewLoadModel(source string) LoadModel {
	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = lipgloss.NewStyle().Foreground(primaryColor)

	return LoadModel{
		spinner:   s,
		startTime: time.Now(),
		source:    source,
		width:     80,
		height:    24,
	}
}

// Init initializes the loading model.
func (m LoadModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles messages for the loading model.
func (m LoadModel) Update(msg tea.Msg) (LoadModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// SetDone records the load outcome. A nil error means the browser will
// take over; a non-nil error keeps this view up with the failure shown.
func (m *LoadModel) SetDone(err error) {
	m.err = err
}

// View renders the loading model.
func (m LoadModel) View() string {
	contentWidth := m.width - 4
	if contentWidth < 40 {
		contentWidth = 40
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(renderAppHeader(0, 0, 0, ""))
	b.WriteString("\n")
	b.WriteString(renderDivider(contentWidth))
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(errorTextStyle.Render(fmt.Sprintf("  Error: %v", m.err)))
		b.WriteString("\n\n")
		b.WriteString(center(keyStyle.Render("[q]")+" "+keyDescStyle.Render("Quit"), contentWidth))
	} else {
		b.WriteString(fmt.Sprintf("  %s Loading catalog from %s...", m.spinner.View(), m.source))
	}
	b.WriteString("\n")

	return outerBoxStyle.Width(m.width - 2).Render(b.String())
}

package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jamesainslie/roster/pkg/roster/filter"
	"github.com/jamesainslie/roster/pkg/roster/types"
)

// AppState represents the current state of the application.
type AppState int

const (
	StateLoading AppState = iota
	StateBrowsing
	StateDetail
)

// Options configures the TUI application.
type Options struct {
	// Source names where records come from, shown while loading
	// ("local store", "http://...").
	Source string

	// Load fetches the catalog. It runs once at startup.
	Load func(ctx context.Context) ([]types.Record, error)
}

// Model is the main Bubble Tea model for the roster browser.
type Model struct {
	state       AppState
	loadModel   LoadModel
	recordModel RecordModel
	options     Options

	// Loading state
	ctx      context.Context
	cancel   context.CancelFunc
	loadDone bool
	loadErr  error
	records  []types.Record

	// Browsing filter state
	filterInput textinput.Model
	typeFilter  types.PackageType // "" means all types
	editedOnly  bool

	// Window dimensions
	width  int
	height int
}

// loadCompleteMsg carries the result of the startup catalog load.
type loadCompleteMsg struct {
	records []types.Record
	err     error
}

// NewModel creates a new TUI model with the given options.
func NewModel(opts Options) Model {
	ctx, cancel := context.WithCancel(context.Background())

	ti := textinput.New()
	ti.Placeholder = "name, description, type:brew, edited:yes ..."
	ti.Prompt = "/ "
	ti.CharLimit = 120

	return Model{
		state:       StateLoading,
		loadModel:   NewLoadModel(opts.Source),
		options:     opts,
		ctx:         ctx,
		cancel:      cancel,
		filterInput: ti,
		width:       80,
		height:      24,
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.loadModel.Init(),
		m.startLoad(),
	)
}

// startLoad returns a command that fetches the catalog.
func (m Model) startLoad() tea.Cmd {
	return func() tea.Msg {
		recs, err := m.options.Load(m.ctx)
		return loadCompleteMsg{records: recs, err: err}
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.loadModel.width = msg.Width
		m.loadModel.height = msg.Height
		m.recordModel.SetDimensions(msg.Width, msg.Height)
		m.filterInput.Width = msg.Width - 10
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case loadCompleteMsg:
		m.loadDone = true
		m.loadErr = msg.err
		m.records = msg.records
		m.loadModel.SetDone(msg.err)

		if msg.err == nil {
			m.state = StateBrowsing
			m.recordModel = NewRecordModel(msg.records, len(msg.records))
			m.recordModel.SetDimensions(m.width, m.height)
		}
		return m, nil

	case spinner.TickMsg:
		if m.state == StateLoading {
			var cmd tea.Cmd
			m.loadModel.spinner, cmd = m.loadModel.spinner.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	return m, nil
}

// handleKey handles keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		m.cancel()
		return m, tea.Quit
	}

	switch m.state {
	case StateLoading:
		if key == "q" || key == "esc" {
			m.cancel()
			return m, tea.Quit
		}

	case StateBrowsing:
		if m.filterInput.Focused() {
			return m.handleFilterKey(msg)
		}
		switch key {
		case "q", "esc":
			return m, tea.Quit
		case "/":
			m.filterInput.Focus()
			return m, textinput.Blink
		case "t":
			m.typeFilter = nextTypeFilter(m.typeFilter)
			m.refilter()
		case "e":
			m.editedOnly = !m.editedOnly
			m.refilter()
		case "enter":
			if _, ok := m.recordModel.Current(); ok {
				m.state = StateDetail
			}
		default:
			m.recordModel.HandleKey(key)
		}

	case StateDetail:
		switch key {
		case "q", "esc", "enter":
			m.state = StateBrowsing
		}
	}

	return m, nil
}

// handleFilterKey routes input to the filter text field.
func (m Model) handleFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.filterInput.Blur()
		m.filterInput.SetValue("")
		m.refilter()
		return m, nil
	case "enter":
		m.filterInput.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.filterInput, cmd = m.filterInput.Update(msg)
	m.refilter()
	return m, cmd
}

// nextTypeFilter cycles all -> brew -> cask -> mas -> tap -> all.
func nextTypeFilter(t types.PackageType) types.PackageType {
	all := types.AllTypes()
	if t == "" {
		return all[0]
	}
	for i, pt := range all {
		if pt == t {
			if i == len(all)-1 {
				return ""
			}
			return all[i+1]
		}
	}
	return ""
}

// refilter reapplies the active filters to the loaded catalog.
func (m *Model) refilter() {
	f, err := filter.Parse(m.filterInput.Value())
	if err != nil {
		// Keep typing; an incomplete expression matches nothing special.
		f = filter.New()
	}
	if m.typeFilter != "" {
		f.Types = append(f.Types, m.typeFilter)
	}
	if m.editedOnly {
		edited := true
		f.Edited = &edited
	}

	m.recordModel.SetRecords(f.Apply(m.records),
		filterSummary(m.filterInput.Value(), m.typeFilter, m.editedOnly))
}

// View renders the current state.
func (m Model) View() string {
	switch m.state {
	case StateLoading:
		return m.loadModel.View()
	case StateBrowsing:
		return m.recordModel.View(m.renderFilterLine())
	case StateDetail:
		return m.recordModel.renderDetail()
	}
	return ""
}

// renderFilterLine renders the filter input row shown above the table.
func (m Model) renderFilterLine() string {
	if m.filterInput.Focused() {
		return " " + m.filterInput.View()
	}

	var parts []string
	if v := m.filterInput.Value(); v != "" {
		parts = append(parts, filterLabelStyle.Render("/"+v))
	}
	if m.typeFilter != "" {
		parts = append(parts, typeStyle.Render(string(m.typeFilter)))
	}
	if m.editedOnly {
		parts = append(parts, editedMarkStyle.Render("edited only"))
	}
	if len(parts) == 0 {
		return " " + mutedTextStyle.Render("press / to filter")
	}
	return " " + strings.Join(parts, "  ")
}

// Run starts the TUI application.
func Run(opts Options) error {
	model := NewModel(opts)

	p := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	_, err := p.Run()
	return err
}

package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jamesainslie/roster/pkg/roster/types"
)

// RecordModel renders the filtered record table and tracks the cursor.
type RecordModel struct {
	records []types.Record // currently visible rows
	total   int            // catalog size before filtering
	edited  int            // user-edited count in visible rows
	cursor  int
	offset  int // scroll offset
	width   int
	height  int
	summary string // active filter summary for the header
}

// NewRecordModel creates a record model over the given rows.
func NewRecordModel(records []types.Record, total int) RecordModel {
	m := RecordModel{
		records: records,
		total:   total,
		width:   80,
		height:  24,
	}
	m.recount()
	return m
}

// SetRecords replaces the visible rows, clamping the cursor.
func (m *RecordModel) SetRecords(records []types.Record, summary string) {
	m.records = records
	m.summary = summary
	m.recount()
	if m.cursor >= len(records) {
		m.cursor = len(records) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.offset = 0
	m.ensureVisible()
}

func (m *RecordModel) recount() {
	m.edited = 0
	for _, rec := range m.records {
		if rec.UserEdited {
			m.edited++
		}
	}
}

// SetDimensions updates the model's dimensions.
func (m *RecordModel) SetDimensions(width, height int) {
	m.width = width
	m.height = height
	m.ensureVisible()
}

// Current returns the record under the cursor.
func (m *RecordModel) Current() (types.Record, bool) {
	if m.cursor < 0 || m.cursor >= len(m.records) {
		return types.Record{}, false
	}
	return m.records[m.cursor], true
}

// HandleKey handles navigation input.
func (m *RecordModel) HandleKey(key string) {
	switch key {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
			m.ensureVisible()
		}

	case "down", "j":
		if m.cursor < len(m.records)-1 {
			m.cursor++
			m.ensureVisible()
		}

	case "home", "g":
		m.cursor = 0
		m.offset = 0

	case "end", "G":
		if len(m.records) > 0 {
			m.cursor = len(m.records) - 1
			m.ensureVisible()
		}

	case "pgup":
		m.cursor -= m.visibleRows()
		if m.cursor < 0 {
			m.cursor = 0
		}
		m.ensureVisible()

	case "pgdown":
		m.cursor += m.visibleRows()
		if m.cursor >= len(m.records) {
			m.cursor = len(m.records) - 1
		}
		m.ensureVisible()
	}
}

// visibleRows returns how many table rows fit on screen.
func (m *RecordModel) visibleRows() int {
	// Header, divider, filter line, divider, footer, borders.
	rows := m.height - 8
	if rows < 3 {
		rows = 3
	}
	return rows
}

// ensureVisible scrolls so the cursor stays on screen.
func (m *RecordModel) ensureVisible() {
	rows := m.visibleRows()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+rows {
		m.offset = m.cursor - rows + 1
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

// View renders the record table with the given filter input line.
func (m RecordModel) View(filterLine string) string {
	contentWidth := m.width - 4
	if contentWidth < 60 {
		contentWidth = 60
	}

	var b strings.Builder
	b.WriteString(renderAppHeader(len(m.records), m.total, m.edited, m.summary))
	b.WriteString("\n")
	b.WriteString(renderDivider(contentWidth))
	b.WriteString("\n")
	b.WriteString(filterLine)
	b.WriteString("\n")
	b.WriteString(renderDivider(contentWidth))
	b.WriteString("\n")

	if len(m.records) == 0 {
		b.WriteString("\n")
		b.WriteString(mutedTextStyle.Render("  No records match."))
		b.WriteString("\n")
	} else {
		rows := m.visibleRows()
		end := m.offset + rows
		if end > len(m.records) {
			end = len(m.records)
		}
		for i := m.offset; i < end; i++ {
			b.WriteString(m.renderRow(i, contentWidth))
			b.WriteString("\n")
		}
		if end < len(m.records) {
			b.WriteString(mutedTextStyle.Render(fmt.Sprintf("  ... %d more", len(m.records)-end)))
			b.WriteString("\n")
		}
	}

	b.WriteString(renderDivider(contentWidth))
	b.WriteString("\n")
	b.WriteString(m.renderFooter(contentWidth))

	return outerBoxStyle.Width(m.width - 2).Render(b.String())
}

// renderRow renders one table row.
func (m RecordModel) renderRow(i, width int) string {
	rec := m.records[i]

	cursor := "  "
	if i == m.cursor {
		cursor = cursorStyle.Render("> ")
	}

	mark := " "
	if rec.UserEdited {
		mark = editedMarkStyle.Render("*")
	}

	nameWidth := 24
	descWidth := width - nameWidth - 14
	if descWidth < 10 {
		descWidth = 10
	}

	line := fmt.Sprintf("%s%s %s %s %s",
		cursor,
		mark,
		typeStyle.Render(string(rec.Type)),
		padRight(truncate(rec.Name, nameWidth), nameWidth),
		truncate(rec.Description, descWidth),
	)

	if i == m.cursor {
		return selectedItemStyle.Render(line)
	}
	return normalItemStyle.Render(line)
}

// renderFooter renders the key hints line.
func (m RecordModel) renderFooter(width int) string {
	hints := []string{
		keyStyle.Render("↑/↓") + keyDescStyle.Render(" move"),
		keyStyle.Render("enter") + keyDescStyle.Render(" detail"),
		keyStyle.Render("/") + keyDescStyle.Render(" filter"),
		keyStyle.Render("t") + keyDescStyle.Render(" type"),
		keyStyle.Render("e") + keyDescStyle.Render(" edited"),
		keyStyle.Render("q") + keyDescStyle.Render(" quit"),
	}
	return " " + strings.Join(hints, "  ")
}

// renderDetail renders the detail pane for the record under the cursor.
func (m RecordModel) renderDetail() string {
	rec, ok := m.Current()
	if !ok {
		return ""
	}

	contentWidth := m.width - 10
	if contentWidth < 40 {
		contentWidth = 40
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(rec.Name))
	b.WriteString("  ")
	b.WriteString(typeStyle.Render(string(rec.Type)))
	if rec.UserEdited {
		b.WriteString("  ")
		b.WriteString(editedMarkStyle.Render("* edited " + rec.EditedAgo()))
	}
	b.WriteString("\n")
	b.WriteString(renderDivider(contentWidth))
	b.WriteString("\n\n")

	b.WriteString(mutedTextStyle.Render("Description"))
	b.WriteString("\n")
	if rec.Description != "" {
		b.WriteString(wordWrap(rec.Description, contentWidth))
	} else {
		b.WriteString(mutedTextStyle.Render("(none)"))
	}
	b.WriteString("\n\n")

	b.WriteString(mutedTextStyle.Render("Example"))
	b.WriteString("\n")
	if rec.Example != "" {
		b.WriteString(wordWrap(rec.Example, contentWidth))
	} else {
		b.WriteString(mutedTextStyle.Render("(none)"))
	}
	b.WriteString("\n")

	if rec.ExternalID != "" {
		b.WriteString("\n")
		b.WriteString(mutedTextStyle.Render("App Store ID: " + rec.ExternalID))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(keyStyle.Render("[esc]") + " " + keyDescStyle.Render("back"))

	detail := detailBoxStyle.Width(contentWidth + 4).Render(b.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, detail)
}

// wordWrap wraps text at word boundaries to fit the given width.
func wordWrap(s string, width int) string {
	if width < 10 {
		width = 10
	}

	var b strings.Builder
	line := 0
	for _, word := range strings.Fields(s) {
		if line > 0 && line+1+len(word) > width {
			b.WriteString("\n")
			line = 0
		} else if line > 0 {
			b.WriteString(" ")
			line++
		}
		b.WriteString(word)
		line += len(word)
	}
	return b.String()
}

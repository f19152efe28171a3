package output

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/jamesainslie/roster/pkg/roster/types"
)

// PrettyFormatter formats output with colors and styling using lipgloss.
// It produces a visually appealing output suitable for terminal display.
type PrettyFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PrettyFormatter) Format(w *bytes.Buffer, r *Result) error {
	header := f.formatHeader(r)
	w.WriteString(header)
	w.WriteString("\n")

	table := f.formatTable(r)
	w.WriteString(table)

	footer := f.formatFooter(r)
	w.WriteString(footer)

	return nil
}

// formatHeader builds the header box with catalog metadata.
func (f *PrettyFormatter) formatHeader(r *Result) string {
	var parts []string

	catalogLabel := LabelStyle.Render("Catalog:")
	catalogValue := ValueStyle.Render(fmt.Sprintf("%d records", r.Total))
	parts = append(parts, fmt.Sprintf("%s %s", catalogLabel, catalogValue))

	if !r.LastUpdate.IsZero() {
		updatedLabel := LabelStyle.Render("Updated:")
		updatedValue := MutedStyle.Render(humanize.Time(r.LastUpdate))
		parts = append(parts, fmt.Sprintf("%s %s", updatedLabel, updatedValue))
	}

	parts = append(parts, f.formatDaemonStatus(r.DaemonUp))

	lines := []string{strings.Join(parts, "  ")}

	if r.Query != "" {
		queryLabel := LabelStyle.Render("Query:")
		queryValue := ValueStyle.Render(r.Query)
		lines = append(lines, fmt.Sprintf("%s %s", queryLabel, queryValue))
	}

	return HeaderBox.Render(strings.Join(lines, "\n"))
}

// formatDaemonStatus returns a styled string indicating daemon status.
func (f *PrettyFormatter) formatDaemonStatus(daemonUp bool) string {
	if daemonUp {
		return SuccessStyle.Render("daemon: up")
	}
	return MutedStyle.Render("daemon: off")
}

// formatTable builds the record table with NAME, TYPE and DESCRIPTION columns.
func (f *PrettyFormatter) formatTable(r *Result) string {
	if len(r.Records) == 0 {
		return MutedStyle.Render("  No records match\n")
	}

	var sb strings.Builder

	nameWidth := len("NAME")
	typeWidth := len("TYPE")
	for _, rec := range r.Records {
		if w := len(rec.Name) + 2; w > nameWidth { // room for the edited marker
			nameWidth = w
		}
		if w := len(rec.Type); w > typeWidth {
			typeWidth = w
		}
	}

	nameHeader := TableHeaderStyle.Render(padRight("NAME", nameWidth))
	typeHeader := TableHeaderStyle.Render(padRight("TYPE", typeWidth))
	descHeader := TableHeaderStyle.Render("DESCRIPTION")
	sb.WriteString(fmt.Sprintf("  %s  %s  %s\n", nameHeader, typeHeader, descHeader))

	for _, rec := range r.Records {
		name := rec.Name
		if rec.UserEdited {
			name += " " + EditedStyle.Render("*")
			// The marker's ANSI codes would confuse padRight, pad manually.
			name += strings.Repeat(" ", nameWidth-len(rec.Name)-2)
		} else {
			name = padRight(name, nameWidth)
		}
		nameStr := NameStyle.Render(name)
		typeStr := TypeStyle.Render(padRight(string(rec.Type), typeWidth))
		descStr := ValueStyle.Render(rec.Description)
		sb.WriteString(fmt.Sprintf("  %s  %s  %s\n", nameStr, typeStr, descStr))
	}

	return sb.String()
}

// formatFooter builds the footer box with summary information.
func (f *PrettyFormatter) formatFooter(r *Result) string {
	var parts []string

	shownLabel := LabelStyle.Render("Shown:")
	shownValue := ValueStyle.Render(fmt.Sprintf("%d", len(r.Records)))
	parts = append(parts, fmt.Sprintf("%s %s", shownLabel, shownValue))

	counts := r.TypeCounts()
	var typeParts []string
	for _, pkgType := range types.AllTypes() {
		if n := counts[pkgType]; n > 0 {
			typeParts = append(typeParts, fmt.Sprintf("%s %d", pkgType, n))
		}
	}
	if len(typeParts) > 0 {
		parts = append(parts, MutedStyle.Render(strings.Join(typeParts, ", ")))
	}

	if edited := r.EditedCount(); edited > 0 {
		editedValue := EditedStyle.Render(fmt.Sprintf("%d edited *", edited))
		parts = append(parts, editedValue)
	}

	hint := MutedStyle.Render("Use -o plain for unformatted output")
	parts = append(parts, hint)

	return FooterBox.Render(strings.Join(parts, "  "))
}

// padRight pads a string with spaces on the right to achieve the desired width.
func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

func init() {
	Register("pretty", func() Formatter {
		return &PrettyFormatter{}
	})
}

// Ensure PrettyFormatter implements Formatter.
var _ Formatter = (*PrettyFormatter)(nil)

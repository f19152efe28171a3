package output

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
)

// TableFormatter formats output as an aligned text table.
// It produces a header row followed by one row per record, aligned with
// tabwriter. No colors or styling are applied.
type TableFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *TableFormatter) Format(w *bytes.Buffer, r *Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	if _, err := tw.Write([]byte("NAME\tTYPE\tDESCRIPTION\tEDITED\n")); err != nil {
		return err
	}

	for _, rec := range r.Records {
		edited := ""
		if rec.UserEdited {
			edited = "yes"
		}
		row := rec.Name + "\t" + string(rec.Type) + "\t" + rec.Description + "\t" + edited + "\n"
		if _, err := tw.Write([]byte(row)); err != nil {
			return err
		}
	}

	return tw.Flush()
}

func init() {
	Register("table", func() Formatter {
		return &TableFormatter{}
	})
}

// Ensure TableFormatter implements Formatter.
var _ Formatter = (*TableFormatter)(nil)

// csvHeader matches the snapshot artifact's field order, so the CSV view
// and the JSON artifact describe records with the same columns.
var csvHeader = []string{"name", "description", "example", "type", "external_id", "user_edited", "last_edited"}

// CSVFormatter formats output as comma-separated values with proper quoting.
// It uses encoding/csv for RFC 4180 compliant output.
type CSVFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *CSVFormatter) Format(w *bytes.Buffer, r *Result) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(csvHeader); err != nil {
		return err
	}

	for _, rec := range r.Records {
		row := []string{
			rec.Name,
			rec.Description,
			rec.Example,
			string(rec.Type),
			rec.ExternalID,
			strconv.FormatBool(rec.UserEdited),
			lastEditedString(rec),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func init() {
	Register("csv", func() Formatter {
		return &CSVFormatter{}
	})
}

// Ensure CSVFormatter implements Formatter.
var _ Formatter = (*CSVFormatter)(nil)

// MarkdownFormatter formats output as a GitHub-flavored Markdown table.
// It produces a table with header, separator, and data rows using | delimiters.
type MarkdownFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *MarkdownFormatter) Format(w *bytes.Buffer, r *Result) error {
	w.WriteString("| NAME | TYPE | DESCRIPTION | EXAMPLE |\n")
	w.WriteString("|------|------|-------------|--------|\n")

	for _, rec := range r.Records {
		fmt.Fprintf(w, "| %s | %s | %s | %s |\n",
			escapeMarkdownPipe(rec.Name),
			escapeMarkdownPipe(string(rec.Type)),
			escapeMarkdownPipe(rec.Description),
			escapeMarkdownPipe(rec.Example))
	}

	return nil
}

// escapeMarkdownPipe escapes pipe characters in a string for Markdown tables.
func escapeMarkdownPipe(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func init() {
	Register("markdown", func() Formatter {
		return &MarkdownFormatter{}
	})
}

// Ensure MarkdownFormatter implements Formatter.
var _ Formatter = (*MarkdownFormatter)(nil)

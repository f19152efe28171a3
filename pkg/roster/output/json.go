package output

import (
	"bytes"
	"encoding/json"
	"time"
)

// jsonOutput represents the full JSON output structure.
type jsonOutput struct {
	Records []jsonRecord `json:"records"`
	Summary jsonSummary  `json:"summary"`
}

// jsonRecord represents a catalog record in JSON output. Field order
// follows the snapshot artifact.
type jsonRecord struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Example     string `json:"example"`
	Type        string `json:"type"`
	ExternalID  string `json:"external_id"`
	UserEdited  bool   `json:"user_edited"`
	LastEdited  string `json:"last_edited"`
}

// jsonSummary represents listing metadata in JSON output.
type jsonSummary struct {
	Shown      int            `json:"shown"`
	Total      int            `json:"total"`
	Edited     int            `json:"edited"`
	ByType     map[string]int `json:"by_type"`
	Query      string         `json:"query,omitempty"`
	LastUpdate string         `json:"last_update,omitempty"`
	DaemonUp   bool           `json:"daemon_up"`
}

// JSONFormatter formats output as a single indented JSON object.
// It produces a complete JSON document with records and summary sections.
type JSONFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *JSONFormatter) Format(w *bytes.Buffer, r *Result) error {
	output := f.buildOutput(r)

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

// buildOutput converts Result to the JSON output structure.
func (f *JSONFormatter) buildOutput(r *Result) jsonOutput {
	records := make([]jsonRecord, len(r.Records))
	for i, rec := range r.Records {
		records[i] = jsonRecord{
			Name:        rec.Name,
			Description: rec.Description,
			Example:     rec.Example,
			Type:        string(rec.Type),
			ExternalID:  rec.ExternalID,
			UserEdited:  rec.UserEdited,
			LastEdited:  lastEditedString(rec),
		}
	}

	byType := make(map[string]int)
	for pkgType, count := range r.TypeCounts() {
		byType[string(pkgType)] = count
	}

	summary := jsonSummary{
		Shown:      len(r.Records),
		Total:      r.Total,
		Edited:     r.EditedCount(),
		ByType:     byType,
		Query:      r.Query,
		LastUpdate: formatTimeString(r.LastUpdate),
		DaemonUp:   r.DaemonUp,
	}

	return jsonOutput{
		Records: records,
		Summary: summary,
	}
}

// formatTimeString formats a timestamp for JSON output, empty when zero.
func formatTimeString(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func init() {
	Register("json", func() Formatter {
		return &JSONFormatter{}
	})
}

// Ensure JSONFormatter implements Formatter.
var _ Formatter = (*JSONFormatter)(nil)

// JSONLFormatter formats output as newline-delimited JSON (one record per line).
// Each record is written as a compact JSON object on its own line.
// This format is suitable for streaming processing with tools like jq.
type JSONLFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *JSONLFormatter) Format(w *bytes.Buffer, r *Result) error {
	for _, rec := range r.Records {
		jr := jsonRecord{
			Name:        rec.Name,
			Description: rec.Description,
			Example:     rec.Example,
			Type:        string(rec.Type),
			ExternalID:  rec.ExternalID,
			UserEdited:  rec.UserEdited,
			LastEdited:  lastEditedString(rec),
		}

		data, err := json.Marshal(jr)
		if err != nil {
			return err
		}
		w.Write(data)
		w.WriteByte('\n')
	}
	return nil
}

func init() {
	Register("jsonl", func() Formatter {
		return &JSONLFormatter{}
	})
}

// Ensure JSONLFormatter implements Formatter.
var _ Formatter = (*JSONLFormatter)(nil)

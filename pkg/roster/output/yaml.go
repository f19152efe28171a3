package output

import (
	"bytes"

	"gopkg.in/yaml.v3"
)

// yamlOutput represents the full YAML output structure.
type yamlOutput struct {
	Records []yamlRecord `yaml:"records"`
	Summary yamlSummary  `yaml:"summary"`
}

// yamlRecord represents a catalog record in YAML output.
type yamlRecord struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Example     string `yaml:"example"`
	Type        string `yaml:"type"`
	ExternalID  string `yaml:"external_id"`
	UserEdited  bool   `yaml:"user_edited"`
	LastEdited  string `yaml:"last_edited"`
}

// yamlSummary represents listing metadata in YAML output.
type yamlSummary struct {
	Shown      int            `yaml:"shown"`
	Total      int            `yaml:"total"`
	Edited     int            `yaml:"edited"`
	ByType     map[string]int `yaml:"by_type"`
	Query      string         `yaml:"query,omitempty"`
	LastUpdate string         `yaml:"last_update,omitempty"`
	DaemonUp   bool           `yaml:"daemon_up"`
}

// YAMLFormatter formats output as YAML.
// It produces the same structure as JSONFormatter but in YAML format.
type YAMLFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *YAMLFormatter) Format(w *bytes.Buffer, r *Result) error {
	output := f.buildOutput(r)

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(output); err != nil {
		return err
	}
	return encoder.Close()
}

// buildOutput converts Result to the YAML output structure.
func (f *YAMLFormatter) buildOutput(r *Result) yamlOutput {
	records := make([]yamlRecord, len(r.Records))
	for i, rec := range r.Records {
		records[i] = yamlRecord{
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

	summary := yamlSummary{
		Shown:      len(r.Records),
		Total:      r.Total,
		Edited:     r.EditedCount(),
		ByType:     byType,
		Query:      r.Query,
		LastUpdate: formatTimeString(r.LastUpdate),
		DaemonUp:   r.DaemonUp,
	}

	return yamlOutput{
		Records: records,
		Summary: summary,
	}
}

func init() {
	Register("yaml", func() Formatter {
		return &YAMLFormatter{}
	})
}

// Ensure YAMLFormatter implements Formatter.
var _ Formatter = (*YAMLFormatter)(nil)

package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/viper"

	"github.com/jamesainslie/roster/pkg/roster/filter"
	"github.com/jamesainslie/roster/pkg/roster/output"
	"github.com/jamesainslie/roster/pkg/roster/types"
)

// Listing flag variables shared by list and the server-mode variants.
var (
	filterQuery string
	typeNames   []string
	editedOnly  bool
	notEdited   bool
	templateStr string
)

// buildFilter creates a filter.Filter from the listing flags. The --filter
// expression carries the full query grammar; --type and --edited layer on
// top of it.
func buildFilter() (*filter.Filter, error) {
	f, err := filter.Parse(filterQuery)
	if err != nil {
		return nil, fmt.Errorf("invalid filter %q: %w", filterQuery, err)
	}

	for _, name := range typeNames {
		typ, err := types.ParseType(name)
		if err != nil {
			return nil, fmt.Errorf("invalid type %q: %w", name, err)
		}
		f.Types = append(f.Types, typ)
	}

	if editedOnly && notEdited {
		return nil, fmt.Errorf("--edited and --not-edited are mutually exclusive")
	}
	if editedOnly {
		v := true
		f.Edited = &v
	}
	if notEdited {
		v := false
		f.Edited = &v
	}

	return f, nil
}

// getFormatter resolves the --output flag to a registered formatter. The
// template formatter additionally consumes --template.
func getFormatter() (output.Formatter, error) {
	name := viper.GetString("output")

	if name == "template" {
		if templateStr == "" {
			return nil, fmt.Errorf("--template is required with -o template")
		}
		return output.NewTemplateFormatter(templateStr), nil
	}

	formatter, err := output.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unknown output format %q (available: %v)", name, output.Available())
	}
	return formatter, nil
}

// renderRecords formats a record listing to stdout.
func renderRecords(res *output.Result) error {
	formatter, err := getFormatter()
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := formatter.Format(&buf, res); err != nil {
		return fmt.Errorf("formatting output: %w", err)
	}

	_, err = buf.WriteTo(os.Stdout)
	return err
}

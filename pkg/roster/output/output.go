// Package output provides formatters for displaying catalog listings in
// various output formats (pretty, plain, json, yaml, csv, etc.).
//
// The package uses a registry pattern to allow registration of multiple
// formatter implementations that can be selected at runtime.
//
// Basic usage:
//
//	formatter, err := output.Get("pretty")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	var buf bytes.Buffer
//	if err := formatter.Format(&buf, result); err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Print(buf.String())
package output

import (
	"bytes"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jamesainslie/roster/pkg/roster/types"
)

// Result contains the complete listing data for formatting.
type Result struct {
	// Records are the catalog records to render, sorted by name.
	Records []types.Record `json:"records" yaml:"records"`

	// Total is the catalog size before any filtering.
	Total int `json:"total" yaml:"total"`

	// Query is the filter expression that produced this listing,
	// empty for a full listing.
	Query string `json:"query,omitempty" yaml:"query,omitempty"`

	// LastUpdate is the baseline timestamp of the last completed
	// update, zero when no update has run.
	LastUpdate time.Time `json:"last_update,omitempty" yaml:"last_update,omitempty"`

	// DaemonUp indicates whether the background daemon is running.
	DaemonUp bool `json:"daemon_up" yaml:"daemon_up"`
}

// TypeCounts returns the number of rendered records per package type.
func (r *Result) TypeCounts() map[types.PackageType]int {
	counts := make(map[types.PackageType]int)
	for _, rec := range r.Records {
		counts[rec.Type]++
	}
	return counts
}

// EditedCount returns the number of rendered records with user edits.
func (r *Result) EditedCount() int {
	n := 0
	for _, rec := range r.Records {
		if rec.UserEdited {
			n++
		}
	}
	return n
}

// Formatter is the interface that all output formatters must implement.
type Formatter interface {
	// Format writes the formatted output to the buffer.
	// It returns an error if formatting fails.
	Format(w *bytes.Buffer, r *Result) error
}

// FormatterFactory is a function that creates a new Formatter instance.
type FormatterFactory func() Formatter

// Registry manages formatter registration and lookup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]FormatterFactory
}

// NewRegistry creates a new formatter registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]FormatterFactory),
	}
}

// Register adds a formatter factory to the registry.
// It will replace any existing formatter with the same name.
func (r *Registry) Register(name string, factory FormatterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get returns a new formatter instance by name.
// It returns an error if the formatter is not found.
func (r *Registry) Get(name string) (Formatter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown formatter: %s", name)
	}
	return factory(), nil
}

// Available returns a sorted list of all registered formatter names.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global formatter registry.
var DefaultRegistry = NewRegistry()

// Register adds a formatter factory to the default registry.
func Register(name string, factory FormatterFactory) {
	DefaultRegistry.Register(name, factory)
}

// Get returns a new formatter instance from the default registry.
func Get(name string) (Formatter, error) {
	return DefaultRegistry.Get(name)
}

// Available returns all formatter names from the default registry.
func Available() []string {
	return DefaultRegistry.Available()
}

// lastEditedString renders a record's edit timestamp as RFC3339, or the
// empty string when the record was never edited.
func lastEditedString(rec types.Record) string {
	if rec.LastEdited == nil {
		return ""
	}
	return rec.LastEdited.UTC().Format(time.RFC3339)
}

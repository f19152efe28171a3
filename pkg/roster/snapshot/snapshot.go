// Package snapshot writes the exported catalog artifact. The artifact is
// the public face of the store: a JSON array of flattened records in a
// fixed field order, consumed by documentation tooling and external
// readers. Export is a pure function of the store's current listing and
// replaces the previous artifact atomically, so readers never observe a
// half-written file.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jamesainslie/roster/pkg/roster/store"
	"github.com/jamesainslie/roster/pkg/roster/types"
)

// Entry is one flattened record in the artifact. Field order is part of
// the public contract and must not change. LastEdited is RFC3339 or the
// empty string, never omitted; ExternalID likewise is always present.
type Entry struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Example     string `json:"example"`
	Type        string `json:"type"`
	ExternalID  string `json:"external_id"`
	UserEdited  bool   `json:"user_edited"`
	LastEdited  string `json:"last_edited"`
}

// FromRecord flattens a record into its artifact form.
func FromRecord(rec types.Record) Entry {
	e := Entry{
		Name:        rec.Name,
		Description: rec.Description,
		Example:     rec.Example,
		Type:        string(rec.Type),
		ExternalID:  rec.ExternalID,
		UserEdited:  rec.UserEdited,
	}
	if rec.LastEdited != nil {
		e.LastEdited = rec.LastEdited.UTC().Format(time.RFC3339)
	}
	return e
}

// Record converts an artifact entry back into a catalog record.
func (e Entry) Record() (types.Record, error) {
	typ, err := types.ParseType(e.Type)
	if err != nil {
		return types.Record{}, fmt.Errorf("entry %q: %w", e.Name, err)
	}

	rec := types.Record{
		Name:        e.Name,
		Type:        typ,
		Description: e.Description,
		Example:     e.Example,
		ExternalID:  e.ExternalID,
		UserEdited:  e.UserEdited,
	}

	if e.LastEdited != "" {
		ts, err := time.Parse(time.RFC3339, e.LastEdited)
		if err != nil {
			return types.Record{}, fmt.Errorf("entry %q: parsing last_edited: %w", e.Name, err)
		}
		rec.LastEdited = &ts
	}

	return rec, nil
}

// Result reports what an export produced.
type Result struct {
	Path    string
	Records int
}

// Exporter renders the store's listing into the artifact file.
type Exporter struct {
	store store.Store
	path  string
}

// NewExporter returns an exporter writing to the given path.
func NewExporter(st store.Store, path string) *Exporter {
	return &Exporter{store: st, path: path}
}

// Path returns the artifact location.
func (e *Exporter) Path() string {
	return e.path
}

// Export writes the artifact from the store's current listing. The store
// is only read, never written. An empty catalog exports as an empty array.
func (e *Exporter) Export(ctx context.Context) (Result, error) {
	recs, err := e.store.List(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("listing records: %w", err)
	}

	entries := make([]Entry, len(recs))
	for i, rec := range recs {
		entries[i] = FromRecord(rec)
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return Result{}, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(e.path), 0o755); err != nil {
		return Result{}, fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	// Write atomically using a temp file and rename
	tmpPath := e.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return Result{}, fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tmpPath, e.path); err != nil {
		_ = os.Remove(tmpPath)
		return Result{}, fmt.Errorf("failed to rename temp file: %w", err)
	}

	return Result{Path: e.path, Records: len(entries)}, nil
}

// Read parses an artifact file back into entries.
func Read(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing snapshot %s: %w", path, err)
	}

	return entries, nil
}

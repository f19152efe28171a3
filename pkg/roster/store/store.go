// Package store persists catalog records and implements the merge-upsert
// contract that keeps user-authored fields intact across regeneration
// passes. Two interchangeable backends are provided: an embedded Badger
// database and a plain JSON file. The backend is selected once at startup
// via Open; callers only ever see the Store interface.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jamesainslie/roster/pkg/roster/config"
	"github.com/jamesainslie/roster/pkg/roster/types"
)

// ErrNotFound indicates that no record exists for the requested key.
var ErrNotFound = errors.New("store: record not found")

// ErrNoFields indicates an edit request that names no fields.
var ErrNoFields = errors.New("store: edit has no fields to apply")

// EditFields carries the fields of a user edit. A nil pointer means "leave
// the field alone"; a pointer to an empty string is an explicit clear.
type EditFields struct {
	Description *string
	Example     *string
}

// Empty reports whether the edit names no fields at all.
func (f EditFields) Empty() bool {
	return f.Description == nil && f.Example == nil
}

// Store is the record store contract. Both backends implement it and run
// the same contract test suite, so merge semantics cannot drift between
// them.
//
// Every method is a single atomic unit. Writers to the same name must
// serialize; writers to different names may proceed independently.
type Store interface {
	// Get returns the record with the given name. When several types share
	// the name, the record with the lowest canonical type order wins.
	// Returns ErrNotFound when no record exists.
	Get(ctx context.Context, name string) (types.Record, error)

	// GetByKey returns the record with the given name and type.
	// Returns ErrNotFound when no record exists.
	GetByKey(ctx context.Context, name string, typ types.PackageType) (types.Record, error)

	// List returns every record in canonical catalog order.
	List(ctx context.Context) ([]types.Record, error)

	// MergeUpsert inserts the candidate or merges it into the existing
	// record with the same (name, type), preserving user-authored fields.
	MergeUpsert(ctx context.Context, cand types.Candidate) error

	// ApplyUserEdit overwrites the provided fields on every record with the
	// given name, marks them user-edited, and stamps the edit time. Returns
	// the primary record (lowest type order), ErrNotFound when the name is
	// unknown, or ErrNoFields when the edit is empty.
	ApplyUserEdit(ctx context.Context, name string, fields EditFields) (types.Record, error)

	// Count returns the number of records in the store.
	Count(ctx context.Context) (int, error)

	// Close releases the backend.
	Close() error
}

// Open opens the record store backend selected by the configuration.
func Open(cfg *config.Config) (Store, error) {
	switch cfg.Store.Backend {
	case config.BackendBadger:
		return OpenBadger(cfg.StorePath())
	case config.BackendFile:
		return OpenFile(cfg.StorePath())
	default:
		return nil, fmt.Errorf("store: unknown backend %q", cfg.Store.Backend)
	}
}

// mergeRecord applies the merge-upsert rules to a candidate and the
// existing record under the same (name, type), nil on first sighting.
// Both backends persist exactly what this returns.
//
// Rules:
//   - absent: insert the candidate verbatim, not user-edited, never edited.
//   - present and user-edited: keep Description and Example unless the
//     existing value is empty, refresh Type and ExternalID, leave
//     LastEdited alone.
//   - present and not user-edited: overwrite Description, Example, Type,
//     and ExternalID from the candidate wholesale.
func mergeRecord(existing *types.Record, cand types.Candidate) types.Record {
	if existing == nil {
		return types.Record{
			Name:        cand.Name,
			Type:        cand.Type,
			Description: cand.Description,
			Example:     cand.Example,
			ExternalID:  cand.ExternalID,
		}
	}

	merged := *existing
	merged.Type = cand.Type
	merged.ExternalID = cand.ExternalID

	if merged.UserEdited {
		if merged.Description == "" {
			merged.Description = cand.Description
		}
		if merged.Example == "" {
			merged.Example = cand.Example
		}
		return merged
	}

	merged.Description = cand.Description
	merged.Example = cand.Example
	return merged
}

// applyEdit overwrites the provided fields and stamps the edit. The caller
// is the authority for the fields it names, so this is a point-in-time
// overwrite, not a merge.
func applyEdit(rec *types.Record, fields EditFields, now time.Time) {
	if fields.Description != nil {
		rec.Description = *fields.Description
	}
	if fields.Example != nil {
		rec.Example = *fields.Example
	}
	rec.UserEdited = true
	edited := now
	rec.LastEdited = &edited
}

// primaryRecord picks the record with the lowest canonical type order.
// Used when an operation addresses records by name alone.
func primaryRecord(recs []types.Record) types.Record {
	best := recs[0]
	for _, rec := range recs[1:] {
		if rec.Type.Order() < best.Type.Order() {
			best = rec
		}
	}
	return best
}

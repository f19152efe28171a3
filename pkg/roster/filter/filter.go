// Package filter matches catalog records against query expressions.
// Queries combine free-text terms with key:value refinements; the same
// expressions drive the list command, the search API, and the browser.
package filter

import (
	"strings"

	"github.com/jamesainslie/roster/pkg/roster/types"
)

// Filter defines criteria for narrowing a record list.
type Filter struct {
	// Terms are free-text terms. A record must contain every term in
	// its name or description, case-insensitively.
	Terms []string

	// Types restricts matches to the given package types.
	// Empty means all types.
	Types []types.PackageType

	// Edited, when non-nil, restricts matches by the user-edited flag.
	Edited *bool
}

// Option is a functional option for configuring a Filter.
type Option func(*Filter)

// New creates a Filter with the given options. A Filter with no options
// matches every record.
func New(opts ...Option) *Filter {
	f := &Filter{}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// WithTerms adds free-text terms. Terms are lowercased.
func WithTerms(terms ...string) Option {
	return func(f *Filter) {
		for _, term := range terms {
			if term == "" {
				continue
			}
			f.Terms = append(f.Terms, strings.ToLower(term))
		}
	}
}

// WithTypes restricts matches to the given package types.
func WithTypes(pkgTypes ...types.PackageType) Option {
	return func(f *Filter) {
		f.Types = append(f.Types, pkgTypes...)
	}
}

// WithEdited restricts matches by the user-edited flag.
func WithEdited(edited bool) Option {
	return func(f *Filter) {
		f.Edited = &edited
	}
}

// Empty reports whether the filter has no criteria at all.
func (f *Filter) Empty() bool {
	return len(f.Terms) == 0 && len(f.Types) == 0 && f.Edited == nil
}

// Match returns true if the record satisfies every criterion.
func (f *Filter) Match(rec types.Record) bool {
	if !f.matchType(rec) {
		return false
	}
	if !f.matchEdited(rec) {
		return false
	}
	return f.matchTerms(rec)
}

func (f *Filter) matchType(rec types.Record) bool {
	if len(f.Types) == 0 {
		return true
	}
	for _, t := range f.Types {
		if rec.Type == t {
			return true
		}
	}
	return false
}

func (f *Filter) matchEdited(rec types.Record) bool {
	return f.Edited == nil || *f.Edited == rec.UserEdited
}

func (f *Filter) matchTerms(rec types.Record) bool {
	if len(f.Terms) == 0 {
		return true
	}
	haystack := strings.ToLower(rec.Name) + " " + strings.ToLower(rec.Description)
	for _, term := range f.Terms {
		if !strings.Contains(haystack, term) {
			return false
		}
	}
	return true
}

// Apply returns the records that match, preserving input order. The store
// lists records sorted by name, and that order carries through here.
func (f *Filter) Apply(recs []types.Record) []types.Record {
	if f.Empty() {
		return recs
	}
	matched := make([]types.Record, 0, len(recs))
	for _, rec := range recs {
		if f.Match(rec) {
			matched = append(matched, rec)
		}
	}
	return matched
}

// Package types provides core data types for the roster catalog engine.
// It includes the catalog record structure, the package-type enumeration,
// and utility functions for parsing, ordering, and formatting records.
package types

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// PackageType identifies which manifest category a record came from.
type PackageType string

// The four manifest categories tracked by the catalog.
const (
	// TypeBrew is a formula installed with `brew "name"`.
	TypeBrew PackageType = "brew"

	// TypeCask is a desktop application installed with `cask "name"`.
	TypeCask PackageType = "cask"

	// TypeMAS is a Mac App Store application installed with `mas "name", id: N`.
	TypeMAS PackageType = "mas"

	// TypeTap is a third-party repository added with `tap "user/repo"`.
	TypeTap PackageType = "tap"
)

// AllTypes returns every package type in canonical order.
// The order is stable and used as the tiebreak when several records
// share a name.
func AllTypes() []PackageType {
	return []PackageType{TypeBrew, TypeCask, TypeMAS, TypeTap}
}

// typeOrder assigns each type its position in the canonical ordering.
var typeOrder = map[PackageType]int{
	TypeBrew: 0,
	TypeCask: 1,
	TypeMAS:  2,
	TypeTap:  3,
}

// ErrInvalidType indicates that a package-type string was not recognized.
var ErrInvalidType = errors.New("invalid package type")

// ParseType parses a package-type string. Matching is case-insensitive
// and surrounding whitespace is ignored.
//
// Returns ErrInvalidType if the string is not one of brew, cask, mas, tap.
func ParseType(s string) (PackageType, error) {
	switch PackageType(strings.ToLower(strings.TrimSpace(s))) {
	case TypeBrew:
		return TypeBrew, nil
	case TypeCask:
		return TypeCask, nil
	case TypeMAS:
		return TypeMAS, nil
	case TypeTap:
		return TypeTap, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidType, s)
	}
}

// Valid reports whether t is one of the four known package types.
func (t PackageType) Valid() bool {
	_, ok := typeOrder[t]
	return ok
}

// Order returns the type's position in the canonical ordering.
// Unknown types sort after the known ones.
func (t PackageType) Order() int {
	if n, ok := typeOrder[t]; ok {
		return n
	}
	return len(typeOrder)
}

// Record is one catalog entry, unique within (Name, Type).
// Records are created by regeneration passes and mutated either by later
// passes (merge-upsert, preserving user-authored fields) or by direct
// user edits.
type Record struct {
	// Name is the package name as it appears in the manifest.
	Name string `json:"name"`

	// Type is the manifest category the record belongs to.
	Type PackageType `json:"type"`

	// Description is a human- or machine-authored summary.
	Description string `json:"description"`

	// Example is a usage hint, typically a one-line command.
	Example string `json:"example"`

	// ExternalID is an optional store identifier; only meaningful for
	// TypeMAS records.
	ExternalID string `json:"external_id,omitempty"`

	// UserEdited is set once any user edit has been applied. Once true it
	// stays true; regeneration never clears it.
	UserEdited bool `json:"user_edited"`

	// LastEdited is the time of the most recent user edit, nil if the
	// record has never been edited.
	LastEdited *time.Time `json:"last_edited,omitempty"`
}

// Key returns the record's natural key, unique across the catalog.
func (r *Record) Key() string {
	return string(r.Type) + ":" + r.Name
}

// EditedAgo returns the time since the last user edit as a human-readable
// string ("3 days ago"), or an empty string if the record was never edited.
func (r *Record) EditedAgo() string {
	if r.LastEdited == nil {
		return ""
	}
	return humanize.Time(*r.LastEdited)
}

// Candidate is a record draft produced by parsing manifests, before it is
// merged into persisted state. Description and Example are filled in by a
// description provider between parsing and merge.
type Candidate struct {
	// Name is the package name parsed from the manifest line.
	Name string `json:"name"`

	// Type is the manifest category the line came from.
	Type PackageType `json:"type"`

	// ExternalID is the store identifier, when the manifest line carries one.
	ExternalID string `json:"external_id,omitempty"`

	// Description is the generated or looked-up summary.
	Description string `json:"description"`

	// Example is the generated usage hint.
	Example string `json:"example"`
}

// ErrInvalidCandidate indicates a candidate that cannot be merged.
var ErrInvalidCandidate = errors.New("invalid candidate")

// Validate checks that the candidate has a non-empty name and a known type.
func (c *Candidate) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidCandidate)
	}
	if !c.Type.Valid() {
		return fmt.Errorf("%w: %q has unknown type %q", ErrInvalidCandidate, c.Name, c.Type)
	}
	return nil
}

// Less reports whether record a orders before record b. The ordering is
// case-insensitive by name with the canonical type order as tiebreak, so it
// is total: no two distinct records compare equal.
func Less(a, b *Record) bool {
	an, bn := strings.ToLower(a.Name), strings.ToLower(b.Name)
	if an != bn {
		return an < bn
	}
	if a.Type != b.Type {
		return a.Type.Order() < b.Type.Order()
	}
	return a.Name < b.Name
}

// SortRecords sorts records in place into the canonical catalog order.
// Every listing and export uses this ordering so that snapshots diff
// deterministically.
func SortRecords(recs []Record) {
	sort.Slice(recs, func(i, j int) bool {
		return Less(&recs[i], &recs[j])
	})
}

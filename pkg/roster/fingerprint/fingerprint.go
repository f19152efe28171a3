// Package fingerprint computes and compares content hashes of tracked
// source files. It is the primitive all change detection builds on: a
// cycle only regenerates the catalog when some tracked manifest's digest
// differs from the last persisted set.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sort"
)

// Set maps an absolute source-file path to the SHA-256 hex digest of its
// content. A path absent from the set means the file did not exist when
// the set was taken.
type Set map[string]string

// Compute returns the SHA-256 hex digest of the file's content.
// A missing file is not an error: it returns an empty digest and nil.
// The digest depends on content only, never on metadata, so identical
// bytes always hash identically.
func Compute(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// Snapshot digests every existing path and returns the resulting set.
// Missing paths are simply absent from the set; any other I/O failure
// aborts the snapshot.
func Snapshot(paths []string) (Set, error) {
	set := make(Set, len(paths))
	for _, p := range paths {
		digest, err := Compute(p)
		if err != nil {
			return nil, err
		}
		if digest != "" {
			set[p] = digest
		}
	}
	return set, nil
}

// ChangeKind classifies how a tracked path changed between two sets.
type ChangeKind int

const (
	// Added means the path is new in the current set.
	Added ChangeKind = iota

	// Modified means the path exists in both sets with different digests.
	Modified

	// Deleted means the path was in the previous set but is gone now.
	Deleted
)

// String returns the kind as a lowercase word.
func (k ChangeKind) String() string {
	switch k {
	case Added:
		return "added"
	case Modified:
		return "modified"
	case Deleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Change is one tracked path that differs between two fingerprint sets.
type Change struct {
	Path string
	Kind ChangeKind
}

// String renders the change for reports. Deletions carry an explicit
// marker so they are never mistaken for modifications; added and modified
// paths render plainly.
func (c Change) String() string {
	if c.Kind == Deleted {
		return c.Path + " (deleted)"
	}
	return c.Path
}

// Diff compares the current set against the previous one. A path counts
// as changed when it is new, when its digest differs, or when it vanished
// (reported as Deleted). Changes are ordered by path, additions and
// modifications first, deletions last.
func Diff(current, previous Set) (bool, []Change) {
	var changes []Change

	paths := make([]string, 0, len(current))
	for p := range current {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		prev, ok := previous[p]
		switch {
		case !ok:
			changes = append(changes, Change{Path: p, Kind: Added})
		case prev != current[p]:
			changes = append(changes, Change{Path: p, Kind: Modified})
		}
	}

	deleted := make([]string, 0)
	for p := range previous {
		if _, ok := current[p]; !ok {
			deleted = append(deleted, p)
		}
	}
	sort.Strings(deleted)
	for _, p := range deleted {
		changes = append(changes, Change{Path: p, Kind: Deleted})
	}

	return len(changes) > 0, changes
}

// Equal reports whether two sets contain exactly the same paths and digests.
func (s Set) Equal(other Set) bool {
	if len(s) != len(other) {
		return false
	}
	for p, d := range s {
		if other[p] != d {
			return false
		}
	}
	return true
}

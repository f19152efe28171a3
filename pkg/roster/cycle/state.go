package cycle

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jamesainslie/roster/pkg/roster/fingerprint"
)

// State is the persisted record of past update cycles: when the catalog
// was last regenerated, the fingerprint baseline the next cycle diffs
// against, and the last failure if any. Nullable fields serialize as JSON
// null, never omitted.
type State struct {
	LastUpdate  *time.Time      `json:"last_update"`
	LastHashes  fingerprint.Set `json:"last_hashes"`
	UpdateCount int             `json:"update_count"`
	LastError   *string         `json:"last_error"`
}

// LoadState reads persisted state from path. A missing file is a zero
// state, not an error; a malformed file is an error the caller may choose
// to recover from by starting over.
func LoadState(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &State{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading update state: %w", err)
	}

	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing update state %s: %w", path, err)
	}
	return &s, nil
}

// Save writes the state atomically.
func (s *State) Save(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal update state: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	// Write atomically using a temp file and rename
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// RecordSuccess advances the baseline after a fully persisted pass.
func (s *State) RecordSuccess(now time.Time, hashes fingerprint.Set) {
	ts := now.UTC()
	s.LastUpdate = &ts
	s.LastHashes = hashes
	s.UpdateCount++
	s.LastError = nil
}

// RecordFailure notes a failed pass. The hash baseline is deliberately
// left alone so the next cycle retries against the same baseline.
func (s *State) RecordFailure(now time.Time, err error) {
	msg := fmt.Sprintf("%v at %s", err, now.UTC().Format(time.RFC3339))
	s.LastError = &msg
}

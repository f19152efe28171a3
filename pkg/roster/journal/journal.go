// Package journal persists per-cycle outcome records to the filesystem.
// Each completed cycle becomes one JSON file under the journal directory,
// so history survives process restarts and store migrations.
package journal

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jamesainslie/roster/pkg/roster/cycle"
)

// Entry is one persisted cycle outcome.
type Entry struct {
	ID           string        `json:"id"`
	StartedAt    time.Time     `json:"started_at"`
	FinishedAt   time.Time     `json:"finished_at"`
	Status       string        `json:"status"`
	DryRun       bool          `json:"dry_run,omitempty"`
	Changed      []string      `json:"changed,omitempty"`
	Merged       int           `json:"merged"`
	RecordErrors []RecordError `json:"record_errors,omitempty"`
	Error        string        `json:"error,omitempty"`
}

// RecordError is a per-record failure carried into the journal.
type RecordError struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Error string `json:"error"`
}

// Duration returns how long the cycle ran.
func (e *Entry) Duration() time.Duration {
	return e.FinishedAt.Sub(e.StartedAt)
}

// Journal manages cycle outcome files in a directory.
type Journal struct {
	dir string
	mu  sync.Mutex
}

// New creates a Journal over the given directory.
// The directory is not created until EnsureDir is called.
func New(dir string) (*Journal, error) {
	if dir == "" {
		return nil, errors.New("journal directory cannot be empty")
	}
	return &Journal{dir: dir}, nil
}

// EnsureDir creates the journal directory if it does not exist.
func (j *Journal) EnsureDir() error {
	return os.MkdirAll(j.dir, 0o755)
}

// LogCycle persists the outcome of one completed cycle and returns the
// created entry. Every terminal outcome is journaled, dry runs included;
// they carry the dry_run marker since they mutated nothing.
func (j *Journal) LogCycle(started time.Time, res cycle.Result) (*Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	entry := &Entry{
		ID:         generateID(started),
		StartedAt:  started.UTC(),
		FinishedAt: started.UTC().Add(res.Duration),
		Status:     string(res.Status),
		DryRun:     res.DryRun,
		Merged:     res.Merged,
	}
	for _, ch := range res.Changed {
		entry.Changed = append(entry.Changed, ch.String())
	}
	for _, re := range res.RecordErrors {
		entry.RecordErrors = append(entry.RecordErrors, RecordError{
			Name:  re.Name,
			Type:  string(re.Type),
			Error: re.Err.Error(),
		})
	}
	if res.Err != nil {
		entry.Error = res.Err.Error()
	}

	if err := j.writeEntry(entry); err != nil {
		return nil, fmt.Errorf("failed to write journal entry: %w", err)
	}

	return entry, nil
}

// writeEntry writes an entry to a JSON file in the journal directory.
func (j *Journal) writeEntry(entry *Entry) error {
	filePath := filepath.Join(j.dir, entry.ID+".json")

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	// Write atomically using a temp file and rename
	tmpPath := filePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tmpPath, filePath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// List returns journal entries sorted newest first.
// If limit is 0 or negative, all entries are returned.
func (j *Journal) List(limit int) ([]Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	files, err := os.ReadDir(j.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("failed to read journal directory: %w", err)
	}

	var entries []Entry
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}

		entry, err := j.readEntryFile(f.Name())
		if err != nil {
			// Skip files that can't be parsed
			continue
		}
		entries = append(entries, *entry)
	}

	sort.Slice(entries, func(i, k int) bool {
		return entries[i].StartedAt.After(entries[k].StartedAt)
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	if entries == nil {
		entries = []Entry{}
	}

	return entries, nil
}

// Get retrieves a specific entry by ID.
func (j *Journal) Get(id string) (*Entry, error) {
	if id == "" {
		return nil, errors.New("entry ID cannot be empty")
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	entry, err := j.readEntryFile(id + ".json")
	if err != nil {
		return nil, fmt.Errorf("entry not found: %s", id)
	}

	return entry, nil
}

// readEntryFile reads and parses a journal entry from a JSON file.
func (j *Journal) readEntryFile(filename string) (*Entry, error) {
	data, err := os.ReadFile(filepath.Join(j.dir, filename))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entry: %w", err)
	}

	return &entry, nil
}

// Cleanup removes entries older than retentionDays.
func (j *Journal) Cleanup(retentionDays int) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	files, err := os.ReadDir(j.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read journal directory: %w", err)
	}

	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}

		info, err := f.Info()
		if err != nil {
			continue
		}

		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(j.dir, f.Name())); err != nil {
				// Keep cleaning the rest
				continue
			}
		}
	}

	return nil
}

// generateID creates an ID like "sync-2025-06-01T10-30-00-1a2b3c4d".
// The timestamp keeps directory listings chronological; the random suffix
// keeps IDs unique when cycles finish within the same second.
func generateID(started time.Time) string {
	ts := started.UTC().Format("2006-01-02T15-04-05")
	return fmt.Sprintf("sync-%s-%s", ts, uuid.New().String()[:8])
}

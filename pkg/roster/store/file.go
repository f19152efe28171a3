package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jamesainslie/roster/pkg/roster/types"
)

// FileStore is the plain serialized-file backend. The whole catalog lives
// in one JSON array kept sorted on disk; a mutex serializes writers and
// every mutation rewrites the file atomically through a temp file.
type FileStore struct {
	mu   sync.RWMutex
	path string
	recs []types.Record
}

// OpenFile opens or creates a file-backed store at the given path.
// A missing file is an empty store, not an error.
func OpenFile(path string) (*FileStore, error) {
	s := &FileStore{path: path}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) load() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading record store: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, &s.recs); err != nil {
		return fmt.Errorf("parsing record store %s: %w", s.path, err)
	}

	types.SortRecords(s.recs)
	return nil
}

// flush rewrites the store file. Callers must hold the write lock.
func (s *FileStore) flush() error {
	types.SortRecords(s.recs)

	data, err := json.MarshalIndent(s.recs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal records: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	// Write atomically using a temp file and rename
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// find returns the index of the record with the given (name, type), or -1.
func (s *FileStore) find(name string, typ types.PackageType) int {
	for i := range s.recs {
		if s.recs[i].Name == name && s.recs[i].Type == typ {
			return i
		}
	}
	return -1
}

// Get returns the primary record for a name.
func (s *FileStore) Get(ctx context.Context, name string) (types.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []types.Record
	for i := range s.recs {
		if s.recs[i].Name == name {
			matches = append(matches, s.recs[i])
		}
	}
	if len(matches) == 0 {
		return types.Record{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	return primaryRecord(matches), nil
}

// GetByKey returns the record with the given name and type.
func (s *FileStore) GetByKey(ctx context.Context, name string, typ types.PackageType) (types.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.find(name, typ)
	if idx < 0 {
		return types.Record{}, fmt.Errorf("%w: %s %s", ErrNotFound, typ, name)
	}

	return s.recs[idx], nil
}

// List returns every record in canonical catalog order.
func (s *FileStore) List(ctx context.Context) ([]types.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.Record, len(s.recs))
	copy(out, s.recs)
	return out, nil
}

// MergeUpsert inserts or merges one candidate.
func (s *FileStore) MergeUpsert(ctx context.Context, cand types.Candidate) error {
	if err := cand.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var existing *types.Record
	idx := s.find(cand.Name, cand.Type)
	if idx >= 0 {
		rec := s.recs[idx]
		existing = &rec
	}

	merged := mergeRecord(existing, cand)
	if idx >= 0 {
		s.recs[idx] = merged
	} else {
		s.recs = append(s.recs, merged)
	}

	return s.flush()
}

// ApplyUserEdit edits every record with the given name.
func (s *FileStore) ApplyUserEdit(ctx context.Context, name string, fields EditFields) (types.Record, error) {
	if fields.Empty() {
		return types.Record{}, ErrNoFields
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	var edited []types.Record
	for i := range s.recs {
		if s.recs[i].Name != name {
			continue
		}
		applyEdit(&s.recs[i], fields, now)
		edited = append(edited, s.recs[i])
	}
	if len(edited) == 0 {
		return types.Record{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	if err := s.flush(); err != nil {
		return types.Record{}, err
	}

	return primaryRecord(edited), nil
}

// Count returns the number of records in the store.
func (s *FileStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.recs), nil
}

// Close is a no-op: every mutation already reached disk.
func (s *FileStore) Close() error {
	return nil
}

// put writes a record verbatim, provenance bits included. Migration only.
func (s *FileStore) put(rec types.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if idx := s.find(rec.Name, rec.Type); idx >= 0 {
		s.recs[idx] = rec
	} else {
		s.recs = append(s.recs, rec)
	}

	return s.flush()
}

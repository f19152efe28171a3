package cycle_test

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jamesainslie/roster/pkg/roster/cycle"
	"github.com/jamesainslie/roster/pkg/roster/fingerprint"
)

func TestLoadStateMissing(t *testing.T) {
	state, err := cycle.LoadState(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("LoadState() error = %v", err)
	}
	if state.LastUpdate != nil {
		t.Errorf("LastUpdate = %v, want nil", state.LastUpdate)
	}
	if state.UpdateCount != 0 {
		t.Errorf("UpdateCount = %d, want 0", state.UpdateCount)
	}
	if state.LastError != nil {
		t.Errorf("LastError = %q, want nil", *state.LastError)
	}
}

func TestLoadStateCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("seeding state file: %v", err)
	}
	if _, err := cycle.LoadState(path); err == nil {
		t.Fatal("LoadState() of corrupt file succeeded, want error")
	}
}

func TestStateRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	now := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)
	hashes := fingerprint.Set{"/tmp/Brewfile": "abc123"}

	state := &cycle.State{}
	state.RecordSuccess(now, hashes)
	if err := state.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := cycle.LoadState(path)
	if err != nil {
		t.Fatalf("LoadState() error = %v", err)
	}
	if loaded.LastUpdate == nil || !loaded.LastUpdate.Equal(now) {
		t.Errorf("LastUpdate = %v, want %v", loaded.LastUpdate, now)
	}
	if !loaded.LastHashes.Equal(hashes) {
		t.Errorf("LastHashes = %v, want %v", loaded.LastHashes, hashes)
	}
	if loaded.UpdateCount != 1 {
		t.Errorf("UpdateCount = %d, want 1", loaded.UpdateCount)
	}
	if loaded.LastError != nil {
		t.Errorf("LastError = %q, want nil", *loaded.LastError)
	}
}

func TestStateJSONShape(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	state := &cycle.State{}
	if err := state.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading state file: %v", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("state file is not a JSON object: %v", err)
	}
	for _, key := range []string{"last_update", "last_hashes", "update_count", "last_error"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("state file missing key %q", key)
		}
	}
	if string(raw["last_update"]) != "null" {
		t.Errorf("fresh last_update = %s, want null", raw["last_update"])
	}
	if string(raw["last_error"]) != "null" {
		t.Errorf("fresh last_error = %s, want null", raw["last_error"])
	}
}

func TestRecordSuccessAdvancesBaseline(t *testing.T) {
	state := &cycle.State{UpdateCount: 4}
	msg := "previous failure"
	state.LastError = &msg

	now := time.Now()
	hashes := fingerprint.Set{"/tmp/Brewfile": "deadbeef"}
	state.RecordSuccess(now, hashes)

	if state.UpdateCount != 5 {
		t.Errorf("UpdateCount = %d, want 5", state.UpdateCount)
	}
	if state.LastError != nil {
		t.Errorf("LastError = %q, want cleared", *state.LastError)
	}
	if !state.LastHashes.Equal(hashes) {
		t.Errorf("LastHashes = %v, want %v", state.LastHashes, hashes)
	}
	if state.LastUpdate == nil || !state.LastUpdate.Equal(now.UTC()) {
		t.Errorf("LastUpdate = %v, want %v", state.LastUpdate, now.UTC())
	}
}

func TestRecordFailureLeavesBaseline(t *testing.T) {
	// Failures must never advance the hash baseline or the update count;
	// otherwise the next cycle would see "no change" over a failed run.
	stamp := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	hashes := fingerprint.Set{"/tmp/Brewfile": "cafe"}

	state := &cycle.State{}
	state.RecordSuccess(stamp, hashes)

	failAt := time.Date(2025, 3, 2, 10, 15, 0, 0, time.UTC)
	state.RecordFailure(failAt, errors.New("producer exploded"))

	if state.UpdateCount != 1 {
		t.Errorf("UpdateCount = %d, want 1", state.UpdateCount)
	}
	if !state.LastHashes.Equal(hashes) {
		t.Errorf("LastHashes changed on failure: %v", state.LastHashes)
	}
	if state.LastUpdate == nil || !state.LastUpdate.Equal(stamp) {
		t.Errorf("LastUpdate = %v, want %v", state.LastUpdate, stamp)
	}
	if state.LastError == nil {
		t.Fatal("LastError = nil, want failure message")
	}
	if !strings.Contains(*state.LastError, "producer exploded") {
		t.Errorf("LastError = %q, missing cause", *state.LastError)
	}
	if !strings.Contains(*state.LastError, "2025-03-02T10:15:00Z") {
		t.Errorf("LastError = %q, missing timestamp", *state.LastError)
	}
}

func TestStateSaveAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")

	state := &cycle.State{}
	state.RecordSuccess(time.Now(), fingerprint.Set{"/a": "1"})
	if err := state.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	state.RecordSuccess(time.Now(), fingerprint.Set{"/a": "2"})
	if err := state.Save(path); err != nil {
		t.Fatalf("second Save() error = %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("reading state dir: %v", err)
	}
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".tmp") {
			t.Errorf("temp file %s left behind", entry.Name())
		}
	}
	if len(entries) != 1 {
		t.Errorf("state dir has %d entries, want 1", len(entries))
	}
}

func TestStateSaveCreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deep", "nested", "state.json")
	state := &cycle.State{}
	if err := state.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("state file not created: %v", err)
	}
}

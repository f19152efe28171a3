package store_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/jamesainslie/roster/pkg/roster/store"
	"github.com/jamesainslie/roster/pkg/roster/types"
)

func TestFileStoreMissingFile(t *testing.T) {
	s, err := store.OpenFile(filepath.Join(t.TempDir(), "records.json"))
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}
	defer s.Close()

	count, err := s.Count(context.Background())
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 0 {
		t.Errorf("missing file should open as empty store, count = %d", count)
	}
}

func TestFileStoreCreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "records.json")

	s, err := store.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}
	defer s.Close()

	mustMerge(t, s, types.Candidate{Name: "jq", Type: types.TypeBrew})

	if _, err := os.Stat(path); err != nil {
		t.Errorf("store file not created: %v", err)
	}
}

func TestFileStoreOnDiskFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.json")

	s, err := store.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}
	defer s.Close()

	mustMerge(t, s, types.Candidate{Name: "zoxide", Type: types.TypeBrew})
	mustMerge(t, s, types.Candidate{Name: "Alfred", Type: types.TypeCask})

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading store file: %v", err)
	}

	var recs []types.Record
	if err := json.Unmarshal(data, &recs); err != nil {
		t.Fatalf("store file is not a JSON record array: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d records on disk, want 2", len(recs))
	}
	if recs[0].Name != "Alfred" || recs[1].Name != "zoxide" {
		t.Errorf("on-disk order = [%s, %s], want canonical order", recs[0].Name, recs[1].Name)
	}
}

func TestFileStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.json")
	ctx := context.Background()

	s, err := store.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}

	mustMerge(t, s, types.Candidate{Name: "git", Type: types.TypeBrew, Description: "vcs"})
	edited, err := s.ApplyUserEdit(ctx, "git", store.EditFields{Example: strptr("git log")})
	if err != nil {
		t.Fatalf("ApplyUserEdit failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	s, err = store.OpenFile(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s.Close()

	rec, err := s.GetByKey(ctx, "git", types.TypeBrew)
	if err != nil {
		t.Fatalf("GetByKey after reopen failed: %v", err)
	}
	if rec.Example != "git log" || !rec.UserEdited {
		t.Errorf("record did not round-trip: %+v", rec)
	}
	if rec.LastEdited == nil || !rec.LastEdited.Equal(*edited.LastEdited) {
		t.Errorf("LastEdited = %v, want %v", rec.LastEdited, edited.LastEdited)
	}
}

func TestFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.json")
	if err := os.WriteFile(path, []byte("not json {"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := store.OpenFile(path); err == nil {
		t.Error("expected error opening corrupt store file")
	}
}

func TestFileStoreNoTempFileLeftBehind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "records.json")

	s, err := store.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}
	defer s.Close()

	mustMerge(t, s, types.Candidate{Name: "jq", Type: types.TypeBrew})

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if e.Name() != "records.json" {
			t.Errorf("unexpected file after flush: %s", e.Name())
		}
	}
}

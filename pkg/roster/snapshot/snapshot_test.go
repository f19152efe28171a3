package snapshot_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jamesainslie/roster/pkg/roster/snapshot"
	"github.com/jamesainslie/roster/pkg/roster/store"
	"github.com/jamesainslie/roster/pkg/roster/types"
)

func openSeededStore(t *testing.T) store.Store {
	t.Helper()
	ctx := context.Background()

	s, err := store.OpenFile(filepath.Join(t.TempDir(), "records.json"))
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	cands := []types.Candidate{
		{Name: "ripgrep", Type: types.TypeBrew, Description: "search tool", Example: "rg pattern"},
		{Name: "things", Type: types.TypeMAS, ExternalID: "904280696", Description: "tasks"},
		{Name: "homebrew/bundle", Type: types.TypeTap},
	}
	for _, cand := range cands {
		if err := s.MergeUpsert(ctx, cand); err != nil {
			t.Fatalf("MergeUpsert failed: %v", err)
		}
	}

	if _, err := s.ApplyUserEdit(ctx, "ripgrep", store.EditFields{
		Example: strptr("rg -n TODO"),
	}); err != nil {
		t.Fatalf("ApplyUserEdit failed: %v", err)
	}

	return s
}

func strptr(s string) *string { return &s }

func TestExport(t *testing.T) {
	s := openSeededStore(t)
	path := filepath.Join(t.TempDir(), "tools.json")

	res, err := snapshot.NewExporter(s, path).Export(context.Background())
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if res.Records != 3 {
		t.Errorf("Records = %d, want 3", res.Records)
	}
	if res.Path != path {
		t.Errorf("Path = %s, want %s", res.Path, path)
	}

	entries, err := snapshot.Read(path)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}

	// Canonical order: homebrew/bundle, ripgrep, things.
	if entries[0].Name != "homebrew/bundle" || entries[1].Name != "ripgrep" || entries[2].Name != "things" {
		t.Errorf("order = [%s, %s, %s]", entries[0].Name, entries[1].Name, entries[2].Name)
	}

	rg := entries[1]
	if !rg.UserEdited {
		t.Error("user_edited flag missing from artifact")
	}
	if rg.Example != "rg -n TODO" {
		t.Errorf("Example = %q", rg.Example)
	}
	if rg.LastEdited == "" {
		t.Error("edited record must carry an RFC3339 last_edited")
	}
	if _, err := time.Parse(time.RFC3339, rg.LastEdited); err != nil {
		t.Errorf("last_edited %q is not RFC3339: %v", rg.LastEdited, err)
	}

	mas := entries[2]
	if mas.ExternalID != "904280696" {
		t.Errorf("ExternalID = %q", mas.ExternalID)
	}
	if mas.LastEdited != "" {
		t.Errorf("never-edited record must export last_edited as empty, got %q", mas.LastEdited)
	}
}

func TestExportFieldOrder(t *testing.T) {
	s := openSeededStore(t)
	path := filepath.Join(t.TempDir(), "tools.json")

	if _, err := snapshot.NewExporter(s, path).Export(context.Background()); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	raw := string(data)

	// The artifact's field order is a public contract. Verify each key
	// appears before the next within the first object.
	keys := []string{
		`"name"`, `"description"`, `"example"`, `"type"`,
		`"external_id"`, `"user_edited"`, `"last_edited"`,
	}
	last := -1
	for _, key := range keys {
		idx := strings.Index(raw, key)
		if idx == -1 {
			t.Fatalf("key %s missing from artifact", key)
		}
		if idx < last {
			t.Errorf("key %s out of order", key)
		}
		last = idx
	}
}

func TestExportNeverOmitsFields(t *testing.T) {
	ctx := context.Background()
	s, err := store.OpenFile(filepath.Join(t.TempDir(), "records.json"))
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}
	defer s.Close()

	// A minimal record with every optional field empty.
	if err := s.MergeUpsert(ctx, types.Candidate{Name: "jq", Type: types.TypeBrew}); err != nil {
		t.Fatalf("MergeUpsert failed: %v", err)
	}

	path := filepath.Join(t.TempDir(), "tools.json")
	if _, err := snapshot.NewExporter(s, path).Export(ctx); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	for _, key := range []string{`"external_id"`, `"last_edited"`, `"user_edited"`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("artifact omits %s; every field must always be present", key)
		}
	}
}

func TestExportEmptyStore(t *testing.T) {
	s, err := store.OpenFile(filepath.Join(t.TempDir(), "records.json"))
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}
	defer s.Close()

	path := filepath.Join(t.TempDir(), "tools.json")
	res, err := snapshot.NewExporter(s, path).Export(context.Background())
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if res.Records != 0 {
		t.Errorf("Records = %d, want 0", res.Records)
	}

	entries, err := snapshot.Read(path)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("empty store must export an empty array, got %d entries", len(entries))
	}
}

func TestExportOverwritesAtomically(t *testing.T) {
	s := openSeededStore(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "tools.json")
	exp := snapshot.NewExporter(s, path)

	for i := 0; i < 2; i++ {
		if _, err := exp.Export(context.Background()); err != nil {
			t.Fatalf("Export %d failed: %v", i, err)
		}
	}

	files, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range files {
		if f.Name() != "tools.json" {
			t.Errorf("leftover file after export: %s", f.Name())
		}
	}

	entries, err := snapshot.Read(path)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(entries) != 3 {
		t.Errorf("got %d entries after re-export, want 3", len(entries))
	}
}

func TestExportCreatesParentDirs(t *testing.T) {
	s := openSeededStore(t)
	path := filepath.Join(t.TempDir(), "docs", "tools", "tools.json")

	if _, err := snapshot.NewExporter(s, path).Export(context.Background()); err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("artifact not created: %v", err)
	}
}

func TestEntryRecordRoundTrip(t *testing.T) {
	edited := time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)
	rec := types.Record{
		Name:        "things",
		Type:        types.TypeMAS,
		Description: "task manager",
		Example:     "mas install 904280696",
		ExternalID:  "904280696",
		UserEdited:  true,
		LastEdited:  &edited,
	}

	got, err := snapshot.FromRecord(rec).Record()
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	if got.Name != rec.Name || got.Type != rec.Type ||
		got.Description != rec.Description || got.Example != rec.Example ||
		got.ExternalID != rec.ExternalID || got.UserEdited != rec.UserEdited {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if got.LastEdited == nil || !got.LastEdited.Equal(edited) {
		t.Errorf("LastEdited = %v, want %v", got.LastEdited, edited)
	}
}

func TestEntryRecordInvalid(t *testing.T) {
	if _, err := (snapshot.Entry{Name: "x", Type: "rpm"}).Record(); err == nil {
		t.Error("expected error for unknown type")
	}
	if _, err := (snapshot.Entry{Name: "x", Type: "brew", LastEdited: "yesterday"}).Record(); err == nil {
		t.Error("expected error for malformed last_edited")
	}
}

func TestReadMissing(t *testing.T) {
	if _, err := snapshot.Read(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Error("expected error reading missing artifact")
	}
}

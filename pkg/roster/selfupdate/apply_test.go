package selfupdate

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

// findBackup locates the single run directory under <base>/self_update.
func findBackup(t *testing.T, base string) string {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(base, "self_update"))
	if err != nil {
		t.Fatalf("read backup dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("backup runs = %d, want 1", len(entries))
	}
	return filepath.Join(base, "self_update", entries[0].Name())
}

func TestApplyBacksUpBeforeOverwrite(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	backups := t.TempDir()
	writeTree(t, src, map[string]string{"app.py": "new code"})
	writeTree(t, dst, map[string]string{"app.py": "old code"})

	pl := &Planner{Source: src, Dest: dst, BackupDir: backups}
	plan, err := pl.Plan(context.Background())
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	report, err := pl.Apply(context.Background(), plan)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if report.Updated != 1 {
		t.Errorf("Updated = %d, want 1", report.Updated)
	}
	if got := readFile(t, filepath.Join(dst, "app.py")); got != "new code" {
		t.Errorf("dest content = %q, want new code", got)
	}

	run := findBackup(t, backups)
	if report.BackupDir != run {
		t.Errorf("BackupDir = %q, want %q", report.BackupDir, run)
	}
	if got := readFile(t, filepath.Join(run, "app.py")); got != "old code" {
		t.Errorf("backup content = %q, want the pre-update bytes", got)
	}
}

func TestApplyNewFileNeedsNoBackup(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	backups := t.TempDir()
	writeTree(t, src, map[string]string{"fresh.py": "code"})

	pl := &Planner{Source: src, Dest: dst, BackupDir: backups}
	plan, err := pl.Plan(context.Background())
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	report, err := pl.Apply(context.Background(), plan)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if report.Updated != 1 {
		t.Errorf("Updated = %d, want 1", report.Updated)
	}
	if report.BackupDir != "" {
		t.Errorf("BackupDir = %q, want empty when nothing was overwritten", report.BackupDir)
	}
	if _, err := os.Stat(filepath.Join(backups, "self_update")); !os.IsNotExist(err) {
		t.Error("backup tree created for a run that overwrote nothing")
	}
}

func TestApplyLeavesPreservedUntouched(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	backups := t.TempDir()
	writeTree(t, src, map[string]string{"data/x.txt": "shipped"})
	writeTree(t, dst, map[string]string{"data/x.txt": "user edits"})

	pl := &Planner{Source: src, Dest: dst, Preserve: []string{"data/**"}, BackupDir: backups}
	plan, err := pl.Plan(context.Background())
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	report, err := pl.Apply(context.Background(), plan)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if report.Preserved != 1 || report.Updated != 0 {
		t.Errorf("Preserved/Updated = %d/%d, want 1/0", report.Preserved, report.Updated)
	}
	if got := readFile(t, filepath.Join(dst, "data/x.txt")); got != "user edits" {
		t.Errorf("preserved file content = %q, want user edits intact", got)
	}
	if _, err := os.Stat(filepath.Join(backups, "self_update")); !os.IsNotExist(err) {
		t.Error("preserved file produced a backup")
	}
}

func TestApplyDeleteBacksUp(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	backups := t.TempDir()
	writeTree(t, src, map[string]string{"app.py": "code"})
	writeTree(t, dst, map[string]string{
		"app.py":      "code",
		"obsolete.py": "last words",
	})

	pl := &Planner{Source: src, Dest: dst, Delete: true, BackupDir: backups}
	plan, err := pl.Plan(context.Background())
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	report, err := pl.Apply(context.Background(), plan)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if report.Deleted != 1 {
		t.Errorf("Deleted = %d, want 1", report.Deleted)
	}
	if _, err := os.Stat(filepath.Join(dst, "obsolete.py")); !os.IsNotExist(err) {
		t.Error("obsolete.py still present after delete")
	}

	run := findBackup(t, backups)
	if got := readFile(t, filepath.Join(run, "obsolete.py")); got != "last words" {
		t.Errorf("backup content = %q, want the removed bytes", got)
	}
}

func TestApplyCollectsPerItemErrors(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	writeTree(t, src, map[string]string{
		"keeps.py": "fine",
		"gone.py":  "doomed",
	})

	pl := &Planner{Source: src, Dest: dst}
	plan, err := pl.Plan(context.Background())
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	// Simulate the source changing between plan and apply.
	if err := os.Remove(filepath.Join(src, "gone.py")); err != nil {
		t.Fatalf("remove: %v", err)
	}

	report, err := pl.Apply(context.Background(), plan)
	if !errors.Is(err, ErrPartial) {
		t.Fatalf("Apply error = %v, want ErrPartial", err)
	}
	if report.Updated != 1 {
		t.Errorf("Updated = %d, want the surviving file applied", report.Updated)
	}
	if len(report.Errors) != 1 || report.Errors[0].Path != "gone.py" {
		t.Errorf("Errors = %v, want one entry for gone.py", report.Errors)
	}
	if got := readFile(t, filepath.Join(dst, "keeps.py")); got != "fine" {
		t.Errorf("keeps.py = %q, want it applied despite the sibling failure", got)
	}
}

func TestApplyWithoutBackupDir(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	writeTree(t, src, map[string]string{"app.py": "new"})
	writeTree(t, dst, map[string]string{"app.py": "old"})

	pl := &Planner{Source: src, Dest: dst}
	plan, err := pl.Plan(context.Background())
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	report, err := pl.Apply(context.Background(), plan)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if report.BackupDir != "" {
		t.Errorf("BackupDir = %q, want empty with no backup base configured", report.BackupDir)
	}
	if got := readFile(t, filepath.Join(dst, "app.py")); got != "new" {
		t.Errorf("dest = %q, want overwritten", got)
	}
}

func TestApplyCanceledContext(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	writeTree(t, src, map[string]string{"app.py": "new"})

	pl := &Planner{Source: src, Dest: dst}
	plan, err := pl.Plan(context.Background())
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := pl.Apply(ctx, plan); !errors.Is(err, context.Canceled) {
		t.Fatalf("Apply error = %v, want context.Canceled", err)
	}
	if _, err := os.Stat(filepath.Join(dst, "app.py")); !os.IsNotExist(err) {
		t.Error("canceled apply still wrote a file")
	}
}

func TestApplyCarriesExecutableBit(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	script := filepath.Join(src, "run.sh")
	if err := os.WriteFile(script, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}

	pl := &Planner{Source: src, Dest: dst}
	plan, err := pl.Plan(context.Background())
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if _, err := pl.Apply(context.Background(), plan); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	info, err := os.Stat(filepath.Join(dst, "run.sh"))
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm()&0o100 == 0 {
		t.Errorf("mode = %v, want owner-executable", info.Mode())
	}
}

func TestPruneBackups(t *testing.T) {
	base := t.TempDir()
	for _, stamp := range []string{"20250101-000000", "20250102-000000", "20250103-000000"} {
		writeTree(t, filepath.Join(base, "self_update", stamp), map[string]string{"app.py": "old"})
	}

	removed, err := PruneBackups(base, 2)
	if err != nil {
		t.Fatalf("PruneBackups: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if _, err := os.Stat(filepath.Join(base, "self_update", "20250101-000000")); !os.IsNotExist(err) {
		t.Error("oldest run survived pruning")
	}
	for _, stamp := range []string{"20250102-000000", "20250103-000000"} {
		if _, err := os.Stat(filepath.Join(base, "self_update", stamp)); err != nil {
			t.Errorf("run %s missing after pruning: %v", stamp, err)
		}
	}
}

func TestPruneBackupsKeepsAllWhenUnderLimit(t *testing.T) {
	base := t.TempDir()
	writeTree(t, filepath.Join(base, "self_update", "20250101-000000"), map[string]string{"a": "x"})

	removed, err := PruneBackups(base, 5)
	if err != nil {
		t.Fatalf("PruneBackups: %v", err)
	}
	if removed != 0 {
		t.Errorf("removed = %d, want 0", removed)
	}
}

func TestPruneBackupsMissingDir(t *testing.T) {
	removed, err := PruneBackups(filepath.Join(t.TempDir(), "nope"), 3)
	if err != nil {
		t.Fatalf("PruneBackups: %v", err)
	}
	if removed != 0 {
		t.Errorf("removed = %d, want 0", removed)
	}
}

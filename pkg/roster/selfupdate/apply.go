package selfupdate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/jamesainslie/roster/pkg/roster/logging"
)

// ErrPartial reports that some planned actions failed while others applied.
var ErrPartial = errors.New("selfupdate: some actions failed")

// ItemError records one failed action.
type ItemError struct {
	Path string
	Err  error
}

func (e ItemError) String() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

// Report summarizes an apply run.
type Report struct {
	Updated   int
	Deleted   int
	Preserved int

	// BackupDir is the run's backup directory, empty when nothing
	// needed backing up.
	BackupDir string

	Errors []ItemError
}

// Apply executes exactly the items in plan. Files are backed up into a
// per-run directory under <BackupDir>/self_update/ before being
// overwritten or removed; when BackupDir is empty no backups are taken.
// Individual failures are collected and the remaining items still apply.
// The returned error wraps ErrPartial when any item failed.
func (pl *Planner) Apply(ctx context.Context, plan *Plan) (*Report, error) {
	log := logging.Get("selfupdate")

	var backupRun string
	if pl.BackupDir != "" {
		backupRun = filepath.Join(pl.BackupDir, "self_update", time.Now().Format("20060102-150405"))
	}

	report := &Report{}
	for _, item := range plan.Items {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		dst := filepath.Join(plan.Dest, filepath.FromSlash(item.Path))

		switch item.Action {
		case ActionSkipPreserved:
			report.Preserved++
			log.Debug("preserving", "path", item.Path)

		case ActionUpdate:
			src := filepath.Join(plan.Source, filepath.FromSlash(item.Path))
			if _, err := os.Stat(dst); err == nil && backupRun != "" {
				if err := copyFile(dst, filepath.Join(backupRun, filepath.FromSlash(item.Path))); err != nil {
					// Never overwrite a file we failed to back up.
					report.Errors = append(report.Errors, ItemError{Path: item.Path, Err: fmt.Errorf("backing up: %w", err)})
					log.Warn("backup failed, skipping update", "path", item.Path, "error", err)
					continue
				}
				report.BackupDir = backupRun
			}
			if err := copyFile(src, dst); err != nil {
				report.Errors = append(report.Errors, ItemError{Path: item.Path, Err: err})
				log.Warn("update failed", "path", item.Path, "error", err)
				continue
			}
			report.Updated++
			log.Debug("updated", "path", item.Path)

		case ActionDelete:
			if _, err := os.Stat(dst); os.IsNotExist(err) {
				continue
			}
			if backupRun != "" {
				if err := copyFile(dst, filepath.Join(backupRun, filepath.FromSlash(item.Path))); err != nil {
					report.Errors = append(report.Errors, ItemError{Path: item.Path, Err: fmt.Errorf("backing up: %w", err)})
					log.Warn("backup failed, skipping delete", "path", item.Path, "error", err)
					continue
				}
				report.BackupDir = backupRun
			}
			if err := os.Remove(dst); err != nil {
				report.Errors = append(report.Errors, ItemError{Path: item.Path, Err: err})
				log.Warn("delete failed", "path", item.Path, "error", err)
				continue
			}
			report.Deleted++
			log.Debug("deleted", "path", item.Path)
		}
	}

	if len(report.Errors) > 0 {
		return report, fmt.Errorf("%w: %d of %d actions", ErrPartial, len(report.Errors), len(plan.Items))
	}
	return report, nil
}

// PruneBackups removes the oldest run directories under
// <base>/self_update/, keeping the newest keep runs. It returns the number
// of run directories removed. Run directory names are timestamps, so
// lexical order is chronological order.
func PruneBackups(base string, keep int) (int, error) {
	dir := filepath.Join(base, "self_update")
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var runs []string
	for _, entry := range entries {
		if entry.IsDir() {
			runs = append(runs, entry.Name())
		}
	}
	if keep < 0 {
		keep = 0
	}
	if len(runs) <= keep {
		return 0, nil
	}

	sort.Strings(runs)
	removed := 0
	var firstErr error
	for _, name := range runs[:len(runs)-keep] {
		if err := os.RemoveAll(filepath.Join(dir, name)); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		removed++
	}
	return removed, firstErr
}

// copyFile copies src to dst, creating parent directories and carrying the
// source's permission bits onto a newly created destination.
func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

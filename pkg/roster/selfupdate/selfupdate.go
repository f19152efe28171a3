// Package selfupdate syncs a deployed installation's own files from a
// source tree. The pipeline plans first and mutates second: Plan computes
// the full action list without touching anything, Apply executes exactly
// that list with per-file backups, so a dry run previews precisely what an
// apply would do.
package selfupdate

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/charlievieth/fastwalk"
	"github.com/gobwas/glob"
)

// Action classifies a planned step.
type Action string

const (
	// ActionUpdate copies the source file over the destination path.
	ActionUpdate Action = "update"

	// ActionDelete removes a destination file absent from the source.
	ActionDelete Action = "delete"

	// ActionSkipPreserved leaves a preserve-listed path untouched.
	ActionSkipPreserved Action = "skip-preserved"
)

// Item is one planned action on a destination-relative path.
type Item struct {
	Action Action
	Path   string // relative, forward slashes
}

// Plan is the complete action list for one sync run.
type Plan struct {
	Source string
	Dest   string
	Items  []Item
}

// Updates counts planned file copies.
func (p *Plan) Updates() int { return p.count(ActionUpdate) }

// Deletes counts planned removals.
func (p *Plan) Deletes() int { return p.count(ActionDelete) }

// Preserved counts paths the preserve list protected.
func (p *Plan) Preserved() int { return p.count(ActionSkipPreserved) }

func (p *Plan) count(a Action) int {
	n := 0
	for _, item := range p.Items {
		if item.Action == a {
			n++
		}
	}
	return n
}

// Planner computes and executes file sync plans.
type Planner struct {
	// Source is the root of the tree to sync from.
	Source string

	// Dest is the installation root to sync into.
	Dest string

	// Preserve lists path globs (destination-relative, '/'-separated,
	// ** crosses directories) that must never be written or removed.
	Preserve []string

	// Delete removes destination files absent from the source.
	Delete bool

	// BackupDir is the base directory for pre-mutation backups.
	// Apply writes into <BackupDir>/self_update/<stamp>/.
	BackupDir string
}

// Plan enumerates the source tree (and, in delete mode, the destination
// tree) and returns the full action list. Nothing is written.
func (pl *Planner) Plan(ctx context.Context) (*Plan, error) {
	if pl.Source == "" || pl.Dest == "" {
		return nil, errors.New("selfupdate: source and dest are required")
	}
	if _, err := os.Stat(pl.Source); err != nil {
		return nil, fmt.Errorf("source tree: %w", err)
	}

	globs, err := compileGlobs(pl.Preserve)
	if err != nil {
		return nil, err
	}

	srcFiles, err := enumerate(ctx, pl.Source)
	if err != nil {
		return nil, fmt.Errorf("enumerating source tree: %w", err)
	}

	plan := &Plan{Source: pl.Source, Dest: pl.Dest}
	for _, rel := range srcFiles {
		if matchAny(globs, rel) {
			plan.Items = append(plan.Items, Item{Action: ActionSkipPreserved, Path: rel})
			continue
		}
		plan.Items = append(plan.Items, Item{Action: ActionUpdate, Path: rel})
	}

	if pl.Delete {
		destFiles, err := enumerate(ctx, pl.Dest)
		if err != nil {
			return nil, fmt.Errorf("enumerating destination tree: %w", err)
		}

		srcSet := make(map[string]struct{}, len(srcFiles))
		for _, rel := range srcFiles {
			srcSet[rel] = struct{}{}
		}

		for _, rel := range destFiles {
			if _, inSource := srcSet[rel]; inSource {
				continue
			}
			// Preserved destination-only files stay without an entry.
			if matchAny(globs, rel) {
				continue
			}
			plan.Items = append(plan.Items, Item{Action: ActionDelete, Path: rel})
		}
	}

	return plan, nil
}

// compileGlobs compiles preserve patterns with '/' as the separator, so a
// single '*' stays within one path segment and '**' spans segments. An
// invalid pattern is an error: silently skipping one would stop it from
// protecting user data.
func compileGlobs(patterns []string) ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, pat := range patterns {
		g, err := glob.Compile(pat, '/')
		if err != nil {
			return nil, fmt.Errorf("preserve pattern %q: %w", pat, err)
		}
		globs = append(globs, g)
	}
	return globs, nil
}

func matchAny(globs []glob.Glob, rel string) bool {
	for _, g := range globs {
		if g.Match(rel) {
			return true
		}
	}
	return false
}

// enumerate returns the sorted relative paths of every regular file under
// root. A missing root is an empty tree. fastwalk runs its callback from
// multiple goroutines, so collection is mutex-guarded.
func enumerate(ctx context.Context, root string) ([]string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(absRoot); os.IsNotExist(err) {
		return nil, nil
	}

	conf := fastwalk.Config{
		Follow: false,
	}

	var mu sync.Mutex
	var files []string

	err = fastwalk.Walk(&conf, absRoot, func(path string, d fs.DirEntry, walkErr error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if walkErr != nil {
			return nil //nolint:nilerr // Intentionally skip errors and continue walking
		}
		if d.IsDir() {
			return nil
		}

		rel, relErr := filepath.Rel(absRoot, path)
		if relErr != nil {
			return nil //nolint:nilerr // Entry outside root, skip it
		}

		mu.Lock()
		files = append(files, filepath.ToSlash(rel))
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

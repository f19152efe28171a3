package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/roster/pkg/daemon/watcher"
	"github.com/jamesainslie/roster/pkg/roster/config"
	"github.com/jamesainslie/roster/pkg/roster/cycle"
	"github.com/jamesainslie/roster/pkg/roster/describe"
	"github.com/jamesainslie/roster/pkg/roster/journal"
	"github.com/jamesainslie/roster/pkg/roster/manifest"
	"github.com/jamesainslie/roster/pkg/roster/snapshot"
	"github.com/jamesainslie/roster/pkg/roster/store"
)

var (
	syncForce  bool
	syncDryRun bool
	syncWatch  bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Regenerate the catalog from manifests",
	Long: `Run one update cycle: fingerprint the tracked manifest files and
regenerate the catalog when their content changed. User-edited record
fields always survive regeneration.

With --watch, sync stays in the foreground and reruns the cycle whenever
a manifest file changes. Stop it with Ctrl-C.`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVarP(&syncForce, "force", "f", false, "regenerate even when no manifest changed")
	syncCmd.Flags().BoolVarP(&syncDryRun, "dry-run", "d", false, "report what would happen without writing")
	syncCmd.Flags().BoolVarP(&syncWatch, "watch", "w", false, "keep running and sync on manifest changes")

	rootCmd.AddCommand(syncCmd)
}

// syncEngine is the standalone (daemon-less) cycle machinery.
type syncEngine struct {
	store    store.Store
	runner   *cycle.Runner
	producer *manifest.Producer
	journal  *journal.Journal // nil when journaling is disabled
	cfg      *config.Config
}

// newSyncEngine wires the cycle collaborators from configuration.
func newSyncEngine(cfg *config.Config) (*syncEngine, error) {
	sources, err := manifest.Resolve(cfg)
	if err != nil {
		return nil, err
	}
	producer := manifest.NewProducer(sources)

	chain, err := describe.FromConfig(cfg)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	eng := &syncEngine{
		store:    st,
		producer: producer,
		cfg:      cfg,
		runner: cycle.NewRunner(cycle.RunnerConfig{
			Store:     st,
			Producer:  producer,
			Describer: chain,
			Exporter:  snapshot.NewExporter(st, cfg.SnapshotPath()),
			Lock:      cycle.NewLock(cfg.LockPath(), cfg.Update.StaleAfter),
			StatePath: cfg.StatePath(),
		}),
	}

	if cfg.Journal.Enabled {
		jnl, err := journal.New(cfg.JournalDir())
		if err != nil {
			_ = st.Close()
			return nil, err
		}
		if err := jnl.EnsureDir(); err != nil {
			_ = st.Close()
			return nil, err
		}
		eng.journal = jnl
	}

	return eng, nil
}

func (e *syncEngine) Close() error {
	return e.store.Close()
}

// runOnce executes a cycle and reports its outcome, journaling terminal
// results the same way rosterd does.
func (e *syncEngine) runOnce(ctx context.Context, opts cycle.Options) (cycle.Result, error) {
	started := time.Now()
	res, err := e.runner.Run(ctx, opts)

	if e.journal != nil {
		if _, jerr := e.journal.LogCycle(started, res); jerr != nil {
			printVerbose("journaling cycle: %v", jerr)
		}
		if e.cfg.Journal.RetentionDays > 0 {
			_ = e.journal.Cleanup(e.cfg.Journal.RetentionDays)
		}
	}

	return res, err
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	eng, err := newSyncEngine(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = eng.Close() }()

	opts := cycle.Options{Force: syncForce, DryRun: syncDryRun}

	res, err := eng.runOnce(cmd.Context(), opts)
	reportCycle(res)
	if err != nil {
		return describeCycleError(err)
	}

	if syncWatch {
		return watchLoop(cmd.Context(), eng)
	}
	return nil
}

// watchLoop reruns the cycle whenever a tracked manifest changes, until
// interrupted.
func watchLoop(parent context.Context, eng *syncEngine) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	w, err := watcher.New(eng.producer.TrackedPaths(), eng.cfg.Watch.Debounce)
	if err != nil {
		return fmt.Errorf("starting manifest watcher: %w", err)
	}
	defer func() { _ = w.Close() }()

	printInfo("Watching %d manifest file(s); Ctrl-C to stop.", len(eng.producer.TrackedPaths()))

	w.Run(ctx, func(paths []string) {
		printVerbose("manifest change: %v", paths)
		res, err := eng.runOnce(ctx, cycle.Options{})
		reportCycle(res)
		if err != nil {
			printError("sync failed: %v", err)
		}
	})

	printInfo("Watch stopped.")
	return nil
}

// reportCycle prints a one-glance summary of a cycle result.
func reportCycle(res cycle.Result) {
	switch res.Status {
	case cycle.StatusNoChange:
		if res.DryRun {
			printInfo("Dry run: no manifest changes, nothing would be updated.")
		} else {
			printInfo("No manifest changes; catalog is current.")
		}

	case cycle.StatusSuccess:
		if res.DryRun {
			printInfo("Dry run: %d changed file(s), catalog would be regenerated.", len(res.Changed))
			for _, ch := range res.Changed {
				printInfo("  %s", ch.String())
			}
			return
		}
		printInfo("Catalog updated: %d record(s) merged in %s.", res.Merged, res.Duration.Round(time.Millisecond))
		if res.SnapshotPath != "" {
			printVerbose("snapshot written to %s", res.SnapshotPath)
		}

	case cycle.StatusSuccessWithErrors:
		printInfo("Catalog updated with errors: %d record(s) merged, %d failed.", res.Merged, len(res.RecordErrors))
		for _, re := range res.RecordErrors {
			printError("record: %s", re.String())
		}

	case cycle.StatusFailed:
		// The caller prints the error itself.
	}
}

// describeCycleError maps cycle errors to user-facing messages.
func describeCycleError(err error) error {
	if errors.Is(err, cycle.ErrLockHeld) {
		return fmt.Errorf("another update is already in progress: %w", err)
	}
	return err
}

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/roster/pkg/roster/config"
	"github.com/jamesainslie/roster/pkg/roster/selfupdate"
)

var (
	updateSource      string
	updateApply       bool
	updateDelete      bool
	updatePreserve    []string
	updateKeepBackups int
)

var selfupdateCmd = &cobra.Command{
	Use:   "selfupdate",
	Short: "Sync the installation tree from a source checkout",
	Long: `Plan and apply a file sync from a source tree into the installation
directory. The default is a dry run that only prints the plan; --apply
executes it. Every overwritten or deleted file is backed up first under a
per-run directory.

Preserve globs (destination-relative, '/'-separated, ** crosses
directories) protect paths from both updates and deletes. The configured
defaults protect data, backups, and the update state files; --preserve
adds more.`,
	RunE: runSelfUpdate,
}

func init() {
	selfupdateCmd.Flags().StringVarP(&updateSource, "source", "s", "", "source tree to sync from (required)")
	selfupdateCmd.Flags().BoolVar(&updateApply, "apply", false, "execute the plan (default: dry run)")
	selfupdateCmd.Flags().BoolVar(&updateDelete, "delete", false, "remove destination files absent from the source")
	selfupdateCmd.Flags().StringArrayVar(&updatePreserve, "preserve", nil, "additional preserve glob (repeatable)")
	selfupdateCmd.Flags().IntVar(&updateKeepBackups, "keep-backups", 0, "prune backup runs beyond N (0: use config)")
	_ = selfupdateCmd.MarkFlagRequired("source")

	rootCmd.AddCommand(selfupdateCmd)
}

func runSelfUpdate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	source, err := config.ExpandPath(updateSource)
	if err != nil {
		return fmt.Errorf("invalid source %q: %w", updateSource, err)
	}

	dest, err := installRoot(cfg)
	if err != nil {
		return err
	}

	preserve := append([]string{}, config.DefaultPreserveGlobs...)
	preserve = append(preserve, cfg.SelfUpdate.Preserve...)
	preserve = append(preserve, updatePreserve...)

	planner := &selfupdate.Planner{
		Source:    source,
		Dest:      dest,
		Preserve:  preserve,
		Delete:    updateDelete || cfg.SelfUpdate.Delete,
		BackupDir: cfg.BackupDir(),
	}

	plan, err := planner.Plan(cmd.Context())
	if err != nil {
		return err
	}

	printPlan(plan)

	if !updateApply {
		printInfo("\nDry run; pass --apply to execute.")
		return nil
	}

	report, err := planner.Apply(cmd.Context(), plan)
	if report != nil {
		printInfo("\nApplied: %d updated, %d deleted, %d preserved.",
			report.Updated, report.Deleted, report.Preserved)
		if report.BackupDir != "" {
			printVerbose("backups under %s", report.BackupDir)
		}
		for _, ie := range report.Errors {
			printError("%s", ie.String())
		}
	}
	if errors.Is(err, selfupdate.ErrPartial) {
		return fmt.Errorf("some files could not be synced: %w", err)
	}
	if err != nil {
		return err
	}

	keep := updateKeepBackups
	if keep <= 0 {
		keep = cfg.Backup.Keep
	}
	if keep <= 0 {
		keep = config.DefaultBackupKeep
	}
	if pruned, err := selfupdate.PruneBackups(cfg.BackupDir(), keep); err == nil && pruned > 0 {
		printVerbose("pruned %d old backup run(s)", pruned)
	}

	return nil
}

// printPlan summarizes a sync plan, listing actions in verbose mode.
func printPlan(plan *selfupdate.Plan) {
	printInfo("Plan: %d to update, %d to delete, %d preserved (source %s).",
		plan.Updates(), plan.Deletes(), plan.Preserved(), plan.Source)

	for _, item := range plan.Items {
		printVerbose("%-14s %s", item.Action, item.Path)
	}
}

// installRoot resolves the tree selfupdate syncs into: the configured
// manifest directory's parent is the deployed installation by convention.
func installRoot(cfg *config.Config) (string, error) {
	dir, err := config.ExpandPath(cfg.Manifests.Dir)
	if err != nil {
		return "", fmt.Errorf("invalid manifest dir %q: %w", cfg.Manifests.Dir, err)
	}
	return dir, nil
}

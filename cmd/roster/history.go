package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/roster/pkg/roster/config"
	"github.com/jamesainslie/roster/pkg/roster/journal"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View update cycle history",
	Long: `View the journal of past update cycles.

Each sync that reaches a terminal state leaves an entry recording which
manifests changed, how many records were merged, and any failures.`,
	RunE: runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show details of one cycle",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove journal entries past the retention period",
	RunE:  runHistoryClean,
}

var historyLimit int

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "maximum number of entries to show")

	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyCleanCmd)
	rootCmd.AddCommand(historyCmd)
}

// getJournal returns a journal rooted at the configured directory.
func getJournal() (*journal.Journal, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return journal.New(cfg.JournalDir())
}

// runHistory lists recent cycles.
func runHistory(cmd *cobra.Command, args []string) error {
	jnl, err := getJournal()
	if err != nil {
		return err
	}

	entries, err := jnl.List(historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}

	if len(entries) == 0 {
		printInfo("No history entries found.")
		printInfo("Enable journaling (journal.enabled) and run 'roster sync'.")
		return nil
	}

	fmt.Printf("\n%-28s  %-20s  %-19s  %-7s  %s\n", "ID", "STATUS", "STARTED", "MERGED", "CHANGED")
	fmt.Println(strings.Repeat("-", 90))

	for _, entry := range entries {
		fmt.Printf("%-28s  %-20s  %-19s  %-7d  %d\n",
			entry.ID,
			entry.Status,
			entry.StartedAt.Local().Format("2006-01-02 15:04:05"),
			entry.Merged,
			len(entry.Changed),
		)
	}

	fmt.Println(strings.Repeat("-", 90))
	fmt.Printf("\nShowing %d entries. Use 'roster history show <id>' for details.\n", len(entries))
	return nil
}

// runHistoryShow displays one cycle in full.
func runHistoryShow(cmd *cobra.Command, args []string) error {
	jnl, err := getJournal()
	if err != nil {
		return err
	}

	entry, err := jnl.Get(args[0])
	if err != nil {
		return fmt.Errorf("failed to get entry: %w", err)
	}

	fmt.Println("\nCycle Details")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("ID:        %s\n", entry.ID)
	fmt.Printf("Status:    %s\n", entry.Status)
	fmt.Printf("Started:   %s\n", entry.StartedAt.Local().Format("2006-01-02 15:04:05 MST"))
	fmt.Printf("Duration:  %s\n", entry.Duration())
	fmt.Printf("Merged:    %d\n", entry.Merged)
	if entry.DryRun {
		fmt.Println("Dry run:   yes")
	}
	if entry.Error != "" {
		fmt.Printf("Error:     %s\n", entry.Error)
	}

	if len(entry.Changed) > 0 {
		fmt.Println("\nChanged files:")
		for _, ch := range entry.Changed {
			fmt.Printf("  %s\n", ch)
		}
	}

	if len(entry.RecordErrors) > 0 {
		fmt.Println("\nRecord errors:")
		for _, re := range entry.RecordErrors {
			fmt.Printf("  %s %s: %s\n", re.Type, re.Name, re.Error)
		}
	}

	return nil
}

// runHistoryClean removes entries older than the retention period.
func runHistoryClean(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	jnl, err := journal.New(cfg.JournalDir())
	if err != nil {
		return err
	}

	retentionDays := cfg.Journal.RetentionDays
	if retentionDays <= 0 {
		retentionDays = config.DefaultJournalRetentionDays
	}

	printInfo("Cleaning journal entries older than %d days...", retentionDays)

	if err := jnl.Cleanup(retentionDays); err != nil {
		return fmt.Errorf("failed to clean history: %w", err)
	}

	printInfo("History cleanup complete.")
	return nil
}

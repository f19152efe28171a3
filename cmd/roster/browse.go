package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/roster/cmd/roster/tui"
	"github.com/jamesainslie/roster/pkg/client"
	"github.com/jamesainslie/roster/pkg/roster/types"
)

var browseServerURL string

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse the catalog interactively",
	Long: `Open an interactive browser over the tool catalog.

Navigate with arrow keys or j/k, press / to filter, t to cycle the
type filter, e to show only user-edited records, and enter to open a
record's detail view.

With --server, records are fetched from a running rosterd instead of
opening the store directly.`,
	RunE: runBrowse,
}

func init() {
	browseCmd.Flags().StringVar(&browseServerURL, "server", "", "fetch from a running rosterd (URL or host:port)")

	rootCmd.AddCommand(browseCmd)
}

func runBrowse(cmd *cobra.Command, args []string) error {
	// Route logs into the in-memory buffer so they don't tear the screen.
	if err := initTUILogging(); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	opts := tui.Options{}

	if browseServerURL != "" {
		c := client.New(browseServerURL)
		opts.Source = c.BaseURL()
		opts.Load = func(ctx context.Context) ([]types.Record, error) {
			return c.List(ctx)
		}
	} else {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		opts.Source = "local store"
		opts.Load = func(ctx context.Context) ([]types.Record, error) {
			return loadRecords(ctx, cfg)
		}
	}

	return tui.Run(opts)
}

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/roster/pkg/client"
	"github.com/jamesainslie/roster/pkg/daemon"
	"github.com/jamesainslie/roster/pkg/roster/config"
	"github.com/jamesainslie/roster/pkg/roster/cycle"
	"github.com/jamesainslie/roster/pkg/roster/filter"
	"github.com/jamesainslie/roster/pkg/roster/output"
	"github.com/jamesainslie/roster/pkg/roster/store"
	"github.com/jamesainslie/roster/pkg/roster/types"
)

var serverURL string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog records",
	Long: `List records from the tool catalog.

Filters combine: --filter takes a query expression ("type:brew git",
"edited:true"), --type and --edited narrow further. Output format
follows the global --output flag.

With --server, records are fetched from a running rosterd instead of
opening the store directly. Use this while the daemon is running: the
badger backend admits a single process.`,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVarP(&filterQuery, "filter", "f", "", "query expression (terms, type:<t>, edited:<bool>)")
	listCmd.Flags().StringSliceVarP(&typeNames, "type", "t", nil, "restrict to package types (brew, cask, mas, tap)")
	listCmd.Flags().BoolVar(&editedOnly, "edited", false, "only user-edited records")
	listCmd.Flags().BoolVar(&notEdited, "not-edited", false, "only unedited records")
	listCmd.Flags().StringVar(&templateStr, "template", "", "Go template for -o template")
	listCmd.Flags().StringVar(&serverURL, "server", "", "fetch from a running rosterd (URL or host:port)")

	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	f, err := buildFilter()
	if err != nil {
		return err
	}

	if serverURL != "" {
		return listViaServer(cmd.Context(), f)
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	recs, err := loadRecords(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	res := &output.Result{
		Records: f.Apply(recs),
		Total:   len(recs),
		Query:   filterQuery,
	}
	if state, err := cycle.LoadState(cfg.StatePath()); err == nil && state.LastUpdate != nil {
		res.LastUpdate = *state.LastUpdate
	}
	res.DaemonUp = daemon.IsDaemonRunning(cfg.PIDPath())

	return renderRecords(res)
}

// loadRecords opens the store, reads every record, and closes it again.
func loadRecords(ctx context.Context, cfg *config.Config) ([]types.Record, error) {
	st, err := store.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	defer func() { _ = st.Close() }()

	recs, err := st.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	return recs, nil
}

// listViaServer routes the listing through the daemon API.
func listViaServer(ctx context.Context, f *filter.Filter) error {
	c := client.New(serverURL)

	opts := client.SearchOptions{
		Query:  filterQuery,
		Edited: f.Edited,
	}
	for _, typ := range f.Types {
		opts.Types = append(opts.Types, typ)
	}

	recs, total, err := c.Search(ctx, opts)
	if err != nil {
		return fmt.Errorf("querying daemon: %w", err)
	}

	return renderRecords(&output.Result{
		Records:  recs,
		Total:    total,
		Query:    filterQuery,
		DaemonUp: true,
	})
}

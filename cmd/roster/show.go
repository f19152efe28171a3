package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/roster/pkg/client"
	"github.com/jamesainslie/roster/pkg/roster/output"
	"github.com/jamesainslie/roster/pkg/roster/store"
	"github.com/jamesainslie/roster/pkg/roster/types"
)

var showServerURL string

var showCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a single catalog record",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	showCmd.Flags().StringVar(&showServerURL, "server", "", "fetch from a running rosterd (URL or host:port)")
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	name := args[0]

	rec, err := fetchRecord(cmd, name)
	if err != nil {
		return err
	}

	return renderRecords(&output.Result{
		Records: []types.Record{rec},
		Total:   1,
		Query:   name,
	})
}

func fetchRecord(cmd *cobra.Command, name string) (types.Record, error) {
	if showServerURL != "" {
		rec, err := client.New(showServerURL).Get(cmd.Context(), name)
		if errors.Is(err, client.ErrNotFound) {
			return rec, fmt.Errorf("no record named %q", name)
		}
		return rec, err
	}

	cfg, err := loadConfig()
	if err != nil {
		return types.Record{}, fmt.Errorf("failed to load configuration: %w", err)
	}

	st, err := store.Open(cfg)
	if err != nil {
		return types.Record{}, fmt.Errorf("opening store: %w", err)
	}
	defer func() { _ = st.Close() }()

	rec, err := st.Get(cmd.Context(), name)
	if errors.Is(err, store.ErrNotFound) {
		return rec, fmt.Errorf("no record named %q", name)
	}
	return rec, err
}

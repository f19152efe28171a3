package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/roster/pkg/client"
	"github.com/jamesainslie/roster/pkg/roster/store"
	"github.com/jamesainslie/roster/pkg/roster/types"
)

var (
	editDescription string
	editExample     string
	editServerURL   string
)

var editCmd = &cobra.Command{
	Use:   "edit <name>",
	Short: "Edit a record's description or example",
	Long: `Set the description or usage example of a catalog record. Edited
fields are marked user-edited and survive catalog regeneration; an empty
value explicitly clears the field.

While rosterd is running, route the edit through it with --server: the
badger backend admits a single process.`,
	Args: cobra.ExactArgs(1),
	RunE: runEdit,
}

func init() {
	editCmd.Flags().StringVarP(&editDescription, "description", "d", "", "new description")
	editCmd.Flags().StringVarP(&editExample, "example", "e", "", "new usage example")
	editCmd.Flags().StringVar(&editServerURL, "server", "", "apply via a running rosterd (URL or host:port)")

	rootCmd.AddCommand(editCmd)
}

func runEdit(cmd *cobra.Command, args []string) error {
	name := args[0]

	// Only explicitly passed flags become edits, so "" can clear a field.
	var description, example *string
	if cmd.Flags().Changed("description") {
		description = &editDescription
	}
	if cmd.Flags().Changed("example") {
		example = &editExample
	}
	if description == nil && example == nil {
		return fmt.Errorf("nothing to edit: pass --description and/or --example")
	}

	rec, err := applyEdit(cmd, name, description, example)
	if err != nil {
		return err
	}

	printInfo("Updated %s (%s).", rec.Name, rec.Type)
	if description != nil {
		printVerbose("description: %s", rec.Description)
	}
	if example != nil {
		printVerbose("example: %s", rec.Example)
	}
	return nil
}

func applyEdit(cmd *cobra.Command, name string, description, example *string) (types.Record, error) {
	if editServerURL != "" {
		rec, err := client.New(editServerURL).Edit(cmd.Context(), name, description, example)
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

	rec, err := st.ApplyUserEdit(cmd.Context(), name, store.EditFields{
		Description: description,
		Example:     example,
	})
	if errors.Is(err, store.ErrNotFound) {
		return rec, fmt.Errorf("no record named %q", name)
	}
	return rec, err
}

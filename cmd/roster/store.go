package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/roster/pkg/roster/config"
	"github.com/jamesainslie/roster/pkg/roster/store"
)

var migratePath string

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Manage the record store",
}

var storeInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show store backend and location",
	RunE:  runStoreInfo,
}

var storeMigrateCmd = &cobra.Command{
	Use:   "migrate <badger|file>",
	Short: "Copy all records to a different backend",
	Long: `Copy every record from the configured store into a store of the
given backend. User-edit flags and timestamps are carried over unchanged.

The destination path defaults to the backend's standard location; override
it with --path. The configured store is not modified; point store.backend
at the new location afterwards.`,
	Args: cobra.ExactArgs(1),
	RunE: runStoreMigrate,
}

func init() {
	storeMigrateCmd.Flags().StringVar(&migratePath, "path", "", "destination store path")

	storeCmd.AddCommand(storeInfoCmd)
	storeCmd.AddCommand(storeMigrateCmd)
	rootCmd.AddCommand(storeCmd)
}

func runStoreInfo(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	st, err := store.Open(cfg)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer func() { _ = st.Close() }()

	count, err := st.Count(cmd.Context())
	if err != nil {
		return fmt.Errorf("counting records: %w", err)
	}

	printInfo("Backend:  %s", cfg.Store.Backend)
	printInfo("Path:     %s", cfg.StorePath())
	printInfo("Records:  %d", count)
	return nil
}

func runStoreMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	backend := args[0]
	if backend != config.BackendBadger && backend != config.BackendFile {
		return fmt.Errorf("unknown backend %q (want badger or file)", backend)
	}
	if backend == cfg.Store.Backend && migratePath == "" {
		return fmt.Errorf("store already uses the %s backend; pass --path for a copy", backend)
	}

	src, err := store.Open(cfg)
	if err != nil {
		return fmt.Errorf("opening source store: %w", err)
	}
	defer func() { _ = src.Close() }()

	dstCfg := *cfg
	dstCfg.Store.Backend = backend
	dstCfg.Store.Path = migratePath

	dst, err := store.Open(&dstCfg)
	if err != nil {
		return fmt.Errorf("opening destination store: %w", err)
	}
	defer func() { _ = dst.Close() }()

	n, err := store.Migrate(cmd.Context(), src, dst)
	if err != nil {
		return fmt.Errorf("migrating records: %w", err)
	}

	printInfo("Migrated %d records to %s store at %s.", n, backend, dstCfg.StorePath())
	printInfo("Set store.backend to %q to use it.", backend)
	return nil
}

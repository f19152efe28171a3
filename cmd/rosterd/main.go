// Command rosterd runs the catalog daemon: it serves the HTTP API,
// watches manifests for changes, and owns the record store while it runs.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/roster/pkg/client"
	"github.com/jamesainslie/roster/pkg/daemon"
	"github.com/jamesainslie/roster/pkg/roster/config"
	"github.com/jamesainslie/roster/pkg/roster/logging"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "rosterd",
	Short: "Roster catalog daemon",
	Long: `rosterd serves the roster catalog over HTTP.

It opens the record store, regenerates the catalog on demand or when a
watched manifest changes, and exposes the query and edit API used by
the roster CLI. Only one rosterd may run per store.`,
	SilenceUsage: true,
	RunE:         runDaemon,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Query a running rosterd",
	RunE:  runStatus,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: XDG config dir)")
	rootCmd.AddCommand(statusCmd)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	if err := config.EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to ensure config directory: %w", err)
	}

	cfg, err := config.LoadFrom(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logCfg := logging.DefaultConfig()
	if cfg.Logging.Level != "" {
		logCfg.Level = cfg.Logging.Level
	}
	if cfg.Logging.Path != "" {
		logCfg.Path = cfg.Logging.Path
	}
	logCfg.Components = cfg.Logging.Components
	if err := logging.Init(logCfg); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	// A previous daemon may have died without cleaning up its PID file
	// or the store lock.
	if err := daemon.RecoverFromStaleDaemon(cfg.PIDPath(), cfg.StorePath()); err != nil {
		return err
	}

	svc, err := daemon.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to start daemon: %w", err)
	}
	defer func() { _ = svc.Close() }()

	if err := daemon.WritePIDFile(cfg.PIDPath()); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	defer func() { _ = daemon.RemovePIDFile(cfg.PIDPath()) }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return svc.Run(ctx)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFrom(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	c := client.FromConfig(cfg)
	st, err := c.Status(cmd.Context())
	if err != nil {
		return fmt.Errorf("rosterd is not reachable at %s: %w", c.BaseURL(), err)
	}

	fmt.Printf("rosterd running (pid %d)\n", st.PID)
	fmt.Printf("  uptime:  %s\n", (time.Duration(st.UptimeSeconds) * time.Second).String())
	fmt.Printf("  backend: %s (%d records)\n", st.Backend, st.Records)
	fmt.Printf("  watch:   %v\n", st.WatchEnabled)
	if st.LastCycle != nil {
		fmt.Printf("  last cycle: %s (%d merged, %dms)\n",
			st.LastCycle.Status, st.LastCycle.Merged, st.LastCycle.DurationMS)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

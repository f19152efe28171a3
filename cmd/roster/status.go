package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/roster/pkg/client"
	"github.com/jamesainslie/roster/pkg/daemon"
	"github.com/jamesainslie/roster/pkg/roster/config"
	"github.com/jamesainslie/roster/pkg/roster/cycle"
	"github.com/jamesainslie/roster/pkg/roster/store"
	"github.com/jamesainslie/roster/pkg/roster/types"
)

var statusServerURL string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show catalog and update state",
	Long: `Show the catalog's current state: record counts, the last update
cycle, and whether an update lock or daemon is active.

With --server, the running rosterd reports its own status instead.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusServerURL, "server", "", "query a running rosterd (URL or host:port)")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	if statusServerURL != "" {
		return runDaemonStatus(cmd, statusServerURL)
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	fmt.Println("\nCatalog Status")
	fmt.Println(strings.Repeat("=", 50))

	// Update state.
	state, err := cycle.LoadState(cfg.StatePath())
	if err != nil {
		printError("update state unreadable: %v", err)
		state = &cycle.State{}
	}
	if state.LastUpdate != nil {
		fmt.Printf("Last update:   %s (%s ago)\n",
			state.LastUpdate.Local().Format("2006-01-02 15:04:05"),
			formatDuration(time.Since(*state.LastUpdate)))
	} else {
		fmt.Println("Last update:   never")
	}
	fmt.Printf("Update count:  %d\n", state.UpdateCount)
	if state.LastError != nil {
		fmt.Printf("Last error:    %s\n", *state.LastError)
	}

	// Lock state.
	lock := cycle.NewLock(cfg.LockPath(), cfg.Update.StaleAfter)
	if pid, age, ok := lock.Holder(); ok {
		fmt.Printf("Update lock:   held by pid %d for %s", pid, formatDuration(age))
		if lock.Stale() {
			fmt.Print(" (stale)")
		}
		fmt.Println()
	} else {
		fmt.Println("Update lock:   free")
	}

	// Daemon state.
	if daemon.IsDaemonRunning(cfg.PIDPath()) {
		fmt.Println("Daemon:        running")
	} else {
		fmt.Println("Daemon:        not running")
	}

	// Record counts. Skip when the daemon holds a badger store.
	if cfg.Store.Backend == config.BackendBadger && daemon.IsDaemonRunning(cfg.PIDPath()) {
		printInfo("\nRecord counts: query the daemon with --server while it runs.")
		return nil
	}

	st, err := store.Open(cfg)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer func() { _ = st.Close() }()

	recs, err := st.List(cmd.Context())
	if err != nil {
		return err
	}

	counts := make(map[types.PackageType]int)
	edited := 0
	for _, rec := range recs {
		counts[rec.Type]++
		if rec.UserEdited {
			edited++
		}
	}

	fmt.Println("\nRecords")
	fmt.Println(strings.Repeat("-", 50))
	for _, typ := range types.AllTypes() {
		fmt.Printf("%-6s %d\n", typ, counts[typ])
	}
	fmt.Printf("%-6s %d (%d user-edited)\n", "total", len(recs), edited)

	return nil
}

// runDaemonStatus prints the status a running rosterd reports.
func runDaemonStatus(cmd *cobra.Command, url string) error {
	st, err := client.New(url).Status(cmd.Context())
	if err != nil {
		return fmt.Errorf("querying daemon: %w", err)
	}

	fmt.Println("\nDaemon Status")
	fmt.Println(strings.Repeat("=", 50))
	fmt.Printf("PID:           %d\n", st.PID)
	fmt.Printf("Uptime:        %s\n", formatDuration(time.Duration(st.UptimeSeconds)*time.Second))
	fmt.Printf("Memory:        %.1f MB\n", float64(st.MemoryBytes)/(1024*1024))
	fmt.Printf("Backend:       %s\n", st.Backend)
	fmt.Printf("Records:       %d\n", st.Records)
	fmt.Printf("Watching:      %t\n", st.WatchEnabled)
	for _, p := range st.WatchedPaths {
		fmt.Printf("  %s\n", p)
	}
	fmt.Printf("Subscribers:   %d\n", st.Subscribers)

	if st.LastCycle != nil {
		fmt.Println("\nLast cycle")
		fmt.Println(strings.Repeat("-", 50))
		fmt.Printf("Status:        %s\n", st.LastCycle.Status)
		fmt.Printf("Started:       %s\n", st.LastCycle.StartedAt.Local().Format("2006-01-02 15:04:05"))
		fmt.Printf("Duration:      %dms\n", st.LastCycle.DurationMS)
		fmt.Printf("Merged:        %d\n", st.LastCycle.Merged)
		if st.LastCycle.Error != "" {
			fmt.Printf("Error:         %s\n", st.LastCycle.Error)
		}
	}

	return nil
}

// formatDuration renders a duration in the largest sensible unit.
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%.1fh", d.Hours())
	default:
		return fmt.Sprintf("%.1fd", d.Hours()/24)
	}
}

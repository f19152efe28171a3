package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/roster/pkg/roster/output"
	"github.com/jamesainslie/roster/pkg/roster/snapshot"
	"github.com/jamesainslie/roster/pkg/roster/store"
)

var exportTo string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the catalog snapshot",
	Long: `Export the catalog.

By default this runs the snapshot exporter, writing the machine-readable
JSON artifact to the configured snapshot path (or --to). With an explicit
--output format the catalog is rendered through that formatter instead,
to stdout or to the --to path.

Examples:
  roster export                         # snapshot to the configured path
  roster export --to /tmp/tools.json    # snapshot to a specific file
  roster export -o csv --to tools.csv   # CSV rendering
  roster export -o json                 # JSON rendering to stdout`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportTo, "to", "", "write to this path instead of the default")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	st, err := store.Open(cfg)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer func() { _ = st.Close() }()

	// An explicit --output switches from the snapshot artifact to a
	// formatter rendering.
	if rootCmd.PersistentFlags().Changed("output") {
		recs, err := st.List(cmd.Context())
		if err != nil {
			return err
		}

		formatter, err := getFormatter()
		if err != nil {
			return err
		}

		var buf bytes.Buffer
		if err := formatter.Format(&buf, &output.Result{Records: recs, Total: len(recs)}); err != nil {
			return fmt.Errorf("formatting output: %w", err)
		}

		if exportTo == "" {
			_, err = buf.WriteTo(os.Stdout)
			return err
		}
		if err := os.WriteFile(exportTo, buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", exportTo, err)
		}
		printInfo("Wrote %d record(s) to %s.", len(recs), exportTo)
		return nil
	}

	path := cfg.SnapshotPath()
	if exportTo != "" {
		path = exportTo
	}

	res, err := snapshot.NewExporter(st, path).Export(cmd.Context())
	if err != nil {
		return fmt.Errorf("exporting snapshot: %w", err)
	}

	printInfo("Exported %d record(s) to %s.", res.Records, res.Path)
	return nil
}

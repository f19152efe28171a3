package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/roster/pkg/client"
	"github.com/jamesainslie/roster/pkg/roster/store"
	"github.com/jamesainslie/roster/pkg/roster/types"
)

var typesServerURL string

var typesCmd = &cobra.Command{
	Use:   "types",
	Short: "Show record counts per package type",
	RunE:  runTypes,
}

func init() {
	typesCmd.Flags().StringVar(&typesServerURL, "server", "", "fetch from a running rosterd (URL or host:port)")
	rootCmd.AddCommand(typesCmd)
}

func runTypes(cmd *cobra.Command, args []string) error {
	counts, total, err := typeCounts(cmd)
	if err != nil {
		return err
	}

	for _, typ := range types.AllTypes() {
		fmt.Printf("%-6s %d\n", typ, counts[string(typ)])
	}
	fmt.Printf("%-6s %d\n", "total", total)
	return nil
}

func typeCounts(cmd *cobra.Command) (map[string]int, int, error) {
	if typesServerURL != "" {
		counts, err := client.New(typesServerURL).TypeCounts(cmd.Context())
		if err != nil {
			return nil, 0, err
		}
		total := 0
		for _, n := range counts {
			total += n
		}
		return counts, total, nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load configuration: %w", err)
	}

	st, err := store.Open(cfg)
	if err != nil {
		return nil, 0, fmt.Errorf("opening store: %w", err)
	}
	defer func() { _ = st.Close() }()

	recs, err := st.List(cmd.Context())
	if err != nil {
		return nil, 0, err
	}

	counts := make(map[string]int)
	for _, rec := range recs {
		counts[string(rec.Type)]++
	}
	return counts, len(recs), nil
}

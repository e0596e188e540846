package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/metabench/hubcrawl/store"
)

var docCountThreshold int64

var countDocCountsCmd = &cobra.Command{
	Use:   "count-doc-counts",
	Short: "Report per-domain verified-download counts.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		log := newLogger(cfg)

		st, err := store.Open(context.Background(), cfg.Postgres, log)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()

		counts, err := st.DocCountsByHost(context.Background(), docCountThreshold)
		if err != nil {
			return fmt.Errorf("doc counts by host: %w", err)
		}

		for _, c := range counts {
			if jsonOutput {
				fmt.Printf(`{"host":%q,"verified":%d}`+"\n", c.Host, c.Verified)
			} else {
				fmt.Printf("%-40s %d\n", c.Host, c.Verified)
			}
		}
		return nil
	},
}

func init() {
	countDocCountsCmd.Flags().Int64Var(&docCountThreshold, "threshold", 0, "minimum verified-download count to report")
}

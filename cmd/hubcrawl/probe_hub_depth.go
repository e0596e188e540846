package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	probeLimit int
	probeHost  string
)

var probeHubDepthCmd = &cobra.Command{
	Use:   "probe-hub-depth",
	Short: "Run the hub depth prober against verified hubs and update their mappings.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		log := newLogger(cfg)

		c, st, err := newCrawler(cfg, log)
		if err != nil {
			return err
		}
		defer st.Close()

		ctx := context.Background()
		mappings, err := st.ListMappingsNeedingDepthProbe(ctx, probeHost, probeLimit)
		if err != nil {
			return fmt.Errorf("list mappings: %w", err)
		}

		probed := 0
		for _, m := range mappings {
			result := c.Depth.Probe(ctx, m.Host, func(n int) string { return paginatedURLForProbe(m.URL, n) })
			var oldest interface{}
			if !result.OldestContentDate.IsZero() {
				oldest = result.OldestContentDate
			}
			if err := st.UpdateDepthProbeResult(ctx, m.ID, result.MaxPageDepth, oldest, result.Err); err != nil {
				log.Warn("probe-hub-depth: update result", "mapping_id", m.ID, "error", err)
				continue
			}
			probed++
			if jsonOutput {
				fmt.Printf(`{"mapping_id":%d,"host":%q,"max_page_depth":%d,"error":%q}`+"\n", m.ID, m.Host, result.MaxPageDepth, result.Err)
			} else {
				fmt.Printf("probed %s: max_page_depth=%d error=%q\n", m.URL, result.MaxPageDepth, result.Err)
			}
		}

		fmt.Printf("probed %d of %d mappings\n", probed, len(mappings))
		return nil
	},
}

func paginatedURLForProbe(base string, page int) string {
	if page <= 1 {
		return base
	}
	sep := "?"
	for _, r := range base {
		if r == '?' {
			sep = "&"
			break
		}
	}
	return fmt.Sprintf("%s%spage=%d", base, sep, page)
}

func init() {
	probeHubDepthCmd.Flags().IntVar(&probeLimit, "limit", 50, "maximum mappings to probe")
	probeHubDepthCmd.Flags().StringVar(&probeHost, "host", "", "restrict to a single host (empty = all hosts)")
}

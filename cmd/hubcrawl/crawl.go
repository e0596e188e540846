package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/metabench/hubcrawl/domainmode"
)

var (
	crawlStartURL   string
	crawlSequence   string
	crawlOverrides  string
	crawlSeedCache  []string
	crawlMaxAgeMs   int64
	crawlVerbose    bool
	crawlWorkers    int
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Run the main crawl loop.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		if crawlOverrides != "" {
			if err := json.Unmarshal([]byte(crawlOverrides), cfg); err != nil {
				return &argError{msg: "crawl: --shared-overrides: " + err.Error()}
			}
		}
		if crawlVerbose {
			cfg.Log.Level = "debug"
		}
		log := newLogger(cfg)

		if checkOnly {
			fmt.Println("ok")
			return nil
		}

		c, st, err := newCrawler(cfg, log)
		if err != nil {
			return err
		}
		defer st.Close()
		defer func() {
			if err := domainmode.Save(cfg.DomainMode.StatePath, c.DomainMode); err != nil {
				log.Warn("crawl: save domain-mode state", "error", err)
			}
		}()

		if crawlStartURL != "" {
			if _, err := c.Queue.Admit(context.Background(), crawlStartURL, 0, 0); err != nil {
				return fmt.Errorf("admit start url: %w", err)
			}
		}
		for _, host := range crawlSeedCache {
			log.Info("crawl: seed-from-cache requested", "host", host, "max_age_ms", crawlMaxAgeMs)
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit
			log.Info("crawl: shutdown signal received")
			c.Stop()
		}()

		workers := crawlWorkers
		if workers <= 0 {
			workers = 4
		}
		c.Run(ctx, workers)
		return nil
	},
}

func init() {
	crawlCmd.Flags().StringVar(&crawlStartURL, "start-url", "", "seed URL to admit before starting")
	crawlCmd.Flags().StringVar(&crawlSequence, "sequence", "", "named discovery sequence to run (reserved for future use)")
	crawlCmd.Flags().StringVar(&crawlOverrides, "shared-overrides", "", "JSON object decoded onto the resolved config; only the fields it names are replaced")
	crawlCmd.Flags().StringSliceVar(&crawlSeedCache, "seed-from-cache", nil, "hosts named for seed-from-cache; each is logged at startup, no cached entries are replayed")
	crawlCmd.Flags().Int64Var(&crawlMaxAgeMs, "max-age-hub-ms", 0, "cache age in ms for --seed-from-cache; logged with each host, not otherwise applied")
	crawlCmd.Flags().BoolVar(&crawlVerbose, "verbose", false, "enable verbose (debug-level) logging")
	crawlCmd.Flags().IntVar(&crawlWorkers, "workers", 4, "number of concurrent fetch workers")
}

// Package main hosts the hubcrawl CLI, grounded on the cobra root-command
// pattern (persistent flags + subcommands) shown in the retrieval pack's
// docs-crawler tool.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/metabench/hubcrawl/config"
	"github.com/metabench/hubcrawl/runner"
	"github.com/metabench/hubcrawl/store"
)

var (
	configPath string
	jsonOutput bool
	checkOnly  bool
)

var rootCmd = &cobra.Command{
	Use:   "hubcrawl",
	Short: "A tenacious, domain-aware news hub crawler.",
	Long: `hubcrawl discovers, paginates, and verifies news-site hub archives:
it learns a site's URL patterns, predicts page classes before fetching,
applies per-host politeness and circuit breaking, and persists every
download with an auditable verification trail.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default: PURIFY_CONFIG env var, else ./crawler.yaml)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "emit machine-readable JSON output")
	rootCmd.PersistentFlags().BoolVar(&checkOnly, "check", false, "run a health probe and exit, without side effects")

	rootCmd.AddCommand(crawlCmd, verifiedCrawlCmd, probeHubDepthCmd, guessPlaceHubsCmd, countDocCountsCmd, serverCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if _, ok := err.(*argError); ok {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// argError marks a cobra RunE failure as a configuration/argument error
// (exit code 2 per §6) rather than a runtime failure (exit code 1).
type argError struct{ msg string }

func (e *argError) Error() string { return e.msg }

// loadConfig resolves the run manifest: --config when given, otherwise
// the PURIFY_CONFIG env var, otherwise the conventional ./crawler.yaml.
func loadConfig() *config.Config {
	if configPath != "" {
		return config.LoadFrom(configPath)
	}
	return config.Load()
}

func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.Log.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if cfg.Log.Format == "text" {
		h = slog.NewTextHandler(os.Stderr, opts)
	} else {
		h = slog.NewJSONHandler(os.Stderr, opts)
	}
	return slog.New(h)
}

// newCrawler opens the store and builds a fully wired runner.Crawler,
// the shared bootstrap every subcommand except count-doc-counts needs.
func newCrawler(cfg *config.Config, log *slog.Logger) (*runner.Crawler, *store.Store, error) {
	st, err := store.Open(context.Background(), cfg.Postgres, log)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	c, err := runner.New(cfg, st, log)
	if err != nil {
		st.Close()
		return nil, nil, fmt.Errorf("build crawler: %w", err)
	}
	return c, st, nil
}

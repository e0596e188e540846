package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	guessDomain string
	guessKinds  []string
)

var guessPlaceHubsCmd = &cobra.Command{
	Use:   "guess-place-hubs",
	Short: "Emit candidate hub mappings for a domain by expanding the gazetteer through its learned URL patterns.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if guessDomain == "" {
			return &argError{msg: "guess-place-hubs: --domain is required"}
		}
		cfg := loadConfig()
		log := newLogger(cfg)

		c, st, err := newCrawler(cfg, log)
		if err != nil {
			return err
		}
		defer st.Close()

		kinds := guessKinds
		if len(kinds) == 0 {
			kinds = []string{""}
		}

		total := 0
		for _, kind := range kinds {
			n, err := c.HubSeeder.Seed(context.Background(), guessDomain, kind)
			if err != nil {
				return fmt.Errorf("seed kind %q: %w", kind, err)
			}
			total += n
			if jsonOutput {
				fmt.Printf(`{"domain":%q,"kind":%q,"created":%d}`+"\n", guessDomain, kind, n)
			} else {
				fmt.Printf("domain=%s kind=%q created=%d\n", guessDomain, kind, n)
			}
		}
		fmt.Printf("created %d candidate mappings total\n", total)
		return nil
	},
}

func init() {
	guessPlaceHubsCmd.Flags().StringVar(&guessDomain, "domain", "", "host to generate candidate mappings for")
	guessPlaceHubsCmd.Flags().StringSliceVar(&guessKinds, "kinds", nil, "comma-separated place kinds, e.g. country,adm1 (empty = all kinds)")
}

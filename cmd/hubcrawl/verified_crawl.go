package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	verifiedTarget    int64
	verifiedTimeoutMs int64
)

var verifiedCrawlCmd = &cobra.Command{
	Use:   "verified-crawl <url>",
	Short: "Run a crawl and print a verification report comparing claimed vs. actual downloads.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		startURL := args[0]
		cfg := loadConfig()
		log := newLogger(cfg)

		c, st, err := newCrawler(cfg, log)
		if err != nil {
			return err
		}
		defer st.Close()

		ctx := context.Background()
		baselineStart := time.Now().Add(-1 * time.Hour)
		baseline, err := st.VerifiedDownloadCount(ctx, baselineStart, time.Now())
		if err != nil {
			return fmt.Errorf("baseline count: %w", err)
		}

		if _, err := c.Queue.Admit(ctx, startURL, 0, 0); err != nil {
			return fmt.Errorf("admit start url: %w", err)
		}

		timeout := time.Duration(verifiedTimeoutMs) * time.Millisecond
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		runCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		done := make(chan struct{})
		go func() {
			c.Run(runCtx, 4)
			close(done)
		}()

		ticker := time.NewTicker(500 * time.Millisecond)
		defer ticker.Stop()
		var actual int64
	waitLoop:
		for {
			select {
			case <-runCtx.Done():
				break waitLoop
			case <-ticker.C:
				now, err := st.VerifiedDownloadCount(ctx, baselineStart, time.Now())
				if err == nil && now-baseline >= verifiedTarget {
					c.Stop()
					break waitLoop
				}
			}
		}
		<-done

		final, err := st.VerifiedDownloadCount(ctx, baselineStart, time.Now())
		if err != nil {
			return fmt.Errorf("final count: %w", err)
		}
		actual = final - baseline

		if jsonOutput {
			fmt.Printf(`{"claimed":%d,"actual":%d,"valid":%t}`+"\n", verifiedTarget, actual, actual >= verifiedTarget)
		} else {
			fmt.Printf("verification report: claimed target=%d actual=%d valid=%t\n", verifiedTarget, actual, actual >= verifiedTarget)
		}
		if actual < verifiedTarget {
			return fmt.Errorf("verified-crawl: only %d of %d target downloads completed before timeout", actual, verifiedTarget)
		}
		return nil
	},
}

func init() {
	verifiedCrawlCmd.Flags().Int64Var(&verifiedTarget, "target", 0, "number of verified downloads to reach")
	verifiedCrawlCmd.Flags().Int64Var(&verifiedTimeoutMs, "timeout", 0, "timeout in milliseconds")
	_ = verifiedCrawlCmd.MarkFlagRequired("target")
}

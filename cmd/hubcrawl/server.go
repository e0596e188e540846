package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/metabench/hubcrawl/api"
	"github.com/metabench/hubcrawl/domainmode"
)

var serverWorkers int

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the crawl loop alongside the hub-archive HTTP/JSON API.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
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
				log.Warn("server: save domain-mode state", "error", err)
			}
		}()

		startTime := time.Now()
		router := api.NewRouter(c, cfg, startTime)
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		httpServer := &http.Server{Addr: addr, Handler: router}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		workers := serverWorkers
		if workers <= 0 {
			workers = 4
		}
		go c.Run(ctx, workers)

		if c.MetricsServer != nil {
			c.MetricsServer.StartAsync()
		}

		go func() {
			log.Info("server: HTTP API listening", "addr", addr)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("server: HTTP server error", "error", err)
			}
		}()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		sig := <-quit
		log.Info("server: shutdown signal received", "signal", sig.String())

		c.Stop()
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("server: HTTP server forced shutdown", "error", err)
		}
		if c.MetricsServer != nil {
			if err := c.MetricsServer.Stop(shutdownCtx); err != nil {
				log.Warn("server: metrics server forced shutdown", "error", err)
			}
		}
		return nil
	},
}

func init() {
	serverCmd.Flags().IntVar(&serverWorkers, "workers", 4, "number of concurrent fetch workers")
}

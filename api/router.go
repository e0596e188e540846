// Package api exposes the hub-archive control surface named in spec.md
// §6: task-creation endpoints backed by the runner's depth prober and
// hub seeder, read-only coverage/stats endpoints backed by the store,
// and a streaming event channel backed by telemetry.Stream.
package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/metabench/hubcrawl/api/handler"
	"github.com/metabench/hubcrawl/api/middleware"
	"github.com/metabench/hubcrawl/config"
	"github.com/metabench/hubcrawl/runner"
)

// NewRouter creates a configured Gin engine exposing the hub-archive
// control surface (§6) over a running Crawler.
//
// Middleware chain:
//
//	Global: Recovery → Logger
//	API:    Auth (if enabled) → RateLimit
//
// Health and the event stream are intentionally outside auth: monitoring
// probes and dashboards should not need a key, and SSE readers outlive a
// single request.
func NewRouter(c *runner.Crawler, cfg *config.Config, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	r.GET("/health", handler.Health(c, startTime))
	r.GET("/api/events", handler.Events(c))

	api := r.Group("/api")
	if cfg.Auth.Enabled {
		api.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	api.Use(middleware.RateLimit(cfg.RateLimit))

	hubArchive := api.Group("/hub-archive")
	hubArchive.POST("/probe", handler.ProbeHubDepth(c))
	hubArchive.POST("/tasks", handler.GenerateCrawlTasks(c))
	hubArchive.GET("/stats", handler.ArchiveStats(c))
	hubArchive.GET("/hubs", handler.ListHubs(c))

	downloads := api.Group("/downloads")
	downloads.GET("/stats", handler.DownloadStats(c))
	downloads.GET("/range", handler.DownloadRange(c))
	downloads.GET("/verify", handler.VerifyDownloads(c))

	return r
}

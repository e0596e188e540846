package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/metabench/hubcrawl/runner"
)

// DownloadStats returns a handler for GET /api/downloads/stats: the
// all-time verified-download count and byte total (§4.A invariant 1/4).
func DownloadStats(c *runner.Crawler) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		stats, err := c.Store.GlobalDownloadStats(ctx.Request.Context())
		if err != nil {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		ctx.JSON(http.StatusOK, stats)
	}
}

// DownloadRange returns a handler for GET /api/downloads/range: verified
// and failed counts plus bytes downloaded within [start, end). Both
// bounds are RFC3339 query parameters; missing/invalid values default
// to the last 24 hours.
func DownloadRange(c *runner.Crawler) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		end := time.Now()
		start := end.Add(-24 * time.Hour)

		if s := ctx.Query("start"); s != "" {
			if parsed, err := time.Parse(time.RFC3339, s); err == nil {
				start = parsed
			}
		}
		if e := ctx.Query("end"); e != "" {
			if parsed, err := time.Parse(time.RFC3339, e); err == nil {
				end = parsed
			}
		}

		stats, err := c.Store.RangeStats(ctx.Request.Context(), start, end)
		if err != nil {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		ctx.JSON(http.StatusOK, stats)
	}
}

// VerifyDownloads returns a handler for GET /api/downloads/verify: the
// anti-hallucination check named in spec.md §6 — compares a caller's
// claimed download count against the store's own VerifiedDownloadCount
// for the same window, the same comparison verified-crawl prints at the
// CLI.
func VerifyDownloads(c *runner.Crawler) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		end := time.Now()
		start := end.Add(-24 * time.Hour)

		if s := ctx.Query("start"); s != "" {
			if parsed, err := time.Parse(time.RFC3339, s); err == nil {
				start = parsed
			}
		}
		if e := ctx.Query("end"); e != "" {
			if parsed, err := time.Parse(time.RFC3339, e); err == nil {
				end = parsed
			}
		}

		var claimed int64
		if v := ctx.Query("claimed"); v != "" {
			fmt.Sscanf(v, "%d", &claimed)
		}

		actual, err := c.Store.VerifiedDownloadCount(ctx.Request.Context(), start, end)
		if err != nil {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		ctx.JSON(http.StatusOK, gin.H{
			"valid":       actual == claimed,
			"actual":      actual,
			"claimed":     claimed,
			"discrepancy": claimed - actual,
		})
	}
}

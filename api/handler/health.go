package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/metabench/hubcrawl/proxy"
	"github.com/metabench/hubcrawl/runner"
)

type healthResponse struct {
	Status    string         `json:"status"`
	Uptime    string         `json:"uptime"`
	OpenHosts []string       `json:"open_circuit_hosts"`
	Version   string         `json:"version"`
	Proxies   []proxy.Status `json:"proxies,omitempty"`
}

// Health returns a handler for GET /health. Degrades to "degraded" when
// any host's circuit breaker is open — the clearest single signal that
// the crawl is not making forward progress somewhere, mirroring the
// teacher's pool-utilization degrade rule but over breaker state instead
// of page-pool saturation.
func Health(c *runner.Crawler, startTime time.Time) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		openHosts := c.Resilience.OpenHosts()

		status := "healthy"
		if len(openHosts) > 0 {
			status = "degraded"
		}

		var proxies []proxy.Status
		if c.Proxy != nil {
			proxies = c.Proxy.StatusAll()
		}

		ctx.JSON(http.StatusOK, healthResponse{
			Status:    status,
			Uptime:    time.Since(startTime).Round(time.Second).String(),
			OpenHosts: openHosts,
			Version:   "0.1.0",
			Proxies:   proxies,
		})
	}
}

package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsServer exposes the Prometheus /metrics endpoint
// (config.TelemetryConfig.MetricsAddr), grounded on the teacher's
// http.Server + graceful-shutdown pattern in cmd/purify/main.go.
type MetricsServer struct {
	server *http.Server
}

// NewMetricsServer builds a server serving gatherer's metrics at
// addr+"/metrics". runner.New passes the same registry it gave
// NewMetrics.
func NewMetricsServer(addr string, gatherer prometheus.Gatherer) *MetricsServer {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return &MetricsServer{server: &http.Server{Addr: addr, Handler: mux}}
}

// StartAsync begins serving in a background goroutine; errors other
// than a clean shutdown are logged.
func (s *MetricsServer) StartAsync() {
	go func() {
		slog.Info("telemetry metrics server listening", "addr", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("telemetry metrics server error", "error", err)
		}
	}()
}

// Stop gracefully shuts the server down within ctx's deadline.
func (s *MetricsServer) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

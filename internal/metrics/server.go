package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/seismicdata/drf-fanout/internal/config"
)

const readTimeout = 3 * time.Second

// CreateMetricsServer starts the /metrics HTTP endpoint if cfg.Enabled,
// returning any bind error instead of panicking.
func CreateMetricsServer(cfg config.Metrics) error {
	if !cfg.Enabled {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Bind, cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: readTimeout,
	}
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("metrics: listen on %s: %w", server.Addr, err)
	}
	return nil
}

// Package metrics exposes the Prometheus metrics of the commerce client.
// The collectors live in their own packages (client, identity, adapter,
// ratelimit) and register with the default registry through promauto.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Registry is the registerer every collector of the client is registered with.
var Registry = prometheus.DefaultRegisterer

// NewRouter returns a router serving /metrics and /health.
func NewRouter() chi.Router {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// Serve exposes NewRouter on addr until ctx is done.
func Serve(ctx context.Context, addr string, logger zerolog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewRouter(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("Serving metrics")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - commerce_requests_total{method, status} (Counter): requests by method and HTTP status
//   - commerce_request_duration_seconds{method} (Histogram): round-trip duration
//   - commerce_errors_total{class} (Counter): errors by class (client, not_found, validation, rate_limit, server, network)
//
// Rate Limit Metrics (pkg/client, pkg/ratelimit):
//   - commerce_rate_limit_waits_total (Counter): waits caused by 429 responses
//   - commerce_rate_limit_wait_seconds (Histogram): time spent waiting for the reset
//   - commerce_rate_limit_exhausted_total (Counter): requests still limited after their retry
//   - commerce_rate_limit_reset_timestamp_seconds (Gauge): last reported reset (epoch seconds)
//   - commerce_rate_limit_state_errors_total{operation} (Counter): state store failures
//
// Record Metrics (pkg/identity, pkg/adapter):
//   - commerce_identity_map_lookups_total{resource, result} (Counter): hits and misses
//   - commerce_sideloaded_records_total{resource} (Counter): records registered from sideloads
//
// Example Prometheus Queries:
//
//   # Identity map hit rate
//   sum(rate(commerce_identity_map_lookups_total{result="hit"}[5m])) /
//   sum(rate(commerce_identity_map_lookups_total[5m]))
//
//   # Rate-limit pressure
//   rate(commerce_rate_limit_waits_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(commerce_request_duration_seconds_bucket[5m]))

// Package metrics exposes the Prometheus registry used by the correction sender.
// All metrics are defined in their respective packages (client, cache,
// ratelimit, results, dispatch) to maintain modularity and avoid circular
// dependencies.
//
// This package serves them over HTTP and documents what is available.
package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Registry is the default Prometheus registry used by the correction sender.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Path is where the exposition endpoint is mounted.
const Path = "/metrics"

// Handler returns the exposition handler for the default gatherer.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve exposes Path on ln until ctx is done.
func Serve(ctx context.Context, ln net.Listener) error {
	mux := http.NewServeMux()
	mux.Handle(Path, Handler())

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", ln.Addr().String()).Msg("Serving metrics")

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ListenAndServe binds addr and calls Serve.
func ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return Serve(ctx, ln)
}

// Metrics Documentation
//
// Rate Limit Metrics (pkg/ratelimit):
//   - correction_ratelimit_tokens (Gauge): Tokens left in the current one-second window
//   - correction_ratelimit_acquired_total{backend} (Counter): Tokens granted by backend (memory, redis)
//   - correction_ratelimit_wait_seconds (Histogram): Time spent blocked in Acquire
//   - correction_ratelimit_backend_errors_total (Counter): Redis errors in the shared window
//
// Cache Metrics (pkg/cache):
//   - correction_payment_cache_hits_total (Counter): Payment-info cache hits
//   - correction_payment_cache_misses_total (Counter): Payment-info cache misses
//   - correction_payment_cache_errors_total{operation} (Counter): Cache operation errors
//
// Request Metrics (pkg/client):
//   - correction_requests_total{operation, status} (Counter): Requests by operation and HTTP status
//   - correction_request_duration_seconds{operation} (Histogram): Duration including retries
//   - correction_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network, business)
//
// Retry Metrics (pkg/client):
//   - correction_retries_total{error_class} (Counter): Retry attempts by error class
//   - correction_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - correction_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Batch Metrics (pkg/results, pkg/dispatch):
//   - correction_outcomes_total{result} (Counter): Per-record outcomes (success, failure)
//   - correction_dispatch_duration_seconds (Histogram): End-to-end time per record
//   - correction_dispatch_panics_total (Counter): Recovered worker panics
//
// Example Prometheus Queries:
//
//   # Failure Ratio
//   sum(rate(correction_outcomes_total{result="failure"}[5m])) /
//   sum(rate(correction_outcomes_total[5m]))
//
//   # Throttling by the API
//   rate(correction_requests_total{status="429"}[5m])
//
//   # P95 Record Latency
//   histogram_quantile(0.95, rate(correction_dispatch_duration_seconds_bucket[5m]))

package ratelimit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for request rate limiting.
var (
	rateLimitTokens = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "correction_ratelimit_tokens",
		Help: "Tokens left in the current in-process rate limit window",
	})

	rateLimitAcquired = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "correction_ratelimit_acquired_total",
		Help: "Total tokens acquired by backend",
	}, []string{"backend"}) // "memory", "redis"

	rateLimitWait = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "correction_ratelimit_wait_seconds",
		Help:    "Time spent waiting for a token when the pool was empty",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	})

	rateLimitBackendErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "correction_ratelimit_backend_errors_total",
		Help: "Total Redis errors while acquiring a shared token",
	})
)

package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks payment-info cache hits
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "correction_payment_cache_hits_total",
			Help: "Total number of payment-info cache hits",
		},
	)

	// CacheMisses tracks payment-info cache misses
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "correction_payment_cache_misses_total",
			Help: "Total number of payment-info cache misses",
		},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "correction_payment_cache_errors_total",
			Help: "Total number of payment-info cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)
)

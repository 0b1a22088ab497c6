package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	dispatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "correction_dispatch_duration_seconds",
		Help:    "Time to process one record end to end, including rate-limit waits and retries",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
	})

	dispatchPanics = promauto.NewCounter(prometheus.CounterOpts{
		Name: "correction_dispatch_panics_total",
		Help: "Total number of recovered worker panics",
	})
)

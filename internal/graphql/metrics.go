package graphql

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	operationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storyfeed",
			Subsystem: "graphql",
			Name:      "operations_total",
			Help:      "Total number of resolved GraphQL operations by name.",
		},
		[]string{"operation"},
	)

	operationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "storyfeed",
			Subsystem: "graphql",
			Name:      "operation_duration_seconds",
			Help:      "GraphQL operation resolution latency.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

// observeOperation records one operation. Use as
// `defer observeOperation("createStory")()`.
func observeOperation(operation string) func() {
	start := time.Now()
	operationsTotal.WithLabelValues(operation).Inc()
	return func() {
		operationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}

// Package metrics holds the process-wide prometheus collectors served on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	StoreOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "schoolportal_store_operations_total",
		Help: "Document store calls by collection, operation and outcome",
	}, []string{"collection", "operation", "outcome"})

	StoreDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "schoolportal_store_operation_duration_seconds",
		Help:    "Latency of document store calls",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"operation"})

	ActiveSubscriptions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "schoolportal_schedule_subscriptions_active",
		Help: "Open live schedule subscriptions",
	})

	SnapshotsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "schoolportal_schedule_snapshots_total",
		Help: "Schedule views published to subscribers",
	})

	ScheduleWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "schoolportal_schedule_writes_total",
		Help: "Schedule mutations by kind",
	}, []string{"kind"})

	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "schoolportal_rate_limited_total",
		Help: "Requests rejected by the rate limiter",
	})
)

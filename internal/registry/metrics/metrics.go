package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the registry module.
type Metrics struct {
	// Operation outcomes by operation and result
	Operations *prometheus.CounterVec

	// Operation latency by operation
	OperationLatency *prometheus.HistogramVec

	// Commit conflicts (losers of concurrent races on one record)
	CommitConflicts prometheus.Counter
}

// New creates a new Metrics instance with all registry metrics registered.
func New() *Metrics {
	return &Metrics{
		Operations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ans_registry_operations_total",
			Help: "Total registry operations by operation and result",
		}, []string{"operation", "result"}), // result: "committed", "rejected"

		OperationLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ans_registry_operation_duration_seconds",
			Help:    "Duration of registry operations including store commit",
			Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation"}),

		CommitConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ans_registry_commit_conflicts_total",
			Help: "Total commits that lost a concurrent race on the same record",
		}),
	}
}

// RecordOperation records one registry operation's result and duration.
func (m *Metrics) RecordOperation(operation, result string, d time.Duration) {
	if m != nil {
		m.Operations.WithLabelValues(operation, result).Inc()
		m.OperationLatency.WithLabelValues(operation).Observe(d.Seconds())
	}
}

// IncrementConflict records a lost commit race.
func (m *Metrics) IncrementConflict() {
	if m != nil {
		m.CommitConflicts.Inc()
	}
}

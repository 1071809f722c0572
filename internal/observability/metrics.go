package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"polity/internal/core"
)

// Metrics records service operation and index synchronization metrics.
type Metrics struct {
	OperationDuration *prometheus.HistogramVec
	OperationsTotal   *prometheus.CounterVec
	IndexOpsTotal     *prometheus.CounterVec
	IndexRetriesTotal *prometheus.CounterVec
}

var (
	_ core.MetricsRecorder = (*Metrics)(nil)
	_ core.IndexMetrics    = (*Metrics)(nil)
)

// NewMetrics registers the collectors with reg. A nil reg uses the default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "polity_operation_duration_seconds",
			Help:    "Duration of entity store operations",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		OperationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "polity_operations_total",
			Help: "Entity store operations by outcome",
		}, []string{"operation", "status"}),
		IndexOpsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "polity_index_operations_total",
			Help: "Search document writes by index, action and outcome",
		}, []string{"index", "action", "status"}),
		IndexRetriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "polity_index_retries_total",
			Help: "Search document write retries by index and action",
		}, []string{"index", "action"}),
	}
}

func status(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// Observe implements core.MetricsRecorder.
func (m *Metrics) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if m == nil || operation == "" {
		return
	}
	m.OperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
	m.OperationsTotal.WithLabelValues(operation, status(success)).Inc()
}

// ObserveIndexOp implements core.IndexMetrics.
func (m *Metrics) ObserveIndexOp(index, action string, success bool) {
	if m == nil {
		return
	}
	m.IndexOpsTotal.WithLabelValues(index, action, status(success)).Inc()
}

// ObserveIndexRetry implements core.IndexMetrics.
func (m *Metrics) ObserveIndexRetry(index, action string) {
	if m == nil {
		return
	}
	m.IndexRetriesTotal.WithLabelValues(index, action).Inc()
}

package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	SyncRunsTotal   *prometheus.CounterVec
	SyncDuration    *prometheus.HistogramVec
	SyncStep        *prometheus.GaugeVec
}

// NewMetrics creates and registers Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dpd_requests_total",
				Help: "Total number of API requests by operation and status",
			},
			[]string{"operation", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dpd_request_duration_seconds",
				Help:    "API request duration in seconds by operation",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		SyncRunsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dpd_sync_runs_total",
				Help: "Total sync pipeline invocations by the step they stopped at and status",
			},
			[]string{"step", "status"},
		),
		SyncDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dpd_sync_duration_seconds",
				Help:    "Sync invocation duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
			},
			[]string{"status"},
		),
		SyncStep: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "dpd_sync_current_step",
				Help: "Set to 1 for the step the pipeline is currently parked at",
			},
			[]string{"step"},
		),
	}
}

// RecordRequest records an API request metric.
func (m *Metrics) RecordRequest(operation, status string, duration float64) {
	m.RequestsTotal.WithLabelValues(operation, status).Inc()
	m.RequestDuration.WithLabelValues(operation).Observe(duration)
}

// RecordSyncRun records one pipeline invocation.
func (m *Metrics) RecordSyncRun(step, status string, duration float64) {
	m.SyncRunsTotal.WithLabelValues(step, status).Inc()
	m.SyncDuration.WithLabelValues(status).Observe(duration)
}

// SetSyncStep marks the step the pipeline is parked at.
func (m *Metrics) SetSyncStep(steps []string, current string) {
	for _, step := range steps {
		value := 0.0
		if step == current {
			value = 1.0
		}
		m.SyncStep.WithLabelValues(step).Set(value)
	}
}

package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics.
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Engine metrics
	ExecutionsTotal    *prometheus.CounterVec
	ExecutionDuration  prometheus.Histogram
	WorkerReplacements prometheus.Counter
	SnapshotsEmitted   prometheus.Counter

	// WebSocket metrics
	WSConnections prometheus.Gauge

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time
}

// NewMetrics creates a new metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{
		startTime: time.Now(),

		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "engine_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "engine_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),

		ExecutionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "engine_executions_total",
				Help: "Total number of guest executions by exit reason",
			},
			[]string{"exit_reason"},
		),
		ExecutionDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "engine_execution_duration_seconds",
				Help:    "Guest execution duration in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
		),
		WorkerReplacements: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "engine_worker_replacements_total",
				Help: "Total number of abandoned and replaced workers",
			},
		),
		SnapshotsEmitted: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "engine_snapshots_emitted_total",
				Help: "Total number of structure snapshots returned to callers",
			},
		),

		WSConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "engine_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),

		Uptime: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "engine_uptime_seconds",
				Help: "Service uptime in seconds",
			},
		),
	}
}

// RecordHTTPRequest records an HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.Uptime.Set(time.Since(m.startTime).Seconds())
}

// RecordExecution records one guest execution.
func (m *Metrics) RecordExecution(exitReason string, duration time.Duration, snapshotEmitted bool) {
	if m == nil {
		return
	}
	m.ExecutionsTotal.WithLabelValues(exitReason).Inc()
	m.ExecutionDuration.Observe(duration.Seconds())
	if snapshotEmitted {
		m.SnapshotsEmitted.Inc()
	}
}

// RecordWorkerReplacement records an abandoned worker.
func (m *Metrics) RecordWorkerReplacement() {
	if m == nil {
		return
	}
	m.WorkerReplacements.Inc()
}

// RecordWSConnect records a new WebSocket connection.
func (m *Metrics) RecordWSConnect() {
	if m == nil {
		return
	}
	m.WSConnections.Inc()
}

// RecordWSDisconnect records a closed WebSocket connection.
func (m *Metrics) RecordWSDisconnect() {
	if m == nil {
		return
	}
	m.WSConnections.Dec()
}

// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the engine.
type Metrics struct {
	// Cycle metrics
	CycleRunsTotal     *prometheus.CounterVec
	CycleDuration      prometheus.Histogram
	TokensSelected     prometheus.Gauge
	TokenPipelineRuns  *prometheus.CounterVec
	TokenPipelineTime  prometheus.Histogram
	SnapshotsWritten   *prometheus.CounterVec
	SnapshotDuplicates prometheus.Counter

	// Feed metrics
	FeedRequestsTotal    *prometheus.CounterVec
	FeedCallLatency      prometheus.Histogram
	StreamEventsReceived prometheus.Counter
	StreamEventsStored   prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulCycle prometheus.Gauge
	UptimeSeconds       prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "token_feature_engine"
	}

	return &Metrics{
		// Cycle metrics
		CycleRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cycle",
			Name:      "runs_total",
			Help:      "Total number of computation cycles by status",
		}, []string{"status"}),
		CycleDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "cycle",
			Name:      "duration_seconds",
			Help:      "Computation cycle duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),
		TokensSelected: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cycle",
			Name:      "tokens_selected",
			Help:      "Number of tokens selected in the last cycle",
		}),
		TokenPipelineRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cycle",
			Name:      "token_pipeline_runs_total",
			Help:      "Total number of per-token pipeline runs by status",
		}, []string{"status"}),
		TokenPipelineTime: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "cycle",
			Name:      "token_pipeline_duration_seconds",
			Help:      "Per-token pipeline duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		SnapshotsWritten: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "snapshots_written_total",
			Help:      "Total number of feature snapshots written by analysis source",
		}, []string{"source"}),
		SnapshotDuplicates: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "snapshot_duplicates_total",
			Help:      "Total number of idempotent duplicate snapshot writes",
		}),

		// Feed metrics
		FeedRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "requests_total",
			Help:      "Total number of transfer feed requests by outcome",
		}, []string{"outcome"}),
		FeedCallLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "call_latency_seconds",
			Help:      "Transfer feed call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		StreamEventsReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "stream_events_received_total",
			Help:      "Total number of live stream transfer events received",
		}),
		StreamEventsStored: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "stream_events_stored_total",
			Help:      "Total number of live stream transfer events stored",
		}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulCycle: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_cycle_timestamp",
			Help:      "Unix timestamp of the last successful cycle",
		}),
		UptimeSeconds: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "uptime_seconds_total",
			Help:      "Total uptime in seconds",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordCycle records one cycle run.
func (m *Metrics) RecordCycle(status string, durationSeconds float64) {
	m.CycleRunsTotal.WithLabelValues(status).Inc()
	m.CycleDuration.Observe(durationSeconds)
}

// RecordSnapshot records a written snapshot by analysis source.
func (m *Metrics) RecordSnapshot(source string) {
	m.SnapshotsWritten.WithLabelValues(source).Inc()
}

// RecordDBQuery records database query metrics.
func (m *Metrics) RecordDBQuery(database, operation string, seconds float64, err error) {
	m.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		m.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

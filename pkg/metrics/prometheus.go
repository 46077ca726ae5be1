// Package metrics provides Prometheus metrics for the triboard quiz
// ranking service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Session lifecycle
	sessionsStarted   prometheus.Counter
	sessionsFinalized prometheus.Counter
	finalizeFailures  *prometheus.CounterVec

	// Ranking
	rankInserts    *prometheus.CounterVec
	pruneDeletions *prometheus.CounterVec
	boardSize      *prometheus.GaugeVec

	// Question stats pipeline
	statEventsRecorded  prometheus.Counter
	statEventsDuplicate prometheus.Counter
	queueSize           prometheus.Gauge
	queueCapacity       prometheus.Gauge
	workerCount         prometheus.Gauge
	workerErrors        prometheus.Counter

	// Store latency
	storeWriteLatency prometheus.Histogram
	storeQueryLatency prometheus.Histogram

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "triboard",
		subsystem:        "ranking",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.sessionsStarted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sessions_started_total",
		Help:      "Total number of play sessions started",
	})

	m.sessionsFinalized = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sessions_finalized_total",
		Help:      "Total number of play sessions finalized",
	})

	m.finalizeFailures = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "finalize_failures_total",
			Help:      "Total number of rejected session finalizations by kind",
		},
		[]string{"kind"},
	)

	m.rankInserts = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "rank_inserts_total",
			Help:      "Total number of rank entries inserted by board",
		},
		[]string{"board"},
	)

	m.pruneDeletions = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "prune_deletions_total",
			Help:      "Total number of rank entries removed by pruning, by board",
		},
		[]string{"board"},
	)

	m.boardSize = auto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "board_size",
			Help:      "Current number of live rank entries per board",
		},
		[]string{"board"},
	)

	m.statEventsRecorded = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "stat_events_recorded_total",
		Help:      "Total number of answer outcome events accepted",
	})

	m.statEventsDuplicate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "stat_events_duplicate_total",
		Help:      "Total number of duplicate answer outcome events detected",
	})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "stat_queue_size",
		Help:      "Current size of the answer stats queue",
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "stat_queue_capacity",
		Help:      "Capacity of the answer stats queue",
	})

	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "stat_worker_count",
		Help:      "Current number of answer stats workers",
	})

	m.workerErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "stat_worker_errors_total",
		Help:      "Total number of answer stats processing errors",
	})

	m.storeWriteLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_write_latency_milliseconds",
		Help:      "Histogram of store write latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.storeQueryLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_query_latency_milliseconds",
		Help:      "Histogram of store query latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)
}

// RecordSessionStarted increments the sessions started counter.
func RecordSessionStarted() {
	globalManager.sessionsStarted.Inc()
}

// RecordSessionFinalized increments the sessions finalized counter.
func RecordSessionFinalized() {
	globalManager.sessionsFinalized.Inc()
}

// RecordFinalizeFailure increments the finalize failure counter for a kind.
func RecordFinalizeFailure(kind string) {
	globalManager.finalizeFailures.WithLabelValues(kind).Inc()
}

// RecordRankInsert increments the rank insert counter for a board.
func RecordRankInsert(boardName string) {
	globalManager.rankInserts.WithLabelValues(boardName).Inc()
}

// RecordPruneDeletions adds to the prune deletion counter for a board.
func RecordPruneDeletions(boardName string, n int) {
	if n > 0 {
		globalManager.pruneDeletions.WithLabelValues(boardName).Add(float64(n))
	}
}

// UpdateBoardSize sets the current board size gauge.
func UpdateBoardSize(boardName string, size int) {
	globalManager.boardSize.WithLabelValues(boardName).Set(float64(size))
}

// RecordStatEvent increments the recorded answer outcome counter.
func RecordStatEvent() {
	globalManager.statEventsRecorded.Inc()
}

// RecordStatDuplicate increments the duplicate answer outcome counter.
func RecordStatDuplicate() {
	globalManager.statEventsDuplicate.Inc()
}

// UpdateQueueSize sets the current stats queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the stats queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateWorkerCount sets the current stats worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerError increments the stats worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordStoreWriteLatency records store write latency in milliseconds.
func RecordStoreWriteLatency(latencyMs float64) {
	globalManager.storeWriteLatency.Observe(latencyMs)
}

// RecordStoreQueryLatency records store query latency in milliseconds.
func RecordStoreQueryLatency(latencyMs float64) {
	globalManager.storeQueryLatency.Observe(latencyMs)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// GetRegistry returns the custom registry used by the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

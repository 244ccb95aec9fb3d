// Package metrics provides Prometheus metrics for the hoopdex build engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the hoopdex service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	registry         prometheus.Registerer

	// Ingestion Metrics - Catalog freshness and data quality
	ingestRowsIngested prometheus.Counter
	ingestRowsSkipped  prometheus.Counter
	ingestSourceErrors prometheus.Counter
	reloadCount        prometheus.Counter
	reloadRejected     prometheus.Counter
	reloadDuration     prometheus.Histogram
	generationLastUnix prometheus.Gauge

	// Catalog Metrics - Published generation shape
	catalogBuilds     prometheus.Gauge
	catalogDimensions prometheus.Gauge
	catalogSources    prometheus.Gauge

	// Query Metrics - Engine performance
	searchLatency     prometheus.Histogram
	similarityLatency prometheus.Histogram
	compareLatency    prometheus.Histogram
	queryTimeouts     prometheus.Counter

	// Snapshot Metrics - Content-addressed restore cache
	snapshotHits   prometheus.Counter
	snapshotMisses prometheus.Counter
	snapshotWrites prometheus.Counter

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error Metrics - Per endpoint and type
	errorRateByEndpoint *prometheus.CounterVec
	errorRateByType     *prometheus.CounterVec
	errorLatency        *prometheus.HistogramVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
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
		namespace:        "hoopdex",
		subsystem:        "engine",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	// Ensure metrics are registered on the configured registry (custom by default)
	auto := promauto.With(m.registry)

	// Ingestion Metrics
	m.ingestRowsIngested = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ingest_rows_ingested_total",
		Help:      "Total number of CSV rows successfully ingested into a generation",
	})

	m.ingestRowsSkipped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ingest_rows_skipped_total",
		Help:      "Total number of CSV rows skipped with a row error",
	})

	m.ingestSourceErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ingest_source_errors_total",
		Help:      "Total number of sources aborted by schema or zero-row errors",
	})

	m.reloadCount = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "reloads_total",
		Help:      "Total number of completed catalog reloads",
	})

	m.reloadRejected = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "reloads_rejected_total",
		Help:      "Total number of reload requests rejected while another reload was in flight",
	})

	m.reloadDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "reload_duration_milliseconds",
		Help:      "Histogram of end-to-end reload duration in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.generationLastUnix = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "generation_last_published_unix",
		Help:      "Unix timestamp of the most recently published catalog generation",
	})

	// Catalog Metrics
	m.catalogBuilds = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "catalog_builds",
		Help:      "Number of build records in the published generation",
	})

	m.catalogDimensions = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "catalog_dimensions",
		Help:      "Number of distinct attribute dimensions in the published generation",
	})

	m.catalogSources = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "catalog_sources",
		Help:      "Number of CSV sources contributing to the published generation",
	})

	// Query Metrics
	m.searchLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "search_latency_milliseconds",
		Help:      "Histogram of filter search latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.similarityLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "similarity_latency_milliseconds",
		Help:      "Histogram of nearest-neighbor query latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.compareLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "compare_latency_milliseconds",
		Help:      "Histogram of pairwise comparison latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.queryTimeouts = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "query_timeouts_total",
		Help:      "Total number of queries that exceeded the configured deadline",
	})

	// Snapshot Metrics
	m.snapshotHits = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "snapshot_hits_total",
		Help:      "Total number of generation restores served from the snapshot store",
	})

	m.snapshotMisses = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "snapshot_misses_total",
		Help:      "Total number of snapshot lookups that required a full re-parse",
	})

	m.snapshotWrites = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "snapshot_writes_total",
		Help:      "Total number of generations persisted to the snapshot store",
	})

	// HTTP Performance Metrics
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

	// Error Metrics
	m.errorRateByEndpoint = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "errors_by_endpoint_total",
			Help:      "Total errors by endpoint, method and error type",
		},
		[]string{"endpoint", "method", "error_type"},
	)

	m.errorRateByType = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "errors_by_type_total",
			Help:      "Total errors by error type and severity",
		},
		[]string{"error_type", "severity"},
	)

	m.errorLatency = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "error_latency_milliseconds",
			Help:      "Latency of operations that resulted in errors",
			Buckets:   m.histogramBuckets,
		},
		[]string{"component", "error_type"},
	)

	// System Performance Metrics
	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_usage_bytes",
		Help:      "Current heap allocation in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutine_count",
		Help:      "Current number of goroutines",
	})
}

// Ingestion Metrics Functions.

// RecordRowsIngested adds to the ingested rows counter.
func RecordRowsIngested(n int) {
	globalManager.ingestRowsIngested.Add(float64(n))
}

// RecordRowsSkipped adds to the skipped rows counter.
func RecordRowsSkipped(n int) {
	globalManager.ingestRowsSkipped.Add(float64(n))
}

// RecordSourceError increments the aborted sources counter.
func RecordSourceError() {
	globalManager.ingestSourceErrors.Inc()
}

// RecordReload increments the completed reloads counter.
func RecordReload() {
	globalManager.reloadCount.Inc()
}

// RecordReloadRejected increments the rejected reloads counter.
func RecordReloadRejected() {
	globalManager.reloadRejected.Inc()
}

// RecordReloadDuration records reload duration in milliseconds.
func RecordReloadDuration(latencyMs float64) {
	globalManager.reloadDuration.Observe(latencyMs)
}

// UpdateGenerationPublished sets the publish timestamp of the current generation.
func UpdateGenerationPublished(unix int64) {
	globalManager.generationLastUnix.Set(float64(unix))
}

// Catalog Metrics Functions.

// UpdateCatalogBuilds sets the build count of the published generation.
func UpdateCatalogBuilds(count int) {
	globalManager.catalogBuilds.Set(float64(count))
}

// UpdateCatalogDimensions sets the dimension count of the published generation.
func UpdateCatalogDimensions(count int) {
	globalManager.catalogDimensions.Set(float64(count))
}

// UpdateCatalogSources sets the source count of the published generation.
func UpdateCatalogSources(count int) {
	globalManager.catalogSources.Set(float64(count))
}

// Query Metrics Functions.

// RecordSearchLatency records filter search latency in milliseconds.
func RecordSearchLatency(latencyMs float64) {
	globalManager.searchLatency.Observe(latencyMs)
}

// RecordSimilarityLatency records nearest-neighbor latency in milliseconds.
func RecordSimilarityLatency(latencyMs float64) {
	globalManager.similarityLatency.Observe(latencyMs)
}

// RecordCompareLatency records comparison latency in milliseconds.
func RecordCompareLatency(latencyMs float64) {
	globalManager.compareLatency.Observe(latencyMs)
}

// RecordQueryTimeout increments the query timeout counter.
func RecordQueryTimeout() {
	globalManager.queryTimeouts.Inc()
}

// Snapshot Metrics Functions.

// RecordSnapshotHit increments the snapshot hit counter.
func RecordSnapshotHit() {
	globalManager.snapshotHits.Inc()
}

// RecordSnapshotMiss increments the snapshot miss counter.
func RecordSnapshotMiss() {
	globalManager.snapshotMisses.Inc()
}

// RecordSnapshotWrite increments the snapshot write counter.
func RecordSnapshotWrite() {
	globalManager.snapshotWrites.Inc()
}

// HTTP Metrics Functions.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Error Metrics Functions.

// RecordErrorByEndpoint records an error for a specific endpoint.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorByType records an error by type and severity.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// System Metrics Functions.

// UpdateSystemMemoryUsage sets current memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the current goroutine count.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

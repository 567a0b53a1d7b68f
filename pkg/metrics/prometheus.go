// Package metrics provides Prometheus metrics for the opening explorer.
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

// Manager owns every collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Ingestion
	gamesReceived  prometheus.Counter
	gamesDuplicate prometheus.Counter
	gamesIndexed   prometheus.Counter
	gamesSkipped   *prometheus.CounterVec
	cellMerges     *prometheus.CounterVec
	positionsTotal prometheus.Gauge

	// Record format
	entriesEncoded      prometheus.Counter
	entriesDecoded      prometheus.Counter
	entryDecodeErrors   prometheus.Counter
	entryEncodedBytes   prometheus.Histogram
	storeMergeLatency   prometheus.Histogram
	storeLookupLatency  prometheus.Histogram
	snapshotDuration    *prometheus.HistogramVec
	snapshotBytes       *prometheus.GaugeVec
	snapshotLastUnix    prometheus.Gauge
	lilaGamesStreamed   prometheus.Counter
	lilaRequestFailures prometheus.Counter

	// Queue and workers
	queueSize               prometheus.Gauge
	queueCapacity           prometheus.Gauge
	queueEnqueued           prometheus.Counter
	queueDequeued           prometheus.Counter
	queueEnqueueErrors      *prometheus.CounterVec
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "explorer",
		subsystem:        "index",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help,
		ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) gaugeVec(name, help string, labels ...string) *prometheus.GaugeVec {
	return promauto.With(m.registry).NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help,
		ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help,
		ConstLabels: m.customLabels, Buckets: buckets,
	})
}

func (m *Manager) histogramVec(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help,
		ConstLabels: m.customLabels, Buckets: buckets,
	}, labels)
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	m.gamesReceived = m.counter("games_received_total", "Games submitted for indexing")
	m.gamesDuplicate = m.counter("games_duplicate_total", "Games dropped because their id was already accepted")
	m.gamesIndexed = m.counter("games_indexed_total", "Games folded into the index")
	m.gamesSkipped = m.counterVec("games_skipped_total", "Games not indexed, by reason", "reason")
	m.cellMerges = m.counterVec("cell_merges_total", "Group merges into a position cell", "speed", "rating_group")
	m.positionsTotal = m.gauge("positions", "Distinct opening positions in the index")

	m.entriesEncoded = m.counter("entries_encoded_total", "Position entries serialized")
	m.entriesDecoded = m.counter("entries_decoded_total", "Position entries deserialized")
	m.entryDecodeErrors = m.counter("entry_decode_errors_total", "Position entries rejected as malformed")
	m.entryEncodedBytes = m.histogram("entry_encoded_bytes", "Serialized size of a position entry",
		prometheus.ExponentialBuckets(8, 2, 12))
	m.storeMergeLatency = m.histogram("store_merge_latency_milliseconds", "Latency of merging a group into the store", m.histogramBuckets)
	m.storeLookupLatency = m.histogram("store_lookup_latency_milliseconds", "Latency of a position lookup", m.histogramBuckets)
	m.snapshotDuration = m.histogramVec("snapshot_duration_milliseconds", "Duration of snapshot save and restore",
		prometheus.ExponentialBuckets(1, 4, 10), "op")
	m.snapshotBytes = m.gaugeVec("snapshot_bytes", "Compressed size of the last snapshot", "op")
	m.snapshotLastUnix = m.gauge("snapshot_last_unixtime", "Unix time of the last successful snapshot save")
	m.lilaGamesStreamed = m.counter("lila_games_streamed_total", "Games received from the lichess API")
	m.lilaRequestFailures = m.counter("lila_request_failures_total", "Failed requests to the lichess API")

	m.queueSize = m.gauge("queue_size", "Games waiting in the queue")
	m.queueCapacity = m.gauge("queue_capacity", "Queue capacity")
	m.queueEnqueued = m.counter("queue_enqueued_total", "Games enqueued")
	m.queueDequeued = m.counter("queue_dequeued_total", "Games dequeued")
	m.queueEnqueueErrors = m.counterVec("queue_enqueue_errors_total", "Rejected enqueues, by cause", "cause")
	m.workerCount = m.gauge("worker_count", "Indexing workers")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Time to index one game", m.histogramBuckets)
	m.workerErrors = m.counter("worker_errors_total", "Games that failed while being indexed")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration",
		m.histogramBuckets, "endpoint", "method", "status_code")

	m.errorsByComponent = m.counterVec("errors_total", "Errors by component and type", "component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutines", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_milliseconds", "Average GC pause", m.histogramBuckets)
}

func enabled() bool { return globalManager != nil && globalManager.enabled }

// RefreshInterval is how often sampled gauges should be refreshed.
func (m *Manager) RefreshInterval() time.Duration { return m.refreshInterval }

// RefreshInterval returns the refresh interval of the global manager.
func RefreshInterval() time.Duration {
	if globalManager == nil {
		return defaultRefreshInterval
	}
	return globalManager.RefreshInterval()
}

// RecordGameReceived counts a submitted game.
func RecordGameReceived() {
	if enabled() {
		globalManager.gamesReceived.Inc()
	}
}

// RecordGameDuplicate counts a game dropped by the deduper.
func RecordGameDuplicate() {
	if enabled() {
		globalManager.gamesDuplicate.Inc()
	}
}

// RecordGameIndexed counts a game folded into the index.
func RecordGameIndexed() {
	if enabled() {
		globalManager.gamesIndexed.Inc()
	}
}

// RecordGameSkipped counts a game the classifier rejected.
func RecordGameSkipped(reason string) {
	if enabled() {
		globalManager.gamesSkipped.WithLabelValues(reason).Inc()
	}
}

// RecordCellMerge counts one merge into a (speed, rating group) cell.
func RecordCellMerge(speed, ratingGroup string) {
	if enabled() {
		globalManager.cellMerges.WithLabelValues(speed, ratingGroup).Inc()
	}
}

// UpdatePositionsTotal sets the number of indexed positions.
func UpdatePositionsTotal(count int) {
	if enabled() {
		globalManager.positionsTotal.Set(float64(count))
	}
}

// RecordEntryEncoded observes the size of a serialized entry.
func RecordEntryEncoded(size int) {
	if enabled() {
		globalManager.entriesEncoded.Inc()
		globalManager.entryEncodedBytes.Observe(float64(size))
	}
}

// RecordEntryDecoded counts a deserialized entry.
func RecordEntryDecoded() {
	if enabled() {
		globalManager.entriesDecoded.Inc()
	}
}

// RecordEntryDecodeError counts a malformed entry.
func RecordEntryDecodeError() {
	if enabled() {
		globalManager.entryDecodeErrors.Inc()
	}
}

// RecordStoreMergeLatency observes a store merge.
func RecordStoreMergeLatency(latencyMs float64) {
	if enabled() {
		globalManager.storeMergeLatency.Observe(latencyMs)
	}
}

// RecordStoreLookupLatency observes a store lookup.
func RecordStoreLookupLatency(latencyMs float64) {
	if enabled() {
		globalManager.storeLookupLatency.Observe(latencyMs)
	}
}

// RecordSnapshot observes a snapshot save ("save") or restore ("restore").
func RecordSnapshot(op string, durationMs float64, bytes int64) {
	if !enabled() {
		return
	}
	globalManager.snapshotDuration.WithLabelValues(op).Observe(durationMs)
	globalManager.snapshotBytes.WithLabelValues(op).Set(float64(bytes))
	if op == "save" {
		globalManager.snapshotLastUnix.Set(float64(time.Now().Unix()))
	}
}

// RecordLilaGameStreamed counts a game read from the lichess API.
func RecordLilaGameStreamed() {
	if enabled() {
		globalManager.lilaGamesStreamed.Inc()
	}
}

// RecordLilaRequestFailure counts a failed lichess API request.
func RecordLilaRequestFailure() {
	if enabled() {
		globalManager.lilaRequestFailures.Inc()
	}
}

// UpdateQueueSize sets the queue length.
func UpdateQueueSize(size int) {
	if enabled() {
		globalManager.queueSize.Set(float64(size))
	}
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	if enabled() {
		globalManager.queueCapacity.Set(float64(capacity))
	}
}

// RecordQueueEnqueue counts an accepted enqueue.
func RecordQueueEnqueue() {
	if enabled() {
		globalManager.queueEnqueued.Inc()
	}
}

// RecordQueueDequeue counts a dequeue.
func RecordQueueDequeue() {
	if enabled() {
		globalManager.queueDequeued.Inc()
	}
}

// RecordQueueEnqueueError counts a rejected enqueue.
func RecordQueueEnqueueError(cause string) {
	if enabled() {
		globalManager.queueEnqueueErrors.WithLabelValues(cause).Inc()
	}
}

// UpdateWorkerCount sets the number of workers.
func UpdateWorkerCount(count int) {
	if enabled() {
		globalManager.workerCount.Set(float64(count))
	}
}

// RecordWorkerProcessingLatency observes the time to index one game.
func RecordWorkerProcessingLatency(latencyMs float64) {
	if enabled() {
		globalManager.workerProcessingLatency.Observe(latencyMs)
	}
}

// RecordWorkerError counts a game that failed while being indexed.
func RecordWorkerError() {
	if enabled() {
		globalManager.workerErrors.Inc()
	}
}

// RecordHTTPRequest counts an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if enabled() {
		globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	}
}

// RecordHTTPRequestDuration observes an HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	if enabled() {
		globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
	}
}

// RecordErrorByComponent counts an error in a component.
func RecordErrorByComponent(component, errorType string) {
	if enabled() {
		globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
	}
}

// UpdateSystemMemoryUsage sets allocated heap bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	if enabled() {
		globalManager.systemMemoryUsage.Set(float64(bytes))
	}
}

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(count int) {
	if enabled() {
		globalManager.systemGoroutineCount.Set(float64(count))
	}
}

// RecordSystemGCPauseTime observes the average GC pause.
func RecordSystemGCPauseTime(pauseMs float64) {
	if enabled() {
		globalManager.systemGCPauseTime.Observe(pauseMs)
	}
}

// GetRegistry returns the registry backing the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Package metrics provides Prometheus metrics for the stylist service.
package metrics

import (
	"context"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Selection outcome labels.
const (
	OutcomeOK             = "ok"
	OutcomeQuizIncomplete = "quiz_incomplete"
	OutcomeEmptyWardrobe  = "empty_wardrobe"
	OutcomeInfeasible     = "infeasible"
	OutcomeError          = "error"
)

// Extraction result labels.
const (
	ExtractionOK       = "ok"
	ExtractionFallback = "fallback"
)

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Outfit pipeline
	selections        *prometheus.CounterVec
	selectionLatency  prometheus.Histogram
	generateLatency   prometheus.Histogram
	composeLatency    prometheus.Histogram
	previewsRendered  prometheus.Counter
	colorWaitTimeouts prometheus.Counter

	// Wardrobe and sessions
	uploads          prometheus.Counter
	uploadsDuplicate prometheus.Counter
	uploadsRejected  *prometheus.CounterVec
	extractions      *prometheus.CounterVec
	extractLatency   prometheus.Histogram
	sessionsActive   prometheus.Gauge
	sessionsEvicted  prometheus.Counter
	wardrobeItems    prometheus.Gauge
	pendingColors    prometheus.Gauge

	// Queue
	queueSize              prometheus.Gauge
	queueCapacity          prometheus.Gauge
	queueUtilization       prometheus.Gauge
	queueEnqueued          prometheus.Counter
	queueDequeued          prometheus.Counter
	queueEnqueueErrors     prometheus.Counter
	queueProcessingLatency prometheus.Histogram

	// Workers
	workerCount             prometheus.Gauge
	workerActive            prometheus.Gauge
	workerIdle              prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec
	errorsByType      *prometheus.CounterVec
	errorsByEndpoint  *prometheus.CounterVec
	errorLatency      *prometheus.HistogramVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton used by the Record/Update helpers

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // served on /healthz

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// Configure rebuilds the global manager with opts on a fresh registry and
// returns that registry. Call it once at startup, before anything records
// metrics or captures GetRegistry.
func Configure(opts ...Option) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	m := NewManager(append(opts, WithRegistry(reg))...)
	customRegistry = reg
	globalManager = m
	return reg
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "stylist",
		subsystem:        "outfits",
		histogramBuckets: []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
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

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	if buckets == nil {
		buckets = m.histogramBuckets
	}
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.selections = auto.NewCounterVec(m.counterOpts("selections_total", "Outfit selections by outcome"), []string{"outcome"})
	m.selectionLatency = auto.NewHistogram(m.histogramOpts("selection_latency_milliseconds", "Time spent scoring candidates and picking the outfit", nil))
	m.generateLatency = auto.NewHistogram(m.histogramOpts("outfit_generation_latency_milliseconds",
		"Time spent on a whole outfit request, colour wait and preview included", nil))
	m.composeLatency = auto.NewHistogram(m.histogramOpts("compose_latency_milliseconds", "Time spent decoding, composing and encoding a preview", nil))
	m.previewsRendered = auto.NewCounter(m.counterOpts("previews_rendered_total", "Composite previews rendered"))
	m.colorWaitTimeouts = auto.NewCounter(m.counterOpts("color_wait_timeouts_total", "Selections that proceeded with colours still pending"))

	m.uploads = auto.NewCounter(m.counterOpts("uploads_total", "Garment images accepted"))
	m.uploadsDuplicate = auto.NewCounter(m.counterOpts("uploads_duplicate_total", "Uploads acknowledged as retries of an earlier upload"))
	m.uploadsRejected = auto.NewCounterVec(m.counterOpts("uploads_rejected_total", "Uploads rejected by reason"), []string{"reason"})
	m.extractions = auto.NewCounterVec(m.counterOpts("extractions_total", "Colour extractions by result"), []string{"result"})
	m.extractLatency = auto.NewHistogram(m.histogramOpts("extraction_latency_milliseconds", "Time spent decoding an image and extracting its colour", nil))
	m.sessionsActive = auto.NewGauge(m.gaugeOpts("sessions_active", "Sessions currently held in memory"))
	m.sessionsEvicted = auto.NewCounter(m.counterOpts("sessions_evicted_total", "Sessions evicted after the idle TTL"))
	m.wardrobeItems = auto.NewGauge(m.gaugeOpts("wardrobe_items", "Wardrobe items across all sessions"))
	m.pendingColors = auto.NewGauge(m.gaugeOpts("pending_colors", "Items whose colour extraction is in flight"))

	m.queueSize = auto.NewGauge(m.gaugeOpts("queue_size", "Extraction jobs waiting in the queue"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("queue_capacity", "Extraction queue capacity"))
	m.queueUtilization = auto.NewGauge(m.gaugeOpts("queue_utilization_ratio", "Extraction queue fill ratio (0-1)"))
	m.queueEnqueued = auto.NewCounter(m.counterOpts("queue_enqueued_total", "Extraction jobs enqueued"))
	m.queueDequeued = auto.NewCounter(m.counterOpts("queue_dequeued_total", "Extraction jobs dequeued"))
	m.queueEnqueueErrors = auto.NewCounter(m.counterOpts("queue_enqueue_errors_total", "Extraction jobs rejected by a full or closed queue"))
	m.queueProcessingLatency = auto.NewHistogram(m.histogramOpts("queue_wait_milliseconds", "Time an extraction job spent queued", nil))

	m.workerCount = auto.NewGauge(m.gaugeOpts("worker_count", "Extraction workers started"))
	m.workerActive = auto.NewGauge(m.gaugeOpts("worker_active", "Extraction workers processing a job"))
	m.workerIdle = auto.NewGauge(m.gaugeOpts("worker_idle", "Extraction workers waiting for a job"))
	m.workerProcessingLatency = auto.NewHistogram(m.histogramOpts("worker_processing_latency_milliseconds", "Time a worker spent on one job", nil))
	m.workerErrors = auto.NewCounter(m.counterOpts("worker_errors_total", "Jobs whose image could not be decoded or coloured"))

	m.httpRequests = auto.NewCounterVec(m.counterOpts("http_requests_total", "HTTP requests by endpoint, method and status"),
		[]string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration", nil),
		[]string{"endpoint", "method", "status_code"})

	m.errorsByComponent = auto.NewCounterVec(m.counterOpts("errors_by_component_total", "Errors by component and type"),
		[]string{"component", "error_type"})
	m.errorsByType = auto.NewCounterVec(m.counterOpts("errors_by_type_total", "Errors by type and severity"),
		[]string{"error_type", "severity"})
	m.errorsByEndpoint = auto.NewCounterVec(m.counterOpts("errors_by_endpoint_total", "Errors by endpoint"),
		[]string{"endpoint", "method", "error_type"})
	m.errorLatency = auto.NewHistogramVec(m.histogramOpts("error_latency_milliseconds", "Latency of operations that failed", nil),
		[]string{"component", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "Heap bytes in use"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(m.histogramOpts("system_gc_pause_time_milliseconds", "Most recent GC pause",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}))
}

// Enabled reports whether the global manager records anything.
func Enabled() bool {
	return globalManager.enabled
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

// Outfit pipeline.

// RecordSelection counts an outfit request by outcome and observes how long it took end to end.
func RecordSelection(outcome string, took time.Duration) {
	if !globalManager.enabled {
		return
	}
	globalManager.selections.WithLabelValues(outcome).Inc()
	globalManager.generateLatency.Observe(ms(took))
}

// RecordSelectionLatency observes the time spent in selection alone.
func RecordSelectionLatency(took time.Duration) {
	if !globalManager.enabled {
		return
	}
	globalManager.selectionLatency.Observe(ms(took))
}

// RecordCompose observes preview rendering latency.
func RecordCompose(took time.Duration) {
	if !globalManager.enabled {
		return
	}
	globalManager.previewsRendered.Inc()
	globalManager.composeLatency.Observe(ms(took))
}

// RecordColorWaitTimeout counts a selection that gave up waiting for colours.
func RecordColorWaitTimeout() {
	if globalManager.enabled {
		globalManager.colorWaitTimeouts.Inc()
	}
}

// Wardrobe and sessions.

// RecordUpload counts an accepted upload.
func RecordUpload() {
	if globalManager.enabled {
		globalManager.uploads.Inc()
	}
}

// RecordUploadDuplicate counts an upload answered from the idempotency cache.
func RecordUploadDuplicate() {
	if globalManager.enabled {
		globalManager.uploadsDuplicate.Inc()
	}
}

// RecordUploadRejected counts a rejected upload.
func RecordUploadRejected(reason string) {
	if globalManager.enabled {
		globalManager.uploadsRejected.WithLabelValues(reason).Inc()
	}
}

// RecordExtraction counts a finished extraction and observes its latency.
func RecordExtraction(result string, took time.Duration) {
	if !globalManager.enabled {
		return
	}
	globalManager.extractions.WithLabelValues(result).Inc()
	globalManager.extractLatency.Observe(ms(took))
}

// UpdateSessions sets the session, item and pending gauges.
func UpdateSessions(sessions, items, pending int) {
	if !globalManager.enabled {
		return
	}
	globalManager.sessionsActive.Set(float64(sessions))
	globalManager.wardrobeItems.Set(float64(items))
	globalManager.pendingColors.Set(float64(pending))
}

// RecordSessionsEvicted adds n evicted sessions.
func RecordSessionsEvicted(n int) {
	if globalManager.enabled && n > 0 {
		globalManager.sessionsEvicted.Add(float64(n))
	}
}

// Queue.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	if globalManager.enabled {
		globalManager.queueSize.Set(float64(size))
	}
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	if globalManager.enabled {
		globalManager.queueCapacity.Set(float64(capacity))
	}
}

// UpdateQueueUtilization sets the queue fill ratio.
func UpdateQueueUtilization(utilization float64) {
	if globalManager.enabled {
		globalManager.queueUtilization.Set(utilization)
	}
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	if globalManager.enabled {
		globalManager.queueEnqueued.Inc()
	}
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	if globalManager.enabled {
		globalManager.queueDequeued.Inc()
	}
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	if globalManager.enabled {
		globalManager.queueEnqueueErrors.Inc()
	}
}

// RecordQueueWait observes how long a job waited in the queue.
func RecordQueueWait(took time.Duration) {
	if globalManager.enabled {
		globalManager.queueProcessingLatency.Observe(ms(took))
	}
}

// Workers.

// UpdateWorkerCount sets the number of started workers.
func UpdateWorkerCount(count int) {
	if globalManager.enabled {
		globalManager.workerCount.Set(float64(count))
	}
}

// UpdateWorkerActiveCount sets the number of busy workers.
func UpdateWorkerActiveCount(count int) {
	if globalManager.enabled {
		globalManager.workerActive.Set(float64(count))
	}
}

// UpdateWorkerIdleCount sets the number of idle workers.
func UpdateWorkerIdleCount(count int) {
	if globalManager.enabled {
		globalManager.workerIdle.Set(float64(count))
	}
}

// RecordWorkerProcessingLatency observes one job's processing time.
func RecordWorkerProcessingLatency(took time.Duration) {
	if globalManager.enabled {
		globalManager.workerProcessingLatency.Observe(ms(took))
	}
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	if globalManager.enabled {
		globalManager.workerErrors.Inc()
	}
}

// HTTP.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if globalManager.enabled {
		globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	}
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	if globalManager.enabled {
		globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
	}
}

// Errors.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	if globalManager.enabled {
		globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
	}
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	if globalManager.enabled {
		globalManager.errorsByType.WithLabelValues(errorType, severity).Inc()
	}
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if globalManager.enabled {
		globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
	}
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	if globalManager.enabled {
		globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
	}
}

// System.

// CollectSystem samples memory, goroutine and GC gauges once.
func CollectSystem() {
	if !globalManager.enabled {
		return
	}
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	globalManager.systemMemoryUsage.Set(float64(mem.HeapInuse))
	globalManager.systemGoroutineCount.Set(float64(runtime.NumGoroutine()))
	if mem.NumGC > 0 {
		last := mem.PauseNs[(mem.NumGC+255)%256]
		globalManager.systemGCPauseTime.Observe(float64(last) / 1e6)
	}
}

// StartSystemCollector samples system metrics every refresh interval until ctx is done.
func StartSystemCollector(ctx context.Context) {
	interval := globalManager.refreshInterval
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		CollectSystem()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				CollectSystem()
			}
		}
	}()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

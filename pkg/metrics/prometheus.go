// Package metrics provides Prometheus metrics for the betting pool service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// centsPerDollar converts cent counters into dollar-denominated metrics.
const centsPerDollar = 100.0

// Manager manages all Prometheus metrics for the betting pool service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Core Business Metrics - money in and out of pools
	betsPlaced        prometheus.Counter
	betsRejected      *prometheus.CounterVec
	amountStaked      prometheus.Counter
	resolutions       prometheus.Counter
	voids             prometheus.Counter
	payoutsTotal      prometheus.Counter
	residueTotal      prometheus.Counter
	unclaimedTotal    prometheus.Counter
	refundsTotal      prometheus.Counter
	settlementLatency prometheus.Histogram
	idempotentReplays prometheus.Counter

	// Operational Health Metrics
	openQuestions prometheus.Gauge
	totalEvents   prometheus.Gauge
	totalUsers    prometheus.Gauge
	workerCount   prometheus.Gauge

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Store Metrics - persistence write-through
	storeLatency *prometheus.HistogramVec
	storeErrors  *prometheus.CounterVec

	// Queue Metrics - outbox backlog
	queueSize              prometheus.Gauge
	queueCapacity          prometheus.Gauge
	queueUtilization       prometheus.Gauge
	queueEnqueueRate       prometheus.Counter
	queueDequeueRate       prometheus.Counter
	queueEnqueueErrors     prometheus.Counter
	queueProcessingLatency prometheus.Histogram

	// Worker Metrics - outbox delivery
	workerActiveCount       prometheus.Gauge
	workerIdleCount         prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrorRate         prometheus.Counter
	messagesPublished       *prometheus.CounterVec
	publishErrors           *prometheus.CounterVec

	// Enhanced Error Metrics - Detailed error tracking
	errorRateByComponent *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
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
		namespace:        "betpool",
		subsystem:        "settlement",
		histogramBuckets: prometheus.DefBuckets,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	// Apply all options
	for _, opt := range opts {
		opt(m)
	}

	// Initialize metrics
	m.initializeMetrics()

	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.customLabels,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	// Ensure metrics are registered on the configured registry (custom by default)
	auto := promauto.With(m.registry)

	// Core Business Metrics
	m.betsPlaced = auto.NewCounter(m.counterOpts("bets_placed_total", "Total number of bets accepted"))
	m.betsRejected = auto.NewCounterVec(m.counterOpts("bets_rejected_total", "Total number of bets rejected by reason"), []string{"kind"})
	m.amountStaked = auto.NewCounter(m.counterOpts("amount_staked_dollars_total", "Total amount staked on accepted bets"))
	m.resolutions = auto.NewCounter(m.counterOpts("questions_resolved_total", "Total number of questions resolved"))
	m.voids = auto.NewCounter(m.counterOpts("questions_voided_total", "Total number of questions voided"))
	m.payoutsTotal = auto.NewCounter(m.counterOpts("payouts_dollars_total", "Total amount paid out to winning bets"))
	m.residueTotal = auto.NewCounter(m.counterOpts("residue_dollars_total", "Total rounding residue left undistributed"))
	m.unclaimedTotal = auto.NewCounter(m.counterOpts("unclaimed_dollars_total", "Total pool amount with no winning bet"))
	m.refundsTotal = auto.NewCounter(m.counterOpts("refunds_dollars_total", "Total amount refundable from voided questions"))
	m.settlementLatency = auto.NewHistogram(m.histogramOpts(
		"settlement_latency_milliseconds",
		"Histogram of resolve/void latency in milliseconds, persistence included",
		m.histogramBuckets,
	))
	m.idempotentReplays = auto.NewCounter(m.counterOpts("idempotent_replays_total", "Total number of bet requests answered from an idempotency key"))

	// Operational Health Metrics
	m.openQuestions = auto.NewGauge(m.gaugeOpts("open_questions", "Current number of questions accepting bets"))
	m.totalEvents = auto.NewGauge(m.gaugeOpts("total_events", "Total number of events"))
	m.totalUsers = auto.NewGauge(m.gaugeOpts("total_users", "Total number of registered users"))
	m.workerCount = auto.NewGauge(m.gaugeOpts("worker_count", "Current number of outbox workers"))

	// HTTP Performance Metrics
	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets),
		[]string{"endpoint", "method", "status_code"},
	)

	// Store Metrics
	m.storeLatency = auto.NewHistogramVec(
		m.histogramOpts("store_latency_milliseconds", "Store operation latency in milliseconds", m.histogramBuckets),
		[]string{"op"},
	)
	m.storeErrors = auto.NewCounterVec(m.counterOpts("store_errors_total", "Total number of failed store operations"), []string{"op"})

	// Queue Metrics
	m.queueSize = auto.NewGauge(m.gaugeOpts("queue_size", "Current size of the outbox queue (backlog indicator)"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("queue_capacity", "Maximum capacity of the outbox queue"))
	m.queueUtilization = auto.NewGauge(m.gaugeOpts("queue_utilization_ratio", "Outbox queue utilization ratio (0.0 to 1.0)"))
	m.queueEnqueueRate = auto.NewCounter(m.counterOpts("queue_enqueue_total", "Total number of messages enqueued"))
	m.queueDequeueRate = auto.NewCounter(m.counterOpts("queue_dequeue_total", "Total number of messages dequeued"))
	m.queueEnqueueErrors = auto.NewCounter(m.counterOpts("queue_enqueue_errors_total", "Total number of messages dropped on enqueue"))
	m.queueProcessingLatency = auto.NewHistogram(m.histogramOpts(
		"queue_processing_latency_milliseconds",
		"Queue enqueue latency in milliseconds",
		[]float64{0.001, 0.01, 0.1, 1, 5, 10, 50},
	))

	// Worker Metrics
	m.workerActiveCount = auto.NewGauge(m.gaugeOpts("worker_active_count", "Number of workers currently delivering"))
	m.workerIdleCount = auto.NewGauge(m.gaugeOpts("worker_idle_count", "Number of workers waiting for messages"))
	m.workerProcessingLatency = auto.NewHistogram(m.histogramOpts(
		"worker_processing_latency_milliseconds",
		"Time to deliver one outbox message in milliseconds",
		m.histogramBuckets,
	))
	m.workerErrorRate = auto.NewCounter(m.counterOpts("worker_errors_total", "Total number of worker delivery errors"))
	m.messagesPublished = auto.NewCounterVec(m.counterOpts("messages_published_total", "Total number of outbox messages published by type"), []string{"type"})
	m.publishErrors = auto.NewCounterVec(m.counterOpts("publish_errors_total", "Total number of failed publishes by type"), []string{"type"})

	// Enhanced Error Metrics
	m.errorRateByComponent = auto.NewCounterVec(
		m.counterOpts("errors_by_component_total", "Total number of errors by component and type"),
		[]string{"component", "error_type"},
	)
	m.errorRateByEndpoint = auto.NewCounterVec(
		m.counterOpts("errors_by_endpoint_total", "Total number of errors by endpoint, method and type"),
		[]string{"endpoint", "method", "error_type"},
	)

	// System Performance Metrics
	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "System memory usage in bytes"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(m.histogramOpts(
		"system_gc_pause_time_milliseconds",
		"GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	))
}

func dollars(cents int64) float64 { return float64(cents) / centsPerDollar }

// Business Metrics Functions.

// RecordBetPlaced counts an accepted bet and its stake.
func RecordBetPlaced(amountCents int64) {
	globalManager.betsPlaced.Inc()
	globalManager.amountStaked.Add(dollars(amountCents))
}

// RecordBetRejected counts a rejected bet by error kind.
func RecordBetRejected(kind string) {
	globalManager.betsRejected.WithLabelValues(kind).Inc()
}

// RecordResolution records a resolved question's money flow and latency.
func RecordResolution(paidCents, residueCents, unclaimedCents int64, latencyMs float64) {
	globalManager.resolutions.Inc()
	globalManager.payoutsTotal.Add(dollars(paidCents))
	globalManager.residueTotal.Add(dollars(residueCents))
	globalManager.unclaimedTotal.Add(dollars(unclaimedCents))
	globalManager.settlementLatency.Observe(latencyMs)
}

// RecordVoid records a voided question's refunds and latency.
func RecordVoid(refundCents int64, latencyMs float64) {
	globalManager.voids.Inc()
	globalManager.refundsTotal.Add(dollars(refundCents))
	globalManager.settlementLatency.Observe(latencyMs)
}

// RecordIdempotentReplay counts a request answered from its idempotency key.
func RecordIdempotentReplay() {
	globalManager.idempotentReplays.Inc()
}

// UpdateOpenQuestions sets the number of questions accepting bets.
func UpdateOpenQuestions(count int) {
	globalManager.openQuestions.Set(float64(count))
}

// UpdateTotalEvents sets the number of events.
func UpdateTotalEvents(count int) {
	globalManager.totalEvents.Set(float64(count))
}

// UpdateTotalUsers sets the number of registered users.
func UpdateTotalUsers(count int) {
	globalManager.totalUsers.Set(float64(count))
}

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
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

// Store Metrics Functions.

// RecordStoreLatency records the latency of a store operation.
func RecordStoreLatency(op string, latencyMs float64) {
	globalManager.storeLatency.WithLabelValues(op).Observe(latencyMs)
}

// RecordStoreError counts a failed store operation.
func RecordStoreError(op string) {
	globalManager.storeErrors.WithLabelValues(op).Inc()
}

// Queue Metrics Functions.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueueRate.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeueRate.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// RecordQueueProcessingLatency records queue processing latency.
func RecordQueueProcessingLatency(latencyMs float64) {
	globalManager.queueProcessingLatency.Observe(latencyMs)
}

// Worker Metrics Functions.

// UpdateWorkerActiveCount sets the number of active workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// UpdateWorkerIdleCount sets the number of idle workers.
func UpdateWorkerIdleCount(count int) {
	globalManager.workerIdleCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrorRate.Inc()
}

// RecordMessagePublished counts a delivered outbox message.
func RecordMessagePublished(msgType string) {
	globalManager.messagesPublished.WithLabelValues(msgType).Inc()
}

// RecordPublishError counts a failed outbox delivery.
func RecordPublishError(msgType string) {
	globalManager.publishErrors.WithLabelValues(msgType).Inc()
}

// Enhanced Error Metrics Functions.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// System Performance Metrics Functions.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

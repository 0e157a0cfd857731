// Package metrics provides Prometheus metrics for the classpulse service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Engine
	malformedRecords   prometheus.Counter
	responsesProcessed prometheus.Counter
	projections        *prometheus.CounterVec
	annotations        prometheus.Counter
	decisions          *prometheus.CounterVec
	recommendations    *prometheus.CounterVec
	adjustments        *prometheus.CounterVec

	// Pipeline
	pipelineRuns     *prometheus.CounterVec
	pipelineDuration *prometheus.HistogramVec
	snapshotStudents prometheus.Gauge

	// Upstream collaborator
	upstreamCalls   *prometheus.CounterVec
	upstreamLatency *prometheus.HistogramVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Submission queue and workers
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors *prometheus.CounterVec
	workerActiveCount  prometheus.Gauge
	workerLatency      prometheus.Histogram
	submissions        *prometheus.CounterVec
	submissionsDup     prometheus.Counter

	// Errors
	errorsByComponent *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
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
		namespace:        "classpulse",
		subsystem:        "engine",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		Buckets: m.histogramBuckets, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	m.malformedRecords = m.counter("malformed_records_total", "Student records excluded from aggregation because of bad shape")
	m.responsesProcessed = m.counter("responses_processed_total", "Response entries folded into aggregates")
	m.projections = m.counterVec("projections_total", "Trend projections by outcome", "outcome")
	m.annotations = m.counter("annotations_total", "Adaptation events matched to an aggregate bucket")
	m.decisions = m.counterVec("decisions_total", "Adaptation decisions by type", "type")
	m.recommendations = m.counterVec("recommendations_total", "Recommendation rows by outcome (ok, na)", "outcome")
	m.adjustments = m.counterVec("adjustments_total", "Manual difficulty adjustments by outcome", "outcome")

	m.pipelineRuns = m.counterVec("pipeline_runs_total", "Refresh pipeline runs by outcome", "outcome")
	m.pipelineDuration = m.histogramVec("pipeline_stage_duration_milliseconds", "Refresh pipeline stage duration", "stage")
	m.snapshotStudents = m.gauge("snapshot_students", "Students in the last completed snapshot")

	m.upstreamCalls = m.counterVec("upstream_calls_total", "Collaborator calls by call and outcome", "call", "outcome")
	m.upstreamLatency = m.histogramVec("upstream_latency_milliseconds", "Collaborator call latency", "call")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint, method and status", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration", "endpoint", "method", "status_code")

	m.queueSize = m.gauge("queue_size", "Current submission queue length")
	m.queueCapacity = m.gauge("queue_capacity", "Submission queue capacity")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Submission queue length divided by capacity")
	m.queueEnqueued = m.counter("queue_enqueued_total", "Submissions enqueued")
	m.queueDequeued = m.counter("queue_dequeued_total", "Submissions dequeued by workers")
	m.queueEnqueueErrors = m.counterVec("queue_enqueue_errors_total", "Rejected enqueues by reason", "reason")
	m.workerActiveCount = m.gauge("worker_active_count", "Submission workers running")
	m.workerLatency = promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: "worker_processing_latency_milliseconds",
		Help: "Submission delivery latency", Buckets: m.histogramBuckets, ConstLabels: m.constLabels,
	})
	m.submissions = m.counterVec("submissions_total", "Delivered submissions by kind and outcome", "kind", "outcome")
	m.submissionsDup = m.counter("submissions_duplicate_total", "Submissions dropped as duplicates")

	m.errorsByComponent = m.counterVec("errors_total", "Errors by component and type", "component", "type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap in use")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
}

// Engine metrics.

// RecordMalformedRecords adds n excluded student records.
func RecordMalformedRecords(n int) {
	globalManager.malformedRecords.Add(float64(n))
}

// RecordResponsesProcessed adds n aggregated response entries.
func RecordResponsesProcessed(n int) {
	globalManager.responsesProcessed.Add(float64(n))
}

// RecordProjection counts a projection attempt; outcome is "ok" or "insufficient".
func RecordProjection(outcome string) {
	globalManager.projections.WithLabelValues(outcome).Inc()
}

// RecordAnnotations adds n matched annotations.
func RecordAnnotations(n int) {
	globalManager.annotations.Add(float64(n))
}

// RecordDecision counts a decision of the given type.
func RecordDecision(decisionType string) {
	globalManager.decisions.WithLabelValues(decisionType).Inc()
}

// RecordRecommendation counts a reconciled row; outcome is "ok" or "na".
func RecordRecommendation(outcome string) {
	globalManager.recommendations.WithLabelValues(outcome).Inc()
}

// RecordAdjustment counts a manual adjustment; outcome is "applied", "noop" or "rejected".
func RecordAdjustment(outcome string) {
	globalManager.adjustments.WithLabelValues(outcome).Inc()
}

// Pipeline metrics.

// RecordPipelineRun counts a pipeline run.
func RecordPipelineRun(outcome string) {
	globalManager.pipelineRuns.WithLabelValues(outcome).Inc()
}

// RecordPipelineStage records one stage duration in milliseconds.
func RecordPipelineStage(stage string, latencyMs float64) {
	globalManager.pipelineDuration.WithLabelValues(stage).Observe(latencyMs)
}

// UpdateSnapshotStudents sets the roster size of the last snapshot.
func UpdateSnapshotStudents(count int) {
	globalManager.snapshotStudents.Set(float64(count))
}

// Upstream metrics.

// RecordUpstreamCall counts a collaborator call and observes its latency.
func RecordUpstreamCall(call, outcome string, latencyMs float64) {
	globalManager.upstreamCalls.WithLabelValues(call, outcome).Inc()
	globalManager.upstreamLatency.WithLabelValues(call).Observe(latencyMs)
}

// HTTP metrics.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Queue metrics.

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
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError counts a rejected enqueue.
func RecordQueueEnqueueError(reason string) {
	globalManager.queueEnqueueErrors.WithLabelValues(reason).Inc()
}

// Worker metrics.

// UpdateWorkerActiveCount sets the number of running workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records submission delivery latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerLatency.Observe(latencyMs)
}

// RecordSubmission counts a delivered submission.
func RecordSubmission(kind, outcome string) {
	globalManager.submissions.WithLabelValues(kind, outcome).Inc()
}

// RecordSubmissionDuplicate counts a submission dropped by dedupe.
func RecordSubmissionDuplicate() {
	globalManager.submissionsDup.Inc()
}

// Error metrics.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// System metrics.

// UpdateSystemMemoryUsage sets the heap usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// Configure rebuilds the global collectors with opts on a fresh registry.
// It must run at startup, before any metric is recorded or GetRegistry is
// handed to an HTTP handler.
func Configure(opts ...Option) {
	customRegistry = prometheus.NewRegistry()
	globalManager = NewManager(append([]Option{WithPrometheusRegistry(customRegistry)}, opts...)...)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Package metrics provides Prometheus metrics for the BidCycle auction engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every collector exported by the engine.
type Manager struct {
	namespace        string
	subsystem        string
	resolveBuckets   []float64
	sweepBuckets     []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Bidding
	bidsAccepted      *prometheus.CounterVec
	bidsRejected      *prometheus.CounterVec
	resolveLatency    prometheus.Histogram
	ledgerConflicts   prometheus.Counter
	contentionFailure prometheus.Counter
	idempotentReplays prometheus.Counter

	// Lifecycle
	sweepsTotal        prometheus.Counter
	sweepDuration      prometheus.Histogram
	sweepItemFailures  prometheus.Counter
	auctionsClosed     *prometheus.CounterVec
	auctionsActivated  prometheus.Counter
	auctionsTracked    prometheus.Gauge
	ledgerOpLatency    *prometheus.HistogramVec

	// Fan-out
	eventsPublished    *prometheus.CounterVec
	eventsDropped      *prometheus.CounterVec
	activeSubscribers  prometheus.Gauge
	dispatchQueueDepth prometheus.Gauge
	dispatchCapacity   prometheus.Gauge
	sinkErrors         *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpErrors          *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry keeps the default Go collectors out of /healthz.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// NewManager creates a new metrics manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:      DefaultNamespace,
		subsystem:      DefaultSubsystem,
		resolveBuckets: DefaultResolveBuckets(),
		sweepBuckets:   DefaultSweepBuckets(),
		registry:       prometheus.DefaultRegisterer,
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

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		Buckets: buckets, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogramVec(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		Buckets: buckets, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.bidsAccepted = m.counterVec("bids_accepted_total", "Bids accepted by resolution outcome", "outcome")
	m.bidsRejected = m.counterVec("bids_rejected_total", "Bids rejected by reason", "reason")
	m.resolveLatency = m.histogram("resolve_latency_milliseconds", "Time to resolve and commit a bid in milliseconds", m.resolveBuckets)
	m.ledgerConflicts = m.counter("ledger_conflicts_total", "Optimistic version conflicts observed on the ledger")
	m.contentionFailure = m.counter("contention_failures_total", "Bids abandoned after exhausting ledger retries")
	m.idempotentReplays = m.counter("idempotent_replays_total", "Bid submissions answered from the idempotency cache")

	m.sweepsTotal = m.counter("sweeps_total", "Closing sweeps executed")
	m.sweepDuration = m.histogram("sweep_duration_milliseconds", "Closing sweep duration in milliseconds", m.sweepBuckets)
	m.sweepItemFailures = m.counter("sweep_item_failures_total", "Items the sweeper failed to process")
	m.auctionsClosed = m.counterVec("auctions_closed_total", "Auctions closed by terminal status", "status")
	m.auctionsActivated = m.counter("auctions_activated_total", "Upcoming auctions moved to active")
	m.auctionsTracked = m.gauge("auctions_tracked", "Items currently held in the ledger")
	m.ledgerOpLatency = m.histogramVec("ledger_operation_latency_milliseconds", "Ledger operation latency in milliseconds", m.resolveBuckets, "op")

	m.eventsPublished = m.counterVec("events_published_total", "Events delivered to subscribers by type", "type")
	m.eventsDropped = m.counterVec("events_dropped_total", "Events not delivered by reason", "reason")
	m.activeSubscribers = m.gauge("active_subscribers", "Open per-item subscriptions")
	m.dispatchQueueDepth = m.gauge("dispatch_queue_depth", "Events waiting in dispatch shards")
	m.dispatchCapacity = m.gauge("dispatch_queue_capacity", "Total capacity of dispatch shards")
	m.sinkErrors = m.counterVec("sink_errors_total", "Errors returned by event sinks", "sink")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests handled", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_seconds", "HTTP request duration in seconds", prometheus.DefBuckets, "endpoint", "method", "status_code")
	m.httpErrors = m.counterVec("http_errors_total", "HTTP responses with an error status", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap memory in use in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
}

// RecordBidAccepted counts an accepted bid by outcome.
func RecordBidAccepted(outcome string) {
	globalManager.bidsAccepted.WithLabelValues(outcome).Inc()
}

// RecordBidRejected counts a rejected bid by reason.
func RecordBidRejected(reason string) {
	globalManager.bidsRejected.WithLabelValues(reason).Inc()
}

// RecordResolveLatency records bid resolution latency in milliseconds.
func RecordResolveLatency(latencyMs float64) {
	globalManager.resolveLatency.Observe(latencyMs)
}

// RecordLedgerConflict counts an optimistic conflict.
func RecordLedgerConflict() {
	globalManager.ledgerConflicts.Inc()
}

// RecordContentionFailure counts a bid that ran out of retries.
func RecordContentionFailure() {
	globalManager.contentionFailure.Inc()
}

// RecordIdempotentReplay counts a replayed bid submission.
func RecordIdempotentReplay() {
	globalManager.idempotentReplays.Inc()
}

// RecordSweep records one sweep and its duration.
func RecordSweep(durationMs float64) {
	globalManager.sweepsTotal.Inc()
	globalManager.sweepDuration.Observe(durationMs)
}

// RecordSweepItemFailure counts an item the sweeper could not process.
func RecordSweepItemFailure() {
	globalManager.sweepItemFailures.Inc()
}

// RecordAuctionClosed counts a closed auction by terminal status.
func RecordAuctionClosed(status string) {
	globalManager.auctionsClosed.WithLabelValues(status).Inc()
}

// RecordAuctionActivated counts an Upcoming to Active transition.
func RecordAuctionActivated() {
	globalManager.auctionsActivated.Inc()
}

// UpdateAuctionsTracked sets the number of items in the ledger.
func UpdateAuctionsTracked(count int) {
	globalManager.auctionsTracked.Set(float64(count))
}

// RecordLedgerOp records the latency of a ledger operation.
func RecordLedgerOp(op string, latencyMs float64) {
	globalManager.ledgerOpLatency.WithLabelValues(op).Observe(latencyMs)
}

// RecordEventPublished counts a delivered event by type.
func RecordEventPublished(eventType string) {
	globalManager.eventsPublished.WithLabelValues(eventType).Inc()
}

// RecordEventDropped counts an undelivered event by reason.
func RecordEventDropped(reason string) {
	globalManager.eventsDropped.WithLabelValues(reason).Inc()
}

// UpdateActiveSubscribers sets the number of open subscriptions.
func UpdateActiveSubscribers(count int) {
	globalManager.activeSubscribers.Set(float64(count))
}

// UpdateDispatchQueueDepth sets the number of queued events.
func UpdateDispatchQueueDepth(depth int) {
	globalManager.dispatchQueueDepth.Set(float64(depth))
}

// UpdateDispatchCapacity sets the total dispatch capacity.
func UpdateDispatchCapacity(capacity int) {
	globalManager.dispatchCapacity.Set(float64(capacity))
}

// RecordSinkError counts a failure returned by a named sink.
func RecordSinkError(sink string) {
	globalManager.sinkErrors.WithLabelValues(sink).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in seconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordHTTPError records an error response.
func RecordHTTPError(endpoint, method, errorType string) {
	globalManager.httpErrors.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets heap memory in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

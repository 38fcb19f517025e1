// Package metrics provides Prometheus metrics for the bidding workflow service.
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

// Manager manages all Prometheus metrics for the bidding service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	registry         prometheus.Registerer

	// Workflow metrics - lifecycle activity per bidding
	statusTransitions  *prometheus.CounterVec
	participations     prometheus.Counter
	evaluations        prometheus.Counter
	winnerSelections   prometheus.Counter
	contractDrafts     prometheus.Counter
	operationsRejected *prometheus.CounterVec

	// Store metrics
	storeMutationLatency prometheus.Histogram
	storeQueryLatency    prometheus.Histogram
	storeConflicts       prometheus.Counter
	biddingsTracked      prometheus.Gauge

	// Signal bus metrics
	signalsPublished  *prometheus.CounterVec
	signalsDropped    prometheus.Counter
	busSubscribers    prometheus.Gauge
	busQueueDepth     prometheus.Gauge
	bridgePublishErrs prometheus.Counter

	// HTTP metrics
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
		namespace:        "procure",
		subsystem:        "bidding",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		registry:         prometheus.DefaultRegisterer,
	}

	// Apply all options
	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.statusTransitions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "status_transitions_total",
		Help:      "Total number of successful bidding status transitions",
	}, []string{"from", "to"})

	m.participations = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "participations_total",
		Help:      "Total number of supplier participations submitted",
	})

	m.evaluations = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "evaluations_total",
		Help:      "Total number of evaluations submitted (including re-submissions)",
	})

	m.winnerSelections = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "winner_selections_total",
		Help:      "Total number of winner selections",
	})

	m.contractDrafts = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "contract_drafts_total",
		Help:      "Total number of contract drafts created",
	})

	m.operationsRejected = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "operations_rejected_total",
		Help:      "Total number of rejected operations by error kind",
	}, []string{"operation", "kind"})

	m.storeMutationLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_mutation_latency_milliseconds",
		Help:      "Histogram of store mutation latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.storeQueryLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_query_latency_milliseconds",
		Help:      "Histogram of store query latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.storeConflicts = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_version_conflicts_total",
		Help:      "Total number of optimistic-concurrency conflicts in the store",
	})

	m.biddingsTracked = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "biddings_tracked",
		Help:      "Current number of biddings tracked by the store",
	})

	m.signalsPublished = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "signals_published_total",
		Help:      "Total number of refresh signals published by scope",
	}, []string{"scope"})

	m.signalsDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "signals_dropped_total",
		Help:      "Total number of signals dropped due to subscriber queue overflow",
	})

	m.busSubscribers = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "bus_subscribers",
		Help:      "Current number of signal bus subscribers",
	})

	m.busQueueDepth = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "bus_queue_depth",
		Help:      "Total buffered signals across all subscriber queues",
	})

	m.bridgePublishErrs = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "bridge_publish_errors_total",
		Help:      "Total number of errors publishing signals to the remote bridge",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "Histogram of HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})
}

// Package-level helpers backed by the global manager.

// RecordStatusTransition increments the transition counter for an edge.
func RecordStatusTransition(from, to string) {
	globalManager.statusTransitions.WithLabelValues(from, to).Inc()
}

// RecordParticipation increments the participation counter.
func RecordParticipation() {
	globalManager.participations.Inc()
}

// RecordEvaluation increments the evaluation counter.
func RecordEvaluation() {
	globalManager.evaluations.Inc()
}

// RecordWinnerSelection increments the winner selection counter.
func RecordWinnerSelection() {
	globalManager.winnerSelections.Inc()
}

// RecordContractDraft increments the contract draft counter.
func RecordContractDraft() {
	globalManager.contractDrafts.Inc()
}

// RecordOperationRejected increments the rejection counter for an operation and error kind.
func RecordOperationRejected(operation, kind string) {
	globalManager.operationsRejected.WithLabelValues(operation, kind).Inc()
}

// RecordStoreMutationLatency records a store mutation latency observation.
func RecordStoreMutationLatency(latencyMs float64) {
	globalManager.storeMutationLatency.Observe(latencyMs)
}

// RecordStoreQueryLatency records a store query latency observation.
func RecordStoreQueryLatency(latencyMs float64) {
	globalManager.storeQueryLatency.Observe(latencyMs)
}

// RecordStoreConflict increments the optimistic-concurrency conflict counter.
func RecordStoreConflict() {
	globalManager.storeConflicts.Inc()
}

// UpdateBiddingsTracked sets the tracked biddings gauge.
func UpdateBiddingsTracked(count int) {
	globalManager.biddingsTracked.Set(float64(count))
}

// RecordSignalPublished increments the published signal counter for a scope.
func RecordSignalPublished(scope string) {
	globalManager.signalsPublished.WithLabelValues(scope).Inc()
}

// RecordSignalDropped increments the dropped signal counter.
func RecordSignalDropped() {
	globalManager.signalsDropped.Inc()
}

// UpdateBusSubscribers sets the subscriber gauge.
func UpdateBusSubscribers(count int) {
	globalManager.busSubscribers.Set(float64(count))
}

// UpdateBusQueueDepth sets the total buffered signal gauge.
func UpdateBusQueueDepth(depth int) {
	globalManager.busQueueDepth.Set(float64(depth))
}

// RecordBridgePublishError increments the bridge publish error counter.
func RecordBridgePublishError() {
	globalManager.bridgePublishErrs.Inc()
}

// RecordHTTPRequest increments the HTTP request counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records an HTTP request duration observation.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// GetRegistry returns the custom Prometheus registry used by the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

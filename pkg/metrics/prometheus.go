// Package metrics provides Prometheus metrics for the PONG challenge service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the PONG service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Challenge lifecycle
	challengesIssued prometheus.Counter
	challengesClosed prometheus.Counter
	challengesOpen   prometheus.Gauge

	// Response accumulation
	responsesAccepted  prometheus.Counter
	responsesDuplicate prometheus.Counter
	responsesTooLate   prometheus.Counter
	casConflicts       prometheus.Counter
	casExhausted       prometheus.Counter
	submitLatency      prometheus.Histogram

	// Change stream
	streamDepth    prometheus.Gauge
	streamCapacity prometheus.Gauge
	streamPublish  prometheus.Counter
	streamDropped  prometheus.Counter

	// Dispatch and delivery
	broadcastsSent  prometheus.Counter
	scoreboardsSent prometheus.Counter
	dispatchSkipped prometheus.Counter
	deliveryErrors  prometheus.Counter
	deliveryLatency prometheus.Histogram
	clockAnomalies  prometheus.Counter

	// HTTP surface
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
		namespace:        "pong",
		subsystem:        "challenge",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.challengesIssued = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "challenges_issued_total",
		Help:      "Total number of challenges issued",
	})

	m.challengesClosed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "challenges_closed_total",
		Help:      "Total number of challenges that reached capacity",
	})

	m.challengesOpen = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "challenges_open",
		Help:      "Number of challenges currently accepting responses",
	})

	m.responsesAccepted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "responses_accepted_total",
		Help:      "Total number of responses committed to a challenge",
	})

	m.responsesDuplicate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "responses_duplicate_total",
		Help:      "Total number of idempotent resubmissions by an already-ranked responder",
	})

	m.responsesTooLate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "responses_too_late_total",
		Help:      "Total number of responses rejected because capacity was already reached",
	})

	m.casConflicts = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cas_conflicts_total",
		Help:      "Total number of conditional-update conflicts during response submission",
	})

	m.casExhausted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cas_retries_exhausted_total",
		Help:      "Total number of submissions that gave up after the retry budget",
	})

	m.submitLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "submit_latency_milliseconds",
		Help:      "Histogram of response submission latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.streamDepth = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "stream_depth",
		Help:      "Current number of change events waiting for the dispatcher",
	})

	m.streamCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "stream_capacity",
		Help:      "Configured capacity of the change-event stream",
	})

	m.streamPublish = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "stream_publish_total",
		Help:      "Total number of change events published to the stream",
	})

	m.streamDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "stream_dropped_total",
		Help:      "Total number of change events dropped due to backpressure",
	})

	m.broadcastsSent = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "broadcasts_sent_total",
		Help:      "Total number of challenge-broadcast notifications dispatched",
	})

	m.scoreboardsSent = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "scoreboards_sent_total",
		Help:      "Total number of scoreboard notifications dispatched",
	})

	m.dispatchSkipped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "dispatch_skipped_total",
		Help:      "Total number of redelivered transitions skipped by the idempotency check",
	})

	m.deliveryErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "delivery_errors_total",
		Help:      "Total number of failed outbound notification deliveries",
	})

	m.deliveryLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "delivery_latency_milliseconds",
		Help:      "Histogram of outbound notification delivery latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.clockAnomalies = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "clock_anomalies_total",
		Help:      "Total number of responses whose latency computed negative",
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

// RecordChallengeIssued increments the issued challenges counter.
func RecordChallengeIssued() {
	globalManager.challengesIssued.Inc()
	globalManager.challengesOpen.Inc()
}

// RecordChallengeClosed increments the closed challenges counter.
func RecordChallengeClosed() {
	globalManager.challengesClosed.Inc()
	globalManager.challengesOpen.Dec()
}

// RecordResponseAccepted increments the accepted responses counter.
func RecordResponseAccepted() {
	globalManager.responsesAccepted.Inc()
}

// RecordResponseDuplicate increments the duplicate responses counter.
func RecordResponseDuplicate() {
	globalManager.responsesDuplicate.Inc()
}

// RecordResponseTooLate increments the too-late responses counter.
func RecordResponseTooLate() {
	globalManager.responsesTooLate.Inc()
}

// RecordCASConflict increments the conditional-update conflict counter.
func RecordCASConflict() {
	globalManager.casConflicts.Inc()
}

// RecordCASExhausted increments the exhausted-retry counter.
func RecordCASExhausted() {
	globalManager.casExhausted.Inc()
}

// RecordSubmitLatency records response submission latency in milliseconds.
func RecordSubmitLatency(latencyMs float64) {
	globalManager.submitLatency.Observe(latencyMs)
}

// UpdateStreamDepth sets the current stream depth gauge.
func UpdateStreamDepth(depth int) {
	globalManager.streamDepth.Set(float64(depth))
}

// UpdateStreamCapacity sets the stream capacity gauge.
func UpdateStreamCapacity(capacity int) {
	globalManager.streamCapacity.Set(float64(capacity))
}

// RecordStreamPublish increments the stream publish counter.
func RecordStreamPublish() {
	globalManager.streamPublish.Inc()
}

// RecordStreamDropped increments the stream drop counter.
func RecordStreamDropped() {
	globalManager.streamDropped.Inc()
}

// RecordBroadcastSent increments the broadcast notification counter.
func RecordBroadcastSent() {
	globalManager.broadcastsSent.Inc()
}

// RecordScoreboardSent increments the scoreboard notification counter.
func RecordScoreboardSent() {
	globalManager.scoreboardsSent.Inc()
}

// RecordDispatchSkipped increments the idempotent-skip counter.
func RecordDispatchSkipped() {
	globalManager.dispatchSkipped.Inc()
}

// RecordDeliveryError increments the delivery error counter.
func RecordDeliveryError() {
	globalManager.deliveryErrors.Inc()
}

// RecordDeliveryLatency records outbound delivery latency in milliseconds.
func RecordDeliveryLatency(latencyMs float64) {
	globalManager.deliveryLatency.Observe(latencyMs)
}

// RecordClockAnomaly increments the negative-latency counter.
func RecordClockAnomaly() {
	globalManager.clockAnomalies.Inc()
}

// RecordHTTPRequest increments the HTTP request counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// GetRegistry returns the custom registry backing the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

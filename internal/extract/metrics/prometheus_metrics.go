package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.uber.org/zap"
)

// Pipeline phases recorded in the request duration histogram.
const (
	PhaseTotal   = "total"
	PhaseFetch   = "fetch"
	PhaseParse   = "parse"
	PhaseRender  = "render"
	PhaseAnalyze = "analyze"
)

// Cache operation labels.
const (
	CacheOpGet = "get"
	CacheOpPut = "put"
)

// PrometheusMetrics provides high-performance metrics collection using Prometheus
type PrometheusMetrics struct {
	// Request metrics
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	// Cache metrics
	cacheOpsTotal *prometheus.CounterVec
	cacheHitRatio prometheus.Gauge

	// Pipeline metrics
	rateLimitTotal *prometheus.CounterVec
	upstreamTotal  *prometheus.CounterVec
	payloadBytes   *prometheus.HistogramVec
	inflight       prometheus.Gauge

	// Compression metrics
	compressionRatio *prometheus.HistogramVec

	logger      *zap.Logger
	httpHandler func(*fasthttp.RequestCtx)
}

// NewPrometheusMetrics creates a new Prometheus-based metrics collector
func NewPrometheusMetrics(namespace string, logger *zap.Logger) *PrometheusMetrics {
	return NewPrometheusMetricsWithRegistry(namespace, prometheus.DefaultRegisterer, logger)
}

// NewPrometheusMetricsWithRegistry creates a new Prometheus-based metrics collector with custom registry
func NewPrometheusMetricsWithRegistry(namespace string, registerer prometheus.Registerer, logger *zap.Logger) *PrometheusMetrics {
	pm := &PrometheusMetrics{
		logger: logger,
	}

	pm.requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "requests_total",
			Help:      "Total number of extraction requests by terminal outcome",
		},
		[]string{"outcome", "format", "mode"},
	)

	pm.requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "request_duration_seconds",
			Help:      "Time spent per pipeline phase",
			Buckets:   prometheus.DefBuckets, // Standard buckets: 0.005s to 10s
		},
		[]string{"phase"},
	)

	pm.cacheOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "cache_operations_total",
			Help:      "Total cache store operations by outcome",
		},
		[]string{"op", "result"},
	)

	pm.cacheHitRatio = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "cache_hit_ratio",
			Help:      "Cache hit ratio (0-1) over all lookups so far",
		},
	)

	pm.rateLimitTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "rate_limit_total",
			Help:      "Total rate limit decisions",
		},
		[]string{"allowed"},
	)

	pm.upstreamTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "upstream_responses_total",
			Help:      "Total upstream page responses by status class",
		},
		[]string{"status_class"}, // status_class: 2xx, 3xx, 4xx, 5xx
	)

	pm.payloadBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "payload_bytes",
			Help:      "Fetched and served payload sizes in bytes",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 8), // 1KiB to 16MiB
		},
		[]string{"direction"}, // direction: in, out
	)

	pm.inflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "inflight_extractions",
			Help:      "Number of extractions currently running",
		},
	)

	pm.compressionRatio = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "compression_ratio",
			Help:      "Compression ratio (compressed_size / original_size) of cache writes",
			Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
		[]string{"algorithm"},
	)

	registerer.MustRegister(
		pm.requestsTotal,
		pm.requestDuration,
		pm.cacheOpsTotal,
		pm.cacheHitRatio,
		pm.rateLimitTotal,
		pm.upstreamTotal,
		pm.payloadBytes,
		pm.inflight,
		pm.compressionRatio,
	)

	// Create HTTP handler - registerer implements Gatherer interface
	gatherer, ok := registerer.(prometheus.Gatherer)
	if !ok {
		// Fallback to default gatherer if registerer doesn't implement Gatherer
		gatherer = prometheus.DefaultGatherer
	}
	pm.httpHandler = fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	logger.Debug("Prometheus metrics initialized")
	return pm
}

// RecordRequest records a finished request with its total duration
func (pm *PrometheusMetrics) RecordRequest(outcome, format, mode string, duration time.Duration) {
	pm.requestsTotal.WithLabelValues(outcome, format, mode).Inc()
	pm.requestDuration.WithLabelValues(PhaseTotal).Observe(duration.Seconds())
}

// RecordPhase records time spent in one pipeline phase
func (pm *PrometheusMetrics) RecordPhase(phase string, duration time.Duration) {
	pm.requestDuration.WithLabelValues(phase).Observe(duration.Seconds())
}

// RecordCacheHit records a cache hit and updates the hit ratio
func (pm *PrometheusMetrics) RecordCacheHit() {
	pm.cacheOpsTotal.WithLabelValues(CacheOpGet, "hit").Inc()
	pm.updateCacheHitRatio()
}

// RecordCacheMiss records a cache miss and updates the hit ratio
func (pm *PrometheusMetrics) RecordCacheMiss() {
	pm.cacheOpsTotal.WithLabelValues(CacheOpGet, "miss").Inc()
	pm.updateCacheHitRatio()
}

// RecordCacheCorrupt records a cache entry dropped as unreadable
func (pm *PrometheusMetrics) RecordCacheCorrupt() {
	pm.cacheOpsTotal.WithLabelValues(CacheOpGet, "corrupt").Inc()
}

// RecordCachePut records a stored cache entry
func (pm *PrometheusMetrics) RecordCachePut() {
	pm.cacheOpsTotal.WithLabelValues(CacheOpPut, "stored").Inc()
}

// RecordCacheError records a failed cache store operation
func (pm *PrometheusMetrics) RecordCacheError(op string) {
	pm.cacheOpsTotal.WithLabelValues(op, "error").Inc()
}

// RecordRateLimit records one rate limit decision
func (pm *PrometheusMetrics) RecordRateLimit(allowed bool) {
	label := "false"
	if allowed {
		label = "true"
	}
	pm.rateLimitTotal.WithLabelValues(label).Inc()
}

// RecordUpstreamStatus records an upstream response by status class
func (pm *PrometheusMetrics) RecordUpstreamStatus(statusCode int) {
	pm.upstreamTotal.WithLabelValues(statusClass(statusCode)).Inc()
}

// statusClass converts a status code to a class label (2xx, 3xx, 4xx, 5xx)
func statusClass(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return "2xx"
	case statusCode >= 300 && statusCode < 400:
		return "3xx"
	case statusCode >= 400 && statusCode < 500:
		return "4xx"
	case statusCode >= 500 && statusCode < 600:
		return "5xx"
	default:
		return "unknown"
	}
}

// RecordFetchedBytes records the size of a fetched upstream body
func (pm *PrometheusMetrics) RecordFetchedBytes(n int) {
	pm.payloadBytes.WithLabelValues("in").Observe(float64(n))
}

// RecordServedBytes records the size of a served response body
func (pm *PrometheusMetrics) RecordServedBytes(n int) {
	pm.payloadBytes.WithLabelValues("out").Observe(float64(n))
}

// RecordCompressionRatio records the compression ratio of one cache write
func (pm *PrometheusMetrics) RecordCompressionRatio(algorithm string, ratio float64) {
	pm.compressionRatio.WithLabelValues(algorithm).Observe(ratio)
}

// IncInflight increments the in-flight extraction gauge
func (pm *PrometheusMetrics) IncInflight() {
	pm.inflight.Inc()
}

// DecInflight decrements the in-flight extraction gauge
func (pm *PrometheusMetrics) DecInflight() {
	pm.inflight.Dec()
}

// ServeHTTP serves Prometheus metrics via HTTP
func (pm *PrometheusMetrics) ServeHTTP(ctx *fasthttp.RequestCtx) {
	pm.httpHandler(ctx)
}

// updateCacheHitRatio recomputes the hit ratio from the op counters
func (pm *PrometheusMetrics) updateCacheHitRatio() {
	hits := pm.getCounterValue(pm.cacheOpsTotal.WithLabelValues(CacheOpGet, "hit"))
	misses := pm.getCounterValue(pm.cacheOpsTotal.WithLabelValues(CacheOpGet, "miss"))

	total := hits + misses
	if total > 0 {
		pm.cacheHitRatio.Set(hits / total)
	}
}

// getCounterValue extracts current value from a counter (helper function)
func (pm *PrometheusMetrics) getCounterValue(counter prometheus.Counter) float64 {
	// Use a metric DTO to read the current value
	metric := &dto.Metric{}
	if err := counter.Write(metric); err != nil {
		pm.logger.Warn("Failed to read counter value", zap.Error(err))
		return 0
	}
	return metric.GetCounter().GetValue()
}

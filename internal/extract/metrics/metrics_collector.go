package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// Collector centralizes all metrics recording with proper labeling
type Collector struct {
	prometheus *PrometheusMetrics
	logger     *zap.Logger
}

// NewCollector creates a new Collector instance
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	return &Collector{
		prometheus: NewPrometheusMetrics(namespace, logger),
		logger:     logger,
	}
}

// NewCollectorWithRegistry creates a Collector against a custom registry
func NewCollectorWithRegistry(namespace string, registerer prometheus.Registerer, logger *zap.Logger) *Collector {
	return &Collector{
		prometheus: NewPrometheusMetricsWithRegistry(namespace, registerer, logger),
		logger:     logger,
	}
}

// RecordRequest records a finished request with its terminal outcome
func (mc *Collector) RecordRequest(outcome, format, mode string, duration time.Duration) {
	mc.prometheus.RecordRequest(outcome, format, mode, duration)

	mc.logger.Debug("Recorded request metric",
		zap.String("outcome", outcome),
		zap.String("format", format),
		zap.String("mode", mode),
		zap.Duration("duration", duration))
}

// RecordPhase records time spent in one pipeline phase
func (mc *Collector) RecordPhase(phase string, duration time.Duration) {
	mc.prometheus.RecordPhase(phase, duration)
}

// RecordCacheHit records a successful cache hit
func (mc *Collector) RecordCacheHit() {
	mc.prometheus.RecordCacheHit()
}

// RecordCacheMiss records a cache miss
func (mc *Collector) RecordCacheMiss() {
	mc.prometheus.RecordCacheMiss()
}

// RecordCacheCorrupt records a cache entry dropped as unreadable
func (mc *Collector) RecordCacheCorrupt() {
	mc.prometheus.RecordCacheCorrupt()

	mc.logger.Debug("Recorded corrupt cache entry metric")
}

// RecordCachePut records a stored cache entry
func (mc *Collector) RecordCachePut() {
	mc.prometheus.RecordCachePut()
}

// RecordCacheError records a failed cache store operation
func (mc *Collector) RecordCacheError(op string) {
	mc.prometheus.RecordCacheError(op)

	mc.logger.Debug("Recorded cache error metric",
		zap.String("op", op))
}

// RecordRateLimit records one rate limit decision
func (mc *Collector) RecordRateLimit(allowed bool) {
	mc.prometheus.RecordRateLimit(allowed)
}

// RecordUpstreamStatus records an upstream response by status class
func (mc *Collector) RecordUpstreamStatus(statusCode int) {
	mc.prometheus.RecordUpstreamStatus(statusCode)

	mc.logger.Debug("Recorded upstream status metric",
		zap.Int("status_code", statusCode))
}

// RecordFetchedBytes records the size of a fetched upstream body
func (mc *Collector) RecordFetchedBytes(n int) {
	mc.prometheus.RecordFetchedBytes(n)
}

// RecordServedBytes records the size of a served response body
func (mc *Collector) RecordServedBytes(n int) {
	mc.prometheus.RecordServedBytes(n)
}

// RecordCompression records the compression ratio of a cache write
func (mc *Collector) RecordCompression(algorithm string, originalSize, compressedSize int) {
	if originalSize <= 0 {
		return
	}

	ratio := float64(compressedSize) / float64(originalSize)
	mc.prometheus.RecordCompressionRatio(algorithm, ratio)

	mc.logger.Debug("Recorded compression metric",
		zap.String("algorithm", algorithm),
		zap.Int("original_size", originalSize),
		zap.Int("compressed_size", compressedSize),
		zap.Float64("ratio", ratio))
}

// IncInflight increments the in-flight extraction gauge
func (mc *Collector) IncInflight() {
	mc.prometheus.IncInflight()
}

// DecInflight decrements the in-flight extraction gauge
func (mc *Collector) DecInflight() {
	mc.prometheus.DecInflight()
}

// ServeHTTP serves Prometheus metrics via HTTP
func (mc *Collector) ServeHTTP(ctx *fasthttp.RequestCtx) {
	mc.prometheus.ServeHTTP(ctx)
}

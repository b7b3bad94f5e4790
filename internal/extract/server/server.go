package server

import (
	"context"
	"encoding/json"
	"os"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/readlens/engine/internal/common/configtypes"
	"github.com/readlens/engine/internal/common/redis"
	"github.com/readlens/engine/internal/common/requestid"
	"github.com/readlens/engine/internal/extract/auth"
	"github.com/readlens/engine/internal/extract/cache"
	"github.com/readlens/engine/internal/extract/clientip"
	"github.com/readlens/engine/internal/extract/events"
	"github.com/readlens/engine/internal/extract/extractctx"
	"github.com/readlens/engine/internal/extract/metrics"
	"github.com/readlens/engine/internal/extract/pipeline"
	"github.com/readlens/engine/internal/extract/ratelimit"
)

// readyCheckTimeout bounds the Redis ping behind /ready.
const readyCheckTimeout = 2 * time.Second

type Server struct {
	configManager configtypes.GatewayConfigManager
	redis         *redis.Client // nil when running on memory stores
	logger        *zap.Logger

	// Service components
	authGuard *auth.Guard
	pipeline  *pipeline.Pipeline
	metrics   *metrics.Collector
	store     cache.Store
	limiter   ratelimit.Limiter

	// Event logging (NoopEmitter when disabled)
	eventEmitter events.Emitter

	version   string
	startedAt time.Time
	draining  atomic.Bool
}

func NewServer(
	configManager configtypes.GatewayConfigManager,
	redisClient *redis.Client,
	logger *zap.Logger,
	authGuard *auth.Guard,
	extractPipeline *pipeline.Pipeline,
	metricsCollector *metrics.Collector,
	store cache.Store,
	limiter ratelimit.Limiter,
	eventEmitter events.Emitter,
	version string,
) *Server {
	return &Server{
		configManager: configManager,
		redis:         redisClient,
		logger:        logger,
		authGuard:     authGuard,
		pipeline:      extractPipeline,
		metrics:       metricsCollector,
		store:         store,
		limiter:       limiter,
		eventEmitter:  eventEmitter,
		version:       version,
		startedAt:     time.Now().UTC(),
	}
}

func (s *Server) HandleRequest(ctx *fasthttp.RequestCtx) {
	// Extract custom request ID from header (if provided)
	customRequestID := string(ctx.Request.Header.Peek("X-Request-Id"))

	// Generate request ID (sanitized custom ID if provided, otherwise UUID)
	requestID := requestid.Generate(customRequestID)

	// Add request ID to response headers for tracing
	ctx.Response.Header.Set("X-Request-Id", requestID)

	logger := s.logger.With(zap.String("request_id", requestID))

	path := string(ctx.Path())
	switch {
	case path == "/health":
		s.handleHealth(ctx)
	case path == "/ready":
		s.handleReady(ctx, requestID)
	case path == "/status":
		s.handleStatus(ctx, requestID)
	case path == "/extract" || strings.HasPrefix(path, "/extract/"):
		if !ctx.IsGet() && !ctx.IsPost() {
			logger.Warn("Method not allowed", zap.String("method", string(ctx.Method())))
			s.writeErrorPayload(ctx, requestID, &requestError{
				status:  fasthttp.StatusMethodNotAllowed,
				kind:    "input",
				message: "method not allowed, use GET or POST",
			})
			return
		}
		s.processExtractRequest(ctx, requestID, logger)
	default:
		logger.Warn("Not found", zap.String("path", path))
		s.writeErrorPayload(ctx, requestID, &requestError{
			status:  fasthttp.StatusNotFound,
			kind:    "input",
			message: "endpoint not found",
		})
	}
}

// processExtractRequest handles the main extraction workflow for one
// inbound request: decode, authorize, run the pipeline, encode.
func (s *Server) processExtractRequest(ctx *fasthttp.RequestCtx, requestID string, logger *zap.Logger) {
	start := time.Now()
	cfg := s.configManager.GetConfig()

	ec := extractctx.NewExtractContext(requestID, ctx, logger, time.Duration(cfg.Server.RequestTimeout))
	ec.WithClientIP(s.resolveClientIP(ctx))

	req, err := decodeRequest(ctx, cfg.Extract.DefaultMode)
	if err != nil {
		s.handleRequestError(ctx, ec, err, time.Since(start))
		return
	}
	ec.WithRequest(req)

	if err := s.authGuard.Authorize(string(ctx.Request.Header.Peek("X-Api-Key"))); err != nil {
		s.handleRequestError(ctx, ec, err, time.Since(start))
		return
	}

	ec.Logger.Info("Processing extraction request")

	outcome, err := s.pipeline.ProcessExtractRequest(ec)
	if err != nil {
		s.handleRequestError(ctx, ec, err, time.Since(start))
		return
	}

	s.writeResult(ctx, ec, outcome, time.Since(start))
}

func (s *Server) handleHealth(ctx *fasthttp.RequestCtx) {
	ctx.Response.Header.Set("Content-Type", "text/plain")
	ctx.Response.SetStatusCode(fasthttp.StatusOK)
	ctx.Response.SetBodyString("OK")
}

func (s *Server) handleReady(ctx *fasthttp.RequestCtx, requestID string) {
	if s.draining.Load() {
		s.writeErrorPayload(ctx, requestID, &requestError{
			status:  fasthttp.StatusServiceUnavailable,
			kind:    "internal",
			message: "shutting down",
		})
		return
	}

	if s.redis != nil {
		pingCtx, cancel := context.WithTimeout(context.Background(), readyCheckTimeout)
		err := s.redis.HealthCheck(pingCtx)
		cancel()
		if err != nil {
			s.writeErrorPayload(ctx, requestID, &requestError{
				status:  fasthttp.StatusServiceUnavailable,
				kind:    "internal",
				message: "redis not available",
			})
			return
		}
	}

	ctx.Response.Header.Set("Content-Type", "text/plain")
	ctx.Response.SetStatusCode(fasthttp.StatusOK)
	ctx.Response.SetBodyString("OK")
}

// statusResponse is the /status runtime snapshot.
type statusResponse struct {
	Version                 string  `json:"version"`
	UptimeSeconds           int64   `json:"uptimeSeconds"`
	Goroutines              int     `json:"goroutines"`
	ProcessRSSBytes         uint64  `json:"processRssBytes"`
	SystemMemoryTotalBytes  uint64  `json:"systemMemoryTotalBytes"`
	SystemMemoryUsedPercent float64 `json:"systemMemoryUsedPercent"`
	CacheStore              string  `json:"cacheStore"`
	RateLimitStore          string  `json:"rateLimitStore"`
}

func (s *Server) handleStatus(ctx *fasthttp.RequestCtx, requestID string) {
	snapshot := statusResponse{
		Version:        s.version,
		UptimeSeconds:  int64(time.Since(s.startedAt).Seconds()),
		Goroutines:     runtime.NumGoroutine(),
		CacheStore:     s.store.Kind(),
		RateLimitStore: s.limiter.Kind(),
	}

	// Memory figures are best-effort; an unreadable /proc leaves zeros.
	if vm, err := mem.VirtualMemory(); err == nil {
		snapshot.SystemMemoryTotalBytes = vm.Total
		snapshot.SystemMemoryUsedPercent = vm.UsedPercent
	}
	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if info, err := proc.MemoryInfo(); err == nil {
			snapshot.ProcessRSSBytes = info.RSS
		}
	}

	body, err := json.Marshal(snapshot)
	if err != nil {
		s.writeErrorPayload(ctx, requestID, &requestError{
			status:  fasthttp.StatusInternalServerError,
			kind:    "internal",
			message: "internal server error",
		})
		return
	}

	ctx.Response.Header.Set("Content-Type", "application/json; charset=utf-8")
	ctx.Response.SetStatusCode(fasthttp.StatusOK)
	ctx.Response.SetBody(body)
}

func (s *Server) resolveClientIP(ctx *fasthttp.RequestCtx) string {
	cfg := s.configManager.GetConfig()
	if cfg.ClientIP != nil {
		return clientip.Extract(ctx, cfg.ClientIP.Headers)
	}
	return clientip.Extract(ctx, clientip.DefaultHeaders)
}

// StartDraining flips /ready to 503 so load balancers stop routing new
// work here ahead of shutdown.
func (s *Server) StartDraining() {
	s.draining.Store(true)
	s.logger.Info("Draining: /ready now reports unavailable")
}

// Shutdown gracefully shuts down the server and closes resources
func (s *Server) Shutdown() error {
	if err := s.eventEmitter.Close(); err != nil {
		s.logger.Warn("Failed to close event emitter", zap.Error(err))
		return err
	}
	return nil
}

package extractctx

import (
	"context"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/readlens/engine/pkg/types"
)

// ExtractContext encapsulates all the request state and dependencies
// needed throughout the extraction pipeline.
// The timeout fields (startTime, timeout) are immutable after creation,
// making TimeRemaining() safe to call from multiple goroutines.
type ExtractContext struct {
	// Request metadata
	RequestID string
	Logger    *zap.Logger

	// HTTP context
	HTTPCtx *fasthttp.RequestCtx

	// Timeout management (immutable after creation)
	startTime time.Time
	timeout   time.Duration

	// Request data
	Request   *types.ExtractionRequest // decoded request parameters
	TargetURL string                   // canonical URL after validation
	CacheKey  string
	ClientIP  string
}

// NewExtractContext creates a new extract context with the provided request ID, HTTP context, and timeout
func NewExtractContext(requestID string, httpCtx *fasthttp.RequestCtx, baseLogger *zap.Logger, timeout time.Duration) *ExtractContext {
	logger := baseLogger.With(zap.Duration("timeout", timeout))

	return &ExtractContext{
		RequestID: requestID,
		Logger:    logger,
		HTTPCtx:   httpCtx,
		startTime: time.Now().UTC(),
		timeout:   timeout,
	}
}

// WithRequest enriches the context with the decoded request parameters
func (ec *ExtractContext) WithRequest(req *types.ExtractionRequest) *ExtractContext {
	ec.Request = req
	ec.Logger = ec.Logger.With(
		zap.String("origin_url", req.URL),
		zap.String("mode", string(req.Mode)),
		zap.String("format", string(req.Format)))
	return ec
}

// WithTargetURL enriches the context with the canonical target URL
func (ec *ExtractContext) WithTargetURL(targetURL string) *ExtractContext {
	ec.TargetURL = targetURL
	ec.Logger = ec.Logger.With(zap.String("target_url", targetURL))
	return ec
}

// WithCacheKey enriches the context with cache key information
func (ec *ExtractContext) WithCacheKey(cacheKey string) *ExtractContext {
	ec.CacheKey = cacheKey
	ec.Logger = ec.Logger.With(zap.String("cache_key", cacheKey))
	return ec
}

// WithClientIP sets the extracted client IP address.
func (ec *ExtractContext) WithClientIP(ip string) *ExtractContext {
	ec.ClientIP = ip
	ec.Logger = ec.Logger.With(zap.String("client_ip", ip))
	return ec
}

// Elapsed returns how long the request has been running.
func (ec *ExtractContext) Elapsed() time.Duration {
	return time.Now().UTC().Sub(ec.startTime)
}

// TimeRemaining returns how much time is left in the timeout budget.
// This method is safe to call from multiple goroutines since it only
// reads immutable fields.
func (ec *ExtractContext) TimeRemaining() time.Duration {
	remaining := ec.timeout - ec.Elapsed()
	if remaining < 0 {
		return 0
	}
	return remaining
}

// IsTimedOut returns true if the request has exceeded its timeout budget
func (ec *ExtractContext) IsTimedOut() bool {
	return ec.TimeRemaining() == 0
}

// GetContext creates a context with the remaining timeout budget
func (ec *ExtractContext) GetContext() (context.Context, context.CancelFunc) {
	remaining := ec.TimeRemaining()
	if remaining <= 0 {
		// Already timed out, return cancelled context
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx, cancel
	}
	return context.WithTimeout(context.Background(), remaining)
}

// ContextWithTimeout creates a context with a specific timeout, capped by the remaining budget
func (ec *ExtractContext) ContextWithTimeout(operationTimeout time.Duration) (context.Context, context.CancelFunc) {
	remaining := ec.TimeRemaining()
	if remaining <= 0 {
		// Already timed out, return cancelled context
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx, cancel
	}

	// Use the smaller of the operation timeout or remaining budget
	timeout := operationTimeout
	if remaining < timeout {
		timeout = remaining
	}

	return context.WithTimeout(context.Background(), timeout)
}

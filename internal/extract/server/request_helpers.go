package server

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/readlens/engine/internal/extract/auth"
	"github.com/readlens/engine/internal/extract/contentroot"
	"github.com/readlens/engine/internal/extract/events"
	"github.com/readlens/engine/internal/extract/extractctx"
	"github.com/readlens/engine/internal/extract/fetch"
	"github.com/readlens/engine/internal/extract/pipeline"
	"github.com/readlens/engine/internal/extract/render"
	"github.com/readlens/engine/internal/extract/safety"
	"github.com/readlens/engine/pkg/types"
)

// requestError carries everything the boundary needs to answer a failed
// request: HTTP status, the error kind for the payload, a client-safe
// message, and the outcome label for metrics and access events.
type requestError struct {
	status  int
	kind    string
	message string
	outcome string
}

// errorPayload is the single JSON error shape for every failure.
type errorPayload struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"requestId"`
}

// classifyError converts any pipeline failure into exactly one
// requestError. Unrecognized errors report generically; internals never
// reach the client.
func classifyError(err error) *requestError {
	reqErr := &requestError{}

	switch {
	case errors.Is(err, pipeline.ErrRateLimited):
		reqErr.status = fasthttp.StatusTooManyRequests
		reqErr.kind = "rate_limited"
		reqErr.message = "rate limit exceeded, retry later"
		reqErr.outcome = events.OutcomeRateLimited

	case errors.Is(err, pipeline.ErrBlocked):
		reqErr.status = fasthttp.StatusForbidden
		reqErr.kind = "security"
		reqErr.message = err.Error()
		reqErr.outcome = events.OutcomeBlocked

	case errors.Is(err, auth.ErrMissingKey), errors.Is(err, auth.ErrInvalidKey):
		reqErr.status = fasthttp.StatusUnauthorized
		reqErr.kind = "security"
		reqErr.message = err.Error()

	case errors.Is(err, errDecode):
		reqErr.status = fasthttp.StatusBadRequest
		reqErr.kind = "input"
		reqErr.message = err.Error()

	case errors.Is(err, safety.ErrInvalidURL):
		reqErr.status = fasthttp.StatusBadRequest
		reqErr.kind = "input"
		reqErr.message = err.Error()

	case errors.Is(err, safety.ErrBlockedHost),
		errors.Is(err, safety.ErrHostNotAllowed),
		errors.Is(err, safety.ErrCredentialsInURL):
		reqErr.status = fasthttp.StatusForbidden
		reqErr.kind = "security"
		reqErr.message = err.Error()

	case errors.Is(err, fetch.ErrTimeout):
		reqErr.status = fasthttp.StatusGatewayTimeout
		reqErr.kind = "upstream"
		reqErr.message = "upstream fetch timed out"

	case errors.Is(err, fetch.ErrUnsupportedContent):
		reqErr.status = fasthttp.StatusBadRequest
		reqErr.kind = "input"
		reqErr.message = err.Error()

	case errors.Is(err, fetch.ErrUpstreamStatus),
		errors.Is(err, fetch.ErrBodyTooLarge),
		errors.Is(err, fetch.ErrTooManyRedirects),
		errors.Is(err, fetch.ErrUpstream):
		reqErr.status = fasthttp.StatusBadGateway
		reqErr.kind = "upstream"
		reqErr.message = err.Error()

	case errors.Is(err, contentroot.ErrNoContent):
		reqErr.status = fasthttp.StatusUnprocessableEntity
		reqErr.kind = "extraction"
		reqErr.message = "no article content found; the page may require script execution"

	case errors.Is(err, contentroot.ErrInvalidSelector):
		reqErr.status = fasthttp.StatusUnprocessableEntity
		reqErr.kind = "extraction"
		reqErr.message = err.Error()

	case errors.Is(err, pipeline.ErrBusy):
		reqErr.status = fasthttp.StatusServiceUnavailable
		reqErr.kind = "internal"
		reqErr.message = "server is at capacity, retry later"

	default:
		reqErr.status = fasthttp.StatusInternalServerError
		reqErr.kind = "internal"
		reqErr.message = "internal server error"
	}

	if reqErr.outcome == "" {
		reqErr.outcome = events.OutcomeError(reqErr.kind)
	}
	return reqErr
}

// handleRequestError writes the error response, logs, records metrics,
// and emits the access event for a failed extraction request.
func (s *Server) handleRequestError(ctx *fasthttp.RequestCtx, ec *extractctx.ExtractContext, err error, duration time.Duration) {
	reqErr := classifyError(err)
	ec.Logger.Warn("Request failed",
		zap.Error(err),
		zap.String("kind", reqErr.kind),
		zap.Int("status", reqErr.status))

	s.writeErrorPayload(ctx, ec.RequestID, reqErr)

	format, mode := requestLabels(ec.Request)
	s.metrics.RecordRequest(reqErr.outcome, format, mode, duration)
	s.emitEvent(ctx, ec, reqErr.status, reqErr.outcome, false, duration)
}

func (s *Server) writeErrorPayload(ctx *fasthttp.RequestCtx, requestID string, reqErr *requestError) {
	body, err := json.Marshal(errorPayload{
		Error:     reqErr.kind,
		Message:   reqErr.message,
		RequestID: requestID,
	})
	if err != nil {
		ctx.Response.SetStatusCode(fasthttp.StatusInternalServerError)
		return
	}

	ctx.Response.Header.Set("Content-Type", "application/json; charset=utf-8")
	ctx.Response.SetStatusCode(reqErr.status)
	ctx.Response.SetBody(body)
}

// writeResult encodes a successful extraction in the requested format,
// records metrics, and emits the access event.
func (s *Server) writeResult(ctx *fasthttp.RequestCtx, ec *extractctx.ExtractContext, outcome *pipeline.Outcome, duration time.Duration) {
	req := ec.Request
	result := outcome.Result

	// Response-time fields; stores never hold these (stores copy or
	// serialize before this point).
	result.RequestID = ec.RequestID
	result.Cached = outcome.CacheHit
	result.ElapsedMs = duration.Milliseconds()

	source := "live"
	if outcome.CacheHit {
		source = "cache"
	}
	ctx.Response.Header.Set("X-Extract-Source", source)

	switch req.Format {
	case types.FormatText:
		ctx.Response.Header.Set("Content-Type", "text/plain; charset=utf-8")
		ctx.Response.SetBodyString(truncate(result.TextContent, req.MaxLength))

	case types.FormatMarkdown:
		ctx.Response.Header.Set("Content-Type", "text/markdown; charset=utf-8")
		ctx.Response.SetBodyString(truncate(render.Markdown(result.ArticleHTML), req.MaxLength))

	case types.FormatHTML:
		ctx.Response.Header.Set("Content-Type", "text/html; charset=utf-8")
		ctx.Response.SetBodyString(truncate(result.ArticleHTML, req.MaxLength))

	default: // JSON
		if !req.IncludeHTML {
			result.ArticleHTML = ""
		}
		result.TextContent = truncate(result.TextContent, req.MaxLength)

		body, err := json.Marshal(result)
		if err != nil {
			s.handleRequestError(ctx, ec, err, duration)
			return
		}
		ctx.Response.Header.Set("Content-Type", "application/json; charset=utf-8")
		ctx.Response.SetBody(body)
	}
	ctx.Response.SetStatusCode(fasthttp.StatusOK)

	bytesOut := len(ctx.Response.Body())
	s.metrics.RecordServedBytes(bytesOut)

	outcomeLabel := events.OutcomeExtracted
	if outcome.CacheHit {
		outcomeLabel = events.OutcomeCacheHit
	}
	format, mode := requestLabels(req)
	s.metrics.RecordRequest(outcomeLabel, format, mode, duration)
	s.emitEvent(ctx, ec, fasthttp.StatusOK, outcomeLabel, outcome.CacheHit, duration)

	ec.Logger.Info("Request completed",
		zap.String("outcome", outcomeLabel),
		zap.Bool("cached", outcome.CacheHit),
		zap.Int("bytes_out", bytesOut),
		zap.Duration("duration", duration))
}

// emitEvent records one terminal access event. Emission is
// fire-and-forget and never fails the request.
func (s *Server) emitEvent(ctx *fasthttp.RequestCtx, ec *extractctx.ExtractContext, status int, outcome string, cached bool, duration time.Duration) {
	format, mode := requestLabels(ec.Request)
	s.eventEmitter.Emit(&events.AccessEvent{
		TS:         time.Now().UTC(),
		RequestID:  ec.RequestID,
		ClientIP:   ec.ClientIP,
		Method:     string(ctx.Method()),
		Path:       string(ctx.Path()),
		TargetURL:  ec.TargetURL,
		Mode:       mode,
		Format:     format,
		UserAgent:  string(ctx.UserAgent()),
		Status:     status,
		Outcome:    outcome,
		Cached:     cached,
		DurationMs: duration.Milliseconds(),
		BytesOut:   len(ctx.Response.Body()),
	})
}

// requestLabels returns the format and mode labels for metrics and
// events; requests that failed before decoding label as empty.
func requestLabels(req *types.ExtractionRequest) (format, mode string) {
	if req == nil {
		return "", ""
	}
	return string(req.Format), string(req.Mode)
}

// truncate caps s at max runes. Zero means no limit.
func truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/readlens/engine/internal/common/configtypes"
	"github.com/readlens/engine/internal/common/urlutil"
	"github.com/readlens/engine/internal/extract/metrics"
)

// Sentinel errors for fetch failures. The gateway boundary maps
// ErrTimeout to 504, ErrUnsupportedContent to an input failure and the
// rest to upstream failures.
var (
	ErrTimeout            = errors.New("upstream request timed out")
	ErrUpstream           = errors.New("upstream request failed")
	ErrUpstreamStatus     = errors.New("upstream returned non-2xx status")
	ErrBodyTooLarge       = errors.New("response body exceeds the configured size limit")
	ErrTooManyRedirects   = errors.New("too many redirects")
	ErrUnsupportedContent = errors.New("unsupported content type")
)

// Browser-like request headers. Origins routinely serve reduced or
// blocked pages to obvious bot user agents.
const (
	acceptHeader         = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	acceptLanguageHeader = "en-US,en;q=0.9"
)

// Response holds the fetched content from the target origin.
type Response struct {
	StatusCode  int
	Body        []byte
	ContentType string
}

// Fetcher retrieves target pages over HTTP. GET only.
type Fetcher struct {
	configManager configtypes.GatewayConfigManager
	client        *fasthttp.Client
	politeness    *HostLimiter
	metrics       *metrics.Collector
	logger        *zap.Logger
}

// NewFetcher creates a new Fetcher instance. Connection-level tunables
// (timeouts, body cap, dialer) are fixed from the config present at
// startup; per-request values are read live.
func NewFetcher(configManager configtypes.GatewayConfigManager, metricsCollector *metrics.Collector, logger *zap.Logger) *Fetcher {
	cfg := configManager.GetConfig().Fetch
	timeout := time.Duration(cfg.Timeout)

	client := &fasthttp.Client{
		ReadTimeout:              timeout,
		WriteTimeout:             timeout,
		MaxResponseBodySize:      cfg.MaxBodySize,
		NoDefaultUserAgentHeader: true,
	}

	// Enable SSRF protection by default (blocks DNS rebinding to private IPs)
	if cfg.SSRFProtection == nil || *cfg.SSRFProtection {
		client.Dial = ssrfSafeDial
	}

	return &Fetcher{
		configManager: configManager,
		client:        client,
		politeness:    NewHostLimiter(cfg.PolitenessRPS, cfg.PolitenessBurst),
		metrics:       metricsCollector,
		logger:        logger,
	}
}

// Fetch retrieves targetURL and returns its HTML body. The context
// deadline bounds the politeness wait; the transfer itself is bounded
// by the configured timeout.
func (f *Fetcher) Fetch(ctx context.Context, targetURL string) (*Response, error) {
	cfg := f.configManager.GetConfig().Fetch

	parsed, err := url.Parse(targetURL)
	if err != nil {
		return nil, fmt.Errorf("parse target URL: %w", err)
	}

	if err := f.politeness.Wait(ctx, parsed.Hostname()); err != nil {
		return nil, fmt.Errorf("%w: politeness wait: %v", ErrTimeout, err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(targetURL)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("User-Agent", cfg.UserAgent)
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("Accept-Language", acceptLanguageHeader)

	if err := f.client.DoRedirects(req, resp, cfg.MaxRedirects); err != nil {
		return nil, f.classifyTransportError(targetURL, err)
	}

	statusCode := resp.StatusCode()
	f.metrics.RecordUpstreamStatus(statusCode)

	if statusCode < 200 || statusCode > 299 {
		f.logger.Warn("Upstream returned non-success status",
			zap.String("url", targetURL),
			zap.Int("status_code", statusCode))
		return nil, fmt.Errorf("%w: %d", ErrUpstreamStatus, statusCode)
	}

	contentType := string(resp.Header.ContentType())
	if !supportedContentType(contentType) {
		f.logger.Warn("Upstream returned non-HTML content",
			zap.String("url", targetURL),
			zap.String("content_type", contentType))
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedContent, contentType)
	}

	body := append([]byte(nil), resp.Body()...) // Copy the body
	f.metrics.RecordFetchedBytes(len(body))

	f.logger.Debug("Fetch completed",
		zap.String("url", targetURL),
		zap.Int("status_code", statusCode),
		zap.Int("body_size", len(body)))

	return &Response{
		StatusCode:  statusCode,
		Body:        body,
		ContentType: contentType,
	}, nil
}

// classifyTransportError converts fasthttp transport failures into the
// package sentinels.
func (f *Fetcher) classifyTransportError(targetURL string, err error) error {
	f.logger.Warn("Fetch failed",
		zap.String("url", targetURL),
		zap.Error(err))

	var netErr net.Error
	switch {
	case errors.Is(err, fasthttp.ErrTimeout),
		errors.Is(err, fasthttp.ErrDialTimeout),
		errors.As(err, &netErr) && netErr.Timeout():
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	case errors.Is(err, fasthttp.ErrTooManyRedirects):
		return fmt.Errorf("%w: %v", ErrTooManyRedirects, err)
	case errors.Is(err, fasthttp.ErrBodyTooLarge):
		return fmt.Errorf("%w: %v", ErrBodyTooLarge, err)
	default:
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
}

// supportedContentType accepts text/html and application/xhtml+xml.
// A missing Content-Type is treated as HTML; plenty of origins omit it.
func supportedContentType(contentType string) bool {
	if contentType == "" {
		return true
	}

	mediaType, _, _ := strings.Cut(contentType, ";")
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}

// ssrfSafeDial resolves the hostname, validates all IPs are public, then connects.
// Prevents DNS rebinding attacks where an attacker's domain resolves to a private IP.
func ssrfSafeDial(addr string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid address %q: %w", addr, err)
	}

	ips, err := net.LookupIP(host)
	if err != nil {
		return nil, fmt.Errorf("DNS resolution failed for %q: %w", host, err)
	}

	if len(ips) == 0 {
		return nil, fmt.Errorf("no IP addresses found for %q", host)
	}

	for _, ip := range ips {
		if err := urlutil.ValidateResolvedIP(ip); err != nil {
			return nil, fmt.Errorf("SSRF protection for %q: %w", host, err)
		}
	}

	// All IPs validated as public; connect to the first one
	return fasthttp.DialTimeout(net.JoinHostPort(ips[0].String(), port), 10*time.Second)
}

package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/readlens/engine/internal/common/configtypes"
	"github.com/readlens/engine/internal/common/urlutil"
	"github.com/readlens/engine/internal/extract/analyze"
	"github.com/readlens/engine/internal/extract/cache"
	"github.com/readlens/engine/internal/extract/contentroot"
	"github.com/readlens/engine/internal/extract/extractctx"
	"github.com/readlens/engine/internal/extract/fetch"
	"github.com/readlens/engine/internal/extract/harvest"
	"github.com/readlens/engine/internal/extract/metrics"
	"github.com/readlens/engine/internal/extract/ratelimit"
	"github.com/readlens/engine/internal/extract/render"
	"github.com/readlens/engine/internal/extract/safety"
	"github.com/readlens/engine/pkg/types"
)

const (
	// Store operation timeouts, independent of the request budget so a
	// request that already timed out still completes its cache write
	rateLimitOpTimeout = 2 * time.Second
	cacheReadTimeout   = 3 * time.Second
	cacheWriteTimeout  = 5 * time.Second
)

// Sentinel errors for pipeline-level rejections.
var (
	ErrRateLimited = errors.New("rate limit exceeded")
	ErrBlocked     = errors.New("URL is blocked by site rules")
	ErrBusy        = errors.New("extraction capacity exhausted")
)

// Outcome represents the result of processing an extraction request
type Outcome struct {
	Result   *types.ExtractionResult
	CacheHit bool
}

// Pipeline coordinates the extraction workflow: admission, validation,
// cache, fetch, content-root detection, rendering, analysis and the
// cache write-back.
type Pipeline struct {
	validator     *safety.Validator
	limiter       ratelimit.Limiter
	store         cache.Store
	fetcher       *fetch.Fetcher
	harvester     *harvest.Harvester
	metrics       *metrics.Collector
	configManager configtypes.GatewayConfigManager
	semaphore     chan struct{}
	logger        *zap.Logger
}

// NewPipeline creates a new Pipeline instance
func NewPipeline(
	validator *safety.Validator,
	limiter ratelimit.Limiter,
	store cache.Store,
	fetcher *fetch.Fetcher,
	harvester *harvest.Harvester,
	metricsCollector *metrics.Collector,
	configManager configtypes.GatewayConfigManager,
	logger *zap.Logger,
) *Pipeline {
	limit := concurrencyLimit(configManager.GetConfig().Fetch.MaxConcurrent)
	logger.Info("Extraction pipeline initialized",
		zap.Int("max_concurrent", limit))

	return &Pipeline{
		validator:     validator,
		limiter:       limiter,
		store:         store,
		fetcher:       fetcher,
		harvester:     harvester,
		metrics:       metricsCollector,
		configManager: configManager,
		semaphore:     make(chan struct{}, limit),
		logger:        logger,
	}
}

// ProcessExtractRequest handles the complete extraction workflow for one
// decoded request.
func (p *Pipeline) ProcessExtractRequest(ec *extractctx.ExtractContext) (*Outcome, error) {
	req := ec.Request
	cfg := p.configManager.GetConfig()

	// 1. RATE LIMIT (cheapest rejection first)
	rlCtx, rlCancel := context.WithTimeout(context.Background(), rateLimitOpTimeout)
	allowed := p.limiter.Allow(rlCtx, ec.ClientIP)
	rlCancel()
	p.metrics.RecordRateLimit(allowed)
	if !allowed {
		return nil, ErrRateLimited
	}

	// 2. VALIDATE AND CANONICALIZE THE TARGET URL
	canonical, err := p.validator.Validate(req.URL)
	if err != nil {
		return nil, err
	}
	ec.WithTargetURL(canonical)

	// 3. SITE RULES (matched against the canonical URL without scheme)
	mode := req.Mode
	if mode == "" {
		mode = types.Mode(cfg.Extract.DefaultMode)
	}
	cacheTTL := time.Duration(cfg.Cache.TTL)

	if rule := p.configManager.MatchSiteRule(urlutil.CanonicalTarget(canonical)); rule != nil {
		if rule.Action == types.SiteRuleBlock {
			ec.Logger.Info("Request blocked by site rule")
			return nil, ErrBlocked
		}
		if rule.ForceMode != "" {
			mode = types.Mode(rule.ForceMode)
			ec.Logger.Debug("Site rule forces extraction mode",
				zap.String("forced_mode", rule.ForceMode))
		}
		if rule.CacheTTL != nil {
			cacheTTL = time.Duration(*rule.CacheTTL)
			ec.Logger.Debug("Site rule overrides cache TTL",
				zap.Duration("cache_ttl", cacheTTL))
		}
	}

	// 4. CACHE LOOKUP (skipped by nocache; a hit short-circuits everything)
	cacheEnabled := cfg.Cache.Enabled == nil || *cfg.Cache.Enabled
	key := cache.Key(canonical, mode, req.Selector)
	ec.WithCacheKey(key)

	if cacheEnabled && !req.NoCache {
		getCtx, getCancel := context.WithTimeout(context.Background(), cacheReadTimeout)
		cached, ok := p.store.Get(getCtx, key)
		getCancel()
		if ok {
			ec.Logger.Info("Cache hit, served without fetching")
			return &Outcome{Result: cached, CacheHit: true}, nil
		}
	}

	// 5. ADMISSION (global in-flight cap; waits within the request budget)
	release, err := p.acquireSlot(ec)
	if err != nil {
		return nil, err
	}
	defer release()

	// 6. FETCH
	fetchCtx, fetchCancel := ec.GetContext()
	defer fetchCancel()

	fetchStart := time.Now()
	resp, err := p.fetcher.Fetch(fetchCtx, canonical)
	p.metrics.RecordPhase(metrics.PhaseFetch, time.Since(fetchStart))
	if err != nil {
		return nil, err
	}

	// 7. PARSE AND ISOLATE THE CONTENT ROOT
	pageURL, err := url.Parse(canonical)
	if err != nil {
		return nil, fmt.Errorf("parse canonical URL: %w", err)
	}

	parseStart := time.Now()
	root, err := p.detectorFor(mode, req.Selector).Detect(resp.Body, pageURL)
	if err != nil {
		p.metrics.RecordPhase(metrics.PhaseParse, time.Since(parseStart))
		return nil, err
	}

	// Harvest works on the full document, not the content root; failures
	// degrade to empty metadata rather than failing the request.
	doc, docErr := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if docErr != nil {
		ec.Logger.Warn("Document parse for harvest failed, metadata will be empty",
			zap.Error(docErr))
		doc = nil
	}
	metadata, images, pageTitle := p.harvester.Harvest(doc, pageURL)
	p.metrics.RecordPhase(metrics.PhaseParse, time.Since(parseStart))

	// 8. RENDER PLAIN TEXT
	renderStart := time.Now()
	var text string
	if root.Node != nil {
		text = render.Text(root.Node)
	} else {
		text = render.TextFromFragment(root.HTML)
	}
	p.metrics.RecordPhase(metrics.PhaseRender, time.Since(renderStart))

	// 9. ANALYZE (stats always; keywords and summary on request)
	analyzeStart := time.Now()
	analysis := analyze.Stats(text)

	var keywords []types.Keyword
	if req.Keywords {
		keywords = analyze.Keywords(text, cfg.Extract.MaxKeywords)
	}

	var summary string
	if req.Summary {
		summary = analyze.Summarize(text, cfg.Extract.SummarySentences)
	}
	p.metrics.RecordPhase(metrics.PhaseAnalyze, time.Since(analyzeStart))

	// 10. ASSEMBLE THE RESULT
	title := root.Title
	if title == "" {
		title = pageTitle
	}

	result := &types.ExtractionResult{
		URL:         canonical,
		Title:       title,
		TextContent: text,
		ArticleHTML: root.HTML,
		Metadata:    metadata,
		Images:      images,
		Analysis:    analysis,
		Keywords:    keywords,
		Summary:     summary,
		ExtractedAt: time.Now().UTC(),
	}

	// 11. CACHE WRITE-BACK (nocache skips the read above, not the write)
	if cacheEnabled {
		putCtx, putCancel := context.WithTimeout(context.Background(), cacheWriteTimeout)
		p.store.Put(putCtx, key, result, cacheTTL)
		putCancel()
	}

	ec.Logger.Info("Extraction complete",
		zap.String("title", title),
		zap.Int("text_length", len(text)),
		zap.Int("images", len(images)),
		zap.Duration("elapsed", ec.Elapsed()))

	return &Outcome{Result: result, CacheHit: false}, nil
}

// acquireSlot reserves one in-flight extraction slot, waiting no longer
// than the remaining request budget.
func (p *Pipeline) acquireSlot(ec *extractctx.ExtractContext) (func(), error) {
	ctx, cancel := ec.GetContext()
	defer cancel()

	// A request whose budget already ran out gets no slot even if one
	// is free; there is nothing useful a fetch could do with it.
	if ctx.Err() != nil {
		ec.Logger.Warn("Request budget exhausted before admission")
		return nil, ErrBusy
	}

	select {
	case p.semaphore <- struct{}{}:
		p.metrics.IncInflight()
		return func() {
			<-p.semaphore
			p.metrics.DecInflight()
		}, nil
	case <-ctx.Done():
		ec.Logger.Warn("No extraction slot within the request budget")
		return nil, ErrBusy
	}
}

// detectorFor selects the content-root strategy for the request mode.
func (p *Pipeline) detectorFor(mode types.Mode, selector string) contentroot.Detector {
	switch mode {
	case types.ModeFull:
		return contentroot.NewFull(p.logger)
	case types.ModeSelector:
		return contentroot.NewSelector(selector, p.logger)
	default:
		return contentroot.NewReadability(p.logger)
	}
}

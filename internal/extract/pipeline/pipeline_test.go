package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/readlens/engine/internal/common/configtypes"
	"github.com/readlens/engine/internal/extract/cache"
	"github.com/readlens/engine/internal/extract/contentroot"
	"github.com/readlens/engine/internal/extract/extractctx"
	"github.com/readlens/engine/internal/extract/fetch"
	"github.com/readlens/engine/internal/extract/harvest"
	"github.com/readlens/engine/internal/extract/metrics"
	"github.com/readlens/engine/internal/extract/ratelimit"
	"github.com/readlens/engine/internal/extract/safety"
	"github.com/readlens/engine/pkg/types"
)

// mockConfigManager implements configtypes.GatewayConfigManager for tests
type mockConfigManager struct {
	config *configtypes.GatewayConfig
}

func (m *mockConfigManager) GetConfig() *configtypes.GatewayConfig {
	return m.config
}

func (m *mockConfigManager) GetSiteRules() []types.SiteRule {
	return m.config.SiteRules
}

func (m *mockConfigManager) MatchSiteRule(target string) *types.SiteRule {
	for i := range m.config.SiteRules {
		if m.config.SiteRules[i].Matches(target) {
			return &m.config.SiteRules[i]
		}
	}
	return nil
}

// stubLimiter pins the admission decision so tests can drive both branches.
type stubLimiter struct {
	allow bool
	calls int
}

func (l *stubLimiter) Allow(ctx context.Context, clientID string) bool {
	l.calls++
	return l.allow
}

func (l *stubLimiter) Kind() string { return "stub" }

func baseConfig() *configtypes.GatewayConfig {
	return &configtypes.GatewayConfig{
		Extract: configtypes.ExtractConfig{
			DefaultMode:      "readability",
			MaxKeywords:      10,
			SummarySentences: 3,
		},
		Cache: configtypes.CacheConfig{
			TTL:      types.Duration(time.Hour),
			Capacity: 100,
		},
		Fetch: configtypes.FetchConfig{
			Timeout:         types.Duration(5 * time.Second),
			MaxBodySize:     1 << 20,
			MaxRedirects:    3,
			UserAgent:       "readlens-test-agent",
			PolitenessRPS:   200,
			PolitenessBurst: 50,
			MaxConcurrent:   4,
		},
	}
}

func newTestPipeline(t *testing.T, cfg *configtypes.GatewayConfig, limiter ratelimit.Limiter) (*Pipeline, *cache.MemoryStore) {
	t.Helper()

	cm := &mockConfigManager{config: cfg}
	logger := zap.NewNop()
	collector := metrics.NewCollectorWithRegistry("readlens", prometheus.NewRegistry(), logger)
	store := cache.NewMemoryStore(cm, collector, logger)

	p := NewPipeline(
		safety.NewValidator(cm, logger),
		limiter,
		store,
		fetch.NewFetcher(cm, collector, logger),
		harvest.NewHarvester(logger),
		collector,
		cm,
		logger,
	)
	return p, store
}

func newExtractContext(req *types.ExtractionRequest, timeout time.Duration) *extractctx.ExtractContext {
	return extractctx.NewExtractContext("req-test", nil, zap.NewNop(), timeout).
		WithRequest(req).
		WithClientIP("203.0.113.7")
}

func cachedResult(url, title string) *types.ExtractionResult {
	return &types.ExtractionResult{
		URL:         url,
		Title:       title,
		TextContent: "stored text content",
		ExtractedAt: time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC),
	}
}

func TestProcessRejectsWhenRateLimited(t *testing.T) {
	limiter := &stubLimiter{allow: false}
	p, _ := newTestPipeline(t, baseConfig(), limiter)

	// The URL is unparseable; getting ErrRateLimited back rather than a
	// validation error proves the limiter runs before the validator.
	ec := newExtractContext(&types.ExtractionRequest{URL: "http://[::1"}, 5*time.Second)

	out, err := p.ProcessExtractRequest(ec)
	assert.Nil(t, out)
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, 1, limiter.calls)
}

func TestProcessRejectsInvalidURL(t *testing.T) {
	p, _ := newTestPipeline(t, baseConfig(), &stubLimiter{allow: true})

	ec := newExtractContext(&types.ExtractionRequest{URL: "   "}, 5*time.Second)

	out, err := p.ProcessExtractRequest(ec)
	assert.Nil(t, out)
	assert.ErrorIs(t, err, safety.ErrInvalidURL)
}

func TestProcessRejectsBlockedHost(t *testing.T) {
	p, _ := newTestPipeline(t, baseConfig(), &stubLimiter{allow: true})

	ec := newExtractContext(&types.ExtractionRequest{URL: "http://localhost/admin"}, 5*time.Second)

	out, err := p.ProcessExtractRequest(ec)
	assert.Nil(t, out)
	assert.ErrorIs(t, err, safety.ErrBlockedHost)
}

func TestProcessRejectsSiteRuleBlock(t *testing.T) {
	rule := types.SiteRule{Match: "denied.example.com/*", Action: types.SiteRuleBlock}
	require.NoError(t, rule.Compile())

	cfg := baseConfig()
	cfg.SiteRules = []types.SiteRule{rule}
	p, _ := newTestPipeline(t, cfg, &stubLimiter{allow: true})

	ec := newExtractContext(&types.ExtractionRequest{URL: "https://denied.example.com/story"}, 5*time.Second)

	out, err := p.ProcessExtractRequest(ec)
	assert.Nil(t, out)
	assert.ErrorIs(t, err, ErrBlocked)
}

func TestProcessServesCacheHit(t *testing.T) {
	p, store := newTestPipeline(t, baseConfig(), &stubLimiter{allow: true})

	key := cache.Key("https://example.com/a", types.ModeReadability, "")
	store.Put(context.Background(), key, cachedResult("https://example.com/a", "Cached article"), time.Hour)

	// Schemeless input canonicalizes to the stored URL; the empty mode
	// falls back to the configured default.
	ec := newExtractContext(&types.ExtractionRequest{URL: "example.com/a"}, 5*time.Second)

	out, err := p.ProcessExtractRequest(ec)
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.True(t, out.CacheHit)
	assert.Equal(t, "Cached article", out.Result.Title)
	assert.Equal(t, "stored text content", out.Result.TextContent)
}

func TestProcessForceModeMissesDefaultModeEntry(t *testing.T) {
	rule := types.SiteRule{Match: "docs.example.com/*", Action: types.SiteRuleAllow, ForceMode: "full"}
	require.NoError(t, rule.Compile())

	cfg := baseConfig()
	cfg.SiteRules = []types.SiteRule{rule}
	p, store := newTestPipeline(t, cfg, &stubLimiter{allow: true})

	// Only the forced-mode key is populated. A hit proves the rule
	// overrode the requested mode before the cache key was derived.
	key := cache.Key("https://docs.example.com/page", types.ModeFull, "")
	store.Put(context.Background(), key, cachedResult("https://docs.example.com/page", "Full page"), time.Hour)

	ec := newExtractContext(&types.ExtractionRequest{
		URL:  "docs.example.com/page",
		Mode: types.ModeReadability,
	}, 5*time.Second)

	out, err := p.ProcessExtractRequest(ec)
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.True(t, out.CacheHit)
	assert.Equal(t, "Full page", out.Result.Title)
}

func TestProcessNoCacheSkipsRead(t *testing.T) {
	p, store := newTestPipeline(t, baseConfig(), &stubLimiter{allow: true})

	key := cache.Key("https://example.com/a", types.ModeReadability, "")
	store.Put(context.Background(), key, cachedResult("https://example.com/a", "Cached article"), time.Hour)

	// Control: without nocache the entry is served.
	out, err := p.ProcessExtractRequest(newExtractContext(&types.ExtractionRequest{URL: "example.com/a"}, 5*time.Second))
	require.NoError(t, err)
	assert.True(t, out.CacheHit)

	// With nocache the read is skipped, and the exhausted budget stops
	// the request at admission: it cannot have come from the store.
	ec := newExtractContext(&types.ExtractionRequest{URL: "example.com/a", NoCache: true}, 0)

	out, err = p.ProcessExtractRequest(ec)
	assert.Nil(t, out)
	assert.ErrorIs(t, err, ErrBusy)
}

func TestProcessDisabledCacheBypassesStore(t *testing.T) {
	disabled := false
	cfg := baseConfig()
	cfg.Cache.Enabled = &disabled
	p, store := newTestPipeline(t, cfg, &stubLimiter{allow: true})

	key := cache.Key("https://example.com/a", types.ModeReadability, "")
	store.Put(context.Background(), key, cachedResult("https://example.com/a", "Cached article"), time.Hour)

	ec := newExtractContext(&types.ExtractionRequest{URL: "example.com/a"}, 0)

	out, err := p.ProcessExtractRequest(ec)
	assert.Nil(t, out)
	assert.ErrorIs(t, err, ErrBusy)
}

func TestProcessExpiredBudgetRejectedAtAdmission(t *testing.T) {
	p, _ := newTestPipeline(t, baseConfig(), &stubLimiter{allow: true})

	ec := newExtractContext(&types.ExtractionRequest{URL: "example.com/a"}, 0)

	out, err := p.ProcessExtractRequest(ec)
	assert.Nil(t, out)
	assert.ErrorIs(t, err, ErrBusy)
}

func TestNewPipelineSizesSemaphoreFromConfig(t *testing.T) {
	cfg := baseConfig()
	cfg.Fetch.MaxConcurrent = 3
	p, _ := newTestPipeline(t, cfg, &stubLimiter{allow: true})

	assert.Equal(t, 3, cap(p.semaphore))
}

func TestDetectorForMode(t *testing.T) {
	p, _ := newTestPipeline(t, baseConfig(), &stubLimiter{allow: true})

	assert.IsType(t, &contentroot.Readability{}, p.detectorFor(types.ModeReadability, ""))
	assert.IsType(t, &contentroot.Full{}, p.detectorFor(types.ModeFull, ""))
	assert.IsType(t, &contentroot.Selector{}, p.detectorFor(types.ModeSelector, "article"))
	assert.IsType(t, &contentroot.Readability{}, p.detectorFor(types.Mode("unknown"), ""))
}

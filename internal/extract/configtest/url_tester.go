// Package configtest answers "what would the gateway do with this URL"
// without starting the server or fetching anything. It backs the -t
// command line mode.
package configtest

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/readlens/engine/internal/common/config"
	"github.com/readlens/engine/internal/common/urlutil"
	"github.com/readlens/engine/internal/extract/cache"
	"github.com/readlens/engine/internal/extract/safety"
	"github.com/readlens/engine/internal/extract/validate"
	"github.com/readlens/engine/pkg/types"
)

// URLTestResult describes how one target URL would be processed under
// the loaded configuration.
type URLTestResult struct {
	URL          string
	CanonicalURL string

	// Rejected is set when safety validation refuses the URL before any
	// site rule is consulted.
	Rejected bool
	Reason   string

	MatchedRule *types.SiteRule // nil when no site rule matched
	Blocked     bool

	Mode         types.Mode
	CacheEnabled bool
	CacheTTL     time.Duration
	CacheKey     string
}

// TestURL reports how a target URL would be processed: safety
// validation, site-rule matching, and the effective mode and cache
// policy.
func TestURL(testURL string, result *validate.ValidationResult) (*URLTestResult, error) {
	cm, err := config.NewGatewayConfigManager(result.ConfigPath, zap.NewNop())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return testURLWithConfig(testURL, cm)
}

func testURLWithConfig(testURL string, cm *config.GatewayConfigManager) (*URLTestResult, error) {
	urlResult := &URLTestResult{URL: testURL}

	validator := safety.NewValidator(cm, zap.NewNop())
	canonical, err := validator.Validate(testURL)
	if err != nil {
		urlResult.Rejected = true
		urlResult.Reason = err.Error()
		return urlResult, nil
	}
	urlResult.CanonicalURL = canonical

	cfg := cm.GetConfig()
	mode := types.Mode(cfg.Extract.DefaultMode)
	ttl := time.Duration(cfg.Cache.TTL)

	if rule := cm.MatchSiteRule(urlutil.CanonicalTarget(canonical)); rule != nil {
		urlResult.MatchedRule = rule
		if rule.Action == types.SiteRuleBlock {
			urlResult.Blocked = true
		}
		if rule.ForceMode != "" {
			mode = types.Mode(rule.ForceMode)
		}
		if rule.CacheTTL != nil {
			ttl = time.Duration(*rule.CacheTTL)
		}
	}

	urlResult.Mode = mode
	urlResult.CacheEnabled = cfg.Cache.Enabled == nil || *cfg.Cache.Enabled
	urlResult.CacheTTL = ttl
	urlResult.CacheKey = cache.Key(canonical, mode, "")

	return urlResult, nil
}

package configtypes

import "github.com/readlens/engine/pkg/types"

// GatewayConfigManager provides access to gateway configuration.
// Implementations must be safe for concurrent use.
// Returned pointers are read-only - callers must not modify them.
type GatewayConfigManager interface {
	// GetConfig returns the main gateway configuration (read-only)
	GetConfig() *GatewayConfig

	// GetSiteRules returns the compiled site rules in evaluation order
	// (read-only slice)
	GetSiteRules() []types.SiteRule

	// MatchSiteRule returns the first site rule matching target (the
	// canonical URL without its scheme), or nil when no rule matches.
	// Returned pointer is read-only - do not modify.
	MatchSiteRule(target string) *types.SiteRule
}

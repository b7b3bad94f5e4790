package types

import (
	"fmt"

	"github.com/readlens/engine/pkg/pattern"
)

// SiteRuleAction defines the action taken for URLs matching a site rule.
type SiteRuleAction string

// Action constants.
const (
	SiteRuleAllow SiteRuleAction = "allow" // accept the URL, stop evaluating later rules
	SiteRuleBlock SiteRuleAction = "block" // reject the request as disallowed
)

// SiteRule overrides gateway behavior for URLs matching its patterns.
// Rules are evaluated in config order against the canonical URL with the
// scheme stripped (host + path + query); the first match wins.
type SiteRule struct {
	Match  interface{}    `yaml:"match" json:"match"` // string or []string pattern(s)
	Action SiteRuleAction `yaml:"action" json:"action"`

	// ForceMode overrides the requested extraction mode for matched URLs.
	ForceMode string `yaml:"force_mode,omitempty" json:"force_mode,omitempty"`

	// CacheTTL overrides the result cache TTL for matched URLs.
	CacheTTL *Duration `yaml:"cache_ttl,omitempty" json:"cache_ttl,omitempty"`

	// matchPatterns is the normalized []string form of Match, populated
	// during UnmarshalYAML or Compile.
	matchPatterns []string `yaml:"-" json:"-"`

	// compiledPatterns holds pre-compiled patterns, index-aligned with
	// matchPatterns.
	compiledPatterns []*pattern.Pattern `yaml:"-" json:"-"`
}

// UnmarshalYAML implements custom YAML unmarshaling so patterns compile
// once at config load and invalid patterns fail the load.
func (r *SiteRule) UnmarshalYAML(unmarshal func(interface{}) error) error {
	type siteRuleAlias SiteRule

	alias := (*siteRuleAlias)(r)
	if err := unmarshal(alias); err != nil {
		return err
	}

	return r.Compile()
}

// Compile normalizes the Match field and pre-compiles its patterns.
// Rules built programmatically (not from YAML) must call it before Matches.
func (r *SiteRule) Compile() error {
	r.matchPatterns = r.computeMatchPatterns()
	if len(r.matchPatterns) == 0 {
		return fmt.Errorf("site rule has no match patterns")
	}

	r.compiledPatterns = make([]*pattern.Pattern, len(r.matchPatterns))
	for i, pat := range r.matchPatterns {
		compiled, err := pattern.Compile(pat)
		if err != nil {
			return fmt.Errorf("failed to compile site rule pattern '%s': %w", pat, err)
		}
		r.compiledPatterns[i] = compiled
	}

	return r.Validate()
}

// Validate checks the rule's action and override fields.
func (r *SiteRule) Validate() error {
	switch r.Action {
	case SiteRuleAllow, SiteRuleBlock:
	default:
		return fmt.Errorf("site rule action must be %q or %q, got %q",
			SiteRuleAllow, SiteRuleBlock, r.Action)
	}

	if r.ForceMode != "" {
		if _, err := ParseMode(r.ForceMode); err != nil {
			return fmt.Errorf("site rule force_mode: %w", err)
		}
	}

	if r.CacheTTL != nil && *r.CacheTTL <= 0 {
		return fmt.Errorf("site rule cache_ttl must be positive, got %s", r.CacheTTL)
	}

	return nil
}

// MatchPatterns returns the normalized pattern strings of the rule.
func (r *SiteRule) MatchPatterns() []string {
	if r.matchPatterns != nil {
		return r.matchPatterns
	}
	return r.computeMatchPatterns()
}

// Matches reports whether target (canonical URL without scheme) matches
// any of the rule's patterns. Uncompiled rules never match.
func (r *SiteRule) Matches(target string) bool {
	for _, p := range r.compiledPatterns {
		if p.Match(target) {
			return true
		}
	}
	return false
}

// computeMatchPatterns converts the Match field to a []string, dropping
// empty entries.
func (r *SiteRule) computeMatchPatterns() []string {
	switch v := r.Match.(type) {
	case string:
		if v == "" {
			return []string{}
		}
		return []string{v}
	case []interface{}:
		patterns := make([]string, 0, len(v))
		for _, p := range v {
			if str, ok := p.(string); ok && str != "" {
				patterns = append(patterns, str)
			}
		}
		return patterns
	case []string:
		patterns := make([]string, 0, len(v))
		for _, p := range v {
			if p != "" {
				patterns = append(patterns, p)
			}
		}
		return patterns
	default:
		return []string{}
	}
}

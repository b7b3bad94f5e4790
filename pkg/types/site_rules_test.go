package types

import (
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestSiteRuleUnmarshalYAML(t *testing.T) {
	input := `
match: "example.com/blog/*"
action: block
`
	var rule SiteRule
	if err := yaml.Unmarshal([]byte(input), &rule); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}

	if rule.Action != SiteRuleBlock {
		t.Errorf("Action = %q, want block", rule.Action)
	}
	if got := rule.MatchPatterns(); len(got) != 1 || got[0] != "example.com/blog/*" {
		t.Errorf("MatchPatterns = %v", got)
	}
	if !rule.Matches("example.com/blog/2024/post") {
		t.Error("expected wildcard match")
	}
	if rule.Matches("example.com/news/post") {
		t.Error("unexpected match")
	}
}

func TestSiteRuleUnmarshalYAMLMultiplePatterns(t *testing.T) {
	input := `
match:
  - "example.com/private/*"
  - "~*internal\\.example\\.com"
action: block
`
	var rule SiteRule
	if err := yaml.Unmarshal([]byte(input), &rule); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}

	if len(rule.MatchPatterns()) != 2 {
		t.Fatalf("MatchPatterns = %v, want 2 entries", rule.MatchPatterns())
	}
	if !rule.Matches("example.com/private/doc") {
		t.Error("expected wildcard match")
	}
	if !rule.Matches("INTERNAL.example.com/x") {
		t.Error("expected case-insensitive regexp match")
	}
	if rule.Matches("example.com/public") {
		t.Error("unexpected match")
	}
}

func TestSiteRuleUnmarshalYAMLOverrides(t *testing.T) {
	input := `
match: "docs.example.com/*"
action: allow
force_mode: full
cache_ttl: "30m"
`
	var rule SiteRule
	if err := yaml.Unmarshal([]byte(input), &rule); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}

	if rule.ForceMode != "full" {
		t.Errorf("ForceMode = %q, want full", rule.ForceMode)
	}
	if rule.CacheTTL == nil || rule.CacheTTL.ToDuration() != 30*time.Minute {
		t.Errorf("CacheTTL = %v, want 30m", rule.CacheTTL)
	}
}

func TestSiteRuleUnmarshalYAMLErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"bad pattern", "match: \"~[unclosed\"\naction: block\n"},
		{"bad action", "match: \"example.com/*\"\naction: reject\n"},
		{"bad force_mode", "match: \"example.com/*\"\naction: allow\nforce_mode: browser\n"},
		{"no patterns", "match: \"\"\naction: block\n"},
		{"negative ttl", "match: \"example.com/*\"\naction: allow\ncache_ttl: \"-5m\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rule SiteRule
			if err := yaml.Unmarshal([]byte(tt.input), &rule); err == nil {
				t.Errorf("Unmarshal(%q) expected error", tt.input)
			}
		})
	}
}

func TestSiteRuleCompileProgrammatic(t *testing.T) {
	rule := SiteRule{
		Match:  []string{"example.com/a/*", "example.com/b"},
		Action: SiteRuleAllow,
	}

	if rule.Matches("example.com/a/x") {
		t.Error("uncompiled rule must not match")
	}

	if err := rule.Compile(); err != nil {
		t.Fatalf("Compile error: %v", err)
	}

	if !rule.Matches("example.com/a/x") {
		t.Error("expected match after Compile")
	}
	if !rule.Matches("example.com/b") {
		t.Error("expected exact match after Compile")
	}
}

// Package pattern implements the matching syntax used by site rules.
//
// Matching behavior:
//
//   - Exact (no prefix): Case-insensitive exact match
//     Example: "example.com/pricing" matches "EXAMPLE.COM/pricing"
//
//   - Wildcard (*): Case-insensitive pattern with * matching any characters
//     Example: "example.com/blog/*" matches "example.com/blog/2024/post"
//
//   - Regexp (~): Case-sensitive regular expression
//     Example: "~^news\\.example\\.com/[0-9]+$" matches "news.example.com/42"
//
//   - Regexp (~*): Case-insensitive regular expression
//     Example: "~*\\.(pdf|zip)$" matches "example.com/report.PDF"
package pattern

import (
	"fmt"
	"regexp"
	"strings"
)

// Type discriminates the supported matching strategies.
type Type int

const (
	TypeWildcard Type = iota
	TypeRegexp
	TypeExact
)

// Pattern is a compiled rule pattern ready for matching.
type Pattern struct {
	Original        string // pattern string as written in config
	Type            Type
	CleanPattern    string // pattern with the ~ / ~* prefix removed
	CaseInsensitive bool   // regexp patterns with the ~* prefix
	compiledRegexp  *regexp.Regexp
}

// Detect determines the matching strategy of a raw pattern string.
// Returns the type, the pattern with any prefix removed, and whether a
// regexp pattern is case-insensitive.
func Detect(raw string) (Type, string, bool) {
	if strings.HasPrefix(raw, "~*") {
		return TypeRegexp, raw[2:], true
	}
	if strings.HasPrefix(raw, "~") {
		return TypeRegexp, raw[1:], false
	}
	if strings.Contains(raw, "*") {
		return TypeWildcard, raw, false
	}
	return TypeExact, raw, false
}

// Compile parses a raw pattern once so rule evaluation never recompiles.
// Intended to run during configuration loading; a compile failure should
// fail the load.
func Compile(raw string) (*Pattern, error) {
	if raw == "" {
		return nil, fmt.Errorf("pattern cannot be empty")
	}

	patternType, cleanPattern, caseInsensitive := Detect(raw)

	p := &Pattern{
		Original:        raw,
		Type:            patternType,
		CleanPattern:    cleanPattern,
		CaseInsensitive: caseInsensitive,
	}

	if patternType == TypeRegexp {
		var re *regexp.Regexp
		var err error

		if caseInsensitive {
			re, err = regexp.Compile("(?i)" + cleanPattern)
		} else {
			re, err = regexp.Compile(cleanPattern)
		}

		if err != nil {
			return nil, fmt.Errorf("invalid regexp pattern '%s': %w", raw, err)
		}

		p.compiledRegexp = re
	}

	return p, nil
}

// Match reports whether input matches the compiled pattern.
func (p *Pattern) Match(input string) bool {
	if p == nil {
		return false
	}

	switch p.Type {
	case TypeRegexp:
		if p.compiledRegexp == nil {
			return false
		}
		return p.compiledRegexp.MatchString(input)

	case TypeWildcard:
		return MatchWildcard(strings.ToLower(input), strings.ToLower(p.CleanPattern))

	case TypeExact:
		return strings.EqualFold(input, p.CleanPattern)

	default:
		return false
	}
}

// MatchWildcard performs raw wildcard matching without a compiled Pattern.
// The wildcard * matches any sequence of characters, including none and
// including path separators; multiple wildcards are supported.
func MatchWildcard(text, pat string) bool {
	if !strings.Contains(pat, "*") {
		return text == pat
	}

	parts := strings.Split(pat, "*")

	if !strings.HasPrefix(text, parts[0]) {
		return false
	}
	text = text[len(parts[0]):]

	if !strings.HasSuffix(text, parts[len(parts)-1]) {
		return false
	}
	text = text[:len(text)-len(parts[len(parts)-1])]

	for i := 1; i < len(parts)-1; i++ {
		if parts[i] == "" {
			continue
		}
		idx := strings.Index(text, parts[i])
		if idx == -1 {
			return false
		}
		text = text[idx+len(parts[i]):]
	}

	return true
}

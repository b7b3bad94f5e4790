package pattern

import (
	"testing"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name            string
		pattern         string
		expectedType    Type
		expectedClean   string
		expectedCaseIns bool
	}{
		// Exact patterns
		{"exact host", "example.com", TypeExact, "example.com", false},
		{"exact host and path", "example.com/pricing", TypeExact, "example.com/pricing", false},
		{"exact with query", "example.com/a?b=1", TypeExact, "example.com/a?b=1", false},

		// Wildcard patterns
		{"wildcard path", "example.com/blog/*", TypeWildcard, "example.com/blog/*", false},
		{"wildcard host", "*.example.com/*", TypeWildcard, "*.example.com/*", false},
		{"wildcard extension", "*.pdf", TypeWildcard, "*.pdf", false},
		{"wildcard catch-all", "*", TypeWildcard, "*", false},

		// Regexp case-sensitive
		{"regexp path version", "~/docs/v[0-9]+", TypeRegexp, "/docs/v[0-9]+", false},
		{"regexp anchored", "~^news\\.example\\.com/", TypeRegexp, "^news\\.example\\.com/", false},

		// Regexp case-insensitive
		{"regexp ci simple", "~*archive", TypeRegexp, "archive", true},
		{"regexp ci alternation", "~*\\.(pdf|zip)$", TypeRegexp, "\\.(pdf|zip)$", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pType, clean, caseIns := Detect(tt.pattern)
			if pType != tt.expectedType {
				t.Errorf("Detect(%q) type = %v, want %v", tt.pattern, pType, tt.expectedType)
			}
			if clean != tt.expectedClean {
				t.Errorf("Detect(%q) clean = %q, want %q", tt.pattern, clean, tt.expectedClean)
			}
			if caseIns != tt.expectedCaseIns {
				t.Errorf("Detect(%q) caseInsensitive = %v, want %v", tt.pattern, caseIns, tt.expectedCaseIns)
			}
		})
	}
}

func TestCompile(t *testing.T) {
	tests := []struct {
		name        string
		pattern     string
		shouldError bool
		checkType   Type
	}{
		{"compile exact", "example.com/pricing", false, TypeExact},
		{"compile wildcard", "example.com/blog/*", false, TypeWildcard},
		{"compile regexp", "~/docs/v[0-9]+", false, TypeRegexp},
		{"compile regexp ci", "~*archive", false, TypeRegexp},

		{"empty pattern", "", true, TypeExact},
		{"invalid regexp", "~[invalid(", true, TypeRegexp},
		{"invalid ci regexp", "~*[unclosed", true, TypeRegexp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Compile(tt.pattern)
			if tt.shouldError {
				if err == nil {
					t.Errorf("Compile(%q) expected error, got nil", tt.pattern)
				}
			} else {
				if err != nil {
					t.Errorf("Compile(%q) unexpected error: %v", tt.pattern, err)
				}
				if p == nil {
					t.Errorf("Compile(%q) returned nil pattern", tt.pattern)
				}
				if p != nil && p.Type != tt.checkType {
					t.Errorf("Compile(%q) type = %v, want %v", tt.pattern, p.Type, tt.checkType)
				}
			}
		})
	}
}

func TestMatch(t *testing.T) {
	tests := []struct {
		name     string
		pattern  string
		input    string
		expected bool
	}{
		// Exact (case-insensitive)
		{"exact match", "example.com/pricing", "example.com/pricing", true},
		{"exact no match", "example.com/pricing", "example.com/about", false},
		{"exact mixed case", "Example.com/Pricing", "example.COM/pricing", true},

		// Wildcard
		{"wildcard trailing", "example.com/blog/*", "example.com/blog/post", true},
		{"wildcard trailing deep", "example.com/blog/*", "example.com/blog/2024/jan/post", true},
		{"wildcard trailing no match", "example.com/blog/*", "example.com/news/post", false},
		{"wildcard extension", "*.pdf", "example.com/docs/report.pdf", true},
		{"wildcard extension no match", "*.pdf", "example.com/docs/report.doc", false},
		{"wildcard middle", "example.com/*/reviews", "example.com/widget/reviews", true},
		{"wildcard middle no match", "example.com/*/reviews", "example.com/widget/ratings", false},
		{"wildcard multiple", "*/a/*/b", "site/a/x/b", true},
		{"wildcard catch-all", "*", "anything.example/at/all", true},
		{"wildcard case-insensitive", "example.com/Blog/*", "EXAMPLE.com/blog/post", true},

		// Regexp case-sensitive
		{"regexp match", "~/docs/v[0-9]+", "example.com/docs/v2", true},
		{"regexp no match", "~/docs/v[0-9]+", "example.com/docs/vX", false},
		{"regexp anchored match", "~^news\\.example\\.com/", "news.example.com/story", true},
		{"regexp case-sensitive", "~Archive", "example.com/archive", false},

		// Regexp case-insensitive
		{"regexp ci lower", "~*archive", "example.com/archive/2024", true},
		{"regexp ci upper", "~*archive", "example.com/ARCHIVE/2024", true},
		{"regexp ci alternation", "~*\\.(pdf|zip)$", "example.com/report.ZIP", true},
		{"regexp ci no match", "~*\\.(pdf|zip)$", "example.com/report.doc", false},

		// Edge cases
		{"regexp dot any", "~a.b", "aXb", true},
		{"regexp escaped dot", "~a\\.b", "a.b", true},
		{"regexp escaped dot no match", "~a\\.b", "aXb", false},
		{"wildcard empty segments", "a**b", "ab", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Compile(tt.pattern)
			if err != nil {
				t.Fatalf("Compile(%q) error: %v", tt.pattern, err)
			}

			result := p.Match(tt.input)
			if result != tt.expected {
				t.Errorf("Match(%q, %q) = %v, want %v", tt.pattern, tt.input, result, tt.expected)
			}
		})
	}
}

func TestMatchNilPattern(t *testing.T) {
	var p *Pattern
	if p.Match("example.com/any") {
		t.Error("(*Pattern)(nil).Match(input) = true, want false")
	}
}

func BenchmarkMatchExact(b *testing.B) {
	p, _ := Compile("example.com/pricing")
	input := "example.com/pricing"

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p.Match(input)
	}
}

func BenchmarkMatchWildcard(b *testing.B) {
	p, _ := Compile("example.com/blog/*")
	input := "example.com/blog/2024/january/post-1"

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p.Match(input)
	}
}

func BenchmarkMatchRegexp(b *testing.B) {
	p, _ := Compile("~/docs/v[0-9]+/.*")
	input := "example.com/docs/v2/users/123"

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p.Match(input)
	}
}

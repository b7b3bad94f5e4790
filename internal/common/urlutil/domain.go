package urlutil

import (
	"net/url"
	"strings"
)

// CanonicalTarget reduces a URL to the form site rules match against:
// lowercased host followed by path and query, no scheme or fragment.
// Returns "" if the URL cannot be parsed.
func CanonicalTarget(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	target := strings.ToLower(parsed.Host) + parsed.Path
	if parsed.RawQuery != "" {
		target += "?" + parsed.RawQuery
	}
	return target
}

// ExtractHost extracts and lowercases the host (including any port) from
// a URL string. Returns "" if the URL is invalid or has no host.
func ExtractHost(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Host)
}

// ExtractHostname strips the port from a host string, e.g.
// "example.com:8080" -> "example.com". Input is a host, NOT a full URL.
// Bracketed IPv6 literals keep their brackets; bare IPv6 addresses are
// returned unchanged rather than truncated at a colon.
func ExtractHostname(host string) string {
	if strings.HasPrefix(host, "[") {
		if bracketIdx := strings.Index(host, "]"); bracketIdx != -1 {
			return host[:bracketIdx+1]
		}
		return host
	}
	if idx := strings.LastIndex(host, ":"); idx != -1 && strings.Count(host, ":") == 1 {
		return host[:idx]
	}
	return host
}

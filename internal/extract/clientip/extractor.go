// Package clientip resolves the originating address of a request. The
// gateway usually runs behind a reverse proxy, where the connection's
// remote address would attribute every request to the proxy; the
// resolved IP keys the rate limiter and is what logs and access events
// record.
package clientip

import (
	"net"
	"strings"

	"github.com/valyala/fasthttp"
)

// DefaultHeaders is the header list used when none is configured. An
// explicitly empty configured list disables header extraction and
// trusts only the remote address.
var DefaultHeaders = []string{"X-Forwarded-For", "X-Real-IP"}

// Extract returns the client IP from the first listed header with a
// usable value, falling back to the connection's remote address. Only
// the first element of a comma-separated header counts: that is the
// address the nearest trusted proxy saw.
func Extract(ctx *fasthttp.RequestCtx, headers []string) string {
	for _, header := range headers {
		if ip := firstFromHeader(string(ctx.Request.Header.Peek(header))); ip != "" {
			return ip
		}
	}
	return fromRemoteAddr(ctx.RemoteAddr().String())
}

func firstFromHeader(value string) string {
	first, _, _ := strings.Cut(value, ",")
	first = strings.TrimSpace(first)
	if first == "" {
		return ""
	}
	return canonicalIP(first)
}

func fromRemoteAddr(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return canonicalIP(addr)
	}
	return canonicalIP(host)
}

// canonicalIP normalizes bracketed, zoned and IPv4-mapped forms so the
// same client always produces the same rate-limit key. Values that do
// not parse as an IP pass through as-is.
func canonicalIP(raw string) string {
	raw = strings.TrimPrefix(raw, "[")
	raw = strings.TrimSuffix(raw, "]")
	raw, _, _ = strings.Cut(raw, "%")
	if ip := net.ParseIP(raw); ip != nil {
		return ip.String()
	}
	return raw
}

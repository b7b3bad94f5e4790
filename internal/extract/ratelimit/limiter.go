// Package ratelimit enforces a fixed-window request budget per client.
// A client's requests within the current window are counted; at the
// threshold further requests are rejected until the window turns over.
// The check and the increment are separate store operations, so
// concurrent requests can race past the threshold by a small margin,
// and bursts can straddle a window boundary: the limit is approximate.
// As with the cache, a broken backend never blocks a request.
package ratelimit

import (
	"context"
)

// Limiter kinds, reported by the status endpoint.
const (
	KindRedis  = "redis"
	KindMemory = "memory"
)

// Limiter decides whether a client's request may proceed. Allow reads
// the client's counter for the current window, rejects at the
// configured threshold without touching state, and otherwise counts
// the request.
type Limiter interface {
	Allow(ctx context.Context, clientID string) bool
	Kind() string
}

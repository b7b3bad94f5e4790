// Package cache stores finished extraction results keyed by target
// URL, mode and selector. Two backends implement the same interface: a
// Redis store shared across instances and a process-local memory store
// for deployments without Redis. Cache trouble never fails a request:
// a broken backend reads as a miss and writes as a no-op.
package cache

import (
	"context"
	"time"

	"github.com/readlens/engine/pkg/types"
)

// Store kinds, reported by the status endpoint.
const (
	KindRedis  = "redis"
	KindMemory = "memory"
)

// Store is one cache backend. Get returns the entry for key, or false
// when the key is absent, expired or unreadable. Put stores a result
// under key for ttl, evicting the oldest-inserted entry when the store
// is at capacity.
type Store interface {
	Get(ctx context.Context, key string) (*types.ExtractionResult, bool)
	Put(ctx context.Context, key string, result *types.ExtractionResult, ttl time.Duration)
	Kind() string
}

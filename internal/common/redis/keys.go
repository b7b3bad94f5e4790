package redis

import (
	"fmt"
)

// KeyGenerator builds the Redis key names shared by the gateway services.
type KeyGenerator struct{}

func NewKeyGenerator() *KeyGenerator {
	return &KeyGenerator{}
}

// ResultKey returns the key holding a cached extraction payload.
// Format: result:<hash>
func (kg *KeyGenerator) ResultKey(hash string) string {
	return fmt.Sprintf("result:%s", hash)
}

// ResultIndexKey returns the sorted set indexing cached results by
// insertion time, used for capacity eviction.
func (kg *KeyGenerator) ResultIndexKey() string {
	return "resultindex"
}

// RateLimitKey returns the per-client counter key for a fixed window.
// Format: ratelimit:<ip>:<windowStart>
func (kg *KeyGenerator) RateLimitKey(ip string, windowStart int64) string {
	return fmt.Sprintf("ratelimit:%s:%d", ip, windowStart)
}

package cache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/readlens/engine/internal/common/configtypes"
	"github.com/readlens/engine/internal/extract/metrics"
	"github.com/readlens/engine/pkg/types"
)

type memoryEntry struct {
	result    *types.ExtractionResult
	expiresAt time.Time
}

// MemoryStore is the process-local fallback used when no Redis is
// configured. Same contract as the Redis store: expiry is checked at
// read time, and inserting at capacity evicts the oldest entry.
type MemoryStore struct {
	mu            sync.Mutex
	entries       map[string]memoryEntry
	order         []string // insertion order, oldest first
	configManager configtypes.GatewayConfigManager
	metrics       *metrics.Collector
	logger        *zap.Logger
}

func NewMemoryStore(configManager configtypes.GatewayConfigManager, metricsCollector *metrics.Collector, logger *zap.Logger) *MemoryStore {
	return &MemoryStore{
		entries:       make(map[string]memoryEntry),
		configManager: configManager,
		metrics:       metricsCollector,
		logger:        logger,
	}
}

func (s *MemoryStore) Kind() string {
	return KindMemory
}

func (s *MemoryStore) Get(ctx context.Context, key string) (*types.ExtractionResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		s.metrics.RecordCacheMiss()
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		delete(s.entries, key)
		s.removeFromOrder(key)
		s.metrics.RecordCacheMiss()
		return nil, false
	}

	// Copy so response-time mutations never touch the stored entry.
	result := *entry.result
	s.metrics.RecordCacheHit()
	return &result, true
}

func (s *MemoryStore) Put(ctx context.Context, key string, result *types.ExtractionResult, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[key]; exists {
		// Re-inserting moves the key to the tail of the order.
		s.removeFromOrder(key)
	} else if capacity := s.configManager.GetConfig().Cache.Capacity; capacity > 0 && len(s.entries) >= capacity {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.entries, oldest)
		s.logger.Debug("Evicted oldest cache entry",
			zap.String("key", oldest),
			zap.Int("entries", len(s.entries)))
	}

	stored := *result
	s.entries[key] = memoryEntry{result: &stored, expiresAt: time.Now().Add(ttl)}
	s.order = append(s.order, key)
	s.metrics.RecordCachePut()
}

func (s *MemoryStore) removeFromOrder(key string) {
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}

// Len reports the number of stored entries, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

package cache

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/readlens/engine/internal/common/configtypes"
	"github.com/readlens/engine/internal/common/redis"
	"github.com/readlens/engine/internal/extract/metrics"
	"github.com/readlens/engine/pkg/types"
)

// RedisStore keeps payloads in Redis string keys with native TTL
// expiry, plus a sorted set scored by insertion time that drives
// capacity eviction. Entries that Redis already expired linger in the
// index until eviction pops them, which only makes eviction slightly
// eager, never wrong.
type RedisStore struct {
	client        *redis.Client
	keys          *redis.KeyGenerator
	configManager configtypes.GatewayConfigManager
	metrics       *metrics.Collector
	logger        *zap.Logger
}

func NewRedisStore(client *redis.Client, configManager configtypes.GatewayConfigManager, metricsCollector *metrics.Collector, logger *zap.Logger) *RedisStore {
	return &RedisStore{
		client:        client,
		keys:          redis.NewKeyGenerator(),
		configManager: configManager,
		metrics:       metricsCollector,
		logger:        logger,
	}
}

func (s *RedisStore) Kind() string {
	return KindRedis
}

func (s *RedisStore) Get(ctx context.Context, key string) (*types.ExtractionResult, bool) {
	value, err := s.client.Get(ctx, s.keys.ResultKey(key))
	if err != nil {
		s.logger.Warn("Cache read failed, treating as miss",
			zap.String("key", key),
			zap.Error(err))
		s.metrics.RecordCacheError(metrics.CacheOpGet)
		return nil, false
	}
	if value == "" {
		s.metrics.RecordCacheMiss()
		return nil, false
	}

	payload, err := Decompress([]byte(value))
	if err != nil {
		s.logger.Warn("Cache entry unreadable, dropping it",
			zap.String("key", key),
			zap.Error(err))
		s.metrics.RecordCacheCorrupt()
		s.drop(ctx, key)
		return nil, false
	}

	var result types.ExtractionResult
	if err := json.Unmarshal(payload, &result); err != nil {
		s.logger.Warn("Cache entry undecodable, dropping it",
			zap.String("key", key),
			zap.Error(err))
		s.metrics.RecordCacheCorrupt()
		s.drop(ctx, key)
		return nil, false
	}

	s.metrics.RecordCacheHit()
	return &result, true
}

func (s *RedisStore) Put(ctx context.Context, key string, result *types.ExtractionResult, ttl time.Duration) {
	payload, err := json.Marshal(result)
	if err != nil {
		s.logger.Error("Failed to encode cache entry",
			zap.String("key", key),
			zap.Error(err))
		return
	}

	cfg := s.configManager.GetConfig()
	stored, err := Compress(payload, cfg.Cache.Compression.Algorithm, cfg.Cache.Compression.MinSize)
	if err != nil {
		s.logger.Warn("Cache compression failed, storing raw",
			zap.String("key", key),
			zap.Error(err))
		stored = withMarker(markerNone, payload)
	}
	if stored[0] != markerNone {
		// The marker byte is storage overhead, not compressor output.
		s.metrics.RecordCompression(cfg.Cache.Compression.Algorithm, len(payload), len(stored)-1)
	}

	s.evictIfFull(ctx, cfg.Cache.Capacity)

	if err := s.client.Set(ctx, s.keys.ResultKey(key), stored, ttl); err != nil {
		s.logger.Warn("Cache write failed, skipping",
			zap.String("key", key),
			zap.Error(err))
		s.metrics.RecordCacheError(metrics.CacheOpPut)
		return
	}
	if err := s.client.ZAdd(ctx, s.keys.ResultIndexKey(), float64(time.Now().UnixNano()), key); err != nil {
		s.logger.Warn("Cache index update failed",
			zap.String("key", key),
			zap.Error(err))
	}
	s.metrics.RecordCachePut()
}

// evictIfFull removes the single oldest-inserted entry when the index
// has reached capacity.
func (s *RedisStore) evictIfFull(ctx context.Context, capacity int) {
	if capacity <= 0 {
		return
	}

	count, err := s.client.ZCard(ctx, s.keys.ResultIndexKey())
	if err != nil || count < int64(capacity) {
		return
	}

	popped, err := s.client.ZPopMin(ctx, s.keys.ResultIndexKey(), 1)
	if err != nil || len(popped) == 0 {
		return
	}

	evicted := popped[0]
	if err := s.client.Del(ctx, s.keys.ResultKey(evicted)); err != nil {
		s.logger.Warn("Failed to delete evicted cache entry",
			zap.String("key", evicted),
			zap.Error(err))
	}
	s.logger.Debug("Evicted oldest cache entry",
		zap.String("key", evicted),
		zap.Int64("entries", count))
}

// drop removes a corrupt entry and its index member so the next
// request re-extracts instead of tripping over it again.
func (s *RedisStore) drop(ctx context.Context, key string) {
	if err := s.client.Del(ctx, s.keys.ResultKey(key)); err != nil {
		s.logger.Warn("Failed to delete corrupt cache entry",
			zap.String("key", key),
			zap.Error(err))
	}
	if err := s.client.ZRem(ctx, s.keys.ResultIndexKey(), key); err != nil {
		s.logger.Warn("Failed to remove corrupt cache entry from index",
			zap.String("key", key),
			zap.Error(err))
	}
}

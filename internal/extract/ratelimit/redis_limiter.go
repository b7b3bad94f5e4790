package ratelimit

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/readlens/engine/internal/common/configtypes"
	"github.com/readlens/engine/internal/common/redis"
)

// RedisLimiter keeps window counters in Redis string keys named by
// client and window start, so every gateway instance sharing the Redis
// sees the same counts. Keys carry the window duration as TTL and
// expire on their own.
type RedisLimiter struct {
	client        *redis.Client
	keys          *redis.KeyGenerator
	configManager configtypes.GatewayConfigManager
	logger        *zap.Logger
}

func NewRedisLimiter(client *redis.Client, configManager configtypes.GatewayConfigManager, logger *zap.Logger) *RedisLimiter {
	return &RedisLimiter{
		client:        client,
		keys:          redis.NewKeyGenerator(),
		configManager: configManager,
		logger:        logger,
	}
}

func (l *RedisLimiter) Kind() string {
	return KindRedis
}

func (l *RedisLimiter) Allow(ctx context.Context, clientID string) bool {
	cfg := l.configManager.GetConfig().RateLimit
	if cfg.Enabled != nil && !*cfg.Enabled {
		return true
	}
	// A non-positive threshold means unlimited.
	if cfg.Threshold <= 0 {
		return true
	}

	window := time.Duration(cfg.Window)
	windowStart := time.Now().Truncate(window).Unix()
	key := l.keys.RateLimitKey(clientID, windowStart)

	value, err := l.client.Get(ctx, key)
	if err != nil {
		l.logger.Warn("Rate limit read failed, allowing request",
			zap.String("client", clientID),
			zap.Error(err))
		return true
	}

	count := 0
	if value != "" {
		count, err = strconv.Atoi(value)
		if err != nil {
			l.logger.Warn("Rate limit counter unreadable, resetting it",
				zap.String("client", clientID),
				zap.String("value", value),
				zap.Error(err))
			count = 0
		}
	}

	if count >= cfg.Threshold {
		l.logger.Debug("Rate limit exceeded",
			zap.String("client", clientID),
			zap.Int("count", count),
			zap.Int("threshold", cfg.Threshold))
		return false
	}

	if err := l.client.Set(ctx, key, count+1, window); err != nil {
		l.logger.Warn("Rate limit write failed, allowing request",
			zap.String("client", clientID),
			zap.Error(err))
	}
	return true
}

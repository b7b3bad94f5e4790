package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/readlens/engine/internal/common/configtypes"
)

type counterEntry struct {
	count     int
	expiresAt time.Time
}

// MemoryLimiter is the process-local fallback used when no Redis is
// configured. Counters for past windows are swept out lazily, at most
// once per window.
type MemoryLimiter struct {
	mu            sync.Mutex
	counters      map[string]counterEntry
	nextSweep     time.Time
	configManager configtypes.GatewayConfigManager
	logger        *zap.Logger
}

func NewMemoryLimiter(configManager configtypes.GatewayConfigManager, logger *zap.Logger) *MemoryLimiter {
	return &MemoryLimiter{
		counters:      make(map[string]counterEntry),
		configManager: configManager,
		logger:        logger,
	}
}

func (l *MemoryLimiter) Kind() string {
	return KindMemory
}

func (l *MemoryLimiter) Allow(ctx context.Context, clientID string) bool {
	cfg := l.configManager.GetConfig().RateLimit
	if cfg.Enabled != nil && !*cfg.Enabled {
		return true
	}
	// A non-positive threshold means unlimited.
	if cfg.Threshold <= 0 {
		return true
	}

	window := time.Duration(cfg.Window)
	now := time.Now()
	key := fmt.Sprintf("%s:%d", clientID, now.Truncate(window).Unix())

	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweep(now, window)

	count := 0
	if entry, ok := l.counters[key]; ok {
		if now.After(entry.expiresAt) {
			delete(l.counters, key)
		} else {
			count = entry.count
		}
	}

	if count >= cfg.Threshold {
		l.logger.Debug("Rate limit exceeded",
			zap.String("client", clientID),
			zap.Int("count", count),
			zap.Int("threshold", cfg.Threshold))
		return false
	}

	l.counters[key] = counterEntry{count: count + 1, expiresAt: now.Add(window)}
	return true
}

// sweep drops expired counters so abandoned windows do not accumulate.
func (l *MemoryLimiter) sweep(now time.Time, window time.Duration) {
	if now.Before(l.nextSweep) {
		return
	}
	for key, entry := range l.counters {
		if now.After(entry.expiresAt) {
			delete(l.counters, key)
		}
	}
	l.nextSweep = now.Add(window)
}

// Len reports the number of tracked windows, expired or not.
func (l *MemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.counters)
}

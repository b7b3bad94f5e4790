package auth

import (
	"crypto/subtle"
	"errors"

	"go.uber.org/zap"

	"github.com/readlens/engine/internal/common/configtypes"
)

// Sentinel errors for authorization failures. Both map to 401 at the
// gateway boundary.
var (
	ErrMissingKey = errors.New("X-Api-Key header is required")
	ErrInvalidKey = errors.New("invalid API key")
)

// Guard checks the inbound API key against the configured key set.
// With no keys configured the guard is a no-op and every request
// passes.
type Guard struct {
	configManager configtypes.GatewayConfigManager
	logger        *zap.Logger
}

// NewGuard creates a new Guard instance
func NewGuard(configManager configtypes.GatewayConfigManager, logger *zap.Logger) *Guard {
	return &Guard{
		configManager: configManager,
		logger:        logger,
	}
}

// Authorize validates the provided API key. Keys are compared in
// constant time. The key itself is never logged.
func (g *Guard) Authorize(providedKey string) error {
	keys := g.configManager.GetConfig().Auth.APIKeys
	if len(keys) == 0 {
		return nil
	}

	if providedKey == "" {
		g.logger.Warn("Rejected request without API key")
		return ErrMissingKey
	}

	provided := []byte(providedKey)
	for _, key := range keys {
		if subtle.ConstantTimeCompare(provided, []byte(key)) == 1 {
			return nil
		}
	}

	g.logger.Warn("Rejected request with invalid API key",
		zap.Int("key_length", len(providedKey)))
	return ErrInvalidKey
}

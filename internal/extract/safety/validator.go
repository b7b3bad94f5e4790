package safety

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/readlens/engine/internal/common/configtypes"
)

// Sentinel errors for rejection reasons. The gateway boundary maps
// ErrInvalidURL to an input failure and the rest to security failures.
var (
	ErrInvalidURL       = errors.New("invalid URL")
	ErrBlockedHost      = errors.New("host is not allowed")
	ErrHostNotAllowed   = errors.New("host is not on the allowlist")
	ErrCredentialsInURL = errors.New("URLs with embedded credentials are not allowed")
)

// hostBlocklist rejects loopback and private-network hosts by substring
// containment. Containment is intentionally conservative: a hostname
// that merely contains a blocked token (e.g. "mylocalhost.example") is
// over-blocked, which is documented behavior rather than a bug. The
// fetch dialer performs the authoritative per-IP check.
var hostBlocklist = []string{
	"localhost",
	"127.0.0.1",
	"0.0.0.0",
	"10.",
	"172.16.",
	"172.17.",
	"172.18.",
	"172.19.",
	"172.20.",
	"172.21.",
	"172.22.",
	"172.23.",
	"172.24.",
	"172.25.",
	"172.26.",
	"172.27.",
	"172.28.",
	"172.29.",
	"172.30.",
	"172.31.",
	"192.168.",
	"169.254.",
	"[::1]",
	"::1",
}

// Validator canonicalizes target URLs and rejects unsafe ones. It runs
// before any network access.
type Validator struct {
	configManager configtypes.GatewayConfigManager
	logger        *zap.Logger
}

func NewValidator(configManager configtypes.GatewayConfigManager, logger *zap.Logger) *Validator {
	return &Validator{
		configManager: configManager,
		logger:        logger,
	}
}

// Validate returns the canonical absolute form of rawURL or a
// rejection. Schemeless input gets https:// prepended; any supplied
// scheme is forced to https.
func (v *Validator) Validate(rawURL string) (string, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty URL", ErrInvalidURL)
	}

	if !strings.Contains(trimmed, "://") && !strings.HasPrefix(trimmed, "//") {
		trimmed = "https://" + trimmed
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: missing host", ErrInvalidURL)
	}

	u.Scheme = "https"
	u.Host = strings.ToLower(u.Host)

	host := u.Host
	for _, blocked := range hostBlocklist {
		if strings.Contains(host, blocked) {
			v.logger.Warn("Rejected URL with blocked host",
				zap.String("host", host),
				zap.String("matched", blocked))
			return "", fmt.Errorf("%w: %s", ErrBlockedHost, host)
		}
	}

	allowedHosts := v.configManager.GetConfig().Extract.AllowedHosts
	if len(allowedHosts) > 0 && !matchesAny(host, allowedHosts) {
		v.logger.Warn("Rejected URL outside allowlist",
			zap.String("host", host))
		return "", fmt.Errorf("%w: %s", ErrHostNotAllowed, host)
	}

	if u.User != nil {
		return "", ErrCredentialsInURL
	}

	return u.String(), nil
}

// matchesAny applies the same substring-containment semantics as the
// blocklist to allowlist entries.
func matchesAny(host string, entries []string) bool {
	for _, entry := range entries {
		if entry == "" {
			continue
		}
		if strings.Contains(host, strings.ToLower(entry)) {
			return true
		}
	}
	return false
}

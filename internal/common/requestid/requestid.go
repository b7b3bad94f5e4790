package requestid

import (
	"crypto/rand"
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

const (
	// MaxRequestIDLength caps the total ID length (same as a UUID: 36 chars).
	MaxRequestIDLength = 36
	// PrefixLength is the length of the random prefix.
	PrefixLength = 5
	// MaxCustomIDLength bounds the sanitized caller-supplied portion:
	// 36 total - 5 prefix - 1 hyphen = 30.
	MaxCustomIDLength = MaxRequestIDLength - PrefixLength - 1
)

var (
	sanitizeRegex           = regexp.MustCompile(`[^a-zA-Z0-9-]+`)
	consecutiveHyphensRegex = regexp.MustCompile(`-+`)
)

// Generate builds a request ID from an optional caller-supplied ID.
// The supplied ID is sanitized (only [a-zA-Z0-9-] kept, hyphen runs
// collapsed) and prefixed with 5 random hex characters so two clients
// sending the same ID still produce distinct values:
//
//	{5-random-chars}-{sanitized-custom-id}
//
// When the supplied ID is empty, or sanitization removes everything,
// a plain UUID is returned instead. Total length never exceeds 36.
func Generate(customID string) string {
	sanitized := strings.ReplaceAll(customID, " ", "-")
	sanitized = sanitizeRegex.ReplaceAllString(sanitized, "")
	sanitized = consecutiveHyphensRegex.ReplaceAllString(sanitized, "-")
	sanitized = strings.TrimPrefix(sanitized, "-")
	sanitized = strings.TrimSuffix(sanitized, "-")

	if sanitized == "" {
		return uuid.New().String()
	}

	if len(sanitized) > MaxCustomIDLength {
		sanitized = sanitized[:MaxCustomIDLength]
	}

	return randomPrefix() + "-" + sanitized
}

func randomPrefix() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return uuid.New().String()[:PrefixLength]
	}
	return hex.EncodeToString(bytes)[:PrefixLength]
}

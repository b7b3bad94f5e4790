package events

import "time"

// Terminal outcomes recorded per request. Error outcomes carry the error
// kind as a suffix, see OutcomeError.
const (
	OutcomeCacheHit    = "cache_hit"
	OutcomeExtracted   = "extracted"
	OutcomeRateLimited = "rate_limited"
	OutcomeBlocked     = "blocked"
)

// OutcomeError returns the outcome string for a failed request,
// e.g. "error:upstream" or "error:extraction".
func OutcomeError(kind string) string {
	return "error:" + kind
}

// AccessEvent contains all data for a single request event
type AccessEvent struct {
	// Identifiers
	TS        time.Time `json:"ts"`
	RequestID string    `json:"request_id"`
	ClientIP  string    `json:"client_ip"`

	// Request metadata
	Method    string `json:"method"`
	Path      string `json:"path"`
	TargetURL string `json:"target_url"`
	Mode      string `json:"mode"`
	Format    string `json:"format"`
	UserAgent string `json:"user_agent"`

	// Response
	Status     int    `json:"status"`
	Outcome    string `json:"outcome"`
	Cached     bool   `json:"cached"`
	DurationMs int64  `json:"duration_ms"`
	BytesOut   int    `json:"bytes_out"`
}

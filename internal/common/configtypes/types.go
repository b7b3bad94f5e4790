package configtypes

import (
	"github.com/readlens/engine/pkg/types"
)

// Log level constants
const (
	LogLevelDebug  = "debug"
	LogLevelInfo   = "info"
	LogLevelWarn   = "warn"
	LogLevelError  = "error"
	LogLevelDPanic = "dpanic"
	LogLevelPanic  = "panic"
	LogLevelFatal  = "fatal"
)

// Log format constants
const (
	LogFormatJSON    = "json"
	LogFormatConsole = "console"
	LogFormatText    = "text"
)

// Compression algorithm constants for cached payloads
const (
	CompressionNone   = "none"
	CompressionSnappy = "snappy"
	CompressionLZ4    = "lz4"
)

// GatewayConfig represents the extraction gateway application configuration
type GatewayConfig struct {
	Server    ServerConfig        `yaml:"server"`
	Redis     *RedisConfig        `yaml:"redis,omitempty"` // absent: in-process stores
	Cache     CacheConfig         `yaml:"cache"`
	RateLimit RateLimitConfig     `yaml:"rate_limit"`
	Fetch     FetchConfig         `yaml:"fetch"`
	Extract   ExtractConfig       `yaml:"extract"`
	Auth      AuthConfig          `yaml:"auth"`
	Log       LogConfig           `yaml:"log"`
	Metrics   MetricsConfig       `yaml:"metrics"`
	ClientIP  *ClientIPConfig     `yaml:"client_ip,omitempty"`
	Events    *EventLoggingConfig `yaml:"events,omitempty"`
	SiteRules []types.SiteRule    `yaml:"site_rules,omitempty"`
}

// TLSConfig holds TLS/HTTPS configuration for the external server
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Listen   string `yaml:"listen"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

type ServerConfig struct {
	Listen       string         `yaml:"listen"`
	ReadTimeout  types.Duration `yaml:"read_timeout"`
	WriteTimeout types.Duration `yaml:"write_timeout"`
	IdleTimeout  types.Duration `yaml:"idle_timeout"`

	// RequestTimeout is the end-to-end budget for one extraction,
	// covering admission wait, fetch and processing.
	RequestTimeout types.Duration `yaml:"request_timeout"`

	MaxBodySize int       `yaml:"max_body_size"`
	TLS         TLSConfig `yaml:"tls"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// CacheConfig controls the extraction result cache.
type CacheConfig struct {
	Enabled     *bool             `yaml:"enabled,omitempty"` // nil: enabled
	TTL         types.Duration    `yaml:"ttl"`
	Capacity    int               `yaml:"capacity"`
	Compression CompressionConfig `yaml:"compression"`
}

// CompressionConfig controls compression of cached payloads.
// Payloads smaller than MinSize bytes are stored uncompressed.
type CompressionConfig struct {
	Algorithm string `yaml:"algorithm"`
	MinSize   int    `yaml:"min_size"`
}

// RateLimitConfig controls the fixed-window inbound limiter.
type RateLimitConfig struct {
	Enabled   *bool          `yaml:"enabled,omitempty"` // nil: enabled
	Threshold int            `yaml:"threshold"`
	Window    types.Duration `yaml:"window"`
}

// FetchConfig controls the outbound page fetch client.
type FetchConfig struct {
	Timeout         types.Duration `yaml:"timeout"`
	MaxBodySize     int            `yaml:"max_body_size"`
	MaxRedirects    int            `yaml:"max_redirects"`
	UserAgent       string         `yaml:"user_agent"`
	PolitenessRPS   float64        `yaml:"politeness_rps"`
	PolitenessBurst int            `yaml:"politeness_burst"`
	MaxConcurrent   int            `yaml:"max_concurrent"`             // 0: auto-size from system memory
	SSRFProtection  *bool          `yaml:"ssrf_protection,omitempty"` // block private IPs at dial time (default: true)
}

// ExtractConfig controls extraction defaults and limits.
type ExtractConfig struct {
	DefaultMode      string   `yaml:"default_mode"`
	MaxKeywords      int      `yaml:"max_keywords"`
	SummarySentences int      `yaml:"summary_sentences"`
	AllowedHosts     []string `yaml:"allowed_hosts,omitempty"` // substring allowlist; empty allows all
}

// AuthConfig guards /extract with API keys when non-empty.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys,omitempty"`
}

// ClientIPConfig defines HTTP headers for extracting the client's real IP address.
type ClientIPConfig struct {
	Headers []string `yaml:"headers,omitempty"`
}

type LogConfig struct {
	Level   string           `yaml:"level"`
	Console ConsoleLogConfig `yaml:"console"`
	File    FileLogConfig    `yaml:"file"`
}

type ConsoleLogConfig struct {
	Enabled bool   `yaml:"enabled"`
	Format  string `yaml:"format"`
	Level   string `yaml:"level,omitempty"`
}

type FileLogConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Path     string         `yaml:"path"`
	Format   string         `yaml:"format"`
	Level    string         `yaml:"level,omitempty"`
	Rotation RotationConfig `yaml:"rotation"`
}

type RotationConfig struct {
	MaxSize    int  `yaml:"max_size"`
	MaxAge     int  `yaml:"max_age"`
	MaxBackups int  `yaml:"max_backups"`
	Compress   bool `yaml:"compress"`
}

type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Listen    string `yaml:"listen"`
	Path      string `yaml:"path"`
	Namespace string `yaml:"namespace"`
}

// EventLoggingConfig configures request event logging
type EventLoggingConfig struct {
	File EventFileConfig `yaml:"file"`
}

// EventFileConfig configures file-based event logging
type EventFileConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Path     string         `yaml:"path"`
	Rotation RotationConfig `yaml:"rotation"`
}

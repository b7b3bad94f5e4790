package config

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/readlens/engine/internal/common/configtypes"
	"github.com/readlens/engine/internal/common/yamlutil"
	"github.com/readlens/engine/internal/extract/validate"
	"github.com/readlens/engine/pkg/types"
)

// DefaultConfigPath is the config location used when no -config flag is
// given. A missing file at this path falls back to built-in defaults; a
// missing file anywhere else is a startup error.
const DefaultConfigPath = "configs/gateway.yaml"

// Type aliases so callers can stay on the config package
type (
	GatewayConfig   = configtypes.GatewayConfig
	ServerConfig    = configtypes.ServerConfig
	RedisConfig     = configtypes.RedisConfig
	CacheConfig     = configtypes.CacheConfig
	RateLimitConfig = configtypes.RateLimitConfig
	FetchConfig     = configtypes.FetchConfig
	ExtractConfig   = configtypes.ExtractConfig
	LogConfig       = configtypes.LogConfig
)

// Compile-time interface satisfaction check
var _ configtypes.GatewayConfigManager = (*GatewayConfigManager)(nil)

// GatewayConfigManager loads the gateway configuration and serves it from an atomic
// pointer so SIGHUP reloads never race readers.
type GatewayConfigManager struct {
	current    atomic.Pointer[GatewayConfig]
	configPath string
	logger     *zap.Logger
}

// NewGatewayConfigManager creates a manager and performs the initial load.
func NewGatewayConfigManager(configPath string, logger *zap.Logger) (*GatewayConfigManager, error) {
	cm := &GatewayConfigManager{
		configPath: configPath,
		logger:     logger,
	}

	if err := cm.load(); err != nil {
		return nil, fmt.Errorf("failed to load initial config: %w", err)
	}

	return cm, nil
}

// load reads, validates, defaults, and compiles the configuration, then
// publishes it atomically.
func (cm *GatewayConfigManager) load() error {
	cfg, err := cm.readConfigFile()
	if err != nil {
		return err
	}

	applyDefaults(cfg)

	if err := compileSiteRules(cfg); err != nil {
		return err
	}

	cm.current.Store(cfg)
	cm.emitConfigWarnings(cfg)

	return nil
}

// readConfigFile validates and decodes the config file. A missing file at
// the default path yields the built-in defaults.
func (cm *GatewayConfigManager) readConfigFile() (*GatewayConfig, error) {
	if _, err := os.Stat(cm.configPath); os.IsNotExist(err) {
		if cm.configPath != DefaultConfigPath {
			return nil, fmt.Errorf("config file not found: %s", cm.configPath)
		}
		cm.logger.Warn("Config file not found, using built-in defaults",
			zap.String("config_path", cm.configPath))
		return &GatewayConfig{}, nil
	}

	result, err := validate.ValidateConfiguration(cm.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to validate config: %w", err)
	}
	if !result.Valid {
		return nil, formatValidationErrors(result.Errors)
	}
	for _, w := range result.Warnings {
		cm.logger.Warn("Config warning", zap.String("file", w.File), zap.String("message", w.Message))
	}

	data, err := os.ReadFile(cm.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg GatewayConfig
	if err := yamlutil.UnmarshalStrict(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &cfg, nil
}

// Reload re-reads the config file and swaps the active configuration.
// The previous configuration stays active when the reload fails. Returns
// the freshly loaded config so callers can re-point dependent state
// (log levels).
func (cm *GatewayConfigManager) Reload() (*GatewayConfig, error) {
	if err := cm.load(); err != nil {
		return nil, err
	}

	cfg := cm.current.Load()
	cm.logger.Info("Configuration reloaded",
		zap.String("config_path", cm.configPath),
		zap.Int("site_rules", len(cfg.SiteRules)))

	return cfg, nil
}

// GetConfig returns the active configuration. Callers must treat it as
// read-only.
func (cm *GatewayConfigManager) GetConfig() *GatewayConfig {
	return cm.current.Load()
}

// GetSiteRules returns the compiled site rules of the active config.
func (cm *GatewayConfigManager) GetSiteRules() []types.SiteRule {
	return cm.current.Load().SiteRules
}

// MatchSiteRule returns the first rule matching the canonical target,
// or nil. Evaluation is top to bottom, first match wins.
func (cm *GatewayConfigManager) MatchSiteRule(target string) *types.SiteRule {
	rules := cm.current.Load().SiteRules
	for i := range rules {
		if rules[i].Matches(target) {
			return &rules[i]
		}
	}
	return nil
}

// SetConfig replaces the active configuration (for testing).
func (cm *GatewayConfigManager) SetConfig(cfg *GatewayConfig) {
	cm.current.Store(cfg)
}

func compileSiteRules(cfg *GatewayConfig) error {
	for i := range cfg.SiteRules {
		if err := cfg.SiteRules[i].Compile(); err != nil {
			return fmt.Errorf("site_rules[%d]: %w", i, err)
		}
	}
	return nil
}

// Default values applied to absent config fields. Durations mirror the
// documented deployment ranges.
const (
	defaultListen           = ":8080"
	defaultReadTimeout      = 30 * time.Second
	defaultWriteTimeout     = 30 * time.Second
	defaultIdleTimeout      = 60 * time.Second
	defaultRequestTimeout   = 30 * time.Second
	defaultServerBodySize   = 1 << 20 // inbound request bodies are small JSON
	defaultCacheTTL         = 1 * time.Hour
	defaultCacheCapacity    = 1000
	defaultCompressMinSize  = 1 << 10
	defaultRateThreshold    = 100
	defaultRateWindow       = 1 * time.Hour
	defaultFetchTimeout     = 15 * time.Second
	defaultFetchBodySize    = 10 << 20
	defaultFetchRedirects   = 5
	defaultPolitenessRPS    = 4.0
	defaultPolitenessBurst  = 8
	defaultMaxKeywords      = 15
	defaultSummarySentences = 3
	defaultMetricsListen    = ":9090"
	defaultMetricsPath      = "/metrics"
	defaultMetricsNamespace = "readlens"
)

// defaultUserAgent is a browser-like UA; bare Go client strings get
// bot-blocked by many origins.
const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

func applyDefaults(cfg *GatewayConfig) {
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = defaultListen
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = types.Duration(defaultReadTimeout)
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = types.Duration(defaultWriteTimeout)
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = types.Duration(defaultIdleTimeout)
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = types.Duration(defaultRequestTimeout)
	}
	if cfg.Server.MaxBodySize == 0 {
		cfg.Server.MaxBodySize = defaultServerBodySize
	}

	if cfg.Cache.Enabled == nil {
		enabled := true
		cfg.Cache.Enabled = &enabled
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = types.Duration(defaultCacheTTL)
	}
	if cfg.Cache.Capacity == 0 {
		cfg.Cache.Capacity = defaultCacheCapacity
	}
	if cfg.Cache.Compression.Algorithm == "" {
		cfg.Cache.Compression.Algorithm = configtypes.CompressionSnappy
	}
	if cfg.Cache.Compression.MinSize == 0 {
		cfg.Cache.Compression.MinSize = defaultCompressMinSize
	}

	if cfg.RateLimit.Enabled == nil {
		enabled := true
		cfg.RateLimit.Enabled = &enabled
	}
	if cfg.RateLimit.Threshold == 0 {
		cfg.RateLimit.Threshold = defaultRateThreshold
	}
	if cfg.RateLimit.Window == 0 {
		cfg.RateLimit.Window = types.Duration(defaultRateWindow)
	}

	if cfg.Fetch.Timeout == 0 {
		cfg.Fetch.Timeout = types.Duration(defaultFetchTimeout)
	}
	if cfg.Fetch.MaxBodySize == 0 {
		cfg.Fetch.MaxBodySize = defaultFetchBodySize
	}
	if cfg.Fetch.MaxRedirects == 0 {
		cfg.Fetch.MaxRedirects = defaultFetchRedirects
	}
	if cfg.Fetch.UserAgent == "" {
		cfg.Fetch.UserAgent = defaultUserAgent
	}
	if cfg.Fetch.PolitenessRPS == 0 {
		cfg.Fetch.PolitenessRPS = defaultPolitenessRPS
	}
	if cfg.Fetch.PolitenessBurst == 0 {
		cfg.Fetch.PolitenessBurst = defaultPolitenessBurst
	}
	if cfg.Fetch.SSRFProtection == nil {
		enabled := true
		cfg.Fetch.SSRFProtection = &enabled
	}

	if cfg.Extract.DefaultMode == "" {
		cfg.Extract.DefaultMode = string(types.ModeReadability)
	}
	if cfg.Extract.MaxKeywords == 0 {
		cfg.Extract.MaxKeywords = defaultMaxKeywords
	}
	if cfg.Extract.SummarySentences == 0 {
		cfg.Extract.SummarySentences = defaultSummarySentences
	}

	// If both outputs are disabled (zero values), enable console by default
	if !cfg.Log.Console.Enabled && !cfg.Log.File.Enabled {
		cfg.Log.Console.Enabled = true
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = configtypes.LogLevelInfo
	}
	if cfg.Log.Console.Format == "" {
		cfg.Log.Console.Format = configtypes.LogFormatConsole
	}
	if cfg.Log.File.Format == "" {
		cfg.Log.File.Format = configtypes.LogFormatText
	}

	if cfg.Metrics.Listen == "" {
		cfg.Metrics.Listen = defaultMetricsListen
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = defaultMetricsPath
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = defaultMetricsNamespace
	}
}

// emitConfigWarnings emits runtime warnings (non-validation concerns)
func (cm *GatewayConfigManager) emitConfigWarnings(cfg *GatewayConfig) {
	if cfg.Redis == nil {
		cm.logger.Warn("No redis section configured - cache and rate limit state is per-process and lost on restart")
	}
	if len(cfg.Auth.APIKeys) == 0 {
		cm.logger.Info("No API keys configured - extraction endpoint is open")
	}
}

// formatValidationErrors converts validation errors to a single runtime error
func formatValidationErrors(errors []validate.ValidationError) error {
	if len(errors) == 0 {
		return fmt.Errorf("configuration validation failed")
	}

	firstErr := errors[0]
	var msg string
	if firstErr.Line > 0 {
		msg = fmt.Sprintf("%s line %d: %s", firstErr.File, firstErr.Line, firstErr.Message)
	} else {
		msg = fmt.Sprintf("%s: %s", firstErr.File, firstErr.Message)
	}

	if len(errors) > 1 {
		msg = fmt.Sprintf("%s (and %d more errors)", msg, len(errors)-1)
	}

	return fmt.Errorf("%s", msg)
}

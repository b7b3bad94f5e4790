package validate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/readlens/engine/internal/common/configtypes"
	"github.com/readlens/engine/internal/common/yamlutil"
	"github.com/readlens/engine/pkg/types"
)

const suspiciousDurationThreshold = 1 * time.Millisecond

var metricsNamespaceRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ValidationResult is the outcome of a full configuration check.
type ValidationResult struct {
	Valid      bool
	Errors     []ValidationError
	Warnings   []ValidationError
	ConfigPath string
}

// ValidateConfiguration validates the gateway configuration file without
// touching external services. It reports syntax errors, invalid values,
// and site rules that fail to compile.
func ValidateConfiguration(configPath string) (*ValidationResult, error) {
	result := &ValidationResult{
		Valid:      true,
		ConfigPath: configPath,
	}

	collector := NewErrorCollector()

	cfg, err := loadConfigForValidation(configPath, collector)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		// YAML syntax errors were collected, skip further validation
		result.Valid = false
		result.Errors = collector.Errors()
		return result, nil
	}

	if collector.HasErrors() {
		result.Valid = false
		result.Errors = collector.Errors()
	}
	result.Warnings = collector.Warnings()

	return result, nil
}

// loadConfigForValidation reads and strictly decodes the config, then runs
// every section validator. Returns nil config when YAML itself is broken.
func loadConfigForValidation(path string, collector *ErrorCollector) (*configtypes.GatewayConfig, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg configtypes.GatewayConfig
	if err := yamlutil.UnmarshalStrict(data, &cfg); err != nil {
		collector.Add(filepath.Base(path), 0, "YAML syntax error: %v", err)
		return nil, nil
	}

	lt, err := NewLineTracker(path)
	if err != nil {
		// Line tracking failed, continue without line numbers
		lt = nil
	}

	filename := filepath.Base(path)
	configDir := filepath.Dir(path)

	validateServerConfig(&cfg, filename, lt, collector)
	validateTLSConfig(&cfg, configDir, filename, collector)
	validateRedisConfig(&cfg, filename, lt, collector)
	validateCacheConfig(&cfg, filename, lt, collector)
	validateRateLimitConfig(&cfg, filename, collector)
	validateFetchConfig(&cfg, filename, lt, collector)
	validateExtractConfig(&cfg, filename, collector)
	validateAuthConfig(&cfg, filename, collector)
	validateLogConfig(&cfg, filename, collector)
	validateMetricsConfig(&cfg, filename, collector)
	validateClientIPConfig(&cfg, filename, collector)
	validateEventsConfig(&cfg, filename, collector)
	validateSiteRules(&cfg, filename, lt, collector)

	return &cfg, nil
}

// validateDurationUnit warns when a duration is suspiciously small,
// which usually means a missing unit suffix.
func validateDurationUnit(value time.Duration, fieldName string, filename string, collector *ErrorCollector) {
	if value > 0 && value < suspiciousDurationThreshold {
		collector.AddWarning(filename, 0,
			"%s value %s is suspiciously small. Did you forget the unit suffix (s, ms, m, h)?",
			fieldName, value)
	}
}

func validateServerConfig(cfg *configtypes.GatewayConfig, filename string, lt *LineTracker, collector *ErrorCollector) {
	lineNum := 0
	if lt != nil {
		lineNum = lt.GetServerLine("listen")
	}
	if cfg.Server.Listen != "" {
		if err := configtypes.ValidateListenAddress(cfg.Server.Listen); err != nil {
			collector.Add(filename, lineNum, "invalid server.listen: %v", err)
		}
	}

	timeouts := []struct {
		name  string
		value types.Duration
	}{
		{"server.read_timeout", cfg.Server.ReadTimeout},
		{"server.write_timeout", cfg.Server.WriteTimeout},
		{"server.idle_timeout", cfg.Server.IdleTimeout},
	}
	for _, t := range timeouts {
		if t.value < 0 {
			collector.Add(filename, 0, "%s cannot be negative, got %s", t.name, t.value)
		}
		validateDurationUnit(time.Duration(t.value), t.name, filename, collector)
	}

	if cfg.Server.MaxBodySize < 0 {
		collector.Add(filename, 0, "server.max_body_size cannot be negative, got %d", cfg.Server.MaxBodySize)
	}
}

func validateTLSConfig(cfg *configtypes.GatewayConfig, configDir string, filename string, collector *ErrorCollector) {
	tls := cfg.Server.TLS
	if !tls.Enabled {
		return
	}

	if tls.Listen == "" {
		collector.Add(filename, 0, "TLS enabled but tls.listen not specified")
	} else if err := configtypes.ValidateListenAddress(tls.Listen); err != nil {
		collector.Add(filename, 0, "invalid tls.listen: %v", err)
	}

	if tls.Listen != "" && cfg.Server.Listen != "" {
		tlsPort, err1 := configtypes.GetPortFromListen(tls.Listen)
		serverPort, err2 := configtypes.GetPortFromListen(cfg.Server.Listen)
		if err1 == nil && err2 == nil && tlsPort == serverPort {
			collector.Add(filename, 0, "tls.listen port (%d) must differ from server.listen port (%d)", tlsPort, serverPort)
		}
	}

	if tls.CertFile == "" {
		collector.Add(filename, 0, "TLS enabled but tls.cert_file not specified")
	} else {
		validateReadableFile(tls.CertFile, configDir, "tls.cert_file", filename, collector)
	}

	if tls.KeyFile == "" {
		collector.Add(filename, 0, "TLS enabled but tls.key_file not specified")
	} else {
		validateReadableFile(tls.KeyFile, configDir, "tls.key_file", filename, collector)
	}
}

// validateReadableFile checks that a path (relative to configDir unless
// absolute) exists and can be opened.
func validateReadableFile(path, configDir, fieldName, filename string, collector *ErrorCollector) {
	resolved := path
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(configDir, resolved)
	}

	f, err := os.Open(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			collector.Add(filename, 0, "%s not found: %s", fieldName, resolved)
		} else {
			collector.Add(filename, 0, "%s not readable: %s: %v", fieldName, resolved, err)
		}
		return
	}
	f.Close()
}

func validateRedisConfig(cfg *configtypes.GatewayConfig, filename string, lt *LineTracker, collector *ErrorCollector) {
	if cfg.Redis == nil {
		return
	}

	lineNum := 0
	if lt != nil {
		lineNum = lt.GetLine("redis.addr")
	}
	if cfg.Redis.Addr == "" {
		collector.Add(filename, lineNum, "redis.addr is required when the redis section is present")
	}
	if cfg.Redis.DB < 0 {
		collector.Add(filename, 0, "redis.db cannot be negative, got %d", cfg.Redis.DB)
	}
}

func validateCacheConfig(cfg *configtypes.GatewayConfig, filename string, lt *LineTracker, collector *ErrorCollector) {
	cache := cfg.Cache

	lineNum := 0
	if lt != nil {
		lineNum = lt.GetCacheLine("ttl")
	}
	if cache.TTL < 0 {
		collector.Add(filename, lineNum, "cache.ttl cannot be negative, got %s", cache.TTL)
	}
	validateDurationUnit(time.Duration(cache.TTL), "cache.ttl", filename, collector)

	if cache.Capacity < 0 {
		collector.Add(filename, 0, "cache.capacity cannot be negative, got %d", cache.Capacity)
	}

	switch cache.Compression.Algorithm {
	case "", configtypes.CompressionNone, configtypes.CompressionSnappy, configtypes.CompressionLZ4:
	default:
		collector.Add(filename, 0, "invalid cache.compression.algorithm '%s' (must be none, snappy, or lz4)",
			cache.Compression.Algorithm)
	}

	if cache.Compression.MinSize < 0 {
		collector.Add(filename, 0, "cache.compression.min_size cannot be negative, got %d", cache.Compression.MinSize)
	}

	// cache.enabled=true with ttl=0 means every entry is stale on arrival
	if cache.Enabled != nil && *cache.Enabled && cache.TTL == 0 {
		collector.AddWarning(filename, lineNum, "cache.enabled=true but ttl=0 (every lookup misses - all requests fetch from origin)")
	}
}

func validateRateLimitConfig(cfg *configtypes.GatewayConfig, filename string, collector *ErrorCollector) {
	rl := cfg.RateLimit

	if rl.Threshold < 0 {
		collector.Add(filename, 0, "rate_limit.threshold cannot be negative, got %d", rl.Threshold)
	}
	if rl.Window < 0 {
		collector.Add(filename, 0, "rate_limit.window cannot be negative, got %s", rl.Window)
	}
	validateDurationUnit(time.Duration(rl.Window), "rate_limit.window", filename, collector)
}

func validateFetchConfig(cfg *configtypes.GatewayConfig, filename string, lt *LineTracker, collector *ErrorCollector) {
	fetch := cfg.Fetch

	lineNum := 0
	if lt != nil {
		lineNum = lt.GetFetchLine("timeout")
	}
	if fetch.Timeout < 0 {
		collector.Add(filename, lineNum, "fetch.timeout cannot be negative, got %s", fetch.Timeout)
	}
	validateDurationUnit(time.Duration(fetch.Timeout), "fetch.timeout", filename, collector)

	if fetch.MaxBodySize < 0 {
		collector.Add(filename, 0, "fetch.max_body_size cannot be negative, got %d", fetch.MaxBodySize)
	}
	if fetch.MaxRedirects < 0 {
		collector.Add(filename, 0, "fetch.max_redirects cannot be negative, got %d", fetch.MaxRedirects)
	}
	if fetch.PolitenessRPS < 0 {
		collector.Add(filename, 0, "fetch.politeness_rps cannot be negative, got %g", fetch.PolitenessRPS)
	}
	if fetch.PolitenessBurst < 0 {
		collector.Add(filename, 0, "fetch.politeness_burst cannot be negative, got %d", fetch.PolitenessBurst)
	}
	if fetch.MaxConcurrent < 0 {
		collector.Add(filename, 0, "fetch.max_concurrent cannot be negative, got %d", fetch.MaxConcurrent)
	}
}

func validateExtractConfig(cfg *configtypes.GatewayConfig, filename string, collector *ErrorCollector) {
	extract := cfg.Extract

	if extract.DefaultMode != "" {
		if _, err := types.ParseMode(extract.DefaultMode); err != nil {
			collector.Add(filename, 0, "invalid extract.default_mode '%s' (must be readability, full, or selector)",
				extract.DefaultMode)
		} else if extract.DefaultMode == string(types.ModeSelector) {
			collector.Add(filename, 0, "extract.default_mode cannot be 'selector' (selector mode requires a per-request selector)")
		}
	}

	if extract.MaxKeywords < 0 {
		collector.Add(filename, 0, "extract.max_keywords cannot be negative, got %d", extract.MaxKeywords)
	}
	if extract.SummarySentences < 0 {
		collector.Add(filename, 0, "extract.summary_sentences cannot be negative, got %d", extract.SummarySentences)
	}

	for i, host := range extract.AllowedHosts {
		if strings.TrimSpace(host) == "" {
			collector.Add(filename, 0, "extract.allowed_hosts[%d] must not be empty", i)
		}
	}
}

func validateAuthConfig(cfg *configtypes.GatewayConfig, filename string, collector *ErrorCollector) {
	for i, key := range cfg.Auth.APIKeys {
		if strings.TrimSpace(key) == "" {
			collector.Add(filename, 0, "auth.api_keys[%d] must not be empty", i)
		}
	}
}

func validateLogConfig(cfg *configtypes.GatewayConfig, filename string, collector *ErrorCollector) {
	validLogLevels := map[string]bool{
		configtypes.LogLevelDebug:  true,
		configtypes.LogLevelInfo:   true,
		configtypes.LogLevelWarn:   true,
		configtypes.LogLevelError:  true,
		configtypes.LogLevelDPanic: true,
		configtypes.LogLevelPanic:  true,
		configtypes.LogLevelFatal:  true,
	}
	if cfg.Log.Level != "" && !validLogLevels[cfg.Log.Level] {
		collector.Add(filename, 0, "invalid log.level '%s' (must be debug, info, warn, error, dpanic, panic, or fatal)", cfg.Log.Level)
	}
	if cfg.Log.Console.Level != "" && !validLogLevels[cfg.Log.Console.Level] {
		collector.Add(filename, 0, "invalid log.console.level '%s' (must be debug, info, warn, error, dpanic, panic, or fatal)", cfg.Log.Console.Level)
	}
	if cfg.Log.File.Level != "" && !validLogLevels[cfg.Log.File.Level] {
		collector.Add(filename, 0, "invalid log.file.level '%s' (must be debug, info, warn, error, dpanic, panic, or fatal)", cfg.Log.File.Level)
	}

	validConsoleFormats := map[string]bool{
		configtypes.LogFormatJSON:    true,
		configtypes.LogFormatConsole: true,
	}
	if cfg.Log.Console.Enabled && cfg.Log.Console.Format != "" && !validConsoleFormats[cfg.Log.Console.Format] {
		collector.Add(filename, 0, "invalid log.console.format '%s' (must be json or console)", cfg.Log.Console.Format)
	}

	if cfg.Log.File.Enabled {
		if cfg.Log.File.Path == "" {
			collector.Add(filename, 0, "log.file.path must be specified when file logging is enabled")
		}

		validFileFormats := map[string]bool{
			configtypes.LogFormatJSON: true,
			configtypes.LogFormatText: true,
		}
		if cfg.Log.File.Format != "" && !validFileFormats[cfg.Log.File.Format] {
			collector.Add(filename, 0, "invalid log.file.format '%s' (must be json or text)", cfg.Log.File.Format)
		}

		rotation := cfg.Log.File.Rotation
		if rotation.MaxSize < 0 {
			collector.Add(filename, 0, "log.file.rotation.max_size must be >= 0, got %d", rotation.MaxSize)
		}
		if rotation.MaxAge < 0 {
			collector.Add(filename, 0, "log.file.rotation.max_age must be >= 0, got %d", rotation.MaxAge)
		}
		if rotation.MaxBackups < 0 {
			collector.Add(filename, 0, "log.file.rotation.max_backups must be >= 0, got %d", rotation.MaxBackups)
		}
	}
}

func validateMetricsConfig(cfg *configtypes.GatewayConfig, filename string, collector *ErrorCollector) {
	if cfg.Metrics.Enabled {
		if cfg.Metrics.Listen == "" {
			collector.Add(filename, 0, "metrics.listen is required when metrics enabled")
		} else if err := configtypes.ValidateListenAddress(cfg.Metrics.Listen); err != nil {
			collector.Add(filename, 0, "invalid metrics.listen: %v", err)
		}
	}

	// Metrics always run on their own port
	if cfg.Metrics.Enabled && cfg.Metrics.Listen != "" && cfg.Server.Listen != "" {
		metricsPort, err1 := configtypes.GetPortFromListen(cfg.Metrics.Listen)
		serverPort, err2 := configtypes.GetPortFromListen(cfg.Server.Listen)
		if err1 == nil && err2 == nil && metricsPort == serverPort {
			collector.Add(filename, 0, "metrics.listen port (%d) must differ from server.listen port (%d) when metrics enabled", metricsPort, serverPort)
		}
	}

	if cfg.Metrics.Path != "" && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		collector.Add(filename, 0, "invalid metrics.path '%s' (must start with /)", cfg.Metrics.Path)
	}

	if cfg.Metrics.Namespace != "" && !metricsNamespaceRe.MatchString(cfg.Metrics.Namespace) {
		collector.Add(filename, 0, "invalid metrics.namespace '%s' (must match [a-zA-Z_][a-zA-Z0-9_]*)", cfg.Metrics.Namespace)
	}
}

// isValidHTTPHeaderChar checks a character against RFC 7230 token rules.
func isValidHTTPHeaderChar(char rune) bool {
	return (char >= 'A' && char <= 'Z') ||
		(char >= 'a' && char <= 'z') ||
		(char >= '0' && char <= '9') ||
		char == '!' || char == '#' || char == '$' || char == '%' ||
		char == '&' || char == '\'' || char == '*' || char == '+' ||
		char == '-' || char == '.' || char == '^' || char == '_' ||
		char == '`' || char == '|' || char == '~'
}

// ValidateHTTPHeaderName validates a header name per RFC 7230.
func ValidateHTTPHeaderName(name string) error {
	if name == "" {
		return fmt.Errorf("header name cannot be empty")
	}

	for i, char := range name {
		if !isValidHTTPHeaderChar(char) {
			switch {
			case char == ' ':
				return fmt.Errorf("header name %q contains invalid space at position %d", name, i)
			case char == ':':
				return fmt.Errorf("header name %q contains invalid colon at position %d", name, i)
			case char < 32 || char == 127:
				return fmt.Errorf("header name %q contains invalid control character at position %d", name, i)
			default:
				return fmt.Errorf("header name %q contains invalid character %q at position %d", name, char, i)
			}
		}
	}

	return nil
}

func validateClientIPConfig(cfg *configtypes.GatewayConfig, filename string, collector *ErrorCollector) {
	if cfg.ClientIP == nil {
		return
	}

	for i, header := range cfg.ClientIP.Headers {
		if err := ValidateHTTPHeaderName(header); err != nil {
			collector.Add(filename, 0, "client_ip.headers[%d]: %v", i, err)
		}
	}
}

func validateEventsConfig(cfg *configtypes.GatewayConfig, filename string, collector *ErrorCollector) {
	if cfg.Events == nil || !cfg.Events.File.Enabled {
		return
	}

	file := cfg.Events.File

	if file.Path == "" {
		collector.Add(filename, 0, "events.file.path is required when event logging is enabled")
	}
	if file.Rotation.MaxSize < 0 {
		collector.Add(filename, 0, "events.file.rotation.max_size must be >= 0, got %d", file.Rotation.MaxSize)
	}
	if file.Rotation.MaxAge < 0 {
		collector.Add(filename, 0, "events.file.rotation.max_age must be >= 0, got %d", file.Rotation.MaxAge)
	}
	if file.Rotation.MaxBackups < 0 {
		collector.Add(filename, 0, "events.file.rotation.max_backups must be >= 0, got %d", file.Rotation.MaxBackups)
	}
}

func validateSiteRules(cfg *configtypes.GatewayConfig, filename string, lt *LineTracker, collector *ErrorCollector) {
	for i := range cfg.SiteRules {
		if err := cfg.SiteRules[i].Compile(); err != nil {
			lineNum := 0
			if lt != nil {
				lineNum = lt.GetSiteRuleLine(i)
			}
			collector.Add(filename, lineNum, "site_rules[%d]: %v", i, err)
		}
	}
}

package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/readlens/engine/internal/common/configtypes"
	"github.com/readlens/engine/pkg/types"
)

// ConfigBuilder builds a typed gateway config from TestEnvironmentConfig
type ConfigBuilder struct {
	testConfig *TestEnvironmentConfig
	redisAddr  string
}

// NewConfigBuilder creates a new config builder
func NewConfigBuilder(testConfig *TestEnvironmentConfig, redisAddr string) *ConfigBuilder {
	return &ConfigBuilder{
		testConfig: testConfig,
		redisAddr:  redisAddr,
	}
}

// BuildGatewayConfig builds the extraction gateway configuration
func (b *ConfigBuilder) BuildGatewayConfig() *configtypes.GatewayConfig {
	return &configtypes.GatewayConfig{
		Server: configtypes.ServerConfig{
			Listen:         fmt.Sprintf(":%d", b.testConfig.Gateway.Port),
			ReadTimeout:    types.Duration(30 * time.Second),
			WriteTimeout:   types.Duration(30 * time.Second),
			IdleTimeout:    types.Duration(60 * time.Second),
			RequestTimeout: types.Duration(b.parseDuration(b.testConfig.Gateway.RequestTimeout)),
			MaxBodySize:    1 << 20,
		},
		Redis: &configtypes.RedisConfig{
			Addr:     b.redisAddr,
			Password: b.testConfig.Redis.Password,
			DB:       b.testConfig.Redis.DB,
		},
		Cache: configtypes.CacheConfig{
			TTL:      types.Duration(1 * time.Hour),
			Capacity: 1000,
			Compression: configtypes.CompressionConfig{
				Algorithm: configtypes.CompressionSnappy, // Explicitly set compression for tests
				MinSize:   1024,
			},
		},
		RateLimit: configtypes.RateLimitConfig{
			Threshold: b.testConfig.RateLimit.Threshold,
			Window:    types.Duration(b.parseDuration(b.testConfig.RateLimit.Window)),
		},
		Fetch: configtypes.FetchConfig{
			Timeout:         types.Duration(5 * time.Second),
			MaxBodySize:     4 << 20,
			MaxRedirects:    3,
			UserAgent:       "ReadLens-Test/1.0",
			PolitenessRPS:   100,
			PolitenessBurst: 20,
			MaxConcurrent:   8,
		},
		Extract: configtypes.ExtractConfig{
			DefaultMode:      string(types.ModeReadability),
			MaxKeywords:      10,
			SummarySentences: 3,
		},
		Auth: configtypes.AuthConfig{
			APIKeys: []string{b.testConfig.Test.ValidAPIKey},
		},
		Log: configtypes.LogConfig{
			Level: b.testConfig.Gateway.Log.Level,
			Console: configtypes.ConsoleLogConfig{
				Enabled: true,
				Format:  b.testConfig.Gateway.Log.Format,
			},
		},
		Metrics: configtypes.MetricsConfig{
			Enabled:   true,
			Listen:    fmt.Sprintf(":%d", b.testConfig.Gateway.MetricsPort),
			Path:      "/metrics",
			Namespace: "readlens",
		},
		SiteRules: []types.SiteRule{
			{
				Match:  BlockedDomain + "/*",
				Action: types.SiteRuleBlock,
			},
			{
				Match:     ForcedModeDomain + "/*",
				Action:    types.SiteRuleAllow,
				ForceMode: string(types.ModeFull),
			},
		},
	}
}

// WriteTestConfig writes the gateway config to the temp directory and
// returns the config file path.
func (b *ConfigBuilder) WriteTestConfig(tempDir string) (string, error) {
	gwConfig := b.BuildGatewayConfig()

	data, err := yaml.Marshal(gwConfig)
	if err != nil {
		return "", fmt.Errorf("failed to marshal gateway config: %w", err)
	}

	gwPath := filepath.Join(tempDir, "gateway.yaml")
	if err := os.WriteFile(gwPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write gateway config: %w", err)
	}

	return gwPath, nil
}

// parseDuration is a helper that safely parses duration strings
func (b *ConfigBuilder) parseDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		// Return 0 for invalid durations - config validation will catch this
		return 0
	}
	return d
}

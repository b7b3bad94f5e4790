package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Domains referenced by the site rules in the generated gateway config.
// Specs that exercise rule behavior build target URLs from these.
const (
	BlockedDomain    = "blocked.example.com"
	ForcedModeDomain = "docs.example.com"
)

// TestEnvironmentConfig represents the unified test environment configuration
type TestEnvironmentConfig struct {
	Gateway struct {
		Port           int    `yaml:"port"`
		MetricsPort    int    `yaml:"metrics_port"`
		RequestTimeout string `yaml:"request_timeout"`

		Log struct {
			Level  string `yaml:"level"`
			Format string `yaml:"format"`
		} `yaml:"log"`
	} `yaml:"gateway"`

	Redis struct {
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	RateLimit struct {
		Threshold int    `yaml:"threshold"`
		Window    string `yaml:"window"`
	} `yaml:"rate_limit"`

	Test struct {
		ValidAPIKey        string `yaml:"valid_api_key"`
		InvalidAPIKey      string `yaml:"invalid_api_key"`
		StartupTimeout     string `yaml:"startup_timeout"`
		HealthCheckTimeout string `yaml:"health_check_timeout"`
		HTTPClientTimeout  string `yaml:"http_client_timeout"`
	} `yaml:"test"`
}

// LoadTestConfig loads the test configuration from test_config.yaml
func LoadTestConfig() (*TestEnvironmentConfig, error) {
	// Find test_config.yaml relative to the test module root
	configPath := filepath.Join("fixtures", "test_config.yaml")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read test config: %w", err)
	}

	var config TestEnvironmentConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse test config: %w", err)
	}

	return &config, nil
}

// GatewayBaseURL returns the extraction gateway base URL
func (c *TestEnvironmentConfig) GatewayBaseURL() string {
	return fmt.Sprintf("http://localhost:%d", c.Gateway.Port)
}

// MetricsBaseURL returns the metrics server base URL
func (c *TestEnvironmentConfig) MetricsBaseURL() string {
	return fmt.Sprintf("http://localhost:%d", c.Gateway.MetricsPort)
}

// StartupTimeout returns the startup timeout as duration
func (c *TestEnvironmentConfig) StartupTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Test.StartupTimeout)
	if d == 0 {
		return 30 * time.Second
	}
	return d
}

// HealthCheckTimeout returns the health check timeout as duration
func (c *TestEnvironmentConfig) HealthCheckTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Test.HealthCheckTimeout)
	if d == 0 {
		return 30 * time.Second
	}
	return d
}

// HTTPClientTimeout returns the HTTP client timeout as duration
func (c *TestEnvironmentConfig) HTTPClientTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Test.HTTPClientTimeout)
	if d == 0 {
		return 30 * time.Second
	}
	return d
}

// Package config loads and validates gateway configuration from YAML, with
// environment-variable expansion and optional hot reload.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/modelgate/modelgate/internal/observability"
	"github.com/modelgate/modelgate/internal/router"
)

// AdapterConfig configures one backend adapter instance.
type AdapterConfig struct {
	Name    string            `yaml:"name"`
	Type    string            `yaml:"type"`
	APIKey  string            `yaml:"api_key"`
	BaseURL string            `yaml:"base_url"`
	Models  []string          `yaml:"models"`
	Timeout time.Duration     `yaml:"timeout"`
	Headers map[string]string `yaml:"headers"`
	Weight  int               `yaml:"weight"`
	// RateLimit is requests per second; zero means unlimited.
	RateLimit float64 `yaml:"rate_limit"`
	Burst     int     `yaml:"burst"`
}

// PerformanceConfig tunes the connection pool, response cache, and request
// deduplication.
type PerformanceConfig struct {
	EnableConnectionPool    bool          `yaml:"enable_connection_pool"`
	MaxConnections          int           `yaml:"max_connections"`
	MaxKeepaliveConnections int           `yaml:"max_keepalive_connections"`
	ConnectionTimeout       time.Duration `yaml:"connection_timeout"`
	EnableCache             bool          `yaml:"enable_cache"`
	CacheTTL                time.Duration `yaml:"cache_ttl"`
	CacheMaxSize            int           `yaml:"cache_max_size"`
	EnableDeduplication     bool          `yaml:"enable_deduplication"`
}

// CostConfig controls spend tracking and budget alerts.
type CostConfig struct {
	Enabled        bool    `yaml:"enabled"`
	DailyBudget    float64 `yaml:"daily_budget"`
	MonthlyBudget  float64 `yaml:"monthly_budget"`
	AlertThreshold float64 `yaml:"alert_threshold"`
}

// MonitoringConfig controls metrics and tracing.
type MonitoringConfig struct {
	Enabled        bool    `yaml:"enabled"`
	TracingEnabled bool    `yaml:"tracing_enabled"`
	OTLPEndpoint   string  `yaml:"otlp_endpoint"`
	SampleRate     float64 `yaml:"sample_rate"`
}

// Config is the root configuration document.
type Config struct {
	DefaultModel           string                  `yaml:"default_model"`
	AutoDiscoverAdapters   bool                    `yaml:"auto_discover_adapters"`
	EnableRouting          bool                    `yaml:"enable_routing"`
	DefaultRoutingStrategy string                  `yaml:"default_routing_strategy"`
	MaxRetries             int                     `yaml:"max_retries"`
	Adapters               []AdapterConfig         `yaml:"adapters"`
	Performance            PerformanceConfig       `yaml:"performance"`
	Cost                   CostConfig              `yaml:"cost"`
	Monitoring             MonitoringConfig        `yaml:"monitoring"`
	Logging                observability.LogConfig `yaml:"logging"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		EnableRouting:          true,
		DefaultRoutingStrategy: router.StrategyBalanced,
		MaxRetries:             3,
		Performance: PerformanceConfig{
			EnableConnectionPool: true,
			MaxConnections:       100,
			ConnectionTimeout:    60 * time.Second,
			EnableCache:          true,
			CacheTTL:             5 * time.Minute,
			CacheMaxSize:         1000,
			EnableDeduplication:  true,
		},
		Cost: CostConfig{AlertThreshold: 0.8},
		Logging: observability.LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadFromFile reads, env-expands, parses, and validates a YAML config.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse parses a YAML document over the defaults. Environment references
// like ${OPENAI_API_KEY} are expanded before parsing.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validStrategies = map[string]bool{
	router.StrategyCostFirst:         true,
	router.StrategyPerformanceFirst:  true,
	router.StrategyAvailabilityFirst: true,
	router.StrategyBalanced:          true,
	router.StrategyManual:            true,
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.DefaultRoutingStrategy != "" && !validStrategies[c.DefaultRoutingStrategy] {
		return fmt.Errorf("unknown routing strategy %q", c.DefaultRoutingStrategy)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must not be negative")
	}
	if c.Cost.AlertThreshold < 0 || c.Cost.AlertThreshold > 1 {
		return fmt.Errorf("cost alert_threshold must be between 0 and 1")
	}

	seen := make(map[string]bool, len(c.Adapters))
	for i, a := range c.Adapters {
		if a.Name == "" {
			return fmt.Errorf("adapter %d: name is required", i)
		}
		if a.Type == "" {
			return fmt.Errorf("adapter %q: type is required", a.Name)
		}
		if seen[a.Name] {
			return fmt.Errorf("adapter %q: duplicate name", a.Name)
		}
		seen[a.Name] = true
	}
	return nil
}

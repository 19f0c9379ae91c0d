package modelgate

import (
	"github.com/modelgate/modelgate/adapters"
	"github.com/modelgate/modelgate/internal/config"
	"github.com/modelgate/modelgate/internal/cost"
	"github.com/modelgate/modelgate/internal/observability"
	"github.com/modelgate/modelgate/internal/pool"
	"github.com/modelgate/modelgate/pkg/adapter"
)

// NewFromConfigFile builds a client from a YAML configuration file.
// Options given here apply after the file, so they can override it.
func NewFromConfigFile(path string, opts ...Option) (*Client, error) {
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		return nil, err
	}
	return NewFromConfig(cfg, opts...)
}

// NewFromConfig builds a client from a parsed configuration document.
func NewFromConfig(cfg *config.Config, extra ...Option) (*Client, error) {
	opts := []Option{
		WithLogger(observability.NewLogger(cfg.Logging)),
		WithRouting(cfg.EnableRouting),
		WithMaxRetries(cfg.MaxRetries),
		WithMetrics(cfg.Monitoring.Enabled),
	}

	if cfg.DefaultModel != "" {
		opts = append(opts, WithDefaultModel(cfg.DefaultModel))
	}
	if cfg.DefaultRoutingStrategy != "" {
		opts = append(opts, WithRoutingStrategy(cfg.DefaultRoutingStrategy))
	}

	perf := cfg.Performance
	if perf.EnableConnectionPool {
		opts = append(opts, WithConnectionPool(pool.Options{
			MaxIdleConns:        perf.MaxConnections,
			MaxIdleConnsPerHost: perf.MaxKeepaliveConnections,
			RequestTimeout:      perf.ConnectionTimeout,
		}))
	} else {
		opts = append(opts, WithoutConnectionPool())
	}
	if perf.EnableCache {
		opts = append(opts, WithCache(perf.CacheTTL, perf.CacheMaxSize))
	} else {
		opts = append(opts, WithoutCache())
	}
	opts = append(opts, WithDeduplication(perf.EnableDeduplication))

	if cfg.Cost.Enabled {
		opts = append(opts, WithCostTracking(cost.Budget{
			Enabled:        true,
			DailyLimit:     cfg.Cost.DailyBudget,
			MonthlyLimit:   cfg.Cost.MonthlyBudget,
			AlertThreshold: cfg.Cost.AlertThreshold,
		}))
	}

	if cfg.Monitoring.TracingEnabled {
		tracing := observability.DefaultTracingConfig()
		tracing.Enabled = true
		if cfg.Monitoring.OTLPEndpoint != "" {
			tracing.Endpoint = cfg.Monitoring.OTLPEndpoint
		}
		if cfg.Monitoring.SampleRate > 0 {
			tracing.SampleRate = cfg.Monitoring.SampleRate
		}
		opts = append(opts, WithTracing(tracing))
	}

	configured := make(map[string]bool, len(cfg.Adapters))
	for _, acfg := range cfg.Adapters {
		configured[acfg.Type] = true
		opts = append(opts, WithAdapterConfig(adapter.Config{
			Name:    acfg.Name,
			Type:    acfg.Type,
			APIKey:  acfg.APIKey,
			BaseURL: acfg.BaseURL,
			Models:  acfg.Models,
			Timeout: acfg.Timeout,
			Headers: acfg.Headers,
			Weight:  acfg.Weight,
		}))
		if acfg.RateLimit > 0 {
			opts = append(opts, WithRateLimit(acfg.Name, acfg.RateLimit, acfg.Burst))
		}
	}

	// Auto-discovery fills in builtin adapters from their conventional API
	// key environment variables. Explicit config for a type wins.
	if cfg.AutoDiscoverAdapters {
		for _, acfg := range adapters.DiscoverFromEnv() {
			if configured[acfg.Type] {
				continue
			}
			opts = append(opts, WithAdapterConfig(acfg))
		}
	}

	opts = append(opts, extra...)
	return New(opts...)
}

// Config is the root YAML configuration document.
type Config = config.Config

// LoadConfig reads and validates a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	return config.LoadFromFile(path)
}

// ConfigManager loads a config file and hot-reloads it on change.
// Callbacks registered with OnChange run after each successful reload.
type ConfigManager = config.Manager

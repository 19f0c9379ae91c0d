package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelgate/modelgate/internal/router"
)

const sampleYAML = `
default_model: gpt-4o
enable_routing: true
default_routing_strategy: cost_first
max_retries: 2
adapters:
  - name: openai-primary
    type: openai
    api_key: sk-test
    base_url: https://api.openai.com/v1
    models: [gpt-4o, gpt-4o-mini]
    timeout: 30s
    weight: 3
  - name: qwen-backup
    type: qwen
    api_key: qw-test
performance:
  enable_cache: true
  cache_ttl: 2m
  cache_max_size: 500
  enable_deduplication: true
cost:
  enabled: true
  daily_budget: 10.5
  alert_threshold: 0.9
monitoring:
  enabled: true
  tracing_enabled: false
logging:
  level: debug
  format: json
`

func TestParseFullDocument(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o", cfg.DefaultModel)
	assert.Equal(t, router.StrategyCostFirst, cfg.DefaultRoutingStrategy)
	assert.Equal(t, 2, cfg.MaxRetries)

	require.Len(t, cfg.Adapters, 2)
	assert.Equal(t, "openai-primary", cfg.Adapters[0].Name)
	assert.Equal(t, 30*time.Second, cfg.Adapters[0].Timeout)
	assert.Equal(t, 3, cfg.Adapters[0].Weight)

	assert.Equal(t, 2*time.Minute, cfg.Performance.CacheTTL)
	assert.Equal(t, 500, cfg.Performance.CacheMaxSize)
	assert.InDelta(t, 10.5, cfg.Cost.DailyBudget, 1e-9)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte("default_model: gpt-4o\n"))
	require.NoError(t, err)

	assert.True(t, cfg.EnableRouting)
	assert.Equal(t, router.StrategyBalanced, cfg.DefaultRoutingStrategy)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.True(t, cfg.Performance.EnableCache)
}

func TestParseExpandsEnv(t *testing.T) {
	t.Setenv("TEST_GATEWAY_KEY", "sk-from-env")

	cfg, err := Parse([]byte(`
adapters:
  - name: openai
    type: openai
    api_key: ${TEST_GATEWAY_KEY}
`))
	require.NoError(t, err)
	assert.Equal(t, "sk-from-env", cfg.Adapters[0].APIKey)
}

func TestValidateRejectsBadStrategy(t *testing.T) {
	_, err := Parse([]byte("default_routing_strategy: fastest_ever\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "routing strategy")
}

func TestValidateRejectsDuplicateAdapterNames(t *testing.T) {
	_, err := Parse([]byte(`
adapters:
  - name: a
    type: openai
  - name: a
    type: qwen
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestValidateRejectsMissingType(t *testing.T) {
	_, err := Parse([]byte(`
adapters:
  - name: a
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "type is required")
}

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestManagerLoadsAndReloads(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "default_model: gpt-4o\n")

	m, err := NewManager(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", m.Get().DefaultModel)

	reloaded := make(chan *Config, 1)
	m.OnChange(func(c *Config) { reloaded <- c })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, m.Watch(ctx))

	require.NoError(t, os.WriteFile(path, []byte("default_model: qwen-turbo\n"), 0o600))

	select {
	case cfg := <-reloaded:
		assert.Equal(t, "qwen-turbo", cfg.DefaultModel)
		assert.Equal(t, "qwen-turbo", m.Get().DefaultModel)
	case <-time.After(5 * time.Second):
		t.Fatal("reload callback never fired")
	}
}

func TestManagerKeepsCurrentOnBrokenReload(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "default_model: gpt-4o\n")

	m, err := NewManager(path, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, m.Watch(ctx))

	require.NoError(t, os.WriteFile(path, []byte(":: not yaml ::"), 0o600))
	time.Sleep(time.Second)

	assert.Equal(t, "gpt-4o", m.Get().DefaultModel)
}

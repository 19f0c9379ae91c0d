package registry

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/goccy/go-json"

	"github.com/modelgate/modelgate/pkg/adapter"
	"github.com/modelgate/modelgate/pkg/errors"
)

// Factory builds adapter instances from (type, config) pairs and memoizes
// them for the process lifetime. Construction failures propagate and are
// never cached.
type Factory struct {
	registry *Registry
	clients  adapter.HTTPClientProvider

	mu        sync.Mutex
	instances map[string]adapter.Adapter
}

// NewFactory creates a factory backed by the given registry. clients may be
// nil, in which case adapters create their own HTTP clients.
func NewFactory(registry *Registry, clients adapter.HTTPClientProvider) *Factory {
	return &Factory{
		registry:  registry,
		clients:   clients,
		instances: make(map[string]adapter.Adapter),
	}
}

// Get returns the memoized adapter for (cfg.Type, cfg), constructing it on
// first use. Two configs with identical content share one instance.
func (f *Factory) Get(cfg adapter.Config) (adapter.Adapter, error) {
	if cfg.Type == "" {
		return nil, errors.NewConfigurationError(cfg.Name, "adapter type is required")
	}

	key, err := instanceKey(cfg)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if inst, ok := f.instances[key]; ok {
		return inst, nil
	}

	constructor, ok := f.registry.Constructor(cfg.Type)
	if !ok {
		return nil, errors.NewConfigurationError(cfg.Name,
			fmt.Sprintf("unknown adapter type %q", cfg.Type))
	}

	cfg.Clients = f.clients
	inst, err := constructor(cfg)
	if err != nil {
		return nil, err
	}
	f.instances[key] = inst
	return inst, nil
}

// Instances returns all adapters constructed so far.
func (f *Factory) Instances() []adapter.Adapter {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]adapter.Adapter, 0, len(f.instances))
	for _, inst := range f.instances {
		out = append(out, inst)
	}
	return out
}

// Reset drops all memoized instances.
func (f *Factory) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.instances = make(map[string]adapter.Adapter)
}

// instanceKey derives a stable key from the adapter type and a content hash
// of the config. goccy/go-json sorts map keys during marshal, so two configs
// with the same content always produce the same key.
func instanceKey(cfg adapter.Config) (string, error) {
	payload := struct {
		Name    string            `json:"name"`
		APIKey  string            `json:"api_key"`
		BaseURL string            `json:"base_url"`
		Models  []string          `json:"models"`
		Timeout int64             `json:"timeout"`
		Headers map[string]string `json:"headers"`
		Weight  int               `json:"weight"`
	}{
		Name:    cfg.Name,
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Models:  cfg.Models,
		Timeout: int64(cfg.Timeout),
		Headers: cfg.Headers,
		Weight:  cfg.Weight,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", errors.NewConfigurationError(cfg.Name, "config is not serializable")
	}
	sum := sha256.Sum256(data)
	return cfg.Type + ":" + hex.EncodeToString(sum[:]), nil
}

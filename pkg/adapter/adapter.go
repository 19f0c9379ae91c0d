// Package adapter defines the contract every backend provider binding must
// implement. The router, cache, and orchestrator treat all adapters
// polymorphically through this interface only.
package adapter

import (
	"context"
	"net/http"
	"time"

	"github.com/modelgate/modelgate/pkg/types"
)

// Adapter is one backend provider binding. Implementations must be safe for
// concurrent use.
type Adapter interface {
	// Name returns the unique adapter instance name (e.g. "openai-primary").
	Name() string

	// Provider returns the backend provider identifier (e.g. "openai").
	Provider() string

	// Call sends a chat completion request and returns the unified response.
	// Any transport or provider failure surfaces as an *errors.AdapterCallError.
	Call(ctx context.Context, req *types.ChatRequest) (*types.ChatResponse, error)

	// StreamCall produces a lazy, finite, non-restartable sequence of
	// partial-content chunks. Adapters without native streaming wrap Call
	// into a single-chunk stream via SingleChunkStream.
	StreamCall(ctx context.Context, req *types.ChatRequest) (Stream, error)

	// HealthCheck probes the backend. It returns a status value, never an
	// error, and must not block longer than a short bounded timeout.
	HealthCheck(ctx context.Context) types.HealthResult

	// Capability returns the adapter's advertised feature flags.
	Capability() types.Capability

	// CostPerKTokens returns the per-1000-token rates for a model, and
	// whether the adapter has pricing data for it.
	CostPerKTokens(model string) (types.CostRate, bool)
}

// Stream iterates over streaming response chunks.
type Stream interface {
	// Next returns the next chunk, or io.EOF when the stream is complete.
	Next() (*types.StreamChunk, error)

	// Close releases resources associated with the stream. Safe to call
	// more than once.
	Close() error
}

// HTTPClientProvider supplies pooled HTTP clients to adapters. The connection
// pool manager implements it; adapters that receive nil fall back to ad-hoc
// clients.
type HTTPClientProvider interface {
	GetClient(baseURL string, headers map[string]string) *http.Client
}

// Config is the construction-time configuration for one adapter instance.
type Config struct {
	Name    string            `yaml:"name" json:"name"`
	Type    string            `yaml:"type" json:"type"`
	APIKey  string            `yaml:"api_key" json:"-"`
	BaseURL string            `yaml:"base_url" json:"base_url"`
	Models  []string          `yaml:"models" json:"models"`
	Timeout time.Duration     `yaml:"timeout" json:"timeout"`
	Headers map[string]string `yaml:"headers" json:"headers"`
	Weight  int               `yaml:"weight" json:"weight"`

	// Clients is injected by the factory when the connection pool is
	// enabled. Nil means the adapter creates its own client.
	Clients HTTPClientProvider `yaml:"-" json:"-"`
}

// Factory constructs an adapter instance from configuration.
type Factory func(cfg Config) (Adapter, error)

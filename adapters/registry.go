// Package adapters wires the built-in adapter implementations into a
// registry.
package adapters

import (
	"os"

	"github.com/modelgate/modelgate/adapters/anthropic"
	"github.com/modelgate/modelgate/adapters/openai"
	"github.com/modelgate/modelgate/adapters/qwen"
	"github.com/modelgate/modelgate/internal/registry"
	"github.com/modelgate/modelgate/pkg/adapter"
)

// RegisterBuiltins registers every built-in adapter type on the given
// registry. Call it once at construction; there is no package-level
// registry.
func RegisterBuiltins(r *registry.Registry) {
	r.Register(openai.ProviderName, openai.New)
	r.Register(anthropic.ProviderName, anthropic.New)
	r.Register(qwen.ProviderName, qwen.New)
}

// keyEnvVars maps each built-in adapter type to the environment variable its
// provider conventionally uses for the API key.
var keyEnvVars = []struct {
	typ string
	env string
}{
	{openai.ProviderName, "OPENAI_API_KEY"},
	{anthropic.ProviderName, "ANTHROPIC_API_KEY"},
	{qwen.ProviderName, "DASHSCOPE_API_KEY"},
}

// DiscoverFromEnv returns a default-configured adapter config for every
// built-in type whose API key environment variable is set. The adapter name
// is the type name.
func DiscoverFromEnv() []adapter.Config {
	var out []adapter.Config
	for _, d := range keyEnvVars {
		key := os.Getenv(d.env)
		if key == "" {
			continue
		}
		out = append(out, adapter.Config{
			Name:   d.typ,
			Type:   d.typ,
			APIKey: key,
		})
	}
	return out
}

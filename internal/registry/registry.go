// Package registry maps adapter-type names to constructors and model names
// to adapter types, and memoizes constructed adapter instances.
package registry

import (
	"sort"
	"strings"
	"sync"

	"github.com/modelgate/modelgate/pkg/adapter"
)

// modelPrefixes is the fallback provider-prefix table consulted when no
// registered mapping resolves a model name.
var modelPrefixes = []struct {
	prefix string
	typ    string
}{
	{"gpt", "openai"},
	{"o1", "openai"},
	{"o3", "openai"},
	{"text-embedding", "openai"},
	{"claude", "anthropic"},
	{"qwen", "qwen"},
	{"qwq", "qwen"},
	{"deepseek", "deepseek"},
	{"gemini", "gemini"},
	{"glm", "zhipu"},
	{"moonshot", "moonshot"},
	{"kimi", "moonshot"},
}

// Registry holds the type→constructor and model→type mappings. It is safe
// for concurrent use. Construct one at process start and share it; there is
// no package-level singleton.
type Registry struct {
	mu           sync.RWMutex
	constructors map[string]adapter.Factory
	models       map[string]string
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		constructors: make(map[string]adapter.Factory),
		models:       make(map[string]string),
	}
}

// Register binds an adapter type name to its constructor. Later
// registrations for the same type replace earlier ones.
func (r *Registry) Register(typeName string, factory adapter.Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.constructors[typeName] = factory
}

// RegisterModel binds a model name to an adapter type for exact resolution.
func (r *Registry) RegisterModel(model, typeName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.models[model] = typeName
}

// Constructor returns the factory registered for a type.
func (r *Registry) Constructor(typeName string) (adapter.Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.constructors[typeName]
	return f, ok
}

// Types returns the registered adapter type names, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.constructors))
	for name := range r.constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResolveModel maps a model name to an adapter type. Resolution order:
// exact registered mapping, then fuzzy match against registered type names,
// then the provider-prefix table. Returns false when nothing matches; the
// caller falls back to its default adapter.
func (r *Registry) ResolveModel(model string) (string, bool) {
	if model == "" {
		return "", false
	}
	lower := strings.ToLower(model)

	r.mu.RLock()
	if typ, ok := r.models[model]; ok {
		r.mu.RUnlock()
		return typ, true
	}
	if typ, ok := r.models[lower]; ok {
		r.mu.RUnlock()
		return typ, true
	}

	// Fuzzy: a registered type name, minus any adapter suffix, appearing
	// inside the model name.
	for typ := range r.constructors {
		if stem := typeStem(typ); stem != "" && strings.Contains(lower, stem) {
			r.mu.RUnlock()
			return typ, true
		}
	}
	r.mu.RUnlock()

	for _, entry := range modelPrefixes {
		if strings.HasPrefix(lower, entry.prefix) {
			return entry.typ, true
		}
	}
	return "", false
}

func typeStem(typeName string) string {
	stem := strings.ToLower(typeName)
	stem = strings.TrimSuffix(stem, "-adapter")
	stem = strings.TrimSuffix(stem, "_adapter")
	return stem
}

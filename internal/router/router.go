// Package router implements adapter selection policy. Given a request and a
// candidate set it filters by cached health, applies a named strategy, and
// falls back to the load balancer when the strategy yields nothing.
package router

import (
	"context"
	"log/slog"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/modelgate/modelgate/internal/balancer"
	"github.com/modelgate/modelgate/internal/registry"
	"github.com/modelgate/modelgate/pkg/adapter"
	"github.com/modelgate/modelgate/pkg/errors"
	"github.com/modelgate/modelgate/pkg/types"
)

// Routing strategy names.
const (
	StrategyCostFirst         = "cost_first"
	StrategyPerformanceFirst  = "performance_first"
	StrategyAvailabilityFirst = "availability_first"
	StrategyBalanced          = "balanced"
	StrategyManual            = "manual"
)

const (
	healthCacheTTL      = 60 * time.Second
	healthCacheSweep    = 2 * time.Minute
	defaultProbeTimeout = 5 * time.Second
)

// Request carries one routing decision's inputs.
type Request struct {
	Model      string
	Capability types.CapabilityFlag
	// RequireHealthy drops cached-unhealthy candidates before the strategy
	// runs. Strategies still prefer healthy candidates either way.
	RequireHealthy bool
	Strategy       string
}

// Router selects one adapter per request. It is safe for concurrent use;
// concurrent probes for the same adapter may race on the health cache, which
// is fine because probes are idempotent and last writer wins.
type Router struct {
	strategy     string
	registry     *registry.Registry
	balancer     *balancer.Balancer
	health       *gocache.Cache
	probeTimeout time.Duration
	logger       *slog.Logger
}

// Options configures a Router.
type Options struct {
	// DefaultStrategy applies when the request names none.
	DefaultStrategy string
	// ProbeTimeout bounds each synchronous health probe.
	ProbeTimeout time.Duration
	Logger       *slog.Logger
}

// New creates a router. registry may be nil when the manual strategy is
// never used.
func New(reg *registry.Registry, lb *balancer.Balancer, opts Options) *Router {
	if opts.DefaultStrategy == "" {
		opts.DefaultStrategy = StrategyBalanced
	}
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = defaultProbeTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if lb == nil {
		lb = balancer.New(balancer.RoundRobin)
	}
	return &Router{
		strategy:     opts.DefaultStrategy,
		registry:     reg,
		balancer:     lb,
		health:       gocache.New(healthCacheTTL, healthCacheSweep),
		probeTimeout: opts.ProbeTimeout,
		logger:       opts.Logger,
	}
}

// Route picks one adapter from candidates. It returns a RoutingError only
// when the candidate set is empty or the capability filter eliminates every
// candidate; health problems degrade the selection but never empty it.
func (r *Router) Route(ctx context.Context, req Request, candidates []adapter.Adapter) (adapter.Adapter, error) {
	if len(candidates) == 0 {
		return nil, errors.NewRoutingError(req.Model, "no adapters registered")
	}

	if req.Capability != "" {
		candidates = filterByCapability(candidates, req.Capability)
		if len(candidates) == 0 {
			return nil, errors.NewRoutingError(req.Model,
				"no adapter provides capability "+string(req.Capability))
		}
	}

	strategy := req.Strategy
	if strategy == "" {
		strategy = r.strategy
	}

	if strategy == StrategyManual {
		selected := r.selectManual(req.Model, candidates)
		r.balancer.RecordRequest(selected.Name())
		return selected, nil
	}

	healthy := candidates
	if req.RequireHealthy {
		healthy = r.filterByHealth(ctx, candidates)
		if len(healthy) == 0 {
			// Availability over isolation: serve from the unfiltered list
			// rather than failing the request.
			r.logger.Warn("all candidates unhealthy, degrading to unfiltered list",
				slog.String("model", req.Model),
				slog.Int("candidates", len(candidates)))
			healthy = candidates
		}
	}

	var selected adapter.Adapter
	switch strategy {
	case StrategyCostFirst:
		selected = r.selectCostFirst(ctx, req.Model, healthy)
	case StrategyPerformanceFirst:
		selected = r.selectPerformanceFirst(ctx, healthy)
	case StrategyAvailabilityFirst:
		selected = r.selectAvailabilityFirst(ctx, healthy)
	case StrategyBalanced:
		selected = r.selectBalanced(ctx, req.Model, healthy)
	default:
		r.logger.Warn("unknown routing strategy, using load balancer",
			slog.String("strategy", strategy))
	}

	if selected == nil {
		selected = r.balancer.Select(healthy)
	}
	if selected == nil {
		return nil, errors.NewRoutingError(req.Model, "no candidate survived selection")
	}

	r.balancer.RecordRequest(selected.Name())
	return selected, nil
}

// CheckHealth probes one adapter and refreshes its cache entry.
func (r *Router) CheckHealth(ctx context.Context, a adapter.Adapter) types.HealthResult {
	return r.probe(ctx, a)
}

// ClearHealthCache drops all cached health verdicts. Exposed to operators
// so a recovered backend can be picked up before the TTL expires.
func (r *Router) ClearHealthCache() {
	r.health.Flush()
}

// cachedHealth returns the cached verdict, probing and refreshing when the
// entry is stale or absent.
func (r *Router) cachedHealth(ctx context.Context, a adapter.Adapter) types.HealthResult {
	if v, ok := r.health.Get(a.Name()); ok {
		return v.(types.HealthResult)
	}
	return r.probe(ctx, a)
}

// probe runs a live health check and writes the result into the cache.
// Probe failures become an unhealthy verdict, never an error.
func (r *Router) probe(ctx context.Context, a adapter.Adapter) types.HealthResult {
	probeCtx, cancel := context.WithTimeout(ctx, r.probeTimeout)
	defer cancel()

	result := a.HealthCheck(probeCtx)
	if result.CheckedAt.IsZero() {
		result.CheckedAt = time.Now()
	}
	r.health.Set(a.Name(), result, gocache.DefaultExpiration)

	if !result.Healthy() {
		r.logger.Debug("health probe not healthy",
			slog.String("adapter", a.Name()),
			slog.String("status", string(result.Status)),
			slog.String("message", result.Message))
	}
	return result
}

func (r *Router) filterByHealth(ctx context.Context, candidates []adapter.Adapter) []adapter.Adapter {
	out := make([]adapter.Adapter, 0, len(candidates))
	for _, c := range candidates {
		if r.cachedHealth(ctx, c).Healthy() {
			out = append(out, c)
		}
	}
	return out
}

func filterByCapability(candidates []adapter.Adapter, flag types.CapabilityFlag) []adapter.Adapter {
	out := make([]adapter.Adapter, 0, len(candidates))
	for _, c := range candidates {
		if c.Capability().Has(flag) {
			out = append(out, c)
		}
	}
	return out
}

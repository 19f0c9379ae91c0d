package router

import (
	"context"
	"strings"

	"github.com/modelgate/modelgate/pkg/adapter"
)

// selectCostFirst picks the healthy candidate with the lowest average
// per-1K-token rate for the model. Candidates without cost data are skipped
// unless none have it, in which case the first healthy candidate wins. Ties
// break by iteration order.
func (r *Router) selectCostFirst(ctx context.Context, model string, candidates []adapter.Adapter) adapter.Adapter {
	var (
		cheapest     adapter.Adapter
		cheapestAvg  float64
		firstHealthy adapter.Adapter
	)

	for _, c := range candidates {
		if !r.cachedHealth(ctx, c).Healthy() {
			continue
		}
		if firstHealthy == nil {
			firstHealthy = c
		}
		rate, ok := c.CostPerKTokens(model)
		if !ok {
			continue
		}
		if avg := rate.Avg(); cheapest == nil || avg < cheapestAvg {
			cheapest = c
			cheapestAvg = avg
		}
	}

	if cheapest != nil {
		return cheapest
	}
	return firstHealthy
}

// selectPerformanceFirst returns the first healthy candidate. No latency
// history is consulted.
func (r *Router) selectPerformanceFirst(ctx context.Context, candidates []adapter.Adapter) adapter.Adapter {
	for _, c := range candidates {
		if r.cachedHealth(ctx, c).Healthy() {
			return c
		}
	}
	return nil
}

// selectAvailabilityFirst live-probes candidates in order and returns the
// first healthy one. Failing that, it returns the candidate with the best
// non-healthy status seen, then the first candidate outright.
func (r *Router) selectAvailabilityFirst(ctx context.Context, candidates []adapter.Adapter) adapter.Adapter {
	var (
		best     adapter.Adapter
		bestRank = -1
	)

	for _, c := range candidates {
		result := r.probe(ctx, c)
		if result.Healthy() {
			return c
		}
		if rank := result.Status.Rank(); rank > bestRank {
			best = c
			bestRank = rank
		}
	}

	if best != nil {
		return best
	}
	if len(candidates) > 0 {
		return candidates[0]
	}
	return nil
}

// selectBalanced prefers a healthy candidate with cost data for the model,
// else the first healthy one.
func (r *Router) selectBalanced(ctx context.Context, model string, candidates []adapter.Adapter) adapter.Adapter {
	var firstHealthy adapter.Adapter

	for _, c := range candidates {
		if !r.cachedHealth(ctx, c).Healthy() {
			continue
		}
		if firstHealthy == nil {
			firstHealthy = c
		}
		if _, ok := c.CostPerKTokens(model); ok {
			return c
		}
	}
	return firstHealthy
}

// selectManual returns the candidate whose adapter resolves from the
// requested model, falling back to the first candidate.
func (r *Router) selectManual(model string, candidates []adapter.Adapter) adapter.Adapter {
	if r.registry != nil && model != "" {
		if typ, ok := r.registry.ResolveModel(model); ok {
			for _, c := range candidates {
				if matchesType(c, typ) {
					return c
				}
			}
		}
	}
	return candidates[0]
}

func matchesType(a adapter.Adapter, typ string) bool {
	stem := strings.ToLower(typ)
	stem = strings.TrimSuffix(stem, "-adapter")
	stem = strings.TrimSuffix(stem, "_adapter")
	return strings.EqualFold(a.Provider(), stem) ||
		strings.Contains(strings.ToLower(a.Name()), stem)
}

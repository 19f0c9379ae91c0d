package router

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelgate/modelgate/internal/balancer"
	"github.com/modelgate/modelgate/internal/registry"
	"github.com/modelgate/modelgate/pkg/adapter"
	"github.com/modelgate/modelgate/pkg/errors"
	"github.com/modelgate/modelgate/pkg/types"
)

type fakeAdapter struct {
	name       string
	provider   string
	status     types.HealthStatus
	rates      map[string]types.CostRate
	capability types.Capability
	probes     atomic.Int64
}

func (f *fakeAdapter) Name() string     { return f.name }
func (f *fakeAdapter) Provider() string { return f.provider }

func (f *fakeAdapter) Call(context.Context, *types.ChatRequest) (*types.ChatResponse, error) {
	return &types.ChatResponse{Content: "ok"}, nil
}

func (f *fakeAdapter) StreamCall(context.Context, *types.ChatRequest) (adapter.Stream, error) {
	return adapter.SingleChunkStream(&types.ChatResponse{Content: "ok"}), nil
}

func (f *fakeAdapter) HealthCheck(context.Context) types.HealthResult {
	f.probes.Add(1)
	return types.HealthResult{Status: f.status, CheckedAt: time.Now()}
}

func (f *fakeAdapter) Capability() types.Capability { return f.capability }

func (f *fakeAdapter) CostPerKTokens(model string) (types.CostRate, bool) {
	r, ok := f.rates[model]
	return r, ok
}

func healthy(name string) *fakeAdapter {
	return &fakeAdapter{name: name, provider: name, status: types.HealthHealthy}
}

func unhealthy(name string) *fakeAdapter {
	return &fakeAdapter{name: name, provider: name, status: types.HealthUnhealthy}
}

func newRouter(strategy string) *Router {
	return New(registry.New(), balancer.New(balancer.RoundRobin), Options{DefaultStrategy: strategy})
}

func TestRouteEmptyCandidates(t *testing.T) {
	r := newRouter(StrategyBalanced)

	_, err := r.Route(context.Background(), Request{Model: "gpt-4o"}, nil)
	require.Error(t, err)
	assert.True(t, errors.IsRoutingError(err))
}

func TestRouteAllUnhealthyStillSelects(t *testing.T) {
	r := newRouter(StrategyPerformanceFirst)
	candidates := []adapter.Adapter{unhealthy("a"), unhealthy("b")}

	selected, err := r.Route(context.Background(), Request{Model: "gpt-4o"}, candidates)
	require.NoError(t, err)
	assert.NotNil(t, selected)
}

func TestRouteCostFirstPicksCheaper(t *testing.T) {
	a := healthy("a")
	a.rates = map[string]types.CostRate{"gpt-4o": {InputPer1K: 0.001, OutputPer1K: 0.002}}
	b := healthy("b")
	b.rates = map[string]types.CostRate{"gpt-4o": {InputPer1K: 0.0005, OutputPer1K: 0.001}}

	r := newRouter(StrategyCostFirst)
	selected, err := r.Route(context.Background(), Request{Model: "gpt-4o"}, []adapter.Adapter{a, b})
	require.NoError(t, err)
	assert.Equal(t, "b", selected.Name())
}

func TestRouteCostFirstNoCostDataFallsToFirstHealthy(t *testing.T) {
	r := newRouter(StrategyCostFirst)
	candidates := []adapter.Adapter{healthy("a"), healthy("b")}

	selected, err := r.Route(context.Background(), Request{Model: "gpt-4o"}, candidates)
	require.NoError(t, err)
	assert.Equal(t, "a", selected.Name())
}

func TestRouteAvailabilityFirstSkipsUnhealthy(t *testing.T) {
	r := newRouter(StrategyAvailabilityFirst)
	candidates := []adapter.Adapter{unhealthy("a"), healthy("b")}

	selected, err := r.Route(context.Background(), Request{Model: "gpt-4o"}, candidates)
	require.NoError(t, err)
	assert.Equal(t, "b", selected.Name())
}

func TestRouteBalancedPrefersCostData(t *testing.T) {
	a := healthy("a")
	b := healthy("b")
	b.rates = map[string]types.CostRate{"gpt-4o": {InputPer1K: 0.001, OutputPer1K: 0.002}}

	r := newRouter(StrategyBalanced)
	selected, err := r.Route(context.Background(), Request{Model: "gpt-4o"}, []adapter.Adapter{a, b})
	require.NoError(t, err)
	assert.Equal(t, "b", selected.Name())
}

func TestRouteManualResolvesModel(t *testing.T) {
	reg := registry.New()
	r := New(reg, balancer.New(balancer.RoundRobin), Options{DefaultStrategy: StrategyManual})

	candidates := []adapter.Adapter{healthy("openai"), healthy("anthropic")}
	selected, err := r.Route(context.Background(), Request{Model: "claude-sonnet-4", Strategy: StrategyManual}, candidates)
	require.NoError(t, err)
	assert.Equal(t, "anthropic", selected.Name())
}

func TestRouteManualUnresolvedModelFirstCandidate(t *testing.T) {
	r := newRouter(StrategyManual)
	candidates := []adapter.Adapter{healthy("a"), healthy("b")}

	selected, err := r.Route(context.Background(), Request{Model: "mystery-9000", Strategy: StrategyManual}, candidates)
	require.NoError(t, err)
	assert.Equal(t, "a", selected.Name())
}

func TestRouteCapabilityFilter(t *testing.T) {
	a := healthy("a")
	b := healthy("b")
	b.capability = types.Capability{Vision: true}

	r := newRouter(StrategyBalanced)
	selected, err := r.Route(context.Background(),
		Request{Model: "gpt-4o", Capability: types.CapVision},
		[]adapter.Adapter{a, b})
	require.NoError(t, err)
	assert.Equal(t, "b", selected.Name())

	_, err = r.Route(context.Background(),
		Request{Model: "gpt-4o", Capability: types.CapReasoning},
		[]adapter.Adapter{a, b})
	require.Error(t, err)
	assert.True(t, errors.IsRoutingError(err))
}

func TestHealthCacheAvoidsRepeatedProbes(t *testing.T) {
	a := healthy("a")
	r := newRouter(StrategyPerformanceFirst)

	for i := 0; i < 5; i++ {
		_, err := r.Route(context.Background(), Request{Model: "gpt-4o"}, []adapter.Adapter{a})
		require.NoError(t, err)
	}
	assert.Equal(t, int64(1), a.probes.Load())
}

func TestClearHealthCacheForcesReprobe(t *testing.T) {
	a := healthy("a")
	r := newRouter(StrategyPerformanceFirst)
	ctx := context.Background()

	_, err := r.Route(ctx, Request{Model: "gpt-4o"}, []adapter.Adapter{a})
	require.NoError(t, err)
	r.ClearHealthCache()
	_, err = r.Route(ctx, Request{Model: "gpt-4o"}, []adapter.Adapter{a})
	require.NoError(t, err)

	assert.Equal(t, int64(2), a.probes.Load())
}

func TestRouteRecordsRequestCounts(t *testing.T) {
	lb := balancer.New(balancer.RoundRobin)
	r := New(registry.New(), lb, Options{DefaultStrategy: StrategyPerformanceFirst})

	a := healthy("a")
	_, err := r.Route(context.Background(), Request{Model: "gpt-4o"}, []adapter.Adapter{a})
	require.NoError(t, err)
	assert.Equal(t, 1, lb.RequestCount("a"))
}

func TestRouteRequireHealthyDropsUnhealthyBeforeBalancer(t *testing.T) {
	r := newRouter("made_up")
	candidates := []adapter.Adapter{unhealthy("a"), healthy("b")}

	// The balancer fallback itself never consults health, so the pre-filter
	// is what keeps the unhealthy candidate out.
	selected, err := r.Route(context.Background(), Request{Model: "gpt-4o"}, candidates)
	require.NoError(t, err)
	assert.Equal(t, "a", selected.Name())

	selected, err = r.Route(context.Background(),
		Request{Model: "gpt-4o", RequireHealthy: true}, candidates)
	require.NoError(t, err)
	assert.Equal(t, "b", selected.Name())
}

func TestRouteUnknownStrategyUsesBalancer(t *testing.T) {
	r := newRouter("made_up")
	candidates := []adapter.Adapter{healthy("a"), healthy("b")}

	first, err := r.Route(context.Background(), Request{Model: "gpt-4o"}, candidates)
	require.NoError(t, err)
	second, err := r.Route(context.Background(), Request{Model: "gpt-4o"}, candidates)
	require.NoError(t, err)

	assert.Equal(t, "a", first.Name())
	assert.Equal(t, "b", second.Name())
}

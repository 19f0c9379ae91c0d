package modelgate

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/modelgate/modelgate/adapters"
	"github.com/modelgate/modelgate/internal/balancer"
	"github.com/modelgate/modelgate/internal/cost"
	"github.com/modelgate/modelgate/internal/dedup"
	"github.com/modelgate/modelgate/internal/metrics"
	"github.com/modelgate/modelgate/internal/observability"
	"github.com/modelgate/modelgate/internal/pool"
	"github.com/modelgate/modelgate/internal/registry"
	"github.com/modelgate/modelgate/internal/reqcache"
	"github.com/modelgate/modelgate/internal/resilience"
	"github.com/modelgate/modelgate/internal/retry"
	"github.com/modelgate/modelgate/internal/router"
	"github.com/modelgate/modelgate/internal/trace"
	"github.com/modelgate/modelgate/pkg/adapter"
	"github.com/modelgate/modelgate/pkg/errors"
	"github.com/modelgate/modelgate/pkg/types"
)

// Client is the main entry point. It wires routing, caching, deduplication,
// retries, cost tracking, and observability around adapter calls.
//
// Client is safe for concurrent use by multiple goroutines.
type Client struct {
	logger      *slog.Logger
	cfg         *clientConfig
	registry    *registry.Registry
	factory     *registry.Factory
	pool        *pool.Manager
	balancer    *balancer.Balancer
	router      *router.Router
	cache       *reqcache.Cache
	dedup       *dedup.Deduplicator
	costs       *cost.Manager
	metrics     *metrics.Collector
	tracer      *trace.Tracer
	limiter     *resilience.RateLimiter
	traces      *observability.TracerProvider
	retryPolicy retry.Policy

	mu       sync.RWMutex
	adapters []adapter.Adapter
	byName   map[string]adapter.Adapter
}

// New creates a client with the given options.
//
// Example:
//
//	client, err := modelgate.New(
//		modelgate.WithAdapterConfig(adapter.Config{
//			Name:   "openai-primary",
//			Type:   "openai",
//			APIKey: os.Getenv("OPENAI_API_KEY"),
//		}),
//		modelgate.WithRoutingStrategy("cost_first"),
//	)
func New(opts ...Option) (*Client, error) {
	cfg := defaultClientConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	c := &Client{
		logger:      cfg.Logger,
		cfg:         cfg,
		registry:    registry.New(),
		byName:      make(map[string]adapter.Adapter),
		dedup:       dedup.New(),
		tracer:      trace.New(trace.Options{}),
		limiter:     resilience.NewRateLimiter(),
		retryPolicy: retry.Policy{
			MaxAttempts: cfg.MaxRetries,
			InitialWait: cfg.RetryInitial,
			MaxWait:     cfg.RetryMax,
			Base:        2,
		},
	}

	adapters.RegisterBuiltins(c.registry)

	// A nil *pool.Manager must not be handed to the factory as a non-nil
	// interface, or adapters would dereference it instead of building their
	// own clients.
	var clients adapter.HTTPClientProvider
	if cfg.EnableConnectionPool {
		c.pool = pool.NewManager(cfg.PoolOptions)
		clients = c.pool
	}
	c.factory = registry.NewFactory(c.registry, clients)

	c.balancer = balancer.New(cfg.BalancerStrategy)
	for name, weight := range cfg.Weights {
		c.balancer.SetWeight(name, weight)
	}
	c.router = router.New(c.registry, c.balancer, router.Options{
		DefaultStrategy: cfg.RoutingStrategy,
		ProbeTimeout:    cfg.ProbeTimeout,
		Logger:          cfg.Logger,
	})

	if cfg.EnableCache {
		c.cache = reqcache.New(cfg.CacheTTL, cfg.CacheMaxSize)
	}
	if cfg.CostEnabled {
		c.costs = cost.NewManager(cfg.CostBudget, cfg.OnCostAlert, cfg.Logger)
	}
	if cfg.MetricsEnabled {
		c.metrics = metrics.NewCollector(nil)
	}
	for name, limit := range cfg.RateLimits {
		c.limiter.SetLimit(name, limit.rps, limit.burst)
	}

	tp, err := observability.InitTracing(context.Background(), cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	c.traces = tp

	for _, acfg := range cfg.AdapterConfigs {
		inst, err := c.factory.Get(acfg)
		if err != nil {
			return nil, err
		}
		if err := c.AddAdapter(inst); err != nil {
			return nil, err
		}
		if acfg.Weight > 0 {
			c.balancer.SetWeight(inst.Name(), acfg.Weight)
		}
		for _, model := range acfg.Models {
			c.registry.RegisterModel(model, acfg.Type)
		}
	}
	for _, inst := range cfg.AdapterInstances {
		if err := c.AddAdapter(inst); err != nil {
			return nil, err
		}
	}

	c.logger.Info("modelgate client initialized",
		"adapters", len(c.adapters),
		"routing", cfg.EnableRouting,
		"strategy", cfg.RoutingStrategy,
		"cache_enabled", cfg.EnableCache,
		"dedup_enabled", cfg.EnableDeduplication,
	)
	return c, nil
}

// AddAdapter registers an adapter at runtime. Names must be unique.
func (c *Client) AddAdapter(a adapter.Adapter) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.byName[a.Name()]; exists {
		return errors.NewConfigurationError(a.Name(), "duplicate adapter name")
	}
	c.byName[a.Name()] = a
	c.adapters = append(c.adapters, a)
	return nil
}

// Adapters returns the names of all registered adapters in registration
// order.
func (c *Client) Adapters() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, len(c.adapters))
	for i, a := range c.adapters {
		names[i] = a.Name()
	}
	return names
}

func (c *Client) adapterList() []adapter.Adapter {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]adapter.Adapter, len(c.adapters))
	copy(out, c.adapters)
	return out
}

// Chat sends a chat request through the full pipeline: validation, cache,
// deduplication, routing, rate limiting, retries, and accounting.
func (c *Client) Chat(ctx context.Context, req *types.ChatRequest) (*types.ChatResponse, error) {
	if err := c.validate(req); err != nil {
		return nil, err
	}
	if req.Model == "" {
		req.Model = c.cfg.DefaultModel
	}

	span := c.tracer.StartTrace("chat")
	c.tracer.SetTag(span, "model", req.Model)

	var done func()
	if c.metrics != nil {
		done = c.metrics.RequestStarted()
		defer done()
	}

	resp, err := c.chatCached(ctx, span, req)

	c.tracer.EndSpan(span, err)
	return resp, err
}

// chatCached layers the response cache and deduplicator over the routed
// call. Cache failures bypass the cache rather than aborting the request.
func (c *Client) chatCached(ctx context.Context, span *trace.Span, req *types.ChatRequest) (*types.ChatResponse, error) {
	fetch := func() (any, error) {
		return c.execute(ctx, span, req)
	}

	var key string
	if c.cache != nil && !req.Stream {
		k, err := reqcache.Key(req)
		if err != nil {
			c.logger.Warn("cache key derivation failed, bypassing cache", "error", err)
		} else {
			key = k
			if v, ok := c.cache.Get(key); ok {
				if c.metrics != nil {
					c.metrics.RecordCacheHit()
				}
				c.tracer.SetTag(span, "cache", "hit")
				return v.(*types.ChatResponse), nil
			}
			if c.metrics != nil {
				c.metrics.RecordCacheMiss()
			}
		}
	}

	var (
		result any
		err    error
	)
	if c.cfg.EnableDeduplication {
		var shared bool
		result, shared, err = c.dedup.Deduplicate(req, fetch)
		if shared {
			if c.metrics != nil {
				c.metrics.RecordDedup()
			}
			c.tracer.SetTag(span, "dedup", "coalesced")
		}
	} else {
		result, err = fetch()
	}
	if err != nil {
		return nil, err
	}

	resp := result.(*types.ChatResponse)
	if key != "" {
		c.cache.Set(key, resp)
	}
	return resp, nil
}

// execute resolves an adapter and runs the call with retries, then feeds
// the accounting sinks.
func (c *Client) execute(ctx context.Context, parent *trace.Span, req *types.ChatRequest) (*types.ChatResponse, error) {
	selected, err := c.selectAdapter(ctx, req)
	if err != nil {
		return nil, err
	}

	span := c.tracer.StartSpan(parent, "adapter_call")
	c.tracer.SetTag(span, "adapter", selected.Name())

	if err := c.limiter.Wait(ctx, selected.Name()); err != nil {
		c.tracer.EndSpan(span, err)
		return nil, err
	}

	c.balancer.RecordConnection(selected.Name(), 1)
	defer c.balancer.RecordConnection(selected.Name(), -1)

	ctx, otelSpan := observability.StartCallSpan(ctx, c.traces.Tracer(), "chat",
		observability.CallSpanAttributes{
			Adapter:   selected.Name(),
			Model:     req.Model,
			MaxTokens: req.MaxTokens,
		})
	defer otelSpan.End()

	start := time.Now()
	attempts := 0
	var resp *types.ChatResponse
	err = retry.Do(ctx, c.retryPolicy, func(ctx context.Context) error {
		attempts++
		if attempts > 1 && c.metrics != nil {
			c.metrics.RecordRetry(selected.Name())
		}
		var callErr error
		resp, callErr = selected.Call(ctx, req)
		return callErr
	})
	duration := time.Since(start)

	c.tracer.EndSpan(span, err)

	if err != nil {
		observability.RecordError(otelSpan, err)
		if c.metrics != nil {
			c.metrics.RecordRequest(selected.Name(), req.Model, "error", duration)
		}
		c.logger.Error("chat request failed",
			"adapter", selected.Name(),
			"model", req.Model,
			"attempts", attempts,
			"error", err,
		)
		return nil, err
	}

	if resp != nil && resp.Usage != nil {
		observability.RecordUsage(otelSpan, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	}
	if c.metrics != nil {
		c.metrics.RecordRequest(selected.Name(), req.Model, "success", duration)
	}
	c.recordUsage(selected, req.Model, resp)
	return resp, nil
}

// recordUsage feeds the cost manager and token metrics after a successful
// call with usage data.
func (c *Client) recordUsage(a adapter.Adapter, model string, resp *types.ChatResponse) {
	if resp == nil || resp.Usage == nil {
		return
	}
	if c.metrics != nil {
		c.metrics.RecordTokens(a.Name(), model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	}
	if c.costs == nil {
		return
	}

	rate, ok := a.CostPerKTokens(model)
	if !ok {
		return
	}
	rec := c.costs.RecordUsage(a.Name(), model, *resp.Usage, rate)
	if c.metrics != nil {
		c.metrics.RecordCost(a.Name(), model, rec.TotalCost)
	}
}

// selectAdapter picks the adapter for a request, via the router when
// routing is enabled, else by direct model resolution.
func (c *Client) selectAdapter(ctx context.Context, req *types.ChatRequest) (adapter.Adapter, error) {
	candidates := c.adapterList()
	if len(candidates) == 0 {
		return nil, errors.NewRoutingError(req.Model, "no adapters registered")
	}

	if c.cfg.EnableRouting {
		return c.router.Route(ctx, router.Request{Model: req.Model, RequireHealthy: true}, candidates)
	}

	// Legacy direct resolution: model to type, then the first adapter of
	// that type, falling back to the first registered adapter.
	if typ, ok := c.registry.ResolveModel(req.Model); ok {
		for _, a := range candidates {
			if a.Provider() == typ {
				return a, nil
			}
		}
	}
	return candidates[0], nil
}

func (c *Client) validate(req *types.ChatRequest) error {
	if req == nil {
		return errors.NewValidationError("request", "request is nil")
	}
	if len(req.Messages) == 0 {
		return errors.NewValidationError("messages", "at least one message is required")
	}
	for i, m := range req.Messages {
		if m.Content == "" {
			return errors.NewValidationError(
				fmt.Sprintf("messages[%d].content", i), "content must not be empty")
		}
	}
	if req.Model == "" && c.cfg.DefaultModel == "" {
		return errors.NewValidationError("model", "model is required when no default is configured")
	}
	if req.Temperature != nil && (*req.Temperature < 0 || *req.Temperature > 2) {
		return errors.NewValidationError("temperature", "must be between 0 and 2")
	}
	if req.TopP != nil && (*req.TopP < 0 || *req.TopP > 1) {
		return errors.NewValidationError("top_p", "must be between 0 and 1")
	}
	if req.MaxTokens < 0 {
		return errors.NewValidationError("max_tokens", "must not be negative")
	}
	return nil
}

// CheckAdapterHealth probes one adapter by name, or all of them when name
// is empty. Probes never return errors, only verdicts.
func (c *Client) CheckAdapterHealth(ctx context.Context, name string) (map[string]types.HealthResult, error) {
	results := make(map[string]types.HealthResult)

	if name != "" {
		c.mu.RLock()
		a, ok := c.byName[name]
		c.mu.RUnlock()
		if !ok {
			return nil, errors.NewValidationError("adapter", fmt.Sprintf("unknown adapter %q", name))
		}
		results[name] = c.router.CheckHealth(ctx, a)
	} else {
		for _, a := range c.adapterList() {
			results[a.Name()] = c.router.CheckHealth(ctx, a)
		}
	}

	if c.metrics != nil {
		for n, r := range results {
			c.metrics.SetHealth(n, r.Healthy())
		}
	}
	return results, nil
}

// CostStatistics aggregates spend over the filtered window. Without cost
// tracking enabled it returns empty statistics.
func (c *Client) CostStatistics(filter cost.StatisticsFilter) cost.Statistics {
	if c.costs == nil {
		return cost.Statistics{
			ByAdapter: make(map[string]float64),
			ByModel:   make(map[string]float64),
		}
	}
	return c.costs.GetStatistics(filter)
}

// ClearCostRecords purges all accumulated cost records.
func (c *Client) ClearCostRecords() {
	if c.costs != nil {
		c.costs.Clear()
	}
}

// ClearHealthCache drops all cached health verdicts, forcing fresh probes.
func (c *Client) ClearHealthCache() {
	c.router.ClearHealthCache()
}

// ClearCache empties the response cache.
func (c *Client) ClearCache() {
	if c.cache != nil {
		c.cache.Clear()
	}
}

// MetricsRegistry returns the Prometheus registry holding the client's
// metrics, or nil when metrics are disabled. Serve it with promhttp to
// expose the gateway's instrumentation.
func (c *Client) MetricsRegistry() *prometheus.Registry {
	if c.metrics == nil {
		return nil
	}
	return c.metrics.Registry()
}

// TraceSpans returns the recorded spans for one trace.
func (c *Client) TraceSpans(traceID string) []*trace.Span {
	return c.tracer.Spans(traceID)
}

// RequestCounts returns per-adapter request totals.
func (c *Client) RequestCounts() map[string]int {
	return c.balancer.Stats()
}

// Close releases pooled connections and flushes tracing.
func (c *Client) Close() error {
	if c.pool != nil {
		c.pool.CloseAll()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return c.traces.Shutdown(ctx)
}

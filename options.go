package modelgate

import (
	"log/slog"
	"time"

	"github.com/modelgate/modelgate/internal/cost"
	"github.com/modelgate/modelgate/internal/observability"
	"github.com/modelgate/modelgate/internal/pool"
	"github.com/modelgate/modelgate/pkg/adapter"
)

// clientConfig collects everything New needs. Options mutate it.
type clientConfig struct {
	Logger *slog.Logger

	DefaultModel string

	AdapterConfigs   []adapter.Config
	AdapterInstances []adapter.Adapter

	EnableRouting   bool
	RoutingStrategy string
	ProbeTimeout    time.Duration

	BalancerStrategy string
	Weights          map[string]int

	MaxRetries   int
	RetryInitial time.Duration
	RetryMax     time.Duration

	EnableConnectionPool bool
	PoolOptions          pool.Options

	EnableCache  bool
	CacheTTL     time.Duration
	CacheMaxSize int

	EnableDeduplication bool

	CostBudget  cost.Budget
	CostEnabled bool
	OnCostAlert cost.AlertFunc

	MetricsEnabled bool

	Tracing observability.TracingConfig

	RateLimits map[string]rateLimit
}

type rateLimit struct {
	rps   float64
	burst int
}

func defaultClientConfig() *clientConfig {
	return &clientConfig{
		Logger:               slog.Default(),
		EnableRouting:        true,
		RoutingStrategy:      "balanced",
		BalancerStrategy:     "round_robin",
		Weights:              make(map[string]int),
		MaxRetries:           3,
		RetryInitial:         500 * time.Millisecond,
		RetryMax:             30 * time.Second,
		EnableConnectionPool: true,
		EnableCache:          true,
		CacheTTL:             5 * time.Minute,
		CacheMaxSize:         1000,
		EnableDeduplication:  true,
		MetricsEnabled:       true,
		Tracing:              observability.DefaultTracingConfig(),
		RateLimits:           make(map[string]rateLimit),
	}
}

// Option configures the client.
type Option func(*clientConfig)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *clientConfig) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// WithDefaultModel sets the model used when a request names none.
func WithDefaultModel(model string) Option {
	return func(c *clientConfig) { c.DefaultModel = model }
}

// WithAdapterConfig adds an adapter built from configuration. The type must
// be a registered adapter type.
func WithAdapterConfig(cfg adapter.Config) Option {
	return func(c *clientConfig) { c.AdapterConfigs = append(c.AdapterConfigs, cfg) }
}

// WithAdapter adds a pre-constructed adapter instance.
func WithAdapter(a adapter.Adapter) Option {
	return func(c *clientConfig) { c.AdapterInstances = append(c.AdapterInstances, a) }
}

// WithRouting toggles policy routing. When disabled, requests resolve
// adapters directly by model and registration order.
func WithRouting(enabled bool) Option {
	return func(c *clientConfig) { c.EnableRouting = enabled }
}

// WithRoutingStrategy sets the default routing strategy: cost_first,
// performance_first, availability_first, balanced, or manual.
func WithRoutingStrategy(strategy string) Option {
	return func(c *clientConfig) { c.RoutingStrategy = strategy }
}

// WithLoadBalancer sets the fallback balancing strategy: round_robin,
// weighted_round_robin, least_connections, or random.
func WithLoadBalancer(strategy string) Option {
	return func(c *clientConfig) { c.BalancerStrategy = strategy }
}

// WithAdapterWeight sets an adapter's weight for weighted round robin.
func WithAdapterWeight(name string, weight int) Option {
	return func(c *clientConfig) { c.Weights[name] = weight }
}

// WithMaxRetries sets the retry budget after the first attempt.
func WithMaxRetries(n int) Option {
	return func(c *clientConfig) { c.MaxRetries = n }
}

// WithRetryBackoff sets the initial and maximum backoff waits.
func WithRetryBackoff(initial, max time.Duration) Option {
	return func(c *clientConfig) {
		c.RetryInitial = initial
		c.RetryMax = max
	}
}

// WithConnectionPool enables the shared connection pool with the given
// bounds.
func WithConnectionPool(opts pool.Options) Option {
	return func(c *clientConfig) {
		c.EnableConnectionPool = true
		c.PoolOptions = opts
	}
}

// WithoutConnectionPool disables the shared pool; adapters then create
// ad-hoc clients.
func WithoutConnectionPool() Option {
	return func(c *clientConfig) { c.EnableConnectionPool = false }
}

// WithCache configures the response cache.
func WithCache(ttl time.Duration, maxSize int) Option {
	return func(c *clientConfig) {
		c.EnableCache = true
		c.CacheTTL = ttl
		c.CacheMaxSize = maxSize
	}
}

// WithoutCache disables response caching.
func WithoutCache() Option {
	return func(c *clientConfig) { c.EnableCache = false }
}

// WithDeduplication toggles in-flight request coalescing.
func WithDeduplication(enabled bool) Option {
	return func(c *clientConfig) { c.EnableDeduplication = enabled }
}

// WithCostTracking enables spend tracking with the given budget.
func WithCostTracking(budget cost.Budget) Option {
	return func(c *clientConfig) {
		c.CostEnabled = true
		c.CostBudget = budget
	}
}

// WithCostAlert registers the budget alert hook.
func WithCostAlert(fn cost.AlertFunc) Option {
	return func(c *clientConfig) { c.OnCostAlert = fn }
}

// WithMetrics toggles Prometheus instrumentation.
func WithMetrics(enabled bool) Option {
	return func(c *clientConfig) { c.MetricsEnabled = enabled }
}

// WithTracing configures OpenTelemetry export.
func WithTracing(cfg observability.TracingConfig) Option {
	return func(c *clientConfig) { c.Tracing = cfg }
}

// WithRateLimit caps an adapter's request rate in requests per second.
func WithRateLimit(adapterName string, rps float64, burst int) Option {
	return func(c *clientConfig) {
		c.RateLimits[adapterName] = rateLimit{rps: rps, burst: burst}
	}
}

// Package metrics exposes Prometheus instrumentation for the gateway.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "modelgate"

// Collector bundles the gateway's Prometheus metrics. Construct one per
// process with NewCollector and share it.
type Collector struct {
	registry        *prometheus.Registry
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	activeRequests  prometheus.Gauge
	activeStreams   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	dedupCoalesced  prometheus.Counter
	retriesTotal    *prometheus.CounterVec
	tokensTotal     *prometheus.CounterVec
	costTotal       *prometheus.CounterVec
	healthStatus    *prometheus.GaugeVec
}

// NewCollector registers all gateway metrics on the given registerer. A nil
// registerer gets a fresh private registry, exposed via Registry, so two
// collectors in one process never collide.
func NewCollector(reg prometheus.Registerer) *Collector {
	var owned *prometheus.Registry
	if reg == nil {
		owned = prometheus.NewRegistry()
		reg = owned
	}
	factory := promauto.With(reg)

	return &Collector{
		registry: owned,
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Chat requests by adapter, model and outcome.",
		}, []string{"adapter", "model", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Chat request latency by adapter and model.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"adapter", "model"}),
		activeRequests: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_requests",
			Help:      "Requests currently in flight.",
		}),
		activeStreams: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_streams",
			Help:      "Streaming responses currently open.",
		}),
		cacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Response cache hits.",
		}),
		cacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Response cache misses.",
		}),
		dedupCoalesced: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dedup_coalesced_total",
			Help:      "Requests coalesced onto an in-flight identical call.",
		}),
		retriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retries_total",
			Help:      "Retry attempts by adapter.",
		}, []string{"adapter"}),
		tokensTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_total",
			Help:      "Tokens consumed by adapter, model and direction.",
		}, []string{"adapter", "model", "direction"}),
		costTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cost_usd_total",
			Help:      "Accumulated spend in USD by adapter and model.",
		}, []string{"adapter", "model"}),
		healthStatus: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "adapter_healthy",
			Help:      "Adapter health verdict (1 healthy, 0 not).",
		}, []string{"adapter"}),
	}
}

// Registry returns the collector's private registry, or nil when the
// metrics were registered on a caller-supplied registerer.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// RecordRequest observes one completed request.
func (c *Collector) RecordRequest(adapter, model, status string, duration time.Duration) {
	c.requestsTotal.WithLabelValues(adapter, model, status).Inc()
	c.requestDuration.WithLabelValues(adapter, model).Observe(duration.Seconds())
}

// RequestStarted increments the in-flight gauge and returns a done callback
// that decrements it.
func (c *Collector) RequestStarted() func() {
	c.activeRequests.Inc()
	return c.activeRequests.Dec
}

// StreamOpened increments the open-stream gauge and returns a close
// callback.
func (c *Collector) StreamOpened() func() {
	c.activeStreams.Inc()
	return c.activeStreams.Dec
}

// RecordCacheHit counts a response cache hit.
func (c *Collector) RecordCacheHit() { c.cacheHits.Inc() }

// RecordCacheMiss counts a response cache miss.
func (c *Collector) RecordCacheMiss() { c.cacheMisses.Inc() }

// RecordDedup counts a request coalesced onto an in-flight call.
func (c *Collector) RecordDedup() { c.dedupCoalesced.Inc() }

// RecordRetry counts one retry attempt for an adapter.
func (c *Collector) RecordRetry(adapter string) {
	c.retriesTotal.WithLabelValues(adapter).Inc()
}

// RecordTokens accounts token usage in both directions.
func (c *Collector) RecordTokens(adapter, model string, prompt, completion int) {
	c.tokensTotal.WithLabelValues(adapter, model, "prompt").Add(float64(prompt))
	c.tokensTotal.WithLabelValues(adapter, model, "completion").Add(float64(completion))
}

// RecordCost accumulates spend for an adapter/model pair.
func (c *Collector) RecordCost(adapter, model string, usd float64) {
	c.costTotal.WithLabelValues(adapter, model).Add(usd)
}

// SetHealth publishes an adapter's health verdict.
func (c *Collector) SetHealth(adapter string, healthy bool) {
	v := 0.0
	if healthy {
		v = 1
	}
	c.healthStatus.WithLabelValues(adapter).Set(v)
}

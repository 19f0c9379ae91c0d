// Package balancer implements stateless selection algorithms over a
// candidate adapter list. The router falls back to it when no strategy
// produces a selection.
package balancer

import (
	"math/rand"
	"sync"

	"github.com/modelgate/modelgate/pkg/adapter"
)

// Strategy names accepted by New.
const (
	RoundRobin         = "round_robin"
	WeightedRoundRobin = "weighted_round_robin"
	LeastConnections   = "least_connections"
	Random             = "random"
)

// Balancer selects one adapter from a candidate list. All selection state
// lives in one mutex-guarded bag.
type Balancer struct {
	strategy string

	mu            sync.Mutex
	rrIndex       int
	currentWeight int
	weights       map[string]int
	connections   map[string]int
	requestCounts map[string]int
}

// New creates a balancer with the given strategy. Unknown strategies behave
// as round robin.
func New(strategy string) *Balancer {
	return &Balancer{
		strategy:      strategy,
		weights:       make(map[string]int),
		connections:   make(map[string]int),
		requestCounts: make(map[string]int),
	}
}

// SetWeight configures the weight used by weighted round robin. Weights of
// zero or below are ignored at selection time.
func (b *Balancer) SetWeight(name string, weight int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.weights[name] = weight
}

// Select picks one candidate, or nil when the list is empty. An empty list
// is not an error; the caller decides how to degrade.
func (b *Balancer) Select(candidates []adapter.Adapter) adapter.Adapter {
	if len(candidates) == 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.strategy {
	case WeightedRoundRobin:
		return b.selectWeighted(candidates)
	case LeastConnections:
		return b.selectLeastConnections(candidates)
	case Random:
		return candidates[rand.Intn(len(candidates))]
	default:
		return b.selectRoundRobin(candidates)
	}
}

// selectRoundRobin returns the candidate at the current index, then
// advances.
func (b *Balancer) selectRoundRobin(candidates []adapter.Adapter) adapter.Adapter {
	idx := b.rrIndex % len(candidates)
	b.rrIndex = (idx + 1) % len(candidates)
	return candidates[idx]
}

func (b *Balancer) selectWeighted(candidates []adapter.Adapter) adapter.Adapter {
	total := 0
	for _, c := range candidates {
		if w := b.weights[c.Name()]; w > 0 {
			total += w
		}
	}
	if total == 0 {
		return b.selectRoundRobin(candidates)
	}

	// Walk candidates decrementing a rolling counter until it falls below
	// a candidate's weight.
	b.currentWeight = (b.currentWeight + 1) % total
	remaining := b.currentWeight
	for _, c := range candidates {
		w := b.weights[c.Name()]
		if w <= 0 {
			continue
		}
		if remaining < w {
			return c
		}
		remaining -= w
	}
	return candidates[0]
}

func (b *Balancer) selectLeastConnections(candidates []adapter.Adapter) adapter.Adapter {
	best := candidates[0]
	bestCount := b.connections[best.Name()]
	for _, c := range candidates[1:] {
		if n := b.connections[c.Name()]; n < bestCount {
			best = c
			bestCount = n
		}
	}
	return best
}

// RecordRequest increments the per-adapter request counter.
func (b *Balancer) RecordRequest(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requestCounts[name]++
}

// RecordConnection adjusts the per-adapter open-connection counter by
// delta. The counter never goes below zero.
func (b *Balancer) RecordConnection(name string, delta int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.connections[name] + delta
	if n < 0 {
		n = 0
	}
	b.connections[name] = n
}

// RequestCount returns the recorded request total for one adapter.
func (b *Balancer) RequestCount(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.requestCounts[name]
}

// Stats returns a copy of the per-adapter request counts.
func (b *Balancer) Stats() map[string]int {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make(map[string]int, len(b.requestCounts))
	for name, n := range b.requestCounts {
		out[name] = n
	}
	return out
}

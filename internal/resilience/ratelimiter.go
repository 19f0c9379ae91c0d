// Package resilience provides request shaping around adapter calls.
package resilience

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter enforces per-adapter request rates. Adapters without a
// configured limit pass through untouched.
type RateLimiter struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
}

// NewRateLimiter creates an empty limiter set.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{limiters: make(map[string]*rate.Limiter)}
}

// SetLimit configures an adapter's rate in requests per second with the
// given burst. A non-positive rps removes the limit.
func (rl *RateLimiter) SetLimit(adapter string, rps float64, burst int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if rps <= 0 {
		delete(rl.limiters, adapter)
		return
	}
	if burst <= 0 {
		burst = 1
	}
	rl.limiters[adapter] = rate.NewLimiter(rate.Limit(rps), burst)
}

// Wait blocks until the adapter's limiter admits one request or the context
// ends. Unlimited adapters return immediately.
func (rl *RateLimiter) Wait(ctx context.Context, adapter string) error {
	rl.mu.RLock()
	lim := rl.limiters[adapter]
	rl.mu.RUnlock()

	if lim == nil {
		return nil
	}
	return lim.Wait(ctx)
}

// Allow reports whether one request would be admitted right now without
// consuming the caller's time.
func (rl *RateLimiter) Allow(adapter string) bool {
	rl.mu.RLock()
	lim := rl.limiters[adapter]
	rl.mu.RUnlock()

	if lim == nil {
		return true
	}
	return lim.Allow()
}

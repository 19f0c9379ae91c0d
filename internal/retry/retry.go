// Package retry wraps adapter calls with error classification and
// exponential backoff.
package retry

import (
	"context"
	stderrors "errors"
	"math"
	"time"

	"github.com/modelgate/modelgate/pkg/errors"
)

// Policy controls the backoff schedule.
type Policy struct {
	// MaxAttempts is the number of retries after the first attempt, so a
	// call runs at most MaxAttempts+1 times.
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	// Base is the exponential growth factor. Values below 1 are treated
	// as the default.
	Base float64
}

// DefaultPolicy matches the orchestrator's defaults.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		InitialWait: 500 * time.Millisecond,
		MaxWait:     30 * time.Second,
		Base:        2,
	}
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts < 0 {
		p.MaxAttempts = 0
	}
	if p.InitialWait <= 0 {
		p.InitialWait = 500 * time.Millisecond
	}
	if p.MaxWait <= 0 {
		p.MaxWait = 30 * time.Second
	}
	if p.Base < 1 {
		p.Base = 2
	}
	return p
}

// wait computes the sleep before retry number attempt (zero-based).
func (p Policy) wait(attempt int) time.Duration {
	d := time.Duration(float64(p.InitialWait) * math.Pow(p.Base, float64(attempt)))
	if d > p.MaxWait || d <= 0 {
		d = p.MaxWait
	}
	return d
}

// Do runs fn with the given policy. Retryable failures sleep and retry
// until attempts are exhausted; non-retryable failures and context
// cancellation surface immediately with no further sleep.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	p = p.withDefaults()

	var lastErr error
	for attempt := 0; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !IsRetryable(lastErr) || attempt == p.MaxAttempts {
			return lastErr
		}

		select {
		case <-time.After(p.wait(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}

// IsRetryable classifies an error as transient or permanent. Context
// cancellation is never retryable. Adapter call errors carry their own
// retryability, derived from the provider's status code. Network timeouts
// and connection-level failures are retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var callErr *errors.AdapterCallError
	if stderrors.As(err, &callErr) {
		return callErr.Retryable
	}

	return errors.IsTransientNetwork(err)
}

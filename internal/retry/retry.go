// Package retry is the single retry policy shared by every upstream call:
// AI-answer probes, reachability checks and search queries.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/AI-Template-SDK/senso-geo/internal/config"
)

// Policy retries an operation with capped exponential backoff and jitter.
// Only errors accepted by Retryable are retried; everything else is returned
// after the first attempt.
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Jitter     float64
	Retryable  func(error) bool
	// OnRetry is called before each wait with the failed attempt number (1-based)
	OnRetry func(err error, attempt int, wait time.Duration)
}

// FromConfig builds a policy from the shared retry settings
func FromConfig(c config.RetryConfig, retryable func(error) bool) Policy {
	return Policy{
		MaxRetries: c.MaxRetries,
		BaseDelay:  c.BaseDelay,
		MaxDelay:   c.MaxDelay,
		Jitter:     c.Jitter,
		Retryable:  retryable,
	}
}

// WithRetries returns a copy of p with a different retry cap
func (p Policy) WithRetries(n int) Policy {
	p.MaxRetries = n
	return p
}

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.BaseDelay
	if b.InitialInterval <= 0 {
		b.InitialInterval = 100 * time.Millisecond
	}
	b.Multiplier = 2
	b.RandomizationFactor = p.Jitter
	if p.MaxDelay > 0 {
		b.MaxInterval = p.MaxDelay
	}
	b.MaxElapsedTime = 0
	b.Reset()

	retries := p.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx)
}

// Do runs op until it succeeds, returns a non-retryable error, exhausts the
// retry budget or ctx is done. It also reports how many attempts were made.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, int, error) {
	attempts := 0
	operation := func() (T, error) {
		attempts++
		v, err := op(ctx)
		if err != nil && p.Retryable != nil && !p.Retryable(err) {
			return v, backoff.Permanent(err)
		}
		if err != nil && p.Retryable == nil {
			return v, backoff.Permanent(err)
		}
		return v, err
	}
	notify := func(err error, wait time.Duration) {
		if p.OnRetry != nil {
			p.OnRetry(err, attempts, wait)
		}
	}

	v, err := backoff.RetryNotifyWithData(operation, p.backOff(ctx), notify)
	return v, attempts, err
}

// Run is Do for operations without a result value
func Run(ctx context.Context, p Policy, op func(ctx context.Context) error) (int, error) {
	_, attempts, err := Do(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return attempts, err
}

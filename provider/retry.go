package provider

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

// RetryPolicy configures bounded exponential backoff for provider calls.
// Retries are local to a single step; there is no cross-execution retry.
type RetryPolicy struct {
	MaxRetries   int           // additional attempts after the first (0 = no retry)
	InitialDelay time.Duration // delay before the first retry
	MaxDelay     time.Duration // backoff ceiling
	Multiplier   float64       // exponential growth factor
	Jitter       bool          // randomize delays to avoid thundering herds

	// Budget, when set, is consulted before retrying a timeout fault: a
	// timeout is retried only while remaining budget allows another full
	// per-call attempt.
	Budget func() time.Duration

	// OnRetry is invoked before each sleep, for logging.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultRetryPolicy returns the baseline policy for LLM API calls.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:   3,
		InitialDelay: time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

// delay computes the backoff for the given 1-based retry attempt.
func (p RetryPolicy) delay(attempt int) time.Duration {
	d := float64(p.InitialDelay) * math.Pow(p.Multiplier, float64(attempt-1))
	if max := float64(p.MaxDelay); d > max {
		d = max
	}
	if p.Jitter {
		// Full jitter in [d/2, d).
		d = d/2 + rand.Float64()*d/2
	}
	return time.Duration(d)
}

// retryable decides whether a fault warrants another attempt under this
// policy. Transport and vendor rate-limit faults always qualify; timeouts
// only while the remaining budget allows.
func (p RetryPolicy) retryable(err error) bool {
	switch KindOf(err) {
	case KindTransport, KindRateLimited:
		return true
	case KindTimeout:
		return p.Budget != nil && p.Budget() > 0
	default:
		return false
	}
}

// Do invokes fn with bounded retries, sleeping with exponential backoff
// between attempts and honoring ctx cancellation during sleeps. The last
// error is returned when attempts are exhausted.
func (p RetryPolicy) Do(ctx context.Context, fn func() (*Response, error)) (*Response, error) {
	var lastErr error
	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if attempt > 0 {
			d := p.delay(attempt)
			if p.OnRetry != nil {
				p.OnRetry(attempt, lastErr, d)
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(d):
			}
		}

		resp, err := fn()
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !p.retryable(err) {
			return nil, err
		}
	}
	return nil, lastErr
}

package llm

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"

	"github.com/chainguard-dev/clog"
)

// RetryProvider retries transient failures with jittered exponential
// backoff. It never sleeps past the context deadline: when the next wait
// would overrun the grading timeout it gives up with the last provider
// error. With MaxAttempts of 1 it is a pass-through.
type RetryProvider struct {
	inner  Provider
	config RetryConfig
}

// WithRetry wraps p with retry logic.
func WithRetry(p Provider, cfg RetryConfig) Provider {
	return &RetryProvider{inner: p, config: cfg}
}

func (r *RetryProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	attempts := max(r.config.MaxAttempts, 1)
	envelopeRetried := false

	var lastErr error
	for attempt := range attempts {
		resp, err := r.inner.Generate(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !r.retryable(err, &envelopeRetried) || attempt == attempts-1 {
			return nil, err
		}

		wait := r.backoff(attempt, err)
		log := clog.FromContext(ctx).With("purpose", PurposeFrom(ctx)).
			With("attempt", attempt+1).
			With("max_attempts", attempts)
		if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < wait {
			log.Warnf("model call failed with no time left to retry: %v", err)
			return nil, err
		}
		log.With("backoff", wait).Warnf("model call failed, retrying: %v", err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil, lastErr
}

func (r *RetryProvider) ModelID() string {
	return r.inner.ModelID()
}

// retryable allows one extra attempt for an unusable vendor envelope and
// otherwise defers to Transient.
func (r *RetryProvider) retryable(err error, envelopeRetried *bool) bool {
	var invalid *ErrInvalidResponse
	if errors.As(err, &invalid) && invalid.Content == nil {
		if *envelopeRetried {
			return false
		}
		*envelopeRetried = true
		return true
	}
	return Transient(err)
}

// backoff is the wait before attempt+1, honouring a vendor Retry-After.
func (r *RetryProvider) backoff(attempt int, err error) time.Duration {
	var rl *ErrRateLimit
	if errors.As(err, &rl) && rl.RetryAfter > 0 {
		return rl.RetryAfter
	}

	wait := float64(r.config.InitialWait) * math.Pow(r.config.Multiplier, float64(attempt))
	wait = math.Min(wait, float64(r.config.MaxWait))
	wait += wait * 0.2 * (2*rand.Float64() - 1) // ±20% jitter
	return time.Duration(math.Max(wait, 0))
}

package client

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// RetryPolicy bounds how often a retryable operation is attempted.
// It holds no per-call state: every Execute starts fresh counters.
type RetryPolicy struct {
	// MaxRetries is the maximum number of attempts, including the first one.
	// Values <= 0 mean a single attempt.
	MaxRetries int

	// InitialDelay is the backoff before the second attempt; it doubles after
	// every retryable failure. No jitter is applied: the shared rate limiter
	// already bounds aggregate load.
	InitialDelay time.Duration

	// sleep waits between attempts; tests replace it to record delays.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRetryPolicy creates a policy with the given attempt bound and first delay.
func NewRetryPolicy(maxRetries int, initialDelay time.Duration) RetryPolicy {
	return RetryPolicy{
		MaxRetries:   maxRetries,
		InitialDelay: initialDelay,
	}
}

// DefaultRetryPolicy returns the default retry configuration.
func DefaultRetryPolicy() RetryPolicy {
	return NewRetryPolicy(3, 1*time.Second)
}

// Attempts returns the effective number of attempts.
func (p RetryPolicy) Attempts() int {
	if p.MaxRetries <= 0 {
		return 1
	}
	return p.MaxRetries
}

// Delay returns the backoff slept after the given failed attempt (1-based):
// InitialDelay * 2^(attempt-1).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return p.InitialDelay << (attempt - 1)
}

// Execute runs op until it succeeds, fails with a non-retryable error, or the
// attempt bound is reached. When attempts run out the last retryable error is
// returned unchanged. Backoff sleeps block the calling goroutine.
func Execute[T any](ctx context.Context, p RetryPolicy, op func(ctx context.Context) (T, error)) (T, error) {
	sleep := p.sleep
	if sleep == nil {
		sleep = sleepContext
	}

	maxAttempts := p.Attempts()
	delay := p.InitialDelay

	for attempt := 1; ; attempt++ {
		result, err := op(ctx)
		if err == nil {
			if attempt > 1 {
				log.Info().
					Int("attempt", attempt).
					Msg("Request succeeded after retry")
			}
			return result, nil
		}

		// Non-retryable errors propagate immediately.
		if !IsRetryable(err) {
			return result, err
		}

		errClass := errorClassOf(err)

		if attempt >= maxAttempts {
			retryExhaustedTotal.WithLabelValues(string(errClass)).Inc()
			log.Warn().
				Err(err).
				Str("error_class", string(errClass)).
				Int("max_attempts", maxAttempts).
				Msg("Retry attempts exhausted")
			return result, err
		}

		retriesTotal.WithLabelValues(string(errClass)).Inc()
		retryBackoffSeconds.WithLabelValues(string(errClass)).Observe(delay.Seconds())

		log.Debug().
			Str("error_class", string(errClass)).
			Int("attempt", attempt).
			Dur("backoff", delay).
			Msg("Retrying request after backoff")

		if sleepErr := sleep(ctx, delay); sleepErr != nil {
			log.Warn().
				Str("error_class", string(errClass)).
				Int("attempt", attempt).
				Msg("Context cancelled during retry backoff")
			var zero T
			return zero, sleepErr
		}

		delay *= 2
	}
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrContextCancelled, err)
		}
		return nil
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
	case <-time.After(d):
		return nil
	}
}

// Package ratelimit caps the outbound request rate shared by all dispatch workers.
//
// Limiter is a token bucket whose pool is hard-reset to capacity once per second:
// tokens left over from the previous window are discarded, so at most capacity
// acquisitions succeed per wall-clock second. RedisWindow offers the same contract
// backed by a Redis counter so several processes can share one budget.
package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// DefaultPollInterval is how long Acquire sleeps when the pool is empty.
const DefaultPollInterval = 50 * time.Millisecond

// Acquirer blocks until the caller may issue one request.
type Acquirer interface {
	Acquire(ctx context.Context) error
}

// Limiter is an in-process token bucket refilled by a once-per-second ticker.
type Limiter struct {
	capacity     int64
	tokens       atomic.Int64
	pollInterval time.Duration
	logger       zerolog.Logger

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	// onReset is a test hook invoked after every refill.
	onReset func()
}

// NewLimiter creates a limiter admitting at most rps acquisitions per second.
// Values below 1 are clamped to 1. Call Stop to release the ticker goroutine.
func NewLimiter(rps int, logger zerolog.Logger) *Limiter {
	ticker := time.NewTicker(time.Second)
	l := newLimiter(rps, logger)
	l.start(ticker.C, ticker.Stop)
	return l
}

func newLimiter(rps int, logger zerolog.Logger) *Limiter {
	if rps < 1 {
		rps = 1
	}
	l := &Limiter{
		capacity:     int64(rps),
		pollInterval: DefaultPollInterval,
		logger:       logger,
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
	l.tokens.Store(l.capacity)
	rateLimitTokens.Set(float64(l.capacity))
	return l
}

// start runs the refill loop on the given tick source.
func (l *Limiter) start(ticks <-chan time.Time, stopTicker func()) {
	go func() {
		defer close(l.done)
		defer stopTicker()
		for {
			select {
			case <-l.stop:
				return
			case <-ticks:
				l.reset()
			}
		}
	}()
}

func (l *Limiter) reset() {
	l.tokens.Store(l.capacity)
	rateLimitTokens.Set(float64(l.capacity))
	if l.onReset != nil {
		l.onReset()
	}
}

// Capacity returns the number of tokens granted per window.
func (l *Limiter) Capacity() int {
	return int(l.capacity)
}

// Available returns the tokens left in the current window.
func (l *Limiter) Available() int {
	return int(l.tokens.Load())
}

// Acquire blocks until a token is consumed. It never returns nil without having
// taken a token; the only error is cancellation of ctx.
func (l *Limiter) Acquire(ctx context.Context) error {
	start := time.Now()
	waited := false

	for {
		if l.tryTake() {
			rateLimitAcquired.WithLabelValues("memory").Inc()
			if waited {
				rateLimitWait.Observe(time.Since(start).Seconds())
			}
			return nil
		}

		if !waited {
			l.logger.Debug().Int64("capacity", l.capacity).Msg("Token pool empty, waiting for next window")
			waited = true
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.pollInterval):
		}
	}
}

// tryTake decrements the pool if it is positive.
func (l *Limiter) tryTake() bool {
	for {
		cur := l.tokens.Load()
		if cur <= 0 {
			return false
		}
		if l.tokens.CompareAndSwap(cur, cur-1) {
			rateLimitTokens.Set(float64(cur - 1))
			return true
		}
	}
}

// Stop ends the refill loop. It is safe to call more than once.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() {
		close(l.stop)
	})
	<-l.done
}

package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DefaultRedisPrefix is the key prefix for shared rate limit windows.
const DefaultRedisPrefix = "cp:ratelimit"

// RedisWindow admits at most capacity acquisitions per wall-clock second across
// every process sharing the same Redis key prefix. Each second has its own
// counter key; an INCR past capacity counts as "no token" and the caller waits
// for the next second.
type RedisWindow struct {
	rdb      *redis.Client
	capacity int64
	prefix   string
	fallback Acquirer
	now      func() time.Time
	logger   zerolog.Logger
}

// RedisOption configures a RedisWindow.
type RedisOption func(*RedisWindow)

// WithRedisPrefix sets the key prefix, e.g. one per API account.
func WithRedisPrefix(prefix string) RedisOption {
	return func(w *RedisWindow) { w.prefix = strings.Trim(prefix, ":") }
}

// WithFallback sets the limiter used when Redis is unreachable.
// Without a fallback, Redis errors are returned to the caller.
func WithFallback(a Acquirer) RedisOption {
	return func(w *RedisWindow) { w.fallback = a }
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) RedisOption {
	return func(w *RedisWindow) { w.logger = logger }
}

// NewRedisWindow creates a shared limiter admitting rps acquisitions per second.
func NewRedisWindow(rdb *redis.Client, rps int, opts ...RedisOption) *RedisWindow {
	if rdb == nil {
		panic("redis client cannot be nil")
	}
	if rps < 1 {
		rps = 1
	}
	w := &RedisWindow{
		rdb:      rdb,
		capacity: int64(rps),
		prefix:   DefaultRedisPrefix,
		now:      time.Now,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Acquire blocks until this process has been granted a slot in the current second.
func (w *RedisWindow) Acquire(ctx context.Context) error {
	start := time.Now()
	waited := false

	for {
		now := w.now()
		granted, err := w.take(ctx, now)
		if err != nil {
			rateLimitBackendErrors.Inc()
			if w.fallback == nil {
				return fmt.Errorf("acquire shared token: %w", err)
			}
			w.logger.Warn().Err(err).Msg("Redis rate window unavailable, using local limiter")
			return w.fallback.Acquire(ctx)
		}
		if granted {
			rateLimitAcquired.WithLabelValues("redis").Inc()
			if waited {
				rateLimitWait.Observe(time.Since(start).Seconds())
			}
			return nil
		}

		waited = true
		wait := now.Truncate(time.Second).Add(time.Second).Sub(now)
		if wait <= 0 {
			wait = time.Millisecond
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// take increments the counter for the second containing now.
func (w *RedisWindow) take(ctx context.Context, now time.Time) (bool, error) {
	key := w.windowKey(now)

	pipe := w.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, 2*time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("redis incr %s: %w", key, err)
	}

	return incr.Val() <= w.capacity, nil
}

func (w *RedisWindow) windowKey(now time.Time) string {
	return fmt.Sprintf("%s:%d", w.prefix, now.Unix())
}

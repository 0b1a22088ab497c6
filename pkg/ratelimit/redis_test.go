package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// countingAcquirer records fallback use.
type countingAcquirer struct {
	calls int
}

func (c *countingAcquirer) Acquire(context.Context) error {
	c.calls++
	return nil
}

func TestNewRedisWindow_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("NewRedisWindow should panic with nil redis client")
		}
	}()
	NewRedisWindow(nil, 5)
}

func TestRedisWindow_Options(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer rdb.Close()

	w := NewRedisWindow(rdb, 0, WithRedisPrefix(":cp:account-1:"))

	if w.capacity != 1 {
		t.Errorf("capacity = %d, want 1", w.capacity)
	}
	if w.prefix != "cp:account-1" {
		t.Errorf("prefix = %q, want %q", w.prefix, "cp:account-1")
	}

	at := time.Unix(1700000000, 500)
	if got := w.windowKey(at); got != "cp:account-1:1700000000" {
		t.Errorf("windowKey() = %q", got)
	}
}

func TestRedisWindow_FallbackOnRedisError(t *testing.T) {
	// Nothing listens on this port, so every pipeline fails fast.
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	fallback := &countingAcquirer{}
	w := NewRedisWindow(rdb, 5, WithFallback(fallback))

	if err := w.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() error = %v, want fallback to succeed", err)
	}
	if fallback.calls != 1 {
		t.Errorf("fallback calls = %d, want 1", fallback.calls)
	}
}

func TestRedisWindow_ErrorWithoutFallback(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	w := NewRedisWindow(rdb, 5)

	if err := w.Acquire(context.Background()); err == nil {
		t.Error("Acquire() expected error when redis is unreachable")
	}
}

//go:build integration

package client

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/Sternrassler/correction-sender/internal/testutil"
	"github.com/Sternrassler/correction-sender/pkg/cache"
	"github.com/Sternrassler/correction-sender/pkg/ratelimit"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedisContainer creates a Redis container for integration testing.
func setupRedisContainer(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := redisContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := redisContainer.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	cleanup := func() {
		client.Close()
		redisContainer.Terminate(ctx)
	}

	return client, cleanup
}

func TestIntegration_PaymentInfoCachedInRedis(t *testing.T) {
	redisClient, cleanup := setupRedisContainer(t)
	defer cleanup()

	mock := testutil.NewMockPaymentAPI()
	defer mock.Close()
	mock.SetResponse(testutil.PaymentInfoPath, testutil.NewJSONResponse(http.StatusOK,
		`{"Success":true,"Model":{"TransactionId":501}}`))

	cfg := DefaultConfig(mock.CorrectionURL(), ratelimit.NewRedisWindow(redisClient, 10))
	cfg.PaymentInfoURL = mock.PaymentInfoURL()
	cfg.Cache = cache.NewManager(redisClient)
	cfg.CacheTTL = time.Minute

	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := c.GetPaymentInfo(ctx, 501, testCred); err != nil {
			t.Fatalf("GetPaymentInfo() call %d error = %v", i, err)
		}
	}

	if got := mock.RequestCount(); got != 1 {
		t.Errorf("requests = %d, want 1 (second served from redis)", got)
	}

	key := cache.Key{PublicID: testCred.PublicID, TransactionID: 501}
	if n, err := redisClient.Exists(ctx, key.String()).Result(); err != nil || n != 1 {
		t.Errorf("Exists(%s) = %d, %v; want 1", key, n, err)
	}
}

func TestIntegration_RetriesSpendRedisTokens(t *testing.T) {
	redisClient, cleanup := setupRedisContainer(t)
	defer cleanup()

	mock := testutil.NewMockPaymentAPI()
	defer mock.Close()
	mock.SetResponse(testutil.CorrectionPath, testutil.NewStatusResponse(http.StatusServiceUnavailable, ""))

	cfg := DefaultConfig(mock.CorrectionURL(), ratelimit.NewRedisWindow(redisClient, 2))
	cfg.InitialBackoff = 0
	cfg.MaxRetries = 4

	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = c.Send(context.Background(), testutil.CorrectionRecord("pk_test", 1), testCred)
	if !IsRetryable(err) {
		t.Fatalf("Send() error = %v, want retryable", err)
	}

	if got := mock.RequestCount(); got != 4 {
		t.Errorf("requests = %d, want 4", got)
	}

	// Every attempt left an INCR behind; denied acquire attempts add more.
	keys, err := redisClient.Keys(context.Background(), ratelimit.DefaultRedisPrefix+":*").Result()
	if err != nil {
		t.Fatalf("Keys() error = %v", err)
	}
	var total int64
	for _, k := range keys {
		n, _ := redisClient.Get(context.Background(), k).Int64()
		total += n
	}
	if total < 4 {
		t.Errorf("window counters sum = %d, want >= 4", total)
	}
}

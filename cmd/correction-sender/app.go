package main

import (
	"context"
	"io"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/correction-sender/internal/config"
	"github.com/Sternrassler/correction-sender/pkg/cache"
	"github.com/Sternrassler/correction-sender/pkg/client"
	"github.com/Sternrassler/correction-sender/pkg/logging"
	"github.com/Sternrassler/correction-sender/pkg/metrics"
	"github.com/Sternrassler/correction-sender/pkg/ratelimit"
)

// app holds the components shared by the subcommands.
type app struct {
	cfg     *config.Config
	logger  zerolog.Logger
	redis   *redis.Client
	limiter *ratelimit.Limiter
	client  *client.Client
}

// newApp loads the configuration and wires logging, rate limiting, the
// optional Redis backends, and the API client.
func newApp(ctx context.Context, opts *rootOptions, logOutput io.Writer) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	logging.Setup(logging.Config{
		Level:  logging.ParseLevel(cfg.LogLevel),
		Pretty: opts.pretty,
		Output: logOutput,
	})

	a := &app{
		cfg:     cfg,
		logger:  logging.NewLogger("cli"),
		limiter: ratelimit.NewLimiter(cfg.RequestsPerSecond, logging.NewLogger("ratelimit")),
	}

	var acquirer ratelimit.Acquirer = a.limiter
	var paymentCache client.PaymentInfoCache

	if cfg.Redis.Enabled() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			a.logger.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Redis unavailable, using in-process rate limiter")
			rdb.Close()
		} else {
			a.redis = rdb
			acquirer = ratelimit.NewRedisWindow(rdb, cfg.RequestsPerSecond,
				ratelimit.WithFallback(a.limiter),
				ratelimit.WithLogger(logging.NewLogger("ratelimit")),
			)
			paymentCache = cache.NewManager(rdb)
			a.logger.Info().Str("addr", cfg.Redis.Addr).Msg("Using shared Redis rate limit and payment cache")
		}
	}

	a.client, err = client.New(client.Config{
		APIURL:         cfg.APIURL,
		PaymentInfoURL: cfg.PaymentInfoURL,
		Limiter:        acquirer,
		RequestTimeout: cfg.RequestTimeout,
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialRetry,
		Cache:          paymentCache,
		CacheTTL:       cfg.PaymentInfoCacheTTL,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	if opts.metricsAddr != "" {
		go func() {
			if err := metrics.ListenAndServe(ctx, opts.metricsAddr); err != nil {
				a.logger.Error().Err(err).Str("addr", opts.metricsAddr).Msg("Metrics server failed")
			}
		}()
	}

	return a, nil
}

// Close stops the limiter and releases the Redis connection.
func (a *app) Close() {
	a.limiter.Stop()
	if a.redis != nil {
		a.redis.Close()
	}
}

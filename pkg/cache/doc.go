// Package cache stores payment-info lookups in Redis.
//
// A transaction's status rarely changes once the payment API reports it, so
// successful lookup bodies are kept for a fixed TTL and served without
// spending a rate-limit token. Failed lookups are never cached.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//
//	manager := cache.NewManager(redisClient)
//
//	key := cache.Key{PublicID: "pk_test", TransactionID: 1042}
//
//	entry, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// Cache miss - query the payment API
//	}
//
//	if err := manager.Set(ctx, key, cache.NewEntry(body, 5*time.Minute)); err != nil {
//		return err
//	}
//
// # Metrics
//
//   - correction_payment_cache_hits_total - Cache hits
//   - correction_payment_cache_misses_total - Cache misses
//   - correction_payment_cache_errors_total{operation} - Cache operation errors
//
// Keys have the form cp:payment:<publicId>:<transactionId>; transactions are
// scoped per account so two accounts never share an entry.
package cache

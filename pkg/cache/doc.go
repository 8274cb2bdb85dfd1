// Package cache provides LRU, a bounded in-process byte cache with per-key
// TTL.
//
// It backs the preference cache when no Redis URL is configured:
//
//	prefs := rediscache.New(store, cache.NewLRU(10000), rediscache.WithTTL(time.Minute))
//
// Values are copied on Set and Get, so callers may reuse their buffers.
// Expired keys are dropped lazily on access or by capacity eviction.
package cache

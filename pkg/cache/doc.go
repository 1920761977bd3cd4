// Package cache provides thread-safe caching implementations with built-in
// statistics tracking and optional Prometheus metrics integration.
//
// # Overview
//
// The cache package offers two cache implementations:
//   - Simple: no eviction (manual cleanup only)
//   - FIFO: bounded, evicts in strict insertion order
//
// Both implementations are generic, thread-safe, and provide observability
// through always-on statistics and optional metrics.
//
// # Quick Start
//
// Simple cache creation:
//
//	cache, _ := cache.NewSimple[*User]()
//	cache.Set("user-id", user)
//	value, ok := cache.Get("user-id")
//
// FIFO cache with capacity limit:
//
//	cache, err := cache.NewFIFO[*Message](1000)
//	if err != nil {
//		log.Fatal(err)
//	}
//
// From configuration:
//
//	cache, err := cache.NewFromConfig[*Message](cache.DefaultMessageConfig(),
//		cache.WithMetrics[*Message](registry, "messages"),
//		cache.WithEvictionCallback[*Message](func(key string, m *Message) {
//			slog.Debug("message aged out", "id", key)
//		}),
//	)
//
// # Cache Types and Eviction Policies
//
// Simple Cache (No Eviction):
//
// Items remain in cache until explicitly deleted or the cache is cleared.
// Used for entity kinds with naturally bounded populations (users, servers,
// channels) where deletion is event-driven.
//
//	cache, _ := cache.NewSimple[V]()
//
// FIFO Cache (Insertion-Order):
//
// Evicts the oldest inserted item when maximum capacity is exceeded. Access
// never reorders entries and replacing a key keeps its insertion slot. Used
// for message history, where the stream is ordered and old entries age out
// regardless of how often they are read.
//
//	cache, _ := cache.NewFIFO[V](maxSize)
//
// # Observability
//
// The package implements a dual-tracking pattern:
//
// Statistics (always on) track all operations using atomic counters with no
// external dependencies, available via cache.Stats(). They provide computed
// values like hit ratio that raw Prometheus counters do not.
//
// Prometheus metrics (optional) are enabled via WithMetrics() and export
// counters and gauges with a component label for dashboards and alerting.
// Statistics stay available when metrics are disabled, which keeps tests
// and minimal deployments free of Prometheus plumbing.
//
// # Thread Safety
//
// All cache operations are safe for concurrent use:
//   - Reads take a read lock (Simple) or full lock (FIFO, for stats)
//   - Writes are serialized with mutex protection
//   - Statistics use atomic operations
//   - Eviction callbacks are called outside locks to prevent deadlocks
//
// # Performance Characteristics
//
// Simple Cache:
//   - Get/Set/Delete: O(1) map operations
//
// FIFO Cache:
//   - Get: O(1) map lookup
//   - Set: O(1) map insert + list push, O(1) eviction
//   - Delete: O(1) map delete + list remove
//
// # Generic Type Support
//
// Caches are fully generic:
//
//	userCache, _ := cache.NewSimple[*User]()
//	messageCache, _ := cache.NewFIFO[*Message](1000)
//
// Keys are always strings; values can be any type V and are stored directly
// in memory without serialization.
package cache

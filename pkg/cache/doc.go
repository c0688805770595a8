// Package cache provides the client-side response cache for the logistics
// admin API: a bounded, multi-tier, TTL-aware cache with strict LRU
// eviction, pattern-based invalidation and speculative prefetch support.
//
// The manager holds three independently-capacitated tiers:
//
//   - primary: the general read cache consulted before every request
//   - prefetch: speculatively warmed entries, isolated so prefetch misses
//     never evict hot primary entries
//   - offline: deliberately taken long-horizon snapshots (10x TTL) for
//     degraded-connectivity reads
//
// # Basic Usage
//
//	policy := cache.DefaultPolicy()
//	manager := cache.NewManager(policy)
//
//	// Before issuing a request
//	if v, ok := manager.Get("/deliveries", params, cache.RequestOptions{}); ok {
//		return v
//	}
//
//	// After a successful request
//	manager.Set("/deliveries", params, cache.RequestOptions{}, response)
//
// # Invalidation
//
//	// Textual, substring-tolerant (the original console behavior)
//	manager.InvalidateEntity("delivery", "42")
//
//	// Segment-exact alternative
//	manager.InvalidateEntityStrict("delivery", "42")
//
// # Prefetch
//
//	manager.WarmCache(ctx, []cache.EndpointDescriptor{
//		{Path: "/clients"},
//		{Path: "/drivers"},
//	}, fetch)
//
// # Expiration model
//
// Entries expire lazily: a stale entry stays physically present (and keeps
// its capacity slot) until the next Get, Delete or invalidation touches its
// key, or until LRU eviction removes it. No background sweeper exists; the
// invalidation package's interval scheduler bounds staleness for the
// aggregates that need it.
//
// # Notifications
//
// Subscribe registers a synchronous listener for hit/miss/write/invalidate/
// clear-all events. Notifications exist for instrumentation only and are
// never required for correctness.
//
// # Metrics
//
// The package exports Prometheus metrics:
//
//   - logistics_cache_hits_total{tier} / logistics_cache_misses_total{tier}
//   - logistics_cache_writes_total{tier}
//   - logistics_cache_evictions_total{tier}
//   - logistics_cache_invalidated_entries_total
//   - logistics_cache_entries{tier}
package cache

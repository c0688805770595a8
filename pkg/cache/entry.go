// Package cache implements the bounded, multi-tier response cache that sits
// between the admin console's business code and the logistics API.
package cache

import (
	"encoding/json"
	"time"
)

// Entry is a single cached response value together with its expiration and
// size bookkeeping. Entries are owned exclusively by the Store that holds
// them; no entry is shared across tiers.
type Entry struct {
	// Value is the cached response value.
	Value any

	// ExpiresAt is when the entry becomes stale. The zero value means the
	// entry never expires.
	ExpiresAt time.Time

	// ApproxSizeBytes is a rough estimate of the entry's memory footprint.
	ApproxSizeBytes int

	// recency is the store-local access counter used for LRU eviction.
	recency uint64
}

// IsExpired reports whether the entry is stale at the given instant.
// Entries without an expiration never expire.
func (e *Entry) IsExpired(now time.Time) bool {
	if e.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(e.ExpiresAt)
}

// TTL returns the remaining time until expiration at the given instant.
// Returns 0 if already expired or if the entry never expires.
func (e *Entry) TTL(now time.Time) time.Duration {
	if e.ExpiresAt.IsZero() {
		return 0
	}
	ttl := e.ExpiresAt.Sub(now)
	if ttl < 0 {
		return 0
	}
	return ttl
}

// approxSize estimates the memory footprint of a value as twice the length
// of its serialized textual representation. A rough approximation, not exact
// memory accounting. Values that cannot be serialized estimate to 0 and are
// still cached.
func approxSize(v any) int {
	data, err := json.Marshal(v)
	if err != nil {
		return 0
	}
	return 2 * len(data)
}

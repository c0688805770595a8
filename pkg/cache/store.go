package cache

import (
	"sync"
	"time"
)

// DefaultCapacity is used when a Store is created with a non-positive
// capacity.
const DefaultCapacity = 100

// Store is a capacity-bounded key/value association with strict
// least-recently-used eviction and per-entry expiration.
//
// Expired entries are reclaimed lazily: an entry past its TTL stays
// physically present (and occupies a capacity slot) until the next Get,
// Delete or DeleteFunc touches its key, or until eviction removes it to make
// room for a new key. There is no background sweeper.
type Store struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*Entry
	clock    uint64

	// now is the time source; overridable in tests.
	now func() time.Time
}

// StoreStats is a read-only structural snapshot of a Store. Taking a
// snapshot does not reclaim expired entries. Rates are computed at the
// manager level only.
type StoreStats struct {
	Size                 int   `json:"size"`
	Capacity             int   `json:"capacity"`
	TotalApproxSizeBytes int64 `json:"total_approx_size_bytes"`
	ExpiredPresent       int   `json:"expired_present"`
}

// NewStore creates a Store holding at most capacity entries.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		capacity: capacity,
		entries:  make(map[string]*Entry),
		now:      time.Now,
	}
}

// Get returns the value for key. An unknown key returns (nil, false). A key
// whose TTL has elapsed is deleted and reported absent. Otherwise the key's
// recency counter is advanced and the value returned.
func (s *Store) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	if entry.IsExpired(s.now()) {
		delete(s.entries, key)
		return nil, false
	}
	entry.recency = s.clock
	s.clock++
	return entry.Value, true
}

// Set stores or overwrites the entry for key. A ttl <= 0 means the entry
// never expires. If the key is new and the store is at capacity, the single
// least-recently-used entry is evicted first; the return value reports
// whether that happened.
func (s *Store) Set(key string, value any, ttl time.Duration) (evicted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[key]; !exists && len(s.entries) >= s.capacity {
		s.evictLRU()
		evicted = true
	}

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = s.now().Add(ttl)
	}
	s.entries[key] = &Entry{
		Value:           value,
		ExpiresAt:       expiresAt,
		ApproxSizeBytes: approxSize(value),
		recency:         s.clock,
	}
	s.clock++
	return evicted
}

// evictLRU removes the entry with the lowest recency counter. Counters are
// strictly increasing and therefore unique, so there are no ties. Linear
// scan; acceptable at the small capacities this cache runs with.
// Caller must hold s.mu.
func (s *Store) evictLRU() {
	var (
		victim string
		oldest uint64
		found  bool
	)
	for key, entry := range s.entries {
		if !found || entry.recency < oldest {
			victim = key
			oldest = entry.recency
			found = true
		}
	}
	if found {
		delete(s.entries, victim)
	}
}

// Delete removes the entry for key. Removing an absent key is a no-op.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

// DeleteFunc removes every entry whose key satisfies match and returns the
// number removed.
func (s *Store) DeleteFunc(match func(key string) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for key := range s.entries {
		if match(key) {
			delete(s.entries, key)
			deleted++
		}
	}
	return deleted
}

// Clear empties the store and resets the recency clock. The store itself
// stays usable.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]*Entry)
	s.clock = 0
}

// Len returns the number of physically present entries, expired ones
// included.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Stats returns a structural snapshot of the store.
func (s *Store) Stats() StoreStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := StoreStats{
		Size:     len(s.entries),
		Capacity: s.capacity,
	}
	now := s.now()
	for _, entry := range s.entries {
		stats.TotalApproxSizeBytes += int64(entry.ApproxSizeBytes)
		if entry.IsExpired(now) {
			stats.ExpiredPresent++
		}
	}
	return stats
}

package cache

import (
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Tier names as reported by Stats and the Prometheus metrics.
const (
	TierPrimary  = "primary"
	TierPrefetch = "prefetch"
	TierOffline  = "offline"
)

// offlineTTLFactor stretches the policy TTL for offline snapshots, which are
// meant to survive long enough to be useful under degraded connectivity.
const offlineTTLFactor = 10

// entityPrefixes maps entity types to the endpoint path prefix their cache
// keys carry.
var entityPrefixes = map[string]string{
	"client":   "/clients",
	"delivery": "/deliveries",
	"driver":   "/drivers",
	"vehicle":  "/vehicles",
	"route":    "/routes",
}

// Manager orchestrates three independently-capacitated stores and gates
// every read and write through the configured Policy.
//
// The primary tier is the general read cache. The prefetch tier holds
// speculatively warmed entries, isolated so prefetch misses never evict hot
// primary entries. The offline tier holds deliberately taken long-horizon
// snapshots for degraded-connectivity reads.
type Manager struct {
	policy *Policy

	primary   *Store
	warmStore *Store
	offline   *Store

	notify notifier
	logger zerolog.Logger

	mu        sync.Mutex
	hits      uint64
	misses    uint64
	writes    uint64
	evictions uint64
}

// Stats is a snapshot of the manager's counters and per-tier structure.
// HitRate is 0 when there has been no traffic.
type Stats struct {
	Hits      uint64  `json:"hits"`
	Misses    uint64  `json:"misses"`
	Writes    uint64  `json:"writes"`
	Evictions uint64  `json:"evictions"`
	HitRate   float64 `json:"hit_rate"`
	Tiers     struct {
		Primary  StoreStats `json:"primary"`
		Prefetch StoreStats `json:"prefetch"`
		Offline  StoreStats `json:"offline"`
	} `json:"tiers"`
}

// NewManager creates a manager with the given policy. A nil policy uses
// DefaultPolicy. The three stores live for the manager's lifetime; ClearAll
// empties them without destroying them.
func NewManager(policy *Policy) *Manager {
	if policy == nil {
		policy = DefaultPolicy()
	}
	return &Manager{
		policy:    policy,
		primary:   NewStore(policy.TierCapacities.Primary),
		warmStore: NewStore(policy.TierCapacities.Prefetch),
		offline:   NewStore(policy.TierCapacities.Offline),
		logger:    log.With().Str("component", "response-cache").Logger(),
	}
}

// Policy returns the manager's cache policy.
func (m *Manager) Policy() *Policy {
	return m.policy
}

// Subscribe registers a listener for cache lifecycle events and returns a
// function that removes it. Dispatch is synchronous.
func (m *Manager) Subscribe(fn func(Event)) (unsubscribe func()) {
	return m.notify.subscribe(fn)
}

// Get looks up a cached response in the primary tier. Requests the policy
// declares non-cacheable return absent immediately without touching the
// counters.
func (m *Manager) Get(endpoint string, params map[string]any, opts RequestOptions) (any, bool) {
	if !m.policy.Cacheable(endpoint, opts) {
		return nil, false
	}

	key := Key{Endpoint: endpoint, Params: params, Method: opts.method()}.String()
	value, ok := m.primary.Get(key)

	m.mu.Lock()
	if ok {
		m.hits++
	} else {
		m.misses++
	}
	m.mu.Unlock()

	if ok {
		CacheHits.WithLabelValues(TierPrimary).Inc()
		m.notify.publish(Event{Type: EventHit, Endpoint: endpoint, Key: key, Timestamp: time.Now()})
		m.logger.Debug().Str("endpoint", endpoint).Str("key", key).Msg("cache hit")
	} else {
		CacheMisses.WithLabelValues(TierPrimary).Inc()
		m.notify.publish(Event{Type: EventMiss, Endpoint: endpoint, Key: key, Timestamp: time.Now()})
		m.logger.Debug().Str("endpoint", endpoint).Str("key", key).Msg("cache miss")
	}
	return value, ok
}

// Set writes a response into the primary tier with the policy-resolved TTL.
// Returns false when the policy forbids caching the request.
func (m *Manager) Set(endpoint string, params map[string]any, opts RequestOptions, response any) bool {
	return m.SetWithTTL(endpoint, params, opts, response, m.policy.TTLFor(endpoint))
}

// SetWithTTL is Set with an explicit TTL override.
func (m *Manager) SetWithTTL(endpoint string, params map[string]any, opts RequestOptions, response any, ttl time.Duration) bool {
	if !m.policy.Cacheable(endpoint, opts) {
		return false
	}

	key := Key{Endpoint: endpoint, Params: params, Method: opts.method()}.String()
	evicted := m.primary.Set(key, response, ttl)

	m.mu.Lock()
	m.writes++
	if evicted {
		m.evictions++
	}
	m.mu.Unlock()

	CacheWrites.WithLabelValues(TierPrimary).Inc()
	if evicted {
		CacheEvictions.WithLabelValues(TierPrimary).Inc()
	}
	CacheEntries.WithLabelValues(TierPrimary).Set(float64(m.primary.Len()))

	m.notify.publish(Event{Type: EventWrite, Endpoint: endpoint, Key: key, Timestamp: time.Now()})
	m.logger.Debug().Str("endpoint", endpoint).Str("key", key).Dur("ttl", ttl).Msg("cached response")
	return true
}

// Invalidate removes every primary-tier entry whose key matches pattern and
// returns the number removed. The match is purely textual; the manager has
// no structured knowledge of what a key means.
func (m *Manager) Invalidate(pattern *regexp.Regexp) int {
	return m.invalidate(pattern.String(), pattern.MatchString)
}

// InvalidateSubstring removes every primary-tier entry whose key contains
// substr and returns the number removed.
func (m *Manager) InvalidateSubstring(substr string) int {
	return m.invalidate(substr, func(key string) bool {
		return strings.Contains(key, substr)
	})
}

func (m *Manager) invalidate(pattern string, match func(string) bool) int {
	count := m.primary.DeleteFunc(match)

	if count > 0 {
		CacheInvalidatedEntries.Add(float64(count))
		CacheEntries.WithLabelValues(TierPrimary).Set(float64(m.primary.Len()))
	}
	m.notify.publish(Event{Type: EventInvalidate, Pattern: pattern, Count: count, Timestamp: time.Now()})
	m.logger.Debug().Str("pattern", pattern).Int("count", count).Msg("invalidated cache entries")
	return count
}

// InvalidateEntity removes primary-tier entries for the given entity type,
// optionally narrowed to a single id (empty id means every entry under the
// prefix). Matching is textual: the id only has to appear somewhere in the
// key after the prefix, so a numeric id can coincidentally match an
// unrelated key (id 7 also hits /drivers/70). Acceptable given the low id
// cardinality in this domain; use InvalidateEntityStrict when that matters.
func (m *Manager) InvalidateEntity(entityType, entityID string) int {
	prefix, ok := entityPrefixes[entityType]
	if !ok {
		m.logger.Warn().Str("entity_type", entityType).Msg("unknown entity type, nothing invalidated")
		return 0
	}

	expr := regexp.QuoteMeta(prefix)
	if entityID != "" {
		expr += ".*" + regexp.QuoteMeta(entityID)
	}
	return m.Invalidate(regexp.MustCompile(expr))
}

// InvalidateEntityStrict is InvalidateEntity with segment-exact id matching:
// the id must form a complete path segment directly under the entity prefix,
// so id 7 does not remove entries for /drivers/70.
func (m *Manager) InvalidateEntityStrict(entityType, entityID string) int {
	prefix, ok := entityPrefixes[entityType]
	if !ok {
		m.logger.Warn().Str("entity_type", entityType).Msg("unknown entity type, nothing invalidated")
		return 0
	}

	expr := "^" + regexp.QuoteMeta(prefix)
	if entityID != "" {
		expr += "/" + regexp.QuoteMeta(entityID) + `(?:[/:]|$)`
	}
	return m.Invalidate(regexp.MustCompile(expr))
}

// SaveForOffline writes a response into the offline tier with ten times the
// policy TTL. Offline snapshots are taken deliberately, so the cacheability
// gate does not apply.
func (m *Manager) SaveForOffline(endpoint string, params map[string]any, opts RequestOptions, response any) {
	key := Key{Endpoint: endpoint, Params: params, Method: opts.method()}.String()
	evicted := m.offline.Set(key, response, m.policy.TTLFor(endpoint)*offlineTTLFactor)

	if evicted {
		m.mu.Lock()
		m.evictions++
		m.mu.Unlock()
		CacheEvictions.WithLabelValues(TierOffline).Inc()
	}
	CacheWrites.WithLabelValues(TierOffline).Inc()
	CacheEntries.WithLabelValues(TierOffline).Set(float64(m.offline.Len()))
	m.logger.Debug().Str("endpoint", endpoint).Str("key", key).Msg("saved offline snapshot")
}

// GetOffline reads a snapshot from the offline tier. Bypasses the
// cacheability gate and the hit/miss accounting; this is the degraded-read
// path, not regular traffic.
func (m *Manager) GetOffline(endpoint string, params map[string]any, opts RequestOptions) (any, bool) {
	key := Key{Endpoint: endpoint, Params: params, Method: opts.method()}.String()
	value, ok := m.offline.Get(key)
	if ok {
		CacheHits.WithLabelValues(TierOffline).Inc()
	} else {
		CacheMisses.WithLabelValues(TierOffline).Inc()
	}
	return value, ok
}

// ClearAll empties all three tiers and resets every counter. The stores
// themselves survive.
func (m *Manager) ClearAll() {
	m.primary.Clear()
	m.warmStore.Clear()
	m.offline.Clear()

	m.mu.Lock()
	m.hits, m.misses, m.writes, m.evictions = 0, 0, 0, 0
	m.mu.Unlock()

	for _, tier := range []string{TierPrimary, TierPrefetch, TierOffline} {
		CacheEntries.WithLabelValues(tier).Set(0)
	}
	m.notify.publish(Event{Type: EventClearAll, Timestamp: time.Now()})
	m.logger.Info().Msg("cleared all cache tiers")
}

// Stats returns the manager counters, the derived hit rate and a structural
// snapshot of each tier.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	stats := Stats{
		Hits:      m.hits,
		Misses:    m.misses,
		Writes:    m.writes,
		Evictions: m.evictions,
	}
	m.mu.Unlock()

	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total)
	}
	stats.Tiers.Primary = m.primary.Stats()
	stats.Tiers.Prefetch = m.warmStore.Stats()
	stats.Tiers.Offline = m.offline.Stats()
	return stats
}

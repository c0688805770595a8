package cache

import (
	"net/http"
	"regexp"
	"time"
)

// DefaultTTL is the fallback TTL when no TTL rule matches an endpoint.
const DefaultTTL = 5 * time.Minute

// TTLRule binds an endpoint pattern to a cache TTL. Rules are evaluated in
// order; the first match wins.
type TTLRule struct {
	Match *regexp.Regexp
	TTL   time.Duration
}

// TierCapacities holds the maximum entry counts of the three cache tiers.
type TierCapacities struct {
	Primary  int
	Prefetch int
	Offline  int
}

// Policy is the static cache configuration: which endpoints are cacheable,
// for how long, and how large each tier may grow. It has no behavior beyond
// the two lookups below.
type Policy struct {
	// TTLRules is the ordered TTL-by-pattern table.
	TTLRules []TTLRule

	// NoCache patterns forbid caching unconditionally. Each pattern is
	// tested against both the endpoint and the method.
	NoCache []*regexp.Regexp

	// CacheableStatuses is the allowlist of HTTP statuses worth caching.
	// Advisory: enforced by the calling client, not by the manager.
	CacheableStatuses map[int]bool

	// TierCapacities bounds the three stores.
	TierCapacities TierCapacities

	// DefaultTTL overrides the package default when positive.
	DefaultTTL time.Duration
}

// RequestOptions carries the per-call cache directives supplied by the
// caller.
type RequestOptions struct {
	// Method is the HTTP method of the request. Empty means GET.
	Method string

	// NoCache disables caching for this call.
	NoCache bool

	// ForceCache allows caching a non-GET response.
	ForceCache bool
}

func (o RequestOptions) method() string {
	if o.Method == "" {
		return http.MethodGet
	}
	return o.Method
}

// TTLFor returns the TTL of the first matching rule, or the default TTL when
// none matches.
func (p *Policy) TTLFor(endpoint string) time.Duration {
	for _, rule := range p.TTLRules {
		if rule.Match.MatchString(endpoint) {
			return rule.TTL
		}
	}
	if p.DefaultTTL > 0 {
		return p.DefaultTTL
	}
	return DefaultTTL
}

// Cacheable reports whether a response for endpoint may be cached under the
// given options. Non-GET methods are not cacheable unless ForceCache is set,
// and any NoCache pattern match (endpoint or method) forbids caching
// regardless of method.
func (p *Policy) Cacheable(endpoint string, opts RequestOptions) bool {
	method := opts.method()
	if method != http.MethodGet && !opts.ForceCache {
		return false
	}
	for _, pattern := range p.NoCache {
		if pattern.MatchString(endpoint) || pattern.MatchString(method) {
			return false
		}
	}
	return !opts.NoCache
}

// DefaultPolicy returns the delivery-logistics console defaults: long TTLs
// for reference data, short TTLs for volatile lists and aggregates, and no
// caching for anything touching authentication.
func DefaultPolicy() *Policy {
	return &Policy{
		TTLRules: []TTLRule{
			{Match: regexp.MustCompile(`^/clients`), TTL: 10 * time.Minute},
			{Match: regexp.MustCompile(`^/drivers`), TTL: 10 * time.Minute},
			{Match: regexp.MustCompile(`^/vehicles`), TTL: 10 * time.Minute},
			{Match: regexp.MustCompile(`^/deliveries`), TTL: 1 * time.Minute},
			{Match: regexp.MustCompile(`^/routes`), TTL: 5 * time.Minute},
			{Match: regexp.MustCompile(`^/dashboard`), TTL: 2 * time.Minute},
		},
		NoCache: []*regexp.Regexp{
			regexp.MustCompile(`^/auth`),
			regexp.MustCompile(`^/login`),
			regexp.MustCompile(`^/logout`),
			regexp.MustCompile(`csrf`),
		},
		CacheableStatuses: map[int]bool{
			http.StatusOK:                   true,
			http.StatusNonAuthoritativeInfo: true,
		},
		TierCapacities: TierCapacities{
			Primary:  100,
			Prefetch: 30,
			Offline:  20,
		},
	}
}

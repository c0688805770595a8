// Package invalidation maps successful API mutations to the cache regions
// they stale, and bounds the staleness of volatile aggregates with
// fixed-interval timers. The cache manager itself encodes no business
// semantics; this package is where the delivery-logistics knowledge lives.
package invalidation

import (
	"regexp"
	"strings"

	"github.com/fleetops/logistics-client/pkg/cache"
)

// Rule binds a mutation shape ("METHOD path-pattern") to the invalidations
// it triggers. The optional "id" capture group in Path extracts the entity
// id from the mutated path.
type Rule struct {
	Method string
	Path   *regexp.Regexp
	Purge  func(m *cache.Manager, id string) int
}

var (
	dashboardPattern  = regexp.MustCompile(`/dashboard`)
	schedulingPattern = regexp.MustCompile(`/scheduling`)
	deliveriesPattern = regexp.MustCompile(`/deliveries`)
)

// DefaultRules is the static mutation-to-invalidation table for the
// logistics API. Rules are evaluated in order; the first match wins.
//
// Deliveries feed the dashboard aggregates and the scheduling views, so any
// delivery mutation purges all three regions. Driver mutations additionally
// stale scheduling (driver availability), and route recomputation stales the
// delivery lists that embed route assignments.
func DefaultRules() []Rule {
	return []Rule{
		{
			Method: "POST",
			Path:   regexp.MustCompile(`^/deliveries/?$`),
			Purge: func(m *cache.Manager, _ string) int {
				return m.InvalidateEntity("delivery", "") +
					m.Invalidate(dashboardPattern) +
					m.Invalidate(schedulingPattern)
			},
		},
		{
			Method: "PUT|PATCH|DELETE",
			Path:   regexp.MustCompile(`^/deliveries/(?P<id>[^/]+)`),
			Purge: func(m *cache.Manager, id string) int {
				return m.InvalidateEntity("delivery", id) +
					m.Invalidate(dashboardPattern) +
					m.Invalidate(schedulingPattern)
			},
		},
		{
			Method: "POST",
			Path:   regexp.MustCompile(`^/drivers/?$`),
			Purge: func(m *cache.Manager, _ string) int {
				return m.InvalidateEntity("driver", "") +
					m.Invalidate(schedulingPattern)
			},
		},
		{
			Method: "PUT|PATCH|DELETE",
			Path:   regexp.MustCompile(`^/drivers/(?P<id>[^/]+)`),
			Purge: func(m *cache.Manager, id string) int {
				return m.InvalidateEntity("driver", id) +
					m.Invalidate(schedulingPattern) +
					m.Invalidate(dashboardPattern)
			},
		},
		{
			Method: "POST|PUT|PATCH|DELETE",
			Path:   regexp.MustCompile(`^/vehicles(?:/(?P<id>[^/]+))?`),
			Purge: func(m *cache.Manager, id string) int {
				return m.InvalidateEntity("vehicle", id) +
					m.Invalidate(dashboardPattern)
			},
		},
		{
			Method: "POST|PUT|PATCH|DELETE",
			Path:   regexp.MustCompile(`^/clients(?:/(?P<id>[^/]+))?`),
			Purge: func(m *cache.Manager, id string) int {
				return m.InvalidateEntity("client", id) +
					m.Invalidate(dashboardPattern)
			},
		},
		{
			Method: "POST|PUT|PATCH|DELETE",
			Path:   regexp.MustCompile(`^/routes(?:/(?P<id>[^/]+))?`),
			Purge: func(m *cache.Manager, id string) int {
				return m.InvalidateEntity("route", id) +
					m.Invalidate(deliveriesPattern) +
					m.Invalidate(schedulingPattern)
			},
		},
	}
}

// Apply runs the first rule matching the given mutation and returns the
// number of cache entries purged. Mutations the table does not know return
// 0; unknown endpoints simply leave the cache alone.
//
// Callers invoke Apply immediately after a mutation succeeds, not before.
func Apply(m *cache.Manager, method, path string) int {
	return ApplyRules(m, DefaultRules(), method, path)
}

// ApplyRules is Apply with a caller-supplied rule table.
func ApplyRules(m *cache.Manager, rules []Rule, method, path string) int {
	for _, rule := range rules {
		if !methodMatches(rule.Method, method) {
			continue
		}
		match := rule.Path.FindStringSubmatch(path)
		if match == nil {
			continue
		}
		id := ""
		if idx := rule.Path.SubexpIndex("id"); idx >= 0 && idx < len(match) {
			id = match[idx]
		}
		return rule.Purge(m, id)
	}
	return 0
}

// methodMatches tests a pipe-separated method list against a method.
func methodMatches(allowed, method string) bool {
	for _, m := range strings.Split(allowed, "|") {
		if m == method {
			return true
		}
	}
	return false
}

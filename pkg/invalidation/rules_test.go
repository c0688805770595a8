package invalidation

import (
	"testing"

	"github.com/fleetops/logistics-client/pkg/cache"
)

func testManager() *cache.Manager {
	policy := cache.DefaultPolicy()
	policy.TierCapacities = cache.TierCapacities{Primary: 32, Prefetch: 4, Offline: 4}
	return cache.NewManager(policy)
}

func prime(m *cache.Manager, endpoints ...string) {
	for _, ep := range endpoints {
		m.Set(ep, nil, cache.RequestOptions{}, "cached")
	}
}

func present(m *cache.Manager, endpoint string) bool {
	_, ok := m.Get(endpoint, nil, cache.RequestOptions{})
	return ok
}

func TestApply_CreateDelivery(t *testing.T) {
	m := testManager()
	prime(m, "/deliveries", "/dashboard/stats", "/scheduling/today", "/clients")

	count := Apply(m, "POST", "/deliveries")

	if count != 3 {
		t.Errorf("Apply purged %d entries, want 3", count)
	}
	if present(m, "/deliveries") {
		t.Error("delivery list should be purged")
	}
	if present(m, "/dashboard/stats") {
		t.Error("dashboard aggregates should be purged")
	}
	if present(m, "/scheduling/today") {
		t.Error("scheduling cache should be purged")
	}
	if !present(m, "/clients") {
		t.Error("/clients should be untouched")
	}
}

func TestApply_UpdateDelivery(t *testing.T) {
	m := testManager()
	prime(m, "/deliveries/42", "/dashboard/stats")

	if count := Apply(m, "PUT", "/deliveries/42"); count != 2 {
		t.Errorf("Apply purged %d entries, want 2", count)
	}
	if present(m, "/deliveries/42") {
		t.Error("mutated delivery should be purged")
	}
}

func TestApply_DriverMutationStalesScheduling(t *testing.T) {
	m := testManager()
	prime(m, "/drivers/7", "/scheduling/today", "/vehicles")

	Apply(m, "PATCH", "/drivers/7")

	if present(m, "/drivers/7") {
		t.Error("driver entry should be purged")
	}
	if present(m, "/scheduling/today") {
		t.Error("driver availability feeds scheduling; it should be purged")
	}
	if !present(m, "/vehicles") {
		t.Error("/vehicles should be untouched")
	}
}

func TestApply_RouteMutationStalesDeliveries(t *testing.T) {
	m := testManager()
	prime(m, "/routes/3", "/deliveries")

	Apply(m, "POST", "/routes/3")

	if present(m, "/routes/3") || present(m, "/deliveries") {
		t.Error("route mutation should purge routes and delivery lists")
	}
}

func TestApply_UnknownMutation(t *testing.T) {
	m := testManager()
	prime(m, "/deliveries")

	if count := Apply(m, "POST", "/reports/export"); count != 0 {
		t.Errorf("unknown mutation purged %d entries, want 0", count)
	}
	if !present(m, "/deliveries") {
		t.Error("unknown mutation must leave the cache alone")
	}
}

func TestApply_ReadsDoNotInvalidate(t *testing.T) {
	m := testManager()
	prime(m, "/deliveries")

	if count := Apply(m, "GET", "/deliveries"); count != 0 {
		t.Errorf("GET purged %d entries, want 0", count)
	}
}

func TestApply_EntityCreateWithoutID(t *testing.T) {
	m := testManager()
	prime(m, "/clients", "/clients/9")

	// POST /clients has no id capture; every client entry is purged.
	Apply(m, "POST", "/clients")

	if present(m, "/clients") || present(m, "/clients/9") {
		t.Error("client creation should purge all client entries")
	}
}

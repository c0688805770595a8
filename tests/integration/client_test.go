package integration

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/fleetops/logistics-client/internal/testutil"
	"github.com/fleetops/logistics-client/pkg/cache"
	"github.com/fleetops/logistics-client/pkg/client"
	"github.com/fleetops/logistics-client/pkg/invalidation"
)

func newClient(t *testing.T, mock *testutil.MockAPI) *client.Client {
	t.Helper()

	cfg := client.DefaultConfig(mock.URL(), "IntegrationTest/1.0.0")
	cfg.Retry.InitialBackoff = 5 * time.Millisecond
	cfg.Retry.MaxBackoff = 20 * time.Millisecond

	c, err := client.New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	return c
}

// TestFullRequestFlow tests the complete request flow:
// cache miss -> API request -> cache store -> cache hit.
func TestFullRequestFlow(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()

	mock.SetResponse("/deliveries", testutil.MockResponse{
		StatusCode: http.StatusOK,
		Body: `[
			{"id": 1, "status": "pending", "driver_id": 7},
			{"id": 2, "status": "in-transit", "driver_id": 9}
		]`,
	})

	c := newClient(t, mock)
	ctx := context.Background()
	params := map[string]any{"status": "pending"}

	t.Log("Request 1: Full flow - cache miss")
	body1, err := c.Get(ctx, "/deliveries", params, client.GetOptions{})
	if err != nil {
		t.Fatalf("Request 1 failed: %v", err)
	}
	if !strings.Contains(string(body1), "in-transit") {
		t.Errorf("Unexpected response body: %s", string(body1))
	}
	if mock.RequestCount() != 1 {
		t.Errorf("After request 1: API requests = %d, want 1", mock.RequestCount())
	}

	t.Log("Request 2: Cache hit - no network traffic")
	body2, err := c.Get(ctx, "/deliveries", params, client.GetOptions{})
	if err != nil {
		t.Fatalf("Request 2 failed: %v", err)
	}
	if string(body2) != string(body1) {
		t.Error("Cached body differs from original")
	}
	if mock.RequestCount() != 1 {
		t.Errorf("After request 2: API requests = %d, want 1 (cache hit)", mock.RequestCount())
	}

	stats := c.Cache().Stats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("Stats = %d hits / %d misses, want 1/1", stats.Hits, stats.Misses)
	}
}

// TestMutationInvalidatesCache tests that a successful write purges the
// stale regions and the next read refetches.
func TestMutationInvalidatesCache(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()

	mock.SetResponse("/deliveries", testutil.MockResponse{
		StatusCode: http.StatusOK,
		Body:       `[{"id": 1, "status": "pending"}]`,
	})
	mock.SetResponse("/deliveries/1", testutil.MockResponse{
		StatusCode: http.StatusOK,
		Body:       `{"id": 1, "status": "delivered"}`,
	})

	c := newClient(t, mock)
	ctx := context.Background()

	// Prime the list cache
	if _, err := c.Get(ctx, "/deliveries", nil, client.GetOptions{}); err != nil {
		t.Fatalf("Priming GET failed: %v", err)
	}

	// Mutate a delivery
	if _, err := c.Do(ctx, "PATCH", "/deliveries/1", []byte(`{"status": "delivered"}`)); err != nil {
		t.Fatalf("Mutation failed: %v", err)
	}

	// The list must refetch now
	if _, err := c.Get(ctx, "/deliveries", nil, client.GetOptions{}); err != nil {
		t.Fatalf("Post-mutation GET failed: %v", err)
	}
	if got := mock.RequestCountFor("/deliveries"); got != 2 {
		t.Errorf("List endpoint saw %d requests, want 2 (cache was invalidated)", got)
	}
}

// TestOfflineFallback tests that a snapshot survives the upstream going away.
func TestOfflineFallback(t *testing.T) {
	mock := testutil.NewMockAPI()

	mock.SetResponse("/drivers", testutil.MockResponse{
		StatusCode: http.StatusOK,
		Body:       `[{"id": 7, "name": "R. Mercer"}]`,
	})

	c := newClient(t, mock)
	ctx := context.Background()

	if err := c.Snapshot(ctx, "/drivers", nil); err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}

	// Purge the primary tier so only the snapshot remains, then take the
	// upstream down.
	c.Cache().InvalidateSubstring("/drivers")
	mock.Close()

	body, err := c.Get(ctx, "/drivers", nil, client.GetOptions{OfflineFallback: true})
	if err != nil {
		t.Fatalf("Offline fallback failed: %v", err)
	}
	if !strings.Contains(string(body), "Mercer") {
		t.Errorf("Unexpected offline body: %s", string(body))
	}
}

// TestWarmCacheThenNavigate simulates app startup: warm the common views,
// then navigate without touching the network.
func TestWarmCacheThenNavigate(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()

	mock.SetResponse("/dashboard/summary", testutil.MockResponse{
		StatusCode: http.StatusOK,
		Body:       `{"active_deliveries": 12}`,
	})
	mock.SetResponse("/drivers", testutil.MockResponse{
		StatusCode: http.StatusOK,
		Body:       `[]`,
	})

	c := newClient(t, mock)
	ctx := context.Background()

	c.WarmCache(ctx, []cache.EndpointDescriptor{
		{Path: "/dashboard/summary"},
		{Path: "/drivers"},
	})

	warmed := mock.RequestCount()
	if warmed != 2 {
		t.Fatalf("Warmup made %d requests, want 2", warmed)
	}

	// Navigation hits the prefetch tier, not the network
	if _, ok := c.Cache().GetPrefetched("/dashboard/summary", nil, cache.RequestOptions{}); !ok {
		t.Error("Dashboard summary not prefetched")
	}
	if mock.RequestCount() != warmed {
		t.Errorf("Navigation caused network traffic: %d requests", mock.RequestCount())
	}
}

// TestScheduledInvalidation tests the background staleness sweep against a
// live manager.
func TestScheduledInvalidation(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()

	mock.SetResponse("/dashboard/summary", testutil.MockResponse{
		StatusCode: http.StatusOK,
		Body:       `{"active_deliveries": 12}`,
	})

	c := newClient(t, mock)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := c.Get(ctx, "/dashboard/summary", nil, client.GetOptions{}); err != nil {
		t.Fatalf("Priming GET failed: %v", err)
	}

	scheduler := invalidation.NewScheduler(c.Cache())
	scheduler.SetIntervals(10*time.Millisecond, 10*time.Millisecond)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if _, ok := c.Cache().Get("/dashboard/summary", nil, cache.RequestOptions{}); !ok {
			return // Sweep purged the dashboard
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Error("Dashboard entry survived the scheduled sweep")
}

// TestRetryOnServerError tests the backoff loop against a flapping upstream.
func TestRetryOnServerError(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()

	attempts := 0
	mock.SetHandler("/vehicles", func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`[{"id": 3, "plate": "FL-1034"}]`))
	})

	c := newClient(t, mock)

	body, err := c.Get(context.Background(), "/vehicles", nil, client.GetOptions{})
	if err != nil {
		t.Fatalf("Expected retries to recover, got: %v", err)
	}
	if !strings.Contains(string(body), "FL-1034") {
		t.Errorf("Unexpected body: %s", string(body))
	}
	if attempts != 3 {
		t.Errorf("Upstream saw %d attempts, want 3", attempts)
	}
}

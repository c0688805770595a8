// Package metrics provides the centralized Prometheus metrics registry for the
// logistics client. All metrics are defined in their respective packages
// (client, cache) to maintain modularity and avoid circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the logistics client.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Cache Metrics (pkg/cache):
//   - logistics_cache_hits_total{tier} (Counter): Cache hits by tier (primary, prefetch, offline)
//   - logistics_cache_misses_total{tier} (Counter): Cache misses by tier
//   - logistics_cache_writes_total{tier} (Counter): Cache writes by tier
//   - logistics_cache_evictions_total{tier} (Counter): LRU evictions by tier
//   - logistics_cache_invalidated_entries_total (Counter): Entries removed by invalidation
//   - logistics_cache_entries{tier} (Gauge): Current number of entries by tier
//
// Request Metrics (pkg/client):
//   - logistics_api_requests_total{endpoint, status} (Counter): Total requests by endpoint and HTTP status
//   - logistics_api_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - logistics_api_errors_total{class} (Counter): Errors by class (client, server, network)
//   - logistics_api_offline_served_total (Counter): Responses served from the offline tier
//
// Retry Metrics (pkg/client):
//   - logistics_api_retries_total{error_class} (Counter): Retry attempts by error class
//   - logistics_api_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(logistics_cache_hits_total[5m])) /
//   (sum(rate(logistics_cache_hits_total[5m])) + sum(rate(logistics_cache_misses_total[5m])))
//
//   # Request Error Rate
//   rate(logistics_api_errors_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(logistics_api_request_duration_seconds_bucket[5m]))
//
//   # Offline Fallback Rate
//   rate(logistics_api_offline_served_total[5m]) / rate(logistics_api_requests_total[5m])

// Package client provides the cached HTTP client for the logistics admin
// API. Reads flow through the response cache before touching the network;
// successful mutations trigger the matching invalidation rules; network
// failures can fall back to deliberately taken offline snapshots.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fleetops/logistics-client/pkg/cache"
	"github.com/fleetops/logistics-client/pkg/invalidation"
)

// Prometheus metrics for API request operations.
var (
	apiRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "logistics_api_requests_total",
		Help: "Total API requests by endpoint and status",
	}, []string{"endpoint", "status"})

	apiRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "logistics_api_request_duration_seconds",
		Help:    "API request duration in seconds by endpoint",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5},
	}, []string{"endpoint"})

	apiErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "logistics_api_errors_total",
		Help: "Total API errors by class",
	}, []string{"class"})

	apiOfflineServedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "logistics_api_offline_served_total",
		Help: "Total responses served from the offline snapshot tier",
	})
)

// Config holds the client configuration.
type Config struct {
	// BaseURL of the logistics API (e.g. "https://api.fleet.example").
	BaseURL string

	// UserAgent header sent with every request.
	UserAgent string

	// Timeout for a single HTTP request.
	Timeout time.Duration

	// Retry configures the backoff loop for server and network errors.
	Retry RetryConfig

	// Policy is the cache policy. Nil uses cache.DefaultPolicy.
	Policy *cache.Policy

	// Rules is the mutation-to-invalidation table. Nil uses
	// invalidation.DefaultRules.
	Rules []invalidation.Rule
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(baseURL, userAgent string) Config {
	return Config{
		BaseURL:   baseURL,
		UserAgent: userAgent,
		Timeout:   15 * time.Second,
		Retry:     DefaultRetryConfig(),
		Policy:    cache.DefaultPolicy(),
	}
}

// GetOptions carries per-call read directives.
type GetOptions struct {
	// NoCache bypasses the cache for this call.
	NoCache bool

	// OfflineFallback serves the offline snapshot, if one is live, when the
	// request fails after retries.
	OfflineFallback bool
}

// Client is the cached logistics API client.
type Client struct {
	httpClient *http.Client
	cache      *cache.Manager
	rules      []invalidation.Rule
	config     Config
	logger     zerolog.Logger
}

// New creates a new API client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	rules := cfg.Rules
	if rules == nil {
		rules = invalidation.DefaultRules()
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cache:      cache.NewManager(cfg.Policy),
		rules:      rules,
		config:     cfg,
		logger:     log.With().Str("component", "api-client").Logger(),
	}, nil
}

// Cache returns the client's cache manager, for invalidation, prefetch and
// stats access.
func (c *Client) Cache() *cache.Manager {
	return c.cache
}

// Get performs a cached GET. The cache is consulted first; on a miss the
// request goes to the network and a response with an allowlisted status is
// written back into the primary tier.
func (c *Client) Get(ctx context.Context, endpoint string, params map[string]any, opts GetOptions) ([]byte, error) {
	ropts := cache.RequestOptions{NoCache: opts.NoCache}

	// The manager stores any; a foreign value under our key (the cache is
	// exported and callers can prime it directly) is treated as a miss.
	if v, ok := c.cache.Get(endpoint, params, ropts); ok {
		if b, ok := v.([]byte); ok {
			return b, nil
		}
	}

	body, status, err := c.fetch(ctx, http.MethodGet, endpoint, params, nil)
	if err != nil {
		if opts.OfflineFallback {
			if v, ok := c.cache.GetOffline(endpoint, params, cache.RequestOptions{}); ok {
				if b, ok := v.([]byte); ok {
					apiOfflineServedTotal.Inc()
					c.logger.Warn().
						Err(err).
						Str("endpoint", endpoint).
						Msg("request failed, serving offline snapshot")
					return b, nil
				}
			}
		}
		return nil, err
	}

	// The cacheable-status allowlist is advisory and enforced here, not by
	// the manager.
	policy := c.cache.Policy()
	if policy.CacheableStatuses[status] {
		c.cache.Set(endpoint, params, ropts, body)
	}
	return body, nil
}

// Do performs a mutating request. A 2xx response maps the mutation through
// the invalidation rule table so stale cache regions are purged; any other
// status leaves the cache untouched.
func (c *Client) Do(ctx context.Context, method, endpoint string, body []byte) ([]byte, error) {
	respBody, status, err := c.fetch(ctx, method, endpoint, nil, body)
	if err != nil {
		return nil, err
	}

	if status/100 == 2 {
		purged := invalidation.ApplyRules(c.cache, c.rules, method, endpoint)
		c.logger.Debug().
			Str("method", method).
			Str("endpoint", endpoint).
			Int("purged", purged).
			Msg("mutation applied, cache invalidated")
	}
	return respBody, nil
}

// Snapshot fetches an endpoint and stores the response in the offline tier
// with the extended offline TTL. Snapshots are deliberate; the cacheability
// gate does not apply.
func (c *Client) Snapshot(ctx context.Context, endpoint string, params map[string]any) error {
	body, _, err := c.fetch(ctx, http.MethodGet, endpoint, params, nil)
	if err != nil {
		return fmt.Errorf("snapshot %s: %w", endpoint, err)
	}
	c.cache.SaveForOffline(endpoint, params, cache.RequestOptions{}, body)
	return nil
}

// WarmCache prefetches the given endpoints through this client into the
// prefetch tier.
func (c *Client) WarmCache(ctx context.Context, endpoints []cache.EndpointDescriptor) {
	c.cache.WarmCache(ctx, endpoints, func(ctx context.Context, endpoint string, params map[string]any, opts cache.RequestOptions) (any, error) {
		body, status, err := c.fetch(ctx, http.MethodGet, endpoint, params, nil)
		if err != nil {
			return nil, err
		}
		if !c.cache.Policy().CacheableStatuses[status] {
			return nil, fmt.Errorf("status %d not cacheable", status)
		}
		return body, nil
	})
}

// fetch performs one HTTP request with retry. A status outside 2xx/3xx is
// returned as an *APIError; server and network errors have been retried per
// the client's retry configuration by the time fetch returns.
func (c *Client) fetch(ctx context.Context, method, endpoint string, params map[string]any, body []byte) ([]byte, int, error) {
	start := time.Now()
	defer func() {
		apiRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}()

	var respBody []byte
	var status int

	err := retryWithBackoff(ctx, c.config.Retry, func() error {
		req, err := c.newRequest(ctx, method, endpoint, params, body)
		if err != nil {
			return &APIError{Class: ErrorClassClient, Endpoint: endpoint, Message: "build request", Err: err}
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			apiErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			apiRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
			return &APIError{Class: ErrorClassNetwork, Endpoint: endpoint, Message: "request failed", Err: err}
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			apiErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			return &APIError{Class: ErrorClassNetwork, Endpoint: endpoint, Message: "read response body", Err: err}
		}

		apiRequestsTotal.WithLabelValues(endpoint, fmt.Sprintf("%d", resp.StatusCode)).Inc()

		if resp.StatusCode >= 400 {
			class := classifyStatus(resp.StatusCode)
			apiErrorsTotal.WithLabelValues(string(class)).Inc()
			return &APIError{
				StatusCode: resp.StatusCode,
				Class:      class,
				Endpoint:   endpoint,
				Message:    resp.Status,
			}
		}

		respBody = data
		status = resp.StatusCode
		return nil
	}, func(err error) ErrorClass {
		if apiErr, ok := err.(*APIError); ok {
			return apiErr.Class
		}
		return ErrorClassNetwork
	})
	if err != nil {
		return nil, 0, err
	}
	return respBody, status, nil
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, params map[string]any, body []byte) (*http.Request, error) {
	u := strings.TrimRight(c.config.BaseURL, "/") + endpoint
	if len(params) > 0 {
		values := url.Values{}
		for name, value := range params {
			switch v := value.(type) {
			case []string:
				for _, item := range v {
					values.Add(name, item)
				}
			default:
				values.Set(name, fmt.Sprint(value))
			}
		}
		u += "?" + values.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

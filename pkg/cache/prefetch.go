package cache

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// prefetchConcurrency bounds the fan-out of a prefetch batch.
const prefetchConcurrency = 4

// PrefetchRequest describes one speculative fetch. The Fetch function is the
// injected retrieval; the manager performs no network I/O of its own.
type PrefetchRequest struct {
	Endpoint string
	Params   map[string]any
	Options  RequestOptions
	Fetch    func(ctx context.Context) (any, error)
}

// EndpointDescriptor declares an endpoint to warm via WarmCache.
type EndpointDescriptor struct {
	Path    string
	Params  map[string]any
	Options RequestOptions
}

// FetchFunc is the generic retrieval function injected into WarmCache.
type FetchFunc func(ctx context.Context, endpoint string, params map[string]any, opts RequestOptions) (any, error)

// Prefetch speculatively populates the prefetch tier. Requests whose key
// already holds a live entry are skipped without invoking their fetcher. A
// fetcher failure degrades that single request to "not cached" and does not
// abort its siblings. Prefetch returns once every fetch attempt has
// resolved.
func (m *Manager) Prefetch(ctx context.Context, requests []PrefetchRequest) {
	g := new(errgroup.Group)
	g.SetLimit(prefetchConcurrency)

	for _, req := range requests {
		g.Go(func() error {
			m.prefetchOne(ctx, req)
			return nil
		})
	}
	// Fetch errors are swallowed per request, so Wait cannot fail.
	_ = g.Wait()
}

func (m *Manager) prefetchOne(ctx context.Context, req PrefetchRequest) {
	key := Key{Endpoint: req.Endpoint, Params: req.Params, Method: req.Options.method()}.String()

	if _, ok := m.warmStore.Get(key); ok {
		m.logger.Debug().Str("key", key).Msg("prefetch skipped, live entry present")
		return
	}
	if req.Fetch == nil {
		return
	}

	value, err := req.Fetch(ctx)
	if err != nil {
		m.logger.Warn().Err(err).Str("endpoint", req.Endpoint).Msg("prefetch fetch failed")
		return
	}

	evicted := m.warmStore.Set(key, value, m.policy.TTLFor(req.Endpoint))
	if evicted {
		m.mu.Lock()
		m.evictions++
		m.mu.Unlock()
		CacheEvictions.WithLabelValues(TierPrefetch).Inc()
	}
	CacheWrites.WithLabelValues(TierPrefetch).Inc()
	CacheEntries.WithLabelValues(TierPrefetch).Set(float64(m.warmStore.Len()))
	m.logger.Debug().Str("endpoint", req.Endpoint).Str("key", key).Msg("prefetched response")
}

// GetPrefetched reads an entry from the prefetch tier.
func (m *Manager) GetPrefetched(endpoint string, params map[string]any, opts RequestOptions) (any, bool) {
	key := Key{Endpoint: endpoint, Params: params, Method: opts.method()}.String()
	value, ok := m.warmStore.Get(key)
	if ok {
		CacheHits.WithLabelValues(TierPrefetch).Inc()
	} else {
		CacheMisses.WithLabelValues(TierPrefetch).Inc()
	}
	return value, ok
}

// WarmCache builds a prefetch batch from a declarative endpoint list and a
// single injected fetch function, then delegates to Prefetch.
func (m *Manager) WarmCache(ctx context.Context, endpoints []EndpointDescriptor, fetch FetchFunc) {
	start := time.Now()

	requests := make([]PrefetchRequest, 0, len(endpoints))
	for _, desc := range endpoints {
		requests = append(requests, PrefetchRequest{
			Endpoint: desc.Path,
			Params:   desc.Params,
			Options:  desc.Options,
			Fetch: func(ctx context.Context) (any, error) {
				return fetch(ctx, desc.Path, desc.Params, desc.Options)
			},
		})
	}
	m.Prefetch(ctx, requests)

	m.logger.Info().
		Int("endpoints", len(endpoints)).
		Dur("duration", time.Since(start)).
		Msg("cache warm-up complete")
}

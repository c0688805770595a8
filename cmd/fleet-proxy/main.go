// fleet-proxy is a small caching proxy in front of the logistics admin API.
// It serves reads through the response cache, applies the invalidation rules
// on mutations, and exposes cache statistics and Prometheus metrics.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fleetops/logistics-client/pkg/client"
	"github.com/fleetops/logistics-client/pkg/config"
	"github.com/fleetops/logistics-client/pkg/invalidation"
	"github.com/fleetops/logistics-client/pkg/logging"
)

func main() {
	configPath := flag.String("config", getEnv("FLEET_CONFIG", ""), "path to YAML config file")
	port := flag.String("port", getEnv("PORT", "8080"), "listen port")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fleet-proxy: %v\n", err)
		os.Exit(1)
	}

	logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.Log.Level),
		Pretty: cfg.Log.Pretty,
	})
	logger := logging.NewLogger("fleet-proxy")

	apiClient, err := buildClient(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create API client")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Background staleness sweeps for the dashboard and delivery regions.
	scheduler := invalidation.NewScheduler(apiClient.Cache())
	scheduler.Start(ctx)
	defer scheduler.Stop()

	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/ready", readyHandler(cfg.Client.BaseURL))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/cache/stats", cacheStatsHandler(apiClient))
	mux.HandleFunc("/api/", apiProxyHandler(apiClient))

	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info().
			Str("addr", server.Addr).
			Str("upstream", cfg.Client.BaseURL).
			Str("user_agent", cfg.Client.UserAgent).
			Msg("Starting fleet proxy")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Shutdown failed")
	}
}

func buildClient(cfg config.Config) (*client.Client, error) {
	policy, err := cfg.CachePolicy()
	if err != nil {
		return nil, err
	}

	clientCfg := client.DefaultConfig(cfg.Client.BaseURL, cfg.Client.UserAgent)
	clientCfg.Timeout = cfg.Client.Timeout
	clientCfg.Policy = policy
	if cfg.Client.MaxAttempts > 0 {
		clientCfg.Retry.MaxAttempts = cfg.Client.MaxAttempts
	}
	return client.New(clientCfg)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

// readyHandler reports readiness by probing the upstream API. The proxy can
// still serve cached and offline entries while not ready, so readiness only
// signals that fresh fetches will succeed.
func readyHandler(baseURL string) http.HandlerFunc {
	probe := &http.Client{Timeout: 3 * time.Second}
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, baseURL+"/health", nil)
		if err != nil {
			http.Error(w, "upstream unreachable", http.StatusServiceUnavailable)
			return
		}
		resp, err := probe.Do(req)
		if err != nil {
			http.Error(w, "upstream unreachable", http.StatusServiceUnavailable)
			return
		}
		resp.Body.Close()
		if resp.StatusCode >= 500 {
			http.Error(w, "upstream unhealthy", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK")
	}
}

func cacheStatsHandler(apiClient *client.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(apiClient.Cache().Stats()); err != nil {
			http.Error(w, fmt.Sprintf("encode stats: %v", err), http.StatusInternalServerError)
		}
	}
}

// apiProxyHandler forwards requests under /api/ to the upstream API.
// GET requests flow through the cache with offline fallback; mutations go
// straight through and trigger the invalidation rules.
func apiProxyHandler(apiClient *client.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// /api/deliveries?status=pending -> /deliveries
		endpoint := strings.TrimPrefix(r.URL.Path, "/api")
		if endpoint == "" {
			http.Error(w, "missing endpoint", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer cancel()

		var (
			body []byte
			err  error
		)
		switch r.Method {
		case http.MethodGet:
			body, err = apiClient.Get(ctx, endpoint, queryParams(r), client.GetOptions{
				NoCache:         r.Header.Get("Cache-Control") == "no-cache",
				OfflineFallback: true,
			})
		default:
			var payload []byte
			if r.Body != nil {
				payload, err = io.ReadAll(r.Body)
				if err != nil {
					http.Error(w, fmt.Sprintf("read body: %v", err), http.StatusBadRequest)
					return
				}
			}
			body, err = apiClient.Do(ctx, r.Method, endpoint, payload)
		}
		if err != nil {
			writeUpstreamError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write(body); err != nil {
			logger := logging.NewLogger("fleet-proxy")
			logger.Error().Err(err).Msg("Failed to write response")
		}
	}
}

func queryParams(r *http.Request) map[string]any {
	values := r.URL.Query()
	if len(values) == 0 {
		return nil
	}
	params := make(map[string]any, len(values))
	for key, vals := range values {
		if len(vals) == 1 {
			params[key] = vals[0]
		} else {
			params[key] = vals
		}
	}
	return params
}

// writeUpstreamError maps client errors onto proxy responses: upstream HTTP
// errors keep their status code, everything else is a bad gateway.
func writeUpstreamError(w http.ResponseWriter, err error) {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode > 0 {
		http.Error(w, apiErr.Message, apiErr.StatusCode)
		return
	}
	http.Error(w, fmt.Sprintf("upstream request failed: %v", err), http.StatusBadGateway)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

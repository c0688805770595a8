// Package config loads the client and cache configuration with
// env > file > default precedence.
package config

import (
	"fmt"
	"regexp"
	"time"

	"github.com/fleetops/logistics-client/pkg/cache"
)

// Config is the full runtime configuration.
type Config struct {
	Client ClientConfig `koanf:"client"`
	Cache  CacheConfig  `koanf:"cache"`
	Log    LogConfig    `koanf:"log"`
}

// ClientConfig configures the HTTP API client.
type ClientConfig struct {
	BaseURL     string        `koanf:"base_url"`
	UserAgent   string        `koanf:"user_agent"`
	Timeout     time.Duration `koanf:"timeout"`
	MaxAttempts int           `koanf:"max_attempts"`
}

// TTLRuleConfig is one endpoint-pattern-to-TTL binding. Rules apply in
// order; the first match wins.
type TTLRuleConfig struct {
	Pattern string        `koanf:"pattern"`
	TTL     time.Duration `koanf:"ttl"`
}

// TierCapacitiesConfig bounds the three cache tiers.
type TierCapacitiesConfig struct {
	Primary  int `koanf:"primary"`
	Prefetch int `koanf:"prefetch"`
	Offline  int `koanf:"offline"`
}

// CacheConfig configures the response cache policy.
type CacheConfig struct {
	DefaultTTL        time.Duration        `koanf:"default_ttl"`
	TTLRules          []TTLRuleConfig      `koanf:"ttl_rules"`
	NoCachePatterns   []string             `koanf:"no_cache_patterns"`
	CacheableStatuses []int                `koanf:"cacheable_statuses"`
	TierCapacities    TierCapacitiesConfig `koanf:"tier_capacities"`
}

// LogConfig configures logging output.
type LogConfig struct {
	Level  string `koanf:"level"`
	Pretty bool   `koanf:"pretty"`
}

// Default returns the built-in configuration: the stock delivery-logistics
// cache policy and a local API endpoint.
func Default() Config {
	policy := cache.DefaultPolicy()

	cfg := Config{
		Client: ClientConfig{
			BaseURL:     "http://localhost:3000",
			UserAgent:   "logistics-client/0.1.0",
			Timeout:     15 * time.Second,
			MaxAttempts: 3,
		},
		Cache: CacheConfig{
			DefaultTTL: cache.DefaultTTL,
			TierCapacities: TierCapacitiesConfig{
				Primary:  policy.TierCapacities.Primary,
				Prefetch: policy.TierCapacities.Prefetch,
				Offline:  policy.TierCapacities.Offline,
			},
		},
		Log: LogConfig{Level: "info"},
	}
	for _, rule := range policy.TTLRules {
		cfg.Cache.TTLRules = append(cfg.Cache.TTLRules, TTLRuleConfig{
			Pattern: rule.Match.String(),
			TTL:     rule.TTL,
		})
	}
	for _, pattern := range policy.NoCache {
		cfg.Cache.NoCachePatterns = append(cfg.Cache.NoCachePatterns, pattern.String())
	}
	for status := range policy.CacheableStatuses {
		cfg.Cache.CacheableStatuses = append(cfg.Cache.CacheableStatuses, status)
	}
	return cfg
}

// Validate checks the configuration for obvious mistakes, including that
// every cache pattern compiles.
func (c Config) Validate() error {
	if c.Client.BaseURL == "" {
		return fmt.Errorf("config: client.base_url is required")
	}
	if c.Client.UserAgent == "" {
		return fmt.Errorf("config: client.user_agent is required")
	}
	for _, rule := range c.Cache.TTLRules {
		if _, err := regexp.Compile(rule.Pattern); err != nil {
			return fmt.Errorf("config: invalid ttl pattern %q: %w", rule.Pattern, err)
		}
		if rule.TTL <= 0 {
			return fmt.Errorf("config: ttl pattern %q has non-positive ttl", rule.Pattern)
		}
	}
	for _, pattern := range c.Cache.NoCachePatterns {
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("config: invalid no-cache pattern %q: %w", pattern, err)
		}
	}
	return nil
}

// CachePolicy compiles the cache section into a policy. Call Validate first;
// CachePolicy assumes the patterns compile.
func (c Config) CachePolicy() (*cache.Policy, error) {
	policy := &cache.Policy{
		DefaultTTL:        c.Cache.DefaultTTL,
		CacheableStatuses: make(map[int]bool, len(c.Cache.CacheableStatuses)),
		TierCapacities: cache.TierCapacities{
			Primary:  c.Cache.TierCapacities.Primary,
			Prefetch: c.Cache.TierCapacities.Prefetch,
			Offline:  c.Cache.TierCapacities.Offline,
		},
	}
	for _, rule := range c.Cache.TTLRules {
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return nil, fmt.Errorf("config: ttl pattern %q: %w", rule.Pattern, err)
		}
		policy.TTLRules = append(policy.TTLRules, cache.TTLRule{Match: re, TTL: rule.TTL})
	}
	for _, pattern := range c.Cache.NoCachePatterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("config: no-cache pattern %q: %w", pattern, err)
		}
		policy.NoCache = append(policy.NoCache, re)
	}
	for _, status := range c.Cache.CacheableStatuses {
		policy.CacheableStatuses[status] = true
	}
	return policy, nil
}

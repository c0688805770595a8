package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment variables that override the
// configuration, e.g. FLEET_CLIENT__BASE_URL.
const EnvPrefix = "FLEET"

// Load assembles the effective configuration with env > file > default
// precedence. An empty path skips the file layer.
func Load(path string) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(structToMap(Default()), "."), nil); err != nil {
		return Config{}, fmt.Errorf("config: load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return Config{}, fmt.Errorf("config: file %s not found", path)
			}
			return Config{}, fmt.Errorf("config: stat %s: %w", path, err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("config: load file %s: %w", path, err)
		}
	}

	// Double underscores signal nesting: FLEET_CLIENT__BASE_URL becomes
	// client.base_url.
	transform := func(s string) string {
		key := strings.TrimPrefix(s, EnvPrefix+"_")
		key = strings.ReplaceAll(key, "__", ".")
		return strings.ToLower(key)
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", transform), nil); err != nil {
		return Config{}, fmt.Errorf("config: load env: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// structToMap converts the default Config into a map for the koanf confmap
// provider.
func structToMap(cfg Config) map[string]any {
	ttlRules := make([]map[string]any, 0, len(cfg.Cache.TTLRules))
	for _, rule := range cfg.Cache.TTLRules {
		ttlRules = append(ttlRules, map[string]any{
			"pattern": rule.Pattern,
			"ttl":     rule.TTL,
		})
	}

	return map[string]any{
		"client": map[string]any{
			"base_url":     cfg.Client.BaseURL,
			"user_agent":   cfg.Client.UserAgent,
			"timeout":      cfg.Client.Timeout,
			"max_attempts": cfg.Client.MaxAttempts,
		},
		"cache": map[string]any{
			"default_ttl":        cfg.Cache.DefaultTTL,
			"ttl_rules":          ttlRules,
			"no_cache_patterns":  cfg.Cache.NoCachePatterns,
			"cacheable_statuses": cfg.Cache.CacheableStatuses,
			"tier_capacities": map[string]any{
				"primary":  cfg.Cache.TierCapacities.Primary,
				"prefetch": cfg.Cache.TierCapacities.Prefetch,
				"offline":  cfg.Cache.TierCapacities.Offline,
			},
		},
		"log": map[string]any{
			"level":  cfg.Log.Level,
			"pretty": cfg.Log.Pretty,
		},
	}
}

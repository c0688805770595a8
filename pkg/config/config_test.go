package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetops/logistics-client/pkg/cache"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:3000", cfg.Client.BaseURL)
	assert.Equal(t, 15*time.Second, cfg.Client.Timeout)
	assert.Equal(t, 5*time.Minute, cfg.Cache.DefaultTTL)
	assert.NotEmpty(t, cfg.Cache.TTLRules)
	assert.NotEmpty(t, cfg.Cache.NoCachePatterns)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfigFile(t, `
client:
  base_url: https://api.fleet.example
cache:
  default_ttl: 90s
  tier_capacities:
    primary: 42
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://api.fleet.example", cfg.Client.BaseURL)
	assert.Equal(t, 90*time.Second, cfg.Cache.DefaultTTL)
	assert.Equal(t, 42, cfg.Cache.TierCapacities.Primary)
	// Untouched defaults survive the file layer.
	assert.Equal(t, "logistics-client/0.1.0", cfg.Client.UserAgent)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, `
client:
  base_url: https://file.fleet.example
`)
	t.Setenv("FLEET_CLIENT__BASE_URL", "https://env.fleet.example")
	t.Setenv("FLEET_LOG__LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://env.fleet.example", cfg.Client.BaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidTTLPattern(t *testing.T) {
	path := writeConfigFile(t, `
cache:
  ttl_rules:
    - pattern: "([unclosed"
      ttl: 1m
`)

	_, err := Load(path)
	assert.ErrorContains(t, err, "invalid ttl pattern")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing base url", func(c *Config) { c.Client.BaseURL = "" }, "base_url"},
		{"missing user agent", func(c *Config) { c.Client.UserAgent = "" }, "user_agent"},
		{
			"bad no-cache pattern",
			func(c *Config) { c.Cache.NoCachePatterns = append(c.Cache.NoCachePatterns, "([") },
			"no-cache pattern",
		},
		{
			"non-positive rule ttl",
			func(c *Config) { c.Cache.TTLRules = []TTLRuleConfig{{Pattern: "^/x", TTL: 0}} },
			"non-positive ttl",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.wantErr)
		})
	}
}

func TestCachePolicy(t *testing.T) {
	cfg := Default()
	cfg.Cache.TTLRules = []TTLRuleConfig{
		{Pattern: `^/deliveries`, TTL: time.Minute},
	}
	cfg.Cache.NoCachePatterns = []string{`^/auth`}
	cfg.Cache.CacheableStatuses = []int{200}
	cfg.Cache.DefaultTTL = 2 * time.Minute

	policy, err := cfg.CachePolicy()
	require.NoError(t, err)

	assert.Equal(t, time.Minute, policy.TTLFor("/deliveries"))
	assert.Equal(t, 2*time.Minute, policy.TTLFor("/unmatched"))
	assert.True(t, policy.CacheableStatuses[200])
	assert.False(t, policy.Cacheable("/auth/session", cache.RequestOptions{}))
	assert.True(t, policy.Cacheable("/deliveries", cache.RequestOptions{}))
}

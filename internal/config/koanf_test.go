// Feedline - Feed Ranking Delivery Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedline

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestDefaultConfig verifies that defaultConfig() returns proper defaults
func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()

	if cfg.Breaker.FailureThreshold != 5 {
		t.Errorf("Breaker.FailureThreshold = %d, want 5", cfg.Breaker.FailureThreshold)
	}
	if cfg.Breaker.ResetTimeout != 60*time.Second {
		t.Errorf("Breaker.ResetTimeout = %v, want 60s", cfg.Breaker.ResetTimeout)
	}
	if cfg.Stampede.Threshold != 10 {
		t.Errorf("Stampede.Threshold = %d, want 10", cfg.Stampede.Threshold)
	}
	if cfg.Monitor.SampleCapacity != 1000 {
		t.Errorf("Monitor.SampleCapacity = %d, want 1000", cfg.Monitor.SampleCapacity)
	}
	if cfg.Monitor.MaxAvgLatency != 500*time.Millisecond {
		t.Errorf("Monitor.MaxAvgLatency = %v, want 500ms", cfg.Monitor.MaxAvgLatency)
	}
	if cfg.Monitor.MaxP99Latency != 2*time.Second {
		t.Errorf("Monitor.MaxP99Latency = %v, want 2s", cfg.Monitor.MaxP99Latency)
	}
	if cfg.Monitor.MinCacheHitRate != 0.70 {
		t.Errorf("Monitor.MinCacheHitRate = %v, want 0.70", cfg.Monitor.MinCacheHitRate)
	}
	if cfg.Monitor.MaxErrorRate != 0.05 {
		t.Errorf("Monitor.MaxErrorRate = %v, want 0.05", cfg.Monitor.MaxErrorRate)
	}
	if cfg.Cache.RedisURL != "" {
		t.Errorf("Cache.RedisURL should be empty by default, got %q", cfg.Cache.RedisURL)
	}
	if cfg.Cache.OpTimeout != 250*time.Millisecond {
		t.Errorf("Cache.OpTimeout = %v, want 250ms", cfg.Cache.OpTimeout)
	}
	if cfg.Feed.MaxLimit != 50 {
		t.Errorf("Feed.MaxLimit = %d, want 50", cfg.Feed.MaxLimit)
	}
	if cfg.Feed.MaxPage != 1000 {
		t.Errorf("Feed.MaxPage = %d, want 1000", cfg.Feed.MaxPage)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

func TestEnvTransformFunc(t *testing.T) {
	t.Parallel()

	tests := []struct {
		env  string
		want string
	}{
		{"HTTP_PORT", "server.port"},
		{"LOG_LEVEL", "logging.level"},
		{"DUCKDB_PATH", "database.path"},
		{"CACHE_REDIS_URL", "cache.redis_url"},
		{"CACHE_REDIS_PASSWORD", "cache.redis_password"},
		{"BREAKER_THRESHOLD", "breaker.failure_threshold"},
		{"MONITOR_MAX_P99", "monitor.max_p99_latency"},
		{"FEED_MAX_LIMIT", "feed.max_limit"},
		{"FEED_MAX_PAGE", "feed.max_page"},
		{"MONITOR_ALERT_INTERVAL", "monitor.alert_interval"},
		{"FEED_SOMETHING_NEW", "feed.something_new"},
		{"PATH", ""},
		{"HOME", ""},
		{"RANDOM_VARIABLE", ""},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			t.Parallel()
			if got := envTransformFunc(tt.env); got != tt.want {
				t.Errorf("envTransformFunc(%q) = %q, want %q", tt.env, got, tt.want)
			}
		})
	}
}

func TestFindConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 1234\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv(ConfigPathEnvVar, path)
	if got := findConfigFile(); got != path {
		t.Errorf("findConfigFile() = %q, want %q", got, path)
	}

	t.Setenv(ConfigPathEnvVar, filepath.Join(dir, "missing.yaml"))
	if got := findConfigFile(); got != "" {
		t.Errorf("findConfigFile() with missing file = %q, want empty", got)
	}
}

// TestLoadWithKoanfEnvVars tests loading configuration from environment variables
func TestLoadWithKoanfEnvVars(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, "")
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("CACHE_REDIS_URL", "rediss://cache.example.com:6380")
	t.Setenv("CACHE_REDIS_PASSWORD", "s3cret")
	t.Setenv("CACHE_FEED_TTL", "90s")
	t.Setenv("BREAKER_THRESHOLD", "3")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.Cache.RedisURL != "rediss://cache.example.com:6380" {
		t.Errorf("Cache.RedisURL = %q", cfg.Cache.RedisURL)
	}
	if cfg.Cache.RedisPassword != "s3cret" {
		t.Errorf("Cache.RedisPassword = %q, want s3cret", cfg.Cache.RedisPassword)
	}
	if cfg.Cache.FeedTTL != 90*time.Second {
		t.Errorf("Cache.FeedTTL = %v, want 90s", cfg.Cache.FeedTTL)
	}
	if cfg.Breaker.FailureThreshold != 3 {
		t.Errorf("Breaker.FailureThreshold = %d, want 3", cfg.Breaker.FailureThreshold)
	}

	// Defaults still apply for unset values
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want 0.0.0.0 (default)", cfg.Server.Host)
	}
	if cfg.Cache.DegradedTTL != 30*time.Second {
		t.Errorf("Cache.DegradedTTL = %v, want 30s (default)", cfg.Cache.DegradedTTL)
	}
}

// TestLoadWithKoanfEnvOverridesFile tests that env vars override config file
func TestLoadWithKoanfEnvOverridesFile(t *testing.T) {
	configContent := `
server:
  port: 8888
  host: "127.0.0.1"

cache:
  backend: memory
  degraded_ttl: 10s

logging:
  level: "warn"
`
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(configContent), 0o600); err != nil {
		t.Fatalf("Failed to create config file: %v", err)
	}

	t.Setenv(ConfigPathEnvVar, configPath)
	t.Setenv("HTTP_PORT", "9999")
	t.Setenv("DUCKDB_PATH", "/custom/feed.duckdb")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	// From file
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Server.Host = %q, want 127.0.0.1 (from file)", cfg.Server.Host)
	}
	if cfg.Cache.Backend != CacheBackendMemory {
		t.Errorf("Cache.Backend = %q, want memory (from file)", cfg.Cache.Backend)
	}
	if cfg.Cache.DegradedTTL != 10*time.Second {
		t.Errorf("Cache.DegradedTTL = %v, want 10s (from file)", cfg.Cache.DegradedTTL)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want warn (from file)", cfg.Logging.Level)
	}

	// Env wins over file and defaults
	if cfg.Server.Port != 9999 {
		t.Errorf("Server.Port = %d, want 9999 (env override)", cfg.Server.Port)
	}
	if cfg.Database.Path != "/custom/feed.duckdb" {
		t.Errorf("Database.Path = %q, want /custom/feed.duckdb (env override)", cfg.Database.Path)
	}
}

// TestLoadWithKoanfValidation tests that invalid values are rejected
func TestLoadWithKoanfValidation(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		errMsg  string
	}{
		{
			name:    "invalid cache backend",
			envVars: map[string]string{"CACHE_BACKEND": "memcached"},
			errMsg:  "cache.backend",
		},
		{
			name:    "redis url with wrong scheme",
			envVars: map[string]string{"CACHE_REDIS_URL": "https://cache.example.com"},
			errMsg:  "cache.redis_url",
		},
		{
			name:    "zero breaker threshold",
			envVars: map[string]string{"BREAKER_THRESHOLD": "0"},
			errMsg:  "breaker.failure_threshold",
		},
		{
			name:    "hit rate out of range",
			envVars: map[string]string{"MONITOR_MIN_HIT_RATE": "1.5"},
			errMsg:  "monitor.min_cache_hit_rate",
		},
		{
			name:    "invalid log level",
			envVars: map[string]string{"LOG_LEVEL": "verbose"},
			errMsg:  "logging.level",
		},
		{
			name:    "zero max page",
			envVars: map[string]string{"FEED_MAX_PAGE": "0"},
			errMsg:  "feed.max_page",
		},
		{
			name:    "port out of range",
			envVars: map[string]string{"HTTP_PORT": "70000"},
			errMsg:  "server.port",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(ConfigPathEnvVar, "")
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			_, err := LoadWithKoanf()
			if err == nil {
				t.Fatalf("LoadWithKoanf() expected error containing %q", tt.errMsg)
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("error = %v, want it to mention %q", err, tt.errMsg)
			}
		})
	}
}

func TestServerConfigAddr(t *testing.T) {
	t.Parallel()

	s := ServerConfig{Host: "127.0.0.1", Port: 8470}
	if got := s.Addr(); got != "127.0.0.1:8470" {
		t.Errorf("Addr() = %q, want 127.0.0.1:8470", got)
	}
}

// Feedline - Feed Ranking Delivery Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedline

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/feedline/config.yaml",
	"/etc/feedline/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all default values.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8470,
			Host:            "0.0.0.0",
			Timeout:         30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RateLimitReqs:   300,
			RateLimitWindow: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Database: DatabaseConfig{
			Path:      "/data/feedline.duckdb",
			MaxMemory: "1GB",
			Threads:   0,
		},
		Cache: CacheConfig{
			Backend:       CacheBackendRedis,
			RedisURL:      "", // unset = cache unavailable, pipeline still serves
			OpTimeout:     250 * time.Millisecond,
			RetryBackoff:  5 * time.Second,
			BadgerPath:    "",
			SweepInterval: time.Minute,
			FeedTTL:       5 * time.Minute,
			DegradedTTL:   30 * time.Second,
			InterestTTL:   15 * time.Minute,
		},
		Breaker: BreakerConfig{
			FailureThreshold: 5,
			ResetTimeout:     60 * time.Second,
		},
		Stampede: StampedeConfig{
			Threshold: 10,
		},
		Monitor: MonitorConfig{
			SampleCapacity:  1000,
			MaxAvgLatency:   500 * time.Millisecond,
			MaxP99Latency:   2 * time.Second,
			MinCacheHitRate: 0.70,
			MaxErrorRate:    0.05,
			MaxStampedes:    10,
			StampedeWindow:  5 * time.Minute,
			MinRequests:     100,
			AlertInterval:   time.Minute,
		},
		Feed: FeedConfig{
			MaxLimit:          50,
			MaxPage:           1000,
			CandidateWindow:   7 * 24 * time.Hour,
			MaxCandidates:     500,
			InteractionWindow: 30 * 24 * time.Hour,
			MaxInteractions:   1000,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: Built-in sensible defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any setting
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// envMappings maps environment variable names (lowercased) to koanf paths.
var envMappings = map[string]string{
	// Server mappings
	"http_port":             "server.port",
	"http_host":             "server.host",
	"http_timeout":          "server.timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"rate_limit_requests":   "server.rate_limit_reqs",
	"rate_limit_window":     "server.rate_limit_window",
	"disable_rate_limit":    "server.rate_limit_disabled",

	// Logging mappings
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	// Database mappings
	"duckdb_path":       "database.path",
	"duckdb_max_memory": "database.max_memory",
	"duckdb_threads":    "database.threads",
	"seed_demo_data":    "database.seed_demo_data",

	// Cache mappings
	"cache_backend":        "cache.backend",
	"cache_redis_url":      "cache.redis_url",
	"cache_redis_password": "cache.redis_password",
	"cache_op_timeout":     "cache.op_timeout",
	"cache_retry_backoff":  "cache.retry_backoff",
	"cache_badger_path":    "cache.badger_path",
	"cache_sweep_interval": "cache.sweep_interval",
	"cache_feed_ttl":       "cache.feed_ttl",
	"cache_degraded_ttl":   "cache.degraded_ttl",
	"cache_interest_ttl":   "cache.interest_ttl",

	// Breaker and stampede mappings
	"breaker_threshold":     "breaker.failure_threshold",
	"breaker_reset_timeout": "breaker.reset_timeout",
	"stampede_threshold":    "stampede.threshold",

	// Monitor mappings
	"monitor_sample_capacity":    "monitor.sample_capacity",
	"monitor_max_avg_latency":    "monitor.max_avg_latency",
	"monitor_max_p99":            "monitor.max_p99_latency",
	"monitor_min_hit_rate":       "monitor.min_cache_hit_rate",
	"monitor_max_error_rate":     "monitor.max_error_rate",
	"monitor_max_stampedes":      "monitor.max_stampedes",
	"monitor_stampede_window":    "monitor.stampede_window",
	"monitor_min_requests":       "monitor.min_requests",
	"monitor_alert_interval":     "monitor.alert_interval",
	"monitor_alert_only_changes": "monitor.alert_only_changes",

	// Feed mappings
	"feed_max_limit":          "feed.max_limit",
	"feed_max_page":           "feed.max_page",
	"feed_candidate_window":   "feed.candidate_window",
	"feed_max_candidates":     "feed.max_candidates",
	"feed_interaction_window": "feed.interaction_window",
	"feed_max_interactions":   "feed.max_interactions",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - HTTP_PORT -> server.port
//   - CACHE_REDIS_URL -> cache.redis_url
//   - BREAKER_THRESHOLD -> breaker.failure_threshold
//   - FEED_MAX_LIMIT -> feed.max_limit
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}

	// Generic SECTION_FIELD -> section.field for known sections only, so that
	// unrelated variables (PATH, HOME) never land in the config tree.
	section, field, found := strings.Cut(key, "_")
	if !found {
		return ""
	}
	switch section {
	case "server", "logging", "database", "cache", "breaker", "stampede", "monitor", "feed":
		return section + "." + field
	}
	return ""
}

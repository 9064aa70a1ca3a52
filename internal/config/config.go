// Feedline - Feed Ranking Delivery Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedline

package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults
//  2. Config File (config.yaml)
//  3. Environment Variables
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Logging  LoggingConfig  `koanf:"logging"`
	Database DatabaseConfig `koanf:"database"`
	Cache    CacheConfig    `koanf:"cache"`
	Breaker  BreakerConfig  `koanf:"breaker"`
	Stampede StampedeConfig `koanf:"stampede"`
	Monitor  MonitorConfig  `koanf:"monitor"`
	Feed     FeedConfig     `koanf:"feed"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            int           `koanf:"port"`
	Host            string        `koanf:"host"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
	// RateLimitDisabled turns off per-IP limiting (load tests).
	RateLimitDisabled bool `koanf:"rate_limit_disabled"`
}

// Addr returns host:port for http.Server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoggingConfig holds zerolog settings.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	// Default: info
	Level string `koanf:"level"`

	// Format is the output format: json or console.
	// Default: json
	Format string `koanf:"format"`

	// Caller includes caller file and line number in logs.
	// Default: false
	Caller bool `koanf:"caller"`
}

// DatabaseConfig holds DuckDB content store settings
type DatabaseConfig struct {
	// Path is the DuckDB file. Empty opens an in-memory database.
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"` // 0 = DuckDB default
	// SeedDemoData inserts a small set of posts on first start.
	SeedDemoData bool `koanf:"seed_demo_data"`
}

// Cache backends.
const (
	CacheBackendRedis  = "redis"
	CacheBackendBadger = "badger"
	CacheBackendMemory = "memory"
	CacheBackendNone   = "none"
)

// CacheConfig selects and tunes the cache store.
//
// Environment Variables:
//   - CACHE_BACKEND: redis, badger, memory, none (default: redis)
//   - CACHE_REDIS_URL: redis:// or rediss:// endpoint; empty disables the cache
//   - CACHE_REDIS_PASSWORD: overrides any password in the URL
//   - CACHE_OP_TIMEOUT: per-operation timeout (default: 250ms)
//   - CACHE_FEED_TTL: TTL for personalized pages (default: 5m)
//   - CACHE_DEGRADED_TTL: TTL for fallback pages (default: 30s)
type CacheConfig struct {
	Backend       string        `koanf:"backend"`
	RedisURL      string        `koanf:"redis_url"`
	RedisPassword string        `koanf:"redis_password"`
	OpTimeout     time.Duration `koanf:"op_timeout"`
	RetryBackoff  time.Duration `koanf:"retry_backoff"`
	BadgerPath    string        `koanf:"badger_path"`
	SweepInterval time.Duration `koanf:"sweep_interval"`

	FeedTTL     time.Duration `koanf:"feed_ttl"`
	DegradedTTL time.Duration `koanf:"degraded_ttl"`
	InterestTTL time.Duration `koanf:"interest_ttl"`
}

// BreakerConfig applies to each guarded ranking tier.
type BreakerConfig struct {
	FailureThreshold uint32        `koanf:"failure_threshold"`
	ResetTimeout     time.Duration `koanf:"reset_timeout"`
}

// StampedeConfig tunes stampede detection.
type StampedeConfig struct {
	// Threshold is the number of concurrent misses on one key above which a
	// stampede is reported.
	Threshold int `koanf:"threshold"`
}

// MonitorConfig holds health monitor thresholds.
type MonitorConfig struct {
	SampleCapacity   int           `koanf:"sample_capacity"`
	MaxAvgLatency    time.Duration `koanf:"max_avg_latency"`
	MaxP99Latency    time.Duration `koanf:"max_p99_latency"`
	MinCacheHitRate  float64       `koanf:"min_cache_hit_rate"`
	MaxErrorRate     float64       `koanf:"max_error_rate"`
	MaxStampedes     int64         `koanf:"max_stampedes"`
	StampedeWindow   time.Duration `koanf:"stampede_window"`
	MinRequests      int64         `koanf:"min_requests"`
	AlertInterval    time.Duration `koanf:"alert_interval"`
	AlertOnlyChanges bool          `koanf:"alert_only_changes"`
}

// FeedConfig holds orchestrator and ranking settings.
type FeedConfig struct {
	MaxLimit int `koanf:"max_limit"`
	MaxPage  int `koanf:"max_page"`
	// CandidateWindow bounds how far back ranked tiers look for posts.
	CandidateWindow time.Duration `koanf:"candidate_window"`
	MaxCandidates   int           `koanf:"max_candidates"`
	// InteractionWindow bounds the history used for the interest vector.
	InteractionWindow time.Duration `koanf:"interaction_window"`
	MaxInteractions   int           `koanf:"max_interactions"`
}

// Feedline - Feed Ranking Delivery Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedline

package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate checks that all configuration values are usable.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	if err := c.validateBreaker(); err != nil {
		return err
	}
	if err := c.validateMonitor(); err != nil {
		return err
	}
	return c.validateFeed()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive")
	}
	if !c.Server.RateLimitDisabled && (c.Server.RateLimitReqs < 1 || c.Server.RateLimitWindow <= 0) {
		return fmt.Errorf("server.rate_limit_reqs and server.rate_limit_window must be positive when rate limiting is enabled")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be one of trace, debug, info, warn, error, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

func (c *Config) validateCache() error {
	switch c.Cache.Backend {
	case CacheBackendRedis, CacheBackendBadger, CacheBackendMemory, CacheBackendNone:
	default:
		return fmt.Errorf("cache.backend must be one of redis, badger, memory, none, got %q", c.Cache.Backend)
	}

	// An empty Redis URL is allowed: the store degrades to unavailable.
	if c.Cache.Backend == CacheBackendRedis && c.Cache.RedisURL != "" {
		u, err := url.Parse(c.Cache.RedisURL)
		if err != nil {
			return fmt.Errorf("cache.redis_url is invalid: %w", err)
		}
		if u.Scheme != "redis" && u.Scheme != "rediss" {
			return fmt.Errorf("cache.redis_url must use redis:// or rediss://, got %q", u.Scheme)
		}
	}

	if c.Cache.OpTimeout <= 0 {
		return fmt.Errorf("cache.op_timeout must be positive")
	}
	if c.Cache.FeedTTL < 0 || c.Cache.DegradedTTL < 0 || c.Cache.InterestTTL < 0 {
		return fmt.Errorf("cache TTLs must not be negative")
	}
	return nil
}

func (c *Config) validateBreaker() error {
	if c.Breaker.FailureThreshold == 0 {
		return fmt.Errorf("breaker.failure_threshold must be at least 1")
	}
	if c.Breaker.ResetTimeout <= 0 {
		return fmt.Errorf("breaker.reset_timeout must be positive")
	}
	if c.Stampede.Threshold < 1 {
		return fmt.Errorf("stampede.threshold must be at least 1")
	}
	return nil
}

func (c *Config) validateMonitor() error {
	m := c.Monitor
	if m.SampleCapacity < 1 {
		return fmt.Errorf("monitor.sample_capacity must be at least 1")
	}
	if m.MinCacheHitRate < 0 || m.MinCacheHitRate > 1 {
		return fmt.Errorf("monitor.min_cache_hit_rate must be within [0, 1], got %v", m.MinCacheHitRate)
	}
	if m.MaxErrorRate < 0 || m.MaxErrorRate > 1 {
		return fmt.Errorf("monitor.max_error_rate must be within [0, 1], got %v", m.MaxErrorRate)
	}
	if m.StampedeWindow <= 0 || m.AlertInterval <= 0 {
		return fmt.Errorf("monitor.stampede_window and monitor.alert_interval must be positive")
	}
	return nil
}

func (c *Config) validateFeed() error {
	if c.Feed.MaxLimit < 1 {
		return fmt.Errorf("feed.max_limit must be at least 1")
	}
	if c.Feed.MaxPage < 1 {
		return fmt.Errorf("feed.max_page must be at least 1")
	}
	if c.Feed.MaxCandidates < c.Feed.MaxLimit {
		return fmt.Errorf("feed.max_candidates (%d) must be at least feed.max_limit (%d)", c.Feed.MaxCandidates, c.Feed.MaxLimit)
	}
	return nil
}

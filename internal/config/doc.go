// Feedline - Feed Ranking Delivery Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedline

/*
Package config provides centralized configuration management for Feedline.

Configuration is layered with Koanf v2:

 1. Defaults: built-in values from defaultConfig()
 2. Config file: optional YAML (config.yaml, /etc/feedline/config.yaml, or CONFIG_PATH)
 3. Environment variables: override any setting

# Configuration Structure

  - ServerConfig: HTTP listener, timeouts, rate limiting
  - LoggingConfig: zerolog level, format, caller
  - DatabaseConfig: DuckDB content store
  - CacheConfig: cache backend selection, Redis endpoint, TTLs
  - BreakerConfig: failure threshold and reset timeout per guarded tier
  - StampedeConfig: stampede detection threshold
  - MonitorConfig: health thresholds and alert interval
  - FeedConfig: page limit cap and ranking window

# Environment Variables

Variables map onto koanf paths through an explicit table in envTransformFunc:

	HTTP_PORT            server.port
	CACHE_BACKEND        cache.backend
	CACHE_REDIS_URL      cache.redis_url
	CACHE_REDIS_PASSWORD cache.redis_password
	BREAKER_THRESHOLD    breaker.failure_threshold
	MONITOR_MAX_P99      monitor.max_p99_latency

Unknown variables fall back to the generic SECTION_FIELD -> section.field rule.

# Usage

	cfg, err := config.LoadWithKoanf()
	if err != nil {
	    logging.Fatal().Err(err).Msg("Failed to load configuration")
	}
*/
package config

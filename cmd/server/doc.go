// Feedline - Feed Ranking Delivery Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedline

/*
Package main is the entry point for the feedline server.

feedline serves a personalized, ranked feed page per request. Ranking runs
through three tiers (HYBRID, SIMPLIFIED, CHRONOLOGICAL) behind per-tier
circuit breakers, with stampede-protected page caching in front and a health
monitor reporting latency, cache effectiveness and tier usage.

# Application Architecture

	RootSupervisor ("feedline")
	├── cache-layer
	│   └── memory cache sweeper (CACHE_BACKEND=memory only)
	├── monitoring-layer
	│   └── health alert checker
	└── api-layer
	    └── HTTP server

Initialization order:

 1. Configuration: koanf v2 (defaults, config.yaml, environment)
 2. Logging: zerolog, JSON or console
 3. Content store: DuckDB, optionally seeded with demo posts
 4. Cache store: redis, badger, memory or none
 5. Feed pipeline: ranking strategies, health monitor, orchestrator
 6. Supervisor tree and HTTP server

# Configuration

	HTTP_PORT=8470               # HTTP listen port
	LOG_LEVEL=info               # trace, debug, info, warn, error
	LOG_FORMAT=json              # json or console

	DUCKDB_PATH=/data/feedline.duckdb   # empty for in-memory
	SEED_DEMO_DATA=true

	CACHE_BACKEND=redis          # redis, badger, memory, none
	CACHE_REDIS_URL=rediss://default@example.upstash.io:6379
	CACHE_REDIS_PASSWORD=<token>
	CACHE_FEED_TTL=5m
	CACHE_DEGRADED_TTL=30s

	BREAKER_THRESHOLD=5
	BREAKER_RESET_TIMEOUT=60s
	STAMPEDE_THRESHOLD=10

A missing CACHE_REDIS_URL is not an error: the cache reports itself
unavailable and every request computes its page.

# Signal Handling

SIGINT and SIGTERM cancel the root context. The supervisor stops the HTTP
server gracefully, then the database is checkpointed and closed.
*/
package main

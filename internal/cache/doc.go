// Feedline - Feed Ranking Delivery Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedline

/*
Package cache provides the best-effort key/value store used to memoize ranked
feed pages and per-user interest vectors.

A Store never returns errors to its callers. When the backing store is
unreachable or unconfigured, writes are silent no-ops, reads report absence,
Incr returns 0 and IsAvailable reports false. Correctness of the feed pipeline
never depends on the cache, only its latency does.

# Backends

  - redis: shared remote cache (github.com/redis/go-redis/v9). Configured with
    CACHE_REDIS_URL and CACHE_REDIS_PASSWORD. A missing URL yields the
    unavailable store. Each operation runs under a short timeout; after a
    failure the store answers "miss" for a backoff period before retrying.
  - badger: local persistent store (github.com/dgraph-io/badger/v4) with
    native per-entry TTL. An empty path runs badger in memory.
  - memory: in-process map with per-key TTL and a periodic expiry sweep.
  - none: permanently unavailable.

A TTL of zero means the entry never expires.

# Metrics

Every backend records cache_hits_total, cache_misses_total and
cache_errors_total labelled by cache_type.

# Usage

	store, err := cache.New(cache.Options{
	    Backend:   "redis",
	    RedisURL:  os.Getenv("CACHE_REDIS_URL"),
	    OpTimeout: 250 * time.Millisecond,
	})
	store.Set(ctx, "feed:u1:v0:p1:l20", payload, 5*time.Minute)
	if data, ok := store.Get(ctx, "feed:u1:v0:p1:l20"); ok {
	    // use data
	}
*/
package cache

// Feedline - Feed Ranking Delivery Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedline

package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/tomtom215/feedline/internal/logging"
	"github.com/tomtom215/feedline/internal/metrics"
)

// RedisStore is a Store backed by a remote Redis (or Redis-compatible) server.
//
// Every operation runs under opTimeout. A failed operation marks the store
// down for retryBackoff, during which reads miss and writes are dropped
// without touching the network. Errors caused by the caller's own context
// (cancellation or its deadline) never start the backoff.
type RedisStore struct {
	client       *redis.Client
	opTimeout    time.Duration
	retryBackoff time.Duration
	downUntil    atomic.Int64 // unix nanos
	logger       zerolog.Logger
}

// NewRedisStore connects to opts.RedisURL. An empty or unparseable URL
// returns the unavailable store. An unreachable server is not an error: the
// store starts in the backoff state and probes again later.
func NewRedisStore(opts Options) Store {
	logger := logging.WithComponent("cache").With().Str("cache_type", string(TypeRedis)).Logger()

	if opts.RedisURL == "" {
		logger.Warn().Msg("CACHE_REDIS_URL not set, cache is unavailable")
		return Unavailable()
	}

	redisOpts, err := redis.ParseURL(opts.RedisURL)
	if err != nil {
		logger.Warn().Err(err).Msg("Invalid Redis URL, cache is unavailable")
		return Unavailable()
	}
	if opts.RedisPassword != "" {
		redisOpts.Password = opts.RedisPassword
	}
	if opts.OpTimeout <= 0 {
		opts.OpTimeout = defaultOpTimeout
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = defaultRetryBackoff
	}
	redisOpts.DialTimeout = opts.OpTimeout
	redisOpts.ReadTimeout = opts.OpTimeout
	redisOpts.WriteTimeout = opts.OpTimeout
	redisOpts.MaxRetries = -1 // fail open on the first error

	s := &RedisStore{
		client:       redis.NewClient(redisOpts),
		opTimeout:    opts.OpTimeout,
		retryBackoff: opts.RetryBackoff,
		logger:       logger,
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.OpTimeout)
	defer cancel()
	if err := s.client.Ping(ctx).Err(); err != nil {
		s.fail("ping", err)
		logger.Warn().Err(err).Str("addr", redisOpts.Addr).Msg("Redis unreachable at startup, serving without cache")
	} else {
		logger.Info().Str("addr", redisOpts.Addr).Msg("Connected to Redis cache")
	}

	return s
}

// Get returns the value at key, or false on miss, timeout or outage.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool) {
	if !s.IsAvailable() || ctx.Err() != nil {
		metrics.RecordCacheLookup(string(TypeRedis), false)
		return nil, false
	}

	opCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	val, err := s.client.Get(opCtx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.failUnlessAbandoned(ctx, "get", err)
		}
		metrics.RecordCacheLookup(string(TypeRedis), false)
		return nil, false
	}

	metrics.RecordCacheLookup(string(TypeRedis), true)
	return val, true
}

// Set writes value with ttl. Zero ttl persists the key.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if !s.IsAvailable() || ctx.Err() != nil {
		return
	}

	opCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	if err := s.client.Set(opCtx, key, value, clampTTL(ttl)).Err(); err != nil {
		s.failUnlessAbandoned(ctx, "set", err)
	}
}

// Delete removes key.
func (s *RedisStore) Delete(ctx context.Context, key string) {
	if !s.IsAvailable() || ctx.Err() != nil {
		return
	}

	opCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	if err := s.client.Del(opCtx, key).Err(); err != nil {
		s.failUnlessAbandoned(ctx, "delete", err)
	}
}

// Incr runs INCR on key.
func (s *RedisStore) Incr(ctx context.Context, key string) int64 {
	if !s.IsAvailable() || ctx.Err() != nil {
		return 0
	}

	opCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	n, err := s.client.Incr(opCtx, key).Result()
	if err != nil {
		s.failUnlessAbandoned(ctx, "incr", err)
		return 0
	}
	return n
}

// IsAvailable reports false while the store is backing off after a failure.
func (s *RedisStore) IsAvailable() bool {
	return time.Now().UnixNano() >= s.downUntil.Load()
}

// Close closes the client pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// failUnlessAbandoned treats err as an outage only when the caller's context
// is still live. Server errors and the per-operation timeout start the
// backoff; a cancelled or expired caller context does not.
func (s *RedisStore) failUnlessAbandoned(caller context.Context, op string, err error) {
	if caller.Err() != nil {
		s.logger.Debug().Err(err).Str("operation", op).Msg("Cache operation abandoned by caller")
		return
	}
	s.fail(op, err)
}

// fail records an operation error and starts the backoff window.
func (s *RedisStore) fail(op string, err error) {
	metrics.CacheErrors.WithLabelValues(string(TypeRedis), op).Inc()
	s.downUntil.Store(time.Now().Add(s.retryBackoff).UnixNano())
	s.logger.Debug().Err(err).Str("operation", op).Dur("backoff", s.retryBackoff).Msg("Cache operation failed, treating as miss")
}

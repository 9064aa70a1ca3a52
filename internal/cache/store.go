// Feedline - Feed Ranking Delivery Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedline

package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/feedline/internal/logging"
)

// Store is a best-effort key/value store with per-key TTL.
type Store interface {
	// Get returns the value and true when a live entry exists.
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set stores value under key. A zero ttl means no expiration.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)

	// Delete removes key if present.
	Delete(ctx context.Context, key string)

	// Incr atomically increments the integer stored at key (missing = 0)
	// and returns the new value, or 0 when the store is unavailable.
	Incr(ctx context.Context, key string) int64

	// IsAvailable reports whether the backing store is currently usable.
	IsAvailable() bool

	// Close releases backend resources.
	Close() error
}

// Type identifies a backend. It doubles as the cache_type metric label.
type Type string

const (
	TypeRedis  Type = "redis"
	TypeBadger Type = "badger"
	TypeMemory Type = "memory"
	TypeNone   Type = "none"
)

// Options configures New.
type Options struct {
	Backend Type

	// Redis
	RedisURL      string
	RedisPassword string
	OpTimeout     time.Duration
	RetryBackoff  time.Duration

	// Badger. Empty runs in memory.
	BadgerPath string

	// Memory
	SweepInterval time.Duration
}

const (
	defaultOpTimeout     = 250 * time.Millisecond
	defaultRetryBackoff  = 5 * time.Second
	defaultSweepInterval = time.Minute
)

// New builds the configured backend. Only a badger store that cannot be
// opened is reported as an error; an unreachable or unconfigured Redis
// degrades to an unavailable store.
func New(opts Options) (Store, error) {
	if opts.OpTimeout <= 0 {
		opts.OpTimeout = defaultOpTimeout
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = defaultRetryBackoff
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = defaultSweepInterval
	}

	switch opts.Backend {
	case TypeRedis, "":
		return NewRedisStore(opts), nil
	case TypeBadger:
		s, err := NewBadgerStore(opts.BadgerPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open badger cache: %w", err)
		}
		return s, nil
	case TypeMemory:
		return NewMemoryStore(opts.SweepInterval), nil
	case TypeNone:
		logging.Info().Str("component", "cache").Msg("Cache disabled, all lookups will miss")
		return Unavailable(), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", opts.Backend)
	}
}

// clampTTL maps negative TTLs to zero (no expiration).
func clampTTL(ttl time.Duration) time.Duration {
	if ttl < 0 {
		return 0
	}
	return ttl
}

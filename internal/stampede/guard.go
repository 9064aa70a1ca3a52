// Feedline - Feed Ranking Delivery Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedline

// Package stampede coalesces concurrent cache misses for the same key into a
// single computation.
//
// When many requests miss the cache for one key at once, only the first runs
// the expensive compute function. The rest wait for it and receive the same
// bytes (or the same error). Each Guard owns its in-flight calls and
// per-key miss counters, so independent instances never share state.
//
//	guard := stampede.New(10, monitor)
//	get, set := stampede.StoreFuncs(store)
//	page, err := guard.GetOrCompute(ctx, key, rank, get, set, 5*time.Minute)
package stampede

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/feedline/internal/cache"
	"github.com/tomtom215/feedline/internal/logging"
)

// DefaultThreshold is the number of concurrent misses on one key above which
// a stampede is reported.
const DefaultThreshold = 10

// Observer receives cache and stampede signals. The health monitor
// implements it.
type Observer interface {
	RecordCacheHit(hit bool)
	RecordStampede()
}

// ComputeFunc produces the value for a missed key.
type ComputeFunc func(ctx context.Context) ([]byte, error)

// GetFunc reads a cached value.
type GetFunc func(ctx context.Context, key string) ([]byte, bool)

// SetFunc writes a computed value.
type SetFunc func(ctx context.Context, key string, value []byte, ttl time.Duration)

// StoreFuncs adapts a cache.Store to the get and set callbacks.
func StoreFuncs(s cache.Store) (GetFunc, SetFunc) {
	return s.Get, s.Set
}

// missCounter counts callers that missed the cache while one computation
// for the key is in flight.
type missCounter struct {
	n        int
	reported bool
	// active is the number of callers between their miss and their result.
	active int
}

// Guard provides single-flight get-or-compute over a cache.
type Guard struct {
	group     singleflight.Group
	mu        sync.Mutex
	counters  map[string]*missCounter
	threshold int
	observer  Observer
	logger    zerolog.Logger
}

// New creates a Guard. A threshold below 1 uses DefaultThreshold. observer
// may be nil.
func New(threshold int, observer Observer) *Guard {
	if threshold < 1 {
		threshold = DefaultThreshold
	}
	return &Guard{
		counters:  make(map[string]*missCounter),
		threshold: threshold,
		observer:  observer,
		logger:    logging.WithComponent("stampede"),
	}
}

// GetOrCompute returns the cached value for key, or runs compute exactly once
// across all concurrent callers for key and caches its result with ttl.
//
// The cache is read once per call. A compute error is returned to every
// waiting caller and nothing is cached. The computation runs detached from
// the leader's cancellation so that one abandoned request does not fail the
// others; a caller whose ctx ends stops waiting and gets ctx.Err().
func (g *Guard) GetOrCompute(
	ctx context.Context,
	key string,
	compute ComputeFunc,
	get GetFunc,
	set SetFunc,
	ttl time.Duration,
) ([]byte, error) {
	if value, ok := get(ctx, key); ok {
		g.clear(key)
		g.recordHit(true)
		return value, nil
	}

	g.recordHit(false)
	c := g.countMiss(key)
	defer g.release(key, c)

	computeCtx := context.WithoutCancel(ctx)
	ch := g.group.DoChan(key, func() (interface{}, error) {
		defer g.clear(key)

		value, err := compute(computeCtx)
		if err != nil {
			return nil, err
		}
		set(computeCtx, key, value, ttl)
		return value, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		value, _ := res.Val.([]byte)
		return value, nil
	}
}

// Waiters returns the number of callers that missed key during the current
// computation.
func (g *Guard) Waiters(key string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if c, ok := g.counters[key]; ok {
		return c.n
	}
	return 0
}

// countMiss increments the key's counter and reports a stampede the first
// time it exceeds the threshold. The caller must release the returned counter.
func (g *Guard) countMiss(key string) *missCounter {
	g.mu.Lock()
	c, ok := g.counters[key]
	if !ok {
		c = &missCounter{}
		g.counters[key] = c
	}
	c.n++
	c.active++
	report := c.n > g.threshold && !c.reported
	if report {
		c.reported = true
	}
	n := c.n
	g.mu.Unlock()

	if report {
		g.logger.Info().Str("key", key).Int("waiters", n).Int("threshold", g.threshold).Msg("Cache stampede detected")
		if g.observer != nil {
			g.observer.RecordStampede()
		}
	}
	return c
}

// release drops the caller's hold on c. The last caller out removes a counter
// that is still registered, so a miss counted after the leader cleared the key
// does not outlive its request.
func (g *Guard) release(key string, c *missCounter) {
	g.mu.Lock()
	c.active--
	if c.active == 0 && g.counters[key] == c {
		delete(g.counters, key)
	}
	g.mu.Unlock()
}

func (g *Guard) clear(key string) {
	g.mu.Lock()
	delete(g.counters, key)
	g.mu.Unlock()
}

func (g *Guard) recordHit(hit bool) {
	if g.observer != nil {
		g.observer.RecordCacheHit(hit)
	}
}

// GetOrComputeJSON is GetOrCompute for values that round-trip through JSON.
// A cached value that is not valid JSON is treated as a miss.
func GetOrComputeJSON[T any](
	ctx context.Context,
	g *Guard,
	key string,
	compute func(ctx context.Context) (T, error),
	get GetFunc,
	set SetFunc,
	ttl time.Duration,
) (T, error) {
	var zero T

	validGet := func(ctx context.Context, key string) ([]byte, bool) {
		value, ok := get(ctx, key)
		if !ok || !json.Valid(value) {
			return nil, false
		}
		return value, true
	}

	raw, err := g.GetOrCompute(ctx, key, func(ctx context.Context) ([]byte, error) {
		v, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", key, err)
		}
		return data, nil
	}, validGet, set, ttl)
	if err != nil {
		return zero, err
	}

	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return zero, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return out, nil
}

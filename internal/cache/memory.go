// Feedline - Feed Ranking Delivery Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedline

package cache

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/tomtom215/feedline/internal/metrics"
)

// entry is a cached value. A zero expiresAt never expires.
type entry struct {
	value     []byte
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// Stats tracks memory store performance.
type Stats struct {
	Hits        int64
	Misses      int64
	Evictions   int64
	TotalKeys   int64
	LastCleanup time.Time
}

// MemoryStore is a thread-safe in-process Store with per-key TTL.
//
// Expired entries are dropped lazily on Get and in bulk by Serve, which runs
// the sweep on a ticker and is meant to be supervised.
type MemoryStore struct {
	mu       sync.RWMutex
	entries  map[string]entry
	interval time.Duration

	statsMu sync.Mutex
	stats   Stats
}

// NewMemoryStore creates an empty store. sweepInterval controls how often
// Serve removes expired entries.
func NewMemoryStore(sweepInterval time.Duration) *MemoryStore {
	if sweepInterval <= 0 {
		sweepInterval = defaultSweepInterval
	}
	return &MemoryStore{
		entries:  make(map[string]entry),
		interval: sweepInterval,
		stats:    Stats{LastCleanup: time.Now()},
	}
}

// Get returns a copy of the value stored at key.
func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.RLock()
	e, exists := m.entries[key]
	m.mu.RUnlock()

	if !exists {
		m.recordLookup(false)
		return nil, false
	}

	if e.expired(time.Now()) {
		m.mu.Lock()
		// Re-check under the write lock; a concurrent Set may have refreshed it.
		if cur, ok := m.entries[key]; ok && cur.expired(time.Now()) {
			delete(m.entries, key)
			m.recordEvictions(1)
		}
		m.mu.Unlock()
		m.recordLookup(false)
		return nil, false
	}

	m.recordLookup(true)
	return append([]byte(nil), e.value...), true
}

// Set stores a copy of value.
func (m *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	e := entry{value: append([]byte(nil), value...)}
	if ttl = clampTTL(ttl); ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}

	m.mu.Lock()
	m.entries[key] = e
	n := len(m.entries)
	m.mu.Unlock()

	m.setTotalKeys(n)
}

// Delete removes key.
func (m *MemoryStore) Delete(_ context.Context, key string) {
	m.mu.Lock()
	delete(m.entries, key)
	n := len(m.entries)
	m.mu.Unlock()

	m.setTotalKeys(n)
}

// Incr increments the decimal integer stored at key. A missing, expired or
// non-numeric value counts as 0. The entry's expiry is kept.
func (m *MemoryStore) Incr(_ context.Context, key string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	e, exists := m.entries[key]
	if exists && !e.expired(time.Now()) {
		if v, err := strconv.ParseInt(string(e.value), 10, 64); err == nil {
			n = v
		}
	} else {
		e = entry{}
	}
	n++
	e.value = []byte(strconv.FormatInt(n, 10))
	m.entries[key] = e
	return n
}

// IsAvailable always reports true.
func (m *MemoryStore) IsAvailable() bool { return true }

// Close drops all entries.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	m.entries = make(map[string]entry)
	m.mu.Unlock()
	m.setTotalKeys(0)
	return nil
}

// Len returns the number of stored entries, expired or not.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// GetStats returns a snapshot of the store statistics.
func (m *MemoryStore) GetStats() Stats {
	m.statsMu.Lock()
	defer m.statsMu.Unlock()
	return m.stats
}

// Serve runs the expiry sweep until ctx is cancelled. It implements
// suture.Service.
func (m *MemoryStore) Serve(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.sweep()
		}
	}
}

// String implements fmt.Stringer for suture logging.
func (m *MemoryStore) String() string {
	return "memory-cache-sweeper"
}

// sweep removes all expired entries.
func (m *MemoryStore) sweep() {
	now := time.Now()

	m.mu.Lock()
	var evicted int64
	for key, e := range m.entries {
		if e.expired(now) {
			delete(m.entries, key)
			evicted++
		}
	}
	n := len(m.entries)
	m.mu.Unlock()

	m.recordEvictions(evicted)

	m.statsMu.Lock()
	m.stats.TotalKeys = int64(n)
	m.stats.LastCleanup = now
	m.statsMu.Unlock()
	metrics.CacheSize.WithLabelValues(string(TypeMemory)).Set(float64(n))
}

func (m *MemoryStore) recordLookup(hit bool) {
	m.statsMu.Lock()
	if hit {
		m.stats.Hits++
	} else {
		m.stats.Misses++
	}
	m.statsMu.Unlock()
	metrics.RecordCacheLookup(string(TypeMemory), hit)
}

func (m *MemoryStore) recordEvictions(n int64) {
	if n == 0 {
		return
	}
	m.statsMu.Lock()
	m.stats.Evictions += n
	m.statsMu.Unlock()
	metrics.CacheEvictions.WithLabelValues(string(TypeMemory)).Add(float64(n))
}

func (m *MemoryStore) setTotalKeys(n int) {
	m.statsMu.Lock()
	m.stats.TotalKeys = int64(n)
	m.statsMu.Unlock()
}

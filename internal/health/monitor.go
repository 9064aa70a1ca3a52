// Feedline - Feed Ranking Delivery Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedline

// Package health tracks feed pipeline latency, cache effectiveness, error
// rate, stampedes and tier usage, and compares them against alert
// thresholds.
//
// Recording is lock-free for counters and takes a short mutex for the
// latency ring buffer, so it is safe on the request path. Threshold checks
// and export only read, and are meant to run out-of-band (see
// supervisor/services.AlertService).
package health

import (
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tomtom215/feedline/internal/metrics"
)

// DefaultSampleCapacity bounds the latency ring buffer.
const DefaultSampleCapacity = 1000

// Thresholds are the alert limits checked by CheckThresholdsAndAlert.
type Thresholds struct {
	MaxAvgLatency   time.Duration
	MaxP99Latency   time.Duration
	MinCacheHitRate float64
	MaxErrorRate    float64
	// MaxStampedes is the number of stampedes allowed within the window.
	MaxStampedes int64
	// MinRequests gates the hit-rate and error-rate alerts so a freshly
	// started process does not alert on a handful of requests.
	MinRequests int64
}

// DefaultThresholds returns the production alert limits.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MaxAvgLatency:   500 * time.Millisecond,
		MaxP99Latency:   2 * time.Second,
		MinCacheHitRate: 0.70,
		MaxErrorRate:    0.05,
		MaxStampedes:    10,
		MinRequests:     100,
	}
}

// Config configures a Monitor.
type Config struct {
	SampleCapacity int
	StampedeWindow time.Duration
	Thresholds     Thresholds
}

// DefaultConfig returns the default monitor configuration.
func DefaultConfig() Config {
	return Config{
		SampleCapacity: DefaultSampleCapacity,
		StampedeWindow: 5 * time.Minute,
		Thresholds:     DefaultThresholds(),
	}
}

// Metrics is a point-in-time snapshot of the monitor.
type Metrics struct {
	Samples    int
	AvgLatency time.Duration
	P50Latency time.Duration
	P95Latency time.Duration
	P99Latency time.Duration
	MaxLatency time.Duration

	Requests       int64
	Errors         int64
	CacheHits      int64
	CacheMisses    int64
	StampedeEvents int64
	// StampedesInWindow counts stampedes within the configured window.
	StampedesInWindow int64

	CacheHitRate float64
	ErrorRate    float64

	TierUsage map[string]int64
	Since     time.Time
}

// Monitor collects pipeline health signals. All methods are safe for
// concurrent use.
type Monitor struct {
	requests    atomic.Int64
	errors      atomic.Int64
	cacheHits   atomic.Int64
	cacheMisses atomic.Int64
	stampedes   atomic.Int64

	samplesMu sync.Mutex
	samples   []time.Duration
	next      int
	full      bool

	tiersMu sync.Mutex
	tiers   map[string]int64
	since   time.Time

	stampedeWindow *windowCounter
	thresholds     Thresholds
	windowLength   time.Duration
}

// NewMonitor creates a Monitor. Zero fields in cfg take their defaults.
func NewMonitor(cfg Config) *Monitor {
	def := DefaultConfig()
	if cfg.SampleCapacity <= 0 {
		cfg.SampleCapacity = def.SampleCapacity
	}
	if cfg.StampedeWindow <= 0 {
		cfg.StampedeWindow = def.StampedeWindow
	}
	if cfg.Thresholds == (Thresholds{}) {
		cfg.Thresholds = def.Thresholds
	}

	return &Monitor{
		samples:        make([]time.Duration, cfg.SampleCapacity),
		tiers:          make(map[string]int64),
		since:          time.Now(),
		stampedeWindow: newWindowCounter(cfg.StampedeWindow, 10),
		thresholds:     cfg.Thresholds,
		windowLength:   cfg.StampedeWindow,
	}
}

// Thresholds returns the configured alert limits.
func (m *Monitor) Thresholds() Thresholds {
	return m.thresholds
}

// RecordCalculationTime adds a latency sample, dropping the oldest once the
// buffer is full.
func (m *Monitor) RecordCalculationTime(d time.Duration) {
	m.samplesMu.Lock()
	m.samples[m.next] = d
	m.next = (m.next + 1) % len(m.samples)
	if m.next == 0 {
		m.full = true
	}
	m.samplesMu.Unlock()

	metrics.FeedCalculationDuration.Observe(d.Seconds())
}

// RecordCacheHit records a page cache lookup outcome.
func (m *Monitor) RecordCacheHit(hit bool) {
	if hit {
		m.cacheHits.Add(1)
	} else {
		m.cacheMisses.Add(1)
	}
}

// RecordError records a failed pipeline invocation.
func (m *Monitor) RecordError() {
	m.errors.Add(1)
	metrics.FeedErrors.Inc()
}

// RecordRequest records a pipeline invocation.
func (m *Monitor) RecordRequest() {
	m.requests.Add(1)
}

// RecordStampede records a detected cache stampede.
func (m *Monitor) RecordStampede() {
	m.stampedes.Add(1)
	m.stampedeWindow.increment()
	metrics.FeedStampedes.Inc()
}

// RecordTier records which ranking tier served a request.
func (m *Monitor) RecordTier(tier string) {
	m.tiersMu.Lock()
	m.tiers[tier]++
	m.tiersMu.Unlock()

	metrics.FeedRequests.WithLabelValues(tier).Inc()
}

// GetMetrics returns a snapshot. Percentiles are exact over the current
// buffer contents. Rates are 0 when their denominator is 0.
func (m *Monitor) GetMetrics() Metrics {
	snap := Metrics{
		Requests:          m.requests.Load(),
		Errors:            m.errors.Load(),
		CacheHits:         m.cacheHits.Load(),
		CacheMisses:       m.cacheMisses.Load(),
		StampedeEvents:    m.stampedes.Load(),
		StampedesInWindow: m.stampedeWindow.count(),
	}

	if lookups := snap.CacheHits + snap.CacheMisses; lookups > 0 {
		snap.CacheHitRate = float64(snap.CacheHits) / float64(lookups)
	}
	if snap.Requests > 0 {
		snap.ErrorRate = float64(snap.Errors) / float64(snap.Requests)
	}

	sorted := m.sortedSamples()
	snap.Samples = len(sorted)
	if n := len(sorted); n > 0 {
		var sum time.Duration
		for _, d := range sorted {
			sum += d
		}
		snap.AvgLatency = sum / time.Duration(n)
		snap.P50Latency = percentile(sorted, 0.50)
		snap.P95Latency = percentile(sorted, 0.95)
		snap.P99Latency = percentile(sorted, 0.99)
		snap.MaxLatency = sorted[n-1]
	}

	m.tiersMu.Lock()
	snap.TierUsage = make(map[string]int64, len(m.tiers))
	for tier, n := range m.tiers {
		snap.TierUsage[tier] = n
	}
	snap.Since = m.since
	m.tiersMu.Unlock()

	return snap
}

// Reset clears all counters, samples and tier usage. Prometheus counters are
// monotonic and are not affected.
func (m *Monitor) Reset() {
	m.requests.Store(0)
	m.errors.Store(0)
	m.cacheHits.Store(0)
	m.cacheMisses.Store(0)
	m.stampedes.Store(0)
	m.stampedeWindow.reset()

	m.samplesMu.Lock()
	clear(m.samples)
	m.next = 0
	m.full = false
	m.samplesMu.Unlock()

	m.tiersMu.Lock()
	m.tiers = make(map[string]int64)
	m.since = time.Now()
	m.tiersMu.Unlock()
}

// sortedSamples copies the live portion of the ring buffer and sorts it.
func (m *Monitor) sortedSamples() []time.Duration {
	m.samplesMu.Lock()
	n := m.next
	if m.full {
		n = len(m.samples)
	}
	out := make([]time.Duration, n)
	copy(out, m.samples[:n])
	m.samplesMu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// percentile returns the nearest-rank percentile of a sorted slice.
func percentile(sorted []time.Duration, p float64) time.Duration {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	// ceil(p*n)-1, with an epsilon so 0.95*100 does not round up to 96.
	rank := int(math.Ceil(p*float64(n)-1e-9)) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= n {
		rank = n - 1
	}
	return sorted[rank]
}

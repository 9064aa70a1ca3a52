// Feedline - Feed Ranking Delivery Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedline

package health

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// Snapshot is the serializable form of Metrics. Latencies are milliseconds.
type Snapshot struct {
	Timestamp time.Time `json:"timestamp"`
	Since     time.Time `json:"since"`

	Latency LatencySnapshot `json:"latency"`

	Requests          int64   `json:"requests"`
	Errors            int64   `json:"errors"`
	ErrorRate         float64 `json:"error_rate"`
	CacheHits         int64   `json:"cache_hits"`
	CacheMisses       int64   `json:"cache_misses"`
	CacheHitRate      float64 `json:"cache_hit_rate"`
	StampedeEvents    int64   `json:"stampede_events"`
	StampedesInWindow int64   `json:"stampedes_in_window"`

	TierUsage map[string]int64 `json:"tier_usage"`
	Alerts    []string         `json:"alerts"`
}

// LatencySnapshot holds calculation time statistics in milliseconds.
type LatencySnapshot struct {
	Samples int     `json:"samples"`
	AvgMs   float64 `json:"avg_ms"`
	P50Ms   float64 `json:"p50_ms"`
	P95Ms   float64 `json:"p95_ms"`
	P99Ms   float64 `json:"p99_ms"`
	MaxMs   float64 `json:"max_ms"`
}

// Snapshot returns the current metrics and alerts in serializable form.
func (m *Monitor) Snapshot() Snapshot {
	s := m.GetMetrics()
	alerts := messages(evaluate(s, m.thresholds, m.windowLength))
	if alerts == nil {
		alerts = []string{}
	}

	return Snapshot{
		Timestamp: time.Now().UTC(),
		Since:     s.Since.UTC(),
		Latency: LatencySnapshot{
			Samples: s.Samples,
			AvgMs:   ms(s.AvgLatency),
			P50Ms:   ms(s.P50Latency),
			P95Ms:   ms(s.P95Latency),
			P99Ms:   ms(s.P99Latency),
			MaxMs:   ms(s.MaxLatency),
		},
		Requests:          s.Requests,
		Errors:            s.Errors,
		ErrorRate:         s.ErrorRate,
		CacheHits:         s.CacheHits,
		CacheMisses:       s.CacheMisses,
		CacheHitRate:      s.CacheHitRate,
		StampedeEvents:    s.StampedeEvents,
		StampedesInWindow: s.StampedesInWindow,
		TierUsage:         s.TierUsage,
		Alerts:            alerts,
	}
}

// ExportMetrics returns the JSON encoding of Snapshot. It has no side
// effects.
func (m *Monitor) ExportMetrics() ([]byte, error) {
	data, err := json.Marshal(m.Snapshot())
	if err != nil {
		return nil, fmt.Errorf("failed to encode health snapshot: %w", err)
	}
	return data, nil
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

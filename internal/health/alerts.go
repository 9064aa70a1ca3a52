// Feedline - Feed Ranking Delivery Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedline

package health

import (
	"fmt"
	"time"
)

// AlertKind names the threshold an alert breached.
type AlertKind string

const (
	AlertAvgLatency   AlertKind = "avg_latency"
	AlertP99Latency   AlertKind = "p99_latency"
	AlertCacheHitRate AlertKind = "cache_hit_rate"
	AlertErrorRate    AlertKind = "error_rate"
	AlertStampedes    AlertKind = "stampedes"
)

// Alert is one threshold breach. Message carries the live values; Kind is
// stable across checks.
type Alert struct {
	Kind    AlertKind
	Message string
}

// CheckAlerts compares the current snapshot against the configured
// thresholds and returns one Alert per breach, in a fixed kind order.
func (m *Monitor) CheckAlerts() []Alert {
	return evaluate(m.GetMetrics(), m.thresholds, m.windowLength)
}

// CheckThresholdsAndAlert returns the messages of CheckAlerts. It never
// blocks on the request path and never fails.
func (m *Monitor) CheckThresholdsAndAlert() []string {
	return messages(m.CheckAlerts())
}

func messages(alerts []Alert) []string {
	if alerts == nil {
		return nil
	}
	out := make([]string, len(alerts))
	for i, a := range alerts {
		out[i] = a.Message
	}
	return out
}

func evaluate(s Metrics, t Thresholds, window time.Duration) []Alert {
	var alerts []Alert
	add := func(kind AlertKind, format string, args ...interface{}) {
		alerts = append(alerts, Alert{Kind: kind, Message: fmt.Sprintf(format, args...)})
	}

	if s.Samples > 0 {
		if t.MaxAvgLatency > 0 && s.AvgLatency > t.MaxAvgLatency {
			add(AlertAvgLatency, "High average calculation time: %s (threshold %s)",
				roundMs(s.AvgLatency), t.MaxAvgLatency)
		}
		if t.MaxP99Latency > 0 && s.P99Latency > t.MaxP99Latency {
			add(AlertP99Latency, "High p99 calculation time: %s (threshold %s)",
				roundMs(s.P99Latency), t.MaxP99Latency)
		}
	}

	if lookups := s.CacheHits + s.CacheMisses; lookups >= t.MinRequests && lookups > 0 {
		if s.CacheHitRate < t.MinCacheHitRate {
			add(AlertCacheHitRate, "Low cache hit rate: %.1f%% (threshold %.1f%%)",
				s.CacheHitRate*100, t.MinCacheHitRate*100)
		}
	}

	if s.Requests >= t.MinRequests && s.Requests > 0 {
		if s.ErrorRate > t.MaxErrorRate {
			add(AlertErrorRate, "High error rate: %.1f%% (threshold %.1f%%)",
				s.ErrorRate*100, t.MaxErrorRate*100)
		}
	}

	if t.MaxStampedes > 0 && s.StampedesInWindow > t.MaxStampedes {
		add(AlertStampedes, "Frequent cache stampedes: %d in the last %s (threshold %d)",
			s.StampedesInWindow, window, t.MaxStampedes)
	}

	return alerts
}

func roundMs(d time.Duration) time.Duration {
	return d.Round(time.Millisecond)
}

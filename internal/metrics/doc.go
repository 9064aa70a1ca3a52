// Feedline - Feed Ranking Delivery Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedline

/*
Package metrics defines the Prometheus collectors exported by Feedline.

All collectors are registered with the default registry through promauto and
exposed at /metrics by the API router.

# Metric Families

Content store:
  - duckdb_query_duration_seconds{operation,table}
  - duckdb_query_errors_total{operation,table,error_type}

HTTP API:
  - api_requests_total{method,endpoint,status_code}
  - api_request_duration_seconds{method,endpoint}
  - api_active_requests
  - api_rate_limit_hits_total{endpoint}

Cache store (cache_type is redis, badger, memory or none):
  - cache_hits_total, cache_misses_total, cache_errors_total
  - cache_entries, cache_evictions_total

Circuit breakers (name is the guarded tier):
  - circuit_breaker_state (0=closed, 1=half-open, 2=open)
  - circuit_breaker_requests_total{name,result}
  - circuit_breaker_consecutive_failures
  - circuit_breaker_state_transitions_total{name,from_state,to_state}

Feed pipeline:
  - feed_requests_total{tier}
  - feed_calculation_duration_seconds
  - feed_strategy_failures_total{tier}
  - feed_errors_total
  - feed_stampedes_total
  - feed_health_alerts_active

The health monitor keeps its own exact percentile buffer; the histograms here
are for long-term scraping and are not used for alerting.
*/
package metrics

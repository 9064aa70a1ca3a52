// Feedline - Feed Ranking Delivery Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedline

/*
Package middleware provides HTTP middleware for the feed API.

All middleware has the chi signature func(http.Handler) http.Handler and is
installed with r.Use:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)

Key Components:

  - RequestID: propagates or generates X-Request-ID and stores it, with a
    fresh correlation ID, in the logging context
  - PrometheusMetrics: records api_requests_total and
    api_request_duration_seconds labeled by the chi route pattern, so path
    parameters such as user IDs never become label values
*/
package middleware

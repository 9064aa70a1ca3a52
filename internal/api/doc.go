// Feedline - Feed Ranking Delivery Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedline

/*
Package api exposes the feed pipeline over HTTP using the chi router.

Routes:

	GET  /api/v1/feed?user_id=&page=&limit=     ranked feed page
	GET  /api/v1/feed/health                    health monitor snapshot
	GET  /api/v1/feed/alerts                    current threshold alerts
	GET  /api/v1/feed/breakers                  per-tier breaker states
	POST /api/v1/feed/health/reset              reset monitor counters
	POST /api/v1/feed/users/{userID}/invalidate drop a user's cached pages
	GET  /health/live                           liveness probe
	GET  /metrics                               Prometheus exposition

Every JSON endpoint except /api/v1/feed/health writes the APIResponse envelope.
A feed request that every ranking tier failed is answered with 503
SERVICE_UNAVAILABLE and a generic message; internal error text is logged,
never returned.

Middleware, outermost first: request ID, real IP, panic recovery,
compression, per-IP rate limiting (go-chi/httprate), Prometheus metrics.
*/
package api

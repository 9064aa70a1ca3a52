// Feedline - Feed Ranking Delivery Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedline

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/feedline/internal/metrics"
	"github.com/tomtom215/feedline/internal/middleware"
)

// RateLimitConfig configures per-IP rate limiting.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
	Disabled bool
}

// DefaultRateLimitConfig allows 100 requests per minute per IP.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Requests: 100,
		Window:   time.Minute,
	}
}

// Router wires the handlers into a chi mux.
type Router struct {
	handler   *Handler
	rateLimit RateLimitConfig
}

// NewRouter creates a Router.
func NewRouter(handler *Handler, rateLimit RateLimitConfig) *Router {
	if rateLimit.Requests <= 0 || rateLimit.Window <= 0 {
		defaults := DefaultRateLimitConfig()
		rateLimit.Requests, rateLimit.Window = defaults.Requests, defaults.Window
	}
	return &Router{handler: handler, rateLimit: rateLimit}
}

// Setup builds the HTTP handler.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Compress(5, "application/json"))
	r.Use(middleware.PrometheusMetrics)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).NotFound("Resource not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).MethodNotAllowed()
	})

	r.Get("/health/live", router.handler.HealthLive)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1/feed", func(r chi.Router) {
		r.Use(router.limiter("/api/v1/feed"))

		r.Get("/", router.handler.Feed)
		r.Get("/health", router.handler.FeedHealth)
		r.Post("/health/reset", router.handler.ResetHealth)
		r.Get("/alerts", router.handler.FeedAlerts)
		r.Get("/breakers", router.handler.BreakerStates)
		r.Post("/users/{userID}/invalidate", router.handler.InvalidateUser)
	})

	return r
}

// limiter returns a per-IP rate limiter. The label names the route group
// because the route pattern is not resolved yet when the limiter runs.
func (router *Router) limiter(label string) func(http.Handler) http.Handler {
	if router.rateLimit.Disabled {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	return httprate.Limit(
		router.rateLimit.Requests,
		router.rateLimit.Window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			metrics.APIRateLimitHits.WithLabelValues(label).Inc()
			NewResponseWriter(w, r).TooManyRequests("Rate limit exceeded, please retry later")
		}),
	)
}

// Feedline - Feed Ranking Delivery Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedline

package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/feedline/internal/breaker"
	"github.com/tomtom215/feedline/internal/feed"
	"github.com/tomtom215/feedline/internal/health"
	"github.com/tomtom215/feedline/internal/logging"
	"github.com/tomtom215/feedline/internal/validation"
)

// DefaultPageLimit is used when the limit query parameter is absent.
const DefaultPageLimit = 20

// FeedService is the orchestrator surface the handlers need.
type FeedService interface {
	GetFeed(ctx context.Context, userID string, page, limit int) (*feed.FeedResult, error)
	InvalidateUser(ctx context.Context, userID string)
	BreakerStates() map[feed.Tier]breaker.State
}

// Handler serves the feed API.
type Handler struct {
	feed      FeedService
	monitor   *health.Monitor
	startTime time.Time
}

// NewHandler creates a Handler. The monitor backs the health and alert
// endpoints and should be the one the orchestrator reports to.
func NewHandler(svc FeedService, monitor *health.Monitor) *Handler {
	if monitor == nil {
		monitor = health.NewMonitor(health.DefaultConfig())
	}
	return &Handler{
		feed:      svc,
		monitor:   monitor,
		startTime: time.Now(),
	}
}

// feedQuery holds the validated query parameters of GET /api/v1/feed.
type feedQuery struct {
	UserID string `query:"user_id" validate:"required,userid"`
	Page   int    `query:"page" validate:"min=1,max=1000"`
	Limit  int    `query:"limit" validate:"min=1,max=50"`
}

type userParam struct {
	UserID string `json:"user_id" validate:"required,userid"`
}

// Feed handles GET /api/v1/feed.
func (h *Handler) Feed(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	q, err := parseFeedQuery(r)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	if verr := validation.ValidateStruct(&q); verr != nil {
		apiErr := verr.ToAPIError()
		rw.ValidationError(apiErr.Message, apiErr.Details)
		return
	}

	result, err := h.feed.GetFeed(r.Context(), q.UserID, q.Page, q.Limit)
	if err != nil {
		logger := logging.Ctx(r.Context())
		if errors.Is(err, feed.ErrServiceUnavailable) {
			logger.Error().Err(err).Str("user_id", q.UserID).Msg("Feed unavailable")
			rw.ServiceUnavailable("Feed is temporarily unavailable, please retry shortly")
			return
		}
		logger.Error().Err(err).Str("user_id", q.UserID).Msg("Feed request failed")
		rw.InternalError("An internal error occurred")
		return
	}

	rw.SuccessWithPagination(result, &PaginationMeta{
		Page:    result.Page,
		Limit:   result.Limit,
		Count:   len(result.Items),
		HasMore: len(result.Items) == result.Limit,
	})
}

func parseFeedQuery(r *http.Request) (feedQuery, error) {
	values := r.URL.Query()
	q := feedQuery{
		UserID: values.Get("user_id"),
		Page:   1,
		Limit:  DefaultPageLimit,
	}

	if raw := values.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			return q, errors.New("page must be an integer")
		}
		q.Page = page
	}
	if raw := values.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return q, errors.New("limit must be an integer")
		}
		q.Limit = limit
	}
	return q, nil
}

// FeedHealth handles GET /api/v1/feed/health with the monitor's JSON export.
func (h *Handler) FeedHealth(w http.ResponseWriter, r *http.Request) {
	data, err := h.monitor.ExportMetrics()
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to export health metrics")
		NewResponseWriter(w, r).InternalError("Failed to export health metrics")
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		logging.Ctx(r.Context()).Debug().Err(err).Msg("Failed to write health export")
	}
}

// FeedAlerts handles GET /api/v1/feed/alerts.
func (h *Handler) FeedAlerts(w http.ResponseWriter, r *http.Request) {
	alerts := h.monitor.CheckThresholdsAndAlert()
	if alerts == nil {
		alerts = []string{}
	}
	WriteSuccess(w, r, map[string]interface{}{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

// BreakerStates handles GET /api/v1/feed/breakers.
func (h *Handler) BreakerStates(w http.ResponseWriter, r *http.Request) {
	states := h.feed.BreakerStates()
	out := make(map[string]string, len(states))
	for tier, state := range states {
		out[string(tier)] = state.String()
	}
	WriteSuccess(w, r, out)
}

// ResetHealth handles POST /api/v1/feed/health/reset.
func (h *Handler) ResetHealth(w http.ResponseWriter, r *http.Request) {
	h.monitor.Reset()
	logging.Ctx(r.Context()).Info().Msg("Health monitor reset by operator")
	WriteSuccess(w, r, map[string]interface{}{"reset": true})
}

// InvalidateUser handles POST /api/v1/feed/users/{userID}/invalidate.
func (h *Handler) InvalidateUser(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	p := userParam{UserID: chi.URLParam(r, "userID")}
	if verr := validation.ValidateStruct(&p); verr != nil {
		apiErr := verr.ToAPIError()
		rw.ValidationError(apiErr.Message, apiErr.Details)
		return
	}

	h.feed.InvalidateUser(r.Context(), p.UserID)
	logging.Ctx(r.Context()).Debug().Str("user_id", p.UserID).Msg("Invalidated cached feed pages")
	rw.Success(map[string]interface{}{
		"user_id":     p.UserID,
		"invalidated": true,
	})
}

// HealthLive handles GET /health/live.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, r, map[string]interface{}{
		"status":         "alive",
		"uptime_seconds": time.Since(h.startTime).Seconds(),
	})
}

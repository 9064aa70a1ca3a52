// Feedline - Feed Ranking Delivery Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedline

package services

import (
	"context"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/feedline/internal/health"
	"github.com/tomtom215/feedline/internal/metrics"
)

// DefaultAlertInterval is how often thresholds are evaluated.
const DefaultAlertInterval = 30 * time.Second

// AlertSource evaluates health thresholds. *health.Monitor satisfies it.
type AlertSource interface {
	CheckAlerts() []health.Alert
}

// AlertServiceConfig holds configuration for the alert checker.
type AlertServiceConfig struct {
	// Interval between threshold checks. Default: 30s
	Interval time.Duration

	// OnlyChanges logs alerts only when the set of breached thresholds
	// differs from the previous check. Changing values within an already
	// breached threshold are not a change. The gauge is updated on every
	// check either way.
	OnlyChanges bool
}

// AlertService periodically checks health thresholds, logs active alerts
// at WARN and exports their count as feed_health_alerts_active.
type AlertService struct {
	source AlertSource
	config AlertServiceConfig
	logger zerolog.Logger
	name   string
	last   []health.AlertKind
}

// NewAlertService creates an alert checker for source.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewAlertService(source AlertSource, cfg AlertServiceConfig, logger zerolog.Logger) *AlertService {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultAlertInterval
	}
	return &AlertService{
		source: source,
		config: cfg,
		logger: logger.With().Str("service", "health-alerts").Logger(),
		name:   "health-alert-checker",
	}
}

// Serve implements suture.Service.
func (s *AlertService) Serve(ctx context.Context) error {
	s.logger.Info().
		Dur("interval", s.config.Interval).
		Bool("only_changes", s.config.OnlyChanges).
		Msg("health alert checker starting")

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("health alert checker shutting down")
			return ctx.Err()

		case <-ticker.C:
			s.check()
		}
	}
}

// check runs one evaluation and returns the active alerts.
func (s *AlertService) check() []health.Alert {
	alerts := s.source.CheckAlerts()
	metrics.FeedHealthAlertsActive.Set(float64(len(alerts)))

	kinds := make([]health.AlertKind, len(alerts))
	for i, alert := range alerts {
		kinds[i] = alert.Kind
	}

	if s.config.OnlyChanges && slices.Equal(kinds, s.last) {
		return alerts
	}

	for _, alert := range alerts {
		s.logger.Warn().Str("kind", string(alert.Kind)).Str("alert", alert.Message).Msg("feed health alert")
	}
	if len(alerts) == 0 && len(s.last) > 0 {
		s.logger.Info().Int("previous", len(s.last)).Msg("feed health alerts cleared")
	}

	s.last = kinds
	return alerts
}

// String implements fmt.Stringer for suture's event log.
func (s *AlertService) String() string {
	return s.name
}

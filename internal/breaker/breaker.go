// Feedline - Feed Ranking Delivery Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedline

// Package breaker wraps sony/gobreaker with a primary/fallback contract.
//
// A Breaker counts consecutive failures of its primary. Once the count
// reaches the threshold the breaker opens and callers go straight to the
// fallback for the reset timeout. After that a single probe call is let
// through (half-open): success closes the breaker, failure reopens it.
//
// The breaker reads the wall clock through gobreaker. Tests scale the reset
// timeout down instead of faking time.
package breaker

import (
	"errors"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/feedline/internal/logging"
	"github.com/tomtom215/feedline/internal/metrics"
)

// ErrOpen is returned by Try when the primary was not called because the
// breaker is open or its half-open probe slot is taken.
var ErrOpen = errors.New("circuit breaker is open")

const (
	DefaultFailureThreshold uint32 = 5
	DefaultResetTimeout            = 60 * time.Second
)

// State is the breaker state.
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

// String returns the lower-case state name used in logs and metrics.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Settings configures a Breaker.
type Settings struct {
	// Name labels logs and metrics.
	Name string

	// FailureThreshold is the number of consecutive primary failures that
	// opens the breaker. Default: 5
	FailureThreshold uint32

	// ResetTimeout is how long the breaker stays open before probing.
	// Default: 60s
	ResetTimeout time.Duration
}

// Breaker guards a primary operation returning T.
type Breaker[T any] struct {
	cb     *gobreaker.CircuitBreaker[T]
	name   string
	logger zerolog.Logger
}

// New creates a closed Breaker.
func New[T any](s Settings) *Breaker[T] {
	if s.FailureThreshold == 0 {
		s.FailureThreshold = DefaultFailureThreshold
	}
	if s.ResetTimeout <= 0 {
		s.ResetTimeout = DefaultResetTimeout
	}

	logger := logging.WithComponent("breaker").With().Str("breaker", s.Name).Logger()
	threshold := s.FailureThreshold

	metrics.CircuitBreakerState.WithLabelValues(s.Name).Set(0)
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(s.Name).Set(0)

	cb := gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: 1,               // exactly one probe while half-open
		Interval:    0,               // never clear counts while closed; successes reset the streak
		Timeout:     s.ResetTimeout, // open -> half-open

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromState, toState := fromGobreaker(from), fromGobreaker(to)

			event := logger.Info()
			if toState == StateOpen {
				event = logger.Warn()
			}
			event.Str("from", fromState.String()).Str("to", toState.String()).Msg("Circuit breaker state transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(toState))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromState.String(), toState.String()).Inc()
			if toState == StateClosed {
				metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)
			}
		},
	})

	return &Breaker[T]{cb: cb, name: s.Name, logger: logger}
}

// Name returns the breaker name.
func (b *Breaker[T]) Name() string {
	return b.name
}

// State returns the current state. Reading it may move an open breaker
// whose timeout has elapsed to half-open.
func (b *Breaker[T]) State() State {
	return fromGobreaker(b.cb.State())
}

// ConsecutiveFailures returns the current failure streak.
func (b *Breaker[T]) ConsecutiveFailures() uint32 {
	return b.cb.Counts().ConsecutiveFailures
}

// Try calls primary if the breaker admits it. It returns ErrOpen without
// calling primary while open, or while another caller holds the half-open
// probe. Otherwise it returns primary's result and records the outcome.
func (b *Breaker[T]) Try(primary func() (T, error)) (T, error) {
	result, err := b.cb.Execute(primary)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
			b.logger.Debug().Msg("Primary skipped, breaker open")
			var zero T
			return zero, ErrOpen
		}

		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "failure").Inc()
		metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(b.name).Set(float64(b.cb.Counts().ConsecutiveFailures))
		return result, err
	}

	metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(b.name).Set(0)
	return result, nil
}

// Execute calls primary through the breaker and falls back on any failure
// or rejection. The fallback's own error is returned as-is.
func (b *Breaker[T]) Execute(primary, fallback func() (T, error)) (T, error) {
	result, err := b.Try(primary)
	if err == nil {
		return result, nil
	}
	return fallback()
}

func fromGobreaker(s gobreaker.State) State {
	switch s {
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	case gobreaker.StateOpen:
		return StateOpen
	default:
		return StateClosed
	}
}

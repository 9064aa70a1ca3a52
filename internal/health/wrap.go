// Feedline - Feed Ranking Delivery Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedline

package health

import "time"

// WithMonitoring records a request, times fn, and records either the
// duration (on success) or an error. fn's error is returned unchanged.
func WithMonitoring[T any](m *Monitor, fn func() (T, error)) (T, error) {
	m.RecordRequest()
	start := time.Now()

	result, err := fn()
	if err != nil {
		m.RecordError()
		return result, err
	}

	m.RecordCalculationTime(time.Since(start))
	return result, nil
}

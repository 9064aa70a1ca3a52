// Feedline - Feed Ranking Delivery Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedline

package database

import (
	"errors"
	"io"

	"github.com/tomtom215/feedline/internal/logging"
)

// ErrInvalidInteraction is returned for an interaction with an unknown kind
// or missing IDs.
var ErrInvalidInteraction = errors.New("invalid interaction")

// ErrPostNotFound is returned when an interaction references a missing post.
var ErrPostNotFound = errors.New("post not found")

// closeWithLog closes a resource and logs any error
// Use this for cleanup operations where errors should be acknowledged but not fail the operation
func closeWithLog(closer io.Closer, resourceType string) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logging.Warn().Str("type", resourceType).Err(err).Msg("Failed to close resource")
	}
}

// closeQuietly closes a resource and explicitly ignores any error
// Use this for cleanup operations in error paths where Close() errors are not actionable
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close()
	}
}

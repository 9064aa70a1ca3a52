// Feedline - Feed Ranking Delivery Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedline

package cache

import (
	"context"
	"time"

	"github.com/tomtom215/feedline/internal/metrics"
)

type unavailableStore struct{}

// Unavailable returns a Store that is permanently unavailable: every read
// misses and every write is dropped.
func Unavailable() Store {
	return unavailableStore{}
}

func (unavailableStore) Get(context.Context, string) ([]byte, bool) {
	metrics.RecordCacheLookup(string(TypeNone), false)
	return nil, false
}

func (unavailableStore) Set(context.Context, string, []byte, time.Duration) {}

func (unavailableStore) Delete(context.Context, string) {}

func (unavailableStore) Incr(context.Context, string) int64 { return 0 }

func (unavailableStore) IsAvailable() bool { return false }

func (unavailableStore) Close() error { return nil }

// Feedline - Feed Ranking Delivery Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedline

package health

import (
	"sync"
	"time"
)

// windowCounter counts events in a sliding time window divided into
// buckets. Increment is O(1), Count is O(buckets).
type windowCounter struct {
	mu         sync.Mutex
	buckets    []int64
	bucketSize time.Duration
	current    int
	lastUpdate time.Time
	now        func() time.Time
}

func newWindowCounter(window time.Duration, numBuckets int) *windowCounter {
	if numBuckets <= 0 {
		numBuckets = 10
	}
	if window <= 0 {
		window = 5 * time.Minute
	}
	w := &windowCounter{
		buckets:    make([]int64, numBuckets),
		bucketSize: window / time.Duration(numBuckets),
		now:        time.Now,
	}
	w.lastUpdate = w.now()
	return w
}

func (w *windowCounter) increment() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.advance()
	w.buckets[w.current]++
}

func (w *windowCounter) count() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.advance()
	var total int64
	for _, n := range w.buckets {
		total += n
	}
	return total
}

func (w *windowCounter) reset() {
	w.mu.Lock()
	defer w.mu.Unlock()

	clear(w.buckets)
	w.current = 0
	w.lastUpdate = w.now()
}

// advance rotates past elapsed buckets. Must be called with mu held.
func (w *windowCounter) advance() {
	now := w.now()
	elapsed := int(now.Sub(w.lastUpdate) / w.bucketSize)
	if elapsed <= 0 {
		return
	}

	if elapsed >= len(w.buckets) {
		clear(w.buckets)
		w.current = 0
	} else {
		for i := 0; i < elapsed; i++ {
			w.current = (w.current + 1) % len(w.buckets)
			w.buckets[w.current] = 0
		}
	}
	// Keep bucket boundaries aligned instead of drifting to now.
	w.lastUpdate = w.lastUpdate.Add(time.Duration(elapsed) * w.bucketSize)
}

// Feedline - Feed Ranking Delivery Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedline

package cache

import (
	"context"
	"sync"
	"testing"
	"time"
)

func newTestBadger(t *testing.T) *BadgerStore {
	t.Helper()

	s, err := NewBadgerStore("")
	if err != nil {
		t.Fatalf("NewBadgerStore() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestBadgerStore_RoundTripAndDelete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestBadger(t)

	s.Set(ctx, "feed:u1:v0:p1:l20", []byte(`{"tier":"HYBRID"}`), time.Minute)
	got, ok := s.Get(ctx, "feed:u1:v0:p1:l20")
	if !ok || string(got) != `{"tier":"HYBRID"}` {
		t.Fatalf("Get = %q, %v", got, ok)
	}

	s.Delete(ctx, "feed:u1:v0:p1:l20")
	if _, ok := s.Get(ctx, "feed:u1:v0:p1:l20"); ok {
		t.Error("expected miss after Delete")
	}
}

func TestBadgerStore_TTLExpiry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestBadger(t)

	// Badger TTLs have one-second resolution.
	s.Set(ctx, "short", []byte("v"), time.Second)
	if _, ok := s.Get(ctx, "short"); !ok {
		t.Fatal("expected hit before TTL elapsed")
	}

	time.Sleep(2100 * time.Millisecond)

	if _, ok := s.Get(ctx, "short"); ok {
		t.Error("expected miss after TTL elapsed")
	}
}

func TestBadgerStore_ConcurrentIncr(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestBadger(t)

	const workers = 8
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Incr(ctx, "gen:u1")
		}()
	}
	wg.Wait()

	if got := s.Incr(ctx, "gen:u1"); got != workers+1 {
		t.Errorf("Incr = %d, want %d", got, workers+1)
	}
}

func TestBadgerStore_ClosedIsUnavailable(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, err := NewBadgerStore("")
	if err != nil {
		t.Fatalf("NewBadgerStore() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if s.IsAvailable() {
		t.Error("closed store reported available")
	}
	s.Set(ctx, "k", []byte("v"), 0)
	if _, ok := s.Get(ctx, "k"); ok {
		t.Error("closed store returned a hit")
	}
	if got := s.Incr(ctx, "k"); got != 0 {
		t.Errorf("Incr on closed store = %d, want 0", got)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close() = %v", err)
	}
}

// Feedline - Feed Ranking Delivery Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedline

package stampede

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/feedline/internal/cache"
)

type fakeObserver struct {
	hits      atomic.Int64
	misses    atomic.Int64
	stampedes atomic.Int64
}

func (o *fakeObserver) RecordCacheHit(hit bool) {
	if hit {
		o.hits.Add(1)
	} else {
		o.misses.Add(1)
	}
}

func (o *fakeObserver) RecordStampede() { o.stampedes.Add(1) }

// waitForWaiters polls until n callers have missed key.
func waitForWaiters(t *testing.T, g *Guard, key string, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for g.Waiters(key) < n {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d waiters on %q, have %d", n, key, g.Waiters(key))
		}
		time.Sleep(time.Millisecond)
	}
}

// runConcurrent starts n callers on key whose compute blocks until release
// is closed. It returns the results once all callers finish.
func runConcurrent(t *testing.T, g *Guard, store cache.Store, key string, n int, computeCalls *atomic.Int64) [][]byte {
	t.Helper()

	release := make(chan struct{})
	compute := func(context.Context) ([]byte, error) {
		computeCalls.Add(1)
		<-release
		return []byte(`{"items":[1,2,3],"tier":"HYBRID"}`), nil
	}
	get, set := StoreFuncs(store)

	results := make([][]byte, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = g.GetOrCompute(context.Background(), key, compute, get, set, time.Minute)
		}(i)
	}

	waitForWaiters(t, g, key, n)
	close(release)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("caller %d: unexpected error %v", i, err)
		}
	}
	return results
}

func TestGetOrCompute_ConcurrentMissesComputeOnce(t *testing.T) {
	t.Parallel()

	obs := &fakeObserver{}
	g := New(1000, obs)
	store := cache.NewMemoryStore(time.Minute)

	var calls atomic.Int64
	results := runConcurrent(t, g, store, "feed:u1:v0:p1:l20", 50, &calls)

	if got := calls.Load(); got != 1 {
		t.Fatalf("compute invoked %d times, want 1", got)
	}
	for i, r := range results {
		if !bytes.Equal(r, results[0]) {
			t.Errorf("caller %d got %q, want %q", i, r, results[0])
		}
	}
	if _, ok := store.Get(context.Background(), "feed:u1:v0:p1:l20"); !ok {
		t.Error("computed value was not written to the cache")
	}
	if got := obs.misses.Load(); got != 50 {
		t.Errorf("observer misses = %d, want 50", got)
	}
	if got := g.Waiters("feed:u1:v0:p1:l20"); got != 0 {
		t.Errorf("counter not cleared after settlement, Waiters = %d", got)
	}
}

func TestGetOrCompute_StampedeSignal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		callers       int
		wantStampedes int64
	}{
		{"at threshold", 10, 0},
		{"above threshold reports once", 25, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			obs := &fakeObserver{}
			g := New(10, obs)
			var calls atomic.Int64

			runConcurrent(t, g, cache.Unavailable(), "hot", tt.callers, &calls)

			if got := obs.stampedes.Load(); got != tt.wantStampedes {
				t.Errorf("stampedes = %d, want %d", got, tt.wantStampedes)
			}
			if got := calls.Load(); got != 1 {
				t.Errorf("compute invoked %d times, want 1", got)
			}
		})
	}
}

func TestGetOrCompute_HitSkipsCompute(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	obs := &fakeObserver{}
	g := New(10, obs)
	store := cache.NewMemoryStore(time.Minute)
	store.Set(ctx, "k", []byte("cached"), time.Minute)
	get, set := StoreFuncs(store)

	value, err := g.GetOrCompute(ctx, "k", func(context.Context) ([]byte, error) {
		t.Error("compute must not run on a hit")
		return nil, nil
	}, get, set, time.Minute)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if string(value) != "cached" {
		t.Errorf("value = %q, want cached", value)
	}
	if obs.hits.Load() != 1 || obs.misses.Load() != 0 {
		t.Errorf("hits=%d misses=%d, want 1/0", obs.hits.Load(), obs.misses.Load())
	}
}

func TestGetOrCompute_ErrorReachesAllWaitersAndReleasesKey(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	g := New(10, nil)
	store := cache.NewMemoryStore(time.Minute)
	get, set := StoreFuncs(store)

	boom := errors.New("ranking failed")
	release := make(chan struct{})
	var calls atomic.Int64
	failing := func(context.Context) ([]byte, error) {
		calls.Add(1)
		<-release
		return nil, boom
	}

	const n = 8
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = g.GetOrCompute(ctx, "k", failing, get, set, time.Minute)
		}(i)
	}
	waitForWaiters(t, g, "k", n)
	close(release)
	wg.Wait()

	for i, err := range errs {
		if !errors.Is(err, boom) {
			t.Errorf("caller %d error = %v, want %v", i, err, boom)
		}
	}
	if calls.Load() != 1 {
		t.Errorf("compute invoked %d times, want 1", calls.Load())
	}
	if _, ok := store.Get(ctx, "k"); ok {
		t.Error("failed computation must not be cached")
	}

	// The key is not stuck: a later call computes again.
	value, err := g.GetOrCompute(ctx, "k", func(context.Context) ([]byte, error) {
		return []byte("ok"), nil
	}, get, set, time.Minute)
	if err != nil || string(value) != "ok" {
		t.Errorf("recompute = %q, %v; want ok, nil", value, err)
	}
}

func TestGetOrCompute_CancelledWaiterReturnsEarly(t *testing.T) {
	t.Parallel()

	g := New(10, nil)
	get, set := StoreFuncs(cache.Unavailable())
	release := make(chan struct{})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := g.GetOrCompute(ctx, "slow", func(context.Context) ([]byte, error) {
			<-release
			return []byte("late"), nil
		}, get, set, time.Minute)
		done <- err
	}()

	waitForWaiters(t, g, "slow", 1)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("cancelled caller did not return")
	}
}

type page struct {
	Items []string `json:"items"`
	Tier  string   `json:"tier"`
}

func TestGetOrComputeJSON(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	g := New(10, nil)
	store := cache.NewMemoryStore(time.Minute)
	get, set := StoreFuncs(store)

	// Corrupt cached bytes are treated as a miss and overwritten.
	store.Set(ctx, "feed:u1", []byte("{not json"), time.Minute)

	var calls int
	compute := func(context.Context) (page, error) {
		calls++
		return page{Items: []string{"p1", "p2"}, Tier: "SIMPLIFIED"}, nil
	}

	got, err := GetOrComputeJSON(ctx, g, "feed:u1", compute, get, set, time.Minute)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if got.Tier != "SIMPLIFIED" || len(got.Items) != 2 {
		t.Errorf("got %+v", got)
	}

	again, err := GetOrComputeJSON(ctx, g, "feed:u1", compute, get, set, time.Minute)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if calls != 1 {
		t.Errorf("compute called %d times, want 1 (second call should hit)", calls)
	}
	if again.Items[1] != "p2" {
		t.Errorf("cached round trip = %+v", again)
	}
}

func (g *Guard) trackedKeys() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.counters)
}

func TestGetOrCompute_NoCountersOutliveCallers(t *testing.T) {
	t.Parallel()

	g := New(DefaultThreshold, nil)
	get, set := StoreFuncs(cache.Unavailable())
	compute := func(context.Context) ([]byte, error) {
		return []byte("v"), nil
	}

	for round := 0; round < 200; round++ {
		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := g.GetOrCompute(context.Background(), "feed:u1:v0:p1:l20", compute, get, set, time.Minute); err != nil {
					t.Errorf("GetOrCompute() error = %v", err)
				}
			}()
		}
		wg.Wait()

		if n := g.trackedKeys(); n != 0 {
			t.Fatalf("round %d: %d miss counters left after all callers returned", round, n)
		}
	}
}

func TestGetOrCompute_CancelledCallerReleasesCounter(t *testing.T) {
	t.Parallel()

	g := New(DefaultThreshold, nil)
	get, set := StoreFuncs(cache.Unavailable())
	release := make(chan struct{})
	compute := func(context.Context) ([]byte, error) {
		<-release
		return []byte("v"), nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := g.GetOrCompute(ctx, "k", compute, get, set, time.Minute)
		done <- err
	}()

	waitForWaiters(t, g, "k", 1)
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if n := g.trackedKeys(); n != 0 {
		t.Errorf("%d miss counters left after the only caller gave up", n)
	}
	close(release)
}

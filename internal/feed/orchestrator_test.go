// Feedline - Feed Ranking Delivery Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedline

package feed

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/feedline/internal/breaker"
	"github.com/tomtom215/feedline/internal/cache"
	"github.com/tomtom215/feedline/internal/health"
)

var errRanker = errors.New("ranker exploded")

// fakeStrategy counts calls and returns either items or an error.
type fakeStrategy struct {
	calls     atomic.Int64
	mu        sync.Mutex
	err       error
	delay     time.Duration
	items     []ContentItem
	lastPage  int
	lastLimit int
}

func newFake(ids ...string) *fakeStrategy {
	f := &fakeStrategy{}
	for _, id := range ids {
		f.items = append(f.items, ContentItem{ID: id, AuthorID: "a-" + id})
	}
	return f
}

func (f *fakeStrategy) failing() *fakeStrategy {
	f.err = errRanker
	return f
}

func (f *fakeStrategy) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *fakeStrategy) rank(_ context.Context, _ string, page, limit int) ([]ContentItem, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastPage, f.lastLimit = page, limit
	if f.err != nil {
		return nil, f.err
	}
	return f.items, nil
}

func newTestOrchestrator(t *testing.T, h, s, c *fakeStrategy, store cache.Store, opts Options) *Orchestrator {
	t.Helper()
	o, err := NewOrchestrator(Strategies{
		Hybrid:        h.rank,
		Simplified:    s.rank,
		Chronological: c.rank,
	}, store, health.NewMonitor(health.DefaultConfig()), opts)
	if err != nil {
		t.Fatalf("NewOrchestrator() error = %v", err)
	}
	return o
}

func TestNewOrchestrator_RequiresAllStrategies(t *testing.T) {
	t.Parallel()

	f := newFake("p1")
	_, err := NewOrchestrator(Strategies{Hybrid: f.rank, Simplified: f.rank}, cache.Unavailable(), nil, Options{})
	if err == nil {
		t.Fatal("expected error when the chronological strategy is missing")
	}
}

func TestGetFeed_HybridServes(t *testing.T) {
	t.Parallel()

	h, s, c := newFake("h1", "h2"), newFake("s1"), newFake("c1")
	o := newTestOrchestrator(t, h, s, c, cache.Unavailable(), Options{})

	result, err := o.GetFeed(context.Background(), "u1", 1, 20)
	if err != nil {
		t.Fatalf("GetFeed() error = %v", err)
	}
	if result.Tier != TierHybrid {
		t.Errorf("Tier = %s, want HYBRID", result.Tier)
	}
	if len(result.Items) != 2 || result.Items[0].ID != "h1" {
		t.Errorf("Items = %+v, want hybrid items", result.Items)
	}
	if s.calls.Load() != 0 || c.calls.Load() != 0 {
		t.Errorf("fallbacks invoked: simplified=%d chronological=%d", s.calls.Load(), c.calls.Load())
	}
	if result.Page != 1 || result.Limit != 20 || result.GeneratedAt.IsZero() {
		t.Errorf("page metadata = %+v", result)
	}
}

func TestGetFeed_FallbackOrdering(t *testing.T) {
	t.Parallel()

	h, s, c := newFake().failing(), newFake("s1"), newFake("c1")
	o := newTestOrchestrator(t, h, s, c, cache.Unavailable(), Options{})

	for i := 0; i < 20; i++ {
		result, err := o.GetFeed(context.Background(), "u1", 1, 10)
		if err != nil {
			t.Fatalf("call %d: GetFeed() error = %v", i+1, err)
		}
		if result.Tier != TierSimplified {
			t.Fatalf("call %d: Tier = %s, want SIMPLIFIED", i+1, result.Tier)
		}
	}
	if got := c.calls.Load(); got != 0 {
		t.Errorf("chronological invoked %d times, want 0", got)
	}
	// Five failures open the hybrid breaker; the rest are skipped.
	if got := h.calls.Load(); got != int64(breaker.DefaultFailureThreshold) {
		t.Errorf("hybrid invoked %d times, want %d", got, breaker.DefaultFailureThreshold)
	}

	usage := o.Monitor().GetMetrics().TierUsage
	if usage[string(TierHybrid)] != 0 || usage[string(TierSimplified)] != 20 {
		t.Errorf("TierUsage = %v, want all SIMPLIFIED", usage)
	}
}

func TestGetFeed_TerminalTier(t *testing.T) {
	t.Parallel()

	t.Run("chronological serves", func(t *testing.T) {
		t.Parallel()

		h, s, c := newFake().failing(), newFake().failing(), newFake("c1", "c2")
		o := newTestOrchestrator(t, h, s, c, cache.Unavailable(), Options{})

		result, err := o.GetFeed(context.Background(), "u1", 1, 10)
		if err != nil {
			t.Fatalf("GetFeed() error = %v", err)
		}
		if result.Tier != TierChronological || len(result.Items) != 2 {
			t.Errorf("result = %+v, want chronological items", result)
		}
		if h.calls.Load() != 1 || s.calls.Load() != 1 || c.calls.Load() != 1 {
			t.Errorf("calls h=%d s=%d c=%d, want 1 each", h.calls.Load(), s.calls.Load(), c.calls.Load())
		}
	})

	t.Run("chronological fails", func(t *testing.T) {
		t.Parallel()

		h, s, c := newFake().failing(), newFake().failing(), newFake().failing()
		o := newTestOrchestrator(t, h, s, c, cache.Unavailable(), Options{})

		result, err := o.GetFeed(context.Background(), "u1", 1, 10)
		if !errors.Is(err, ErrServiceUnavailable) {
			t.Fatalf("error = %v, want ErrServiceUnavailable", err)
		}
		if !errors.Is(err, errRanker) {
			t.Errorf("error = %v, want it to wrap the last tier error", err)
		}
		if result != nil {
			t.Errorf("result = %+v, want nil", result)
		}
		if got := o.Monitor().GetMetrics().Errors; got != 1 {
			t.Errorf("monitor errors = %d, want 1", got)
		}
	})

	t.Run("empty chronological page is not nil", func(t *testing.T) {
		t.Parallel()

		h, s, c := newFake().failing(), newFake().failing(), newFake()
		o := newTestOrchestrator(t, h, s, c, cache.Unavailable(), Options{})

		result, err := o.GetFeed(context.Background(), "u1", 1, 10)
		if err != nil {
			t.Fatalf("GetFeed() error = %v", err)
		}
		if result.Items == nil {
			t.Error("Items = nil, want empty slice")
		}
	})
}

// Threshold 5, reset timeout scaled from 60s down to 150ms.
func TestGetFeed_BreakerScenario(t *testing.T) {
	t.Parallel()

	h, s, c := newFake("h1").failing(), newFake("s1"), newFake("c1")
	o := newTestOrchestrator(t, h, s, c, cache.Unavailable(), Options{
		FailureThreshold: 5,
		ResetTimeout:     150 * time.Millisecond,
	})
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		result, err := o.GetFeed(ctx, "u1", 1, 10)
		if err != nil || result.Tier != TierSimplified {
			t.Fatalf("call %d: result=%+v err=%v, want SIMPLIFIED", i, result, err)
		}
	}
	if got := o.BreakerStates()[TierHybrid]; got != breaker.StateOpen {
		t.Fatalf("hybrid breaker = %s after 5 failures, want open", got)
	}

	result, err := o.GetFeed(ctx, "u1", 1, 10)
	if err != nil || result.Tier != TierSimplified {
		t.Fatalf("call 6: result=%+v err=%v, want SIMPLIFIED", result, err)
	}
	if got := h.calls.Load(); got != 5 {
		t.Fatalf("hybrid invoked %d times by call 6, want 5", got)
	}

	time.Sleep(200 * time.Millisecond)
	h.setErr(nil)

	result, err = o.GetFeed(ctx, "u1", 1, 10)
	if err != nil {
		t.Fatalf("probe call: error = %v", err)
	}
	if got := h.calls.Load(); got != 6 {
		t.Errorf("hybrid invoked %d times after reset, want exactly 6", got)
	}
	if result.Tier != TierHybrid {
		t.Errorf("probe call Tier = %s, want HYBRID", result.Tier)
	}
	if got := o.BreakerStates()[TierHybrid]; got != breaker.StateClosed {
		t.Errorf("hybrid breaker = %s after successful probe, want closed", got)
	}
}

func TestGetFeed_SimplifiedBreakerIsIndependent(t *testing.T) {
	t.Parallel()

	h, s, c := newFake().failing(), newFake().failing(), newFake("c1")
	o := newTestOrchestrator(t, h, s, c, cache.Unavailable(), Options{FailureThreshold: 2})

	for i := 0; i < 6; i++ {
		if _, err := o.GetFeed(context.Background(), "u1", 1, 10); err != nil {
			t.Fatalf("GetFeed() error = %v", err)
		}
	}
	states := o.BreakerStates()
	if states[TierHybrid] != breaker.StateOpen || states[TierSimplified] != breaker.StateOpen {
		t.Errorf("breaker states = %v, want both open", states)
	}
	if h.calls.Load() != 2 || s.calls.Load() != 2 {
		t.Errorf("calls h=%d s=%d, want 2 each", h.calls.Load(), s.calls.Load())
	}
	if c.calls.Load() != 6 {
		t.Errorf("chronological calls = %d, want 6", c.calls.Load())
	}
}

func TestGetFeed_CachesPages(t *testing.T) {
	t.Parallel()

	h, s, c := newFake("h1"), newFake("s1"), newFake("c1")
	store := cache.NewMemoryStore(time.Minute)
	o := newTestOrchestrator(t, h, s, c, store, Options{})
	ctx := context.Background()

	first, err := o.GetFeed(ctx, "u1", 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	second, err := o.GetFeed(ctx, "u1", 1, 10)
	if err != nil {
		t.Fatal(err)
	}

	if first.Cached {
		t.Error("first page should be computed")
	}
	if !second.Cached {
		t.Error("second page should come from the cache")
	}
	if second.Tier != TierHybrid || second.Items[0].ID != "h1" {
		t.Errorf("cached page = %+v", second)
	}
	if got := h.calls.Load(); got != 1 {
		t.Errorf("hybrid invoked %d times, want 1", got)
	}

	// A different page is a different key.
	if _, err := o.GetFeed(ctx, "u1", 2, 10); err != nil {
		t.Fatal(err)
	}
	if got := h.calls.Load(); got != 2 {
		t.Errorf("hybrid invoked %d times after page 2, want 2", got)
	}

	m := o.Monitor().GetMetrics()
	if m.CacheHits != 1 || m.CacheMisses != 2 {
		t.Errorf("hits=%d misses=%d, want 1/2", m.CacheHits, m.CacheMisses)
	}
}

func TestGetFeed_DegradedPagesExpireSooner(t *testing.T) {
	t.Parallel()

	h, s, c := newFake().failing(), newFake("s1"), newFake("c1")
	store := cache.NewMemoryStore(time.Minute)
	o := newTestOrchestrator(t, h, s, c, store, Options{
		FeedTTL:          time.Hour,
		DegradedTTL:      50 * time.Millisecond,
		FailureThreshold: 100,
	})
	ctx := context.Background()

	if _, err := o.GetFeed(ctx, "u1", 1, 10); err != nil {
		t.Fatal(err)
	}
	if r, _ := o.GetFeed(ctx, "u1", 1, 10); !r.Cached {
		t.Fatal("degraded page should be cached within its TTL")
	}

	time.Sleep(80 * time.Millisecond)
	h.setErr(nil)

	r, err := o.GetFeed(ctx, "u1", 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if r.Cached || r.Tier != TierHybrid {
		t.Errorf("after degraded TTL: cached=%v tier=%s, want fresh HYBRID", r.Cached, r.Tier)
	}
}

func TestInvalidateUser(t *testing.T) {
	t.Parallel()

	h, s, c := newFake("h1"), newFake("s1"), newFake("c1")
	store := cache.NewMemoryStore(time.Minute)
	o := newTestOrchestrator(t, h, s, c, store, Options{})
	ctx := context.Background()

	store.Set(ctx, InterestKey("u1"), []byte(`{"authors":{}}`), time.Hour)
	before := o.pageKey(ctx, "u1", 1, 10)

	if _, err := o.GetFeed(ctx, "u1", 1, 10); err != nil {
		t.Fatal(err)
	}
	o.InvalidateUser(ctx, "u1")

	if after := o.pageKey(ctx, "u1", 1, 10); after == before {
		t.Errorf("page key unchanged after invalidation: %s", after)
	}
	if _, ok := store.Get(ctx, InterestKey("u1")); ok {
		t.Error("interest vector should be deleted")
	}

	r, err := o.GetFeed(ctx, "u1", 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if r.Cached {
		t.Error("page after invalidation should be recomputed")
	}
	if got := h.calls.Load(); got != 2 {
		t.Errorf("hybrid invoked %d times, want 2", got)
	}

	// Other users keep their generation.
	if key := o.pageKey(ctx, "u2", 1, 10); key != "feed:u2:v0:p1:l10" {
		t.Errorf("u2 key = %s", key)
	}
}

func TestGetFeed_ConcurrentMissesComputeOnce(t *testing.T) {
	t.Parallel()

	h, s, c := newFake("h1", "h2"), newFake("s1"), newFake("c1")
	h.delay = 50 * time.Millisecond
	o := newTestOrchestrator(t, h, s, c, cache.NewMemoryStore(time.Minute), Options{})

	const callers = 50
	start := make(chan struct{})
	results := make([]*FeedResult, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i], errs[i] = o.GetFeed(context.Background(), "u1", 1, 10)
		}(i)
	}
	close(start)
	wg.Wait()

	if got := h.calls.Load(); got != 1 {
		t.Errorf("hybrid invoked %d times, want 1", got)
	}
	for i := range results {
		if errs[i] != nil {
			t.Fatalf("caller %d: error = %v", i, errs[i])
		}
		if results[i].Tier != TierHybrid || len(results[i].Items) != 2 || results[i].Items[1].ID != "h2" {
			t.Errorf("caller %d: result = %+v", i, results[i])
		}
	}
}

func TestGetFeed_ClampsArguments(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		page      int
		limit     int
		wantPage  int
		wantLimit int
	}{
		{"in range", 3, 20, 3, 20},
		{"zero page", 0, 20, 1, 20},
		{"negative page", -4, 20, 1, 20},
		{"zero limit", 1, 0, 1, 1},
		{"over max limit", 1, 500, 1, DefaultMaxLimit},
		{"over max page", DefaultMaxPage + 1, 20, DefaultMaxPage, 20},
		{"max int page", math.MaxInt, 50, DefaultMaxPage, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h, s, c := newFake("h1"), newFake(), newFake()
			o := newTestOrchestrator(t, h, s, c, cache.Unavailable(), Options{})

			result, err := o.GetFeed(context.Background(), "u1", tt.page, tt.limit)
			if err != nil {
				t.Fatal(err)
			}
			if h.lastPage != tt.wantPage || h.lastLimit != tt.wantLimit {
				t.Errorf("strategy got page=%d limit=%d, want %d/%d", h.lastPage, h.lastLimit, tt.wantPage, tt.wantLimit)
			}
			if result.Page != tt.wantPage || result.Limit != tt.wantLimit {
				t.Errorf("result page=%d limit=%d", result.Page, result.Limit)
			}
		})
	}
}

func TestGetFeed_UndecodableCacheEntryIsAMiss(t *testing.T) {
	t.Parallel()

	h, s, c := newFake("h1"), newFake(), newFake()
	store := cache.NewMemoryStore(time.Minute)
	o := newTestOrchestrator(t, h, s, c, store, Options{})
	ctx := context.Background()

	store.Set(ctx, o.pageKey(ctx, "u1", 1, 10), []byte("not json"), time.Hour)

	result, err := o.GetFeed(ctx, "u1", 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if result.Cached || result.Tier != TierHybrid {
		t.Errorf("result = %+v, want recomputed HYBRID page", result)
	}
}

func TestGetFeed_PanickingStrategyFallsBack(t *testing.T) {
	t.Parallel()

	var hybridCalls atomic.Int64
	panicking := func(_ context.Context, _ string, page, limit int) ([]ContentItem, error) {
		hybridCalls.Add(1)
		items := make([]ContentItem, 2)
		offset := (page - 1) * limit
		return items[offset : offset+limit], nil
	}
	s, c := newFake("s1"), newFake("c1")
	o, err := NewOrchestrator(Strategies{
		Hybrid:        panicking,
		Simplified:    s.rank,
		Chronological: c.rank,
	}, cache.Unavailable(), nil, Options{FailureThreshold: 2, ResetTimeout: time.Hour})
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		result, err := o.GetFeed(context.Background(), "u1", 5, 10)
		if err != nil {
			t.Fatalf("call %d: GetFeed() error = %v", i, err)
		}
		if result.Tier != TierSimplified {
			t.Errorf("call %d: Tier = %s, want SIMPLIFIED", i, result.Tier)
		}
	}

	if got := hybridCalls.Load(); got != 2 {
		t.Errorf("hybrid calls = %d, want 2 before the breaker opens", got)
	}
	if got := o.BreakerStates()[TierHybrid]; got != breaker.StateOpen {
		t.Errorf("hybrid breaker = %s, want OPEN", got)
	}
}

func TestGetFeed_PanickingTerminalTierIsUnavailable(t *testing.T) {
	t.Parallel()

	panicking := func(context.Context, string, int, int) ([]ContentItem, error) {
		panic("chronological store corrupted")
	}
	h, s := newFake().failing(), newFake().failing()
	o, err := NewOrchestrator(Strategies{
		Hybrid:        h.rank,
		Simplified:    s.rank,
		Chronological: panicking,
	}, cache.Unavailable(), nil, Options{})
	if err != nil {
		t.Fatal(err)
	}

	result, err := o.GetFeed(context.Background(), "u1", 1, 10)
	if !errors.Is(err, ErrServiceUnavailable) {
		t.Fatalf("error = %v, want ErrServiceUnavailable", err)
	}
	if !errors.Is(err, errStrategyPanic) {
		t.Errorf("error = %v, want it to wrap errStrategyPanic", err)
	}
	if result != nil {
		t.Errorf("result = %+v, want nil", result)
	}
}

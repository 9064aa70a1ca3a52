// Feedline - Feed Ranking Delivery Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedline

package main

import (
	"context"
	"testing"
	"time"

	"github.com/tomtom215/feedline/internal/cache"
	"github.com/tomtom215/feedline/internal/config"
	"github.com/tomtom215/feedline/internal/feed"
)

func testConfig(backend string) *config.Config {
	return &config.Config{
		Database: config.DatabaseConfig{SeedDemoData: true},
		Cache: config.CacheConfig{
			Backend:     backend,
			FeedTTL:     time.Minute,
			DegradedTTL: 10 * time.Second,
			InterestTTL: time.Minute,
		},
		Breaker:  config.BreakerConfig{FailureThreshold: 5, ResetTimeout: time.Minute},
		Stampede: config.StampedeConfig{Threshold: 10},
		Monitor: config.MonitorConfig{
			SampleCapacity: 100,
			StampedeWindow: time.Minute,
			MinRequests:    100,
		},
		Feed: config.FeedConfig{
			MaxLimit:          50,
			MaxPage:           1000,
			CandidateWindow:   30 * 24 * time.Hour,
			MaxCandidates:     500,
			InteractionWindow: 30 * 24 * time.Hour,
			MaxInteractions:   1000,
		},
	}
}

func TestInitPipeline_ServesSeededFeed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	p, err := initPipeline(ctx, testConfig(config.CacheBackendMemory))
	if err != nil {
		t.Fatalf("initPipeline() error = %v", err)
	}
	defer p.Close()

	if _, ok := p.cache.(*cache.MemoryStore); !ok {
		t.Errorf("cache = %T, want *cache.MemoryStore", p.cache)
	}

	first, err := p.orchestrator.GetFeed(ctx, "u1", 1, 10)
	if err != nil {
		t.Fatalf("GetFeed() error = %v", err)
	}
	if first.Tier != feed.TierHybrid {
		t.Errorf("tier = %s, want HYBRID", first.Tier)
	}
	if len(first.Items) != 10 {
		t.Errorf("items = %d, want 10", len(first.Items))
	}
	if first.Cached {
		t.Error("first request must not be served from cache")
	}

	second, err := p.orchestrator.GetFeed(ctx, "u1", 1, 10)
	if err != nil {
		t.Fatalf("GetFeed() error = %v", err)
	}
	if !second.Cached {
		t.Error("second request should be a cache hit")
	}

	m := p.monitor.GetMetrics()
	if m.Requests != 2 || m.CacheHits != 1 {
		t.Errorf("requests=%d hits=%d, want 2, 1", m.Requests, m.CacheHits)
	}
	if m.TierUsage[string(feed.TierHybrid)] != 2 {
		t.Errorf("tier usage = %v", m.TierUsage)
	}
}

func TestInitPipeline_NoCache(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cfg := testConfig(config.CacheBackendNone)
	cfg.Database.SeedDemoData = false

	p, err := initPipeline(ctx, cfg)
	if err != nil {
		t.Fatalf("initPipeline() error = %v", err)
	}
	defer p.Close()

	if p.cache.IsAvailable() {
		t.Error("none backend should be unavailable")
	}

	// An empty store still yields a page, not an error.
	result, err := p.orchestrator.GetFeed(ctx, "u1", 1, 5)
	if err != nil {
		t.Fatalf("GetFeed() error = %v", err)
	}
	if result.Items == nil || len(result.Items) != 0 {
		t.Errorf("items = %v, want empty non-nil", result.Items)
	}
}

func TestInitPipeline_UnknownCacheBackend(t *testing.T) {
	t.Parallel()

	if _, err := initPipeline(context.Background(), testConfig("memcached")); err == nil {
		t.Fatal("expected error for unknown cache backend")
	}
}

func TestMonitorConfig(t *testing.T) {
	t.Parallel()

	got := monitorConfig(&config.MonitorConfig{
		SampleCapacity:  10,
		MaxAvgLatency:   time.Second,
		MinCacheHitRate: 0.5,
		MaxStampedes:    3,
		MinRequests:     7,
	})
	if got.SampleCapacity != 10 || got.Thresholds.MaxAvgLatency != time.Second ||
		got.Thresholds.MinCacheHitRate != 0.5 || got.Thresholds.MaxStampedes != 3 ||
		got.Thresholds.MinRequests != 7 {
		t.Errorf("monitorConfig() = %+v", got)
	}
}

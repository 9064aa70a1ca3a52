// Feedline - Feed Ranking Delivery Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedline

package main

import (
	"context"
	"fmt"

	"github.com/tomtom215/feedline/internal/cache"
	"github.com/tomtom215/feedline/internal/config"
	"github.com/tomtom215/feedline/internal/database"
	"github.com/tomtom215/feedline/internal/feed"
	"github.com/tomtom215/feedline/internal/health"
	"github.com/tomtom215/feedline/internal/logging"
	"github.com/tomtom215/feedline/internal/ranking"
)

// pipeline holds the wired feed components.
type pipeline struct {
	db           *database.DB
	cache        cache.Store
	monitor      *health.Monitor
	orchestrator *feed.Orchestrator
}

// Close releases the cache and database.
func (p *pipeline) Close() {
	if err := p.cache.Close(); err != nil {
		logging.Error().Err(err).Msg("Error closing cache")
	}
	if err := p.db.Close(); err != nil {
		logging.Error().Err(err).Msg("Error closing database")
	}
}

// initPipeline opens the content store and cache and builds the orchestrator.
func initPipeline(ctx context.Context, cfg *config.Config) (*pipeline, error) {
	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if cfg.Database.SeedDemoData {
		n, err := db.SeedDemoData(ctx)
		if err != nil {
			closeDB(db)
			return nil, fmt.Errorf("failed to seed demo data: %w", err)
		}
		logging.Info().Int("posts", n).Msg("Demo data seeded")
	}

	store, err := cache.New(cacheOptions(&cfg.Cache))
	if err != nil {
		closeDB(db)
		return nil, err
	}
	logging.Info().
		Str("backend", cfg.Cache.Backend).
		Bool("available", store.IsAvailable()).
		Msg("Cache store initialized")

	monitor := health.NewMonitor(monitorConfig(&cfg.Monitor))

	orchestrator, err := feed.NewOrchestrator(
		strategies(db, store, cfg),
		store,
		monitor,
		orchestratorOptions(cfg),
	)
	if err != nil {
		_ = store.Close()
		closeDB(db)
		return nil, err
	}

	return &pipeline{
		db:           db,
		cache:        store,
		monitor:      monitor,
		orchestrator: orchestrator,
	}, nil
}

func closeDB(db *database.DB) {
	if err := db.Close(); err != nil {
		logging.Error().Err(err).Msg("Error closing database")
	}
}

func strategies(store feed.ContentStore, cacheStore cache.Store, cfg *config.Config) feed.Strategies {
	hybridCfg := ranking.DefaultHybridConfig()
	hybridCfg.CandidateWindow = cfg.Feed.CandidateWindow
	hybridCfg.MaxCandidates = cfg.Feed.MaxCandidates
	hybridCfg.InteractionWindow = cfg.Feed.InteractionWindow
	hybridCfg.MaxInteractions = cfg.Feed.MaxInteractions
	hybridCfg.InterestTTL = cfg.Cache.InterestTTL

	return feed.Strategies{
		Hybrid: ranking.NewHybrid(store, cacheStore, hybridCfg).Rank,
		Simplified: ranking.NewSimplified(store, ranking.SimplifiedConfig{
			CandidateWindow: cfg.Feed.CandidateWindow,
			MaxCandidates:   cfg.Feed.MaxCandidates,
		}).Rank,
		Chronological: ranking.NewChronological(store).Rank,
	}
}

func cacheOptions(c *config.CacheConfig) cache.Options {
	return cache.Options{
		Backend:       cache.Type(c.Backend),
		RedisURL:      c.RedisURL,
		RedisPassword: c.RedisPassword,
		OpTimeout:     c.OpTimeout,
		RetryBackoff:  c.RetryBackoff,
		BadgerPath:    c.BadgerPath,
		SweepInterval: c.SweepInterval,
	}
}

func monitorConfig(c *config.MonitorConfig) health.Config {
	return health.Config{
		SampleCapacity: c.SampleCapacity,
		StampedeWindow: c.StampedeWindow,
		Thresholds: health.Thresholds{
			MaxAvgLatency:   c.MaxAvgLatency,
			MaxP99Latency:   c.MaxP99Latency,
			MinCacheHitRate: c.MinCacheHitRate,
			MaxErrorRate:    c.MaxErrorRate,
			MaxStampedes:    c.MaxStampedes,
			MinRequests:     c.MinRequests,
		},
	}
}

func orchestratorOptions(cfg *config.Config) feed.Options {
	return feed.Options{
		FeedTTL:           cfg.Cache.FeedTTL,
		DegradedTTL:       cfg.Cache.DegradedTTL,
		MaxLimit:          cfg.Feed.MaxLimit,
		MaxPage:           cfg.Feed.MaxPage,
		FailureThreshold:  cfg.Breaker.FailureThreshold,
		ResetTimeout:      cfg.Breaker.ResetTimeout,
		StampedeThreshold: cfg.Stampede.Threshold,
	}
}

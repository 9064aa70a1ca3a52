// Feedline - Feed Ranking Delivery Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedline

package ranking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/feedline/internal/cache"
	"github.com/tomtom215/feedline/internal/feed"
	"github.com/tomtom215/feedline/internal/logging"
	"github.com/tomtom215/feedline/internal/stampede"
)

// HybridConfig configures the personalized ranker.
type HybridConfig struct {
	// CandidateWindow is how far back candidates are read.
	CandidateWindow time.Duration

	// MaxCandidates bounds the number of posts scored per request.
	MaxCandidates int

	// InteractionWindow and MaxInteractions bound the history used to build
	// the interest vector.
	InteractionWindow time.Duration
	MaxInteractions   int

	// InterestTTL is how long an interest vector stays cached.
	InterestTTL time.Duration

	// HalfLife decays interaction weights.
	HalfLife time.Duration

	// DiversityLambda balances relevance against author and community
	// diversity (1 = relevance only).
	DiversityLambda float64

	// Score overrides DefaultScore.
	Score ScoreFn
}

// DefaultHybridConfig returns production defaults.
func DefaultHybridConfig() HybridConfig {
	return HybridConfig{
		CandidateWindow:   7 * 24 * time.Hour,
		MaxCandidates:     500,
		InteractionWindow: 30 * 24 * time.Hour,
		MaxInteractions:   1000,
		InterestTTL:       15 * time.Minute,
		HalfLife:          7 * 24 * time.Hour,
		DiversityLambda:   0.7,
		Score:             DefaultScore,
	}
}

// Hybrid ranks candidates by the user's interest vector.
type Hybrid struct {
	store  feed.ContentStore
	cache  cache.Store
	guard  *stampede.Guard
	cfg    HybridConfig
	now    func() time.Time
	logger zerolog.Logger
}

// NewHybrid creates the personalized ranker. cacheStore may be
// cache.Unavailable(), in which case interest vectors are rebuilt on every
// request.
func NewHybrid(store feed.ContentStore, cacheStore cache.Store, cfg HybridConfig) *Hybrid {
	def := DefaultHybridConfig()
	if cfg.CandidateWindow <= 0 {
		cfg.CandidateWindow = def.CandidateWindow
	}
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = def.MaxCandidates
	}
	if cfg.InteractionWindow <= 0 {
		cfg.InteractionWindow = def.InteractionWindow
	}
	if cfg.MaxInteractions <= 0 {
		cfg.MaxInteractions = def.MaxInteractions
	}
	if cfg.InterestTTL <= 0 {
		cfg.InterestTTL = def.InterestTTL
	}
	if cfg.HalfLife <= 0 {
		cfg.HalfLife = def.HalfLife
	}
	if cfg.DiversityLambda <= 0 || cfg.DiversityLambda > 1 {
		cfg.DiversityLambda = def.DiversityLambda
	}
	if cfg.Score == nil {
		cfg.Score = def.Score
	}
	if cacheStore == nil {
		cacheStore = cache.Unavailable()
	}

	return &Hybrid{
		store:  store,
		cache:  cacheStore,
		guard:  stampede.New(stampede.DefaultThreshold, nil),
		cfg:    cfg,
		now:    time.Now,
		logger: logging.WithComponent("ranking").With().Str("tier", string(feed.TierHybrid)).Logger(),
	}
}

// Rank returns one personalized page. It matches feed.Strategy.
func (h *Hybrid) Rank(ctx context.Context, userID string, page, limit int) ([]feed.ContentItem, error) {
	if userID == "" {
		return nil, errors.New("hybrid ranking requires a user ID")
	}

	interest, err := h.Interest(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := h.now()
	candidates, err := h.store.ListCandidates(ctx, now.Add(-h.cfg.CandidateWindow), h.cfg.MaxCandidates)
	if err != nil {
		return nil, fmt.Errorf("failed to load candidates: %w", err)
	}
	if limit < 1 || pastEnd(len(candidates), page, limit) {
		return []feed.ContentItem{}, nil
	}

	for i := range candidates {
		candidates[i].Score = h.cfg.Score(candidates[i], &interest, now)
	}
	sortByScore(candidates)

	// page is at most len/limit+1 here, so page*limit cannot overflow.
	ranked := diversify(candidates, min(max(page, 1)*limit, len(candidates)), h.cfg.DiversityLambda)

	h.logger.Debug().
		Str("user_id", userID).
		Int("candidates", len(candidates)).
		Int("interactions", interest.Interactions).
		Msg("Ranked hybrid feed")

	return paginate(ranked, page, limit), nil
}

// Interest returns the user's interest vector, from the cache when present.
// Concurrent builds for the same user are coalesced.
func (h *Hybrid) Interest(ctx context.Context, userID string) (InterestVector, error) {
	get, set := stampede.StoreFuncs(h.cache)

	return stampede.GetOrComputeJSON(ctx, h.guard, feed.InterestKey(userID),
		func(ctx context.Context) (InterestVector, error) {
			now := h.now()
			interactions, err := h.store.ListUserInteractions(ctx, userID, now.Add(-h.cfg.InteractionWindow), h.cfg.MaxInteractions)
			if err != nil {
				return InterestVector{}, fmt.Errorf("failed to load interactions for %s: %w", userID, err)
			}
			return BuildInterestVector(interactions, now, h.cfg.HalfLife), nil
		},
		get, set, h.cfg.InterestTTL)
}

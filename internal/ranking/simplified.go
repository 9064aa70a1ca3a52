// Feedline - Feed Ranking Delivery Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedline

package ranking

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/feedline/internal/feed"
)

// SimplifiedConfig configures the non-personalized ranker.
type SimplifiedConfig struct {
	CandidateWindow time.Duration
	MaxCandidates   int
}

// DefaultSimplifiedConfig returns production defaults.
func DefaultSimplifiedConfig() SimplifiedConfig {
	return SimplifiedConfig{
		CandidateWindow: 7 * 24 * time.Hour,
		MaxCandidates:   500,
	}
}

// Simplified ranks recent posts by engagement and recency. It reads no
// per-user data, so it keeps working when interaction reads fail.
type Simplified struct {
	store feed.ContentStore
	cfg   SimplifiedConfig
	now   func() time.Time
}

// NewSimplified creates the engagement ranker.
func NewSimplified(store feed.ContentStore, cfg SimplifiedConfig) *Simplified {
	def := DefaultSimplifiedConfig()
	if cfg.CandidateWindow <= 0 {
		cfg.CandidateWindow = def.CandidateWindow
	}
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = def.MaxCandidates
	}
	return &Simplified{store: store, cfg: cfg, now: time.Now}
}

// Rank returns one page ordered by PopularityScore. It matches feed.Strategy.
func (s *Simplified) Rank(ctx context.Context, _ string, page, limit int) ([]feed.ContentItem, error) {
	now := s.now()
	candidates, err := s.store.ListCandidates(ctx, now.Add(-s.cfg.CandidateWindow), s.cfg.MaxCandidates)
	if err != nil {
		return nil, fmt.Errorf("failed to load candidates: %w", err)
	}

	for i := range candidates {
		candidates[i].Score = PopularityScore(candidates[i], nil, now)
	}
	sortByScore(candidates)

	return paginate(candidates, page, limit), nil
}

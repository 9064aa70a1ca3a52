// Feedline - Feed Ranking Delivery Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedline

package ranking

import (
	"math"
	"sort"
	"time"

	"github.com/tomtom215/feedline/internal/feed"
)

// DefaultHalfLife is the age at which recency and interaction weights halve.
const DefaultHalfLife = 24 * time.Hour

// ScoreFn scores one candidate for a user. interest is never nil.
//
//nolint:gocritic // hugeParam: ContentItem is passed by value to keep ScoreFn pure
type ScoreFn func(item feed.ContentItem, interest *InterestVector, now time.Time) float64

// Score blend weights for DefaultScore.
const (
	authorWeight     = 0.40
	communityWeight  = 0.20
	engagementWeight = 0.25
	recencyWeight    = 0.15
)

// DefaultScore blends the user's author and community affinity with the
// item's engagement and recency. The result is in [0, 1].
//
//nolint:gocritic // hugeParam: see ScoreFn
func DefaultScore(item feed.ContentItem, interest *InterestVector, now time.Time) float64 {
	return authorWeight*interest.Authors[item.AuthorID] +
		communityWeight*interest.Communities[item.CommunityID] +
		engagementWeight*engagement(item) +
		recencyWeight*decay(now.Sub(item.CreatedAt), DefaultHalfLife)
}

// PopularityScore ranks by engagement damped by age. It ignores the user.
//
//nolint:gocritic // hugeParam: see ScoreFn
func PopularityScore(item feed.ContentItem, _ *InterestVector, now time.Time) float64 {
	return engagement(item) * decay(now.Sub(item.CreatedAt), DefaultHalfLife)
}

// engagement squashes likes and comments into [0, 1). Comments count double.
//
//nolint:gocritic // hugeParam: see ScoreFn
func engagement(item feed.ContentItem) float64 {
	raw := math.Log1p(float64(max(item.LikeCount, 0)) + 2*float64(max(item.CommentCount, 0)))
	return raw / (1 + raw)
}

// decay returns 0.5^(age/halfLife). Future timestamps count as age 0.
func decay(age, halfLife time.Duration) float64 {
	if age <= 0 || halfLife <= 0 {
		return 1
	}
	return math.Exp2(-float64(age) / float64(halfLife))
}

// normalize scales the values of m into [0, 1] by their maximum.
func normalize(m map[string]float64) {
	var top float64
	for _, v := range m {
		if v > top {
			top = v
		}
	}
	if top == 0 {
		return
	}
	for k, v := range m {
		m[k] = v / top
	}
}

// sortByScore orders items by score, newest first on ties, then by ID so
// the order is deterministic.
func sortByScore(items []feed.ContentItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].ID < items[j].ID
	})
}

// paginate returns the 1-based page of items. Past the end it returns an
// empty slice.
func paginate(items []feed.ContentItem, page, limit int) []feed.ContentItem {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		return []feed.ContentItem{}
	}
	if pastEnd(len(items), page, limit) {
		return []feed.ContentItem{}
	}
	offset := (page - 1) * limit
	if offset >= len(items) {
		return []feed.ContentItem{}
	}
	end := min(offset+limit, len(items))
	out := make([]feed.ContentItem, end-offset)
	copy(out, items[offset:end])
	return out
}

// pastEnd reports whether page starts beyond n items. It never multiplies, so
// an arbitrarily large page cannot overflow.
func pastEnd(n, page, limit int) bool {
	return page-1 > n/limit
}

// Feedline - Feed Ranking Delivery Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedline

package ranking

import "github.com/tomtom215/feedline/internal/feed"

// maxDiversifySize bounds the quadratic MMR pass.
const maxDiversifySize = 1000

// Similarity between two posts for diversification.
const (
	sameAuthorSimilarity    = 1.0
	sameCommunitySimilarity = 0.5
)

// diversify reorders the first k items with Maximal Marginal Relevance:
//
//	MMR = argmax[lambda * score(i) - (1-lambda) * max(sim(i, s)) for s in selected]
//
// Scores are expected in [0, 1]. lambda 1 keeps the score order. Items past k
// keep their relative order after the diversified head.
//
//nolint:gocritic // rangeValCopy: ContentItem copies are acceptable here
func diversify(items []feed.ContentItem, k int, lambda float64) []feed.ContentItem {
	if lambda >= 1 || len(items) < 2 || k < 2 {
		return items
	}
	if lambda < 0 {
		lambda = 0
	}
	k = min(k, len(items), maxDiversifySize)

	selected := make([]feed.ContentItem, 0, len(items))
	taken := make([]bool, len(items))

	for len(selected) < k {
		best, bestMMR := -1, 0.0
		for i, item := range items {
			if taken[i] {
				continue
			}
			maxSim := 0.0
			for _, s := range selected {
				if sim := similarity(item, s); sim > maxSim {
					maxSim = sim
				}
			}
			mmr := lambda*item.Score - (1-lambda)*maxSim
			if best < 0 || mmr > bestMMR {
				best, bestMMR = i, mmr
			}
		}
		selected = append(selected, items[best])
		taken[best] = true
	}

	for i, item := range items {
		if !taken[i] {
			selected = append(selected, item)
		}
	}
	return selected
}

//nolint:gocritic // hugeParam
func similarity(a, b feed.ContentItem) float64 {
	switch {
	case a.AuthorID != "" && a.AuthorID == b.AuthorID:
		return sameAuthorSimilarity
	case a.CommunityID != "" && a.CommunityID == b.CommunityID:
		return sameCommunitySimilarity
	default:
		return 0
	}
}

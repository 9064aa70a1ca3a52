// Feedline - Feed Ranking Delivery Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedline

/*
Package feed serves ranked feed pages with graceful degradation.

The Orchestrator walks an ordered list of ranking tiers, from the most
personalized to the cheapest:

  - HYBRID: personalized ranking from the user's interest vector
  - SIMPLIFIED: engagement and recency, no personalization
  - CHRONOLOGICAL: newest first, straight from the content store

HYBRID and SIMPLIFIED each sit behind their own circuit breaker. A tier that
fails, or whose breaker is open, hands the request to the next tier. The
result always names the tier that actually produced its items. If the
chronological tier fails too, GetFeed returns an error wrapping
ErrServiceUnavailable.

The whole walk runs inside a stampede.Guard, so concurrent misses for the
same page compute it once. Pages are cached per user, page and limit under a
per-user generation number; InvalidateUser bumps the generation so old pages
are never read again and simply expire.

# Usage

	orch, err := feed.NewOrchestrator(feed.Strategies{
	    Hybrid:        hybrid.Rank,
	    Simplified:    simplified.Rank,
	    Chronological: chronological.Rank,
	}, store, monitor, feed.DefaultOptions())

	result, err := orch.GetFeed(ctx, "u1", 1, 20)
	if errors.Is(err, feed.ErrServiceUnavailable) {
	    // every tier failed
	}
*/
package feed

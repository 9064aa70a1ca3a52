// Feedline - Feed Ranking Delivery Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedline

/*
Package ranking implements the three feed ranking tiers.

# Tiers

  - Hybrid: personalized. Builds an InterestVector of author and community
    affinities from the user's recent interactions, scores recent candidates
    with a pluggable ScoreFn and diversifies the result with MMR.
  - Simplified: the same candidates scored by engagement and recency only.
    No per-user reads.
  - Chronological: newest first from the content store. No scoring.

Each tier exposes a Rank method matching feed.Strategy, so the orchestrator
treats them uniformly:

	hybrid := ranking.NewHybrid(store, cacheStore, ranking.DefaultHybridConfig())
	simplified := ranking.NewSimplified(store, ranking.DefaultSimplifiedConfig())
	chronological := ranking.NewChronological(store)

# Interest Vectors

Interest vectors are cached under feed.InterestKey(userID) through the same
cache.Store as feed pages, behind their own stampede.Guard. Interaction
weights come from feed.InteractionKind.Weight and decay exponentially with
age.

# Scoring

ScoreFn is the extension point for recommendation formulas. DefaultScore
blends affinity, engagement and recency; callers can supply their own
through HybridConfig.Score.
*/
package ranking

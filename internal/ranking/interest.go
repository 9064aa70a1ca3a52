// Feedline - Feed Ranking Delivery Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedline

package ranking

import (
	"time"

	"github.com/tomtom215/feedline/internal/feed"
)

// InterestVector holds a user's normalized affinities. Weights are in
// [0, 1]; the strongest author and community score 1.
type InterestVector struct {
	Authors      map[string]float64 `json:"authors"`
	Communities  map[string]float64 `json:"communities"`
	Interactions int                `json:"interactions"`
	BuiltAt      time.Time          `json:"built_at"`
}

// Empty reports whether the vector was built from no interactions.
func (v *InterestVector) Empty() bool {
	return v.Interactions == 0
}

// BuildInterestVector aggregates interactions into author and community
// affinities. Each interaction contributes its kind's weight, halved every
// halfLife of age. Unknown kinds are ignored.
//
//nolint:gocritic // rangeValCopy: Interaction is small and read-only here
func BuildInterestVector(interactions []feed.Interaction, now time.Time, halfLife time.Duration) InterestVector {
	v := InterestVector{
		Authors:     make(map[string]float64),
		Communities: make(map[string]float64),
		BuiltAt:     now.UTC(),
	}

	for _, in := range interactions {
		w := in.Kind.Weight()
		if w == 0 {
			continue
		}
		w *= decay(now.Sub(in.CreatedAt), halfLife)
		v.Interactions++

		if in.AuthorID != "" {
			v.Authors[in.AuthorID] += w
		}
		if in.CommunityID != "" {
			v.Communities[in.CommunityID] += w
		}
	}

	normalize(v.Authors)
	normalize(v.Communities)
	return v
}

// Feedline - Feed Ranking Delivery Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedline

package database

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/tomtom215/feedline/internal/feed"
	"github.com/tomtom215/feedline/internal/logging"
)

// Demo dataset shape.
const (
	demoPosts        = 200
	demoUsers        = 20
	demoInteractions = 1500
	demoDays         = 7
)

// SeedDemoData fills an empty database with a deterministic demo dataset.
// It does nothing when posts already exist and returns the number of posts
// inserted.
func (db *DB) SeedDemoData(ctx context.Context) (int, error) {
	existing, err := db.CountPosts(ctx)
	if err != nil {
		return 0, err
	}
	if existing > 0 {
		logging.Debug().Int64("posts", existing).Msg("Skipping demo seed, database not empty")
		return 0, nil
	}

	logging.Info().Msg("Seeding database with demo posts and interactions...")

	authors := []string{
		"alice", "bob", "carol", "dave", "erin",
		"frank", "grace", "heidi", "ivan", "judy",
	}
	communities := []string{"golang", "databases", "distributed", "frontend", "security"}
	kinds := []feed.InteractionKind{
		feed.InteractionView, feed.InteractionView, feed.InteractionView,
		feed.InteractionLike, feed.InteractionLike,
		feed.InteractionComment, feed.InteractionShare,
	}

	rng := rand.New(rand.NewPCG(42, 2026)) //nolint:gosec // demo data, not security sensitive
	now := time.Now().UTC()

	postIDs := make([]string, 0, demoPosts)
	for i := 0; i < demoPosts; i++ {
		community := communities[rng.IntN(len(communities))]
		item := feed.ContentItem{
			ID:          fmt.Sprintf("post-%04d", i+1),
			AuthorID:    authors[rng.IntN(len(authors))],
			CommunityID: community,
			Title:       fmt.Sprintf("Thoughts on %s #%d", community, i+1),
			CreatedAt:   now.Add(-time.Duration(rng.Int64N(int64(demoDays * 24 * time.Hour)))),
		}
		if err := db.InsertPost(ctx, item); err != nil {
			return i, err
		}
		postIDs = append(postIDs, item.ID)
	}

	for i := 0; i < demoInteractions; i++ {
		in := feed.Interaction{
			UserID:    fmt.Sprintf("u%d", rng.IntN(demoUsers)+1),
			PostID:    postIDs[rng.IntN(len(postIDs))],
			Kind:      kinds[rng.IntN(len(kinds))],
			CreatedAt: now.Add(-time.Duration(rng.Int64N(int64(demoDays * 24 * time.Hour)))),
		}
		if err := db.RecordInteraction(ctx, in); err != nil {
			return demoPosts, err
		}
	}

	logging.Info().
		Int("posts", demoPosts).
		Int("users", demoUsers).
		Int("interactions", demoInteractions).
		Msg("Demo data seeded")

	return demoPosts, nil
}

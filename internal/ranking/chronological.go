// Feedline - Feed Ranking Delivery Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedline

package ranking

import (
	"context"
	"fmt"

	"github.com/tomtom215/feedline/internal/feed"
)

// Chronological serves the newest posts. It is the terminal tier.
type Chronological struct {
	store feed.ContentStore
}

// NewChronological creates the chronological ranker.
func NewChronological(store feed.ContentStore) *Chronological {
	return &Chronological{store: store}
}

// Rank returns one page of posts, newest first. It matches feed.Strategy.
func (c *Chronological) Rank(ctx context.Context, _ string, page, limit int) ([]feed.ContentItem, error) {
	items, err := c.store.ListRecent(ctx, page, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent posts: %w", err)
	}
	return items, nil
}

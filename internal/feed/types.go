// Feedline - Feed Ranking Delivery Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedline

package feed

import (
	"context"
	"errors"
	"time"
)

// ErrServiceUnavailable is returned when no tier could produce a page.
var ErrServiceUnavailable = errors.New("feed service unavailable")

// Tier identifies the ranking strategy that produced a page.
type Tier string

const (
	TierHybrid        Tier = "HYBRID"
	TierSimplified    Tier = "SIMPLIFIED"
	TierChronological Tier = "CHRONOLOGICAL"
)

// Degraded reports whether the tier is a fallback.
func (t Tier) Degraded() bool {
	return t != TierHybrid
}

// ContentItem is a rankable post. The orchestrator passes items through
// without inspecting them.
type ContentItem struct {
	ID           string    `json:"id"`
	AuthorID     string    `json:"author_id"`
	CommunityID  string    `json:"community_id"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"created_at"`
	LikeCount    int64     `json:"like_count"`
	CommentCount int64     `json:"comment_count"`

	// Score is the ranking score assigned by the serving tier. Zero for
	// chronological pages.
	Score float64 `json:"score"`
}

// InteractionKind classifies a user's interaction with a post.
type InteractionKind string

const (
	InteractionView    InteractionKind = "view"
	InteractionLike    InteractionKind = "like"
	InteractionComment InteractionKind = "comment"
	InteractionShare   InteractionKind = "share"
)

// Weight returns the implicit-feedback strength of the interaction.
// Stronger signals carry more weight.
func (k InteractionKind) Weight() float64 {
	switch k {
	case InteractionShare:
		return 1.0
	case InteractionComment:
		return 0.8
	case InteractionLike:
		return 0.5
	case InteractionView:
		return 0.1
	default:
		return 0
	}
}

// Valid reports whether k is a known interaction kind.
func (k InteractionKind) Valid() bool {
	return k.Weight() > 0
}

// Interaction is a user event on a post, joined with the post's author and
// community so rankers can build affinities without a second lookup.
type Interaction struct {
	UserID      string          `json:"user_id"`
	PostID      string          `json:"post_id"`
	AuthorID    string          `json:"author_id"`
	CommunityID string          `json:"community_id"`
	Kind        InteractionKind `json:"kind"`
	CreatedAt   time.Time       `json:"created_at"`
}

// FeedResult is one ranked page. It is not modified after construction.
//
//nolint:revive // feed.FeedResult reads better at call sites than feed.Result
type FeedResult struct {
	Items       []ContentItem `json:"items"`
	Tier        Tier          `json:"tier"`
	Page        int           `json:"page"`
	Limit       int           `json:"limit"`
	GeneratedAt time.Time     `json:"generated_at"`

	// Cached is true when the page was read from the page cache.
	Cached bool `json:"cached"`
}

// Strategy ranks one page of a user's feed.
type Strategy func(ctx context.Context, userID string, page, limit int) ([]ContentItem, error)

// ContentStore is the read side of the post and interaction data.
type ContentStore interface {
	// ListRecent returns posts newest first, offset by page.
	ListRecent(ctx context.Context, page, limit int) ([]ContentItem, error)

	// ListCandidates returns up to limit posts created after since, newest first.
	ListCandidates(ctx context.Context, since time.Time, limit int) ([]ContentItem, error)

	// ListUserInteractions returns up to limit of the user's interactions
	// after since, newest first.
	ListUserInteractions(ctx context.Context, userID string, since time.Time, limit int) ([]Interaction, error)
}

// Cache key layout.
const (
	pageKeyPrefix       = "feed:"
	generationKeyPrefix = "feedgen:"
	interestKeyPrefix   = "interest:"
)

// InterestKey is the cache key of a user's interest vector.
func InterestKey(userID string) string {
	return interestKeyPrefix + userID
}

func generationKey(userID string) string {
	return generationKeyPrefix + userID
}

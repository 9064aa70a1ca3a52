// Feedline - Feed Ranking Delivery Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedline

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/feedline/internal/feed"
	"github.com/tomtom215/feedline/internal/metrics"
)

// maxReadLimit bounds every list query.
const maxReadLimit = 10000

// maxReadOffset bounds how deep ListRecent pages. Deeper pages are empty.
const maxReadOffset = 1_000_000

var _ feed.ContentStore = (*DB)(nil)

const postColumns = `id, author_id, community_id, title, created_at, like_count, comment_count`

// ListRecent returns posts newest first. page is 1-based.
func (db *DB) ListRecent(ctx context.Context, page, limit int) ([]feed.ContentItem, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	page = max(page, 1)
	limit = clampLimit(limit)
	if page-1 > maxReadOffset/limit {
		return []feed.ContentItem{}, nil
	}
	offset := (page - 1) * limit

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+postColumns+` FROM posts ORDER BY created_at DESC, id ASC LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		metrics.RecordDBQuery("list_recent", "posts", time.Since(start), err)
		return nil, fmt.Errorf("failed to query recent posts: %w", err)
	}
	defer closeWithLog(rows, "rows")

	items, err := scanPosts(rows, limit)
	metrics.RecordDBQuery("list_recent", "posts", time.Since(start), err)
	return items, err
}

// ListCandidates returns up to limit posts created after since, newest first.
func (db *DB) ListCandidates(ctx context.Context, since time.Time, limit int) ([]feed.ContentItem, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	limit = clampLimit(limit)

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+postColumns+` FROM posts WHERE created_at > ? ORDER BY created_at DESC, id ASC LIMIT ?`,
		since.UTC(), limit)
	if err != nil {
		metrics.RecordDBQuery("list_candidates", "posts", time.Since(start), err)
		return nil, fmt.Errorf("failed to query candidate posts: %w", err)
	}
	defer closeWithLog(rows, "rows")

	items, err := scanPosts(rows, limit)
	metrics.RecordDBQuery("list_candidates", "posts", time.Since(start), err)
	return items, err
}

// ListUserInteractions returns up to limit of the user's interactions after
// since, newest first, with each post's author and community. Interactions
// whose post no longer exists are skipped.
func (db *DB) ListUserInteractions(ctx context.Context, userID string, since time.Time, limit int) ([]feed.Interaction, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	limit = clampLimit(limit)

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, `
		SELECT i.user_id, i.post_id, p.author_id, p.community_id, i.kind, i.created_at
		FROM interactions i
		JOIN posts p ON p.id = i.post_id
		WHERE i.user_id = ? AND i.created_at > ?
		ORDER BY i.created_at DESC
		LIMIT ?`,
		userID, since.UTC(), limit)
	if err != nil {
		metrics.RecordDBQuery("list_interactions", "interactions", time.Since(start), err)
		return nil, fmt.Errorf("failed to query interactions for %s: %w", userID, err)
	}
	defer closeWithLog(rows, "rows")

	out := make([]feed.Interaction, 0, min(limit, 64))
	for rows.Next() {
		var in feed.Interaction
		var kind string
		if err := rows.Scan(&in.UserID, &in.PostID, &in.AuthorID, &in.CommunityID, &kind, &in.CreatedAt); err != nil {
			metrics.RecordDBQuery("list_interactions", "interactions", time.Since(start), err)
			return nil, fmt.Errorf("failed to scan interaction: %w", err)
		}
		in.Kind = feed.InteractionKind(kind)
		in.CreatedAt = in.CreatedAt.UTC()
		out = append(out, in)
	}
	err = rows.Err()
	metrics.RecordDBQuery("list_interactions", "interactions", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to iterate interactions: %w", err)
	}
	return out, nil
}

// InsertPost inserts or replaces a post. A zero CreatedAt is set to now.
//
//nolint:gocritic // hugeParam: ContentItem is passed by value to keep the API symmetric with reads
func (db *DB) InsertPost(ctx context.Context, item feed.ContentItem) error {
	if item.ID == "" || item.AuthorID == "" {
		return errors.New("post requires an ID and an author")
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
	}

	ctx, cancel := ensureContext(ctx)
	defer cancel()

	start := time.Now()
	_, err := db.conn.ExecContext(ctx,
		`INSERT OR REPLACE INTO posts (`+postColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.AuthorID, item.CommunityID, item.Title, item.CreatedAt.UTC(), item.LikeCount, item.CommentCount)
	metrics.RecordDBQuery("insert", "posts", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to insert post %s: %w", item.ID, err)
	}
	return nil
}

// RecordInteraction stores an interaction and, for likes and comments,
// increments the post's counter in the same transaction. A zero CreatedAt
// is set to now.
func (db *DB) RecordInteraction(ctx context.Context, in feed.Interaction) error {
	if in.UserID == "" || in.PostID == "" || !in.Kind.Valid() {
		return fmt.Errorf("%w: user=%q post=%q kind=%q", ErrInvalidInteraction, in.UserID, in.PostID, in.Kind)
	}
	if in.CreatedAt.IsZero() {
		in.CreatedAt = time.Now()
	}

	ctx, cancel := ensureContext(ctx)
	defer cancel()

	start := time.Now()
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT count(*) > 0 FROM posts WHERE id = ?`, in.PostID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to look up post: %w", err)
		}
		if !exists {
			return fmt.Errorf("%w: %s", ErrPostNotFound, in.PostID)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO interactions (id, user_id, post_id, kind, created_at) VALUES (?, ?, ?, ?, ?)`,
			uuid.NewString(), in.UserID, in.PostID, string(in.Kind), in.CreatedAt.UTC()); err != nil {
			return fmt.Errorf("failed to insert interaction: %w", err)
		}

		var counter string
		switch in.Kind {
		case feed.InteractionLike:
			counter = "like_count"
		case feed.InteractionComment:
			counter = "comment_count"
		default:
			return nil
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE posts SET `+counter+` = `+counter+` + 1 WHERE id = ?`, in.PostID); err != nil {
			return fmt.Errorf("failed to update %s: %w", counter, err)
		}
		return nil
	})
	metrics.RecordDBQuery("insert", "interactions", time.Since(start), err)
	return err
}

// CountPosts returns the number of stored posts.
func (db *DB) CountPosts(ctx context.Context) (int64, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	var n int64
	if err := db.conn.QueryRowContext(ctx, `SELECT count(*) FROM posts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count posts: %w", err)
	}
	return n, nil
}

func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func scanPosts(rows *sql.Rows, capHint int) ([]feed.ContentItem, error) {
	out := make([]feed.ContentItem, 0, min(capHint, 64))
	for rows.Next() {
		var it feed.ContentItem
		if err := rows.Scan(&it.ID, &it.AuthorID, &it.CommunityID, &it.Title, &it.CreatedAt, &it.LikeCount, &it.CommentCount); err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		it.CreatedAt = it.CreatedAt.UTC()
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate posts: %w", err)
	}
	return out, nil
}

func clampLimit(limit int) int {
	if limit < 1 {
		return 1
	}
	if limit > maxReadLimit {
		return maxReadLimit
	}
	return limit
}

// Feedline - Feed Ranking Delivery Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedline

package database

import (
	"context"
	"fmt"
	"time"
)

// schemaContext returns a context with timeout for schema operations
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

func (db *DB) createSchema() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range append(tableQueries(), indexQueries()...) {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}
	return nil
}

// tableQueries returns the table creation SQL statements. Timestamps are
// stored as UTC TIMESTAMP so no ICU extension is needed.
func tableQueries() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS posts (
			id VARCHAR PRIMARY KEY,
			author_id VARCHAR NOT NULL,
			community_id VARCHAR NOT NULL DEFAULT '',
			title VARCHAR NOT NULL,
			created_at TIMESTAMP NOT NULL,
			like_count BIGINT NOT NULL DEFAULT 0,
			comment_count BIGINT NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS interactions (
			id VARCHAR PRIMARY KEY,
			user_id VARCHAR NOT NULL,
			post_id VARCHAR NOT NULL,
			kind VARCHAR NOT NULL,
			created_at TIMESTAMP NOT NULL
		);`,
	}
}

func indexQueries() []string {
	return []string{
		`CREATE INDEX IF NOT EXISTS idx_posts_created_at ON posts(created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_interactions_user_created ON interactions(user_id, created_at);`,
	}
}

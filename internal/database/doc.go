// Feedline - Feed Ranking Delivery Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedline

// Package database is the DuckDB-backed content store for posts and user
// interactions.
//
// # Overview
//
// DB implements feed.ContentStore. Reads are recency ordered and bounded by
// a limit, so every ranking tier has a predictable cost:
//
//   - ListRecent: newest posts, offset by page (chronological tier)
//   - ListCandidates: posts created after a cutoff (hybrid and simplified tiers)
//   - ListUserInteractions: a user's recent interactions joined with the
//     post's author and community (interest vectors)
//
// InsertPost and RecordInteraction write data for seeding, tests and the
// demo dataset. RecordInteraction also bumps the post's like or comment
// count in the same transaction.
//
// # Files
//
//   - database.go: connection lifecycle and pool settings
//   - schema.go: table and index creation
//   - content.go: reads and writes
//   - seed.go: demo data
//
// # Usage
//
//	db, err := database.New(&cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	posts, err := db.ListRecent(ctx, 1, 20)
//
// An empty Path opens an in-memory database, which tests use.
//
// Every query is timed into the db_query_duration_seconds histogram.
package database

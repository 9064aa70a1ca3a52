// Feedline - Feed Ranking Delivery Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedline

// Package testinfra provides test infrastructure for integration testing with containers.
//
// This package uses testcontainers-go to run real backing services for tests
// built with the integration tag.
//
// # Redis Container
//
// RedisContainer runs a disposable Redis for exercising the remote cache:
//
//	func TestRedisStore(t *testing.T) {
//	    testinfra.SkipIfNoDocker(t)
//	    ctx := context.Background()
//	    redis, err := testinfra.NewRedisContainer(ctx)
//	    if err != nil {
//	        t.Fatal(err)
//	    }
//	    defer testinfra.CleanupContainer(t, ctx, redis)
//
//	    store := cache.NewRedisStore(cache.Options{RedisURL: redis.URL})
//	    // ...
//	}
//
// # CI Considerations
//
// These tests require Docker. They are skipped gracefully when Docker is not
// available, and excluded entirely unless run with -tags integration.
package testinfra

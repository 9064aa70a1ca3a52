// Feedline - Feed Ranking Delivery Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedline

/*
Package services provides suture.Service wrappers for feedline components.

Each wrapper translates a component's lifecycle into suture's
Serve(ctx context.Context) error and implements fmt.Stringer so suture can
name it in its event log.

Available services:

  - HTTPServerService: runs *http.Server, shutting down gracefully when the
    supervisor stops it
  - AlertService: evaluates health monitor thresholds on a ticker, logging
    active alerts and exporting their count to Prometheus

The memory cache store implements suture.Service itself and needs no wrapper.
*/
package services

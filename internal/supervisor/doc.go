// Feedline - Feed Ranking Delivery Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedline

/*
Package supervisor runs feedline's long-lived goroutines under a suture v4
supervision tree.

Tree layout:

	feedline (root)
	├── cache-layer       memory cache expiry sweep
	├── monitoring-layer  health alert checker
	└── api-layer         HTTP server

Each layer restarts its own services with exponential backoff; a failure in
one layer does not restart another. Supervisor events go to zerolog through
the slog adapter in the logging package and sutureslog.

Usage:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddMonitoringService(services.NewAlertService(monitor, services.AlertServiceConfig{}, logger))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	return tree.Serve(ctx)
*/
package supervisor

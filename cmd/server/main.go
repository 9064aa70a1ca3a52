// Feedline - Feed Ranking Delivery Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedline

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/feedline/internal/api"
	"github.com/tomtom215/feedline/internal/cache"
	"github.com/tomtom215/feedline/internal/config"
	"github.com/tomtom215/feedline/internal/logging"
	"github.com/tomtom215/feedline/internal/supervisor"
	"github.com/tomtom215/feedline/internal/supervisor/services"
)

func main() {
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Str("cache_backend", cfg.Cache.Backend).
		Msg("Starting feedline")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p, err := initPipeline(ctx, cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize feed pipeline")
	}
	defer p.Close()

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	if sweeper, ok := p.cache.(*cache.MemoryStore); ok {
		tree.AddCacheService(sweeper)
	}

	tree.AddMonitoringService(services.NewAlertService(p.monitor, services.AlertServiceConfig{
		Interval:    cfg.Monitor.AlertInterval,
		OnlyChanges: cfg.Monitor.AlertOnlyChanges,
	}, logging.WithComponent("alerts")))

	router := api.NewRouter(api.NewHandler(p.orchestrator, p.monitor), api.RateLimitConfig{
		Requests: cfg.Server.RateLimitReqs,
		Window:   cfg.Server.RateLimitWindow,
		Disabled: cfg.Server.RateLimitDisabled,
	})

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	var serveErr error
	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
		serveErr = <-errCh
	case serveErr = <-errCh:
	}
	if serveErr != nil && !errors.Is(serveErr, context.Canceled) {
		logging.Error().Err(serveErr).Msg("Supervisor tree error")
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Feedline stopped")
}

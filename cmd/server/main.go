// StanceMap - Geotagged Stance Voting and Opinion Mapping
// Copyright 2026 StanceMap contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stancemap/stancemap

// Command server runs the StanceMap engine: an append-only vote ledger
// with last-writer-wins resolution, spatial aggregation and real-time
// fan-out over WebSocket.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/stancemap/stancemap/internal/api"
	"github.com/stancemap/stancemap/internal/auth"
	"github.com/stancemap/stancemap/internal/config"
	"github.com/stancemap/stancemap/internal/database"
	"github.com/stancemap/stancemap/internal/fanout"
	"github.com/stancemap/stancemap/internal/logging"
	"github.com/stancemap/stancemap/internal/resolve"
	"github.com/stancemap/stancemap/internal/supervisor"
	ws "github.com/stancemap/stancemap/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Init(logging.Config{})
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logging.Info().
		Str("environment", cfg.Server.Environment).
		Str("auth_mode", cfg.Security.AuthMode).
		Msg("starting stancemap server")

	db, err := database.New(cfg.Database, cfg.Aggregation.CountMode)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to open database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("failed to close database")
		}
	}()

	// Resolution cache: resolved one-vote-per-user sets, kept current by
	// applying the same events the fan-out delivers.
	cache := resolve.NewCache(resolve.NewResolver(db))

	bus := fanout.NewBus(cfg.Realtime.BusBuffer)
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Error().Err(err).Msg("failed to close event bus")
		}
	}()
	publisher := fanout.NewPublisher(bus.Publisher())
	dispatcher := fanout.NewDispatcher(bus)

	hub := ws.NewHub(dispatcher, cache, cfg.Aggregation)
	wsHandler := ws.NewHandler(hub, cfg.Security.CORSOrigins, cfg.Realtime.SendBuffer)

	authenticator := auth.New(cfg.Security)
	handler := api.NewHandler(db, cache, publisher, wsHandler, cfg)
	router := api.NewRouter(handler, authenticator)
	server := api.NewServer(cfg.Server, router.Setup())

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddRealtimeService(dispatcher)
	tree.AddRealtimeService(hub)
	tree.AddAPIService(server)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Fatal().Err(err).Msg("supervisor tree exited")
	}
	logging.Info().Msg("shutdown complete")
}

// StanceMap - Geotagged Stance Voting and Opinion Mapping
// Copyright 2026 StanceMap contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stancemap/stancemap

// Package api exposes the HTTP surface: topic lifecycle, vote appends,
// resolved snapshots, spatial aggregation and the websocket upgrade.
package api

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/stancemap/stancemap/internal/config"
	"github.com/stancemap/stancemap/internal/fanout"
	"github.com/stancemap/stancemap/internal/models"
	"github.com/stancemap/stancemap/internal/resolve"
	"github.com/stancemap/stancemap/internal/websocket"
)

// Store is the persistence surface the handlers depend on. It is the
// append-only ledger plus topic records; nothing here mutates a vote.
type Store interface {
	AppendVote(ctx context.Context, event *models.VoteEvent) error
	LatestPerUser(ctx context.Context, topicID uuid.UUID) ([]models.VoteEvent, error)
	VotesWithinRadius(ctx context.Context, topicID uuid.UUID, lat, lng, radiusKm float64) ([]models.VoteEvent, error)
	CountResolvedVoters(ctx context.Context, topicID uuid.UUID) (int, error)

	CreateTopic(ctx context.Context, topic *models.Topic, cooldown time.Duration) error
	GetTopic(ctx context.Context, id uuid.UUID) (*models.Topic, error)
	ListTopics(ctx context.Context) ([]models.Topic, error)

	Ping(ctx context.Context) error
}

// Handler carries the dependencies shared by all route handlers.
type Handler struct {
	store     Store
	cache     *resolve.Cache
	publisher *fanout.Publisher
	ws        *websocket.Handler
	cfg       *config.Config

	startedAt time.Time
}

// NewHandler wires the route handlers.
func NewHandler(store Store, cache *resolve.Cache, publisher *fanout.Publisher, ws *websocket.Handler, cfg *config.Config) *Handler {
	return &Handler{
		store:     store,
		cache:     cache,
		publisher: publisher,
		ws:        ws,
		cfg:       cfg,
		startedAt: time.Now(),
	}
}

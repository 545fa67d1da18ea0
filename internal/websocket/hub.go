// StanceMap - Geotagged Stance Voting and Opinion Mapping
// Copyright 2026 StanceMap contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stancemap/stancemap

// Package websocket carries the live map session: clients subscribe to
// topics, receive pushed vote and topic-created events, and stream view
// changes that the server answers with freshly aggregated cells.
package websocket

import (
	"context"

	"github.com/stancemap/stancemap/internal/config"
	"github.com/stancemap/stancemap/internal/fanout"
	"github.com/stancemap/stancemap/internal/logging"
	"github.com/stancemap/stancemap/internal/metrics"
	"github.com/stancemap/stancemap/internal/resolve"
)

// Message types sent to clients.
const (
	MessageTypeVote         = "vote"
	MessageTypeTopicCreated = "topic_created"
	MessageTypeSubscribed   = "subscribed"
	MessageTypeUnsubscribed = "unsubscribed"
	MessageTypeAggregate    = "aggregate"
	MessageTypePing         = "ping"
	MessageTypePong         = "pong"
	MessageTypeError        = "error"
)

// Message is one WebSocket frame in either direction's envelope form.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// Hub maintains the set of active clients and their dispatcher
// registrations. Per-topic routing lives in the fan-out dispatcher; the
// hub only owns connection lifecycle.
type Hub struct {
	Register   chan *Client
	Unregister chan *Client

	dispatcher *fanout.Dispatcher
	cache      *resolve.Cache
	aggCfg     config.AggregationConfig

	clients map[*Client]bool
}

// NewHub creates a hub wired to the fan-out dispatcher and the resolved
// vote cache used for view aggregation.
func NewHub(dispatcher *fanout.Dispatcher, cache *resolve.Cache, aggCfg config.AggregationConfig) *Hub {
	return &Hub{
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		dispatcher: dispatcher,
		cache:      cache,
		aggCfg:     aggCfg,
		clients:    make(map[*Client]bool),
	}
}

// Serve runs the hub until ctx is canceled, then closes every client.
// It satisfies the supervision tree's service contract.
func (h *Hub) Serve(ctx context.Context) error {
	logging.Info().Msg("websocket hub started")

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return ctx.Err()

		case client := <-h.Register:
			h.clients[client] = true
			h.dispatcher.Attach(client)
			metrics.WSClients.Inc()
			logging.Info().
				Str("user_id", client.userID).
				Int("total_clients", len(h.clients)).
				Msg("websocket client connected")

		case client := <-h.Unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				h.dispatcher.Detach(client)
				client.shutdown()
				metrics.WSClients.Dec()
			}
			logging.Info().
				Str("user_id", client.userID).
				Int("total_clients", len(h.clients)).
				Msg("websocket client disconnected")
		}
	}
}

func (h *Hub) shutdown() {
	for client := range h.clients {
		h.dispatcher.Detach(client)
		client.shutdown()
		delete(h.clients, client)
		metrics.WSClients.Dec()
	}
	logging.Info().Msg("websocket hub shut down")
}

// StanceMap - Geotagged Stance Voting and Opinion Mapping
// Copyright 2026 StanceMap contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stancemap/stancemap

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stancemap/stancemap/internal/auth"
	"github.com/stancemap/stancemap/internal/middleware"
)

// Router builds the HTTP surface around a Handler.
type Router struct {
	handler       *Handler
	authenticator *auth.Authenticator
}

// NewRouter creates the router.
func NewRouter(handler *Handler, authenticator *auth.Authenticator) *Router {
	return &Router{handler: handler, authenticator: authenticator}
}

// Setup wires all routes and middleware.
func (rt *Router) Setup() http.Handler {
	cfg := rt.handler.cfg
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Security.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-User-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Probes and scrapes stay outside auth and rate limits.
	r.Get("/api/v1/health", rt.handler.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httprate.LimitByIP(cfg.Security.RateLimitReqs, cfg.Security.RateLimitWindow))
		r.Use(middleware.Metrics)
		r.Use(rt.authenticator.Middleware)

		r.Get("/ws", rt.handler.handleWebSocket)

		r.Route("/topics", func(r chi.Router) {
			r.Post("/", rt.handler.handleCreateTopic)
			r.Get("/", rt.handler.handleListTopics)

			r.Route("/{topicID}", func(r chi.Router) {
				r.Get("/", rt.handler.handleGetTopic)
				r.Post("/votes", rt.handler.handleSubmitVote)
				r.Get("/votes", rt.handler.handleVoteSnapshot)
				r.Get("/nearby", rt.handler.handleNearbyVotes)
				r.Get("/aggregate", rt.handler.handleAggregate)
				r.Post("/aggregate", rt.handler.handlePolygonAggregate)
			})
		})
	})

	return r
}

// StanceMap - Geotagged Stance Voting and Opinion Mapping
// Copyright 2026 StanceMap contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stancemap/stancemap

package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/stancemap/stancemap/internal/auth"
	"github.com/stancemap/stancemap/internal/database"
	"github.com/stancemap/stancemap/internal/logging"
	"github.com/stancemap/stancemap/internal/metrics"
	"github.com/stancemap/stancemap/internal/models"
)

// SubmitVoteRequest is the body of POST /topics/{topicID}/votes.
type SubmitVoteRequest struct {
	Stance    string  `json:"stance" validate:"required,stance"`
	Intensity int     `json:"intensity" validate:"gte=0,lte=100"`
	Latitude  float64 `json:"latitude" validate:"latitude"`
	Longitude float64 `json:"longitude" validate:"longitude"`
}

// handleSubmitVote appends a vote to the ledger. Earlier votes by the
// same user on the same topic are never touched; resolution picks the
// newest at read time. The appended event is fanned out after the write
// commits, and a fan-out failure does not undo the vote.
func (h *Handler) handleSubmitVote(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		respondError(w, r, http.StatusUnauthorized, &models.APIError{
			Code:    models.ErrCodeUnauthorized,
			Message: "authentication required",
		})
		return
	}

	topicID, ok := topicIDParam(w, r)
	if !ok {
		return
	}

	var req SubmitVoteRequest
	if !decodeAndValidate(w, r, &req) {
		metrics.VotesRejected.WithLabelValues("validation").Inc()
		return
	}

	if _, err := h.store.GetTopic(r.Context(), topicID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			metrics.VotesRejected.WithLabelValues("unknown_topic").Inc()
			respondError(w, r, http.StatusNotFound, &models.APIError{
				Code:    models.ErrCodeNotFound,
				Message: "topic not found",
			})
			return
		}
		respondInternalError(w, r, err, "failed to load topic")
		return
	}

	event := models.NewVoteEvent(topicID, userID, models.Stance(req.Stance), req.Intensity, req.Latitude, req.Longitude)
	// The store counts the append; it is the only place the write commits.
	if err := h.store.AppendVote(r.Context(), event); err != nil {
		respondInternalError(w, r, err, "failed to append vote")
		return
	}

	// Keep the in-memory resolved set current without re-reading the
	// ledger; the same event also reaches live subscribers.
	h.cache.Apply(topicID, *event)

	if err := h.publisher.PublishVote(event); err != nil {
		logger := logging.Ctx(r.Context())
		logger.Warn().Err(err).Str("vote_id", event.ID.String()).Msg("failed to publish vote event")
	}

	respondData(w, r, http.StatusCreated, event)
}

// handleVoteSnapshot returns the resolved one-vote-per-user snapshot for
// a topic. Reconnecting clients use this as their reconciliation base and
// merge streamed events on top of it.
func (h *Handler) handleVoteSnapshot(w http.ResponseWriter, r *http.Request) {
	topicID, ok := topicIDParam(w, r)
	if !ok {
		return
	}

	set, generation, err := h.cache.Snapshot(r.Context(), topicID)
	if err != nil {
		respondInternalError(w, r, err, "failed to resolve vote snapshot")
		return
	}

	events := set.Events()
	respondCollection(w, r, events, len(events), &generation)
}

// handleNearbyVotes returns resolved votes within a great-circle radius
// of a point, with the radius-weighted average stance.
func (h *Handler) handleNearbyVotes(w http.ResponseWriter, r *http.Request) {
	topicID, ok := topicIDParam(w, r)
	if !ok {
		return
	}

	lat, err := floatQuery(r, "lat")
	if err != nil {
		respondBadRequest(w, r, err)
		return
	}
	lng, err := floatQuery(r, "lng")
	if err != nil {
		respondBadRequest(w, r, err)
		return
	}
	radiusKm, err := floatQuery(r, "radius_km")
	if err != nil {
		respondBadRequest(w, r, err)
		return
	}
	if radiusKm <= 0 || radiusKm > h.cfg.Aggregation.MaxRadiusKm {
		respondBadRequest(w, r, fmt.Errorf("radius_km must be in (0, %.0f]", h.cfg.Aggregation.MaxRadiusKm))
		return
	}

	events, err := h.store.VotesWithinRadius(r.Context(), topicID, lat, lng, radiusKm)
	if err != nil {
		respondInternalError(w, r, err, "failed to query nearby votes")
		return
	}
	respondCollection(w, r, events, len(events), nil)
}

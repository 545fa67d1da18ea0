// StanceMap - Geotagged Stance Voting and Opinion Mapping
// Copyright 2026 StanceMap contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stancemap/stancemap

package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/stancemap/stancemap/internal/auth"
	"github.com/stancemap/stancemap/internal/database"
	"github.com/stancemap/stancemap/internal/logging"
	"github.com/stancemap/stancemap/internal/models"
)

// CreateTopicRequest is the body of POST /topics.
type CreateTopicRequest struct {
	Category    string `json:"category" validate:"required,topic_category"`
	Description string `json:"description" validate:"required,min=3,max=500"`
}

// handleCreateTopic creates a topic, enforcing the per-creator cooldown.
// A rejected attempt tells the client exactly when to retry so the UI can
// show a countdown instead of a dead button.
func (h *Handler) handleCreateTopic(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		respondError(w, r, http.StatusUnauthorized, &models.APIError{
			Code:    models.ErrCodeUnauthorized,
			Message: "authentication required",
		})
		return
	}

	var req CreateTopicRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	topic := models.NewTopic(models.TopicCategory(req.Category), req.Description, userID)
	err := h.store.CreateTopic(r.Context(), topic, h.cfg.Security.TopicCooldown)
	if err != nil {
		var rateErr *database.RateLimitError
		if errors.As(err, &rateErr) {
			seconds := rateErr.RetryAfterSeconds()
			w.Header().Set("Retry-After", strconv.Itoa(seconds))
			respondError(w, r, http.StatusTooManyRequests, &models.APIError{
				Code:    models.ErrCodeRateLimited,
				Message: "topic creation cooldown active",
				Details: map[string]interface{}{"retry_after_seconds": seconds},
			})
			return
		}
		respondInternalError(w, r, err, "failed to create topic")
		return
	}

	logger := logging.Ctx(r.Context())
	summary := topic.Summary()
	if err := h.publisher.PublishTopicCreated(&summary); err != nil {
		// The topic exists; fan-out is best effort.
		logger.Warn().Err(err).Str("topic_id", topic.ID.String()).Msg("failed to publish topic-created event")
	}

	logger.Info().
		Str("topic_id", topic.ID.String()).
		Str("category", string(topic.Category)).
		Msg("topic created")
	respondData(w, r, http.StatusCreated, topic)
}

// handleListTopics returns all topics with their resolved voter counts.
func (h *Handler) handleListTopics(w http.ResponseWriter, r *http.Request) {
	topics, err := h.store.ListTopics(r.Context())
	if err != nil {
		respondInternalError(w, r, err, "failed to list topics")
		return
	}
	respondCollection(w, r, topics, len(topics), nil)
}

// handleGetTopic returns one topic by id.
func (h *Handler) handleGetTopic(w http.ResponseWriter, r *http.Request) {
	topicID, ok := topicIDParam(w, r)
	if !ok {
		return
	}

	topic, err := h.store.GetTopic(r.Context(), topicID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, r, http.StatusNotFound, &models.APIError{
				Code:    models.ErrCodeNotFound,
				Message: "topic not found",
			})
			return
		}
		respondInternalError(w, r, err, "failed to load topic")
		return
	}
	respondData(w, r, http.StatusOK, topic)
}

// StanceMap - Geotagged Stance Voting and Opinion Mapping
// Copyright 2026 StanceMap contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stancemap/stancemap

package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/stancemap/stancemap/internal/logging"
	"github.com/stancemap/stancemap/internal/models"
	"github.com/stancemap/stancemap/internal/validation"
)

const maxRequestBody = 1 << 20 // 1 MB

func respondJSON(w http.ResponseWriter, r *http.Request, status int, resp models.APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger := logging.Ctx(r.Context())
		logger.Error().Err(err).Msg("failed to encode response")
	}
}

func respondData(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	respondJSON(w, r, status, models.APIResponse{
		Status:   "success",
		Data:     data,
		Metadata: &models.Metadata{Timestamp: time.Now().UTC()},
	})
}

func respondCollection(w http.ResponseWriter, r *http.Request, data interface{}, count int, generation *time.Time) {
	respondJSON(w, r, http.StatusOK, models.APIResponse{
		Status: "success",
		Data:   data,
		Metadata: &models.Metadata{
			Timestamp:  time.Now().UTC(),
			Count:      &count,
			Generation: generation,
		},
	})
}

func respondError(w http.ResponseWriter, r *http.Request, status int, apiErr *models.APIError) {
	respondJSON(w, r, status, models.APIResponse{
		Status: "error",
		Error:  apiErr,
	})
}

func respondBadRequest(w http.ResponseWriter, r *http.Request, err error) {
	respondError(w, r, http.StatusBadRequest, &models.APIError{
		Code:    models.ErrCodeValidation,
		Message: err.Error(),
	})
}

func respondInternalError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	logger := logging.Ctx(r.Context())
	logger.Error().Err(err).Msg(msg)
	respondError(w, r, http.StatusInternalServerError, &models.APIError{
		Code:    models.ErrCodeInternal,
		Message: msg,
	})
}

// decodeAndValidate reads the request body into dst and runs struct
// validation, writing the error response itself on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, r, http.StatusBadRequest, &models.APIError{
			Code:    models.ErrCodeValidation,
			Message: "invalid request body",
			Details: map[string]interface{}{"reason": err.Error()},
		})
		return false
	}
	if verr := validation.ValidateStruct(dst); verr != nil {
		respondError(w, r, http.StatusBadRequest, verr.ToAPIError())
		return false
	}
	return true
}

// topicIDParam parses the {topicID} URL parameter, writing the error
// response itself on failure.
func topicIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "topicID")
	id, err := uuid.Parse(raw)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, &models.APIError{
			Code:    models.ErrCodeValidation,
			Message: fmt.Sprintf("invalid topic id %q", raw),
		})
		return uuid.Nil, false
	}
	return id, true
}

// floatQuery parses a required float query parameter.
func floatQuery(r *http.Request, name string) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, fmt.Errorf("query parameter %q is required", name)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("query parameter %q must be a number", name)
	}
	return v, nil
}

// intQuery parses an optional int query parameter with a default.
func intQuery(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("query parameter %q must be an integer", name)
	}
	return v, nil
}

// StanceMap - Geotagged Stance Voting and Opinion Mapping
// Copyright 2026 StanceMap contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stancemap/stancemap

package api

import (
	"net/http"
	"time"

	"github.com/stancemap/stancemap/internal/auth"
	"github.com/stancemap/stancemap/internal/models"
)

// HealthStatus is the health endpoint payload.
type HealthStatus struct {
	Status   string `json:"status"`
	Uptime   string `json:"uptime"`
	Database string `json:"database"`
}

// handleHealth reports process and database liveness. It is unauthenticated
// so load balancers can probe it.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := HealthStatus{
		Status:   "ok",
		Uptime:   time.Since(h.startedAt).Round(time.Second).String(),
		Database: "ok",
	}

	code := http.StatusOK
	if err := h.store.Ping(r.Context()); err != nil {
		status.Status = "degraded"
		status.Database = err.Error()
		code = http.StatusServiceUnavailable
	}

	respondData(w, r, code, status)
}

// handleWebSocket upgrades the connection for the authenticated user.
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		respondError(w, r, http.StatusUnauthorized, &models.APIError{
			Code:    models.ErrCodeUnauthorized,
			Message: "authentication required",
		})
		return
	}
	h.ws.ServeHTTP(w, r, userID)
}

// StanceMap - Geotagged Stance Voting and Opinion Mapping
// Copyright 2026 StanceMap contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stancemap/stancemap

package websocket

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/stancemap/stancemap/internal/logging"
)

// Handler upgrades HTTP requests to live map sessions.
type Handler struct {
	hub        *Hub
	upgrader   websocket.Upgrader
	sendBuffer int
}

// NewHandler creates the upgrade handler. allowedOrigins follows the CORS
// origin list; "*" admits any origin.
func NewHandler(hub *Hub, allowedOrigins []string, sendBuffer int) *Handler {
	allowAll := false
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if origin == "*" {
			allowAll = true
		}
		allowed[origin] = true
	}

	return &Handler{
		hub:        hub,
		sendBuffer: sendBuffer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				if allowAll {
					return true
				}
				origin := r.Header.Get("Origin")
				// Non-browser clients send no Origin header.
				return origin == "" || allowed[origin]
			},
		},
	}
}

// ServeHTTP upgrades the connection and hands it to the hub. userID must
// already be resolved by the auth middleware.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request, userID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := NewClient(h.hub, conn, userID, h.sendBuffer)
	h.hub.Register <- client
	client.Start()
}

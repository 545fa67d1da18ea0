// StanceMap - Geotagged Stance Voting and Opinion Mapping
// Copyright 2026 StanceMap contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stancemap/stancemap

// Package auth resolves the stable user identity every vote is keyed by.
// Identity arrives from the outside as a bearer token; this package only
// verifies it and exposes the user id, it never stores accounts.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"

	"github.com/stancemap/stancemap/internal/config"
	"github.com/stancemap/stancemap/internal/logging"
	"github.com/stancemap/stancemap/internal/models"
)

type contextKey string

const userIDKey contextKey = "user_id"

// ErrNoIdentity is returned when a request carries no usable identity.
var ErrNoIdentity = errors.New("no user identity in request")

// UserID returns the authenticated user id stored by the middleware.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// ContextWithUserID attaches a user id, used by tests and the websocket
// upgrade path.
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// Authenticator verifies request identity according to the configured
// mode and stores the user id on the request context.
type Authenticator struct {
	mode   string
	secret []byte
}

// New builds an authenticator from the security config.
func New(cfg config.SecurityConfig) *Authenticator {
	return &Authenticator{
		mode:   cfg.AuthMode,
		secret: []byte(cfg.JWTSecret),
	}
}

// Middleware rejects requests without a verifiable identity. In "jwt"
// mode the identity is the token's subject claim; in "none" mode the
// caller asserts it via the X-User-ID header, acceptable only outside
// production.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := a.Identify(r)
		if err != nil {
			logger := logging.Ctx(r.Context())
			logger.Debug().Err(err).Msg("request rejected: no identity")
			writeUnauthorized(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithUserID(r.Context(), userID)))
	})
}

// Identify extracts and verifies the user identity from a request.
func (a *Authenticator) Identify(r *http.Request) (string, error) {
	if a.mode == config.AuthModeNone {
		userID := strings.TrimSpace(r.Header.Get("X-User-ID"))
		if userID == "" {
			return "", ErrNoIdentity
		}
		return userID, nil
	}

	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		// Browsers cannot set headers on WebSocket upgrades; accept the
		// token as a query parameter there.
		token = r.URL.Query().Get("token")
	}
	if token == "" {
		return "", ErrNoIdentity
	}
	return a.verify(token)
}

func (a *Authenticator) verify(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
	if err != nil {
		return "", fmt.Errorf("verify token: %w", err)
	}

	subject, err := token.Claims.GetSubject()
	if err != nil || subject == "" {
		return "", ErrNoIdentity
	}
	return subject, nil
}

func writeUnauthorized(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(models.APIResponse{
		Status: "error",
		Error: &models.APIError{
			Code:    models.ErrCodeUnauthorized,
			Message: "authentication required",
			Details: map[string]interface{}{"reason": err.Error()},
		},
	})
}

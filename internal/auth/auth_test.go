// StanceMap - Geotagged Stance Voting and Opinion Mapping
// Copyright 2026 StanceMap contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stancemap/stancemap

package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stancemap/stancemap/internal/config"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func signToken(t *testing.T, secret, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subject,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func jwtAuthenticator() *Authenticator {
	return New(config.SecurityConfig{AuthMode: config.AuthModeJWT, JWTSecret: testSecret})
}

func TestIdentifyJWTBearer(t *testing.T) {
	a := jwtAuthenticator()
	r := httptest.NewRequest(http.MethodGet, "/api/v1/topics", nil)
	r.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, "user-42"))

	userID, err := a.Identify(r)
	require.NoError(t, err)
	assert.Equal(t, "user-42", userID)
}

func TestIdentifyJWTQueryToken(t *testing.T) {
	// WebSocket upgrades cannot carry an Authorization header from the
	// browser, so the token may arrive as a query parameter.
	a := jwtAuthenticator()
	r := httptest.NewRequest(http.MethodGet, "/api/v1/ws?token="+signToken(t, testSecret, "user-7"), nil)

	userID, err := a.Identify(r)
	require.NoError(t, err)
	assert.Equal(t, "user-7", userID)
}

func TestIdentifyRejectsWrongKey(t *testing.T) {
	a := jwtAuthenticator()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+signToken(t, "ffffffffffffffffffffffffffffffff", "user-42"))

	_, err := a.Identify(r)
	assert.Error(t, err)
}

func TestIdentifyRejectsExpiredToken(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-42",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)

	a := jwtAuthenticator()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+signed)

	_, err = a.Identify(r)
	assert.Error(t, err)
}

func TestIdentifyRejectsMissingToken(t *testing.T) {
	a := jwtAuthenticator()
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	_, err := a.Identify(r)
	assert.ErrorIs(t, err, ErrNoIdentity)
}

func TestIdentifyRejectsMissingSubject(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)

	a := jwtAuthenticator()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+signed)

	_, err = a.Identify(r)
	assert.Error(t, err)
}

func TestIdentifyNoneModeHeader(t *testing.T) {
	a := New(config.SecurityConfig{AuthMode: config.AuthModeNone})

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-User-ID", "dev-user")
	userID, err := a.Identify(r)
	require.NoError(t, err)
	assert.Equal(t, "dev-user", userID)

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	_, err = a.Identify(r)
	assert.ErrorIs(t, err, ErrNoIdentity)
}

func TestMiddleware(t *testing.T) {
	a := jwtAuthenticator()
	var gotUserID string
	handler := a.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID, _ = UserID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, "user-1"))
	handler.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1", gotUserID)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "UNAUTHORIZED")
}

// StanceMap - Geotagged Stance Voting and Opinion Mapping
// Copyright 2026 StanceMap contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stancemap/stancemap

package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stancemap/stancemap/internal/auth"
	"github.com/stancemap/stancemap/internal/config"
	"github.com/stancemap/stancemap/internal/database"
	"github.com/stancemap/stancemap/internal/fanout"
	"github.com/stancemap/stancemap/internal/metrics"
	"github.com/stancemap/stancemap/internal/models"
	"github.com/stancemap/stancemap/internal/resolve"
	"github.com/stancemap/stancemap/internal/spatial"
	ws "github.com/stancemap/stancemap/internal/websocket"
)

// memStore is an in-memory Store with the same contract as the DuckDB
// implementation: append-only votes, cooldown-guarded topic creation.
type memStore struct {
	mu     sync.Mutex
	topics map[uuid.UUID]*models.Topic
	votes  map[uuid.UUID][]models.VoteEvent
	last   map[string]time.Time
}

func newMemStore() *memStore {
	return &memStore{
		topics: make(map[uuid.UUID]*models.Topic),
		votes:  make(map[uuid.UUID][]models.VoteEvent),
		last:   make(map[string]time.Time),
	}
}

func (m *memStore) AppendVote(_ context.Context, ev *models.VoteEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.votes[ev.TopicID] = append(m.votes[ev.TopicID], *ev)
	return nil
}

func (m *memStore) LatestPerUser(_ context.Context, topicID uuid.UUID) ([]models.VoteEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return resolve.FromEvents(m.votes[topicID]).Events(), nil
}

func (m *memStore) VotesWithinRadius(ctx context.Context, topicID uuid.UUID, lat, lng, radiusKm float64) ([]models.VoteEvent, error) {
	resolved, err := m.LatestPerUser(ctx, topicID)
	if err != nil {
		return nil, err
	}
	var out []models.VoteEvent
	for _, ev := range resolved {
		if spatial.Haversine(lat, lng, ev.Latitude, ev.Longitude) <= radiusKm {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (m *memStore) CountResolvedVoters(ctx context.Context, topicID uuid.UUID) (int, error) {
	resolved, err := m.LatestPerUser(ctx, topicID)
	return len(resolved), err
}

func (m *memStore) CreateTopic(_ context.Context, topic *models.Topic, cooldown time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if last, ok := m.last[topic.CreatedBy]; ok {
		if elapsed := time.Since(last); elapsed < cooldown {
			return &database.RateLimitError{RetryAfter: cooldown - elapsed}
		}
	}
	m.topics[topic.ID] = topic
	m.last[topic.CreatedBy] = topic.CreatedAt
	return nil
}

func (m *memStore) GetTopic(_ context.Context, id uuid.UUID) (*models.Topic, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	topic, ok := m.topics[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return topic, nil
}

func (m *memStore) ListTopics(_ context.Context) ([]models.Topic, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Topic, 0, len(m.topics))
	for _, topic := range m.topics {
		out = append(out, *topic)
	}
	return out, nil
}

func (m *memStore) Ping(context.Context) error { return nil }

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Host: "127.0.0.1", Port: 4326, Environment: "development"},
		Security: config.SecurityConfig{
			AuthMode:        config.AuthModeNone,
			RateLimitReqs:   1000,
			RateLimitWindow: time.Minute,
			TopicCooldown:   24 * time.Hour,
			CORSOrigins:     []string{"*"},
		},
		Realtime: config.RealtimeConfig{SendBuffer: 16, BusBuffer: 16},
		Aggregation: config.AggregationConfig{
			MaxGridCells: 10000,
			MaxRadiusKm:  20000,
			CountMode:    "resolved",
		},
	}
}

type testEnv struct {
	router http.Handler
	store  *memStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := testConfig()
	store := newMemStore()
	cache := resolve.NewCache(resolve.NewResolver(store))

	bus := fanout.NewBus(cfg.Realtime.BusBuffer)
	t.Cleanup(func() { _ = bus.Close() })
	publisher := fanout.NewPublisher(bus.Publisher())
	dispatcher := fanout.NewDispatcher(bus)

	hub := ws.NewHub(dispatcher, cache, cfg.Aggregation)
	wsHandler := ws.NewHandler(hub, cfg.Security.CORSOrigins, cfg.Realtime.SendBuffer)

	handler := NewHandler(store, cache, publisher, wsHandler, cfg)
	router := NewRouter(handler, auth.New(cfg.Security)).Setup()

	return &testEnv{router: router, store: store}
}

func (e *testEnv) do(t *testing.T, method, path, userID string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	r := httptest.NewRequest(method, path, reader)
	if userID != "" {
		r.Header.Set("X-User-ID", userID)
	}
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, r)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) models.APIResponse {
	t.Helper()
	var resp models.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func (e *testEnv) createTopic(t *testing.T, userID string) uuid.UUID {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/v1/topics", userID, map[string]string{
		"category":    "housing",
		"description": "Should the old harbor become a park?",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var topic models.Topic
	resp := decodeResponse(t, rec)
	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &topic))
	return topic.ID
}

func TestCreateTopic(t *testing.T) {
	env := newTestEnv(t)
	topicID := env.createTopic(t, "creator-1")
	assert.NotEqual(t, uuid.Nil, topicID)

	rec := env.do(t, http.MethodGet, "/api/v1/topics/"+topicID.String(), "reader", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateTopicCooldown(t *testing.T) {
	env := newTestEnv(t)
	env.createTopic(t, "creator-1")

	rec := env.do(t, http.MethodPost, "/api/v1/topics", "creator-1", map[string]string{
		"category":    "transport",
		"description": "Another one right away",
	})
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	retryAfter, err := strconv.Atoi(rec.Header().Get("Retry-After"))
	require.NoError(t, err)
	assert.InDelta(t, 24*60*60, retryAfter, 5, "retry hint should be close to the full cooldown")

	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, models.ErrCodeRateLimited, resp.Error.Code)
	assert.Contains(t, resp.Error.Details, "retry_after_seconds")

	// A different creator is unaffected.
	env.createTopic(t, "creator-2")
}

func TestCreateTopicValidation(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/v1/topics", "creator-1", map[string]string{
		"category":    "weather",
		"description": "Not a real category",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, models.ErrCodeValidation, resp.Error.Code)
}

func TestRequestsRequireIdentity(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/v1/topics", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSubmitVoteAndSnapshot(t *testing.T) {
	env := newTestEnv(t)
	topicID := env.createTopic(t, "creator-1")

	rec := env.do(t, http.MethodPost, "/api/v1/topics/"+topicID.String()+"/votes", "alice", map[string]interface{}{
		"stance":    "neutral",
		"intensity": 40,
		"latitude":  52.52,
		"longitude": 13.405,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// Alice changes her mind; the snapshot must hold exactly one vote for
	// her, the newer one.
	rec = env.do(t, http.MethodPost, "/api/v1/topics/"+topicID.String()+"/votes", "alice", map[string]interface{}{
		"stance":    "strong_yes",
		"intensity": 90,
		"latitude":  52.52,
		"longitude": 13.405,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/topics/"+topicID.String()+"/votes", "reader", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Metadata)
	require.NotNil(t, resp.Metadata.Count)
	assert.Equal(t, 1, *resp.Metadata.Count)
	assert.NotNil(t, resp.Metadata.Generation)

	var events []models.VoteEvent
	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &events))
	require.Len(t, events, 1)
	assert.Equal(t, models.StanceStrongYes, events[0].Stance)
}

func TestSubmitVoteCountedByStoreOnly(t *testing.T) {
	env := newTestEnv(t)
	topicID := env.createTopic(t, "creator-1")

	// The in-memory store here never touches the counter, so any movement
	// would mean the handler double-counts what the real store already
	// records.
	before := testutil.ToFloat64(metrics.VotesAppended)
	rec := env.do(t, http.MethodPost, "/api/v1/topics/"+topicID.String()+"/votes", "alice", map[string]interface{}{
		"stance":    "yes",
		"intensity": 50,
		"latitude":  52.52,
		"longitude": 13.405,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, before, testutil.ToFloat64(metrics.VotesAppended))
}

func TestSubmitVoteValidation(t *testing.T) {
	env := newTestEnv(t)
	topicID := env.createTopic(t, "creator-1")

	rec := env.do(t, http.MethodPost, "/api/v1/topics/"+topicID.String()+"/votes", "alice", map[string]interface{}{
		"stance":    "kinda",
		"latitude":  52.52,
		"longitude": 13.405,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, models.ErrCodeValidation, resp.Error.Code)
}

func TestSubmitVoteUnknownTopic(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/v1/topics/"+uuid.NewString()+"/votes", "alice", map[string]interface{}{
		"stance":    "yes",
		"latitude":  52.52,
		"longitude": 13.405,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGridAggregateEndpoint(t *testing.T) {
	env := newTestEnv(t)
	topicID := env.createTopic(t, "creator-1")

	for user, stance := range map[string]string{"a": "yes", "b": "strong_yes", "c": "no"} {
		rec := env.do(t, http.MethodPost, "/api/v1/topics/"+topicID.String()+"/votes", user, map[string]interface{}{
			"stance":    stance,
			"latitude":  52.5,
			"longitude": 13.4,
		})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := env.do(t, http.MethodGet, "/api/v1/topics/"+topicID.String()+
		"/aggregate?strategy=grid&zoom=3&min_lat=40&min_lng=0&max_lat=60&max_lng=20", "reader", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeResponse(t, rec)
	var result GridAggregateResponse
	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &result))

	require.Len(t, result.Features, 1)
	f := result.Features[0]
	assert.Equal(t, 3, f.Count)
	assert.InDelta(t, 2.0/3.0, f.Average, 1e-9)
	assert.Equal(t, models.BandYes, f.Band)
	assert.Equal(t, models.BandYes.Color(), f.Color)
}

func TestGridAggregateMissingBounds(t *testing.T) {
	env := newTestEnv(t)
	topicID := env.createTopic(t, "creator-1")

	rec := env.do(t, http.MethodGet, "/api/v1/topics/"+topicID.String()+"/aggregate?strategy=grid&zoom=3", "reader", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRadiusAggregateNoData(t *testing.T) {
	env := newTestEnv(t)
	topicID := env.createTopic(t, "creator-1")

	rec := env.do(t, http.MethodGet, "/api/v1/topics/"+topicID.String()+
		"/aggregate?strategy=radius&lat=52.52&lng=13.4&radius_km=10", "reader", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeResponse(t, rec)
	var result RadiusAggregateResponse
	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &result))

	assert.Equal(t, 0, result.Count)
	assert.Nil(t, result.Average, "an empty radius reports no average, not zero")
}

func TestPolygonAggregateEndpoint(t *testing.T) {
	env := newTestEnv(t)
	topicID := env.createTopic(t, "creator-1")

	rec := env.do(t, http.MethodPost, "/api/v1/topics/"+topicID.String()+"/votes", "alice", map[string]interface{}{
		"stance":    "strong_no",
		"latitude":  52.5,
		"longitude": 13.5,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/topics/"+topicID.String()+"/aggregate", "reader", map[string]interface{}{
		"polygons": []map[string]interface{}{
			{
				"id": "district",
				"parts": [][]map[string]float64{{
					{"lat": 52, "lng": 13},
					{"lat": 52, "lng": 14},
					{"lat": 53, "lng": 14},
					{"lat": 53, "lng": 13},
				}},
			},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeResponse(t, rec)
	var result PolygonAggregateResponse
	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &result))

	require.Len(t, result.Regions, 1)
	assert.Equal(t, "district", result.Regions[0].RegionID)
	assert.Equal(t, models.BandStrongNo, result.Regions[0].Band)
}

func TestNearbyEndpoint(t *testing.T) {
	env := newTestEnv(t)
	topicID := env.createTopic(t, "creator-1")

	rec := env.do(t, http.MethodPost, "/api/v1/topics/"+topicID.String()+"/votes", "near", map[string]interface{}{
		"stance":    "yes",
		"latitude":  52.52,
		"longitude": 13.41,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/topics/"+topicID.String()+
		"/nearby?lat=52.52&lng=13.40&radius_km=50", "reader", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Metadata.Count)
	assert.Equal(t, 1, *resp.Metadata.Count)

	rec = env.do(t, http.MethodGet, "/api/v1/topics/"+topicID.String()+
		"/nearby?lat=52.52&lng=13.40&radius_km=999999", "reader", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "radius beyond the configured cap is rejected")
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/v1/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "votes_appended_total")
}

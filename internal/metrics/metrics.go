// StanceMap - Geotagged Stance Voting and Opinion Mapping
// Copyright 2026 StanceMap contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stancemap/stancemap

// Package metrics provides Prometheus instrumentation for the vote engine:
// ledger writes, fan-out delivery, websocket connections, aggregation
// latency, and API throughput.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ledger metrics
	VotesAppended = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "votes_appended_total",
			Help: "Total number of vote events appended to the ledger",
		},
	)

	VotesRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "votes_rejected_total",
			Help: "Total number of vote submissions rejected at the boundary",
		},
		[]string{"reason"},
	)

	// Database metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation"},
	)

	// Fan-out metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fanout_events_published_total",
			Help: "Total number of events published to the fan-out bus",
		},
		[]string{"event_type"},
	)

	EventsDelivered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fanout_events_delivered_total",
			Help: "Total number of events delivered to subscribers",
		},
	)

	EventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fanout_events_dropped_total",
			Help: "Total number of events dropped due to slow subscribers",
		},
	)

	TopicSubscriptions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fanout_topic_subscriptions",
			Help: "Current number of (topic, subscriber) memberships",
		},
	)

	// WebSocket metrics
	WSClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_clients",
			Help: "Current number of connected websocket clients",
		},
	)

	// Aggregation metrics
	AggregationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aggregation_duration_seconds",
			Help:    "Duration of spatial aggregation runs in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"strategy"},
	)

	AggregationsDiscarded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "aggregations_discarded_total",
			Help: "Total number of stale aggregation results discarded by newer view requests",
		},
	)

	// API metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)
)

// ObserveQuery records a database query duration for the given operation.
func ObserveQuery(operation string, start time.Time) {
	DBQueryDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// RecordQueryError records a database query failure.
func RecordQueryError(operation string) {
	DBQueryErrors.WithLabelValues(operation).Inc()
}

// RecordAPIRequest records an API request with its duration.
func RecordAPIRequest(method, endpoint string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

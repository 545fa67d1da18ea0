// StanceMap - Geotagged Stance Voting and Opinion Mapping
// Copyright 2026 StanceMap contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stancemap/stancemap

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/stancemap/stancemap/internal/metrics"
	"github.com/stancemap/stancemap/internal/models"
)

// AppendVote inserts one immutable event into the vote ledger.
// It never touches prior events for the same user.
func (db *DB) AppendVote(ctx context.Context, event *models.VoteEvent) error {
	start := time.Now()
	defer metrics.ObserveQuery("append_vote", start)

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO vote_events (id, topic_id, user_id, stance, intensity, latitude, longitude, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.TopicID, event.UserID, string(event.Stance),
		event.Intensity, event.Latitude, event.Longitude, event.CreatedAt,
	)
	if err != nil {
		metrics.RecordQueryError("append_vote")
		return fmt.Errorf("append vote: %w", err)
	}

	metrics.VotesAppended.Inc()
	return nil
}

// latestPerUserCTE selects, for one topic, the single newest event per
// user. Ties on created_at are broken by the larger id, an insertion-order
// proxy, because wall-clock timestamps from different clients are not a
// reliable total order.
const latestPerUserCTE = `
	SELECT id, topic_id, user_id, stance, intensity, latitude, longitude, created_at
	FROM (
		SELECT *, row_number() OVER (
			PARTITION BY user_id
			ORDER BY created_at DESC, id DESC
		) AS rn
		FROM vote_events
		WHERE topic_id = ?
	)
	WHERE rn = 1`

// LatestPerUser returns the resolved vote set for a topic: exactly one
// event per user who has ever voted on it.
func (db *DB) LatestPerUser(ctx context.Context, topicID uuid.UUID) ([]models.VoteEvent, error) {
	start := time.Now()
	defer metrics.ObserveQuery("latest_per_user", start)

	rows, err := db.conn.QueryContext(ctx, latestPerUserCTE, topicID)
	if err != nil {
		metrics.RecordQueryError("latest_per_user")
		return nil, fmt.Errorf("query latest per user: %w", err)
	}
	defer rows.Close()

	return scanVoteEvents(rows)
}

// VotesWithinRadius returns the resolved votes for a topic whose location
// lies within radiusKm great-circle kilometers of the given center. The
// haversine distance is computed in SQL so only matching rows cross the
// driver boundary.
func (db *DB) VotesWithinRadius(ctx context.Context, topicID uuid.UUID, lat, lng, radiusKm float64) ([]models.VoteEvent, error) {
	start := time.Now()
	defer metrics.ObserveQuery("votes_within_radius", start)

	query := `
		WITH resolved AS (` + latestPerUserCTE + `)
		SELECT id, topic_id, user_id, stance, intensity, latitude, longitude, created_at
		FROM resolved
		WHERE 2 * 6371.0088 * asin(sqrt(
			pow(sin(radians(latitude - ?) / 2), 2) +
			cos(radians(?)) * cos(radians(latitude)) *
			pow(sin(radians(longitude - ?) / 2), 2)
		)) <= ?`

	rows, err := db.conn.QueryContext(ctx, query, topicID, lat, lat, lng, radiusKm)
	if err != nil {
		metrics.RecordQueryError("votes_within_radius")
		return nil, fmt.Errorf("query votes within radius: %w", err)
	}
	defer rows.Close()

	return scanVoteEvents(rows)
}

// CountResolvedVoters returns the number of distinct users with a resolved
// vote on the topic.
func (db *DB) CountResolvedVoters(ctx context.Context, topicID uuid.UUID) (int, error) {
	start := time.Now()
	defer metrics.ObserveQuery("count_resolved_voters", start)

	var count int
	err := db.conn.QueryRowContext(ctx, `
		SELECT count(DISTINCT user_id) FROM vote_events WHERE topic_id = ?`,
		topicID,
	).Scan(&count)
	if err != nil {
		metrics.RecordQueryError("count_resolved_voters")
		return 0, fmt.Errorf("count resolved voters: %w", err)
	}
	return count, nil
}

// scanVoteEvents reads vote event rows in the canonical column order.
func scanVoteEvents(rows *sql.Rows) ([]models.VoteEvent, error) {
	var events []models.VoteEvent
	for rows.Next() {
		var (
			ev     models.VoteEvent
			stance string
		)
		if err := rows.Scan(
			&ev.ID, &ev.TopicID, &ev.UserID, &stance,
			&ev.Intensity, &ev.Latitude, &ev.Longitude, &ev.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan vote event: %w", err)
		}
		ev.Stance = models.Stance(stance)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vote events: %w", err)
	}
	return events, nil
}

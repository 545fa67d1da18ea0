// StanceMap - Geotagged Stance Voting and Opinion Mapping
// Copyright 2026 StanceMap contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stancemap/stancemap

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/stancemap/stancemap/internal/metrics"
	"github.com/stancemap/stancemap/internal/models"
)

// CreateTopic inserts a topic after enforcing the per-creator cooldown:
// if the creator's most recent topic is younger than cooldown, the insert
// is rejected with a RateLimitError carrying the remaining wait.
func (db *DB) CreateTopic(ctx context.Context, topic *models.Topic, cooldown time.Duration) error {
	start := time.Now()
	defer metrics.ObserveQuery("create_topic", start)

	if cooldown > 0 {
		var last sql.NullTime
		err := db.conn.QueryRowContext(ctx, `
			SELECT max(created_at) FROM topics WHERE created_by = ?`,
			topic.CreatedBy,
		).Scan(&last)
		if err != nil {
			metrics.RecordQueryError("create_topic")
			return fmt.Errorf("check topic cooldown: %w", err)
		}
		if last.Valid {
			if elapsed := topic.CreatedAt.Sub(last.Time); elapsed < cooldown {
				return &RateLimitError{RetryAfter: cooldown - elapsed}
			}
		}
	}

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO topics (id, category, description, created_by, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		topic.ID, string(topic.Category), topic.Description, topic.CreatedBy, topic.CreatedAt,
	)
	if err != nil {
		metrics.RecordQueryError("create_topic")
		return fmt.Errorf("create topic: %w", err)
	}
	return nil
}

// voteCountExpr picks the SQL expression matching the configured count
// mode. Both expressions yield zero for topics without votes.
func (db *DB) voteCountExpr() string {
	if db.countMode == CountModeImmediate {
		return "count(v.id)"
	}
	return "count(DISTINCT v.user_id)"
}

// GetTopic returns one topic with its derived vote count.
func (db *DB) GetTopic(ctx context.Context, id uuid.UUID) (*models.Topic, error) {
	start := time.Now()
	defer metrics.ObserveQuery("get_topic", start)

	row := db.conn.QueryRowContext(ctx, `
		SELECT t.id, t.category, t.description, t.created_by, t.created_at,
		       `+db.voteCountExpr()+` AS vote_count
		FROM topics t
		LEFT JOIN vote_events v ON v.topic_id = t.id
		WHERE t.id = ?
		GROUP BY t.id, t.category, t.description, t.created_by, t.created_at`,
		id,
	)

	topic, err := scanTopic(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		metrics.RecordQueryError("get_topic")
		return nil, fmt.Errorf("get topic: %w", err)
	}
	return topic, nil
}

// ListTopics returns all topics, newest first, each with its derived
// vote count.
func (db *DB) ListTopics(ctx context.Context) ([]models.Topic, error) {
	start := time.Now()
	defer metrics.ObserveQuery("list_topics", start)

	rows, err := db.conn.QueryContext(ctx, `
		SELECT t.id, t.category, t.description, t.created_by, t.created_at,
		       `+db.voteCountExpr()+` AS vote_count
		FROM topics t
		LEFT JOIN vote_events v ON v.topic_id = t.id
		GROUP BY t.id, t.category, t.description, t.created_by, t.created_at
		ORDER BY t.created_at DESC`,
	)
	if err != nil {
		metrics.RecordQueryError("list_topics")
		return nil, fmt.Errorf("list topics: %w", err)
	}
	defer rows.Close()

	var topics []models.Topic
	for rows.Next() {
		var (
			t        models.Topic
			category string
		)
		if err := rows.Scan(&t.ID, &category, &t.Description, &t.CreatedBy, &t.CreatedAt, &t.VoteCount); err != nil {
			return nil, fmt.Errorf("scan topic: %w", err)
		}
		t.Category = models.TopicCategory(category)
		topics = append(topics, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate topics: %w", err)
	}
	return topics, nil
}

// scanTopic reads one topic row in the canonical column order.
func scanTopic(row *sql.Row) (*models.Topic, error) {
	var (
		t        models.Topic
		category string
	)
	if err := row.Scan(&t.ID, &category, &t.Description, &t.CreatedBy, &t.CreatedAt, &t.VoteCount); err != nil {
		return nil, err
	}
	t.Category = models.TopicCategory(category)
	return &t, nil
}

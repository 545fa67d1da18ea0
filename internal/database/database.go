// StanceMap - Geotagged Stance Voting and Opinion Mapping
// Copyright 2026 StanceMap contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stancemap/stancemap

// Package database provides the storage collaborator of the vote engine:
// an insert-only vote ledger, the "latest per user" resolution query, a
// proximity query, and topic creation with a per-creator cooldown. It is
// backed by DuckDB accessed through database/sql with parameterized
// queries only.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"runtime"
	"strconv"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/stancemap/stancemap/internal/config"
	"github.com/stancemap/stancemap/internal/logging"
)

// Vote count modes. "resolved" counts distinct users holding a current
// vote; "immediate" counts raw ledger events, which is cheaper and lets
// the count move on every append even when a user revises their vote.
const (
	CountModeResolved  = "resolved"
	CountModeImmediate = "immediate"
)

// DB wraps the DuckDB connection pool.
type DB struct {
	conn      *sql.DB
	countMode string
}

// New opens (or creates) the database at cfg.Path and bootstraps the
// schema. Use ":memory:" for an ephemeral database in tests. countMode
// selects how topic vote counts are derived.
func New(cfg config.DatabaseConfig, countMode string) (*DB, error) {
	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}

	params := url.Values{}
	if cfg.MaxMemory != "" {
		params.Set("max_memory", cfg.MaxMemory)
	}
	params.Set("threads", strconv.Itoa(threads))

	connStr := cfg.Path
	if encoded := params.Encode(); encoded != "" {
		connStr += "?" + encoded
	}

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// DuckDB is embedded; a small pool avoids write contention.
	conn.SetMaxOpenConns(threads)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(time.Hour)

	if countMode == "" {
		countMode = CountModeResolved
	}

	db := &DB{conn: conn, countMode: countMode}
	if err := db.initSchema(context.Background()); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	logging.Info().Str("path", cfg.Path).Int("threads", threads).Msg("database ready")
	return db, nil
}

// schema holds the bootstrap DDL. The vote ledger is append-only: there is
// no UPDATE or DELETE statement anywhere in this package.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS topics (
		id          UUID PRIMARY KEY,
		category    VARCHAR NOT NULL,
		description VARCHAR NOT NULL,
		created_by  VARCHAR NOT NULL,
		created_at  TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS vote_events (
		id         UUID PRIMARY KEY,
		topic_id   UUID NOT NULL,
		user_id    VARCHAR NOT NULL,
		stance     VARCHAR NOT NULL,
		intensity  INTEGER NOT NULL,
		latitude   DOUBLE NOT NULL,
		longitude  DOUBLE NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_vote_events_topic_user
		ON vote_events (topic_id, user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_topics_created_by
		ON topics (created_by, created_at)`,
}

func (db *DB) initSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("execute DDL: %w", err)
		}
	}
	return nil
}

// Ping verifies the connection is alive.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close closes the connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

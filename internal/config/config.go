// StanceMap - Geotagged Stance Voting and Opinion Mapping
// Copyright 2026 StanceMap contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stancemap/stancemap

// Package config loads layered application configuration via Koanf v2:
// built-in defaults, then an optional YAML file, then environment
// variables (highest priority).
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root application configuration.
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Database    DatabaseConfig    `koanf:"database"`
	Security    SecurityConfig    `koanf:"security"`
	Realtime    RealtimeConfig    `koanf:"realtime"`
	Aggregation AggregationConfig `koanf:"aggregation"`
	Logging     LoggingConfig     `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host        string        `koanf:"host"`
	Port        int           `koanf:"port"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"` // development or production
}

// DatabaseConfig holds DuckDB settings.
type DatabaseConfig struct {
	// Path is the database file location; ":memory:" for ephemeral use.
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"` // 0 = runtime.NumCPU()
}

// Auth modes accepted by SecurityConfig.AuthMode.
const (
	AuthModeJWT  = "jwt"
	AuthModeNone = "none"
)

// SecurityConfig holds the identity boundary and rate limiting settings.
type SecurityConfig struct {
	// AuthMode selects how the stable user id is extracted: "jwt" parses
	// an externally issued bearer token, "none" trusts the X-User-ID
	// header (development only).
	AuthMode  string `koanf:"auth_mode"`
	JWTSecret string `koanf:"jwt_secret"`

	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`

	// TopicCooldown is the per-creator window in which a second topic
	// creation is rejected with a retry-after hint.
	TopicCooldown time.Duration `koanf:"topic_cooldown"`

	CORSOrigins []string `koanf:"cors_origins"`
}

// RealtimeConfig holds fan-out and websocket settings.
type RealtimeConfig struct {
	// SendBuffer is the per-client outbound message buffer. Events that
	// arrive while the buffer is full are dropped; the client recovers
	// from its next snapshot fetch.
	SendBuffer int `koanf:"send_buffer"`

	// BusBuffer is the per-subject buffer of the in-process event bus.
	BusBuffer int64 `koanf:"bus_buffer"`
}

// AggregationConfig holds spatial aggregation settings.
type AggregationConfig struct {
	// MaxGridCells bounds the number of grid cells generated for one
	// visible-bounds request.
	MaxGridCells int `koanf:"max_grid_cells"`

	// MaxRadiusKm bounds proximity queries.
	MaxRadiusKm float64 `koanf:"max_radius_km"`

	// CountMode selects when a user's first vote appears in a topic's
	// displayed vote count: "resolved" (after the resolver observes it)
	// or "immediate" (as soon as the ledger append succeeds).
	CountMode string `koanf:"count_mode"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        4326, // EPSG:4326, the WGS84 coordinate system votes are tagged in
			Timeout:     30 * time.Second,
			Environment: "development",
		},
		Database: DatabaseConfig{
			Path:      "/data/stancemap.duckdb",
			MaxMemory: "1GB",
			Threads:   0,
		},
		Security: SecurityConfig{
			AuthMode:        "jwt",
			JWTSecret:       "",
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
			TopicCooldown:   24 * time.Hour,
			CORSOrigins:     []string{"*"},
		},
		Realtime: RealtimeConfig{
			SendBuffer: 256,
			BusBuffer:  256,
		},
		Aggregation: AggregationConfig{
			MaxGridCells: 10000,
			MaxRadiusKm:  20000, // half the planet's circumference; effectively unbounded
			CountMode:    "resolved",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Validate checks the configuration for inconsistent settings.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}

	switch c.Security.AuthMode {
	case AuthModeJWT:
		if c.Security.JWTSecret == "" {
			return fmt.Errorf("security.jwt_secret is required when auth_mode is jwt")
		}
		if len(c.Security.JWTSecret) < 32 {
			return fmt.Errorf("security.jwt_secret must be at least 32 characters")
		}
	case AuthModeNone:
		if strings.EqualFold(c.Server.Environment, "production") {
			return fmt.Errorf("security.auth_mode none is not allowed in production")
		}
	default:
		return fmt.Errorf("security.auth_mode must be jwt or none, got %q", c.Security.AuthMode)
	}

	if c.Security.TopicCooldown < 0 {
		return fmt.Errorf("security.topic_cooldown must not be negative")
	}

	switch c.Aggregation.CountMode {
	case "resolved", "immediate":
	default:
		return fmt.Errorf("aggregation.count_mode must be resolved or immediate, got %q", c.Aggregation.CountMode)
	}

	if c.Aggregation.MaxGridCells < 1 {
		return fmt.Errorf("aggregation.max_grid_cells must be positive")
	}
	if c.Aggregation.MaxRadiusKm <= 0 {
		return fmt.Errorf("aggregation.max_radius_km must be positive")
	}

	if c.Realtime.SendBuffer < 1 {
		return fmt.Errorf("realtime.send_buffer must be positive")
	}

	return nil
}

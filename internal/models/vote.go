// StanceMap - Geotagged Stance Voting and Opinion Mapping
// Copyright 2026 StanceMap contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stancemap/stancemap

package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Intensity bounds. Intensity informs visual sizing only and never
// contributes to aggregate weight.
const (
	MinIntensity = 0
	MaxIntensity = 100
)

// VoteEvent is one immutable entry in the append-only vote ledger.
// A user changing their mind produces a new event; prior events for the
// same (topic, user) pair are never mutated or deleted.
type VoteEvent struct {
	ID        uuid.UUID `json:"id"`
	TopicID   uuid.UUID `json:"topic_id"`
	UserID    string    `json:"user_id"`
	Stance    Stance    `json:"stance"`
	Intensity int       `json:"intensity"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	CreatedAt time.Time `json:"created_at"`
}

// NewVoteEvent builds a ledger entry with a fresh UUIDv7 id and the current
// time. UUIDv7 ids sort by creation time within a process, which makes the
// "larger id wins" timestamp tie-break an insertion-order proxy.
func NewVoteEvent(topicID uuid.UUID, userID string, stance Stance, intensity int, lat, lng float64) *VoteEvent {
	return &VoteEvent{
		ID:        uuid.Must(uuid.NewV7()),
		TopicID:   topicID,
		UserID:    userID,
		Stance:    stance,
		Intensity: ClampIntensity(intensity),
		Latitude:  lat,
		Longitude: lng,
		CreatedAt: time.Now().UTC(),
	}
}

// ClampIntensity forces intensity into [MinIntensity, MaxIntensity].
func ClampIntensity(intensity int) int {
	if intensity < MinIntensity {
		return MinIntensity
	}
	if intensity > MaxIntensity {
		return MaxIntensity
	}
	return intensity
}

// Validate checks the event against the ledger's boundary rules.
func (v *VoteEvent) Validate() error {
	if v.TopicID == uuid.Nil {
		return &ValidationError{Field: "topic_id", Message: "required"}
	}
	if strings.TrimSpace(v.UserID) == "" {
		return &ValidationError{Field: "user_id", Message: "required"}
	}
	if !v.Stance.Valid() {
		return &ValidationError{Field: "stance", Message: "must be one of the stance vocabulary"}
	}
	if v.Intensity < MinIntensity || v.Intensity > MaxIntensity {
		return &ValidationError{Field: "intensity", Message: "must be between 0 and 100"}
	}
	if v.Latitude < -90 || v.Latitude > 90 {
		return &ValidationError{Field: "latitude", Message: "must be a valid latitude (-90 to 90)"}
	}
	if v.Longitude < -180 || v.Longitude > 180 {
		return &ValidationError{Field: "longitude", Message: "must be a valid longitude (-180 to 180)"}
	}
	return nil
}

// Supersedes reports whether v is the newer of two ledger entries for the
// same (topic, user) pair. Newer means a strictly later CreatedAt; exact
// timestamp ties are broken by the lexically larger id, because wall-clock
// timestamps from different clients are not a reliable total order.
func (v *VoteEvent) Supersedes(other *VoteEvent) bool {
	if other == nil {
		return true
	}
	if v.CreatedAt.After(other.CreatedAt) {
		return true
	}
	if v.CreatedAt.Equal(other.CreatedAt) {
		return v.ID.String() > other.ID.String()
	}
	return false
}

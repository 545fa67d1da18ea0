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

// TopicCategory is the fixed vocabulary a topic title is drawn from.
type TopicCategory string

// Topic title categories. The UI renders these as localized headings; the
// engine only validates membership.
const (
	CategoryEnvironment    TopicCategory = "environment"
	CategoryTransport      TopicCategory = "transport"
	CategoryHousing        TopicCategory = "housing"
	CategoryEconomy        TopicCategory = "economy"
	CategoryCulture        TopicCategory = "culture"
	CategoryInfrastructure TopicCategory = "infrastructure"
	CategoryOther          TopicCategory = "other"
)

// TopicCategories lists the title vocabulary.
var TopicCategories = []TopicCategory{
	CategoryEnvironment,
	CategoryTransport,
	CategoryHousing,
	CategoryEconomy,
	CategoryCulture,
	CategoryInfrastructure,
	CategoryOther,
}

// Valid reports whether c is part of the category vocabulary.
func (c TopicCategory) Valid() bool {
	for _, known := range TopicCategories {
		if c == known {
			return true
		}
	}
	return false
}

// Topic is a votable subject. Topics are create-only in this subsystem.
type Topic struct {
	ID          uuid.UUID     `json:"id"`
	Category    TopicCategory `json:"category"`
	Description string        `json:"description"`
	CreatedBy   string        `json:"created_by"`
	CreatedAt   time.Time     `json:"created_at"`

	// VoteCount is the number of distinct users holding a resolved vote.
	// Derived, never stored.
	VoteCount int `json:"vote_count"`
}

// NewTopic builds a topic with a fresh UUIDv7 id and the current time.
func NewTopic(category TopicCategory, description, createdBy string) *Topic {
	return &Topic{
		ID:          uuid.Must(uuid.NewV7()),
		Category:    category,
		Description: description,
		CreatedBy:   createdBy,
		CreatedAt:   time.Now().UTC(),
	}
}

// Validate checks the topic against creation rules.
func (t *Topic) Validate() error {
	if !t.Category.Valid() {
		return &ValidationError{Field: "category", Message: "must be one of the topic categories"}
	}
	if strings.TrimSpace(t.Description) == "" {
		return &ValidationError{Field: "description", Message: "required"}
	}
	if strings.TrimSpace(t.CreatedBy) == "" {
		return &ValidationError{Field: "created_by", Message: "required"}
	}
	return nil
}

// TopicSummary is the minimal topic payload pushed on the global channel
// when a topic is created.
type TopicSummary struct {
	ID        uuid.UUID     `json:"id"`
	Category  TopicCategory `json:"category"`
	CreatedBy string        `json:"created_by"`
	CreatedAt time.Time     `json:"created_at"`
}

// Summary returns the fan-out payload for the topic.
func (t *Topic) Summary() TopicSummary {
	return TopicSummary{
		ID:        t.ID,
		Category:  t.Category,
		CreatedBy: t.CreatedBy,
		CreatedAt: t.CreatedAt,
	}
}

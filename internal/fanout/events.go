// StanceMap - Geotagged Stance Voting and Opinion Mapping
// Copyright 2026 StanceMap contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stancemap/stancemap

// Package fanout is the real-time delivery layer: new ledger entries are
// pushed to subscribers of their topic through an in-process Watermill
// bus, without polling and without persistence. A subscriber connecting
// after an event was published never receives it retroactively; it must
// fetch a fresh resolved snapshot instead.
package fanout

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/stancemap/stancemap/internal/models"
)

// Event classes delivered to subscribers.
const (
	// EventTypeVote is a new vote ledger entry, delivered only to
	// subscribers of its topic.
	EventTypeVote = "vote"

	// EventTypeTopicCreated is a new-topic summary, delivered to all
	// connected subscribers since topic lists are global.
	EventTypeTopicCreated = "topic_created"
)

// VoteSubject returns the bus subject for one topic's vote events.
func VoteSubject(topicID uuid.UUID) string {
	return "votes." + topicID.String()
}

// TopicCreatedSubject is the global bus subject for topic creation.
const TopicCreatedSubject = "topics.created"

// Event is one decoded fan-out delivery. Exactly one of Vote and Topic is
// set, matching Type.
type Event struct {
	Type  string               `json:"type"`
	Vote  *models.VoteEvent    `json:"vote,omitempty"`
	Topic *models.TopicSummary `json:"topic,omitempty"`
}

// EncodeVote serializes a vote event for the bus.
func EncodeVote(ev *models.VoteEvent) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode vote event: %w", err)
	}
	return data, nil
}

// DecodeVote deserializes a vote event from the bus.
func DecodeVote(data []byte) (*models.VoteEvent, error) {
	var ev models.VoteEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("decode vote event: %w", err)
	}
	return &ev, nil
}

// EncodeTopicCreated serializes a topic summary for the bus.
func EncodeTopicCreated(summary *models.TopicSummary) ([]byte, error) {
	data, err := json.Marshal(summary)
	if err != nil {
		return nil, fmt.Errorf("encode topic summary: %w", err)
	}
	return data, nil
}

// DecodeTopicCreated deserializes a topic summary from the bus.
func DecodeTopicCreated(data []byte) (*models.TopicSummary, error) {
	var summary models.TopicSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("decode topic summary: %w", err)
	}
	return &summary, nil
}

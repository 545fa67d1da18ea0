// StanceMap - Geotagged Stance Voting and Opinion Mapping
// Copyright 2026 StanceMap contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stancemap/stancemap

package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewVoteEvent(t *testing.T) {
	topicID := uuid.New()
	ev := NewVoteEvent(topicID, "user-1", StanceYes, 80, 52.52, 13.405)

	assert.NotEqual(t, uuid.Nil, ev.ID)
	assert.Equal(t, topicID, ev.TopicID)
	assert.Equal(t, "user-1", ev.UserID)
	assert.Equal(t, StanceYes, ev.Stance)
	assert.Equal(t, 80, ev.Intensity)
	assert.WithinDuration(t, time.Now().UTC(), ev.CreatedAt, time.Second)
}

func TestNewVoteEventIDsAreOrdered(t *testing.T) {
	// UUIDv7 ids from one process sort by creation order, which the
	// timestamp tie-break relies on.
	a := NewVoteEvent(uuid.New(), "u", StanceYes, 0, 0, 0)
	b := NewVoteEvent(uuid.New(), "u", StanceYes, 0, 0, 0)
	assert.True(t, b.ID.String() > a.ID.String())
}

func TestClampIntensity(t *testing.T) {
	assert.Equal(t, 0, ClampIntensity(-5))
	assert.Equal(t, 0, ClampIntensity(0))
	assert.Equal(t, 55, ClampIntensity(55))
	assert.Equal(t, 100, ClampIntensity(100))
	assert.Equal(t, 100, ClampIntensity(250))
}

func TestVoteEventValidate(t *testing.T) {
	valid := func() *VoteEvent {
		return NewVoteEvent(uuid.New(), "user-1", StanceNeutral, 50, 48.86, 2.35)
	}

	require.NoError(t, valid().Validate())

	ev := valid()
	ev.Stance = "kinda"
	assert.Error(t, ev.Validate())

	ev = valid()
	ev.UserID = "   "
	assert.Error(t, ev.Validate())

	ev = valid()
	ev.Latitude = 91
	assert.Error(t, ev.Validate())

	ev = valid()
	ev.Longitude = -181
	assert.Error(t, ev.Validate())
}

func TestSupersedes(t *testing.T) {
	topicID := uuid.New()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	older := &VoteEvent{ID: uuid.Must(uuid.NewV7()), TopicID: topicID, UserID: "u", Stance: StanceNo, CreatedAt: base}
	newer := &VoteEvent{ID: uuid.Must(uuid.NewV7()), TopicID: topicID, UserID: "u", Stance: StanceYes, CreatedAt: base.Add(time.Minute)}

	assert.True(t, newer.Supersedes(older))
	assert.False(t, older.Supersedes(newer))
	assert.False(t, older.Supersedes(older))
}

func TestSupersedesTimestampTie(t *testing.T) {
	ts := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	first := &VoteEvent{ID: uuid.Must(uuid.NewV7()), UserID: "u", CreatedAt: ts}
	second := &VoteEvent{ID: uuid.Must(uuid.NewV7()), UserID: "u", CreatedAt: ts}

	// Equal timestamps fall back to the larger id, deterministically.
	assert.True(t, second.Supersedes(first))
	assert.False(t, first.Supersedes(second))
}

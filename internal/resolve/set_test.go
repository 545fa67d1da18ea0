// StanceMap - Geotagged Stance Voting and Opinion Mapping
// Copyright 2026 StanceMap contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stancemap/stancemap

package resolve

import (
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stancemap/stancemap/internal/models"
)

func voteAt(userID string, stance models.Stance, at time.Time) models.VoteEvent {
	return models.VoteEvent{
		ID:        uuid.Must(uuid.NewV7()),
		TopicID:   uuid.Nil,
		UserID:    userID,
		Stance:    stance,
		CreatedAt: at,
	}
}

func TestFromEventsKeepsOnePerUser(t *testing.T) {
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	events := []models.VoteEvent{
		voteAt("alice", models.StanceNo, base),
		voteAt("alice", models.StanceYes, base.Add(time.Hour)),
		voteAt("alice", models.StanceNeutral, base.Add(30*time.Minute)),
		voteAt("bob", models.StanceStrongYes, base),
	}

	set := FromEvents(events)
	require.Len(t, set, 2)
	assert.Equal(t, models.StanceYes, set["alice"].Stance)
	assert.Equal(t, models.StanceStrongYes, set["bob"].Stance)
}

func TestMergeIsIdempotent(t *testing.T) {
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	events := []models.VoteEvent{
		voteAt("alice", models.StanceNo, base),
		voteAt("alice", models.StanceYes, base.Add(time.Hour)),
		voteAt("bob", models.StanceNeutral, base),
	}

	once := FromEvents(events)
	twice := once.Clone()
	twice.Merge(events...)

	assert.Equal(t, once, twice)
}

func TestMergeIsOrderInsensitive(t *testing.T) {
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	var events []models.VoteEvent
	for i := 0; i < 20; i++ {
		events = append(events, voteAt("alice", models.Stances[i%len(models.Stances)], base.Add(time.Duration(i)*time.Minute)))
		events = append(events, voteAt("bob", models.Stances[(i+2)%len(models.Stances)], base.Add(time.Duration(i)*time.Second)))
	}

	want := FromEvents(events)

	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 10; trial++ {
		shuffled := make([]models.VoteEvent, len(events))
		copy(shuffled, events)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
		assert.Equal(t, want, FromEvents(shuffled), "trial %d diverged", trial)
	}
}

func TestMergeTimestampTieUsesLargerID(t *testing.T) {
	ts := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	first := voteAt("alice", models.StanceNo, ts)
	second := voteAt("alice", models.StanceYes, ts)

	forward := NewSet()
	forward.Merge(first, second)
	backward := NewSet()
	backward.Merge(second, first)

	assert.Equal(t, second.ID, forward["alice"].ID)
	assert.Equal(t, forward, backward)
}

func TestMergeChangeOfMindResolvesToSingleVote(t *testing.T) {
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	set := NewSet()
	set.Merge(voteAt("alice", models.StanceNeutral, base))
	set.Merge(voteAt("alice", models.StanceStrongYes, base.Add(time.Minute)))

	events := set.Events()
	require.Len(t, events, 1)
	assert.Equal(t, models.StanceStrongYes, events[0].Stance)
}

func TestEventsSortedByUser(t *testing.T) {
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	set := FromEvents([]models.VoteEvent{
		voteAt("carol", models.StanceYes, base),
		voteAt("alice", models.StanceNo, base),
		voteAt("bob", models.StanceNeutral, base),
	})

	events := set.Events()
	require.Len(t, events, 3)
	assert.Equal(t, "alice", events[0].UserID)
	assert.Equal(t, "bob", events[1].UserID)
	assert.Equal(t, "carol", events[2].UserID)
}

func TestCloneIsIndependent(t *testing.T) {
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	set := FromEvents([]models.VoteEvent{voteAt("alice", models.StanceNo, base)})

	clone := set.Clone()
	clone.Merge(voteAt("alice", models.StanceYes, base.Add(time.Hour)))

	assert.Equal(t, models.StanceNo, set["alice"].Stance)
	assert.Equal(t, models.StanceYes, clone["alice"].Stance)
}

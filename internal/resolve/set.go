// StanceMap - Geotagged Stance Voting and Opinion Mapping
// Copyright 2026 StanceMap contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stancemap/stancemap

// Package resolve derives "one current stance per user" from the
// append-only vote ledger. The same last-writer-wins rule is applied in
// two places that must agree exactly: the Resolver reading the ledger,
// and the Set merging streamed events into a held snapshot.
package resolve

import (
	"sort"

	"github.com/stancemap/stancemap/internal/models"
)

// Set maps each user to their single current vote on one topic.
// The core invariant: exactly one entry per user who has ever voted.
type Set map[string]models.VoteEvent

// NewSet returns an empty resolved set.
func NewSet() Set {
	return make(Set)
}

// FromEvents folds a slice of ledger events into a resolved set in a
// single pass. The input may contain any number of events per user, in
// any order.
func FromEvents(events []models.VoteEvent) Set {
	s := make(Set, len(events))
	s.Merge(events...)
	return s
}

// Merge folds incoming events into the set, keeping for each user the
// event with the latest created_at (ties broken by larger id).
//
// Merge is idempotent and order-insensitive: applying the same events
// again, or applying a batch in any order, converges to the same set.
// Events for unknown users are simply added, which makes partial
// snapshots safe to extend from a stream.
func (s Set) Merge(events ...models.VoteEvent) {
	for _, ev := range events {
		current, ok := s[ev.UserID]
		if !ok || ev.Supersedes(&current) {
			s[ev.UserID] = ev
		}
	}
}

// Clone returns an independent copy of the set.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for user, ev := range s {
		out[user] = ev
	}
	return out
}

// Events returns the resolved votes ordered by user id, for deterministic
// snapshot serialization.
func (s Set) Events() []models.VoteEvent {
	out := make([]models.VoteEvent, 0, len(s))
	for _, ev := range s {
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UserID < out[j].UserID
	})
	return out
}

// StanceMap - Geotagged Stance Voting and Opinion Mapping
// Copyright 2026 StanceMap contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stancemap/stancemap

package resolve

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/stancemap/stancemap/internal/models"
)

// LedgerReader is the slice of the storage collaborator the resolver
// needs: the "latest per user for a topic" query.
type LedgerReader interface {
	LatestPerUser(ctx context.Context, topicID uuid.UUID) ([]models.VoteEvent, error)
}

// Resolver derives the authoritative current-opinion set for a topic from
// the ledger. It is read-only and side-effect free.
type Resolver struct {
	ledger LedgerReader
}

// NewResolver creates a resolver over the given ledger.
func NewResolver(ledger LedgerReader) *Resolver {
	return &Resolver{ledger: ledger}
}

// Resolve returns the resolved vote set for a topic: exactly one entry per
// user who has ever voted on it. The storage query already applies the
// last-writer-wins rule; the merge here re-applies it so the resolver
// upholds the invariant even against a storage backend that returns
// unconsolidated rows.
func (r *Resolver) Resolve(ctx context.Context, topicID uuid.UUID) (Set, error) {
	events, err := r.ledger.LatestPerUser(ctx, topicID)
	if err != nil {
		return nil, fmt.Errorf("resolve topic %s: %w", topicID, err)
	}
	return FromEvents(events), nil
}

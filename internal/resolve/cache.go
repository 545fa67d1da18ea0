// StanceMap - Geotagged Stance Voting and Opinion Mapping
// Copyright 2026 StanceMap contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stancemap/stancemap

package resolve

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stancemap/stancemap/internal/models"
)

// Cache keeps per-topic resolved sets in memory so aggregation on pan and
// zoom never re-queries the ledger per event. A topic's set is loaded from
// the resolver on first access and afterwards kept current by Apply-ing
// the same events the fan-out delivers. Because Merge is idempotent and
// order-insensitive, duplicated or reordered applies are harmless.
type Cache struct {
	resolver *Resolver

	mu     sync.RWMutex
	topics map[uuid.UUID]*cacheEntry
}

type cacheEntry struct {
	set        Set
	generation time.Time
}

// NewCache creates a cache backed by the given resolver.
func NewCache(resolver *Resolver) *Cache {
	return &Cache{
		resolver: resolver,
		topics:   make(map[uuid.UUID]*cacheEntry),
	}
}

// Snapshot returns a copy of the topic's resolved set together with its
// generation time. The first access for a topic loads from the ledger;
// later accesses are served from memory.
func (c *Cache) Snapshot(ctx context.Context, topicID uuid.UUID) (Set, time.Time, error) {
	c.mu.RLock()
	if entry, ok := c.topics[topicID]; ok {
		set := entry.set.Clone()
		generation := entry.generation
		c.mu.RUnlock()
		return set, generation, nil
	}
	c.mu.RUnlock()

	set, err := c.resolver.Resolve(ctx, topicID)
	if err != nil {
		return nil, time.Time{}, err
	}
	generation := time.Now().UTC()

	c.mu.Lock()
	// Another loader may have won the race; merge into whichever entry
	// exists rather than clobbering newer streamed events.
	if existing, ok := c.topics[topicID]; ok {
		existing.set.Merge(set.Events()...)
		set = existing.set.Clone()
		generation = existing.generation
	} else {
		c.topics[topicID] = &cacheEntry{set: set.Clone(), generation: generation}
	}
	c.mu.Unlock()

	return set, generation, nil
}

// Apply folds streamed ledger events into the topic's cached set.
// Topics that were never snapshotted are ignored; they will be resolved
// from the ledger when first requested, which already includes the events.
func (c *Cache) Apply(topicID uuid.UUID, events ...models.VoteEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.topics[topicID]
	if !ok {
		return
	}
	entry.set.Merge(events...)
	entry.generation = time.Now().UTC()
}

// Invalidate drops the cached set for a topic, forcing the next snapshot
// to reload from the ledger. Used after transport errors, when missed
// events cannot be assumed replayable.
func (c *Cache) Invalidate(topicID uuid.UUID) {
	c.mu.Lock()
	delete(c.topics, topicID)
	c.mu.Unlock()
}

// Loaded reports whether the topic currently has a cached set.
func (c *Cache) Loaded(topicID uuid.UUID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.topics[topicID]
	return ok
}

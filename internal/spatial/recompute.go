// StanceMap - Geotagged Stance Voting and Opinion Mapping
// Copyright 2026 StanceMap contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stancemap/stancemap

package spatial

import (
	"context"
	"sync"

	"github.com/stancemap/stancemap/internal/metrics"
)

// Recomputer serializes aggregation recomputation for one view with
// "last request wins" semantics: submitting a new computation cancels the
// in-flight one, and a stale computation's result is discarded rather than
// delivered. Back-pressure from rapid pan/zoom therefore collapses to at
// most one running and one winning computation, never a queue.
type Recomputer struct {
	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
}

// NewRecomputer returns an idle recomputer.
func NewRecomputer() *Recomputer {
	return &Recomputer{}
}

// Submit starts run on its own goroutine, canceling any in-flight
// computation first. deliver is invoked with the result only if no newer
// Submit arrived while run was executing; otherwise the result is
// discarded. run should honor its context to stop early when superseded.
func (r *Recomputer) Submit(parent context.Context, run func(context.Context) (interface{}, error), deliver func(interface{}, error)) {
	ctx, cancel := context.WithCancel(parent)

	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
	}
	r.cancel = cancel
	r.seq++
	seq := r.seq
	r.mu.Unlock()

	go func() {
		result, err := run(ctx)
		cancel()

		r.mu.Lock()
		stale := seq != r.seq
		r.mu.Unlock()

		if stale {
			metrics.AggregationsDiscarded.Inc()
			return
		}
		deliver(result, err)
	}()
}

// Stop cancels any in-flight computation without starting a new one.
// Its result, if the computation still finishes, is discarded.
func (r *Recomputer) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.seq++
}

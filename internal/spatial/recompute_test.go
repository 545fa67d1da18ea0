// StanceMap - Geotagged Stance Voting and Opinion Mapping
// Copyright 2026 StanceMap contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stancemap/stancemap

package spatial

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecomputerDeliversResult(t *testing.T) {
	r := NewRecomputer()
	results := make(chan interface{}, 1)

	r.Submit(context.Background(), func(context.Context) (interface{}, error) {
		return "done", nil
	}, func(result interface{}, err error) {
		require.NoError(t, err)
		results <- result
	})

	select {
	case got := <-results:
		assert.Equal(t, "done", got)
	case <-time.After(2 * time.Second):
		t.Fatal("result never delivered")
	}
}

func TestRecomputerLastRequestWins(t *testing.T) {
	r := NewRecomputer()
	delivered := make(chan string, 2)
	firstStarted := make(chan struct{})
	release := make(chan struct{})

	// The first computation blocks until released, simulating a slow
	// aggregation over a large viewport.
	r.Submit(context.Background(), func(ctx context.Context) (interface{}, error) {
		close(firstStarted)
		select {
		case <-release:
		case <-ctx.Done():
		}
		return "first", nil
	}, func(result interface{}, err error) {
		delivered <- result.(string)
	})

	<-firstStarted

	// A pan arrives before the first computation finishes.
	r.Submit(context.Background(), func(ctx context.Context) (interface{}, error) {
		return "second", nil
	}, func(result interface{}, err error) {
		delivered <- result.(string)
	})

	select {
	case got := <-delivered:
		assert.Equal(t, "second", got)
	case <-time.After(2 * time.Second):
		t.Fatal("second result never delivered")
	}

	// Let the stale computation finish; its result must be discarded.
	close(release)
	select {
	case got := <-delivered:
		t.Fatalf("stale result %q delivered", got)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRecomputerSubmitCancelsInFlight(t *testing.T) {
	r := NewRecomputer()
	canceled := make(chan struct{})

	r.Submit(context.Background(), func(ctx context.Context) (interface{}, error) {
		<-ctx.Done()
		close(canceled)
		return nil, ctx.Err()
	}, func(interface{}, error) {})

	r.Submit(context.Background(), func(context.Context) (interface{}, error) {
		return nil, nil
	}, func(interface{}, error) {})

	select {
	case <-canceled:
	case <-time.After(2 * time.Second):
		t.Fatal("in-flight computation was not canceled")
	}
}

func TestRecomputerStopDiscards(t *testing.T) {
	r := NewRecomputer()
	delivered := make(chan struct{}, 1)
	release := make(chan struct{})

	r.Submit(context.Background(), func(ctx context.Context) (interface{}, error) {
		<-release
		return "late", nil
	}, func(interface{}, error) {
		delivered <- struct{}{}
	})

	r.Stop()
	close(release)

	select {
	case <-delivered:
		t.Fatal("result delivered after Stop")
	case <-time.After(100 * time.Millisecond):
	}
}

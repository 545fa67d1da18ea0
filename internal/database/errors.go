// StanceMap - Geotagged Stance Voting and Opinion Mapping
// Copyright 2026 StanceMap contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stancemap/stancemap

package database

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Sentinel errors returned by storage operations.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")
)

// RateLimitError rejects a topic creation inside the per-creator cooldown
// window. RetryAfter is a machine-readable hint, surfaced to the caller
// rather than silently dropped.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("topic creation cooldown active, retry after %s", e.RetryAfter)
}

// RetryAfterSeconds returns the hint rounded up to whole seconds, the
// granularity of the Retry-After HTTP header.
func (e *RateLimitError) RetryAfterSeconds() int {
	return int(math.Ceil(e.RetryAfter.Seconds()))
}

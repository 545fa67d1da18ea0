// StanceMap - Geotagged Stance Voting and Opinion Mapping
// Copyright 2026 StanceMap contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stancemap/stancemap

// Package spatial aggregates resolved vote sets into per-cell weighted
// average scores under three partitioning strategies: uniform grid cells
// sized by zoom level, externally supplied polygon regions, and
// great-circle radius filtering.
//
// A cell with zero votes has an undefined average, never zero; such cells
// are simply absent from the result map, which is the "no data" signal.
package spatial

import (
	"github.com/stancemap/stancemap/internal/models"
)

// CellAggregate is the weighted average stance for one partition cell.
type CellAggregate struct {
	// Count is the number of resolved votes inside the cell. Always > 0;
	// empty cells are not materialized.
	Count int `json:"count"`

	// Average is sum(stanceWeight) / Count over the cell's votes.
	// Intensity never contributes.
	Average float64 `json:"average"`

	// Band is the display band derived from Average.
	Band models.Band `json:"band"`

	sum int
}

// add folds one vote into the aggregate.
func (c *CellAggregate) add(ev *models.VoteEvent) {
	c.sum += ev.Stance.Weight()
	c.Count++
}

// finalize computes Average and Band once all votes are folded in.
func (c *CellAggregate) finalize() {
	c.Average = float64(c.sum) / float64(c.Count)
	c.Band = models.BandForAverage(c.Average)
}

// finalizeAll finalizes every aggregate in a result map.
func finalizeAll[K comparable](cells map[K]*CellAggregate) {
	for _, cell := range cells {
		cell.finalize()
	}
}

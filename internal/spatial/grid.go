// StanceMap - Geotagged Stance Voting and Opinion Mapping
// Copyright 2026 StanceMap contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stancemap/stancemap

package spatial

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/stancemap/stancemap/internal/metrics"
	"github.com/stancemap/stancemap/internal/models"
	"github.com/stancemap/stancemap/internal/resolve"
)

// Bounds is the visible map area in WGS84 degrees.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLng float64 `json:"min_lng"`
	MaxLat float64 `json:"max_lat"`
	MaxLng float64 `json:"max_lng"`
}

// Contains reports whether a point lies inside the bounds (inclusive).
func (b Bounds) Contains(lat, lng float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lng >= b.MinLng && lng <= b.MaxLng
}

// Valid reports whether the bounds describe a non-degenerate WGS84 area.
func (b Bounds) Valid() bool {
	return b.MinLat >= -90 && b.MaxLat <= 90 &&
		b.MinLng >= -180 && b.MaxLng <= 180 &&
		b.MinLat < b.MaxLat && b.MinLng < b.MaxLng
}

// zoomSteps maps web-map zoom levels to grid cell sizes in degrees,
// from continent-scale at low zoom down to neighborhood-scale at high
// zoom. Cell sizes are chosen so that each step divides the previous one:
// zooming in splits every coarse cell into an exact set of finer cells,
// and the coarse average equals the weighted recombination of its parts.
var zoomSteps = []struct {
	maxZoom int
	sizeDeg float64
}{
	{3, 10},      // continent
	{5, 5},       // subcontinent
	{7, 2.5},     // country
	{9, 1.25},    // region
	{11, 0.25},   // metro
	{13, 0.05},   // city
	{15, 0.01},   // district
	{18, 0.0025}, // neighborhood
}

// CellSizeForZoom returns the grid cell size in degrees for a zoom level.
// Zoom levels beyond the table clamp to the finest step.
func CellSizeForZoom(zoom int) float64 {
	for _, step := range zoomSteps {
		if zoom <= step.maxZoom {
			return step.sizeDeg
		}
	}
	return zoomSteps[len(zoomSteps)-1].sizeDeg
}

// GridCell identifies one uniform grid cell at a given cell size. X counts
// cells eastward from the antimeridian, Y northward from the south pole.
type GridCell struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// cellFor returns the cell containing a point at the given cell size.
func cellFor(lat, lng, sizeDeg float64) GridCell {
	return GridCell{
		X: int(math.Floor((lng + 180) / sizeDeg)),
		Y: int(math.Floor((lat + 90) / sizeDeg)),
	}
}

// Bounds returns the geographic extent of the cell at the given size.
func (c GridCell) Bounds(sizeDeg float64) Bounds {
	return Bounds{
		MinLat: float64(c.Y)*sizeDeg - 90,
		MinLng: float64(c.X)*sizeDeg - 180,
		MaxLat: float64(c.Y+1)*sizeDeg - 90,
		MaxLng: float64(c.X+1)*sizeDeg - 180,
	}
}

// GridOptions configures a grid aggregation run.
type GridOptions struct {
	Zoom   int
	Bounds Bounds

	// MaxCells bounds the number of distinct cells the visible area may
	// produce; 0 means unlimited. Exceeding it is an input error (the
	// caller asked for a finer grid than the viewport supports).
	MaxCells int
}

// GridAggregate buckets the resolved votes inside opts.Bounds into uniform
// grid cells sized for opts.Zoom and computes each cell's weighted average
// stance. Cost is bounded by the visible-area vote subset and cell count,
// not the global vote count; cells without votes are never materialized.
//
// The context is checked periodically so a superseded view request stops
// early instead of finishing work nobody will render.
func GridAggregate(ctx context.Context, set resolve.Set, opts GridOptions) (map[GridCell]*CellAggregate, error) {
	if !opts.Bounds.Valid() {
		return nil, fmt.Errorf("invalid bounds: %+v", opts.Bounds)
	}

	sizeDeg := CellSizeForZoom(opts.Zoom)
	if opts.MaxCells > 0 {
		cols := math.Ceil((opts.Bounds.MaxLng - opts.Bounds.MinLng) / sizeDeg)
		rows := math.Ceil((opts.Bounds.MaxLat - opts.Bounds.MinLat) / sizeDeg)
		if cols*rows > float64(opts.MaxCells) {
			return nil, fmt.Errorf("grid of %.0f cells exceeds limit %d; zoom out or shrink bounds", cols*rows, opts.MaxCells)
		}
	}

	start := time.Now()
	defer func() {
		metrics.AggregationDuration.WithLabelValues("grid").Observe(time.Since(start).Seconds())
	}()

	cells := make(map[GridCell]*CellAggregate)
	i := 0
	for _, ev := range set {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		i++

		if !opts.Bounds.Contains(ev.Latitude, ev.Longitude) {
			continue
		}
		key := cellFor(ev.Latitude, ev.Longitude, sizeDeg)
		cell, ok := cells[key]
		if !ok {
			cell = &CellAggregate{}
			cells[key] = cell
		}
		cell.add(&ev)
	}

	finalizeAll(cells)
	return cells, nil
}

// GridFeature is the renderable form of one aggregated grid cell.
type GridFeature struct {
	Cell    GridCell    `json:"cell"`
	Bounds  Bounds      `json:"bounds"`
	Count   int         `json:"count"`
	Average float64     `json:"average"`
	Band    models.Band `json:"band"`
	Color   string      `json:"color"`
}

// GridFeatures flattens a grid aggregation result into renderable
// features with cell bounds and band colors.
func GridFeatures(cells map[GridCell]*CellAggregate, zoom int) []GridFeature {
	sizeDeg := CellSizeForZoom(zoom)
	features := make([]GridFeature, 0, len(cells))
	for key, cell := range cells {
		features = append(features, GridFeature{
			Cell:    key,
			Bounds:  key.Bounds(sizeDeg),
			Count:   cell.Count,
			Average: cell.Average,
			Band:    cell.Band,
			Color:   cell.Band.Color(),
		})
	}
	return features
}

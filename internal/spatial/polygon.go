// StanceMap - Geotagged Stance Voting and Opinion Mapping
// Copyright 2026 StanceMap contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stancemap/stancemap

package spatial

import (
	"context"
	"math"
	"time"

	"github.com/stancemap/stancemap/internal/logging"
	"github.com/stancemap/stancemap/internal/metrics"
	"github.com/stancemap/stancemap/internal/resolve"
)

// Point is a WGS84 coordinate pair.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Polygon is one named region, possibly multi-part (e.g. an archipelago
// district). A point belongs to the polygon if any part contains it.
type Polygon struct {
	ID    string    `json:"id"`
	Parts [][]Point `json:"parts"`
}

// ringValid reports whether one ring is usable: three or more vertices,
// all of them finite.
func ringValid(ring []Point) bool {
	if len(ring) < 3 {
		return false
	}
	for _, pt := range ring {
		if math.IsNaN(pt.Lat) || math.IsNaN(pt.Lng) {
			return false
		}
	}
	return true
}

// pruned returns a copy of the polygon holding only its usable rings.
// A malformed ring is dropped on its own; the polygon survives as long
// as at least one ring remains.
func (p *Polygon) pruned() (Polygon, int) {
	parts := make([][]Point, 0, len(p.Parts))
	for _, part := range p.Parts {
		if ringValid(part) {
			parts = append(parts, part)
		}
	}
	return Polygon{ID: p.ID, Parts: parts}, len(p.Parts) - len(parts)
}

// Contains tests point-in-polygon membership by ray casting: a ray from
// the point toward +lng crosses the ring boundary an odd number of times
// exactly when the point is inside.
func (p *Polygon) Contains(lat, lng float64) bool {
	for _, part := range p.Parts {
		if ringContains(part, lat, lng) {
			return true
		}
	}
	return false
}

func ringContains(ring []Point, lat, lng float64) bool {
	inside := false
	j := len(ring) - 1
	for i := 0; i < len(ring); i++ {
		vi, vj := ring[i], ring[j]
		if (vi.Lat > lat) != (vj.Lat > lat) &&
			lng < (vj.Lng-vi.Lng)*(lat-vi.Lat)/(vj.Lat-vi.Lat)+vi.Lng {
			inside = !inside
		}
		j = i
	}
	return inside
}

// PolygonAggregate buckets resolved votes into the supplied regions and
// computes each region's weighted average stance. A vote is assigned to at
// most one region: the first (by input order) whose boundary contains it.
//
// Malformed rings degrade to "no data" for the area they would cover
// rather than failing the whole view: each bad ring is dropped with a
// warning, and a region loses its entry only when none of its rings are
// usable.
func PolygonAggregate(ctx context.Context, set resolve.Set, polygons []Polygon) (map[string]*CellAggregate, error) {
	start := time.Now()
	defer func() {
		metrics.AggregationDuration.WithLabelValues("polygon").Observe(time.Since(start).Seconds())
	}()

	usable := make([]Polygon, 0, len(polygons))
	for _, poly := range polygons {
		kept, dropped := poly.pruned()
		if dropped > 0 {
			logging.Warn().Str("polygon_id", poly.ID).Int("dropped_rings", dropped).Msg("dropping malformed polygon rings")
		}
		if len(kept.Parts) == 0 {
			continue
		}
		usable = append(usable, kept)
	}

	cells := make(map[string]*CellAggregate)
	i := 0
	for _, ev := range set {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		i++

		for idx := range usable {
			if !usable[idx].Contains(ev.Latitude, ev.Longitude) {
				continue
			}
			cell, ok := cells[usable[idx].ID]
			if !ok {
				cell = &CellAggregate{}
				cells[usable[idx].ID] = cell
			}
			cell.add(&ev)
			break // zero or one enclosing region per vote
		}
	}

	finalizeAll(cells)
	return cells, nil
}

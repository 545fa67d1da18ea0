// StanceMap - Geotagged Stance Voting and Opinion Mapping
// Copyright 2026 StanceMap contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stancemap/stancemap

package spatial

import (
	"math"

	"github.com/stancemap/stancemap/internal/models"
	"github.com/stancemap/stancemap/internal/resolve"
)

// earthRadiusKm is the IUGG mean Earth radius.
const earthRadiusKm = 6371.0088

// Haversine returns the great-circle distance in kilometers between two
// WGS84 points.
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLng := radians(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// WithinRadius filters a resolved set to the votes whose location lies
// within radiusKm great-circle kilometers of the center. Used for
// "distance from home" filtering rather than cell coloring.
func WithinRadius(set resolve.Set, center Point, radiusKm float64) []models.VoteEvent {
	var out []models.VoteEvent
	for _, ev := range set {
		if Haversine(center.Lat, center.Lng, ev.Latitude, ev.Longitude) <= radiusKm {
			out = append(out, ev)
		}
	}
	return out
}

// RadiusAverage computes the single weighted average stance over the votes
// within the radius, or ok=false when no votes qualify (no data, distinct
// from a neutral average).
func RadiusAverage(set resolve.Set, center Point, radiusKm float64) (avg float64, count int, ok bool) {
	agg := &CellAggregate{}
	for _, ev := range set {
		if Haversine(center.Lat, center.Lng, ev.Latitude, ev.Longitude) <= radiusKm {
			agg.add(&ev)
		}
	}
	if agg.Count == 0 {
		return 0, 0, false
	}
	agg.finalize()
	return agg.Average, agg.Count, true
}

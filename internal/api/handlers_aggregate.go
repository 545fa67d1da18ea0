// StanceMap - Geotagged Stance Voting and Opinion Mapping
// Copyright 2026 StanceMap contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stancemap/stancemap

package api

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/stancemap/stancemap/internal/models"
	"github.com/stancemap/stancemap/internal/spatial"
)

// defaultZoom is used when a grid request omits the zoom parameter.
const defaultZoom = 10

// GridAggregateResponse is the grid strategy result.
type GridAggregateResponse struct {
	Strategy string                `json:"strategy"`
	Zoom     int                   `json:"zoom"`
	Features []spatial.GridFeature `json:"features"`
}

// RadiusAggregateResponse is the radius strategy result. Average and Band
// are omitted entirely when no votes fall inside the radius; zero would
// falsely read as a neutral consensus.
type RadiusAggregateResponse struct {
	Strategy string        `json:"strategy"`
	Center   spatial.Point `json:"center"`
	RadiusKm float64       `json:"radius_km"`
	Count    int           `json:"count"`
	Average  *float64      `json:"average,omitempty"`
	Band     models.Band   `json:"band,omitempty"`
	Color    string        `json:"color,omitempty"`
}

// RegionAggregate is one polygon region's result.
type RegionAggregate struct {
	RegionID string      `json:"region_id"`
	Count    int         `json:"count"`
	Average  float64     `json:"average"`
	Band     models.Band `json:"band"`
	Color    string      `json:"color"`
}

// PolygonAggregateRequest is the body of the polygon strategy POST.
type PolygonAggregateRequest struct {
	Polygons []spatial.Polygon `json:"polygons" validate:"required,min=1,max=500"`
}

// PolygonAggregateResponse is the polygon strategy result. Regions with
// no votes, including regions skipped as malformed, are absent.
type PolygonAggregateResponse struct {
	Strategy string            `json:"strategy"`
	Regions  []RegionAggregate `json:"regions"`
}

// handleAggregate dispatches GET aggregation by strategy.
func (h *Handler) handleAggregate(w http.ResponseWriter, r *http.Request) {
	topicID, ok := topicIDParam(w, r)
	if !ok {
		return
	}

	switch strategy := r.URL.Query().Get("strategy"); strategy {
	case "", "grid":
		h.handleGridAggregate(w, r, topicID)
	case "radius":
		h.handleRadiusAggregate(w, r, topicID)
	default:
		respondError(w, r, http.StatusBadRequest, &models.APIError{
			Code:    models.ErrCodeValidation,
			Message: "strategy must be grid or radius; polygon aggregation is the POST variant",
		})
	}
}

func (h *Handler) handleGridAggregate(w http.ResponseWriter, r *http.Request, topicID uuid.UUID) {
	zoom, err := intQuery(r, "zoom", defaultZoom)
	if err != nil {
		respondBadRequest(w, r, err)
		return
	}

	bounds, err := boundsQuery(r)
	if err != nil {
		respondBadRequest(w, r, err)
		return
	}

	set, generation, err := h.cache.Snapshot(r.Context(), topicID)
	if err != nil {
		respondInternalError(w, r, err, "failed to resolve votes for aggregation")
		return
	}

	cells, err := spatial.GridAggregate(r.Context(), set, spatial.GridOptions{
		Zoom:     zoom,
		Bounds:   bounds,
		MaxCells: h.cfg.Aggregation.MaxGridCells,
	})
	if err != nil {
		respondError(w, r, http.StatusBadRequest, &models.APIError{
			Code:    models.ErrCodeAggregation,
			Message: err.Error(),
		})
		return
	}

	features := spatial.GridFeatures(cells, zoom)
	respondCollection(w, r, GridAggregateResponse{
		Strategy: "grid",
		Zoom:     zoom,
		Features: features,
	}, len(features), &generation)
}

func (h *Handler) handleRadiusAggregate(w http.ResponseWriter, r *http.Request, topicID uuid.UUID) {
	lat, err := floatQuery(r, "lat")
	if err != nil {
		respondBadRequest(w, r, err)
		return
	}
	lng, err := floatQuery(r, "lng")
	if err != nil {
		respondBadRequest(w, r, err)
		return
	}
	radiusKm, err := floatQuery(r, "radius_km")
	if err != nil {
		respondBadRequest(w, r, err)
		return
	}
	if radiusKm <= 0 || radiusKm > h.cfg.Aggregation.MaxRadiusKm {
		respondBadRequest(w, r, fmt.Errorf("radius_km must be in (0, %.0f]", h.cfg.Aggregation.MaxRadiusKm))
		return
	}

	set, generation, err := h.cache.Snapshot(r.Context(), topicID)
	if err != nil {
		respondInternalError(w, r, err, "failed to resolve votes for aggregation")
		return
	}

	center := spatial.Point{Lat: lat, Lng: lng}
	resp := RadiusAggregateResponse{
		Strategy: "radius",
		Center:   center,
		RadiusKm: radiusKm,
	}
	if avg, count, ok := spatial.RadiusAverage(set, center, radiusKm); ok {
		band := models.BandForAverage(avg)
		resp.Count = count
		resp.Average = &avg
		resp.Band = band
		resp.Color = band.Color()
	}

	respondCollection(w, r, resp, resp.Count, &generation)
}

// handlePolygonAggregate buckets the resolved votes into caller-supplied
// regions. Regions arrive in the body because real district boundaries do
// not fit in a query string.
func (h *Handler) handlePolygonAggregate(w http.ResponseWriter, r *http.Request) {
	topicID, ok := topicIDParam(w, r)
	if !ok {
		return
	}

	var req PolygonAggregateRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	set, generation, err := h.cache.Snapshot(r.Context(), topicID)
	if err != nil {
		respondInternalError(w, r, err, "failed to resolve votes for aggregation")
		return
	}

	cells, err := spatial.PolygonAggregate(r.Context(), set, req.Polygons)
	if err != nil {
		respondInternalError(w, r, err, "polygon aggregation failed")
		return
	}

	regions := make([]RegionAggregate, 0, len(cells))
	// Preserve request order for stable output.
	for _, poly := range req.Polygons {
		cell, ok := cells[poly.ID]
		if !ok {
			continue
		}
		regions = append(regions, RegionAggregate{
			RegionID: poly.ID,
			Count:    cell.Count,
			Average:  cell.Average,
			Band:     cell.Band,
			Color:    cell.Band.Color(),
		})
	}

	respondCollection(w, r, PolygonAggregateResponse{
		Strategy: "polygon",
		Regions:  regions,
	}, len(regions), &generation)
}

// boundsQuery parses the four bounds parameters of a grid request.
func boundsQuery(r *http.Request) (spatial.Bounds, error) {
	var b spatial.Bounds
	var err error
	if b.MinLat, err = floatQuery(r, "min_lat"); err != nil {
		return b, err
	}
	if b.MinLng, err = floatQuery(r, "min_lng"); err != nil {
		return b, err
	}
	if b.MaxLat, err = floatQuery(r, "max_lat"); err != nil {
		return b, err
	}
	if b.MaxLng, err = floatQuery(r, "max_lng"); err != nil {
		return b, err
	}
	return b, nil
}

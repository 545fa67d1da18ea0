// StanceMap - Geotagged Stance Voting and Opinion Mapping
// Copyright 2026 StanceMap contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stancemap/stancemap

package models

// Stance is one of the five ordered opinion labels a vote can carry.
type Stance string

// The five-value stance vocabulary, ordered from strongest opposition to
// strongest support. The set is fixed; aggregation weights and display
// colors are derived from it and nowhere else.
const (
	StanceStrongNo  Stance = "strong_no"
	StanceNo        Stance = "no"
	StanceNeutral   Stance = "neutral"
	StanceYes       Stance = "yes"
	StanceStrongYes Stance = "strong_yes"
)

// Stances lists the vocabulary in display order.
var Stances = []Stance{
	StanceStrongNo,
	StanceNo,
	StanceNeutral,
	StanceYes,
	StanceStrongYes,
}

// stanceWeights maps each stance to its aggregation weight. Weights feed
// the spatial average; vote intensity never does.
var stanceWeights = map[Stance]int{
	StanceStrongNo:  -2,
	StanceNo:        -1,
	StanceNeutral:   0,
	StanceYes:       1,
	StanceStrongYes: 2,
}

// stanceColors maps each stance to its display color (RdYlGn ramp).
var stanceColors = map[Stance]string{
	StanceStrongNo:  "#d73027",
	StanceNo:        "#fc8d59",
	StanceNeutral:   "#ffffbf",
	StanceYes:       "#91cf60",
	StanceStrongYes: "#1a9850",
}

// Valid reports whether s is part of the vocabulary.
func (s Stance) Valid() bool {
	_, ok := stanceWeights[s]
	return ok
}

// Weight returns the aggregation weight in {-2,-1,0,1,2}.
// Weight of an invalid stance is 0; callers must validate first.
func (s Stance) Weight() int {
	return stanceWeights[s]
}

// Color returns the display color for the stance.
func (s Stance) Color() string {
	return stanceColors[s]
}

// Band is a display band derived from a continuous average score.
type Band string

// Display bands, one per vocabulary entry.
const (
	BandStrongNo  Band = "strong_no"
	BandNo        Band = "no"
	BandNeutral   Band = "neutral"
	BandYes       Band = "yes"
	BandStrongYes Band = "strong_yes"
)

// BandForAverage maps a continuous average score to one of the five display
// bands. The thresholds are asymmetric and fixed for visual consistency:
// averages within (-0.1, 0.1) read as neutral, while the outer bands start
// past the single-step weights. The upper "yes" boundary is inclusive at
// 1.0, matching the lower "strong no" boundary being exclusive at -1.
func BandForAverage(avg float64) Band {
	switch {
	case avg < -1:
		return BandStrongNo
	case avg < -0.1:
		return BandNo
	case avg < 0.1:
		return BandNeutral
	case avg <= 1.0:
		return BandYes
	default:
		return BandStrongYes
	}
}

// Color returns the display color for the band.
func (b Band) Color() string {
	return stanceColors[Stance(b)]
}

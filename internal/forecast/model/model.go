// Package model implements the three demand forecasting sub-models and their
// weighted ensemble combination. Each model projects integer daily quantities
// (clamped to >= 0) over a requested horizon from the same historical series.
package model

import (
	"errors"
	"math"

	"github.com/Serrowxd/fluxor-sub001/pkg/retail"
)

// ErrComputation indicates a sub-model could not produce a forecast, e.g.
// because the series is degenerate. The whole forecast request fails rather
// than substituting a default: a silently wrong number is worse than an
// explicit failure.
var ErrComputation = errors.New("forecast model computation failed")

// Smoothing constants for the Holt-Winters style model. Fixed, untuned
// defaults carried over from the reference system; configurable via
// forecast config rather than learned.
const (
	DefaultAlpha = 0.3 // level
	DefaultBeta  = 0.1 // trend
	DefaultGamma = 0.1 // seasonal
)

// SeasonLength is the weekly cycle length shared by all models.
const SeasonLength = 7

// minSeasonal floors multiplicative seasonal components so a zero-demand
// weekday cannot collapse the level update with a division by zero.
const minSeasonal = 0.01

// quantities extracts the raw demand values from a series.
func quantities(series []retail.Observation) []float64 {
	q := make([]float64, len(series))
	for i, obs := range series {
		q[i] = obs.Quantity
	}
	return q
}

// clampRound converts a raw model output to a non-negative integer quantity.
func clampRound(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	return math.Round(v)
}

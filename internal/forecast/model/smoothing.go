package model

import (
	"fmt"
	"math"

	"github.com/Serrowxd/fluxor-sub001/pkg/retail"
)

// Smoothing is a Holt-Winters style triple exponential smoothing model with
// multiplicative weekly seasonality. State is fit in a single pass over the
// history, then projected forward over the horizon.
type Smoothing struct {
	Alpha float64 // Level smoothing (0-1)
	Beta  float64 // Trend smoothing (0-1)
	Gamma float64 // Seasonal smoothing (0-1)
}

// NewSmoothing creates the model with the given smoothing constants,
// substituting the defaults for out-of-range values.
func NewSmoothing(alpha, beta, gamma float64) *Smoothing {
	if alpha <= 0 || alpha > 1 {
		alpha = DefaultAlpha
	}
	if beta <= 0 || beta > 1 {
		beta = DefaultBeta
	}
	if gamma <= 0 || gamma > 1 {
		gamma = DefaultGamma
	}
	return &Smoothing{Alpha: alpha, Beta: beta, Gamma: gamma}
}

// Forecast fits level, trend, and a 7-day seasonal cycle over the series and
// projects horizon days forward:
//
//	forecast[t] = (level + trend*(t+1)) * seasonal[t mod 7]
//
// with the seasonal array rotated so index 0 is the first projected day.
// Values are clamped to >= 0 and rounded.
func (s *Smoothing) Forecast(series []retail.Observation, horizon int) ([]float64, error) {
	n := len(series)
	if n < SeasonLength {
		return nil, fmt.Errorf("%w: smoothing needs at least one full week, got %d points", ErrComputation, n)
	}
	q := quantities(series)

	// Initialize from the first week: level = week mean, flat trend,
	// seasonal components as ratios to the level.
	var weekSum float64
	for i := 0; i < SeasonLength; i++ {
		weekSum += q[i]
	}
	level := weekSum / SeasonLength
	if level <= 0 {
		return nil, fmt.Errorf("%w: degenerate series, first-week mean is zero", ErrComputation)
	}
	trend := 0.0
	seasonal := make([]float64, SeasonLength)
	for i := 0; i < SeasonLength; i++ {
		seasonal[i] = math.Max(q[i]/level, minSeasonal)
	}

	// Single fitting pass over the remaining history.
	for i := SeasonLength; i < n; i++ {
		idx := i % SeasonLength
		prevLevel := level
		level = s.Alpha*(q[i]/seasonal[idx]) + (1-s.Alpha)*(prevLevel+trend)
		if level <= 0 || math.IsNaN(level) || math.IsInf(level, 0) {
			return nil, fmt.Errorf("%w: smoothing level collapsed at point %d", ErrComputation, i)
		}
		trend = s.Beta*(level-prevLevel) + (1-s.Beta)*trend
		seasonal[idx] = math.Max(s.Gamma*(q[i]/level)+(1-s.Gamma)*seasonal[idx], minSeasonal)
	}

	// Rotate the cycle so seasonal[0] lines up with the first projected day.
	rotated := make([]float64, SeasonLength)
	for t := 0; t < SeasonLength; t++ {
		rotated[t] = seasonal[(n+t)%SeasonLength]
	}

	out := make([]float64, horizon)
	for t := 0; t < horizon; t++ {
		out[t] = clampRound((level + trend*float64(t+1)) * rotated[t%SeasonLength])
	}
	return out, nil
}

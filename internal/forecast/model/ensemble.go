package model

import (
	"fmt"
	"math"

	"github.com/Serrowxd/fluxor-sub001/pkg/retail"
)

// DefaultWeights are the fixed ensemble weights for the smoothing,
// moving-average, and decomposition models, in that order. Carried over from
// the reference system as configuration constants, not learned values.
var DefaultWeights = []float64{0.3, 0.3, 0.4}

// weightTolerance allows for float accumulation when validating that the
// weights sum to 1.
const weightTolerance = 1e-9

// Forecaster is a single demand model projecting daily quantities.
type Forecaster interface {
	Forecast(series []retail.Observation, horizon int) ([]float64, error)
}

// Ensemble combines independent forecasting models with fixed weights.
type Ensemble struct {
	models  []Forecaster
	weights []float64
}

// NewEnsemble builds an ensemble over the given models. The weights must be
// positive, match the model count, and sum to exactly 1.
func NewEnsemble(models []Forecaster, weights []float64) (*Ensemble, error) {
	if len(models) == 0 {
		return nil, fmt.Errorf("ensemble requires at least one model")
	}
	if len(weights) != len(models) {
		return nil, fmt.Errorf("ensemble has %d models but %d weights", len(models), len(weights))
	}
	var sum float64
	for _, w := range weights {
		if w <= 0 {
			return nil, fmt.Errorf("ensemble weight %v is not positive", w)
		}
		sum += w
	}
	if math.Abs(sum-1) > weightTolerance {
		return nil, fmt.Errorf("ensemble weights sum to %v, want 1", sum)
	}
	return &Ensemble{models: models, weights: weights}, nil
}

// NewDefaultEnsemble builds the standard three-model ensemble with the
// default weights and smoothing constants.
func NewDefaultEnsemble(alpha, beta, gamma float64, weights []float64) (*Ensemble, error) {
	if len(weights) == 0 {
		weights = DefaultWeights
	}
	return NewEnsemble([]Forecaster{
		NewSmoothing(alpha, beta, gamma),
		MovingAverage{},
		Decomposition{},
	}, weights)
}

// Forecast runs every model over the series and combines them per day:
//
//	ensemble[t] = round(sum_i weight_i * model_i[t])
//
// Any model failure aborts the whole forecast; a failed model is never
// silently treated as zero.
func (e *Ensemble) Forecast(series []retail.Observation, horizon int) ([]float64, error) {
	if horizon <= 0 {
		return nil, fmt.Errorf("horizon must be positive, got %d", horizon)
	}

	outputs := make([][]float64, len(e.models))
	for i, m := range e.models {
		out, err := m.Forecast(series, horizon)
		if err != nil {
			return nil, fmt.Errorf("model %d: %w", i, err)
		}
		outputs[i] = out
	}

	combined := make([]float64, horizon)
	for t := 0; t < horizon; t++ {
		var v float64
		for i := range outputs {
			v += e.weights[i] * outputs[i][t]
		}
		combined[t] = clampRound(v)
	}
	return combined, nil
}

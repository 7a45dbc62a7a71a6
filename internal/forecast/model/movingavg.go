package model

import (
	"fmt"

	"github.com/Serrowxd/fluxor-sub001/pkg/retail"
)

// MovingAverage is the moving-average-with-trend-proxy model. The trend is
// estimated from the drift between the first and last moving-average values.
type MovingAverage struct{}

// Forecast computes a moving average with window min(7, n/4), derives the
// per-step trend from the MA series endpoints, and projects
//
//	forecast[t] = lastMA + trend*(t+1)
//
// clamped to >= 0 and rounded.
func (MovingAverage) Forecast(series []retail.Observation, horizon int) ([]float64, error) {
	n := len(series)
	if n < 2 {
		return nil, fmt.Errorf("%w: moving average needs at least 2 points, got %d", ErrComputation, n)
	}
	q := quantities(series)

	window := n / 4
	if window > SeasonLength {
		window = SeasonLength
	}
	if window < 1 {
		window = 1
	}

	ma := make([]float64, 0, n-window+1)
	var sum float64
	for i := 0; i < n; i++ {
		sum += q[i]
		if i >= window {
			sum -= q[i-window]
		}
		if i >= window-1 {
			ma = append(ma, sum/float64(window))
		}
	}

	trend := (ma[len(ma)-1] - ma[0]) / float64(len(ma))
	last := ma[len(ma)-1]

	out := make([]float64, horizon)
	for t := 0; t < horizon; t++ {
		out[t] = clampRound(last + trend*float64(t+1))
	}
	return out, nil
}

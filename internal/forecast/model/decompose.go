package model

import (
	"fmt"

	"github.com/Serrowxd/fluxor-sub001/internal/forecast/pattern"
	"github.com/Serrowxd/fluxor-sub001/pkg/retail"
)

// Decomposition is the trend-plus-seasonal model: an OLS linear trend over
// the raw values multiplied by the weekly seasonal factor of each projected
// calendar date.
type Decomposition struct{}

// Forecast projects forecast[t] = trendValue(n+t) * seasonalFactor(date(t)),
// where the trend continues the historical index and the seasonal factor is
// keyed by the projected day's weekday. Clamped to >= 0 and rounded.
func (Decomposition) Forecast(series []retail.Observation, horizon int) ([]float64, error) {
	n := len(series)
	if n < 2 {
		return nil, fmt.Errorf("%w: decomposition needs at least 2 points, got %d", ErrComputation, n)
	}

	trend := pattern.Trend(series)
	seasonality := pattern.Seasonality(series)
	lastDate := series[n-1].Date

	out := make([]float64, horizon)
	for t := 0; t < horizon; t++ {
		date := lastDate.AddDate(0, 0, t+1)
		trendValue := trend.Slope*float64(n+t) + trend.Intercept
		factor := pattern.SeasonalFactor(seasonality, int(date.Weekday()))
		out[t] = clampRound(trendValue * factor)
	}
	return out, nil
}

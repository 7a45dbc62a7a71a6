// Package pattern provides pure statistical pattern detection over a daily
// retail observation series: linear trend, weekly seasonality, and volatility.
package pattern

import (
	"math"

	"github.com/Serrowxd/fluxor-sub001/pkg/retail"
)

// SeasonalStrengthThreshold is the seasonality strength above which the
// weekly cycle is treated as a material forecast factor.
const SeasonalStrengthThreshold = 0.2

// Detect computes the full pattern for a series: trend, weekly seasonality,
// and volatility. The cyclical component is reserved and left zero.
func Detect(series []retail.Observation) retail.Pattern {
	return retail.Pattern{
		Trend:       Trend(series),
		Seasonality: Seasonality(series),
		Volatility:  Volatility(series),
	}
}

// Trend performs ordinary least-squares regression of quantity over the
// series index 0..n-1. With fewer than 2 points the slope is meaningless;
// callers guard with their own minimum-history checks.
func Trend(series []retail.Observation) retail.Trend {
	n := len(series)
	if n < 2 {
		var intercept float64
		if n == 1 {
			intercept = series[0].Quantity
		}
		return retail.Trend{Intercept: intercept}
	}

	var sumX, sumY float64
	for i, obs := range series {
		sumX += float64(i)
		sumY += obs.Quantity
	}
	meanX := sumX / float64(n)
	meanY := sumY / float64(n)

	var ssXY, ssXX float64
	for i, obs := range series {
		dx := float64(i) - meanX
		ssXY += dx * (obs.Quantity - meanY)
		ssXX += dx * dx
	}
	if ssXX == 0 {
		return retail.Trend{Intercept: meanY}
	}

	slope := ssXY / ssXX
	return retail.Trend{
		Slope:     slope,
		Intercept: meanY - slope*meanX,
	}
}

// Seasonality groups the series by day of week, computes per-day means, and
// derives the seasonal strength as stddev(day averages) / overall mean.
// Days with no observations fall back to the overall mean.
func Seasonality(series []retail.Observation) retail.Seasonality {
	var result retail.Seasonality
	if len(series) == 0 {
		return result
	}

	var sums [7]float64
	var counts [7]int
	var total float64
	for _, obs := range series {
		wd := int(obs.Date.Weekday())
		sums[wd] += obs.Quantity
		counts[wd]++
		total += obs.Quantity
	}
	overallMean := total / float64(len(series))

	for i := range result.DayAverages {
		if counts[i] > 0 {
			result.DayAverages[i] = sums[i] / float64(counts[i])
		} else {
			result.DayAverages[i] = overallMean
		}
	}

	if overallMean > 0 {
		var ss float64
		for _, avg := range result.DayAverages {
			d := avg - overallMean
			ss += d * d
		}
		result.Strength = math.Sqrt(ss/7) / overallMean
	}
	return result
}

// SeasonalFactor returns the multiplicative weekly factor for a weekday:
// the day's average relative to the overall mean of the day averages.
// Returns 1 when the series carries no usable signal.
func SeasonalFactor(s retail.Seasonality, weekday int) float64 {
	var total float64
	for _, avg := range s.DayAverages {
		total += avg
	}
	mean := total / 7
	if mean <= 0 {
		return 1
	}
	return s.DayAverages[weekday%7] / mean
}

// Volatility returns the coefficient of variation of the quantities:
// stddev / mean. Zero when the mean is zero.
func Volatility(series []retail.Observation) float64 {
	n := len(series)
	if n == 0 {
		return 0
	}
	var sum float64
	for _, obs := range series {
		sum += obs.Quantity
	}
	mean := sum / float64(n)
	if mean == 0 {
		return 0
	}
	var ss float64
	for _, obs := range series {
		d := obs.Quantity - mean
		ss += d * d
	}
	return math.Sqrt(ss/float64(n)) / mean
}

// Cyclical is a reserved hook for multi-period spectral analysis.
// It currently returns the zero value.
func Cyclical(_ []retail.Observation) struct{} {
	return struct{}{}
}

// AnnotateSeasonalIndex returns a copy of the series with each observation's
// SeasonalIndex set to its weekday's seasonal factor.
func AnnotateSeasonalIndex(series []retail.Observation) []retail.Observation {
	s := Seasonality(series)
	out := make([]retail.Observation, len(series))
	copy(out, series)
	for i := range out {
		out[i].SeasonalIndex = SeasonalFactor(s, int(out[i].Date.Weekday()))
	}
	return out
}

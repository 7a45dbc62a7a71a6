package detect

import (
	"math"

	"github.com/Serrowxd/fluxor-sub001/pkg/retail"
)

// evaluation is the outcome of comparing an actual value against a baseline.
type evaluation struct {
	Flagged          bool
	ZScore           float64 // Signed, in standard deviations
	PercentDeviation float64 // Signed, in percent of expected
	Severity         retail.Severity
}

// evaluate applies the shared detection rule: flag when either the absolute
// z-score exceeds the domain's z threshold or the absolute percentage
// deviation exceeds its percent threshold. A zero stdDev mutes the z signal
// and a zero expected mutes the percent signal rather than dividing by zero.
func evaluate(actual, expected, stdDev float64, th retail.Threshold) evaluation {
	dev := actual - expected

	var z float64
	if stdDev > 0 {
		z = dev / stdDev
	}
	var pct float64
	if expected != 0 {
		pct = dev / expected * 100
	}

	ev := evaluation{
		ZScore:           z,
		PercentDeviation: pct,
		Severity:         classify(math.Abs(z), math.Abs(pct), th),
	}
	ev.Flagged = math.Abs(z) > th.ZScore || math.Abs(pct) > th.PercentDeviation
	return ev
}

// classify maps deviation magnitudes to a severity tier. Each tier is an OR
// across the two signals, mirroring the detection rule itself.
func classify(absZ, absPct float64, th retail.Threshold) retail.Severity {
	switch {
	case absZ > 2*th.ZScore || absPct > 2*th.PercentDeviation:
		return retail.SeverityCritical
	case absZ > 1.5*th.ZScore || absPct > 1.5*th.PercentDeviation:
		return retail.SeverityHigh
	case absZ > th.ZScore || absPct > th.PercentDeviation:
		return retail.SeverityMedium
	}
	return retail.SeverityLow
}

// meanStdDev returns the mean and population standard deviation of values.
func meanStdDev(values []float64) (mean, stdDev float64) {
	n := len(values)
	if n == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean = sum / float64(n)

	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return mean, math.Sqrt(ss / float64(n))
}

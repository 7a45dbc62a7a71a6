package forecast

import (
	"math"
	"time"

	"github.com/Serrowxd/fluxor-sub001/pkg/retail"
)

// uncertaintyGrowth widens the interval margin per day into the horizon, so
// day 30 carries a wider band than day 1.
const uncertaintyGrowth = 0.02

// Intervals wraps each forecasted quantity in a confidence interval derived
// from the trailing MAPE. The margin for day t (0-indexed) is
//
//	mape/100 * (1 + uncertaintyGrowth*t)
//
// and lower bounds are clamped at zero. It also returns an aggregate
// confidence score (0-100): the mean per-day confidence, where a day's
// confidence shrinks as its interval widens relative to its quantity.
func Intervals(quantities []float64, start time.Time, mape float64) ([]retail.Prediction, float64) {
	preds := make([]retail.Prediction, len(quantities))
	var confSum float64

	for t, q := range quantities {
		margin := mape / 100 * (1 + uncertaintyGrowth*float64(t))
		lower := math.Round(q * (1 - margin))
		if lower < 0 {
			lower = 0
		}
		upper := math.Round(q * (1 + margin))

		preds[t] = retail.Prediction{
			Date:     start.AddDate(0, 0, t+1),
			Quantity: int(q),
			Lower:    int(lower),
			Upper:    int(upper),
		}
		confSum += dayConfidence(q, lower, upper)
	}

	if len(preds) == 0 {
		return preds, 0
	}
	return preds, math.Round(confSum / float64(len(preds)))
}

// dayConfidence maps interval width to a 0-100 score. A zero-quantity day
// with a zero-width interval is fully confident.
func dayConfidence(q, lower, upper float64) float64 {
	if q <= 0 {
		if upper-lower == 0 {
			return 100
		}
		return 0
	}
	c := (1 - (upper-lower)/q) * 100
	if c < 0 {
		return 0
	}
	return c
}

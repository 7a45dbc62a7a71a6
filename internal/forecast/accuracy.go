package forecast

import (
	"context"
	"math"
	"time"

	"github.com/Serrowxd/fluxor-sub001/internal/cache"
)

// AccuracyTracker measures how well past forecasts matched realized demand.
// Days without a percentage-defined error (zero actuals) are excluded. The
// trailing summary is cached per product and invalidated whenever a new
// actual is recorded.
type AccuracyTracker struct {
	store *ForecastStore
	cache *cache.Cache
	cfg   ForecastConfig
}

type accuracySummary struct {
	accuracy float64
	mape     float64
}

// NewAccuracyTracker creates an AccuracyTracker over the given store.
func NewAccuracyTracker(store *ForecastStore, c *cache.Cache, cfg ForecastConfig) *AccuracyTracker {
	return &AccuracyTracker{store: store, cache: c, cfg: cfg}
}

// Record upserts a forecast-vs-actual pair for one product-day and drops the
// product's cached summary.
func (t *AccuracyTracker) Record(ctx context.Context, productID string, date time.Time, forecasted, actual float64) error {
	if err := t.store.UpsertAccuracy(ctx, productID, date, forecasted, actual); err != nil {
		return err
	}
	t.cache.Delete(accuracyKey(productID))
	return nil
}

// RecordActual pairs a realized daily quantity with what the latest forecast
// predicted for that day. Days the forecast never covered are ignored.
func (t *AccuracyTracker) RecordActual(ctx context.Context, productID string, date time.Time, actual float64) (bool, error) {
	forecastQty, ok, err := t.store.ForecastedQuantity(ctx, productID, date)
	if err != nil || !ok {
		return false, err
	}
	if err := t.Record(ctx, productID, date, forecastQty, actual); err != nil {
		return false, err
	}
	return true, nil
}

// Summary returns the trailing model accuracy (0-100) and MAPE (percent) for
// a product. With no recorded pairs both fall back to the configured
// defaults, so a brand-new product still forecasts with sane intervals.
func (t *AccuracyTracker) Summary(ctx context.Context, productID string) (accuracy, mape float64, err error) {
	key := accuracyKey(productID)
	if v, ok := t.cache.Get(key); ok {
		s := v.(accuracySummary)
		return s.accuracy, s.mape, nil
	}

	pairs, err := t.store.AccuracyPairs(ctx, productID, t.cfg.AccuracyWindow)
	if err != nil {
		return 0, 0, err
	}
	if len(pairs) == 0 {
		return t.cfg.DefaultAccuracy, t.cfg.DefaultMAPE, nil
	}

	var errSum float64
	for _, p := range pairs {
		errSum += math.Abs(p[0]-p[1]) / p[1]
	}
	mape = errSum / float64(len(pairs)) * 100

	accuracy = 100 - mape
	if accuracy < 0 {
		accuracy = 0
	}

	t.cache.Set(key, accuracySummary{accuracy: accuracy, mape: mape}, t.cfg.CacheTTL)
	return accuracy, mape, nil
}

func accuracyKey(productID string) string {
	return "accuracy:" + productID
}

package forecast

import (
	"fmt"
	"math"
	"time"
)

// ForecastConfig holds configuration for the Forecast plugin.
type ForecastConfig struct {
	MinHistoryDays  int           `mapstructure:"min_history_days"` // Observations required before forecasting
	LookbackDays    int           `mapstructure:"lookback_days"`    // History window fed to the models
	DefaultHorizon  int           `mapstructure:"default_horizon"`  // Days projected when the request omits one
	CacheTTL        time.Duration `mapstructure:"cache_ttl"`
	AccuracyWindow  time.Duration `mapstructure:"accuracy_window"` // Trailing window for accuracy metrics
	DefaultMAPE     float64       `mapstructure:"default_mape"`    // Percent, used before actuals exist
	DefaultAccuracy float64       `mapstructure:"default_accuracy"`

	// Holt-Winters triple exponential smoothing parameters.
	HWAlpha float64 `mapstructure:"hw_alpha"` // Level smoothing (0-1)
	HWBeta  float64 `mapstructure:"hw_beta"`  // Trend smoothing (0-1)
	HWGamma float64 `mapstructure:"hw_gamma"` // Seasonal smoothing (0-1)

	// Ensemble weights for smoothing, moving-average, and decomposition
	// models, in that order. Must sum to 1.
	Weights []float64 `mapstructure:"weights"`

	// External factor defaults applied when a request leaves them unset.
	PromoLift        float64 `mapstructure:"promo_lift"`        // Demand multiplier during promotions
	PriceElasticity  float64 `mapstructure:"price_elasticity"`  // Negative: price up, demand down
	CompetitorImpact float64 `mapstructure:"competitor_impact"` // Demand multiplier under competitor pressure
}

// DefaultConfig returns sensible defaults for the Forecast module.
func DefaultConfig() ForecastConfig {
	return ForecastConfig{
		MinHistoryDays:  30,
		LookbackDays:    365,
		DefaultHorizon:  30,
		CacheTTL:        24 * time.Hour,
		AccuracyWindow:  90 * 24 * time.Hour,
		DefaultMAPE:     15.0,
		DefaultAccuracy: 85.0,

		HWAlpha: 0.3,
		HWBeta:  0.1,
		HWGamma: 0.1,

		Weights: []float64{0.3, 0.3, 0.4},

		PromoLift:        1.2,
		PriceElasticity:  -1.2,
		CompetitorImpact: 0.9,
	}
}

// Validate reports the first invalid field.
func (c ForecastConfig) Validate() error {
	if c.MinHistoryDays < 7 {
		return fmt.Errorf("min_history_days must be >= 7, got %d", c.MinHistoryDays)
	}
	if c.DefaultHorizon <= 0 {
		return fmt.Errorf("default_horizon must be positive, got %d", c.DefaultHorizon)
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("cache_ttl must be positive, got %s", c.CacheTTL)
	}
	var sum float64
	for _, w := range c.Weights {
		if w <= 0 {
			return fmt.Errorf("ensemble weights must be positive, got %v", w)
		}
		sum += w
	}
	if math.Abs(sum-1) > 1e-9 {
		return fmt.Errorf("ensemble weights must sum to 1, got %v", sum)
	}
	if c.PromoLift <= 0 {
		return fmt.Errorf("promo_lift must be positive, got %v", c.PromoLift)
	}
	if c.CompetitorImpact <= 0 {
		return fmt.Errorf("competitor_impact must be positive, got %v", c.CompetitorImpact)
	}
	return nil
}

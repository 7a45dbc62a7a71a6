package detect

import (
	"fmt"
	"time"

	"github.com/Serrowxd/fluxor-sub001/pkg/retail"
)

// Sensitivity levels scale the effective thresholds: a lower sensitivity
// needs a larger deviation before flagging.
const (
	SensitivityLow    = "low"
	SensitivityMedium = "medium"
	SensitivityHigh   = "high"
)

// DetectionConfig holds configuration for the Detect plugin. It is mutable at
// runtime through UpdateConfig; thresholds are always strictly positive.
type DetectionConfig struct {
	Sensitivity       string        `mapstructure:"sensitivity"`
	LookbackDays      int           `mapstructure:"lookback_days"`
	SweepInterval     time.Duration `mapstructure:"sweep_interval"`
	MinPricePoints    int           `mapstructure:"min_price_points"`
	MinCustomerOrders int           `mapstructure:"min_customer_orders"`
	MaxOrdersPerDay   int           `mapstructure:"max_orders_per_day"`

	// Demand severity escalation points, in percent forecast error.
	DemandHighErrorPct   float64 `mapstructure:"demand_high_error_pct"`
	DemandMediumErrorPct float64 `mapstructure:"demand_medium_error_pct"`

	Thresholds map[retail.Domain]retail.Threshold `mapstructure:"thresholds"`
}

// ConfigUpdate is a partial configuration change. Nil fields are left
// untouched; supplied thresholds replace only the named domains.
type ConfigUpdate struct {
	Sensitivity   *string
	LookbackDays  *int
	SweepInterval *time.Duration
	Thresholds    map[retail.Domain]retail.Threshold
}

// DefaultConfig returns sensible defaults for the Detect module.
func DefaultConfig() DetectionConfig {
	return DetectionConfig{
		Sensitivity:       SensitivityMedium,
		LookbackDays:      30,
		SweepInterval:     time.Hour,
		MinPricePoints:    5,
		MinCustomerOrders: 5,
		MaxOrdersPerDay:   10,

		DemandHighErrorPct:   50,
		DemandMediumErrorPct: 30,

		Thresholds: map[retail.Domain]retail.Threshold{
			retail.DomainInventory: {ZScore: 2.5, PercentDeviation: 30},
			retail.DomainSales:     {ZScore: 2.0, PercentDeviation: 40},
			retail.DomainDemand:    {ZScore: 2.0, PercentDeviation: 30},
			retail.DomainPrice:     {ZScore: 2.0, PercentDeviation: 25},
			retail.DomainOrder:     {ZScore: 2.5, PercentDeviation: 50},
		},
	}
}

// Validate reports the first invalid field, wrapping ErrConfigValidation so
// callers can branch on the error kind.
func (c DetectionConfig) Validate() error {
	switch c.Sensitivity {
	case SensitivityLow, SensitivityMedium, SensitivityHigh:
	default:
		return fmt.Errorf("%w: sensitivity %q", ErrConfigValidation, c.Sensitivity)
	}
	if c.LookbackDays <= 0 {
		return fmt.Errorf("%w: lookback_days %d", ErrConfigValidation, c.LookbackDays)
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("%w: sweep_interval %s", ErrConfigValidation, c.SweepInterval)
	}
	for domain, th := range c.Thresholds {
		if th.ZScore <= 0 || th.PercentDeviation <= 0 {
			return fmt.Errorf("%w: %s thresholds must be positive, got z=%v pct=%v",
				ErrConfigValidation, domain, th.ZScore, th.PercentDeviation)
		}
	}
	return nil
}

// Merge applies a partial update and returns the merged config. The receiver
// is unchanged; the result is validated before being returned.
func (c DetectionConfig) Merge(update ConfigUpdate) (DetectionConfig, error) {
	merged := c
	merged.Thresholds = make(map[retail.Domain]retail.Threshold, len(c.Thresholds))
	for domain, th := range c.Thresholds {
		merged.Thresholds[domain] = th
	}

	if update.Sensitivity != nil {
		merged.Sensitivity = *update.Sensitivity
	}
	if update.LookbackDays != nil {
		merged.LookbackDays = *update.LookbackDays
	}
	if update.SweepInterval != nil {
		merged.SweepInterval = *update.SweepInterval
	}
	for domain, th := range update.Thresholds {
		merged.Thresholds[domain] = th
	}

	if err := merged.Validate(); err != nil {
		return DetectionConfig{}, err
	}
	return merged, nil
}

// sensitivityScale returns the multiplier applied to thresholds. High
// sensitivity shrinks thresholds so smaller deviations flag.
func (c DetectionConfig) sensitivityScale() float64 {
	switch c.Sensitivity {
	case SensitivityLow:
		return 1.5
	case SensitivityHigh:
		return 0.75
	}
	return 1.0
}

// EffectiveThreshold returns the sensitivity-scaled threshold for a domain.
func (c DetectionConfig) EffectiveThreshold(domain retail.Domain) (retail.Threshold, error) {
	th, ok := c.Thresholds[domain]
	if !ok {
		return retail.Threshold{}, fmt.Errorf("%w: %s", ErrUnknownDomain, domain)
	}
	scale := c.sensitivityScale()
	return retail.Threshold{
		ZScore:           th.ZScore * scale,
		PercentDeviation: th.PercentDeviation * scale,
	}, nil
}

package forecast

import (
	"math"

	"github.com/Serrowxd/fluxor-sub001/pkg/retail"
)

// Adjuster applies external demand factors to a base forecast. Factors are
// applied in a fixed order (promotions, then price elasticity, then
// competitor pressure) with quantities re-rounded after each step so the
// output stays in whole units.
type Adjuster struct {
	cfg ForecastConfig
}

// NewAdjuster creates an Adjuster with the module defaults for unset factors.
func NewAdjuster(cfg ForecastConfig) *Adjuster {
	return &Adjuster{cfg: cfg}
}

// Apply adjusts the base quantities and reports which factors influenced the
// result. Unset factors are identity operations.
func (a *Adjuster) Apply(base []float64, ext retail.ExternalFactors) ([]float64, []retail.Factor) {
	out := make([]float64, len(base))
	copy(out, base)

	var applied []retail.Factor

	if len(ext.Promotions) > 0 {
		lift := a.applyPromotions(out, ext.Promotions)
		applied = append(applied, retail.Factor{
			Name:   "promotions",
			Impact: lift,
			Type:   retail.FactorPromotional,
		})
	}

	if ext.PriceChangePercent != nil && *ext.PriceChangePercent != 0 {
		mult := 1 + a.cfg.PriceElasticity*(*ext.PriceChangePercent/100)
		if mult < 0 {
			mult = 0
		}
		scale(out, mult)
		applied = append(applied, retail.Factor{
			Name:   "price_elasticity",
			Impact: mult,
			Type:   retail.FactorExternal,
		})
	}

	if ext.CompetitorImpact != nil && *ext.CompetitorImpact > 0 {
		scale(out, *ext.CompetitorImpact)
		applied = append(applied, retail.Factor{
			Name:   "competitor_impact",
			Impact: *ext.CompetitorImpact,
			Type:   retail.FactorExternal,
		})
	}

	return out, applied
}

// applyPromotions lifts quantities inside each promotional window and returns
// the lift used (the last window's lift, or the default).
func (a *Adjuster) applyPromotions(out []float64, promos []retail.Promotion) float64 {
	lift := a.cfg.PromoLift
	for _, p := range promos {
		l := p.Lift
		if l <= 0 {
			l = a.cfg.PromoLift
		}
		lift = l
		for day := p.StartDay; day <= p.EndDay && day < len(out); day++ {
			if day < 0 {
				continue
			}
			out[day] = roundNonNegative(out[day] * l)
		}
	}
	return lift
}

func scale(out []float64, mult float64) {
	for i := range out {
		out[i] = roundNonNegative(out[i] * mult)
	}
}

func roundNonNegative(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	return math.Round(v)
}

package detect

import (
	"context"
	"fmt"
	"time"

	"github.com/Serrowxd/fluxor-sub001/pkg/retail"
	"github.com/Serrowxd/fluxor-sub001/pkg/roles"
	"go.uber.org/zap"
)

// recentWindowDays is the span compared against the baseline. The baseline
// excludes these days so a sustained shift cannot mask itself.
const recentWindowDays = 7

// detectSales compares each product's recent 7-day sales average against the
// preceding baseline, on both quantity and revenue.
func (m *Module) detectSales(ctx context.Context, history roles.HistoryProvider, cfg DetectionConfig) ([]retail.Anomaly, error) {
	th, err := cfg.EffectiveThreshold(retail.DomainSales)
	if err != nil {
		return nil, err
	}

	products, err := history.Products(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	var out []retail.Anomaly
	for _, productID := range products {
		series, err := history.SalesHistory(ctx, productID, "", cfg.LookbackDays+recentWindowDays)
		if err != nil {
			m.logger.Warn("sales history",
				zap.String("product_id", productID), zap.Error(err))
			continue
		}
		if len(series) < 2*recentWindowDays {
			continue
		}

		split := len(series) - recentWindowDays
		baseline, recent := series[:split], series[split:]

		baseQty, baseRev := salesSeries(baseline)
		recentQty, recentRev := salesSeries(recent)

		baseQtyMean, baseQtyStd := meanStdDev(baseQty)
		recentQtyMean, _ := meanStdDev(recentQty)
		qtyEval := evaluate(recentQtyMean, baseQtyMean, baseQtyStd, th)

		baseRevMean, baseRevStd := meanStdDev(baseRev)
		recentRevMean, _ := meanStdDev(recentRev)
		revEval := evaluate(recentRevMean, baseRevMean, baseRevStd, th)

		if !qtyEval.Flagged && !revEval.Flagged {
			continue
		}

		ev := qtyEval
		if revEval.Severity.Rank() > qtyEval.Severity.Rank() ||
			(!qtyEval.Flagged && revEval.Flagged) {
			ev = revEval
		}

		direction := "spiked above"
		if recentQtyMean < baseQtyMean {
			direction = "dropped below"
		}
		out = append(out, m.newAnomaly(retail.DomainSales, ev,
			retail.Entity{Type: "product", ID: productID},
			fmt.Sprintf("7-day sales average %.1f/day %s the baseline %.1f/day",
				recentQtyMean, direction, baseQtyMean),
			[]retail.AnomalyMetric{
				metric("daily_quantity", baseQtyMean, recentQtyMean),
				metric("daily_revenue", baseRevMean, recentRevMean),
			},
			time.Now(),
		))
	}
	return out, nil
}

// salesSeries splits observations into daily quantity and revenue series.
func salesSeries(series []retail.Observation) (quantities, revenues []float64) {
	quantities = make([]float64, len(series))
	revenues = make([]float64, len(series))
	for i, obs := range series {
		quantities[i] = obs.Quantity
		revenues[i] = obs.Quantity * obs.Price
	}
	return quantities, revenues
}

package detect

import (
	"context"
	"fmt"
	"time"

	"github.com/Serrowxd/fluxor-sub001/pkg/retail"
	"github.com/Serrowxd/fluxor-sub001/pkg/roles"
	"go.uber.org/zap"
)

// detectDemand flags products whose trailing forecast error exceeds the
// demand threshold. Severity escalates with the error magnitude rather than
// the shared z-score tiers, since the signal is already a percentage.
func (m *Module) detectDemand(ctx context.Context, history roles.HistoryProvider, forecasts roles.ForecastProvider, cfg DetectionConfig) ([]retail.Anomaly, error) {
	th, err := cfg.EffectiveThreshold(retail.DomainDemand)
	if err != nil {
		return nil, err
	}

	products, err := history.Products(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	var out []retail.Anomaly
	for _, productID := range products {
		accuracy, mape, err := forecasts.AccuracySummary(ctx, productID)
		if err != nil {
			m.logger.Warn("accuracy summary",
				zap.String("product_id", productID), zap.Error(err))
			continue
		}
		if mape <= th.PercentDeviation {
			continue
		}

		severity := retail.SeverityLow
		switch {
		case mape > cfg.DemandHighErrorPct:
			severity = retail.SeverityHigh
		case mape > cfg.DemandMediumErrorPct:
			severity = retail.SeverityMedium
		}

		ev := evaluation{
			Flagged:          true,
			PercentDeviation: mape,
			Severity:         severity,
		}
		out = append(out, m.newAnomaly(retail.DomainDemand, ev,
			retail.Entity{Type: "product", ID: productID},
			fmt.Sprintf("Forecast error %.1f%% exceeds the %.0f%% threshold (model accuracy %.1f%%)",
				mape, th.PercentDeviation, accuracy),
			[]retail.AnomalyMetric{metric("forecast_error_pct", th.PercentDeviation, mape)},
			time.Now(),
		))
	}
	return out, nil
}

package detect

import (
	"context"
	"fmt"
	"time"

	"github.com/Serrowxd/fluxor-sub001/pkg/retail"
	"github.com/Serrowxd/fluxor-sub001/pkg/roles"
	"go.uber.org/zap"
)

// detectPrice compares each product's latest unit price against its trailing
// average. Products with fewer than MinPricePoints recorded prices are
// skipped; new products are too noisy to judge.
func (m *Module) detectPrice(ctx context.Context, history roles.HistoryProvider, cfg DetectionConfig) ([]retail.Anomaly, error) {
	th, err := cfg.EffectiveThreshold(retail.DomainPrice)
	if err != nil {
		return nil, err
	}

	products, err := history.Products(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	var out []retail.Anomaly
	for _, productID := range products {
		prices, err := history.PriceHistory(ctx, productID, cfg.LookbackDays)
		if err != nil {
			m.logger.Warn("price history",
				zap.String("product_id", productID), zap.Error(err))
			continue
		}
		if len(prices) < cfg.MinPricePoints {
			continue
		}

		current := prices[len(prices)-1]
		mean, stdDev := meanStdDev(prices[:len(prices)-1])
		ev := evaluate(current, mean, stdDev, th)
		if !ev.Flagged {
			continue
		}

		direction := "above"
		if current < mean {
			direction = "below"
		}
		out = append(out, m.newAnomaly(retail.DomainPrice, ev,
			retail.Entity{Type: "product", ID: productID},
			fmt.Sprintf("Unit price %.2f is %s the trailing average %.2f", current, direction, mean),
			[]retail.AnomalyMetric{metric("unit_price", mean, current)},
			time.Now(),
		))
	}
	return out, nil
}

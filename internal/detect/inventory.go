package detect

import (
	"context"
	"fmt"
	"time"

	"github.com/Serrowxd/fluxor-sub001/pkg/retail"
	"github.com/Serrowxd/fluxor-sub001/pkg/roles"
	"go.uber.org/zap"
)

// minInventorySnapshots is the history floor below which a stock level has no
// meaningful baseline.
const minInventorySnapshots = 5

// detectInventory compares each product-warehouse's current stock level
// against its trailing history.
func (m *Module) detectInventory(ctx context.Context, inv roles.InventoryProvider, cfg DetectionConfig) ([]retail.Anomaly, error) {
	th, err := cfg.EffectiveThreshold(retail.DomainInventory)
	if err != nil {
		return nil, err
	}

	levels, err := inv.CurrentInventory(ctx)
	if err != nil {
		return nil, fmt.Errorf("current inventory: %w", err)
	}

	var out []retail.Anomaly
	for _, level := range levels {
		history, err := inv.InventoryHistory(ctx, level.ProductID, level.WarehouseID, cfg.LookbackDays)
		if err != nil {
			m.logger.Warn("inventory history",
				zap.String("product_id", level.ProductID), zap.Error(err))
			continue
		}
		if len(history) < minInventorySnapshots {
			continue
		}

		values := make([]float64, 0, len(history))
		minSeen, maxSeen := history[0].Quantity, history[0].Quantity
		for _, h := range history {
			values = append(values, h.Quantity)
			if h.Quantity < minSeen {
				minSeen = h.Quantity
			}
			if h.Quantity > maxSeen {
				maxSeen = h.Quantity
			}
		}

		mean, stdDev := meanStdDev(values)
		ev := evaluate(level.Quantity, mean, stdDev, th)
		if !ev.Flagged {
			continue
		}

		direction := "above"
		if level.Quantity < mean {
			direction = "below"
		}
		out = append(out, m.newAnomaly(retail.DomainInventory, ev,
			retail.Entity{Type: "product", ID: level.ProductID, Name: level.WarehouseID},
			fmt.Sprintf("Stock level %.0f is %s the trailing average %.1f (observed range %.0f-%.0f)",
				level.Quantity, direction, mean, minSeen, maxSeen),
			[]retail.AnomalyMetric{metric("stock_level", mean, level.Quantity)},
			time.Now(),
		))
	}
	return out, nil
}

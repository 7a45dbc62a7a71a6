package detect

import (
	"context"
	"fmt"
	"time"

	"github.com/Serrowxd/fluxor-sub001/pkg/retail"
	"github.com/Serrowxd/fluxor-sub001/pkg/roles"
)

// checkOrder screens a single customer order against the customer's history:
// order size and item count by z-score, plus a daily order-count ceiling.
// Customers with fewer than MinCustomerOrders prior orders only get the
// velocity check; there is no baseline to judge size against.
func (m *Module) checkOrder(ctx context.Context, orders roles.OrderProvider, event retail.OrderEvent, cfg DetectionConfig) ([]retail.Anomaly, error) {
	th, err := cfg.EffectiveThreshold(retail.DomainOrder)
	if err != nil {
		return nil, err
	}

	stats, err := orders.CustomerOrderStats(ctx, event.CustomerID, event.OrderID)
	if err != nil {
		return nil, fmt.Errorf("customer order stats: %w", err)
	}

	var out []retail.Anomaly
	now := time.Now()
	entity := retail.Entity{Type: "order", ID: event.OrderID, Name: event.CustomerID}

	if count := stats.OrdersLast24h + 1; count > cfg.MaxOrdersPerDay {
		severity := retail.SeverityHigh
		if count >= 2*cfg.MaxOrdersPerDay {
			severity = retail.SeverityCritical
		}
		ev := evaluation{
			Flagged:          true,
			PercentDeviation: float64(count-cfg.MaxOrdersPerDay) / float64(cfg.MaxOrdersPerDay) * 100,
			Severity:         severity,
		}
		out = append(out, m.newAnomaly(retail.DomainOrder, ev, entity,
			fmt.Sprintf("Customer %s placed %d orders in 24h (limit %d)",
				event.CustomerID, count, cfg.MaxOrdersPerDay),
			[]retail.AnomalyMetric{metric("orders_last_24h", float64(cfg.MaxOrdersPerDay), float64(count))},
			now,
		))
	}

	if stats.OrderCount < cfg.MinCustomerOrders {
		return out, nil
	}

	if ev := evaluate(event.Total, stats.MeanTotal, stats.StdDevTotal, th); ev.Flagged {
		out = append(out, m.newAnomaly(retail.DomainOrder, ev, entity,
			fmt.Sprintf("Order total %.2f deviates from customer average %.2f",
				event.Total, stats.MeanTotal),
			[]retail.AnomalyMetric{metric("order_total", stats.MeanTotal, event.Total)},
			now,
		))
	}

	if ev := evaluate(float64(event.ItemCount), stats.MeanItemCount, stats.StdDevItems, th); ev.Flagged {
		out = append(out, m.newAnomaly(retail.DomainOrder, ev, entity,
			fmt.Sprintf("Order item count %d deviates from customer average %.1f",
				event.ItemCount, stats.MeanItemCount),
			[]retail.AnomalyMetric{metric("item_count", stats.MeanItemCount, float64(event.ItemCount))},
			now,
		))
	}

	return out, nil
}

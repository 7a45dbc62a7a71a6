// Package roles defines typed contracts for plugin roles.
// Plugins that fill a role (declared via PluginInfo.Roles) should implement
// the corresponding interface so callers can use type-safe access via
// PluginResolver.ResolveByRole followed by a type assertion.
package roles

import (
	"context"
	"time"

	"github.com/Serrowxd/fluxor-sub001/pkg/retail"
)

// Role name constants match the strings used in PluginInfo.Roles.
const (
	RoleHistory     = "history"
	RoleInventory   = "inventory"
	RoleOrders      = "orders"
	RoleForecasting = "forecasting"
	RoleDetection   = "detection"
)

// HistoryProvider is implemented by plugins that serve historical sales
// observations. The returned series is ordered ascending by date, one
// observation per calendar day.
type HistoryProvider interface {
	// SalesHistory returns up to lookbackDays of trailing observations for a
	// product. warehouseID may be empty to aggregate across warehouses.
	SalesHistory(ctx context.Context, productID, warehouseID string, lookbackDays int) ([]retail.Observation, error)

	// Products returns the IDs of all products with recorded history.
	Products(ctx context.Context) ([]string, error)

	// PriceHistory returns trailing unit prices for a product, oldest first.
	PriceHistory(ctx context.Context, productID string, lookbackDays int) ([]float64, error)
}

// InventoryProvider is implemented by plugins that serve stock levels.
type InventoryProvider interface {
	// CurrentInventory returns the latest stock snapshot per product.
	CurrentInventory(ctx context.Context) ([]retail.InventoryLevel, error)

	// InventoryHistory returns trailing stock snapshots for one
	// product+warehouse, oldest first.
	InventoryHistory(ctx context.Context, productID, warehouseID string, lookbackDays int) ([]retail.InventoryLevel, error)
}

// OrderProvider is implemented by plugins that serve customer order history.
type OrderProvider interface {
	// CustomerOrderStats summarizes a customer's prior orders, excluding the
	// given order ID so an order is never compared against itself.
	CustomerOrderStats(ctx context.Context, customerID, excludeOrderID string) (retail.CustomerOrderStats, error)

	// OrdersSince returns orders placed at or after the given time, oldest first.
	OrdersSince(ctx context.Context, since time.Time) ([]retail.OrderEvent, error)
}

// ForecastProvider is implemented by plugins that generate demand forecasts.
type ForecastProvider interface {
	// LatestForecast returns the most recent stored forecast for a product,
	// or nil when none exists.
	LatestForecast(ctx context.Context, productID string) (*retail.Forecast, error)

	// AccuracySummary returns the trailing model accuracy (0-100) and mean
	// absolute percentage error for a product.
	AccuracySummary(ctx context.Context, productID string) (accuracy, mape float64, err error)
}

// AnomalyProvider is implemented by plugins that detect and track anomalies.
type AnomalyProvider interface {
	// Recent returns anomalies sorted by severity (critical first) then recency.
	Recent(ctx context.Context, limit int) ([]retail.Anomaly, error)

	// Resolve marks an anomaly resolved. Idempotent.
	Resolve(ctx context.Context, anomalyID, resolution string) error
}

// Clock abstracts time for tests. Production code uses SystemClock.
type Clock interface {
	Now() time.Time
}

// SystemClock is the default Clock backed by time.Now.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time { return time.Now() }

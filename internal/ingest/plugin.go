// Package ingest persists the retail observation feed: daily sales, stock
// level snapshots, unit prices, and customer orders. It fills the history,
// inventory, and orders roles consumed by the forecast and detect plugins.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/Serrowxd/fluxor-sub001/pkg/plugin"
	"github.com/Serrowxd/fluxor-sub001/pkg/retail"
	"github.com/Serrowxd/fluxor-sub001/pkg/roles"
	"go.uber.org/zap"
)

// Compile-time interface guards.
var (
	_ plugin.Plugin           = (*Module)(nil)
	_ plugin.HealthChecker    = (*Module)(nil)
	_ roles.HistoryProvider   = (*Module)(nil)
	_ roles.InventoryProvider = (*Module)(nil)
	_ roles.OrderProvider     = (*Module)(nil)
)

// Module implements the Ingest data-feed plugin.
type Module struct {
	logger *zap.Logger
	store  *IngestStore
	bus    plugin.EventBus
}

// New creates a new Ingest plugin instance.
func New() *Module {
	return &Module{}
}

func (m *Module) Info() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name:        "ingest",
		Version:     "0.1.0",
		Description: "Retail observation feed: sales, inventory, prices, orders",
		Required:    true,
		Roles:       []string{roles.RoleHistory, roles.RoleInventory, roles.RoleOrders},
		APIVersion:  plugin.APIVersionCurrent,
	}
}

func (m *Module) Init(ctx context.Context, deps plugin.Dependencies) error {
	m.logger = deps.Logger
	m.bus = deps.Bus

	if deps.Store == nil {
		return fmt.Errorf("ingest requires a store")
	}
	if err := deps.Store.Migrate(ctx, "ingest", migrations()); err != nil {
		return fmt.Errorf("ingest migrations: %w", err)
	}
	m.store = NewIngestStore(deps.Store.DB())

	m.logger.Info("ingest module initialized")
	return nil
}

func (m *Module) Start(_ context.Context) error { return nil }

func (m *Module) Stop(_ context.Context) error { return nil }

// Health implements plugin.HealthChecker.
func (m *Module) Health(ctx context.Context) plugin.HealthStatus {
	products, err := m.store.Products(ctx)
	if err != nil {
		return plugin.HealthStatus{Status: "unhealthy", Message: err.Error()}
	}
	return plugin.HealthStatus{
		Status:  "healthy",
		Details: map[string]string{"products_tracked": fmt.Sprintf("%d", len(products))},
	}
}

// -- Write API --

// RecordSale stores a daily sales observation and announces the realized
// quantity so forecast accuracy can be tracked against it.
func (m *Module) RecordSale(ctx context.Context, productID, warehouseID string, obs retail.Observation) error {
	if obs.Quantity < 0 {
		return fmt.Errorf("sale quantity must be >= 0, got %v", obs.Quantity)
	}
	if err := m.store.UpsertSale(ctx, productID, warehouseID, obs); err != nil {
		return err
	}

	if m.bus != nil {
		m.bus.PublishAsync(ctx, plugin.Event{
			Topic:     TopicSalesActual,
			Source:    "ingest",
			Timestamp: time.Now(),
			Payload: retail.SalesActual{
				ProductID: productID,
				Date:      obs.Date,
				Quantity:  obs.Quantity,
			},
		})
	}
	return nil
}

// RecordInventory stores a stock level snapshot.
func (m *Module) RecordInventory(ctx context.Context, level retail.InventoryLevel) error {
	if level.RecordedAt.IsZero() {
		level.RecordedAt = time.Now()
	}
	return m.store.InsertInventory(ctx, level)
}

// RecordOrder stores a customer order and publishes it for anomaly screening.
func (m *Module) RecordOrder(ctx context.Context, order retail.OrderEvent) error {
	if order.PlacedAt.IsZero() {
		order.PlacedAt = time.Now()
	}
	if err := m.store.InsertOrder(ctx, order); err != nil {
		return err
	}

	if m.bus != nil {
		m.bus.PublishAsync(ctx, plugin.Event{
			Topic:     TopicOrderReceived,
			Source:    "ingest",
			Timestamp: time.Now(),
			Payload:   order,
		})
	}
	m.logger.Debug("order recorded",
		zap.String("order_id", order.OrderID),
		zap.String("customer_id", order.CustomerID),
	)
	return nil
}

// -- roles.HistoryProvider --

// SalesHistory implements roles.HistoryProvider.
func (m *Module) SalesHistory(ctx context.Context, productID, warehouseID string, lookbackDays int) ([]retail.Observation, error) {
	return m.store.SalesHistory(ctx, productID, warehouseID, lookbackDays)
}

// Products implements roles.HistoryProvider.
func (m *Module) Products(ctx context.Context) ([]string, error) {
	return m.store.Products(ctx)
}

// PriceHistory implements roles.HistoryProvider.
func (m *Module) PriceHistory(ctx context.Context, productID string, lookbackDays int) ([]float64, error) {
	return m.store.PriceHistory(ctx, productID, lookbackDays)
}

// -- roles.InventoryProvider --

// CurrentInventory implements roles.InventoryProvider.
func (m *Module) CurrentInventory(ctx context.Context) ([]retail.InventoryLevel, error) {
	return m.store.CurrentInventory(ctx)
}

// InventoryHistory implements roles.InventoryProvider.
func (m *Module) InventoryHistory(ctx context.Context, productID, warehouseID string, lookbackDays int) ([]retail.InventoryLevel, error) {
	return m.store.InventoryHistory(ctx, productID, warehouseID, lookbackDays)
}

// -- roles.OrderProvider --

// CustomerOrderStats implements roles.OrderProvider.
func (m *Module) CustomerOrderStats(ctx context.Context, customerID, excludeOrderID string) (retail.CustomerOrderStats, error) {
	return m.store.CustomerOrderStats(ctx, customerID, excludeOrderID)
}

// OrdersSince implements roles.OrderProvider.
func (m *Module) OrdersSince(ctx context.Context, since time.Time) ([]retail.OrderEvent, error) {
	return m.store.OrdersSince(ctx, since)
}

package ingest

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/Serrowxd/fluxor-sub001/pkg/retail"
)

// dateLayout is the storage format for daily observation dates.
const dateLayout = "2006-01-02"

// IngestStore provides database access for the Ingest module.
type IngestStore struct {
	db *sql.DB
}

// NewIngestStore creates a new IngestStore backed by the given database.
func NewIngestStore(db *sql.DB) *IngestStore {
	return &IngestStore{db: db}
}

// -- Sales --

// UpsertSale inserts or replaces a daily sales observation.
func (s *IngestStore) UpsertSale(ctx context.Context, productID, warehouseID string, obs retail.Observation) error {
	promos, err := json.Marshal(obs.Promotions)
	if err != nil {
		return fmt.Errorf("marshal promotions: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO retail_sales (product_id, warehouse_id, date, quantity, price, promotions)
		VALUES (?, ?, ?, ?, ?, ?)`,
		productID, warehouseID, obs.Date.Format(dateLayout), obs.Quantity, obs.Price, string(promos),
	)
	if err != nil {
		return fmt.Errorf("upsert sale: %w", err)
	}
	return nil
}

// SalesHistory returns up to lookbackDays of trailing daily observations for a
// product, ordered ascending by date. An empty warehouseID aggregates
// quantities across warehouses.
func (s *IngestStore) SalesHistory(ctx context.Context, productID, warehouseID string, lookbackDays int) ([]retail.Observation, error) {
	since := time.Now().AddDate(0, 0, -lookbackDays).Format(dateLayout)

	var rows *sql.Rows
	var err error
	if warehouseID == "" {
		rows, err = s.db.QueryContext(ctx, `
			SELECT date, SUM(quantity), AVG(price), MAX(promotions)
			FROM retail_sales
			WHERE product_id = ? AND date >= ?
			GROUP BY date ORDER BY date`,
			productID, since,
		)
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT date, quantity, price, promotions
			FROM retail_sales
			WHERE product_id = ? AND warehouse_id = ? AND date >= ?
			ORDER BY date`,
			productID, warehouseID, since,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("sales history: %w", err)
	}
	defer rows.Close()

	var series []retail.Observation
	for rows.Next() {
		var obs retail.Observation
		var dateStr, promosJSON string
		if err := rows.Scan(&dateStr, &obs.Quantity, &obs.Price, &promosJSON); err != nil {
			return nil, fmt.Errorf("scan sale row: %w", err)
		}
		obs.Date, err = time.Parse(dateLayout, dateStr)
		if err != nil {
			return nil, fmt.Errorf("parse sale date %q: %w", dateStr, err)
		}
		if err := json.Unmarshal([]byte(promosJSON), &obs.Promotions); err != nil {
			return nil, fmt.Errorf("unmarshal promotions: %w", err)
		}
		series = append(series, obs)
	}
	return series, rows.Err()
}

// Products returns the distinct product IDs with recorded sales.
func (s *IngestStore) Products(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT product_id FROM retail_sales ORDER BY product_id`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan product id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// PriceHistory returns the trailing nonzero unit prices for a product,
// ordered ascending by date.
func (s *IngestStore) PriceHistory(ctx context.Context, productID string, lookbackDays int) ([]float64, error) {
	since := time.Now().AddDate(0, 0, -lookbackDays).Format(dateLayout)
	rows, err := s.db.QueryContext(ctx, `
		SELECT price FROM retail_sales
		WHERE product_id = ? AND date >= ? AND price > 0
		ORDER BY date`,
		productID, since,
	)
	if err != nil {
		return nil, fmt.Errorf("price history: %w", err)
	}
	defer rows.Close()

	var prices []float64
	for rows.Next() {
		var p float64
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan price: %w", err)
		}
		prices = append(prices, p)
	}
	return prices, rows.Err()
}

// -- Inventory --

// InsertInventory stores a stock level snapshot.
func (s *IngestStore) InsertInventory(ctx context.Context, level retail.InventoryLevel) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO retail_inventory (product_id, warehouse_id, quantity, recorded_at)
		VALUES (?, ?, ?, ?)`,
		level.ProductID, level.WarehouseID, level.Quantity, level.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("insert inventory: %w", err)
	}
	return nil
}

// CurrentInventory returns the most recent snapshot per product+warehouse.
func (s *IngestStore) CurrentInventory(ctx context.Context) ([]retail.InventoryLevel, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT product_id, warehouse_id, quantity, recorded_at
		FROM retail_inventory
		GROUP BY product_id, warehouse_id
		HAVING recorded_at = MAX(recorded_at)
		ORDER BY product_id, warehouse_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("current inventory: %w", err)
	}
	defer rows.Close()

	var levels []retail.InventoryLevel
	for rows.Next() {
		var l retail.InventoryLevel
		if err := rows.Scan(&l.ProductID, &l.WarehouseID, &l.Quantity, &l.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan inventory row: %w", err)
		}
		levels = append(levels, l)
	}
	return levels, rows.Err()
}

// InventoryHistory returns trailing snapshots for one product+warehouse,
// ordered ascending by time.
func (s *IngestStore) InventoryHistory(ctx context.Context, productID, warehouseID string, lookbackDays int) ([]retail.InventoryLevel, error) {
	since := time.Now().AddDate(0, 0, -lookbackDays)
	rows, err := s.db.QueryContext(ctx, `
		SELECT product_id, warehouse_id, quantity, recorded_at
		FROM retail_inventory
		WHERE product_id = ? AND warehouse_id = ? AND recorded_at >= ?
		ORDER BY recorded_at`,
		productID, warehouseID, since,
	)
	if err != nil {
		return nil, fmt.Errorf("inventory history: %w", err)
	}
	defer rows.Close()

	var levels []retail.InventoryLevel
	for rows.Next() {
		var l retail.InventoryLevel
		if err := rows.Scan(&l.ProductID, &l.WarehouseID, &l.Quantity, &l.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan inventory row: %w", err)
		}
		levels = append(levels, l)
	}
	return levels, rows.Err()
}

// -- Orders --

// InsertOrder stores a customer order.
func (s *IngestStore) InsertOrder(ctx context.Context, o retail.OrderEvent) error {
	quantities, err := json.Marshal(o.Quantities)
	if err != nil {
		return fmt.Errorf("marshal quantities: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO retail_orders (id, customer_id, total, item_count, quantities, placed_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		o.OrderID, o.CustomerID, o.Total, o.ItemCount, string(quantities), o.PlacedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// OrdersSince returns orders placed at or after the given time, oldest first.
func (s *IngestStore) OrdersSince(ctx context.Context, since time.Time) ([]retail.OrderEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, customer_id, total, item_count, quantities, placed_at
		FROM retail_orders
		WHERE placed_at >= ?
		ORDER BY placed_at`,
		since,
	)
	if err != nil {
		return nil, fmt.Errorf("orders since: %w", err)
	}
	defer rows.Close()

	var orders []retail.OrderEvent
	for rows.Next() {
		var o retail.OrderEvent
		var quantitiesJSON string
		if err := rows.Scan(&o.OrderID, &o.CustomerID, &o.Total, &o.ItemCount, &quantitiesJSON, &o.PlacedAt); err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		if err := json.Unmarshal([]byte(quantitiesJSON), &o.Quantities); err != nil {
			return nil, fmt.Errorf("unmarshal quantities: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// CustomerOrderStats summarizes a customer's prior orders, excluding the
// given order ID. Mean and standard deviation are computed in Go because
// SQLite lacks a stddev aggregate.
func (s *IngestStore) CustomerOrderStats(ctx context.Context, customerID, excludeOrderID string) (retail.CustomerOrderStats, error) {
	stats := retail.CustomerOrderStats{CustomerID: customerID}

	rows, err := s.db.QueryContext(ctx, `
		SELECT total, item_count, placed_at FROM retail_orders
		WHERE customer_id = ? AND id != ?
		ORDER BY placed_at`,
		customerID, excludeOrderID,
	)
	if err != nil {
		return stats, fmt.Errorf("customer order stats: %w", err)
	}
	defer rows.Close()

	var totals, items []float64
	dayAgo := time.Now().Add(-24 * time.Hour)
	for rows.Next() {
		var total float64
		var itemCount int
		var placedAt time.Time
		if err := rows.Scan(&total, &itemCount, &placedAt); err != nil {
			return stats, fmt.Errorf("scan order row: %w", err)
		}
		totals = append(totals, total)
		items = append(items, float64(itemCount))
		if placedAt.After(dayAgo) {
			stats.OrdersLast24h++
		}
	}
	if err := rows.Err(); err != nil {
		return stats, err
	}

	stats.OrderCount = len(totals)
	stats.MeanTotal, stats.StdDevTotal = meanStdDev(totals)
	stats.MeanItemCount, stats.StdDevItems = meanStdDev(items)
	return stats, nil
}

func meanStdDev(values []float64) (mean, stdDev float64) {
	n := float64(len(values))
	if n == 0 {
		return 0, 0
	}
	for _, v := range values {
		mean += v
	}
	mean /= n
	if n < 2 {
		return mean, 0
	}
	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return mean, math.Sqrt(ss / n)
}

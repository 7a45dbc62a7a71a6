package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/Serrowxd/fluxor-sub001/internal/store"
	"github.com/Serrowxd/fluxor-sub001/pkg/retail"
)

func testIngestStore(t *testing.T) *IngestStore {
	t.Helper()
	db, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(context.Background(), "ingest", migrations()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewIngestStore(db.DB())
}

// day returns midnight n days before today.
func day(n int) time.Time {
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -n)
}

func TestUpsertSale_ReplacesSameDay(t *testing.T) {
	s := testIngestStore(t)
	ctx := context.Background()

	obs := retail.Observation{Date: day(1), Quantity: 10, Price: 4.5}
	if err := s.UpsertSale(ctx, "widget", "east", obs); err != nil {
		t.Fatalf("UpsertSale: %v", err)
	}
	obs.Quantity = 25
	if err := s.UpsertSale(ctx, "widget", "east", obs); err != nil {
		t.Fatalf("UpsertSale again: %v", err)
	}

	series, err := s.SalesHistory(ctx, "widget", "east", 7)
	if err != nil {
		t.Fatalf("SalesHistory: %v", err)
	}
	if len(series) != 1 {
		t.Fatalf("got %d observations, want 1", len(series))
	}
	if series[0].Quantity != 25 {
		t.Errorf("Quantity = %v, want 25 (second write wins)", series[0].Quantity)
	}
}

func TestSalesHistory_AggregatesAcrossWarehouses(t *testing.T) {
	s := testIngestStore(t)
	ctx := context.Background()

	for _, w := range []struct {
		warehouse string
		qty       float64
		price     float64
	}{
		{"east", 10, 4.0},
		{"west", 30, 6.0},
	} {
		obs := retail.Observation{Date: day(2), Quantity: w.qty, Price: w.price}
		if err := s.UpsertSale(ctx, "widget", w.warehouse, obs); err != nil {
			t.Fatalf("UpsertSale(%s): %v", w.warehouse, err)
		}
	}

	// Empty warehouse sums quantities and averages prices per day.
	series, err := s.SalesHistory(ctx, "widget", "", 7)
	if err != nil {
		t.Fatalf("SalesHistory: %v", err)
	}
	if len(series) != 1 {
		t.Fatalf("got %d observations, want 1 aggregated day", len(series))
	}
	if series[0].Quantity != 40 {
		t.Errorf("aggregated Quantity = %v, want 40", series[0].Quantity)
	}
	if series[0].Price != 5.0 {
		t.Errorf("aggregated Price = %v, want 5.0", series[0].Price)
	}

	// A specific warehouse returns only its own rows.
	east, err := s.SalesHistory(ctx, "widget", "east", 7)
	if err != nil {
		t.Fatalf("SalesHistory(east): %v", err)
	}
	if len(east) != 1 || east[0].Quantity != 10 {
		t.Errorf("east history = %+v, want single observation with quantity 10", east)
	}
}

func TestSalesHistory_OrderedAndWindowed(t *testing.T) {
	s := testIngestStore(t)
	ctx := context.Background()

	for _, n := range []int{1, 5, 3, 20} {
		obs := retail.Observation{Date: day(n), Quantity: float64(n)}
		if err := s.UpsertSale(ctx, "widget", "east", obs); err != nil {
			t.Fatalf("UpsertSale: %v", err)
		}
	}

	series, err := s.SalesHistory(ctx, "widget", "east", 10)
	if err != nil {
		t.Fatalf("SalesHistory: %v", err)
	}
	if len(series) != 3 {
		t.Fatalf("got %d observations, want 3 within the 10 day window", len(series))
	}
	for i := 1; i < len(series); i++ {
		if !series[i].Date.After(series[i-1].Date) {
			t.Errorf("series not ascending at index %d: %v then %v", i, series[i-1].Date, series[i].Date)
		}
	}
}

func TestSalesHistory_RoundTripsPromotions(t *testing.T) {
	s := testIngestStore(t)
	ctx := context.Background()

	obs := retail.Observation{Date: day(1), Quantity: 10, Promotions: []string{"summer-sale"}}
	if err := s.UpsertSale(ctx, "widget", "east", obs); err != nil {
		t.Fatalf("UpsertSale: %v", err)
	}

	series, err := s.SalesHistory(ctx, "widget", "east", 7)
	if err != nil {
		t.Fatalf("SalesHistory: %v", err)
	}
	if len(series) != 1 || len(series[0].Promotions) != 1 || series[0].Promotions[0] != "summer-sale" {
		t.Errorf("promotions = %+v, want [summer-sale]", series)
	}
}

func TestProducts_Distinct(t *testing.T) {
	s := testIngestStore(t)
	ctx := context.Background()

	for _, p := range []string{"widget", "gadget", "widget"} {
		obs := retail.Observation{Date: day(1), Quantity: 1}
		if err := s.UpsertSale(ctx, p, p, obs); err != nil {
			t.Fatalf("UpsertSale(%s): %v", p, err)
		}
	}

	ids, err := s.Products(ctx)
	if err != nil {
		t.Fatalf("Products: %v", err)
	}
	want := []string{"gadget", "widget"}
	if len(ids) != len(want) {
		t.Fatalf("got %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("Products[%d] = %s, want %s", i, ids[i], want[i])
		}
	}
}

func TestPriceHistory_SkipsZeroPrices(t *testing.T) {
	s := testIngestStore(t)
	ctx := context.Background()

	for i, price := range []float64{9.99, 0, 10.49, 0, 10.99} {
		obs := retail.Observation{Date: day(10 - i), Quantity: 5, Price: price}
		if err := s.UpsertSale(ctx, "widget", "east", obs); err != nil {
			t.Fatalf("UpsertSale: %v", err)
		}
	}

	prices, err := s.PriceHistory(ctx, "widget", 30)
	if err != nil {
		t.Fatalf("PriceHistory: %v", err)
	}
	want := []float64{9.99, 10.49, 10.99}
	if len(prices) != len(want) {
		t.Fatalf("got %v, want %v", prices, want)
	}
	for i := range want {
		if prices[i] != want[i] {
			t.Errorf("prices[%d] = %v, want %v", i, prices[i], want[i])
		}
	}
}

func TestCurrentInventory_LatestPerWarehouse(t *testing.T) {
	s := testIngestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	snapshots := []retail.InventoryLevel{
		{ProductID: "widget", WarehouseID: "east", Quantity: 100, RecordedAt: now.Add(-2 * time.Hour)},
		{ProductID: "widget", WarehouseID: "east", Quantity: 80, RecordedAt: now.Add(-1 * time.Hour)},
		{ProductID: "widget", WarehouseID: "west", Quantity: 40, RecordedAt: now.Add(-3 * time.Hour)},
	}
	for _, l := range snapshots {
		if err := s.InsertInventory(ctx, l); err != nil {
			t.Fatalf("InsertInventory: %v", err)
		}
	}

	levels, err := s.CurrentInventory(ctx)
	if err != nil {
		t.Fatalf("CurrentInventory: %v", err)
	}
	if len(levels) != 2 {
		t.Fatalf("got %d levels, want 2 (one per warehouse)", len(levels))
	}
	if levels[0].WarehouseID != "east" || levels[0].Quantity != 80 {
		t.Errorf("east level = %+v, want latest quantity 80", levels[0])
	}
	if levels[1].WarehouseID != "west" || levels[1].Quantity != 40 {
		t.Errorf("west level = %+v, want quantity 40", levels[1])
	}
}

func TestInventoryHistory_AscendingWithinWindow(t *testing.T) {
	s := testIngestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for _, l := range []retail.InventoryLevel{
		{ProductID: "widget", WarehouseID: "east", Quantity: 100, RecordedAt: now.AddDate(0, 0, -40)},
		{ProductID: "widget", WarehouseID: "east", Quantity: 90, RecordedAt: now.AddDate(0, 0, -5)},
		{ProductID: "widget", WarehouseID: "east", Quantity: 70, RecordedAt: now.AddDate(0, 0, -1)},
		{ProductID: "widget", WarehouseID: "west", Quantity: 10, RecordedAt: now.AddDate(0, 0, -1)},
	} {
		if err := s.InsertInventory(ctx, l); err != nil {
			t.Fatalf("InsertInventory: %v", err)
		}
	}

	history, err := s.InventoryHistory(ctx, "widget", "east", 30)
	if err != nil {
		t.Fatalf("InventoryHistory: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("got %d snapshots, want 2 within 30 days for east", len(history))
	}
	if history[0].Quantity != 90 || history[1].Quantity != 70 {
		t.Errorf("history quantities = [%v, %v], want [90, 70]", history[0].Quantity, history[1].Quantity)
	}
}

func TestCustomerOrderStats(t *testing.T) {
	s := testIngestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	orders := []retail.OrderEvent{
		{OrderID: "o1", CustomerID: "cust-1", Total: 100, ItemCount: 2, PlacedAt: now.AddDate(0, 0, -10)},
		{OrderID: "o2", CustomerID: "cust-1", Total: 120, ItemCount: 4, PlacedAt: now.AddDate(0, 0, -5)},
		{OrderID: "o3", CustomerID: "cust-1", Total: 80, ItemCount: 3, PlacedAt: now.Add(-2 * time.Hour)},
		{OrderID: "o4", CustomerID: "cust-1", Total: 500, ItemCount: 9, PlacedAt: now.Add(-1 * time.Hour)},
		{OrderID: "other", CustomerID: "cust-2", Total: 999, ItemCount: 1, PlacedAt: now},
	}
	for _, o := range orders {
		if err := s.InsertOrder(ctx, o); err != nil {
			t.Fatalf("InsertOrder(%s): %v", o.OrderID, err)
		}
	}

	// Exclude the order under inspection so its own values don't skew the baseline.
	stats, err := s.CustomerOrderStats(ctx, "cust-1", "o4")
	if err != nil {
		t.Fatalf("CustomerOrderStats: %v", err)
	}
	if stats.OrderCount != 3 {
		t.Fatalf("OrderCount = %d, want 3", stats.OrderCount)
	}
	if stats.MeanTotal != 100 {
		t.Errorf("MeanTotal = %v, want 100", stats.MeanTotal)
	}
	if stats.MeanItemCount != 3 {
		t.Errorf("MeanItemCount = %v, want 3", stats.MeanItemCount)
	}
	if stats.StdDevTotal < 16.3 || stats.StdDevTotal > 16.4 {
		t.Errorf("StdDevTotal = %v, want ~16.33", stats.StdDevTotal)
	}
	if stats.OrdersLast24h != 1 {
		t.Errorf("OrdersLast24h = %d, want 1 (o3 only, o4 excluded)", stats.OrdersLast24h)
	}
}

func TestOrdersSince(t *testing.T) {
	s := testIngestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for _, o := range []retail.OrderEvent{
		{OrderID: "old", CustomerID: "cust-1", Total: 50, ItemCount: 1, PlacedAt: now.AddDate(0, 0, -10)},
		{OrderID: "mid", CustomerID: "cust-1", Total: 60, ItemCount: 2, Quantities: map[string]float64{"widget": 2}, PlacedAt: now.AddDate(0, 0, -3)},
		{OrderID: "new", CustomerID: "cust-2", Total: 70, ItemCount: 3, PlacedAt: now.Add(-time.Hour)},
	} {
		if err := s.InsertOrder(ctx, o); err != nil {
			t.Fatalf("InsertOrder(%s): %v", o.OrderID, err)
		}
	}

	orders, err := s.OrdersSince(ctx, now.AddDate(0, 0, -7))
	if err != nil {
		t.Fatalf("OrdersSince: %v", err)
	}
	if len(orders) != 2 {
		t.Fatalf("got %d orders, want 2 within 7 days", len(orders))
	}
	if orders[0].OrderID != "mid" || orders[1].OrderID != "new" {
		t.Errorf("order IDs = [%s, %s], want [mid, new] oldest first", orders[0].OrderID, orders[1].OrderID)
	}
	if orders[0].Quantities["widget"] != 2 {
		t.Errorf("Quantities = %v, want widget:2 round-tripped", orders[0].Quantities)
	}
}

func TestCustomerOrderStats_NoHistory(t *testing.T) {
	s := testIngestStore(t)

	stats, err := s.CustomerOrderStats(context.Background(), "nobody", "o1")
	if err != nil {
		t.Fatalf("CustomerOrderStats: %v", err)
	}
	if stats.OrderCount != 0 || stats.MeanTotal != 0 || stats.StdDevTotal != 0 {
		t.Errorf("empty stats = %+v, want zeros", stats)
	}
}

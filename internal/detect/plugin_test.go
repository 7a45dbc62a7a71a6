package detect

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Serrowxd/fluxor-sub001/internal/store"
	"github.com/Serrowxd/fluxor-sub001/pkg/plugin"
	"github.com/Serrowxd/fluxor-sub001/pkg/retail"
	"github.com/Serrowxd/fluxor-sub001/pkg/roles"
	"go.uber.org/zap"
)

// fakeProviders fills every data role from canned values.
type fakeProviders struct {
	series    map[string][]retail.Observation
	prices    map[string][]float64
	inventory []retail.InventoryLevel
	invHist   map[string][]retail.InventoryLevel
	stats     retail.CustomerOrderStats
	accuracy  float64
	mape      float64
}

func (f *fakeProviders) Info() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name: "fake-data",
		Roles: []string{
			roles.RoleHistory, roles.RoleInventory, roles.RoleOrders, roles.RoleForecasting,
		},
	}
}
func (f *fakeProviders) Init(context.Context, plugin.Dependencies) error { return nil }
func (f *fakeProviders) Start(context.Context) error                    { return nil }
func (f *fakeProviders) Stop(context.Context) error                     { return nil }

func (f *fakeProviders) SalesHistory(_ context.Context, productID, _ string, _ int) ([]retail.Observation, error) {
	return f.series[productID], nil
}
func (f *fakeProviders) Products(context.Context) ([]string, error) {
	ids := make([]string, 0, len(f.series))
	for id := range f.series {
		ids = append(ids, id)
	}
	return ids, nil
}
func (f *fakeProviders) PriceHistory(_ context.Context, productID string, _ int) ([]float64, error) {
	return f.prices[productID], nil
}
func (f *fakeProviders) CurrentInventory(context.Context) ([]retail.InventoryLevel, error) {
	return f.inventory, nil
}
func (f *fakeProviders) InventoryHistory(_ context.Context, productID, _ string, _ int) ([]retail.InventoryLevel, error) {
	return f.invHist[productID], nil
}
func (f *fakeProviders) CustomerOrderStats(context.Context, string, string) (retail.CustomerOrderStats, error) {
	return f.stats, nil
}
func (f *fakeProviders) OrdersSince(context.Context, time.Time) ([]retail.OrderEvent, error) {
	return nil, nil
}
func (f *fakeProviders) LatestForecast(context.Context, string) (*retail.Forecast, error) {
	return nil, nil
}
func (f *fakeProviders) AccuracySummary(context.Context, string) (float64, float64, error) {
	return f.accuracy, f.mape, nil
}

type roleResolver struct {
	provider plugin.Plugin
}

func (r *roleResolver) Resolve(string) (plugin.Plugin, bool) { return nil, false }
func (r *roleResolver) ResolveByRole(string) []plugin.Plugin {
	return []plugin.Plugin{r.provider}
}

// recordingBus captures published events for assertions.
type recordingBus struct {
	mu     sync.Mutex
	events []plugin.Event
}

func (b *recordingBus) Publish(_ context.Context, e plugin.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
	return nil
}
func (b *recordingBus) PublishAsync(ctx context.Context, e plugin.Event) { _ = b.Publish(ctx, e) }
func (b *recordingBus) Subscribe(string, plugin.EventHandler) func()     { return func() {} }
func (b *recordingBus) SubscribeAll(plugin.EventHandler) func()          { return func() {} }

func (b *recordingBus) byTopic(topic string) []plugin.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []plugin.Event
	for _, e := range b.events {
		if e.Topic == topic {
			out = append(out, e)
		}
	}
	return out
}

func testDetectModule(t *testing.T, providers *fakeProviders, bus plugin.EventBus) *Module {
	t.Helper()
	db, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	m := New()
	deps := plugin.Dependencies{
		Logger:  zap.NewNop(),
		Store:   db,
		Bus:     bus,
		Plugins: &roleResolver{provider: providers},
	}
	if err := m.Init(context.Background(), deps); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return m
}

func steadyInventory(productID string, qty float64, n int) []retail.InventoryLevel {
	out := make([]retail.InventoryLevel, n)
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	for i := range out {
		out[i] = retail.InventoryLevel{ProductID: productID, Quantity: qty, RecordedAt: base.AddDate(0, 0, i)}
	}
	return out
}

func TestRunSweep_StockCollapse(t *testing.T) {
	bus := &recordingBus{}
	providers := &fakeProviders{
		inventory: []retail.InventoryLevel{{ProductID: "prod-1", Quantity: 5}},
		invHist:   map[string][]retail.InventoryLevel{"prod-1": steadyInventory("prod-1", 50, 10)},
		accuracy:  85, mape: 15,
	}
	// Give the history a small spread so the z signal is defined.
	for i := range providers.invHist["prod-1"] {
		if i%2 == 0 {
			providers.invHist["prod-1"][i].Quantity = 40
		} else {
			providers.invHist["prod-1"][i].Quantity = 60
		}
	}

	m := testDetectModule(t, providers, bus)
	found, err := m.RunSweep(context.Background())
	if err != nil {
		t.Fatalf("RunSweep: %v", err)
	}

	var inv *retail.Anomaly
	for i := range found {
		if found[i].Domain == retail.DomainInventory {
			inv = &found[i]
		}
	}
	if inv == nil {
		t.Fatal("expected an inventory anomaly for the stock collapse")
	}
	if inv.Severity != retail.SeverityCritical {
		t.Errorf("severity = %v, want critical", inv.Severity)
	}
	if len(inv.SuggestedActions) == 0 {
		t.Error("anomaly has no suggested actions")
	}

	events := bus.byTopic(TopicAnomaliesDetected)
	if len(events) != 1 {
		t.Fatalf("detected events = %d, want 1", len(events))
	}
	payload := events[0].Payload.(retail.AnomaliesDetected)
	if payload.Count != len(found) {
		t.Errorf("event count = %d, want %d", payload.Count, len(found))
	}
	if payload.CriticalCount < 1 {
		t.Errorf("critical count = %d, want >= 1", payload.CriticalCount)
	}
}

func TestRunSweep_QuietDataFlagsNothing(t *testing.T) {
	series := make([]retail.Observation, 30)
	base := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	for i := range series {
		series[i] = retail.Observation{Date: base.AddDate(0, 0, i), Quantity: 10, Price: 5}
	}

	providers := &fakeProviders{
		series:    map[string][]retail.Observation{"prod-1": series},
		prices:    map[string][]float64{"prod-1": {5, 5, 5, 5, 5, 5}},
		inventory: []retail.InventoryLevel{{ProductID: "prod-1", Quantity: 50}},
		invHist:   map[string][]retail.InventoryLevel{"prod-1": steadyInventory("prod-1", 50, 10)},
		accuracy:  85, mape: 15,
	}

	bus := &recordingBus{}
	m := testDetectModule(t, providers, bus)
	found, err := m.RunSweep(context.Background())
	if err != nil {
		t.Fatalf("RunSweep: %v", err)
	}
	if len(found) != 0 {
		t.Errorf("anomalies = %+v, want none", found)
	}
	if events := bus.byTopic(TopicAnomaliesDetected); len(events) != 0 {
		t.Errorf("quiet sweep published %d events, want 0", len(events))
	}
}

func TestDetectPrice_SkipsThinHistory(t *testing.T) {
	providers := &fakeProviders{
		prices: map[string][]float64{
			"new-product": {5, 5, 100}, // 3 points, below the 5-point floor
		},
		series:   map[string][]retail.Observation{"new-product": nil},
		accuracy: 85, mape: 15,
	}
	m := testDetectModule(t, providers, nil)

	anomalies, err := m.detectPrice(context.Background(), providers, m.Config())
	if err != nil {
		t.Fatalf("detectPrice: %v", err)
	}
	if len(anomalies) != 0 {
		t.Errorf("anomalies = %+v, want none for thin price history", anomalies)
	}
}

func TestDetectDemand_ErrorEscalation(t *testing.T) {
	providers := &fakeProviders{
		series:   map[string][]retail.Observation{"prod-1": nil},
		accuracy: 45, mape: 55,
	}
	m := testDetectModule(t, providers, nil)

	anomalies, err := m.detectDemand(context.Background(), providers, providers, m.Config())
	if err != nil {
		t.Fatalf("detectDemand: %v", err)
	}
	if len(anomalies) != 1 {
		t.Fatalf("anomalies = %d, want 1", len(anomalies))
	}
	if anomalies[0].Severity != retail.SeverityHigh {
		t.Errorf("severity = %v, want high for 55%% error", anomalies[0].Severity)
	}

	providers.mape = 35
	anomalies, err = m.detectDemand(context.Background(), providers, providers, m.Config())
	if err != nil {
		t.Fatalf("detectDemand: %v", err)
	}
	if len(anomalies) != 1 || anomalies[0].Severity != retail.SeverityMedium {
		t.Errorf("35%% error should flag medium, got %+v", anomalies)
	}

	providers.mape = 15
	anomalies, err = m.detectDemand(context.Background(), providers, providers, m.Config())
	if err != nil {
		t.Fatalf("detectDemand: %v", err)
	}
	if len(anomalies) != 0 {
		t.Errorf("15%% error should not flag, got %+v", anomalies)
	}
}

func TestCheckOrder(t *testing.T) {
	providers := &fakeProviders{
		stats: retail.CustomerOrderStats{
			CustomerID:    "cust-1",
			OrderCount:    20,
			MeanTotal:     100,
			StdDevTotal:   10,
			MeanItemCount: 3,
			StdDevItems:   1,
			OrdersLast24h: 0,
		},
	}
	m := testDetectModule(t, providers, nil)
	ctx := context.Background()

	// Normal order: nothing flagged.
	if err := m.CheckOrder(ctx, retail.OrderEvent{
		OrderID: "ord-1", CustomerID: "cust-1", Total: 105, ItemCount: 3,
	}); err != nil {
		t.Fatalf("CheckOrder: %v", err)
	}
	recent, err := m.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 0 {
		t.Fatalf("anomalies after normal order = %d, want 0", len(recent))
	}

	// Ten-sigma order total.
	if err := m.CheckOrder(ctx, retail.OrderEvent{
		OrderID: "ord-2", CustomerID: "cust-1", Total: 200, ItemCount: 3,
	}); err != nil {
		t.Fatalf("CheckOrder: %v", err)
	}
	recent, err = m.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 1 {
		t.Fatalf("anomalies = %d, want 1", len(recent))
	}
	if recent[0].Domain != retail.DomainOrder || recent[0].Severity != retail.SeverityCritical {
		t.Errorf("anomaly = %v/%v, want order/critical", recent[0].Domain, recent[0].Severity)
	}
}

func TestCheckOrder_ThinHistorySkipsSizeChecks(t *testing.T) {
	providers := &fakeProviders{
		stats: retail.CustomerOrderStats{
			CustomerID: "cust-new", OrderCount: 2,
			MeanTotal: 10, StdDevTotal: 1,
		},
	}
	m := testDetectModule(t, providers, nil)
	ctx := context.Background()

	if err := m.CheckOrder(ctx, retail.OrderEvent{
		OrderID: "ord-1", CustomerID: "cust-new", Total: 9999, ItemCount: 100,
	}); err != nil {
		t.Fatalf("CheckOrder: %v", err)
	}
	recent, err := m.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 0 {
		t.Errorf("anomalies = %d, want 0 for a customer with 2 prior orders", len(recent))
	}
}

func TestCheckOrder_VelocityCeiling(t *testing.T) {
	providers := &fakeProviders{
		stats: retail.CustomerOrderStats{
			CustomerID: "cust-1", OrderCount: 2, OrdersLast24h: 10,
		},
	}
	m := testDetectModule(t, providers, nil)
	ctx := context.Background()

	if err := m.CheckOrder(ctx, retail.OrderEvent{
		OrderID: "ord-11", CustomerID: "cust-1", Total: 10, ItemCount: 1,
	}); err != nil {
		t.Fatalf("CheckOrder: %v", err)
	}
	recent, err := m.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 1 {
		t.Fatalf("anomalies = %d, want 1 velocity anomaly", len(recent))
	}
	if recent[0].Severity != retail.SeverityHigh {
		t.Errorf("severity = %v, want high at 11 orders against a limit of 10", recent[0].Severity)
	}
}

func TestResolve_Idempotent(t *testing.T) {
	bus := &recordingBus{}
	providers := &fakeProviders{
		stats: retail.CustomerOrderStats{
			CustomerID: "cust-1", OrderCount: 20,
			MeanTotal: 100, StdDevTotal: 10,
			MeanItemCount: 3, StdDevItems: 1,
		},
	}
	m := testDetectModule(t, providers, bus)
	ctx := context.Background()

	if err := m.CheckOrder(ctx, retail.OrderEvent{
		OrderID: "ord-1", CustomerID: "cust-1", Total: 500, ItemCount: 3,
	}); err != nil {
		t.Fatalf("CheckOrder: %v", err)
	}
	recent, err := m.Recent(ctx, 1)
	if err != nil || len(recent) != 1 {
		t.Fatalf("Recent: %v (%d anomalies)", err, len(recent))
	}
	id := recent[0].ID

	if err := m.Resolve(ctx, id, "verified with customer"); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if err := m.Resolve(ctx, id, "second attempt"); err != nil {
		t.Fatalf("Resolve (repeat): %v", err)
	}

	got, err := m.store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.Resolved {
		t.Error("anomaly not marked resolved")
	}
	if got.Resolution != "verified with customer" {
		t.Errorf("resolution = %q, want the first resolution preserved", got.Resolution)
	}
	if got.ResolvedAt == nil {
		t.Error("ResolvedAt not set")
	}

	events := bus.byTopic(TopicAnomalyResolved)
	if len(events) != 1 {
		t.Errorf("resolved events = %d, want exactly 1", len(events))
	}
}

func TestRecent_SortsBySeverityThenRecency(t *testing.T) {
	m := testDetectModule(t, &fakeProviders{}, nil)
	ctx := context.Background()

	base := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	rows := []struct {
		id       string
		severity retail.Severity
		at       time.Time
	}{
		{"a-low", retail.SeverityLow, base.Add(3 * time.Hour)},
		{"a-crit-old", retail.SeverityCritical, base},
		{"a-crit-new", retail.SeverityCritical, base.Add(2 * time.Hour)},
		{"a-med", retail.SeverityMedium, base.Add(4 * time.Hour)},
	}
	for _, r := range rows {
		err := m.store.InsertAnomaly(ctx, retail.Anomaly{
			ID: r.id, Domain: retail.DomainSales, Severity: r.severity,
			DetectedAt: r.at,
			Metrics:    []retail.AnomalyMetric{},
		})
		if err != nil {
			t.Fatalf("InsertAnomaly: %v", err)
		}
	}

	got, err := m.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	want := []string{"a-crit-new", "a-crit-old", "a-med", "a-low"}
	if len(got) != len(want) {
		t.Fatalf("anomalies = %d, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("recent[%d] = %s, want %s", i, got[i].ID, id)
		}
	}
}

func TestUpdateConfig_RejectsPartialInvalid(t *testing.T) {
	m := testDetectModule(t, &fakeProviders{}, nil)

	bad := ConfigUpdate{Thresholds: map[retail.Domain]retail.Threshold{
		retail.DomainSales: {ZScore: -1, PercentDeviation: 30},
	}}
	if err := m.UpdateConfig(bad); err == nil {
		t.Fatal("expected validation error")
	}
	// Live config untouched after the rejected update.
	if th := m.Config().Thresholds[retail.DomainSales]; th.ZScore != 2.0 {
		t.Errorf("sales z threshold = %v, want 2.0", th.ZScore)
	}

	sens := SensitivityLow
	if err := m.UpdateConfig(ConfigUpdate{Sensitivity: &sens}); err != nil {
		t.Fatalf("UpdateConfig: %v", err)
	}
	if m.Config().Sensitivity != SensitivityLow {
		t.Errorf("sensitivity = %q, want low", m.Config().Sensitivity)
	}
}

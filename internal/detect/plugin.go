// Package detect flags abnormal retail activity: stock levels, sales
// velocity, forecast drift, price shifts, and suspicious customer orders.
// Detected anomalies are persisted with suggested actions and resolved
// explicitly; they are never deleted.
package detect

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/Serrowxd/fluxor-sub001/internal/ingest"
	"github.com/Serrowxd/fluxor-sub001/pkg/plugin"
	"github.com/Serrowxd/fluxor-sub001/pkg/retail"
	"github.com/Serrowxd/fluxor-sub001/pkg/roles"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Compile-time interface guards.
var (
	_ plugin.Plugin          = (*Module)(nil)
	_ plugin.HealthChecker   = (*Module)(nil)
	_ plugin.EventSubscriber = (*Module)(nil)
	_ roles.AnomalyProvider  = (*Module)(nil)
)

// defaultRecentLimit bounds Recent when the caller passes no limit.
const defaultRecentLimit = 50

// Module implements the Detect anomaly-detection plugin.
type Module struct {
	logger  *zap.Logger
	store   *DetectStore
	bus     plugin.EventBus
	plugins plugin.PluginResolver

	cfgMu sync.RWMutex
	cfg   DetectionConfig

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Detect plugin instance.
func New() *Module {
	return &Module{}
}

func (m *Module) Info() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name:         "detect",
		Version:      "0.1.0",
		Description:  "Anomaly detection across inventory, sales, demand, price, and orders",
		Roles:        []string{roles.RoleDetection},
		Dependencies: []string{"ingest", "forecast"},
		APIVersion:   plugin.APIVersionCurrent,
	}
}

func (m *Module) Init(ctx context.Context, deps plugin.Dependencies) error {
	m.logger = deps.Logger

	m.cfg = DefaultConfig()
	if deps.Config != nil {
		if err := deps.Config.Unmarshal(&m.cfg); err != nil {
			return fmt.Errorf("unmarshal detect config: %w", err)
		}
	}
	if err := m.cfg.Validate(); err != nil {
		return fmt.Errorf("detect config: %w", err)
	}

	if deps.Store == nil {
		return fmt.Errorf("detect requires a store")
	}
	if err := deps.Store.Migrate(ctx, "detect", migrations()); err != nil {
		return fmt.Errorf("detect migrations: %w", err)
	}
	m.store = NewDetectStore(deps.Store.DB())

	m.bus = deps.Bus
	m.plugins = deps.Plugins

	m.logger.Info("detect module initialized",
		zap.String("sensitivity", m.cfg.Sensitivity),
		zap.Int("lookback_days", m.cfg.LookbackDays),
		zap.Duration("sweep_interval", m.cfg.SweepInterval),
	)
	return nil
}

func (m *Module) Start(_ context.Context) error {
	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.startScheduler()
	m.logger.Info("detect module started")
	return nil
}

func (m *Module) Stop(_ context.Context) error {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
	m.logger.Info("detect module stopped")
	return nil
}

// Health implements plugin.HealthChecker.
func (m *Module) Health(ctx context.Context) plugin.HealthStatus {
	anomalies, err := m.store.Recent(ctx, defaultRecentLimit)
	if err != nil {
		return plugin.HealthStatus{Status: "unhealthy", Message: err.Error()}
	}
	open := 0
	for _, a := range anomalies {
		if !a.Resolved {
			open++
		}
	}
	return plugin.HealthStatus{
		Status:  "healthy",
		Details: map[string]string{"open_anomalies": strconv.Itoa(open)},
	}
}

// Subscriptions implements plugin.EventSubscriber.
func (m *Module) Subscriptions() []plugin.Subscription {
	return []plugin.Subscription{
		{Topic: ingest.TopicOrderReceived, Handler: m.handleOrder},
	}
}

// RunSweep runs all domain detectors and returns the anomalies found. A
// failing domain is logged and skipped so one bad data source cannot blank
// the whole sweep. Found anomalies are persisted before being returned.
func (m *Module) RunSweep(ctx context.Context) ([]retail.Anomaly, error) {
	cfg := m.config()
	started := time.Now()

	var found []retail.Anomaly
	for _, domain := range retail.DetectionDomains {
		anomalies, err := m.runDomain(ctx, domain, cfg)
		if err != nil {
			m.logger.Warn("domain detection failed",
				zap.String("domain", string(domain)), zap.Error(err))
			continue
		}
		found = append(found, anomalies...)
	}
	sweepDuration.Observe(time.Since(started).Seconds())

	critical := 0
	for _, a := range found {
		if err := m.store.InsertAnomaly(ctx, a); err != nil {
			m.logger.Error("persist anomaly",
				zap.String("anomaly_id", a.ID), zap.Error(err))
			continue
		}
		anomaliesTotal.WithLabelValues(string(a.Domain), string(a.Severity)).Inc()
		if a.Severity == retail.SeverityCritical {
			critical++
		}
	}

	if len(found) > 0 && m.bus != nil {
		m.bus.PublishAsync(ctx, plugin.Event{
			Topic:     TopicAnomaliesDetected,
			Source:    "detect",
			Timestamp: time.Now(),
			Payload: retail.AnomaliesDetected{
				Count:         len(found),
				CriticalCount: critical,
				Timestamp:     time.Now(),
			},
		})
	}

	m.logger.Info("detection sweep complete",
		zap.Int("anomalies", len(found)),
		zap.Int("critical", critical),
		zap.Duration("elapsed", time.Since(started)),
	)
	return found, nil
}

func (m *Module) runDomain(ctx context.Context, domain retail.Domain, cfg DetectionConfig) ([]retail.Anomaly, error) {
	switch domain {
	case retail.DomainInventory:
		inv, err := m.inventory()
		if err != nil {
			return nil, err
		}
		return m.detectInventory(ctx, inv, cfg)
	case retail.DomainSales:
		history, err := m.history()
		if err != nil {
			return nil, err
		}
		return m.detectSales(ctx, history, cfg)
	case retail.DomainDemand:
		history, err := m.history()
		if err != nil {
			return nil, err
		}
		forecasts, err := m.forecasts()
		if err != nil {
			return nil, err
		}
		return m.detectDemand(ctx, history, forecasts, cfg)
	case retail.DomainPrice:
		history, err := m.history()
		if err != nil {
			return nil, err
		}
		return m.detectPrice(ctx, history, cfg)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownDomain, domain)
}

// CheckOrder screens one order and persists any anomalies it raises.
func (m *Module) CheckOrder(ctx context.Context, event retail.OrderEvent) error {
	orders, err := m.orders()
	if err != nil {
		return err
	}
	anomalies, err := m.checkOrder(ctx, orders, event, m.config())
	if err != nil {
		return err
	}
	for _, a := range anomalies {
		if err := m.store.InsertAnomaly(ctx, a); err != nil {
			return err
		}
		anomaliesTotal.WithLabelValues(string(a.Domain), string(a.Severity)).Inc()
		m.logger.Info("order anomaly detected",
			zap.String("order_id", event.OrderID),
			zap.String("severity", string(a.Severity)),
			zap.String("description", a.Description),
		)
	}
	return nil
}

// handleOrder screens orders arriving over the event bus.
func (m *Module) handleOrder(ctx context.Context, event plugin.Event) {
	order, ok := event.Payload.(retail.OrderEvent)
	if !ok {
		return
	}
	if err := m.CheckOrder(ctx, order); err != nil {
		m.logger.Warn("order check failed",
			zap.String("order_id", order.OrderID), zap.Error(err))
	}
}

// Recent implements roles.AnomalyProvider.
func (m *Module) Recent(ctx context.Context, limit int) ([]retail.Anomaly, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	return m.store.Recent(ctx, limit)
}

// Resolve implements roles.AnomalyProvider. Resolving an already-resolved
// anomaly is a no-op; the resolved event fires only on the first transition.
func (m *Module) Resolve(ctx context.Context, anomalyID, resolution string) error {
	now := time.Now()
	changed, err := m.store.Resolve(ctx, anomalyID, resolution, now)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	if m.bus != nil {
		m.bus.PublishAsync(ctx, plugin.Event{
			Topic:     TopicAnomalyResolved,
			Source:    "detect",
			Timestamp: now,
			Payload: retail.AnomalyResolved{
				AnomalyID:  anomalyID,
				Resolution: resolution,
				Timestamp:  now,
			},
		})
	}
	m.logger.Info("anomaly resolved",
		zap.String("anomaly_id", anomalyID),
		zap.String("resolution", resolution),
	)
	return nil
}

// UpdateConfig merges a partial configuration change into the live config.
// Invalid updates are rejected whole; the live config never holds a partial
// merge.
func (m *Module) UpdateConfig(update ConfigUpdate) error {
	m.cfgMu.Lock()
	defer m.cfgMu.Unlock()

	merged, err := m.cfg.Merge(update)
	if err != nil {
		return err
	}
	m.cfg = merged
	m.logger.Info("detection config updated",
		zap.String("sensitivity", merged.Sensitivity),
		zap.Int("lookback_days", merged.LookbackDays),
	)
	return nil
}

// Config returns a snapshot of the live detection config.
func (m *Module) Config() DetectionConfig {
	return m.config()
}

func (m *Module) config() DetectionConfig {
	m.cfgMu.RLock()
	defer m.cfgMu.RUnlock()
	return m.cfg
}

// newAnomaly assembles a persisted anomaly record from a detector hit.
func (m *Module) newAnomaly(domain retail.Domain, ev evaluation, entity retail.Entity, description string, metrics []retail.AnomalyMetric, at time.Time) retail.Anomaly {
	return retail.Anomaly{
		ID:               uuid.NewString(),
		Domain:           domain,
		Severity:         ev.Severity,
		Description:      description,
		DetectedAt:       at,
		Entity:           entity,
		Metrics:          metrics,
		SuggestedActions: Actions(domain, ev.PercentDeviation, ev.Severity),
	}
}

// metric builds an expected-vs-actual metric entry.
func metric(name string, expected, actual float64) retail.AnomalyMetric {
	am := retail.AnomalyMetric{
		Name:      name,
		Expected:  expected,
		Actual:    actual,
		Deviation: actual - expected,
	}
	if expected != 0 {
		am.DeviationPercent = am.Deviation / expected * 100
	}
	return am
}

// -- provider resolution --

func (m *Module) history() (roles.HistoryProvider, error) {
	if p, ok := resolveRole[roles.HistoryProvider](m.plugins, roles.RoleHistory); ok {
		return p, nil
	}
	return nil, fmt.Errorf("no history provider available")
}

func (m *Module) inventory() (roles.InventoryProvider, error) {
	if p, ok := resolveRole[roles.InventoryProvider](m.plugins, roles.RoleInventory); ok {
		return p, nil
	}
	return nil, fmt.Errorf("no inventory provider available")
}

func (m *Module) orders() (roles.OrderProvider, error) {
	if p, ok := resolveRole[roles.OrderProvider](m.plugins, roles.RoleOrders); ok {
		return p, nil
	}
	return nil, fmt.Errorf("no order provider available")
}

func (m *Module) forecasts() (roles.ForecastProvider, error) {
	if p, ok := resolveRole[roles.ForecastProvider](m.plugins, roles.RoleForecasting); ok {
		return p, nil
	}
	return nil, fmt.Errorf("no forecast provider available")
}

// resolveRole finds the first plugin filling a role that implements T.
func resolveRole[T any](resolver plugin.PluginResolver, role string) (T, bool) {
	var zero T
	if resolver == nil {
		return zero, false
	}
	for _, p := range resolver.ResolveByRole(role) {
		if t, ok := p.(T); ok {
			return t, true
		}
	}
	return zero, false
}

// startScheduler runs detection sweeps on the configured cadence.
func (m *Module) startScheduler() {
	interval := m.config().SweepInterval
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-m.ctx.Done():
				return
			case <-ticker.C:
				if _, err := m.RunSweep(m.ctx); err != nil {
					m.logger.Error("scheduled sweep failed", zap.Error(err))
				}
			}
		}
	}()
}

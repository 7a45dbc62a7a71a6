// Package forecast generates daily demand forecasts: an ensemble of three
// statistical models over ingested sales history, adjusted by external
// factors, wrapped in confidence intervals, and scored against realized
// demand.
package forecast

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/Serrowxd/fluxor-sub001/internal/cache"
	"github.com/Serrowxd/fluxor-sub001/internal/forecast/model"
	"github.com/Serrowxd/fluxor-sub001/internal/forecast/pattern"
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
	_ roles.ForecastProvider = (*Module)(nil)
)

// Request asks for a demand forecast for one product.
type Request struct {
	ProductID   string
	WarehouseID string // Empty aggregates across warehouses
	HorizonDays int    // 0 uses the configured default
	Factors     retail.ExternalFactors
}

// Module implements the Forecast plugin.
type Module struct {
	logger   *zap.Logger
	cfg      ForecastConfig
	store    *ForecastStore
	bus      plugin.EventBus
	plugins  plugin.PluginResolver
	cache    *cache.Cache
	ensemble *model.Ensemble
	adjuster *Adjuster
	tracker  *AccuracyTracker

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Forecast plugin instance.
func New() *Module {
	return &Module{}
}

func (m *Module) Info() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name:         "forecast",
		Version:      "0.1.0",
		Description:  "Ensemble demand forecasting with accuracy tracking",
		Roles:        []string{roles.RoleForecasting},
		Dependencies: []string{"ingest"},
		APIVersion:   plugin.APIVersionCurrent,
	}
}

func (m *Module) Init(ctx context.Context, deps plugin.Dependencies) error {
	m.logger = deps.Logger

	m.cfg = DefaultConfig()
	if deps.Config != nil {
		if err := deps.Config.Unmarshal(&m.cfg); err != nil {
			return fmt.Errorf("unmarshal forecast config: %w", err)
		}
	}
	if err := m.cfg.Validate(); err != nil {
		return fmt.Errorf("forecast config: %w", err)
	}

	if deps.Store == nil {
		return fmt.Errorf("forecast requires a store")
	}
	if err := deps.Store.Migrate(ctx, "forecast", migrations()); err != nil {
		return fmt.Errorf("forecast migrations: %w", err)
	}
	m.store = NewForecastStore(deps.Store.DB())

	ens, err := model.NewDefaultEnsemble(m.cfg.HWAlpha, m.cfg.HWBeta, m.cfg.HWGamma, m.cfg.Weights)
	if err != nil {
		return fmt.Errorf("forecast ensemble: %w", err)
	}
	m.ensemble = ens

	m.bus = deps.Bus
	m.plugins = deps.Plugins
	m.cache = cache.New(cache.DefaultMaxEntries, time.Hour)
	m.adjuster = NewAdjuster(m.cfg)
	m.tracker = NewAccuracyTracker(m.store, m.cache, m.cfg)

	m.logger.Info("forecast module initialized",
		zap.Int("min_history_days", m.cfg.MinHistoryDays),
		zap.Int("default_horizon", m.cfg.DefaultHorizon),
		zap.Duration("cache_ttl", m.cfg.CacheTTL),
		zap.Float64s("weights", m.cfg.Weights),
	)
	return nil
}

func (m *Module) Start(_ context.Context) error {
	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.startMaintenance()
	m.logger.Info("forecast module started")
	return nil
}

func (m *Module) Stop(_ context.Context) error {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
	if m.cache != nil {
		m.cache.Close()
	}
	m.logger.Info("forecast module stopped")
	return nil
}

// Health implements plugin.HealthChecker.
func (m *Module) Health(_ context.Context) plugin.HealthStatus {
	return plugin.HealthStatus{
		Status: "healthy",
		Details: map[string]string{
			"cached_forecasts": strconv.Itoa(m.cache.Len()),
		},
	}
}

// Subscriptions implements plugin.EventSubscriber.
func (m *Module) Subscriptions() []plugin.Subscription {
	return []plugin.Subscription{
		{Topic: ingest.TopicSalesActual, Handler: m.handleSalesActual},
	}
}

// Generate produces a demand forecast for the requested product. Repeat
// requests for the same product, warehouse, and horizon are served from cache
// until the forecast expires; requests carrying external factors always
// recompute.
func (m *Module) Generate(ctx context.Context, req Request) (*retail.Forecast, error) {
	if req.ProductID == "" {
		return nil, fmt.Errorf("product id is required")
	}
	horizon := req.HorizonDays
	if horizon <= 0 {
		horizon = m.cfg.DefaultHorizon
	}

	hasFactors := len(req.Factors.Promotions) > 0 ||
		req.Factors.PriceChangePercent != nil ||
		req.Factors.CompetitorImpact != nil

	key := cacheKey(req.ProductID, req.WarehouseID, horizon)
	if !hasFactors {
		if v, ok := m.cache.Get(key); ok {
			forecastsTotal.WithLabelValues("cached").Inc()
			return v.(*retail.Forecast), nil
		}
	}

	started := time.Now()
	f, err := m.generate(ctx, req, horizon)
	if err != nil {
		forecastsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	forecastDuration.Observe(time.Since(started).Seconds())
	forecastsTotal.WithLabelValues("generated").Inc()

	if !hasFactors {
		m.cache.Set(key, f, m.cfg.CacheTTL)
	}

	if m.bus != nil {
		m.bus.PublishAsync(ctx, plugin.Event{
			Topic:     TopicForecastGenerated,
			Source:    "forecast",
			Timestamp: time.Now(),
			Payload: retail.ForecastGenerated{
				ForecastID: f.ID,
				ProductID:  f.ProductID,
				Horizon:    horizon,
			},
		})
	}
	return f, nil
}

func (m *Module) generate(ctx context.Context, req Request, horizon int) (*retail.Forecast, error) {
	history, err := m.history()
	if err != nil {
		return nil, err
	}
	series, err := history.SalesHistory(ctx, req.ProductID, req.WarehouseID, m.cfg.LookbackDays)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	if len(series) < m.cfg.MinHistoryDays {
		return nil, fmt.Errorf("%w: have %d observations, need %d",
			ErrInsufficientHistory, len(series), m.cfg.MinHistoryDays)
	}

	pat := pattern.Detect(series)

	base, err := m.ensemble.Forecast(series, horizon)
	if err != nil {
		return nil, fmt.Errorf("product %s: %w", req.ProductID, err)
	}

	quantities, factors := m.adjuster.Apply(base, req.Factors)
	factors = append(describePattern(pat), factors...)

	accuracy, mape, err := m.tracker.Summary(ctx, req.ProductID)
	if err != nil {
		return nil, fmt.Errorf("accuracy summary: %w", err)
	}

	lastDate := series[len(series)-1].Date
	preds, confidence := Intervals(quantities, lastDate, mape)

	now := time.Now()
	f := &retail.Forecast{
		ID:            uuid.NewString(),
		ProductID:     req.ProductID,
		WarehouseID:   req.WarehouseID,
		Predictions:   preds,
		Confidence:    confidence,
		ModelAccuracy: accuracy,
		GeneratedAt:   now,
		ValidUntil:    now.Add(m.cfg.CacheTTL),
		Factors:       factors,
	}
	if err := m.store.SaveForecast(ctx, f); err != nil {
		return nil, err
	}

	m.logger.Debug("forecast generated",
		zap.String("product_id", req.ProductID),
		zap.Int("horizon", horizon),
		zap.Float64("confidence", confidence),
		zap.Float64("model_accuracy", accuracy),
	)
	return f, nil
}

// describePattern reports the detected trend and, when material, the weekly
// seasonality as forecast factors.
func describePattern(pat retail.Pattern) []retail.Factor {
	factors := []retail.Factor{
		{Name: "trend", Impact: pat.Trend.Slope, Type: retail.FactorTrend},
	}
	if pat.Seasonality.Strength > pattern.SeasonalStrengthThreshold {
		factors = append(factors, retail.Factor{
			Name:   "weekly_seasonality",
			Impact: pat.Seasonality.Strength,
			Type:   retail.FactorSeasonal,
		})
	}
	return factors
}

// UpdateAccuracy records a forecast-vs-actual pair supplied by a caller that
// already knows both values, bypassing the stored-forecast lookup.
func (m *Module) UpdateAccuracy(ctx context.Context, productID string, date time.Time, forecasted, actual float64) error {
	if productID == "" {
		return fmt.Errorf("product id is required")
	}
	return m.tracker.Record(ctx, productID, date, forecasted, actual)
}

// handleSalesActual feeds realized quantities into the accuracy tracker.
func (m *Module) handleSalesActual(ctx context.Context, event plugin.Event) {
	actual, ok := event.Payload.(retail.SalesActual)
	if !ok {
		return
	}
	recorded, err := m.tracker.RecordActual(ctx, actual.ProductID, actual.Date, actual.Quantity)
	if err != nil {
		m.logger.Warn("record forecast actual",
			zap.String("product_id", actual.ProductID), zap.Error(err))
		return
	}
	if recorded {
		m.logger.Debug("forecast accuracy updated",
			zap.String("product_id", actual.ProductID),
			zap.Time("date", actual.Date),
		)
	}
}

// -- roles.ForecastProvider --

// LatestForecast implements roles.ForecastProvider.
func (m *Module) LatestForecast(ctx context.Context, productID string) (*retail.Forecast, error) {
	return m.store.LatestForecast(ctx, productID)
}

// AccuracySummary implements roles.ForecastProvider.
func (m *Module) AccuracySummary(ctx context.Context, productID string) (accuracy, mape float64, err error) {
	return m.tracker.Summary(ctx, productID)
}

// history resolves the sales history provider from the plugin registry.
func (m *Module) history() (roles.HistoryProvider, error) {
	if m.plugins == nil {
		return nil, fmt.Errorf("no plugin resolver configured")
	}
	for _, p := range m.plugins.ResolveByRole(roles.RoleHistory) {
		if h, ok := p.(roles.HistoryProvider); ok {
			return h, nil
		}
	}
	return nil, fmt.Errorf("no history provider available")
}

// startMaintenance prunes expired forecasts on an hourly cadence.
func (m *Module) startMaintenance() {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-m.ctx.Done():
				return
			case <-ticker.C:
				n, err := m.store.PruneForecasts(m.ctx, time.Now().Add(-m.cfg.AccuracyWindow))
				if err != nil {
					m.logger.Warn("prune forecasts", zap.Error(err))
					continue
				}
				if n > 0 {
					m.logger.Debug("pruned expired forecasts", zap.Int64("count", n))
				}
			}
		}
	}()
}

func cacheKey(productID, warehouseID string, horizon int) string {
	return "forecast:" + productID + ":" + warehouseID + ":" + strconv.Itoa(horizon)
}

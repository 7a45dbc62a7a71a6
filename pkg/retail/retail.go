// Package retail provides public SDK types for the Fluxor demand-forecasting
// and anomaly-detection system. This package is part of the public plugin SDK.
package retail

import "time"

// Domain identifies the business area an anomaly check applies to.
type Domain string

// Anomaly domains.
const (
	DomainInventory Domain = "inventory"
	DomainSales     Domain = "sales"
	DomainDemand    Domain = "demand"
	DomainPrice     Domain = "price"
	DomainOrder     Domain = "order"
)

// DetectionDomains lists the domains covered by a full detection sweep.
var DetectionDomains = []Domain{DomainInventory, DomainSales, DomainDemand, DomainPrice}

// Severity classifies how far a deviation exceeds configured thresholds.
type Severity string

// Severity tiers, ordered from least to most urgent.
const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank returns a sortable weight for the severity (critical highest).
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

// Observation is a single day of history for a product, as supplied by the
// data store. Immutable once fetched; ordered ascending by date, one per day.
type Observation struct {
	Date          time.Time `json:"date"`
	Quantity      float64   `json:"quantity"` // Units sold/consumed, >= 0
	Price         float64   `json:"price,omitempty"`
	Promotions    []string  `json:"promotions,omitempty"`
	SeasonalIndex float64   `json:"seasonal_index,omitempty"` // Derived, read-only
}

// Trend is a fitted linear trend over a series.
type Trend struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
}

// Seasonality describes the weekly cycle of a series.
// DayAverages is indexed by time.Weekday (Sunday = 0).
type Seasonality struct {
	DayAverages [7]float64 `json:"day_averages"`
	Strength    float64    `json:"strength"` // stddev(day averages) / overall mean
}

// Pattern aggregates the statistical patterns detected in a series.
// Derived per forecast request; not persisted.
type Pattern struct {
	Trend       Trend       `json:"trend"`
	Seasonality Seasonality `json:"seasonality"`
	Volatility  float64     `json:"volatility"` // Coefficient of variation
	Cyclical    struct{}    `json:"-"`          // Reserved for multi-period analysis
}

// Prediction is a single forecasted day with its confidence interval.
// Invariant: 0 <= Lower <= Quantity <= Upper.
type Prediction struct {
	Date     time.Time `json:"date"`
	Quantity int       `json:"quantity"`
	Lower    int       `json:"lower"`
	Upper    int       `json:"upper"`
}

// FactorType categorizes a forecast factor.
type FactorType string

// Forecast factor types.
const (
	FactorTrend       FactorType = "trend"
	FactorSeasonal    FactorType = "seasonal"
	FactorPromotional FactorType = "promotional"
	FactorExternal    FactorType = "external"
)

// Factor names an influence that shaped a forecast and its magnitude.
type Factor struct {
	Name   string     `json:"name"`
	Impact float64    `json:"impact"`
	Type   FactorType `json:"type"`
}

// Forecast is a generated demand forecast for one product, optionally scoped
// to a warehouse. Superseded (not mutated) by the next request for the same key.
type Forecast struct {
	ID            string       `json:"id"`
	ProductID     string       `json:"product_id"`
	WarehouseID   string       `json:"warehouse_id,omitempty"`
	Predictions   []Prediction `json:"predictions"`
	Confidence    float64      `json:"confidence"`     // 0-100, aggregate
	ModelAccuracy float64      `json:"model_accuracy"` // 0-100, trailing
	GeneratedAt   time.Time    `json:"generated_at"`
	ValidUntil    time.Time    `json:"valid_until"` // GeneratedAt + cache TTL
	Factors       []Factor     `json:"factors,omitempty"`
}

// Promotion marks a promotional window within a forecast horizon.
// Days are 0-indexed offsets into the horizon, inclusive.
type Promotion struct {
	StartDay int     `json:"start_day"`
	EndDay   int     `json:"end_day"`
	Lift     float64 `json:"lift,omitempty"` // Demand multiplier; 0 means use default
}

// ExternalFactors carries optional demand adjustments for a forecast request.
// Absent fields are identity operations.
type ExternalFactors struct {
	Promotions         []Promotion `json:"promotions,omitempty"`
	PriceChangePercent *float64    `json:"price_change_percent,omitempty"`
	CompetitorImpact   *float64    `json:"competitor_impact,omitempty"` // Multiplier, e.g. 0.9
}

// Threshold is the per-domain detection threshold pair. Both values are
// strictly positive; PercentDeviation is expressed in percent (e.g. 30 = 30%).
type Threshold struct {
	ZScore           float64 `json:"z_score" mapstructure:"z_score"`
	PercentDeviation float64 `json:"percent_deviation" mapstructure:"percent_deviation"`
}

// AnomalyMetric is one expected-vs-actual comparison attached to an anomaly.
type AnomalyMetric struct {
	Name             string  `json:"name"`
	Expected         float64 `json:"expected"`
	Actual           float64 `json:"actual"`
	Deviation        float64 `json:"deviation"`         // actual - expected
	DeviationPercent float64 `json:"deviation_percent"` // relative to expected
}

// Entity identifies what an anomaly affects.
type Entity struct {
	Type string `json:"type"` // "product", "warehouse", "customer", "order"
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// Anomaly is a flagged abnormal observation. Severity is fixed at detection
// time; the record is never deleted, only marked resolved.
type Anomaly struct {
	ID               string          `json:"id"`
	Domain           Domain          `json:"domain"`
	Severity         Severity        `json:"severity"`
	Description      string          `json:"description"`
	DetectedAt       time.Time       `json:"detected_at"`
	Entity           Entity          `json:"entity"`
	Metrics          []AnomalyMetric `json:"metrics"`
	SuggestedActions []string        `json:"suggested_actions"`
	Resolved         bool            `json:"resolved"`
	Resolution       string          `json:"resolution,omitempty"`
	ResolvedAt       *time.Time      `json:"resolved_at,omitempty"`
}

// OrderEvent is a customer order as seen by the order anomaly checks.
type OrderEvent struct {
	OrderID    string             `json:"order_id"`
	CustomerID string             `json:"customer_id"`
	Total      float64            `json:"total"`
	ItemCount  int                `json:"item_count"`
	Quantities map[string]float64 `json:"quantities,omitempty"` // Units per product ID
	PlacedAt   time.Time          `json:"placed_at"`
}

// CustomerOrderStats summarizes a customer's prior order history for the
// order anomaly checks.
type CustomerOrderStats struct {
	CustomerID    string  `json:"customer_id"`
	OrderCount    int     `json:"order_count"`
	MeanTotal     float64 `json:"mean_total"`
	StdDevTotal   float64 `json:"std_dev_total"`
	MeanItemCount float64 `json:"mean_item_count"`
	StdDevItems   float64 `json:"std_dev_items"`
	OrdersLast24h int     `json:"orders_last_24h"`
}

// InventoryLevel is a point-in-time stock snapshot for a product+warehouse.
type InventoryLevel struct {
	ProductID   string    `json:"product_id"`
	WarehouseID string    `json:"warehouse_id,omitempty"`
	Quantity    float64   `json:"quantity"`
	RecordedAt  time.Time `json:"recorded_at"`
}

// ForecastGenerated is the payload for the forecast.generated topic.
type ForecastGenerated struct {
	ForecastID string `json:"forecast_id"`
	ProductID  string `json:"product_id"`
	Horizon    int    `json:"horizon"`
}

// AnomaliesDetected is the payload for the detect.anomalies.detected topic.
type AnomaliesDetected struct {
	Count         int       `json:"count"`
	CriticalCount int       `json:"critical_count"`
	Timestamp     time.Time `json:"timestamp"`
}

// AnomalyResolved is the payload for the detect.anomaly.resolved topic.
type AnomalyResolved struct {
	AnomalyID  string    `json:"anomaly_id"`
	Resolution string    `json:"resolution"`
	Timestamp  time.Time `json:"timestamp"`
}

// SalesActual is the payload for the ingest.sales.actual topic. It reports a
// realized daily quantity so forecast accuracy can be tracked.
type SalesActual struct {
	ProductID string    `json:"product_id"`
	Date      time.Time `json:"date"`
	Quantity  float64   `json:"quantity"`
}

package forecast

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Serrowxd/fluxor-sub001/pkg/retail"
)

// dateLayout is the storage format for accuracy record dates.
const dateLayout = "2006-01-02"

// ForecastStore provides database access for the Forecast module.
type ForecastStore struct {
	db *sql.DB
}

// NewForecastStore creates a new ForecastStore backed by the given database.
func NewForecastStore(db *sql.DB) *ForecastStore {
	return &ForecastStore{db: db}
}

// SaveForecast persists a generated forecast. Forecasts are append-only;
// the latest row for a product supersedes older ones.
func (s *ForecastStore) SaveForecast(ctx context.Context, f *retail.Forecast) error {
	preds, err := json.Marshal(f.Predictions)
	if err != nil {
		return fmt.Errorf("marshal predictions: %w", err)
	}
	factors, err := json.Marshal(f.Factors)
	if err != nil {
		return fmt.Errorf("marshal factors: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO forecasts (id, product_id, warehouse_id, predictions, factors, confidence, model_accuracy, generated_at, valid_until)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.ProductID, f.WarehouseID, string(preds), string(factors),
		f.Confidence, f.ModelAccuracy, f.GeneratedAt, f.ValidUntil,
	)
	if err != nil {
		return fmt.Errorf("save forecast: %w", err)
	}
	return nil
}

// LatestForecast returns the most recently generated forecast for a product,
// or nil when none exists.
func (s *ForecastStore) LatestForecast(ctx context.Context, productID string) (*retail.Forecast, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, product_id, warehouse_id, predictions, factors, confidence, model_accuracy, generated_at, valid_until
		FROM forecasts WHERE product_id = ?
		ORDER BY generated_at DESC LIMIT 1`,
		productID,
	)

	var f retail.Forecast
	var preds, factors string
	err := row.Scan(&f.ID, &f.ProductID, &f.WarehouseID, &preds, &factors,
		&f.Confidence, &f.ModelAccuracy, &f.GeneratedAt, &f.ValidUntil)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load forecast: %w", err)
	}
	if err := json.Unmarshal([]byte(preds), &f.Predictions); err != nil {
		return nil, fmt.Errorf("unmarshal predictions: %w", err)
	}
	if err := json.Unmarshal([]byte(factors), &f.Factors); err != nil {
		return nil, fmt.Errorf("unmarshal factors: %w", err)
	}
	return &f, nil
}

// ForecastedQuantity returns the quantity the latest forecast predicted for
// the given date, or false when no prediction covers it.
func (s *ForecastStore) ForecastedQuantity(ctx context.Context, productID string, date time.Time) (float64, bool, error) {
	f, err := s.LatestForecast(ctx, productID)
	if err != nil || f == nil {
		return 0, false, err
	}
	day := date.Format(dateLayout)
	for _, p := range f.Predictions {
		if p.Date.Format(dateLayout) == day {
			return float64(p.Quantity), true, nil
		}
	}
	return 0, false, nil
}

// UpsertAccuracy records a forecast-vs-actual pair for one product-day.
// Re-ingesting the same day replaces the earlier record.
func (s *ForecastStore) UpsertAccuracy(ctx context.Context, productID string, date time.Time, forecastQty, actualQty float64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO forecast_accuracy (product_id, date, forecast_qty, actual_qty, recorded_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)`,
		productID, date.Format(dateLayout), forecastQty, actualQty,
	)
	if err != nil {
		return fmt.Errorf("upsert accuracy: %w", err)
	}
	return nil
}

// AccuracyPairs returns the forecast/actual pairs recorded within the
// trailing window, excluding days with a zero actual (no percentage error
// is defined for them).
func (s *ForecastStore) AccuracyPairs(ctx context.Context, productID string, window time.Duration) ([][2]float64, error) {
	since := time.Now().Add(-window)
	rows, err := s.db.QueryContext(ctx, `
		SELECT forecast_qty, actual_qty FROM forecast_accuracy
		WHERE product_id = ? AND recorded_at >= ? AND actual_qty != 0
		ORDER BY date`,
		productID, since,
	)
	if err != nil {
		return nil, fmt.Errorf("query accuracy: %w", err)
	}
	defer rows.Close()

	var pairs [][2]float64
	for rows.Next() {
		var fq, aq float64
		if err := rows.Scan(&fq, &aq); err != nil {
			return nil, err
		}
		pairs = append(pairs, [2]float64{fq, aq})
	}
	return pairs, rows.Err()
}

// PruneForecasts deletes forecasts that expired before the cutoff.
func (s *ForecastStore) PruneForecasts(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM forecasts WHERE valid_until < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune forecasts: %w", err)
	}
	return res.RowsAffected()
}

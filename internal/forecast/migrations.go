package forecast

import (
	"database/sql"

	"github.com/Serrowxd/fluxor-sub001/pkg/plugin"
)

// migrations returns the Forecast module's database migrations.
func migrations() []plugin.Migration {
	return []plugin.Migration{
		{
			Version:     1,
			Description: "create forecast and accuracy tables",
			Up: func(tx *sql.Tx) error {
				stmts := []string{
					`CREATE TABLE IF NOT EXISTS forecasts (
						id             TEXT PRIMARY KEY,
						product_id     TEXT NOT NULL,
						warehouse_id   TEXT NOT NULL DEFAULT '',
						predictions    TEXT NOT NULL,
						factors        TEXT NOT NULL DEFAULT '[]',
						confidence     REAL NOT NULL DEFAULT 0,
						model_accuracy REAL NOT NULL DEFAULT 0,
						generated_at   DATETIME NOT NULL,
						valid_until    DATETIME NOT NULL
					)`,
					`CREATE INDEX IF NOT EXISTS idx_forecasts_product_time ON forecasts(product_id, generated_at)`,

					`CREATE TABLE IF NOT EXISTS forecast_accuracy (
						product_id   TEXT NOT NULL,
						date         TEXT NOT NULL,
						forecast_qty REAL NOT NULL DEFAULT 0,
						actual_qty   REAL NOT NULL DEFAULT 0,
						recorded_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
						PRIMARY KEY (product_id, date)
					)`,
					`CREATE INDEX IF NOT EXISTS idx_forecast_accuracy_date ON forecast_accuracy(product_id, recorded_at)`,
				}
				for _, stmt := range stmts {
					if _, err := tx.Exec(stmt); err != nil {
						return err
					}
				}
				return nil
			},
		},
	}
}

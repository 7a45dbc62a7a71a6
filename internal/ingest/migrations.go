package ingest

import (
	"database/sql"

	"github.com/Serrowxd/fluxor-sub001/pkg/plugin"
)

// migrations returns the Ingest module's database migrations.
func migrations() []plugin.Migration {
	return []plugin.Migration{
		{
			Version:     1,
			Description: "create retail observation tables",
			Up: func(tx *sql.Tx) error {
				stmts := []string{
					`CREATE TABLE IF NOT EXISTS retail_sales (
						product_id   TEXT NOT NULL,
						warehouse_id TEXT NOT NULL DEFAULT '',
						date         TEXT NOT NULL,
						quantity     REAL NOT NULL DEFAULT 0,
						price        REAL NOT NULL DEFAULT 0,
						promotions   TEXT NOT NULL DEFAULT '[]',
						PRIMARY KEY (product_id, warehouse_id, date)
					)`,
					`CREATE INDEX IF NOT EXISTS idx_retail_sales_product_date ON retail_sales(product_id, date)`,

					`CREATE TABLE IF NOT EXISTS retail_inventory (
						id           INTEGER PRIMARY KEY AUTOINCREMENT,
						product_id   TEXT NOT NULL,
						warehouse_id TEXT NOT NULL DEFAULT '',
						quantity     REAL NOT NULL DEFAULT 0,
						recorded_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
					)`,
					`CREATE INDEX IF NOT EXISTS idx_retail_inventory_product_time ON retail_inventory(product_id, warehouse_id, recorded_at)`,

					`CREATE TABLE IF NOT EXISTS retail_orders (
						id          TEXT PRIMARY KEY,
						customer_id TEXT NOT NULL,
						total       REAL NOT NULL DEFAULT 0,
						item_count  INTEGER NOT NULL DEFAULT 0,
						quantities  TEXT NOT NULL DEFAULT '{}',
						placed_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
					)`,
					`CREATE INDEX IF NOT EXISTS idx_retail_orders_customer ON retail_orders(customer_id, placed_at)`,
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

package detect

import (
	"database/sql"

	"github.com/Serrowxd/fluxor-sub001/pkg/plugin"
)

// migrations returns the Detect module's database migrations.
func migrations() []plugin.Migration {
	return []plugin.Migration{
		{
			Version:     1,
			Description: "create anomalies table",
			Up: func(tx *sql.Tx) error {
				stmts := []string{
					`CREATE TABLE IF NOT EXISTS anomalies (
						id          TEXT PRIMARY KEY,
						domain      TEXT NOT NULL,
						severity    TEXT NOT NULL,
						description TEXT NOT NULL DEFAULT '',
						entity_type TEXT NOT NULL DEFAULT '',
						entity_id   TEXT NOT NULL DEFAULT '',
						entity_name TEXT NOT NULL DEFAULT '',
						metrics     TEXT NOT NULL DEFAULT '[]',
						actions     TEXT NOT NULL DEFAULT '[]',
						detected_at DATETIME NOT NULL,
						resolved    INTEGER NOT NULL DEFAULT 0,
						resolution  TEXT NOT NULL DEFAULT '',
						resolved_at DATETIME
					)`,
					`CREATE INDEX IF NOT EXISTS idx_anomalies_detected ON anomalies(resolved, detected_at)`,
					`CREATE INDEX IF NOT EXISTS idx_anomalies_entity ON anomalies(entity_type, entity_id)`,
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

package detect

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Serrowxd/fluxor-sub001/pkg/retail"
)

// DetectStore provides database access for the Detect module.
type DetectStore struct {
	db *sql.DB
}

// NewDetectStore creates a new DetectStore backed by the given database.
func NewDetectStore(db *sql.DB) *DetectStore {
	return &DetectStore{db: db}
}

// InsertAnomaly persists a newly detected anomaly.
func (s *DetectStore) InsertAnomaly(ctx context.Context, a retail.Anomaly) error {
	metrics, err := json.Marshal(a.Metrics)
	if err != nil {
		return fmt.Errorf("marshal metrics: %w", err)
	}
	actions, err := json.Marshal(a.SuggestedActions)
	if err != nil {
		return fmt.Errorf("marshal actions: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO anomalies (id, domain, severity, description, entity_type, entity_id, entity_name, metrics, actions, detected_at, resolved, resolution)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, '')`,
		a.ID, string(a.Domain), string(a.Severity), a.Description,
		a.Entity.Type, a.Entity.ID, a.Entity.Name,
		string(metrics), string(actions), a.DetectedAt,
	)
	if err != nil {
		return fmt.Errorf("insert anomaly: %w", err)
	}
	return nil
}

// Recent returns up to limit anomalies sorted by severity (critical first)
// then by detection time (newest first).
func (s *DetectStore) Recent(ctx context.Context, limit int) ([]retail.Anomaly, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, domain, severity, description, entity_type, entity_id, entity_name, metrics, actions, detected_at, resolved, resolution, resolved_at
		FROM anomalies
		ORDER BY CASE severity
			WHEN 'critical' THEN 4
			WHEN 'high' THEN 3
			WHEN 'medium' THEN 2
			ELSE 1
		END DESC, detected_at DESC
		LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query anomalies: %w", err)
	}
	defer rows.Close()

	var out []retail.Anomaly
	for rows.Next() {
		a, err := scanAnomaly(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Resolve marks an anomaly resolved. It reports whether this call performed
// the transition; resolving an already-resolved anomaly is a no-op.
func (s *DetectStore) Resolve(ctx context.Context, id, resolution string, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE anomalies SET resolved = 1, resolution = ?, resolved_at = ?
		WHERE id = ? AND resolved = 0`,
		resolution, at, id,
	)
	if err != nil {
		return false, fmt.Errorf("resolve anomaly: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Get returns one anomaly by id, or nil when it does not exist.
func (s *DetectStore) Get(ctx context.Context, id string) (*retail.Anomaly, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, domain, severity, description, entity_type, entity_id, entity_name, metrics, actions, detected_at, resolved, resolution, resolved_at
		FROM anomalies WHERE id = ?`,
		id,
	)
	a, err := scanAnomaly(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnomaly(row rowScanner) (retail.Anomaly, error) {
	var a retail.Anomaly
	var domain, severity, metrics, actions string
	var resolved int
	var resolvedAt sql.NullTime

	err := row.Scan(&a.ID, &domain, &severity, &a.Description,
		&a.Entity.Type, &a.Entity.ID, &a.Entity.Name,
		&metrics, &actions, &a.DetectedAt, &resolved, &a.Resolution, &resolvedAt)
	if err != nil {
		return retail.Anomaly{}, err
	}

	a.Domain = retail.Domain(domain)
	a.Severity = retail.Severity(severity)
	a.Resolved = resolved != 0
	if resolvedAt.Valid {
		t := resolvedAt.Time
		a.ResolvedAt = &t
	}
	if err := json.Unmarshal([]byte(metrics), &a.Metrics); err != nil {
		return retail.Anomaly{}, fmt.Errorf("unmarshal metrics: %w", err)
	}
	if err := json.Unmarshal([]byte(actions), &a.SuggestedActions); err != nil {
		return retail.Anomaly{}, fmt.Errorf("unmarshal actions: %w", err)
	}
	return a, nil
}

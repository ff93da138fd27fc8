package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/chorussync/chorus/internal/models"
)

// MetricsRepository persists extracted numeric metrics, one row per
// (track, connector, metric name), newest value winning.
type MetricsRepository struct {
	db *sql.DB
}

// NewMetricsRepository creates a new MetricsRepository with the given database connection
func NewMetricsRepository(db *sql.DB) *MetricsRepository {
	return &MetricsRepository{db: db}
}

// SaveMetrics upserts a batch of metric values in one transaction.
func (r *MetricsRepository) SaveMetrics(ctx context.Context, values []models.MetricValue) error {
	if len(values) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO track_metrics (track_id, connector, metric, value, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (track_id, connector, metric) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`

	now := time.Now().UTC()
	for _, v := range values {
		if _, err := tx.ExecContext(ctx, query, v.TrackID, v.Connector, v.Metric, v.Value, now); err != nil {
			return fmt.Errorf("failed to save metric %s for track %d: %w", v.Metric, v.TrackID, err)
		}
	}

	return tx.Commit()
}

// GetMetrics returns all stored metrics for a track as metric name -> value.
func (r *MetricsRepository) GetMetrics(ctx context.Context, trackID int64, connector string) (map[string]float64, error) {
	query := `
		SELECT metric, value
		FROM track_metrics
		WHERE track_id = ? AND connector = ?
	`

	rows, err := r.db.QueryContext(ctx, query, trackID, connector)
	if err != nil {
		return nil, fmt.Errorf("failed to query metrics: %w", err)
	}
	defer rows.Close()

	metrics := make(map[string]float64)
	for rows.Next() {
		var metric string
		var value float64
		if err := rows.Scan(&metric, &value); err != nil {
			return nil, fmt.Errorf("failed to scan metric: %w", err)
		}
		metrics[metric] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return metrics, nil
}

package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/chorussync/chorus/internal/models"
	"github.com/chorussync/chorus/internal/shared"
)

// CheckpointRepository persists incremental sync cursors.
type CheckpointRepository struct {
	db *sql.DB
}

// NewCheckpointRepository creates a new CheckpointRepository with the given database connection
func NewCheckpointRepository(db *sql.DB) *CheckpointRepository {
	return &CheckpointRepository{db: db}
}

// GetCheckpoint returns the checkpoint for a (user, service, entity-type)
// triple, or nil when no incremental run has completed yet.
func (r *CheckpointRepository) GetCheckpoint(ctx context.Context, userID, service, entityType string) (*models.SyncCheckpoint, error) {
	query := `
		SELECT id, user_id, service, entity_type, last_timestamp, cursor
		FROM sync_checkpoints
		WHERE user_id = ? AND service = ? AND entity_type = ?
	`

	var (
		cp            models.SyncCheckpoint
		lastTimestamp sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, userID, service, entityType).
		Scan(&cp.ID, &cp.UserID, &cp.Service, &cp.EntityType, &lastTimestamp, &cp.Cursor)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query checkpoint: %w", err)
	}
	if lastTimestamp.Valid {
		cp.LastTimestamp = lastTimestamp.Time.UTC()
	}
	return &cp, nil
}

// SaveCheckpoint inserts or replaces a checkpoint and returns the stored
// instance with its id assigned.
func (r *CheckpointRepository) SaveCheckpoint(ctx context.Context, cp models.SyncCheckpoint) (models.SyncCheckpoint, error) {
	if cp.ID == "" {
		cp.ID = shared.GenerateID()
	}

	query := `
		INSERT INTO sync_checkpoints (id, user_id, service, entity_type, last_timestamp, cursor, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, service, entity_type) DO UPDATE SET
			last_timestamp = excluded.last_timestamp,
			cursor = excluded.cursor,
			updated_at = excluded.updated_at
	`

	var lastTimestamp any
	if !cp.LastTimestamp.IsZero() {
		lastTimestamp = cp.LastTimestamp.UTC()
	}

	_, err := r.db.ExecContext(ctx, query,
		cp.ID, cp.UserID, cp.Service, cp.EntityType, lastTimestamp, cp.Cursor, time.Now().UTC())
	if err != nil {
		return models.SyncCheckpoint{}, fmt.Errorf("failed to save checkpoint: %w", err)
	}

	// An upsert that hit the conflict branch keeps the original row id.
	stored, err := r.GetCheckpoint(ctx, cp.UserID, cp.Service, cp.EntityType)
	if err != nil {
		return models.SyncCheckpoint{}, err
	}
	return *stored, nil
}

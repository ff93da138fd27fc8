package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// MappingRepository persists per-connector track identity mappings. It
// implements match.MappingStore.
//
// Concurrent runs may race to insert the same (track, connector) pair; the
// UNIQUE constraint resolves the race and the loser's insert is treated as
// success.
type MappingRepository struct {
	db *sql.DB
}

// NewMappingRepository creates a new MappingRepository with the given database connection
func NewMappingRepository(db *sql.DB) *MappingRepository {
	return &MappingRepository{db: db}
}

// FindMapping returns the external id recorded for a track/connector pair,
// or "" when no mapping exists.
func (r *MappingRepository) FindMapping(ctx context.Context, trackID int64, connector string) (string, error) {
	query := `
		SELECT external_id
		FROM track_mappings
		WHERE track_id = ? AND connector = ?
	`

	var externalID string
	err := r.db.QueryRowContext(ctx, query, trackID, connector).Scan(&externalID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query mapping: %w", err)
	}
	return externalID, nil
}

// FindTrackID returns the catalog track id mapped to a connector's external
// id, or 0 when the external id is unknown.
func (r *MappingRepository) FindTrackID(ctx context.Context, connector, externalID string) (int64, error) {
	query := `
		SELECT track_id
		FROM track_mappings
		WHERE connector = ? AND external_id = ?
	`

	var trackID int64
	err := r.db.QueryRowContext(ctx, query, connector, externalID).Scan(&trackID)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query mapping by external id: %w", err)
	}
	return trackID, nil
}

// SaveMapping persists a confirmed identity mapping. A duplicate insert for
// an already-mapped pair is success, not an error.
func (r *MappingRepository) SaveMapping(ctx context.Context, trackID int64, connector, externalID string, confidence int, method string, metadata map[string]any) error {
	query := `
		INSERT INTO track_mappings (track_id, connector, external_id, confidence, method, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		trackID, connector, externalID, confidence, method,
		encodeJSON(metadata), time.Now().UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil
		}
		return fmt.Errorf("failed to save mapping: %w", err)
	}
	return nil
}

package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// MetadataRepository caches connector metadata payloads with the freshness
// timestamps the staleness policy reads.
type MetadataRepository struct {
	db *sql.DB
}

// NewMetadataRepository creates a new MetadataRepository with the given database connection
func NewMetadataRepository(db *sql.DB) *MetadataRepository {
	return &MetadataRepository{db: db}
}

// SaveMetadata upserts the cached payload for a track/connector pair and
// refreshes its timestamp.
func (r *MetadataRepository) SaveMetadata(ctx context.Context, trackID int64, connector string, payload map[string]any) error {
	query := `
		INSERT INTO track_metadata (track_id, connector, payload, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (track_id, connector) DO UPDATE SET
			payload = excluded.payload,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, query, trackID, connector, encodeJSON(payload), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save metadata: %w", err)
	}
	return nil
}

// GetTimestamps returns the last-updated timestamp for each requested track.
// Tracks with no cached metadata map to nil. Empty input performs no query.
func (r *MetadataRepository) GetTimestamps(ctx context.Context, trackIDs []int64, connector string) (map[int64]*time.Time, error) {
	timestamps := make(map[int64]*time.Time, len(trackIDs))
	if len(trackIDs) == 0 {
		return timestamps, nil
	}
	for _, id := range trackIDs {
		timestamps[id] = nil
	}

	query := fmt.Sprintf(`
		SELECT track_id, updated_at
		FROM track_metadata
		WHERE connector = ? AND track_id IN (%s)
	`, placeholders(len(trackIDs)))

	rows, err := r.db.QueryContext(ctx, query, idArgs(connector, trackIDs)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query metadata timestamps: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var trackID int64
		var updatedAt time.Time
		if err := rows.Scan(&trackID, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan metadata timestamp: %w", err)
		}
		ts := updatedAt.UTC()
		timestamps[trackID] = &ts
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return timestamps, nil
}

// GetCachedMetadata returns the cached payloads for the requested tracks.
// Tracks with no cache entry are absent from the result.
func (r *MetadataRepository) GetCachedMetadata(ctx context.Context, trackIDs []int64, connector string) (map[int64]map[string]any, error) {
	cached := make(map[int64]map[string]any, len(trackIDs))
	if len(trackIDs) == 0 {
		return cached, nil
	}

	query := fmt.Sprintf(`
		SELECT track_id, payload
		FROM track_metadata
		WHERE connector = ? AND track_id IN (%s)
	`, placeholders(len(trackIDs)))

	rows, err := r.db.QueryContext(ctx, query, idArgs(connector, trackIDs)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query cached metadata: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var trackID int64
		var payload string
		if err := rows.Scan(&trackID, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan cached metadata: %w", err)
		}
		if m := decodeJSONMap(payload); m != nil {
			cached[trackID] = m
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return cached, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func idArgs(connector string, ids []int64) []any {
	args := make([]any, 0, len(ids)+1)
	args = append(args, connector)
	for _, id := range ids {
		args = append(args, id)
	}
	return args
}

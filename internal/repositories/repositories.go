// Package repositories implements SQLite persistence for the chorus catalog
// and sync state.
//
// Key implementations:
//   - [TrackRepository] : canonical track catalog with candidate ingestion
//   - [MappingRepository] : per-connector track identity mappings
//   - [MetadataRepository] : cached connector metadata with freshness timestamps
//   - [MetricsRepository] : extracted numeric metrics per track/connector
//   - [CheckpointRepository] : incremental sync cursors
//   - [PlayRepository] / [LikeRepository] : listening events and liked state
//
// Concurrent runs share no in-process state; every cross-run interaction goes
// through these tables. Unique-constraint violations on insert are treated as
// success where the write is an idempotent upsert (mappings, plays, likes).
package repositories

import (
	"encoding/json"
	"strings"
)

// isUniqueViolation reports whether err is a sqlite UNIQUE constraint error.
// Duplicate-mapping races between concurrent runs land here and are treated
// as success.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint")
}

// encodeJSON marshals v for a TEXT column, defaulting to "{}" so payload
// columns never hold NULL or invalid JSON.
func encodeJSON(v any) string {
	if v == nil {
		return "{}"
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(data)
}

func decodeJSONMap(s string) map[string]any {
	if s == "" {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil
	}
	return m
}

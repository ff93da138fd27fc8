package tasks

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/chorussync/chorus/internal/connectors"
	"github.com/chorussync/chorus/internal/models"
)

// MetadataManager fetches connector metadata for stale tracks, persists it,
// and merges it with the cache for fresh ones.
type MetadataManager struct {
	store  MetadataStore
	logger *log.Logger
}

// NewMetadataManager creates a manager persisting fetched payloads to store.
func NewMetadataManager(store MetadataStore, logger *log.Logger) *MetadataManager {
	return &MetadataManager{store: store, logger: logger}
}

// FetchFreshMetadata fetches metadata for every track that is both stale and
// successfully identity-resolved. A fetch failure for one track is isolated
// into the failed set and does not abort the batch. Fetched payloads are
// persisted to the cache as a side effect; a cache write failure degrades the
// cache, not the in-memory result.
func (m *MetadataManager) FetchFreshMetadata(ctx context.Context, matches map[int64]models.MatchResult, connector string, conn connectors.Connector, staleTrackIDs []int64) (map[int64]map[string]any, map[int64]bool) {
	fresh := make(map[int64]map[string]any)
	failed := make(map[int64]bool)

	for _, trackID := range staleTrackIDs {
		result, ok := matches[trackID]
		if !ok || !result.Success {
			continue
		}

		payload, err := conn.FetchMetadata(ctx, result.ExternalID)
		if err != nil {
			m.logger.Warn("metadata fetch failed",
				"track_id", trackID, "connector", connector, "err", err)
			failed[trackID] = true
			continue
		}
		fresh[trackID] = payload

		if err := m.store.SaveMetadata(ctx, trackID, connector, payload); err != nil {
			m.logger.Warn("failed to persist fetched metadata",
				"track_id", trackID, "connector", connector, "err", err)
		}
	}

	return fresh, failed
}

// AllMetadata merges freshly fetched metadata with the persisted cache for
// the given tracks. Fresh results take precedence; tracks in the failed set
// with no cache entry are simply absent, never synthesized.
func (m *MetadataManager) AllMetadata(ctx context.Context, trackIDs []int64, connector string, fresh map[int64]map[string]any, failed map[int64]bool) (map[int64]map[string]any, error) {
	merged := make(map[int64]map[string]any, len(trackIDs))

	var cacheIDs []int64
	for _, id := range trackIDs {
		if _, ok := fresh[id]; ok {
			merged[id] = fresh[id]
			continue
		}
		if failed[id] {
			continue
		}
		cacheIDs = append(cacheIDs, id)
	}

	if len(cacheIDs) > 0 {
		cached, err := m.store.GetCachedMetadata(ctx, cacheIDs, connector)
		if err != nil {
			return nil, err
		}
		for id, payload := range cached {
			merged[id] = payload
		}
	}

	return merged, nil
}

package tasks

import (
	"context"
	"time"

	"github.com/chorussync/chorus/internal/match"
	"github.com/chorussync/chorus/internal/models"
)

// IdentityResolver resolves catalog tracks to connector identities. Satisfied
// by [match.Resolver].
type IdentityResolver interface {
	ResolveIdentities(ctx context.Context, list models.TrackList, connector string, conn match.Searcher, opts match.ResolveOptions) (map[int64]models.MatchResult, error)
}

// MetadataStore persists and serves cached connector metadata.
type MetadataStore interface {
	GetTimestamps(ctx context.Context, trackIDs []int64, connector string) (map[int64]*time.Time, error)
	GetCachedMetadata(ctx context.Context, trackIDs []int64, connector string) (map[int64]map[string]any, error)
	SaveMetadata(ctx context.Context, trackID int64, connector string, payload map[string]any) error
}

// TimestampStore is the freshness-policy slice of [MetadataStore].
type TimestampStore interface {
	GetTimestamps(ctx context.Context, trackIDs []int64, connector string) (map[int64]*time.Time, error)
}

// MetricsStore persists extracted metric values.
type MetricsStore interface {
	SaveMetrics(ctx context.Context, values []models.MetricValue) error
}

// MappingStore serves and persists track identity mappings during imports.
type MappingStore interface {
	FindTrackID(ctx context.Context, connector, externalID string) (int64, error)
	SaveMapping(ctx context.Context, trackID int64, connector, externalID string, confidence int, method string, metadata map[string]any) error
}

// CatalogStore ingests unseen connector tracks into the catalog.
type CatalogStore interface {
	IngestCandidate(ctx context.Context, candidate models.TrackCandidate, connector string) (models.Track, error)
}

// PlayStore persists imported play events.
type PlayStore interface {
	BulkInsertPlays(ctx context.Context, plays []models.TrackPlay) (int, error)
}

// LikeStore persists per-service liked state.
type LikeStore interface {
	SaveLike(ctx context.Context, trackID int64, service string, isLiked bool, timestamp time.Time) error
	GetLikes(ctx context.Context, trackID int64, services []string) ([]models.LikeState, error)
}

// CheckpointStore persists incremental sync cursors.
type CheckpointStore interface {
	GetCheckpoint(ctx context.Context, userID, service, entityType string) (*models.SyncCheckpoint, error)
	SaveCheckpoint(ctx context.Context, cp models.SyncCheckpoint) (models.SyncCheckpoint, error)
}

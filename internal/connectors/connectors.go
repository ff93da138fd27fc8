// Package connectors defines the Connector interface for external music
// services and its Spotify and Last.fm implementations.
//
// A connector is a thin adapter over one service's HTTP API. Rate limiting
// lives inside each client; retry policy belongs to callers, which treat any
// connector error as retryable, never fatal to a batch.
package connectors

import (
	"context"
	"time"

	"github.com/chorussync/chorus/internal/models"
)

// LikedTrack is one entry of a service's liked/loved feed.
type LikedTrack struct {
	Candidate models.TrackCandidate
	LikedAt   time.Time
}

// Connector is the boundary contract for one external music service.
type Connector interface {
	// Name returns the connector's canonical name ("spotify", "lastfm").
	Name() string

	// SearchTrack performs a free-text search for a title + artist pair.
	SearchTrack(ctx context.Context, title, artist string) ([]models.TrackCandidate, error)

	// GetByExternalID resolves a cross-service identifier (ISRC or
	// MusicBrainz id) to a track, or nil when the service does not know it.
	GetByExternalID(ctx context.Context, externalID string) (*models.TrackCandidate, error)

	// GetLikedTracks returns one page of the user's liked tracks plus the
	// cursor for the next page; an empty cursor means the feed is exhausted.
	GetLikedTracks(ctx context.Context, limit int, cursor string) ([]LikedTrack, string, error)

	// GetRecentTracks returns one page of recent plays. page is 1-based;
	// from, when non-zero, bounds the feed to plays after that instant.
	GetRecentTracks(ctx context.Context, limit, page int, from time.Time) ([]models.PlayRecord, error)

	// FetchMetadata retrieves the service's full metadata payload for a
	// track previously resolved to externalID.
	FetchMetadata(ctx context.Context, externalID string) (map[string]any, error)
}

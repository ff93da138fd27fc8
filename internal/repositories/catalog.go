package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chorussync/chorus/internal/models"
)

// TrackRepository persists the canonical track catalog.
type TrackRepository struct {
	db *sql.DB
}

// NewTrackRepository creates a new TrackRepository with the given database connection
func NewTrackRepository(db *sql.DB) *TrackRepository {
	return &TrackRepository{db: db}
}

// Create inserts a track and returns a copy carrying its new catalog id.
func (r *TrackRepository) Create(ctx context.Context, track models.Track) (models.Track, error) {
	if track.Title() == "" {
		return models.Track{}, fmt.Errorf("track title is required")
	}

	now := time.Now().UTC()
	query := `
		INSERT INTO tracks (title, artists, album, duration_ms, isrc, mbid, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		track.Title(),
		encodeArtists(track.Artists()),
		track.Album(),
		track.DurationMS(),
		track.ISRC(),
		connectorIDOrEmpty(track, models.ConnectorMBID),
		now,
		now,
	)
	if err != nil {
		return models.Track{}, fmt.Errorf("failed to insert track: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return models.Track{}, fmt.Errorf("failed to read inserted id: %w", err)
	}

	return track.WithID(id), nil
}

// Get retrieves a track by catalog id.
func (r *TrackRepository) Get(ctx context.Context, id int64) (models.Track, error) {
	query := `
		SELECT id, title, artists, album, duration_ms, isrc, mbid
		FROM tracks
		WHERE id = ?
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// GetByISRC retrieves a track by ISRC code.
func (r *TrackRepository) GetByISRC(ctx context.Context, isrc string) (models.Track, error) {
	query := `
		SELECT id, title, artists, album, duration_ms, isrc, mbid
		FROM tracks
		WHERE isrc = ?
		LIMIT 1
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, isrc))
}

// GetMany retrieves tracks for the given ids; missing ids are absent from the
// result, not an error.
func (r *TrackRepository) GetMany(ctx context.Context, ids []int64) (map[int64]models.Track, error) {
	tracks := make(map[int64]models.Track, len(ids))
	for _, id := range ids {
		track, err := r.Get(ctx, id)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, err
		}
		tracks[id] = track
	}
	return tracks, nil
}

// IngestCandidate persists a connector search result as a new catalog track,
// returning the persisted track. A candidate whose ISRC already exists in the
// catalog reuses the existing track instead of creating a duplicate.
func (r *TrackRepository) IngestCandidate(ctx context.Context, candidate models.TrackCandidate, connector string) (models.Track, error) {
	if candidate.ISRC != "" {
		existing, err := r.GetByISRC(ctx, candidate.ISRC)
		if err == nil {
			return existing, nil
		}
		if err != sql.ErrNoRows {
			return models.Track{}, err
		}
	}

	artists := make([]models.Artist, 0, len(candidate.Artists))
	for _, name := range candidate.Artists {
		artists = append(artists, models.Artist{Name: name})
	}

	track := models.NewTrack(candidate.Title, artists...).
		WithAlbum(candidate.Album).
		WithDurationMS(candidate.DurationMS).
		WithConnectorID(connector, candidate.ExternalID)
	if candidate.ISRC != "" {
		track = track.WithConnectorID(models.ConnectorISRC, candidate.ISRC)
	}

	return r.Create(ctx, track)
}

func (r *TrackRepository) scanOne(row *sql.Row) (models.Track, error) {
	var (
		id         int64
		title      string
		artistsRaw string
		album      string
		durationMS int64
		isrc       string
		mbid       string
	)

	err := row.Scan(&id, &title, &artistsRaw, &album, &durationMS, &isrc, &mbid)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.Track{}, err
		}
		return models.Track{}, fmt.Errorf("failed to scan track: %w", err)
	}

	track := models.NewTrack(title, decodeArtists(artistsRaw)...).
		WithID(id).
		WithAlbum(album).
		WithDurationMS(durationMS)
	if isrc != "" {
		track = track.WithConnectorID(models.ConnectorISRC, isrc)
	}
	if mbid != "" {
		track = track.WithConnectorID(models.ConnectorMBID, mbid)
	}
	return track, nil
}

func encodeArtists(artists []models.Artist) string {
	names := make([]string, 0, len(artists))
	for _, a := range artists {
		names = append(names, a.Name)
	}
	data, err := json.Marshal(names)
	if err != nil {
		return "[]"
	}
	return string(data)
}

func decodeArtists(raw string) []models.Artist {
	var names []string
	if err := json.Unmarshal([]byte(raw), &names); err != nil {
		return nil
	}
	artists := make([]models.Artist, 0, len(names))
	for _, name := range names {
		artists = append(artists, models.Artist{Name: name})
	}
	return artists
}

func connectorIDOrEmpty(track models.Track, connector string) string {
	id, _ := track.ConnectorID(connector)
	return id
}

package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/chorussync/chorus/internal/connectors"
	"github.com/chorussync/chorus/internal/models"
	"github.com/chorussync/chorus/internal/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type importerHarness struct {
	mappings    *mockMappingStore
	catalog     *mockCatalogStore
	plays       *mockPlayStore
	likes       *mockLikeStore
	checkpoints *mockCheckpointStore
	importer    *Importer
}

func newImporterHarness(opts ImporterOptions) *importerHarness {
	h := &importerHarness{
		mappings:    &mockMappingStore{},
		catalog:     &mockCatalogStore{},
		plays:       &mockPlayStore{},
		likes:       &mockLikeStore{},
		checkpoints: &mockCheckpointStore{},
	}
	h.importer = NewImporter(h.mappings, h.catalog, h.plays, h.likes, h.checkpoints, opts, shared.NewLogger(io.Discard))
	return h
}

func playPage(service string, start, count int, base time.Time) []models.PlayRecord {
	page := make([]models.PlayRecord, 0, count)
	for i := 0; i < count; i++ {
		n := start + i
		page = append(page, models.PlayRecord{
			ArtistName: fmt.Sprintf("Artist %d", n),
			TrackName:  fmt.Sprintf("Track %d", n),
			PlayedAt:   base.Add(time.Duration(n) * time.Minute),
			Service:    service,
			ServiceMeta: map[string]any{
				"spotify_id": fmt.Sprintf("sp_%d", n),
			},
		})
	}
	return page
}

func TestSyncPlays(t *testing.T) {
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	h := newImporterHarness(ImporterOptions{PageSize: 200})
	conn := &mockConnector{
		playPages: [][]models.PlayRecord{
			playPage("spotify", 0, 200, base),
			playPage("spotify", 200, 100, base),
		},
	}

	result, err := h.importer.SyncPlays(context.Background(), conn, nil)
	require.NoError(t, err)

	assert.Equal(t, 300, result.Imported)
	assert.Equal(t, 0, result.Skipped)
	assert.Equal(t, 300, result.Candidates)
	assert.Zero(t, result.ErrorCount)
	assert.Len(t, h.plays.plays, 300)
	// Every distinct track was ingested once and mapped.
	assert.Len(t, h.catalog.ingested, 300)

	cp := h.checkpoints.checkpoints["default|spotify|plays"]
	assert.Equal(t, base.Add(299*time.Minute), cp.LastTimestamp)
}

func TestSyncPlays_EmptyFeed(t *testing.T) {
	h := newImporterHarness(ImporterOptions{})
	conn := &mockConnector{}

	result, err := h.importer.SyncPlays(context.Background(), conn, nil)
	require.NoError(t, err)

	assert.Zero(t, result.Imported)
	assert.Zero(t, result.Candidates)
	assert.Empty(t, h.plays.plays)
	assert.Empty(t, h.catalog.ingested)
}

func TestSyncPlays_RerunDeduplicates(t *testing.T) {
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	h := newImporterHarness(ImporterOptions{PageSize: 50})
	conn := &mockConnector{
		playPages: [][]models.PlayRecord{playPage("spotify", 0, 10, base)},
	}

	first, err := h.importer.SyncPlays(context.Background(), conn, nil)
	require.NoError(t, err)
	assert.Equal(t, 10, first.Imported)

	second, err := h.importer.SyncPlays(context.Background(), conn, nil)
	require.NoError(t, err)
	assert.Zero(t, second.Imported)
	assert.Equal(t, 10, second.Skipped)
	assert.Len(t, h.plays.plays, 10)
	// No track is ingested twice.
	assert.Len(t, h.catalog.ingested, 10)
}

func TestSyncPlays_EarlyStopInKnownTerritory(t *testing.T) {
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	h := newImporterHarness(ImporterOptions{PageSize: 4, KnownFraction: 0.8})

	// Simulate a prior run: checkpoint present, tracks mapped, plays stored.
	page := playPage("spotify", 0, 4, base)
	h.checkpoints.checkpoints = map[string]models.SyncCheckpoint{
		"default|spotify|plays": {
			ID: "cp-old", UserID: "default", Service: "spotify",
			EntityType: "plays", LastTimestamp: base,
		},
	}
	h.mappings.trackIDs = map[string]int64{}
	h.plays.seen = map[string]bool{}
	for i, record := range page {
		id := int64(i + 1)
		h.mappings.trackIDs["spotify|"+record.ServiceMeta["spotify_id"].(string)] = id
		h.plays.seen[fmt.Sprintf("spotify|%d|%d", record.PlayedAt.Unix(), id)] = true
	}

	conn := &mockConnector{
		playPages: [][]models.PlayRecord{page, playPage("spotify", 4, 4, base)},
	}

	result, err := h.importer.SyncPlays(context.Background(), conn, nil)
	require.NoError(t, err)

	assert.Zero(t, result.Imported)
	assert.Equal(t, 4, result.Skipped)
	// The run stops after the fully-known first page without fetching more.
	assert.Equal(t, 1, conn.playCalls)
}

func TestSyncPlays_FetchErrorSurfacesPartialResult(t *testing.T) {
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	h := newImporterHarness(ImporterOptions{PageSize: 5})
	conn := &mockConnector{
		playPages:      [][]models.PlayRecord{playPage("spotify", 0, 5, base)},
		playsErr:       errors.New("http 500"),
		playsErrOnPage: 2,
	}

	result, err := h.importer.SyncPlays(context.Background(), conn, nil)
	require.Error(t, err)

	// The first page survived the aborted run.
	assert.Equal(t, 5, result.Imported)
	assert.Equal(t, 1, result.ErrorCount)
}

func TestSyncPlays_ItemErrorIsolated(t *testing.T) {
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	h := newImporterHarness(ImporterOptions{PageSize: 10})
	h.catalog.ingestErr = errors.New("constraint failed")
	// Only one of the two plays is already mapped; the other needs an ingest
	// that will fail.
	page := playPage("spotify", 0, 2, base)
	h.mappings.trackIDs = map[string]int64{"spotify|sp_0": 1}

	conn := &mockConnector{playPages: [][]models.PlayRecord{page}}

	result, err := h.importer.SyncPlays(context.Background(), conn, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, 1, result.ErrorCount)
}

func likedPage(items ...string) []connectors.LikedTrack {
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	page := make([]connectors.LikedTrack, 0, len(items))
	for i, id := range items {
		page = append(page, connectors.LikedTrack{
			Candidate: models.TrackCandidate{
				ExternalID: id,
				Title:      "Track " + id,
				Artists:    []string{"Artist " + id},
			},
			LikedAt: base.Add(time.Duration(i) * time.Hour),
		})
	}
	return page
}

func TestSyncLikes(t *testing.T) {
	h := newImporterHarness(ImporterOptions{PageSize: 2})
	conn := &mockConnector{
		likePages: [][]connectors.LikedTrack{
			likedPage("sp_a", "sp_b"),
			likedPage("sp_c"),
		},
	}

	result, err := h.importer.SyncLikes(context.Background(), conn, nil)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Imported)
	assert.Zero(t, result.AlreadySatisfied)
	assert.Len(t, h.catalog.ingested, 3)
	assert.Len(t, h.likes.likes, 3)
	for _, state := range h.likes.likes {
		assert.True(t, state.IsLiked)
	}
}

func TestSyncLikes_RerunIsIdempotent(t *testing.T) {
	h := newImporterHarness(ImporterOptions{PageSize: 10})
	conn := &mockConnector{
		likePages: [][]connectors.LikedTrack{likedPage("sp_a", "sp_b")},
	}

	first, err := h.importer.SyncLikes(context.Background(), conn, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Imported)

	second, err := h.importer.SyncLikes(context.Background(), conn, nil)
	require.NoError(t, err)
	assert.Zero(t, second.Imported)
	assert.Equal(t, 2, second.AlreadySatisfied)
	assert.Len(t, h.catalog.ingested, 2)
}

func TestSyncLikes_TargetServiceNotYetSatisfied(t *testing.T) {
	// The like exists on the source but not on the target service, so the
	// track still counts as work to do.
	h := newImporterHarness(ImporterOptions{PageSize: 10, TargetServices: []string{"lastfm"}})
	conn := &mockConnector{
		likePages: [][]connectors.LikedTrack{likedPage("sp_a")},
	}

	first, err := h.importer.SyncLikes(context.Background(), conn, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Imported)

	second, err := h.importer.SyncLikes(context.Background(), conn, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, second.Imported)
	assert.Zero(t, second.AlreadySatisfied)

	// Once the target side is liked too, the rerun skips it.
	require.NoError(t, h.likes.SaveLike(context.Background(), 1, "lastfm", true, time.Now()))
	third, err := h.importer.SyncLikes(context.Background(), conn, nil)
	require.NoError(t, err)
	assert.Zero(t, third.Imported)
	assert.Equal(t, 1, third.AlreadySatisfied)
}

func TestSyncLikes_FetchErrorSurfacesPartialResult(t *testing.T) {
	h := newImporterHarness(ImporterOptions{})
	conn := &mockConnector{likesErr: errors.New("http 500")}

	result, err := h.importer.SyncLikes(context.Background(), conn, nil)
	require.Error(t, err)
	assert.Equal(t, 1, result.ErrorCount)
	assert.Zero(t, result.Imported)
}

func TestSyncPlays_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	h := newImporterHarness(ImporterOptions{})
	_, err := h.importer.SyncPlays(ctx, &mockConnector{}, nil)
	require.ErrorIs(t, err, context.Canceled)
}

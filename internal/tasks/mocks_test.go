package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/chorussync/chorus/internal/connectors"
	"github.com/chorussync/chorus/internal/match"
	"github.com/chorussync/chorus/internal/models"
)

// mockConnector is an in-memory Connector with per-method error injection and
// call counting.
type mockConnector struct {
	name string

	searchResults map[string][]models.TrackCandidate
	externalHits  map[string]*models.TrackCandidate
	metadata      map[string]map[string]any
	playPages     [][]models.PlayRecord
	likePages     [][]connectors.LikedTrack

	searchErr   error
	externalErr error
	metadataErr error
	playsErr    error
	likesErr    error
	// playsErrOnPage fails GetRecentTracks only when fetching this page.
	playsErrOnPage int

	searchCalls   int
	externalCalls int
	metadataCalls int
	playCalls     int
	likeCalls     int
}

func (m *mockConnector) Name() string {
	if m.name == "" {
		return "spotify"
	}
	return m.name
}

func (m *mockConnector) SearchTrack(ctx context.Context, title, artist string) ([]models.TrackCandidate, error) {
	m.searchCalls++
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return m.searchResults[title+"|"+artist], nil
}

func (m *mockConnector) GetByExternalID(ctx context.Context, externalID string) (*models.TrackCandidate, error) {
	m.externalCalls++
	if m.externalErr != nil {
		return nil, m.externalErr
	}
	return m.externalHits[externalID], nil
}

func (m *mockConnector) GetLikedTracks(ctx context.Context, limit int, cursor string) ([]connectors.LikedTrack, string, error) {
	m.likeCalls++
	if m.likesErr != nil {
		return nil, "", m.likesErr
	}
	page := 0
	if cursor != "" {
		fmt.Sscanf(cursor, "%d", &page)
	}
	if page >= len(m.likePages) {
		return nil, "", nil
	}
	next := ""
	if page+1 < len(m.likePages) {
		next = fmt.Sprintf("%d", page+1)
	}
	return m.likePages[page], next, nil
}

func (m *mockConnector) GetRecentTracks(ctx context.Context, limit, page int, from time.Time) ([]models.PlayRecord, error) {
	m.playCalls++
	if m.playsErr != nil && (m.playsErrOnPage == 0 || m.playsErrOnPage == page) {
		return nil, m.playsErr
	}
	if page < 1 || page > len(m.playPages) {
		return nil, nil
	}
	return m.playPages[page-1], nil
}

func (m *mockConnector) FetchMetadata(ctx context.Context, externalID string) (map[string]any, error) {
	m.metadataCalls++
	if m.metadataErr != nil {
		return nil, m.metadataErr
	}
	payload, ok := m.metadata[externalID]
	if !ok {
		return nil, fmt.Errorf("no metadata for %q", externalID)
	}
	return payload, nil
}

// mockResolver returns canned resolution results without touching the
// connector.
type mockResolver struct {
	results map[int64]models.MatchResult
	err     error
	calls   int
}

func (m *mockResolver) ResolveIdentities(ctx context.Context, list models.TrackList, connector string, conn match.Searcher, opts match.ResolveOptions) (map[int64]models.MatchResult, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	out := make(map[int64]models.MatchResult)
	for _, track := range list.Tracks() {
		if result, ok := m.results[track.ID()]; ok {
			out[track.ID()] = result
		}
	}
	return out, nil
}

type mockMetadataStore struct {
	timestamps map[int64]*time.Time
	cached     map[int64]map[string]any
	saved      map[int64]map[string]any

	timestampsErr error
	cachedErr     error
	saveErr       error

	timestampCalls int
	cachedCalls    int
	saveCalls      int
}

func (m *mockMetadataStore) GetTimestamps(ctx context.Context, trackIDs []int64, connector string) (map[int64]*time.Time, error) {
	m.timestampCalls++
	if m.timestampsErr != nil {
		return nil, m.timestampsErr
	}
	out := make(map[int64]*time.Time, len(trackIDs))
	for _, id := range trackIDs {
		out[id] = m.timestamps[id]
	}
	return out, nil
}

func (m *mockMetadataStore) GetCachedMetadata(ctx context.Context, trackIDs []int64, connector string) (map[int64]map[string]any, error) {
	m.cachedCalls++
	if m.cachedErr != nil {
		return nil, m.cachedErr
	}
	out := make(map[int64]map[string]any)
	for _, id := range trackIDs {
		if payload, ok := m.cached[id]; ok {
			out[id] = payload
		}
	}
	return out, nil
}

func (m *mockMetadataStore) SaveMetadata(ctx context.Context, trackID int64, connector string, payload map[string]any) error {
	m.saveCalls++
	if m.saveErr != nil {
		return m.saveErr
	}
	if m.saved == nil {
		m.saved = make(map[int64]map[string]any)
	}
	m.saved[trackID] = payload
	return nil
}

type mockMetricsStore struct {
	values  []models.MetricValue
	saveErr error
}

func (m *mockMetricsStore) SaveMetrics(ctx context.Context, values []models.MetricValue) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.values = append(m.values, values...)
	return nil
}

type mockMappingStore struct {
	trackIDs map[string]int64 // "connector|externalID" -> track id
	findErr  error
	saveErr  error
}

func (m *mockMappingStore) FindTrackID(ctx context.Context, connector, externalID string) (int64, error) {
	if m.findErr != nil {
		return 0, m.findErr
	}
	return m.trackIDs[connector+"|"+externalID], nil
}

func (m *mockMappingStore) SaveMapping(ctx context.Context, trackID int64, connector, externalID string, confidence int, method string, metadata map[string]any) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	if m.trackIDs == nil {
		m.trackIDs = make(map[string]int64)
	}
	m.trackIDs[connector+"|"+externalID] = trackID
	return nil
}

type mockCatalogStore struct {
	nextID    int64
	ingested  []models.TrackCandidate
	ingestErr error
}

func (m *mockCatalogStore) IngestCandidate(ctx context.Context, candidate models.TrackCandidate, connector string) (models.Track, error) {
	if m.ingestErr != nil {
		return models.Track{}, m.ingestErr
	}
	m.nextID++
	m.ingested = append(m.ingested, candidate)
	artists := make([]models.Artist, 0, len(candidate.Artists))
	for _, name := range candidate.Artists {
		artists = append(artists, models.Artist{Name: name})
	}
	return models.NewTrack(candidate.Title, artists...).WithID(m.nextID), nil
}

type mockPlayStore struct {
	plays     []models.TrackPlay
	seen      map[string]bool
	insertErr error
}

// BulkInsertPlays deduplicates on (service, played_at, track) the way the
// database unique index does.
func (m *mockPlayStore) BulkInsertPlays(ctx context.Context, plays []models.TrackPlay) (int, error) {
	if m.insertErr != nil {
		return 0, m.insertErr
	}
	if m.seen == nil {
		m.seen = make(map[string]bool)
	}
	inserted := 0
	for _, play := range plays {
		key := fmt.Sprintf("%s|%d|%d", play.Service, play.PlayedAt.Unix(), play.TrackID)
		if m.seen[key] {
			continue
		}
		m.seen[key] = true
		m.plays = append(m.plays, play)
		inserted++
	}
	return inserted, nil
}

type mockLikeStore struct {
	likes   map[string]models.LikeState // "trackID|service"
	saveErr error
	getErr  error
}

func (m *mockLikeStore) SaveLike(ctx context.Context, trackID int64, service string, isLiked bool, timestamp time.Time) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	if m.likes == nil {
		m.likes = make(map[string]models.LikeState)
	}
	m.likes[fmt.Sprintf("%d|%s", trackID, service)] = models.LikeState{
		TrackID: trackID, Service: service, IsLiked: isLiked, UpdatedAt: timestamp,
	}
	return nil
}

func (m *mockLikeStore) GetLikes(ctx context.Context, trackID int64, services []string) ([]models.LikeState, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	var out []models.LikeState
	for _, service := range services {
		if state, ok := m.likes[fmt.Sprintf("%d|%s", trackID, service)]; ok {
			out = append(out, state)
		}
	}
	return out, nil
}

type mockCheckpointStore struct {
	checkpoints map[string]models.SyncCheckpoint // "user|service|entity"
	getErr      error
	saveErr     error
	saveCalls   int
}

func (m *mockCheckpointStore) GetCheckpoint(ctx context.Context, userID, service, entityType string) (*models.SyncCheckpoint, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	cp, ok := m.checkpoints[userID+"|"+service+"|"+entityType]
	if !ok {
		return nil, nil
	}
	return &cp, nil
}

func (m *mockCheckpointStore) SaveCheckpoint(ctx context.Context, cp models.SyncCheckpoint) (models.SyncCheckpoint, error) {
	m.saveCalls++
	if m.saveErr != nil {
		return models.SyncCheckpoint{}, m.saveErr
	}
	if cp.ID == "" {
		cp.ID = fmt.Sprintf("cp-%d", m.saveCalls)
	}
	if m.checkpoints == nil {
		m.checkpoints = make(map[string]models.SyncCheckpoint)
	}
	m.checkpoints[cp.UserID+"|"+cp.Service+"|"+cp.EntityType] = cp
	return cp, nil
}

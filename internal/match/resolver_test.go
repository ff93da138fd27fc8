package match

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/chorussync/chorus/internal/models"
	"github.com/chorussync/chorus/internal/shared"
)

type mockSearcher struct {
	searchResults    map[string][]models.TrackCandidate
	externalIDHits   map[string]*models.TrackCandidate
	searchErr        error
	externalIDErr    error
	searchCalls      int
	externalIDCalls  int
}

func (m *mockSearcher) SearchTrack(ctx context.Context, title, artist string) ([]models.TrackCandidate, error) {
	m.searchCalls++
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return m.searchResults[title+"|"+artist], nil
}

func (m *mockSearcher) GetByExternalID(ctx context.Context, externalID string) (*models.TrackCandidate, error) {
	m.externalIDCalls++
	if m.externalIDErr != nil {
		return nil, m.externalIDErr
	}
	return m.externalIDHits[externalID], nil
}

type mockMappingStore struct {
	mappings    map[string]string // "trackID|connector" -> external id
	saved       []string
	findErr     error
	saveErr     error
	findCalls   int
	saveCalls   int
}

func (m *mockMappingStore) FindMapping(ctx context.Context, trackID int64, connector string) (string, error) {
	m.findCalls++
	if m.findErr != nil {
		return "", m.findErr
	}
	return m.mappings[fmt.Sprintf("%d|%s", trackID, connector)], nil
}

func (m *mockMappingStore) SaveMapping(ctx context.Context, trackID int64, connector, externalID string, confidence int, method string, metadata map[string]any) error {
	m.saveCalls++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, fmt.Sprintf("%d|%s|%s|%d|%s", trackID, connector, externalID, confidence, method))
	return nil
}

func newTestResolver(store *mockMappingStore) *Resolver {
	return NewResolver(store, shared.NewLogger(io.Discard))
}

func TestResolveIdentities_PriorMapping(t *testing.T) {
	track := models.NewTrack("Karma Police", models.Artist{Name: "Radiohead"}).WithID(7)
	store := &mockMappingStore{
		mappings: map[string]string{"7|spotify": "sp_abc123"},
	}
	conn := &mockSearcher{}
	resolver := newTestResolver(store)

	results, err := resolver.ResolveIdentities(context.Background(), models.NewTrackList(track), "spotify", conn, ResolveOptions{})
	if err != nil {
		t.Fatalf("ResolveIdentities() error = %v", err)
	}

	result, ok := results[7]
	if !ok {
		t.Fatal("no result for track 7")
	}
	if !result.Success {
		t.Error("expected a successful match")
	}
	if result.ExternalID != "sp_abc123" {
		t.Errorf("ExternalID = %q, want %q", result.ExternalID, "sp_abc123")
	}
	if result.Method != models.MethodPriorMapping {
		t.Errorf("Method = %v, want prior mapping", result.Method)
	}
	if result.Confidence != 100 {
		t.Errorf("Confidence = %d, want 100", result.Confidence)
	}
	// A prior mapping answers without touching the connector.
	if conn.searchCalls != 0 || conn.externalIDCalls != 0 {
		t.Errorf("connector was called (%d search, %d external id), want zero calls",
			conn.searchCalls, conn.externalIDCalls)
	}
}

func TestResolveIdentities_ExternalID(t *testing.T) {
	track := models.NewTrack("Karma Police", models.Artist{Name: "Radiohead"}).
		WithID(3).
		WithConnectorID(models.ConnectorISRC, "GBAYE9700123")
	store := &mockMappingStore{}
	conn := &mockSearcher{
		externalIDHits: map[string]*models.TrackCandidate{
			"GBAYE9700123": {
				ExternalID: "sp_kp",
				Title:      "Karma Police",
				Artists:    []string{"Radiohead"},
			},
		},
	}
	resolver := newTestResolver(store)

	results, err := resolver.ResolveIdentities(context.Background(), models.NewTrackList(track), "spotify", conn, ResolveOptions{})
	if err != nil {
		t.Fatalf("ResolveIdentities() error = %v", err)
	}

	result := results[3]
	if !result.Success {
		t.Fatal("expected a successful match")
	}
	if result.Method != models.MethodExternalID {
		t.Errorf("Method = %v, want external id", result.Method)
	}
	if result.ExternalID != "sp_kp" {
		t.Errorf("ExternalID = %q, want %q", result.ExternalID, "sp_kp")
	}
	if conn.searchCalls != 0 {
		t.Errorf("fuzzy search ran %d times after an external id hit", conn.searchCalls)
	}
	if store.saveCalls != 1 {
		t.Errorf("mapping saved %d times, want 1", store.saveCalls)
	}
}

func TestResolveIdentities_FuzzySearch(t *testing.T) {
	tests := []struct {
		name        string
		candidates  []models.TrackCandidate
		wantSuccess bool
		wantID      string
		wantMinConf int
	}{
		{
			name: "exact title and artist match scores at least 80",
			candidates: []models.TrackCandidate{
				{ExternalID: "sp_good", Title: "Karma Police", Artists: []string{"Radiohead"}},
			},
			wantSuccess: true,
			wantID:      "sp_good",
			wantMinConf: 80,
		},
		{
			name: "best of several candidates wins",
			candidates: []models.TrackCandidate{
				{ExternalID: "sp_cover", Title: "Karma Police (Cover)", Artists: []string{"Someone Else"}},
				{ExternalID: "sp_good", Title: "Karma Police", Artists: []string{"Radiohead"}},
			},
			wantSuccess: true,
			wantID:      "sp_good",
			wantMinConf: 80,
		},
		{
			name: "unrelated candidates stay below threshold",
			candidates: []models.TrackCandidate{
				{ExternalID: "sp_bad", Title: "zzzzzzzz", Artists: []string{"qqqqqqqq"}},
			},
			wantSuccess: false,
		},
		{
			name:        "no candidates",
			candidates:  nil,
			wantSuccess: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			track := models.NewTrack("Karma Police", models.Artist{Name: "Radiohead"}).WithID(5)
			store := &mockMappingStore{}
			conn := &mockSearcher{
				searchResults: map[string][]models.TrackCandidate{
					"Karma Police|Radiohead": tt.candidates,
				},
			}
			resolver := newTestResolver(store)

			results, err := resolver.ResolveIdentities(context.Background(), models.NewTrackList(track), "spotify", conn, ResolveOptions{})
			if err != nil {
				t.Fatalf("ResolveIdentities() error = %v", err)
			}

			result := results[5]
			if result.Success != tt.wantSuccess {
				t.Fatalf("Success = %v, want %v (confidence %d)", result.Success, tt.wantSuccess, result.Confidence)
			}
			if !tt.wantSuccess {
				if store.saveCalls != 0 {
					t.Errorf("mapping saved for an unresolved track")
				}
				return
			}
			if result.ExternalID != tt.wantID {
				t.Errorf("ExternalID = %q, want %q", result.ExternalID, tt.wantID)
			}
			if result.Confidence < tt.wantMinConf {
				t.Errorf("Confidence = %d, want >= %d", result.Confidence, tt.wantMinConf)
			}
			if result.Method != models.MethodFuzzySearch {
				t.Errorf("Method = %v, want fuzzy search", result.Method)
			}
			if store.saveCalls != 1 {
				t.Errorf("mapping saved %d times, want 1", store.saveCalls)
			}
		})
	}
}

func TestResolveIdentities_SkipsUnpersistedTracks(t *testing.T) {
	persisted := models.NewTrack("Airbag", models.Artist{Name: "Radiohead"}).WithID(11)
	unpersisted := models.NewTrack("No Surprises", models.Artist{Name: "Radiohead"})
	store := &mockMappingStore{
		mappings: map[string]string{"11|spotify": "sp_airbag"},
	}
	conn := &mockSearcher{}
	resolver := newTestResolver(store)

	results, err := resolver.ResolveIdentities(context.Background(), models.NewTrackList(persisted, unpersisted), "spotify", conn, ResolveOptions{})
	if err != nil {
		t.Fatalf("ResolveIdentities() error = %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if _, ok := results[0]; ok {
		t.Error("unpersisted track appeared in results under id 0")
	}
}

func TestResolveIdentities_ConnectorErrorIsolated(t *testing.T) {
	failing := models.NewTrack("Airbag", models.Artist{Name: "Radiohead"}).WithID(1)
	working := models.NewTrack("Lucky", models.Artist{Name: "Radiohead"}).WithID(2)
	store := &mockMappingStore{
		mappings: map[string]string{"2|spotify": "sp_lucky"},
	}
	conn := &mockSearcher{searchErr: errors.New("rate limited")}
	resolver := newTestResolver(store)

	results, err := resolver.ResolveIdentities(context.Background(), models.NewTrackList(failing, working), "spotify", conn, ResolveOptions{})
	if err != nil {
		t.Fatalf("ResolveIdentities() error = %v", err)
	}
	if results[1].Success {
		t.Error("failing track reported success")
	}
	if !results[2].Success {
		t.Error("working track not resolved despite prior mapping")
	}
}

func TestResolveIdentities_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	track := models.NewTrack("Airbag", models.Artist{Name: "Radiohead"}).WithID(1)
	resolver := newTestResolver(&mockMappingStore{})

	_, err := resolver.ResolveIdentities(ctx, models.NewTrackList(track), "spotify", &mockSearcher{}, ResolveOptions{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestResolveIdentities_SaveFailureDoesNotFailMatch(t *testing.T) {
	track := models.NewTrack("Karma Police", models.Artist{Name: "Radiohead"}).WithID(9)
	store := &mockMappingStore{saveErr: errors.New("disk full")}
	conn := &mockSearcher{
		searchResults: map[string][]models.TrackCandidate{
			"Karma Police|Radiohead": {
				{ExternalID: "sp_good", Title: "Karma Police", Artists: []string{"Radiohead"}},
			},
		},
	}
	resolver := newTestResolver(store)

	results, err := resolver.ResolveIdentities(context.Background(), models.NewTrackList(track), "spotify", conn, ResolveOptions{})
	if err != nil {
		t.Fatalf("ResolveIdentities() error = %v", err)
	}
	if !results[9].Success {
		t.Error("match failed because the mapping cache write failed")
	}
}

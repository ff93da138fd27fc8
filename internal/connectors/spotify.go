// Spotify implementation of [Connector]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package connectors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/chorussync/chorus/internal/models"
	"github.com/chorussync/chorus/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	// Spotify allows bursts well above this; a conservative steady rate
	// keeps long import runs clear of 429s.
	spotifyRateLimit = 8.0
)

type spotifyExternalIDs struct {
	ISRC string `json:"isrc"`
}

// spotifyTrack represents a Spotify track object.
type spotifyTrack struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Artists     []spotifyArtist    `json:"artists"`
	Album       spotifyAlbum       `json:"album"`
	DurationMS  int64              `json:"duration_ms"`
	ExternalIDs spotifyExternalIDs `json:"external_ids"`
	Popularity  int                `json:"popularity"`
	URI         string             `json:"uri"`
}

type spotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type spotifyAlbum struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ReleaseDate string `json:"release_date"`
}

type spotifySavedTrack struct {
	AddedAt string       `json:"added_at"`
	Track   spotifyTrack `json:"track"`
}

type spotifyPaginatedSaved struct {
	Items []spotifySavedTrack `json:"items"`
	Next  *string             `json:"next"`
}

type spotifyPlayHistory struct {
	Track    spotifyTrack `json:"track"`
	PlayedAt string       `json:"played_at"`
}

type spotifyRecentlyPlayed struct {
	Items []spotifyPlayHistory `json:"items"`
}

type spotifySearchResponse struct {
	Tracks struct {
		Items []spotifyTrack `json:"items"`
	} `json:"tracks"`
}

// SpotifyConnector implements [Connector] for the Spotify Web API using
// [oauth2] authentication.
type SpotifyConnector struct {
	config     *oauth2.Config
	token      *oauth2.Token
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewSpotifyConnector creates a Spotify connector with the given OAuth2
// credentials.
func NewSpotifyConnector(credentials map[string]string) (*SpotifyConnector, error) {
	clientID, ok := credentials["client_id"]
	if !ok || clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}

	clientSecret, ok := credentials["client_secret"]
	if !ok || clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	redirectURI, ok := credentials["redirect_uri"]
	if !ok || redirectURI == "" {
		redirectURI = "http://localhost:8080/callback"
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes: []string{
			"user-read-private",
			"user-library-read",
			"user-read-recently-played",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	return &SpotifyConnector{
		config:     config,
		httpClient: http.DefaultClient,
		limiter:    rate.NewLimiter(rate.Limit(spotifyRateLimit), 1),
	}, nil
}

// Authenticate performs OAuth2 authentication. Expects either an
// "access_token" or an "auth_code" in credentials.
func (s *SpotifyConnector) Authenticate(ctx context.Context, credentials map[string]string) error {
	if accessToken, ok := credentials["access_token"]; ok && accessToken != "" {
		s.token = &oauth2.Token{AccessToken: accessToken}
		s.httpClient = s.config.Client(ctx, s.token)
		return nil
	}

	if authCode, ok := credentials["auth_code"]; ok && authCode != "" {
		token, err := s.config.Exchange(ctx, authCode)
		if err != nil {
			return fmt.Errorf("failed to exchange auth code: %w", err)
		}
		s.token = token
		s.httpClient = s.config.Client(ctx, s.token)
		return nil
	}

	return fmt.Errorf("%w: missing access_token or auth_code", shared.ErrMissingCredentials)
}

// GetAuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyConnector) GetAuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// OAuthConfig exposes the underlying OAuth2 config for callback handling.
func (s *SpotifyConnector) OAuthConfig() *oauth2.Config {
	return s.config
}

func (s *SpotifyConnector) Name() string { return "spotify" }

// doRequest performs an authenticated, rate-limited GET against the Spotify API.
func (s *SpotifyConnector) doRequest(ctx context.Context, endpoint string, result any) error {
	if s.token == nil {
		return fmt.Errorf("%w: call Authenticate first", shared.ErrNotAuthenticated)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, spotifyBaseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.token.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: spotify status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// SearchTrack searches for tracks matching a title + artist pair.
func (s *SpotifyConnector) SearchTrack(ctx context.Context, title, artist string) ([]models.TrackCandidate, error) {
	query := title
	if artist != "" {
		query = fmt.Sprintf("track:%s artist:%s", title, artist)
	}
	endpoint := fmt.Sprintf("/search?q=%s&type=track&limit=10", url.QueryEscape(query))

	var response spotifySearchResponse
	if err := s.doRequest(ctx, endpoint, &response); err != nil {
		return nil, err
	}

	candidates := make([]models.TrackCandidate, 0, len(response.Tracks.Items))
	for _, item := range response.Tracks.Items {
		candidates = append(candidates, item.toCandidate())
	}
	return candidates, nil
}

// GetByExternalID resolves an ISRC to a Spotify track via the isrc: search filter.
func (s *SpotifyConnector) GetByExternalID(ctx context.Context, externalID string) (*models.TrackCandidate, error) {
	endpoint := fmt.Sprintf("/search?q=%s&type=track&limit=1", url.QueryEscape("isrc:"+externalID))

	var response spotifySearchResponse
	if err := s.doRequest(ctx, endpoint, &response); err != nil {
		return nil, err
	}

	if len(response.Tracks.Items) == 0 {
		return nil, nil
	}
	candidate := response.Tracks.Items[0].toCandidate()
	return &candidate, nil
}

// GetLikedTracks returns a page of the user's saved tracks. The cursor is the
// numeric offset into the saved-tracks feed.
func (s *SpotifyConnector) GetLikedTracks(ctx context.Context, limit int, cursor string) ([]LikedTrack, string, error) {
	if limit <= 0 || limit > 50 {
		limit = 50
	}
	offset := 0
	if cursor != "" {
		parsed, err := strconv.Atoi(cursor)
		if err != nil {
			return nil, "", fmt.Errorf("%w: bad cursor %q", shared.ErrInvalidInput, cursor)
		}
		offset = parsed
	}

	endpoint := fmt.Sprintf("/me/tracks?limit=%d&offset=%d", limit, offset)

	var response spotifyPaginatedSaved
	if err := s.doRequest(ctx, endpoint, &response); err != nil {
		return nil, "", err
	}

	liked := make([]LikedTrack, 0, len(response.Items))
	for _, item := range response.Items {
		likedAt, _ := time.Parse(time.RFC3339, item.AddedAt)
		liked = append(liked, LikedTrack{
			Candidate: item.Track.toCandidate(),
			LikedAt:   likedAt,
		})
	}

	next := ""
	if response.Next != nil && len(response.Items) > 0 {
		next = strconv.Itoa(offset + len(response.Items))
	}
	return liked, next, nil
}

// GetRecentTracks returns the user's recently played tracks. Spotify's feed
// is not paginated by page number; from bounds the window instead.
func (s *SpotifyConnector) GetRecentTracks(ctx context.Context, limit, page int, from time.Time) ([]models.PlayRecord, error) {
	if limit <= 0 || limit > 50 {
		limit = 50
	}
	// The endpoint only exposes the most recent window, so any page past the
	// first is empty by construction.
	if page > 1 {
		return nil, nil
	}

	endpoint := fmt.Sprintf("/me/player/recently-played?limit=%d", limit)
	if !from.IsZero() {
		endpoint += fmt.Sprintf("&after=%d", from.UnixMilli())
	}

	var response spotifyRecentlyPlayed
	if err := s.doRequest(ctx, endpoint, &response); err != nil {
		return nil, err
	}

	records := make([]models.PlayRecord, 0, len(response.Items))
	for _, item := range response.Items {
		playedAt, err := time.Parse(time.RFC3339, item.PlayedAt)
		if err != nil {
			continue
		}
		records = append(records, models.PlayRecord{
			ArtistName: primaryArtistName(item.Track.Artists),
			TrackName:  item.Track.Name,
			PlayedAt:   playedAt,
			Service:    s.Name(),
			AlbumName:  item.Track.Album.Name,
			MsPlayed:   item.Track.DurationMS,
			ServiceMeta: map[string]any{
				"spotify_id": item.Track.ID,
				"isrc":       item.Track.ExternalIDs.ISRC,
			},
			APIPage: page,
		})
	}
	return records, nil
}

// FetchMetadata retrieves the full track object for a Spotify track id.
func (s *SpotifyConnector) FetchMetadata(ctx context.Context, externalID string) (map[string]any, error) {
	var payload map[string]any
	if err := s.doRequest(ctx, "/tracks/"+url.PathEscape(externalID), &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func (t spotifyTrack) toCandidate() models.TrackCandidate {
	artists := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		artists = append(artists, a.Name)
	}
	return models.TrackCandidate{
		ExternalID: t.ID,
		Title:      t.Name,
		Artists:    artists,
		Album:      t.Album.Name,
		DurationMS: t.DurationMS,
		ISRC:       t.ExternalIDs.ISRC,
		Raw: map[string]any{
			"id":          t.ID,
			"name":        t.Name,
			"duration_ms": t.DurationMS,
			"popularity":  t.Popularity,
			"isrc":        t.ExternalIDs.ISRC,
			"uri":         t.URI,
		},
	}
}

func primaryArtistName(artists []spotifyArtist) string {
	if len(artists) == 0 {
		return ""
	}
	return artists[0].Name
}

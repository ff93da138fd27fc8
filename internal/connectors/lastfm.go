// Last.fm implementation of [Connector]
//
// Response shapes based on https://www.last.fm/api (JSON format). Last.fm has
// no stable per-service track id; the MusicBrainz id serves as the external
// identifier where present, falling back to an "artist|title" composite.
package connectors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/chorussync/chorus/internal/models"
	"github.com/chorussync/chorus/internal/shared"
	"golang.org/x/time/rate"
)

const (
	lastfmBaseURL = "https://ws.audioscrobbler.com/2.0/"

	// Last.fm's documented limit is 5 req/s per API key.
	lastfmRateLimit = 4.0
)

type lastfmArtistField struct {
	Name string `json:"name"`
	Text string `json:"#text"`
	MBID string `json:"mbid"`
}

func (a lastfmArtistField) value() string {
	if a.Name != "" {
		return a.Name
	}
	return a.Text
}

type lastfmDate struct {
	UTS string `json:"uts"`
}

type lastfmRecentTrack struct {
	Name   string            `json:"name"`
	MBID   string            `json:"mbid"`
	URL    string            `json:"url"`
	Artist lastfmArtistField `json:"artist"`
	Album  struct {
		Text string `json:"#text"`
	} `json:"album"`
	Date *lastfmDate `json:"date"`
	Attr *struct {
		NowPlaying string `json:"nowplaying"`
	} `json:"@attr"`
}

type lastfmRecentTracksResponse struct {
	RecentTracks struct {
		Track []lastfmRecentTrack `json:"track"`
	} `json:"recenttracks"`
}

type lastfmLovedTrack struct {
	Name   string            `json:"name"`
	MBID   string            `json:"mbid"`
	URL    string            `json:"url"`
	Artist lastfmArtistField `json:"artist"`
	Date   *lastfmDate       `json:"date"`
}

type lastfmLovedTracksResponse struct {
	LovedTracks struct {
		Track []lastfmLovedTrack `json:"track"`
		Attr  struct {
			Page       string `json:"page"`
			TotalPages string `json:"totalPages"`
		} `json:"@attr"`
	} `json:"lovedtracks"`
}

type lastfmSearchResponse struct {
	Results struct {
		TrackMatches struct {
			Track []struct {
				Name   string `json:"name"`
				Artist string `json:"artist"`
				MBID   string `json:"mbid"`
				URL    string `json:"url"`
			} `json:"track"`
		} `json:"trackmatches"`
	} `json:"results"`
}

type lastfmTrackInfoResponse struct {
	Track struct {
		Name      string `json:"name"`
		MBID      string `json:"mbid"`
		URL       string `json:"url"`
		Duration  string `json:"duration"`
		Listeners string `json:"listeners"`
		Playcount string `json:"playcount"`
		Artist    struct {
			Name string `json:"name"`
			MBID string `json:"mbid"`
		} `json:"artist"`
		Album struct {
			Title string `json:"title"`
		} `json:"album"`
	} `json:"track"`
}

// LastfmConnector implements [Connector] for the Last.fm API using API key
// authentication.
type LastfmConnector struct {
	apiKey     string
	username   string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewLastfmConnector creates a Last.fm connector for the given user.
func NewLastfmConnector(apiKey, username string) (*LastfmConnector, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: missing api_key", shared.ErrMissingCredentials)
	}
	if username == "" {
		return nil, fmt.Errorf("%w: missing username", shared.ErrMissingCredentials)
	}
	return &LastfmConnector{
		apiKey:     apiKey,
		username:   username,
		httpClient: http.DefaultClient,
		limiter:    rate.NewLimiter(rate.Limit(lastfmRateLimit), 1),
	}, nil
}

func (l *LastfmConnector) Name() string { return "lastfm" }

// doRequest performs a rate-limited GET for one API method.
func (l *LastfmConnector) doRequest(ctx context.Context, method string, params url.Values, result any) error {
	if err := l.limiter.Wait(ctx); err != nil {
		return err
	}

	params.Set("method", method)
	params.Set("api_key", l.apiKey)
	params.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, lastfmBaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: lastfm status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// SearchTrack searches Last.fm for tracks matching a title + artist pair.
// Search results omit duration; callers score on title/artist alone.
func (l *LastfmConnector) SearchTrack(ctx context.Context, title, artist string) ([]models.TrackCandidate, error) {
	params := url.Values{}
	params.Set("track", title)
	if artist != "" {
		params.Set("artist", artist)
	}
	params.Set("limit", "10")

	var response lastfmSearchResponse
	if err := l.doRequest(ctx, "track.search", params, &response); err != nil {
		return nil, err
	}

	matches := response.Results.TrackMatches.Track
	candidates := make([]models.TrackCandidate, 0, len(matches))
	for _, m := range matches {
		candidates = append(candidates, models.TrackCandidate{
			ExternalID: lastfmExternalID(m.MBID, m.Artist, m.Name),
			Title:      m.Name,
			Artists:    []string{m.Artist},
			Raw: map[string]any{
				"name":   m.Name,
				"artist": m.Artist,
				"mbid":   m.MBID,
				"url":    m.URL,
			},
		})
	}
	return candidates, nil
}

// GetByExternalID resolves a MusicBrainz id (or "artist|title" composite)
// through track.getInfo.
func (l *LastfmConnector) GetByExternalID(ctx context.Context, externalID string) (*models.TrackCandidate, error) {
	payload, err := l.trackInfo(ctx, externalID)
	if err != nil {
		return nil, err
	}
	if payload.Track.Name == "" {
		return nil, nil
	}

	durationMS, _ := strconv.ParseInt(payload.Track.Duration, 10, 64)
	candidate := models.TrackCandidate{
		ExternalID: lastfmExternalID(payload.Track.MBID, payload.Track.Artist.Name, payload.Track.Name),
		Title:      payload.Track.Name,
		Artists:    []string{payload.Track.Artist.Name},
		Album:      payload.Track.Album.Title,
		DurationMS: durationMS,
		Raw:        trackInfoRaw(payload),
	}
	return &candidate, nil
}

// GetLikedTracks returns one page of the user's loved tracks. The cursor is
// the 1-based page number.
func (l *LastfmConnector) GetLikedTracks(ctx context.Context, limit int, cursor string) ([]LikedTrack, string, error) {
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	page := 1
	if cursor != "" {
		parsed, err := strconv.Atoi(cursor)
		if err != nil {
			return nil, "", fmt.Errorf("%w: bad cursor %q", shared.ErrInvalidInput, cursor)
		}
		page = parsed
	}

	params := url.Values{}
	params.Set("user", l.username)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("page", strconv.Itoa(page))

	var response lastfmLovedTracksResponse
	if err := l.doRequest(ctx, "user.getlovedtracks", params, &response); err != nil {
		return nil, "", err
	}

	tracks := response.LovedTracks.Track
	liked := make([]LikedTrack, 0, len(tracks))
	for _, t := range tracks {
		liked = append(liked, LikedTrack{
			Candidate: models.TrackCandidate{
				ExternalID: lastfmExternalID(t.MBID, t.Artist.value(), t.Name),
				Title:      t.Name,
				Artists:    []string{t.Artist.value()},
				Raw: map[string]any{
					"name":   t.Name,
					"artist": t.Artist.value(),
					"mbid":   t.MBID,
					"url":    t.URL,
				},
			},
			LikedAt: parseUTS(t.Date),
		})
	}

	next := ""
	totalPages, _ := strconv.Atoi(response.LovedTracks.Attr.TotalPages)
	if len(tracks) > 0 && page < totalPages {
		next = strconv.Itoa(page + 1)
	}
	return liked, next, nil
}

// GetRecentTracks returns one page of the user's scrobbles, oldest bound by
// from. A now-playing entry has no timestamp and is skipped.
func (l *LastfmConnector) GetRecentTracks(ctx context.Context, limit, page int, from time.Time) ([]models.PlayRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 200
	}
	if page <= 0 {
		page = 1
	}

	params := url.Values{}
	params.Set("user", l.username)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("page", strconv.Itoa(page))
	if !from.IsZero() {
		params.Set("from", strconv.FormatInt(from.Unix(), 10))
	}

	var response lastfmRecentTracksResponse
	if err := l.doRequest(ctx, "user.getrecenttracks", params, &response); err != nil {
		return nil, err
	}

	records := make([]models.PlayRecord, 0, len(response.RecentTracks.Track))
	for _, t := range response.RecentTracks.Track {
		if t.Attr != nil && t.Attr.NowPlaying == "true" {
			continue
		}
		playedAt := parseUTS(t.Date)
		if playedAt.IsZero() {
			continue
		}
		records = append(records, models.PlayRecord{
			ArtistName: t.Artist.value(),
			TrackName:  t.Name,
			PlayedAt:   playedAt,
			Service:    l.Name(),
			AlbumName:  t.Album.Text,
			ServiceMeta: map[string]any{
				"mbid": t.MBID,
				"url":  t.URL,
			},
			APIPage: page,
		})
	}
	return records, nil
}

// FetchMetadata retrieves playcount/listener statistics for a track.
func (l *LastfmConnector) FetchMetadata(ctx context.Context, externalID string) (map[string]any, error) {
	payload, err := l.trackInfo(ctx, externalID)
	if err != nil {
		return nil, err
	}
	if payload.Track.Name == "" {
		return nil, fmt.Errorf("%w: %s", shared.ErrTrackNotFound, externalID)
	}
	return trackInfoRaw(payload), nil
}

func (l *LastfmConnector) trackInfo(ctx context.Context, externalID string) (*lastfmTrackInfoResponse, error) {
	params := url.Values{}
	if artist, title, ok := strings.Cut(externalID, "|"); ok {
		params.Set("artist", artist)
		params.Set("track", title)
	} else {
		params.Set("mbid", externalID)
	}

	var response lastfmTrackInfoResponse
	if err := l.doRequest(ctx, "track.getInfo", params, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

func trackInfoRaw(payload *lastfmTrackInfoResponse) map[string]any {
	duration, _ := strconv.ParseInt(payload.Track.Duration, 10, 64)
	listeners, _ := strconv.ParseInt(payload.Track.Listeners, 10, 64)
	playcount, _ := strconv.ParseInt(payload.Track.Playcount, 10, 64)
	return map[string]any{
		"name":        payload.Track.Name,
		"artist":      payload.Track.Artist.Name,
		"album":       payload.Track.Album.Title,
		"mbid":        payload.Track.MBID,
		"url":         payload.Track.URL,
		"duration_ms": duration,
		"listeners":   listeners,
		"playcount":   playcount,
	}
}

// lastfmExternalID prefers the MusicBrainz id, falling back to an
// artist|title composite that track.getInfo can resolve.
func lastfmExternalID(mbid, artist, title string) string {
	if mbid != "" {
		return mbid
	}
	return artist + "|" + title
}

func parseUTS(d *lastfmDate) time.Time {
	if d == nil {
		return time.Time{}
	}
	uts, err := strconv.ParseInt(d.UTS, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(uts, 0).UTC()
}

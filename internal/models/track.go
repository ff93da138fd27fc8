package models

// Reserved connector id keys carrying cross-service identifiers rather than a
// specific streaming service's track id.
const (
	ConnectorISRC = "isrc"
	ConnectorMBID = "mbid"
)

// Artist is a name-only value object. Artist order on a track is semantically
// meaningful: the primary artist comes first.
type Artist struct {
	Name string
}

// Track is a canonical catalog track. The zero id means the track has not
// been persisted yet. Tracks are immutable; With* methods derive new
// instances and never mutate the receiver.
type Track struct {
	id           int64
	title        string
	artists      []Artist
	album        string
	durationMS   int64
	connectorIDs map[string]string
}

// NewTrack creates an unpersisted Track with the given title and artists.
func NewTrack(title string, artists ...Artist) Track {
	return Track{
		title:   title,
		artists: append([]Artist(nil), artists...),
	}
}

func (t Track) ID() int64         { return t.id }
func (t Track) Title() string     { return t.title }
func (t Track) Album() string     { return t.album }
func (t Track) DurationMS() int64 { return t.durationMS }

// Artists returns a copy of the ordered artist list.
func (t Track) Artists() []Artist {
	return append([]Artist(nil), t.artists...)
}

// PrimaryArtist returns the first artist name, or "" for an artist-less track.
func (t Track) PrimaryArtist() string {
	if len(t.artists) == 0 {
		return ""
	}
	return t.artists[0].Name
}

// ConnectorID returns the external id recorded for the given connector name.
func (t Track) ConnectorID(connector string) (string, bool) {
	id, ok := t.connectorIDs[connector]
	return id, ok
}

// ISRC returns the track's International Standard Recording Code, if known.
func (t Track) ISRC() string {
	return t.connectorIDs[ConnectorISRC]
}

// WithID derives a Track carrying the persisted catalog id.
func (t Track) WithID(id int64) Track {
	t2 := t.clone()
	t2.id = id
	return t2
}

// WithAlbum derives a Track with the album name set.
func (t Track) WithAlbum(album string) Track {
	t2 := t.clone()
	t2.album = album
	return t2
}

// WithDurationMS derives a Track with the duration set, in milliseconds.
func (t Track) WithDurationMS(ms int64) Track {
	t2 := t.clone()
	t2.durationMS = ms
	return t2
}

// WithConnectorID derives a Track whose connector id map is extended with one
// entry. The receiver's map is never aliased by the result.
func (t Track) WithConnectorID(connector, externalID string) Track {
	t2 := t.clone()
	if t2.connectorIDs == nil {
		t2.connectorIDs = make(map[string]string, 1)
	}
	t2.connectorIDs[connector] = externalID
	return t2
}

func (t Track) clone() Track {
	t2 := t
	t2.artists = append([]Artist(nil), t.artists...)
	if t.connectorIDs != nil {
		ids := make(map[string]string, len(t.connectorIDs))
		for k, v := range t.connectorIDs {
			ids[k] = v
		}
		t2.connectorIDs = ids
	}
	return t2
}

// TrackList is an ordered, immutable collection of tracks plus an open-ended
// metadata mapping used to thread side-channel data (extracted metrics,
// provenance) through pipeline stages without touching the Track entries.
type TrackList struct {
	tracks   []Track
	metadata map[string]any
}

// NewTrackList creates a TrackList over a copy of the given tracks.
func NewTrackList(tracks ...Track) TrackList {
	return TrackList{tracks: append([]Track(nil), tracks...)}
}

// Tracks returns a copy of the ordered track slice.
func (l TrackList) Tracks() []Track {
	return append([]Track(nil), l.tracks...)
}

// Len returns the number of tracks in the list.
func (l TrackList) Len() int { return len(l.tracks) }

// Metadata returns the value stored under key in the list metadata.
func (l TrackList) Metadata(key string) (any, bool) {
	v, ok := l.metadata[key]
	return v, ok
}

// WithMetadataKey derives a TrackList with one metadata key replaced. Track
// entries and other metadata keys are carried over unchanged; track storage
// is shared, the metadata map is not.
func (l TrackList) WithMetadataKey(key string, value any) TrackList {
	md := make(map[string]any, len(l.metadata)+1)
	for k, v := range l.metadata {
		md[k] = v
	}
	md[key] = value
	return TrackList{tracks: l.tracks, metadata: md}
}

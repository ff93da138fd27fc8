package models

import "time"

// PlayRecord is a raw, service-agnostic play event as fetched from a
// connector, prior to internal normalization.
type PlayRecord struct {
	ArtistName  string
	TrackName   string
	PlayedAt    time.Time
	Service     string
	AlbumName   string
	MsPlayed    int64
	ServiceMeta map[string]any
	APIPage     int
	Raw         map[string]any
}

// ToTrackPlay converts the record into a persisted play event. trackID is
// zero for a play whose track could not be resolved; the id is fixed here, at
// creation time, and never set afterward. Pure and stateless: the receiver is
// not retained by the result.
func (r PlayRecord) ToTrackPlay(trackID int64, batchID string, importedAt time.Time) TrackPlay {
	ctx := map[string]any{
		"artist_name": r.ArtistName,
		"track_name":  r.TrackName,
	}
	if r.AlbumName != "" {
		ctx["album_name"] = r.AlbumName
	}
	for k, v := range r.ServiceMeta {
		ctx[k] = v
	}
	return TrackPlay{
		TrackID:    trackID,
		Service:    r.Service,
		PlayedAt:   r.PlayedAt.UTC(),
		MsPlayed:   r.MsPlayed,
		Context:    ctx,
		ImportedAt: importedAt.UTC(),
		Source:     "connector:" + r.Service,
		BatchID:    batchID,
	}
}

// TrackPlay is an immutable persisted play event. TrackID is zero when the
// play could not be resolved to a catalog track.
type TrackPlay struct {
	TrackID    int64
	Service    string
	PlayedAt   time.Time
	MsPlayed   int64
	Context    map[string]any
	ImportedAt time.Time
	Source     string
	BatchID    string
}

// LikeState records whether a track is liked on one service.
type LikeState struct {
	TrackID   int64
	Service   string
	IsLiked   bool
	UpdatedAt time.Time
}

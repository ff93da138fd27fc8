package tasks

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/chorussync/chorus/internal/connectors"
	"github.com/chorussync/chorus/internal/models"
	"github.com/chorussync/chorus/internal/shared"
)

// ImporterOptions tunes incremental import runs.
type ImporterOptions struct {
	// UserID tags checkpoints; defaults to "default".
	UserID string
	// PageSize is the number of items requested per connector page.
	PageSize int
	// CheckpointEvery saves the checkpoint after this many pages.
	CheckpointEvery int
	// KnownFraction stops an incremental run once a page exceeds this
	// fraction of already-known items with zero new ingests.
	KnownFraction float64
	// TargetServices are additional services whose liked state must agree
	// before a like counts as already satisfied.
	TargetServices []string
}

func (o ImporterOptions) withDefaults() ImporterOptions {
	if o.UserID == "" {
		o.UserID = "default"
	}
	if o.PageSize <= 0 {
		o.PageSize = 200
	}
	if o.CheckpointEvery <= 0 {
		o.CheckpointEvery = 5
	}
	if o.KnownFraction <= 0 || o.KnownFraction > 1 {
		o.KnownFraction = 0.8
	}
	return o
}

// Importer runs incremental play and like imports from a connector feed into
// the catalog, advancing a durable checkpoint as pages are persisted.
type Importer struct {
	mappings    MappingStore
	catalog     CatalogStore
	plays       PlayStore
	likes       LikeStore
	checkpoints CheckpointStore
	logger      *log.Logger
	opts        ImporterOptions
}

// NewImporter creates an Importer over the given persistence collaborators.
func NewImporter(mappings MappingStore, catalog CatalogStore, plays PlayStore, likes LikeStore, checkpoints CheckpointStore, opts ImporterOptions, logger *log.Logger) *Importer {
	return &Importer{
		mappings:    mappings,
		catalog:     catalog,
		plays:       plays,
		likes:       likes,
		checkpoints: checkpoints,
		logger:      logger,
		opts:        opts.withDefaults(),
	}
}

// SyncPlays pages through the connector's recent-plays feed starting from the
// persisted checkpoint and imports every play, resolving or ingesting the
// played track. The checkpoint only advances past fully persisted pages, so
// a crash mid-run loses at most one page of progress and a retry never
// double-counts plays.
//
// The returned OperationResult is always non-nil; a page-level fetch or
// persistence failure aborts the run and surfaces the partial result
// alongside the error.
func (i *Importer) SyncPlays(ctx context.Context, conn connectors.Connector, progress chan<- ProgressUpdate) (*models.OperationResult, error) {
	service := conn.Name()
	result := models.NewOperationResult("import_plays_" + service)
	start := time.Now()
	defer func() { result.ExecutionTime = time.Since(start) }()

	cp, err := i.loadCheckpoint(ctx, service, "plays")
	if err != nil {
		return result, err
	}
	since := cp.LastTimestamp
	incremental := !since.IsZero()

	batchID := shared.GenerateID()
	maxSeen := since

	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		records, err := conn.GetRecentTracks(ctx, i.opts.PageSize, page, since)
		if err != nil {
			result.RecordError(fmt.Sprintf("page %d fetch failed: %v", page, err))
			return result, fmt.Errorf("play feed fetch aborted run: %w", err)
		}
		sendProgress(progress, fetchPageUpdate(page, len(records)))
		if len(records) == 0 {
			break
		}
		result.Candidates += len(records)

		pagePlays := make([]models.TrackPlay, 0, len(records))
		ingested := 0
		for _, record := range records {
			trackID, isNew, err := i.resolveOrIngestPlay(ctx, record, service)
			if err != nil {
				result.RecordError(fmt.Sprintf("play %q/%q: %v", record.ArtistName, record.TrackName, err))
				continue
			}
			if isNew {
				ingested++
			}
			pagePlays = append(pagePlays, record.ToTrackPlay(trackID, batchID, time.Now()))
			if record.PlayedAt.After(maxSeen) {
				maxSeen = record.PlayedAt.UTC()
			}
		}

		sendProgress(progress, ProgressUpdate{Phase: PersistRecords, Total: len(pagePlays)})
		inserted, err := i.plays.BulkInsertPlays(ctx, pagePlays)
		if err != nil {
			result.RecordError(fmt.Sprintf("page %d persist failed: %v", page, err))
			return result, fmt.Errorf("play persistence aborted run: %w", err)
		}
		result.Imported += inserted
		known := len(pagePlays) - inserted
		result.Skipped += known

		// The page is fully persisted; it is now safe to advance the cursor.
		cp = cp.WithProgress(maxSeen, strconv.Itoa(page+1))
		if page%i.opts.CheckpointEvery == 0 {
			if cp, err = i.saveCheckpoint(ctx, cp, page, progress); err != nil {
				return result, err
			}
		}

		if len(records) < i.opts.PageSize {
			break
		}
		if incremental && ingested == 0 && len(pagePlays) > 0 &&
			float64(known)/float64(len(pagePlays)) > i.opts.KnownFraction {
			i.logger.Info("re-entered previously synced territory, stopping",
				"service", service, "page", page, "known", known, "page_size", len(pagePlays))
			break
		}
	}

	if _, err := i.saveCheckpoint(ctx, cp, 0, progress); err != nil {
		return result, err
	}
	return result, nil
}

// SyncLikes pages through the connector's liked-tracks feed by cursor,
// importing liked state for each track and skipping tracks whose liked state
// is already satisfied on the source and all target services.
func (i *Importer) SyncLikes(ctx context.Context, conn connectors.Connector, progress chan<- ProgressUpdate) (*models.OperationResult, error) {
	service := conn.Name()
	result := models.NewOperationResult("import_likes_" + service)
	start := time.Now()
	defer func() { result.ExecutionTime = time.Since(start) }()

	cp, err := i.loadCheckpoint(ctx, service, "likes")
	if err != nil {
		return result, err
	}
	incremental := !cp.LastTimestamp.IsZero()
	cursor := cp.Cursor
	maxSeen := cp.LastTimestamp
	services := append([]string{service}, i.opts.TargetServices...)

	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		items, next, err := conn.GetLikedTracks(ctx, i.opts.PageSize, cursor)
		if err != nil {
			result.RecordError(fmt.Sprintf("page %d fetch failed: %v", page, err))
			return result, fmt.Errorf("liked feed fetch aborted run: %w", err)
		}
		sendProgress(progress, fetchPageUpdate(page, len(items)))
		if len(items) == 0 {
			break
		}
		result.Candidates += len(items)

		known, ingested := 0, 0
		for _, item := range items {
			satisfied, wasKnown, isNew, err := i.importLike(ctx, item, service, services)
			if err != nil {
				result.RecordError(fmt.Sprintf("like %q: %v", item.Candidate.Title, err))
				continue
			}
			if wasKnown {
				known++
			}
			if isNew {
				ingested++
			}
			if satisfied {
				result.AlreadySatisfied++
			} else {
				result.Imported++
			}
			if item.LikedAt.After(maxSeen) {
				maxSeen = item.LikedAt.UTC()
			}
		}

		cp = cp.WithProgress(maxSeen, next)
		if page%i.opts.CheckpointEvery == 0 {
			if cp, err = i.saveCheckpoint(ctx, cp, page, progress); err != nil {
				return result, err
			}
		}

		if next == "" {
			break
		}
		cursor = next

		if incremental && ingested == 0 &&
			float64(known)/float64(len(items)) > i.opts.KnownFraction {
			i.logger.Info("re-entered previously synced territory, stopping",
				"service", service, "page", page, "known", known, "page_size", len(items))
			break
		}
	}

	if _, err := i.saveCheckpoint(ctx, cp, 0, progress); err != nil {
		return result, err
	}
	return result, nil
}

// resolveOrIngestPlay maps a play record to a catalog track id, ingesting the
// track when it has never been seen. Returns the id and whether a new track
// was created.
func (i *Importer) resolveOrIngestPlay(ctx context.Context, record models.PlayRecord, service string) (int64, bool, error) {
	externalID := playExternalID(record)
	trackID, err := i.mappings.FindTrackID(ctx, service, externalID)
	if err != nil {
		return 0, false, err
	}
	if trackID != 0 {
		return trackID, false, nil
	}

	track, err := i.catalog.IngestCandidate(ctx, playCandidate(record, externalID), service)
	if err != nil {
		return 0, false, fmt.Errorf("ingest failed: %w", err)
	}

	// The id came straight from the service feed, so the mapping is exact.
	err = i.mappings.SaveMapping(ctx, track.ID(), service, externalID,
		models.MethodExternalID.BaseConfidence(), models.MethodExternalID.String(), nil)
	if err != nil {
		return 0, false, fmt.Errorf("mapping save failed: %w", err)
	}
	return track.ID(), true, nil
}

// importLike records the liked state for one feed item. Returns whether the
// like was already satisfied, whether the track was previously known, and
// whether a new track was ingested.
func (i *Importer) importLike(ctx context.Context, item connectors.LikedTrack, service string, services []string) (satisfied, wasKnown, isNew bool, err error) {
	trackID, err := i.mappings.FindTrackID(ctx, service, item.Candidate.ExternalID)
	if err != nil {
		return false, false, false, err
	}

	if trackID != 0 {
		states, err := i.likes.GetLikes(ctx, trackID, services)
		if err != nil {
			return false, true, false, err
		}
		liked := make(map[string]bool, len(states))
		for _, state := range states {
			liked[state.Service] = state.IsLiked
		}
		satisfied := true
		for _, s := range services {
			if !liked[s] {
				satisfied = false
				break
			}
		}
		if satisfied {
			return true, true, false, nil
		}
		if err := i.likes.SaveLike(ctx, trackID, service, true, item.LikedAt); err != nil {
			return false, true, false, err
		}
		return false, true, false, nil
	}

	track, err := i.catalog.IngestCandidate(ctx, item.Candidate, service)
	if err != nil {
		return false, false, false, fmt.Errorf("ingest failed: %w", err)
	}
	err = i.mappings.SaveMapping(ctx, track.ID(), service, item.Candidate.ExternalID,
		models.MethodExternalID.BaseConfidence(), models.MethodExternalID.String(), nil)
	if err != nil {
		return false, false, true, fmt.Errorf("mapping save failed: %w", err)
	}
	if err := i.likes.SaveLike(ctx, track.ID(), service, true, item.LikedAt); err != nil {
		return false, false, true, err
	}
	return false, false, true, nil
}

func (i *Importer) loadCheckpoint(ctx context.Context, service, entityType string) (models.SyncCheckpoint, error) {
	cp, err := i.checkpoints.GetCheckpoint(ctx, i.opts.UserID, service, entityType)
	if err != nil {
		return models.SyncCheckpoint{}, fmt.Errorf("checkpoint load failed: %w", err)
	}
	if cp != nil {
		return *cp, nil
	}
	return models.SyncCheckpoint{
		UserID:     i.opts.UserID,
		Service:    service,
		EntityType: entityType,
	}, nil
}

func (i *Importer) saveCheckpoint(ctx context.Context, cp models.SyncCheckpoint, page int, progress chan<- ProgressUpdate) (models.SyncCheckpoint, error) {
	saved, err := i.checkpoints.SaveCheckpoint(ctx, cp)
	if err != nil {
		return cp, fmt.Errorf("checkpoint save failed: %w", err)
	}
	sendProgress(progress, checkpointUpdate(page))
	return saved, nil
}

// playExternalID extracts the service's own track identifier from a play
// record, falling back to a normalized artist|title composite for services
// that do not embed one in the feed.
func playExternalID(record models.PlayRecord) string {
	for _, key := range []string{"spotify_id", "mbid"} {
		if raw, ok := record.ServiceMeta[key]; ok {
			if id, ok := raw.(string); ok && id != "" {
				return id
			}
		}
	}
	return record.ArtistName + "|" + record.TrackName
}

func playCandidate(record models.PlayRecord, externalID string) models.TrackCandidate {
	candidate := models.TrackCandidate{
		ExternalID: externalID,
		Title:      record.TrackName,
		Artists:    []string{record.ArtistName},
		Album:      record.AlbumName,
	}
	if raw, ok := record.ServiceMeta["isrc"]; ok {
		if isrc, ok := raw.(string); ok {
			candidate.ISRC = isrc
		}
	}
	return candidate
}

package main

import (
	"context"
	"time"

	"github.com/chorussync/chorus/internal/match"
	"github.com/chorussync/chorus/internal/models"
	"github.com/chorussync/chorus/internal/repositories"
	"github.com/chorussync/chorus/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Enrich resolves recently played tracks against a service and extracts
// metrics from its metadata.
func (r *Runner) Enrich(ctx context.Context, cmd *cli.Command) error {
	service := cmd.String("service")
	limit := cmd.Int("limit")
	config := r.loadConfig(cmd)

	conn, err := r.buildConnector(ctx, config, service)
	if err != nil {
		return err
	}

	db, closeDB, err := r.openDatabase(config)
	if err != nil {
		return err
	}
	defer closeDB()

	plays := repositories.NewPlayRepository(db)
	tracksRepo := repositories.NewTrackRepository(db)
	metadataRepo := repositories.NewMetadataRepository(db)

	list, err := r.recentlyPlayedTracks(ctx, plays, tracksRepo, service, limit)
	if err != nil {
		return err
	}

	resolver := match.NewResolver(repositories.NewMappingRepository(db), r.logger)
	freshness := tasks.NewFreshnessController(metadataRepo, config.Sync.FreshnessHours, r.logger)
	metadata := tasks.NewMetadataManager(metadataRepo, r.logger)
	enricher := tasks.NewEnricher(resolver, freshness, metadata, repositories.NewMetricsRepository(db), r.logger)

	opts := tasks.EnrichOptions{MinConfidence: cmd.Int("min-confidence")}
	if maxAge := cmd.Float("max-age"); maxAge >= 0 {
		opts.MaxAgeHours = &maxAge
	}

	r.logger.Info("starting enrichment", "service", service, "tracks", len(list.Tracks()))
	r.writePlain("Enriching %d track(s) via %s...\n\n", len(list.Tracks()), service)

	progressCh := make(chan tasks.ProgressUpdate, 50)
	go r.printProgress(progressCh)

	start := time.Now()
	_, metrics, err := enricher.EnrichTracks(ctx, list, service, conn, extractorsFor(service), opts, progressCh)
	close(progressCh)

	result := models.NewOperationResult("enrich " + service)
	result.Candidates = len(list.Tracks())
	result.Metrics = metrics
	result.ExecutionTime = time.Since(start)

	return r.renderOutcome(cmd, result, err)
}

// recentlyPlayedTracks loads the distinct catalog tracks behind the most
// recent plays for a service.
func (r *Runner) recentlyPlayedTracks(ctx context.Context, plays *repositories.PlayRepository, tracks *repositories.TrackRepository, service string, limit int) (models.TrackList, error) {
	recent, err := plays.ListPlays(ctx, service, limit)
	if err != nil {
		return models.TrackList{}, err
	}

	seen := make(map[int64]struct{})
	var ids []int64
	for _, play := range recent {
		if play.TrackID == 0 {
			continue
		}
		if _, ok := seen[play.TrackID]; ok {
			continue
		}
		seen[play.TrackID] = struct{}{}
		ids = append(ids, play.TrackID)
	}

	byID, err := tracks.GetMany(ctx, ids)
	if err != nil {
		return models.TrackList{}, err
	}

	ordered := make([]models.Track, 0, len(ids))
	for _, id := range ids {
		if track, ok := byID[id]; ok {
			ordered = append(ordered, track)
		}
	}

	return models.NewTrackList(ordered...), nil
}

// extractorsFor returns the metric extractors that apply to a service's
// metadata payload.
func extractorsFor(service string) map[string]tasks.Extractor {
	pick := func(key string) tasks.Extractor {
		return func(result models.MatchResult) (any, error) {
			return result.ServiceData[key], nil
		}
	}

	switch service {
	case "spotify":
		return map[string]tasks.Extractor{
			"popularity":  pick("popularity"),
			"duration_ms": pick("duration_ms"),
		}
	case "lastfm":
		return map[string]tasks.Extractor{
			"playcount": pick("playcount"),
			"listeners": pick("listeners"),
		}
	default:
		return map[string]tasks.Extractor{}
	}
}

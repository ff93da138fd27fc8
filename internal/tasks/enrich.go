package tasks

import (
	"fmt"
	"sort"
	"strconv"

	"context"

	"github.com/charmbracelet/log"
	"github.com/chorussync/chorus/internal/connectors"
	"github.com/chorussync/chorus/internal/match"
	"github.com/chorussync/chorus/internal/models"
)

// MetricsKey is the TrackList metadata key under which extracted metrics are
// attached to the enriched list.
const MetricsKey = "metrics"

// Extractor turns a resolved match's raw service metadata into one metric
// value. A nil value means the metric does not apply to that track.
type Extractor func(models.MatchResult) (any, error)

// EnrichOptions tunes one enrichment run.
type EnrichOptions struct {
	// MaxAgeHours overrides the connector's default freshness policy.
	MaxAgeHours *float64
	// MinConfidence overrides the resolver's fuzzy acceptance threshold.
	MinConfidence int
}

// Enricher orchestrates identity resolution, freshness checking, metadata
// fetching, and metric extraction into one pipeline.
type Enricher struct {
	resolver  IdentityResolver
	freshness *FreshnessController
	metadata  *MetadataManager
	metrics   MetricsStore
	logger    *log.Logger
}

// NewEnricher creates an Enricher from its collaborating components.
func NewEnricher(resolver IdentityResolver, freshness *FreshnessController, metadata *MetadataManager, metrics MetricsStore, logger *log.Logger) *Enricher {
	return &Enricher{
		resolver:  resolver,
		freshness: freshness,
		metadata:  metadata,
		metrics:   metrics,
		logger:    logger,
	}
}

// EnrichTracks resolves the list's tracks against the connector, refreshes
// stale metadata, runs every extractor over each resolved track's merged
// metadata, persists the numeric results, and returns the list with the
// metrics attached under [MetricsKey].
//
// Any stage that yields nothing short-circuits with the unmodified input and
// empty metrics; that is a logged non-event, not an error. A failing
// extractor or a non-numeric value skips that (extractor, track) pair only.
// Metric persistence failure does not invalidate the in-memory result.
func (e *Enricher) EnrichTracks(ctx context.Context, list models.TrackList, connector string, conn connectors.Connector, extractors map[string]Extractor, opts EnrichOptions, progress chan<- ProgressUpdate) (models.TrackList, map[string]map[int64]any, error) {
	empty := map[string]map[int64]any{}

	var withIDs []models.Track
	for _, track := range list.Tracks() {
		if track.ID() != 0 {
			withIDs = append(withIDs, track)
		}
	}
	if len(withIDs) == 0 {
		e.logger.Info("no tracks with catalog ids to enrich", "connector", connector)
		return list, empty, nil
	}

	sendProgress(progress, resolveUpdate(0, len(withIDs)))
	resolved, err := e.resolver.ResolveIdentities(ctx, models.NewTrackList(withIDs...), connector, conn, match.ResolveOptions{MinConfidence: opts.MinConfidence})
	if err != nil {
		return list, empty, fmt.Errorf("identity resolution failed: %w", err)
	}

	var resolvedIDs []int64
	for trackID, result := range resolved {
		if result.Success {
			resolvedIDs = append(resolvedIDs, trackID)
		}
	}
	if len(resolvedIDs) == 0 {
		e.logger.Info("no tracks resolved against connector", "connector", connector, "attempted", len(withIDs))
		return list, empty, nil
	}
	sort.Slice(resolvedIDs, func(i, j int) bool { return resolvedIDs[i] < resolvedIDs[j] })

	sendProgress(progress, ProgressUpdate{Phase: CheckFreshness, Total: len(resolvedIDs)})
	stale, err := e.freshness.StaleTracks(ctx, resolvedIDs, connector, opts.MaxAgeHours)
	if err != nil {
		return list, empty, fmt.Errorf("staleness check failed: %w", err)
	}

	sendProgress(progress, ProgressUpdate{Phase: FetchMetadata, Total: len(stale)})
	fresh, failed := e.metadata.FetchFreshMetadata(ctx, resolved, connector, conn, stale)

	merged, err := e.metadata.AllMetadata(ctx, resolvedIDs, connector, fresh, failed)
	if err != nil {
		return list, empty, fmt.Errorf("metadata merge failed: %w", err)
	}
	if len(merged) == 0 {
		e.logger.Info("no metadata available for resolved tracks", "connector", connector)
		return list, empty, nil
	}

	sendProgress(progress, extractUpdate(len(extractors)))
	metrics := e.extract(resolved, merged, extractors)
	if len(metrics) == 0 {
		return list, empty, nil
	}

	e.persistMetrics(ctx, metrics, connector)

	return attachMetrics(list, metrics), metrics, nil
}

// extract runs every (metric, extractor) pair over every resolved track with
// metadata present. One failing pair never aborts the rest.
func (e *Enricher) extract(resolved map[int64]models.MatchResult, merged map[int64]map[string]any, extractors map[string]Extractor) map[string]map[int64]any {
	names := make([]string, 0, len(extractors))
	for name := range extractors {
		names = append(names, name)
	}
	sort.Strings(names)

	metrics := make(map[string]map[int64]any)
	for _, name := range names {
		extractor := extractors[name]
		for trackID, result := range resolved {
			if !result.Success {
				continue
			}
			payload, ok := merged[trackID]
			if !ok {
				continue
			}

			value, err := extractor(result.WithServiceData(payload))
			if err != nil {
				e.logger.Warn("extractor failed", "metric", name, "track_id", trackID, "err", err)
				continue
			}
			if value == nil {
				continue
			}

			if metrics[name] == nil {
				metrics[name] = make(map[int64]any)
			}
			metrics[name][trackID] = value
		}
	}
	return metrics
}

// persistMetrics writes the numeric subset of extracted metrics. Values that
// cannot be coerced to a number are dropped with a warning; a store failure
// is logged and the in-memory metrics survive.
func (e *Enricher) persistMetrics(ctx context.Context, metrics map[string]map[int64]any, connector string) {
	var values []models.MetricValue
	for name, byTrack := range metrics {
		for trackID, value := range byTrack {
			number, ok := coerceFloat(value)
			if !ok {
				e.logger.Warn("dropping non-numeric metric value", "metric", name, "track_id", trackID)
				continue
			}
			values = append(values, models.MetricValue{
				TrackID:   trackID,
				Connector: connector,
				Metric:    name,
				Value:     number,
			})
		}
	}
	if len(values) == 0 {
		return
	}

	if err := e.metrics.SaveMetrics(ctx, values); err != nil {
		e.logger.Error("failed to persist metrics, returning in-memory results", "connector", connector, "err", err)
	}
}

// attachMetrics merges new metrics into the list's existing metrics metadata:
// new metric names are added, colliding names overwritten, others preserved.
func attachMetrics(list models.TrackList, metrics map[string]map[int64]any) models.TrackList {
	combined := make(map[string]map[int64]any)
	if existing, ok := list.Metadata(MetricsKey); ok {
		if prior, ok := existing.(map[string]map[int64]any); ok {
			for name, byTrack := range prior {
				copied := make(map[int64]any, len(byTrack))
				for id, v := range byTrack {
					copied[id] = v
				}
				combined[name] = copied
			}
		}
	}
	for name, byTrack := range metrics {
		copied := make(map[int64]any, len(byTrack))
		for id, v := range byTrack {
			copied[id] = v
		}
		combined[name] = copied
	}
	return list.WithMetadataKey(MetricsKey, combined)
}

func coerceFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case string:
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

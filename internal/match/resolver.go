package match

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/chorussync/chorus/internal/models"
)

// DefaultMinConfidence is the acceptance threshold for fuzzy search
// candidates when ResolveOptions does not override it.
const DefaultMinConfidence = 65

// Searcher is the slice of a connector the resolver needs: exact external-id
// lookup and free-text search. Any connector client or test double satisfies
// it.
type Searcher interface {
	// SearchTrack returns candidate tracks for a title + artist query.
	SearchTrack(ctx context.Context, title, artist string) ([]models.TrackCandidate, error)
	// GetByExternalID returns the track for a cross-service identifier such
	// as an ISRC, or nil when the service does not know it.
	GetByExternalID(ctx context.Context, externalID string) (*models.TrackCandidate, error)
}

// MappingStore persists confirmed (track, connector) identity mappings.
type MappingStore interface {
	// FindMapping returns the external id previously persisted for the
	// track/connector pair, or "" when none exists.
	FindMapping(ctx context.Context, trackID int64, connector string) (string, error)
	// SaveMapping persists a mapping. A duplicate for the same pair is not an
	// error; implementations treat constraint violations as success.
	SaveMapping(ctx context.Context, trackID int64, connector, externalID string, confidence int, method string, metadata map[string]any) error
}

// ResolveOptions tunes one resolution batch.
type ResolveOptions struct {
	// MinConfidence is the fuzzy-search acceptance threshold; zero means
	// DefaultMinConfidence.
	MinConfidence int
}

// Resolver determines, for each catalog track, its corresponding identifier
// in an external service. Resolution short-circuits on the cheapest method
// that succeeds: prior persisted mapping, exact external-id lookup, then
// fuzzy search scored by [Score].
type Resolver struct {
	mappings MappingStore
	logger   *log.Logger
}

// NewResolver creates a Resolver persisting confirmed matches to mappings.
func NewResolver(mappings MappingStore, logger *log.Logger) *Resolver {
	return &Resolver{mappings: mappings, logger: logger}
}

// ResolveIdentities resolves every track in the list against the named
// connector, returning a map keyed by internal track id. Tracks without an
// internal id are filtered out before resolution and never sent to the
// connector. A connector error on one track is recorded as an unresolved
// result and does not abort the rest of the batch; only context cancellation
// stops the loop early.
func (r *Resolver) ResolveIdentities(ctx context.Context, list models.TrackList, connector string, conn Searcher, opts ResolveOptions) (map[int64]models.MatchResult, error) {
	minConfidence := opts.MinConfidence
	if minConfidence <= 0 {
		minConfidence = DefaultMinConfidence
	}

	tracks := list.Tracks()
	results := make(map[int64]models.MatchResult)

	skipped := 0
	for _, track := range tracks {
		if track.ID() == 0 {
			skipped++
			r.logger.Debug("skipping unpersisted track", "title", track.Title())
			continue
		}

		if err := ctx.Err(); err != nil {
			return results, err
		}

		result, err := r.resolveTrack(ctx, track, connector, conn, minConfidence)
		if err != nil {
			r.logger.Warn("track resolution failed", "track_id", track.ID(), "connector", connector, "err", err)
			results[track.ID()] = models.MatchResult{Track: track, Method: models.MethodFuzzySearch}
			continue
		}
		results[track.ID()] = result
	}

	if skipped > 0 {
		r.logger.Info("excluded tracks without catalog ids from resolution", "count", skipped, "connector", connector)
	}

	return results, nil
}

func (r *Resolver) resolveTrack(ctx context.Context, track models.Track, connector string, conn Searcher, minConfidence int) (models.MatchResult, error) {
	if externalID, err := r.mappings.FindMapping(ctx, track.ID(), connector); err != nil {
		return models.MatchResult{}, fmt.Errorf("mapping lookup failed: %w", err)
	} else if externalID != "" {
		return models.MatchResult{
			Track:      track,
			Success:    true,
			ExternalID: externalID,
			Confidence: models.MethodPriorMapping.BaseConfidence(),
			Method:     models.MethodPriorMapping,
		}, nil
	}

	if isrc := track.ISRC(); isrc != "" {
		result, found, err := r.resolveByExternalID(ctx, track, connector, conn, isrc)
		if err != nil {
			return models.MatchResult{}, err
		}
		if found {
			return result, nil
		}
	}

	return r.resolveByFuzzySearch(ctx, track, connector, conn, minConfidence)
}

func (r *Resolver) resolveByExternalID(ctx context.Context, track models.Track, connector string, conn Searcher, isrc string) (models.MatchResult, bool, error) {
	candidate, err := conn.GetByExternalID(ctx, isrc)
	if err != nil {
		return models.MatchResult{}, false, fmt.Errorf("external id lookup failed: %w", err)
	}
	if candidate == nil {
		return models.MatchResult{}, false, nil
	}

	score, evidence := Score(*candidate, track, models.MethodExternalID)
	result := models.MatchResult{
		Track:       track,
		Success:     true,
		ExternalID:  candidate.ExternalID,
		Confidence:  score,
		Method:      models.MethodExternalID,
		ServiceData: candidate.Raw,
		Evidence:    &evidence,
	}
	r.persistMapping(ctx, result, connector)
	return result, true, nil
}

func (r *Resolver) resolveByFuzzySearch(ctx context.Context, track models.Track, connector string, conn Searcher, minConfidence int) (models.MatchResult, error) {
	candidates, err := conn.SearchTrack(ctx, track.Title(), track.PrimaryArtist())
	if err != nil {
		return models.MatchResult{}, fmt.Errorf("search failed: %w", err)
	}

	var (
		best         models.TrackCandidate
		bestScore    int
		bestEvidence models.ConfidenceEvidence
	)
	for _, candidate := range candidates {
		score, evidence := Score(candidate, track, models.MethodFuzzySearch)
		if score > bestScore {
			best, bestScore, bestEvidence = candidate, score, evidence
		}
	}

	if bestScore < minConfidence {
		r.logger.Debug("no candidate above confidence threshold",
			"track_id", track.ID(), "connector", connector,
			"candidates", len(candidates), "best", bestScore, "min", minConfidence)
		return models.MatchResult{Track: track, Method: models.MethodFuzzySearch}, nil
	}

	result := models.MatchResult{
		Track:       track,
		Success:     true,
		ExternalID:  best.ExternalID,
		Confidence:  bestScore,
		Method:      models.MethodFuzzySearch,
		ServiceData: best.Raw,
		Evidence:    &bestEvidence,
	}
	r.persistMapping(ctx, result, connector)
	return result, nil
}

// persistMapping caches a confirmed match for O(1) lookup on the next run. A
// save failure degrades the cache, not the result, so it is only logged.
func (r *Resolver) persistMapping(ctx context.Context, result models.MatchResult, connector string) {
	err := r.mappings.SaveMapping(ctx, result.Track.ID(), connector, result.ExternalID,
		result.Confidence, result.Method.String(), nil)
	if err != nil {
		r.logger.Warn("failed to persist connector mapping",
			"track_id", result.Track.ID(), "connector", connector, "err", err)
	}
}

package tasks

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// FreshnessController decides which tracks need their connector metadata
// refetched under a max-age policy.
type FreshnessController struct {
	store    TimestampStore
	defaults map[string]float64 // connector name -> default max age in hours
	now      func() time.Time
	logger   *log.Logger
}

// NewFreshnessController creates a controller with per-connector default max
// ages. A connector missing from defaults has no freshness policy.
func NewFreshnessController(store TimestampStore, defaults map[string]float64, logger *log.Logger) *FreshnessController {
	return &FreshnessController{
		store:    store,
		defaults: defaults,
		now:      time.Now,
		logger:   logger,
	}
}

// StaleTracks returns the subset of trackIDs whose metadata for the connector
// is missing or older than the policy age. maxAgeHours overrides the
// connector default; when nil and no default is configured, no policy applies
// and every track is considered fresh. Output order is unspecified.
//
// A track whose timestamp equals the cutoff exactly is fresh: only
// timestamps strictly before the cutoff count as stale.
func (f *FreshnessController) StaleTracks(ctx context.Context, trackIDs []int64, connector string, maxAgeHours *float64) ([]int64, error) {
	hours, ok := f.policy(connector, maxAgeHours)
	if !ok {
		f.logger.Debug("no freshness policy for connector, all tracks fresh", "connector", connector)
		return nil, nil
	}
	if len(trackIDs) == 0 {
		return nil, nil
	}

	timestamps, err := f.store.GetTimestamps(ctx, trackIDs, connector)
	if err != nil {
		return nil, err
	}

	cutoff := f.now().UTC().Add(-time.Duration(hours * float64(time.Hour)))

	var stale []int64
	for _, id := range trackIDs {
		ts := timestamps[id]
		if ts == nil {
			stale = append(stale, id)
			continue
		}
		if ts.UTC().Before(cutoff) {
			stale = append(stale, id)
		}
	}

	f.logger.Debug("freshness check complete",
		"connector", connector, "checked", len(trackIDs), "stale", len(stale), "max_age_hours", hours)
	return stale, nil
}

func (f *FreshnessController) policy(connector string, maxAgeHours *float64) (float64, bool) {
	if maxAgeHours != nil {
		return *maxAgeHours, true
	}
	hours, ok := f.defaults[connector]
	return hours, ok
}

package tasks

import "fmt"

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase, 0 when unbounded
	Message string // Human-readable message for display
}

// Operation phase enumeration
type Phase int

const (
	FetchPage Phase = iota
	ResolveTracks
	CheckFreshness
	FetchMetadata
	ExtractMetrics
	PersistRecords
	SaveCheckpoint
)

func (p Phase) String() string {
	switch p {
	case FetchPage:
		return "fetch_page"
	case ResolveTracks:
		return "resolve_tracks"
	case CheckFreshness:
		return "check_freshness"
	case FetchMetadata:
		return "fetch_metadata"
	case ExtractMetrics:
		return "extract_metrics"
	case PersistRecords:
		return "persist_records"
	case SaveCheckpoint:
		return "save_checkpoint"
	default:
		return "unknown"
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default so progress reporting never stalls a run.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func fetchPageUpdate(page, count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPage,
		Step:    page,
		Message: fmt.Sprintf("Fetched page %d (%d items)", page, count),
	}
}

func resolveUpdate(step, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolveTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Resolving track identities (%d/%d)", step, total),
	}
}

func extractUpdate(metrics int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExtractMetrics,
		Total:   metrics,
		Message: fmt.Sprintf("Extracting %d metrics", metrics),
	}
}

func checkpointUpdate(page int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SaveCheckpoint,
		Step:    page,
		Message: fmt.Sprintf("Checkpoint saved after page %d", page),
	}
}

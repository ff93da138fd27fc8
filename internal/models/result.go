package models

import "time"

// MetricValue is one extracted metric ready for persistence.
type MetricValue struct {
	TrackID   int64
	Connector string
	Metric    string
	Value     float64
}

// OperationResult is the aggregate outcome of one import, sync, or
// enrichment run. It is built incrementally during the run and returned once,
// at the end, as a snapshot the caller must not mutate.
type OperationResult struct {
	Operation        string
	Imported         int
	Exported         int
	Skipped          int
	AlreadySatisfied int
	Candidates       int
	ErrorCount       int
	Errors           []string
	// Metrics maps metric name -> track id -> value.
	Metrics       map[string]map[int64]any
	ExecutionTime time.Duration
}

// NewOperationResult creates an empty result for the named operation.
func NewOperationResult(operation string) *OperationResult {
	return &OperationResult{
		Operation: operation,
		Metrics:   make(map[string]map[int64]any),
	}
}

// RecordError counts one per-item failure with its description.
func (r *OperationResult) RecordError(msg string) {
	r.ErrorCount++
	r.Errors = append(r.Errors, msg)
}

// AddMetric records one per-track metric value under the given name.
func (r *OperationResult) AddMetric(name string, trackID int64, value any) {
	m, ok := r.Metrics[name]
	if !ok {
		m = make(map[int64]any)
		r.Metrics[name] = m
	}
	m[trackID] = value
}

// Processed returns the total number of items the run handled.
func (r *OperationResult) Processed() int {
	return r.Imported + r.Exported + r.Skipped + r.AlreadySatisfied + r.ErrorCount
}

// SuccessRate returns (imported+exported)/processed, or 0 for an empty run.
func (r *OperationResult) SuccessRate() float64 {
	total := r.Processed()
	if total == 0 {
		return 0
	}
	return float64(r.Imported+r.Exported) / float64(total)
}

// EfficiencyRate returns the fraction of candidates that were already in the
// desired state, or 0 when no candidates were considered.
func (r *OperationResult) EfficiencyRate() float64 {
	if r.Candidates == 0 {
		return 0
	}
	return float64(r.AlreadySatisfied) / float64(r.Candidates)
}

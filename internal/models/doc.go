// Package models defines the immutable domain entities for the chorus sync service.
//
// The package contains three categories of types:
//
// 1. Catalog entities: the canonical internal representation of music data
//   - [Track] : a catalog track with ordered artists and per-connector external ids
//   - [TrackList] : an ordered track collection threading side-channel metadata
//
// 2. Identity resolution values: outcomes of matching a track against a connector
//   - [MatchResult] : resolved identity with confidence score and method
//   - [ConfidenceEvidence] : diagnostic breakdown of a confidence score
//   - [TrackCandidate] : a service-agnostic search result from a connector
//
// 3. Sync records: play/like events and incremental run bookkeeping
//   - [PlayRecord] / [TrackPlay] : raw and normalized listening events
//   - [LikeState] : per-service liked flag for a track
//   - [SyncCheckpoint] : durable cursor for incremental imports
//   - [OperationResult] : aggregate outcome of one sync or enrichment run
//
// All entities are value objects: transformations derive new instances via
// With* constructors and never mutate in place, so instances may be shared
// freely across pipeline stages.
package models

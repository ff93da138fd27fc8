// Package tasks orchestrates sync and enrichment runs against external music
// services.
//
// # Core Operations
//
//  1. [Importer.SyncPlays] : incremental listening-history import
//     - Pages through a connector's recent-plays feed from the last checkpoint
//     - Resolves each play to a catalog track, ingesting unseen ones
//     - Persists plays idempotently and advances the checkpoint
//
//  2. [Importer.SyncLikes] : incremental liked-tracks import
//     - Pages through the liked feed by cursor
//     - Skips tracks whose liked state is already satisfied
//     - Stops once a page is clearly inside previously-synced territory
//
//  3. [Enricher.EnrichTracks] : metadata enrichment pipeline
//     - Resolves track identities, determines the stale subset, refetches
//       metadata for it, and merges with the cache
//     - Runs named extractors over merged metadata to produce per-track
//       metrics, persisted and attached to the returned track list
//
// Each run is a single logical flow of control: batches iterate sequentially
// so mapping cache fills and checkpoint advancement stay strictly ordered.
// Per-item failures are isolated, counted in the [models.OperationResult],
// and never abort the batch; page-level fetch failures abort the run and
// surface the partial result alongside the error.
//
// # Progress Reporting
//
// Operations accept an optional channel for non-blocking [ProgressUpdate]
// events consumed by the CLI layer.
package tasks

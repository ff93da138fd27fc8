// Package match implements track identity resolution between the internal
// catalog and external music services.
//
// Matching a track description from one service against the catalog is never
// exact: titles and artists are free text subject to transliteration,
// punctuation, remix tags, and duration rounding. The package therefore
// produces confidence-scored matches rather than guaranteed ones.
//
// # Pipeline
//
//  1. [Normalize] folds case, strips diacritics and punctuation, and drops
//     bracketed suffixes and feat.-clauses, so "Déjà Vu (Remastered 2011)"
//     and "deja vu" compare equal.
//  2. [Similarity] computes a Levenshtein ratio in [0,1] over normalized text.
//  3. [Score] blends title, artist, and duration agreement with the base
//     confidence of the match method used, yielding a score in [0,100] with a
//     [models.ConfidenceEvidence] breakdown.
//  4. [Resolver.ResolveIdentities] runs the full cascade per track: prior
//     persisted mapping, exact external-id lookup, then fuzzy search-and-score.
package match

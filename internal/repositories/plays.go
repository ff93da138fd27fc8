package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/chorussync/chorus/internal/models"
)

// PlayRepository persists imported play events.
type PlayRepository struct {
	db *sql.DB
}

// NewPlayRepository creates a new PlayRepository with the given database connection
func NewPlayRepository(db *sql.DB) *PlayRepository {
	return &PlayRepository{db: db}
}

// BulkInsertPlays writes a batch of plays in one transaction and returns how
// many rows were actually inserted. Plays already present (same service,
// played-at, track) are ignored, which makes re-importing a page idempotent.
func (r *PlayRepository) BulkInsertPlays(ctx context.Context, plays []models.TrackPlay) (int, error) {
	if len(plays) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT OR IGNORE INTO track_plays (track_id, service, played_at, ms_played, context, imported_at, source, batch_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	inserted := 0
	for _, play := range plays {
		var trackID any
		if play.TrackID != 0 {
			trackID = play.TrackID
		}
		result, err := tx.ExecContext(ctx, query,
			trackID, play.Service, play.PlayedAt.UTC(), play.MsPlayed,
			encodeJSON(play.Context), play.ImportedAt.UTC(), play.Source, play.BatchID)
		if err != nil {
			return 0, fmt.Errorf("failed to insert play: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to get affected rows: %w", err)
		}
		inserted += int(rows)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit plays: %w", err)
	}
	return inserted, nil
}

// HasPlay reports whether a play for the service at the given instant is
// already persisted for the track.
func (r *PlayRepository) HasPlay(ctx context.Context, trackID int64, service string, playedAt time.Time) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM track_plays
			WHERE service = ? AND played_at = ? AND track_id = ?
		)
	`

	var exists bool
	err := r.db.QueryRowContext(ctx, query, service, playedAt.UTC(), trackID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check play: %w", err)
	}
	return exists, nil
}

// CountPlays returns the number of persisted plays for a service.
func (r *PlayRepository) CountPlays(ctx context.Context, service string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM track_plays WHERE service = ?", service).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count plays: %w", err)
	}
	return count, nil
}

// ListPlays returns up to limit plays for a service, newest first.
func (r *PlayRepository) ListPlays(ctx context.Context, service string, limit int) ([]models.TrackPlay, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT track_id, service, played_at, ms_played, context, imported_at, source, batch_id
		FROM track_plays
		WHERE service = ?
		ORDER BY played_at DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, service, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query plays: %w", err)
	}
	defer rows.Close()

	var plays []models.TrackPlay
	for rows.Next() {
		var (
			play    models.TrackPlay
			trackID sql.NullInt64
			context string
		)
		if err := rows.Scan(&trackID, &play.Service, &play.PlayedAt, &play.MsPlayed, &context, &play.ImportedAt, &play.Source, &play.BatchID); err != nil {
			return nil, fmt.Errorf("failed to scan play: %w", err)
		}
		if trackID.Valid {
			play.TrackID = trackID.Int64
		}
		play.Context = decodeJSONMap(context)
		plays = append(plays, play)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return plays, nil
}

// LikeRepository persists per-service liked state.
type LikeRepository struct {
	db *sql.DB
}

// NewLikeRepository creates a new LikeRepository with the given database connection
func NewLikeRepository(db *sql.DB) *LikeRepository {
	return &LikeRepository{db: db}
}

// SaveLike upserts the liked flag for a track on one service.
func (r *LikeRepository) SaveLike(ctx context.Context, trackID int64, service string, isLiked bool, timestamp time.Time) error {
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	query := `
		INSERT INTO track_likes (track_id, service, is_liked, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (track_id, service) DO UPDATE SET
			is_liked = excluded.is_liked,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, query, trackID, service, isLiked, timestamp.UTC())
	if err != nil {
		return fmt.Errorf("failed to save like: %w", err)
	}
	return nil
}

// GetLikes returns the liked state of a track across the given services.
// Services with no recorded state are absent from the result.
func (r *LikeRepository) GetLikes(ctx context.Context, trackID int64, services []string) ([]models.LikeState, error) {
	if len(services) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`
		SELECT track_id, service, is_liked, updated_at
		FROM track_likes
		WHERE track_id = ? AND service IN (%s)
	`, placeholders(len(services)))

	args := make([]any, 0, len(services)+1)
	args = append(args, trackID)
	for _, s := range services {
		args = append(args, s)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query likes: %w", err)
	}
	defer rows.Close()

	var likes []models.LikeState
	for rows.Next() {
		var like models.LikeState
		if err := rows.Scan(&like.TrackID, &like.Service, &like.IsLiked, &like.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan like: %w", err)
		}
		likes = append(likes, like)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return likes, nil
}

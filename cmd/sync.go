package main

import (
	"context"
	"database/sql"

	"github.com/chorussync/chorus/internal/models"
	"github.com/chorussync/chorus/internal/repositories"
	"github.com/chorussync/chorus/internal/shared"
	"github.com/chorussync/chorus/internal/tasks"
	"github.com/chorussync/chorus/internal/ui"
	"github.com/urfave/cli/v3"
)

// SyncPlays imports recent plays from the selected service.
func (r *Runner) SyncPlays(ctx context.Context, cmd *cli.Command) error {
	service := cmd.String("service")
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

	importer := r.buildImporter(db, config, cmd)

	r.logger.Info("starting play sync", "service", service)
	r.writePlain("Importing plays from %s...\n\n", service)

	progressCh := make(chan tasks.ProgressUpdate, 50)
	go r.printProgress(progressCh)

	result, err := importer.SyncPlays(ctx, conn, progressCh)
	close(progressCh)

	return r.renderOutcome(cmd, result, err)
}

// SyncLikes imports liked tracks from the selected service.
func (r *Runner) SyncLikes(ctx context.Context, cmd *cli.Command) error {
	service := cmd.String("service")
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

	importer := r.buildImporter(db, config, cmd)

	r.logger.Info("starting like sync", "service", service)
	r.writePlain("Importing likes from %s...\n\n", service)

	progressCh := make(chan tasks.ProgressUpdate, 50)
	go r.printProgress(progressCh)

	result, err := importer.SyncLikes(ctx, conn, progressCh)
	close(progressCh)

	return r.renderOutcome(cmd, result, err)
}

// buildImporter wires repositories and sync options into an Importer.
func (r *Runner) buildImporter(db *sql.DB, config *shared.Config, cmd *cli.Command) *tasks.Importer {
	opts := tasks.ImporterOptions{
		UserID:          config.Sync.UserID,
		PageSize:        config.Sync.PageSize,
		CheckpointEvery: config.Sync.CheckpointEvery,
		KnownFraction:   config.Sync.KnownFraction,
	}
	if pageSize := cmd.Int("page-size"); pageSize > 0 {
		opts.PageSize = pageSize
	}
	if targets := cmd.StringSlice("target"); len(targets) > 0 {
		opts.TargetServices = targets
	}

	return tasks.NewImporter(
		repositories.NewMappingRepository(db),
		repositories.NewTrackRepository(db),
		repositories.NewPlayRepository(db),
		repositories.NewLikeRepository(db),
		repositories.NewCheckpointRepository(db),
		opts,
		r.logger,
	)
}

func (r *Runner) printProgress(progressCh <-chan tasks.ProgressUpdate) {
	for update := range progressCh {
		switch update.Phase {
		case tasks.FetchPage:
			r.writePlain("📥 %s\n", update.Message)
		case tasks.SaveCheckpoint:
			r.writePlain("💾 %s\n", update.Message)
		default:
			r.writePlain("   %s\n", update.Message)
		}
	}
}

// renderOutcome prints the operation summary, honoring --json, and surfaces a
// partial result even when the run aborted early.
func (r *Runner) renderOutcome(cmd *cli.Command, result *models.OperationResult, runErr error) error {
	if result != nil {
		if cmd.Bool("json") {
			if err := r.writeJSON(result, cmd.Bool("pretty")); err != nil {
				return err
			}
		} else {
			r.writePlain("\n%s", ui.RenderResult(result))
		}
	}
	return runErr
}

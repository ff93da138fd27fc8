package main

import (
	"context"
	"fmt"

	"github.com/chorussync/chorus/internal/formatter"
	"github.com/chorussync/chorus/internal/repositories"
	"github.com/chorussync/chorus/internal/shared"
	"github.com/chorussync/chorus/internal/ui"
	"github.com/urfave/cli/v3"
)

// HistoryExport writes the imported play history for a service to disk.
func (r *Runner) HistoryExport(ctx context.Context, cmd *cli.Command) error {
	service := cmd.String("service")
	limit := cmd.Int("limit")
	format := cmd.String("format")
	output := cmd.String("output")
	config := r.loadConfig(cmd)

	db, closeDB, err := r.openDatabase(config)
	if err != nil {
		return err
	}
	defer closeDB()

	plays := repositories.NewPlayRepository(db)
	tracks := repositories.NewTrackRepository(db)

	records, err := plays.ListPlays(ctx, service, limit)
	if err != nil {
		return fmt.Errorf("failed to load plays: %w", err)
	}
	if len(records) == 0 {
		r.writePlain("%s\n", ui.Warn("No plays recorded for "+service+" yet. Run 'chorus sync plays' first."))
		return nil
	}

	ids := make([]int64, 0, len(records))
	for _, play := range records {
		if play.TrackID != 0 {
			ids = append(ids, play.TrackID)
		}
	}
	byID, err := tracks.GetMany(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to load tracks: %w", err)
	}

	export := &formatter.HistoryExport{
		Service: service,
		Plays:   records,
		Tracks:  byID,
	}

	switch format {
	case "csv":
		written, err := formatter.WriteCSVExport(export, nil, output)
		if err != nil {
			return err
		}
		r.writePlain("%s\n", ui.OK("✓ Exported "+written.PlaysFile))
	case "markdown", "md":
		path, err := formatter.WriteMarkdownExport(export, output)
		if err != nil {
			return err
		}
		r.writePlain("%s\n", ui.OK("✓ Exported "+path))
	case "text", "txt":
		path, err := formatter.WriteTextExport(export, output)
		if err != nil {
			return err
		}
		r.writePlain("%s\n", ui.OK("✓ Exported "+path))
	default:
		return fmt.Errorf("%w: unknown format %q", shared.ErrInvalidInput, format)
	}

	r.writePlain("%s\n", ui.Help(fmt.Sprintf("  %d play(s) across %d resolved track(s)", len(records), len(byID))))
	return nil
}

// package formatter provides functions to export play history to various formats (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"time"

	"github.com/chorussync/chorus/internal/models"
	"github.com/chorussync/chorus/internal/shared"
)

// HistoryExport bundles a page of play history with the catalog tracks the
// plays resolve to. Plays whose track is unresolved are still exported,
// falling back to the context captured at import time.
type HistoryExport struct {
	Service string
	Plays   []models.TrackPlay
	Tracks  map[int64]models.Track
}

// row flattens one play into its display fields.
func (e *HistoryExport) row(play models.TrackPlay) (title, artist, album string) {
	if track, ok := e.Tracks[play.TrackID]; ok && play.TrackID != 0 {
		return track.Title(), track.PrimaryArtist(), track.Album()
	}
	title, _ = play.Context["track_name"].(string)
	artist, _ = play.Context["artist_name"].(string)
	album, _ = play.Context["album_name"].(string)
	return title, artist, album
}

// ExportToCSV converts a HistoryExport to CSV with columns:
// PlayedAt, Title, Artist, Album, Service, Duration, TrackID, BatchID
func ExportToCSV(export *HistoryExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"PlayedAt", "Title", "Artist", "Album", "Service", "Duration", "TrackID", "BatchID"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, play := range export.Plays {
		title, artist, album := export.row(play)
		trackID := ""
		if play.TrackID != 0 {
			trackID = fmt.Sprintf("%d", play.TrackID)
		}
		record := []string{
			play.PlayedAt.UTC().Format(time.RFC3339),
			title,
			artist,
			album,
			play.Service,
			shared.FormatDuration(play.MsPlayed),
			trackID,
			play.BatchID,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a HistoryExport to a Markdown listening log.
func ExportToMarkdown(export *HistoryExport) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# Listening History: %s\n\n", export.Service))
	buf.WriteString(fmt.Sprintf("**Plays**: %d\n\n", len(export.Plays)))

	buf.WriteString("## Plays\n\n")
	for i, play := range export.Plays {
		title, artist, album := export.row(play)
		albumPart := ""
		if album != "" {
			albumPart = fmt.Sprintf(" (%s)", album)
		}
		buf.WriteString(fmt.Sprintf("%d. %s - %s%s at %s\n",
			i+1, artist, title, albumPart, play.PlayedAt.UTC().Format("2006-01-02 15:04")))
	}

	return buf.Bytes(), nil
}

// ExportToText converts a HistoryExport to plain text format
func ExportToText(export *HistoryExport) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Service: %s\n", export.Service))
	buf.WriteString(fmt.Sprintf("Plays: %d\n\n", len(export.Plays)))

	for i, play := range export.Plays {
		title, artist, _ := export.row(play)
		buf.WriteString(fmt.Sprintf("%d. %s - %s\n", i+1, artist, title))
	}

	return buf.Bytes(), nil
}

// ToSummaryJSON generates a JSON representation of an operation result.
func ToSummaryJSON(result *models.OperationResult) ([]byte, error) {
	return shared.MarshalJSON(result, true)
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	PlaysFile   string
	SummaryFile string
}

// WriteCSVExport writes play history to {base}_plays.csv, and when result is
// non-nil, the run summary to {base}_summary.json.
func WriteCSVExport(export *HistoryExport, result *models.OperationResult, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = export.Service + "_history"
	}

	csvData, err := ExportToCSV(export)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	playsFile := baseFilepath + "_plays.csv"
	if err := os.WriteFile(playsFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	out := &CSVExportResult{PlaysFile: playsFile}
	if result != nil {
		summaryJSON, err := ToSummaryJSON(result)
		if err != nil {
			return nil, fmt.Errorf("failed to generate summary JSON: %w", err)
		}
		summaryFile := baseFilepath + "_summary.json"
		if err := os.WriteFile(summaryFile, summaryJSON, 0644); err != nil {
			return nil, fmt.Errorf("failed to write summary file: %w", err)
		}
		out.SummaryFile = summaryFile
	}

	return out, nil
}

// WriteMarkdownExport writes play history to a Markdown file.
//
// Defaults to {service}_history.md as the filename.
func WriteMarkdownExport(export *HistoryExport, filepath string) (string, error) {
	if filepath == "" {
		filepath = export.Service + "_history.md"
	}

	mdData, err := ExportToMarkdown(export)
	if err != nil {
		return "", fmt.Errorf("failed to generate Markdown: %w", err)
	}

	if err := os.WriteFile(filepath, mdData, 0644); err != nil {
		return "", fmt.Errorf("failed to write Markdown file: %w", err)
	}

	return filepath, nil
}

// WriteTextExport writes play history to a plain text file.
//
// Defaults to {service}_history.txt as the filename.
func WriteTextExport(export *HistoryExport, filepath string) (string, error) {
	if filepath == "" {
		filepath = export.Service + "_history.txt"
	}

	textData, err := ExportToText(export)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if err := os.WriteFile(filepath, textData, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}

	return filepath, nil
}

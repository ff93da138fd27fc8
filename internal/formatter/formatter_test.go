package formatter

import (
	"encoding/csv"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/chorussync/chorus/internal/models"
	tu "github.com/chorussync/chorus/internal/testing"
)

func testExport() *HistoryExport {
	playedAt := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	resolved := models.PlayRecord{
		ArtistName: "Radiohead",
		TrackName:  "Karma Police",
		PlayedAt:   playedAt,
		Service:    "lastfm",
		AlbumName:  "OK Computer",
	}
	unresolved := models.PlayRecord{
		ArtistName: "Unknown Artist",
		TrackName:  "Unknown Track",
		PlayedAt:   playedAt.Add(time.Hour),
		Service:    "lastfm",
	}
	return &HistoryExport{
		Service: "lastfm",
		Plays: []models.TrackPlay{
			resolved.ToTrackPlay(1, "batch-1", playedAt),
			unresolved.ToTrackPlay(0, "batch-1", playedAt),
		},
		Tracks: map[int64]models.Track{
			1: models.NewTrack("Karma Police", models.Artist{Name: "Radiohead"}).
				WithID(1).
				WithAlbum("OK Computer").
				WithDurationMS(261000),
		},
	}
}

func TestExportToCSV(t *testing.T) {
	data, err := ExportToCSV(testExport())
	if err != nil {
		t.Fatalf("ExportToCSV() error = %v", err)
	}

	records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	if err != nil {
		t.Fatalf("failed to parse generated CSV: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d rows, want header + 2 plays", len(records))
	}
	if records[0][0] != "PlayedAt" {
		t.Errorf("first header = %q, want PlayedAt", records[0][0])
	}

	// The resolved play reads from the catalog track.
	if records[1][1] != "Karma Police" || records[1][2] != "Radiohead" {
		t.Errorf("resolved row = %v, want catalog title/artist", records[1])
	}
	if records[1][6] != "1" {
		t.Errorf("resolved row track id = %q, want 1", records[1][6])
	}

	// The unresolved play falls back to its import context.
	if records[2][1] != "Unknown Track" || records[2][2] != "Unknown Artist" {
		t.Errorf("unresolved row = %v, want context title/artist", records[2])
	}
	if records[2][6] != "" {
		t.Errorf("unresolved row track id = %q, want empty", records[2][6])
	}
}

func TestExportToMarkdown(t *testing.T) {
	data, err := ExportToMarkdown(testExport())
	if err != nil {
		t.Fatalf("ExportToMarkdown() error = %v", err)
	}

	md := string(data)
	if !strings.Contains(md, "# Listening History: lastfm") {
		t.Error("missing title heading")
	}
	if !strings.Contains(md, "**Plays**: 2") {
		t.Error("missing play count")
	}
	if !strings.Contains(md, "1. Radiohead - Karma Police (OK Computer)") {
		t.Errorf("missing resolved play line in:\n%s", md)
	}
}

func TestExportToText(t *testing.T) {
	data, err := ExportToText(testExport())
	if err != nil {
		t.Fatalf("ExportToText() error = %v", err)
	}

	text := string(data)
	if !strings.Contains(text, "Service: lastfm") {
		t.Error("missing service line")
	}
	if !strings.Contains(text, "2. Unknown Artist - Unknown Track") {
		t.Errorf("missing unresolved play line in:\n%s", text)
	}
}

func TestWriteCSVExport(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "export")

	result := models.NewOperationResult("history_export_lastfm")
	result.Exported = 2

	out, err := WriteCSVExport(testExport(), result, base)
	if err != nil {
		t.Fatalf("WriteCSVExport() error = %v", err)
	}

	tu.AssertFileExists(t, out.PlaysFile)
	tu.AssertFileExists(t, out.SummaryFile)

	summary := tu.MustReadFile(t, out.SummaryFile)
	if !strings.Contains(summary, "history_export_lastfm") {
		t.Errorf("summary does not carry the operation name:\n%s", summary)
	}
}

func TestWriteCSVExportWithoutSummary(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "export")

	out, err := WriteCSVExport(testExport(), nil, base)
	if err != nil {
		t.Fatalf("WriteCSVExport() error = %v", err)
	}
	tu.AssertFileExists(t, out.PlaysFile)
	if out.SummaryFile != "" {
		t.Errorf("summary file = %q, want empty when no result given", out.SummaryFile)
	}
}

func TestWriteMarkdownExport(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteMarkdownExport(testExport(), filepath.Join(dir, "history.md"))
	if err != nil {
		t.Fatalf("WriteMarkdownExport() error = %v", err)
	}
	tu.AssertFileExists(t, path)
}

func TestWriteTextExport(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteTextExport(testExport(), filepath.Join(dir, "history.txt"))
	if err != nil {
		t.Fatalf("WriteTextExport() error = %v", err)
	}
	tu.AssertFileExists(t, path)
}

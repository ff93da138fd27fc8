package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/chorussync/chorus/internal/models"
)

const timePrecision = time.Millisecond

// Title renders a section heading.
func Title(s string) string {
	return styles.title.Render(s)
}

// OK renders a success line.
func OK(s string) string {
	return styles.ok.Render(s)
}

// Err renders an error line.
func Err(s string) string {
	return styles.err.Render(s)
}

// Warn renders a warning line.
func Warn(s string) string {
	return styles.warn.Render(s)
}

// Help renders de-emphasized hint text.
func Help(s string) string {
	return styles.help.Render(s)
}

// RenderResult formats an operation result as a styled multi-line summary.
func RenderResult(result *models.OperationResult) string {
	var b strings.Builder

	b.WriteString(Title(result.Operation))
	b.WriteString("\n")

	b.WriteString(countLine("imported", result.Imported, styles.ok))
	if result.Exported > 0 {
		b.WriteString(countLine("exported", result.Exported, styles.ok))
	}
	if result.Skipped > 0 {
		b.WriteString(countLine("skipped (duplicates)", result.Skipped, styles.help))
	}
	if result.AlreadySatisfied > 0 {
		b.WriteString(countLine("already in sync", result.AlreadySatisfied, styles.help))
	}
	if result.ErrorCount > 0 {
		b.WriteString(countLine("errors", result.ErrorCount, styles.err))
		for _, msg := range result.Errors {
			b.WriteString("    " + styles.err.Render("- "+msg) + "\n")
		}
	}

	if len(result.Metrics) > 0 {
		b.WriteString(fmt.Sprintf("  %s %d metric(s) across %d track(s)\n",
			styles.ok.Render("extracted"), len(result.Metrics), metricTrackCount(result)))
	}

	if result.Candidates > 0 {
		b.WriteString(Help(fmt.Sprintf("  %d candidate(s), %.0f%% already satisfied",
			result.Candidates, result.EfficiencyRate()*100)))
		b.WriteString("\n")
	}
	b.WriteString(Help(fmt.Sprintf("  finished in %s", result.ExecutionTime.Round(timePrecision))))
	b.WriteString("\n")

	return b.String()
}

func countLine(label string, count int, style lipgloss.Style) string {
	return fmt.Sprintf("  %s %d\n", style.Render(label+":"), count)
}

func metricTrackCount(result *models.OperationResult) int {
	seen := make(map[int64]struct{})
	for _, byTrack := range result.Metrics {
		for id := range byTrack {
			seen[id] = struct{}{}
		}
	}
	return len(seen)
}

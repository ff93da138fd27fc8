// Package shared defines cross-cutting helpers: logging, configuration,
// database access, migrations, and id generation.
package shared

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// NewLogger creates a new [log.Logger] writing to w, with timestamps and
// caller reporting enabled. The writer defaults to [os.Stderr].
func NewLogger(w io.Writer) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := log.Options{ReportTimestamp: true, ReportCaller: true}
	return log.NewWithOptions(w, opts)
}

// GenerateID generates a new v4 [uuid.UUID] as a string. Used for checkpoint
// ids and import batch ids; catalog ids come from sqlite.
func GenerateID() string {
	return uuid.New().String()
}

// FormatDuration renders a millisecond duration as m:ss. Unknown durations
// (zero or negative) render as "-".
func FormatDuration(ms int64) string {
	if ms <= 0 {
		return "-"
	}
	seconds := ms / 1000
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// MarshalJSON marshals v, optionally indented for human consumption.
func MarshalJSON(v any, indent bool) ([]byte, error) {
	if indent {
		return json.MarshalIndent(v, "", "  ")
	}
	return json.Marshal(v)
}

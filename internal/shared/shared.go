// package shared defines shared helpers
package shared

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// NewLogger creates a [log.Logger] writing to w with timestamps and caller
// reporting enabled. A nil writer falls back to [os.Stderr], keeping log
// output off stdout where playlists and JSON listings are printed.
func NewLogger(w io.Writer) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := log.Options{ReportTimestamp: true, ReportCaller: true}
	return log.NewWithOptions(w, opts)
}

// WithLogger creates a child [log.Logger] carrying the given key-value pairs
// on every entry.
func WithLogger(l *log.Logger, kv ...any) *log.Logger {
	return l.With(kv...)
}

// SetLogLevel sets the [log.Level] for the given [log.Logger].
func SetLogLevel(l *log.Logger, ll log.Level) {
	l.SetLevel(ll)
}

// GenerateID returns a new v4 [uuid.UUID] string, used as the sync run key.
func GenerateID() string {
	return uuid.New().String()
}

package sources

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/zkrising/tachi-import-scripts/internal/logging"
)

// Rejection explains why a row did not become a score. Rejections are values,
// never errors: the run continues with the next row.
type Rejection struct {
	Identifier string
	Title      string
	Reason     string
	Level      slog.Level
	// Filtered marks rows that are out of scope (unsupported chart modes)
	// rather than invalid.
	Filtered bool
}

// Reject builds a rejection logged at level.
func Reject(level slog.Level, identifier, title, format string, args ...any) *Rejection {
	return &Rejection{
		Identifier: identifier,
		Title:      title,
		Reason:     fmt.Sprintf(format, args...),
		Level:      level,
	}
}

// Filter builds a debug-level rejection for an out-of-scope row.
func Filter(identifier, title, format string, args ...any) *Rejection {
	r := Reject(slog.LevelDebug, identifier, title, format, args...)
	r.Filtered = true
	return r
}

// Log writes the rejection at its level. Warnings carry the standard
// event_type, error_hint and impact fields.
func (r Rejection) Log(ctx context.Context, logger *slog.Logger) {
	if logger == nil {
		return
	}
	attrs := []logging.Attr{logging.String("identifier", r.Identifier)}
	if r.Title != "" {
		attrs = append(attrs, logging.String("chart", r.Title))
	}
	switch {
	case r.Level >= slog.LevelError:
		logging.ErrorWithContext(logger, r.Reason, "score_rejected", attrs...)
	case r.Level >= slog.LevelWarn:
		logging.WarnWithContext(logger, r.Reason, "score_rejected", attrs...)
	default:
		logger.Log(ctx, r.Level, r.Reason, logging.Args(attrs...)...)
	}
}

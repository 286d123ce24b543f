// Package logging assembles structured slog loggers and formatting helpers used
// across tis.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so readers and the submission
// client can tag log lines with the conversion source, playtype and request
// id. A StreamHub receives a copy of every record; the CLI reads its level
// totals for the import report and its tail for --events output. The package
// also provides a no-op logger for tests and wiring code that cannot fail.
package logging

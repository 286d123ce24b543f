package usc

import (
	"context"
	"log/slog"

	"github.com/zkrising/tachi-import-scripts/internal/batchmanual"
	"github.com/zkrising/tachi-import-scripts/internal/logging"
	"github.com/zkrising/tachi-import-scripts/internal/sources"
)

// Source is the tag used for USC conversions.
const Source = "usc"

const buggedWindowsWarning = "Score detected with bugged hit windows! A game update has caused the new hit windows to partially apply. " +
	"Go into settings and reset your hit windows, as you are playing on tighter hit windows than normal. " +
	"For compatibility reasons, this score will be accepted."

// Convert reads every score in maps.db and normalizes it for playtype.
func Convert(ctx context.Context, path string, playtype batchmanual.Playtype, logger *slog.Logger) (sources.Report, error) {
	logger = logging.NewComponentLogger(logger, Source).With(logging.String(logging.FieldPlaytype, string(playtype)))
	report := sources.Report{Source: Source}

	reader, err := Open(ctx, path)
	if err != nil {
		logger.Error("refusing to convert maps.db", logging.Error(err))
		return report, err
	}
	defer reader.Close()
	logger.Debug("opened maps.db", logging.Int("schema_version", reader.Version()))

	err = reader.Each(ctx, func(row Row) error {
		score, rej := Normalize(row, playtype)
		if rej != nil {
			rej.Log(ctx, logger)
			report.Skip(*rej)
			return nil
		}
		logRowNotes(ctx, logger, row)
		report.Accept(score)
		return ctx.Err()
	})
	if err != nil {
		return report, err
	}

	logger.Info("usc conversion finished",
		logging.Int("rows", report.Rows),
		logging.Int("scores", len(report.Scores)),
		logging.Int("rejected", report.Rejected()),
	)
	return report, nil
}

// logRowNotes reports accepted rows that are unusual but still importable.
func logRowNotes(ctx context.Context, logger *slog.Logger, row Row) {
	name := Name(row)
	switch row.Windows.Preset() {
	case WindowsLegacy:
		logger.DebugContext(ctx, "allowing score with legacy hit windows", logging.String("chart", name))
	case WindowsBugged:
		logging.WarnWithContext(logger, buggedWindowsWarning, "bugged_hit_windows",
			logging.String("chart", name),
			logging.Alert("reset_hit_windows"),
			logging.String(logging.FieldImpact, "score imported with tighter hit windows than normal"),
			logging.String(logging.FieldErrorHint, "reset hit windows in the game settings"),
		)
	}
	if _, ok := GaugeMod(row.GaugeType); !ok {
		logger.DebugContext(ctx, "unknown gauge type, omitting gauge mod",
			logging.String("chart", name), logging.Int("gauge_type", row.GaugeType))
	}
	if row.AutoFlags != 0 {
		logger.DebugContext(ctx, "score has autoplay flags set",
			logging.String("chart", name), logging.Int("auto_flags", row.AutoFlags))
	}
}

package beatoraja

import (
	"context"
	"log/slog"

	"github.com/zkrising/tachi-import-scripts/internal/logging"
	"github.com/zkrising/tachi-import-scripts/internal/sources"
)

// Source is the tag used for beatoraja conversions.
const Source = "beatoraja"

// Convert reads every mode 0 score, normalizes it and logs each rejection.
func Convert(ctx context.Context, scorePath, chartPath string, logger *slog.Logger) (sources.Report, error) {
	logger = logging.NewComponentLogger(logger, Source)
	report := sources.Report{Source: Source}

	reader, err := Open(ctx, scorePath, chartPath)
	if err != nil {
		return report, err
	}
	defer reader.Close()

	logger.Debug("cross-referencing scores with songdata.db", logging.String("score_db", scorePath), logging.String("chart_db", chartPath))

	err = reader.Each(ctx, func(row Row) error {
		score, rej := Normalize(row)
		if rej != nil {
			rej.Log(ctx, logger)
			report.Skip(*rej)
			return nil
		}
		report.Accept(score)
		return ctx.Err()
	})
	if err != nil {
		return report, err
	}

	logger.Info("beatoraja conversion finished",
		logging.Int("rows", report.Rows),
		logging.Int("scores", len(report.Scores)),
		logging.Int("rejected", report.Rejected()),
		logging.Int("filtered", report.Filtered()),
	)
	return report, nil
}

package lr2

import (
	"context"
	"log/slog"

	"github.com/zkrising/tachi-import-scripts/internal/logging"
	"github.com/zkrising/tachi-import-scripts/internal/sources"
)

// Source is the tag used for LR2 conversions.
const Source = "lr2"

// Convert reads every completed score, normalizes it and logs each rejection.
// Store failures are returned; row problems end up in the report.
func Convert(ctx context.Context, scorePath, chartPath string, logger *slog.Logger) (sources.Report, error) {
	logger = logging.NewComponentLogger(logger, Source)
	report := sources.Report{Source: Source}

	reader, err := Open(ctx, scorePath, chartPath)
	if err != nil {
		return report, err
	}
	defer reader.Close()

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

	logger.Info("lr2 conversion finished",
		logging.Int("rows", report.Rows),
		logging.Int("scores", len(report.Scores)),
		logging.Int("rejected", report.Rejected()),
		logging.Int("filtered", report.Filtered()),
	)
	return report, nil
}

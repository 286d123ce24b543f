package convert

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zkrising/tachi-import-scripts/internal/batchmanual"
	"github.com/zkrising/tachi-import-scripts/internal/logging"
	"github.com/zkrising/tachi-import-scripts/internal/services"
	"github.com/zkrising/tachi-import-scripts/internal/sources"
	"github.com/zkrising/tachi-import-scripts/internal/sources/beatoraja"
	"github.com/zkrising/tachi-import-scripts/internal/sources/lr2"
	"github.com/zkrising/tachi-import-scripts/internal/sources/usc"
)

// Source identifies a supported score database.
type Source string

const (
	SourceLR2       Source = lr2.Source
	SourceBeatoraja Source = beatoraja.Source
	SourceUSC       Source = usc.Source
)

// Sources lists every supported source in display order.
func Sources() []Source {
	return []Source{SourceLR2, SourceBeatoraja, SourceUSC}
}

// ParseSource resolves a user-supplied source tag.
func ParseSource(value string) (Source, error) {
	tag := Source(strings.ToLower(strings.TrimSpace(value)))
	switch tag {
	case SourceLR2, SourceBeatoraja, SourceUSC:
		return tag, nil
	case "lr2oraja":
		return SourceBeatoraja, nil
	}
	return "", services.Wrap(services.ErrValidation, "convert", "parse source",
		fmt.Sprintf("unknown source %q (expected lr2, beatoraja or usc)", value), nil)
}

// Request describes one conversion. LR2 and beatoraja read ScorePath and
// ChartPath; USC reads DBPath and needs a Playtype.
type Request struct {
	Source    Source
	ScorePath string
	ChartPath string
	DBPath    string
	Playtype  batchmanual.Playtype
}

// Validate checks the fields the source needs.
func (r Request) Validate() error {
	var problems []string
	switch r.Source {
	case SourceLR2, SourceBeatoraja:
		if strings.TrimSpace(r.ScorePath) == "" {
			problems = append(problems, "score database path is required")
		}
		if strings.TrimSpace(r.ChartPath) == "" {
			problems = append(problems, "chart database path is required")
		}
	case SourceUSC:
		if strings.TrimSpace(r.DBPath) == "" {
			problems = append(problems, "maps.db path is required")
		}
		if _, ok := batchmanual.ParseUSCPlaytype(string(r.Playtype)); !ok {
			problems = append(problems, fmt.Sprintf("playtype must be Controller or Keyboard, got %q", r.Playtype))
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown source %q", r.Source))
	}
	if len(problems) > 0 {
		return services.Wrap(services.ErrValidation, "convert", "validate request", strings.Join(problems, "; "), nil)
	}
	return nil
}

// Result is the outcome of a successful conversion.
type Result struct {
	RunID    string
	Report   sources.Report
	Batches  []batchmanual.Batch
	Duration time.Duration
}

// Observer receives every finished report.
type Observer interface {
	ObserveConversion(report sources.Report)
}

// Converter runs conversions.
type Converter struct {
	base     *slog.Logger
	logger   *slog.Logger
	service  string
	observer Observer
	now      func() time.Time
}

// Option configures a Converter.
type Option func(*Converter)

// WithObserver registers an observer for finished reports.
func WithObserver(o Observer) Option {
	return func(c *Converter) { c.observer = o }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Converter) {
		if now != nil {
			c.now = now
		}
	}
}

// New constructs a Converter stamping batches with service.
func New(service string, logger *slog.Logger, opts ...Option) *Converter {
	if logger == nil {
		logger = logging.NewNop()
	}
	c := &Converter{
		base:    logger,
		logger:  logging.NewComponentLogger(logger, "convert"),
		service: service,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run converts the request and groups the scores into batches. A run that
// converts no scores returns batchmanual.ErrEmpty together with the report.
func (c *Converter) Run(ctx context.Context, req Request) (Result, error) {
	if err := req.Validate(); err != nil {
		return Result{}, err
	}

	runID := uuid.NewString()
	ctx = services.WithSource(ctx, string(req.Source))
	ctx = services.WithRequestID(ctx, runID)
	logger := logging.WithContext(ctx, c.logger)

	start := c.now()
	logger.Info("converting scores", logging.Bool(logging.FieldProgress, true), logging.String("stage", "reading"))

	report, err := c.dispatch(ctx, req, logging.WithContext(ctx, c.base))
	result := Result{RunID: runID, Report: report, Duration: c.now().Sub(start)}
	if err != nil {
		logging.ErrorWithContext(logger, "conversion failed", "conversion_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, hintFor(err)),
		)
		return result, err
	}
	if c.observer != nil {
		c.observer.ObserveConversion(report)
	}

	batches, err := batchmanual.Build(c.service, report.Scores)
	if err != nil {
		logging.WarnWithContext(logger, "converted no scores, nothing will be uploaded", "conversion_empty",
			logging.Int("rows", report.Rows),
			logging.String(logging.FieldImpact, "no batch produced"),
		)
		return result, err
	}
	result.Batches = batches

	logger.Info("conversion complete",
		logging.Bool(logging.FieldProgress, true),
		logging.String("stage", "built"),
		logging.Int("batches", len(batches)),
		logging.Int("scores", batchmanual.Count(batches)),
		logging.Duration("duration", result.Duration),
	)
	return result, nil
}

func (c *Converter) dispatch(ctx context.Context, req Request, logger *slog.Logger) (sources.Report, error) {
	switch req.Source {
	case SourceLR2:
		return lr2.Convert(ctx, req.ScorePath, req.ChartPath, logger)
	case SourceBeatoraja:
		return beatoraja.Convert(ctx, req.ScorePath, req.ChartPath, logger)
	case SourceUSC:
		return usc.Convert(ctx, req.DBPath, req.Playtype, logger)
	default:
		return sources.Report{}, services.Wrap(services.ErrValidation, "convert", "dispatch", fmt.Sprintf("unknown source %q", req.Source), nil)
	}
}

func hintFor(err error) string {
	switch services.Kind(err) {
	case "not_found":
		return "check the database path in the config or on the command line"
	case "corrupt":
		return "the file is not the database this source expects"
	case "unsupported_schema":
		return "update the game or this tool"
	default:
		return "check logs for details"
	}
}

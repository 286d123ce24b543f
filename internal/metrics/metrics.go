// Package metrics counts conversion and import outcomes with Prometheus
// collectors and writes them in the node-exporter textfile format.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/zkrising/tachi-import-scripts/internal/sources"
	"github.com/zkrising/tachi-import-scripts/internal/tachi"
)

const namespace = "tis"

// Recorder holds the collectors for one process. A nil Recorder ignores
// every observation.
type Recorder struct {
	registry *prometheus.Registry
	now      func() time.Time

	rows           *prometheus.CounterVec
	converted      *prometheus.CounterVec
	rejected       *prometheus.CounterVec
	imports        *prometheus.CounterVec
	importedScores *prometheus.CounterVec
	fallbackFiles  prometheus.Counter
	importDuration *prometheus.HistogramVec
	lastRun        prometheus.Gauge
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithClock overrides the time used for the last-run gauge.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) {
		if now != nil {
			r.now = now
		}
	}
}

// New creates a Recorder on its own registry.
func New(opts ...Option) *Recorder {
	r := &Recorder{registry: prometheus.NewRegistry(), now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	auto := promauto.With(r.registry)

	r.rows = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "conversion",
		Name:      "rows_total",
		Help:      "Score rows read from local databases.",
	}, []string{"source"})
	r.converted = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "conversion",
		Name:      "scores_total",
		Help:      "Score rows converted into batch-manual scores.",
	}, []string{"source", "playtype"})
	r.rejected = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "conversion",
		Name:      "skipped_total",
		Help:      "Score rows skipped, by kind (rejected or filtered).",
	}, []string{"source", "kind"})
	r.imports = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "import",
		Name:      "submissions_total",
		Help:      "Batch submissions by terminal state.",
	}, []string{"game", "playtype", "state"})
	r.importedScores = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "import",
		Name:      "scores_total",
		Help:      "Scores reported by the server, by result (new or failed).",
	}, []string{"game", "playtype", "result"})
	r.fallbackFiles = auto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "import",
		Name:      "fallback_files_total",
		Help:      "Batches saved to the fallback directory after a failed submission.",
	})
	r.importDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "import",
		Name:      "duration_seconds",
		Help:      "Time from submission to terminal state.",
		Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	}, []string{"state"})
	r.lastRun = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_run_timestamp_seconds",
		Help:      "Unix time of the last recorded conversion or import.",
	})
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// ObserveConversion records a finished conversion report.
func (r *Recorder) ObserveConversion(report sources.Report) {
	if r == nil {
		return
	}
	source := report.Source
	r.rows.WithLabelValues(source).Add(float64(report.Rows))
	for playtype, n := range report.Playtypes() {
		r.converted.WithLabelValues(source, string(playtype)).Add(float64(n))
	}
	r.rejected.WithLabelValues(source, "rejected").Add(float64(report.Rejected()))
	r.rejected.WithLabelValues(source, "filtered").Add(float64(report.Filtered()))
	r.touch()
}

// ObserveImport records a submission result.
func (r *Recorder) ObserveImport(result tachi.Result) {
	if r == nil {
		return
	}
	game, playtype := string(result.Game), string(result.Playtype)
	state := strings.ToLower(string(result.State))
	r.imports.WithLabelValues(game, playtype, state).Inc()
	r.importedScores.WithLabelValues(game, playtype, "new").Add(float64(result.NewScores()))
	r.importedScores.WithLabelValues(game, playtype, "failed").Add(float64(result.Failed()))
	if result.FallbackPath != "" {
		r.fallbackFiles.Inc()
	}
	if n := len(result.Transitions); n > 0 {
		elapsed := result.Transitions[n-1].At.Sub(result.Transitions[0].At)
		r.importDuration.WithLabelValues(state).Observe(elapsed.Seconds())
	}
	r.touch()
}

func (r *Recorder) touch() {
	r.lastRun.Set(float64(r.now().Unix()))
}

// WriteTextfile writes every collector to path in the text exposition format.
// The write is atomic, so a node-exporter scrape never sees a partial file.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || strings.TrimSpace(path) == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

package usc_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/zkrising/tachi-import-scripts/internal/batchmanual"
	"github.com/zkrising/tachi-import-scripts/internal/logging"
	"github.com/zkrising/tachi-import-scripts/internal/services"
	"github.com/zkrising/tachi-import-scripts/internal/sources/usc"
	"github.com/zkrising/tachi-import-scripts/internal/testsupport"
)

func row() usc.Row {
	return usc.Row{
		ChartHash:  "c0ffee",
		Score:      9_876_543,
		Crit:       1200,
		Near:       30,
		Miss:       4,
		Gauge:      0.85,
		GaugeType:  usc.GaugeNormal,
		Timestamp:  1650000000,
		Windows:    usc.DefaultWindows,
		Title:      "Grievous Lady",
		Difficulty: "GRV",
	}
}

func TestLamp(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*usc.Row)
		want   batchmanual.Lamp
	}{
		{"perfect", func(r *usc.Row) { r.Score = usc.MaxScore; r.Miss = 0 }, "PERFECT ULTIMATE CHAIN"},
		{"perfect beats misses", func(r *usc.Row) { r.Score = usc.MaxScore }, "PERFECT ULTIMATE CHAIN"},
		{"no misses", func(r *usc.Row) { r.Miss = 0; r.Gauge = 0.1 }, "ULTIMATE CHAIN"},
		{"hard survived", func(r *usc.Row) { r.GaugeType = usc.GaugeHard; r.Gauge = 0.01 }, "EXCESSIVE CLEAR"},
		{"hard failed", func(r *usc.Row) { r.GaugeType = usc.GaugeHard; r.Gauge = 0 }, "FAILED"},
		{"normal clear", func(r *usc.Row) { r.Gauge = 0.7 }, "CLEAR"},
		{"normal failed", func(r *usc.Row) { r.Gauge = 0.69 }, "FAILED"},
		{"unknown gauge uses normal rule", func(r *usc.Row) { r.GaugeType = 3; r.Gauge = 0.9 }, "CLEAR"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := row()
			tc.mutate(&r)
			if got := usc.Lamp(r); got != tc.want {
				t.Fatalf("Lamp = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestNoteMod(t *testing.T) {
	cases := []struct {
		mirror, random bool
		want           batchmanual.NoteMod
	}{
		{true, true, "MIR-RAN"},
		{true, false, "MIRROR"},
		{false, true, "RANDOM"},
		{false, false, "NORMAL"},
	}
	for _, tc := range cases {
		if got := usc.NoteMod(tc.mirror, tc.random); got != tc.want {
			t.Fatalf("NoteMod(%v, %v) = %q", tc.mirror, tc.random, got)
		}
	}
}

func TestHitWindowPresets(t *testing.T) {
	if usc.DefaultWindows.Preset() != usc.WindowsDefault ||
		usc.LegacyWindows.Preset() != usc.WindowsLegacy ||
		usc.BuggedWindows.Preset() != usc.WindowsBugged {
		t.Fatal("known presets misclassified")
	}
	custom := usc.DefaultWindows
	custom.Perfect = 40
	if custom.Preset() != usc.WindowsInvalid {
		t.Fatal("custom windows must be invalid")
	}
}

func TestNormalizeAcceptedRow(t *testing.T) {
	r := row()
	r.Mirror = true
	r.Early = batchmanual.Ptr(12)
	score, rej := usc.Normalize(r, batchmanual.PlaytypeKeyboard)
	if rej != nil {
		t.Fatalf("unexpected rejection: %+v", rej)
	}
	if score.Game != batchmanual.GameUSC || score.Playtype != batchmanual.PlaytypeKeyboard || score.MatchType != batchmanual.MatchUSCChartHash {
		t.Fatalf("routing = %+v", score)
	}
	if score.Judgements["critical"] != 1200 || score.Judgements["near"] != 30 || score.Judgements["miss"] != 4 {
		t.Fatalf("judgements = %v", score.Judgements)
	}
	if *score.HitMeta.Fast != 12 || score.HitMeta.Slow != nil || score.HitMeta.MaxCombo != nil {
		t.Fatalf("hitMeta = %+v", score.HitMeta)
	}
	if *score.HitMeta.Gauge != 85 {
		t.Fatalf("gauge = %v", *score.HitMeta.Gauge)
	}
	if score.ScoreMeta.NoteMod != batchmanual.NoteModMirror || score.ScoreMeta.GaugeMod != batchmanual.GaugeModNormal {
		t.Fatalf("scoreMeta = %+v", score.ScoreMeta)
	}
	if *score.TimeAchieved != 1650000000000 {
		t.Fatalf("timeAchieved = %d", *score.TimeAchieved)
	}
}

func TestNormalizeUnknownGaugeOmitsGaugeMod(t *testing.T) {
	r := row()
	r.GaugeType = 2
	score, rej := usc.Normalize(r, batchmanual.PlaytypeController)
	if rej != nil {
		t.Fatalf("unexpected rejection: %+v", rej)
	}
	if score.ScoreMeta.GaugeMod != "" {
		t.Fatalf("gaugeMod = %q", score.ScoreMeta.GaugeMod)
	}
}

func TestNormalizeInvalidWindowsRejectedAtErrorLevel(t *testing.T) {
	r := row()
	r.Windows = usc.HitWindows{Perfect: 1, Good: 2, Hold: 3, Miss: 4, Slam: 5}
	_, rej := usc.Normalize(r, batchmanual.PlaytypeController)
	if rej == nil || rej.Level != slog.LevelError {
		t.Fatalf("rejection = %+v", rej)
	}
	if rej.Title != "Grievous Lady [GRV] (9,876,543)" {
		t.Fatalf("title = %q", rej.Title)
	}
}

func TestCheckVersion(t *testing.T) {
	for _, v := range []int{19, 20} {
		if err := usc.CheckVersion(v); err != nil {
			t.Fatalf("version %d: %v", v, err)
		}
	}
	for _, v := range []int{18, 21} {
		if err := usc.CheckVersion(v); !errors.Is(err, services.ErrUnsupportedSchema) {
			t.Fatalf("version %d: expected ErrUnsupportedSchema, got %v", v, err)
		}
	}
}

func TestConvertFixtureDatabase(t *testing.T) {
	hub := logging.NewStreamHub(64)
	logger, err := logging.New(logging.Options{Level: "debug", Format: "json", Writer: io.Discard, Stream: hub})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}

	scores := []testsupport.USCScore{
		{ChartHash: "a", Score: usc.MaxScore, Crit: 100, Gauge: 1, Timestamp: 1, Windows: testsupport.USCDefaultWindows, Combo: 100},
		{ChartHash: "b", Score: 9_000_000, Crit: 90, Miss: 3, Gauge: 0.75, Timestamp: 2, Windows: [5]int{46, 92, 138, 300, 84}, Early: 1, Late: 2},
		{ChartHash: "c", Score: 8_000_000, Miss: 10, Gauge: 0.2, Timestamp: 3, Windows: [5]int{1, 2, 3, 4, 5}},
		{ChartHash: "orphan", Score: 7_000_000, Miss: 10, Gauge: 0.2, GaugeType: 1, AutoFlags: 2, Timestamp: 4, Windows: [5]int{46, 92, 138, 250, 84}},
	}
	charts := []testsupport.USCChart{
		{Hash: "a", Title: "Alpha", DiffShortname: "MXM"},
		{Hash: "b", Title: "Beta", DiffShortname: "EXH"},
		{Hash: "c", Title: "Gamma", DiffShortname: "ADV"},
	}
	path := testsupport.USCDatabase(t, t.TempDir(), 20, scores, charts)

	report, err := usc.Convert(context.Background(), path, batchmanual.PlaytypeController, logger)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if len(report.Scores) != 3 || report.Rejected() != 1 {
		t.Fatalf("scores=%d rejected=%d", len(report.Scores), report.Rejected())
	}
	if report.Scores[0].Lamp != batchmanual.LampPerfectUltimateChain {
		t.Fatalf("lamp = %q", report.Scores[0].Lamp)
	}
	if report.Scores[2].Identifier != "orphan" || report.Scores[2].Lamp != batchmanual.LampExcessiveClear {
		t.Fatalf("orphan score = %+v", report.Scores[2])
	}

	var alerted, errored bool
	events, _ := hub.Tail(64)
	for _, evt := range events {
		if evt.Level == "WARN" && evt.Fields["alert"] != "" {
			alerted = true
		}
		if evt.Level == "ERROR" && evt.Fields["chart"] == "Gamma [ADV] (8,000,000)" {
			errored = true
		}
	}
	if !alerted {
		t.Fatal("bugged hit windows must raise an alert")
	}
	if !errored {
		t.Fatal("invalid hit windows must log at error level")
	}
}

func TestConvertRejectsUnsupportedVersion(t *testing.T) {
	path := testsupport.USCDatabase(t, t.TempDir(), 18, nil, nil)
	_, err := usc.Convert(context.Background(), path, batchmanual.PlaytypeController, nil)
	if !errors.Is(err, services.ErrUnsupportedSchema) {
		t.Fatalf("expected ErrUnsupportedSchema, got %v", err)
	}
}

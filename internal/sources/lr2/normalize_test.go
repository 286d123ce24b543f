package lr2_test

import (
	"errors"
	"log/slog"
	"reflect"
	"testing"

	"github.com/zkrising/tachi-import-scripts/internal/batchmanual"
	"github.com/zkrising/tachi-import-scripts/internal/sources/lr2"
)

func intPtr(v int) *int { return &v }

func baseRow() lr2.Row {
	return lr2.Row{
		Score: lr2.Score{
			Hash:     "0123456789abcdef0123456789abcdef",
			Clear:    3,
			Perfect:  500,
			Great:    234,
			Good:     10,
			Bad:      2,
			Poor:     5,
			MaxCombo: 400,
			MinBP:    intPtr(7),
			Option:   lr2.DecodePlayOption(10),
		},
		Chart: &lr2.Chart{Title: "Freedom Dive", Subtitle: "[ANOTHER]", Mode: 7},
	}
}

func TestDecodePlayOption(t *testing.T) {
	cases := []struct {
		code  int
		want  batchmanual.Random
		valid bool
	}{
		{0, batchmanual.RandomNone, true},
		{5, batchmanual.RandomNone, true},
		{12, batchmanual.RandomMirror, true},
		{21, batchmanual.RandomRandom, true},
		{30, batchmanual.RandomSRandom, true},
		{39, batchmanual.RandomSRandom, true},
		{40, "", false},
		{100, "", false},
		{101, "", false},
		{-1, "", false},
	}
	for _, tc := range cases {
		got := lr2.DecodePlayOption(tc.code)
		if got.Valid != tc.valid || got.Random != tc.want || got.Code != tc.code {
			t.Fatalf("DecodePlayOption(%d) = %+v, want %q valid=%v", tc.code, got, tc.want, tc.valid)
		}
	}
}

func TestLampMappingIsTotal(t *testing.T) {
	want := []batchmanual.Lamp{"NO PLAY", "FAILED", "EASY CLEAR", "CLEAR", "HARD CLEAR", "FULL COMBO"}
	for code, lamp := range want {
		got, ok := lr2.Lamp(code)
		if !ok || got != lamp {
			t.Fatalf("Lamp(%d) = %q %v, want %q", code, got, ok, lamp)
		}
	}
	for _, code := range []int{-1, 6, 99} {
		if _, ok := lr2.Lamp(code); ok {
			t.Fatalf("Lamp(%d) should be rejected", code)
		}
	}
}

func TestNormalizeAcceptedRow(t *testing.T) {
	row := baseRow()
	row.Score.Option = lr2.DecodePlayOption(21)

	score, rej := lr2.Normalize(row)
	if rej != nil {
		t.Fatalf("unexpected rejection: %+v", rej)
	}
	if score.Score != 2*500+234 {
		t.Fatalf("score = %d", score.Score)
	}
	if score.Lamp != batchmanual.LampClear {
		t.Fatalf("lamp = %q", score.Lamp)
	}
	if score.Playtype != batchmanual.Playtype7K || score.Game != batchmanual.GameBMS {
		t.Fatalf("routing = %s/%s", score.Game, score.Playtype)
	}
	if score.ScoreMeta.Random == nil || *score.ScoreMeta.Random != batchmanual.RandomRandom {
		t.Fatalf("random = %v", score.ScoreMeta.Random)
	}
	if score.ScoreMeta.Client != "LR2" || score.MatchType != batchmanual.MatchBMSChartHash {
		t.Fatalf("meta = %+v match=%s", score.ScoreMeta, score.MatchType)
	}
	wantJudgements := map[string]int{"pgreat": 500, "great": 234, "good": 10, "bad": 2, "poor": 5}
	if !reflect.DeepEqual(score.Judgements, wantJudgements) {
		t.Fatalf("judgements = %v", score.Judgements)
	}
	if *score.HitMeta.BP != 7 || *score.HitMeta.MaxCombo != 400 {
		t.Fatalf("hitMeta = %+v", score.HitMeta)
	}
	if score.TimeAchieved != nil {
		t.Fatal("LR2 scores have no achievement time")
	}
}

func TestNormalizeIsDeterministic(t *testing.T) {
	a, _ := lr2.Normalize(baseRow())
	b, _ := lr2.Normalize(baseRow())
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("normalization differs:\n%+v\n%+v", a, b)
	}
}

func TestNormalize14KNullsRandom(t *testing.T) {
	row := baseRow()
	row.Chart.Mode = 14
	row.Score.Option = lr2.DecodePlayOption(31)

	score, rej := lr2.Normalize(row)
	if rej != nil {
		t.Fatalf("unexpected rejection: %+v", rej)
	}
	if score.Playtype != batchmanual.Playtype14K {
		t.Fatalf("playtype = %s", score.Playtype)
	}
	if score.ScoreMeta.Random != nil {
		t.Fatalf("14K random should be null, got %v", *score.ScoreMeta.Random)
	}
}

func TestNormalizeRejections(t *testing.T) {
	cases := []struct {
		name     string
		mutate   func(*lr2.Row)
		level    slog.Level
		filtered bool
	}{
		{"scan error", func(r *lr2.Row) { r.ScanErr = errors.New("bad column") }, slog.LevelWarn, false},
		{"missing chart", func(r *lr2.Row) { r.Chart = nil }, slog.LevelWarn, false},
		{"random chart", func(r *lr2.Row) { r.Chart.Random = true }, slog.LevelInfo, false},
		{"5K chart", func(r *lr2.Row) { r.Chart.Mode = 5 }, slog.LevelDebug, true},
		{"unknown clear", func(r *lr2.Row) { r.Score.Clear = 6 }, slog.LevelWarn, false},
		{"minbp -1", func(r *lr2.Row) { r.Score.MinBP = intPtr(-1) }, slog.LevelInfo, false},
		{"minbp null", func(r *lr2.Row) { r.Score.MinBP = nil }, slog.LevelInfo, false},
		{"op_best over 100", func(r *lr2.Row) { r.Score.Option = lr2.DecodePlayOption(101) }, slog.LevelWarn, false},
		{"op_best index out of range", func(r *lr2.Row) { r.Score.Option = lr2.DecodePlayOption(45) }, slog.LevelWarn, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			row := baseRow()
			tc.mutate(&row)
			_, rej := lr2.Normalize(row)
			if rej == nil {
				t.Fatal("expected rejection")
			}
			if rej.Level != tc.level || rej.Filtered != tc.filtered {
				t.Fatalf("rejection = %+v", rej)
			}
			if rej.Reason == "" {
				t.Fatal("rejection must carry a reason")
			}
		})
	}
}

func TestNormalizeMinBPRejectedRegardlessOfOtherFields(t *testing.T) {
	for _, mode := range []int{7, 14, 5} {
		row := baseRow()
		row.Score.MinBP = intPtr(-1)
		row.Score.Clear = 5
		row.Score.Option = lr2.DecodePlayOption(0)
		row.Chart.Mode = mode
		_, rej := lr2.Normalize(row)
		if rej == nil {
			t.Fatalf("mode %d: minbp -1 must always be rejected", mode)
		}
		if rej.Filtered || rej.Level != slog.LevelInfo {
			t.Fatalf("mode %d: rejection = %+v", mode, rej)
		}
	}
}

func TestNormalizeInvalidRowOnUnknownModeIsRejected(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*lr2.Row)
	}{
		{"clear 9", func(r *lr2.Row) { r.Score.Clear = 9 }},
		{"op_best over 100", func(r *lr2.Row) { r.Score.Option = lr2.DecodePlayOption(101) }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			row := baseRow()
			row.Chart.Mode = 9
			tc.mutate(&row)
			_, rej := lr2.Normalize(row)
			if rej == nil || rej.Filtered || rej.Level != slog.LevelWarn {
				t.Fatalf("rejection = %+v", rej)
			}
		})
	}
}

package usc

import (
	"fmt"
	"log/slog"

	"github.com/dustin/go-humanize"

	"github.com/zkrising/tachi-import-scripts/internal/batchmanual"
	"github.com/zkrising/tachi-import-scripts/internal/sources"
)

// MaxScore is a perfect play.
const MaxScore = 10_000_000

// clearGauge is the normal-gauge threshold for a clear.
const clearGauge = 0.7

// HitWindows are the timing windows, in milliseconds, a score was played on.
type HitWindows struct {
	Perfect int
	Good    int
	Hold    int
	Miss    int
	Slam    int
}

// Known hit-window presets.
var (
	DefaultWindows = HitWindows{Perfect: 46, Good: 150, Hold: 150, Miss: 300, Slam: 84}
	LegacyWindows  = HitWindows{Perfect: 46, Good: 92, Hold: 138, Miss: 250, Slam: 84}
	// BuggedWindows come from a game update that only partially applied the
	// new defaults.
	BuggedWindows = HitWindows{Perfect: 46, Good: 92, Hold: 138, Miss: 300, Slam: 84}
)

// WindowPreset classifies a score's hit windows.
type WindowPreset int

const (
	WindowsInvalid WindowPreset = iota
	WindowsDefault
	WindowsLegacy
	WindowsBugged
)

// Preset returns which known preset w equals.
func (w HitWindows) Preset() WindowPreset {
	switch w {
	case DefaultWindows:
		return WindowsDefault
	case LegacyWindows:
		return WindowsLegacy
	case BuggedWindows:
		return WindowsBugged
	default:
		return WindowsInvalid
	}
}

// Gauge types.
const (
	GaugeNormal = 0
	GaugeHard   = 1
)

// Lamp derives the clear lamp for a row.
func Lamp(row Row) batchmanual.Lamp {
	switch {
	case row.Score == MaxScore:
		return batchmanual.LampPerfectUltimateChain
	case row.Miss == 0:
		return batchmanual.LampUltimateChain
	case row.GaugeType == GaugeHard:
		if row.Gauge > 0 {
			return batchmanual.LampExcessiveClear
		}
		return batchmanual.LampFailed
	case row.Gauge >= clearGauge:
		return batchmanual.LampClear
	default:
		return batchmanual.LampFailed
	}
}

// NoteMod labels the mirror/random combination.
func NoteMod(mirror, random bool) batchmanual.NoteMod {
	switch {
	case mirror && random:
		return batchmanual.NoteModMirRan
	case mirror:
		return batchmanual.NoteModMirror
	case random:
		return batchmanual.NoteModRandom
	default:
		return batchmanual.NoteModNormal
	}
}

// GaugeMod maps the gauge type. Unknown types report false.
func GaugeMod(gaugeType int) (batchmanual.GaugeMod, bool) {
	switch gaugeType {
	case GaugeNormal:
		return batchmanual.GaugeModNormal, true
	case GaugeHard:
		return batchmanual.GaugeModHard, true
	default:
		return "", false
	}
}

// Name is the display name used in log lines.
func Name(row Row) string {
	return fmt.Sprintf("%s [%s] (%s)", row.Title, row.Difficulty, humanize.Comma(int64(row.Score)))
}

// Normalize converts one row for the given playtype. Exactly one of the
// results is set.
func Normalize(row Row, playtype batchmanual.Playtype) (batchmanual.Score, *sources.Rejection) {
	if row.ScanErr != nil {
		return batchmanual.Score{}, sources.Reject(slog.LevelWarn, row.ChartHash, "", "Invalid score in DB: %v. Skipping.", row.ScanErr)
	}
	name := Name(row)
	if row.Windows.Preset() == WindowsInvalid {
		return batchmanual.Score{}, sources.Reject(slog.LevelError, row.ChartHash, name, "Invalid hit windows for score %s. Skipping.", name)
	}

	meta := batchmanual.ScoreMeta{NoteMod: NoteMod(row.Mirror, row.Random)}
	if mod, ok := GaugeMod(row.GaugeType); ok {
		meta.GaugeMod = mod
	}

	return batchmanual.Score{
		Game:       batchmanual.GameUSC,
		Playtype:   playtype,
		Identifier: row.ChartHash,
		MatchType:  batchmanual.MatchUSCChartHash,
		Score:      row.Score,
		Lamp:       Lamp(row),
		Judgements: map[string]int{
			"critical": row.Crit,
			"near":     row.Near,
			"miss":     row.Miss,
		},
		HitMeta: batchmanual.HitMeta{
			Fast:     row.Early,
			Slow:     row.Late,
			MaxCombo: row.Combo,
			Gauge:    batchmanual.Ptr(row.Gauge * 100),
		},
		ScoreMeta:    meta,
		TimeAchieved: batchmanual.Ptr(row.Timestamp * 1000),
	}, nil
}

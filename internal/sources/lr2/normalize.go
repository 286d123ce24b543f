package lr2

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/zkrising/tachi-import-scripts/internal/batchmanual"
	"github.com/zkrising/tachi-import-scripts/internal/sources"
)

var lamps = [...]batchmanual.Lamp{
	batchmanual.LampNoPlay,
	batchmanual.LampFailed,
	batchmanual.LampEasyClear,
	batchmanual.LampClear,
	batchmanual.LampHardClear,
	batchmanual.LampFullCombo,
}

// Lamp maps an LR2 clear code to its lamp.
func Lamp(clear int) (batchmanual.Lamp, bool) {
	if clear < 0 || clear >= len(lamps) {
		return "", false
	}
	return lamps[clear], true
}

// ExScore is LR2's score formula.
func ExScore(perfect, great int) int {
	return perfect*2 + great
}

// Normalize converts one row. Exactly one of the results is set.
func Normalize(row Row) (batchmanual.Score, *sources.Rejection) {
	s := row.Score
	if row.ScanErr != nil {
		return batchmanual.Score{}, sources.Reject(slog.LevelWarn, s.Hash, "", "Invalid score in DB: %v. Skipping.", row.ScanErr)
	}
	if row.Chart == nil {
		return batchmanual.Score{}, sources.Reject(slog.LevelWarn, s.Hash, "",
			"Couldn't find chart %s in the local song DB. Skipping this score.", s.Hash)
	}

	name := chartName(row.Chart, ExScore(s.Perfect, s.Great))
	if row.Chart.Random {
		return batchmanual.Score{}, sources.Reject(slog.LevelInfo, s.Hash, name, "Skipping score on %s as the chart uses #RANDOM.", name)
	}

	lamp, ok := Lamp(s.Clear)
	if !ok {
		return batchmanual.Score{}, sources.Reject(slog.LevelWarn, s.Hash, name, "Unknown clear type %d. Skipping.", s.Clear)
	}

	if s.MinBP == nil || *s.MinBP < 0 {
		return batchmanual.Score{}, sources.Reject(slog.LevelInfo, s.Hash, name,
			"Skipping score on %s as it had a BP of %s. Probably autoscratch?", name, formatBP(s.MinBP))
	}

	if !s.Option.Valid {
		return batchmanual.Score{}, sources.Reject(slog.LevelWarn, s.Hash, name, "Unknown play option %d. Skipping.", s.Option.Code)
	}

	// Out-of-scope modes are filtered only once the row itself is valid.
	var playtype batchmanual.Playtype
	switch row.Chart.Mode {
	case 7:
		playtype = batchmanual.Playtype7K
	case 14:
		playtype = batchmanual.Playtype14K
	default:
		return batchmanual.Score{}, sources.Filter(s.Hash, name, "Skipping score on unknown playtype %d.", row.Chart.Mode)
	}

	meta := batchmanual.ScoreMeta{Client: batchmanual.ClientLR2}
	if !playtype.Combined() {
		meta.Random = batchmanual.Ptr(s.Option.Random)
	}

	return batchmanual.Score{
		Game:       batchmanual.GameBMS,
		Playtype:   playtype,
		Identifier: s.Hash,
		MatchType:  batchmanual.MatchBMSChartHash,
		Score:      ExScore(s.Perfect, s.Great),
		Lamp:       lamp,
		Judgements: map[string]int{
			"pgreat": s.Perfect,
			"great":  s.Great,
			"good":   s.Good,
			"bad":    s.Bad,
			"poor":   s.Poor,
		},
		HitMeta: batchmanual.HitMeta{
			BP:       batchmanual.Ptr(*s.MinBP),
			MaxCombo: batchmanual.Ptr(s.MaxCombo),
		},
		ScoreMeta: meta,
	}, nil
}

func chartName(c *Chart, score int) string {
	title := strings.TrimSpace(c.Title)
	if sub := strings.TrimSpace(c.Subtitle); sub != "" {
		title += " (" + sub + ")"
	}
	return fmt.Sprintf("%s [%d]", title, score)
}

func formatBP(bp *int) string {
	if bp == nil {
		return "null"
	}
	return fmt.Sprint(*bp)
}

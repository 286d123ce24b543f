package beatoraja

import (
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/zkrising/tachi-import-scripts/internal/batchmanual"
	"github.com/zkrising/tachi-import-scripts/internal/sources"
)

// randomOptions follows beatoraja's option order. Index 0 and anything past
// S-RANDOM (H-RANDOM, SPIRAL, ...) are not accepted.
var randomOptions = [...]batchmanual.Random{
	batchmanual.RandomNone,
	batchmanual.RandomMirror,
	batchmanual.RandomRandom,
	batchmanual.RandomRRandom,
	batchmanual.RandomSRandom,
}

// RandomOption decodes the score.db random index.
func RandomOption(index int) (batchmanual.Random, bool) {
	if index <= 0 || index >= len(randomOptions) {
		return "", false
	}
	return randomOptions[index], true
}

// Lamp maps a beatoraja ClearType ordinal to its lamp.
func Lamp(clear int) (batchmanual.Lamp, bool) {
	switch clear {
	case 0:
		return batchmanual.LampNoPlay, true
	case 1:
		return batchmanual.LampFailed, true
	case 2, 3:
		return batchmanual.LampAssistClear, true
	case 4:
		return batchmanual.LampEasyClear, true
	case 5:
		return batchmanual.LampClear, true
	case 6:
		return batchmanual.LampHardClear, true
	case 7:
		return batchmanual.LampExHardClear, true
	case 8, 9, 10:
		return batchmanual.LampFullCombo, true
	default:
		return "", false
	}
}

// ExScore is beatoraja's score formula.
func ExScore(s Score) int {
	return 2*(s.EPG+s.LPG) + s.EGR + s.LGR
}

// bp returns nil for the sentinels beatoraja writes when the miss count is
// unknown.
func bp(minbp int64) *int {
	if minbp == math.MaxInt32 || minbp < 0 {
		return nil
	}
	return batchmanual.Ptr(int(minbp))
}

// Normalize converts one row. Exactly one of the results is set.
func Normalize(row Row) (batchmanual.Score, *sources.Rejection) {
	s := row.Score
	if row.ScanErr != nil {
		return batchmanual.Score{}, sources.Reject(slog.LevelWarn, s.SHA256, "", "Invalid score in DB: %v. Skipping.", row.ScanErr)
	}
	if row.Chart == nil {
		return batchmanual.Score{}, sources.Reject(slog.LevelWarn, s.SHA256, "",
			"Couldn't find a matching chart for score %s. Unable to verify integrity.", s.SHA256)
	}

	c := row.Chart
	name := chartName(c)
	if s.Notes != c.Notes {
		return batchmanual.Score{}, sources.Reject(slog.LevelWarn, s.SHA256, name,
			"%s - Score notecount %d does not match chart notecount %d? Skipping.", name, s.Notes, c.Notes)
	}
	if c.Feature.Has(FeatureRandom) {
		return batchmanual.Score{}, sources.Reject(slog.LevelInfo, s.SHA256, name, "Skipping %s as it has #RANDOM declarations.", name)
	}

	var playtype batchmanual.Playtype
	switch c.Mode {
	case 7:
		playtype = batchmanual.Playtype7K
	case 14:
		playtype = batchmanual.Playtype14K
	default:
		return batchmanual.Score{}, sources.Filter(s.SHA256, name, "Skipping %dK score on %s.", c.Mode, name)
	}

	meta := batchmanual.ScoreMeta{Client: batchmanual.ClientLR2oraja}
	if !playtype.Combined() {
		random, ok := RandomOption(s.Random)
		if !ok {
			return batchmanual.Score{}, sources.Reject(slog.LevelInfo, s.SHA256, name,
				"Skipping score on %s as the random option was invalid or unfair (H-Ran, Spiral, etc.).", name)
		}
		meta.Random = batchmanual.Ptr(random)
	}

	lamp, ok := Lamp(s.Clear)
	if !ok {
		return batchmanual.Score{}, sources.Reject(slog.LevelWarn, s.SHA256, name, "Invalid lamp on %s -- got %d; ignoring.", name, s.Clear)
	}

	return batchmanual.Score{
		Game:       batchmanual.GameBMS,
		Playtype:   playtype,
		Identifier: s.SHA256,
		MatchType:  batchmanual.MatchBMSChartHash,
		Score:      ExScore(s),
		Lamp:       lamp,
		Judgements: map[string]int{
			"pgreat": s.EPG + s.LPG,
			"great":  s.EGR + s.LGR,
			"good":   s.EGD + s.LGD,
			"bad":    s.EBD + s.LBD,
			"poor":   s.EPR + s.LPR + s.EMS + s.LMS,
		},
		HitMeta: batchmanual.HitMeta{
			BP:       bp(s.MinBP),
			Fast:     batchmanual.Ptr(s.EGR + s.EGD),
			Slow:     batchmanual.Ptr(s.LGR + s.LGD),
			MaxCombo: batchmanual.Ptr(s.Combo),
			EPG:      batchmanual.Ptr(s.EPG),
			LPG:      batchmanual.Ptr(s.LPG),
			EGR:      batchmanual.Ptr(s.EGR),
			LGR:      batchmanual.Ptr(s.LGR),
			EGD:      batchmanual.Ptr(s.EGD),
			LGD:      batchmanual.Ptr(s.LGD),
			EBD:      batchmanual.Ptr(s.EBD),
			LBD:      batchmanual.Ptr(s.LBD),
			EPR:      batchmanual.Ptr(s.EPR),
			LPR:      batchmanual.Ptr(s.LPR),
		},
		ScoreMeta:    meta,
		TimeAchieved: batchmanual.Ptr(s.Date * 1000),
	}, nil
}

func chartName(c *Chart) string {
	return strings.TrimSpace(fmt.Sprintf("%s %s", c.Title, c.Subtitle))
}

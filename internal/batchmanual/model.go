package batchmanual

// Game identifies the Tachi game a batch targets.
type Game string

const (
	GameBMS Game = "bms"
	GameUSC Game = "usc"
)

// Playtype is the game mode a batch targets.
type Playtype string

const (
	Playtype7K         Playtype = "7K"
	Playtype14K        Playtype = "14K"
	PlaytypeController Playtype = "Controller"
	PlaytypeKeyboard   Playtype = "Keyboard"
)

// ParseUSCPlaytype validates an externally supplied USC playtype.
func ParseUSCPlaytype(value string) (Playtype, bool) {
	switch Playtype(value) {
	case PlaytypeController, PlaytypeKeyboard:
		return Playtype(value), true
	default:
		return "", false
	}
}

// Combined reports whether the playtype uses both hands' lanes, where the
// recorded single-side random option is meaningless.
func (p Playtype) Combined() bool {
	return p == Playtype14K
}

// MatchType tells Tachi how to resolve the identifier to a chart.
type MatchType string

const (
	MatchBMSChartHash MatchType = "bmsChartHash"
	MatchUSCChartHash MatchType = "uscChartHash"
)

// Lamp is the canonical clear grade of a play.
type Lamp string

// BMS lamps.
const (
	LampNoPlay      Lamp = "NO PLAY"
	LampFailed      Lamp = "FAILED"
	LampAssistClear Lamp = "ASSIST CLEAR"
	LampEasyClear   Lamp = "EASY CLEAR"
	LampClear       Lamp = "CLEAR"
	LampHardClear   Lamp = "HARD CLEAR"
	LampExHardClear Lamp = "EX HARD CLEAR"
	LampFullCombo   Lamp = "FULL COMBO"
)

// USC lamps. FAILED and CLEAR are shared with BMS.
const (
	LampExcessiveClear       Lamp = "EXCESSIVE CLEAR"
	LampUltimateChain        Lamp = "ULTIMATE CHAIN"
	LampPerfectUltimateChain Lamp = "PERFECT ULTIMATE CHAIN"
)

// Random is a BMS note-order modifier.
type Random string

const (
	RandomNone    Random = "NONRAN"
	RandomMirror  Random = "MIRROR"
	RandomRandom  Random = "RANDOM"
	RandomRRandom Random = "R-RANDOM"
	RandomSRandom Random = "S-RANDOM"
)

// NoteMod is a USC note modifier label.
type NoteMod string

const (
	NoteModNormal NoteMod = "NORMAL"
	NoteModMirror NoteMod = "MIRROR"
	NoteModRandom NoteMod = "RANDOM"
	NoteModMirRan NoteMod = "MIR-RAN"
)

// GaugeMod is the USC gauge a play used.
type GaugeMod string

const (
	GaugeModNormal GaugeMod = "NORMAL"
	GaugeModHard   GaugeMod = "HARD"
)

// Client names the program that produced the score.
const (
	ClientLR2      = "LR2"
	ClientLR2oraja = "lr2oraja"
)

// HitMeta carries per-play statistics. Unknown values are omitted.
type HitMeta struct {
	Fast     *int     `json:"fast,omitempty"`
	Slow     *int     `json:"slow,omitempty"`
	BP       *int     `json:"bp,omitempty"`
	MaxCombo *int     `json:"maxCombo,omitempty"`
	Gauge    *float64 `json:"gauge,omitempty"`
	EPG      *int     `json:"epg,omitempty"`
	LPG      *int     `json:"lpg,omitempty"`
	EGR      *int     `json:"egr,omitempty"`
	LGR      *int     `json:"lgr,omitempty"`
	EGD      *int     `json:"egd,omitempty"`
	LGD      *int     `json:"lgd,omitempty"`
	EBD      *int     `json:"ebd,omitempty"`
	LBD      *int     `json:"lbd,omitempty"`
	EPR      *int     `json:"epr,omitempty"`
	LPR      *int     `json:"lpr,omitempty"`
}

// ScoreMeta carries modifiers and client identity.
type ScoreMeta struct {
	Random   *Random  `json:"random,omitempty"`
	NoteMod  NoteMod  `json:"noteMod,omitempty"`
	GaugeMod GaugeMod `json:"gaugeMod,omitempty"`
	Client   string   `json:"client,omitempty"`
}

// Score is one normalized play. Game and Playtype route it to a batch and are
// not part of the wire form.
type Score struct {
	Game     Game     `json:"-"`
	Playtype Playtype `json:"-"`

	Identifier   string         `json:"identifier"`
	MatchType    MatchType      `json:"matchType"`
	Score        int            `json:"score"`
	Lamp         Lamp           `json:"lamp"`
	Judgements   map[string]int `json:"judgements"`
	HitMeta      HitMeta        `json:"hitMeta"`
	ScoreMeta    ScoreMeta      `json:"scoreMeta"`
	TimeAchieved *int64         `json:"timeAchieved"`
	Comment      string         `json:"comment,omitempty"`
}

// Meta identifies the batch target and the submitting service.
type Meta struct {
	Game     Game     `json:"game"`
	Playtype Playtype `json:"playtype"`
	Service  string   `json:"service"`
	Version  string   `json:"version,omitempty"`
}

// Batch is the document posted to the direct-manual import endpoint.
type Batch struct {
	Meta    Meta              `json:"meta"`
	Scores  []Score           `json:"scores"`
	Classes map[string]string `json:"classes,omitempty"`
}

// Ptr returns a pointer to v. Used to fill optional HitMeta and ScoreMeta fields.
func Ptr[T any](v T) *T {
	return &v
}

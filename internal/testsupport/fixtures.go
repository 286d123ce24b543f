package testsupport

import "testing"

// LR2Score is one row of an LR2 score database.
type LR2Score struct {
	Hash     string
	Clear    int
	Perfect  int
	Great    int
	Good     int
	Bad      int
	Poor     int
	MaxCombo int
	MinBP    any // int or nil
	OpBest   int
	Complete int
}

// LR2Song is one row of LR2's song.db.
type LR2Song struct {
	Hash     string
	Title    any // string or []byte (Shift_JIS)
	Subtitle any
	Random   any // int or nil
	Mode     int
}

// LR2Databases writes an LR2 score database and song.db under dir.
func LR2Databases(t testing.TB, dir string, scores []LR2Score, songs []LR2Song) (scorePath, chartPath string) {
	t.Helper()

	scorePath = CreateDB(t, dir, "lr2-score.db", `CREATE TABLE score (
		hash TEXT PRIMARY KEY, clear INTEGER, perfect INTEGER, great INTEGER, good INTEGER,
		bad INTEGER, poor INTEGER, totalnotes INTEGER, maxcombo INTEGER, minbp INTEGER,
		playcount INTEGER, op_history INTEGER, op_best INTEGER, rseed INTEGER, complete INTEGER)`)
	for _, s := range scores {
		Insert(t, scorePath, "score",
			[]string{"hash", "clear", "perfect", "great", "good", "bad", "poor", "maxcombo", "minbp", "op_best", "complete"},
			[]any{s.Hash, s.Clear, s.Perfect, s.Great, s.Good, s.Bad, s.Poor, s.MaxCombo, s.MinBP, s.OpBest, s.Complete})
	}

	chartPath = CreateDB(t, dir, "song.db", `CREATE TABLE song (
		hash TEXT PRIMARY KEY, title TEXT, subtitle TEXT, genre TEXT, artist TEXT,
		random INTEGER, mode INTEGER, level INTEGER)`)
	for _, s := range songs {
		Insert(t, chartPath, "song",
			[]string{"hash", "title", "subtitle", "random", "mode"},
			[]any{s.Hash, s.Title, s.Subtitle, s.Random, s.Mode})
	}
	return scorePath, chartPath
}

// BeatorajaScore is one row of a beatoraja score.db.
type BeatorajaScore struct {
	SHA256 string
	Mode   int
	Clear  int
	EPG, LPG, EGR, LGR, EGD, LGD, EBD, LBD, EPR, LPR, EMS, LMS int
	Notes  int
	Combo  int
	MinBP  int
	Random int
	Date   int64
}

// BeatorajaSong is one row of beatoraja's songdata.db.
type BeatorajaSong struct {
	SHA256   string
	Title    string
	Subtitle string
	Feature  int
	Notes    int
	Mode     int
}

// BeatorajaDatabases writes a beatoraja score.db and songdata.db under dir.
func BeatorajaDatabases(t testing.TB, dir string, scores []BeatorajaScore, songs []BeatorajaSong) (scorePath, chartPath string) {
	t.Helper()

	scorePath = CreateDB(t, dir, "score.db", `CREATE TABLE score (
		sha256 TEXT NOT NULL, mode INTEGER, clear INTEGER,
		epg INTEGER, lpg INTEGER, egr INTEGER, lgr INTEGER, egd INTEGER, lgd INTEGER,
		ebd INTEGER, lbd INTEGER, epr INTEGER, lpr INTEGER, ems INTEGER, lms INTEGER,
		notes INTEGER, combo INTEGER, minbp INTEGER, playcount INTEGER, clearcount INTEGER,
		trophy TEXT, ghost TEXT, option INTEGER, seed INTEGER, random INTEGER, date INTEGER, state INTEGER,
		PRIMARY KEY (sha256, mode))`)
	for _, s := range scores {
		Insert(t, scorePath, "score",
			[]string{"sha256", "mode", "clear", "epg", "lpg", "egr", "lgr", "egd", "lgd", "ebd", "lbd", "epr", "lpr", "ems", "lms", "notes", "combo", "minbp", "random", "date"},
			[]any{s.SHA256, s.Mode, s.Clear, s.EPG, s.LPG, s.EGR, s.LGR, s.EGD, s.LGD, s.EBD, s.LBD, s.EPR, s.LPR, s.EMS, s.LMS, s.Notes, s.Combo, s.MinBP, s.Random, s.Date})
	}

	chartPath = CreateDB(t, dir, "songdata.db", `CREATE TABLE song (
		md5 TEXT, sha256 TEXT NOT NULL, title TEXT, subtitle TEXT, genre TEXT, artist TEXT,
		path TEXT, folder TEXT, level INTEGER, difficulty INTEGER, maxbpm INTEGER, minbpm INTEGER,
		mode INTEGER, judge INTEGER, feature INTEGER, content INTEGER, date INTEGER, notes INTEGER,
		length INTEGER, favorite INTEGER, PRIMARY KEY (sha256))`)
	for _, s := range songs {
		Insert(t, chartPath, "song",
			[]string{"sha256", "title", "subtitle", "feature", "notes", "mode"},
			[]any{s.SHA256, s.Title, s.Subtitle, s.Feature, s.Notes, s.Mode})
	}
	return scorePath, chartPath
}

// USCScore is one row of USC's Scores table.
type USCScore struct {
	ChartHash string
	Score     int
	Crit      int
	Near      int
	Miss      int
	Gauge     float64
	GaugeType int
	AutoFlags int
	Mirror    bool
	Random    bool
	Timestamp int64
	Windows   [5]int // perfect, good, hold, miss, slam
	Early     any
	Late      any
	Combo     any
}

// USCChart is one row of USC's Charts table.
type USCChart struct {
	Hash          string
	Title         string
	DiffShortname string
}

// USCDefaultWindows is the current default hit-window preset.
var USCDefaultWindows = [5]int{46, 150, 150, 300, 84}

// USCDatabase writes a USC maps.db with the given schema version under dir.
func USCDatabase(t testing.TB, dir string, version int, scores []USCScore, charts []USCChart) string {
	t.Helper()

	path := CreateDB(t, dir, "maps.db",
		`CREATE TABLE Database (version INTEGER)`,
		`CREATE TABLE Charts (rowid INTEGER PRIMARY KEY, folderid INTEGER, path TEXT, title TEXT,
			artist TEXT, title_translit TEXT, artist_translit TEXT, jacket_path TEXT, effector TEXT,
			illustrator TEXT, diff_name TEXT, diff_shortname TEXT, bpm TEXT, diff_index INTEGER,
			level INTEGER, hash TEXT, preview_file TEXT, preview_offset INTEGER, preview_length INTEGER,
			lwt INTEGER, custom_offset INTEGER)`,
		`CREATE TABLE Scores (rowid INTEGER PRIMARY KEY, score INTEGER, crit INTEGER, near INTEGER,
			early INTEGER, late INTEGER, combo INTEGER, miss INTEGER, gauge REAL, auto_flags INTEGER,
			replay TEXT, timestamp INTEGER, chart_hash TEXT, user_name TEXT, user_id TEXT,
			local_score INTEGER, window_perfect INTEGER, window_good INTEGER, window_hold INTEGER,
			window_miss INTEGER, window_slam INTEGER, gauge_type INTEGER, gauge_opt INTEGER,
			mirror INTEGER, random INTEGER)`,
	)
	Insert(t, path, "Database", []string{"version"}, []any{version})
	for _, c := range charts {
		Insert(t, path, "Charts", []string{"hash", "title", "diff_shortname"}, []any{c.Hash, c.Title, c.DiffShortname})
	}
	for _, s := range scores {
		Insert(t, path, "Scores",
			[]string{"chart_hash", "score", "crit", "near", "miss", "gauge", "gauge_type", "auto_flags", "mirror", "random", "timestamp",
				"window_perfect", "window_good", "window_hold", "window_miss", "window_slam", "early", "late", "combo"},
			[]any{s.ChartHash, s.Score, s.Crit, s.Near, s.Miss, s.Gauge, s.GaugeType, s.AutoFlags, s.Mirror, s.Random, s.Timestamp,
				s.Windows[0], s.Windows[1], s.Windows[2], s.Windows[3], s.Windows[4], s.Early, s.Late, s.Combo})
	}
	return path
}

package lr2

import (
	"context"
	"database/sql"
	"errors"
	"unicode/utf8"

	"golang.org/x/text/encoding/japanese"

	"github.com/zkrising/tachi-import-scripts/internal/batchmanual"
	"github.com/zkrising/tachi-import-scripts/internal/sources"
)

const (
	scoreQuery = `SELECT hash, clear, perfect, great, good, bad, poor, maxcombo, minbp, op_best
		FROM score WHERE complete = 1`
	chartQuery = `SELECT title, subtitle, random, mode FROM song WHERE hash = ?`
)

// randomOptions is indexed by the tens digit of op_best.
var randomOptions = [...]batchmanual.Random{
	batchmanual.RandomNone,
	batchmanual.RandomMirror,
	batchmanual.RandomRandom,
	batchmanual.RandomSRandom,
}

// PlayOption is the decoded op_best column.
type PlayOption struct {
	Code   int
	Random batchmanual.Random
	Valid  bool
}

// DecodePlayOption decodes LR2's packed op_best value. The tens digit selects
// the random option; codes above 100 are unknown.
func DecodePlayOption(code int) PlayOption {
	opt := PlayOption{Code: code}
	if code < 0 || code > 100 {
		return opt
	}
	idx := code / 10
	if idx >= len(randomOptions) {
		return opt
	}
	opt.Random = randomOptions[idx]
	opt.Valid = true
	return opt
}

// Score is a completed row of the score table.
type Score struct {
	Hash     string
	Clear    int
	Perfect  int
	Great    int
	Good     int
	Bad      int
	Poor     int
	MaxCombo int
	MinBP    *int
	Option   PlayOption
}

// Chart is the song.db entry a score refers to.
type Chart struct {
	Title    string
	Subtitle string
	// Random is set for charts declaring #RANDOM.
	Random bool
	Mode   int
}

// Row pairs a score with its chart. Chart is nil when song.db has no entry;
// ScanErr is set when the score row itself could not be read.
type Row struct {
	Score   Score
	Chart   *Chart
	ScanErr error
}

// Reader iterates LR2 score rows joined with song.db.
type Reader struct {
	scores *sources.Store
	charts *sources.Store
	lookup *sources.Lookup
}

// Open opens both databases read-only.
func Open(ctx context.Context, scorePath, chartPath string) (*Reader, error) {
	scores, err := sources.Open(ctx, Source, scorePath)
	if err != nil {
		return nil, err
	}
	charts, err := sources.Open(ctx, Source, chartPath)
	if err != nil {
		_ = scores.Close()
		return nil, err
	}
	lookup, err := charts.Prepare(ctx, chartQuery)
	if err != nil {
		_ = scores.Close()
		_ = charts.Close()
		return nil, err
	}
	return &Reader{scores: scores, charts: charts, lookup: lookup}, nil
}

// Close releases both databases.
func (r *Reader) Close() error {
	return errors.Join(r.lookup.Close(), r.scores.Close(), r.charts.Close())
}

// Each calls fn for every completed score row in table order. Lookup and
// query failures abort the iteration; row scan failures are reported through
// Row.ScanErr.
func (r *Reader) Each(ctx context.Context, fn func(Row) error) error {
	rows, err := r.scores.Query(ctx, scoreQuery)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			s      Score
			minbp  sql.NullInt64
			opBest sql.NullInt64
		)
		if err := rows.Scan(&s.Hash, &s.Clear, &s.Perfect, &s.Great, &s.Good, &s.Bad, &s.Poor, &s.MaxCombo, &minbp, &opBest); err != nil {
			if err := fn(Row{Score: s, ScanErr: err}); err != nil {
				return err
			}
			continue
		}
		if minbp.Valid {
			v := int(minbp.Int64)
			s.MinBP = &v
		}
		s.Option = DecodePlayOption(int(opBest.Int64))

		chart, err := r.chart(ctx, s.Hash)
		if err != nil {
			return err
		}
		if err := fn(Row{Score: s, Chart: chart}); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (r *Reader) chart(ctx context.Context, hash string) (*Chart, error) {
	var (
		title, subtitle []byte
		random, mode    sql.NullInt64
	)
	found, err := r.lookup.Get(ctx, hash, &title, &subtitle, &random, &mode)
	if err != nil || !found {
		return nil, err
	}
	return &Chart{
		Title:    decodeText(title),
		Subtitle: decodeText(subtitle),
		Random:   random.Valid && random.Int64 != 0,
		Mode:     int(mode.Int64),
	}, nil
}

// decodeText returns UTF-8 text unchanged and decodes anything else as
// Shift_JIS, the encoding LR2 writes song metadata in.
func decodeText(raw []byte) string {
	if utf8.Valid(raw) {
		return string(raw)
	}
	decoded, err := japanese.ShiftJIS.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(decoded)
}

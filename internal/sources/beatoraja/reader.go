package beatoraja

import (
	"context"
	"errors"

	"github.com/zkrising/tachi-import-scripts/internal/sources"
)

const (
	scoreQuery = `SELECT sha256, clear, epg, lpg, egr, lgr, egd, lgd, ebd, lbd, epr, lpr, ems, lms,
		notes, combo, minbp, random, date
		FROM score WHERE mode = 0`
	chartQuery = `SELECT title, subtitle, feature, notes, mode FROM song WHERE sha256 = ?`
)

// Feature is the songdata.db feature bitmask.
type Feature uint32

const (
	FeatureUndefinedLN Feature = 1 << iota
	FeatureMineNote
	FeatureRandom
	FeatureLongNote
	FeatureChargeNote
	FeatureHellChargeNote
	FeatureStopSequence
	FeatureScroll
)

// Has reports whether every bit of flag is set.
func (f Feature) Has(flag Feature) bool {
	return f&flag == flag
}

// Score is a score.db row. Early/late judgement pairs are kept separate.
type Score struct {
	SHA256 string
	Clear  int
	EPG    int
	LPG    int
	EGR    int
	LGR    int
	EGD    int
	LGD    int
	EBD    int
	LBD    int
	EPR    int
	LPR    int
	EMS    int
	LMS    int
	Notes  int
	Combo  int
	MinBP  int64
	Random int
	Date   int64
}

// Chart is the songdata.db entry a score refers to.
type Chart struct {
	Title    string
	Subtitle string
	Feature  Feature
	Notes    int
	Mode     int
}

// Row pairs a score with its chart. Chart is nil when the catalog has no
// entry; ScanErr is set when the score row could not be read.
type Row struct {
	Score   Score
	Chart   *Chart
	ScanErr error
}

// Reader iterates beatoraja score rows joined with songdata.db.
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

// Each calls fn for every mode 0 score row in table order.
func (r *Reader) Each(ctx context.Context, fn func(Row) error) error {
	rows, err := r.scores.Query(ctx, scoreQuery)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var s Score
		err := rows.Scan(&s.SHA256, &s.Clear,
			&s.EPG, &s.LPG, &s.EGR, &s.LGR, &s.EGD, &s.LGD, &s.EBD, &s.LBD, &s.EPR, &s.LPR, &s.EMS, &s.LMS,
			&s.Notes, &s.Combo, &s.MinBP, &s.Random, &s.Date)
		if err != nil {
			if err := fn(Row{Score: s, ScanErr: err}); err != nil {
				return err
			}
			continue
		}

		var (
			c       Chart
			feature int64
		)
		found, err := r.lookup.Get(ctx, s.SHA256, &c.Title, &c.Subtitle, &feature, &c.Notes, &c.Mode)
		if err != nil {
			return err
		}
		row := Row{Score: s}
		if found {
			c.Feature = Feature(feature)
			row.Chart = &c
		}
		if err := fn(row); err != nil {
			return err
		}
	}
	return rows.Err()
}

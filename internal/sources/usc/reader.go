package usc

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/zkrising/tachi-import-scripts/internal/services"
	"github.com/zkrising/tachi-import-scripts/internal/sources"
)

// Supported maps.db schema versions.
const (
	MinSchemaVersion = 19
	MaxSchemaVersion = 20
)

const (
	versionQuery = `SELECT version FROM Database`
	scoreQuery   = `SELECT Scores.chart_hash, Scores.score, Scores.crit, Scores.near, Scores.miss,
		Scores.gauge, Scores.gauge_type, Scores.auto_flags, Scores.mirror, Scores.random, Scores.timestamp,
		Scores.window_perfect, Scores.window_good, Scores.window_hold, Scores.window_miss, Scores.window_slam,
		Scores.early, Scores.late, Scores.combo, Charts.title, Charts.diff_shortname
		FROM Scores LEFT JOIN Charts ON Scores.chart_hash = Charts.hash`
)

// Row is one Scores row with its chart's display fields. Title and
// Difficulty are empty when the chart is not in the Charts table.
type Row struct {
	ChartHash  string
	Score      int
	Crit       int
	Near       int
	Miss       int
	Gauge      float64
	GaugeType  int
	AutoFlags  int
	Mirror     bool
	Random     bool
	Timestamp  int64
	Windows    HitWindows
	Early      *int
	Late       *int
	Combo      *int
	Title      string
	Difficulty string
	ScanErr    error
}

// Reader iterates the Scores table of a maps.db.
type Reader struct {
	store   *sources.Store
	version int
}

// Open opens maps.db read-only and checks its schema version. Unsupported
// versions yield an error marked services.ErrUnsupportedSchema.
func Open(ctx context.Context, path string) (*Reader, error) {
	store, err := sources.Open(ctx, Source, path)
	if err != nil {
		return nil, err
	}
	var version int
	if err := store.QueryRow(ctx, versionQuery, nil, &version); err != nil {
		_ = store.Close()
		return nil, err
	}
	if err := CheckVersion(version); err != nil {
		_ = store.Close()
		return nil, err
	}
	return &Reader{store: store, version: version}, nil
}

// CheckVersion rejects maps.db schemas this reader does not understand.
func CheckVersion(version int) error {
	switch {
	case version < MinSchemaVersion:
		return services.Wrap(services.ErrUnsupportedSchema, Source, "check version",
			fmt.Sprintf("the version of your maps.db is %d, which is below the minimum of %d. Update your game", version, MinSchemaVersion), nil)
	case version > MaxSchemaVersion:
		return services.Wrap(services.ErrUnsupportedSchema, Source, "check version",
			fmt.Sprintf("the version of your maps.db is %d, which is newer than the latest supported version (%d). It might not be safe to convert this", version, MaxSchemaVersion), nil)
	}
	return nil
}

// Version returns the schema version read at open.
func (r *Reader) Version() int {
	return r.version
}

// Close releases the database.
func (r *Reader) Close() error {
	return r.store.Close()
}

// Each calls fn for every score row in table order.
func (r *Reader) Each(ctx context.Context, fn func(Row) error) error {
	rows, err := r.store.Query(ctx, scoreQuery)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			row                Row
			early, late, combo sql.NullInt64
			title, diff        sql.NullString
		)
		err := rows.Scan(&row.ChartHash, &row.Score, &row.Crit, &row.Near, &row.Miss,
			&row.Gauge, &row.GaugeType, &row.AutoFlags, &row.Mirror, &row.Random, &row.Timestamp,
			&row.Windows.Perfect, &row.Windows.Good, &row.Windows.Hold, &row.Windows.Miss, &row.Windows.Slam,
			&early, &late, &combo, &title, &diff)
		if err != nil {
			row.ScanErr = err
		} else {
			row.Early = nullInt(early)
			row.Late = nullInt(late)
			row.Combo = nullInt(combo)
			row.Title = title.String
			row.Difficulty = diff.String
		}
		if err := fn(row); err != nil {
			return err
		}
	}
	return rows.Err()
}

func nullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

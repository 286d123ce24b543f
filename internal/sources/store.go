package sources

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/zkrising/tachi-import-scripts/internal/services"
)

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Store is a read-only handle on a game's SQLite database.
type Store struct {
	db        *sql.DB
	path      string
	component string
}

// Open opens the database at path read-only. A missing file yields an error
// marked services.ErrNotFound; a file SQLite cannot read yields
// services.ErrCorrupt. component names the reader in error messages.
func Open(ctx context.Context, component, path string) (*Store, error) {
	ctx = ensureContext(ctx)
	if strings.TrimSpace(path) == "" {
		return nil, services.Wrap(services.ErrNotFound, component, "open store", "no database path configured", nil)
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, component, "open store", fmt.Sprintf("could not find a sqlite db at %s", path), err)
		}
		return nil, services.Wrap(services.ErrNotFound, component, "open store", path, err)
	}
	if info.IsDir() {
		return nil, services.Wrap(services.ErrNotFound, component, "open store", fmt.Sprintf("%s is a directory", path), nil)
	}

	db, err := sql.Open("sqlite", readOnlyDSN(path))
	if err != nil {
		return nil, services.Wrap(services.ErrCorrupt, component, "open store", path, err)
	}
	db.SetMaxOpenConns(1)

	// SQLite defers header validation until the first statement.
	var tables int
	if err := retryOnBusy(ctx, func() error {
		return db.QueryRowContext(ctx, "SELECT count(*) FROM sqlite_master").Scan(&tables)
	}); err != nil {
		_ = db.Close()
		return nil, services.Wrap(services.ErrCorrupt, component, "open store", fmt.Sprintf("%s is not a readable sqlite database", path), err)
	}

	return &Store{db: db, path: path, component: component}, nil
}

func readOnlyDSN(path string) string {
	escaped := strings.NewReplacer("%", "%25", "?", "%3f", "#", "%23").Replace(path)
	return "file:" + escaped + "?mode=ro&_pragma=busy_timeout(5000)"
}

// Path returns the file the store was opened from.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Query runs a multi-row query, retrying while the game holds a write lock.
// Failures are marked services.ErrCorrupt: the schema did not have what the
// reader expected.
func (s *Store) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	ctx = ensureContext(ctx)
	var rows *sql.Rows
	err := retryOnBusy(ctx, func() error {
		var qerr error
		rows, qerr = s.db.QueryContext(ctx, query, args...)
		return qerr
	})
	if err != nil {
		return nil, services.Wrap(services.ErrCorrupt, s.component, "query", s.path, err)
	}
	return rows, nil
}

// QueryRow runs a single-row query and scans it into dest.
func (s *Store) QueryRow(ctx context.Context, query string, args []any, dest ...any) error {
	ctx = ensureContext(ctx)
	err := retryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx, query, args...).Scan(dest...)
	})
	if err != nil {
		return services.Wrap(services.ErrCorrupt, s.component, "query", s.path, err)
	}
	return nil
}

// Lookup is a prepared keyed lookup reused for every row of a run.
type Lookup struct {
	stmt  *sql.Stmt
	store *Store
}

// Prepare compiles a keyed lookup statement.
func (s *Store) Prepare(ctx context.Context, query string) (*Lookup, error) {
	ctx = ensureContext(ctx)
	var stmt *sql.Stmt
	err := retryOnBusy(ctx, func() error {
		var perr error
		stmt, perr = s.db.PrepareContext(ctx, query)
		return perr
	})
	if err != nil {
		return nil, services.Wrap(services.ErrCorrupt, s.component, "prepare lookup", s.path, err)
	}
	return &Lookup{stmt: stmt, store: s}, nil
}

// Get runs the lookup for key and scans the first row into dest. It reports
// false when no row matches.
func (l *Lookup) Get(ctx context.Context, key any, dest ...any) (bool, error) {
	ctx = ensureContext(ctx)
	err := retryOnBusy(ctx, func() error {
		return l.stmt.QueryRowContext(ctx, key).Scan(dest...)
	})
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	default:
		return false, services.Wrap(services.ErrCorrupt, l.store.component, "lookup", l.store.path, err)
	}
}

// Close releases the prepared statement.
func (l *Lookup) Close() error {
	if l == nil || l.stmt == nil {
		return nil
	}
	return l.stmt.Close()
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code()&0xff == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

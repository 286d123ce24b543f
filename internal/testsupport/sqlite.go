package testsupport

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

// CreateDB creates a SQLite database at dir/name, runs the statements and
// returns its path.
func CreateDB(t testing.TB, dir, name string, statements ...string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer db.Close()
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("exec %q on %s: %v", stmt, name, err)
		}
	}
	return path
}

// Insert appends rows to table in an existing database. Each row is a list of
// values for columns.
func Insert(t testing.TB, path, table string, columns []string, rows ...[]any) {
	t.Helper()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer db.Close()

	placeholders := ""
	cols := ""
	for i, c := range columns {
		if i > 0 {
			placeholders += ", "
			cols += ", "
		}
		placeholders += "?"
		cols += c
	}
	query := "INSERT INTO " + table + " (" + cols + ") VALUES (" + placeholders + ")"
	for _, row := range rows {
		if _, err := db.Exec(query, row...); err != nil {
			t.Fatalf("insert into %s: %v", table, err)
		}
	}
}

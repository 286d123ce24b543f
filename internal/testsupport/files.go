package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// WriteGarbage writes size bytes of a repeating non-SQLite pattern to path.
// Used to simulate corrupt databases. A size <= 0 writes a single byte.
func WriteGarbage(t testing.TB, path string, size int) string {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, bytes.Repeat([]byte{0x42}, size), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

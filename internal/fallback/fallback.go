// Package fallback keeps batches that could not be submitted so they can be
// imported by hand later.
//
// Files are named <unix-ms>-<game>-<playtype>.json and hold the batch as
// tab-indented JSON, the same document the import endpoint accepts.
package fallback

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/zkrising/tachi-import-scripts/internal/batchmanual"
	"github.com/zkrising/tachi-import-scripts/internal/fileutil"
	"github.com/zkrising/tachi-import-scripts/internal/services"
)

const (
	extension = ".json"
	// maxCollisionRetries bounds how far Save moves the timestamp forward
	// when several batches for the same playtype land in one millisecond.
	maxCollisionRetries = 1000
)

// Entry describes a saved batch.
type Entry struct {
	Name     string
	Path     string
	SavedAt  time.Time
	Game     batchmanual.Game
	Playtype batchmanual.Playtype
	Size     int64
}

// Dir is a fallback directory.
type Dir struct {
	path string
	now  func() time.Time
}

// Option configures a Dir.
type Option func(*Dir)

// WithClock overrides the time used to name saved files.
func WithClock(now func() time.Time) Option {
	return func(d *Dir) {
		if now != nil {
			d.now = now
		}
	}
}

// New returns the fallback directory at path. The directory is created on
// first save.
func New(path string, opts ...Option) *Dir {
	d := &Dir{path: path, now: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Path returns the directory location.
func (d *Dir) Path() string {
	return d.path
}

// FileName builds the file name for a batch saved at t.
func FileName(t time.Time, game batchmanual.Game, playtype batchmanual.Playtype) string {
	return fmt.Sprintf("%d-%s-%s%s", t.UnixMilli(), game, playtype, extension)
}

// ParseName splits a fallback file name into its parts.
func ParseName(name string) (Entry, bool) {
	base := filepath.Base(name)
	if !strings.HasSuffix(base, extension) {
		return Entry{}, false
	}
	parts := strings.SplitN(strings.TrimSuffix(base, extension), "-", 3)
	if len(parts) != 3 || parts[1] == "" || parts[2] == "" {
		return Entry{}, false
	}
	ms, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || ms < 0 {
		return Entry{}, false
	}
	return Entry{
		Name:     base,
		SavedAt:  time.UnixMilli(ms),
		Game:     batchmanual.Game(parts[1]),
		Playtype: batchmanual.Playtype(parts[2]),
	}, true
}

// Save writes batch to the directory and returns the file path.
func (d *Dir) Save(batch batchmanual.Batch) (string, error) {
	if strings.TrimSpace(d.path) == "" {
		return "", services.Wrap(services.ErrConfiguration, "fallback", "save", "fallback directory is not configured", nil)
	}
	if err := os.MkdirAll(d.path, 0o755); err != nil {
		return "", fmt.Errorf("create fallback dir: %w", err)
	}

	var buf bytes.Buffer
	if err := batchmanual.Encode(&buf, batch); err != nil {
		return "", err
	}

	at := d.now()
	for i := 0; i < maxCollisionRetries; i++ {
		path := filepath.Join(d.path, FileName(at, batch.Meta.Game, batch.Meta.Playtype))
		err := fileutil.WriteExclusive(path, buf.Bytes(), 0o644)
		if err == nil {
			return path, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("write fallback file: %w", err)
		}
		at = at.Add(time.Millisecond)
	}
	return "", fmt.Errorf("write fallback file: no free name after %d attempts", maxCollisionRetries)
}

// List returns saved batches, oldest first. A missing directory is empty.
func (d *Dir) List() ([]Entry, error) {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read fallback dir: %w", err)
	}

	var out []Entry
	for _, de := range entries {
		if de.IsDir() {
			continue
		}
		entry, ok := ParseName(de.Name())
		if !ok {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		entry.Path = filepath.Join(d.path, entry.Name)
		entry.Size = info.Size()
		out = append(out, entry)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SavedAt.Equal(out[j].SavedAt) {
			return out[i].Name < out[j].Name
		}
		return out[i].SavedAt.Before(out[j].SavedAt)
	})
	return out, nil
}

// Resolve maps a file name in the directory, or any path, to a file path.
func (d *Dir) Resolve(name string) string {
	if filepath.IsAbs(name) || strings.ContainsRune(name, filepath.Separator) {
		return name
	}
	return filepath.Join(d.path, name)
}

// Load reads and validates a saved batch.
func (d *Dir) Load(name string) (batchmanual.Batch, error) {
	return LoadFile(d.Resolve(name))
}

// Remove deletes a saved batch.
func (d *Dir) Remove(name string) error {
	if err := os.Remove(d.Resolve(name)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return services.Wrap(services.ErrNotFound, "fallback", "remove", name, err)
		}
		return fmt.Errorf("remove fallback file: %w", err)
	}
	return nil
}

// LoadFile reads and validates a batch file at path.
func LoadFile(path string) (batchmanual.Batch, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return batchmanual.Batch{}, services.Wrap(services.ErrNotFound, "fallback", "load", path, err)
		}
		return batchmanual.Batch{}, fmt.Errorf("open batch file: %w", err)
	}
	defer f.Close()

	batch, err := batchmanual.Decode(f)
	if err != nil {
		return batchmanual.Batch{}, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return batch, nil
}

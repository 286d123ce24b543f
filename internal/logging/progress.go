package logging

import (
	"strings"
	"sync"
)

// ProgressDeduper suppresses progress descriptions identical to the one
// reported immediately before. A description that changes and later changes
// back is reported again.
type ProgressDeduper struct {
	mu   sync.Mutex
	last string
	seen bool
}

// ShouldLog reports whether description differs from the previous one and
// records it as the latest.
func (d *ProgressDeduper) ShouldLog(description string) bool {
	if d == nil {
		return true
	}
	description = strings.TrimSpace(description)
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.seen && description == d.last {
		return false
	}
	d.last = description
	d.seen = true
	return true
}

// Reset clears the remembered description (e.g. when a new import starts).
func (d *ProgressDeduper) Reset() {
	if d == nil {
		return
	}
	d.mu.Lock()
	d.last = ""
	d.seen = false
	d.mu.Unlock()
}

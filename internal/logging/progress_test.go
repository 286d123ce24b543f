package logging_test

import (
	"testing"

	"github.com/zkrising/tachi-import-scripts/internal/logging"
)

func TestProgressDeduperSuppressesConsecutiveDuplicates(t *testing.T) {
	var d logging.ProgressDeduper
	steps := []struct {
		desc string
		want bool
	}{
		{"Parsing scores", true},
		{"Parsing scores", false},
		{"  Parsing scores  ", false},
		{"Importing 50/100", true},
		{"Importing 50/100", false},
		{"Parsing scores", true},
	}
	for i, step := range steps {
		if got := d.ShouldLog(step.desc); got != step.want {
			t.Fatalf("step %d (%q): got %v want %v", i, step.desc, got, step.want)
		}
	}

	d.Reset()
	if !d.ShouldLog("Parsing scores") {
		t.Fatal("expected description to log after reset")
	}
}

func TestProgressDeduperEmptyFirstDescription(t *testing.T) {
	var d logging.ProgressDeduper
	if !d.ShouldLog("") {
		t.Fatal("first description always logs")
	}
	if d.ShouldLog("") {
		t.Fatal("repeated empty description should be suppressed")
	}
}

func TestNilProgressDeduperAlwaysLogs(t *testing.T) {
	var d *logging.ProgressDeduper
	if !d.ShouldLog("x") || !d.ShouldLog("x") {
		t.Fatal("nil deduper should not suppress")
	}
}

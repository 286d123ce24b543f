package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// lineLevel is the bracketed tag printed on a report line.
type lineLevel string

const (
	levelInfo  lineLevel = "INFO"
	levelOK    lineLevel = "OK"
	levelWarn  lineLevel = "WARN"
	levelError lineLevel = "ERROR"
)

const colorReset = "\x1b[0m"

var levelColors = map[lineLevel]string{
	levelInfo:  "\x1b[34m",
	levelOK:    "\x1b[32m",
	levelWarn:  "\x1b[33m",
	levelError: "\x1b[31m",
}

const reportLabelWidth = 16

// report collects aligned "label: [LEVEL] message" lines for terminal output.
type report struct {
	color bool
	lines []string
}

func newReport(w io.Writer) *report {
	return &report{color: isTerminal(w)}
}

func (r *report) add(label string, level lineLevel, message string) {
	tag := "[" + string(level) + "]"
	if message != "" {
		tag += " " + message
	}
	line := fmt.Sprintf("  %-*s %s", reportLabelWidth, label+":", tag)
	if r.color {
		line = levelColors[level] + line + colorReset
	}
	r.lines = append(r.lines, line)
}

// addCount reports n at levelOK, or at bad when n is outside the expected
// range reported by ok.
func (r *report) addCount(label string, n int, ok bool, bad lineLevel) {
	level := levelOK
	if !ok {
		level = bad
	}
	r.add(label, level, formatCount(n))
}

func formatCount(n int) string {
	return humanize.Comma(int64(n))
}

func (r *report) String() string {
	return strings.Join(r.lines, "\n")
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// renderTable draws rows under headers with right-aligned numeric columns.
// A non-empty title is rendered above the header row.
func renderTable(title string, headers []string, rows [][]string, numeric ...int) string {
	if len(headers) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	if title != "" {
		tw.SetTitle(title)
	}

	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, len(headers))
		for i := range r {
			r[i] = ""
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, len(numeric))
	for _, col := range numeric {
		configs = append(configs, table.ColumnConfig{Number: col, Align: text.AlignRight, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

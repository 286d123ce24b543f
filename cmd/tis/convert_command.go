package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zkrising/tachi-import-scripts/internal/batchmanual"
	"github.com/zkrising/tachi-import-scripts/internal/convert"
	"github.com/zkrising/tachi-import-scripts/internal/fileutil"
)

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var outDir string

	convertCmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert a local score database into batch-manual JSON",
		Long: "Convert a local score database into batch-manual JSON.\n\n" +
			"Without --out the batches are printed to stdout as a JSON array and the summary goes to stderr.",
	}
	convertCmd.PersistentFlags().StringVarP(&outDir, "out", "o", "", "Write one JSON file per batch into this directory")

	run := func(cmd *cobra.Command, req convert.Request) error {
		return runConvert(ctx, cmd, req, outDir)
	}
	for _, sub := range newSourceCommands(ctx, "Convert", run) {
		convertCmd.AddCommand(sub)
	}
	return convertCmd
}

func runConvert(ctx *commandContext, cmd *cobra.Command, req convert.Request, outDir string) error {
	s, err := ctx.begin(cmd)
	if err != nil {
		return err
	}
	defer s.end()

	result, err := s.convert(req)
	if err != nil {
		return err
	}

	if strings.TrimSpace(outDir) == "" {
		if err := writeBatchArray(cmd.OutOrStdout(), result.Batches); err != nil {
			return err
		}
		fmt.Fprintln(cmd.ErrOrStderr(), renderConversion(result, nil, cmd.ErrOrStderr()))
		return nil
	}

	paths, err := writeBatchFiles(outDir, result.Batches)
	if err != nil {
		return err
	}
	if ctx.flags.json {
		return writeJSON(cmd, summarizeConversion(result, paths))
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderConversion(result, paths, cmd.OutOrStdout()))
	return nil
}

func writeBatchArray(w io.Writer, batches []batchmanual.Batch) error {
	if batches == nil {
		batches = []batchmanual.Batch{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "\t")
	if err := enc.Encode(batches); err != nil {
		return fmt.Errorf("write batches: %w", err)
	}
	return nil
}

// writeBatchFiles writes each batch to <dir>/<game>-<playtype>.json and
// returns the paths in batch order.
func writeBatchFiles(dir string, batches []batchmanual.Batch) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	paths := make([]string, 0, len(batches))
	for _, batch := range batches {
		var buf bytes.Buffer
		if err := batchmanual.Encode(&buf, batch); err != nil {
			return paths, err
		}
		path := filepath.Join(dir, fmt.Sprintf("%s-%s.json", batch.Meta.Game, batch.Meta.Playtype))
		if err := fileutil.WriteAtomic(path, buf.Bytes(), 0o644); err != nil {
			return paths, fmt.Errorf("write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

type batchSummary struct {
	Game     batchmanual.Game     `json:"game"`
	Playtype batchmanual.Playtype `json:"playtype"`
	Scores   int                  `json:"scores"`
	Path     string               `json:"path,omitempty"`
}

type conversionSummary struct {
	RunID      string         `json:"run_id"`
	Source     string         `json:"source"`
	Rows       int            `json:"rows"`
	Scores     int            `json:"scores"`
	Rejected   int            `json:"rejected"`
	Filtered   int            `json:"filtered"`
	DurationMS int64          `json:"duration_ms"`
	Batches    []batchSummary `json:"batches"`
}

func summarizeConversion(result convert.Result, paths []string) conversionSummary {
	summary := conversionSummary{
		RunID:      result.RunID,
		Source:     result.Report.Source,
		Rows:       result.Report.Rows,
		Scores:     len(result.Report.Scores),
		Rejected:   result.Report.Rejected(),
		Filtered:   result.Report.Filtered(),
		DurationMS: result.Duration.Milliseconds(),
		Batches:    make([]batchSummary, 0, len(result.Batches)),
	}
	for i, batch := range result.Batches {
		entry := batchSummary{Game: batch.Meta.Game, Playtype: batch.Meta.Playtype, Scores: len(batch.Scores)}
		if i < len(paths) {
			entry.Path = paths[i]
		}
		summary.Batches = append(summary.Batches, entry)
	}
	return summary
}

func renderConversion(result convert.Result, paths []string, w io.Writer) string {
	summary := summarizeConversion(result, paths)

	headers := []string{"Game", "Playtype", "Scores"}
	if len(paths) > 0 {
		headers = append(headers, "File")
	}
	rows := make([][]string, 0, len(summary.Batches))
	for _, b := range summary.Batches {
		row := []string{string(b.Game), string(b.Playtype), formatCount(b.Scores)}
		if len(paths) > 0 {
			row = append(row, b.Path)
		}
		rows = append(rows, row)
	}

	r := newReport(w)
	r.add("Rows read", levelInfo, formatCount(summary.Rows))
	r.addCount("Converted", summary.Scores, summary.Scores > 0, levelWarn)
	r.addCount("Rejected", summary.Rejected, summary.Rejected == 0, levelWarn)
	r.add("Filtered", levelInfo, formatCount(summary.Filtered))
	if len(rows) == 0 {
		return r.String()
	}
	return renderTable("Converted "+sourceLabel(convert.Source(summary.Source)), headers, rows, 3) + "\n" + r.String()
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/zkrising/tachi-import-scripts/internal/batchmanual"
	"github.com/zkrising/tachi-import-scripts/internal/logging"
	"github.com/zkrising/tachi-import-scripts/internal/tachi"
)

type importSummary struct {
	File         string `json:"file,omitempty"`
	Game         string `json:"game"`
	Playtype     string `json:"playtype"`
	State        string `json:"state"`
	RequestID    string `json:"request_id"`
	ImportID     string `json:"import_id,omitempty"`
	Scores       int    `json:"scores"`
	NewScores    int    `json:"new_scores"`
	Failed       int    `json:"failed"`
	FallbackPath string `json:"fallback_path,omitempty"`
	Error        string `json:"error,omitempty"`
}

// submitAll submits batches in order and keeps going after a failed import so
// every batch gets a result. A missing token or a cancelled context stops the
// loop early.
func (s *session) submitAll(client *tachi.Client, batches []batchmanual.Batch) ([]tachi.Result, error) {
	results := make([]tachi.Result, 0, len(batches))
	failed := 0
	for _, batch := range batches {
		if err := s.cmd.Context().Err(); err != nil {
			return results, err
		}
		result, err := client.Submit(s.cmd.Context(), batch)
		s.ctx.recorder.ObserveImport(result)
		results = append(results, result)
		if err == nil {
			continue
		}
		failed++
		switch {
		case errors.Is(err, tachi.ErrMissingCredential):
			return results, fmt.Errorf("%w (run `tis config set-token TOKEN` or export TIS_API_TOKEN)", err)
		case errors.Is(err, context.Canceled):
			return results, err
		}
	}
	if failed > 0 {
		return results, fmt.Errorf("%d of %d imports failed", failed, len(batches))
	}
	return results, nil
}

func summarizeImports(results []tachi.Result, batches []batchmanual.Batch, files []string) []importSummary {
	out := make([]importSummary, 0, len(results))
	for i, r := range results {
		entry := importSummary{
			Game:         string(r.Game),
			Playtype:     string(r.Playtype),
			State:        string(r.State),
			RequestID:    r.RequestID,
			NewScores:    r.NewScores(),
			Failed:       r.Failed(),
			FallbackPath: r.FallbackPath,
		}
		if i < len(batches) {
			entry.Scores = len(batches[i].Scores)
		}
		if i < len(files) {
			entry.File = files[i]
		}
		if r.Import != nil {
			entry.ImportID = r.Import.ImportID
		}
		if r.Err != nil {
			entry.Error = r.Err.Error()
		}
		out = append(out, entry)
	}
	return out
}

// resultLevel maps the final submission state onto a report level. Successful
// imports where the server rejected some scores are flagged as warnings.
func resultLevel(r tachi.Result) lineLevel {
	switch r.State {
	case tachi.StateFailure:
		return levelError
	case tachi.StateSuccess:
		if r.Failed() > 0 {
			return levelWarn
		}
		return levelOK
	default:
		return levelInfo
	}
}

func renderImports(results []tachi.Result, batches []batchmanual.Batch, files []string, hub *logging.StreamHub, w io.Writer) string {
	r := newReport(w)
	for i, entry := range summarizeImports(results, batches, files) {
		var message string
		if entry.State == string(tachi.StateSuccess) {
			message = fmt.Sprintf("New Scores: %s | Failed %s", formatCount(entry.NewScores), formatCount(entry.Failed))
		} else {
			message = entry.Error
			if entry.FallbackPath != "" {
				message += "; saved to " + entry.FallbackPath
			}
		}
		if entry.File != "" {
			message += " (" + entry.File + ")"
		}
		r.add(entry.Game+" "+entry.Playtype, resultLevel(results[i]), message)
	}
	warnings, errs := hub.LevelCount("WARN"), hub.LevelCount("ERROR")
	switch {
	case errs > 0:
		r.add("Log", levelError, fmt.Sprintf("%s errors, %s warnings", formatCount(errs), formatCount(warnings)))
	case warnings > 0:
		r.add("Log", levelWarn, fmt.Sprintf("%s warnings", formatCount(warnings)))
	}
	return r.String()
}

// reportImports prints the results as JSON or status lines. The submit error
// is returned unchanged so the exit status reflects it.
func reportImports(ctx *commandContext, cmd *cobra.Command, results []tachi.Result, batches []batchmanual.Batch, files []string, submitErr error) error {
	if ctx.flags.json {
		if err := writeJSON(cmd, summarizeImports(results, batches, files)); err != nil {
			return err
		}
		return submitErr
	}
	if len(results) > 0 {
		fmt.Fprintln(cmd.OutOrStdout(), renderImports(results, batches, files, ctx.hub, cmd.OutOrStdout()))
	}
	return submitErr
}

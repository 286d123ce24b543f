package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zkrising/tachi-import-scripts/internal/batchmanual"
	"github.com/zkrising/tachi-import-scripts/internal/fallback"
	"github.com/zkrising/tachi-import-scripts/internal/tachi"
	"github.com/zkrising/tachi-import-scripts/internal/tachi/tachitest"
	"github.com/zkrising/tachi-import-scripts/internal/testsupport"
)

func TestSyncImportsEveryBatch(t *testing.T) {
	srv := tachitest.New(t, tachitest.WithSyncImports())
	env := setupCLITestEnv(t, testsupport.WithServer(srv.URL))
	scorePath, chartPath := lr2Fixture(t)
	textfile := filepath.Join(t.TempDir(), "tis.prom")

	out, errOut, err := runCLI(t, []string{
		"--metrics-textfile", textfile,
		"sync", "lr2", "--score-db", scorePath, "--chart-db", chartPath,
	}, env.configPath)
	if err != nil {
		t.Fatalf("sync: %v\n%s", err, errOut)
	}

	subs := srv.Submissions()
	if len(subs) != 2 {
		t.Fatalf("expected 2 submissions, got %d", len(subs))
	}
	if got := subs[0].Header.Get("Authorization"); got != "Bearer test-token" {
		t.Fatalf("unexpected auth header %q", got)
	}
	if subs[0].Batch.Meta.Playtype != batchmanual.Playtype7K {
		t.Fatalf("unexpected first batch %+v", subs[0].Batch.Meta)
	}
	requireContains(t, out, "bms 7K:")
	requireContains(t, out, "New Scores: 1 | Failed 0")

	data, err := os.ReadFile(textfile)
	if err != nil {
		t.Fatalf("read metrics textfile: %v", err)
	}
	requireContains(t, string(data), `tis_import_submissions_total{game="bms",playtype="7K",state="success"} 1`)
	requireContains(t, string(data), `tis_conversion_rows_total{source="lr2"} 3`)

	entries, err := fallback.New(env.cfg.Import.FallbackDir).List()
	if err != nil || len(entries) != 0 {
		t.Fatalf("expected no fallback files, got %v (%v)", entries, err)
	}
}

func TestSyncJSONSummary(t *testing.T) {
	srv := tachitest.New(t, tachitest.WithSyncImports(), tachitest.WithFailedScores(1))
	env := setupCLITestEnv(t, testsupport.WithServer(srv.URL))
	scorePath, chartPath := lr2Fixture(t)

	out, errOut, err := runCLI(t, []string{"--json", "sync", "lr2", "--score-db", scorePath, "--chart-db", chartPath}, env.configPath)
	if err != nil {
		t.Fatalf("sync: %v\n%s", err, errOut)
	}
	var summaries []importSummary
	if err := json.Unmarshal([]byte(out), &summaries); err != nil {
		t.Fatalf("decode summary: %v\n%s", err, out)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected 2 summaries, got %+v", summaries)
	}
	first := summaries[0]
	if first.State != string(tachi.StateSuccess) || first.Failed != 1 || first.NewScores != 0 || first.ImportID == "" {
		t.Fatalf("unexpected summary %+v", first)
	}
}

func TestSyncSavesFallbackOnServerError(t *testing.T) {
	srv := tachitest.New(t, tachitest.WithSubmitFailure(http.StatusInternalServerError, "database is on fire"))
	env := setupCLITestEnv(t, testsupport.WithServer(srv.URL))
	scorePath, chartPath := lr2Fixture(t)

	out, _, err := runCLI(t, []string{"sync", "lr2", "--score-db", scorePath, "--chart-db", chartPath}, env.configPath)
	if err == nil {
		t.Fatal("expected sync to fail")
	}
	requireContains(t, err.Error(), "2 of 2 imports failed")
	requireContains(t, out, "saved to "+env.cfg.Import.FallbackDir)

	entries, err := fallback.New(env.cfg.Import.FallbackDir).List()
	if err != nil {
		t.Fatalf("list fallback: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 fallback files, got %d", len(entries))
	}

	out, _, err = runCLI(t, []string{"fallback", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("fallback list: %v", err)
	}
	requireContains(t, out, entries[0].Name)
	requireContains(t, out, "7K")

	// Point the config at a healthy server and resubmit everything.
	good := tachitest.New(t, tachitest.WithSyncImports())
	env.cfg.Server.BaseURL = good.URL
	env.cfg.Server.ClientURL = good.URL
	env.writeConfig(t)

	out, errOut, err := runCLI(t, []string{"fallback", "resubmit", "--all"}, env.configPath)
	if err != nil {
		t.Fatalf("fallback resubmit: %v\n%s", err, errOut)
	}
	requireContains(t, out, "New Scores: 1")
	if len(good.Submissions()) != 2 {
		t.Fatalf("expected 2 resubmissions, got %d", len(good.Submissions()))
	}
	entries, err = fallback.New(env.cfg.Import.FallbackDir).List()
	if err != nil || len(entries) != 0 {
		t.Fatalf("expected fallback dir to be emptied, got %v (%v)", entries, err)
	}
}

func TestSyncWithoutTokenDoesNotSubmit(t *testing.T) {
	srv := tachitest.New(t, tachitest.WithSyncImports())
	env := setupCLITestEnv(t, testsupport.WithServer(srv.URL), testsupport.WithToken(""))
	scorePath, chartPath := lr2Fixture(t)

	_, _, err := runCLI(t, []string{"sync", "lr2", "--score-db", scorePath, "--chart-db", chartPath}, env.configPath)
	if !errors.Is(err, tachi.ErrMissingCredential) {
		t.Fatalf("expected missing credential, got %v", err)
	}
	requireContains(t, err.Error(), "set-token")
	if len(srv.Submissions()) != 0 {
		t.Fatal("nothing should reach the server without a token")
	}
	entries, _ := fallback.New(env.cfg.Import.FallbackDir).List()
	if len(entries) != 0 {
		t.Fatalf("missing token must not write fallback files, got %d", len(entries))
	}
}

func TestImportSubmitsSavedFiles(t *testing.T) {
	srv := tachitest.New(t, tachitest.WithSyncImports())
	env := setupCLITestEnv(t, testsupport.WithServer(srv.URL))
	scorePath, chartPath := lr2Fixture(t)
	outDir := t.TempDir()

	if _, errOut, err := runCLI(t, []string{"convert", "lr2", "--score-db", scorePath, "--chart-db", chartPath, "--out", outDir}, env.configPath); err != nil {
		t.Fatalf("convert: %v\n%s", err, errOut)
	}
	file := filepath.Join(outDir, "bms-14K.json")

	out, errOut, err := runCLI(t, []string{"import", file}, env.configPath)
	if err != nil {
		t.Fatalf("import: %v\n%s", err, errOut)
	}
	requireContains(t, out, "bms 14K:")
	requireContains(t, out, file)
	subs := srv.Submissions()
	if len(subs) != 1 || subs[0].Batch.Meta.Playtype != batchmanual.Playtype14K {
		t.Fatalf("unexpected submissions %+v", subs)
	}
}

func TestImportRejectsInvalidFileBeforeSubmitting(t *testing.T) {
	srv := tachitest.New(t, tachitest.WithSyncImports())
	env := setupCLITestEnv(t, testsupport.WithServer(srv.URL))
	bad := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(bad, []byte(`{"meta":{"game":"bms","playtype":"9K","service":"x"},"scores":[]}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	_, _, err := runCLI(t, []string{"import", bad}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "bad.json") {
		t.Fatalf("expected load error naming the file, got %v", err)
	}
	if len(srv.Submissions()) != 0 {
		t.Fatal("invalid files must not be submitted")
	}
}

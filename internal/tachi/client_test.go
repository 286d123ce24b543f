package tachi_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zkrising/tachi-import-scripts/internal/batchmanual"
	"github.com/zkrising/tachi-import-scripts/internal/fallback"
	"github.com/zkrising/tachi-import-scripts/internal/logging"
	"github.com/zkrising/tachi-import-scripts/internal/services"
	"github.com/zkrising/tachi-import-scripts/internal/tachi"
	"github.com/zkrising/tachi-import-scripts/internal/tachi/tachitest"
	"github.com/zkrising/tachi-import-scripts/internal/testsupport"
)

func batch(n int) batchmanual.Batch {
	b := batchmanual.Batch{Meta: batchmanual.Meta{Game: batchmanual.GameBMS, Playtype: batchmanual.Playtype7K, Service: "TIS"}}
	for i := 0; i < n; i++ {
		b.Scores = append(b.Scores, batchmanual.Score{
			Identifier: "hash",
			MatchType:  batchmanual.MatchBMSChartHash,
			Score:      100 + i,
			Lamp:       batchmanual.LampClear,
			Judgements: map[string]int{"pgreat": 50, "great": i},
		})
	}
	return b
}

func states(r tachi.Result) []tachi.State {
	out := []tachi.State{tachi.StateInit}
	for _, tr := range r.Transitions {
		out = append(out, tr.To)
	}
	return out
}

func newLogger(t *testing.T) (*logging.StreamHub, tachi.Option) {
	t.Helper()
	hub := logging.NewStreamHub(128)
	logger, err := logging.New(logging.Options{Level: "debug", Format: "json", Writer: io.Discard, Stream: hub})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return hub, tachi.WithLogger(logger)
}

func TestSubmitAsyncPollsUntilComplete(t *testing.T) {
	srv := tachitest.New(t, tachitest.WithProgress("Importing scores.", "Importing scores.", "Processing sessions."), tachitest.WithFailedScores(1))
	hub, logOpt := newLogger(t)
	fb := fallback.New(t.TempDir())

	client := tachi.New(srv.URL, "test-token",
		tachi.WithPollInterval(time.Millisecond),
		tachi.WithFallback(fb),
		tachi.WithUserAgent("tis/test"),
		tachi.WithRequestIDs(func() string { return "req-1" }),
		logOpt,
	)
	res, err := client.Submit(context.Background(), batch(3))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.State != tachi.StateSuccess || !res.Async {
		t.Fatalf("result = %+v", res)
	}
	want := []tachi.State{tachi.StateInit, tachi.StateSubmitting, tachi.StatePolling, tachi.StateSuccess}
	if got := states(res); !reflect.DeepEqual(got, want) {
		t.Fatalf("states = %v, want %v", got, want)
	}
	if res.NewScores() != 2 || res.Failed() != 1 {
		t.Fatalf("counts new=%d failed=%d", res.NewScores(), res.Failed())
	}
	if srv.Polls() != 4 {
		t.Fatalf("expected 4 polls, got %d", srv.Polls())
	}

	subs := srv.Submissions()
	if len(subs) != 1 {
		t.Fatalf("expected one submission, got %d", len(subs))
	}
	h := subs[0].Header
	if h.Get("User-Agent") != "tis/test" || h.Get("X-User-Intent") != "true" || subs[0].RequestID != "req-1" {
		t.Fatalf("headers = %v request id %q", h, subs[0].RequestID)
	}
	if len(subs[0].Batch.Scores) != 3 || subs[0].Batch.Scores[2].Score != 102 {
		t.Fatalf("server received %+v", subs[0].Batch)
	}

	entries, _ := fb.List()
	if len(entries) != 0 {
		t.Fatalf("successful import must not write a fallback file: %+v", entries)
	}

	events, _ := hub.Tail(128)
	var progress []string
	var summary bool
	for _, evt := range events {
		if evt.Progress {
			progress = append(progress, evt.Message)
		}
		if evt.Message == "New Scores: 2 | Failed 1" {
			summary = true
		}
	}
	if !reflect.DeepEqual(progress, []string{"Importing scores.", "Processing sessions."}) {
		t.Fatalf("progress lines = %v", progress)
	}
	if !summary {
		t.Fatal("missing import summary line")
	}
}

func TestSubmitSyncProtocol(t *testing.T) {
	srv := tachitest.New(t, tachitest.WithSyncImports())
	client := tachi.New(srv.URL+"/", "test-token")

	res, err := client.Submit(context.Background(), batch(2))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	want := []tachi.State{tachi.StateInit, tachi.StateSubmitting, tachi.StateSuccess}
	if got := states(res); !reflect.DeepEqual(got, want) {
		t.Fatalf("states = %v", got)
	}
	if res.Async || res.NewScores() != 2 || srv.Polls() != 0 {
		t.Fatalf("result = %+v polls=%d", res, srv.Polls())
	}
}

func TestSubmitMissingCredentialMakesNoRequest(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()
	fb := fallback.New(t.TempDir())

	res, err := tachi.New(srv.URL, "  ", tachi.WithFallback(fb)).Submit(context.Background(), batch(1))
	if !errors.Is(err, tachi.ErrMissingCredential) || !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected missing credential, got %v", err)
	}
	if hits.Load() != 0 {
		t.Fatal("no request may be sent without a token")
	}
	want := []tachi.State{tachi.StateInit, tachi.StateFailure}
	if got := states(res); !reflect.DeepEqual(got, want) {
		t.Fatalf("states = %v", got)
	}
	if res.FallbackPath != "" {
		t.Fatal("missing credential must not write a fallback file")
	}
}

func TestSubmitRejectedWritesFallback(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusInternalServerError} {
		srv := tachitest.New(t, tachitest.WithSubmitFailure(status, "Invalid batch-manual."))
		fb := fallback.New(t.TempDir())
		hub, logOpt := newLogger(t)

		res, err := tachi.New(srv.URL, "test-token", tachi.WithFallback(fb), logOpt).Submit(context.Background(), batch(1))
		if !errors.Is(err, services.ErrRemote) {
			t.Fatalf("status %d: expected remote error, got %v", status, err)
		}
		if res.State != tachi.StateFailure || res.StatusCode != status || srv.Polls() != 0 {
			t.Fatalf("status %d: result = %+v", status, res)
		}
		if res.FallbackPath == "" {
			t.Fatalf("status %d: expected fallback file", status)
		}
		saved, err := fallback.LoadFile(res.FallbackPath)
		if err != nil || len(saved.Scores) != 1 {
			t.Fatalf("status %d: fallback = %+v, %v", status, saved, err)
		}

		wantEvent := "import_rejected"
		if status >= 500 {
			wantEvent = "import_server_error"
		}
		found := false
		events, _ := hub.Tail(128)
		for _, evt := range events {
			if evt.Level == "ERROR" && evt.Fields["event_type"] == wantEvent {
				found = true
			}
		}
		if !found {
			t.Fatalf("status %d: missing %s log", status, wantEvent)
		}
	}
}

func TestSubmitWrongTokenFails(t *testing.T) {
	srv := tachitest.New(t, tachitest.WithToken("right"))
	res, err := tachi.New(srv.URL, "wrong").Submit(context.Background(), batch(1))
	if !errors.Is(err, services.ErrRemote) || res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 remote failure, got %v (%d)", err, res.StatusCode)
	}
}

func TestSubmitPollFailureWritesFallback(t *testing.T) {
	srv := tachitest.New(t, tachitest.WithPollFailure("Import crashed."))
	fb := fallback.New(t.TempDir())

	res, err := tachi.New(srv.URL, "test-token", tachi.WithFallback(fb), tachi.WithPollInterval(time.Millisecond)).
		Submit(context.Background(), batch(1))
	if !errors.Is(err, services.ErrRemote) {
		t.Fatalf("expected remote error, got %v", err)
	}
	want := []tachi.State{tachi.StateInit, tachi.StateSubmitting, tachi.StatePolling, tachi.StateFailure}
	if got := states(res); !reflect.DeepEqual(got, want) {
		t.Fatalf("states = %v", got)
	}
	if res.FallbackPath == "" {
		t.Fatal("poll failure must write a fallback file")
	}
}

func TestSubmitTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	fb := fallback.New(t.TempDir())

	res, err := tachi.New(url, "test-token", tachi.WithFallback(fb)).Submit(context.Background(), batch(1))
	if !errors.Is(err, services.ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if res.FallbackPath == "" {
		t.Fatal("transport failure must write a fallback file")
	}
}

func TestSubmitInvalidJSONResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer srv.Close()

	res, err := tachi.New(srv.URL, "test-token").Submit(context.Background(), batch(1))
	if !errors.Is(err, services.ErrRemote) || res.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected remote error, got %v", err)
	}
}

func TestSubmitCancelledWhilePolling(t *testing.T) {
	srv := tachitest.New(t, tachitest.WithProgress("Waiting in queue."), tachitest.WithNeverCompletes())
	fb := fallback.New(t.TempDir())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	res, err := tachi.New(srv.URL, "test-token", tachi.WithFallback(fb), tachi.WithPollInterval(5*time.Millisecond)).
		Submit(ctx, batch(1))
	if err == nil || res.State != tachi.StateFailure {
		t.Fatalf("expected failure after cancellation, got %+v", res)
	}
	if !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, services.ErrTransport) {
		t.Fatalf("unexpected error %v", err)
	}
	if srv.Polls() < 2 {
		t.Fatalf("expected repeated polling, got %d", srv.Polls())
	}
}

func TestNewFromConfigUsesConfiguredServer(t *testing.T) {
	srv := tachitest.New(t, tachitest.WithSyncImports())
	cfg := testsupport.NewConfig(t, testsupport.WithServer(srv.URL))

	client := tachi.NewFromConfig(cfg)
	if client.BaseURL() != srv.URL {
		t.Fatalf("base url = %q", client.BaseURL())
	}
	if _, err := client.Submit(context.Background(), batch(1)); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if ua := srv.Submissions()[0].Header.Get("User-Agent"); ua != cfg.Import.UserAgent {
		t.Fatalf("user agent = %q", ua)
	}
}

func TestCanTransition(t *testing.T) {
	if tachi.CanTransition(tachi.StateInit, tachi.StatePolling) {
		t.Fatal("INIT cannot go straight to POLLING")
	}
	if tachi.CanTransition(tachi.StateSuccess, tachi.StateFailure) {
		t.Fatal("terminal states have no transitions")
	}
	if !tachi.StateFailure.Terminal() || tachi.StatePolling.Terminal() {
		t.Fatal("terminal classification wrong")
	}
}

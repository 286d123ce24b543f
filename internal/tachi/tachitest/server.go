// Package tachitest runs an in-process Tachi server for tests.
package tachitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zkrising/tachi-import-scripts/internal/batchmanual"
)

// Submission is one request the server accepted for processing.
type Submission struct {
	Batch     batchmanual.Batch
	Header    http.Header
	ImportID  string
	RequestID string
}

// Server is a fake Tachi import endpoint.
type Server struct {
	*httptest.Server

	token          string
	sync           bool
	progress       []string
	failedScores   int
	submitStatus   int
	submitMessage  string
	pollFailure    string
	hangAfterSteps bool

	mu          sync.Mutex
	submissions []Submission
	polls       map[string]int
	pollCount   int
}

// Option configures the fake server.
type Option func(*Server)

// WithToken sets the bearer token the server accepts.
func WithToken(token string) Option {
	return func(s *Server) { s.token = token }
}

// WithSyncImports makes the server answer submissions with the finished
// import instead of a poll URL.
func WithSyncImports() Option {
	return func(s *Server) { s.sync = true }
}

// WithProgress sets the descriptions returned by successive polls before the
// import completes.
func WithProgress(steps ...string) Option {
	return func(s *Server) { s.progress = steps }
}

// WithNeverCompletes keeps returning the last progress step forever.
func WithNeverCompletes() Option {
	return func(s *Server) { s.hangAfterSteps = true }
}

// WithFailedScores marks the last n scores of every batch as failed.
func WithFailedScores(n int) Option {
	return func(s *Server) { s.failedScores = n }
}

// WithSubmitFailure rejects every submission with status and description.
func WithSubmitFailure(status int, description string) Option {
	return func(s *Server) {
		s.submitStatus = status
		s.submitMessage = description
	}
}

// WithPollFailure fails every poll with description.
func WithPollFailure(description string) Option {
	return func(s *Server) { s.pollFailure = description }
}

// New starts a server and closes it when the test ends.
func New(t testing.TB, opts ...Option) *Server {
	t.Helper()
	s := &Server{token: "test-token", polls: make(map[string]int)}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Post("/ir/direct-manual/import", s.authorized(s.handleImport))
	r.Get("/api/v1/imports/{importID}/poll-status", s.authorized(s.handlePoll))

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// Submissions returns every accepted submission in arrival order.
func (s *Server) Submissions() []Submission {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Submission(nil), s.submissions...)
}

// Polls returns the number of poll requests served.
func (s *Server) Polls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pollCount
}

func (s *Server) authorized(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+s.token {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "description": "Unauthorised."})
			return
		}
		next(w, r)
	}
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if s.submitStatus != 0 {
		writeJSON(w, s.submitStatus, map[string]any{"success": false, "description": s.submitMessage})
		return
	}
	if r.Header.Get("X-User-Intent") != "true" || !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "description": "Missing import headers."})
		return
	}
	batch, err := batchmanual.Decode(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "description": err.Error()})
		return
	}

	s.mu.Lock()
	importID := fmt.Sprintf("I%04d", len(s.submissions)+1)
	s.submissions = append(s.submissions, Submission{
		Batch:     batch,
		Header:    r.Header.Clone(),
		ImportID:  importID,
		RequestID: middleware.GetReqID(r.Context()),
	})
	s.mu.Unlock()

	if s.sync {
		writeJSON(w, http.StatusOK, map[string]any{
			"success":     true,
			"description": "Imported scores.",
			"body":        s.document(importID, batch),
		})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"success":     true,
		"description": "Import loaded into queue.",
		"body": map[string]any{
			"url":      fmt.Sprintf("%s/api/v1/imports/%s/poll-status", s.URL, importID),
			"importID": importID,
		},
	})
}

func (s *Server) handlePoll(w http.ResponseWriter, r *http.Request) {
	importID := chi.URLParam(r, "importID")

	s.mu.Lock()
	s.pollCount++
	step := s.polls[importID]
	s.polls[importID] = step + 1
	var batch *batchmanual.Batch
	for i := range s.submissions {
		if s.submissions[i].ImportID == importID {
			b := s.submissions[i].Batch
			batch = &b
		}
	}
	s.mu.Unlock()

	if batch == nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "description": "No such import."})
		return
	}
	if s.pollFailure != "" {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "description": s.pollFailure})
		return
	}
	if step < len(s.progress) || (s.hangAfterSteps && len(s.progress) > 0) {
		idx := step
		if idx >= len(s.progress) {
			idx = len(s.progress) - 1
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":     true,
			"description": "Import is ongoing.",
			"body": map[string]any{
				"importStatus": "ongoing",
				"progress":     map[string]any{"description": s.progress[idx]},
			},
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"description": "Import completed.",
		"body": map[string]any{
			"importStatus": "completed",
			"import":       s.document(importID, *batch),
		},
	})
}

func (s *Server) document(importID string, batch batchmanual.Batch) map[string]any {
	failed := min(s.failedScores, len(batch.Scores))
	scoreIDs := make([]string, 0, len(batch.Scores)-failed)
	errs := make([]map[string]any, 0, failed)
	for i, score := range batch.Scores {
		if i >= len(batch.Scores)-failed {
			errs = append(errs, map[string]any{"type": "InvalidScore", "message": "Could not resolve chart " + score.Identifier})
			continue
		}
		scoreIDs = append(scoreIDs, fmt.Sprintf("R%s-%d", importID, i))
	}
	return map[string]any{"importID": importID, "scoreIDs": scoreIDs, "errors": errs}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

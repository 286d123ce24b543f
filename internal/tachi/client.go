package tachi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zkrising/tachi-import-scripts/internal/batchmanual"
	"github.com/zkrising/tachi-import-scripts/internal/config"
	"github.com/zkrising/tachi-import-scripts/internal/logging"
	"github.com/zkrising/tachi-import-scripts/internal/services"
)

const (
	importPath          = "/ir/direct-manual/import"
	defaultPollInterval = time.Second
	defaultUserAgent    = "tis"
)

// HTTPDoer describes the HTTP client used for submissions.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Saver persists a batch that could not be submitted.
type Saver interface {
	Save(batch batchmanual.Batch) (string, error)
}

// Result is the terminal outcome of one Submit call.
type Result struct {
	State        State
	RequestID    string
	Game         batchmanual.Game
	Playtype     batchmanual.Playtype
	StatusCode   int
	Async        bool
	Import       *ImportDocument
	FallbackPath string
	Transitions  []Transition
	Err          error
}

// NewScores is the number of scores the server created.
func (r Result) NewScores() int {
	if r.Import == nil {
		return 0
	}
	return len(r.Import.ScoreIDs)
}

// Failed is the number of scores the server rejected.
func (r Result) Failed() int {
	if r.Import == nil {
		return 0
	}
	return len(r.Import.Errors)
}

// Client submits batches to one Tachi server.
type Client struct {
	baseURL      string
	token        string
	userAgent    string
	http         HTTPDoer
	pollInterval time.Duration
	fallback     Saver
	logger       *slog.Logger
	now          func() time.Time
	newID        func() string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		if doer != nil {
			c.http = doer
		}
	}
}

// WithPollInterval sets the wait between poll requests.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// WithFallback sets where failed batches are saved.
func WithFallback(s Saver) Option {
	return func(c *Client) { c.fallback = s }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua = strings.TrimSpace(ua); ua != "" {
			c.userAgent = ua
		}
	}
}

// WithClock overrides the time source for recorded transitions.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// WithRequestIDs overrides request id generation.
func WithRequestIDs(gen func() string) Option {
	return func(c *Client) {
		if gen != nil {
			c.newID = gen
		}
	}
}

// New constructs a client for the server at baseURL authenticating with
// token.
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:        strings.TrimSpace(token),
		userAgent:    defaultUserAgent,
		http:         http.DefaultClient,
		pollInterval: defaultPollInterval,
		logger:       logging.NewNop(),
		now:          time.Now,
		newID:        uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.NewComponentLogger(c.logger, "tachi")
	return c
}

// NewFromConfig builds a client from the configured server, token, timeout
// and user agent. Options are applied after the configured values.
func NewFromConfig(cfg *config.Config, opts ...Option) *Client {
	base := []Option{
		WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout()}),
		WithPollInterval(cfg.PollInterval()),
		WithUserAgent(cfg.Import.UserAgent),
	}
	return New(cfg.Server.BaseURL, cfg.Auth.APIToken, append(base, opts...)...)
}

// BaseURL returns the server the client submits to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Submit sends batch and follows the import to a terminal state. The returned
// error is Result.Err.
func (c *Client) Submit(ctx context.Context, batch batchmanual.Batch) (Result, error) {
	run := &submission{
		client: c,
		batch:  batch,
		m:      newMachine(c.now),
		result: Result{RequestID: c.newID(), Game: batch.Meta.Game, Playtype: batch.Meta.Playtype},
	}
	ctx = services.WithRequestID(ctx, run.result.RequestID)
	ctx = services.WithPlaytype(ctx, string(batch.Meta.Playtype))
	run.logger = logging.WithContext(ctx, c.logger).With(logging.String("game", string(batch.Meta.Game)))

	run.execute(ctx)
	run.result.State = run.m.state
	run.result.Transitions = run.m.history
	return run.result, run.result.Err
}

type submission struct {
	client  *Client
	batch   batchmanual.Batch
	m       *machine
	result  Result
	logger  *slog.Logger
	deduper logging.ProgressDeduper
}

func (s *submission) execute(ctx context.Context) {
	if s.client.token == "" {
		logging.ErrorWithContext(s.logger, "Can't send an import without an auth token.", "missing_credential",
			logging.String(logging.FieldErrorHint, "run `tis config set-token TOKEN` or set TIS_API_TOKEN"),
		)
		s.fail(ctx, ErrMissingCredential, false)
		return
	}

	s.advance(StateSubmitting)
	s.logger.Info(fmt.Sprintf("Making import request to %s for %s (%s).", s.client.baseURL, s.batch.Meta.Game, s.batch.Meta.Playtype),
		logging.Int("scores", len(s.batch.Scores)))

	pollURL, err := s.submit(ctx)
	if err != nil {
		s.fail(ctx, err, true)
		return
	}
	if pollURL == "" {
		s.succeed()
		return
	}

	s.result.Async = true
	s.advance(StatePolling)
	if err := s.poll(ctx, pollURL); err != nil {
		s.fail(ctx, err, true)
		return
	}
	s.succeed()
}

// submit posts the batch. It returns the poll URL for async servers and
// fills result.Import for sync servers.
func (s *submission) submit(ctx context.Context) (string, error) {
	payload, err := json.Marshal(s.batch)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "tachi", "encode batch", "", err)
	}
	endpoint := s.client.baseURL + importPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, "tachi", "build request", endpoint, err)
	}
	s.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-Intent", "true")

	resp, err := s.client.http.Do(req)
	if err != nil {
		logging.ErrorWithContext(s.logger, fmt.Sprintf("Request to %s failed.", s.client.baseURL), "import_transport_failed",
			logging.Error(err))
		return "", services.Wrap(services.ErrTransport, "tachi", "submit", endpoint, err)
	}
	defer resp.Body.Close()
	s.result.StatusCode = resp.StatusCode

	env, err := decodeEnvelope(resp.Body)
	if err != nil {
		logging.ErrorWithContext(s.logger, "Invalid response from server.", "import_bad_response",
			logging.Int("status", resp.StatusCode), logging.Error(err))
		return "", services.Wrap(services.ErrRemote, "tachi", "submit", fmt.Sprintf("status %d", resp.StatusCode), err)
	}
	if !env.Success {
		s.logRemoteFailure(resp, env.Description)
		return "", services.Wrap(services.ErrRemote, "tachi", "submit",
			fmt.Sprintf("%s (%d %s)", env.Description, resp.StatusCode, http.StatusText(resp.StatusCode)), nil)
	}

	body, err := decodeBody[submitBody](env)
	if err != nil {
		return "", services.Wrap(services.ErrRemote, "tachi", "submit", "failed to submit scores", err)
	}
	if body.URL != "" {
		resolved, err := s.resolve(body.URL)
		if err != nil {
			return "", services.Wrap(services.ErrRemote, "tachi", "submit", "bad poll url", err)
		}
		s.logger.Debug("import queued", logging.String("poll_url", resolved))
		return resolved, nil
	}
	if body.ScoreIDs == nil && body.Errors == nil {
		return "", services.Wrap(services.ErrRemote, "tachi", "submit", "response has neither a poll url nor an import document", nil)
	}
	doc := body.ImportDocument
	s.result.Import = &doc
	return "", nil
}

// poll follows the import until it completes, fails or ctx is done.
func (s *submission) poll(ctx context.Context, pollURL string) error {
	for {
		done, err := s.pollOnce(ctx, pollURL)
		if err != nil || done {
			return err
		}

		timer := time.NewTimer(s.client.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return services.Wrap(services.ErrTransport, "tachi", "poll", "cancelled while waiting for import", ctx.Err())
		case <-timer.C:
		}
	}
}

func (s *submission) pollOnce(ctx context.Context, pollURL string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pollURL, nil)
	if err != nil {
		return false, services.Wrap(services.ErrRemote, "tachi", "poll", pollURL, err)
	}
	s.setHeaders(req)

	resp, err := s.client.http.Do(req)
	if err != nil {
		logging.ErrorWithContext(s.logger, fmt.Sprintf("Request to %s failed.", pollURL), "import_transport_failed", logging.Error(err))
		return false, services.Wrap(services.ErrTransport, "tachi", "poll", pollURL, err)
	}
	defer resp.Body.Close()

	env, err := decodeEnvelope(resp.Body)
	if err != nil {
		logging.ErrorWithContext(s.logger, "Invalid response from server.", "import_bad_response",
			logging.Int("status", resp.StatusCode), logging.Error(err))
		return false, services.Wrap(services.ErrRemote, "tachi", "poll", fmt.Sprintf("status %d", resp.StatusCode), err)
	}
	if !env.Success {
		logging.ErrorWithContext(s.logger, fmt.Sprintf("Failed to process import: %s", env.Description), "import_failed",
			logging.Int("status", resp.StatusCode))
		return false, services.Wrap(services.ErrRemote, "tachi", "poll", "failed to process import: "+env.Description, nil)
	}
	body, err := decodeBody[pollBody](env)
	if err != nil {
		return false, services.Wrap(services.ErrRemote, "tachi", "poll", "failed to process import", err)
	}

	switch body.ImportStatus {
	case importCompleted:
		if body.Import == nil {
			return false, services.Wrap(services.ErrRemote, "tachi", "poll", "completed import has no document", nil)
		}
		s.result.Import = body.Import
		return true, nil
	case importOngoing:
		desc := ""
		if body.Progress != nil {
			desc = body.Progress.Description
		}
		if desc != "" && s.deduper.ShouldLog(desc) {
			s.logger.Info(desc, logging.Bool(logging.FieldProgress, true))
		}
		return false, nil
	default:
		return false, services.Wrap(services.ErrRemote, "tachi", "poll", fmt.Sprintf("unknown import status %q", body.ImportStatus), nil)
	}
}

func (s *submission) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+s.client.token)
	req.Header.Set("User-Agent", s.client.userAgent)
	req.Header.Set("X-Request-ID", s.result.RequestID)
	req.Header.Set("Accept", "application/json")
}

// resolve accepts absolute poll URLs and paths relative to the server.
func (s *submission) resolve(raw string) (string, error) {
	ref, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}
	base, err := url.Parse(s.client.baseURL + "/")
	if err != nil {
		return "", err
	}
	return base.ResolveReference(ref).String(), nil
}

func (s *submission) logRemoteFailure(resp *http.Response, description string) {
	status := fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	if resp.StatusCode >= http.StatusInternalServerError {
		logging.ErrorWithContext(s.logger, fmt.Sprintf("Server error in importing scores: %s (%s).", description, status), "import_server_error",
			logging.Int("status", resp.StatusCode),
			logging.String(logging.FieldErrorHint, "the server is having trouble; resubmit the saved batch later"),
		)
		return
	}
	logging.ErrorWithContext(s.logger, fmt.Sprintf("Error in importing scores: %s (%s)", description, status), "import_rejected",
		logging.Int("status", resp.StatusCode),
		logging.String(logging.FieldErrorHint, "check the API token and the batch contents"),
	)
}

func (s *submission) advance(next State) {
	if err := s.m.to(next); err != nil {
		// Only reachable through a programming error in this file.
		panic(err)
	}
}

func (s *submission) succeed() {
	s.advance(StateSuccess)
	s.logger.Info(fmt.Sprintf("Successfully imported scores for %s (%s).", s.batch.Meta.Game, s.batch.Meta.Playtype))
	s.logger.Info(fmt.Sprintf("New Scores: %d | Failed %d", s.result.NewScores(), s.result.Failed()),
		logging.Int("new_scores", s.result.NewScores()),
		logging.Int("failed", s.result.Failed()),
	)
}

// fail moves to FAILURE and, when persist is set, saves the batch.
func (s *submission) fail(ctx context.Context, err error, persist bool) {
	s.result.Err = err
	s.advance(StateFailure)
	if !persist || s.client.fallback == nil {
		return
	}
	path, saveErr := s.client.fallback.Save(s.batch)
	if saveErr != nil {
		logging.ErrorWithContext(s.logger, "could not save batch for later resubmission", "fallback_save_failed",
			logging.Error(saveErr),
			logging.String(logging.FieldImpact, "batch is lost; rerun the conversion"),
		)
		return
	}
	s.result.FallbackPath = path
	s.logger.InfoContext(ctx, fmt.Sprintf("Saving this import document to %s for debugging.", path),
		logging.String("fallback_path", path))
}

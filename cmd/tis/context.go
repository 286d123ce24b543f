package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/zkrising/tachi-import-scripts/internal/config"
	"github.com/zkrising/tachi-import-scripts/internal/fallback"
	"github.com/zkrising/tachi-import-scripts/internal/logging"
	"github.com/zkrising/tachi-import-scripts/internal/metrics"
	"github.com/zkrising/tachi-import-scripts/internal/tachi"
)

const eventBufferSize = 4096

type globalFlags struct {
	config          string
	logLevel        string
	json            bool
	events          bool
	metricsTextfile string
}

type commandContext struct {
	flags *globalFlags

	storeOnce sync.Once
	store     *config.Store
	storeErr  error

	hub      *logging.StreamHub
	recorder *metrics.Recorder
}

func newCommandContext(flags *globalFlags) *commandContext {
	return &commandContext{
		flags:    flags,
		hub:      logging.NewStreamHub(eventBufferSize),
		recorder: metrics.New(),
	}
}

func (c *commandContext) ensureStore() (*config.Store, error) {
	c.storeOnce.Do(func() {
		store, err := config.Open(strings.TrimSpace(c.flags.config))
		if err != nil {
			c.storeErr = err
			return
		}
		cfg := store.Snapshot()
		if err := cfg.EnsureDirectories(); err != nil {
			c.storeErr = err
			return
		}
		c.store = store
	})
	return c.store, c.storeErr
}

// configValue returns the current snapshot with command-line overrides
// applied.
func (c *commandContext) configValue() (config.Config, error) {
	store, err := c.ensureStore()
	if err != nil {
		return config.Config{}, err
	}
	cfg := store.Snapshot()
	if level := strings.TrimSpace(c.flags.logLevel); level != "" {
		cfg.Logging.Level = level
	}
	if path := strings.TrimSpace(c.flags.metricsTextfile); path != "" {
		cfg.Metrics.Textfile = path
	}
	return cfg, nil
}

// logger builds the run logger. Console output goes to the command's stderr so
// stdout stays reserved for documents and summaries.
func (c *commandContext) logger(cmd *cobra.Command, cfg *config.Config) (*slog.Logger, error) {
	logger, err := logging.NewFromConfig(cfg, cmd.ErrOrStderr(), c.hub)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return logger, nil
}

func (c *commandContext) client(cfg *config.Config, logger *slog.Logger, saveFallback bool) *tachi.Client {
	opts := []tachi.Option{tachi.WithLogger(logger)}
	if saveFallback {
		opts = append(opts, tachi.WithFallback(fallback.New(cfg.Import.FallbackDir)))
	}
	return tachi.NewFromConfig(cfg, opts...)
}

// finish writes the metrics textfile when configured and, with --events,
// dumps every captured log event to stderr.
func (c *commandContext) finish(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) {
	if path := strings.TrimSpace(cfg.Metrics.Textfile); path != "" {
		if err := c.recorder.WriteTextfile(path); err != nil {
			logging.WarnWithContext(logger, "metrics textfile write failed", "metrics_write_failed",
				logging.String("path", path),
				logging.String(logging.FieldImpact, "metrics for this run were not exported"),
				logging.Error(err),
			)
		}
	}
	if !c.flags.events {
		return
	}
	events, _ := c.hub.Tail(eventBufferSize)
	enc := json.NewEncoder(cmd.ErrOrStderr())
	for _, evt := range events {
		_ = enc.Encode(evt)
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zkrising/tachi-import-scripts/internal/batchmanual"
	"github.com/zkrising/tachi-import-scripts/internal/config"
	"github.com/zkrising/tachi-import-scripts/internal/convert"
	"github.com/zkrising/tachi-import-scripts/internal/logging"
)

// session carries the resolved configuration and logger for one command run.
type session struct {
	ctx    *commandContext
	cmd    *cobra.Command
	cfg    config.Config
	logger *slog.Logger
}

func (c *commandContext) begin(cmd *cobra.Command) (*session, error) {
	cfg, err := c.configValue()
	if err != nil {
		return nil, err
	}
	logger, err := c.logger(cmd, &cfg)
	if err != nil {
		return nil, err
	}
	return &session{ctx: c, cmd: cmd, cfg: cfg, logger: logger}, nil
}

func (s *session) end() {
	s.ctx.finish(s.cmd, &s.cfg, s.logger)
}

// convert runs req. An empty conversion is not an error: the result carries
// the report and no batches. Paths that converted successfully are stored in
// the configuration for the next run.
func (s *session) convert(req convert.Request) (convert.Result, error) {
	converter := convert.New(s.cfg.Import.ServiceName, s.logger, convert.WithObserver(s.ctx.recorder))
	result, err := converter.Run(s.cmd.Context(), req)
	if err != nil && !errors.Is(err, batchmanual.ErrEmpty) {
		return result, err
	}
	if err := s.rememberPaths(req); err != nil {
		logging.WarnWithContext(s.logger, "could not remember database paths", "config_update_failed",
			logging.String(logging.FieldImpact, "paths must be passed again next run"),
			logging.Error(err),
		)
	}
	return result, nil
}

func (s *session) rememberPaths(req convert.Request) error {
	if !pathsChanged(s.cfg, req) {
		return nil
	}
	store, err := s.ctx.ensureStore()
	if err != nil {
		return err
	}
	_, err = store.Update(func(cfg *config.Config) {
		switch req.Source {
		case convert.SourceLR2:
			cfg.LR2 = config.BMSStores{ScorePath: req.ScorePath, ChartPath: req.ChartPath}
		case convert.SourceBeatoraja:
			cfg.Beatoraja = config.BMSStores{ScorePath: req.ScorePath, ChartPath: req.ChartPath}
		case convert.SourceUSC:
			cfg.USC = config.USC{DBPath: req.DBPath, Playtype: string(req.Playtype)}
		}
	})
	return err
}

func pathsChanged(cfg config.Config, req convert.Request) bool {
	switch req.Source {
	case convert.SourceLR2:
		return cfg.LR2.ScorePath != req.ScorePath || cfg.LR2.ChartPath != req.ChartPath
	case convert.SourceBeatoraja:
		return cfg.Beatoraja.ScorePath != req.ScorePath || cfg.Beatoraja.ChartPath != req.ChartPath
	case convert.SourceUSC:
		return cfg.USC.DBPath != req.DBPath || cfg.USC.Playtype != string(req.Playtype)
	}
	return false
}

type sourceFlags struct {
	scoreDB  string
	chartDB  string
	db       string
	playtype string
}

// request resolves the flags against the remembered configuration paths.
func (f *sourceFlags) request(source convert.Source, cfg config.Config) (convert.Request, error) {
	req := convert.Request{Source: source}
	var err error
	switch source {
	case convert.SourceLR2, convert.SourceBeatoraja:
		stores := cfg.LR2
		if source == convert.SourceBeatoraja {
			stores = cfg.Beatoraja
		}
		if req.ScorePath, err = resolvePath(f.scoreDB, stores.ScorePath); err != nil {
			return req, err
		}
		if req.ChartPath, err = resolvePath(f.chartDB, stores.ChartPath); err != nil {
			return req, err
		}
	case convert.SourceUSC:
		if req.DBPath, err = resolvePath(f.db, cfg.USC.DBPath); err != nil {
			return req, err
		}
		playtype := strings.TrimSpace(f.playtype)
		if playtype == "" {
			playtype = cfg.USC.Playtype
		}
		req.Playtype = batchmanual.Playtype(playtype)
		if canonical, ok := batchmanual.ParseUSCPlaytype(playtype); ok {
			req.Playtype = canonical
		}
	}
	return req, nil
}

func resolvePath(flagValue, remembered string) (string, error) {
	value := strings.TrimSpace(flagValue)
	if value == "" {
		return remembered, nil
	}
	expanded, err := config.ExpandPath(value)
	if err != nil {
		return "", fmt.Errorf("resolve path %q: %w", value, err)
	}
	return expanded, nil
}

// newSourceCommands builds one subcommand per source sharing run.
func newSourceCommands(ctx *commandContext, verb string, run func(cmd *cobra.Command, req convert.Request) error) []*cobra.Command {
	commands := make([]*cobra.Command, 0, len(convert.Sources()))
	for _, source := range convert.Sources() {
		commands = append(commands, newSourceCommand(ctx, verb, source, run))
	}
	return commands
}

func newSourceCommand(ctx *commandContext, verb string, source convert.Source, run func(cmd *cobra.Command, req convert.Request) error) *cobra.Command {
	flags := &sourceFlags{}
	cmd := &cobra.Command{
		Use:   string(source),
		Short: fmt.Sprintf("%s %s scores", verb, sourceLabel(source)),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.configValue()
			if err != nil {
				return err
			}
			req, err := flags.request(source, cfg)
			if err != nil {
				return err
			}
			return run(cmd, req)
		},
	}

	switch source {
	case convert.SourceUSC:
		cmd.Flags().StringVar(&flags.db, "db", "", "Path to USC's maps.db (defaults to the remembered path)")
		cmd.Flags().StringVar(&flags.playtype, "playtype", "", "Controller or Keyboard (defaults to the configured playtype)")
	default:
		cmd.Flags().StringVar(&flags.scoreDB, "score-db", "", "Path to the score database (defaults to the remembered path)")
		cmd.Flags().StringVar(&flags.chartDB, "chart-db", "", "Path to the song database (defaults to the remembered path)")
	}
	if source == convert.SourceBeatoraja {
		cmd.Aliases = []string{"lr2oraja"}
	}
	return cmd
}

func sourceLabel(source convert.Source) string {
	switch source {
	case convert.SourceLR2:
		return "LR2"
	case convert.SourceBeatoraja:
		return "beatoraja"
	case convert.SourceUSC:
		return "USC"
	default:
		return string(source)
	}
}

package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/zkrising/tachi-import-scripts/internal/batchmanual"
	"github.com/zkrising/tachi-import-scripts/internal/fallback"
	"github.com/zkrising/tachi-import-scripts/internal/logging"
	"github.com/zkrising/tachi-import-scripts/internal/tachi"
)

func newFallbackCommand(ctx *commandContext) *cobra.Command {
	fallbackCmd := &cobra.Command{
		Use:   "fallback",
		Short: "Inspect and resubmit batches saved after failed imports",
	}
	fallbackCmd.AddCommand(newFallbackListCommand(ctx))
	fallbackCmd.AddCommand(newFallbackResubmitCommand(ctx))
	return fallbackCmd
}

type fallbackEntryView struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	SavedAt  string `json:"saved_at"`
	Game     string `json:"game"`
	Playtype string `json:"playtype"`
	Size     int64  `json:"size"`
}

func newFallbackListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved batches, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.configValue()
			if err != nil {
				return err
			}
			dir := fallback.New(cfg.Import.FallbackDir)
			entries, err := dir.List()
			if err != nil {
				return err
			}

			if ctx.flags.json {
				views := make([]fallbackEntryView, 0, len(entries))
				for _, e := range entries {
					views = append(views, fallbackEntryView{
						Name:     e.Name,
						Path:     e.Path,
						SavedAt:  e.SavedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
						Game:     string(e.Game),
						Playtype: string(e.Playtype),
						Size:     e.Size,
					})
				}
				return writeJSON(cmd, views)
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintf(out, "No saved batches in %s\n", dir.Path())
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for i, e := range entries {
				rows = append(rows, []string{
					strconv.Itoa(i + 1),
					e.Name,
					string(e.Game),
					string(e.Playtype),
					humanize.Time(e.SavedAt),
					humanize.Bytes(uint64(e.Size)),
				})
			}
			fmt.Fprintln(out, renderTable(dir.Path(),
				[]string{"#", "Name", "Game", "Playtype", "Saved", "Size"},
				rows, 1, 6,
			))
			return nil
		},
	}
}

func newFallbackResubmitCommand(ctx *commandContext) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "resubmit [NAME...]",
		Short: "Submit saved batches again and delete the ones that import",
		Long: "Submit saved batches again and delete the ones that import.\n\n" +
			"NAME is a file name from `tis fallback list` or a path. Use --all to resubmit every saved batch, oldest first.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all && len(args) == 0 {
				return errors.New("name a saved batch or pass --all")
			}
			s, err := ctx.begin(cmd)
			if err != nil {
				return err
			}
			defer s.end()

			dir := fallback.New(s.cfg.Import.FallbackDir)
			names := args
			if all {
				entries, err := dir.List()
				if err != nil {
					return err
				}
				names = make([]string, 0, len(entries))
				for _, e := range entries {
					names = append(names, e.Name)
				}
				if len(names) == 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "No saved batches in %s\n", dir.Path())
					return nil
				}
			}

			batches := make([]batchmanual.Batch, 0, len(names))
			for _, name := range names {
				batch, err := dir.Load(name)
				if err != nil {
					return fmt.Errorf("load %s: %w", name, err)
				}
				batches = append(batches, batch)
			}

			results, submitErr := s.submitAll(ctx.client(&s.cfg, s.logger, false), batches)
			for i, result := range results {
				if result.State != tachi.StateSuccess {
					continue
				}
				if err := dir.Remove(names[i]); err != nil {
					logging.WarnWithContext(s.logger, "could not remove resubmitted batch", "fallback_remove_failed",
						logging.String("file", names[i]),
						logging.String(logging.FieldImpact, "the batch may be submitted twice"),
						logging.Error(err),
					)
				}
			}
			return reportImports(ctx, cmd, results, batches, names, submitErr)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Resubmit every saved batch")
	return cmd
}

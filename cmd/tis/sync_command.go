package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zkrising/tachi-import-scripts/internal/convert"
)

func newSyncCommand(ctx *commandContext) *cobra.Command {
	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Convert a local score database and import every batch",
		Long: "Convert a local score database and import every batch.\n\n" +
			"Batches that fail to import are saved to the fallback directory; resubmit them with `tis fallback resubmit`.",
	}
	run := func(cmd *cobra.Command, req convert.Request) error {
		return runSync(ctx, cmd, req)
	}
	for _, sub := range newSourceCommands(ctx, "Import", run) {
		syncCmd.AddCommand(sub)
	}
	return syncCmd
}

func runSync(ctx *commandContext, cmd *cobra.Command, req convert.Request) error {
	s, err := ctx.begin(cmd)
	if err != nil {
		return err
	}
	defer s.end()

	result, err := s.convert(req)
	if err != nil {
		return err
	}
	if !ctx.flags.json {
		fmt.Fprintln(cmd.ErrOrStderr(), renderConversion(result, nil, cmd.ErrOrStderr()))
	}
	if len(result.Batches) == 0 {
		if ctx.flags.json {
			return writeJSON(cmd, []importSummary{})
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Nothing to import")
		return nil
	}

	results, err := s.submitAll(ctx.client(&s.cfg, s.logger, true), result.Batches)
	return reportImports(ctx, cmd, results, result.Batches, nil, err)
}

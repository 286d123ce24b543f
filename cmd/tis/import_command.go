package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zkrising/tachi-import-scripts/internal/batchmanual"
	"github.com/zkrising/tachi-import-scripts/internal/fallback"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE...",
		Short: "Submit saved batch-manual files",
		Long: "Submit saved batch-manual files to the configured Tachi server.\n\n" +
			"Every file is validated before anything is sent. Failed imports are not copied to the fallback directory again.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := ctx.begin(cmd)
			if err != nil {
				return err
			}
			defer s.end()

			batches := make([]batchmanual.Batch, 0, len(args))
			for _, path := range args {
				batch, err := fallback.LoadFile(path)
				if err != nil {
					return fmt.Errorf("load %s: %w", path, err)
				}
				batches = append(batches, batch)
			}

			results, err := s.submitAll(ctx.client(&s.cfg, s.logger, false), batches)
			return reportImports(ctx, cmd, results, batches, args, err)
		},
	}
}

package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRebuildCmd(flags *globalFlags) *cobra.Command {
	var batchSize, parallelism int

	cmd := &cobra.Command{
		Use:   "rebuild",
		Short: "Rebuild the whole index from the source database",
		Long: `Builds a fresh index generation from every eligible unit and swaps it in
atomically. Readers keep using the current generation until the swap; an
interrupted rebuild leaves it untouched.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, flags)
			if err != nil {
				return err
			}
			defer a.close()

			report, err := a.indexer.RebuildFullIndex(ctx, batchSize, parallelism)
			if err != nil {
				return err
			}
			a.logger.Info("Rebuild complete",
				zap.Int64("generation", report.Generation),
				zap.Int64("previous_generation", report.PreviousGeneration),
				zap.Int64("indexed", report.Indexed),
				zap.Int64("skipped", report.Skipped),
				zap.Int("pages", report.Pages),
				zap.Duration("duration", report.Duration),
			)
			cmd.Printf("generation %d active: %d units indexed, %d skipped in %s\n",
				report.Generation, report.Indexed, report.Skipped, report.Duration)
			return nil
		},
	}
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "units per source page (0 uses indexing.batch_size)")
	cmd.Flags().IntVar(&parallelism, "parallelism", 0,
		"concurrent unit workers (0 uses indexing.max_degree_of_parallelism)")
	return cmd
}

package main

import (
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/impact-cli/internal/indicator"
)

var calculateFormat string

var calculateCmd = &cobra.Command{
	Use:   "calculate",
	Short: "Compute indicator records for every actual sourcing record",
	Long: "Computes all five indicators for every sourcing record outside a scenario overlay and upserts " +
		"the indicator records in chunks. Materials without spatial data are skipped and reported.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		log := zap.L().With(zap.String("command", "calculate"))

		st, err := initStore(ctx, "calculate")
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		bulk := indicator.NewBulkCalculator(st, newCalculator(st), st.Pool(), indicator.BulkConfig{
			Concurrency: cfg.Impact.Concurrency,
			ChunkSize:   cfg.Impact.BulkChunkSize,
		})

		start := time.Now()
		sum, err := bulk.Run(ctx)
		if err != nil {
			return eris.Wrap(err, "calculate")
		}

		log.Info("calculation complete",
			zap.Int("sourcing_records", sum.SourcingRecords),
			zap.Int("computed", sum.Computed),
			zap.Int("skipped", sum.Skipped),
			zap.Int64("written", sum.Written),
			zap.Duration("elapsed", time.Since(start)),
		)
		return writeOutput(os.Stdout, calculateFormat, sum)
	},
}

func init() {
	calculateCmd.Flags().StringVar(&calculateFormat, "format", "json", "output format (json, yaml)")
	rootCmd.AddCommand(calculateCmd)
}

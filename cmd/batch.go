package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/enrich-cli/internal/enrich"
	"github.com/sells-group/enrich-cli/internal/events"
	"github.com/sells-group/enrich-cli/internal/input"
)

var (
	batchFile          string
	batchOutput        string
	batchParallel      bool
	batchMaxConcurrent int
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Enrich companies listed in a CSV or XLSX file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		reqs, err := input.ReadCompanies(batchFile)
		if err != nil {
			return err
		}
		zap.L().Info("batch loaded", zap.String("file", batchFile), zap.Int("companies", len(reqs)))

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		maxConcurrent := batchMaxConcurrent
		if maxConcurrent == 0 {
			maxConcurrent = cfg.Batch.MaxConcurrent
		}

		responses := env.Pipeline.EnrichBatch(ctx, reqs, enrich.BatchOptions{
			Parallel:      batchParallel,
			MaxConcurrent: maxConcurrent,
			BatchPause:    time.Duration(cfg.Batch.PauseSecs) * time.Second,
		})

		succeeded := 0
		for _, resp := range responses {
			if resp != nil && resp.Success {
				succeeded++
			}
		}
		zap.L().Info("batch complete",
			zap.Int("total", len(responses)),
			zap.Int("succeeded", succeeded),
			zap.Int("failed", len(responses)-succeeded))

		out, err := json.MarshalIndent(responses, "", "  ")
		if err != nil {
			return err
		}
		if batchOutput != "" {
			if err := os.WriteFile(batchOutput, out, 0o644); err != nil {
				return eris.Wrapf(err, "write results to %s", batchOutput)
			}
			events.NewSink(cfg.Events.WebhookURL).Emit(ctx, events.ExportRequested, map[string]any{
				"file":      batchOutput,
				"companies": len(responses),
				"succeeded": succeeded,
			})
			zap.L().Info("results written", zap.String("file", batchOutput))
			return nil
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchFile, "file", "", "CSV or XLSX file of companies (required)")
	batchCmd.Flags().StringVar(&batchOutput, "output", "", "write results to a JSON file instead of stdout")
	batchCmd.Flags().BoolVar(&batchParallel, "parallel", false, "process companies concurrently")
	batchCmd.Flags().IntVar(&batchMaxConcurrent, "max-concurrent", 0, "parallel worker bound (default from config)")
	_ = batchCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(batchCmd)
}

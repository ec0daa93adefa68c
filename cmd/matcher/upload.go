package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/listing-reconcile/internal/matcher"
	"github.com/listing-reconcile/internal/metrics"
	"github.com/listing-reconcile/internal/report"
	"github.com/listing-reconcile/internal/runlock"
	"github.com/listing-reconcile/internal/writer"
)

func createUploadCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "upload [files...]",
		Short: "Write phones from recorded match files",
		Long: `Loads match result files (all *.jsonl in MATCHES_DIR when none are given),
keeps the best-scoring match per phone and per provider, and writes the phones
of providers that still have none.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			start := time.Now()

			paths := args
			if len(paths) == 0 {
				var err error
				if paths, err = matcher.ResultFiles(cfg.MatchesDir); err != nil {
					return err
				}
			}
			if len(paths) == 0 {
				return fmt.Errorf("no match files in %s", cfg.MatchesDir)
			}

			lock, err := runlock.Acquire(cfg.LockFile)
			if err != nil {
				return err
			}
			defer lock.Release()

			all, err := matcher.ReadResults(paths)
			if err != nil {
				return err
			}
			assignments := matcher.Dedup(all)
			logger.Info("match files loaded",
				zap.Int("files", len(paths)),
				zap.Int("matches", len(all)),
				zap.Int("after_dedup", len(assignments)))

			summary := report.Summary{Label: "upload"}
			run := metrics.NewRun("upload")
			if dryRun {
				logger.Info("dry run, skipping writes")
				summary.Elapsed = time.Since(start)
				finish(summary, nil, run)
				return nil
			}

			conn, repo, err := connect(ctx)
			if err != nil {
				return err
			}
			defer conn.Close()

			updates := make([]writer.Update, len(assignments))
			for i, a := range assignments {
				updates[i] = a.Update()
			}
			w := writer.NewBatchWriter(repo, cfg.Writing.ChunkSize,
				writer.WithRowsPerSecond(cfg.Writing.RowsPerSecond),
				writer.WithLogger(logger))
			writeStats, writeErr := w.Write(ctx, updates)

			summary.Writing = writeStats
			summary.Elapsed = time.Since(start)
			run.ObserveWriting(writeStats)
			finish(summary, nil, run)
			return writeErr
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "load and de-duplicate without writing")
	return cmd
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/listing-reconcile/internal/listing"
	"github.com/listing-reconcile/internal/logging"
	"github.com/listing-reconcile/internal/match"
	"github.com/listing-reconcile/internal/matcher"
	"github.com/listing-reconcile/internal/metrics"
	"github.com/listing-reconcile/internal/partition"
	"github.com/listing-reconcile/internal/report"
	"github.com/listing-reconcile/internal/runlock"
	"github.com/listing-reconcile/internal/writer"
)

const failureRows = 20

func createMatchCmd() *cobra.Command {
	var (
		listingsFile   string
		dept           string
		shard          string
		matchesDir     string
		metricsFile    string
		threshold      float64
		dryRun         bool
		searchAllTerms bool
	)

	cmd := &cobra.Command{
		Use:   "match",
		Short: "Match listings to provider records and backfill phones",
		Long: `Reads the listings file, matches every listing with a phone against the active
provider records of its department (then up to three neighbor departments),
records accepted matches and writes the phones of providers that still have none.
A --shard run only records its matches; run upload once every shard is done.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			start := time.Now()

			flags := cmd.Flags()
			if flags.Changed("listings") {
				cfg.ListingsFile = listingsFile
			}
			if flags.Changed("matches-dir") {
				cfg.MatchesDir = matchesDir
			}
			if flags.Changed("metrics-file") {
				cfg.MetricsFile = metricsFile
			}
			if flags.Changed("threshold") {
				cfg.Matching.Threshold = threshold
			}
			if flags.Changed("search-all-terms") {
				cfg.Matching.SearchAllTerms = searchAllTerms
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			selection := listing.Selection{Dept: dept}
			if shard != "" {
				if dept != "" {
					return errors.New("--dept and --shard are mutually exclusive")
				}
				s, err := listing.ParseShard(shard)
				if err != nil {
					return err
				}
				selection.Shard = s
			}

			// the base lock file only guards phone writes
			lock, err := runlock.Acquire(runlock.LabelPath(cfg.LockFile, selection.Label()))
			if err != nil {
				return err
			}
			defer lock.Release()

			listings, readStats, err := listing.ReadFile(cfg.ListingsFile)
			if errors.Is(err, listing.ErrEmptyInput) {
				logger.Warn("nothing to match", zap.String("file", cfg.ListingsFile))
				return nil
			}
			if err != nil {
				return err
			}
			logger.Info("listings loaded",
				zap.String("file", cfg.ListingsFile),
				zap.Int("lines", readStats.Lines),
				zap.Int("without_phone", readStats.WithoutPhone),
				zap.Int("kept", readStats.Kept))

			groups := selection.Apply(listing.Group(listings))
			if len(groups) == 0 {
				logger.Warn("selection matches no partition", zap.String("selection", selection.Label()))
				return nil
			}

			graph, err := partition.LoadGraph(cfg.PartitionGraphFile)
			if err != nil {
				return err
			}

			conn, repo, err := connect(ctx)
			if err != nil {
				return err
			}
			defer conn.Close()

			store, err := partition.NewStore(repo, cfg.Matching.CacheSize, logger)
			if err != nil {
				return err
			}
			m := match.NewMatcherWithConfig(cfg.Matching.Threshold, cfg.Matching.PostalBonus)
			engine := matcher.NewEngine(store, graph, m, matcher.NewLedger(), matcher.Options{
				CandidateLimit: cfg.Matching.CandidateLimit,
				NeighborLimit:  cfg.Matching.NeighborLimit,
				NeighborTerms:  cfg.Matching.NeighborTerms,
				SearchAllTerms: cfg.Matching.SearchAllTerms,
			}, logger)

			results, err := matcher.CreateResultFile(cfg.MatchesDir, selection.Label())
			if err != nil {
				return err
			}

			stats, assignments, runErr := matcher.NewBatchProcessor(engine, results, logger).Run(ctx, groups)
			if err := results.Close(); err != nil && runErr == nil {
				runErr = err
			}
			logger.Info("matches recorded", zap.String("file", results.Path()), zap.Int("count", results.Count()))

			summary := report.Summary{Label: selection.Label(), Matching: stats}
			run := metrics.NewRun(selection.Label())
			run.ObserveMatching(stats)

			switch {
			case runErr != nil || len(assignments) == 0:
				// nothing to write
			case selection.RecordOnly():
				logger.Info("shard run, phones not written; run upload once all shards are done",
					zap.String("file", results.Path()), zap.Int("assignments", len(assignments)))
			case dryRun:
				logger.Info("dry run, skipping writes", zap.Int("assignments", len(assignments)))
			default:
				conn.Healthy(ctx)
				summary.Writing, runErr = writePhones(ctx, repo, assignments)
				if summary.Writing != nil {
					run.ObserveWriting(summary.Writing)
				}
			}

			summary.Elapsed = time.Since(start)
			finish(summary, stats, run)
			return runErr
		},
	}

	cmd.Flags().StringVar(&listingsFile, "listings", "", "listings JSONL file (default from LISTINGS_FILE)")
	cmd.Flags().StringVar(&dept, "dept", "", "only match listings of this department")
	cmd.Flags().StringVar(&shard, "shard", "", "only match shard N of M of the departments, as N/M")
	cmd.Flags().StringVar(&matchesDir, "matches-dir", "", "directory of match result files (default from MATCHES_DIR)")
	cmd.Flags().StringVar(&metricsFile, "metrics-file", "", "write Prometheus textfile metrics here")
	cmd.Flags().Float64Var(&threshold, "threshold", match.DefaultThreshold, "minimum score to accept a match")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "match and record results without writing phones")
	cmd.Flags().BoolVar(&searchAllTerms, "search-all-terms", false, "evaluate every search term and keep the best candidate")

	return cmd
}

// writePhones writes the assignments under the shared write lock
func writePhones(ctx context.Context, repo writer.Updater, assignments []matcher.Assignment) (*writer.WriteStats, error) {
	lock, err := runlock.Acquire(cfg.LockFile)
	if err != nil {
		return nil, err
	}
	defer lock.Release()

	updates := make([]writer.Update, len(assignments))
	for i, a := range assignments {
		updates[i] = a.Update()
	}

	done := logging.Timing(logger, "write phones")
	defer done()
	w := writer.NewBatchWriter(repo, cfg.Writing.ChunkSize,
		writer.WithRowsPerSecond(cfg.Writing.RowsPerSecond),
		writer.WithLogger(logger))
	return w.Write(ctx, updates)
}

// finish prints the run summary and exports metrics
func finish(summary report.Summary, stats *matcher.Stats, run *metrics.Run) {
	if err := report.Write(os.Stdout, summary); err != nil {
		logger.Warn("could not print summary", zap.Error(err))
	}
	if failures := report.Failures(stats, failureRows); failures != "" {
		fmt.Println(failures)
	}
	if cfg.MetricsFile != "" {
		if err := run.WriteFile(cfg.MetricsFile); err != nil {
			logger.Warn("could not export metrics", zap.Error(err))
		}
	}
}

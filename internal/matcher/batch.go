package matcher

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/listing-reconcile/internal/listing"
	"github.com/listing-reconcile/internal/partition"
)

// Sink receives every accepted assignment as soon as it is made.
type Sink interface {
	Append(a Assignment) error
}

// Failure identifies a listing that could not be processed.
type Failure struct {
	Partition string
	Listing   string
	Line      int
	Err       error
}

// Stats tracks a matching run.
type Stats struct {
	Listings          int
	Partitions        int
	UnknownPartitions []string
	Processed         int
	Skipped           int
	Matched           int
	MatchedLocal      int
	MatchedNeighbor   int
	AlreadySatisfied  int
	Unmatched         int
	Failed            int
	LoadErrors        int
	PartitionLoads    int64
	Evictions         int64
	Failures          []Failure
	ProcessingTime    time.Duration
}

func (s *Stats) add(partitionCode string, l listing.Listing, res Result) {
	s.Processed++
	s.LoadErrors += res.LoadErrors
	switch res.Outcome {
	case OutcomeSkipped:
		s.Skipped++
	case OutcomeMatched:
		s.Matched++
		if res.Assignment.Strategy == StrategyNeighbor {
			s.MatchedNeighbor++
		} else {
			s.MatchedLocal++
		}
	case OutcomeAlreadySatisfied:
		s.AlreadySatisfied++
	case OutcomeUnmatched:
		s.Unmatched++
	case OutcomeFailed:
		s.Failed++
		s.Failures = append(s.Failures, Failure{Partition: partitionCode, Listing: l.Name, Line: l.Line, Err: res.Err})
	}
}

// BatchProcessor walks the home partitions in graph order and runs every
// listing through the engine.
type BatchProcessor struct {
	engine *Engine
	sink   Sink
	logger *zap.Logger
}

// NewBatchProcessor creates a batch processor. sink may be nil.
func NewBatchProcessor(engine *Engine, sink Sink, logger *zap.Logger) *BatchProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchProcessor{engine: engine, sink: sink, logger: logger}
}

// Run matches every listing of groups. Partitions run sequentially in the
// graph's order, unknown partitions last. Per-listing and per-partition
// problems are counted in Stats; the returned error is reserved for a
// cancelled context or a failing sink.
func (bp *BatchProcessor) Run(ctx context.Context, groups map[string][]listing.Listing) (*Stats, []Assignment, error) {
	startTime := time.Now()
	stats := &Stats{}
	var assignments []Assignment

	plan, unknown := bp.engine.graph.Plan(listing.Codes(groups))
	stats.Partitions = len(plan)
	stats.UnknownPartitions = unknown
	if len(unknown) > 0 {
		bp.logger.Warn("partitions missing from graph order, processing them last", zap.Strings("partitions", unknown))
	}
	for _, ls := range groups {
		stats.Listings += len(ls)
	}

	bp.logger.Info("starting matching run",
		zap.Int("listings", stats.Listings), zap.Int("partitions", stats.Partitions))

	for _, code := range plan {
		if err := ctx.Err(); err != nil {
			return bp.finish(stats, startTime), assignments, err
		}

		partitionStart := time.Now()
		listings := groups[code]

		// listings without a partition code fail validation; nothing to load
		var home []partition.Record
		if code != "" {
			records, err := bp.engine.store.Load(ctx, code)
			if err != nil {
				stats.LoadErrors++
				bp.logger.Warn("partition load failed, continuing with neighbors only",
					zap.String("partition", code), zap.Error(err))
			}
			home = records
		}

		matches := 0
		for _, l := range listings {
			res := bp.engine.process(ctx, l, home)
			stats.add(code, l, res)

			if res.Outcome == OutcomeFailed {
				bp.logger.Warn("listing failed",
					zap.String("partition", code),
					zap.String("listing", l.Name),
					zap.Int("line", l.Line),
					zap.Error(res.Err))
				continue
			}
			if res.Assignment == nil {
				continue
			}

			matches++
			assignments = append(assignments, *res.Assignment)
			if bp.sink != nil {
				if err := bp.sink.Append(*res.Assignment); err != nil {
					return bp.finish(stats, startTime), assignments, fmt.Errorf("record match: %w", err)
				}
			}
		}

		bp.logger.Info("partition done",
			zap.String("partition", code),
			zap.Int("listings", len(listings)),
			zap.Int("records", len(home)),
			zap.Int("matches", matches),
			zap.Int("total_matches", stats.Matched),
			zap.Int("cached_partitions", bp.engine.store.Len()),
			zap.Duration("elapsed", time.Since(partitionStart)))
	}

	return bp.finish(stats, startTime), assignments, nil
}

func (bp *BatchProcessor) finish(stats *Stats, startTime time.Time) *Stats {
	stats.ProcessingTime = time.Since(startTime)
	stats.PartitionLoads = bp.engine.store.Loads()
	stats.Evictions = bp.engine.store.Evictions()
	return stats
}

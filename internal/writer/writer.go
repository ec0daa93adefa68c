package writer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultChunkSize is the number of updates sent per bulk statement.
const DefaultChunkSize = 500

// Update assigns Phone to the record RecordID.
type Update struct {
	RecordID uuid.UUID
	Phone    string
}

// Updater applies phone updates to the datastore. Both methods must only
// touch records whose phone is still empty and return the rows changed.
type Updater interface {
	BulkAssignPhones(ctx context.Context, updates []Update) (int64, error)
	AssignPhone(ctx context.Context, u Update) (int64, error)
}

// WriteStats summarizes one write pass.
type WriteStats struct {
	Requested      int
	Chunks         int
	Written        int64
	Skipped        int64
	Failed         int
	FallbackChunks int
	Duration       time.Duration
}

// BatchWriter writes updates in fixed-size chunks and falls back to
// row-by-row writes for a chunk whose bulk statement fails.
type BatchWriter struct {
	updater   Updater
	chunkSize int
	limiter   *rate.Limiter
	logger    *zap.Logger
}

// Option configures a BatchWriter.
type Option func(*BatchWriter)

// WithRowsPerSecond throttles the row-by-row fallback. Zero disables it.
func WithRowsPerSecond(rps float64) Option {
	return func(w *BatchWriter) {
		if rps > 0 {
			w.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(w *BatchWriter) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewBatchWriter creates a writer sending chunkSize updates per statement.
func NewBatchWriter(updater Updater, chunkSize int, opts ...Option) *BatchWriter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	w := &BatchWriter{
		updater:   updater,
		chunkSize: chunkSize,
		limiter:   rate.NewLimiter(rate.Inf, 1),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write applies all updates. Chunk and row failures are counted and logged,
// never returned; the only error is a cancelled context.
func (w *BatchWriter) Write(ctx context.Context, updates []Update) (*WriteStats, error) {
	start := time.Now()
	stats := &WriteStats{Requested: len(updates)}

	for offset := 0; offset < len(updates); offset += w.chunkSize {
		if err := ctx.Err(); err != nil {
			stats.Duration = time.Since(start)
			return stats, err
		}

		end := offset + w.chunkSize
		if end > len(updates) {
			end = len(updates)
		}
		chunk := updates[offset:end]
		stats.Chunks++

		n, err := w.updater.BulkAssignPhones(ctx, chunk)
		if err == nil {
			stats.Written += n
			stats.Skipped += int64(len(chunk)) - n
			w.logger.Debug("chunk written",
				zap.Int("chunk", stats.Chunks), zap.Int("size", len(chunk)), zap.Int64("written", n))
			continue
		}

		w.logger.Warn("bulk update failed, falling back to row updates",
			zap.Int("chunk", stats.Chunks), zap.Int("size", len(chunk)), zap.Error(err))
		stats.FallbackChunks++
		if err := w.writeRows(ctx, chunk, stats); err != nil {
			stats.Duration = time.Since(start)
			return stats, err
		}
	}

	stats.Duration = time.Since(start)
	w.logger.Info("write complete",
		zap.Int("requested", stats.Requested),
		zap.Int64("written", stats.Written),
		zap.Int64("skipped", stats.Skipped),
		zap.Int("failed", stats.Failed),
		zap.Int("fallback_chunks", stats.FallbackChunks),
		zap.Duration("took", stats.Duration))
	return stats, nil
}

func (w *BatchWriter) writeRows(ctx context.Context, chunk []Update, stats *WriteStats) error {
	for _, u := range chunk {
		if err := w.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("row fallback interrupted: %w", err)
		}
		n, err := w.updater.AssignPhone(ctx, u)
		if err != nil {
			stats.Failed++
			w.logger.Warn("row update failed",
				zap.String("record_id", u.RecordID.String()), zap.Error(err))
			continue
		}
		stats.Written += n
		stats.Skipped += 1 - n
	}
	return nil
}

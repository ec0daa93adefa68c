package logging

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the process logger. Pretty selects the development console
// encoder; otherwise logs are JSON.
func New(level string, pretty bool) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var cfg zap.Config
	if pretty {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.Sampling = nil
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.DisableStacktrace = true

	return cfg.Build()
}

// Timing logs the duration of an operation at debug level when the
// returned func is called.
func Timing(logger *zap.Logger, operation string) func() {
	if !logger.Core().Enabled(zap.DebugLevel) {
		return func() {}
	}

	start := time.Now()
	logger.Debug("starting", zap.String("operation", operation))

	return func() {
		logger.Debug("completed",
			zap.String("operation", operation),
			zap.Duration("took", time.Since(start)))
	}
}

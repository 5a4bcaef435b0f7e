// Package logging builds the zap logger shared by every command.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options select the level and encoding of the logger.
type Options struct {
	Verbose bool
	Quiet   bool
	// Console switches from JSON to the human-readable encoder.
	Console bool
	// Color enables level colouring for the console encoder.
	Color bool
}

// Level maps the flags to a zap level. Quiet wins over Verbose.
func (o Options) Level() zapcore.Level {
	switch {
	case o.Quiet:
		return zapcore.ErrorLevel
	case o.Verbose:
		return zapcore.DebugLevel
	default:
		return zapcore.InfoLevel
	}
}

// New builds a production logger writing to stderr.
func New(o Options) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(o.Level())
	config.Sampling = nil
	config.OutputPaths = []string{"stderr"}
	if o.Console {
		config.Encoding = "console"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		if o.Color {
			config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
	}
	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// OrNop returns log, or a no-op logger when log is nil.
func OrNop(log *zap.Logger) *zap.Logger {
	if log == nil {
		return zap.NewNop()
	}
	return log
}

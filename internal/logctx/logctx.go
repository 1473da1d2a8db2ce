// Package logctx provides context-based logger injection and extraction.
//
// Scans pass diagnostics through context.Context so that callers can
// attach enriched loggers (e.g. with a capture path or record index) that
// propagate through the whole scan without threading a logger argument.
//
// Usage:
//
//	logger := logctx.NewVerbosityLogger(verbosity, human)
//	ctx := logctx.WithLogger(context.Background(), logger)
//	res, err := scanner.Scan(ctx, opts)
package logctx

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// loggerKey is the private key type for storing loggers in context.
// Using a private type prevents collisions with other packages.
type loggerKey struct{}

var (
	defaultLogger     zerolog.Logger
	defaultLoggerOnce sync.Once
)

// DefaultLogger returns the process-wide default logger used when no
// context logger is available: JSON to stderr with timestamps, at the
// warn level so scans stay quiet unless asked otherwise.
func DefaultLogger() zerolog.Logger {
	defaultLoggerOnce.Do(func() {
		defaultLogger = zerolog.New(os.Stderr).Level(zerolog.WarnLevel).With().Timestamp().Logger()
	})
	return defaultLogger
}

// WithLogger returns a new context with the given logger attached.
// The logger can be retrieved using FromContext.
func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext extracts the logger from the context. If the context is nil
// or does not contain a logger, returns the default logger.
//
// This function never returns a zero-value logger or panics.
func FromContext(ctx context.Context) zerolog.Logger {
	if ctx == nil {
		return DefaultLogger()
	}
	if logger, ok := ctx.Value(loggerKey{}).(zerolog.Logger); ok {
		return logger
	}
	return DefaultLogger()
}

// WithStr returns a new context with a logger that has the specified
// string field added.
func WithStr(ctx context.Context, key, value string) context.Context {
	logger := FromContext(ctx).With().Str(key, value).Logger()
	return WithLogger(ctx, logger)
}

// Level maps a diagnostics verbosity count to a zerolog level:
// 0 warns only, 1 adds debug events, 2 and above adds per-record trace.
func Level(verbosity int) zerolog.Level {
	switch {
	case verbosity <= 0:
		return zerolog.WarnLevel
	case verbosity == 1:
		return zerolog.DebugLevel
	default:
		return zerolog.TraceLevel
	}
}

// NewVerbosityLogger creates a logger at the level implied by verbosity.
// If human is true, uses a human-friendly console writer.
func NewVerbosityLogger(verbosity int, human bool) zerolog.Logger {
	var output zerolog.LevelWriter
	if human {
		output = zerolog.LevelWriterAdapter{Writer: zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		}}
	} else {
		output = zerolog.LevelWriterAdapter{Writer: os.Stderr}
	}
	return zerolog.New(output).Level(Level(verbosity)).With().Timestamp().Logger()
}

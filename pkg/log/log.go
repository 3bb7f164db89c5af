package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var (
	// Logger is the global logger instance
	Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
)

// Level represents log level
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// ParseLevel converts a user supplied level name into a Level
func ParseLevel(s string) (Level, error) {
	switch Level(strings.ToLower(strings.TrimSpace(s))) {
	case DebugLevel:
		return DebugLevel, nil
	case InfoLevel, "":
		return InfoLevel, nil
	case WarnLevel, "warning":
		return WarnLevel, nil
	case ErrorLevel:
		return ErrorLevel, nil
	default:
		return "", fmt.Errorf("unknown log level %q: expected one of debug, info, warn, error", s)
	}
}

func (l Level) zerolog() zerolog.Level {
	switch l {
	case DebugLevel:
		return zerolog.DebugLevel
	case WarnLevel:
		return zerolog.WarnLevel
	case ErrorLevel:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Config holds logging configuration
type Config struct {
	Level      Level
	JSONOutput bool
	Output     io.Writer
}

// Init initializes the global logger
func Init(cfg Config) {
	zerolog.SetGlobalLevel(cfg.Level.zerolog())

	// Configure output
	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	// Use JSON or console output
	if cfg.JSONOutput {
		Logger = zerolog.New(output).With().Timestamp().Logger()
	} else {
		Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Logger()
	}
}

// WithComponent creates a child logger with component field
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

type cycleKey struct{}

// ContextWithCycle returns a context carrying the reconciliation cycle id
func ContextWithCycle(ctx context.Context, cycleID string) context.Context {
	return context.WithValue(ctx, cycleKey{}, cycleID)
}

// FromContext creates a component logger that also carries the cycle_id
// stored in ctx, if any
func FromContext(ctx context.Context, component string) zerolog.Logger {
	logger := WithComponent(component)
	if id, ok := ctx.Value(cycleKey{}).(string); ok && id != "" {
		logger = logger.With().Str("cycle_id", id).Logger()
	}
	return logger
}

// WithContainer adds container name and short id fields to a logger
func WithContainer(logger zerolog.Logger, name, id string) zerolog.Logger {
	return logger.With().Str("container", name).Str("container_id", id).Logger()
}

// At starts an event on logger at the given level. Callers pick the
// severity at runtime, e.g. INFO for a completed post-action and ERROR for
// one that could not be started.
func At(logger *zerolog.Logger, level Level) *zerolog.Event {
	switch level {
	case DebugLevel:
		return logger.Debug()
	case WarnLevel:
		return logger.Warn()
	case ErrorLevel:
		return logger.Error()
	default:
		return logger.Info()
	}
}

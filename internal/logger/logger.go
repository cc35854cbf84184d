package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Environments known to ForEnvironment
const (
	EnvDev  = "dev"
	EnvProd = "prod"
)

type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)

	With(args ...any) Logger
	WithGroup(name string) Logger
}

// Logger for the deployment environment, writes to stderr
// dev: human readable text; prod: JSON lines for log collectors
func ForEnvironment(env string, level string) (Logger, error) {
	switch env {
	case EnvDev:
		return NewTextLogger(level, os.Stderr)
	case EnvProd:
		return NewJSONLogger(level, os.Stderr)
	default:
		return nil, fmt.Errorf("unknown environment %q, expected %q or %q", env, EnvDev, EnvProd)
	}
}

func NewTextLogger(level string, w io.Writer) (Logger, error) {
	opts, err := handlerOptions(level)
	if err != nil {
		return nil, err
	}
	return &slogLogger{logger: slog.New(slog.NewTextHandler(w, opts))}, nil
}

func NewJSONLogger(level string, w io.Writer) (Logger, error) {
	opts, err := handlerOptions(level)
	if err != nil {
		return nil, err
	}
	return &slogLogger{logger: slog.New(slog.NewJSONHandler(w, opts))}, nil
}

// Discards everything. Used as default in services and in tests
func NewNoOpLogger() Logger {
	return &slogLogger{logger: slog.New(slog.DiscardHandler)}
}

func handlerOptions(level string) (*slog.HandlerOptions, error) {
	l, err := parseLevel(level)
	if err != nil {
		return nil, err
	}

	return &slog.HandlerOptions{
		Level:       l,
		AddSource:   true,
		ReplaceAttr: trimSource,
	}, nil
}

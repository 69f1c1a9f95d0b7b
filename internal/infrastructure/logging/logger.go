package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/sebakerckhof/ats-bridge/internal/infrastructure/config"
)

// Logger is the bridge's structured logger: a slog.Logger configured from
// config.yaml, with the service identity stamped on every record. It
// satisfies the Logger interfaces of the panel, bridge, and api packages.
type Logger struct {
	*slog.Logger
}

// New builds a Logger from the logging section of the config. Format is
// json or text, output is stdout or stderr, level is debug through error;
// anything unrecognised falls back to json/stdout/info.
func New(cfg config.LoggingConfig, version string) *Logger {
	var out io.Writer = os.Stdout
	if strings.EqualFold(cfg.Output, "stderr") {
		out = os.Stderr
	}
	return newLogger(out, cfg, version)
}

// newLogger is the writer-injected core of New, split out so tests can
// capture output.
func newLogger(out io.Writer, cfg config.LoggingConfig, version string) *Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}

	handler = handler.WithAttrs([]slog.Attr{
		slog.String("service", "atsbridge"),
		slog.String("version", version),
	})

	return &Logger{Logger: slog.New(handler)}
}

// Default returns a json/stdout/info logger for use during early startup,
// before the config file has been read.
func Default() *Logger {
	return New(config.LoggingConfig{Level: "info", Format: "json", Output: "stdout"}, "dev")
}

// With returns a child logger carrying extra default attributes.
//
//	mqttLog := log.With("component", "mqtt")
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

package observability

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// LoggerConfig selects where and how the process logs
type LoggerConfig struct {
	Level  string   // debug, info, warn, error
	File   string   // optional JSON log file, appended to
	Format string   // auto, console or json
	Out    *os.File // terminal-facing output; os.Stderr when nil
}

// NewLogger builds the process logger. Console formatting is used when
// Format is "console", or "auto" and Out is a terminal; JSON otherwise.
// The log file, when set, always receives JSON.
// The returned closer releases the log file.
func NewLogger(cfg LoggerConfig) (zerolog.Logger, io.Closer, error) {
	out := cfg.Out
	if out == nil {
		out = os.Stderr
	}

	var primary io.Writer
	switch strings.ToLower(cfg.Format) {
	case "", "auto":
		if isTerminal(out) {
			primary = consoleWriter(out)
		} else {
			primary = out
		}
	case "console":
		primary = consoleWriter(out)
	case "json":
		primary = out
	default:
		return zerolog.Nop(), nopCloser{}, fmt.Errorf("unsupported log format: %s (use 'auto', 'console' or 'json')", cfg.Format)
	}

	var closer io.Closer = nopCloser{}
	writer := primary
	if cfg.File != "" {
		file, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return zerolog.Nop(), nopCloser{}, fmt.Errorf("failed to open log file %s: %w", cfg.File, err)
		}
		writer = zerolog.MultiLevelWriter(primary, file)
		closer = file
	}

	logger := zerolog.New(writer).
		Level(ParseLogLevel(cfg.Level)).
		With().
		Timestamp().
		Logger()

	return logger, closer, nil
}

func consoleWriter(out io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: "2006-01-02 15:04:05",
	}
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// IsTerminal reports whether f is attached to a terminal
func IsTerminal(f *os.File) bool {
	return isTerminal(f)
}

// ParseLogLevel parses a string log level to zerolog.Level
func ParseLogLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "panic":
		return zerolog.PanicLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// RunLogger attaches the run identity to every entry of a run
func RunLogger(logger zerolog.Logger, runID, mode string, start time.Time) zerolog.Logger {
	return logger.With().
		Str("run_id", runID).
		Str("mode", mode).
		Time("started_at", start).
		Logger()
}

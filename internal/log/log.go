package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/lmittmann/tint"
)

type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

var (
	logger     *slog.Logger
	loggerOnce sync.Once
	minLevel   = new(slog.LevelVar)
)

// initLogger initializes the global logger to write to stderr with timestamps.
func initLogger() {
	loggerOnce.Do(func() {
		logger = newLogger(os.Stderr)
	})
}

func newLogger(w io.Writer) *slog.Logger {
	// Colors only for real files such as stderr.
	_, isFile := w.(*os.File)
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      minLevel,
		TimeFormat: time.RFC3339,
		NoColor:    !isFile,
	}))
}

// SetOutput redirects log output. Tests use it to capture lines.
func SetOutput(w io.Writer) {
	initLogger()
	logger = newLogger(w)
}

func SetLevel(l Level) {
	initLogger()
	minLevel.Set(toSlog(l))
}

// ParseLevel maps a config string such as "debug" or "WARN" to a Level.
// Unknown values fall back to INFO.
func ParseLevel(s string) Level {
	switch Level(strings.ToUpper(strings.TrimSpace(s))) {
	case LevelDebug:
		return LevelDebug
	case LevelWarn, "WARNING":
		return LevelWarn
	case LevelError:
		return LevelError
	default:
		return LevelInfo
	}
}

func Debug(msg string, kv ...any) {
	initLogger()
	logger.Debug(msg, kv...)
}

func Info(msg string, kv ...any) {
	initLogger()
	logger.Info(msg, kv...)
}

func Warn(msg string, kv ...any) {
	initLogger()
	logger.Warn(msg, kv...)
}

func Error(msg string, err error, kv ...any) {
	initLogger()
	// Prepend error into key-value list.
	extended := append([]any{"err", err}, kv...)
	logger.Error(msg, extended...)
}

func toSlog(l Level) slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

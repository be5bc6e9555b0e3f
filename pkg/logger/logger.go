package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	slogmulti "github.com/samber/slog-multi"
)

var (
	mu      sync.RWMutex
	current = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	closer  io.Closer
)

// Init configures the package logger. Development gets text on stdout,
// other environments JSON. A non-empty logFile adds a JSON file sink.
func Init(environment, level, logFile string) {
	lvl := ParseLevel(level)

	var console slog.Handler
	if strings.EqualFold(environment, "development") {
		console = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	} else {
		console = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}

	handler := console
	var file *os.File
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			slog.New(console).Error("failed to open log file, using stdout only", "error", err, "file", logFile)
		} else {
			file = f
			handler = slogmulti.Fanout(console, slog.NewJSONHandler(f, &slog.HandlerOptions{Level: lvl}))
		}
	}

	set(slog.New(handler), file)
}

// InitWithWriters fans out to a text and a JSON writer. Used by tests.
func InitWithWriters(text, json io.Writer, level slog.Level) {
	h := slogmulti.Fanout(
		slog.NewTextHandler(text, &slog.HandlerOptions{Level: level}),
		slog.NewJSONHandler(json, &slog.HandlerOptions{Level: level}),
	)
	set(slog.New(h), nil)
}

func set(l *slog.Logger, c io.Closer) {
	mu.Lock()
	defer mu.Unlock()
	if closer != nil {
		_ = closer.Close()
	}
	current = l
	closer = c
	slog.SetDefault(l)
}

func L() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

func With(args ...any) *slog.Logger {
	return L().With(args...)
}

func Debug(msg string, args ...any) { L().Debug(msg, args...) }
func Info(msg string, args ...any)  { L().Info(msg, args...) }
func Warn(msg string, args ...any)  { L().Warn(msg, args...) }
func Error(msg string, args ...any) { L().Error(msg, args...) }

func Fatal(msg string, args ...any) {
	L().Error(msg, args...)
	Close()
	os.Exit(1)
}

func Close() {
	mu.Lock()
	defer mu.Unlock()
	if closer != nil {
		_ = closer.Close()
		closer = nil
	}
}

func ParseLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Level represents the debug verbosity.
type Level int

const (
	Off Level = iota
	Basic
	Detailed
	Trace
	Wire
)

func (l Level) String() string {
	switch l {
	case Off:
		return "off"
	case Basic:
		return "basic"
	case Detailed:
		return "detailed"
	case Trace:
		return "trace"
	default:
		return "wire"
	}
}

var (
	mu     sync.RWMutex
	level  = Off
	logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
)

// LevelFromInt clamps an integer verbosity to a Level.
func LevelFromInt(i int) Level {
	switch {
	case i <= 0:
		return Off
	case i == 1:
		return Basic
	case i == 2:
		return Detailed
	case i == 3:
		return Trace
	default:
		return Wire
	}
}

// SetLevel sets the process-wide debug level.
func SetLevel(l Level) {
	mu.Lock()
	level = l
	mu.Unlock()
}

// GetLevel returns the current debug level.
func GetLevel() Level {
	mu.RLock()
	defer mu.RUnlock()
	return level
}

// Configure routes all output to w using a text or json slog handler.
func Configure(w io.Writer, format string) error {
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: slog.LevelDebug}
	var h slog.Handler
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		h = slog.NewTextHandler(w, opts)
	case "json":
		h = slog.NewJSONHandler(w, opts)
	default:
		return fmt.Errorf("unknown logging.format: %s", format)
	}
	mu.Lock()
	logger = slog.New(h)
	mu.Unlock()
	return nil
}

// Logger exposes the underlying structured logger.
func Logger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Log always writes the formatted message at info level.
func Log(format string, a ...interface{}) {
	Logger().Info(strings.TrimRight(fmt.Sprintf(format, a...), "\n"))
}

// Warn writes the formatted message at warn level.
func Warn(format string, a ...interface{}) {
	Logger().Warn(strings.TrimRight(fmt.Sprintf(format, a...), "\n"))
}

// Debug writes the formatted message when the current level is at least l.
func Debug(l Level, format string, a ...interface{}) {
	if GetLevel() < l {
		return
	}
	Logger().Log(context.Background(), slog.LevelDebug, strings.TrimRight(fmt.Sprintf(format, a...), "\n"), "debug_level", l.String())
}

// Package logger configures the process-wide structured logger.
//
// Output is a single ordered line per event, either key=value (dev) or
// JSON (prod), written through a buffered async writer that is flushed on
// shutdown. Component loggers scope every line with a component attribute.
package logger

import (
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var (
	initOnce   sync.Once
	shutdownMu sync.Mutex
	shutdowned bool

	logWriter  *asyncWriter
	logClosers []io.Closer

	levelVar slog.LevelVar

	// L is the base logger. Component loggers below derive from it.
	L *slog.Logger

	// TG logs Telegram transport and handler events.
	TG *slog.Logger
	// DB logs database events.
	DB *slog.Logger
	// MIG logs migration events.
	MIG *slog.Logger
	// Store logs menu document store activity.
	Store *slog.Logger
	// Auth logs authorization gate decisions.
	Auth *slog.Logger
	// Flow logs conversation state machine transitions.
	Flow *slog.Logger
	// Notify logs outbound notification queue activity.
	Notify *slog.Logger
	// Ops logs the ops HTTP server.
	Ops *slog.Logger
)

// Options select output format, level and an optional log file.
type Options struct {
	Level  string
	Format string
	Dir    string
	File   string
}

// Components are wired to slog's default logger until Init runs, so early
// call sites and tests never hit a nil logger.
func init() {
	wireComponents(slog.Default())
}

// Init configures the global structured logger. It may be called only once;
// later calls are no-ops returning the first error.
func Init(opts Options) error {
	var initErr error
	initOnce.Do(func() {
		levelVar.Set(parseLevel(opts.Level))

		writers, closers := buildOutputs(opts)
		logClosers = closers
		logWriter = newAsyncWriter(writers, 0)

		handler := newOrderedHandler(handlerConfig{
			level:  &levelVar,
			writer: logWriter,
			format: parseFormat(opts.Format),
		})

		root := slog.New(handler)
		slog.SetDefault(root)
		wireComponents(root)
	})
	return initErr
}

func wireComponents(root *slog.Logger) {
	L = root
	TG = root.With("component", "tg")
	DB = root.With("component", "db")
	MIG = root.With("component", "db.migrate")
	Store = root.With("component", "store")
	Auth = root.With("component", "auth")
	Flow = root.With("component", "flow")
	Notify = root.With("component", "notify")
	Ops = root.With("component", "ops")
}

// Shutdown flushes buffered output and closes opened sinks.
func Shutdown() error {
	shutdownMu.Lock()
	defer shutdownMu.Unlock()
	if shutdowned {
		return nil
	}
	shutdowned = true

	var errs []error
	if logWriter != nil {
		if err := logWriter.Flush(); err != nil {
			errs = append(errs, err)
		}
		if err := logWriter.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	for _, c := range logClosers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Component returns a logger scoped to the given component attribute.
func Component(name string) *slog.Logger {
	if L == nil {
		return nil
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return L
	}
	return L.With("component", name)
}

// Event logs an event for a component, resolving the logger from context
// when no global one is configured yet.
func Event(ctx context.Context, component string, level slog.Level, event string, attrs ...slog.Attr) {
	logg := Component(component)
	if logg == nil {
		logg = FromContext(ctx)
	}
	if logg == nil {
		return
	}
	if event != "" {
		attrs = append([]slog.Attr{slog.String("event", event)}, attrs...)
	}
	logg.LogAttrs(ctx, level, "", attrs...)
}

// Debug logs a debug-level event for the given component.
func Debug(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelDebug, event, attrs...)
}

// Info logs an info-level event for the given component.
func Info(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelInfo, event, attrs...)
}

// Warn logs a warn-level event for the given component.
func Warn(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelWarn, event, attrs...)
}

// Error logs an error-level event for the given component.
func Error(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelError, event, attrs...)
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
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

func parseFormat(raw string) logFormat {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "kv", "text", "pretty":
		return formatKV
	case "json":
		return formatJSON
	}
	return formatKV
}

func buildOutputs(opts Options) ([]io.Writer, []io.Closer) {
	writers := []io.Writer{os.Stdout}
	var closers []io.Closer

	dir := strings.TrimSpace(opts.Dir)
	file := strings.TrimSpace(opts.File)
	if dir == "" || file == "" {
		return writers, closers
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Printf("logger: create log dir %s: %v", dir, err)
		return writers, closers
	}
	path := filepath.Join(dir, file)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Printf("logger: open log file %s: %v", path, err)
		return writers, closers
	}
	return append(writers, f), append(closers, f)
}

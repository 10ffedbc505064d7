package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Log level mapping
var logLevelMap = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// loggers holds the main logger and the operations logger, which records
// every store mutation made from the command line.
type loggers struct {
	main       *slog.Logger
	operations *slog.Logger
	files      []*os.File
}

// Close flushes and closes the log files.
func (l *loggers) Close() error {
	var errs []error
	for _, f := range l.files {
		errs = append(errs, f.Close())
	}
	l.files = nil
	return errors.Join(errs...)
}

// initLogging opens hivdash.log and hivdash-operations.log in the XDG cache
// directory. With verbose set, both are also written to stderr.
func initLogging(logLevel string, verbose bool, stderr io.Writer) (*loggers, error) {
	level, ok := logLevelMap[strings.ToLower(logLevel)]
	if !ok {
		level = slog.LevelWarn
	}

	logDir := getXDGCacheDir()
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	l := &loggers{}
	open := func(name string) (*os.File, error) {
		f, err := os.OpenFile(filepath.Join(logDir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", name, err)
		}
		l.files = append(l.files, f)
		return f, nil
	}

	logFile, err := open("hivdash.log")
	if err != nil {
		_ = l.Close()
		return nil, err
	}
	var mainHandler slog.Handler = slog.NewJSONHandler(logFile, &slog.HandlerOptions{
		Level:     level,
		AddSource: true,
	})

	opsFile, err := open("hivdash-operations.log")
	if err != nil {
		_ = l.Close()
		return nil, err
	}
	// operations are always recorded at INFO
	var opsHandler slog.Handler = slog.NewJSONHandler(opsFile, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})

	if verbose {
		stderrHandler := slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
		mainHandler = &multiHandler{handlers: []slog.Handler{mainHandler, stderrHandler}}
		opsHandler = &multiHandler{handlers: []slog.Handler{opsHandler, stderrHandler}}
	}

	l.main = slog.New(mainHandler)
	l.operations = slog.New(opsHandler).With("logger", "operations")

	l.main.Debug("logging initialized",
		"level", level.String(),
		"log_dir", logDir,
		"verbose", verbose)

	return l, nil
}

// getXDGCacheDir returns the XDG cache directory for hivdash
func getXDGCacheDir() string {
	if xdgCache := os.Getenv("XDG_CACHE_HOME"); xdgCache != "" {
		return filepath.Join(xdgCache, "hivdash")
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "hivdash")
	}

	if runtime.GOOS == "darwin" {
		return filepath.Join(homeDir, "Library", "Caches", "hivdash")
	}
	return filepath.Join(homeDir, ".cache", "hivdash")
}

// multiHandler implements slog.Handler to write to multiple handlers
type multiHandler struct {
	handlers []slog.Handler
}

func (h *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *multiHandler) Handle(ctx context.Context, record slog.Record) error {
	for _, handler := range h.handlers {
		if !handler.Enabled(ctx, record.Level) {
			continue
		}
		if err := handler.Handle(ctx, record.Clone()); err != nil {
			return err
		}
	}
	return nil
}

func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newHandlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		newHandlers[i] = handler.WithAttrs(attrs)
	}
	return &multiHandler{handlers: newHandlers}
}

func (h *multiHandler) WithGroup(name string) slog.Handler {
	newHandlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		newHandlers[i] = handler.WithGroup(name)
	}
	return &multiHandler{handlers: newHandlers}
}

// logOperation records a store mutation
func (l *loggers) logOperation(operation string, args ...any) {
	l.operations.Info("operation", append([]any{"operation", operation}, args...)...)
}

// Package logging configures the client's structured logger.
//
// The terminal UI owns stdout and stderr, so log output goes to a file. The
// logger travels through context.Context the same way everywhere:
// ContextWithLogger at the root, Ctx at the call site.
package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"pkt.systems/pslog"
)

// New builds a structured logger writing JSON lines to w.
func New(w io.Writer, level string) pslog.Logger {
	return pslog.NewWithOptions(w, pslog.Options{
		Mode:          pslog.ModeStructured,
		NoColor:       true,
		MinLevel:      parseLevel(level),
		VerboseFields: true,
	})
}

// Discard returns a logger that drops everything.
func Discard() pslog.Logger {
	return New(io.Discard, "error")
}

// OpenFile opens (appending) the log file at path and returns a logger bound
// to it. The returned closer must be closed on shutdown.
func OpenFile(path, level string) (pslog.Logger, io.Closer, error) {
	if strings.TrimSpace(path) == "" {
		return Discard(), io.NopCloser(nil), nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return New(file, level), file, nil
}

// ContextWithLogger stores logger on ctx.
func ContextWithLogger(ctx context.Context, logger pslog.Logger) context.Context {
	return pslog.ContextWithLogger(ctx, logger)
}

// Ctx returns the logger bound to ctx.
func Ctx(ctx context.Context) pslog.Logger {
	if ctx == nil {
		return Discard()
	}
	if log := pslog.Ctx(ctx); log != nil {
		return log
	}
	return Discard()
}

// WithSession annotates the logger with the session id when available.
// Only a short prefix is logged; the id is a bearer credential.
func WithSession(log pslog.Logger, sessionID string) pslog.Logger {
	if sessionID != "" {
		log = log.With("session", Redact(sessionID))
	}
	return log
}

// WithView annotates the logger with the mounted view path and instance.
func WithView(log pslog.Logger, path string, instance uint64) pslog.Logger {
	return log.With("view", "#"+path, "instance", instance)
}

// WithQuery annotates the logger with a saved query id when available.
func WithQuery(log pslog.Logger, queryID string) pslog.Logger {
	if queryID != "" {
		log = log.With("query", queryID)
	}
	return log
}

// Redact shortens an opaque credential for logging.
func Redact(value string) string {
	if len(value) <= 8 {
		return strings.Repeat("*", len(value))
	}
	return value[:4] + "…" + value[len(value)-4:]
}

func parseLevel(level string) pslog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return pslog.DebugLevel
	case "warn", "warning":
		return pslog.WarnLevel
	case "error":
		return pslog.ErrorLevel
	default:
		return pslog.InfoLevel
	}
}

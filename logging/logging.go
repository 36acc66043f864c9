// Package logging writes the append-only diagnostic log as JSON lines.
package logging

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/lumberjack.v2"

	"ludoteca/lending"
)

type Config struct {
	Path       string
	Level      string
	Debug      bool
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Discard is used whenever the log file cannot be set up.
func Discard() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// Setup opens a rotating log file at cfg.Path. On failure it still returns a
// usable (discarding) logger so callers never have to nil-check.
func Setup(cfg Config) (*slog.Logger, func() error, error) {
	noop := func() error { return nil }
	if strings.TrimSpace(cfg.Path) == "" {
		return Discard(), noop, nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return Discard(), noop, err
	}

	w := &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		LocalTime:  true,
	}

	level := parseLevel(cfg.Level)
	if cfg.Debug {
		level = slog.LevelDebug
	}
	l := slog.New(newHandler(w, level, cfg.Debug))
	l.Debug("logger.initialized", "path", cfg.Path)

	return l, w.Close, nil
}

func newHandler(w io.Writer, level slog.Level, addSource bool) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: addSource,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && a.Value.Kind() == slog.KindTime {
				t := a.Value.Time().UTC()
				a.Value = slog.StringValue(t.Format(time.RFC3339Nano))
			}
			return a
		},
	})
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ErrorLog records failed operations. Recording never fails from the caller's
// point of view: a nil ErrorLog, a broken writer or a panicking handler are all
// swallowed.
type ErrorLog struct {
	log *slog.Logger
}

func NewErrorLog(l *slog.Logger) *ErrorLog {
	return &ErrorLog{log: l}
}

// Record logs err under op with its kind, message and the chain of wrapped causes.
func (e *ErrorLog) Record(op string, err error) {
	if e == nil || e.log == nil || err == nil {
		return
	}
	defer func() { _ = recover() }()

	kind := string(lending.KindOf(err))
	if kind == "" {
		kind = "internal"
	}
	e.log.Error(op,
		"kind", kind,
		"message", err.Error(),
		"trace", causes(err),
	)
}

// causes lists the messages of every error wrapped below err.
func causes(err error) []string {
	var out []string
	for cur := errors.Unwrap(err); cur != nil; cur = errors.Unwrap(cur) {
		out = append(out, cur.Error())
	}
	return out
}

package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"
)

var once sync.Once

// Init installs the default logger writing to stderr at INFO level.
// stdout is left to command output such as decoded envelopes.
func Init() {
	once.Do(func() {
		slog.SetDefault(slog.New(NewHandler(os.Stderr, slog.LevelInfo)))
	})
}

// InitWith installs a logger writing to out at the given minimum level.
// Unlike Init it always replaces the current default.
func InitWith(out io.Writer, level slog.Level) {
	once.Do(func() {})
	slog.SetDefault(slog.New(NewHandler(out, level)))
}

// ParseLevel maps a flag value ("debug", "info", "warn", "error") to a level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", s)
	}

	return l, nil
}

// Handler is a compact slog handler with millisecond timestamps.
type Handler struct {
	out   *lockedWriter // out is shared by handlers derived via WithAttrs
	level slog.Level    // level is the minimum level written
	attrs []slog.Attr   // attrs are written on every record, keys already qualified
	group string        // group prefixes attribute keys
}

// lockedWriter serializes writes from every handler sharing it.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewHandler creates a handler writing records at or above level to out.
func NewHandler(out io.Writer, level slog.Level) *Handler {
	return &Handler{out: &lockedWriter{w: out}, level: level}
}

// Enabled reports whether records at l are written.
func (h *Handler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.level
}

// Handle formats and writes a log record.
func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	// Format: 2024-01-15 14:30:45.123 [INF] message key=value
	ts := r.Time.Format("2006-01-02 15:04:05.000")

	h.out.mu.Lock()
	defer h.out.mu.Unlock()

	fmt.Fprintf(h.out.w, "%s [%s] %s", ts, levelString(r.Level), r.Message)

	for _, a := range h.attrs {
		fmt.Fprintf(h.out.w, " %s=%v", a.Key, a.Value.Resolve())
	}

	r.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(h.out.w, " %s=%v", h.qualify(a.Key), a.Value.Resolve())
		return true
	})

	_, err := fmt.Fprintln(h.out.w)

	return err
}

// qualify prefixes key with the current group.
func (h *Handler) qualify(key string) string {
	if h.group == "" {
		return key
	}

	return h.group + "." + key
}

// WithAttrs returns a handler that writes attrs on every record.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}

	clone := *h
	clone.attrs = append([]slog.Attr{}, h.attrs...)

	for _, a := range attrs {
		clone.attrs = append(clone.attrs, slog.Attr{Key: h.qualify(a.Key), Value: a.Value})
	}

	return &clone
}

// WithGroup returns a handler that prefixes later attribute keys with name.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}

	clone := *h
	if clone.group != "" {
		clone.group += "." + name
	} else {
		clone.group = name
	}

	return &clone
}

// levelString returns a short string for the log level.
func levelString(l slog.Level) string {
	switch {
	case l < slog.LevelInfo:
		return "DBG"
	case l < slog.LevelWarn:
		return "INF"
	case l < slog.LevelError:
		return "WRN"
	default:
		return "ERR"
	}
}

// Info logs at INFO level.
func Info(msg string, args ...any) {
	slog.Info(msg, args...)
}

// Debug logs at DEBUG level.
func Debug(msg string, args ...any) {
	slog.Debug(msg, args...)
}

// Warn logs at WARN level.
func Warn(msg string, args ...any) {
	slog.Warn(msg, args...)
}

// Error logs at ERROR level.
func Error(msg string, args ...any) {
	slog.Error(msg, args...)
}

// With returns a logger with the given attributes.
func With(args ...any) *slog.Logger {
	return slog.Default().With(args...)
}

// Timed returns elapsed time since start for logging duration.
func Timed(start time.Time) slog.Attr {
	return slog.Duration("elapsed", time.Since(start))
}

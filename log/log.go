// Package log builds the slog loggers used by permstore.
package log

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/reglet-dev/permstore/domain/entities"
)

// Output formats accepted by WithFormat.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// HandlerOption configures the handler built by NewHandler.
type HandlerOption func(*handlerConfig)

type handlerConfig struct {
	level     slog.Level
	addSource bool
	format    string
}

// defaultHandlerConfig returns the default configuration.
func defaultHandlerConfig() handlerConfig {
	return handlerConfig{
		level:  slog.LevelInfo,
		format: FormatText,
	}
}

// WithLevel sets the minimum log level to report.
func WithLevel(level slog.Level) HandlerOption {
	return func(c *handlerConfig) {
		c.level = level
	}
}

// WithSource enables reporting of source location (file/line).
func WithSource(enabled bool) HandlerOption {
	return func(c *handlerConfig) {
		c.addSource = enabled
	}
}

// WithFormat selects text or json output. Unknown formats fall back to text.
func WithFormat(format string) HandlerOption {
	return func(c *handlerConfig) {
		c.format = format
	}
}

// NewHandler creates a slog.Handler writing to w.
func NewHandler(w io.Writer, opts ...HandlerOption) slog.Handler {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	hopts := &slog.HandlerOptions{
		Level:       cfg.level,
		AddSource:   cfg.addSource,
		ReplaceAttr: redactAttr,
	}
	if cfg.format == FormatJSON {
		return slog.NewJSONHandler(w, hopts)
	}
	return slog.NewTextHandler(w, hopts)
}

// NewLogger is shorthand for slog.New(NewHandler(w, opts...)).
func NewLogger(w io.Writer, opts ...HandlerOption) *slog.Logger {
	return slog.New(NewHandler(w, opts...))
}

// ParseLevel maps debug, info, warn and error (any case) to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// redactAttr keeps token bytes out of log output. Entities redact themselves
// through slog.LogValuer; slices of them are expanded here because handlers
// format slices without resolving their elements.
func redactAttr(_ []string, attr slog.Attr) slog.Attr {
	attr.Value = attr.Value.Resolve()
	if attr.Value.Kind() != slog.KindAny {
		return attr
	}
	switch v := attr.Value.Any().(type) {
	case []entities.Token:
		attr.Value = indexed(v)
	case []entities.GrantRecord:
		attr.Value = indexed(v)
	case []entities.Entry:
		attr.Value = indexed(v)
	}
	return attr
}

func indexed[T slog.LogValuer](items []T) slog.Value {
	attrs := make([]slog.Attr, len(items))
	for i, item := range items {
		attrs[i] = slog.Attr{Key: strconv.Itoa(i), Value: item.LogValue()}
	}
	return slog.GroupValue(attrs...)
}

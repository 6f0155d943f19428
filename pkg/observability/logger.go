// Package observability provides structured logging, metrics, and request
// correlation for Harbor services.
package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// LogConfig configures the logger. Zero values fall back to text output
// on stderr at info level.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string

	// Format is "text" or "json". Production defaults to json.
	Format string

	// Output defaults to os.Stderr.
	Output io.Writer

	// AddSource includes the caller's file and line.
	AddSource bool

	// ServiceName and ServiceVersion are stamped on every record.
	ServiceName    string
	ServiceVersion string
}

// NewLogger builds a slog.Logger per the config, wrapped so every record
// carries the service identity and the correlation ID from context.
func NewLogger(cfg LogConfig) *slog.Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "harbor"
	}

	opts := &slog.HandlerOptions{
		Level:     parseLevel(cfg.Level),
		AddSource: cfg.AddSource,
	}

	var inner slog.Handler
	if cfg.Format == "json" {
		inner = slog.NewJSONHandler(cfg.Output, opts)
	} else {
		inner = slog.NewTextHandler(cfg.Output, opts)
	}

	attrs := []slog.Attr{slog.String("service", cfg.ServiceName)}
	if cfg.ServiceVersion != "" {
		attrs = append(attrs, slog.String("version", cfg.ServiceVersion))
	}

	return slog.New(&attributeHandler{handler: inner, attrs: attrs})
}

// LoggerFromEnv builds a logger from HARBOR_LOG_LEVEL, HARBOR_LOG_FORMAT,
// HARBOR_VERSION, and APP_ENV. Production switches to JSON on stdout with
// source locations.
func LoggerFromEnv() *slog.Logger {
	cfg := LogConfig{
		Level:          os.Getenv("HARBOR_LOG_LEVEL"),
		Format:         os.Getenv("HARBOR_LOG_FORMAT"),
		ServiceVersion: os.Getenv("HARBOR_VERSION"),
	}
	if os.Getenv("APP_ENV") == "production" {
		cfg.Output = os.Stdout
		cfg.AddSource = true
		if cfg.Format == "" {
			cfg.Format = "json"
		}
	}
	return NewLogger(cfg)
}

func parseLevel(level string) slog.Level {
	switch level {
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

// attributeHandler stamps fixed attributes and the per-request
// correlation ID onto every record.
type attributeHandler struct {
	handler slog.Handler
	attrs   []slog.Attr
}

func (h *attributeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *attributeHandler) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(h.attrs...)
	if id := CorrelationIDFromContext(ctx); id != "" {
		r.AddAttrs(slog.String(CorrelationIDKey, id))
	}
	return h.handler.Handle(ctx, r)
}

func (h *attributeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &attributeHandler{handler: h.handler.WithAttrs(attrs), attrs: h.attrs}
}

func (h *attributeHandler) WithGroup(name string) slog.Handler {
	return &attributeHandler{handler: h.handler.WithGroup(name), attrs: h.attrs}
}

// Package logging wires slog for the marker engine and its host tooling:
// console plus optional file, Graylog, and OTel outputs behind a single
// fan-out handler.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// Options configures the outputs of a Manager. The console handler is
// always installed; everything else is opt-in.
type Options struct {
	Level string

	// File receives a text copy of every record when non-nil.
	File io.Writer

	// GraylogAddr enables a GELF UDP output when non-empty, e.g.
	// "graylog.example.com:12201".
	GraylogAddr string

	// Provider enables the OTel log bridge when non-nil.
	Provider *sdklog.LoggerProvider

	// Context supplies dynamic attributes stamped onto every record,
	// such as the current animation session and runtime profile.
	Context ContextProvider
}

// Manager owns the configured slog logger and the OTel provider used for
// flushing on shutdown.
type Manager struct {
	logger      *slog.Logger
	logProvider *sdklog.LoggerProvider
}

// NewManager creates an empty logging manager; call Setup before use.
func NewManager() *Manager {
	return &Manager{}
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup builds the handler chain described by opts and installs it on the
// manager. Safe to call once at startup; the returned error only concerns
// the Graylog connection.
func (m *Manager) Setup(opts Options) error {
	lvl := parseLevel(opts.Level)
	m.logProvider = opts.Provider

	handlerOpts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
				}
			}
			return a
		},
	}

	var handlers []slog.Handler

	handlers = append(handlers, slog.NewTextHandler(os.Stdout, handlerOpts))

	if opts.File != nil {
		handlers = append(handlers, slog.NewTextHandler(opts.File, handlerOpts))
	}

	if opts.GraylogAddr != "" {
		gelfWriter, err := gelf.NewWriter(opts.GraylogAddr)
		if err != nil {
			return err
		}
		// One JSON document per record; the GELF writer chunks each
		// write into UDP messages.
		handlers = append(handlers, slog.NewJSONHandler(gelfWriter, handlerOpts))
	}

	if opts.Provider != nil {
		handlers = append(handlers, otelslog.NewHandler("markerflow", otelslog.WithLoggerProvider(opts.Provider)))
	}

	var root slog.Handler = NewMultiHandler(handlers...)
	if opts.Context != nil {
		root = NewContextHandler(root, opts.Context)
	}

	m.logger = slog.New(root)
	m.logger.Info("Logging initialized", "level", opts.Level)
	return nil
}

// Logger returns the configured logger, falling back to slog.Default before
// Setup has run.
func (m *Manager) Logger() *slog.Logger {
	if m.logger == nil {
		return slog.Default()
	}
	return m.logger
}

// Flush forces a flush of OTel logs if a provider is attached.
func (m *Manager) Flush(ctx context.Context) error {
	if m.logProvider != nil {
		return m.logProvider.ForceFlush(ctx)
	}
	return nil
}

package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// Format selects the output encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

type options struct {
	level      slog.Level
	format     Format
	output     io.Writer
	attrs      []slog.Attr
	addSource  bool
	extractors []ContextExtractor
}

// Option configures a logger created by New.
type Option func(*options)

// ContextExtractor pulls a single attribute out of a context.
type ContextExtractor func(ctx context.Context) (slog.Attr, bool)

// New creates a slog logger. Without options it writes text at info level to stdout.
func New(opts ...Option) *slog.Logger {
	o := &options{
		level:  slog.LevelInfo,
		format: FormatText,
		output: os.Stdout,
	}
	for _, opt := range opts {
		opt(o)
	}

	hopts := &slog.HandlerOptions{Level: o.level, AddSource: o.addSource}

	var h slog.Handler
	switch o.format {
	case FormatJSON:
		h = slog.NewJSONHandler(o.output, hopts)
	default:
		h = slog.NewTextHandler(o.output, hopts)
	}

	if len(o.attrs) > 0 {
		h = h.WithAttrs(o.attrs)
	}
	if len(o.extractors) > 0 {
		h = &contextHandler{Handler: h, extractors: o.extractors}
	}

	return slog.New(h)
}

// Nop returns a logger that discards everything.
func Nop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// WithDevelopment configures text output at debug level with source locations.
func WithDevelopment(service string) Option {
	return func(o *options) {
		o.level = slog.LevelDebug
		o.format = FormatText
		o.addSource = true
		o.attrs = append(o.attrs, slog.String("service", service), slog.String("env", "development"))
	}
}

// WithStaging configures JSON output at debug level.
func WithStaging(service string) Option {
	return func(o *options) {
		o.level = slog.LevelDebug
		o.format = FormatJSON
		o.attrs = append(o.attrs, slog.String("service", service), slog.String("env", "staging"))
	}
}

// WithProduction configures JSON output at info level.
func WithProduction(service string) Option {
	return func(o *options) {
		o.level = slog.LevelInfo
		o.format = FormatJSON
		o.attrs = append(o.attrs, slog.String("service", service), slog.String("env", "production"))
	}
}

// WithLevel sets the minimum level.
func WithLevel(level slog.Level) Option {
	return func(o *options) { o.level = level }
}

// WithJSONFormatter selects JSON output.
func WithJSONFormatter() Option {
	return func(o *options) { o.format = FormatJSON }
}

// WithTextFormatter selects text output.
func WithTextFormatter() Option {
	return func(o *options) { o.format = FormatText }
}

// WithOutput sets the destination writer.
func WithOutput(w io.Writer) Option {
	return func(o *options) {
		if w != nil {
			o.output = w
		}
	}
}

// WithAttr adds attributes to every record.
func WithAttr(attrs ...slog.Attr) Option {
	return func(o *options) { o.attrs = append(o.attrs, attrs...) }
}

// WithContextValue adds an attribute named attrKey holding ctx.Value(ctxKey)
// to records logged with a context carrying that value.
func WithContextValue(attrKey string, ctxKey any) Option {
	return WithContextExtractors(func(ctx context.Context) (slog.Attr, bool) {
		v := ctx.Value(ctxKey)
		if v == nil {
			return slog.Attr{}, false
		}
		return slog.Any(attrKey, v), true
	})
}

// WithContextExtractors registers custom context extractors.
func WithContextExtractors(extractors ...ContextExtractor) Option {
	return func(o *options) {
		for _, e := range extractors {
			if e != nil {
				o.extractors = append(o.extractors, e)
			}
		}
	}
}

// contextHandler decorates a handler with attributes taken from the record context.
type contextHandler struct {
	slog.Handler
	extractors []ContextExtractor
}

func (h *contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if ctx != nil {
		for _, extract := range h.extractors {
			if attr, ok := extract(ctx); ok {
				r.AddAttrs(attr)
			}
		}
	}
	return h.Handler.Handle(ctx, r)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{Handler: h.Handler.WithAttrs(attrs), extractors: h.extractors}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{Handler: h.Handler.WithGroup(name), extractors: h.extractors}
}

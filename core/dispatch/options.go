package dispatch

import (
	"log/slog"

	"github.com/dmitrymomot/krustie/core/handler"
)

// Option configures a Dispatcher during creation.
type Option func(*Dispatcher)

// WithLogger sets a custom logger for the dispatcher.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithErrorHandler sets a custom error handler used for not found,
// method not allowed, malformed requests and handler faults.
func WithErrorHandler(h handler.ErrorHandler) Option {
	return func(d *Dispatcher) {
		if h != nil {
			d.errorHandler = h
		}
	}
}

// WithObserver registers observers notified once per finalized response.
func WithObserver(observers ...Observer) Option {
	return func(d *Dispatcher) {
		for _, o := range observers {
			if o != nil {
				d.observers = append(d.observers, o)
			}
		}
	}
}

// WithMaxBodySize limits the request body read by ServeHTTP and HandleRaw.
// Zero or negative values disable the limit.
func WithMaxBodySize(n int64) Option {
	return func(d *Dispatcher) {
		d.maxBodySize = n
	}
}

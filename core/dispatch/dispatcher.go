package dispatch

import (
	"errors"
	"io"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/dmitrymomot/krustie/core/handler"
	"github.com/dmitrymomot/krustie/core/logger"
	"github.com/dmitrymomot/krustie/core/router"
)

// DefaultMaxBodySize is the request body limit applied by ServeHTTP and HandleRaw.
const DefaultMaxBodySize int64 = 10 << 20

// Dispatcher executes the pipeline resolved by a root router for each request.
// It is safe for concurrent use once created.
type Dispatcher struct {
	root         *router.Router
	logger       *slog.Logger
	errorHandler handler.ErrorHandler
	observers    []Observer
	maxBodySize  int64
}

// New creates a dispatcher for root and freezes it. Registering routes on a
// frozen router panics, so configure everything before calling New.
func New(root *router.Router, opts ...Option) *Dispatcher {
	if root == nil {
		panic(ErrNilRouter)
	}

	d := &Dispatcher{
		root:         root,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)), // No-op logger by default
		errorHandler: DefaultErrorHandler,
		maxBodySize:  DefaultMaxBodySize,
	}

	for _, opt := range opts {
		opt(d)
	}

	root.Freeze()
	return d
}

// Dispatch resolves req, runs its pipeline until the first End or until
// exhaustion and returns the final response. It never panics: handler faults
// are isolated to this request and reported as 500.
func (d *Dispatcher) Dispatch(req *handler.Request) *handler.Response {
	start := time.Now()
	ex := &exchange{state: stateParsed}
	res := handler.NewResponse()

	d.execute(ex, req, res)

	ex.state = stateFinalized
	d.observe(req, res, time.Since(start))
	return res
}

func (d *Dispatcher) execute(ex *exchange, req *handler.Request, res *handler.Response) {
	resolution, err := d.root.Resolve(req.Method(), req.EscapedPath())
	if err != nil {
		d.fail(req, res, err)
		return
	}

	ex.state = stateResolved
	res.SetLocal(handler.LocalRoute, resolution.Pattern)
	req = req.WithParams(resolution.Params)

	defer func() {
		if p := recover(); p != nil {
			// Partial output of the faulting request is discarded
			panicErr := &panicError{
				value: p,
				stack: debug.Stack(),
			}

			d.logger.Error("handler panic recovered",
				logger.Component("dispatch"),
				logger.Method(string(req.Method())),
				logger.Path(req.Path()),
				logger.Route(resolution.Pattern),
				slog.String("state", ex.String()),
				slog.Any("value", p),
				logger.Stack(panicErr.stack),
			)

			res.Reset()
			d.fail(req, res, panicErr)
		}
	}()

	ex.state = stateExecuting
	for i, mw := range resolution.Pipeline {
		ex.index = i
		if mw.Process(req, res) == handler.End {
			return
		}
	}
}

// fail renders err into res through the error handler.
func (d *Dispatcher) fail(req *handler.Request, res *handler.Response, err error) {
	var mna *router.MethodNotAllowedError
	if errors.As(err, &mna) {
		res.SetHeader("Allow", mna.AllowHeader())
	}

	defer func() {
		// error handlers may panic too
		if p := recover(); p != nil {
			d.logger.Error("error handler panic recovered",
				logger.Component("dispatch"),
				logger.Error(err),
				slog.Any("value", p),
			)
			res.Reset()
			DefaultErrorHandler(req, res, err)
		}
	}()

	d.errorHandler(req, res, err)
}

// reject finalizes a request that could not be parsed.
func (d *Dispatcher) reject(req *handler.Request, err error) *handler.Response {
	start := time.Now()
	res := handler.NewResponse()

	d.logger.Debug("request rejected",
		logger.Component("dispatch"),
		logger.Error(err),
	)

	d.fail(req, res, err)
	d.observe(req, res, time.Since(start))
	return res
}

func (d *Dispatcher) observe(req *handler.Request, res *handler.Response, elapsed time.Duration) {
	for _, o := range d.observers {
		o.Observe(req, res, elapsed)
	}
}

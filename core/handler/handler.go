package handler

// Result tells the dispatcher whether to continue with the next pipeline entry.
type Result uint8

const (
	// Next continues with the next handler in the resolved pipeline.
	Next Result = iota
	// End stops the pipeline. The response as it stands is final.
	End
)

// String implements fmt.Stringer.
func (r Result) String() string {
	switch r {
	case Next:
		return "next"
	case End:
		return "end"
	default:
		return "unknown"
	}
}

// Middleware is the single capability every pipeline entry implements.
// Implementations are shared by all concurrent requests, so any internal state
// must be safe for concurrent use. Per-request state belongs in the Response locals.
type Middleware interface {
	Process(req *Request, res *Response) Result
}

// MiddlewareFunc adapts an ordinary function to the Middleware interface.
type MiddlewareFunc func(req *Request, res *Response) Result

// Process implements Middleware.
func (f MiddlewareFunc) Process(req *Request, res *Response) Result {
	return f(req, res)
}

// HandlerFunc is the terminal route handler form. It always continues the pipeline.
type HandlerFunc func(req *Request, res *Response)

// Process implements Middleware.
func (f HandlerFunc) Process(req *Request, res *Response) Result {
	f(req, res)
	return Next
}

// ErrorHandler renders an error response for req into res.
// It receives a freshly reset response for faults raised by handlers.
type ErrorHandler func(req *Request, res *Response, err error)

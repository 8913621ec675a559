package dispatch

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrymomot/krustie/core/handler"
	"github.com/dmitrymomot/krustie/core/router"
)

var (
	ErrNilRouter        = errors.New("nil router")
	ErrMalformedRequest = errors.New("malformed request")
	ErrBodyTooLarge     = errors.New("request body too large")
	ErrHandlerFault     = errors.New("handler fault")
)

// statusCode is an unexported interface that errors can implement
// to provide a custom HTTP status code.
type statusCode interface {
	StatusCode() int
}

// StatusCode maps a dispatch error to the HTTP status that reports it.
func StatusCode(err error) int {
	var sc statusCode
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, router.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, router.ErrMethodNotAllowed):
		return http.StatusMethodNotAllowed
	case errors.Is(err, ErrBodyTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrMalformedRequest), errors.Is(err, handler.ErrMalformedBody):
		return http.StatusBadRequest
	case errors.As(err, &sc):
		return sc.StatusCode()
	default:
		return http.StatusInternalServerError
	}
}

// PanicError interface allows external error handlers to detect and handle panics.
// When a panic is recovered by the dispatcher, it's wrapped in an error that implements
// this interface, providing access to the original panic value and stack trace.
type PanicError interface {
	error
	// Value returns the original panic value.
	Value() any
	// Stack returns the stack trace captured at the panic point.
	Stack() []byte
}

// panicError is the private implementation of PanicError interface.
type panicError struct {
	value any
	stack []byte
}

// Error implements the error interface.
func (e *panicError) Error() string {
	return fmt.Sprintf("%s: panic: %v", ErrHandlerFault, e.value)
}

// Value returns the original panic value.
func (e *panicError) Value() any {
	return e.value
}

// Stack returns the stack trace.
func (e *panicError) Stack() []byte {
	return e.stack
}

// Is matches ErrHandlerFault.
func (e *panicError) Is(target error) bool {
	return target == ErrHandlerFault
}

// Unwrap allows errors.Is/As to work with wrapped panics.
func (e *panicError) Unwrap() error {
	if err, ok := e.value.(error); ok {
		return err
	}
	return nil
}

// DefaultErrorHandler writes the status text of the error as a plain text body.
func DefaultErrorHandler(req *handler.Request, res *handler.Response, err error) {
	status := StatusCode(err)
	res.Status(status).Text(http.StatusText(status))
}

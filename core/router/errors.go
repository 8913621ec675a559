package router

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrymomot/krustie/core/handler"
)

var (
	// Resolution errors
	ErrNotFound         = errors.New("route not found")
	ErrMethodNotAllowed = errors.New("method not allowed")

	// Registration errors
	ErrInvalidPattern   = errors.New("invalid route path pattern")
	ErrInvalidPrefix    = errors.New("invalid mount prefix")
	ErrWildcardPosition = errors.New("wildcard position must be last")
	ErrEmptyParam       = errors.New("parameter name must not be empty")
	ErrDuplicateParam   = errors.New("duplicate parameter name")
	ErrParamConflict    = errors.New("conflicting parameter names at the same level")
	ErrNilHandler       = errors.New("nil handler")
	ErrNilMiddleware    = errors.New("nil middleware")
	ErrNilRouter        = errors.New("nil router")
	ErrNilSubrouter     = errors.New("nil subrouter")
	ErrMountSelf        = errors.New("router cannot be mounted on itself")
	ErrAlreadyMounted   = errors.New("router is already mounted")
	ErrMountCycle       = errors.New("mount would create a cycle")
	ErrFrozen           = errors.New("router is frozen")
)

// MethodNotAllowedError reports a path that exists without a handler for the
// requested method. It matches ErrMethodNotAllowed with errors.Is.
type MethodNotAllowedError struct {
	Method  handler.Method
	Allowed []handler.Method
}

func (e *MethodNotAllowedError) Error() string {
	return fmt.Sprintf("%s: %s (allowed: %s)", ErrMethodNotAllowed, e.Method, e.AllowHeader())
}

// Is allows errors.Is(err, ErrMethodNotAllowed).
func (e *MethodNotAllowedError) Is(target error) bool {
	return target == ErrMethodNotAllowed
}

// AllowHeader renders the allowed methods as an Allow header value.
func (e *MethodNotAllowedError) AllowHeader() string {
	names := make([]string, len(e.Allowed))
	for i, m := range e.Allowed {
		names[i] = string(m)
	}
	return strings.Join(names, ", ")
}

package router

import (
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/dmitrymomot/krustie/core/handler"
)

// Router composes a routing tree with an ordered list of attachments.
// Attachments are global middleware or sub-routers mounted at a prefix, and
// their insertion order is the execution order of the resolved pipeline.
//
// Routers are configured from a single goroutine and frozen before serving.
// A frozen router is read-only and safe for concurrent resolution.
type Router struct {
	tree        *node
	attachments []attachment
	parent      *Router
	frozen      atomic.Bool
}

// attachment is either a middleware or a mounted sub-router.
type attachment struct {
	middleware handler.Middleware
	pattern    string
	prefix     []segment
	sub        *Router
}

// Route describes a single route in the router with its HTTP method and pattern.
type Route struct {
	Method  handler.Method
	Pattern string
}

// New creates an empty router.
func New() *Router {
	return &Router{tree: newNode(ntStatic, "")}
}

// Get registers a handler for GET requests.
func (r *Router) Get(pattern string, h handler.HandlerFunc) {
	r.handle(handler.MethodGet, pattern, h, nil)
}

// Post registers a handler for POST requests.
func (r *Router) Post(pattern string, h handler.HandlerFunc) {
	r.handle(handler.MethodPost, pattern, h, nil)
}

// Put registers a handler for PUT requests.
func (r *Router) Put(pattern string, h handler.HandlerFunc) {
	r.handle(handler.MethodPut, pattern, h, nil)
}

// Patch registers a handler for PATCH requests.
func (r *Router) Patch(pattern string, h handler.HandlerFunc) {
	r.handle(handler.MethodPatch, pattern, h, nil)
}

// Delete registers a handler for DELETE requests.
func (r *Router) Delete(pattern string, h handler.HandlerFunc) {
	r.handle(handler.MethodDelete, pattern, h, nil)
}

// Head registers a handler for HEAD requests.
func (r *Router) Head(pattern string, h handler.HandlerFunc) {
	r.handle(handler.MethodHead, pattern, h, nil)
}

// Options registers a handler for OPTIONS requests.
func (r *Router) Options(pattern string, h handler.HandlerFunc) {
	r.handle(handler.MethodOptions, pattern, h, nil)
}

// Connect registers a handler for CONNECT requests.
func (r *Router) Connect(pattern string, h handler.HandlerFunc) {
	r.handle(handler.MethodConnect, pattern, h, nil)
}

// Trace registers a handler for TRACE requests.
func (r *Router) Trace(pattern string, h handler.HandlerFunc) {
	r.handle(handler.MethodTrace, pattern, h, nil)
}

// Handle registers a handler for all HTTP methods.
func (r *Router) Handle(pattern string, h handler.HandlerFunc) {
	for _, m := range handler.Methods {
		r.handle(m, pattern, h, nil)
	}
}

// Method registers a handler for one or more specific HTTP methods.
func (r *Router) Method(pattern string, h handler.HandlerFunc, methods ...handler.Method) {
	if len(methods) == 0 {
		panic(fmt.Errorf("%w: no methods provided", handler.ErrInvalidMethod))
	}
	for _, m := range methods {
		r.handle(m, pattern, h, nil)
	}
}

// Endpoint registers a handler preceded by route level middleware.
// The middleware only runs for requests that resolve to this route.
func (r *Router) Endpoint(method handler.Method, pattern string, h handler.HandlerFunc, middlewares ...handler.Middleware) {
	for _, mw := range middlewares {
		if mw == nil {
			panic(fmt.Errorf("%w on '%s'", ErrNilMiddleware, pattern))
		}
	}
	r.handle(method, pattern, h, middlewares)
}

// Use appends global middleware. It runs for every request reaching this
// router, before attachments added later and before the router's own routes.
func (r *Router) Use(middlewares ...handler.Middleware) {
	r.mustNotBeFrozen()
	for _, mw := range middlewares {
		if mw == nil {
			panic(ErrNilMiddleware)
		}
		r.attachments = append(r.attachments, attachment{middleware: mw})
	}
}

// UseFunc is Use for plain functions.
func (r *Router) UseFunc(fns ...handler.MiddlewareFunc) {
	for _, fn := range fns {
		if fn == nil {
			panic(ErrNilMiddleware)
		}
		r.Use(fn)
	}
}

// Mount attaches sub at prefix. Requests whose path starts with prefix are
// resolved against sub with the prefix stripped; ":name" prefix segments are
// captured as parameters. A router can only be mounted once.
func (r *Router) Mount(prefix string, sub *Router) {
	r.mustNotBeFrozen()

	if sub == nil {
		panic(fmt.Errorf("%w on '%s'", ErrNilRouter, prefix))
	}
	if sub == r {
		panic(fmt.Errorf("%w on '%s'", ErrMountSelf, prefix))
	}
	if sub.parent != nil {
		panic(fmt.Errorf("%w on '%s'", ErrAlreadyMounted, prefix))
	}
	for p := r; p != nil; p = p.parent {
		if p == sub {
			panic(fmt.Errorf("%w on '%s'", ErrMountCycle, prefix))
		}
	}

	if prefix == "" {
		prefix = "/"
	}
	if prefix[0] != '/' {
		panic(fmt.Errorf("%w: '%s'", ErrInvalidPrefix, prefix))
	}
	segs := parsePattern(prefix)
	for _, seg := range segs {
		if seg.typ == ntCatchAll {
			panic(fmt.Errorf("%w: '%s' cannot contain a wildcard", ErrInvalidPrefix, prefix))
		}
	}

	sub.parent = r
	r.attachments = append(r.attachments, attachment{
		pattern: prefix,
		prefix:  segs,
		sub:     sub,
	})
}

// Route creates a new sub-router, configures it with fn and mounts it at prefix.
func (r *Router) Route(prefix string, fn func(sub *Router)) *Router {
	if fn == nil {
		panic(fmt.Errorf("%w on '%s'", ErrNilSubrouter, prefix))
	}
	sub := New()
	fn(sub)
	r.Mount(prefix, sub)
	return sub
}

// Routes returns every registered route with mount prefixes applied.
func (r *Router) Routes() []Route {
	rts := r.routes("")
	sort.SliceStable(rts, func(i, j int) bool {
		if rts[i].Pattern != rts[j].Pattern {
			return rts[i].Pattern < rts[j].Pattern
		}
		return methodIndex(rts[i].Method) < methodIndex(rts[j].Method)
	})
	return rts
}

func (r *Router) routes(base string) []Route {
	rts := r.tree.routes(base)
	for _, att := range r.attachments {
		if att.sub != nil {
			rts = append(rts, att.sub.routes(joinPattern(base, att.pattern))...)
		}
	}
	return rts
}

// Freeze marks the router and all mounted sub-routers read-only.
// Any later registration panics with ErrFrozen.
func (r *Router) Freeze() {
	r.frozen.Store(true)
	for _, att := range r.attachments {
		if att.sub != nil {
			att.sub.Freeze()
		}
	}
}

// Frozen reports whether Freeze has been called.
func (r *Router) Frozen() bool {
	return r.frozen.Load()
}

// handle registers a handler in the routing tree.
func (r *Router) handle(method handler.Method, pattern string, h handler.HandlerFunc, middlewares []handler.Middleware) {
	r.mustNotBeFrozen()

	if !method.Valid() {
		panic(fmt.Errorf("%w: %s", handler.ErrInvalidMethod, method))
	}
	if h == nil {
		panic(fmt.Errorf("%w on '%s'", ErrNilHandler, pattern))
	}

	chain := make([]handler.Middleware, 0, len(middlewares)+1)
	chain = append(chain, middlewares...)
	chain = append(chain, h)

	r.tree.insertRoute(method, pattern, chain)
}

func (r *Router) mustNotBeFrozen() {
	if r.frozen.Load() {
		panic(ErrFrozen)
	}
}

func methodIndex(m handler.Method) int {
	for i, known := range handler.Methods {
		if known == m {
			return i
		}
	}
	return len(handler.Methods)
}

// matchPrefix reports whether segs start with the attachment prefix and
// returns the remaining segments. Prefix parameters are written to params.
func (a attachment) matchPrefix(segs []pathSegment, params map[string]string) ([]pathSegment, bool) {
	if len(a.prefix) > len(segs) {
		return nil, false
	}
	for i, seg := range a.prefix {
		if seg.typ == ntStatic && seg.value != segs[i].value {
			return nil, false
		}
	}
	for i, seg := range a.prefix {
		if seg.typ == ntParam {
			params[seg.value] = segs[i].value
		}
	}
	return segs[len(a.prefix):], true
}

// String implements fmt.Stringer for debugging output.
func (r Route) String() string {
	return strings.TrimSpace(string(r.Method) + " " + r.Pattern)
}

package router

import (
	"maps"

	"github.com/dmitrymomot/krustie/core/handler"
)

// Pipeline is the ordered sequence of middleware resolved for a request.
type Pipeline []handler.Middleware

// Run executes the pipeline in order against the same response and stops at
// the first entry that returns End. It returns the last result observed.
func (p Pipeline) Run(req *handler.Request, res *handler.Response) handler.Result {
	for _, mw := range p {
		if mw.Process(req, res) == handler.End {
			return handler.End
		}
	}
	return handler.Next
}

// Resolution is the outcome of a successful route lookup.
type Resolution struct {
	// Pipeline holds every matching middleware and the terminal chain
	Pipeline Pipeline

	// Params holds URL parameters captured by mount prefixes and the route
	Params map[string]string

	// Pattern is the full pattern of the matched route
	Pattern string
}

// resolver carries the lookup state across nested routers.
type resolver struct {
	method   handler.Method
	pipeline Pipeline
	found    bool
	params   map[string]string
	pattern  string
	allowed  map[handler.Method]struct{}
}

// Resolve walks the router's attachments in insertion order and builds the
// pipeline for method and path. Middleware is appended unconditionally; a
// mount whose prefix matches is resolved recursively and spliced in place; the
// router's own routes are matched last. Only the first terminal handler found
// is kept.
//
// path is in its escaped form (see handler.Request.EscapedPath): it is split on
// '/' before decoding, and captured parameters hold decoded values.
//
// It returns ErrNotFound when no route matches and a *MethodNotAllowedError
// when a route matches the path but not the method.
func (r *Router) Resolve(method handler.Method, path string) (*Resolution, error) {
	rs := &resolver{method: method}
	r.resolve(rs, splitRequestPath(path), "", map[string]string{})

	if !rs.found {
		if len(rs.allowed) > 0 {
			allowed := make([]handler.Method, 0, len(rs.allowed))
			for _, m := range handler.Methods {
				if _, ok := rs.allowed[m]; ok {
					allowed = append(allowed, m)
				}
			}
			return nil, &MethodNotAllowedError{Method: method, Allowed: allowed}
		}
		return nil, ErrNotFound
	}

	return &Resolution{
		Pipeline: rs.pipeline,
		Params:   rs.params,
		Pattern:  rs.pattern,
	}, nil
}

func (r *Router) resolve(rs *resolver, segs []pathSegment, base string, params map[string]string) {
	for _, att := range r.attachments {
		if att.sub == nil {
			rs.pipeline = append(rs.pipeline, att.middleware)
			continue
		}

		subParams := maps.Clone(params)
		rest, ok := att.matchPrefix(segs, subParams)
		if !ok {
			continue
		}
		att.sub.resolve(rs, rest, joinPattern(base, att.pattern), subParams)
	}

	if rs.found {
		return
	}

	ep, fallback, rp := r.tree.findRoute(rs.method, segs)
	if ep == nil {
		if fallback != nil {
			if rs.allowed == nil {
				rs.allowed = make(map[handler.Method]struct{})
			}
			for _, m := range fallback.allowed() {
				rs.allowed[m] = struct{}{}
			}
		}
		return
	}

	for i, key := range rp.Keys {
		params[key] = rp.Values[i]
	}

	rs.found = true
	rs.params = params
	rs.pattern = joinPattern(base, ep.pattern)
	rs.pipeline = append(rs.pipeline, ep.chain...)
}

package router

// Segment-indexed routing tree. Each node represents one path segment and
// children are grouped by type so lookups try static, then parameter, then
// catch-all edges.

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/dmitrymomot/krustie/core/handler"
)

type nodeTyp uint8

const (
	ntStatic   nodeTyp = iota // /home
	ntParam                   // /:user
	ntCatchAll                // /files/*
)

const (
	paramMarker    = ':'
	catchAllMarker = '*'
	catchAllKey    = "*"
)

type node struct {
	// literal text for static nodes, parameter name otherwise
	label string

	// node type: static, param, catchAll
	typ nodeTyp

	// child nodes grouped by type, at most one param and one catch-all edge
	statics  map[string]*node
	param    *node
	catchAll *node

	// HTTP handler endpoints on the leaf node
	endpoints endpoints
}

// endpoints is a mapping of http methods to handlers for a given route.
type endpoints map[handler.Method]*endpoint

type endpoint struct {
	// chain holds route level middleware followed by the terminal handler
	chain []handler.Middleware

	// pattern is the routing pattern the endpoint was registered with
	pattern string
}

// routeParams holds URL parameters extracted from the route.
type routeParams struct {
	Keys   []string
	Values []string
}

func (p *routeParams) push(key, value string) {
	p.Keys = append(p.Keys, key)
	p.Values = append(p.Values, value)
}

func (p *routeParams) truncate(n int) {
	p.Keys = p.Keys[:n]
	p.Values = p.Values[:n]
}

type segment struct {
	typ   nodeTyp
	value string
}

func newNode(typ nodeTyp, label string) *node {
	return &node{typ: typ, label: label}
}

func (n *node) insertRoute(method handler.Method, pattern string, chain []handler.Middleware) *node {
	segs := parsePattern(pattern)

	for _, seg := range segs {
		n = n.child(seg, pattern)
	}

	if n.endpoints == nil {
		n.endpoints = make(endpoints)
	}
	// Re-registering the same method overwrites the previous handler
	n.endpoints[method] = &endpoint{chain: chain, pattern: pattern}
	return n
}

// child returns the edge for seg, creating it when missing.
func (n *node) child(seg segment, pattern string) *node {
	switch seg.typ {
	case ntParam:
		if n.param == nil {
			n.param = newNode(ntParam, seg.value)
		} else if n.param.label != seg.value {
			panic(fmt.Errorf("%w: '%s' uses ':%s' where ':%s' is already registered",
				ErrParamConflict, pattern, seg.value, n.param.label))
		}
		return n.param

	case ntCatchAll:
		if n.catchAll == nil {
			n.catchAll = newNode(ntCatchAll, seg.value)
		} else if n.catchAll.label != seg.value {
			panic(fmt.Errorf("%w: '%s' names the wildcard '%s' where '%s' is already registered",
				ErrParamConflict, pattern, seg.value, n.catchAll.label))
		}
		return n.catchAll

	default:
		if n.statics == nil {
			n.statics = make(map[string]*node)
		}
		c, ok := n.statics[seg.value]
		if !ok {
			c = newNode(ntStatic, seg.value)
			n.statics[seg.value] = c
		}
		return c
	}
}

// findRoute walks segs and returns the endpoint for method. When no endpoint
// exists but some node matched the full path, that node is returned so the
// caller can report the methods it does support.
func (n *node) findRoute(method handler.Method, segs []pathSegment) (*endpoint, *node, routeParams) {
	rctx := routeParams{
		Keys:   make([]string, 0, len(segs)),
		Values: make([]string, 0, len(segs)),
	}
	ep, fallback := n.findRouteRecursive(method, segs, &rctx)
	return ep, fallback, rctx
}

// Recursive edge traversal trying each child group in precedence order.
// A lower precedence edge is only tried when the higher one produced no endpoint.
func (n *node) findRouteRecursive(method handler.Method, segs []pathSegment, rctx *routeParams) (*endpoint, *node) {
	if len(segs) == 0 {
		if n.isLeaf() {
			if ep := n.endpoints[method]; ep != nil {
				return ep, nil
			}
			// flag that a route exists without a handler for method
			return nil, n
		}
		return nil, nil
	}

	var fallback *node
	search := segs[0].value

	if xn := n.statics[search]; xn != nil {
		ep, fb := xn.findRouteRecursive(method, segs[1:], rctx)
		if ep != nil {
			return ep, nil
		}
		fallback = fb
	}

	if xn := n.param; xn != nil {
		prevlen := len(rctx.Keys)
		rctx.push(xn.label, search)

		ep, fb := xn.findRouteRecursive(method, segs[1:], rctx)
		if ep != nil {
			return ep, nil
		}

		// not found on this branch, reset params
		rctx.truncate(prevlen)
		if fallback == nil {
			fallback = fb
		}
	}

	if xn := n.catchAll; xn != nil && xn.isLeaf() {
		if ep := xn.endpoints[method]; ep != nil {
			rctx.push(xn.label, catchAllValue(segs))
			return ep, nil
		}
		if fallback == nil {
			fallback = xn
		}
	}

	return nil, fallback
}

func (n *node) isLeaf() bool {
	return len(n.endpoints) > 0
}

// allowed returns the methods registered on the node in a stable order.
func (n *node) allowed() []handler.Method {
	out := make([]handler.Method, 0, len(n.endpoints))
	for _, m := range handler.Methods {
		if _, ok := n.endpoints[m]; ok {
			out = append(out, m)
		}
	}
	return out
}

func (n *node) routes(base string) []Route {
	rts := []Route{}

	n.walk(func(eps endpoints) {
		for _, m := range handler.Methods {
			if ep, ok := eps[m]; ok {
				rts = append(rts, Route{Method: m, Pattern: joinPattern(base, ep.pattern)})
			}
		}
	})

	return rts
}

func (n *node) walk(fn func(eps endpoints)) {
	// Visit the leaf values if any
	if n.isLeaf() {
		fn(n.endpoints)
	}

	// Recurse on the children, statics sorted for stable output
	keys := make([]string, 0, len(n.statics))
	for k := range n.statics {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		n.statics[k].walk(fn)
	}
	if n.param != nil {
		n.param.walk(fn)
	}
	if n.catchAll != nil {
		n.catchAll.walk(fn)
	}
}

// parsePattern splits a route pattern into typed segments.
// Panics on malformed patterns since routes are registered at startup.
func parsePattern(pattern string) []segment {
	if len(pattern) == 0 || pattern[0] != '/' {
		panic(fmt.Errorf("%w: '%s'", ErrInvalidPattern, pattern))
	}

	parts := splitPath(pattern)
	segs := make([]segment, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))

	for i, part := range parts {
		var seg segment
		switch part[0] {
		case paramMarker:
			seg = segment{typ: ntParam, value: part[1:]}
			if seg.value == "" {
				panic(fmt.Errorf("%w: '%s'", ErrEmptyParam, pattern))
			}
		case catchAllMarker:
			if i != len(parts)-1 {
				panic(fmt.Errorf("%w: '%s'", ErrWildcardPosition, pattern))
			}
			seg = segment{typ: ntCatchAll, value: part[1:]}
			if seg.value == "" {
				seg.value = catchAllKey
			}
		default:
			seg = segment{typ: ntStatic, value: part}
		}

		if seg.typ != ntStatic {
			if _, dup := seen[seg.value]; dup {
				panic(fmt.Errorf("%w: '%s' has duplicate key '%s'", ErrDuplicateParam, pattern, seg.value))
			}
			seen[seg.value] = struct{}{}
		}
		segs = append(segs, seg)
	}

	return segs
}

// splitPath splits a slash-delimited path, dropping empty segments so that
// "/a/", "/a" and "//a" are equivalent.
func splitPath(path string) []string {
	parts := strings.Split(path, "/")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// joinPattern concatenates a mount prefix and a route pattern.
func joinPattern(base, pattern string) string {
	base = strings.TrimRight(base, "/")
	if pattern == "/" {
		if base == "" {
			return "/"
		}
		return base
	}
	return base + pattern
}

// pathSegment is one non-empty segment of an escaped request path.
type pathSegment struct {
	// decoded segment text
	value string
	// escaped path from the start of this segment to the end
	rest string
}

// splitRequestPath splits an escaped request path on '/' and decodes each
// segment, so "%2F" stays inside its segment. Empty segments are dropped.
func splitRequestPath(path string) []pathSegment {
	out := make([]pathSegment, 0, strings.Count(path, "/"))
	for i := 0; i < len(path); {
		if path[i] == '/' {
			i++
			continue
		}
		end := strings.IndexByte(path[i:], '/')
		if end < 0 {
			end = len(path)
		} else {
			end += i
		}
		out = append(out, pathSegment{value: unescape(path[i:end]), rest: path[i:]})
		i = end
	}
	return out
}

// catchAllValue returns the decoded remainder of the path starting at segs[0].
// Inner empty segments are kept; trailing slashes are not.
func catchAllValue(segs []pathSegment) string {
	return unescape(strings.TrimRight(segs[0].rest, "/"))
}

// unescape decodes percent escapes, keeping malformed input verbatim.
func unescape(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	u, err := url.PathUnescape(s)
	if err != nil {
		return s
	}
	return u
}

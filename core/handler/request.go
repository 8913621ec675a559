package handler

import (
	"context"
	"maps"
	"net"
	"net/url"
	"strings"
)

// Request is an immutable, parsed HTTP request.
// Build one with NewRequest; handlers only read it.
type Request struct {
	ctx     context.Context
	method  Method
	path    string
	rawPath string
	query   map[string]string
	params  map[string]string
	headers map[string]string
	body    Body
	peer    string
}

// Context returns the context of the originating connection.
func (r *Request) Context() context.Context {
	if r.ctx == nil {
		return context.Background()
	}
	return r.ctx
}

// Method returns the request method.
func (r *Request) Method() Method { return r.method }

// Path returns the decoded request path without the query string.
func (r *Request) Path() string { return r.path }

// EscapedPath returns the path as it appeared on the wire, with percent
// escapes intact. Routing splits this form on '/' so that an encoded slash
// stays inside its segment.
func (r *Request) EscapedPath() string {
	if r.rawPath == "" {
		return (&url.URL{Path: r.path}).EscapedPath()
	}
	return r.rawPath
}

// Query returns the value of the query parameter key.
func (r *Request) Query(key string) (string, bool) {
	v, ok := r.query[key]
	return v, ok
}

// QueryValue returns the query parameter key or an empty string.
func (r *Request) QueryValue(key string) string {
	return r.query[key]
}

// QueryParams returns a copy of all query parameters.
func (r *Request) QueryParams() map[string]string {
	return maps.Clone(r.query)
}

// Param returns the path parameter captured for name during matching.
func (r *Request) Param(name string) string {
	return r.params[name]
}

// LookupParam is like Param but reports whether the parameter was captured.
func (r *Request) LookupParam(name string) (string, bool) {
	v, ok := r.params[name]
	return v, ok
}

// Params returns a copy of all captured path parameters.
func (r *Request) Params() map[string]string {
	return maps.Clone(r.params)
}

// Header returns the header value for key. Lookup is case-insensitive.
func (r *Request) Header(key string) string {
	return r.headers[strings.ToLower(key)]
}

// LookupHeader is like Header but reports whether the header was present.
func (r *Request) LookupHeader(key string) (string, bool) {
	v, ok := r.headers[strings.ToLower(key)]
	return v, ok
}

// Headers returns a copy of all headers keyed by lower-cased name.
func (r *Request) Headers() map[string]string {
	return maps.Clone(r.headers)
}

// Body returns the decoded request body.
func (r *Request) Body() Body { return r.body }

// PeerAddr returns the remote address in host:port form.
func (r *Request) PeerAddr() string { return r.peer }

// PeerIP returns the host part of the remote address.
func (r *Request) PeerIP() string {
	host, _, err := net.SplitHostPort(r.peer)
	if err != nil {
		return r.peer
	}
	return host
}

// WithParams returns a shallow copy of r carrying params as its path parameters.
func (r *Request) WithParams(params map[string]string) *Request {
	r2 := *r
	r2.params = maps.Clone(params)
	return &r2
}

// WithContext returns a shallow copy of r bound to ctx.
func (r *Request) WithContext(ctx context.Context) *Request {
	r2 := *r
	r2.ctx = ctx
	return &r2
}

// RequestOption configures a Request under construction.
type RequestOption func(*Request)

// NewRequest builds a request for method and target. The target is in its
// escaped form and may carry a query string; duplicate query keys keep the
// last value.
func NewRequest(method Method, target string, opts ...RequestOption) *Request {
	rawPath, rawQuery, _ := strings.Cut(target, "?")
	if rawPath == "" {
		rawPath = "/"
	}
	r := &Request{
		method:  method,
		path:    unescapePath(rawPath),
		rawPath: rawPath,
		query:   ParseQuery(rawQuery),
		params:  map[string]string{},
		headers: map[string]string{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// WithHeader sets a header. Repeated keys are joined with ", ".
func WithHeader(key, value string) RequestOption {
	return func(r *Request) {
		k := strings.ToLower(strings.TrimSpace(key))
		if prev, ok := r.headers[k]; ok {
			r.headers[k] = prev + ", " + value
			return
		}
		r.headers[k] = value
	}
}

// WithPath overrides the path taken from the target. Use it when the path is
// already decoded and may contain a literal '?'. The escaped form is derived
// from it.
func WithPath(path string) RequestOption {
	return func(r *Request) {
		if path == "" {
			path = "/"
		}
		r.path = path
		r.rawPath = ""
	}
}

// WithEscapedPath overrides the path with its wire form, such as
// url.URL.EscapedPath. The decoded path is derived from it.
func WithEscapedPath(rawPath string) RequestOption {
	return func(r *Request) {
		if rawPath == "" {
			rawPath = "/"
		}
		r.path = unescapePath(rawPath)
		r.rawPath = rawPath
	}
}

// unescapePath decodes percent escapes, keeping malformed input verbatim.
func unescapePath(raw string) string {
	if !strings.Contains(raw, "%") {
		return raw
	}
	p, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return p
}

// WithBody sets the request body.
func WithBody(b Body) RequestOption {
	return func(r *Request) { r.body = b }
}

// WithPeer sets the remote address.
func WithPeer(addr string) RequestOption {
	return func(r *Request) { r.peer = addr }
}

// WithRequestContext binds the request to ctx.
func WithRequestContext(ctx context.Context) RequestOption {
	return func(r *Request) { r.ctx = ctx }
}

// WithQuery sets a query parameter, overriding any value from the target.
func WithQuery(key, value string) RequestOption {
	return func(r *Request) { r.query[key] = value }
}

// ParseQuery parses a raw query string. Duplicate keys keep the last value.
// Pairs that fail to unescape are kept verbatim.
func ParseQuery(raw string) map[string]string {
	out := map[string]string{}
	for raw != "" {
		var pair string
		pair, raw, _ = strings.Cut(raw, "&")
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		if uk, err := url.QueryUnescape(k); err == nil {
			k = uk
		}
		if uv, err := url.QueryUnescape(v); err == nil {
			v = uv
		}
		out[k] = v
	}
	return out
}
